// Package automation pulls XML exports from the legacy reporting portal into
// the source folder with a headless browser.
package automation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/sirupsen/logrus"

	"mfgdocs/config"
)

const defaultDownloadTimeout = 60 * time.Second

var (
	ErrNotConfigured = errors.New("portal url, user id and password are required")
	ErrNoReports     = errors.New("no portal reports configured")
)

type Options struct {
	PortalURL string
	UserID    string
	Password  string
	// Reports are the link captions of the exports to download.
	Reports []string
	SaveDir string
	Timeout time.Duration
	// Headless is false only when debugging the portal flow.
	Headless bool
}

func (o Options) validate() error {
	if o.PortalURL == "" || o.UserID == "" || o.Password == "" {
		return ErrNotConfigured
	}
	if len(o.Reports) == 0 {
		return ErrNoReports
	}
	if o.SaveDir == "" {
		return errors.New("save directory is required")
	}
	return nil
}

// OptionsFromConfig maps the portal settings; downloads land in the source folder.
func OptionsFromConfig(c config.Config) Options {
	return Options{
		PortalURL: c.PortalURL,
		UserID:    c.PortalUserID,
		Password:  c.PortalPassword,
		Reports:   c.PortalReports,
		SaveDir:   c.SourceFolderPath,
		Timeout:   defaultDownloadTimeout,
		Headless:  true,
	}
}

// DownloadReports logs in to the portal and saves every configured report as
// an XML file in opts.SaveDir. Reports the portal reports as empty are
// skipped; the returned paths list only files actually written.
func DownloadReports(ctx context.Context, opts Options) ([]string, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultDownloadTimeout
	}
	if err := os.MkdirAll(opts.SaveDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}
	logger := config.GetLogger().WithField("module", "automation")

	u, err := launcher.New().Headless(opts.Headless).Leakless(false).Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	logger.WithField("url", opts.PortalURL).Info("opening reporting portal")
	var page *rod.Page
	if err := rod.Try(func() {
		page = browser.MustPage(opts.PortalURL)
		page.MustWaitStable()
	}); err != nil {
		return nil, fmt.Errorf("failed to open portal: %w", err)
	}

	if err := login(page, opts); err != nil {
		return nil, err
	}

	var paths []string
	for _, report := range opts.Reports {
		data, err := downloadReport(ctx, browser, page, report, opts.Timeout)
		if err != nil {
			return paths, fmt.Errorf("report %q: %w", report, err)
		}
		if len(data) == 0 {
			logger.WithField("report", report).Info("portal returned no data")
			continue
		}
		path, err := saveReport(opts.SaveDir, report, data, time.Now())
		if err != nil {
			return paths, err
		}
		logger.WithFields(logrus.Fields{"report": report, "path": path}).Info("report downloaded")
		paths = append(paths, path)
	}
	return paths, nil
}

func login(page *rod.Page, opts Options) error {
	if err := rod.Try(func() {
		page.MustElement("[name='userid'], [name='username']").MustInput(opts.UserID)
	}); err != nil {
		return fmt.Errorf("user id field not found: %w", err)
	}
	if err := rod.Try(func() {
		page.MustElement("input[type='password']").MustInput(opts.Password)
	}); err != nil {
		return fmt.Errorf("password field not found: %w", err)
	}

	if btn, err := page.ElementR("input, button, a", "/log ?in|sign ?in/i"); err == nil {
		if err := rod.Try(func() { btn.MustClick() }); err != nil {
			return fmt.Errorf("login click failed: %w", err)
		}
	} else if err := page.KeyActions().Press(input.Enter).Do(); err != nil {
		return fmt.Errorf("login submit failed: %w", err)
	}
	if err := rod.Try(func() { page.MustWaitStable() }); err != nil {
		return fmt.Errorf("portal did not settle after login: %w", err)
	}
	return nil
}

// downloadReport clicks the report link and waits for either the download or
// the portal's "no data" notice. A nil slice means no data.
func downloadReport(ctx context.Context, browser *rod.Browser, page *rod.Page, report string, timeout time.Duration) ([]byte, error) {
	link, err := page.ElementR("a, button, input", regexp.QuoteMeta(report))
	if err != nil {
		return nil, fmt.Errorf("link not found: %w", err)
	}

	// Everything started below stops once the report is settled.
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	wait := browser.Context(waitCtx).WaitDownload(os.TempDir())
	// Accept the confirmation alert some reports raise before downloading.
	go func() {
		_ = rod.Try(func() {
			waitDialog, handle := page.Context(waitCtx).MustHandleDialog()
			waitDialog()
			handle(true, "")
		})
	}()
	if err := rod.Try(func() { link.MustClick() }); err != nil {
		return nil, fmt.Errorf("click failed: %w", err)
	}

	downloaded := make(chan string, 1)
	go func() {
		_ = rod.Try(func() {
			info := wait()
			downloaded <- filepath.Join(os.TempDir(), info.GUID)
		})
	}()
	polled := page.Context(waitCtx)
	empty := watchNoData(waitCtx, 500*time.Millisecond, func() bool {
		body, err := polled.Element("body")
		if err != nil {
			return false
		}
		text, _ := body.Text()
		return isNoDataNotice(text)
	})

	select {
	case path := <-downloaded:
		defer os.Remove(path)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read download: %w", err)
		}
		return data, nil
	case <-empty:
		return nil, nil
	case <-waitCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("timed out after %s waiting for the download", timeout)
	}
}

// watchNoData runs check every interval until it reports true, which is
// signalled on the returned channel, or ctx ends.
func watchNoData(ctx context.Context, interval time.Duration, check func() bool) <-chan struct{} {
	found := make(chan struct{}, 1)
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if check() {
					found <- struct{}{}
					return
				}
			}
		}
	}()
	return found
}

func isNoDataNotice(text string) bool {
	t := strings.ToLower(text)
	return strings.Contains(t, "no data found") || strings.Contains(t, "no records found")
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func reportFileName(report string, at time.Time) string {
	name := strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(report), "_"), "_")
	if name == "" {
		name = "report"
	}
	return fmt.Sprintf("%s_%s.xml", name, at.Format("20060102150405"))
}

func saveReport(dir, report string, data []byte, at time.Time) (string, error) {
	path := filepath.Join(dir, reportFileName(report, at))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
