package automation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mfgdocs/archive"
	"mfgdocs/config"
	"mfgdocs/database"
	"mfgdocs/ingest"
)

func TestOptionsValidate(t *testing.T) {
	ok := Options{PortalURL: "https://portal.example", UserID: "u", Password: "p", Reports: []string{"Batch Register"}, SaveDir: "in"}
	assert.NoError(t, ok.validate())

	noCreds := ok
	noCreds.Password = ""
	assert.ErrorIs(t, noCreds.validate(), ErrNotConfigured)

	noReports := ok
	noReports.Reports = nil
	assert.ErrorIs(t, noReports.validate(), ErrNoReports)

	noDir := ok
	noDir.SaveDir = ""
	assert.Error(t, noDir.validate())
}

func TestDownloadReportsRejectsIncompleteOptions(t *testing.T) {
	_, err := DownloadReports(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestReportFileName(t *testing.T) {
	at := time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "Batch_Register_20240105093000.xml", reportFileName(" Batch Register ", at))
	assert.Equal(t, "FG_COA_20240105093000.xml", reportFileName("FG/COA", at))
	assert.Equal(t, "report_20240105093000.xml", reportFileName("***", at))
}

func TestSaveReport(t *testing.T) {
	dir := t.TempDir()
	path, err := saveReport(dir, "Formula Master", []byte("<FORMULAMAST/>"), time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Formula_Master_20240105000000.xml"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<FORMULAMAST/>", string(data))
}

func TestIsNoDataNotice(t *testing.T) {
	assert.True(t, isNoDataNotice("Result: No Data Found for the period"))
	assert.False(t, isNoDataNotice("Batch Register"))
}

const batchExport = `<BATCHCRREGI><CF_COMPANYNAME>Acme</CF_COMPANYNAME><LIST_G_MATCODE>
<G_MATCODE><BATCHNO>B1</BATCHNO><MATCODE>P1</MATCODE><MFGLICNO>L</MFGLICNO></G_MATCODE>
</LIST_G_MATCODE></BATCHCRREGI>`

func newHandlerService(t *testing.T, sourceDir string) *ingest.Service {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "automation.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return ingest.NewService(db, ingest.Options{SourceDir: sourceDir, Archiver: archive.Nop{}, Logger: logger})
}

func serve(h gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/automation/download", h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/automation/download", nil))
	return w
}

func TestWatchNoData(t *testing.T) {
	t.Run("signals once the notice appears", func(t *testing.T) {
		var calls atomic.Int32
		found := watchNoData(context.Background(), time.Millisecond, func() bool {
			return calls.Add(1) >= 3
		})
		select {
		case <-found:
		case <-time.After(time.Second):
			t.Fatal("notice never reported")
		}
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("stops checking when cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		var calls atomic.Int32
		found := watchNoData(ctx, time.Millisecond, func() bool {
			calls.Add(1)
			return false
		})
		require.Eventually(t, func() bool { return calls.Load() > 0 }, time.Second, time.Millisecond)
		cancel()
		time.Sleep(10 * time.Millisecond)
		settled := calls.Load()
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, settled, calls.Load())
		assert.Empty(t, found)
	})
}

func TestDownloadHandlerNotConfigured(t *testing.T) {
	svc := newHandlerService(t, t.TempDir())
	called := false
	w := serve(DownloadHandler(svc, func(context.Context, Options) ([]string, error) {
		called = true
		return nil, nil
	}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, called)
}

// The handler reads the process-wide config, so these cases stay sequential.
func TestDownloadHandlerIngestsDownloads(t *testing.T) {
	dir := t.TempDir()
	svc := newHandlerService(t, dir)
	withPortalConfig(t)

	w := serve(DownloadHandler(svc, func(_ context.Context, opts Options) ([]string, error) {
		assert.Equal(t, dir, opts.SaveDir)
		path, err := saveReport(opts.SaveDir, opts.Reports[0], []byte(batchExport), time.Now())
		return []string{path}, err
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Status     string   `json:"status"`
		Downloaded []string `json:"downloaded"`
		Ingestion  struct {
			Successful int `json:"successful"`
		} `json:"ingestion"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Len(t, body.Downloaded, 1)
	assert.Equal(t, 1, body.Ingestion.Successful)

	w = serve(DownloadHandler(svc, func(context.Context, Options) ([]string, error) { return nil, nil }))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "no_data")

	w = serve(DownloadHandler(svc, func(context.Context, Options) ([]string, error) {
		return nil, errors.New("link not found")
	}))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func withPortalConfig(t *testing.T) {
	t.Helper()
	wd, wdErr := os.Getwd()
	require.NoError(t, wdErr)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Cleanup(func() { _, _ = config.LoadConfig() })
	t.Setenv("MFG_PORTAL_URL", "https://portal.example/login")
	t.Setenv("MFG_PORTAL_USER", "qa")
	t.Setenv("MFG_PORTAL_PASSWORD", "secret")
	t.Setenv("MFG_PORTAL_REPORTS", "Batch Register, Formula Master")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	require.Equal(t, []string{"Batch Register", "Formula Master"}, cfg.PortalReports)
}
