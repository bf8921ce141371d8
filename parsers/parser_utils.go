package parsers

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"mfgdocs/model"
	"mfgdocs/xmltree"
)

var ErrMissingContainer = errors.New("mandatory container element missing")

// Result is what every schema parser returns. Warnings never fail a parse;
// Errors always do.
type Result[T any] struct {
	Success  bool
	Data     T
	Errors   []string
	Warnings []string
}

func (r *Result[T]) fail(format string, args ...any) {
	r.Success = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result[T]) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Err folds the error list into one error, nil on success.
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	if len(r.Errors) == 0 {
		return errors.New("parse failed")
	}
	return errors.New(strings.Join(r.Errors, "; "))
}

// SkipBOM drops a leading UTF-8 BOM from r.
func SkipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	peeked, err := br.Peek(3)
	if err != nil {
		return br
	}
	if bytes.Equal(peeked, utf8BOM) {
		br.Discard(3)
	}
	return br
}

var (
	utf8BOM      = []byte{0xEF, 0xBB, 0xBF}
	declEncoding = regexp.MustCompile(`(?i)<\?xml[^>]*encoding\s*=\s*["']([A-Za-z0-9._:\-]+)["']`)
)

// DecodeLegacy converts an export to a UTF-8 string. A declared non-UTF-8
// encoding (Shift_JIS, windows-1252...) is honoured; undeclared bytes that are
// not valid UTF-8 are read as Windows-1252, which is what the exporter emits
// on its Windows hosts.
func DecodeLegacy(raw []byte) string {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	head := raw
	if len(head) > 256 {
		head = head[:256]
	}
	if m := declEncoding.FindSubmatch(head); m != nil {
		if enc, name := charset.Lookup(string(m[1])); enc != nil && name != "utf-8" {
			if out, _, err := transform.Bytes(enc.NewDecoder(), raw); err == nil {
				return string(out)
			}
		}
	}
	if utf8.Valid(raw) {
		return string(raw)
	}
	out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "\uFFFD")
	}
	return string(out)
}

func parseTree(content string) (*xmltree.Node, error) {
	root, err := xmltree.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("malformed xml: %w", err)
	}
	return root, nil
}

// orNA maps a blank display field to the N/A sentinel.
func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return model.NotAvailable
	}
	return s
}

func isNA(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, model.NotAvailable)
}

// parseQuantity reads legacy numeric text ("1,250.500", " 12 ") as float64.
func parseQuantity(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func containsAny(s string, subs ...string) bool {
	s = strings.ToUpper(s)
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
