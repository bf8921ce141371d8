package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mfgdocs/config"
	"mfgdocs/model"
	"mfgdocs/parsers"
)

// ScanFolder reads every *.xml file directly inside dir, sorted by name.
// Subdirectories and other files are skipped; unreadable files are logged and
// skipped.
func ScanFolder(dir string) ([]model.RawDocument, error) {
	if dir == "" {
		return nil, fmt.Errorf("source folder is not configured")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source folder %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".xml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	docs := make([]model.RawDocument, 0, len(names))
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			config.GetLogger().WithField("file", name).Warnf("skipping unreadable export: %v", err)
			continue
		}
		docs = append(docs, NewRawDocument(name, raw))
	}
	return docs, nil
}

// NewRawDocument decodes raw export bytes into a document ready for ingestion.
func NewRawDocument(name string, raw []byte) model.RawDocument {
	return model.RawDocument{
		FileName:      name,
		FileSizeBytes: int64(len(raw)),
		Content:       parsers.DecodeLegacy(raw),
		Raw:           raw,
	}
}
