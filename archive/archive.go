// Package archive keeps a copy of every ingested export, either on local disk
// or in an S3-compatible bucket.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mfgdocs/config"
	"mfgdocs/contenthash"
)

const (
	ModeNone = "none"
	ModeDisk = "disk"
	ModeS3   = "s3"
)

// Archiver stores raw export bytes and returns their location. Objects are
// content-addressed, so archiving the same export twice is a no-op.
type Archiver interface {
	Archive(ctx context.Context, name, hash string, data []byte) (string, error)
}

// New builds the archiver selected by cfg.ArchiveMode.
func New(cfg config.Config) (Archiver, error) {
	switch strings.ToLower(cfg.ArchiveMode) {
	case ModeDisk:
		return NewDiskArchiver(cfg.ArchiveDir), nil
	case ModeS3:
		return NewS3Archiver(cfg)
	case ModeNone, "":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown archive mode %q", cfg.ArchiveMode)
	}
}

// objectName is content-addressed so the same export is archived once.
func objectName(name, hash string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		base = "export.xml"
	}
	return contenthash.Short(hash) + "_" + base
}

type Nop struct{}

func (Nop) Archive(context.Context, string, string, []byte) (string, error) {
	return "", nil
}

type DiskArchiver struct {
	Dir string
}

func NewDiskArchiver(dir string) *DiskArchiver {
	return &DiskArchiver{Dir: dir}
}

func (a *DiskArchiver) Archive(ctx context.Context, name, hash string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(a.Dir, 0755); err != nil {
		return "", err
	}
	return saveFileIfNotExists(filepath.Join(a.Dir, objectName(name, hash)), data)
}

func saveFileIfNotExists(path string, data []byte) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
