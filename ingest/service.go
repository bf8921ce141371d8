// Package ingest drives exports from the source folder through hashing, type
// detection, parsing and per-type deduplication into the document store. Each
// file is processed completely before the next one starts.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"mfgdocs/archive"
	"mfgdocs/config"
	"mfgdocs/contenthash"
	"mfgdocs/database"
	"mfgdocs/detect"
	"mfgdocs/model"
)

type Options struct {
	SourceDir          string
	Detector           *detect.Detector
	Archiver           archive.Archiver
	Logger             *logrus.Logger
	MaxRawContentBytes int64
	QuantityTolerance  float64
}

type Service struct {
	db          *sqlx.DB
	sourceDir   string
	detector    *detect.Detector
	archiver    archive.Archiver
	log         *logrus.Logger
	maxRawBytes int64
	tolerance   float64
	now         func() time.Time
}

func NewService(db *sqlx.DB, opts Options) *Service {
	s := &Service{
		db:          db,
		sourceDir:   opts.SourceDir,
		detector:    opts.Detector,
		archiver:    opts.Archiver,
		log:         opts.Logger,
		maxRawBytes: opts.MaxRawContentBytes,
		tolerance:   opts.QuantityTolerance,
		now:         func() time.Time { return time.Now().UTC() },
	}
	if s.detector == nil {
		s.detector = detect.New(detect.DefaultRules())
	}
	if s.archiver == nil {
		s.archiver = archive.Nop{}
	}
	if s.log == nil {
		s.log = config.GetLogger()
	}
	if s.maxRawBytes <= 0 {
		s.maxRawBytes = config.DefaultMaxRawContentBytes
	}
	if s.tolerance <= 0 {
		s.tolerance = config.DefaultQuantityTolerance
	}
	return s
}

func (s *Service) SourceDir() string {
	return s.sourceDir
}

// RunIngestion processes the configured source folder.
func (s *Service) RunIngestion(ctx context.Context) model.IngestionStatus {
	return s.RunFolder(ctx, s.sourceDir)
}

// RunFolder scans dir and processes its exports in name order. It never
// fails: a scan error is reported in the returned status.
func (s *Service) RunFolder(ctx context.Context, dir string) model.IngestionStatus {
	status := model.IngestionStatus{
		RunID:     uuid.NewString(),
		SourceDir: dir,
		StartedAt: s.now(),
		Results:   []model.IngestionResult{},
	}
	runLog := s.log.WithFields(logrus.Fields{"runId": status.RunID, "sourceDir": dir})

	docs, err := ScanFolder(dir)
	if err != nil {
		config.LogError(s.log, "ingest", "RunFolder", "scan source folder", dir, err)
		status.Message = err.Error()
		status.FinishedAt = s.now()
		return status
	}
	status.TotalFiles = len(docs)
	runLog.Infof("ingestion started: %d files", len(docs))

	status = s.ProcessDocuments(ctx, docs, status)

	runLog.WithFields(logrus.Fields{
		"successful": status.Successful,
		"duplicates": status.Duplicates,
		"errors":     status.Errors,
		"elapsed":    status.FinishedAt.Sub(status.StartedAt).String(),
	}).Info("ingestion finished")
	return status
}

// ProcessDocuments folds ProcessFile over docs into status. A run always
// completes file by file, so cancellation of ctx is not propagated.
func (s *Service) ProcessDocuments(ctx context.Context, docs []model.RawDocument, status model.IngestionStatus) model.IngestionStatus {
	ctx = context.WithoutCancel(ctx)
	if status.RunID == "" {
		status.RunID = uuid.NewString()
		status.StartedAt = s.now()
	}
	if status.TotalFiles == 0 {
		status.TotalFiles = len(docs)
	}
	for _, doc := range docs {
		status.Add(s.ProcessFile(ctx, doc))
	}
	status.FinishedAt = s.now()
	return status
}

// ProcessFile ingests one document. It never returns an error and never
// panics: every failure becomes an ERROR result with a persisted log entry.
func (s *Service) ProcessFile(ctx context.Context, doc model.RawDocument) (res model.IngestionResult) {
	hash := contenthash.Hash(doc.Content)
	res = model.IngestionResult{
		FileName:    doc.FileName,
		FileType:    model.FileTypeUnknown,
		ContentHash: hash,
	}

	defer func() {
		if p := recover(); p != nil {
			res = failed(res, fmt.Errorf("panic while processing: %v", p))
			s.record(res, doc)
		}
	}()

	prior, err := database.GetProcessingLog(s.db, hash)
	switch {
	case err == nil:
		if prior.Status != model.StatusError && prior.FileType != model.FileTypeFormula {
			res.FileType = prior.FileType
			res.Status = model.StatusDuplicate
			res.RecordID = prior.RecordID
			res.BusinessKey = prior.BusinessKey
			res.ConflictFile = prior.FileName
			res.Message = fmt.Sprintf("identical content already processed as %s", prior.FileName)
			s.logResult(res)
			return res
		}
	case !errors.Is(err, database.ErrNotFound):
		res = failed(res, fmt.Errorf("processing log lookup: %w", err))
		s.record(res, doc)
		return res
	}

	res.FileType = s.detector.Detect(doc.Content)

	switch res.FileType {
	case model.FileTypeBatch:
		err = s.storeBatch(ctx, doc, &res)
	case model.FileTypeFormula:
		err = s.storeFormulas(ctx, doc, &res)
	case model.FileTypeCOA:
		err = s.storeCOA(ctx, doc, &res)
	case model.FileTypeRequisition:
		err = s.storeRequisition(ctx, doc, &res)
	default:
		err = errors.New("unable to determine document type")
	}
	if err != nil {
		res = failed(res, err)
	}
	s.record(res, doc)
	return res
}

func failed(res model.IngestionResult, err error) model.IngestionResult {
	res.Status = model.StatusError
	res.Message = err.Error()
	res.RecordID = ""
	return res
}

// record upserts the processing log entry for res.
func (s *Service) record(res model.IngestionResult, doc model.RawDocument) {
	entry := model.ProcessingLogEntry{
		ContentHash:  res.ContentHash,
		FileName:     res.FileName,
		FileType:     res.FileType,
		Status:       res.Status,
		BusinessKey:  res.BusinessKey,
		RecordID:     res.RecordID,
		ItemStats:    res.ItemStats,
		FormulaStats: res.FormulaStats,
		FileSize:     doc.FileSizeBytes,
		ProcessedAt:  s.now(),
	}
	if res.Status == model.StatusError {
		entry.ErrorMessage = res.Message
	}
	if err := database.UpsertProcessingLog(s.db, entry); err != nil {
		config.LogError(s.log, "ingest", "record", "upsert processing log", res.FileName, err)
	}
	s.logResult(res)
}

func (s *Service) logResult(res model.IngestionResult) {
	entry := s.log.WithFields(logrus.Fields{
		"file":   res.FileName,
		"type":   res.FileType,
		"hash":   contenthash.Short(res.ContentHash),
		"status": res.Status,
	})
	for _, w := range res.Warnings {
		entry.Warn(w)
	}
	if res.Status == model.StatusError {
		entry.Error(res.Message)
		return
	}
	entry.Info(res.Message)
}

// rawPayload returns the content to keep in the raw column, or a warning
// when it is over the size limit.
func (s *Service) rawPayload(doc model.RawDocument) (string, string) {
	size := int64(len(doc.Content))
	if size > s.maxRawBytes {
		return "", fmt.Sprintf("raw XML not stored: %s exceeds the %s limit",
			humanize.IBytes(uint64(size)), humanize.IBytes(uint64(s.maxRawBytes)))
	}
	return doc.Content, ""
}

// archiveRaw copies the export to the archive. Failure is a warning only.
func (s *Service) archiveRaw(ctx context.Context, doc model.RawDocument, hash string, res *model.IngestionResult) string {
	data := doc.Raw
	if data == nil {
		data = []byte(doc.Content)
	}
	path, err := s.archiver.Archive(ctx, doc.FileName, hash, data)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("archive failed: %v", err))
		return ""
	}
	return path
}

// markPartial records a store-time warning on a parsed document.
func markPartial(status *string, parsingErrors *[]string, warning string) {
	if warning == "" {
		return
	}
	*status = model.RecordPartial
	*parsingErrors = append(*parsingErrors, warning)
}
