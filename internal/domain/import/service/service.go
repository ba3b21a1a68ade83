// Package service provides the import orchestration logic.
package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/adspend-reports/internal/domain/common"
	"github.com/FACorreiaa/adspend-reports/internal/domain/import/repository"
	"github.com/FACorreiaa/adspend-reports/internal/domain/import/sniffer"
	"github.com/FACorreiaa/adspend-reports/internal/domain/import/source"
	"github.com/FACorreiaa/adspend-reports/pkg/archive"
	"github.com/FACorreiaa/adspend-reports/pkg/observability"
)

const (
	importBatchSize = 500
	defaultFilename = "upload.csv"

	StatusOK       = "ok"
	StatusAccepted = "accepted"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// IngestRequest carries one upload as received from the client.
type IngestRequest struct {
	Source     string
	DateFrom   string
	DateTo     string
	ReportType string
	Filename   string
	File       io.Reader
}

// IngestResult contains the result of an ingestion
type IngestResult struct {
	Status   string
	Source   source.Source
	UploadID uuid.UUID
	Inserted int64
	Skipped  int
	Period   common.Period
}

// FormatMismatchError reports a file whose header never matched the fields
// its source needs, so nothing could be inserted.
type FormatMismatchError struct {
	Source   string
	Expected []string
}

func (e *FormatMismatchError) Error() string {
	return fmt.Sprintf("%s: header does not match %s export (expected %s)",
		common.ErrNoRowsInserted, e.Source, strings.Join(e.Expected, ", "))
}

func (e *FormatMismatchError) Unwrap() error { return common.ErrNoRowsInserted }

// ImportService orchestrates file ingestion and dataset maintenance
type ImportService struct {
	repo    repository.Store
	archive archive.Archiver
	logger  *slog.Logger
}

// NewImportService creates a new import service
func NewImportService(repo repository.Store, archiver archive.Archiver, logger *slog.Logger) *ImportService {
	if archiver == nil {
		archiver = archive.Noop{}
	}
	return &ImportService{
		repo:    repo,
		archive: archiver,
		logger:  logger,
	}
}

// Ingest validates the request, then creates the upload record and stores
// every adaptable row inside one transaction.
func (s *ImportService) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	l := s.logger.With(slog.String("method", "Ingest"), slog.String("source", req.Source))

	src, err := source.Parse(req.Source)
	if err != nil {
		return nil, err
	}
	period, err := common.ParsePeriod(req.DateFrom, req.DateTo, req.ReportType)
	if err != nil {
		return nil, err
	}
	if req.File == nil {
		return nil, common.ErrMissingFile
	}

	data, err := io.ReadAll(req.File)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, common.ErrMissingFile
	}

	filename := req.Filename
	if filename == "" {
		filename = defaultFilename
	}
	digest := sha256.Sum256(data)
	checksum := hex.EncodeToString(digest[:])

	start := time.Now()
	var result *IngestResult

	err = s.repo.InTx(ctx, func(repo repository.ImportRepository) error {
		upload, err := repo.CreateUpload(ctx, src, filename, checksum)
		if err != nil {
			return err
		}
		result = &IngestResult{Status: StatusOK, Source: src, UploadID: upload.ID, Period: period}

		if !src.Supported() {
			result.Status = StatusAccepted
			return nil
		}

		reader, err := openReader(data, src)
		if err != nil {
			return err
		}

		inserted, skipped, err := copyRows(ctx, repo, src, period, upload.ID, reader)
		if err != nil {
			return err
		}
		result.Inserted, result.Skipped = inserted, skipped

		if inserted == 0 && !src.Matches(reader.Header()) {
			return &FormatMismatchError{Source: src.String(), Expected: src.ExpectedFields()}
		}
		return nil
	})
	if err != nil {
		var mismatch *FormatMismatchError
		if errors.As(err, &mismatch) {
			observability.UploadsTotal.WithLabelValues(src.String(), "rejected").Inc()
			l.WarnContext(ctx, "upload rejected", slog.String("filename", filename), slog.Any("error", err))
			return nil, err
		}
		observability.UploadsTotal.WithLabelValues(src.String(), "error").Inc()
		l.ErrorContext(ctx, "ingestion failed", slog.String("filename", filename), slog.Any("error", err))
		return nil, fmt.Errorf("failed to ingest %s upload: %w", src, err)
	}

	observability.UploadsTotal.WithLabelValues(src.String(), result.Status).Inc()
	observability.RowsInserted.WithLabelValues(src.String()).Add(float64(result.Inserted))
	observability.RowsSkipped.WithLabelValues(src.String()).Add(float64(result.Skipped))

	l.InfoContext(ctx, "upload ingested",
		slog.String("upload_id", result.UploadID.String()),
		slog.String("status", result.Status),
		slog.Int64("inserted", result.Inserted),
		slog.Int("skipped", result.Skipped),
		slog.Duration("duration", time.Since(start)))

	s.archiveUpload(ctx, l, src, result.UploadID, filename, data)

	return result, nil
}

func (s *ImportService) archiveUpload(ctx context.Context, l *slog.Logger, src source.Source, uploadID uuid.UUID, filename string, data []byte) {
	contentType := "text/csv"
	if sniffer.IsXLSX(data) {
		contentType = xlsxContentType
	}
	key := archive.ObjectKey(src.String(), uploadID, filename)
	if err := s.archive.Store(ctx, key, contentType, data); err != nil {
		l.WarnContext(ctx, "failed to archive upload", slog.String("key", key), slog.Any("error", err))
	}
}

func openReader(data []byte, src source.Source) (*sniffer.Reader, error) {
	if sniffer.IsXLSX(data) {
		return sniffer.NewXLSXReader(bytes.NewReader(data))
	}
	return sniffer.NewReader(bytes.NewReader(data), src.Delimiter())
}

// copyRows streams reader rows through the source adapter and inserts them
// in batches.
func copyRows(ctx context.Context, repo repository.ImportRepository, src source.Source, period common.Period, uploadID uuid.UUID, reader *sniffer.Reader) (int64, int, error) {
	adapt := src.Adapter()
	batch := make([]source.Record, 0, importBatchSize)
	var inserted int64
	skipped := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := repo.InsertRows(ctx, src, period, uploadID, batch)
		if err != nil {
			return err
		}
		inserted += n
		batch = batch[:0]
		return nil
	}

	for {
		row, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return inserted, skipped, fmt.Errorf("failed to read row: %w", err)
		}

		rec, ok := adapt(row)
		if !ok {
			skipped++
			continue
		}
		batch = append(batch, rec)
		if len(batch) == importBatchSize {
			if err := flush(); err != nil {
				return inserted, skipped, err
			}
		}
	}

	if err := flush(); err != nil {
		return inserted, skipped, err
	}
	return inserted, skipped, nil
}

// ListBatches returns the most recent stored periods for a source.
func (s *ImportService) ListBatches(ctx context.Context, sourceID string) (source.Source, []repository.Batch, error) {
	src, err := source.Parse(sourceID)
	if err != nil {
		return 0, nil, err
	}

	batches, err := s.repo.ListBatches(ctx, src)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list batches", slog.String("method", "ListBatches"), slog.String("source", sourceID), slog.Any("error", err))
		return src, nil, err
	}
	return src, batches, nil
}

// DeleteRows removes a source's rows, optionally narrowed to a period.
// Dates are optional here; a present one must be valid.
func (s *ImportService) DeleteRows(ctx context.Context, sourceID, dateFrom, dateTo, reportType string) (int64, error) {
	l := s.logger.With(slog.String("method", "DeleteRows"), slog.String("source", sourceID))

	src, err := source.Parse(sourceID)
	if err != nil {
		return 0, err
	}

	filter := repository.DeleteFilter{ReportType: reportType}
	if filter.DateFrom, err = optionalDate(dateFrom); err != nil {
		return 0, err
	}
	if filter.DateTo, err = optionalDate(dateTo); err != nil {
		return 0, err
	}

	var deleted int64
	err = s.repo.InTx(ctx, func(repo repository.ImportRepository) error {
		deleted, err = repo.DeleteRows(ctx, src, filter)
		return err
	})
	if err != nil {
		l.ErrorContext(ctx, "failed to delete rows", slog.Any("error", err))
		return 0, err
	}

	l.InfoContext(ctx, "rows deleted", slog.Int64("rows", deleted))
	return deleted, nil
}

func optionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(common.DateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidDate, raw)
	}
	return &d, nil
}
