// Package repository provides data access for uploads and the per-source
// dataset tables.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/adspend-reports/internal/domain/common"
	"github.com/FACorreiaa/adspend-reports/internal/domain/import/source"
)

// Upload is the audit record of one ingestion call. Dataset rows reference
// it and are removed with it.
type Upload struct {
	ID         uuid.UUID `db:"id"`
	SourceType string    `db:"source_type"`
	Filename   string    `db:"filename"`
	Checksum   *string   `db:"checksum"`
	UploadedAt time.Time `db:"uploaded_at"`
	CreatedAt  time.Time `db:"created_at"`
}

// Batch summarises the rows stored for one period.
type Batch struct {
	DateFrom   time.Time `db:"date_from"`
	DateTo     time.Time `db:"date_to"`
	ReportType string    `db:"report_type"`
	Count      int64     `db:"count"`
}

// DeleteFilter narrows DeleteRows. Nil or empty fields do not filter.
type DeleteFilter struct {
	DateFrom   *time.Time
	DateTo     *time.Time
	ReportType string
}

// ImportRepository defines data access operations for ingestion
type ImportRepository interface {
	CreateUpload(ctx context.Context, src source.Source, filename, checksum string) (*Upload, error)

	// InsertRows bulk-copies records tagged with the period and upload.
	InsertRows(ctx context.Context, src source.Source, period common.Period, uploadID uuid.UUID, records []source.Record) (int64, error)

	// ListBatches returns the 20 most recent periods stored for src.
	ListBatches(ctx context.Context, src source.Source) ([]Batch, error)

	DeleteRows(ctx context.Context, src source.Source, filter DeleteFilter) (int64, error)
}

// Store is an ImportRepository that can scope work to one transaction.
type Store interface {
	ImportRepository
	InTx(ctx context.Context, fn func(repo ImportRepository) error) error
}
