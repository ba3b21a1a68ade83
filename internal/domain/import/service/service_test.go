package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/adspend-reports/internal/domain/common"
	"github.com/FACorreiaa/adspend-reports/internal/domain/import/repository"
	"github.com/FACorreiaa/adspend-reports/internal/domain/import/source"
)

// fakeStore keeps rows in memory; work done inside a failed InTx is dropped.
type fakeStore struct {
	uploads   []repository.Upload
	rows      map[source.Source][]source.Record
	inserts   []int
	deleted   repository.DeleteFilter
	insertErr error
	txCalls   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[source.Source][]source.Record{}}
}

func (f *fakeStore) CreateUpload(_ context.Context, src source.Source, filename, checksum string) (*repository.Upload, error) {
	u := repository.Upload{ID: uuid.New(), SourceType: src.String(), Filename: filename, Checksum: &checksum}
	f.uploads = append(f.uploads, u)
	return &u, nil
}

func (f *fakeStore) InsertRows(_ context.Context, src source.Source, _ common.Period, _ uuid.UUID, records []source.Record) (int64, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.inserts = append(f.inserts, len(records))
	f.rows[src] = append(f.rows[src], records...)
	return int64(len(records)), nil
}

func (f *fakeStore) ListBatches(context.Context, source.Source) ([]repository.Batch, error) {
	return []repository.Batch{{ReportType: "weekly", Count: 3}}, nil
}

func (f *fakeStore) DeleteRows(_ context.Context, _ source.Source, filter repository.DeleteFilter) (int64, error) {
	f.deleted = filter
	return 5, nil
}

func (f *fakeStore) InTx(_ context.Context, fn func(repository.ImportRepository) error) error {
	f.txCalls++
	uploads := len(f.uploads)
	rows := make(map[source.Source][]source.Record, len(f.rows))
	for k, v := range f.rows {
		rows[k] = v
	}
	if err := fn(f); err != nil {
		f.uploads = f.uploads[:uploads]
		f.rows = rows
		return err
	}
	return nil
}

type recordingArchive struct {
	keys []string
	err  error
}

func (a *recordingArchive) Store(_ context.Context, key, _ string, _ []byte) error {
	a.keys = append(a.keys, key)
	return a.err
}

func newTestService(store *fakeStore, arch *recordingArchive) *ImportService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewImportService(store, arch, logger)
}

func request(src, body string) IngestRequest {
	return IngestRequest{
		Source:   src,
		DateFrom: "2025-01-06",
		DateTo:   "2025-01-12",
		Filename: "export.csv",
		File:     strings.NewReader(body),
	}
}

func TestIngest_Google(t *testing.T) {
	store := newFakeStore()
	arch := &recordingArchive{}
	svc := newTestService(store, arch)

	body := strings.Join([]string{
		"Campaign report",
		`"January 6, 2025 - January 12, 2025"`,
		"Campaign,Account name,Cost",
		"Summer Sale,Main,\"1,234.50\"",
		",Main,3.00",
		"Winter Promo,Main,n/a",
	}, "\n")

	res, err := svc.Ingest(context.Background(), request("google", body))
	require.NoError(t, err)

	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, int64(2), res.Inserted)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, "weekly", res.Period.ReportType)
	require.Len(t, store.uploads, 1)
	assert.Equal(t, res.UploadID, store.uploads[0].ID)
	assert.Len(t, *store.uploads[0].Checksum, 64)

	rows := store.rows[source.Google]
	require.Len(t, rows, 2)
	first := rows[0].(source.GoogleSpend)
	assert.Equal(t, "Summer Sale", first.Campaign)
	require.NotNil(t, first.Cost)
	assert.Equal(t, 1234.5, *first.Cost)
	assert.Nil(t, rows[1].(source.GoogleSpend).Cost)

	require.Len(t, arch.keys, 1)
	assert.Equal(t, fmt.Sprintf("uploads/google/%s/export.csv", res.UploadID), arch.keys[0])
}

func TestIngest_BinomGoogleSemicolon(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingArchive{})

	body := "\"Name\";\"Leads\";\"Revenue\"\n\"Summer Sale\";\"3\";\"50.00\"\n\"Winter\";\"0\";\"0\"\n\"Spring\";\"1\";\"-4\"\n"
	res, err := svc.Ingest(context.Background(), request("binom-google", body))
	require.NoError(t, err)

	assert.Equal(t, int64(1), res.Inserted)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, "Summer Sale", store.rows[source.BinomGoogle][0].(source.BinomRevenue).Name)
}

func TestIngest_Batches(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingArchive{})

	var b strings.Builder
	b.WriteString("campaign,cost\n")
	for i := 0; i < 1203; i++ {
		fmt.Fprintf(&b, "c%d,1.00\n", i)
	}

	res, err := svc.Ingest(context.Background(), request("google", b.String()))
	require.NoError(t, err)
	assert.Equal(t, int64(1203), res.Inserted)
	assert.Equal(t, []int{500, 500, 203}, store.inserts)
	assert.Equal(t, 1, store.txCalls)
}

func TestIngest_SameFileTwiceDuplicates(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingArchive{})

	body := "Campaign,Cost\nSummer Sale,10.00\nBrand,2.50\n"

	first, err := svc.Ingest(context.Background(), request("google", body))
	require.NoError(t, err)
	second, err := svc.Ingest(context.Background(), request("google", body))
	require.NoError(t, err)

	assert.Equal(t, first.Inserted, second.Inserted)
	assert.Equal(t, first.Period, second.Period)
	assert.NotEqual(t, first.UploadID, second.UploadID)
	require.Len(t, store.uploads, 2)
	assert.Equal(t, *store.uploads[0].Checksum, *store.uploads[1].Checksum)
	assert.Len(t, store.rows[source.Google], int(first.Inserted)*2)
}

func TestIngest_UnsupportedSourceAccepted(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingArchive{})

	res, err := svc.Ingest(context.Background(), request("rumble", "campaign,spend\nA,1\n"))
	require.NoError(t, err)

	assert.Equal(t, StatusAccepted, res.Status)
	assert.Equal(t, int64(0), res.Inserted)
	assert.Len(t, store.uploads, 1, "upload record is still created")
	assert.Empty(t, store.rows[source.Rumble])
}

func TestIngest_FormatMismatchRollsBack(t *testing.T) {
	store := newFakeStore()
	arch := &recordingArchive{}
	svc := newTestService(store, arch)

	_, err := svc.Ingest(context.Background(), request("binom-google", "campaign;revenue\nA;10\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNoRowsInserted)

	var mismatch *FormatMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, []string{"name", "leads", "revenue"}, mismatch.Expected)
	assert.Empty(t, store.uploads, "upload must not survive a rejected file")
	assert.Empty(t, arch.keys)
}

func TestIngest_MatchedHeaderZeroRowsSucceeds(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingArchive{})

	res, err := svc.Ingest(context.Background(), request("binom-google", "name;leads;revenue\nA;0;0\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Inserted)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, store.uploads, 1)
}

func TestIngest_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*IngestRequest)
		err    error
	}{
		{"unknown source", func(r *IngestRequest) { r.Source = "facebook" }, common.ErrInvalidSource},
		{"missing date", func(r *IngestRequest) { r.DateTo = "" }, common.ErrMissingDates},
		{"bad date", func(r *IngestRequest) { r.DateFrom = "06/01/2025" }, common.ErrInvalidDate},
		{"long report type", func(r *IngestRequest) { r.ReportType = strings.Repeat("x", 17) }, common.ErrInvalidReportType},
		{"no file", func(r *IngestRequest) { r.File = nil }, common.ErrMissingFile},
		{"empty file", func(r *IngestRequest) { r.File = bytes.NewReader(nil) }, common.ErrMissingFile},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			svc := newTestService(store, &recordingArchive{})

			req := request("google", "campaign,cost\nA,1\n")
			tc.mutate(&req)

			_, err := svc.Ingest(context.Background(), req)
			assert.ErrorIs(t, err, tc.err)
			assert.Zero(t, store.txCalls, "nothing may be written for invalid input")
		})
	}
}

func TestIngest_InsertFailure(t *testing.T) {
	store := newFakeStore()
	store.insertErr = errors.New("connection reset")
	svc := newTestService(store, &recordingArchive{})

	_, err := svc.Ingest(context.Background(), request("google", "campaign,cost\nA,1\n"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection reset")
	assert.Empty(t, store.uploads)
}

func TestIngest_ArchiveFailureIsNotFatal(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingArchive{err: errors.New("bucket missing")})

	res, err := svc.Ingest(context.Background(), request("google", "campaign,cost\nA,1\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Inserted)
}

func TestIngest_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Campaign", "Cost"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Brand", 10.5}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	store := newFakeStore()
	svc := newTestService(store, &recordingArchive{})

	req := request("google", "")
	req.Filename = "export.xlsx"
	req.File = bytes.NewReader(buf.Bytes())

	res, err := svc.Ingest(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Inserted)
	assert.Equal(t, 10.5, *store.rows[source.Google][0].(source.GoogleSpend).Cost)
}

func TestDeleteRows(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingArchive{})

	n, err := svc.DeleteRows(context.Background(), "google", "2025-01-06", "", "weekly")
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	require.NotNil(t, store.deleted.DateFrom)
	assert.Equal(t, "2025-01-06", store.deleted.DateFrom.Format(common.DateLayout))
	assert.Nil(t, store.deleted.DateTo)
	assert.Equal(t, "weekly", store.deleted.ReportType)

	_, err = svc.DeleteRows(context.Background(), "google", "yesterday", "", "")
	assert.ErrorIs(t, err, common.ErrInvalidDate)

	_, err = svc.DeleteRows(context.Background(), "tiktok", "", "", "")
	assert.ErrorIs(t, err, common.ErrInvalidSource)
}

func TestListBatches(t *testing.T) {
	svc := newTestService(newFakeStore(), &recordingArchive{})

	src, batches, err := svc.ListBatches(context.Background(), "binom-google")
	require.NoError(t, err)
	assert.Equal(t, source.BinomGoogle, src)
	assert.Len(t, batches, 1)

	_, _, err = svc.ListBatches(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrInvalidSource)
}
