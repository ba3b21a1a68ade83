package common

import "errors"

var (
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrBadRequest      = errors.New("bad request")

	// Ingestion and reporting input errors. All of them are detected before
	// anything is written.
	ErrInvalidSource     = errors.New("invalid source")
	ErrInvalidReport     = errors.New("invalid report")
	ErrInvalidDate       = errors.New("invalid date format, use YYYY-MM-DD")
	ErrMissingDates      = errors.New("date_from and date_to are required")
	ErrInvalidReportType = errors.New("invalid report_type")
	ErrInvalidROIMode    = errors.New("invalid roi_last_mode, use full or cohort")
	ErrMissingFile       = errors.New("file is required (multipart/form-data)")

	// ErrNoRowsInserted is reported when an adapter ran but no row survived.
	ErrNoRowsInserted = errors.New("no rows inserted")
)
