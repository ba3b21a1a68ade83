package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	importhandler "github.com/FACorreiaa/adspend-reports/internal/domain/import/handler"
	importrepo "github.com/FACorreiaa/adspend-reports/internal/domain/import/repository"
	importservice "github.com/FACorreiaa/adspend-reports/internal/domain/import/service"
	"github.com/FACorreiaa/adspend-reports/internal/domain/invoice"
	invoicehandler "github.com/FACorreiaa/adspend-reports/internal/domain/invoice/handler"
	reporthandler "github.com/FACorreiaa/adspend-reports/internal/domain/report/handler"
	reportrepo "github.com/FACorreiaa/adspend-reports/internal/domain/report/repository"
	reportservice "github.com/FACorreiaa/adspend-reports/internal/domain/report/service"

	"github.com/FACorreiaa/adspend-reports/pkg/archive"
	"github.com/FACorreiaa/adspend-reports/pkg/config"
	"github.com/FACorreiaa/adspend-reports/pkg/db"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	Archiver archive.Archiver
	gcs      *archive.GCS

	// Repositories
	ImportRepo  importrepo.Store
	ReportRepo  reportrepo.ReportRepository
	InvoiceRepo invoice.InvoiceRepo

	// Services
	ImportService  *importservice.ImportService
	ReportService  *reportservice.ReportService
	InvoiceService invoice.InvoiceService

	// Handlers
	ImportHandler  *importhandler.ImportHandler
	ReportHandler  *reporthandler.ReportHandler
	InvoiceHandler *invoicehandler.InvoiceHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initArchive(ctx); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init archive: %w", err)
	}

	deps.initRepositories()
	deps.initServices()
	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initArchive picks the GCS archiver when a bucket is configured.
func (d *Dependencies) initArchive(ctx context.Context) error {
	if d.Config.Archive.Bucket == "" {
		d.Archiver = archive.Noop{}
		d.Logger.Info("upload archive disabled")
		return nil
	}

	gcs, err := archive.NewGCS(ctx, d.Config.Archive.Bucket)
	if err != nil {
		return err
	}
	d.gcs = gcs
	d.Archiver = gcs
	d.Logger.Info("upload archive enabled", slog.String("bucket", d.Config.Archive.Bucket))
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() {
	d.ImportRepo = importrepo.NewPostgresImportRepository(d.DB.Pool)
	d.ReportRepo = reportrepo.NewPostgresReportRepository(d.DB.Pool)
	d.InvoiceRepo = invoice.NewPostgresInvoiceRepo(d.DB.Pool)

	d.Logger.Info("repositories initialized")
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() {
	d.ImportService = importservice.NewImportService(d.ImportRepo, d.Archiver, d.Logger)
	d.ReportService = reportservice.NewReportService(d.ReportRepo, d.Logger)
	d.InvoiceService = invoice.NewInvoiceService(d.InvoiceRepo, d.Logger)

	d.Logger.Info("services initialized")
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.ImportHandler = importhandler.NewImportHandler(d.ImportService, d.Logger, d.Config.Server.MaxUploadBytes)
	d.ReportHandler = reporthandler.NewReportHandler(d.ReportService, d.Logger)
	d.InvoiceHandler = invoicehandler.NewInvoiceHandler(d.InvoiceService, d.Logger)

	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.gcs != nil {
		if err := d.gcs.Close(); err != nil {
			d.Logger.Warn("failed to close archive client", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
