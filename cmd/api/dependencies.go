package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/FACorreiaa/smart-expense-tracker/internal/domain/catalog"
	"github.com/FACorreiaa/smart-expense-tracker/internal/domain/categorization"
	"github.com/FACorreiaa/smart-expense-tracker/internal/domain/expense"
	financehandler "github.com/FACorreiaa/smart-expense-tracker/internal/domain/finance/handler"
	"github.com/FACorreiaa/smart-expense-tracker/internal/domain/report"
	reporthandler "github.com/FACorreiaa/smart-expense-tracker/internal/domain/report/handler"
	"github.com/FACorreiaa/smart-expense-tracker/pkg/config"
	"github.com/FACorreiaa/smart-expense-tracker/pkg/cron"
	"github.com/FACorreiaa/smart-expense-tracker/pkg/db"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config   *config.Config
	DB       *db.DB
	Logger   *slog.Logger
	Registry *prometheus.Registry

	// Repositories
	CatalogRepo catalog.Repository
	ExpenseRepo expense.Repository

	// Services
	CategorizationService *categorization.Service
	ExpenseService        *expense.Service
	ReportService         *report.Service
	Scheduler             *cron.Scheduler

	// Handlers
	FinanceHandler *financehandler.FinanceHandler
	ReportHandler  *reporthandler.ReportHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	deps.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

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

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	d.CatalogRepo = catalog.NewPostgresRepository(d.DB.Pool)
	d.ExpenseRepo = expense.NewPostgresRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	keywords, err := d.keywordClassifier()
	if err != nil {
		return err
	}

	ai, err := d.aiClassifier()
	if err != nil {
		return err
	}

	var metrics *categorization.Metrics
	if d.Config.Observability.MetricsEnabled {
		metrics = categorization.NewMetrics(d.Registry)
	}

	d.CategorizationService = categorization.NewService(d.CatalogRepo, ai, keywords, metrics, d.Logger)

	loc := d.Config.Reports.Location()
	d.ExpenseService = expense.NewService(
		d.ExpenseRepo,
		d.CatalogRepo,
		newCategorizationAdapter(d.CategorizationService),
		d.Config.Reports.Currency,
		loc,
		d.Logger,
	)
	d.ReportService = report.NewService(d.CatalogRepo, d.ExpenseRepo, loc, d.Config.Reports.Currency, d.Logger)

	if d.Config.Cron.Enabled {
		d.Scheduler = cron.NewScheduler(d.CatalogRepo, d.Config.Cron.CatalogSchedule, d.Logger)
	}

	d.Logger.Info("services initialized",
		slog.String("keyword_table", keywords.Version()),
		slog.Int("keyword_patterns", keywords.PatternCount()),
		slog.Bool("ai_classifier", d.Config.AI.APIKey != ""),
	)
	return nil
}

func (d *Dependencies) keywordClassifier() (*categorization.KeywordClassifier, error) {
	table := categorization.DefaultKeywordTable()
	if path := d.Config.Categorization.KeywordTablePath; path != "" {
		loaded, err := categorization.LoadKeywordTable(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load keyword table: %w", err)
		}
		table = loaded
	}
	return categorization.NewKeywordClassifier(table)
}

func (d *Dependencies) aiClassifier() (categorization.AIClassifier, error) {
	cfg := d.Config.AI
	if cfg.APIKey == "" {
		return categorization.NoopClassifier{}, nil
	}
	ai, err := categorization.NewAnthropicClassifier(categorization.AnthropicConfig{
		APIKey:        cfg.APIKey,
		Model:         cfg.Model,
		Endpoint:      cfg.Endpoint,
		MaxTokens:     cfg.MaxTokens,
		Timeout:       cfg.Timeout,
		RatePerSecond: cfg.RateLimitPerSecond,
		Burst:         cfg.RateLimitBurst,
	}, &http.Client{Timeout: cfg.Timeout + time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to init ai classifier: %w", err)
	}
	return ai, nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.FinanceHandler = financehandler.NewFinanceHandler(d.CatalogRepo, d.ExpenseService, d.CategorizationService, d.Logger)
	d.ReportHandler = reporthandler.NewReportHandler(d.ReportService, d.Logger)

	d.Logger.Info("handlers initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
