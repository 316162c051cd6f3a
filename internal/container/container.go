// Package container wires the application together: database, repositories,
// services, HTTP server and background workers, with ordered startup and
// reverse-order teardown.
package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ormeda/labdesk/internal/application/port"
	"github.com/ormeda/labdesk/internal/application/service"
	"github.com/ormeda/labdesk/internal/config"
	"github.com/ormeda/labdesk/internal/domain/money"
	"github.com/ormeda/labdesk/internal/infrastructure/persistence/repository"
	"github.com/ormeda/labdesk/internal/infrastructure/worker"
	httpapi "github.com/ormeda/labdesk/internal/interfaces/http"
	"github.com/ormeda/labdesk/internal/numbering"
	"github.com/ormeda/labdesk/pkg/database"
)

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Quote       port.QuoteRepository
	Invoice     port.InvoiceRepository
	Transaction port.TransactionRepository
	Entry       port.EntryRepository
	Counter     port.CounterRepository
	TxManager   port.TransactionManager
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Quote   service.QuoteService
	Invoice service.InvoiceService
	Ledger  service.LedgerService
	Stats   service.StatsService
}

// Container manages all application dependencies and lifecycle.
type Container struct {
	config *config.Config
	logger *zap.Logger

	db           *database.DB
	repositories *RepositoryBundle
	services     *ServiceBundle
	server       *httpapi.Server
	workers      *worker.Manager

	mu     sync.Mutex
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// New creates a container from configuration. Call Start to initialize.
func New(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Container{config: cfg, logger: logger}, nil
}

// Start initializes all components in dependency order: database and
// migrations, repositories, services, workers, HTTP server. It blocks serving
// HTTP until ctx is cancelled.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.ready.Load() {
		c.mu.Unlock()
		return fmt.Errorf("container already started")
	}

	ctx, c.cancel = context.WithCancel(ctx)

	db, err := database.New(database.Config{
		Path:            c.config.Database.Path,
		MaxOpenConns:    c.config.Database.MaxOpenConns,
		MaxIdleConns:    c.config.Database.MaxIdleConns,
		ConnMaxLifetime: c.config.Database.ConnMaxLifetime,
	}, c.logger)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.db = db

	migrator := database.NewMigrator(db, c.logger)
	if err := migrator.Run(ctx, c.config.Database.MigrationsDir); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	c.repositories = &RepositoryBundle{
		Quote:       repository.NewQuoteRepository(db.DB, c.logger),
		Invoice:     repository.NewInvoiceRepository(db.DB, c.logger),
		Transaction: repository.NewTransactionRepository(db.DB, c.logger),
		Entry:       repository.NewEntryRepository(db.DB, c.logger),
		Counter:     repository.NewCounterRepository(db.DB, c.logger),
		TxManager:   repository.NewTxManager(db, c.logger),
	}

	rules := service.Rules{
		TaxRateBasisPoints: c.config.Engine.TaxRateBasisPoints,
		Shipping: money.ShippingPolicy{
			FreeThreshold: c.config.Engine.ShippingFreeThreshold,
			FlatAmount:    c.config.Engine.ShippingFlatAmount,
		},
		PaymentTermsDays:  c.config.Engine.PaymentTermsDays,
		QuoteValidityDays: c.config.Engine.QuoteValidityDays,
	}

	svcLogger := &zapLoggerAdapter{logger: c.logger}
	numbers := numbering.New(c.repositories.Counter)

	// One lock set per entity kind, shared across services: Cancel on the
	// invoice service and Record on the ledger service must exclude each other.
	quoteLocks := service.NewKeyedMutex()
	invoiceLocks := service.NewKeyedMutex()

	c.services = &ServiceBundle{
		Quote: service.NewQuoteService(
			c.repositories.Quote, numbers, c.repositories.TxManager, quoteLocks, rules, svcLogger),
		Invoice: service.NewInvoiceService(
			c.repositories.Invoice, c.repositories.Quote, c.repositories.Transaction,
			numbers, c.repositories.TxManager, quoteLocks, invoiceLocks, rules, svcLogger),
		Ledger: service.NewLedgerService(
			c.repositories.Transaction, c.repositories.Invoice, c.repositories.Entry,
			c.repositories.TxManager, invoiceLocks, svcLogger),
		Stats: service.NewStatsService(
			c.repositories.Entry, c.repositories.Quote, c.repositories.Invoice,
			c.repositories.TxManager, svcLogger),
	}

	c.workers = worker.NewManager(c.logger)
	if c.config.Delivery.Enabled {
		c.workers.Register(worker.NewDeliveryWorker(
			c.services.Invoice,
			worker.NewLogDispatcher(c.logger),
			c.config.Delivery.Interval,
			c.logger,
		))
	}
	var dashboard httpapi.DashboardSource
	if c.config.Dashboard.Enabled {
		refresher := worker.NewStatsRefresher(
			c.services.Stats, c.config.Dashboard.Interval, c.logger)
		c.workers.Register(refresher)
		dashboard = refresher
	}
	if err := c.workers.StartAll(ctx); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to start workers: %w", err)
	}

	c.server = httpapi.NewServer(
		httpapi.ServerConfig{
			Host:         c.config.Server.Host,
			Port:         c.config.Server.Port,
			ReadTimeout:  c.config.Server.ReadTimeout,
			WriteTimeout: c.config.Server.WriteTimeout,
		},
		c.services.Quote,
		c.services.Invoice,
		c.services.Ledger,
		c.services.Stats,
		dashboard,
		svcLogger,
	)

	c.ready.Store(true)
	c.mu.Unlock()

	return c.server.Start(ctx)
}

// Stop tears down components in reverse initialization order.
func (c *Container) Stop() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.ready.Store(false)

	if c.cancel != nil {
		c.cancel()
	}

	var firstErr error
	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.server != nil {
		if err := c.server.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Services returns the application services.
func (c *Container) Services() *ServiceBundle { return c.services }

// zapLoggerAdapter adapts zap.Logger to the narrow keysAndValues logger
// interfaces used by the service and HTTP layers.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
