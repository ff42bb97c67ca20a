package container

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/finnexus/internal/application/dispatcher"
	"github.com/garyjia/finnexus/internal/application/port"
	"github.com/garyjia/finnexus/internal/application/service"
	"github.com/garyjia/finnexus/internal/config"
	"github.com/garyjia/finnexus/internal/dataset"
	"github.com/garyjia/finnexus/internal/domain/event"
	"github.com/garyjia/finnexus/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Data
	dataset *dataset.Dataset
	store   port.InvoiceStore
	db      *database.DB

	// External
	ai       *AIBundle
	preparer port.DocumentPreparer
	exporter port.Exporter
	notifier port.Notifier

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Review    service.ReviewService
	Dashboard service.DashboardService
	Assistant service.AssistantService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components:
// 1. Dataset and invoice store
// 2. External clients (AI, Lark) and document tooling
// 3. Event dispatcher
// 4. Application services
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	if err := c.initData(ctx); err != nil {
		return fmt.Errorf("failed to initialize data: %w", err)
	}
	c.logger.Info("Invoice store initialized", zap.String("driver", c.config.Store.Driver))

	if err := c.initExternalClients(); err != nil {
		c.closeDB()
		return fmt.Errorf("failed to initialize external clients: %w", err)
	}
	c.logger.Info("External clients initialized", zap.Bool("lark_enabled", c.notifier != nil))

	c.dispatcher = ProvideDispatcher(c.notifier, c.logger)

	services, err := ProvideServices(&ServiceDeps{
		Config:     c.config,
		Store:      c.store,
		Dataset:    c.dataset,
		AI:         c.ai,
		Preparer:   c.preparer,
		Exporter:   c.exporter,
		Dispatcher: c.dispatcher,
		Logger:     c.logger,
	})
	if err != nil {
		_ = c.dispatcher.Close()
		c.closeDB()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.services = services

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close waits for pending event handlers and releases the store.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, healthy bool, msg string) {
		status.Components[name] = ComponentHealth{Healthy: healthy, Message: msg}
		if !healthy {
			status.Overall = false
		}
	}

	if c.store == nil {
		set("store", false, "not initialized")
	} else if invoices, err := c.store.List(ctx); err != nil {
		set("store", false, fmt.Sprintf("list failed: %v", err))
	} else {
		set("store", true, fmt.Sprintf("%d invoices", len(invoices)))
	}

	if c.db != nil {
		if err := c.db.PingContext(ctx); err != nil {
			set("database", false, fmt.Sprintf("ping failed: %v", err))
		} else {
			set("database", true, "")
		}
	}

	if c.dispatcher == nil {
		set("dispatcher", false, "not initialized")
	} else {
		// reports which handlers react to committed invoices, e.g. the Lark notifier
		subs := c.dispatcher.Subscriptions(event.TypeInvoiceCommitted)
		names := make([]string, 0, len(subs))
		for _, sub := range subs {
			names = append(names, sub.Name)
		}
		msg := "no commit handlers"
		if len(names) > 0 {
			msg = "commit handlers: " + strings.Join(names, ", ")
		}
		set("dispatcher", !c.closed.Load(), msg)
	}

	return status
}

func (c *Container) initData(ctx context.Context) error {
	ds, err := ProvideDataset(&c.config.Dashboard)
	if err != nil {
		return err
	}
	c.dataset = ds

	bundle, err := ProvideStore(ctx, &c.config.Store, ds.Invoices(), c.logger)
	if err != nil {
		return err
	}
	c.store = bundle.Store
	c.db = bundle.DB
	return nil
}

func (c *Container) initExternalClients() error {
	ai, err := ProvideAI(&c.config.AI, c.logger)
	if err != nil {
		return err
	}
	c.ai = ai
	c.preparer = ProvidePreparer(&c.config.Upload, c.logger)
	c.exporter = ProvideExporter()
	c.notifier = ProvideNotifier(&c.config.Lark, c.logger)
	return nil
}

func (c *Container) closeDB() {
	if c.db != nil {
		_ = c.db.Close()
		c.db = nil
	}
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Extractor returns the document extraction client.
func (c *Container) Extractor() port.Extractor {
	return c.ai.Extractor
}

// Preparer returns the upload preparer.
func (c *Container) Preparer() port.DocumentPreparer {
	return c.preparer
}

// Store returns the invoice store.
func (c *Container) Store() port.InvoiceStore {
	return c.store
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}
