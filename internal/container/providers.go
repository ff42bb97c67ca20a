// Package container provides dependency injection and lifecycle management
// for the FinNexus service.
package container

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/finnexus/internal/application/dispatcher"
	"github.com/garyjia/finnexus/internal/application/port"
	"github.com/garyjia/finnexus/internal/application/service"
	"github.com/garyjia/finnexus/internal/config"
	"github.com/garyjia/finnexus/internal/dataset"
	"github.com/garyjia/finnexus/internal/domain/entity"
	"github.com/garyjia/finnexus/internal/domain/event"
	"github.com/garyjia/finnexus/internal/domain/review"
	"github.com/garyjia/finnexus/internal/infrastructure/document"
	"github.com/garyjia/finnexus/internal/infrastructure/export"
	infraLark "github.com/garyjia/finnexus/internal/infrastructure/external/lark"
	"github.com/garyjia/finnexus/internal/infrastructure/external/openai"
	"github.com/garyjia/finnexus/internal/infrastructure/persistence/memory"
	"github.com/garyjia/finnexus/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/finnexus/pkg/database"
	"github.com/garyjia/finnexus/pkg/utils"
)

// StoreBundle holds the invoice store and, for the sqlite driver, its database
type StoreBundle struct {
	Store port.InvoiceStore
	DB    *database.DB
}

// AIBundle holds the generative AI adapters
type AIBundle struct {
	Client    *openai.Client
	Extractor port.Extractor
	Assistant port.Assistant
}

// ServiceDeps are the inputs of ProvideServices
type ServiceDeps struct {
	Config     *config.Config
	Store      port.InvoiceStore
	Dataset    *dataset.Dataset
	AI         *AIBundle
	Preparer   port.DocumentPreparer
	Exporter   port.Exporter
	Dispatcher dispatcher.Dispatcher
	Logger     *zap.Logger
}

// ProvideDataset loads the dashboard dataset, the built-in one when no path is configured
func ProvideDataset(cfg *config.DashboardConfig) (*dataset.Dataset, error) {
	ds, err := dataset.Load(cfg.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	return ds, nil
}

// ProvideStore creates the invoice store selected by cfg and seeds it
func ProvideStore(ctx context.Context, cfg *config.StoreConfig, seed []entity.Invoice, logger *zap.Logger) (*StoreBundle, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	switch cfg.Driver {
	case config.StoreMemory:
		return &StoreBundle{Store: memory.NewInvoiceStore(seed)}, nil

	case config.StoreSQLite:
		db, err := database.New(database.Config{Path: database.MemoryPath}, logger)
		if err != nil {
			return nil, err
		}
		store, err := sqlite.NewInvoiceStore(ctx, db, logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := store.Seed(ctx, seed); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to seed invoices: %w", err)
		}
		return &StoreBundle{Store: store, DB: db}, nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// ProvideAI creates the extraction and assistant client
func ProvideAI(cfg *config.AIConfig, logger *zap.Logger) (*AIBundle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ai api key is required")
	}

	prompts, err := openai.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		return nil, err
	}

	client := openai.NewClient(openai.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}, prompts, logger)

	return &AIBundle{Client: client, Extractor: client, Assistant: client}, nil
}

// ProvidePreparer creates the upload preparer
func ProvidePreparer(cfg *config.UploadConfig, logger *zap.Logger) port.DocumentPreparer {
	return document.NewPreparer(document.Config{
		MaxBytes:     cfg.MaxBytes,
		MaxDimension: cfg.MaxDimension,
		JPEGQuality:  cfg.JPEGQuality,
	}, logger)
}

// ProvideNotifier creates the Lark notifier, or nil when it is disabled
func ProvideNotifier(cfg *config.LarkConfig, logger *zap.Logger) port.Notifier {
	if !cfg.Enabled {
		return nil
	}
	return infraLark.NewNotifier(infraLark.NotifierConfig{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		ChatID:    cfg.ChatID,
		BaseURL:   cfg.BaseURL,
	}, logger)
}

// ProvideDispatcher creates the event dispatcher and registers handlers
// for the domain events. notifier may be nil.
func ProvideDispatcher(notifier port.Notifier, logger *zap.Logger) dispatcher.Dispatcher {
	disp := dispatcher.NewDispatcher(dispatcher.WithLogger(utils.ZapKV(logger)))

	if notifier != nil {
		disp.Subscribe(event.TypeInvoiceCommitted, "lark-notifier", NotifyCommitted(notifier))
	}

	audit := func(ctx context.Context, evt *event.Event) error {
		logger.Info("Domain event",
			zap.String("event_type", evt.Type.String()),
			zap.String("event_id", evt.ID),
			zap.String("subject", evt.Subject),
			zap.Any("payload", evt.Payload))
		return nil
	}
	for _, t := range []event.Type{
		event.TypeExtractionFailed,
		event.TypeExtractionStale,
		event.TypeDraftDiscarded,
		event.TypeAssistantFailed,
	} {
		disp.Subscribe(t, "audit-log", audit)
	}

	return disp
}

// NotifyCommitted adapts a Notifier to an invoice-committed event handler
func NotifyCommitted(notifier port.Notifier) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		inv, ok := event.Value[entity.Invoice](evt, "invoice")
		if !ok {
			return errors.New("event carries no invoice")
		}
		return notifier.InvoiceCommitted(ctx, inv)
	}
}

// ProvideServices creates the application services
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps.Config == nil || deps.Store == nil || deps.Dataset == nil || deps.AI == nil {
		return nil, fmt.Errorf("incomplete service dependencies")
	}

	kv := utils.ZapKV(deps.Logger)
	cfg := deps.Config

	dashboard := service.NewDashboardService(deps.Store, deps.Dataset, deps.Exporter, cfg.Dashboard.DueSoonDays, kv)

	return &ServiceBundle{
		Review: service.NewReviewService(
			review.NewWorkflow(cfg.Tenant.Name),
			deps.Preparer,
			deps.AI.Extractor,
			deps.Store,
			deps.Dispatcher,
			kv,
		),
		Dashboard: dashboard,
		Assistant: service.NewAssistantService(
			deps.AI.Assistant,
			dashboard,
			deps.Dispatcher,
			service.AssistantTexts{Welcome: cfg.Assistant.Welcome, Apology: cfg.Assistant.Apology},
			kv,
		),
	}, nil
}

// ProvideExporter creates the spreadsheet exporter
func ProvideExporter() port.Exporter {
	return export.NewXLSXExporter()
}
