// Package app assembles the diagnosis pipeline and its integrations from
// settings. Commands build an App, use its Analyzer and Close it on exit.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/tphakala/cropdoc/internal/analysis"
	"github.com/tphakala/cropdoc/internal/cache"
	"github.com/tphakala/cropdoc/internal/classifier"
	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/datastore"
	"github.com/tphakala/cropdoc/internal/diagnosis"
	"github.com/tphakala/cropdoc/internal/events"
	"github.com/tphakala/cropdoc/internal/httpclient"
	"github.com/tphakala/cropdoc/internal/knowledge"
	"github.com/tphakala/cropdoc/internal/logger"
	"github.com/tphakala/cropdoc/internal/mqtt"
	"github.com/tphakala/cropdoc/internal/notification"
	"github.com/tphakala/cropdoc/internal/observability"
	"github.com/tphakala/cropdoc/internal/telegram"
)

const (
	mqttConnectTimeout = 10 * time.Second
	busShutdownTimeout = 5 * time.Second
	telegramTimeout    = 60 * time.Second
)

// Options selects the optional parts of the pipeline.
type Options struct {
	// History opens the configured scan store.
	History bool
	// Events starts the event bus with the MQTT and notification consumers
	// enabled in settings.
	Events bool
	// Classifier replaces the configured backend.
	Classifier classifier.Classifier
}

// App holds the assembled components.
type App struct {
	Settings *conf.Settings
	Metrics  *observability.Metrics
	Analyzer *analysis.Analyzer
	Store    datastore.Interface // nil unless Options.History
	Bus      *events.EventBus    // nil unless Options.Events and a consumer is enabled

	classifier classifier.Classifier
	cache      cache.Store
	mqttClient mqtt.Client
	backend    *httpclient.Client
	botHTTP    *httpclient.Client
	log        logger.Logger
}

// GetLogger returns the app module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("app")
}

// LoadResolver loads the configured knowledge base, or the embedded one
// when no path is set.
func LoadResolver(settings *conf.Settings) (*diagnosis.Resolver, error) {
	var (
		kb  *diagnosis.KnowledgeBase
		err error
	)
	if settings.Knowledge.Path == "" {
		kb, err = knowledge.Default()
	} else {
		kb, err = knowledge.Load(settings.Knowledge.Path)
	}
	if err != nil {
		return nil, err
	}
	return diagnosis.NewResolver(kb), nil
}

// New builds the pipeline. On error every component created so far is
// closed again.
func New(ctx context.Context, settings *conf.Settings, opts Options) (_ *App, err error) {
	a := &App{Settings: settings, log: GetLogger()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.Metrics, err = observability.NewMetrics(); err != nil {
		return nil, fmt.Errorf("error initializing metrics: %w", err)
	}

	resolver, err := LoadResolver(settings)
	if err != nil {
		return nil, err
	}
	kb := resolver.KnowledgeBase()
	a.Metrics.Diagnosis.SetKnowledgeEntries(kb.Len())

	a.classifier = opts.Classifier
	if a.classifier == nil {
		a.backend = httpclient.New(&httpclient.Config{
			DefaultTimeout: settings.Classifier.Timeout,
			BearerToken:    settings.Classifier.HuggingFace.Token,
		})
		a.backend.SetObserver(a.Metrics.Diagnosis.ObserveBackendRequest)

		labels := append(kb.DiseaseKeys(), kb.HealthyKeys()...)
		if a.classifier, err = classifier.New(ctx, settings, a.backend, labels); err != nil {
			return nil, err
		}
	}

	a.cache, err = cache.New(ctx, &settings.Cache)
	if err != nil {
		// predictions are still correct without a cache
		a.log.Warn("result cache disabled", logger.Error(err))
		a.cache = nil
	}

	if opts.History {
		if a.Store = datastore.New(settings); a.Store != nil {
			if err = a.Store.Open(); err != nil {
				a.Store = nil
				return nil, fmt.Errorf("failed to open scan store: %w", err)
			}
		}
	}

	if opts.Events {
		if err = a.startEvents(ctx); err != nil {
			return nil, err
		}
	}

	cfg := analysis.Config{
		Classifier: a.classifier,
		Resolver:   resolver,
		Bus:        a.Bus,
		Metrics:    a.Metrics.Diagnosis,
		Node:       settings.Main.Name,
	}
	if a.cache != nil {
		cfg.Cache = a.cache
	}
	if a.Store != nil {
		cfg.Store = a.Store
	}
	if a.Analyzer, err = analysis.New(cfg); err != nil {
		return nil, err
	}

	a.log.Info("pipeline ready",
		logger.String("backend", a.classifier.Name()),
		logger.Int("knowledge_entries", kb.Len()),
		logger.Bool("history", a.Store != nil),
		logger.Bool("events", a.Bus != nil))

	return a, nil
}

// startEvents creates the bus when at least one consumer is enabled. The bus
// is owned by the App as soon as it exists, so Close stops its workers even
// when a later consumer fails to start.
func (a *App) startEvents(ctx context.Context) error {
	s := a.Settings
	if !s.MQTT.Enabled && !s.Notification.Enabled {
		return nil
	}

	bus := events.New(events.DefaultConfig())
	a.Bus = bus

	if s.MQTT.Enabled {
		a.mqttClient = mqtt.NewClient(s, a.Metrics.MQTT)
		connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
		if err := a.mqttClient.Connect(connectCtx); err != nil {
			// the client keeps retrying in the background
			a.log.Warn("MQTT broker not reachable at startup", logger.Error(err))
		}
		cancel()
		if err := bus.RegisterConsumer(mqtt.NewPublisher(a.mqttClient, s.MQTT.Topic)); err != nil {
			return err
		}
	}

	if s.Notification.Enabled {
		notifier, err := notification.New(s.Notification, a.Metrics.Notification)
		if err != nil {
			return err
		}
		if err := bus.RegisterConsumer(notifier); err != nil {
			return err
		}
	}

	return nil
}

// NewTelegramBot creates the Telegram front end for the pipeline. Photo
// downloads use their own client so the inference token never reaches
// Telegram.
func (a *App) NewTelegramBot() (*telegram.Bot, error) {
	if a.botHTTP == nil {
		a.botHTTP = httpclient.New(&httpclient.Config{DefaultTimeout: telegramTimeout})
	}
	return telegram.New(a.Settings.Telegram, a.Analyzer, a.botHTTP)
}

// Close releases every component. It is safe to call on a partly built App.
func (a *App) Close() {
	if a.Bus != nil {
		if err := a.Bus.Shutdown(busShutdownTimeout); err != nil {
			a.log.Warn("event bus shutdown incomplete", logger.Error(err))
		}
	}
	if a.mqttClient != nil {
		a.mqttClient.Disconnect()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.log.Warn("failed to close scan store", logger.Error(err))
		}
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.classifier != nil {
		_ = a.classifier.Close()
	}
	if a.backend != nil {
		a.backend.Close()
	}
	if a.botHTTP != nil {
		a.botHTTP.Close()
	}
}
