// Package notification sends push alerts through shoutrrr when a diagnosis
// reaches the configured severity.
package notification

import (
	"context"
	"io"
	"log"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	gocache "github.com/patrickmn/go-cache"

	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/diagnosis"
	"github.com/tphakala/cropdoc/internal/errors"
	"github.com/tphakala/cropdoc/internal/events"
	"github.com/tphakala/cropdoc/internal/logger"
	"github.com/tphakala/cropdoc/internal/observability/metrics"
	"github.com/tphakala/cropdoc/internal/privacy"
)

const serviceName = "shoutrrr"

// Sender delivers a message to every configured service.
// *router.ServiceRouter satisfies it.
type Sender interface {
	Send(message string, params *stypes.Params) []error
}

// Notifier is an event consumer that alerts on severe diseases.
type Notifier struct {
	sender      Sender
	minSeverity diagnosis.Severity
	timeout     time.Duration
	recent      *gocache.Cache // crop|disease -> struct{}
	metrics     *metrics.NotificationMetrics
	log         logger.Logger
}

// New creates a notifier from settings. m may be nil.
func New(settings conf.NotificationSettings, m *metrics.NotificationMetrics) (*Notifier, error) {
	if len(settings.URLs) == 0 {
		return nil, errors.Newf("no notification urls configured").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}

	router, err := shoutrrr.CreateSender(settings.URLs...)
	if err != nil {
		return nil, errors.New(privacy.WrapError(err)).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Context("operation", "create_sender").
			Build()
	}
	if settings.Timeout > 0 {
		router.Timeout = settings.Timeout
	}
	router.SetLogger(log.New(io.Discard, "", 0))

	return NewWithSender(router, settings, m), nil
}

// NewWithSender creates a notifier around an existing sender.
func NewWithSender(sender Sender, settings conf.NotificationSettings, m *metrics.NotificationMetrics) *Notifier {
	minSeverity := diagnosis.Severity(settings.MinSeverity)
	if !minSeverity.Valid() {
		minSeverity = diagnosis.SeverityHigh
	}
	cooldown := settings.Cooldown
	if cooldown <= 0 {
		cooldown = gocache.NoExpiration
	}

	return &Notifier{
		sender:      sender,
		minSeverity: minSeverity,
		timeout:     settings.Timeout,
		recent:      gocache.New(cooldown, 10*time.Minute),
		metrics:     m,
		log:         logger.Global().Module("notification"),
	}
}

// Name implements events.EventConsumer.
func (n *Notifier) Name() string { return "notification" }

// ShouldNotify reports whether r is a disease at or above the threshold.
func (n *Notifier) ShouldNotify(r diagnosis.Report) bool {
	return r.Status == diagnosis.StatusDiseased &&
		r.Severity.Rank() >= n.minSeverity.Rank()
}

// ProcessEvent implements events.EventConsumer.
func (n *Notifier) ProcessEvent(ev events.DiagnosisEvent) error {
	if !n.ShouldNotify(ev.Report) {
		return nil
	}

	key := strings.ToLower(ev.Report.Crop + "|" + ev.Report.Disease)
	if err := n.recent.Add(key, struct{}{}, gocache.DefaultExpiration); err != nil {
		// already alerted within the cooldown
		if n.metrics != nil {
			n.metrics.IncrementSuppressed()
		}
		n.log.Debug("alert suppressed by cooldown",
			logger.String("crop", ev.Report.Crop),
			logger.String("disease", ev.Report.Disease))
		return nil
	}

	title, message, err := Render(ev)
	if err != nil {
		n.recent.Delete(key)
		return err
	}

	if err := n.send(title, message); err != nil {
		// allow a retry on the next sighting
		n.recent.Delete(key)
		return err
	}

	n.log.Info("alert sent",
		logger.String("crop", ev.Report.Crop),
		logger.String("disease", ev.Report.Disease),
		logger.String("severity", string(ev.Report.Severity)))
	return nil
}

func (n *Notifier) send(title, message string) error {
	params := stypes.Params{}
	params.SetTitle(title)

	start := time.Now()
	errs := n.deliver(message, &params)
	elapsed := time.Since(start)

	var firstErr error
	for _, e := range errs {
		if e != nil {
			firstErr = e
			break
		}
	}

	if n.metrics != nil {
		status := metrics.StatusSuccess
		if firstErr != nil {
			status = metrics.StatusError
		}
		n.metrics.RecordDelivery(serviceName, status, elapsed)
	}

	if firstErr != nil {
		return errors.New(privacy.WrapError(firstErr)).
			Component("notification").
			Category(errors.CategoryNotification).
			Timing("send", elapsed).
			Build()
	}
	return nil
}

// deliver bounds a send by the configured timeout. The router enforces its
// own timeout per service; this guards senders that do not.
func (n *Notifier) deliver(message string, params *stypes.Params) []error {
	if n.timeout <= 0 {
		return n.sender.Send(message, params)
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	done := make(chan []error, 1)
	go func() { done <- n.sender.Send(message, params) }()

	select {
	case errs := <-done:
		return errs
	case <-ctx.Done():
		return []error{ctx.Err()}
	}
}
