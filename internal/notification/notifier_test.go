package notification

import (
	"sync"
	"testing"
	"time"

	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/cropdoc/internal/conf"
	"github.com/tphakala/cropdoc/internal/diagnosis"
	"github.com/tphakala/cropdoc/internal/errors"
	"github.com/tphakala/cropdoc/internal/events"
	"github.com/tphakala/cropdoc/internal/observability/metrics"
)

type sentMessage struct {
	title   string
	message string
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []sentMessage
	err   error
	delay time.Duration
}

func (f *fakeSender) Send(message string, params *stypes.Params) []error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	title, _ := params.Title()
	f.sent = append(f.sent, sentMessage{title: title, message: message})
	return []error{f.err}
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func diseaseEvent(crop, disease string, severity diagnosis.Severity) events.DiagnosisEvent {
	return events.DiagnosisEvent{
		Node:      "greenhouse-1",
		ImageName: "leaf.jpg",
		Report: diagnosis.Report{
			Crop:            crop,
			Disease:         disease,
			Confidence:      93.5,
			ConfidenceLevel: diagnosis.TierVeryHigh,
			Severity:        severity,
			Organic:         []string{"Remove infected leaves"},
			Chemical:        []string{"Apply copper fungicide"},
			Status:          diagnosis.StatusDiseased,
			Match:           diagnosis.KindDisease,
		},
	}
}

func newTestNotifier(t *testing.T, sender Sender, settings conf.NotificationSettings) (*Notifier, *metrics.NotificationMetrics) {
	t.Helper()
	m, err := metrics.NewNotificationMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return NewWithSender(sender, settings, m), m
}

func TestShouldNotify(t *testing.T) {
	n, _ := newTestNotifier(t, &fakeSender{}, conf.NotificationSettings{MinSeverity: "High"})

	assert.False(t, n.ShouldNotify(diseaseEvent("Tomato", "Leaf Mold", diagnosis.SeverityMedium).Report))
	assert.True(t, n.ShouldNotify(diseaseEvent("Tomato", "Early Blight", diagnosis.SeverityHigh).Report))
	assert.True(t, n.ShouldNotify(diseaseEvent("Potato", "Late Blight", diagnosis.SeverityVeryHigh).Report))

	healthy := diagnosis.Report{Crop: "Apple", Status: diagnosis.StatusHealthy}
	assert.False(t, n.ShouldNotify(healthy))

	unknown := diagnosis.Report{Crop: "Unknown", Status: diagnosis.StatusDiseased, Match: diagnosis.KindFallback}
	assert.False(t, n.ShouldNotify(unknown), "fallbacks carry no severity")
}

func TestInvalidMinSeverityDefaultsToHigh(t *testing.T) {
	n, _ := newTestNotifier(t, &fakeSender{}, conf.NotificationSettings{MinSeverity: "Extreme"})
	assert.Equal(t, diagnosis.SeverityHigh, n.minSeverity)
}

func TestProcessEventSendsAlert(t *testing.T) {
	sender := &fakeSender{}
	n, m := newTestNotifier(t, sender, conf.NotificationSettings{MinSeverity: "High", Cooldown: time.Hour})

	require.NoError(t, n.ProcessEvent(diseaseEvent("Potato", "Late Blight", diagnosis.SeverityVeryHigh)))
	require.Equal(t, 1, sender.count())
	assert.Equal(t, "Very High severity: Late Blight on Potato", sender.sent[0].title)
	assert.Contains(t, sender.sent[0].message, "Potato: Late Blight detected with 93.50% confidence (Very High).")
	assert.Contains(t, sender.sent[0].message, "Chemical: Apply copper fungicide")
	assert.InDelta(t, 1, testutil.ToFloat64(m.Deliveries.WithLabelValues(serviceName, metrics.StatusSuccess)), 0)
}

func TestProcessEventCooldown(t *testing.T) {
	sender := &fakeSender{}
	n, m := newTestNotifier(t, sender, conf.NotificationSettings{MinSeverity: "High", Cooldown: time.Hour})

	ev := diseaseEvent("Potato", "Late Blight", diagnosis.SeverityVeryHigh)
	require.NoError(t, n.ProcessEvent(ev))
	require.NoError(t, n.ProcessEvent(ev))
	assert.Equal(t, 1, sender.count())
	assert.InDelta(t, 1, testutil.ToFloat64(m.Suppressed), 0)

	require.NoError(t, n.ProcessEvent(diseaseEvent("Tomato", "Late Blight", diagnosis.SeverityVeryHigh)))
	assert.Equal(t, 2, sender.count(), "cooldown is per crop and disease")
}

func TestProcessEventBelowThreshold(t *testing.T) {
	sender := &fakeSender{}
	n, _ := newTestNotifier(t, sender, conf.NotificationSettings{MinSeverity: "Very High"})

	require.NoError(t, n.ProcessEvent(diseaseEvent("Tomato", "Early Blight", diagnosis.SeverityHigh)))
	assert.Zero(t, sender.count())
}

func TestProcessEventSendFailureAllowsRetry(t *testing.T) {
	sender := &fakeSender{err: assert.AnError}
	n, m := newTestNotifier(t, sender, conf.NotificationSettings{MinSeverity: "High", Cooldown: time.Hour})

	ev := diseaseEvent("Grape", "Black Rot", diagnosis.SeverityHigh)
	err := n.ProcessEvent(ev)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNotification))
	assert.InDelta(t, 1, testutil.ToFloat64(m.Deliveries.WithLabelValues(serviceName, metrics.StatusError)), 0)

	sender.err = nil
	require.NoError(t, n.ProcessEvent(ev))
	assert.Equal(t, 2, sender.count())
}

func TestProcessEventTimeout(t *testing.T) {
	sender := &fakeSender{delay: 200 * time.Millisecond}
	n, _ := newTestNotifier(t, sender, conf.NotificationSettings{MinSeverity: "High", Timeout: 20 * time.Millisecond})

	err := n.ProcessEvent(diseaseEvent("Corn", "Northern Leaf Blight", diagnosis.SeverityHigh))
	require.Error(t, err)
	assert.Eventually(t, func() bool { return sender.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestNewRequiresURLs(t *testing.T) {
	_, err := New(conf.NotificationSettings{}, nil)
	require.Error(t, err)

	_, err = New(conf.NotificationSettings{URLs: []string{"nosuchservice://x"}}, nil)
	require.Error(t, err)
}

func TestNewWithGenericWebhook(t *testing.T) {
	n, err := New(conf.NotificationSettings{
		URLs:        []string{"generic://127.0.0.1:9/hook"},
		MinSeverity: "Medium",
		Timeout:     time.Second,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "notification", n.Name())
}

func TestRenderOmitsEmptySections(t *testing.T) {
	ev := diseaseEvent("Apple", "Cedar Apple Rust", diagnosis.SeverityMedium)
	ev.Node, ev.ImageName = "", ""
	ev.Report.Organic, ev.Report.Chemical = nil, nil

	title, message, err := Render(ev)
	require.NoError(t, err)
	assert.Equal(t, "Medium severity: Cedar Apple Rust on Apple", title)
	assert.Equal(t, "Apple: Cedar Apple Rust detected with 93.50% confidence (Very High).", message)
}
