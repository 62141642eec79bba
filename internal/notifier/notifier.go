// Package notifier provides multi-channel notification dispatch for alerts.
package notifier

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

// Notification is the logical payload handed to channels. Each channel
// renders it into its own wire format.
type Notification struct {
	AlertID        string                 `json:"alert_id"`
	WorkspaceID    string                 `json:"workspace_id"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	Severity       models.Severity        `json:"severity"`
	MetricValue    float64                `json:"metric_value"`
	ThresholdValue float64                `json:"threshold_value"`
	TriggeredAt    time.Time              `json:"triggered_at"`
	Escalated      bool                   `json:"escalated,omitempty"`
	Context        map[string]interface{} `json:"context,omitempty"`
}

// Channel is the interface for all notification channels.
type Channel interface {
	// Name returns the channel type name (e.g. "email", "slack").
	Name() string
	// Send delivers the notification to a single recipient and returns
	// provider response metadata.
	Send(ctx context.Context, n *Notification, recipient string) (string, error)
	// Timeout bounds a single delivery attempt.
	Timeout() time.Duration
	// Close releases any resources.
	Close() error
}

// HistorySink records delivery attempts. Append-only.
type HistorySink interface {
	Append(ctx context.Context, record *models.NotificationRecord) error
}

// DeliveryResult is the outcome for one (channel, recipient) target.
type DeliveryResult struct {
	Channel   string        `json:"channel"`
	Recipient string        `json:"recipient"`
	OK        bool          `json:"ok"`
	Error     string        `json:"error,omitempty"`
	Response  string        `json:"response,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
}

// DeliveryReport aggregates the results of one dispatch.
type DeliveryReport struct {
	Total      int              `json:"total"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Results    []DeliveryResult `json:"results"`
}

// registration binds a named channel to its configured recipients.
type registration struct {
	channel    Channel
	recipients []string
}

// Dispatcher expands channel configurations into (channel, recipient)
// delivery tasks, executes them concurrently, and aggregates results.
type Dispatcher struct {
	mu       sync.RWMutex
	channels map[string]registration
	limiter  *rate.Limiter
	history  HistorySink
}

// NewDispatcher creates a dispatcher with the given rate limit
// (notifications per second, with burst headroom). A nil history sink
// disables delivery recording.
func NewDispatcher(history HistorySink, perSecond float64, burst int) *Dispatcher {
	if perSecond <= 0 {
		perSecond = 10
	}
	if burst <= 0 {
		burst = 20
	}
	return &Dispatcher{
		channels: make(map[string]registration),
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		history:  history,
	}
}

// Register binds a channel and its recipients under the given name,
// replacing any existing registration.
func (d *Dispatcher) Register(name string, ch Channel, recipients []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels[name] = registration{channel: ch, recipients: recipients}
}

// Unregister removes a channel registration.
func (d *Dispatcher) Unregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.channels, name)
}

// Names returns the registered channel names.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.channels))
	for name := range d.channels {
		names = append(names, name)
	}
	return names
}

// target is one (channel, recipient) delivery task.
type target struct {
	name      string
	channel   Channel
	recipient string
}

// Send dispatches the notification to every recipient of every named
// channel. All targets are attempted concurrently with per-channel
// timeouts; one failing target never prevents others from being attempted
// or counted. Every attempt is recorded to history regardless of outcome.
func (d *Dispatcher) Send(ctx context.Context, n *Notification, channelNames []string) DeliveryReport {
	targets := d.expand(channelNames)

	report := DeliveryReport{
		Total:   len(targets),
		Results: make([]DeliveryResult, len(targets)),
	}
	if len(targets) == 0 {
		return report
	}

	var wg sync.WaitGroup
	for i, tgt := range targets {
		wg.Add(1)
		go func(i int, tgt target) {
			defer wg.Done()
			report.Results[i] = d.deliver(ctx, n, tgt)
		}(i, tgt)
	}
	wg.Wait()

	for i := range report.Results {
		if report.Results[i].OK {
			report.Successful++
		} else {
			report.Failed++
		}
		d.record(ctx, n, &report.Results[i])
	}

	return report
}

// expand resolves channel names to concrete (channel, recipient) targets.
// Unknown channel names are skipped with a log line.
func (d *Dispatcher) expand(channelNames []string) []target {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var targets []target
	for _, name := range channelNames {
		reg, ok := d.channels[name]
		if !ok {
			log.Printf("notifier: unknown channel %q, skipping", name)
			continue
		}
		for _, recipient := range reg.recipients {
			targets = append(targets, target{name: name, channel: reg.channel, recipient: recipient})
		}
	}
	return targets
}

// deliver runs a single delivery task under the channel's timeout.
func (d *Dispatcher) deliver(ctx context.Context, n *Notification, tgt target) DeliveryResult {
	result := DeliveryResult{Channel: tgt.name, Recipient: tgt.recipient}

	if !d.limiter.Allow() {
		result.Error = "notification rate limited"
		return result
	}

	timeout := tgt.channel.Timeout()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	response, err := tgt.channel.Send(sendCtx, n, tgt.recipient)
	result.Elapsed = time.Since(start)
	result.Response = response

	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.OK = true
	return result
}

// record appends one delivery attempt to history. Recording failures are
// logged, never fatal to the dispatch.
func (d *Dispatcher) record(ctx context.Context, n *Notification, result *DeliveryResult) {
	if d.history == nil {
		return
	}

	status := models.DeliverySent
	if !result.OK {
		status = models.DeliveryFailed
	}
	now := time.Now()
	record := &models.NotificationRecord{
		ID:        uuid.New().String(),
		AlertID:   n.AlertID,
		Channel:   result.Channel,
		Recipient: result.Recipient,
		Status:    status,
		Error:     result.Error,
		Response:  result.Response,
		SentAt:    now,
		CreatedAt: now,
	}
	if err := d.history.Append(ctx, record); err != nil {
		log.Printf("notifier: record delivery for alert %s: %v", n.AlertID, err)
	}
}

// Close closes all registered channels.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for name, reg := range d.channels {
		if err := reg.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	d.channels = make(map[string]registration)

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
