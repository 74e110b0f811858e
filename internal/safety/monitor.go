package safety

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"siteops-backend/internal/metrics"
	"siteops-backend/internal/models"
	"siteops-backend/internal/store"
)

var ErrAlertNotFound = errors.New("alert not found")

// EventKind labels alert lifecycle events published to an EventSink
type EventKind string

const (
	EventRaised        EventKind = "raised"
	EventResolved      EventKind = "resolved"
	EventDismissed     EventKind = "dismissed"
	EventEmergency     EventKind = "emergency"
	EventMovedToSafety EventKind = "moved_to_safety"
	EventCue           EventKind = "cue"
)

type Event struct {
	Kind      EventKind          `json:"kind"`
	Alert     models.Alert       `json:"alert"`
	Response  *EmergencyResponse `json:"response,omitempty"`
	Timestamp string             `json:"timestamp"`
}

// EventSink receives alert lifecycle events, e.g. for an audit stream
type EventSink interface {
	PublishEvents(ctx context.Context, events []Event) error
}

// TickResult summarises one evaluation
type TickResult struct {
	Raised   []models.Alert `json:"raised"`
	Resolved []models.Alert `json:"resolved"`
	Active   int            `json:"active"`
	Cue      *Cue           `json:"cue,omitempty"`
}

type Status struct {
	Monitoring       bool    `json:"monitoring"`
	ActiveConditions int     `json:"activeConditions"`
	Alerts           int     `json:"alerts"`
	IntervalSeconds  float64 `json:"intervalSeconds"`
	LastTick         string  `json:"lastTick,omitempty"`
}

// Monitor polls operator and machine positions and keeps a bounded,
// de-duplicated alert feed. An alert condition is identified by its key;
// the cue fires only on the tick a key becomes active.
type Monitor struct {
	cfg   Config
	store *store.Store
	now   func() time.Time

	sinks    []CueSink
	events   EventSink
	onUpdate func([]models.Alert)

	tickMu sync.Mutex

	mu         sync.Mutex
	conditions map[string]struct{}
	feed       []models.Alert
	lastTick   time.Time
	running    bool
	cancel     context.CancelFunc
	done       chan struct{}
}

type Option func(*Monitor)

func WithCueSinks(sinks ...CueSink) Option {
	return func(m *Monitor) { m.sinks = append(m.sinks, sinks...) }
}

func WithEventSink(sink EventSink) Option {
	return func(m *Monitor) { m.events = sink }
}

// WithFeedListener is called with the current feed after every tick and every
// change made through the monitor
func WithFeedListener(fn func([]models.Alert)) Option {
	return func(m *Monitor) { m.onUpdate = fn }
}

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

func NewMonitor(cfg Config, st *store.Store, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:        cfg,
		store:      st,
		now:        time.Now,
		conditions: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Monitor) Config() Config {
	return m.cfg
}

// Start begins periodic evaluation. Returns false if already running.
func (m *Monitor) Start(ctx context.Context) bool {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return false
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go m.run(runCtx, done)

	metrics.RecordMonitoring(true)
	log.Printf("🛡️  Safety monitoring started (every %s)", m.cfg.Interval)
	return true
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Tick(ctx); err != nil && ctx.Err() == nil {
				log.Printf("❌ Safety check failed: %v", err)
			}
		}
	}
}

// Stop halts periodic evaluation and forgets every tracked condition, so a
// later Start re-alerts conditions that still hold. The feed is kept with
// its open records marked resolved, since nothing tracks them any more.
func (m *Monitor) Stop() bool {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return false
	}
	cancel, done := m.cancel, m.done
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	<-done

	m.mu.Lock()
	m.conditions = make(map[string]struct{})
	for i := range m.feed {
		m.feed[i].Resolved = true
	}
	m.mu.Unlock()

	m.notify()
	metrics.RecordMonitoring(false)
	log.Println("🛑 Safety monitoring stopped")
	return true
}

func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Tick runs one evaluation against the stored positions
func (m *Monitor) Tick(ctx context.Context) (TickResult, error) {
	m.tickMu.Lock()
	defer m.tickMu.Unlock()

	started := time.Now()

	operators, err := m.store.Operators(ctx)
	if err != nil {
		return TickResult{}, fmt.Errorf("failed to load operators: %w", err)
	}
	machines, err := m.store.Machines(ctx)
	if err != nil {
		return TickResult{}, fmt.Errorf("failed to load machines: %w", err)
	}

	result := m.apply(Evaluate(m.cfg, operators, machines))

	metrics.RecordSafetyTick(time.Since(started), result.Active)
	for _, a := range result.Raised {
		metrics.RecordAlertRaised(string(a.Type), string(a.Severity))
		log.Printf("⚠️  [%s] %s", a.Severity, a.Message)
	}

	if best, ok := SelectCue(result.Raised); ok {
		cue := CueFor(best)
		result.Cue = &cue
		m.deliverCue(ctx, cue)
	}

	var events []Event
	for _, a := range result.Raised {
		events = append(events, m.event(EventRaised, a, nil))
	}
	for _, a := range result.Resolved {
		events = append(events, m.event(EventResolved, a, nil))
	}
	m.publish(ctx, events...)

	m.notify()
	return result, nil
}

// apply diffs the detected conditions against the tracked set and updates the feed
func (m *Monitor) apply(detected []models.Alert) TickResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	ts := now.UTC().Format(time.RFC3339)
	m.lastTick = now

	current := make(map[string]struct{}, len(detected))
	var raised []models.Alert

	for _, alert := range detected {
		if _, dup := current[alert.ConditionKey]; dup {
			continue
		}
		current[alert.ConditionKey] = struct{}{}
		alert.Timestamp = ts

		if _, active := m.conditions[alert.ConditionKey]; active {
			if idx := m.openRecord(alert.ConditionKey); idx >= 0 {
				alert.ID = m.feed[idx].ID
				m.feed[idx] = alert
			}
			continue
		}

		// Older open records for this key are superseded by the new one
		for i := range m.feed {
			if m.feed[i].ConditionKey == alert.ConditionKey {
				m.feed[i].Resolved = true
			}
		}

		alert.ID = uuid.New().String()
		m.conditions[alert.ConditionKey] = struct{}{}
		raised = append(raised, alert)
	}

	var resolved []models.Alert
	for key := range m.conditions {
		if _, ok := current[key]; ok {
			continue
		}
		delete(m.conditions, key)
		if idx := m.openRecord(key); idx >= 0 {
			m.feed[idx].Resolved = true
			resolved = append(resolved, m.feed[idx])
		}
	}

	if len(raised) > 0 {
		feed := make([]models.Alert, 0, len(raised)+len(m.feed))
		feed = append(feed, raised...)
		feed = append(feed, m.feed...)
		m.feed = feed
	}
	if len(m.feed) > m.cfg.FeedSize {
		m.feed = m.feed[:m.cfg.FeedSize]
	}

	return TickResult{Raised: raised, Resolved: resolved, Active: len(m.conditions)}
}

// openRecord finds the unresolved feed record for a key. Caller holds mu.
func (m *Monitor) openRecord(key string) int {
	for i := range m.feed {
		if m.feed[i].ConditionKey == key && !m.feed[i].Resolved {
			return i
		}
	}
	return -1
}

// Alerts returns a copy of the feed, most recent first
func (m *Monitor) Alerts() []models.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Alert, len(m.feed))
	copy(out, m.feed)
	return out
}

func (m *Monitor) Alert(id string) (models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.feed {
		if a.ID == id {
			return a, nil
		}
	}
	return models.Alert{}, fmt.Errorf("%s: %w", id, ErrAlertNotFound)
}

// Dismiss removes an alert from the feed and clears its condition key, so
// the condition raises a fresh alert on the next tick if it still holds.
func (m *Monitor) Dismiss(ctx context.Context, id string) (models.Alert, error) {
	alert, err := m.remove(id)
	if err != nil {
		return models.Alert{}, err
	}

	log.Printf("🧹 Alert dismissed: %s", alert.Message)
	m.publish(ctx, m.event(EventDismissed, alert, nil))
	m.notify()
	return alert, nil
}

func (m *Monitor) remove(id string) (models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, a := range m.feed {
		if a.ID != id {
			continue
		}
		m.feed = append(m.feed[:i:i], m.feed[i+1:]...)
		if !a.Resolved {
			delete(m.conditions, a.ConditionKey)
		}
		return a, nil
	}
	return models.Alert{}, fmt.Errorf("%s: %w", id, ErrAlertNotFound)
}

// ClearAll empties the feed and forgets every condition
func (m *Monitor) ClearAll() int {
	m.mu.Lock()
	n := len(m.feed)
	m.feed = nil
	m.conditions = make(map[string]struct{})
	m.mu.Unlock()

	m.notify()
	return n
}

func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		Monitoring:       m.running,
		ActiveConditions: len(m.conditions),
		Alerts:           len(m.feed),
		IntervalSeconds:  m.cfg.Interval.Seconds(),
	}
	if !m.lastTick.IsZero() {
		st.LastTick = m.lastTick.UTC().Format(time.RFC3339)
	}
	return st
}

func (m *Monitor) deliverCue(ctx context.Context, cue Cue) {
	for _, sink := range m.sinks {
		err := sink.DeliverCue(ctx, cue)
		metrics.RecordCueDelivery(sink.Name(), err)
		if err != nil {
			log.Printf("⚠️  Cue delivery via %s failed: %v", sink.Name(), err)
		}
	}
}

func (m *Monitor) publish(ctx context.Context, events ...Event) {
	if m.events == nil || len(events) == 0 {
		return
	}
	if err := m.events.PublishEvents(ctx, events); err != nil {
		log.Printf("⚠️  Failed to publish %d alert events: %v", len(events), err)
	}
}

func (m *Monitor) notify() {
	if m.onUpdate == nil {
		return
	}
	m.onUpdate(m.Alerts())
}

func (m *Monitor) event(kind EventKind, alert models.Alert, resp *EmergencyResponse) Event {
	return Event{
		Kind:      kind,
		Alert:     alert,
		Response:  resp,
		Timestamp: m.now().UTC().Format(time.RFC3339),
	}
}
