// Package monitor runs the fetch, validate, freshness and status pipeline for
// one channel and owns every piece of state the pipeline touches.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"feedwatch/internal/activity"
	"feedwatch/internal/clock"
	"feedwatch/internal/config"
	"feedwatch/internal/events"
	"feedwatch/internal/freshness"
	"feedwatch/internal/logging"
	"feedwatch/internal/status"
	"feedwatch/internal/types"
	"feedwatch/internal/validate"
)

// ErrCycleInProgress is returned when a cycle is requested while another one
// is still running.
var ErrCycleInProgress = errors.New("fetch cycle already in progress")

// Feed is the upstream channel.
type Feed interface {
	Latest(ctx context.Context) (json.RawMessage, error)
	History(ctx context.Context, results int) ([]types.Reading, error)
}

// Cache persists the last accepted reading.
type Cache interface {
	Save(ctx context.Context, r types.Reading) error
	Load(ctx context.Context) (types.Reading, bool, error)
}

type Deps struct {
	Config  config.FeedConfig
	Sensors []types.SensorConfig
	Feed    Feed

	// Optional.
	Cache    Cache
	Stats    *activity.Stats
	Observer events.Observer
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Monitor is the controller. Its methods are safe for concurrent use; at
// most one fetch cycle runs at a time.
type Monitor struct {
	cfg      config.FeedConfig
	sensors  []types.SensorConfig
	feed     Feed
	cache    Cache
	observer events.Observer
	clock    clock.Clock
	logger   *slog.Logger

	activity  *activity.Log
	stats     *activity.Stats
	quality   *activity.Quality
	device    *activity.DeviceHealth
	machine   *status.Machine
	tracker   *freshness.Tracker
	validator *validate.Validator

	cycleMu sync.Mutex

	mu              sync.RWMutex
	latest          *types.Reading
	lastUpdate      time.Time
	dataPointsToday int
}

func New(d Deps) (*Monitor, error) {
	if d.Feed == nil {
		return nil, errors.New("monitor: feed is required")
	}
	if d.Config.UpdateInterval <= 0 {
		return nil, errors.New("monitor: update interval must be positive")
	}
	if d.Config.WatchdogInterval <= 0 {
		return nil, errors.New("monitor: watchdog interval must be positive")
	}
	sensors := d.Sensors
	if len(sensors) == 0 {
		sensors = types.DefaultSensors()
	}

	m := &Monitor{
		cfg:      d.Config,
		sensors:  sensors,
		feed:     d.Feed,
		cache:    d.Cache,
		observer: events.OrNop(d.Observer),
		clock:    clock.OrReal(d.Clock),
		logger:   logging.OrDefault(d.Logger).With("component", "monitor"),
		stats:    d.Stats,
	}
	if m.stats == nil {
		m.stats = activity.NewStats()
	}

	keys := make([]string, len(sensors))
	for i, s := range sensors {
		keys[i] = s.Key
	}
	m.activity = activity.NewLog(m.clock, m.observer)
	m.quality = activity.NewQuality(keys...)
	m.device = activity.NewDeviceHealth()
	m.machine = status.New(m.activity, m.observer, m.logger)
	m.tracker = freshness.NewTracker(d.Config.UpdateInterval)
	m.validator = validate.NewValidator(validate.DefaultHistoryCap)
	return m, nil
}

// Preload restores the cached reading, if any, and marks it stale until the
// first cycle confirms it.
func (m *Monitor) Preload(ctx context.Context) error {
	if m.cache == nil {
		return nil
	}
	r, ok, err := m.cache.Load(ctx)
	if err != nil {
		return fmt.Errorf("preload: %w", err)
	}
	if !ok {
		return nil
	}

	m.mu.Lock()
	m.latest = &r
	if t, err := r.Time(); err == nil {
		m.lastUpdate = t
	}
	m.mu.Unlock()

	m.observer.OnReadingAccepted(r)
	if err := m.machine.Set(types.StateStale, "cached reading"); err != nil {
		m.logger.Warn("preload status", "error", err)
	}
	m.activity.Add("Loaded last reading from cache", types.ActivityInfo)
	return nil
}

// RunCycle fetches the latest reading and runs it through validation,
// freshness and status. A failure is reported through status and activity
// and also returned; stale or frozen data is not an error. If ctx ends
// during the fetch the state before the cycle is restored.
func (m *Monitor) RunCycle(ctx context.Context) error {
	if !m.cycleMu.TryLock() {
		return ErrCycleInProgress
	}
	defer m.cycleMu.Unlock()

	prev := m.machine.State()
	if err := m.machine.Set(types.StateConnecting, "cycle start"); err != nil {
		m.logger.Warn("cycle start", "error", err)
	}

	raw, err := m.feed.Latest(ctx)
	if err != nil {
		if ctx.Err() != nil {
			if serr := m.machine.Set(prev, "cycle cancelled"); serr != nil {
				m.logger.Warn("cycle cancelled", "error", serr)
			}
			return ctx.Err()
		}
		m.machine.ApplyCycle(status.Outcome{FetchErr: err})
		return err
	}

	r, err := validate.ValidatePayload(raw)
	if err != nil {
		m.stats.PayloadRejected()
		m.machine.ApplyCycle(status.Outcome{ValidationErr: err})
		return err
	}

	now := m.clock.Now()
	verdict := m.tracker.Observe(r, now)
	m.logger.Debug("freshness verdict",
		"kind", verdict.Kind,
		"age", verdict.Age,
		"frozen_for", verdict.FrozenFor,
		"created_at", r.CreatedAt,
	)
	if verdict.Kind != freshness.Fresh {
		m.machine.ApplyCycle(status.Outcome{Verdict: verdict})
		return nil
	}

	m.accept(ctx, r)
	m.machine.ApplyCycle(status.Outcome{Verdict: verdict})
	return nil
}

// accept records a fresh reading everywhere it is needed.
func (m *Monitor) accept(ctx context.Context, r types.Reading) {
	for _, s := range m.sensors {
		raw, _ := r.Field(s.Field)
		res := m.validator.CheckSensor(s.Key, raw)
		m.quality.Record(s.Key, res.Valid, res.Outlier)

		switch {
		case !res.Valid:
			m.logger.Debug("invalid sensor value", "sensor", s.Key, "field", s.Field)
			continue
		case res.Outlier:
			m.logger.Warn("outlier detected", "sensor", s.Key, "value", res.Value)
		}

		if res.Value < s.Min {
			m.activity.Add(fmt.Sprintf("⚠️ %s below minimum threshold", s.Name), types.ActivityWarning)
		} else if res.Value > s.Max {
			m.activity.Add(fmt.Sprintf("⚠️ %s above maximum threshold", s.Name), types.ActivityWarning)
		}
	}

	created, _ := r.Time()
	m.device.RecordREST(m.clock.Now(), created)
	m.mu.Lock()
	m.latest = &r
	m.lastUpdate = created
	m.dataPointsToday++
	m.mu.Unlock()

	if m.cache != nil {
		if err := m.cache.Save(ctx, r); err != nil {
			m.logger.Warn("cache save failed", "error", err)
		}
	}

	m.observer.OnReadingAccepted(r)
	m.activity.Add(updateText(r), types.ActivityInfo)
}

func updateText(r types.Reading) string {
	return fmt.Sprintf("Data updated: T=%s°C, H=%s%%", formatField(r.Fields[0]), formatField(r.Fields[1]))
}

func formatField(v *float64) string {
	if v == nil {
		return "--"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Refresh is a user-requested cycle. Callers that must not abort it, such as
// HTTP handlers, should pass a context detached from their own cancellation.
func (m *Monitor) Refresh(ctx context.Context) error {
	err := m.RunCycle(ctx)
	if errors.Is(err, ErrCycleInProgress) || ctx.Err() != nil {
		return err
	}
	m.activity.Add("Manual refresh completed", types.ActivityInfo)
	return err
}

// RefreshDataPointsToday recounts today's entries from the channel history.
// Entries are matched on the UTC date prefix of created_at.
func (m *Monitor) RefreshDataPointsToday(ctx context.Context) (int, error) {
	feeds, err := m.feed.History(ctx, m.cfg.HistoryResults)
	if err != nil {
		return 0, fmt.Errorf("history: %w", err)
	}
	today := m.clock.Now().UTC().Format(time.DateOnly)
	n := 0
	for _, f := range feeds {
		if strings.HasPrefix(f.CreatedAt, today) {
			n++
		}
	}

	m.mu.Lock()
	m.dataPointsToday = n
	m.mu.Unlock()
	return n, nil
}

// Watchdog applies the soft staleness check once.
func (m *Monitor) Watchdog() bool {
	m.mu.RLock()
	last := m.lastUpdate
	m.mu.RUnlock()
	return m.machine.Watchdog(m.clock.Now(), last, m.cfg.StaleThreshold)
}

// HandleRealtime records a reading from the real-time feed. It feeds quality
// data and activity only; status and the cached reading follow polling.
func (m *Monitor) HandleRealtime(r types.Reading) {
	for _, s := range m.sensors {
		raw, _ := r.Field(s.Field)
		if raw == nil {
			continue
		}
		res := m.validator.CheckSensor(s.Key, raw)
		m.quality.Record(s.Key, res.Valid, res.Outlier)
	}
	m.device.RecordMQTTData(m.clock.Now())
	m.activity.Add("Real-time update via MQTT", types.ActivityInfo)
}

// RealtimeMessage counts a message on the real-time topic, usable or not.
func (m *Monitor) RealtimeMessage() { m.device.RecordMQTTMessage() }

func (m *Monitor) RealtimeConnected() {
	m.device.RecordMQTTConnected(m.clock.Now())
	m.activity.Add("Real-time MQTT connected", types.ActivityInfo)
}

func (m *Monitor) RealtimeLost(err error) {
	m.device.RecordMQTTDisconnected()
	m.activity.Add("MQTT connection error: "+err.Error(), types.ActivityError)
}

// Run preloads, runs an initial cycle and then drives polling, the watchdog
// and the history recount until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.Preload(ctx); err != nil {
		m.logger.Warn("preload failed", "error", err)
	}

	m.cycle(ctx)
	m.recount(ctx)
	m.Watchdog()

	var wg sync.WaitGroup
	loop := func(every time.Duration, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			t := time.NewTicker(every)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					fn(ctx)
				}
			}
		}()
	}

	loop(m.cfg.UpdateInterval, m.cycle)
	loop(m.cfg.WatchdogInterval, func(context.Context) { m.Watchdog() })
	loop(m.cfg.UpdateInterval, m.recount)

	<-ctx.Done()
	wg.Wait()
	return nil
}

func (m *Monitor) cycle(ctx context.Context) {
	err := m.RunCycle(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrCycleInProgress):
		m.logger.Debug("skipping scheduled cycle", "reason", err)
	case ctx.Err() != nil:
	default:
		m.logger.Warn("fetch cycle failed", "error", err)
	}
}

func (m *Monitor) recount(ctx context.Context) {
	n, err := m.RefreshDataPointsToday(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Warn("data points recount failed", "error", err)
		}
		return
	}
	m.logger.Debug("data points today", "count", n)
}

// State is the current connection state.
func (m *Monitor) State() types.ConnectionState { return m.machine.State() }

// Latest returns the most recently accepted reading.
func (m *Monitor) Latest() (types.Reading, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latest == nil {
		return types.Reading{}, false
	}
	return *m.latest, true
}

func (m *Monitor) Activity() []types.ActivityEntry { return m.activity.Entries() }

func (m *Monitor) Stats() activity.StatsSnapshot { return m.stats.Snapshot() }

func (m *Monitor) Quality() map[string]activity.SensorQuality { return m.quality.Report() }

func (m *Monitor) DeviceHealth() activity.DeviceHealthSnapshot {
	return m.device.Snapshot(m.clock.Now())
}

func (m *Monitor) Sensors() []types.SensorConfig {
	out := make([]types.SensorConfig, len(m.sensors))
	copy(out, m.sensors)
	return out
}
