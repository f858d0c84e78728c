package watchdog

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/obsidianstack/contexthub/internal/config"
	"github.com/obsidianstack/contexthub/internal/store"
)

const (
	defaultCooldown   = 15 * time.Minute
	maxHistoryLen     = 200
	recentWindowHours = 1
)

// Alert represents a single alert event produced by the rule engine.
type Alert struct {
	ID         string     `json:"id"`
	RuleName   string     `json:"rule_name"`
	Severity   string     `json:"severity"`
	Message    string     `json:"message"`
	Value      float64    `json:"value"`
	FiredAt    time.Time  `json:"fired_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	State      string     `json:"state"` // "firing" | "resolved"
}

// Engine evaluates watchdog rules against context store statistics and
// delivers webhook notifications when rules fire or resolve.
//
// Engine is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	rules    []config.WatchRule
	webhooks []config.WebhookConfig
	interval time.Duration

	active   map[string]*Alert    // key: rule name
	lastFire map[string]time.Time // last fire time per rule (for cooldown)
	history  []*Alert             // recently resolved alerts

	// Previous evaluation state, used to derive per-second rates from the
	// store's monotonic counters.
	prevStats store.Stats
	prevTime  time.Time

	client *http.Client
}

// New creates an Engine from the watchdog configuration.
// An Engine with empty rules is valid — Evaluate becomes a no-op.
func New(cfg config.WatchdogConfig) *Engine {
	return &Engine{
		rules:    cfg.Rules,
		webhooks: cfg.Webhooks,
		interval: cfg.EvaluationInterval,
		active:   make(map[string]*Alert),
		lastFire: make(map[string]time.Time),
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// SetConfig replaces the rule and webhook sets, typically after a config
// reload. Changes take effect on the next evaluation; the evaluation interval
// is fixed at startup.
func (e *Engine) SetConfig(cfg config.WatchdogConfig) {
	e.mu.Lock()
	e.rules = cfg.Rules
	e.webhooks = cfg.Webhooks
	e.mu.Unlock()

	slog.Info("watchdog: rules reloaded", "rules", len(cfg.Rules), "webhooks", len(cfg.Webhooks))
}

// Run evaluates all rules against the store statistics every evaluation
// interval. It blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, st *store.Store) {
	e.mu.Lock()
	interval := e.interval
	ruleCount := len(e.rules)
	e.mu.Unlock()

	if interval <= 0 {
		interval = config.DefaultEvalInterval
	}

	slog.Info("watchdog: evaluating rules", "interval", interval, "rules", ruleCount)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.Evaluate(st.Stats(), now)
		}
	}
}

// Evaluate tests all configured rules against stats as of now.
// Alerts that fire are stored and webhook delivery is triggered asynchronously.
// Alerts that were firing but whose condition is now false are resolved.
func (e *Engine) Evaluate(stats store.Stats, now time.Time) {
	e.mu.Lock()
	rules := e.rules
	fields := e.fields(stats, now)
	e.mu.Unlock()

	for _, rule := range rules {
		key := rule.Name
		fires, value := evalCondition(rule.Condition, fields)

		e.mu.Lock()

		if fires {
			cooldown := rule.Cooldown
			if cooldown <= 0 {
				cooldown = defaultCooldown
			}
			if now.Sub(e.lastFire[key]) > cooldown {
				sev := rule.Severity
				if sev == "" {
					sev = "warning"
				}
				a := &Alert{
					ID:       fmt.Sprintf("%s:%d", rule.Name, now.UnixNano()),
					RuleName: rule.Name,
					Severity: sev,
					Value:    value,
					Message:  fmt.Sprintf("[%s] %s fired: %s (value %.2f)", sev, rule.Name, rule.Condition, value),
					FiredAt:  now,
					State:    "firing",
				}
				e.active[key] = a
				e.lastFire[key] = now
				alertCopy := *a
				e.mu.Unlock()

				slog.Warn("watchdog: rule fired",
					"rule", rule.Name,
					"value", value,
					"severity", sev,
				)
				go e.deliver(&alertCopy)
			} else {
				e.mu.Unlock()
			}
		} else {
			if a, ok := e.active[key]; ok && a.State == "firing" {
				resolved := now
				a.State = "resolved"
				a.ResolvedAt = &resolved
				delete(e.active, key)

				e.history = append(e.history, a)
				if len(e.history) > maxHistoryLen {
					e.history = e.history[len(e.history)-maxHistoryLen:]
				}
				alertCopy := *a
				e.mu.Unlock()

				slog.Info("watchdog: rule resolved", "rule", rule.Name)
				go e.deliver(&alertCopy)
			} else {
				e.mu.Unlock()
			}
		}
	}
}

// fields derives the numeric evaluation fields from stats. The *_rate fields
// are per-second deltas against the previous evaluation; they are zero on the
// first evaluation. Callers must hold e.mu.
func (e *Engine) fields(stats store.Stats, now time.Time) map[string]float64 {
	f := map[string]float64{
		"entries":     float64(stats.Entries),
		"live":        float64(stats.Live),
		"stale":       float64(stats.Stale),
		"stale_pct":   0,
		"open_rate":   0,
		"update_rate": 0,
		"evict_rate":  0,
	}
	if stats.Entries > 0 {
		f["stale_pct"] = float64(stats.Stale) / float64(stats.Entries) * 100
	}
	if !e.prevTime.IsZero() {
		if dt := now.Sub(e.prevTime).Seconds(); dt > 0 {
			f["open_rate"] = float64(stats.Opens-e.prevStats.Opens) / dt
			f["update_rate"] = float64(stats.Updates-e.prevStats.Updates) / dt
			f["evict_rate"] = float64(stats.Evictions-e.prevStats.Evictions) / dt
		}
	}
	e.prevStats, e.prevTime = stats, now
	return f
}

// Active returns copies of all currently firing alerts plus any alerts
// resolved within the past hour, sorted newest first.
func (e *Engine) Active() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := time.Now().Add(-recentWindowHours * time.Hour)
	out := make([]*Alert, 0, len(e.active))

	for _, a := range e.active {
		cp := *a
		out = append(out, &cp)
	}
	for _, a := range e.history {
		if a.ResolvedAt != nil && a.ResolvedAt.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiredAt.After(out[j].FiredAt) })
	return out
}
