package api

import (
	"sync"
	"time"
)

// AlertType identifies the kind of anomaly detected.
type AlertType string

const (
	AlertLoginFailureSpike AlertType = "login_failure_spike"
	AlertForcedLockSpike   AlertType = "forced_lock_spike"
)

// AlertEvent describes an anomaly that triggered an alert.
type AlertEvent struct {
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Threshold int       `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFunc is the callback invoked when an anomaly is detected.
type AlertFunc func(AlertEvent)

// metricsCollector tracks sliding window counters for anomaly detection. A
// burst of failed logins suggests credential stuffing; a burst of forced
// locks or logouts suggests a client-side heartbeat outage.
type metricsCollector struct {
	mu sync.Mutex

	loginFailures  []time.Time
	loginWindow    time.Duration
	loginThreshold int

	forcedActions   []time.Time
	forcedWindow    time.Duration
	forcedThreshold int

	alertFn AlertFunc
}

const (
	defaultLoginFailureWindow    = 1 * time.Minute
	defaultLoginFailureThreshold = 50
	defaultForcedActionWindow    = 5 * time.Minute
	defaultForcedActionThreshold = 25
)

func newMetricsCollector(alertFn AlertFunc) *metricsCollector {
	return &metricsCollector{
		loginWindow:     defaultLoginFailureWindow,
		loginThreshold:  defaultLoginFailureThreshold,
		forcedWindow:    defaultForcedActionWindow,
		forcedThreshold: defaultForcedActionThreshold,
		alertFn:         alertFn,
	}
}

// recordEvent inspects an audit event and updates the relevant counters.
func (m *metricsCollector) recordEvent(event AuditEvent) {
	if m == nil || m.alertFn == nil {
		return
	}
	switch event {
	case AuditLoginFailure, AuditUnlockFailure:
		m.recordLoginFailure()
	case AuditSessionLocked, AuditForcedLogout:
		m.recordForcedAction()
	}
}

func (m *metricsCollector) recordLoginFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.loginFailures = append(m.loginFailures, now)
	m.loginFailures = trimWindow(m.loginFailures, now, m.loginWindow)

	if len(m.loginFailures) >= m.loginThreshold {
		m.alertFn(AlertEvent{
			Type:      AlertLoginFailureSpike,
			Message:   "authentication failure rate exceeds threshold",
			Count:     len(m.loginFailures),
			Threshold: m.loginThreshold,
			Timestamp: now,
		})
		// Reset to avoid repeated alerts within the same spike.
		m.loginFailures = m.loginFailures[:0]
	}
}

func (m *metricsCollector) recordForcedAction() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.forcedActions = append(m.forcedActions, now)
	m.forcedActions = trimWindow(m.forcedActions, now, m.forcedWindow)

	if len(m.forcedActions) >= m.forcedThreshold {
		m.alertFn(AlertEvent{
			Type:      AlertForcedLockSpike,
			Message:   "forced lock/logout rate exceeds threshold",
			Count:     len(m.forcedActions),
			Threshold: m.forcedThreshold,
			Timestamp: now,
		})
		m.forcedActions = m.forcedActions[:0]
	}
}

// trimWindow removes entries older than (now - window) from the sorted slice.
func trimWindow(times []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	start := 0
	for start < len(times) && times[start].Before(cutoff) {
		start++
	}
	return times[start:]
}
