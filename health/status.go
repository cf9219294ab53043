package health

import (
	"fmt"
	"regexp"
	"time"
)

// State is the health level of a check.
type State string

// Health states, ordered from best to worst.
const (
	StateHealthy   State = "healthy"
	StateDegraded  State = "degraded"
	StateUnhealthy State = "unhealthy"
)

// rank orders states so the worst one wins when aggregating.
func (s State) rank() int {
	switch s {
	case StateHealthy:
		return 0
	case StateDegraded:
		return 1
	default:
		return 2
	}
}

var (
	urlRegex        = regexp.MustCompile(`(?:https?|nats|wss?)://[^\s]+`)
	ipAddrRegex     = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}(?::\d{2,5})?\b`)
	unixPathRegex   = regexp.MustCompile(`(^|\s)/[a-zA-Z0-9/_.-]+`)
	credentialRegex = regexp.MustCompile(`(?i)(password|token|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

// Status is the result of one check, or of a group of checks.
type Status struct {
	Name      string    `json:"name"`
	State     State     `json:"state"`
	Message   string    `json:"message,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
	Checks    []Status  `json:"checks,omitempty"`
}

// Healthy reports a passing check.
func Healthy(message string) Status {
	return Status{State: StateHealthy, Message: message}
}

// Degraded reports a check that works with reduced guarantees.
func Degraded(message string) Status {
	return Status{State: StateDegraded, Message: sanitizeMessage(message)}
}

// Unhealthy reports a failing check.
func Unhealthy(message string) Status {
	return Status{State: StateUnhealthy, Message: sanitizeMessage(message)}
}

// IsHealthy reports whether the status is healthy.
func (s Status) IsHealthy() bool { return s.State == StateHealthy }

// IsUnhealthy reports whether the status is unhealthy. An unknown state
// counts as unhealthy.
func (s Status) IsUnhealthy() bool { return s.State.rank() == StateUnhealthy.rank() }

// Aggregate combines checks into one status carrying the worst state.
func Aggregate(name string, checks []Status) Status {
	worst := StateHealthy
	failing := 0
	for _, c := range checks {
		if c.State.rank() > worst.rank() {
			worst = c.State
		}
		if !c.IsHealthy() {
			failing++
		}
	}
	if worst.rank() == StateUnhealthy.rank() {
		worst = StateUnhealthy
	}

	message := "all checks passing"
	if failing > 0 {
		message = fmt.Sprintf("%d of %d checks failing", failing, len(checks))
	}

	return Status{
		Name:      name,
		State:     worst,
		Message:   message,
		CheckedAt: time.Now(),
		Checks:    append([]Status(nil), checks...),
	}
}

// sanitizeMessage strips addresses, paths and credentials from messages that
// are served over HTTP.
func sanitizeMessage(msg string) string {
	if msg == "" {
		return ""
	}
	msg = urlRegex.ReplaceAllString(msg, "[URL]")
	msg = ipAddrRegex.ReplaceAllString(msg, "[IP]")
	msg = unixPathRegex.ReplaceAllString(msg, "${1}[PATH]")
	return credentialRegex.ReplaceAllString(msg, "[REDACTED]")
}
