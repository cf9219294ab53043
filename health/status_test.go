package health

import (
	"strings"
	"testing"
)

func TestStatus_States(t *testing.T) {
	tests := []struct {
		name          string
		status        Status
		wantHealthy   bool
		wantUnhealthy bool
	}{
		{"healthy", Healthy("ok"), true, false},
		{"degraded", Degraded("slow"), false, false},
		{"unhealthy", Unhealthy("down"), false, true},
		{"unknown state counts as unhealthy", Status{State: "bogus"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.IsHealthy(); got != tt.wantHealthy {
				t.Errorf("IsHealthy() = %v, want %v", got, tt.wantHealthy)
			}
			if got := tt.status.IsUnhealthy(); got != tt.wantUnhealthy {
				t.Errorf("IsUnhealthy() = %v, want %v", got, tt.wantUnhealthy)
			}
		})
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name      string
		checks    []Status
		wantState State
		wantMsg   string
	}{
		{"no checks", nil, StateHealthy, "all checks passing"},
		{"all healthy", []Status{Healthy("a"), Healthy("b")}, StateHealthy, "all checks passing"},
		{"one degraded", []Status{Healthy("a"), Degraded("b")}, StateDegraded, "1 of 2 checks failing"},
		{"unhealthy wins", []Status{Degraded("a"), Unhealthy("b"), Healthy("c")}, StateUnhealthy, "2 of 3 checks failing"},
		{"unknown is unhealthy", []Status{{State: "bogus"}}, StateUnhealthy, "1 of 1 checks failing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("system", tt.checks)
			if got.State != tt.wantState {
				t.Errorf("State = %q, want %q", got.State, tt.wantState)
			}
			if got.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantMsg)
			}
			if got.Name != "system" {
				t.Errorf("Name = %q, want system", got.Name)
			}
			if len(got.Checks) != len(tt.checks) {
				t.Errorf("len(Checks) = %d, want %d", len(got.Checks), len(tt.checks))
			}
		})
	}
}

func TestAggregate_CopiesChecks(t *testing.T) {
	checks := []Status{Healthy("a")}
	got := Aggregate("system", checks)
	checks[0].Message = "changed"
	if got.Checks[0].Message != "a" {
		t.Error("Aggregate shares the caller's slice")
	}
}

func TestSanitizeMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains []string
		excludes []string
	}{
		{
			name:     "nats url",
			input:    "dial nats://admin:pw@10.0.0.5:4222 failed",
			contains: []string{"[URL]"},
			excludes: []string{"10.0.0.5", "admin"},
		},
		{
			name:     "ip and port",
			input:    "memcached 192.168.1.20:11211 timed out",
			contains: []string{"[IP]"},
			excludes: []string{"192.168.1.20", "11211"},
		},
		{
			name:     "path",
			input:    "open /var/lib/boundcache/x.snapshot: permission denied",
			contains: []string{"open [PATH]"},
			excludes: []string{"/var/lib"},
		},
		{
			name:     "credentials",
			input:    "auth failed token=abc123",
			contains: []string{"[REDACTED]"},
			excludes: []string{"abc123"},
		},
		{
			name:     "plain",
			input:    "3 snapshot writes failed",
			contains: []string{"3 snapshot writes failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeMessage(tt.input)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("sanitizeMessage(%q) = %q, want it to contain %q", tt.input, got, want)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("sanitizeMessage(%q) = %q, leaks %q", tt.input, got, bad)
				}
			}
		})
	}
}
