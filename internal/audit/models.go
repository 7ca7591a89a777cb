// Package audit captures security-relevant gateway actions. Events are
// transport-agnostic so stores and sinks can fan out.
package audit

import (
	"context"
	"time"

	"github.com/mssola/useragent"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategorySecurity covers events relevant to security monitoring and
	// forensics: login outcomes, refresh failures, logout.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility; these can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Action names for gateway audit events.
const (
	ActionLoginStarted   = "login_started"
	ActionLoginCompleted = "login_completed"
	ActionLoginFailed    = "login_failed"
	ActionTokenRefreshed = "token_refreshed"
	ActionRefreshFailed  = "refresh_failed"
	ActionLogout         = "logout"
)

// Event is emitted from handlers to capture key actions.
type Event struct {
	ID        string        `json:"id"`
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	// Subject is the IdP subject when known; empty during login where the
	// gateway has not yet seen a verified identity.
	Subject   string `json:"subject,omitempty"`
	Action    string `json:"action"`
	Provider  string `json:"provider,omitempty"`
	Reason    string `json:"reason,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	// Device is a human-readable rendering of the User-Agent.
	Device    string `json:"device,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// DeviceDisplay renders a raw User-Agent into a short display string for
// audit review, e.g. "Chrome 126 on Linux".
func DeviceDisplay(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	if name == "" {
		return ""
	}
	display := name
	if version != "" {
		display += " " + majorVersion(version)
	}
	if os := ua.OS(); os != "" {
		display += " on " + os
	}
	return display
}

func majorVersion(version string) string {
	for i := 0; i < len(version); i++ {
		if version[i] == '.' {
			return version[:i]
		}
	}
	return version
}
