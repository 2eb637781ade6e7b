package anomaly

import (
	"regexp"

	"github.com/septivank/activity-anomaly-worker/internal/record"
)

// UnknownActor is the bucket for records whose message names no actor
const UnknownActor = "UNKNOWN"

var (
	userPhrasePattern = regexp.MustCompile(`User\s+([A-Za-z0-9_@.-]+)`)
	userFieldPattern  = regexp.MustCompile(`(?i)user[:=]\s*([A-Za-z0-9_@.-]+)`)
)

// ExtractActor recovers the actor id from a message, trying "User <id>"
// before "user=<id>" / "user:<id>". It returns UnknownActor when neither
// matches.
func ExtractActor(message string) string {
	if m := userPhrasePattern.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	if m := userFieldPattern.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	return UnknownActor
}

type sessionState int

const (
	loggedOut sessionState = iota
	loggedIn
)

// DetectOrderViolations tracks a logged-in flag per actor and reports every
// LOGOUT that arrives while the actor is logged out.
func DetectOrderViolations(records []record.Record) []OrderViolationAnomaly {
	var violations []OrderViolationAnomaly
	sessions := make(map[string]sessionState)

	for _, rec := range records {
		switch rec.Activity {
		case record.ActivityLoginSuccess:
			sessions[ExtractActor(rec.Message)] = loggedIn
		case record.ActivityLogout:
			actor := ExtractActor(rec.Message)
			if sessions[actor] == loggedOut {
				violations = append(violations, newOrderViolation(rec.Activity, actor, rec.Timestamp))
				continue
			}
			sessions[actor] = loggedOut
		}
	}

	return violations
}
