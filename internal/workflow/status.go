// Package workflow defines the two status axes of a calendar item and the
// aggregates derived from them.
package workflow

import "strings"

type TeamStatus string
type ClientStatus string

const (
	TeamNotStarted  TeamStatus = "not-started"
	TeamInProgress  TeamStatus = "in-progress"
	TeamReadyReview TeamStatus = "ready-review"
	TeamReadyPost   TeamStatus = "ready-post"
)

const (
	ClientNotSubmitted ClientStatus = "not-submitted"
	ClientUnderReview  ClientStatus = "under-review"
	ClientApproved     ClientStatus = "approved"
	ClientNeedsChanges ClientStatus = "needs-changes"
)

// TeamStatuses lists the team axis in workflow order.
var TeamStatuses = []TeamStatus{TeamNotStarted, TeamInProgress, TeamReadyReview, TeamReadyPost}

// ClientStatuses lists the client axis in workflow order.
var ClientStatuses = []ClientStatus{ClientNotSubmitted, ClientUnderReview, ClientApproved, ClientNeedsChanges}

func ValidTeamStatus(value string) bool {
	switch TeamStatus(value) {
	case TeamNotStarted, TeamInProgress, TeamReadyReview, TeamReadyPost:
		return true
	default:
		return false
	}
}

func ValidClientStatus(value string) bool {
	switch ClientStatus(value) {
	case ClientNotSubmitted, ClientUnderReview, ClientApproved, ClientNeedsChanges:
		return true
	default:
		return false
	}
}

// NormalizeTeamStatus canonicalizes a raw status value and coerces anything
// outside the enum to not-started. The second return reports whether the input
// had to be corrected.
func NormalizeTeamStatus(raw string) (TeamStatus, bool) {
	value := canonicalize(raw)
	if ValidTeamStatus(value) {
		return TeamStatus(value), false
	}
	return TeamNotStarted, true
}

// NormalizeClientStatus canonicalizes a raw status value and coerces anything
// outside the enum to not-submitted.
func NormalizeClientStatus(raw string) (ClientStatus, bool) {
	value := canonicalize(raw)
	if ValidClientStatus(value) {
		return ClientStatus(value), false
	}
	return ClientNotSubmitted, true
}

// canonicalize lower-cases and collapses whitespace runs to single hyphens, so
// "Ready Review" and "ready-review" land on the same value.
func canonicalize(raw string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	return strings.Join(fields, "-")
}
