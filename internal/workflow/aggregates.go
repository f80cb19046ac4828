package workflow

import "time"

// ActivityWindow is how far back an owner's latest update may be while the
// owner still counts as active. The boundary is inclusive.
const ActivityWindow = 30 * 24 * time.Hour

// ItemStatus is the slice of a calendar item the aggregate functions need.
type ItemStatus struct {
	Team      TeamStatus
	Client    ClientStatus
	UpdatedAt time.Time
}

type Counts struct {
	Team   map[TeamStatus]int
	Client map[ClientStatus]int
}

// CountStatuses tallies items per status value on both axes. Every enum value
// is present in the result, zero or not, so callers can render fixed rows.
func CountStatuses(items []ItemStatus) Counts {
	counts := Counts{
		Team:   make(map[TeamStatus]int, len(TeamStatuses)),
		Client: make(map[ClientStatus]int, len(ClientStatuses)),
	}
	for _, status := range TeamStatuses {
		counts.Team[status] = 0
	}
	for _, status := range ClientStatuses {
		counts.Client[status] = 0
	}
	for _, item := range items {
		counts.Team[item.Team]++
		counts.Client[item.Client]++
	}
	return counts
}

// Completed reports whether an item has cleared both axes.
func Completed(team TeamStatus, client ClientStatus) bool {
	return team == TeamReadyPost && client == ClientApproved
}

// CompletionRate returns completed/total for an owner's item set, 0 when the
// set is empty.
func CompletionRate(items []ItemStatus) float64 {
	if len(items) == 0 {
		return 0
	}
	completed := 0
	for _, item := range items {
		if Completed(item.Team, item.Client) {
			completed++
		}
	}
	return float64(completed) / float64(len(items))
}

// LastActivity returns the most recent update across the items. fallback
// (typically the account creation time) is used only when there are none.
func LastActivity(items []ItemStatus, fallback time.Time) time.Time {
	if len(items) == 0 {
		return fallback
	}
	last := items[0].UpdatedAt
	for _, item := range items[1:] {
		if item.UpdatedAt.After(last) {
			last = item.UpdatedAt
		}
	}
	return last
}

// IsActive reports whether lastActivity falls within ActivityWindow of now,
// inclusive at exactly the window boundary.
func IsActive(lastActivity, now time.Time) bool {
	return now.Sub(lastActivity) <= ActivityWindow
}
