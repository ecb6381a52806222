package entity

import "time"

// Team groups members that can be referenced collectively as stage assignees.
type Team struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Members []TeamMember `json:"members"`
}

// TeamMember is one user inside a team, with the flags the assignee
// resolver cares about.
type TeamMember struct {
	UserID            string     `json:"user_id"`
	Role              string     `json:"role"`
	CanApproveContent bool       `json:"can_approve_content"`
	Availability      string     `json:"availability"`
	UnavailableUntil  *time.Time `json:"unavailable_until,omitempty"`
}

// IsAvailable reports whether the member can be assigned work right now.
// A member marked unavailable becomes available again once UnavailableUntil
// has passed (or was never set).
func (m TeamMember) IsAvailable(now time.Time) bool {
	if m.Availability == AvailabilityAvailable || m.Availability == "" {
		return true
	}
	return m.UnavailableUntil != nil && !m.UnavailableUntil.After(now)
}
