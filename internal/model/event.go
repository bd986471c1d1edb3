package model

import "time"

// EventStatus is stored in events.status. CANCELED doubles as the admin
// soft-delete marker.
type EventStatus string

const (
	EventStatusProposed  EventStatus = "PROPOSED"
	EventStatusConfirmed EventStatus = "CONFIRMED"
	EventStatusDone      EventStatus = "DONE"
	EventStatusCanceled  EventStatus = "CANCELED"
)

// Valid reports whether s is a known event status.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusProposed, EventStatusConfirmed, EventStatusDone, EventStatusCanceled:
		return true
	}
	return false
}

// Event mirrors a row of the `events` table. CreatorName and CreatorPhone are
// filled from a left join on users when the creator still exists.
type Event struct {
	ID           uint64      `json:"id"`
	Title        string      `json:"title"`
	Description  *string     `json:"description"`
	StartTime    time.Time   `json:"startTime"`
	EndTime      time.Time   `json:"endTime"`
	Location     *string     `json:"location"`
	CreatorID    *uint64     `json:"creatorId"`
	CreatorName  *string     `json:"creatorName,omitempty"`
	CreatorPhone *string     `json:"creatorPhone,omitempty"`
	Status       EventStatus `json:"status"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Participant mirrors `event_participants` joined with the user's name and
// phone.
type Participant struct {
	ID        uint64    `json:"id"`
	EventID   uint64    `json:"eventId"`
	UserID    uint64    `json:"userId"`
	Status    string    `json:"status"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joinedAt"`
	UserName  *string   `json:"userName"`
	UserPhone *string   `json:"userPhone"`
}

// EventDetail is an event together with its participants.
type EventDetail struct {
	Event
	Participants []*Participant `json:"participants"`
}

// EventFilter narrows an event listing. Zero values mean "no filter".
type EventFilter struct {
	Page      int
	Limit     int
	Search    string // substring over title
	Status    EventStatus
	CreatorID uint64
}
