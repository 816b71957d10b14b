package availability

import "time"

// Kind is the availability of one room on one calendar day.
type Kind string

const (
	// KindAvailable means neither adjacent night is taken.
	KindAvailable Kind = "available"
	// KindEdge means exactly one adjacent night is taken, or one is
	// confirmed and the other only held (see Status.Mixed).  The day can
	// still be chosen as a check-in or check-out day.
	KindEdge Kind = "edge"
	// KindOccupied means both adjacent nights belong to confirmed bookings.
	KindOccupied Kind = "occupied"
	// KindProposed means both adjacent nights are held by other sessions.
	KindProposed Kind = "proposed"
	// KindBlocked means an administrative blockage covers the day.
	KindBlocked Kind = "blocked"
)

// Occupancy describes one night.
type Occupancy string

const (
	Free      Occupancy = "free"
	Confirmed Occupancy = "confirmed"
	Proposed  Occupancy = "proposed"
)

// Status is the resolved state of a (room, day) pair.  Before is the night
// that ends on Date, After the night that starts on it.
type Status struct {
	RoomID      string    `json:"room_id"`
	Date        time.Time `json:"date"`
	Kind        Kind      `json:"kind"`
	Before      Occupancy `json:"before"`
	After       Occupancy `json:"after"`
	Mixed       bool      `json:"mixed,omitempty"`
	BlockageID  uint64    `json:"blockage_id,omitempty"`
	BookingIDs  []uint64  `json:"booking_ids,omitempty"`
	ProposalIDs []string  `json:"proposal_ids,omitempty"`
}

// Selectable reports whether a new stay may start or end on the day.
func (s Status) Selectable() bool {
	return s.Kind == KindAvailable || s.Kind == KindEdge
}

// classify turns the occupancy of the two nights around a day into a kind.
func classify(before, after Occupancy) (Kind, bool) {
	switch {
	case before == Free && after == Free:
		return KindAvailable, false
	case before == Free || after == Free:
		return KindEdge, false
	case before == Confirmed && after == Confirmed:
		return KindOccupied, false
	case before == Proposed && after == Proposed:
		return KindProposed, false
	default:
		return KindEdge, true
	}
}
