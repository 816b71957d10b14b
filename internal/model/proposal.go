package model

import "time"

// HoldTTL is how long a proposed booking suppresses its rooms from other
// sessions.  Holds are never renewed; a client re-creates them to extend.
const HoldTTL = 15 * time.Minute

// ProposedBooking is a temporary, advisory hold placed by an interactive
// session while a booking form is filled in.  It hides the rooms from
// other sessions' availability until ExpiresAt but guarantees nothing:
// confirmation always re-runs the conflict check.
//
// Fields:
//  ID         – opaque proposal identifier (UUID).
//  SessionID  – client session that owns the hold.
//  Range      – held nights.
//  RoomIDs    – held rooms.
//  Guests     – guest composition entered so far.
//  TotalCents – informational quote (nil if not computed).
//  CreatedAt  – creation timestamp.
//  ExpiresAt  – CreatedAt + HoldTTL.
type ProposedBooking struct {
	ID         string           // proposed_bookings.id
	SessionID  string           // proposed_bookings.session_id
	Range      DateRange        // proposed_bookings.start_date / end_date
	RoomIDs    []string         // proposed_booking_rooms.room_id
	Guests     GuestComposition // proposed_bookings guest columns
	TotalCents *int64           // proposed_bookings.total_cents (nullable)
	CreatedAt  time.Time        // proposed_bookings.created_at
	ExpiresAt  time.Time        // proposed_bookings.expires_at
}

// Active reports whether the hold is still in force at now.
func (p ProposedBooking) Active(now time.Time) bool { return now.Before(p.ExpiresAt) }

// Covers reports whether the hold includes roomID.
func (p ProposedBooking) Covers(roomID string) bool {
	for _, id := range p.RoomIDs {
		if id == roomID {
			return true
		}
	}
	return false
}
