package model

import "time"

// Contact holds the guest's contact details as entered on the booking form.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// RoomAssignment links a booking to one room.  Range is the room's own
// stay; a multi-room booking may check rooms in and out on different days.
//
// Fields:
//  BookingID – owning booking.
//  RoomID    – assigned room.
//  Range     – effective nights for this room.
//  Guests    – who sleeps in the room.
type RoomAssignment struct {
	BookingID uint64           // room_assignments.booking_id
	RoomID    string           // room_assignments.room_id
	Range     DateRange        // room_assignments.start_date / end_date
	Guests    GuestComposition // room_assignments counts or guest_records
}

// Booking is a confirmed reservation.  Bookings are created on
// confirmation and only mutated through the booking service.  The edit
// token itself is never stored, only its SHA-256 digest.
//
// Fields:
//  ID            – primary key.
//  EditTokenHash – hex SHA-256 of the self-service edit token.
//  Contact       – contact details.
//  Range         – overall stay, the envelope of all room ranges.
//  Rooms         – room assignments (never empty).
//  Guests        – named guest records.
//  TotalCents    – price charged, in cents.
//  PriceLocked   – when true TotalCents is never overwritten by recomputation.
//  SessionID     – client session that created the booking, if any.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Booking struct {
	ID            uint64           // bookings.id
	EditTokenHash string           // bookings.edit_token_hash
	Contact       Contact          // bookings.contact_*
	Range         DateRange        // bookings.start_date / end_date
	Rooms         []RoomAssignment // room_assignments
	Guests        []GuestRecord    // guest_records
	TotalCents    int64            // bookings.total_cents
	PriceLocked   bool             // bookings.price_locked
	SessionID     string           // bookings.session_id
	CreatedAt     time.Time        // bookings.created_at
	UpdatedAt     time.Time        // bookings.updated_at
}

// RoomIDs lists the rooms assigned to the booking in assignment order.
func (b *Booking) RoomIDs() []string {
	ids := make([]string, 0, len(b.Rooms))
	for _, a := range b.Rooms {
		ids = append(ids, a.RoomID)
	}
	return ids
}

// Envelope returns the smallest range covering every room assignment.
func Envelope(rooms []RoomAssignment) DateRange {
	var env DateRange
	for i, a := range rooms {
		if i == 0 || a.Range.Start.Before(env.Start) {
			env.Start = a.Range.Start
		}
		if i == 0 || a.Range.End.After(env.End) {
			env.End = a.Range.End
		}
	}
	return env
}

// Clone returns a deep copy of the booking.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	c.Rooms = make([]RoomAssignment, len(b.Rooms))
	for i, a := range b.Rooms {
		c.Rooms[i] = a
		if pg, ok := a.Guests.(PerGuest); ok {
			c.Rooms[i].Guests = PerGuest{Guests: CloneGuests(pg.Guests)}
		}
	}
	c.Guests = CloneGuests(b.Guests)
	return &c
}

// CloneGuests deep-copies guest records including their optional fields.
func CloneGuests(gs []GuestRecord) []GuestRecord {
	if gs == nil {
		return nil
	}
	out := make([]GuestRecord, len(gs))
	for i, g := range gs {
		out[i] = g
		if g.RoomID != nil {
			id := *g.RoomID
			out[i].RoomID = &id
		}
		if g.Class != nil {
			cl := *g.Class
			out[i].Class = &cl
		}
	}
	return out
}
