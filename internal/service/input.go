package service

import (
	"fmt"
	"sort"

	"github.com/iliyamo/lodge-booking/internal/model"
)

// RoomInput assigns one room.  Range overrides the booking range for this
// room when set, so rooms of one booking may check in and out on
// different days.
type RoomInput struct {
	RoomID string
	Range  *model.DateRange
	Guests model.GuestComposition
}

// BookingInput is what a guest or an administrator submits to create or
// update a booking.
//
// Fields:
//  SessionID  – client session; its holds are released on confirmation.
//  ProposalID – hold being confirmed, optional.
//  Contact    – contact details.
//  Range      – overall stay, used by rooms without their own range.
//  Rooms      – room assignments (at least one).
//  Guests     – named guests not tied to a room.
//  Reprice    – admin only: replace the locked total with a fresh quote.
type BookingInput struct {
	SessionID  string
	ProposalID string
	Contact    model.Contact
	Range      model.DateRange
	Rooms      []RoomInput
	Guests     []model.GuestRecord
	Reprice    bool
}

// Access authorizes a change to an existing booking: either the edit token
// handed out at creation or administrator rights.
type Access struct {
	EditToken string
	Admin     bool
}

// assignments validates in against the room inventory and returns the
// room assignments it describes together with the booking's guest records.
// Guests of per-guest rooms are tagged with their room and appended to the
// booking's records so both stores see every named guest.
func assignments(in BookingInput, inventory []model.Room) ([]model.RoomAssignment, []model.GuestRecord, error) {
	stay := in.Range.Normalize()
	if err := stay.ValidateStay(); err != nil {
		return nil, nil, err
	}
	if len(in.Rooms) == 0 {
		return nil, nil, model.ErrNoRooms
	}

	byID := model.IndexRooms(inventory)
	seen := make(map[string]bool, len(in.Rooms))
	rooms := make([]model.RoomAssignment, 0, len(in.Rooms))
	var roomGuests []model.GuestRecord

	for _, ri := range in.Rooms {
		room, ok := byID[ri.RoomID]
		if !ok {
			return nil, nil, fmt.Errorf("room %s: %w", ri.RoomID, model.ErrRoomNotFound)
		}
		if seen[ri.RoomID] {
			return nil, nil, fmt.Errorf("room %s: %w", ri.RoomID, model.ErrDuplicateRoom)
		}
		seen[ri.RoomID] = true

		r := stay
		if ri.Range != nil {
			r = ri.Range.Normalize()
			if err := r.ValidateStay(); err != nil {
				return nil, nil, fmt.Errorf("room %s: %w", ri.RoomID, err)
			}
		}
		if err := model.ValidateComposition(ri.Guests); err != nil {
			return nil, nil, fmt.Errorf("room %s: %w", ri.RoomID, err)
		}
		if err := model.CheckCapacity(room, ri.Guests); err != nil {
			return nil, nil, err
		}

		g := ri.Guests
		if pg, ok := g.(model.PerGuest); ok {
			records := model.CloneGuests(pg.Guests)
			for i := range records {
				id := ri.RoomID
				records[i].RoomID = &id
			}
			model.SortGuests(records)
			g = model.PerGuest{Guests: records}
			roomGuests = append(roomGuests, model.CloneGuests(records)...)
		}
		rooms = append(rooms, model.RoomAssignment{RoomID: ri.RoomID, Range: r, Guests: g})
	}

	guests, err := bookingGuests(in.Guests, rooms)
	if err != nil {
		return nil, nil, err
	}
	guests = append(guests, roomGuests...)

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].RoomID < rooms[j].RoomID })
	model.SortGuests(guests)
	return rooms, guests, nil
}

// bookingGuests copies the booking-level guest records.  A record may name
// the room it sleeps in when that room is assigned with a head count; the
// guests of a per-guest room belong in that room's own list.
func bookingGuests(in []model.GuestRecord, rooms []model.RoomAssignment) ([]model.GuestRecord, error) {
	counted := make(map[string]bool, len(rooms))
	for _, a := range rooms {
		_, perGuest := a.Guests.(model.PerGuest)
		counted[a.RoomID] = !perGuest
	}
	out := model.CloneGuests(in)
	for _, g := range out {
		if g.RoomID == nil {
			continue
		}
		uniform, assigned := counted[*g.RoomID]
		switch {
		case !assigned:
			return nil, fmt.Errorf("%w: guest %s %s names room %s, which is not booked", model.ErrInvalidGuests, g.FirstName, g.LastName, *g.RoomID)
		case !uniform:
			return nil, fmt.Errorf("%w: guest %s %s belongs in the guest list of room %s", model.ErrInvalidGuests, g.FirstName, g.LastName, *g.RoomID)
		}
	}
	return out, nil
}
