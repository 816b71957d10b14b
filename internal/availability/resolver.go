// Package availability classifies every (room, day) pair of the lodge as
// available, edge, occupied, proposed or blocked.
//
// Occupancy is tracked per night.  A day D touches two nights, [D-1, D)
// and [D, D+1), so a guest leaving on D and a guest arriving on D never
// compete for the same night.  Confirmed bookings, holds and blockages all
// use half-open ranges.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/lodge-booking/internal/model"
	"github.com/iliyamo/lodge-booking/internal/store"
)

// Resolver answers availability queries against the store.
type Resolver struct {
	store store.Reader
	now   func() time.Time
}

// NewResolver creates a resolver.  now defaults to time.Now.
func NewResolver(r store.Reader, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{store: r, now: now}
}

// Resolve returns the status of roomID on day date.  Holds owned by
// excludingSession are ignored so a session does not trip over its own
// in-progress edits; pass "" to see every hold.
func (r *Resolver) Resolve(ctx context.Context, roomID string, date time.Time, excludingSession string) (Status, error) {
	day := model.Day(date)
	snap, err := r.Snapshot(ctx, r.store, []string{roomID}, model.DateRange{Start: day, End: day.AddDate(0, 0, 1)}, excludingSession)
	if err != nil {
		return Status{}, err
	}
	return snap.Status(roomID, day), nil
}

// Calendar resolves every room in roomIDs for every day of window.  An
// empty roomIDs means the full inventory.
func (r *Resolver) Calendar(ctx context.Context, roomIDs []string, window model.DateRange, excludingSession string) (Calendar, error) {
	window = window.Normalize()
	if err := window.Validate(); err != nil {
		return Calendar{}, err
	}
	rooms, err := r.store.ListRooms(ctx)
	if err != nil {
		return Calendar{}, model.StorageError("list rooms", err)
	}
	if len(roomIDs) == 0 {
		roomIDs = model.RoomIDs(rooms)
	}
	known := model.IndexRooms(rooms)
	for _, id := range roomIDs {
		if _, ok := known[id]; !ok {
			return Calendar{}, fmt.Errorf("room %s: %w", id, model.ErrRoomNotFound)
		}
	}
	snap, err := r.Snapshot(ctx, r.store, roomIDs, window, excludingSession)
	if err != nil {
		return Calendar{}, err
	}
	cal := Calendar{Window: window, Rooms: make([]RoomCalendar, 0, len(roomIDs))}
	for _, id := range roomIDs {
		rc := RoomCalendar{RoomID: id}
		for _, d := range window.Days() {
			rc.Days = append(rc.Days, snap.Status(id, d))
		}
		cal.Rooms = append(cal.Rooms, rc)
	}
	return cal, nil
}

// Snapshot loads everything needed to resolve the days of window for the
// given rooms with a single pass over the store.  rd may be a transaction;
// the hold manager uses that to check and insert atomically.
func (r *Resolver) Snapshot(ctx context.Context, rd store.Reader, roomIDs []string, window model.DateRange, excludingSession string) (*Snapshot, error) {
	window = window.Normalize()
	// The first day's night-before starts one day earlier.
	nights := model.DateRange{Start: window.Start.AddDate(0, 0, -1), End: window.End}
	now := r.now()

	assignments, err := rd.ListAssignments(ctx, roomIDs, nights)
	if err != nil {
		return nil, model.StorageError("list assignments", err)
	}
	blockages, err := rd.ListBlockages(ctx)
	if err != nil {
		return nil, model.StorageError("list blockages", err)
	}
	proposals, err := rd.ListActiveProposalsByDateRange(ctx, nights, now)
	if err != nil {
		return nil, model.StorageError("list proposals", err)
	}

	snap := &Snapshot{assignments: assignments}
	for _, b := range blockages {
		if b.Range.Overlaps(window) {
			snap.blockages = append(snap.blockages, b)
		}
	}
	for _, p := range proposals {
		// Lazy expiry: the store filters by now as well, but a row read
		// inside a long transaction may have expired since.
		if !p.Active(now) || (excludingSession != "" && p.SessionID == excludingSession) {
			continue
		}
		snap.proposals = append(snap.proposals, p)
	}
	return snap, nil
}

// Snapshot is a point-in-time view of bookings, blockages and active holds.
type Snapshot struct {
	assignments []model.RoomAssignment
	blockages   []model.BlockageInstance
	proposals   []model.ProposedBooking
}

// Status resolves roomID on day d.  Days outside the loaded window resolve
// as if nothing was booked.
func (s *Snapshot) Status(roomID string, d time.Time) Status {
	d = model.Day(d)
	st := Status{RoomID: roomID, Date: d, Before: Free, After: Free}

	for _, b := range s.blockages {
		if b.Blocks(roomID, d) {
			st.Kind = KindBlocked
			st.BlockageID = b.ID
			return st
		}
	}

	st.Before = s.night(roomID, d.AddDate(0, 0, -1), &st)
	st.After = s.night(roomID, d, &st)
	st.Kind, st.Mixed = classify(st.Before, st.After)
	return st
}

// night returns the occupancy of the night starting on n and records the
// parties occupying it on st.  A confirmed booking wins over a hold.
func (s *Snapshot) night(roomID string, n time.Time, st *Status) Occupancy {
	occ := Free
	for _, a := range s.assignments {
		if a.RoomID == roomID && a.Range.ContainsNight(n) {
			occ = Confirmed
			st.BookingIDs = appendUnique(st.BookingIDs, a.BookingID)
		}
	}
	if occ == Confirmed {
		return occ
	}
	for _, p := range s.proposals {
		if p.Covers(roomID) && p.Range.ContainsNight(n) {
			occ = Proposed
			st.ProposalIDs = appendUniqueString(st.ProposalIDs, p.ID)
		}
	}
	return occ
}

// Calendar is a grid of statuses, one row per room.
type Calendar struct {
	Window model.DateRange `json:"window"`
	Rooms  []RoomCalendar  `json:"rooms"`
}

// RoomCalendar is one room's row of a calendar.
type RoomCalendar struct {
	RoomID string   `json:"room_id"`
	Days   []Status `json:"days"`
}

// Status looks up a single cell.
func (c Calendar) Status(roomID string, d time.Time) (Status, error) {
	d = model.Day(d)
	for _, rc := range c.Rooms {
		if rc.RoomID != roomID {
			continue
		}
		for _, st := range rc.Days {
			if st.Date.Equal(d) {
				return st, nil
			}
		}
	}
	return Status{}, fmt.Errorf("room %s on %s is outside the calendar", roomID, d.Format(model.DateLayout))
}

func appendUnique(ids []uint64, id uint64) []uint64 {
	for _, x := range ids {
		if x == id {
			return ids
		}
	}
	return append(ids, id)
}

func appendUniqueString(ids []string, id string) []string {
	for _, x := range ids {
		if x == id {
			return ids
		}
	}
	return append(ids, id)
}
