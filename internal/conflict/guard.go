// Package conflict rejects confirmed bookings that would overlap another
// confirmed booking or an administrative blockage.
package conflict

import (
	"context"

	"github.com/iliyamo/lodge-booking/internal/model"
	"github.com/iliyamo/lodge-booking/internal/store"
)

// Overlaps reports whether [a.Start, a.End) and [b.Start, b.End) share a
// night.  A range ending on the day another starts does not overlap it.
func Overlaps(a, b model.DateRange) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Guard checks room ranges against bookings and blockages.  Holds are not
// considered: they never prevent a confirmation.
//
// The guard only reads.  Callers run it inside the same store transaction
// as the write it protects, after locking the rooms, so two concurrent
// confirmations for the same room cannot both pass.
type Guard struct{}

// New returns a guard.
func New() *Guard { return &Guard{} }

// Conflicts reports whether roomID is taken during r by a booking other
// than excludeBookingID or by a blockage.
func (g *Guard) Conflicts(ctx context.Context, rd store.Reader, excludeBookingID uint64, roomID string, r model.DateRange) (bool, error) {
	err := g.Check(ctx, rd, excludeBookingID, roomID, r)
	if model.IsRoomUnavailable(err) != nil {
		return true, nil
	}
	return false, err
}

// Check returns a *model.RoomUnavailableError naming the first conflicting
// party, or nil.  excludeBookingID is zero for new bookings.
func (g *Guard) Check(ctx context.Context, rd store.Reader, excludeBookingID uint64, roomID string, r model.DateRange) error {
	return g.CheckAll(ctx, rd, excludeBookingID, []model.RoomAssignment{{RoomID: roomID, Range: r}})
}

// CheckAll checks every assignment of a booking.  Blockages are reported
// before bookings.
func (g *Guard) CheckAll(ctx context.Context, rd store.Reader, excludeBookingID uint64, rooms []model.RoomAssignment) error {
	if len(rooms) == 0 {
		return nil
	}
	blockages, err := rd.ListBlockages(ctx)
	if err != nil {
		return model.StorageError("list blockages", err)
	}
	for _, a := range rooms {
		for _, b := range blockages {
			if b.AppliesTo(a.RoomID) && Overlaps(a.Range, b.Range) {
				return unavailable(a, b.Range, 0, b.ID)
			}
		}
	}

	env := model.Envelope(rooms)
	existing, err := rd.ListAssignments(ctx, roomIDs(rooms), env)
	if err != nil {
		return model.StorageError("list assignments", err)
	}
	for _, a := range rooms {
		for _, other := range existing {
			if other.BookingID == excludeBookingID && excludeBookingID != 0 {
				continue
			}
			if other.RoomID == a.RoomID && Overlaps(a.Range, other.Range) {
				return unavailable(a, other.Range, other.BookingID, 0)
			}
		}
	}
	return nil
}

func unavailable(a model.RoomAssignment, taken model.DateRange, bookingID, blockageID uint64) error {
	overlap, _ := a.Range.Intersect(taken)
	return &model.RoomUnavailableError{
		RoomID:     a.RoomID,
		Dates:      overlap.Nightly(),
		BookingID:  bookingID,
		BlockageID: blockageID,
	}
}

func roomIDs(rooms []model.RoomAssignment) []string {
	ids := make([]string, 0, len(rooms))
	for _, a := range rooms {
		ids = append(ids, a.RoomID)
	}
	return ids
}
