package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iliyamo/lodge-booking/internal/model"
)

// view reads and writes one state.  Inside WithinTx the state is the
// transaction's private copy; for plain reads it is the committed state
// and only read methods are called.
type view struct {
	db *DB
	st *state
}

func (v *view) ListRooms(context.Context) ([]model.Room, error) {
	return append([]model.Room(nil), v.st.rooms...), nil
}

func (v *view) GetPriceConfig(context.Context) (model.PriceConfig, error) {
	return v.st.prices, nil
}

func (v *view) GetBooking(_ context.Context, id uint64) (*model.Booking, error) {
	b, ok := v.st.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking %d: %w", id, model.ErrBookingNotFound)
	}
	return b.Clone(), nil
}

func (v *view) GetBookingByEditToken(ctx context.Context, tokenHash string) (*model.Booking, error) {
	id, ok := v.st.tokens[tokenHash]
	if !ok || tokenHash == "" {
		return nil, model.ErrBookingNotFound
	}
	return v.GetBooking(ctx, id)
}

func (v *view) ListBookings(context.Context) ([]model.Booking, error) {
	out := make([]model.Booking, 0, len(v.st.bookings))
	for _, b := range v.st.bookings {
		out = append(out, *b.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *view) ListAssignments(_ context.Context, roomIDs []string, window model.DateRange) ([]model.RoomAssignment, error) {
	want := make(map[string]bool, len(roomIDs))
	for _, id := range roomIDs {
		want[id] = true
	}
	var out []model.RoomAssignment
	for _, b := range v.st.bookings {
		for _, a := range b.Clone().Rooms {
			if len(want) > 0 && !want[a.RoomID] {
				continue
			}
			if !a.Range.Overlaps(window) {
				continue
			}
			a.BookingID = b.ID
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BookingID != out[j].BookingID {
			return out[i].BookingID < out[j].BookingID
		}
		return out[i].RoomID < out[j].RoomID
	})
	return out, nil
}

func (v *view) ListBlockages(context.Context) ([]model.BlockageInstance, error) {
	out := make([]model.BlockageInstance, 0, len(v.st.blockages))
	for _, b := range v.st.blockages {
		c := *b
		c.RoomIDs = append([]string(nil), b.RoomIDs...)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *view) GetProposal(_ context.Context, id string) (*model.ProposedBooking, error) {
	p, ok := v.st.proposals[id]
	if !ok {
		return nil, fmt.Errorf("proposal %s: %w", id, model.ErrProposalNotFound)
	}
	return cloneProposal(p), nil
}

func (v *view) ListActiveProposalsBySession(_ context.Context, sessionID string, now time.Time) ([]model.ProposedBooking, error) {
	return v.proposalsWhere(func(p *model.ProposedBooking) bool {
		return p.SessionID == sessionID && p.Active(now)
	}), nil
}

func (v *view) ListActiveProposalsByDateRange(_ context.Context, window model.DateRange, now time.Time) ([]model.ProposedBooking, error) {
	return v.proposalsWhere(func(p *model.ProposedBooking) bool {
		return p.Range.Overlaps(window) && p.Active(now)
	}), nil
}

func (v *view) proposalsWhere(keep func(p *model.ProposedBooking) bool) []model.ProposedBooking {
	var out []model.ProposedBooking
	for _, p := range v.st.proposals {
		if keep(p) {
			out = append(out, *cloneProposal(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (v *view) CreateBooking(_ context.Context, b *model.Booking) error {
	now := time.Now().UTC()
	b.ID = v.st.nextBookingID
	v.st.nextBookingID++
	b.CreatedAt = now
	b.UpdatedAt = now
	v.putBooking(b)
	return nil
}

func (v *view) UpdateBooking(_ context.Context, b *model.Booking) error {
	old, ok := v.st.bookings[b.ID]
	if !ok {
		return fmt.Errorf("booking %d: %w", b.ID, model.ErrBookingNotFound)
	}
	delete(v.st.tokens, old.EditTokenHash)
	b.CreatedAt = old.CreatedAt
	b.UpdatedAt = time.Now().UTC()
	v.putBooking(b)
	return nil
}

func (v *view) putBooking(b *model.Booking) {
	c := b.Clone()
	for i := range c.Rooms {
		c.Rooms[i].BookingID = c.ID
	}
	for i := range c.Guests {
		c.Guests[i].BookingID = c.ID
	}
	v.st.bookings[c.ID] = c
	if c.EditTokenHash != "" {
		v.st.tokens[c.EditTokenHash] = c.ID
	}
}

func (v *view) DeleteBooking(_ context.Context, id uint64) error {
	b, ok := v.st.bookings[id]
	if !ok {
		return fmt.Errorf("booking %d: %w", id, model.ErrBookingNotFound)
	}
	delete(v.st.tokens, b.EditTokenHash)
	delete(v.st.bookings, id)
	return nil
}

func (v *view) CreateBlockage(_ context.Context, b *model.BlockageInstance) error {
	b.ID = v.st.nextBlockageID
	v.st.nextBlockageID++
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	c := *b
	c.RoomIDs = append([]string(nil), b.RoomIDs...)
	v.st.blockages[c.ID] = &c
	return nil
}

func (v *view) DeleteBlockage(_ context.Context, id uint64) error {
	if _, ok := v.st.blockages[id]; !ok {
		return fmt.Errorf("blockage %d: %w", id, model.ErrBlockageNotFound)
	}
	delete(v.st.blockages, id)
	return nil
}

func (v *view) CreateProposal(_ context.Context, p *model.ProposedBooking) error {
	if _, exists := v.st.proposals[p.ID]; exists {
		return model.StorageError("create proposal", fmt.Errorf("duplicate proposal id %s", p.ID))
	}
	v.st.proposals[p.ID] = cloneProposal(p)
	return nil
}

func (v *view) DeleteProposal(_ context.Context, id string) error {
	if _, ok := v.st.proposals[id]; !ok {
		return fmt.Errorf("proposal %s: %w", id, model.ErrProposalNotFound)
	}
	delete(v.st.proposals, id)
	return nil
}

func (v *view) DeleteProposalsBySession(_ context.Context, sessionID string) (int, error) {
	n := 0
	for id, p := range v.st.proposals {
		if p.SessionID == sessionID {
			delete(v.st.proposals, id)
			n++
		}
	}
	return n, nil
}

func (v *view) DeleteExpiredProposals(_ context.Context, now time.Time) (int, error) {
	n := 0
	for id, p := range v.st.proposals {
		if !p.Active(now) {
			delete(v.st.proposals, id)
			n++
		}
	}
	return n, nil
}

func (v *view) LockRooms(context.Context, []string) error { return nil }

func cloneProposal(p *model.ProposedBooking) *model.ProposedBooking {
	c := *p
	c.RoomIDs = append([]string(nil), p.RoomIDs...)
	if pg, ok := p.Guests.(model.PerGuest); ok {
		c.Guests = model.PerGuest{Guests: model.CloneGuests(pg.Guests)}
	}
	if p.TotalCents != nil {
		t := *p.TotalCents
		c.TotalCents = &t
	}
	return &c
}
