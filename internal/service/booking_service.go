// Package service orchestrates the booking lifecycle: it validates input,
// runs the conflict guard and the price calculator, and persists the
// result in one store transaction.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/lodge-booking/internal/conflict"
	"github.com/iliyamo/lodge-booking/internal/metrics"
	"github.com/iliyamo/lodge-booking/internal/model"
	"github.com/iliyamo/lodge-booking/internal/pricing"
	"github.com/iliyamo/lodge-booking/internal/queue"
	"github.com/iliyamo/lodge-booking/internal/store"
	"github.com/iliyamo/lodge-booking/internal/utils"
)

// EventPublisher receives a booking event after each committed change.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// BookingService creates, updates and deletes confirmed bookings.
type BookingService struct {
	store     store.Store
	guard     *conflict.Guard
	publisher EventPublisher
	metrics   *metrics.Metrics
	l         *log.Logger
	now       func() time.Time
}

// NewBookingService wires the service.  pub, m, l and now may be nil.
func NewBookingService(st store.Store, pub EventPublisher, m *metrics.Metrics, l *log.Logger, now func() time.Time) *BookingService {
	if pub == nil {
		pub = queue.Discard{}
	}
	if l == nil {
		l = log.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{store: st, guard: conflict.New(), publisher: pub, metrics: m, l: l, now: now}
}

// PriceAudit compares a booking's stored total with a fresh quote.
type PriceAudit struct {
	BookingID   uint64        `json:"booking_id"`
	StoredCents int64         `json:"stored_cents"`
	QuotedCents int64         `json:"quoted_cents"`
	PriceLocked bool          `json:"price_locked"`
	Match       bool          `json:"match"`
	Quote       pricing.Quote `json:"quote"`
}

// Quote prices in without writing anything.  Availability is not checked.
func (s *BookingService) Quote(ctx context.Context, in BookingInput) (pricing.Quote, error) {
	inventory, err := s.store.ListRooms(ctx)
	if err != nil {
		return pricing.Quote{}, model.StorageError("list rooms", err)
	}
	rooms, _, err := assignments(in, inventory)
	if err != nil {
		return pricing.Quote{}, err
	}
	cfg, err := s.store.GetPriceConfig(ctx)
	if err != nil {
		return pricing.Quote{}, model.StorageError("get price config", err)
	}
	return pricing.New(cfg).Quote(inventory, model.Envelope(rooms), rooms)
}

// CreateBooking confirms a booking and returns it with its edit token.  The
// token is returned only here; the store keeps its digest.
//
// Locking the rooms, the conflict check, the insert and the release of the
// session's holds happen in one transaction, so of two concurrent requests
// for the same room and night exactly one succeeds.
func (s *BookingService) CreateBooking(ctx context.Context, in BookingInput) (*model.Booking, string, error) {
	token, tokenHash, err := utils.NewEditToken()
	if err != nil {
		return nil, "", fmt.Errorf("generate edit token: %w", err)
	}

	var b *model.Booking
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if in.ProposalID != "" {
			if err := s.checkProposal(ctx, tx, in.SessionID, in.ProposalID); err != nil {
				return err
			}
		}
		inventory, err := tx.ListRooms(ctx)
		if err != nil {
			return model.StorageError("list rooms", err)
		}
		rooms, guests, err := assignments(in, inventory)
		if err != nil {
			return err
		}
		if err := tx.LockRooms(ctx, roomIDs(rooms)); err != nil {
			return model.StorageError("lock rooms", err)
		}
		if err := s.guard.CheckAll(ctx, tx, 0, rooms); err != nil {
			return err
		}
		q, err := s.quote(ctx, tx, inventory, rooms)
		if err != nil {
			return err
		}

		b = &model.Booking{
			EditTokenHash: tokenHash,
			Contact:       in.Contact,
			Range:         model.Envelope(rooms),
			Rooms:         rooms,
			Guests:        guests,
			TotalCents:    q.TotalCents,
			PriceLocked:   true,
			SessionID:     in.SessionID,
		}
		if err := tx.CreateBooking(ctx, b); err != nil {
			return model.StorageError("create booking", err)
		}
		if in.SessionID != "" {
			if _, err := tx.DeleteProposalsBySession(ctx, in.SessionID); err != nil {
				return model.StorageError("release holds", err)
			}
		}
		return nil
	})
	if err != nil {
		s.rejected(err)
		return nil, "", err
	}

	s.metrics.BookingAction("created")
	s.l.Printf("booking: created %d for rooms %v %s total %d", b.ID, b.RoomIDs(), b.Range, b.TotalCents)
	s.publish(ctx, queue.BookingCreated, b)
	return b, token, nil
}

// UpdateBooking replaces the rooms, dates, guests and contact of a booking.
// The conflict guard ignores the booking's own assignments.  When the
// rooms, ranges and guests are unchanged a locked booking keeps its stored
// total unless an administrator asks to reprice; a differing fresh quote
// is logged and counted, never an error.  Any change to the stay itself
// stores the fresh quote.
func (s *BookingService) UpdateBooking(ctx context.Context, id uint64, access Access, in BookingInput) (*model.Booking, error) {
	var b *model.Booking
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		existing, err := s.authorized(ctx, tx, id, access)
		if err != nil {
			return err
		}
		inventory, err := tx.ListRooms(ctx)
		if err != nil {
			return model.StorageError("list rooms", err)
		}
		rooms, guests, err := assignments(in, inventory)
		if err != nil {
			return err
		}
		lock := uniqueIDs(append(roomIDs(rooms), existing.RoomIDs()...))
		if err := tx.LockRooms(ctx, lock); err != nil {
			return model.StorageError("lock rooms", err)
		}
		if err := s.guard.CheckAll(ctx, tx, id, rooms); err != nil {
			return err
		}
		q, err := s.quote(ctx, tx, inventory, rooms)
		if err != nil {
			return err
		}

		b = existing.Clone()
		b.Contact = in.Contact
		b.Range = model.Envelope(rooms)
		b.Rooms = rooms
		b.Guests = guests
		switch {
		case !existing.PriceLocked, in.Reprice && access.Admin:
			b.TotalCents = q.TotalCents
		case !samePricedStay(existing.Rooms, rooms):
			if q.TotalCents != existing.TotalCents {
				s.l.Printf("booking: stay of booking %d changed, total %d -> %d", id, existing.TotalCents, q.TotalCents)
			}
			b.TotalCents = q.TotalCents
		case q.TotalCents != existing.TotalCents:
			s.l.Printf("booking: WARNING price lock kept total %d on booking %d, fresh quote is %d", existing.TotalCents, id, q.TotalCents)
			s.metrics.PriceMismatch()
		}
		b.PriceLocked = true
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return model.StorageError("update booking", err)
		}
		return nil
	})
	if err != nil {
		s.rejected(err)
		return nil, err
	}

	s.metrics.BookingAction("updated")
	s.publish(ctx, queue.BookingUpdated, b)
	return b, nil
}

// DeleteBooking removes a booking with its assignments and guest records.
func (s *BookingService) DeleteBooking(ctx context.Context, id uint64, access Access) error {
	var b *model.Booking
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		var err error
		if b, err = s.authorized(ctx, tx, id, access); err != nil {
			return err
		}
		if err := tx.DeleteBooking(ctx, id); err != nil {
			return storageUnless("delete booking", err, model.ErrBookingNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.BookingAction("deleted")
	s.publish(ctx, queue.BookingDeleted, b)
	return nil
}

// GetBooking returns a booking by id.
func (s *BookingService) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, storageUnless("get booking", err, model.ErrBookingNotFound)
	}
	return b, nil
}

// GetBookingByEditToken looks a booking up by its raw edit token.
func (s *BookingService) GetBookingByEditToken(ctx context.Context, token string) (*model.Booking, error) {
	if token == "" {
		return nil, model.ErrInvalidEditToken
	}
	b, err := s.store.GetBookingByEditToken(ctx, utils.HashToken(token))
	if err != nil {
		return nil, storageUnless("get booking", err, model.ErrBookingNotFound)
	}
	return b, nil
}

// ListBookings returns every booking ordered by id.
func (s *BookingService) ListBookings(ctx context.Context) ([]model.Booking, error) {
	bs, err := s.store.ListBookings(ctx)
	if err != nil {
		return nil, model.StorageError("list bookings", err)
	}
	return bs, nil
}

// AuditPrice recomputes a booking's price with the current table.  The
// stored total is left untouched.
func (s *BookingService) AuditPrice(ctx context.Context, id uint64) (PriceAudit, error) {
	b, err := s.GetBooking(ctx, id)
	if err != nil {
		return PriceAudit{}, err
	}
	inventory, err := s.store.ListRooms(ctx)
	if err != nil {
		return PriceAudit{}, model.StorageError("list rooms", err)
	}
	cfg, err := s.store.GetPriceConfig(ctx)
	if err != nil {
		return PriceAudit{}, model.StorageError("get price config", err)
	}
	q, err := pricing.New(cfg).Quote(inventory, b.Range, b.Rooms)
	if err != nil {
		return PriceAudit{}, err
	}
	a := PriceAudit{
		BookingID:   b.ID,
		StoredCents: b.TotalCents,
		QuotedCents: q.TotalCents,
		PriceLocked: b.PriceLocked,
		Match:       q.TotalCents == b.TotalCents,
		Quote:       q,
	}
	if !a.Match {
		s.l.Printf("booking: WARNING booking %d stored total %d differs from current quote %d", id, a.StoredCents, a.QuotedCents)
		s.metrics.PriceMismatch()
	}
	return a, nil
}

func (s *BookingService) checkProposal(ctx context.Context, tx store.Tx, sessionID, id string) error {
	p, err := tx.GetProposal(ctx, id)
	if err != nil {
		return storageUnless("get proposal", err, model.ErrProposalNotFound)
	}
	if sessionID == "" || p.SessionID != sessionID {
		return fmt.Errorf("proposal %s: %w", id, model.ErrProposalNotFound)
	}
	if !p.Active(s.now()) {
		return fmt.Errorf("proposal %s: %w", id, model.ErrProposalExpired)
	}
	return nil
}

// authorized loads a booking and checks access to it.  A wrong token is
// reported the same way for every booking id.
func (s *BookingService) authorized(ctx context.Context, tx store.Tx, id uint64, access Access) (*model.Booking, error) {
	b, err := tx.GetBooking(ctx, id)
	if err != nil {
		return nil, storageUnless("get booking", err, model.ErrBookingNotFound)
	}
	if access.Admin {
		return b, nil
	}
	if access.EditToken == "" {
		return nil, model.ErrInvalidEditToken
	}
	got := utils.HashToken(access.EditToken)
	if subtle.ConstantTimeCompare([]byte(got), []byte(b.EditTokenHash)) != 1 {
		return nil, model.ErrInvalidEditToken
	}
	return b, nil
}

func (s *BookingService) quote(ctx context.Context, tx store.Tx, inventory []model.Room, rooms []model.RoomAssignment) (pricing.Quote, error) {
	cfg, err := tx.GetPriceConfig(ctx)
	if err != nil {
		return pricing.Quote{}, model.StorageError("get price config", err)
	}
	return pricing.New(cfg).Quote(inventory, model.Envelope(rooms), rooms)
}

func (s *BookingService) rejected(err error) {
	if ru := model.IsRoomUnavailable(err); ru != nil {
		s.metrics.BookingConflict()
		s.l.Printf("booking: rejected: %v", ru)
	}
}

func (s *BookingService) publish(ctx context.Context, typ string, b *model.Booking) {
	ev := queue.BookingEvent{
		Type:         typ,
		BookingID:    b.ID,
		ContactName:  b.Contact.Name,
		ContactEmail: b.Contact.Email,
		StartDate:    b.Range.Start.Format(model.DateLayout),
		EndDate:      b.Range.End.Format(model.DateLayout),
		RoomIDs:      b.RoomIDs(),
		TotalCents:   b.TotalCents,
		PriceLocked:  b.PriceLocked,
		OccurredAt:   s.now().UTC().Format(time.RFC3339),
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.l.Printf("booking: publish %s for %d failed: %v", typ, b.ID, err)
	}
}

// samePricedStay reports whether two room lists feed the calculator the
// same inputs: rooms, ranges, and each guest's person type and class.
func samePricedStay(a, b []model.RoomAssignment) bool {
	if len(a) != len(b) {
		return false
	}
	byRoom := make(map[string]model.RoomAssignment, len(a))
	for _, r := range a {
		byRoom[r.RoomID] = r
	}
	for _, r := range b {
		o, ok := byRoom[r.RoomID]
		if !ok || !o.Range.Equal(r.Range) || !sameGuests(o.Guests, r.Guests) {
			return false
		}
	}
	return true
}

func sameGuests(x, y model.GuestComposition) bool {
	switch gx := x.(type) {
	case model.Uniform:
		gy, ok := y.(model.Uniform)
		return ok && gx == gy
	case model.PerGuest:
		gy, ok := y.(model.PerGuest)
		if !ok || len(gx.Guests) != len(gy.Guests) {
			return false
		}
		xs, ys := model.CloneGuests(gx.Guests), model.CloneGuests(gy.Guests)
		model.SortGuests(xs)
		model.SortGuests(ys)
		for i := range xs {
			if xs[i].PersonType != ys[i].PersonType || xs[i].EffectiveClass() != ys[i].EffectiveClass() {
				return false
			}
		}
		return true
	}
	return false
}

func roomIDs(rooms []model.RoomAssignment) []string {
	ids := make([]string, 0, len(rooms))
	for _, a := range rooms {
		ids = append(ids, a.RoomID)
	}
	return ids
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// storageUnless wraps err as a storage failure unless it matches one of
// the domain sentinels, which pass through unchanged.
func storageUnless(op string, err error, keep ...error) error {
	for _, k := range keep {
		if errors.Is(err, k) {
			return err
		}
	}
	return model.StorageError(op, err)
}
