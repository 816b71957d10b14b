// Package hold manages proposed bookings: short-lived, advisory claims a
// session places on rooms while its booking form is being filled in.
//
// A hold hides its rooms from other sessions' availability for
// model.HoldTTL.  It guarantees nothing; confirmation re-runs the conflict
// guard.  Expiry is lazy (every read compares ExpiresAt against the clock)
// and RunPurger removes expired rows in the background.
package hold

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/lodge-booking/internal/availability"
	"github.com/iliyamo/lodge-booking/internal/metrics"
	"github.com/iliyamo/lodge-booking/internal/model"
	"github.com/iliyamo/lodge-booking/internal/pricing"
	"github.com/iliyamo/lodge-booking/internal/store"
)

// Manager creates, lists and expires holds.
type Manager struct {
	store    store.Store
	resolver *availability.Resolver
	metrics  *metrics.Metrics
	l        *log.Logger
	now      func() time.Time
}

// NewManager wires a hold manager.  A nil logger uses log.Default and a
// nil now uses time.Now; m may be nil.
func NewManager(st store.Store, res *availability.Resolver, m *metrics.Metrics, l *log.Logger, now func() time.Time) *Manager {
	if l == nil {
		l = log.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Manager{store: st, resolver: res, metrics: m, l: l, now: now}
}

// CreateHold places a hold for sessionID on roomIDs over r.  Every day of
// the range is resolved with the session's own holds excluded; the hold is
// rejected with a *model.RoomUnavailableError when a day is blocked or the
// night starting on it belongs to a confirmed booking.  Other sessions'
// holds never reject a new hold.
//
// guests may be nil while the form has no guest data yet.  When present it
// is validated against the combined beds of the rooms and, if the hold can
// be priced on its own, an informational total is attached.
func (m *Manager) CreateHold(ctx context.Context, sessionID string, r model.DateRange, roomIDs []string, guests model.GuestComposition) (*model.ProposedBooking, error) {
	if sessionID == "" {
		return nil, model.ErrMissingSession
	}
	r = r.Normalize()
	if err := r.ValidateStay(); err != nil {
		return nil, err
	}
	roomIDs = uniqueSorted(roomIDs)
	if len(roomIDs) == 0 {
		return nil, model.ErrNoRooms
	}
	if guests != nil {
		if err := model.ValidateComposition(guests); err != nil {
			return nil, err
		}
	}

	var p *model.ProposedBooking
	err := m.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		inventory, err := tx.ListRooms(ctx)
		if err != nil {
			return model.StorageError("list rooms", err)
		}
		held, err := pick(inventory, roomIDs)
		if err != nil {
			return err
		}
		if err := checkBeds(held, guests); err != nil {
			return err
		}
		if err := tx.LockRooms(ctx, roomIDs); err != nil {
			return model.StorageError("lock rooms", err)
		}

		snap, err := m.resolver.Snapshot(ctx, tx, roomIDs, r, sessionID)
		if err != nil {
			return err
		}
		for _, id := range roomIDs {
			if err := rejectTaken(snap, id, r); err != nil {
				return err
			}
		}

		now := m.now().UTC()
		p = &model.ProposedBooking{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Range:     r,
			RoomIDs:   roomIDs,
			Guests:    guests,
			CreatedAt: now,
			ExpiresAt: now.Add(model.HoldTTL),
		}
		p.TotalCents = m.quote(ctx, tx, inventory, p)
		if err := tx.CreateProposal(ctx, p); err != nil {
			return model.StorageError("create proposal", err)
		}
		return nil
	})
	if err != nil {
		if model.IsRoomUnavailable(err) != nil {
			m.metrics.HoldResult("rejected")
		}
		return nil, err
	}
	m.metrics.HoldResult("created")
	return p, nil
}

// GetHold returns an active hold.
func (m *Manager) GetHold(ctx context.Context, id string) (*model.ProposedBooking, error) {
	p, err := m.store.GetProposal(ctx, id)
	if err != nil {
		return nil, storageUnlessNotFound("get proposal", err)
	}
	if !p.Active(m.now()) {
		return nil, fmt.Errorf("proposal %s: %w", id, model.ErrProposalExpired)
	}
	return p, nil
}

// DeleteHold removes one of sessionID's holds.  A hold of another session
// reports not found.  An expired hold is still removed but reports
// ErrProposalExpired.
func (m *Manager) DeleteHold(ctx context.Context, sessionID, id string) error {
	var expired bool
	err := m.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		p, err := tx.GetProposal(ctx, id)
		if err != nil {
			return storageUnlessNotFound("get proposal", err)
		}
		if p.SessionID != sessionID {
			return fmt.Errorf("proposal %s: %w", id, model.ErrProposalNotFound)
		}
		expired = !p.Active(m.now())
		if err := tx.DeleteProposal(ctx, id); err != nil {
			return storageUnlessNotFound("delete proposal", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if expired {
		return fmt.Errorf("proposal %s: %w", id, model.ErrProposalExpired)
	}
	return nil
}

// DeleteHoldsBySession removes every hold of a session, expired or not.
func (m *Manager) DeleteHoldsBySession(ctx context.Context, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, model.ErrMissingSession
	}
	n, err := m.store.DeleteProposalsBySession(ctx, sessionID)
	if err != nil {
		return 0, model.StorageError("delete proposals", err)
	}
	return n, nil
}

// PurgeExpired deletes every hold whose TTL has passed.  Running it twice,
// or concurrently with other operations, is harmless: holds already gone
// are simply not counted again.
func (m *Manager) PurgeExpired(ctx context.Context) (int, error) {
	n, err := m.store.DeleteExpiredProposals(ctx, m.now())
	if err != nil {
		return 0, model.StorageError("delete expired proposals", err)
	}
	m.metrics.Purged(n)
	return n, nil
}

// ListActiveBySession lists a session's unexpired holds, oldest first.
func (m *Manager) ListActiveBySession(ctx context.Context, sessionID string) ([]model.ProposedBooking, error) {
	ps, err := m.store.ListActiveProposalsBySession(ctx, sessionID, m.now())
	if err != nil {
		return nil, model.StorageError("list proposals", err)
	}
	return ps, nil
}

// ListActiveByDateRange lists unexpired holds sharing a night with window.
func (m *Manager) ListActiveByDateRange(ctx context.Context, window model.DateRange) ([]model.ProposedBooking, error) {
	window = window.Normalize()
	if err := window.Validate(); err != nil {
		return nil, err
	}
	ps, err := m.store.ListActiveProposalsByDateRange(ctx, window, m.now())
	if err != nil {
		return nil, model.StorageError("list proposals", err)
	}
	return ps, nil
}

// RunPurger calls PurgeExpired every interval until ctx is cancelled.
func (m *Manager) RunPurger(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.l.Printf("hold-purger: started, interval %s", interval)
	for {
		select {
		case <-ctx.Done():
			m.l.Println("hold-purger: stopped")
			return
		case <-ticker.C:
			n, err := m.PurgeExpired(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					m.l.Printf("hold-purger: %v", err)
				}
				continue
			}
			if n > 0 {
				m.l.Printf("hold-purger: removed %d expired holds", n)
			}
		}
	}
}

// quote prices a hold when its guests can be attributed to rooms: a
// single-room hold, or a hold of the whole property priced in bulk.
func (m *Manager) quote(ctx context.Context, tx store.Tx, inventory []model.Room, p *model.ProposedBooking) *int64 {
	if p.Guests == nil {
		return nil
	}
	rooms := make([]model.RoomAssignment, 0, len(p.RoomIDs))
	for i, id := range p.RoomIDs {
		g := p.Guests
		if i > 0 {
			g = model.Uniform{Class: model.ClassExternal}
		}
		rooms = append(rooms, model.RoomAssignment{RoomID: id, Range: p.Range, Guests: g})
	}
	if len(rooms) > 1 && !pricing.IsBulk(inventory, p.Range, rooms) {
		return nil
	}
	cfg, err := tx.GetPriceConfig(ctx)
	if err != nil {
		m.l.Printf("hold: price config unavailable: %v", err)
		return nil
	}
	q, err := pricing.New(cfg).Quote(inventory, p.Range, rooms)
	if err != nil {
		m.l.Printf("hold: quote for %s failed: %v", p.ID, err)
		return nil
	}
	return &q.TotalCents
}

func rejectTaken(snap *availability.Snapshot, roomID string, r model.DateRange) error {
	var ru *model.RoomUnavailableError
	for _, d := range r.Days() {
		st := snap.Status(roomID, d)
		taken := st.Kind == availability.KindBlocked ||
			st.Kind == availability.KindOccupied ||
			st.After == availability.Confirmed
		if !taken {
			continue
		}
		if ru == nil {
			ru = &model.RoomUnavailableError{RoomID: roomID}
		}
		ru.Dates = append(ru.Dates, d)
		if ru.BlockageID == 0 {
			ru.BlockageID = st.BlockageID
		}
		if ru.BookingID == 0 && len(st.BookingIDs) > 0 {
			ru.BookingID = st.BookingIDs[len(st.BookingIDs)-1]
		}
	}
	if ru != nil {
		return ru
	}
	return nil
}

func pick(inventory []model.Room, ids []string) ([]model.Room, error) {
	byID := model.IndexRooms(inventory)
	out := make([]model.Room, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("room %s: %w", id, model.ErrRoomNotFound)
		}
		out = append(out, r)
	}
	return out, nil
}

// checkBeds compares the guests of a hold with the beds of all its rooms.
// How guests are split across rooms is only known at confirmation.
func checkBeds(rooms []model.Room, guests model.GuestComposition) error {
	if guests == nil {
		return nil
	}
	if len(rooms) == 1 {
		return model.CheckCapacity(rooms[0], guests)
	}
	var beds uint
	for _, r := range rooms {
		beds += r.BedCount
	}
	if need := guests.Capacity(); need > beds {
		return &model.CapacityExceededError{RoomID: rooms[0].ID, Guests: need, BedCount: beds}
	}
	return nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func storageUnlessNotFound(op string, err error) error {
	if errors.Is(err, model.ErrProposalNotFound) {
		return err
	}
	return model.StorageError(op, err)
}
