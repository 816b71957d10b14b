package hold_test

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/lodge-booking/internal/availability"
	"github.com/iliyamo/lodge-booking/internal/fixture"
	"github.com/iliyamo/lodge-booking/internal/hold"
	"github.com/iliyamo/lodge-booking/internal/metrics"
	"github.com/iliyamo/lodge-booking/internal/model"
	"github.com/iliyamo/lodge-booking/internal/store/memory"
)

type env struct {
	db       *memory.DB
	clock    *fixture.Clock
	resolver *availability.Resolver
	holds    *hold.Manager
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := memory.New(memory.Config{Rooms: fixture.Rooms(), Prices: fixture.Prices()})
	clock := &fixture.Clock{T: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	res := availability.NewResolver(db, clock.Now)
	l := log.New(io.Discard, "", 0)
	return &env{db: db, clock: clock, resolver: res, holds: hold.NewManager(db, res, metrics.New(nil), l, clock.Now)}
}

func (e *env) book(t *testing.T, roomID string, r model.DateRange) uint64 {
	t.Helper()
	b := &model.Booking{
		Range: r,
		Rooms: []model.RoomAssignment{{RoomID: roomID, Range: r, Guests: model.Uniform{Class: model.ClassExternal, Adults: 1}}},
	}
	require.NoError(t, e.db.CreateBooking(context.Background(), b))
	return b.ID
}

var twoAdults = model.Uniform{Class: model.ClassSubsidized, Adults: 2}

func TestCreateHold_VisibleToOthersNotToSelf(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p, err := e.holds.CreateHold(ctx, "S1", fixture.Range("2025-06-10", "2025-06-12"), []string{"12"}, twoAdults)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, e.clock.Now().Add(model.HoldTTL), p.ExpiresAt)
	require.NotNil(t, p.TotalCents)
	assert.Equal(t, int64(2*35000), *p.TotalCents)

	st, err := e.resolver.Resolve(ctx, "12", fixture.Day("2025-06-11"), "")
	require.NoError(t, err)
	assert.Equal(t, availability.KindProposed, st.Kind)

	st, err = e.resolver.Resolve(ctx, "12", fixture.Day("2025-06-11"), "S1")
	require.NoError(t, err)
	assert.Equal(t, availability.KindAvailable, st.Kind)
}

func TestCreateHold_ExpiredHoldDoesNotExist(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := fixture.Range("2025-06-10", "2025-06-12")

	_, err := e.holds.CreateHold(ctx, "S1", r, []string{"12"}, nil)
	require.NoError(t, err)
	e.clock.Advance(model.HoldTTL + time.Second)

	st, err := e.resolver.Resolve(ctx, "12", fixture.Day("2025-06-11"), "")
	require.NoError(t, err)
	assert.Equal(t, availability.KindAvailable, st.Kind)

	active, err := e.holds.ListActiveBySession(ctx, "S1")
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = e.holds.CreateHold(ctx, "S2", r, []string{"12"}, nil)
	assert.NoError(t, err)
}

func TestCreateHold_RejectsConfirmedNights(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id := e.book(t, "21", fixture.Range("2025-06-10", "2025-06-13"))

	_, err := e.holds.CreateHold(ctx, "S1", fixture.Range("2025-06-12", "2025-06-15"), []string{"21"}, nil)

	ru := model.IsRoomUnavailable(err)
	require.NotNil(t, ru)
	assert.Equal(t, "21", ru.RoomID)
	assert.Equal(t, id, ru.BookingID)
	require.Len(t, ru.Dates, 1)
	assert.Equal(t, fixture.Day("2025-06-12"), ru.Dates[0])
}

func TestCreateHold_AllowsAdjacentStays(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.book(t, "21", fixture.Range("2025-06-10", "2025-06-13"))

	_, err := e.holds.CreateHold(ctx, "S1", fixture.Range("2025-06-13", "2025-06-15"), []string{"21"}, nil)
	assert.NoError(t, err)

	_, err = e.holds.CreateHold(ctx, "S2", fixture.Range("2025-06-07", "2025-06-10"), []string{"21"}, nil)
	assert.NoError(t, err)
}

func TestCreateHold_OverOtherSessionsHold(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := fixture.Range("2025-06-10", "2025-06-12")

	_, err := e.holds.CreateHold(ctx, "S1", r, []string{"11"}, nil)
	require.NoError(t, err)
	_, err = e.holds.CreateHold(ctx, "S2", r, []string{"11"}, nil)
	assert.NoError(t, err)
}

func TestCreateHold_RejectsBlockedDays(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	b := &model.BlockageInstance{Range: fixture.Range("2025-06-11", "2025-06-12")}
	require.NoError(t, e.db.CreateBlockage(ctx, b))

	_, err := e.holds.CreateHold(ctx, "S1", fixture.Range("2025-06-10", "2025-06-13"), []string{"11", "22"}, nil)

	ru := model.IsRoomUnavailable(err)
	require.NotNil(t, ru)
	assert.Equal(t, b.ID, ru.BlockageID)

	// the blockage ends before check-in day 2025-06-12
	_, err = e.holds.CreateHold(ctx, "S1", fixture.Range("2025-06-12", "2025-06-13"), []string{"11"}, nil)
	assert.NoError(t, err)
}

func TestCreateHold_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := fixture.Range("2025-06-10", "2025-06-12")

	_, err := e.holds.CreateHold(ctx, "", r, []string{"11"}, nil)
	assert.ErrorIs(t, err, model.ErrMissingSession)

	_, err = e.holds.CreateHold(ctx, "S1", fixture.Range("2025-06-12", "2025-06-10"), []string{"11"}, nil)
	assert.ErrorIs(t, err, model.ErrInvalidDateRange)

	_, err = e.holds.CreateHold(ctx, "S1", fixture.Range("2025-01-01", "2400-01-01"), []string{"11"}, nil)
	assert.ErrorIs(t, err, model.ErrInvalidDateRange)

	_, err = e.holds.CreateHold(ctx, "S1", r, nil, nil)
	assert.ErrorIs(t, err, model.ErrNoRooms)

	_, err = e.holds.CreateHold(ctx, "S1", r, []string{"99"}, nil)
	assert.ErrorIs(t, err, model.ErrRoomNotFound)

	_, err = e.holds.CreateHold(ctx, "S1", r, []string{"11"}, model.Uniform{Class: model.ClassExternal, Adults: 2, Children: 1})
	ce := model.IsCapacityExceeded(err)
	require.NotNil(t, ce)
	assert.Equal(t, uint(2), ce.BedCount)

	// toddlers do not take a bed
	_, err = e.holds.CreateHold(ctx, "S1", r, []string{"11"}, model.Uniform{Class: model.ClassExternal, Adults: 2, Toddlers: 2})
	assert.NoError(t, err)

	// beds of all held rooms count
	_, err = e.holds.CreateHold(ctx, "S1", r, []string{"11", "12"}, model.Uniform{Class: model.ClassExternal, Adults: 5})
	assert.NoError(t, err)
}

func TestGetHold(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p, err := e.holds.CreateHold(ctx, "S1", fixture.Range("2025-06-10", "2025-06-12"), []string{"11"}, nil)
	require.NoError(t, err)

	got, err := e.holds.GetHold(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = e.holds.GetHold(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrProposalNotFound)

	e.clock.Advance(model.HoldTTL)
	_, err = e.holds.GetHold(ctx, p.ID)
	assert.ErrorIs(t, err, model.ErrProposalExpired)
}

func TestDeleteHold(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := fixture.Range("2025-06-10", "2025-06-12")
	p, err := e.holds.CreateHold(ctx, "S1", r, []string{"11"}, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, e.holds.DeleteHold(ctx, "S2", p.ID), model.ErrProposalNotFound)
	require.NoError(t, e.holds.DeleteHold(ctx, "S1", p.ID))
	assert.ErrorIs(t, e.holds.DeleteHold(ctx, "S1", p.ID), model.ErrProposalNotFound)

	stale, err := e.holds.CreateHold(ctx, "S1", r, []string{"11"}, nil)
	require.NoError(t, err)
	e.clock.Advance(model.HoldTTL)
	assert.ErrorIs(t, e.holds.DeleteHold(ctx, "S1", stale.ID), model.ErrProposalExpired)
	_, err = e.db.GetProposal(ctx, stale.ID)
	assert.ErrorIs(t, err, model.ErrProposalNotFound, "expired hold is removed anyway")
}

func TestDeleteHoldsBySession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := fixture.Range("2025-06-10", "2025-06-12")
	for _, room := range []string{"11", "12"} {
		_, err := e.holds.CreateHold(ctx, "S1", r, []string{room}, nil)
		require.NoError(t, err)
	}
	_, err := e.holds.CreateHold(ctx, "S2", r, []string{"21"}, nil)
	require.NoError(t, err)

	n, err := e.holds.DeleteHoldsBySession(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	left, err := e.holds.ListActiveByDateRange(ctx, r)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "S2", left[0].SessionID)
}

func TestPurgeExpired_Idempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := fixture.Range("2025-06-10", "2025-06-12")
	_, err := e.holds.CreateHold(ctx, "S1", r, []string{"11"}, nil)
	require.NoError(t, err)
	e.clock.Advance(5 * time.Minute)
	_, err = e.holds.CreateHold(ctx, "S2", r, []string{"12"}, nil)
	require.NoError(t, err)
	e.clock.Advance(11 * time.Minute)

	n, err := e.holds.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = e.holds.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	active, err := e.holds.ListActiveBySession(ctx, "S2")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestPurgeExpired_Concurrent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		_, err := e.holds.CreateHold(ctx, "S1", fixture.Range("2025-06-10", "2025-06-12"), []string{"11"}, nil)
		require.NoError(t, err)
	}
	e.clock.Advance(model.HoldTTL)

	var wg sync.WaitGroup
	total := make(chan int, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := e.holds.PurgeExpired(ctx)
			assert.NoError(t, err)
			total <- n
		}()
	}
	wg.Wait()
	close(total)

	sum := 0
	for n := range total {
		sum += n
	}
	assert.Equal(t, 20, sum)
}

func TestRunPurger_StopsOnCancel(t *testing.T) {
	db := memory.New(memory.Config{Rooms: fixture.Rooms(), Prices: fixture.Prices()})
	m := hold.NewManager(db, availability.NewResolver(db, nil), nil, log.New(io.Discard, "", 0), nil)
	ctx := context.Background()
	require.NoError(t, db.CreateProposal(ctx, &model.ProposedBooking{
		ID:        "old",
		SessionID: "S1",
		Range:     fixture.Range("2025-06-10", "2025-06-12"),
		RoomIDs:   []string{"11"},
		CreatedAt: time.Now().Add(-time.Hour),
		ExpiresAt: time.Now().Add(-time.Minute),
	}))

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		m.RunPurger(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, err := db.GetProposal(context.Background(), "old")
		return err != nil
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("purger did not stop")
	}
}
