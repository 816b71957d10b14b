package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/lodge-booking/internal/fixture"
	"github.com/iliyamo/lodge-booking/internal/model"
	"github.com/iliyamo/lodge-booking/internal/store"
	"github.com/iliyamo/lodge-booking/internal/store/memory"
)

func booking(roomID string, r model.DateRange) *model.Booking {
	return &model.Booking{
		EditTokenHash: "hash-" + roomID,
		Range:         r,
		Rooms:         []model.RoomAssignment{{RoomID: roomID, Range: r, Guests: model.Uniform{Class: model.ClassExternal, Adults: 1}}},
	}
}

func TestWithinTx_RollbackDiscardsWrites(t *testing.T) {
	db := memory.New(memory.Config{Rooms: fixture.Rooms()})
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		require.NoError(t, tx.CreateBooking(ctx, booking("11", fixture.Range("2025-06-10", "2025-06-12"))))
		all, err := tx.ListBookings(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1, "a transaction sees its own writes")
		return boom
	})

	assert.ErrorIs(t, err, boom)
	all, err := db.ListBookings(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	_, err = db.GetBookingByEditToken(ctx, "hash-11")
	assert.ErrorIs(t, err, model.ErrBookingNotFound)
}

func TestWithinTx_Commit(t *testing.T) {
	db := memory.New(memory.Config{Rooms: fixture.Rooms()})
	ctx := context.Background()

	err := db.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.CreateBooking(ctx, booking("11", fixture.Range("2025-06-10", "2025-06-12"))); err != nil {
			return err
		}
		// nested calls join the outer transaction
		return db.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
			return tx.CreateBooking(ctx, booking("12", fixture.Range("2025-06-10", "2025-06-12")))
		})
	})

	require.NoError(t, err)
	all, err := db.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, uint64(1), all[0].ID)
	assert.Equal(t, uint64(2), all[1].ID)
}

func TestBookings_ReadsAreCopies(t *testing.T) {
	db := memory.New(memory.Config{Rooms: fixture.Rooms()})
	ctx := context.Background()
	b := booking("21", fixture.Range("2025-06-10", "2025-06-12"))
	require.NoError(t, db.CreateBooking(ctx, b))

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	got.Rooms[0].RoomID = "changed"

	again, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "21", again.Rooms[0].RoomID)
	assert.Equal(t, b.ID, again.Rooms[0].BookingID)
}

func TestUpdateAndDeleteBooking(t *testing.T) {
	db := memory.New(memory.Config{Rooms: fixture.Rooms()})
	ctx := context.Background()
	b := booking("21", fixture.Range("2025-06-10", "2025-06-12"))
	require.NoError(t, db.CreateBooking(ctx, b))
	created := b.CreatedAt

	b.Rooms[0].Range = fixture.Range("2025-06-11", "2025-06-13")
	b.EditTokenHash = "rotated"
	require.NoError(t, db.UpdateBooking(ctx, b))
	assert.Equal(t, created, b.CreatedAt)

	_, err := db.GetBookingByEditToken(ctx, "hash-21")
	assert.ErrorIs(t, err, model.ErrBookingNotFound)
	got, err := db.GetBookingByEditToken(ctx, "rotated")
	require.NoError(t, err)
	assert.Equal(t, fixture.Range("2025-06-11", "2025-06-13"), got.Rooms[0].Range)

	require.NoError(t, db.DeleteBooking(ctx, b.ID))
	assert.ErrorIs(t, db.DeleteBooking(ctx, b.ID), model.ErrBookingNotFound)
	assert.ErrorIs(t, db.UpdateBooking(ctx, b), model.ErrBookingNotFound)
}

func TestListAssignments_FiltersRoomsAndWindow(t *testing.T) {
	db := memory.New(memory.Config{Rooms: fixture.Rooms()})
	ctx := context.Background()
	require.NoError(t, db.CreateBooking(ctx, booking("11", fixture.Range("2025-06-10", "2025-06-12"))))
	require.NoError(t, db.CreateBooking(ctx, booking("12", fixture.Range("2025-06-10", "2025-06-12"))))
	require.NoError(t, db.CreateBooking(ctx, booking("11", fixture.Range("2025-06-20", "2025-06-22"))))

	got, err := db.ListAssignments(ctx, []string{"11"}, fixture.Range("2025-06-12", "2025-06-21"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(3), got[0].BookingID)

	got, err = db.ListAssignments(ctx, nil, fixture.Range("2025-06-11", "2025-06-12"))
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestProposals(t *testing.T) {
	db := memory.New(memory.Config{Rooms: fixture.Rooms()})
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mk := func(id, session string, expires time.Time) *model.ProposedBooking {
		return &model.ProposedBooking{
			ID: id, SessionID: session, Range: fixture.Range("2025-06-10", "2025-06-12"),
			RoomIDs: []string{"11"}, CreatedAt: now, ExpiresAt: expires,
		}
	}
	require.NoError(t, db.CreateProposal(ctx, mk("a", "S1", now.Add(time.Minute))))
	require.NoError(t, db.CreateProposal(ctx, mk("b", "S1", now.Add(-time.Minute))))
	require.NoError(t, db.CreateProposal(ctx, mk("c", "S2", now.Add(time.Minute))))
	assert.ErrorIs(t, db.CreateProposal(ctx, mk("a", "S1", now)), model.ErrStorage)

	active, err := db.ListActiveProposalsBySession(ctx, "S1", now)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "a", active[0].ID)

	inRange, err := db.ListActiveProposalsByDateRange(ctx, fixture.Range("2025-06-11", "2025-06-12"), now)
	require.NoError(t, err)
	assert.Len(t, inRange, 2)

	n, err := db.DeleteExpiredProposals(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = db.DeleteProposalsBySession(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.ErrorIs(t, db.DeleteProposal(ctx, "a"), model.ErrProposalNotFound)
	require.NoError(t, db.DeleteProposal(ctx, "c"))
}
