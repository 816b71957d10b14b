// Package store defines the contract between the booking core and the
// durable inventory store.  The MySQL repository and the in-memory store
// both implement it; the core depends only on these interfaces.
package store

import (
	"context"
	"time"

	"github.com/iliyamo/lodge-booking/internal/model"
)

// Reader is the read side of the store.  Lookups of missing records
// return the matching model sentinel (ErrBookingNotFound,
// ErrProposalNotFound, ErrBlockageNotFound).
type Reader interface {
	ListRooms(ctx context.Context) ([]model.Room, error)
	GetPriceConfig(ctx context.Context) (model.PriceConfig, error)

	GetBooking(ctx context.Context, id uint64) (*model.Booking, error)
	GetBookingByEditToken(ctx context.Context, tokenHash string) (*model.Booking, error)
	ListBookings(ctx context.Context) ([]model.Booking, error)
	// ListAssignments returns the room assignments of confirmed bookings
	// whose nights overlap window.  An empty roomIDs means all rooms.
	ListAssignments(ctx context.Context, roomIDs []string, window model.DateRange) ([]model.RoomAssignment, error)

	ListBlockages(ctx context.Context) ([]model.BlockageInstance, error)

	GetProposal(ctx context.Context, id string) (*model.ProposedBooking, error)
	ListActiveProposalsBySession(ctx context.Context, sessionID string, now time.Time) ([]model.ProposedBooking, error)
	ListActiveProposalsByDateRange(ctx context.Context, window model.DateRange, now time.Time) ([]model.ProposedBooking, error)
}

// Writer is the write side of the store.
type Writer interface {
	// CreateBooking inserts the booking with its assignments and guest
	// records and sets b.ID, CreatedAt and UpdatedAt.
	CreateBooking(ctx context.Context, b *model.Booking) error
	// UpdateBooking replaces the booking row and all of its children.
	UpdateBooking(ctx context.Context, b *model.Booking) error
	DeleteBooking(ctx context.Context, id uint64) error

	CreateBlockage(ctx context.Context, b *model.BlockageInstance) error
	DeleteBlockage(ctx context.Context, id uint64) error

	CreateProposal(ctx context.Context, p *model.ProposedBooking) error
	DeleteProposal(ctx context.Context, id string) error
	DeleteProposalsBySession(ctx context.Context, sessionID string) (int, error)
	DeleteExpiredProposals(ctx context.Context, now time.Time) (int, error)

	// LockRooms serializes concurrent writers touching any of roomIDs
	// until the surrounding transaction ends.  Outside a transaction it is
	// a no-op.
	LockRooms(ctx context.Context, roomIDs []string) error
}

// Tx is a unit of work.  Reads through a Tx observe its own writes.
type Tx interface {
	Reader
	Writer
}

// Store is the full inventory store.
type Store interface {
	Reader
	Writer
	// WithinTx runs fn in a single atomic transaction.  When fn returns an
	// error nothing it wrote is persisted and the error is returned as is.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
