// Package repository is the MySQL implementation of store.Store.  Each
// table group has its own repo type; Store composes them and runs
// transactions.  All timestamps are stored in UTC and all dates as DATE.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/lodge-booking/internal/model"
	"github.com/iliyamo/lodge-booking/internal/store"
)

// querier is the subset of *sql.DB and *sql.Tx the repos use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// repos bundles the repositories bound to one querier.
type repos struct {
	q         querier
	inTx      bool
	rooms     *RoomRepo
	bookings  *BookingRepo
	blockages *BlockageRepo
	proposals *ProposalRepo
	prices    *PriceRepo
}

func newRepos(q querier, inTx bool) *repos {
	return &repos{
		q:         q,
		inTx:      inTx,
		rooms:     NewRoomRepo(q),
		bookings:  NewBookingRepo(q),
		blockages: NewBlockageRepo(q),
		proposals: NewProposalRepo(q),
		prices:    NewPriceRepo(q),
	}
}

// Store is the MySQL inventory store.
type Store struct {
	*repos
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// New returns a store backed by db.
func New(db *sql.DB) *Store {
	return &Store{repos: newRepos(db, false), db: db}
}

type txKey struct{}

// WithinTx runs fn in a READ COMMITTED transaction.  Every read issued
// after LockRooms therefore sees the rows committed by the writer that
// held the lock before, which is what makes check-then-insert safe.
// Calls nested in fn's context join the running transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if r, ok := ctx.Value(txKey{}).(*repos); ok && r != nil {
		return fn(ctx, r)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return model.StorageError("begin", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	r := newRepos(tx, true)
	if err := fn(context.WithValue(ctx, txKey{}, r), r); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return model.StorageError("commit", err)
	}
	committed = true
	return nil
}

// CreateBooking inserts the booking row and its children atomically.
func (s *Store) CreateBooking(ctx context.Context, b *model.Booking) error {
	return s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error { return tx.CreateBooking(ctx, b) })
}

func (s *Store) UpdateBooking(ctx context.Context, b *model.Booking) error {
	return s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error { return tx.UpdateBooking(ctx, b) })
}

func (s *Store) CreateBlockage(ctx context.Context, b *model.BlockageInstance) error {
	return s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error { return tx.CreateBlockage(ctx, b) })
}

func (s *Store) CreateProposal(ctx context.Context, p *model.ProposedBooking) error {
	return s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error { return tx.CreateProposal(ctx, p) })
}

// Seed upserts the room inventory and, when force is set or no price
// table is stored yet, replaces the price table with prices.
func (s *Store) Seed(ctx context.Context, rooms []model.Room, prices model.PriceConfig, force bool) error {
	return s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		r := tx.(*repos)
		if err := r.rooms.Upsert(ctx, rooms); err != nil {
			return model.StorageError("seed rooms", err)
		}
		if !force {
			var n int
			if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM room_rates`).Scan(&n); err != nil {
				return model.StorageError("count rates", err)
			}
			if n > 0 {
				return nil
			}
		}
		if err := r.prices.Replace(ctx, prices); err != nil {
			return model.StorageError("seed prices", err)
		}
		return nil
	})
}

// Reader

func (r *repos) ListRooms(ctx context.Context) ([]model.Room, error) { return r.rooms.ListAll(ctx) }

func (r *repos) GetPriceConfig(ctx context.Context) (model.PriceConfig, error) {
	return r.prices.Get(ctx)
}

func (r *repos) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return r.bookings.Get(ctx, id)
}

func (r *repos) GetBookingByEditToken(ctx context.Context, tokenHash string) (*model.Booking, error) {
	return r.bookings.GetByEditToken(ctx, tokenHash)
}

func (r *repos) ListBookings(ctx context.Context) ([]model.Booking, error) {
	return r.bookings.ListAll(ctx)
}

func (r *repos) ListAssignments(ctx context.Context, roomIDs []string, window model.DateRange) ([]model.RoomAssignment, error) {
	return r.bookings.ListAssignments(ctx, roomIDs, window)
}

func (r *repos) ListBlockages(ctx context.Context) ([]model.BlockageInstance, error) {
	return r.blockages.ListAll(ctx)
}

func (r *repos) GetProposal(ctx context.Context, id string) (*model.ProposedBooking, error) {
	return r.proposals.Get(ctx, id)
}

func (r *repos) ListActiveProposalsBySession(ctx context.Context, sessionID string, now time.Time) ([]model.ProposedBooking, error) {
	return r.proposals.ListActiveBySession(ctx, sessionID, now)
}

func (r *repos) ListActiveProposalsByDateRange(ctx context.Context, window model.DateRange, now time.Time) ([]model.ProposedBooking, error) {
	return r.proposals.ListActiveByDateRange(ctx, window, now)
}

// Writer.  Multi-statement writes are only called on transaction-bound
// repos; Store wraps them in WithinTx.

func (r *repos) CreateBooking(ctx context.Context, b *model.Booking) error {
	return r.bookings.Create(ctx, b)
}

func (r *repos) UpdateBooking(ctx context.Context, b *model.Booking) error {
	return r.bookings.Update(ctx, b)
}

func (r *repos) DeleteBooking(ctx context.Context, id uint64) error {
	return r.bookings.Delete(ctx, id)
}

func (r *repos) CreateBlockage(ctx context.Context, b *model.BlockageInstance) error {
	return r.blockages.Create(ctx, b)
}

func (r *repos) DeleteBlockage(ctx context.Context, id uint64) error {
	return r.blockages.Delete(ctx, id)
}

func (r *repos) CreateProposal(ctx context.Context, p *model.ProposedBooking) error {
	return r.proposals.Create(ctx, p)
}

func (r *repos) DeleteProposal(ctx context.Context, id string) error {
	return r.proposals.Delete(ctx, id)
}

func (r *repos) DeleteProposalsBySession(ctx context.Context, sessionID string) (int, error) {
	return r.proposals.DeleteBySession(ctx, sessionID)
}

func (r *repos) DeleteExpiredProposals(ctx context.Context, now time.Time) (int, error) {
	return r.proposals.DeleteExpired(ctx, now)
}

func (r *repos) LockRooms(ctx context.Context, roomIDs []string) error {
	if !r.inTx {
		return nil
	}
	return r.rooms.LockForUpdate(ctx, roomIDs)
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := make([]byte, 0, 3*n)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, '?')
	}
	return string(b)
}

func stringArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}

func day(t time.Time) string { return model.Day(t).Format(model.DateLayout) }

func notFound(kind string, id any, sentinel error) error {
	return fmt.Errorf("%s %v: %w", kind, id, sentinel)
}
