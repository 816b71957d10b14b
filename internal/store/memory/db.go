// Package memory is an in-process implementation of store.Store.  It
// mirrors the single-writer transactional model of the relational store:
// a transaction works on a private copy of the data and either replaces
// the shared state on commit or is thrown away on error.
package memory

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/lodge-booking/internal/model"
	"github.com/iliyamo/lodge-booking/internal/store"
)

// Config seeds the store.
type Config struct {
	L      *log.Logger
	Rooms  []model.Room
	Prices model.PriceConfig
}

type state struct {
	rooms          []model.Room
	prices         model.PriceConfig
	bookings       map[uint64]*model.Booking
	tokens         map[string]uint64
	blockages      map[uint64]*model.BlockageInstance
	proposals      map[string]*model.ProposedBooking
	nextBookingID  uint64
	nextBlockageID uint64
}

func (s *state) clone() *state {
	c := &state{
		rooms:          append([]model.Room(nil), s.rooms...),
		prices:         s.prices,
		bookings:       make(map[uint64]*model.Booking, len(s.bookings)),
		tokens:         make(map[string]uint64, len(s.tokens)),
		blockages:      make(map[uint64]*model.BlockageInstance, len(s.blockages)),
		proposals:      make(map[string]*model.ProposedBooking, len(s.proposals)),
		nextBookingID:  s.nextBookingID,
		nextBlockageID: s.nextBlockageID,
	}
	for id, b := range s.bookings {
		c.bookings[id] = b
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	for id, b := range s.blockages {
		c.blockages[id] = b
	}
	for id, p := range s.proposals {
		c.proposals[id] = p
	}
	return c
}

// DB is the in-memory store.  Records held in the maps are never mutated
// in place; writers replace them, so a committed state can be read
// without copying the records it points to.
type DB struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	cur     *state
	l       *log.Logger
}

var _ store.Store = (*DB)(nil)

// New creates a store seeded with conf's rooms and prices.
func New(conf Config) *DB {
	l := conf.L
	if l == nil {
		l = log.Default()
	}
	rooms := append([]model.Room(nil), conf.Rooms...)
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return &DB{
		l: l,
		cur: &state{
			rooms:          rooms,
			prices:         conf.Prices,
			bookings:       make(map[uint64]*model.Booking),
			tokens:         make(map[string]uint64),
			blockages:      make(map[uint64]*model.BlockageInstance),
			proposals:      make(map[string]*model.ProposedBooking),
			nextBookingID:  1,
			nextBlockageID: 1,
		},
	}
}

// WithinTx runs fn against a private copy of the state.  Only one
// transaction runs at a time, which makes every transaction serializable.
// A WithinTx call nested in fn's context joins the outer transaction.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) (err error) {
	if v, ok := transactionFromContext(ctx); ok && v.db == db {
		return fn(ctx, v)
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	db.mu.RLock()
	v := &view{db: db, st: db.cur.clone()}
	db.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			db.l.Printf("memory-store: transaction rolled back after panic: %v", p)
			panic(p)
		}
	}()

	if err = fn(withTransaction(ctx, v), v); err != nil {
		return err
	}

	db.mu.Lock()
	db.cur = v.st
	db.mu.Unlock()
	return nil
}

func (db *DB) read() *view {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return &view{db: db, st: db.cur}
}

func (db *DB) write(ctx context.Context, fn func(tx store.Tx) error) error {
	return db.WithinTx(ctx, func(_ context.Context, tx store.Tx) error { return fn(tx) })
}

// SetRooms replaces the room inventory.
func (db *DB) SetRooms(rooms []model.Room) {
	_ = db.write(context.Background(), func(tx store.Tx) error {
		v := tx.(*view)
		v.st.rooms = append([]model.Room(nil), rooms...)
		sort.Slice(v.st.rooms, func(i, j int) bool { return v.st.rooms[i].ID < v.st.rooms[j].ID })
		return nil
	})
}

// SetPriceConfig replaces the price table.
func (db *DB) SetPriceConfig(p model.PriceConfig) {
	_ = db.write(context.Background(), func(tx store.Tx) error {
		tx.(*view).st.prices = p
		return nil
	})
}

func (db *DB) ListRooms(ctx context.Context) ([]model.Room, error) {
	return db.read().ListRooms(ctx)
}

func (db *DB) GetPriceConfig(ctx context.Context) (model.PriceConfig, error) {
	return db.read().GetPriceConfig(ctx)
}

func (db *DB) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return db.read().GetBooking(ctx, id)
}

func (db *DB) GetBookingByEditToken(ctx context.Context, tokenHash string) (*model.Booking, error) {
	return db.read().GetBookingByEditToken(ctx, tokenHash)
}

func (db *DB) ListBookings(ctx context.Context) ([]model.Booking, error) {
	return db.read().ListBookings(ctx)
}

func (db *DB) ListAssignments(ctx context.Context, roomIDs []string, window model.DateRange) ([]model.RoomAssignment, error) {
	return db.read().ListAssignments(ctx, roomIDs, window)
}

func (db *DB) ListBlockages(ctx context.Context) ([]model.BlockageInstance, error) {
	return db.read().ListBlockages(ctx)
}

func (db *DB) GetProposal(ctx context.Context, id string) (*model.ProposedBooking, error) {
	return db.read().GetProposal(ctx, id)
}

func (db *DB) ListActiveProposalsBySession(ctx context.Context, sessionID string, now time.Time) ([]model.ProposedBooking, error) {
	return db.read().ListActiveProposalsBySession(ctx, sessionID, now)
}

func (db *DB) ListActiveProposalsByDateRange(ctx context.Context, window model.DateRange, now time.Time) ([]model.ProposedBooking, error) {
	return db.read().ListActiveProposalsByDateRange(ctx, window, now)
}

func (db *DB) CreateBooking(ctx context.Context, b *model.Booking) error {
	return db.write(ctx, func(tx store.Tx) error { return tx.CreateBooking(ctx, b) })
}

func (db *DB) UpdateBooking(ctx context.Context, b *model.Booking) error {
	return db.write(ctx, func(tx store.Tx) error { return tx.UpdateBooking(ctx, b) })
}

func (db *DB) DeleteBooking(ctx context.Context, id uint64) error {
	return db.write(ctx, func(tx store.Tx) error { return tx.DeleteBooking(ctx, id) })
}

func (db *DB) CreateBlockage(ctx context.Context, b *model.BlockageInstance) error {
	return db.write(ctx, func(tx store.Tx) error { return tx.CreateBlockage(ctx, b) })
}

func (db *DB) DeleteBlockage(ctx context.Context, id uint64) error {
	return db.write(ctx, func(tx store.Tx) error { return tx.DeleteBlockage(ctx, id) })
}

func (db *DB) CreateProposal(ctx context.Context, p *model.ProposedBooking) error {
	return db.write(ctx, func(tx store.Tx) error { return tx.CreateProposal(ctx, p) })
}

func (db *DB) DeleteProposal(ctx context.Context, id string) error {
	return db.write(ctx, func(tx store.Tx) error { return tx.DeleteProposal(ctx, id) })
}

func (db *DB) DeleteProposalsBySession(ctx context.Context, sessionID string) (n int, err error) {
	err = db.write(ctx, func(tx store.Tx) error {
		n, err = tx.DeleteProposalsBySession(ctx, sessionID)
		return err
	})
	return n, err
}

func (db *DB) DeleteExpiredProposals(ctx context.Context, now time.Time) (n int, err error) {
	err = db.write(ctx, func(tx store.Tx) error {
		n, err = tx.DeleteExpiredProposals(ctx, now)
		return err
	})
	return n, err
}

// LockRooms is a no-op: transactions already run one at a time.
func (db *DB) LockRooms(context.Context, []string) error { return nil }
