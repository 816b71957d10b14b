package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/iliyamo/lodge-booking/internal/model"
	"github.com/iliyamo/lodge-booking/internal/store"
)

// BlockageService manages administrative blockages.  Blockages take
// precedence over every booking and hold; creating one over existing
// bookings is allowed and only logged.
type BlockageService struct {
	store store.Store
	l     *log.Logger
	now   func() time.Time
}

// NewBlockageService returns a blockage service.
func NewBlockageService(st store.Store, l *log.Logger, now func() time.Time) *BlockageService {
	if l == nil {
		l = log.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &BlockageService{store: st, l: l, now: now}
}

// CreateBlockage blocks roomIDs (all rooms when empty) for the days of r.
func (s *BlockageService) CreateBlockage(ctx context.Context, r model.DateRange, roomIDs []string, reason string) (*model.BlockageInstance, error) {
	r = r.Normalize()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	b := &model.BlockageInstance{Range: r, Reason: reason, CreatedAt: s.now().UTC()}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		inventory, err := tx.ListRooms(ctx)
		if err != nil {
			return model.StorageError("list rooms", err)
		}
		byID := model.IndexRooms(inventory)
		for _, id := range roomIDs {
			if _, ok := byID[id]; !ok {
				return fmt.Errorf("room %s: %w", id, model.ErrRoomNotFound)
			}
		}
		b.RoomIDs = uniqueIDs(append([]string(nil), roomIDs...))
		sort.Strings(b.RoomIDs)

		affected, err := tx.ListAssignments(ctx, b.RoomIDs, r)
		if err != nil {
			return model.StorageError("list assignments", err)
		}
		if err := tx.CreateBlockage(ctx, b); err != nil {
			return model.StorageError("create blockage", err)
		}
		if len(affected) > 0 {
			s.l.Printf("blockage: %d covers %d booked room assignments", b.ID, len(affected))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// DeleteBlockage removes a blockage.
func (s *BlockageService) DeleteBlockage(ctx context.Context, id uint64) error {
	if err := s.store.DeleteBlockage(ctx, id); err != nil {
		return storageUnless("delete blockage", err, model.ErrBlockageNotFound)
	}
	return nil
}

// ListBlockages returns every blockage ordered by id.
func (s *BlockageService) ListBlockages(ctx context.Context) ([]model.BlockageInstance, error) {
	bs, err := s.store.ListBlockages(ctx)
	if err != nil {
		return nil, model.StorageError("list blockages", err)
	}
	return bs, nil
}
