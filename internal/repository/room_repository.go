package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/iliyamo/lodge-booking/internal/model"
)

// RoomRepo provides access to the rooms table.  Rooms are reference data:
// the service reads them on every request and administrators edit them
// through seed files.
type RoomRepo struct {
	q querier
}

// NewRoomRepo returns a RoomRepo bound to q.
func NewRoomRepo(q querier) *RoomRepo { return &RoomRepo{q: q} }

// ListAll returns every room ordered by id.
func (r *RoomRepo) ListAll(ctx context.Context) ([]model.Room, error) {
	const q = `SELECT id, display_name, tier, bed_count FROM rooms ORDER BY id`
	rows, err := r.q.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Room
	for rows.Next() {
		var rm model.Room
		if err := rows.Scan(&rm.ID, &rm.DisplayName, &rm.Tier, &rm.BedCount); err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

// Upsert inserts the rooms or updates their name, tier and bed count.
func (r *RoomRepo) Upsert(ctx context.Context, rooms []model.Room) error {
	if len(rooms) == 0 {
		return nil
	}
	query := `INSERT INTO rooms (id, display_name, tier, bed_count) VALUES `
	args := make([]any, 0, len(rooms)*4)
	for i, rm := range rooms {
		if !rm.Tier.Valid() {
			return fmt.Errorf("room %s: unknown tier %q", rm.ID, rm.Tier)
		}
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, rm.ID, rm.DisplayName, string(rm.Tier), rm.BedCount)
	}
	query += ` ON DUPLICATE KEY UPDATE display_name = VALUES(display_name), tier = VALUES(tier), bed_count = VALUES(bed_count)`
	_, err := r.q.ExecContext(ctx, query, args...)
	return err
}

// LockForUpdate takes row locks on the given rooms in id order.  Every
// writer locks in the same order, so concurrent writers wait instead of
// deadlocking.  The locks are released when the transaction ends.
func (r *RoomRepo) LockForUpdate(ctx context.Context, roomIDs []string) error {
	if len(roomIDs) == 0 {
		return nil
	}
	ids := append([]string(nil), roomIDs...)
	sort.Strings(ids)
	q := `SELECT id FROM rooms WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id FOR UPDATE`
	rows, err := r.q.QueryContext(ctx, q, stringArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
	}
	return rows.Err()
}
