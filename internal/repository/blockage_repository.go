package repository

import (
	"context"
	"time"

	"github.com/iliyamo/lodge-booking/internal/model"
)

// BlockageRepo persists blockages and the rooms they cover.  A blockage
// without blockage_rooms rows covers the whole property.
type BlockageRepo struct {
	q querier
}

// NewBlockageRepo returns a BlockageRepo bound to q.
func NewBlockageRepo(q querier) *BlockageRepo { return &BlockageRepo{q: q} }

// ListAll returns every blockage ordered by start date then id.
func (r *BlockageRepo) ListAll(ctx context.Context) ([]model.BlockageInstance, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, start_date, end_date, reason, created_at FROM blockages ORDER BY start_date, id`)
	if err != nil {
		return nil, err
	}
	var out []model.BlockageInstance
	index := map[uint64]int{}
	for rows.Next() {
		var b model.BlockageInstance
		if err := rows.Scan(&b.ID, &b.Range.Start, &b.Range.End, &b.Reason, &b.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		b.Range = b.Range.Normalize()
		index[b.ID] = len(out)
		out = append(out, b)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}

	rows, err = r.q.QueryContext(ctx, `SELECT blockage_id, room_id FROM blockage_rooms ORDER BY blockage_id, room_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id     uint64
			roomID string
		)
		if err := rows.Scan(&id, &roomID); err != nil {
			return nil, err
		}
		if i, ok := index[id]; ok {
			out[i].RoomIDs = append(out[i].RoomIDs, roomID)
		}
	}
	return out, rows.Err()
}

// Create inserts b and sets b.ID.  CreatedAt is kept when already set.
func (r *BlockageRepo) Create(ctx context.Context, b *model.BlockageInstance) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	b.CreatedAt = b.CreatedAt.UTC().Truncate(time.Microsecond)
	res, err := r.q.ExecContext(ctx, `INSERT INTO blockages (start_date, end_date, reason, created_at) VALUES (?, ?, ?, ?)`,
		day(b.Range.Start), day(b.Range.End), b.Reason, b.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	if len(b.RoomIDs) == 0 {
		return nil
	}
	query := `INSERT INTO blockage_rooms (blockage_id, room_id) VALUES `
	args := make([]any, 0, 2*len(b.RoomIDs))
	for i, roomID := range b.RoomIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, b.ID, roomID)
	}
	_, err = r.q.ExecContext(ctx, query, args...)
	return duplicateAsStorage("insert blockage rooms", err)
}

// Delete removes a blockage; its rooms cascade.
func (r *BlockageRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM blockages WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound("blockage", id, model.ErrBlockageNotFound)
	}
	return nil
}
