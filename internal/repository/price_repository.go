package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/lodge-booking/internal/model"
)

// PriceRepo reads and replaces the price table.  room_rates holds one row
// per class and tier, bulk_rates a single row with id 1 and
// bulk_guest_rates the per-class bulk surcharges.
type PriceRepo struct {
	q querier
}

// NewPriceRepo returns a PriceRepo bound to q.
func NewPriceRepo(q querier) *PriceRepo { return &PriceRepo{q: q} }

// Get loads the full price table and validates it.
func (r *PriceRepo) Get(ctx context.Context) (model.PriceConfig, error) {
	cfg := model.PriceConfig{Rooms: map[model.GuestClass]map[model.RoomTier]model.RoomRate{}}

	rows, err := r.q.QueryContext(ctx, `SELECT guest_class, tier, empty_room_cents, adult_cents, child_cents FROM room_rates`)
	if err != nil {
		return cfg, err
	}
	for rows.Next() {
		var (
			class model.GuestClass
			tier  model.RoomTier
			rate  model.RoomRate
		)
		if err := rows.Scan(&class, &tier, &rate.EmptyRoomCents, &rate.AdultCents, &rate.ChildCents); err != nil {
			rows.Close()
			return cfg, err
		}
		if cfg.Rooms[class] == nil {
			cfg.Rooms[class] = map[model.RoomTier]model.RoomRate{}
		}
		cfg.Rooms[class][tier] = rate
	}
	if err := rows.Close(); err != nil {
		return cfg, err
	}

	if err := r.q.QueryRowContext(ctx, `SELECT base_cents FROM bulk_rates WHERE id = 1`).Scan(&cfg.Bulk.BaseCents); err != nil {
		return cfg, fmt.Errorf("load bulk rate: %w", err)
	}

	rows, err = r.q.QueryContext(ctx, `SELECT guest_class, adult_cents, child_cents FROM bulk_guest_rates`)
	if err != nil {
		return cfg, err
	}
	defer rows.Close()
	cfg.Bulk.AdultCents = map[model.GuestClass]int64{}
	cfg.Bulk.ChildCents = map[model.GuestClass]int64{}
	for rows.Next() {
		var (
			class        model.GuestClass
			adult, child int64
		)
		if err := rows.Scan(&class, &adult, &child); err != nil {
			return cfg, err
		}
		cfg.Bulk.AdultCents[class] = adult
		cfg.Bulk.ChildCents[class] = child
	}
	if err := rows.Err(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("stored price table: %w", err)
	}
	return cfg, nil
}

// Replace overwrites the stored table with cfg.  Run it inside a
// transaction so readers never see a half-written table.
func (r *PriceRepo) Replace(ctx context.Context, cfg model.PriceConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	for _, stmt := range []string{`DELETE FROM room_rates`, `DELETE FROM bulk_guest_rates`} {
		if _, err := r.q.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for class, byTier := range cfg.Rooms {
		for tier, rate := range byTier {
			if _, err := r.q.ExecContext(ctx,
				`INSERT INTO room_rates (guest_class, tier, empty_room_cents, adult_cents, child_cents) VALUES (?, ?, ?, ?, ?)`,
				string(class), string(tier), rate.EmptyRoomCents, rate.AdultCents, rate.ChildCents); err != nil {
				return err
			}
		}
	}
	if _, err := r.q.ExecContext(ctx,
		`INSERT INTO bulk_rates (id, base_cents) VALUES (1, ?) ON DUPLICATE KEY UPDATE base_cents = VALUES(base_cents)`,
		cfg.Bulk.BaseCents); err != nil {
		return err
	}
	for _, class := range []model.GuestClass{model.ClassSubsidized, model.ClassExternal} {
		if _, err := r.q.ExecContext(ctx,
			`INSERT INTO bulk_guest_rates (guest_class, adult_cents, child_cents) VALUES (?, ?, ?)`,
			string(class), cfg.Bulk.AdultCents[class], cfg.Bulk.ChildCents[class]); err != nil {
			return err
		}
	}
	return nil
}
