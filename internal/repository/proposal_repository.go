package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/lodge-booking/internal/model"
)

// ProposalRepo persists holds in proposed_bookings with their rooms in
// proposed_booking_rooms and named guests in proposed_booking_guests.
// Expiry is compared against the caller's clock, never NOW().
type ProposalRepo struct {
	q querier
}

// NewProposalRepo returns a ProposalRepo bound to q.
func NewProposalRepo(q querier) *ProposalRepo { return &ProposalRepo{q: q} }

const proposalColumns = `id, session_id, start_date, end_date, guest_mode, guest_class, adults, children, toddlers,
	total_cents, created_at, expires_at`

func scanProposal(s rowScanner) (*model.ProposedBooking, error) {
	var (
		p     model.ProposedBooking
		mode  sql.NullString
		class sql.NullString
		c     model.Counts
		total sql.NullInt64
	)
	if err := s.Scan(&p.ID, &p.SessionID, &p.Range.Start, &p.Range.End, &mode, &class,
		&c.Adults, &c.Children, &c.Toddlers, &total, &p.CreatedAt, &p.ExpiresAt); err != nil {
		return nil, err
	}
	p.Range = p.Range.Normalize()
	switch mode.String {
	case guestModeUniform:
		p.Guests = model.Uniform{Class: model.GuestClass(class.String), Adults: c.Adults, Children: c.Children, Toddlers: c.Toddlers}
	case guestModePerGuest:
		p.Guests = model.PerGuest{}
	}
	if total.Valid {
		v := total.Int64
		p.TotalCents = &v
	}
	return &p, nil
}

// Get returns a hold whether or not it has expired.
func (r *ProposalRepo) Get(ctx context.Context, id string) (*model.ProposedBooking, error) {
	p, err := scanProposal(r.q.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM proposed_bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("proposal", id, model.ErrProposalNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, []*model.ProposedBooking{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// ListActiveBySession returns the session's holds that expire after now.
func (r *ProposalRepo) ListActiveBySession(ctx context.Context, sessionID string, now time.Time) ([]model.ProposedBooking, error) {
	return r.list(ctx, `SELECT `+proposalColumns+` FROM proposed_bookings
		WHERE session_id = ? AND expires_at > ? ORDER BY created_at, id`, sessionID, now.UTC())
}

// ListActiveByDateRange returns unexpired holds whose nights overlap window.
func (r *ProposalRepo) ListActiveByDateRange(ctx context.Context, window model.DateRange, now time.Time) ([]model.ProposedBooking, error) {
	return r.list(ctx, `SELECT `+proposalColumns+` FROM proposed_bookings
		WHERE start_date < ? AND end_date > ? AND expires_at > ? ORDER BY created_at, id`,
		day(window.End), day(window.Start), now.UTC())
}

// Create inserts the hold.  A duplicate id is a storage error.
func (r *ProposalRepo) Create(ctx context.Context, p *model.ProposedBooking) error {
	var (
		mode  sql.NullString
		class sql.NullString
		total sql.NullInt64
	)
	switch g := p.Guests.(type) {
	case model.Uniform:
		mode = sql.NullString{String: guestModeUniform, Valid: true}
		class = sql.NullString{String: string(g.Class), Valid: true}
	case model.PerGuest:
		mode = sql.NullString{String: guestModePerGuest, Valid: true}
	}
	if p.TotalCents != nil {
		total = sql.NullInt64{Int64: *p.TotalCents, Valid: true}
	}
	c := countsOf(p.Guests)
	const q = `INSERT INTO proposed_bookings (id, session_id, start_date, end_date, guest_mode, guest_class,
	           adults, children, toddlers, total_cents, created_at, expires_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.q.ExecContext(ctx, q, p.ID, p.SessionID, day(p.Range.Start), day(p.Range.End), mode, class,
		c.Adults, c.Children, c.Toddlers, total, p.CreatedAt.UTC(), p.ExpiresAt.UTC()); err != nil {
		if isDuplicate(err) {
			return model.StorageError("insert proposal "+p.ID, err)
		}
		return err
	}

	if len(p.RoomIDs) > 0 {
		query := `INSERT INTO proposed_booking_rooms (proposal_id, room_id) VALUES `
		args := make([]any, 0, 2*len(p.RoomIDs))
		for i, roomID := range p.RoomIDs {
			if i > 0 {
				query += ","
			}
			query += "(?, ?)"
			args = append(args, p.ID, roomID)
		}
		if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	if pg, ok := p.Guests.(model.PerGuest); ok && len(pg.Guests) > 0 {
		query := `INSERT INTO proposed_booking_guests (proposal_id, person_type, first_name, last_name, order_index, room_id, guest_class) VALUES `
		args := make([]any, 0, 7*len(pg.Guests))
		for i, g := range pg.Guests {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?, ?, ?, ?)"
			args = append(args, p.ID, string(g.PersonType), g.FirstName, g.LastName, g.OrderIndex, nullStringPtr(g.RoomID), nullClass(g.Class))
		}
		if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes one hold.
func (r *ProposalRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM proposed_bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound("proposal", id, model.ErrProposalNotFound)
	}
	return nil
}

// DeleteBySession removes every hold of the session, expired or not.
func (r *ProposalRepo) DeleteBySession(ctx context.Context, sessionID string) (int, error) {
	return r.exec(ctx, `DELETE FROM proposed_bookings WHERE session_id = ?`, sessionID)
}

// DeleteExpired removes holds whose expiry is not after now.
func (r *ProposalRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return r.exec(ctx, `DELETE FROM proposed_bookings WHERE expires_at <= ?`, now.UTC())
}

func (r *ProposalRepo) exec(ctx context.Context, q string, args ...any) (int, error) {
	res, err := r.q.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *ProposalRepo) list(ctx context.Context, q string, args ...any) ([]model.ProposedBooking, error) {
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var ptrs []*model.ProposedBooking
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		ptrs = append(ptrs, p)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, ptrs); err != nil {
		return nil, err
	}
	out := make([]model.ProposedBooking, 0, len(ptrs))
	for _, p := range ptrs {
		out = append(out, *p)
	}
	return out, nil
}

func (r *ProposalRepo) loadChildren(ctx context.Context, ps []*model.ProposedBooking) error {
	if len(ps) == 0 {
		return nil
	}
	byID := make(map[string]*model.ProposedBooking, len(ps))
	ids := make([]string, 0, len(ps))
	for _, p := range ps {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	rows, err := r.q.QueryContext(ctx, `SELECT proposal_id, room_id FROM proposed_booking_rooms
		WHERE proposal_id IN (`+placeholders(len(ids))+`) ORDER BY proposal_id, room_id`, stringArgs(ids)...)
	if err != nil {
		return err
	}
	for rows.Next() {
		var id, roomID string
		if err := rows.Scan(&id, &roomID); err != nil {
			rows.Close()
			return err
		}
		if p := byID[id]; p != nil {
			p.RoomIDs = append(p.RoomIDs, roomID)
		}
	}
	if err := rows.Close(); err != nil {
		return err
	}

	rows, err = r.q.QueryContext(ctx, `SELECT proposal_id, person_type, first_name, last_name, order_index, room_id, guest_class
		FROM proposed_booking_guests WHERE proposal_id IN (`+placeholders(len(ids))+`)`, stringArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	guests := map[string][]model.GuestRecord{}
	for rows.Next() {
		var (
			id     string
			g      model.GuestRecord
			roomID sql.NullString
			class  sql.NullString
		)
		if err := rows.Scan(&id, &g.PersonType, &g.FirstName, &g.LastName, &g.OrderIndex, &roomID, &class); err != nil {
			return err
		}
		if roomID.Valid {
			v := roomID.String
			g.RoomID = &v
		}
		if class.Valid {
			v := model.GuestClass(class.String)
			g.Class = &v
		}
		guests[id] = append(guests[id], g)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for id, gs := range guests {
		p := byID[id]
		if _, ok := p.Guests.(model.PerGuest); ok {
			model.SortGuests(gs)
			p.Guests = model.PerGuest{Guests: gs}
		}
	}
	return nil
}
