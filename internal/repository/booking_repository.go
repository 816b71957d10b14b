package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/lodge-booking/internal/model"
)

// BookingRepo stores confirmed bookings in the bookings table and their
// children in room_assignments and guest_records.  Children are deleted
// by ON DELETE CASCADE.
type BookingRepo struct {
	q querier
}

// NewBookingRepo returns a BookingRepo bound to q.
func NewBookingRepo(q querier) *BookingRepo { return &BookingRepo{q: q} }

// Guest modes stored in room_assignments.guest_mode.
const (
	guestModeUniform  = "uniform"
	guestModePerGuest = "per_guest"
)

const bookingColumns = `id, edit_token_hash, contact_name, contact_email, contact_phone, contact_notes,
	start_date, end_date, total_cents, price_locked, session_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(s rowScanner) (*model.Booking, error) {
	var b model.Booking
	var session sql.NullString
	err := s.Scan(&b.ID, &b.EditTokenHash, &b.Contact.Name, &b.Contact.Email, &b.Contact.Phone, &b.Contact.Notes,
		&b.Range.Start, &b.Range.End, &b.TotalCents, &b.PriceLocked, &session, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Range = b.Range.Normalize()
	b.SessionID = session.String
	return &b, nil
}

// Get returns one booking with its assignments and guests.
func (r *BookingRepo) Get(ctx context.Context, id uint64) (*model.Booking, error) {
	b, err := scanBooking(r.q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("booking", id, model.ErrBookingNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, []*model.Booking{b}); err != nil {
		return nil, err
	}
	return b, nil
}

// GetByEditToken looks a booking up by the digest of its edit token.
func (r *BookingRepo) GetByEditToken(ctx context.Context, tokenHash string) (*model.Booking, error) {
	if tokenHash == "" {
		return nil, model.ErrBookingNotFound
	}
	var id uint64
	err := r.q.QueryRowContext(ctx, `SELECT id FROM bookings WHERE edit_token_hash = ?`, tokenHash).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// ListAll returns every booking ordered by id.
func (r *BookingRepo) ListAll(ctx context.Context) ([]model.Booking, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var ptrs []*model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		ptrs = append(ptrs, b)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, ptrs); err != nil {
		return nil, err
	}
	out := make([]model.Booking, 0, len(ptrs))
	for _, b := range ptrs {
		out = append(out, *b)
	}
	return out, nil
}

// ListAssignments returns assignments overlapping window, optionally
// restricted to roomIDs, using the (room_id, start_date, end_date) index.
func (r *BookingRepo) ListAssignments(ctx context.Context, roomIDs []string, window model.DateRange) ([]model.RoomAssignment, error) {
	q := `SELECT booking_id, room_id, start_date, end_date, guest_mode, guest_class, adults, children, toddlers
	      FROM room_assignments WHERE start_date < ? AND end_date > ?`
	args := []any{day(window.End), day(window.Start)}
	if len(roomIDs) > 0 {
		q += ` AND room_id IN (` + placeholders(len(roomIDs)) + `)`
		args = append(args, stringArgs(roomIDs)...)
	}
	q += ` ORDER BY booking_id, room_id`
	out, err := r.scanAssignments(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	if err := r.attachPerGuest(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create inserts b and its children and sets b.ID and the timestamps.
// It must run inside a transaction.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	now := time.Now().UTC().Truncate(time.Microsecond)
	const q = `INSERT INTO bookings (edit_token_hash, contact_name, contact_email, contact_phone, contact_notes,
	           start_date, end_date, total_cents, price_locked, session_id, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.q.ExecContext(ctx, q, b.EditTokenHash, b.Contact.Name, b.Contact.Email, b.Contact.Phone, b.Contact.Notes,
		day(b.Range.Start), day(b.Range.End), b.TotalCents, b.PriceLocked, nullString(b.SessionID), now, now)
	if err != nil {
		return duplicateAsStorage("insert booking", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.CreatedAt, b.UpdatedAt = now, now
	return r.insertChildren(ctx, b)
}

// Update rewrites the booking row and replaces its children.  It must run
// inside a transaction.
func (r *BookingRepo) Update(ctx context.Context, b *model.Booking) error {
	var created time.Time
	err := r.q.QueryRowContext(ctx, `SELECT created_at FROM bookings WHERE id = ? FOR UPDATE`, b.ID).Scan(&created)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound("booking", b.ID, model.ErrBookingNotFound)
	}
	if err != nil {
		return err
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	const q = `UPDATE bookings SET edit_token_hash = ?, contact_name = ?, contact_email = ?, contact_phone = ?,
	           contact_notes = ?, start_date = ?, end_date = ?, total_cents = ?, price_locked = ?, session_id = ?,
	           updated_at = ? WHERE id = ?`
	if _, err := r.q.ExecContext(ctx, q, b.EditTokenHash, b.Contact.Name, b.Contact.Email, b.Contact.Phone, b.Contact.Notes,
		day(b.Range.Start), day(b.Range.End), b.TotalCents, b.PriceLocked, nullString(b.SessionID), now, b.ID); err != nil {
		return duplicateAsStorage("update booking", err)
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM room_assignments WHERE booking_id = ?`, b.ID); err != nil {
		return err
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM guest_records WHERE booking_id = ?`, b.ID); err != nil {
		return err
	}
	b.CreatedAt, b.UpdatedAt = created, now
	return r.insertChildren(ctx, b)
}

// Delete removes a booking; assignments and guests cascade.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound("booking", id, model.ErrBookingNotFound)
	}
	return nil
}

func (r *BookingRepo) insertChildren(ctx context.Context, b *model.Booking) error {
	if len(b.Rooms) > 0 {
		query := `INSERT INTO room_assignments (booking_id, room_id, start_date, end_date, guest_mode, guest_class, adults, children, toddlers) VALUES `
		args := make([]any, 0, len(b.Rooms)*9)
		for i := range b.Rooms {
			a := &b.Rooms[i]
			a.BookingID = b.ID
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?, ?, ?, ?, ?, ?)"
			mode, class := guestModeUniform, sql.NullString{}
			switch g := a.Guests.(type) {
			case model.Uniform:
				class = sql.NullString{String: string(g.Class), Valid: true}
			case model.PerGuest:
				mode = guestModePerGuest
			}
			c := countsOf(a.Guests)
			args = append(args, b.ID, a.RoomID, day(a.Range.Start), day(a.Range.End), mode, class, c.Adults, c.Children, c.Toddlers)
		}
		if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	if len(b.Guests) > 0 {
		query := `INSERT INTO guest_records (booking_id, person_type, first_name, last_name, order_index, room_id, guest_class) VALUES `
		args := make([]any, 0, len(b.Guests)*7)
		for i := range b.Guests {
			g := &b.Guests[i]
			g.BookingID = b.ID
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?, ?, ?, ?)"
			args = append(args, b.ID, string(g.PersonType), g.FirstName, g.LastName, g.OrderIndex, nullStringPtr(g.RoomID), nullClass(g.Class))
		}
		if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}

// loadChildren fills Rooms and Guests of the given bookings.
func (r *BookingRepo) loadChildren(ctx context.Context, bs []*model.Booking) error {
	if len(bs) == 0 {
		return nil
	}
	byID := make(map[uint64]*model.Booking, len(bs))
	ids := make([]any, 0, len(bs))
	for _, b := range bs {
		byID[b.ID] = b
		ids = append(ids, b.ID)
	}

	guests, err := r.scanGuests(ctx, `SELECT booking_id, person_type, first_name, last_name, order_index, room_id, guest_class
		FROM guest_records WHERE booking_id IN (`+placeholders(len(ids))+`)`, ids...)
	if err != nil {
		return err
	}
	for _, g := range guests {
		if b := byID[g.BookingID]; b != nil {
			b.Guests = append(b.Guests, g)
		}
	}

	rooms, err := r.scanAssignments(ctx, `SELECT booking_id, room_id, start_date, end_date, guest_mode, guest_class, adults, children, toddlers
		FROM room_assignments WHERE booking_id IN (`+placeholders(len(ids))+`) ORDER BY booking_id, room_id`, ids...)
	if err != nil {
		return err
	}
	for _, a := range rooms {
		b := byID[a.BookingID]
		if b == nil {
			continue
		}
		if _, ok := a.Guests.(model.PerGuest); ok {
			a.Guests = model.PerGuest{Guests: roomGuests(b.Guests, a.RoomID)}
		}
		b.Rooms = append(b.Rooms, a)
	}
	for _, b := range bs {
		model.SortGuests(b.Guests)
	}
	return nil
}

// attachPerGuest loads guest records for per-guest assignments.
func (r *BookingRepo) attachPerGuest(ctx context.Context, rooms []model.RoomAssignment) error {
	var ids []any
	seen := map[uint64]bool{}
	for _, a := range rooms {
		if _, ok := a.Guests.(model.PerGuest); ok && !seen[a.BookingID] {
			seen[a.BookingID] = true
			ids = append(ids, a.BookingID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	guests, err := r.scanGuests(ctx, `SELECT booking_id, person_type, first_name, last_name, order_index, room_id, guest_class
		FROM guest_records WHERE room_id IS NOT NULL AND booking_id IN (`+placeholders(len(ids))+`)`, ids...)
	if err != nil {
		return err
	}
	byBooking := map[uint64][]model.GuestRecord{}
	for _, g := range guests {
		byBooking[g.BookingID] = append(byBooking[g.BookingID], g)
	}
	for i, a := range rooms {
		if _, ok := a.Guests.(model.PerGuest); ok {
			rooms[i].Guests = model.PerGuest{Guests: roomGuests(byBooking[a.BookingID], a.RoomID)}
		}
	}
	return nil
}

func (r *BookingRepo) scanAssignments(ctx context.Context, q string, args ...any) ([]model.RoomAssignment, error) {
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RoomAssignment
	for rows.Next() {
		var (
			a     model.RoomAssignment
			mode  string
			class sql.NullString
			c     model.Counts
		)
		if err := rows.Scan(&a.BookingID, &a.RoomID, &a.Range.Start, &a.Range.End, &mode, &class, &c.Adults, &c.Children, &c.Toddlers); err != nil {
			return nil, err
		}
		a.Range = a.Range.Normalize()
		if mode == guestModePerGuest {
			a.Guests = model.PerGuest{}
		} else {
			a.Guests = model.Uniform{Class: model.GuestClass(class.String), Adults: c.Adults, Children: c.Children, Toddlers: c.Toddlers}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *BookingRepo) scanGuests(ctx context.Context, q string, args ...any) ([]model.GuestRecord, error) {
	rows, err := r.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.GuestRecord
	for rows.Next() {
		var (
			g      model.GuestRecord
			roomID sql.NullString
			class  sql.NullString
		)
		if err := rows.Scan(&g.BookingID, &g.PersonType, &g.FirstName, &g.LastName, &g.OrderIndex, &roomID, &class); err != nil {
			return nil, err
		}
		if roomID.Valid {
			id := roomID.String
			g.RoomID = &id
		}
		if class.Valid {
			c := model.GuestClass(class.String)
			g.Class = &c
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func roomGuests(all []model.GuestRecord, roomID string) []model.GuestRecord {
	var out []model.GuestRecord
	for _, g := range all {
		if g.RoomID != nil && *g.RoomID == roomID {
			out = append(out, g)
		}
	}
	out = model.CloneGuests(out)
	model.SortGuests(out)
	return out
}

func countsOf(g model.GuestComposition) model.Counts {
	if g == nil {
		return model.Counts{}
	}
	return g.Counts()
}

func nullString(s string) sql.NullString { return sql.NullString{String: s, Valid: s != ""} }

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullClass(c *model.GuestClass) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*c), Valid: true}
}
