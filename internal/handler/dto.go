package handler

import (
	"fmt"
	"time"

	"github.com/iliyamo/lodge-booking/internal/availability"
	"github.com/iliyamo/lodge-booking/internal/model"
	"github.com/iliyamo/lodge-booking/internal/service"
)

// Guest modes on the wire.
const (
	modeUniform  = "uniform"
	modePerGuest = "per_guest"
)

// guestDTO is one named guest.
type guestDTO struct {
	PersonType string  `json:"person_type"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	OrderIndex int     `json:"order_index"`
	RoomID     *string `json:"room_id,omitempty"`
	Class      *string `json:"guest_class,omitempty"`
}

// guestsDTO is the wire form of a guest composition: either a uniform
// head count or a list of individually classed guests.
type guestsDTO struct {
	Mode     string     `json:"mode"`
	Class    string     `json:"guest_class,omitempty"`
	Adults   uint       `json:"adults"`
	Children uint       `json:"children"`
	Toddlers uint       `json:"toddlers"`
	Guests   []guestDTO `json:"guests,omitempty"`
}

func (g *guestsDTO) composition() (model.GuestComposition, error) {
	if g == nil {
		return nil, nil
	}
	switch g.Mode {
	case modeUniform, "":
		return model.Uniform{Class: model.GuestClass(g.Class), Adults: g.Adults, Children: g.Children, Toddlers: g.Toddlers}, nil
	case modePerGuest:
		return model.PerGuest{Guests: guestRecords(g.Guests)}, nil
	default:
		return nil, fmt.Errorf("%w: unknown guest mode %q", model.ErrInvalidGuests, g.Mode)
	}
}

func guestRecords(in []guestDTO) []model.GuestRecord {
	if len(in) == 0 {
		return nil
	}
	out := make([]model.GuestRecord, 0, len(in))
	for _, g := range in {
		r := model.GuestRecord{
			PersonType: model.PersonType(g.PersonType),
			FirstName:  g.FirstName,
			LastName:   g.LastName,
			OrderIndex: g.OrderIndex,
			RoomID:     g.RoomID,
		}
		if g.Class != nil {
			c := model.GuestClass(*g.Class)
			r.Class = &c
		}
		out = append(out, r)
	}
	return out
}

func toGuestDTOs(in []model.GuestRecord) []guestDTO {
	out := make([]guestDTO, 0, len(in))
	for _, g := range in {
		d := guestDTO{
			PersonType: string(g.PersonType),
			FirstName:  g.FirstName,
			LastName:   g.LastName,
			OrderIndex: g.OrderIndex,
			RoomID:     g.RoomID,
		}
		if g.Class != nil {
			c := string(*g.Class)
			d.Class = &c
		}
		out = append(out, d)
	}
	return out
}

func toGuestsDTO(g model.GuestComposition) *guestsDTO {
	switch v := g.(type) {
	case model.Uniform:
		return &guestsDTO{Mode: modeUniform, Class: string(v.Class), Adults: v.Adults, Children: v.Children, Toddlers: v.Toddlers}
	case model.PerGuest:
		c := v.Counts()
		return &guestsDTO{Mode: modePerGuest, Adults: c.Adults, Children: c.Children, Toddlers: c.Toddlers, Guests: toGuestDTOs(v.Guests)}
	}
	return nil
}

// parseRange parses YYYY-MM-DD bounds.  Order is checked by the core.
func parseRange(start, end string) (model.DateRange, error) {
	s, err := model.ParseDay(start)
	if err != nil {
		return model.DateRange{}, fmt.Errorf("%w: start: %v", model.ErrInvalidDateRange, err)
	}
	e, err := model.ParseDay(end)
	if err != nil {
		return model.DateRange{}, fmt.Errorf("%w: end: %v", model.ErrInvalidDateRange, err)
	}
	return model.NewDateRange(s, e), nil
}

func date(t time.Time) string { return t.Format(model.DateLayout) }

type roomRequest struct {
	RoomID string     `json:"room_id"`
	Start  string     `json:"start,omitempty"`
	End    string     `json:"end,omitempty"`
	Guests *guestsDTO `json:"guests,omitempty"`
}

type bookingRequest struct {
	ProposalID string        `json:"proposal_id,omitempty"`
	Contact    model.Contact `json:"contact"`
	Start      string        `json:"start"`
	End        string        `json:"end"`
	Rooms      []roomRequest `json:"rooms"`
	Guests     []guestDTO    `json:"guests,omitempty"`
	Reprice    bool          `json:"reprice,omitempty"`
}

// input converts the request into the service's input.
func (r bookingRequest) input(sessionID string) (service.BookingInput, error) {
	stay, err := parseRange(r.Start, r.End)
	if err != nil {
		return service.BookingInput{}, err
	}
	in := service.BookingInput{
		SessionID:  sessionID,
		ProposalID: r.ProposalID,
		Contact:    r.Contact,
		Range:      stay,
		Guests:     guestRecords(r.Guests),
		Reprice:    r.Reprice,
	}
	for _, rr := range r.Rooms {
		ri := service.RoomInput{RoomID: rr.RoomID}
		if rr.Start != "" || rr.End != "" {
			own, err := parseRange(rr.Start, rr.End)
			if err != nil {
				return service.BookingInput{}, fmt.Errorf("room %s: %w", rr.RoomID, err)
			}
			ri.Range = &own
		}
		if ri.Guests, err = rr.Guests.composition(); err != nil {
			return service.BookingInput{}, err
		}
		if ri.Guests == nil {
			return service.BookingInput{}, fmt.Errorf("%w: room %s has no guests", model.ErrInvalidGuests, rr.RoomID)
		}
		in.Rooms = append(in.Rooms, ri)
	}
	return in, nil
}

type roomResponse struct {
	RoomID string     `json:"room_id"`
	Start  string     `json:"start"`
	End    string     `json:"end"`
	Guests *guestsDTO `json:"guests"`
}

type bookingResponse struct {
	ID          uint64         `json:"id"`
	Contact     model.Contact  `json:"contact"`
	Start       string         `json:"start"`
	End         string         `json:"end"`
	Rooms       []roomResponse `json:"rooms"`
	Guests      []guestDTO     `json:"guests"`
	TotalCents  int64          `json:"total_cents"`
	PriceLocked bool           `json:"price_locked"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	EditToken   string         `json:"edit_token,omitempty"`
}

func toBookingResponse(b *model.Booking, token string) bookingResponse {
	out := bookingResponse{
		ID:          b.ID,
		Contact:     b.Contact,
		Start:       date(b.Range.Start),
		End:         date(b.Range.End),
		Rooms:       make([]roomResponse, 0, len(b.Rooms)),
		Guests:      toGuestDTOs(b.Guests),
		TotalCents:  b.TotalCents,
		PriceLocked: b.PriceLocked,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
		EditToken:   token,
	}
	for _, a := range b.Rooms {
		out.Rooms = append(out.Rooms, roomResponse{
			RoomID: a.RoomID,
			Start:  date(a.Range.Start),
			End:    date(a.Range.End),
			Guests: toGuestsDTO(a.Guests),
		})
	}
	return out
}

type holdRequest struct {
	Start   string     `json:"start"`
	End     string     `json:"end"`
	RoomIDs []string   `json:"room_ids"`
	Guests  *guestsDTO `json:"guests,omitempty"`
}

type holdResponse struct {
	ID         string     `json:"id"`
	Start      string     `json:"start"`
	End        string     `json:"end"`
	RoomIDs    []string   `json:"room_ids"`
	Guests     *guestsDTO `json:"guests,omitempty"`
	TotalCents *int64     `json:"total_cents,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

func toHoldResponse(p *model.ProposedBooking) holdResponse {
	return holdResponse{
		ID:         p.ID,
		Start:      date(p.Range.Start),
		End:        date(p.Range.End),
		RoomIDs:    p.RoomIDs,
		Guests:     toGuestsDTO(p.Guests),
		TotalCents: p.TotalCents,
		CreatedAt:  p.CreatedAt,
		ExpiresAt:  p.ExpiresAt,
	}
}

type blockageRequest struct {
	Start   string   `json:"start"`
	End     string   `json:"end"`
	RoomIDs []string `json:"room_ids"`
	Reason  string   `json:"reason"`
}

type blockageResponse struct {
	ID        uint64    `json:"id"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	RoomIDs   []string  `json:"room_ids"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func toBlockageResponse(b model.BlockageInstance) blockageResponse {
	ids := b.RoomIDs
	if ids == nil {
		ids = []string{}
	}
	return blockageResponse{
		ID:        b.ID,
		Start:     date(b.Range.Start),
		End:       date(b.Range.End),
		RoomIDs:   ids,
		Reason:    b.Reason,
		CreatedAt: b.CreatedAt,
	}
}

type dayResponse struct {
	Date   string                 `json:"date"`
	Kind   availability.Kind      `json:"kind"`
	Before availability.Occupancy `json:"before"`
	After  availability.Occupancy `json:"after"`
	Mixed  bool                   `json:"mixed,omitempty"`
}

type roomCalendarResponse struct {
	RoomID string        `json:"room_id"`
	Days   []dayResponse `json:"days"`
}

type calendarResponse struct {
	From  string                 `json:"from"`
	To    string                 `json:"to"`
	Rooms []roomCalendarResponse `json:"rooms"`
}

func toCalendarResponse(cal availability.Calendar) calendarResponse {
	out := calendarResponse{
		From:  date(cal.Window.Start),
		To:    date(cal.Window.End),
		Rooms: make([]roomCalendarResponse, 0, len(cal.Rooms)),
	}
	for _, rc := range cal.Rooms {
		row := roomCalendarResponse{RoomID: rc.RoomID, Days: make([]dayResponse, 0, len(rc.Days))}
		for _, st := range rc.Days {
			row.Days = append(row.Days, dayResponse{
				Date:   date(st.Date),
				Kind:   st.Kind,
				Before: st.Before,
				After:  st.After,
				Mixed:  st.Mixed,
			})
		}
		out.Rooms = append(out.Rooms, row)
	}
	return out
}
