// Package pricing computes the price of a stay from the static price
// table.  Every function here is pure: the same inputs always produce the
// same quote and nothing is read from or written to the store.
package pricing

import (
	"fmt"

	"github.com/iliyamo/lodge-booking/internal/model"
)

// Mode tells which pricing model produced a quote.
type Mode string

const (
	// ModeRooms prices each room by its tier and guests.
	ModeRooms Mode = "rooms"
	// ModeBulk prices a whole-property booking at the flat bulk rate.
	ModeBulk Mode = "bulk"
)

// RoomQuote is the price of one room assignment.
type RoomQuote struct {
	RoomID       string           `json:"room_id"`
	Nights       int              `json:"nights"`
	BaseClass    model.GuestClass `json:"base_class"`
	PerGuest     bool             `json:"per_guest"`
	NightlyCents int64            `json:"nightly_cents"`
	TotalCents   int64            `json:"total_cents"`
}

// Quote is a full price breakdown.  For bulk quotes Rooms is empty and
// Nights/NightlyCents describe the whole property.
type Quote struct {
	Mode         Mode        `json:"mode"`
	Nights       int         `json:"nights,omitempty"`
	NightlyCents int64       `json:"nightly_cents,omitempty"`
	Rooms        []RoomQuote `json:"rooms,omitempty"`
	TotalCents   int64       `json:"total_cents"`
}

// Calculator prices stays with a fixed price table.
type Calculator struct {
	cfg model.PriceConfig
}

// New returns a calculator for cfg.
func New(cfg model.PriceConfig) *Calculator { return &Calculator{cfg: cfg} }

// Quote prices a set of room assignments.  inventory is the complete
// current room list; it resolves tiers and decides whether the booking is
// a bulk booking.  stay is the booking's overall range.
func (c *Calculator) Quote(inventory []model.Room, stay model.DateRange, rooms []model.RoomAssignment) (Quote, error) {
	if len(rooms) == 0 {
		return Quote{}, model.ErrNoRooms
	}
	if IsBulk(inventory, stay, rooms) {
		nightly := c.BulkNightly(rooms)
		nights := stay.Nights()
		return Quote{
			Mode:         ModeBulk,
			Nights:       nights,
			NightlyCents: nightly,
			TotalCents:   nightly * int64(nights),
		}, nil
	}

	byID := model.IndexRooms(inventory)
	q := Quote{Mode: ModeRooms, Rooms: make([]RoomQuote, 0, len(rooms))}
	for _, a := range rooms {
		room, ok := byID[a.RoomID]
		if !ok {
			return Quote{}, fmt.Errorf("room %s: %w", a.RoomID, model.ErrRoomNotFound)
		}
		nightly, base, err := c.RoomNightly(room, a.Guests)
		if err != nil {
			return Quote{}, err
		}
		_, perGuest := a.Guests.(model.PerGuest)
		nights := a.Range.Nights()
		rq := RoomQuote{
			RoomID:       a.RoomID,
			Nights:       nights,
			BaseClass:    base,
			PerGuest:     perGuest,
			NightlyCents: nightly,
			TotalCents:   nightly * int64(nights),
		}
		q.Rooms = append(q.Rooms, rq)
		q.TotalCents += rq.TotalCents
	}
	return q, nil
}

// RoomNightly returns the nightly price of one room and the class its
// empty-room charge was taken from.
//
// A uniform composition charges everything at its class.  A per-guest
// composition takes the empty-room charge from the subsidized row when at
// least one adult or child in the room is subsidized, and charges each
// guest's own surcharge at that guest's class.  Toddlers are free.
func (c *Calculator) RoomNightly(room model.Room, guests model.GuestComposition) (int64, model.GuestClass, error) {
	switch g := guests.(type) {
	case model.Uniform:
		rate, err := c.cfg.Rate(g.Class, room.Tier)
		if err != nil {
			return 0, "", err
		}
		nightly := rate.EmptyRoomCents + int64(g.Adults)*rate.AdultCents + int64(g.Children)*rate.ChildCents
		return nightly, g.Class, nil
	case model.PerGuest:
		base := roomClass(g.Guests)
		rate, err := c.cfg.Rate(base, room.Tier)
		if err != nil {
			return 0, "", err
		}
		nightly := rate.EmptyRoomCents
		for _, guest := range g.Guests {
			if guest.PersonType == model.PersonToddler {
				continue
			}
			own, err := c.cfg.Rate(guest.EffectiveClass(), room.Tier)
			if err != nil {
				return 0, "", err
			}
			switch guest.PersonType {
			case model.PersonAdult:
				nightly += own.AdultCents
			case model.PersonChild:
				nightly += own.ChildCents
			}
		}
		return nightly, base, nil
	default:
		return 0, "", fmt.Errorf("room %s: %w", room.ID, model.ErrInvalidGuests)
	}
}

// BulkNightly is the flat whole-property nightly price: the bulk base
// plus every adult and child at the bulk rate of their class.
func (c *Calculator) BulkNightly(rooms []model.RoomAssignment) int64 {
	nightly := c.cfg.Bulk.BaseCents
	for _, a := range rooms {
		switch g := a.Guests.(type) {
		case model.Uniform:
			nightly += int64(g.Adults)*c.cfg.Bulk.AdultCents[g.Class] + int64(g.Children)*c.cfg.Bulk.ChildCents[g.Class]
		case model.PerGuest:
			for _, guest := range g.Guests {
				switch guest.PersonType {
				case model.PersonAdult:
					nightly += c.cfg.Bulk.AdultCents[guest.EffectiveClass()]
				case model.PersonChild:
					nightly += c.cfg.Bulk.ChildCents[guest.EffectiveClass()]
				}
			}
		}
	}
	return nightly
}

// IsBulk reports whether the assignments book the entire inventory for
// one contiguous stay.  Rooms with their own check-in or check-out day
// make the booking an ordinary per-room booking.
func IsBulk(inventory []model.Room, stay model.DateRange, rooms []model.RoomAssignment) bool {
	if len(inventory) == 0 || len(rooms) != len(inventory) {
		return false
	}
	seen := make(map[string]bool, len(rooms))
	for _, a := range rooms {
		if seen[a.RoomID] || !a.Range.Equal(stay) {
			return false
		}
		seen[a.RoomID] = true
	}
	for _, r := range inventory {
		if !seen[r.ID] {
			return false
		}
	}
	return true
}

func roomClass(guests []model.GuestRecord) model.GuestClass {
	for _, g := range guests {
		if g.PersonType != model.PersonToddler && g.EffectiveClass() == model.ClassSubsidized {
			return model.ClassSubsidized
		}
	}
	return model.ClassExternal
}
