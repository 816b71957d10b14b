package model

import (
	"fmt"
	"sort"
)

// GuestClass is the pricing class of a guest.  Subsidized guests pay the
// reduced rate; everybody else is external.
type GuestClass string

const (
	ClassSubsidized GuestClass = "subsidized"
	ClassExternal   GuestClass = "external"
)

// Valid reports whether c is a known class.
func (c GuestClass) Valid() bool { return c == ClassSubsidized || c == ClassExternal }

// PersonType classifies a guest by age group.
type PersonType string

const (
	PersonAdult   PersonType = "adult"
	PersonChild   PersonType = "child"
	PersonToddler PersonType = "toddler"
)

// Valid reports whether p is a known person type.
func (p PersonType) Valid() bool {
	return p == PersonAdult || p == PersonChild || p == PersonToddler
}

func (p PersonType) rank() int {
	switch p {
	case PersonAdult:
		return 0
	case PersonChild:
		return 1
	default:
		return 2
	}
}

// GuestRecord is one named guest of a booking.  Records are used for
// per-guest pricing and for collecting names for documents.
//
// Fields:
//  BookingID  – owning booking (zero until stored).
//  PersonType – adult, child or toddler.
//  FirstName  – given name.
//  LastName   – family name.
//  OrderIndex – position within its person type.
//  RoomID     – room the guest sleeps in (nil if not assigned).
//  Class      – individually assigned price class (nil if not assigned).
type GuestRecord struct {
	BookingID  uint64      `json:"booking_id,omitempty"` // guest_records.booking_id
	PersonType PersonType  `json:"person_type"`          // guest_records.person_type
	FirstName  string      `json:"first_name"`           // guest_records.first_name
	LastName   string      `json:"last_name"`            // guest_records.last_name
	OrderIndex int         `json:"order_index"`          // guest_records.order_index
	RoomID     *string     `json:"room_id,omitempty"`    // guest_records.room_id (nullable)
	Class      *GuestClass `json:"guest_class,omitempty"` // guest_records.guest_class (nullable)
}

// EffectiveClass returns the individually assigned class or external when
// none was assigned.
func (g GuestRecord) EffectiveClass() GuestClass {
	if g.Class != nil && g.Class.Valid() {
		return *g.Class
	}
	return ClassExternal
}

// SortGuests orders records by person type (adults first) then OrderIndex.
func SortGuests(gs []GuestRecord) {
	sort.SliceStable(gs, func(i, j int) bool {
		if gs[i].PersonType.rank() != gs[j].PersonType.rank() {
			return gs[i].PersonType.rank() < gs[j].PersonType.rank()
		}
		return gs[i].OrderIndex < gs[j].OrderIndex
	})
}

// Counts is a plain head count by person type.
type Counts struct {
	Adults   uint `json:"adults"`
	Children uint `json:"children"`
	Toddlers uint `json:"toddlers"`
}

// Beds is the number of beds the guests occupy.  Toddlers sleep with
// their parents and are excluded.
func (c Counts) Beds() uint { return c.Adults + c.Children }

// GuestComposition describes who stays in a room.  It is either a Uniform
// head count sharing one class or a PerGuest list of individually classed
// records.  The price calculator switches on the concrete type.
type GuestComposition interface {
	Counts() Counts
	Capacity() uint
	composition()
}

// Uniform is a head count where every guest has the same class.
type Uniform struct {
	Class    GuestClass `json:"guest_class"`
	Adults   uint       `json:"adults"`
	Children uint       `json:"children"`
	Toddlers uint       `json:"toddlers"`
}

func (u Uniform) Counts() Counts {
	return Counts{Adults: u.Adults, Children: u.Children, Toddlers: u.Toddlers}
}

// Capacity is the number of beds the room's guests need.
func (u Uniform) Capacity() uint { return u.Adults + u.Children }

func (Uniform) composition() {}

// PerGuest lists the guests of a room with their own classes.
type PerGuest struct {
	Guests []GuestRecord `json:"guests"`
}

func (p PerGuest) Counts() Counts {
	var c Counts
	for _, g := range p.Guests {
		switch g.PersonType {
		case PersonAdult:
			c.Adults++
		case PersonChild:
			c.Children++
		case PersonToddler:
			c.Toddlers++
		}
	}
	return c
}

func (p PerGuest) Capacity() uint { return p.Counts().Beds() }

func (PerGuest) composition() {}

// ValidateComposition checks the classes and person types of a
// composition.  A nil composition is rejected.
func ValidateComposition(g GuestComposition) error {
	switch c := g.(type) {
	case Uniform:
		if !c.Class.Valid() {
			return fmt.Errorf("%w: unknown guest class %q", ErrInvalidGuests, c.Class)
		}
		if c.Adults+c.Children+c.Toddlers == 0 {
			return fmt.Errorf("%w: room without guests", ErrInvalidGuests)
		}
	case PerGuest:
		if len(c.Guests) == 0 {
			return fmt.Errorf("%w: room without guests", ErrInvalidGuests)
		}
		for _, r := range c.Guests {
			if !r.PersonType.Valid() {
				return fmt.Errorf("%w: unknown person type %q", ErrInvalidGuests, r.PersonType)
			}
			if r.Class != nil && !r.Class.Valid() {
				return fmt.Errorf("%w: unknown guest class %q", ErrInvalidGuests, *r.Class)
			}
		}
	default:
		return fmt.Errorf("%w: missing guest composition", ErrInvalidGuests)
	}
	return nil
}
