package model

import "fmt"

// RoomRate is the nightly price row for one guest class and room tier.
// All amounts are in cents.
type RoomRate struct {
	EmptyRoomCents int64 `json:"empty_room_cents" yaml:"empty_room_cents"` // base charge for the room
	AdultCents     int64 `json:"adult_cents" yaml:"adult_cents"`           // surcharge per adult
	ChildCents     int64 `json:"child_cents" yaml:"child_cents"`           // surcharge per child
}

// BulkRate prices a booking of the whole property per night, independent
// of the rooms' tiers.
type BulkRate struct {
	BaseCents  int64                `json:"base_cents" yaml:"base_cents"`
	AdultCents map[GuestClass]int64 `json:"adult_cents" yaml:"adult_cents"`
	ChildCents map[GuestClass]int64 `json:"child_cents" yaml:"child_cents"`
}

// PriceConfig is the static price table.  Prices change only by editing
// this table; stored bookings keep the total they were created with.
type PriceConfig struct {
	Rooms map[GuestClass]map[RoomTier]RoomRate `json:"rooms" yaml:"rooms"`
	Bulk  BulkRate                             `json:"bulk" yaml:"bulk"`
}

// Rate looks up the row for a class and tier.
func (p PriceConfig) Rate(class GuestClass, tier RoomTier) (RoomRate, error) {
	byTier, ok := p.Rooms[class]
	if !ok {
		return RoomRate{}, fmt.Errorf("no prices for guest class %q", class)
	}
	rate, ok := byTier[tier]
	if !ok {
		return RoomRate{}, fmt.Errorf("no prices for class %q tier %q", class, tier)
	}
	return rate, nil
}

// Validate checks that every class and tier combination has a price row
// and that no amount is negative.
func (p PriceConfig) Validate() error {
	for _, class := range []GuestClass{ClassSubsidized, ClassExternal} {
		for _, tier := range []RoomTier{TierSmall, TierLarge} {
			r, err := p.Rate(class, tier)
			if err != nil {
				return err
			}
			if r.EmptyRoomCents < 0 || r.AdultCents < 0 || r.ChildCents < 0 {
				return fmt.Errorf("negative price for class %q tier %q", class, tier)
			}
		}
		if p.Bulk.AdultCents[class] < 0 || p.Bulk.ChildCents[class] < 0 {
			return fmt.Errorf("negative bulk price for class %q", class)
		}
	}
	if p.Bulk.BaseCents < 0 {
		return fmt.Errorf("negative bulk base price")
	}
	return nil
}
