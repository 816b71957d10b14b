// Package fixture holds the sample lodge used by tests and by the
// in-memory store when no seed files are configured.
package fixture

import (
	"time"

	"github.com/iliyamo/lodge-booking/internal/model"
)

// Rooms returns four rooms: two small and two large.
func Rooms() []model.Room {
	return []model.Room{
		{ID: "11", DisplayName: "Room 11", Tier: model.TierSmall, BedCount: 2},
		{ID: "12", DisplayName: "Room 12", Tier: model.TierSmall, BedCount: 3},
		{ID: "21", DisplayName: "Room 21", Tier: model.TierLarge, BedCount: 4},
		{ID: "22", DisplayName: "Room 22", Tier: model.TierLarge, BedCount: 5},
	}
}

// Prices returns the reference price table in cents.
func Prices() model.PriceConfig {
	return model.PriceConfig{
		Rooms: map[model.GuestClass]map[model.RoomTier]model.RoomRate{
			model.ClassSubsidized: {
				model.TierSmall: {EmptyRoomCents: 25000, AdultCents: 5000, ChildCents: 2500},
				model.TierLarge: {EmptyRoomCents: 35000, AdultCents: 6000, ChildCents: 3000},
			},
			model.ClassExternal: {
				model.TierSmall: {EmptyRoomCents: 40000, AdultCents: 10000, ChildCents: 5000},
				model.TierLarge: {EmptyRoomCents: 55000, AdultCents: 12000, ChildCents: 6000},
			},
		},
		Bulk: model.BulkRate{
			BaseCents:  300000,
			AdultCents: map[model.GuestClass]int64{model.ClassSubsidized: 4000, model.ClassExternal: 8000},
			ChildCents: map[model.GuestClass]int64{model.ClassSubsidized: 2000, model.ClassExternal: 4000},
		},
	}
}

// Day parses a YYYY-MM-DD date and panics on malformed input.
func Day(s string) time.Time {
	d, err := model.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Range builds the range [start, end) from two YYYY-MM-DD dates.
func Range(start, end string) model.DateRange {
	return model.NewDateRange(Day(start), Day(end))
}

// Clock is a settable time source for tests.
type Clock struct{ T time.Time }

// Now returns the current fake time.
func (c *Clock) Now() time.Time { return c.T }

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) { c.T = c.T.Add(d) }
