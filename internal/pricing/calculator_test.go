package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/lodge-booking/internal/fixture"
	"github.com/iliyamo/lodge-booking/internal/model"
	"github.com/iliyamo/lodge-booking/internal/pricing"
)

func class(c model.GuestClass) *model.GuestClass { return &c }

func assign(roomID string, r model.DateRange, g model.GuestComposition) model.RoomAssignment {
	return model.RoomAssignment{RoomID: roomID, Range: r, Guests: g}
}

func TestQuote_SubsidizedSmallRoom(t *testing.T) {
	calc := pricing.New(fixture.Prices())
	stay := fixture.Range("2025-06-10", "2025-06-12")

	q, err := calc.Quote(fixture.Rooms(), stay, []model.RoomAssignment{
		assign("11", stay, model.Uniform{Class: model.ClassSubsidized, Adults: 2, Children: 1}),
	})

	require.NoError(t, err)
	assert.Equal(t, pricing.ModeRooms, q.Mode)
	require.Len(t, q.Rooms, 1)
	assert.Equal(t, int64(37500), q.Rooms[0].NightlyCents)
	assert.Equal(t, 2, q.Rooms[0].Nights)
	assert.Equal(t, int64(75000), q.TotalCents)
}

func TestQuote_ExternalSmallRoom(t *testing.T) {
	calc := pricing.New(fixture.Prices())
	stay := fixture.Range("2025-06-10", "2025-06-12")

	q, err := calc.Quote(fixture.Rooms(), stay, []model.RoomAssignment{
		assign("12", stay, model.Uniform{Class: model.ClassExternal, Adults: 2, Children: 1}),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(65000), q.Rooms[0].NightlyCents)
	assert.Equal(t, int64(130000), q.TotalCents)
}

func TestQuote_ToddlersAreFree(t *testing.T) {
	calc := pricing.New(fixture.Prices())
	stay := fixture.Range("2025-06-10", "2025-06-13")

	base, err := calc.Quote(fixture.Rooms(), stay, []model.RoomAssignment{
		assign("21", stay, model.Uniform{Class: model.ClassExternal, Adults: 2}),
	})
	require.NoError(t, err)

	for toddlers := uint(1); toddlers <= 3; toddlers++ {
		q, err := calc.Quote(fixture.Rooms(), stay, []model.RoomAssignment{
			assign("21", stay, model.Uniform{Class: model.ClassExternal, Adults: 2, Toddlers: toddlers}),
		})
		require.NoError(t, err)
		assert.Equal(t, base, q)
	}

	perGuest := model.PerGuest{Guests: []model.GuestRecord{
		{PersonType: model.PersonAdult, Class: class(model.ClassExternal)},
		{PersonType: model.PersonAdult, Class: class(model.ClassExternal)},
		{PersonType: model.PersonToddler, Class: class(model.ClassSubsidized)},
	}}
	q, err := calc.Quote(fixture.Rooms(), stay, []model.RoomAssignment{assign("21", stay, perGuest)})
	require.NoError(t, err)
	assert.Equal(t, base.TotalCents, q.TotalCents, "a subsidized toddler must not change the base class")
}

func TestQuote_Deterministic(t *testing.T) {
	calc := pricing.New(fixture.Prices())
	stay := fixture.Range("2025-07-01", "2025-07-05")
	rooms := []model.RoomAssignment{
		assign("11", stay, model.Uniform{Class: model.ClassSubsidized, Adults: 1, Children: 1}),
		assign("22", fixture.Range("2025-07-02", "2025-07-04"), model.Uniform{Class: model.ClassExternal, Adults: 3}),
	}

	first, err := calc.Quote(fixture.Rooms(), stay, rooms)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := calc.Quote(fixture.Rooms(), stay, rooms)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestQuote_RoomsWithOwnRanges(t *testing.T) {
	calc := pricing.New(fixture.Prices())
	stay := fixture.Range("2025-07-01", "2025-07-05")

	q, err := calc.Quote(fixture.Rooms(), stay, []model.RoomAssignment{
		assign("11", stay, model.Uniform{Class: model.ClassSubsidized, Adults: 2}),
		assign("21", fixture.Range("2025-07-03", "2025-07-05"), model.Uniform{Class: model.ClassSubsidized, Adults: 1}),
	})

	require.NoError(t, err)
	// 4 nights * (25000 + 2*5000) + 2 nights * (35000 + 6000)
	assert.Equal(t, int64(4*35000+2*41000), q.TotalCents)
	assert.Equal(t, 2, q.Rooms[1].Nights)
}

func TestQuote_PerGuestMixedClasses(t *testing.T) {
	calc := pricing.New(fixture.Prices())
	stay := fixture.Range("2025-06-10", "2025-06-11")

	q, err := calc.Quote(fixture.Rooms(), stay, []model.RoomAssignment{
		assign("12", stay, model.PerGuest{Guests: []model.GuestRecord{
			{PersonType: model.PersonAdult, Class: class(model.ClassSubsidized)},
			{PersonType: model.PersonAdult, Class: class(model.ClassExternal)},
			{PersonType: model.PersonChild},
		}}),
	})

	require.NoError(t, err)
	require.Len(t, q.Rooms, 1)
	assert.True(t, q.Rooms[0].PerGuest)
	assert.Equal(t, model.ClassSubsidized, q.Rooms[0].BaseClass)
	// subsidized empty room + subsidized adult + external adult + external child
	assert.Equal(t, int64(25000+5000+10000+5000), q.TotalCents)
}

func TestQuote_PerGuestAllExternal(t *testing.T) {
	calc := pricing.New(fixture.Prices())
	stay := fixture.Range("2025-06-10", "2025-06-12")

	uniform, err := calc.Quote(fixture.Rooms(), stay, []model.RoomAssignment{
		assign("12", stay, model.Uniform{Class: model.ClassExternal, Adults: 2, Children: 1}),
	})
	require.NoError(t, err)

	perGuest, err := calc.Quote(fixture.Rooms(), stay, []model.RoomAssignment{
		assign("12", stay, model.PerGuest{Guests: []model.GuestRecord{
			{PersonType: model.PersonAdult},
			{PersonType: model.PersonAdult, Class: class(model.ClassExternal)},
			{PersonType: model.PersonChild},
		}}),
	})
	require.NoError(t, err)

	assert.Equal(t, model.ClassExternal, perGuest.Rooms[0].BaseClass)
	assert.Equal(t, uniform.TotalCents, perGuest.TotalCents)
}

func TestQuote_BulkWholeProperty(t *testing.T) {
	calc := pricing.New(fixture.Prices())
	stay := fixture.Range("2025-08-01", "2025-08-04")
	var rooms []model.RoomAssignment
	for _, r := range fixture.Rooms() {
		rooms = append(rooms, assign(r.ID, stay, model.Uniform{Class: model.ClassSubsidized, Adults: 1, Children: 1}))
	}
	rooms[3].Guests = model.Uniform{Class: model.ClassExternal, Adults: 2, Toddlers: 1}

	q, err := calc.Quote(fixture.Rooms(), stay, rooms)

	require.NoError(t, err)
	assert.Equal(t, pricing.ModeBulk, q.Mode)
	assert.Empty(t, q.Rooms)
	nightly := int64(300000 + 3*4000 + 3*2000 + 2*8000)
	assert.Equal(t, nightly, q.NightlyCents)
	assert.Equal(t, 3, q.Nights)
	assert.Equal(t, 3*nightly, q.TotalCents)
}

func TestQuote_NotBulkWhenOneRoomHasOwnRange(t *testing.T) {
	calc := pricing.New(fixture.Prices())
	stay := fixture.Range("2025-08-01", "2025-08-04")
	var rooms []model.RoomAssignment
	for _, r := range fixture.Rooms() {
		rooms = append(rooms, assign(r.ID, stay, model.Uniform{Class: model.ClassExternal, Adults: 1}))
	}
	rooms[0].Range = fixture.Range("2025-08-02", "2025-08-04")

	q, err := calc.Quote(fixture.Rooms(), stay, rooms)

	require.NoError(t, err)
	assert.Equal(t, pricing.ModeRooms, q.Mode)
	assert.Len(t, q.Rooms, 4)
}

func TestIsBulk(t *testing.T) {
	stay := fixture.Range("2025-08-01", "2025-08-02")
	all := fixture.Rooms()
	g := model.Uniform{Class: model.ClassExternal, Adults: 1}

	var full []model.RoomAssignment
	for _, r := range all {
		full = append(full, assign(r.ID, stay, g))
	}
	assert.True(t, pricing.IsBulk(all, stay, full))
	assert.False(t, pricing.IsBulk(all, stay, full[:3]))

	dup := append([]model.RoomAssignment(nil), full[:3]...)
	dup = append(dup, full[0])
	assert.False(t, pricing.IsBulk(all, stay, dup))
	assert.False(t, pricing.IsBulk(nil, stay, nil))
}

func TestQuote_Errors(t *testing.T) {
	calc := pricing.New(fixture.Prices())
	stay := fixture.Range("2025-06-10", "2025-06-12")

	_, err := calc.Quote(fixture.Rooms(), stay, nil)
	assert.ErrorIs(t, err, model.ErrNoRooms)

	_, err = calc.Quote(fixture.Rooms(), stay, []model.RoomAssignment{
		assign("99", stay, model.Uniform{Class: model.ClassExternal, Adults: 1}),
	})
	assert.ErrorIs(t, err, model.ErrRoomNotFound)

	_, err = calc.Quote(fixture.Rooms(), stay, []model.RoomAssignment{assign("11", stay, nil)})
	assert.ErrorIs(t, err, model.ErrInvalidGuests)
}
