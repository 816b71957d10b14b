package model

// RoomTier selects the price row a room is charged with.
type RoomTier string

const (
	TierSmall RoomTier = "small"
	TierLarge RoomTier = "large"
)

// Valid reports whether t is a known tier.
func (t RoomTier) Valid() bool { return t == TierSmall || t == TierLarge }

// Room is a bookable unit of the lodge.  Rooms are reference data edited
// by administrators only.  BedCount bounds the number of adults and
// children that may be assigned to the room; toddlers do not take a bed.
//
// Fields:
//  ID          – stable room identifier such as "12".
//  DisplayName – human readable name.
//  Tier        – price tier (small or large).
//  BedCount    – number of beds.
type Room struct {
	ID          string   `json:"id" yaml:"id"`                     // rooms.id
	DisplayName string   `json:"display_name" yaml:"display_name"` // rooms.display_name
	Tier        RoomTier `json:"tier" yaml:"tier"`                 // rooms.tier
	BedCount    uint     `json:"bed_count" yaml:"bed_count"`       // rooms.bed_count
}

// RoomIDs returns the identifiers of rooms in order.
func RoomIDs(rooms []Room) []string {
	ids := make([]string, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	return ids
}

// IndexRooms maps room identifiers to rooms.
func IndexRooms(rooms []Room) map[string]Room {
	m := make(map[string]Room, len(rooms))
	for _, r := range rooms {
		m[r.ID] = r
	}
	return m
}

// CheckCapacity returns a CapacityExceededError when the adults and
// children of g do not fit into the room's beds.
func CheckCapacity(room Room, g GuestComposition) error {
	if g == nil {
		return nil
	}
	if beds := g.Capacity(); beds > room.BedCount {
		return &CapacityExceededError{RoomID: room.ID, Guests: beds, BedCount: room.BedCount}
	}
	return nil
}
