package model

import "time"

// BlockageInstance takes rooms out of service for a range of days, for
// example for maintenance.  A blockage with no rooms applies to the whole
// property.  Blockages override every other availability state.
//
// Fields:
//  ID        – primary key.
//  Range     – blocked days [Start, End).
//  RoomIDs   – affected rooms; empty means all rooms.
//  Reason    – free text shown to administrators.
//  CreatedAt – creation timestamp.
type BlockageInstance struct {
	ID        uint64    `json:"id"`         // blockages.id
	Range     DateRange `json:"range"`      // blockages.start_date / end_date
	RoomIDs   []string  `json:"room_ids"`   // blockage_rooms.room_id
	Reason    string    `json:"reason"`     // blockages.reason
	CreatedAt time.Time `json:"created_at"` // blockages.created_at
}

// AppliesTo reports whether the blockage covers roomID.
func (b BlockageInstance) AppliesTo(roomID string) bool {
	if len(b.RoomIDs) == 0 {
		return true
	}
	for _, id := range b.RoomIDs {
		if id == roomID {
			return true
		}
	}
	return false
}

// Blocks reports whether the blockage covers roomID on day d.
func (b BlockageInstance) Blocks(roomID string, d time.Time) bool {
	return b.AppliesTo(roomID) && b.Range.ContainsDay(d)
}
