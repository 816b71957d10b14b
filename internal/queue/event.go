// Package queue defines the booking events published to the message broker,
// the RabbitMQ publisher that sends them and a consumer that writes them to
// an event log.
package queue

// Event types carried in BookingEvent.Type.  Each is also the routing key.
const (
	BookingCreated = "booking.created"
	BookingUpdated = "booking.updated"
	BookingDeleted = "booking.deleted"
)

// BookingEvent is published after a booking transaction commits.  It carries
// enough for downstream consumers (notifications, accounting) to act
// without reading the primary database.  The edit token is never included.
type BookingEvent struct {
	Type         string   `json:"type"`
	BookingID    uint64   `json:"booking_id"`
	ContactName  string   `json:"contact_name"`
	ContactEmail string   `json:"contact_email"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	RoomIDs      []string `json:"room_ids"`
	TotalCents   int64    `json:"total_cents"`
	PriceLocked  bool     `json:"price_locked"`
	OccurredAt   string   `json:"occurred_at"`
}
