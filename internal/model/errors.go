package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors returned by the booking core.  Handlers translate them
// into HTTP responses with errors.Is; none of them is retried.
var (
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrInvalidGuests    = errors.New("invalid guests")
	ErrNoRooms          = errors.New("no rooms selected")
	ErrRoomNotFound     = errors.New("room not found")
	ErrProposalNotFound = errors.New("proposal not found")
	ErrProposalExpired  = errors.New("proposal expired")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrInvalidEditToken = errors.New("invalid edit token")
	ErrBlockageNotFound = errors.New("blockage not found")
	ErrMissingSession   = errors.New("missing session id")
	ErrDuplicateRoom    = errors.New("room assigned twice")
	ErrStorage          = errors.New("storage error")
)

// RoomUnavailableError reports that a room cannot be taken on some dates
// because of a confirmed booking, a blockage or, for holds, a fully
// occupied day.  It carries the conflicting party so the message shown to
// the user can name it.
type RoomUnavailableError struct {
	RoomID     string
	Dates      []time.Time
	BookingID  uint64 // conflicting booking, zero if none
	BlockageID uint64 // conflicting blockage, zero if none
}

func (e *RoomUnavailableError) Error() string {
	days := make([]string, 0, len(e.Dates))
	for _, d := range e.Dates {
		days = append(days, d.Format(DateLayout))
	}
	var by string
	switch {
	case e.BlockageID != 0:
		by = fmt.Sprintf(" (blocked by blockage %d)", e.BlockageID)
	case e.BookingID != 0:
		by = fmt.Sprintf(" (booked by booking %d)", e.BookingID)
	}
	return fmt.Sprintf("room %s is unavailable on %s%s", e.RoomID, strings.Join(days, ", "), by)
}

// CapacityExceededError reports more adults and children than beds.
type CapacityExceededError struct {
	RoomID   string
	Guests   uint
	BedCount uint
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("room %s has %d beds but %d guests were assigned", e.RoomID, e.BedCount, e.Guests)
}

// IsRoomUnavailable returns the RoomUnavailableError in err's chain, or nil.
func IsRoomUnavailable(err error) *RoomUnavailableError {
	var target *RoomUnavailableError
	if errors.As(err, &target) {
		return target
	}
	return nil
}

// IsCapacityExceeded returns the CapacityExceededError in err's chain, or nil.
func IsCapacityExceeded(err error) *CapacityExceededError {
	var target *CapacityExceededError
	if errors.As(err, &target) {
		return target
	}
	return nil
}

// StorageError wraps a failure of the underlying store so callers can
// match it with errors.Is(err, ErrStorage) while keeping the cause.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
