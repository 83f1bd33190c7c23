package orchestrators

import (
	"context"
	"errors"
	"time"

	"consultdesk/internal/domain/booking"
	"consultdesk/internal/domain/expert"
	"consultdesk/internal/domain/slot"
)

// Errors shared by the admin and student actions. Messages are shown to the user as-is.
var (
	// ErrAuthRequired means no admin token is held; the caller redirects to the login page.
	ErrAuthRequired = errors.New("Требуется авторизация")
	// ErrNotConfirmed means a destructive action arrived without confirmation.
	ErrNotConfirmed = errors.New("действие не подтверждено")
)

// ExpertLister loads experts with their slots.
type ExpertLister interface {
	ListExperts(ctx context.Context, horizonDays int) ([]expert.Expert, error)
}

// ExpertWriter performs admin expert mutations.
type ExpertWriter interface {
	CreateExpert(ctx context.Context, token string, in expert.Input) (expert.Expert, error)
	UpdateExpert(ctx context.Context, token string, id int64, in expert.Input) (expert.Expert, error)
	DeleteExpert(ctx context.Context, token string, id int64) error
}

// SlotWriter performs admin slot mutations.
type SlotWriter interface {
	CreateSlot(ctx context.Context, token string, expertID int64, startAt time.Time, durationMinutes int) (slot.Slot, error)
	CreateSlotBatch(ctx context.Context, token string, expertID int64, startAt, endAt time.Time, slotMinutes int) ([]slot.Slot, error)
	UpdateSlot(ctx context.Context, token string, id int64, startAt time.Time, durationMinutes int) (slot.Slot, error)
	DeleteSlot(ctx context.Context, token string, id int64) error
}

// BookingAdmin performs admin booking mutations.
type BookingAdmin interface {
	UpdateBooking(ctx context.Context, token string, id int64, question string) (booking.Booking, error)
	DeleteBookingAsAdmin(ctx context.Context, token string, id int64) error
}

// BookingReader lists bookings for the admin and expert pages.
type BookingReader interface {
	ListExpertBookings(ctx context.Context, expertID int64) ([]booking.Booking, error)
	ListBookings(ctx context.Context, token string) ([]booking.Booking, error)
}

// StudentBooker creates and cancels bookings on behalf of a student.
type StudentBooker interface {
	BookSlot(ctx context.Context, req booking.Request) (booking.Booking, error)
	CancelBooking(ctx context.Context, id int64, code string) error
}

// Authenticator checks role credentials against the API.
type Authenticator interface {
	AdminLogin(ctx context.Context, token string) error
	AdminLogout(ctx context.Context) error
	ExpertLogin(ctx context.Context, code string) error
	ExpertLogout(ctx context.Context) error
}

// requireToken is the advisory admin gate; the API re-validates every call.
func requireToken(token string) error {
	if token == "" {
		return ErrAuthRequired
	}
	return nil
}
