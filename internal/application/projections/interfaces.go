package projections

import (
	"context"

	"consultdesk/internal/domain/booking"
	"consultdesk/internal/domain/expert"
)

// ExpertLister loads experts with their slots.
type ExpertLister interface {
	ListExperts(ctx context.Context, horizonDays int) ([]expert.Expert, error)
}

// BookingLister loads bookings, either for one expert or all of them with an admin token.
type BookingLister interface {
	ListExpertBookings(ctx context.Context, expertID int64) ([]booking.Booking, error)
	ListBookings(ctx context.Context, token string) ([]booking.Booking, error)
}
