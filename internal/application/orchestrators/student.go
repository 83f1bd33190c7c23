package orchestrators

import (
	"context"
	"log/slog"

	"consultdesk/internal/application/listutil"
	"consultdesk/internal/domain/booking"
	"consultdesk/internal/domain/expert"
)

// ToggleSlot returns the new selection after a click on clicked.
// Clicking the selected slot clears the selection.
func ToggleSlot(current, clicked int64) int64 {
	if current == clicked {
		return 0
	}
	return clicked
}

// StepExpertsInput moves the student's expert window.
type StepExpertsInput struct {
	Start       int
	Forward     bool
	HorizonDays int
}

// StepExpertsDeps holds dependencies for StepExperts.
type StepExpertsDeps struct {
	Experts ExpertLister
}

// ExecuteStepExperts moves the window by one page over experts with open slots.
// PRE: none
// POST: Returns a start index clamped into [0, max(0, visible-3)]
func ExecuteStepExperts(ctx context.Context, input StepExpertsInput, deps StepExpertsDeps) (int, error) {
	experts, err := deps.Experts.ListExperts(ctx, input.HorizonDays)
	if err != nil {
		return input.Start, err
	}
	visible := expert.WithAvailableSlots(experts)
	w := listutil.NewWindow(input.Start, len(visible), listutil.ExpertWindowSize)
	if input.Forward {
		return w.Next(listutil.ExpertWindowSize), nil
	}
	return w.Prev(listutil.ExpertWindowSize), nil
}

// BookSlotDeps holds dependencies for BookSlot.
type BookSlotDeps struct {
	Bookings StudentBooker
}

// ExecuteBookSlot books the selected slot for a student.
// PRE: none
// POST: On success returns a receipt holding the server's id and cancellation code
// INVARIANT: A request missing any required field never reaches the API
func ExecuteBookSlot(ctx context.Context, req booking.Request, deps BookSlotDeps) (booking.Receipt, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return booking.Receipt{}, err
	}
	created, err := deps.Bookings.BookSlot(ctx, req)
	if err != nil {
		slog.Info("booking_event", "event", "book_failed", "slot_id", req.SlotID, "error", err)
		return booking.Receipt{}, err
	}
	slog.Info("booking_event", "event", "booked", "slot_id", req.SlotID, "booking_id", created.ID)
	return booking.NewReceipt(created, req), nil
}

// CancelBookingDeps holds dependencies for CancelBooking.
type CancelBookingDeps struct {
	Bookings StudentBooker
}

// ExecuteCancelBooking cancels a booking with the code issued at booking time.
// PRE: none
// POST: Returns the banner text on success
func ExecuteCancelBooking(ctx context.Context, form booking.Cancellation, deps CancelBookingDeps) (string, error) {
	id, code, err := form.Parse()
	if err != nil {
		return "", err
	}
	if err := deps.Bookings.CancelBooking(ctx, id, code); err != nil {
		slog.Info("booking_event", "event", "cancel_failed", "booking_id", id, "error", err)
		return "", err
	}
	slog.Info("booking_event", "event", "cancelled", "booking_id", id)
	return "Запись удалена", nil
}
