package orchestrators

import (
	"context"
	"log/slog"
	"strings"
)

// UpdateQuestionInput carries the inline question edit.
// Current is the question as displayed when the edit started.
type UpdateQuestionInput struct {
	Token     string
	BookingID int64
	Current   string
	Question  string
}

// UpdateQuestionDeps holds dependencies for UpdateQuestion.
type UpdateQuestionDeps struct {
	Bookings BookingAdmin
}

// ExecuteUpdateQuestion rewrites a booking's question.
// An empty answer or one equal to the current question is a no-op, not an error.
// PRE: input.BookingID > 0
// POST: Returns the banner text, or "" when nothing was sent
func ExecuteUpdateQuestion(ctx context.Context, input UpdateQuestionInput, deps UpdateQuestionDeps) (string, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" || question == strings.TrimSpace(input.Current) {
		return "", nil
	}
	if err := requireToken(input.Token); err != nil {
		return "", err
	}
	if _, err := deps.Bookings.UpdateBooking(ctx, input.Token, input.BookingID, question); err != nil {
		return "", err
	}
	slog.Info("admin_event", "event", "booking_updated", "booking_id", input.BookingID)
	return "Запись обновлена", nil
}

// DeleteBookingDeps holds dependencies for DeleteBooking.
type DeleteBookingDeps struct {
	Bookings BookingAdmin
}

// ExecuteDeleteBooking removes a booking as admin, freeing its slot.
// PRE: input.ID > 0
// POST: DELETE issued only when confirmed and a token is held
func ExecuteDeleteBooking(ctx context.Context, input DeleteInput, deps DeleteBookingDeps) (string, error) {
	if !input.Confirmed {
		return "", ErrNotConfirmed
	}
	if err := requireToken(input.Token); err != nil {
		return "", err
	}
	if err := deps.Bookings.DeleteBookingAsAdmin(ctx, input.Token, input.ID); err != nil {
		return "", err
	}
	slog.Info("admin_event", "event", "booking_deleted", "booking_id", input.ID)
	return "Запись удалена", nil
}
