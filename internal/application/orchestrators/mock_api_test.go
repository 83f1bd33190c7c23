package orchestrators

import (
	"context"
	"fmt"
	"time"

	"consultdesk/internal/domain/booking"
	"consultdesk/internal/domain/expert"
	"consultdesk/internal/domain/slot"
)

// mockAPI implements every API interface the orchestrators consume.
// Each call is appended to calls as "METHOD path"; err, when set, is returned by every call.
type mockAPI struct {
	experts  []expert.Expert
	booked   booking.Booking
	err      error
	calls    []string
	token    string
	lastIn   expert.Input
	lastReq  booking.Request
	lastPlan slot.Plan
	question string
	code     string
}

func (m *mockAPI) record(call, token string) error {
	m.calls = append(m.calls, call)
	m.token = token
	return m.err
}

// ListExperts implements ExpertLister.
func (m *mockAPI) ListExperts(_ context.Context, horizonDays int) ([]expert.Expert, error) {
	if err := m.record(fmt.Sprintf("GET /experts?horizon_days=%d", horizonDays), ""); err != nil {
		return nil, err
	}
	return m.experts, nil
}

// CreateExpert implements ExpertWriter.
func (m *mockAPI) CreateExpert(_ context.Context, token string, in expert.Input) (expert.Expert, error) {
	m.lastIn = in
	if err := m.record("POST /experts", token); err != nil {
		return expert.Expert{}, err
	}
	return expert.Expert{ID: 99, FullName: in.FullName}, nil
}

// UpdateExpert implements ExpertWriter.
func (m *mockAPI) UpdateExpert(_ context.Context, token string, id int64, in expert.Input) (expert.Expert, error) {
	m.lastIn = in
	if err := m.record(fmt.Sprintf("PATCH /experts/%d", id), token); err != nil {
		return expert.Expert{}, err
	}
	return expert.Expert{ID: id, FullName: in.FullName}, nil
}

// DeleteExpert implements ExpertWriter.
func (m *mockAPI) DeleteExpert(_ context.Context, token string, id int64) error {
	return m.record(fmt.Sprintf("DELETE /experts/%d", id), token)
}

// CreateSlot implements SlotWriter.
func (m *mockAPI) CreateSlot(_ context.Context, token string, expertID int64, startAt time.Time, dur int) (slot.Slot, error) {
	m.lastPlan = slot.Plan{Mode: slot.ModeSingle, ExpertID: expertID, StartAt: startAt, DurationMinutes: dur}
	if err := m.record("POST /slots", token); err != nil {
		return slot.Slot{}, err
	}
	return slot.Slot{ID: 1, ExpertID: expertID, StartAt: startAt, DurationMinutes: dur, IsAvailable: true}, nil
}

// CreateSlotBatch implements SlotWriter.
func (m *mockAPI) CreateSlotBatch(_ context.Context, token string, expertID int64, startAt, endAt time.Time, minutes int) ([]slot.Slot, error) {
	m.lastPlan = slot.Plan{Mode: slot.ModeBatch, ExpertID: expertID, StartAt: startAt, EndAt: endAt, DurationMinutes: minutes}
	if err := m.record("POST /slots/batch", token); err != nil {
		return nil, err
	}
	var out []slot.Slot
	for t := startAt; t.Add(time.Duration(minutes) * time.Minute).Compare(endAt) <= 0; t = t.Add(time.Duration(minutes) * time.Minute) {
		out = append(out, slot.Slot{ExpertID: expertID, StartAt: t, DurationMinutes: minutes, IsAvailable: true})
	}
	return out, nil
}

// UpdateSlot implements SlotWriter.
func (m *mockAPI) UpdateSlot(_ context.Context, token string, id int64, startAt time.Time, dur int) (slot.Slot, error) {
	m.lastPlan = slot.Plan{Mode: slot.ModeEdit, SlotID: id, StartAt: startAt, DurationMinutes: dur}
	if err := m.record(fmt.Sprintf("PATCH /slots/%d", id), token); err != nil {
		return slot.Slot{}, err
	}
	return slot.Slot{ID: id, StartAt: startAt, DurationMinutes: dur}, nil
}

// DeleteSlot implements SlotWriter.
func (m *mockAPI) DeleteSlot(_ context.Context, token string, id int64) error {
	return m.record(fmt.Sprintf("DELETE /slots/%d", id), token)
}

// UpdateBooking implements BookingAdmin.
func (m *mockAPI) UpdateBooking(_ context.Context, token string, id int64, question string) (booking.Booking, error) {
	m.question = question
	if err := m.record(fmt.Sprintf("PATCH /admin/bookings/%d", id), token); err != nil {
		return booking.Booking{}, err
	}
	return booking.Booking{ID: id, Question: question}, nil
}

// DeleteBookingAsAdmin implements BookingAdmin.
func (m *mockAPI) DeleteBookingAsAdmin(_ context.Context, token string, id int64) error {
	return m.record(fmt.Sprintf("DELETE /admin/bookings/%d", id), token)
}

// BookSlot implements StudentBooker.
func (m *mockAPI) BookSlot(_ context.Context, req booking.Request) (booking.Booking, error) {
	m.lastReq = req
	if err := m.record(fmt.Sprintf("POST /slots/%d/book", req.SlotID), ""); err != nil {
		return booking.Booking{}, err
	}
	return m.booked, nil
}

// CancelBooking implements StudentBooker.
func (m *mockAPI) CancelBooking(_ context.Context, id int64, code string) error {
	m.code = code
	return m.record(fmt.Sprintf("DELETE /bookings/%d", id), "")
}

// AdminLogin implements Authenticator.
func (m *mockAPI) AdminLogin(_ context.Context, token string) error {
	return m.record("POST /admin/login", token)
}

// AdminLogout implements Authenticator.
func (m *mockAPI) AdminLogout(_ context.Context) error {
	return m.record("POST /admin/logout", "")
}

// ExpertLogin implements Authenticator.
func (m *mockAPI) ExpertLogin(_ context.Context, code string) error {
	m.code = code
	return m.record("POST /expert/login", "")
}

// ExpertLogout implements Authenticator.
func (m *mockAPI) ExpertLogout(_ context.Context) error {
	return m.record("POST /expert/logout", "")
}

var msk = time.FixedZone("MSK", 3*60*60)
