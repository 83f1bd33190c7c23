package bookingapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"consultdesk/internal/domain/booking"
	"consultdesk/internal/domain/expert"
	"consultdesk/internal/domain/slot"
)

// ErrEmptyResponse is returned when a call that must produce an entity came back empty.
var ErrEmptyResponse = errors.New("Пустой ответ сервера")

// ListExperts returns every expert with slots inside the horizon, in server order.
// PRE: horizonDays > 0
// POST: Returns an empty slice (not an error) when the body was empty
func (c *Client) ListExperts(ctx context.Context, horizonDays int) ([]expert.Expert, error) {
	var dtos []expertDTO
	path := "/experts?horizon_days=" + strconv.Itoa(horizonDays)
	if err := c.Do(ctx, http.MethodGet, path, nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]expert.Expert, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain(c.loc))
	}
	return out, nil
}

// CreateExpert creates an expert. The returned expert has no slots.
func (c *Client) CreateExpert(ctx context.Context, token string, in expert.Input) (expert.Expert, error) {
	var dto expertDTO
	if err := c.Do(ctx, http.MethodPost, "/experts", newExpertPayload(in), &dto, WithAdminToken(token)); err != nil {
		return expert.Expert{}, err
	}
	return dto.toDomain(c.loc), nil
}

// UpdateExpert replaces the expert's fields; blank optional fields are cleared.
func (c *Client) UpdateExpert(ctx context.Context, token string, id int64, in expert.Input) (expert.Expert, error) {
	var dto expertDTO
	path := "/experts/" + strconv.FormatInt(id, 10)
	if err := c.Do(ctx, http.MethodPatch, path, newExpertPayload(in), &dto, WithAdminToken(token)); err != nil {
		return expert.Expert{}, err
	}
	return dto.toDomain(c.loc), nil
}

// DeleteExpert removes an expert together with its slots and bookings.
func (c *Client) DeleteExpert(ctx context.Context, token string, id int64) error {
	return c.Do(ctx, http.MethodDelete, "/experts/"+strconv.FormatInt(id, 10), nil, nil, WithAdminToken(token))
}

// CreateSlot creates one slot.
func (c *Client) CreateSlot(ctx context.Context, token string, expertID int64, startAt time.Time, durationMinutes int) (slot.Slot, error) {
	var dto slotDTO
	payload := slotCreatePayload{
		ExpertID:        expertID,
		StartAt:         formatTime(startAt),
		DurationMinutes: durationMinutes,
	}
	if err := c.Do(ctx, http.MethodPost, "/slots", payload, &dto, WithAdminToken(token)); err != nil {
		return slot.Slot{}, err
	}
	return dto.toDomain(c.loc), nil
}

// CreateSlotBatch creates consecutive slots covering [startAt, endAt).
// PRE: endAt after startAt
func (c *Client) CreateSlotBatch(ctx context.Context, token string, expertID int64, startAt, endAt time.Time, slotMinutes int) ([]slot.Slot, error) {
	var dtos []slotDTO
	payload := slotBatchPayload{
		ExpertID:            expertID,
		StartAt:             formatTime(startAt),
		EndAt:               formatTime(endAt),
		SlotDurationMinutes: slotMinutes,
	}
	if err := c.Do(ctx, http.MethodPost, "/slots/batch", payload, &dtos, WithAdminToken(token)); err != nil {
		return nil, err
	}
	out := make([]slot.Slot, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain(c.loc))
	}
	return out, nil
}

// UpdateSlot moves a slot and/or changes its duration.
func (c *Client) UpdateSlot(ctx context.Context, token string, id int64, startAt time.Time, durationMinutes int) (slot.Slot, error) {
	var dto slotDTO
	payload := slotUpdatePayload{StartAt: formatTime(startAt), DurationMinutes: durationMinutes}
	if err := c.Do(ctx, http.MethodPatch, "/slots/"+strconv.FormatInt(id, 10), payload, &dto, WithAdminToken(token)); err != nil {
		return slot.Slot{}, err
	}
	return dto.toDomain(c.loc), nil
}

// DeleteSlot removes a slot.
func (c *Client) DeleteSlot(ctx context.Context, token string, id int64) error {
	return c.Do(ctx, http.MethodDelete, "/slots/"+strconv.FormatInt(id, 10), nil, nil, WithAdminToken(token))
}

// BookSlot books req.SlotID for a student. The response carries the cancellation code.
// PRE: req has been validated
// POST: Returns the created booking or ErrEmptyResponse if the server sent no body
func (c *Client) BookSlot(ctx context.Context, req booking.Request) (booking.Booking, error) {
	var dto bookingDTO
	payload := bookingPayload{
		StudentName:   req.StudentName,
		StudentEmail:  req.StudentEmail,
		Question:      req.Question,
		VKRType:       req.VKRType,
		Magistracy:    req.Magistracy,
		ArtifactsLink: req.ArtifactsLink,
	}
	path := fmt.Sprintf("/slots/%d/book", req.SlotID)
	if err := c.Do(ctx, http.MethodPost, path, payload, &dto); err != nil {
		return booking.Booking{}, err
	}
	if dto.ID == 0 {
		return booking.Booking{}, ErrEmptyResponse
	}
	return dto.toDomain(c.loc), nil
}

// ListExpertBookings returns the bookings of one expert. Public endpoint.
func (c *Client) ListExpertBookings(ctx context.Context, expertID int64) ([]booking.Booking, error) {
	var dtos []bookingDTO
	path := fmt.Sprintf("/experts/%d/bookings", expertID)
	if err := c.Do(ctx, http.MethodGet, path, nil, &dtos); err != nil {
		return nil, err
	}
	return c.bookings(dtos), nil
}

// ListBookings returns every booking. Admin only.
func (c *Client) ListBookings(ctx context.Context, token string) ([]booking.Booking, error) {
	var dtos []bookingDTO
	if err := c.Do(ctx, http.MethodGet, "/bookings", nil, &dtos, WithAdminToken(token)); err != nil {
		return nil, err
	}
	return c.bookings(dtos), nil
}

// UpdateBooking replaces the question of a booking. Admin only.
func (c *Client) UpdateBooking(ctx context.Context, token string, id int64, question string) (booking.Booking, error) {
	var dto bookingDTO
	path := "/admin/bookings/" + strconv.FormatInt(id, 10)
	if err := c.Do(ctx, http.MethodPatch, path, bookingUpdatePayload{Question: question}, &dto, WithAdminToken(token)); err != nil {
		return booking.Booking{}, err
	}
	return dto.toDomain(c.loc), nil
}

// DeleteBookingAsAdmin removes a booking and frees its slot. Admin only.
func (c *Client) DeleteBookingAsAdmin(ctx context.Context, token string, id int64) error {
	return c.Do(ctx, http.MethodDelete, "/admin/bookings/"+strconv.FormatInt(id, 10), nil, nil, WithAdminToken(token))
}

// CancelBooking removes a booking on behalf of the student holding its code.
func (c *Client) CancelBooking(ctx context.Context, id int64, code string) error {
	path := fmt.Sprintf("/bookings/%d?cancellation_code=%s", id, url.QueryEscape(code))
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// AdminLogin checks an admin token against the API.
func (c *Client) AdminLogin(ctx context.Context, token string) error {
	return c.Do(ctx, http.MethodPost, "/admin/login", loginPayload{Token: token}, nil)
}

// AdminLogout ends the API-side admin session.
func (c *Client) AdminLogout(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/admin/logout", nil, nil)
}

// ExpertLogin checks the shared expert code against the API.
func (c *Client) ExpertLogin(ctx context.Context, code string) error {
	return c.Do(ctx, http.MethodPost, "/expert/login", loginPayload{Token: code}, nil)
}

// ExpertLogout ends the API-side expert session.
func (c *Client) ExpertLogout(ctx context.Context) error {
	return c.Do(ctx, http.MethodPost, "/expert/logout", nil, nil)
}

// Health reports the API's own health status string.
func (c *Client) Health(ctx context.Context) (string, error) {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Do(ctx, http.MethodGet, "/health", nil, &body); err != nil {
		return "", err
	}
	if body.Status == "" {
		body.Status = "ok"
	}
	return body.Status, nil
}

func (c *Client) bookings(dtos []bookingDTO) []booking.Booking {
	out := make([]booking.Booking, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.toDomain(c.loc))
	}
	return out
}
