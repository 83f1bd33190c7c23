package bookingapi

import (
	"strings"
	"time"

	"consultdesk/internal/domain/booking"
	"consultdesk/internal/domain/expert"
	"consultdesk/internal/domain/slot"
)

// Wire shapes of the booking API. Timestamps stay strings here and are
// parsed with the client's location, since the API may omit the offset.

type slotDTO struct {
	ID              int64  `json:"id"`
	ExpertID        int64  `json:"expert_id"`
	StartAt         string `json:"start_at"`
	DurationMinutes int    `json:"duration_minutes"`
	IsAvailable     bool   `json:"is_available"`
}

type expertDTO struct {
	ID            int64     `json:"id"`
	FullName      string    `json:"full_name"`
	ExpertiseArea string    `json:"expertise_area"`
	ContactInfo   *string   `json:"contact_info"`
	MeetingRoom   *string   `json:"meeting_room"`
	Bio           *string   `json:"bio"`
	Slots         []slotDTO `json:"slots"`
}

type bookingDTO struct {
	ID               int64   `json:"id"`
	SlotID           int64   `json:"slot_id"`
	StudentName      string  `json:"student_name"`
	StudentEmail     string  `json:"student_email"`
	Question         string  `json:"question"`
	VKRType          *string `json:"vkr_type"`
	Magistracy       *string `json:"magistracy"`
	ArtifactsLink    *string `json:"artifacts_link"`
	CancellationCode *string `json:"cancellation_code"`
	CreatedAt        string  `json:"created_at"`
}

// expertPayload is sent for both create and update; blank optional fields go out as null.
type expertPayload struct {
	FullName      string  `json:"full_name"`
	ExpertiseArea string  `json:"expertise_area"`
	ContactInfo   *string `json:"contact_info"`
	MeetingRoom   *string `json:"meeting_room"`
	Bio           *string `json:"bio"`
}

type slotCreatePayload struct {
	ExpertID        int64  `json:"expert_id"`
	StartAt         string `json:"start_at"`
	DurationMinutes int    `json:"duration_minutes"`
}

type slotBatchPayload struct {
	ExpertID            int64  `json:"expert_id"`
	StartAt             string `json:"start_at"`
	EndAt               string `json:"end_at"`
	SlotDurationMinutes int    `json:"slot_duration_minutes"`
}

type slotUpdatePayload struct {
	StartAt         string `json:"start_at"`
	DurationMinutes int    `json:"duration_minutes"`
}

type bookingPayload struct {
	StudentName   string `json:"student_name"`
	StudentEmail  string `json:"student_email"`
	Question      string `json:"question"`
	VKRType       string `json:"vkr_type"`
	Magistracy    string `json:"magistracy"`
	ArtifactsLink string `json:"artifacts_link"`
}

type bookingUpdatePayload struct {
	Question string `json:"question"`
}

type loginPayload struct {
	Token string `json:"token"`
}

// naiveLayouts are tried when a timestamp carries no offset.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// parseTime reads an API timestamp. Offset-bearing values keep their instant;
// naive values are taken as wall time in loc. Unparseable values yield the zero time.
func parseTime(value string, loc *time.Location) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t
		}
	}
	return time.Time{}
}

// formatTime renders an instant the way the API expects it.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func (d slotDTO) toDomain(loc *time.Location) slot.Slot {
	return slot.Slot{
		ID:              d.ID,
		ExpertID:        d.ExpertID,
		StartAt:         parseTime(d.StartAt, loc),
		DurationMinutes: d.DurationMinutes,
		IsAvailable:     d.IsAvailable,
	}
}

func (d expertDTO) toDomain(loc *time.Location) expert.Expert {
	e := expert.Expert{
		ID:            d.ID,
		FullName:      d.FullName,
		ExpertiseArea: d.ExpertiseArea,
		ContactInfo:   deref(d.ContactInfo),
		MeetingRoom:   deref(d.MeetingRoom),
		Bio:           deref(d.Bio),
	}
	if len(d.Slots) > 0 {
		e.Slots = make([]slot.Slot, 0, len(d.Slots))
		for _, s := range d.Slots {
			e.Slots = append(e.Slots, s.toDomain(loc))
		}
	}
	return e
}

func (d bookingDTO) toDomain(loc *time.Location) booking.Booking {
	return booking.Booking{
		ID:               d.ID,
		SlotID:           d.SlotID,
		StudentName:      d.StudentName,
		StudentEmail:     d.StudentEmail,
		Question:         d.Question,
		VKRType:          deref(d.VKRType),
		Magistracy:       deref(d.Magistracy),
		ArtifactsLink:    deref(d.ArtifactsLink),
		CancellationCode: deref(d.CancellationCode),
		CreatedAt:        parseTime(d.CreatedAt, loc),
	}
}

func newExpertPayload(in expert.Input) expertPayload {
	return expertPayload{
		FullName:      in.FullName,
		ExpertiseArea: in.ExpertiseArea,
		ContactInfo:   nullable(in.ContactInfo),
		MeetingRoom:   nullable(in.MeetingRoom),
		Bio:           nullable(in.Bio),
	}
}
