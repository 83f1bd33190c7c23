package projections

import (
	"strconv"
	"time"

	"consultdesk/internal/domain/booking"
	"consultdesk/internal/domain/expert"
	"consultdesk/internal/domain/format"
	"consultdesk/internal/domain/slot"
)

// SlotView is one slot as displayed on a card.
type SlotView struct {
	ID              int64
	ExpertID        int64
	Label           string
	DurationMinutes int
	Available       bool
	Selected        bool
}

// ExpertCard is one expert with its slots.
type ExpertCard struct {
	ID            int64
	FullName      string
	ExpertiseArea string
	ContactInfo   string
	MeetingRoom   string
	Bio           string
	FreeSlots     int
	TotalSlots    int
	Slots         []SlotView
}

// Option is an entry of an expert <select>.
type Option struct {
	ID       int64
	Label    string
	Selected bool
}

// BookingView is one booking card. SlotLabel is the formatted slot time, or a fallback when unknown.
type BookingView struct {
	ID            int64
	SlotID        int64
	SlotLabel     string
	StudentName   string
	StudentEmail  string
	Question      string
	VKRType       string
	Magistracy    string
	ArtifactsLink string
	Editing       bool
}

func slotView(s slot.Slot, loc *time.Location) SlotView {
	return SlotView{
		ID:              s.ID,
		ExpertID:        s.ExpertID,
		Label:           format.DateTime(s.StartAt, loc),
		DurationMinutes: s.DurationMinutes,
		Available:       s.IsAvailable,
	}
}

func expertCard(e expert.Expert, slots []slot.Slot, loc *time.Location) ExpertCard {
	card := ExpertCard{
		ID:            e.ID,
		FullName:      e.FullName,
		ExpertiseArea: e.ExpertiseArea,
		ContactInfo:   e.ContactInfo,
		MeetingRoom:   e.MeetingRoom,
		Bio:           e.Bio,
		FreeSlots:     e.FreeSlotCount(),
		TotalSlots:    len(e.Slots),
	}
	for _, s := range slots {
		card.Slots = append(card.Slots, slotView(s, loc))
	}
	return card
}

func expertOptions(experts []expert.Expert, selected int64) []Option {
	opts := make([]Option, 0, len(experts))
	for _, e := range experts {
		opts = append(opts, Option{ID: e.ID, Label: e.FullName, Selected: e.ID == selected})
	}
	return opts
}

// bookingViews resolves each booking's slot time from the loaded experts.
// fallback renders the label for slots not present in the list.
func bookingViews(bookings []booking.Booking, experts []expert.Expert, loc *time.Location, fallback func(int64) string) []BookingView {
	views := make([]BookingView, 0, len(bookings))
	for _, b := range bookings {
		label := fallback(b.SlotID)
		if s, _, ok := expert.FindSlot(experts, b.SlotID); ok {
			label = format.DateTime(s.StartAt, loc)
		}
		views = append(views, BookingView{
			ID:            b.ID,
			SlotID:        b.SlotID,
			SlotLabel:     label,
			StudentName:   b.StudentName,
			StudentEmail:  b.StudentEmail,
			Question:      b.Question,
			VKRType:       b.VKRType,
			Magistracy:    b.Magistracy,
			ArtifactsLink: b.ArtifactsLink,
		})
	}
	return views
}

func rawSlotID(id int64) string { return strconv.FormatInt(id, 10) }

func prefixedSlotID(id int64) string { return "ID " + strconv.FormatInt(id, 10) }
