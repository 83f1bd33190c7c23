package expert

import (
	"errors"
	"strings"

	"consultdesk/internal/domain/slot"
)

// Domain errors
var (
	ErrEmptyFullName      = errors.New("Укажите имя эксперта")
	ErrEmptyExpertiseArea = errors.New("Укажите область экспертизы")
)

// Expert mirrors the server-owned expert with its ordered slots.
// Optional fields are empty strings when the server sent null.
type Expert struct {
	ID            int64
	FullName      string
	ExpertiseArea string
	ContactInfo   string
	MeetingRoom   string
	Bio           string
	Slots         []slot.Slot
}

// AvailableSlots returns the slots still open for booking, in server order.
func (e Expert) AvailableSlots() []slot.Slot {
	var out []slot.Slot
	for _, s := range e.Slots {
		if s.IsAvailable {
			out = append(out, s)
		}
	}
	return out
}

// FreeSlotCount returns how many slots are available.
func (e Expert) FreeSlotCount() int {
	n := 0
	for _, s := range e.Slots {
		if s.IsAvailable {
			n++
		}
	}
	return n
}

// HasAvailableSlot reports whether at least one slot is open.
func (e Expert) HasAvailableSlot() bool {
	for _, s := range e.Slots {
		if s.IsAvailable {
			return true
		}
	}
	return false
}

// WithAvailableSlots filters experts down to those a student can book.
// PRE: none
// POST: Returns experts with at least one available slot, order preserved
func WithAvailableSlots(experts []Expert) []Expert {
	var out []Expert
	for _, e := range experts {
		if e.HasAvailableSlot() {
			out = append(out, e)
		}
	}
	return out
}

// FindByID returns the expert with the given id.
func FindByID(experts []Expert, id int64) (Expert, bool) {
	for _, e := range experts {
		if e.ID == id {
			return e, true
		}
	}
	return Expert{}, false
}

// FindSlot searches every expert's slots for slotID.
// POST: Returns the slot and its owning expert, ok=false if not present
func FindSlot(experts []Expert, slotID int64) (slot.Slot, Expert, bool) {
	for _, e := range experts {
		for _, s := range e.Slots {
			if s.ID == slotID {
				return s, e, true
			}
		}
	}
	return slot.Slot{}, Expert{}, false
}

// Input carries the expert form values for create and update.
type Input struct {
	FullName      string
	ExpertiseArea string
	ContactInfo   string
	MeetingRoom   string
	Bio           string
}

// Normalize trims every field.
func (in Input) Normalize() Input {
	return Input{
		FullName:      strings.TrimSpace(in.FullName),
		ExpertiseArea: strings.TrimSpace(in.ExpertiseArea),
		ContactInfo:   strings.TrimSpace(in.ContactInfo),
		MeetingRoom:   strings.TrimSpace(in.MeetingRoom),
		Bio:           strings.TrimSpace(in.Bio),
	}
}

// Validate checks the fields the form marks as required.
// PRE: Input has been normalized
// POST: Returns nil if valid, error otherwise
func (in Input) Validate() error {
	if in.FullName == "" {
		return ErrEmptyFullName
	}
	if in.ExpertiseArea == "" {
		return ErrEmptyExpertiseArea
	}
	return nil
}

// InputFrom pre-fills the form for editing e.
func InputFrom(e Expert) Input {
	return Input{
		FullName:      e.FullName,
		ExpertiseArea: e.ExpertiseArea,
		ContactInfo:   e.ContactInfo,
		MeetingRoom:   e.MeetingRoom,
		Bio:           e.Bio,
	}
}
