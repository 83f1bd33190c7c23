package slot

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"consultdesk/internal/domain/format"
)

// Slot is a bookable time interval owned by an expert.
// IsAvailable is server-authoritative and never derived client-side.
type Slot struct {
	ID              int64
	ExpertID        int64
	StartAt         time.Time
	DurationMinutes int
	IsAvailable     bool
}

// Mode selects which request shape a slot form submission produces.
type Mode int

const (
	// ModeSingle creates one slot from start + duration.
	ModeSingle Mode = iota
	// ModeBatch creates consecutive slots covering start..end.
	ModeBatch
	// ModeEdit patches start + duration of an existing slot.
	ModeEdit
)

// String returns a log-friendly name.
func (m Mode) String() string {
	switch m {
	case ModeBatch:
		return "batch"
	case ModeEdit:
		return "edit"
	default:
		return "single"
	}
}

// Form validation errors; messages are shown to the user as-is.
var (
	ErrNoExpert       = errors.New("Выберите эксперта для слотов")
	ErrNoStart        = errors.New("Укажите дату и время начала")
	ErrInvalidStart   = errors.New("Некорректная дата начала")
	ErrInvalidEnd     = errors.New("Некорректная дата окончания")
	ErrNoDuration     = errors.New("Укажите длительность слота")
	ErrEndBeforeStart = errors.New("Конец периода должен быть позже начала")
)

// Form carries the raw slot form values.
// SlotID non-empty means edit mode; End non-empty (outside edit mode) means batch mode.
type Form struct {
	ExpertID string
	SlotID   string
	Start    string // datetime-local
	End      string // datetime-local
	Duration string
}

// Plan is a validated slot request ready to be sent.
type Plan struct {
	Mode            Mode
	ExpertID        int64
	SlotID          int64
	StartAt         time.Time
	EndAt           time.Time
	DurationMinutes int
}

// Plan validates the form and resolves the request shape.
// Checks run in order: expert chosen, start present, duration present, then
// for batch mode end strictly after start. The end field is ignored in edit mode.
// PRE: loc is the location the form's wall times are entered in
// POST: Returns a Plan or the first validation error
func (f Form) Plan(loc *time.Location) (Plan, error) {
	expertID, _ := strconv.ParseInt(strings.TrimSpace(f.ExpertID), 10, 64)
	if expertID <= 0 {
		return Plan{}, ErrNoExpert
	}
	if strings.TrimSpace(f.Start) == "" {
		return Plan{}, ErrNoStart
	}
	start, err := format.ParseDateTimeInput(f.Start, loc)
	if err != nil {
		return Plan{}, ErrInvalidStart
	}
	duration, _ := strconv.Atoi(strings.TrimSpace(f.Duration))
	if duration <= 0 {
		return Plan{}, ErrNoDuration
	}

	p := Plan{
		Mode:            ModeSingle,
		ExpertID:        expertID,
		StartAt:         start,
		DurationMinutes: duration,
	}

	if id, _ := strconv.ParseInt(strings.TrimSpace(f.SlotID), 10, 64); id > 0 {
		p.Mode = ModeEdit
		p.SlotID = id
		return p, nil
	}

	if strings.TrimSpace(f.End) != "" {
		end, err := format.ParseDateTimeInput(f.End, loc)
		if err != nil {
			return Plan{}, ErrInvalidEnd
		}
		if !end.After(start) {
			return Plan{}, ErrEndBeforeStart
		}
		p.Mode = ModeBatch
		p.EndAt = end
	}
	return p, nil
}

// EditForm pre-fills a form for editing s. Only start and duration are
// carried; the end field stays blank so an edit never turns into a batch.
func EditForm(s Slot, loc *time.Location) Form {
	return Form{
		ExpertID: strconv.FormatInt(s.ExpertID, 10),
		SlotID:   strconv.FormatInt(s.ID, 10),
		Start:    format.DateTimeInput(s.StartAt, loc),
		Duration: strconv.Itoa(s.DurationMinutes),
	}
}
