package projections

import (
	"context"
	"time"

	"consultdesk/internal/application/listutil"
	"consultdesk/internal/domain/expert"
	"consultdesk/internal/domain/format"
)

// StudentPageDeps holds dependencies for the student page projection.
type StudentPageDeps struct {
	Experts ExpertLister
}

// StudentPageInput carries the student's page state.
type StudentPageInput struct {
	HorizonDays    int
	Location       *time.Location
	Start          int
	SelectedSlotID int64
}

// StudentPage is the booking page view.
type StudentPage struct {
	NoExperts       bool
	NoAvailable     bool
	Experts         []ExpertCard
	Window          listutil.Window
	SelectedSlotID  int64
	SelectedSummary string
}

// QueryStudentPage builds the expert window over experts with at least one open slot.
// Only available slots are shown. A selection whose slot is no longer available is dropped.
// PRE: input.Location is non-nil
// POST: At most listutil.ExpertWindowSize experts; Window.Start is clamped
func QueryStudentPage(ctx context.Context, input StudentPageInput, deps StudentPageDeps) (StudentPage, error) {
	experts, err := deps.Experts.ListExperts(ctx, input.HorizonDays)
	if err != nil {
		return StudentPage{SelectedSlotID: input.SelectedSlotID}, err
	}

	var page StudentPage
	visible := expert.WithAvailableSlots(experts)
	page.NoExperts = len(experts) == 0
	page.NoAvailable = !page.NoExperts && len(visible) == 0

	if s, owner, ok := expert.FindSlot(visible, input.SelectedSlotID); ok && s.IsAvailable {
		page.SelectedSlotID = s.ID
		page.SelectedSummary = format.DateTime(s.StartAt, input.Location) + " у " + owner.FullName
	}

	page.Window = listutil.NewWindow(input.Start, len(visible), listutil.ExpertWindowSize)
	for _, e := range visible[page.Window.Start:page.Window.End] {
		card := expertCard(e, e.AvailableSlots(), input.Location)
		for i := range card.Slots {
			card.Slots[i].Selected = card.Slots[i].ID == page.SelectedSlotID
		}
		page.Experts = append(page.Experts, card)
	}
	return page, nil
}
