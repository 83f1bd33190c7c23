package projections

import (
	"context"
	"time"

	"consultdesk/internal/domain/expert"
)

// ExpertPageDeps holds dependencies for the expert page projection.
type ExpertPageDeps struct {
	Experts  ExpertLister
	Bookings BookingLister
}

// ExpertPageInput carries the expert chosen in the select, 0 for none.
type ExpertPageInput struct {
	HorizonDays      int
	Location         *time.Location
	SelectedExpertID int64
}

// ExpertPage is the read-only bookings view for experts.
type ExpertPage struct {
	Options          []Option
	NoExperts        bool
	SelectedExpertID int64
	Bookings         []BookingView
	BookingsLoaded   bool
	Notice           string
}

// QueryExpertPage lists experts and, when one is selected, its bookings.
// A single expert is selected automatically.
// PRE: input.Location is non-nil
// POST: Notice is set only after bookings loaded; err is the last load failure
func QueryExpertPage(ctx context.Context, input ExpertPageInput, deps ExpertPageDeps) (ExpertPage, error) {
	var page ExpertPage
	var loadErr error

	experts, err := deps.Experts.ListExperts(ctx, input.HorizonDays)
	if err != nil {
		loadErr = err
	}
	page.NoExperts = len(experts) == 0

	selected := input.SelectedExpertID
	if err == nil {
		if _, ok := expert.FindByID(experts, selected); !ok {
			selected = 0
		}
		if selected == 0 && len(experts) == 1 {
			selected = experts[0].ID
		}
	}
	page.SelectedExpertID = selected
	page.Options = expertOptions(experts, selected)

	if selected == 0 {
		return page, loadErr
	}
	bookings, err := deps.Bookings.ListExpertBookings(ctx, selected)
	if err != nil {
		return page, err
	}
	page.Bookings = bookingViews(bookings, experts, input.Location, prefixedSlotID)
	page.BookingsLoaded = true
	page.Notice = "Список обновлён"
	return page, loadErr
}
