package projections

import (
	"context"
	"strconv"
	"time"

	"consultdesk/internal/domain/expert"
	"consultdesk/internal/domain/slot"
)

// AdminPageDeps holds dependencies for the admin page projection.
type AdminPageDeps struct {
	Experts  ExpertLister
	Bookings BookingLister
}

// ExpertForm is the expert form state. ID > 0 means edit mode.
type ExpertForm struct {
	ID    int64
	Input expert.Input
}

// AdminPageInput selects what the admin page shows.
// ExpertForm and SlotForm, when set, carry values re-rendered after a failed submission.
type AdminPageInput struct {
	Token          string
	HorizonDays    int
	Location       *time.Location
	FilterExpertID int64
	EditExpertID   int64
	EditSlotID     int64
	EditBookingID  int64
	ExpertForm     *ExpertForm
	SlotForm       *slot.Form
}

// AdminPage is the admin dashboard view.
type AdminPage struct {
	Experts          []ExpertCard
	SlotOptions      []Option
	FilterOptions    []Option
	FilterExpertID   int64
	ExpertForm       ExpertForm
	SlotForm         slot.Form
	SlotFormDisabled bool
	Bookings         []BookingView
	BookingsLoaded   bool
	EditBookingID    int64
	Notice           string
}

// EditingExpert reports whether the expert form is in edit mode.
func (p AdminPage) EditingExpert() bool { return p.ExpertForm.ID > 0 }

// EditingSlot reports whether the slot form is in edit mode.
func (p AdminPage) EditingSlot() bool { return p.SlotForm.SlotID != "" }

// QueryAdminPage loads experts and bookings for the admin dashboard.
// With a filter, bookings come from the public per-expert endpoint; without, from the
// authenticated list. A filter naming an expert no longer listed is dropped.
// PRE: input.Location is non-nil
// POST: Returns a renderable page; err is the last load failure, if any
func QueryAdminPage(ctx context.Context, input AdminPageInput, deps AdminPageDeps) (AdminPage, error) {
	var page AdminPage
	var loadErr error

	experts, err := deps.Experts.ListExperts(ctx, input.HorizonDays)
	expertsLoaded := err == nil
	if err != nil {
		loadErr = err
	}

	for _, e := range experts {
		page.Experts = append(page.Experts, expertCard(e, e.Slots, input.Location))
	}
	page.SlotFormDisabled = len(experts) == 0

	page.FilterExpertID = input.FilterExpertID
	if expertsLoaded && page.FilterExpertID > 0 {
		if _, ok := expert.FindByID(experts, page.FilterExpertID); !ok {
			page.FilterExpertID = 0
		}
	}
	page.FilterOptions = expertOptions(experts, page.FilterExpertID)

	page.ExpertForm = adminExpertForm(input, experts)
	page.SlotForm = adminSlotForm(input, experts)
	slotExpert, _ := strconv.ParseInt(page.SlotForm.ExpertID, 10, 64)
	page.SlotOptions = expertOptions(experts, slotExpert)

	if page.FilterExpertID > 0 {
		bookings, err := deps.Bookings.ListExpertBookings(ctx, page.FilterExpertID)
		if err != nil {
			loadErr = err
		} else {
			page.Bookings = bookingViews(bookings, experts, input.Location, rawSlotID)
			page.BookingsLoaded = true
			page.Notice = "Фильтр по эксперту применён"
		}
	} else if input.Token != "" {
		bookings, err := deps.Bookings.ListBookings(ctx, input.Token)
		if err != nil {
			loadErr = err
		} else {
			page.Bookings = bookingViews(bookings, experts, input.Location, rawSlotID)
			page.BookingsLoaded = true
		}
	}

	for i := range page.Bookings {
		if page.Bookings[i].ID == input.EditBookingID {
			page.Bookings[i].Editing = true
			page.EditBookingID = input.EditBookingID
		}
	}
	return page, loadErr
}

func adminExpertForm(input AdminPageInput, experts []expert.Expert) ExpertForm {
	if input.ExpertForm != nil {
		return *input.ExpertForm
	}
	if input.EditExpertID > 0 {
		if e, ok := expert.FindByID(experts, input.EditExpertID); ok {
			return ExpertForm{ID: e.ID, Input: expert.InputFrom(e)}
		}
	}
	return ExpertForm{}
}

// adminSlotForm pre-fills edit mode only for slots still available; booked slots offer no edit.
func adminSlotForm(input AdminPageInput, experts []expert.Expert) slot.Form {
	if input.SlotForm != nil {
		return *input.SlotForm
	}
	if input.EditSlotID > 0 {
		if s, owner, ok := expert.FindSlot(experts, input.EditSlotID); ok && s.IsAvailable {
			s.ExpertID = owner.ID
			return slot.EditForm(s, input.Location)
		}
	}
	return slot.Form{}
}
