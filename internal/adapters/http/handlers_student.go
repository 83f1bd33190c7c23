package web

import (
	"errors"
	"net/http"

	"consultdesk/internal/adapters/http/middleware"
	"consultdesk/internal/adapters/metrics"
	"consultdesk/internal/application/listutil"
	"consultdesk/internal/application/orchestrators"
	"consultdesk/internal/application/projections"
	"consultdesk/internal/domain/booking"
	"consultdesk/internal/domain/flash"
)

// studentForms carries the values re-rendered into the booking and cancel forms.
type studentForms struct {
	Booking    booking.Request
	Cancel     booking.Cancellation
	FieldError string
}

// bookingFromForm reads the booking fields. The slot comes from the session, not the form.
func bookingFromForm(r *http.Request) booking.Request {
	return booking.Request{
		StudentName:   r.PostFormValue(booking.FieldStudentName),
		StudentEmail:  r.PostFormValue(booking.FieldStudentEmail),
		VKRType:       r.PostFormValue(booking.FieldVKRType),
		Magistracy:    r.PostFormValue(booking.FieldMagistracy),
		Question:      r.PostFormValue(booking.FieldQuestion),
		ArtifactsLink: r.PostFormValue(booking.FieldArtifactsLink),
	}
}

// saveDraft keeps typed booking values when a button other than submit posts the form.
func saveDraft(r *http.Request, sess *middleware.Session) {
	draft := bookingFromForm(r)
	if draft == (booking.Request{}) {
		return
	}
	sess.Draft = &draft
}

// handleStudentPage handles GET /student
func handleStudentPage(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	forms := studentForms{}
	if sess.Draft != nil {
		forms.Booking = *sess.Draft
	}
	renderStudentPage(w, r, forms, sess.TakeFlash(flash.TargetBooking, flash.TargetCancel))
}

// renderStudentPage loads experts and renders the booking page.
// The popup is shown once, right after a booking was made.
func renderStudentPage(w http.ResponseWriter, r *http.Request, forms studentForms, msgs flash.Set) {
	sess := currentSession(r)

	page, err := projections.QueryStudentPage(r.Context(), projections.StudentPageInput{
		HorizonDays:    settings.HorizonDays,
		Location:       settings.Location,
		Start:          sess.ExpertIndex,
		SelectedSlotID: sess.SelectedSlotID,
	}, projections.StudentPageDeps{Experts: api})
	if err != nil {
		msgs.Error(flash.TargetBooking, userMessage(err))
	} else {
		sess.ExpertIndex = page.Window.Start
		sess.SelectedSlotID = page.SelectedSlotID
	}

	var popup *booking.Receipt
	if sess.PopupOpen {
		popup = sess.LastBooking
		sess.PopupOpen = false
	}

	renderTemplate(w, r, "student.html", map[string]any{
		"Page":              page,
		"Forms":             forms,
		"Messages":          msgs,
		"Popup":             popup,
		"HasReceipt":        sess.LastBooking != nil,
		"VKRTypes":          settings.VKRTypes,
		"MagistracyOptions": settings.MagistracyOptions,
	})
}

// handleSelectSlot handles POST /student/slots/{id}/select
func handleSelectSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := listutil.PathID(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	sess := currentSession(r)
	saveDraft(r, sess)
	sess.SelectedSlotID = orchestrators.ToggleSlot(sess.SelectedSlotID, id)
	sess.Flash.Clear(flash.TargetBooking)
	http.Redirect(w, r, "/student", http.StatusSeeOther)
}

// handleExpertsPrev handles POST /student/experts/prev
func handleExpertsPrev(w http.ResponseWriter, r *http.Request) {
	stepExperts(w, r, false)
}

// handleExpertsNext handles POST /student/experts/next
func handleExpertsNext(w http.ResponseWriter, r *http.Request) {
	stepExperts(w, r, true)
}

func stepExperts(w http.ResponseWriter, r *http.Request, forward bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	sess := currentSession(r)
	saveDraft(r, sess)

	start, err := orchestrators.ExecuteStepExperts(r.Context(), orchestrators.StepExpertsInput{
		Start:       sess.ExpertIndex,
		Forward:     forward,
		HorizonDays: settings.HorizonDays,
	}, orchestrators.StepExpertsDeps{Experts: api})
	if err != nil {
		sess.PutFlash(flash.TargetBooking, userMessage(err), flash.KindError)
	}
	sess.ExpertIndex = start
	http.Redirect(w, r, "/student", http.StatusSeeOther)
}

// handleBook handles POST /student/book
func handleBook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	sess := currentSession(r)
	req := bookingFromForm(r)
	req.SlotID = sess.SelectedSlotID

	receipt, err := orchestrators.ExecuteBookSlot(r.Context(), req, orchestrators.BookSlotDeps{Bookings: api})
	if err != nil {
		forms := studentForms{Booking: req}
		var fieldErr *booking.FieldError
		if errors.As(err, &fieldErr) {
			forms.FieldError = fieldErr.Field
			metrics.RecordValidationFailure("booking")
		}
		sess.Draft = &req
		msgs := flash.Set{}
		msgs.Error(flash.TargetBooking, userMessage(err))
		renderStudentPage(w, r, forms, msgs)
		return
	}

	metrics.RecordBookingCreated()
	sess.LastBooking = &receipt
	sess.PopupOpen = true
	sess.SelectedSlotID = 0
	sess.Draft = nil
	sess.Flash.Clear(flash.TargetBooking)
	http.Redirect(w, r, "/student", http.StatusSeeOther)
}

// handleCancel handles POST /student/cancel
func handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	sess := currentSession(r)
	form := booking.Cancellation{
		BookingID: r.PostFormValue("bookingId"),
		Code:      r.PostFormValue("cancellationCode"),
	}

	msg, err := orchestrators.ExecuteCancelBooking(r.Context(), form, orchestrators.CancelBookingDeps{Bookings: api})
	if err != nil {
		recordValidation("cancel", err)
		forms := studentForms{Cancel: form}
		if sess.Draft != nil {
			forms.Booking = *sess.Draft
		}
		msgs := flash.Set{}
		msgs.Error(flash.TargetCancel, userMessage(err))
		renderStudentPage(w, r, forms, msgs)
		return
	}

	metrics.RecordBookingCancelled()
	sess.PutFlash(flash.TargetCancel, msg, flash.KindSuccess)
	http.Redirect(w, r, "/student", http.StatusSeeOther)
}

// handleClosePopup handles POST /student/popup/close
func handleClosePopup(w http.ResponseWriter, r *http.Request) {
	currentSession(r).PopupOpen = false
	http.Redirect(w, r, "/student", http.StatusSeeOther)
}

// handleReceipt handles GET /student/receipt
func handleReceipt(w http.ResponseWriter, r *http.Request) {
	rc := currentSession(r).LastBooking
	if rc == nil {
		http.Error(w, "Нет данных о записи", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+rc.Filename()+`"`)
	_, _ = w.Write([]byte(rc.Text()))
}
