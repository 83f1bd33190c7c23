package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"consultdesk/internal/adapters/bookingapi"
	"consultdesk/internal/adapters/http/middleware"
	"consultdesk/internal/adapters/metrics"
	"consultdesk/internal/application/listutil"
	"consultdesk/internal/application/orchestrators"
	"consultdesk/internal/application/projections"
	"consultdesk/internal/domain/expert"
	"consultdesk/internal/domain/flash"
	"consultdesk/internal/domain/slot"
)

// adminURL returns the dashboard URL keeping the bookings filter.
func adminURL(filter int64) string {
	if filter > 0 {
		return "/admin?filter=" + strconv.FormatInt(filter, 10)
	}
	return "/admin"
}

// redirectAdmin finishes a successful admin action (post/redirect/get).
func redirectAdmin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, adminURL(listutil.ParseID(r.PostForm, "filter")), http.StatusSeeOther)
}

// redirectAdminLogin handles orchestrators.ErrAuthRequired.
func redirectAdminLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

// recordValidation counts failures that were rejected before reaching the API.
func recordValidation(form string, err error) {
	var apiErr *bookingapi.APIError
	var transportErr *bookingapi.TransportError
	if errors.As(err, &apiErr) || errors.As(err, &transportErr) {
		return
	}
	metrics.RecordValidationFailure(form)
}

// handleAdminPage handles GET /admin
func handleAdminPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	renderAdminPage(w, r, projections.AdminPageInput{
		FilterExpertID: listutil.ParseID(q, "filter"),
		EditExpertID:   listutil.ParseID(q, "edit_expert"),
		EditSlotID:     listutil.ParseID(q, "edit_slot"),
		EditBookingID:  listutil.ParseID(q, "edit_booking"),
	}, nil)
}

// renderAdminPage loads and renders the dashboard. failure, when set, is the
// banner of the action that just failed and replaces any pending one.
func renderAdminPage(w http.ResponseWriter, r *http.Request, input projections.AdminPageInput, failure error) {
	sess := currentSession(r)
	input.Token = sess.AdminToken
	input.HorizonDays = settings.HorizonDays
	input.Location = settings.Location

	page, err := projections.QueryAdminPage(r.Context(), input, projections.AdminPageDeps{Experts: api, Bookings: api})
	msgs := sess.TakeFlash(flash.TargetAdmin)
	if _, ok := msgs.Get(flash.TargetAdmin); !ok && page.Notice != "" {
		msgs.Success(flash.TargetAdmin, page.Notice)
	}
	if err != nil {
		msgs.Error(flash.TargetAdmin, userMessage(err))
	}
	if failure != nil {
		msgs.Error(flash.TargetAdmin, userMessage(failure))
	}

	renderTemplate(w, r, "admin.html", map[string]any{
		"Page":     page,
		"Messages": msgs,
		"Filter":   page.FilterExpertID,
	})
}

// handleSaveExpert handles POST /admin/experts (create, or update when expert_id is set)
func handleSaveExpert(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	sess := currentSession(r)
	form := projections.ExpertForm{
		ID: listutil.ParseID(r.PostForm, "expert_id"),
		Input: expert.Input{
			FullName:      r.PostFormValue("full_name"),
			ExpertiseArea: r.PostFormValue("expertise_area"),
			ContactInfo:   r.PostFormValue("contact_info"),
			MeetingRoom:   r.PostFormValue("meeting_room"),
			Bio:           r.PostFormValue("bio"),
		},
	}

	result, err := orchestrators.ExecuteSaveExpert(r.Context(), orchestrators.SaveExpertInput{
		Token:    sess.AdminToken,
		ExpertID: form.ID,
		Expert:   form.Input,
	}, orchestrators.SaveExpertDeps{Experts: api})
	if errors.Is(err, orchestrators.ErrAuthRequired) {
		redirectAdminLogin(w, r)
		return
	}
	if err != nil {
		recordValidation("expert", err)
		renderAdminPage(w, r, projections.AdminPageInput{
			FilterExpertID: listutil.ParseID(r.PostForm, "filter"),
			ExpertForm:     &form,
		}, err)
		return
	}

	sess.PutFlash(flash.TargetAdmin, result.Message, flash.KindSuccess)
	redirectAdmin(w, r)
}

// handleDeleteExpert handles POST /admin/experts/{id}/delete
func handleDeleteExpert(w http.ResponseWriter, r *http.Request) {
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

	msg, err := orchestrators.ExecuteDeleteExpert(r.Context(), orchestrators.DeleteInput{
		Token:     sess.AdminToken,
		ID:        id,
		Confirmed: isConfirmed(r),
	}, orchestrators.DeleteExpertDeps{Experts: api})
	switch {
	case errors.Is(err, orchestrators.ErrNotConfirmed):
		renderAdminConfirm(w, r, "Удаление эксперта", "Удалить эксперта и все его слоты?")
		return
	case errors.Is(err, orchestrators.ErrAuthRequired):
		redirectAdminLogin(w, r)
		return
	case err != nil:
		sess.PutFlash(flash.TargetAdmin, userMessage(err), flash.KindError)
	default:
		sess.PutFlash(flash.TargetAdmin, msg, flash.KindSuccess)
	}
	redirectAdmin(w, r)
}

// handleRefreshExperts handles POST /admin/experts/refresh
func handleRefreshExperts(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	currentSession(r).PutFlash(flash.TargetAdmin, "Список экспертов обновлён", flash.KindSuccess)
	redirectAdmin(w, r)
}

// handleSaveSlot handles POST /admin/slots (single, batch, or edit when slot_id is set)
func handleSaveSlot(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	sess := currentSession(r)
	form := slot.Form{
		ExpertID: r.PostFormValue("expert_id"),
		SlotID:   r.PostFormValue("slot_id"),
		Start:    r.PostFormValue("start_at"),
		End:      r.PostFormValue("end_at"),
		Duration: r.PostFormValue("duration_minutes"),
	}

	result, err := orchestrators.ExecuteSaveSlot(r.Context(), orchestrators.SaveSlotInput{
		Token:    sess.AdminToken,
		Form:     form,
		Location: settings.Location,
	}, orchestrators.SaveSlotDeps{Slots: api})
	if errors.Is(err, orchestrators.ErrAuthRequired) {
		redirectAdminLogin(w, r)
		return
	}
	if err != nil {
		recordValidation("slot", err)
		renderAdminPage(w, r, projections.AdminPageInput{
			FilterExpertID: listutil.ParseID(r.PostForm, "filter"),
			SlotForm:       &form,
		}, err)
		return
	}

	sess.PutFlash(flash.TargetAdmin, result.Message, flash.KindSuccess)
	redirectAdmin(w, r)
}

// handleDeleteSlot handles POST /admin/slots/{id}/delete
func handleDeleteSlot(w http.ResponseWriter, r *http.Request) {
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

	err := orchestrators.ExecuteDeleteSlot(r.Context(), orchestrators.DeleteInput{
		Token:     sess.AdminToken,
		ID:        id,
		Confirmed: isConfirmed(r),
	}, orchestrators.DeleteSlotDeps{Slots: api})
	switch {
	case errors.Is(err, orchestrators.ErrNotConfirmed):
		renderAdminConfirm(w, r, "Удаление слота", "Удалить слот?")
		return
	case errors.Is(err, orchestrators.ErrAuthRequired):
		redirectAdminLogin(w, r)
		return
	case err != nil:
		sess.PutFlash(flash.TargetAdmin, userMessage(err), flash.KindError)
	}
	redirectAdmin(w, r)
}

// handleRefreshBookings handles POST /admin/bookings/refresh
func handleRefreshBookings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	redirectAdmin(w, r)
}

// handleUpdateQuestion handles POST /admin/bookings/{id}
func handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
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

	msg, err := orchestrators.ExecuteUpdateQuestion(r.Context(), orchestrators.UpdateQuestionInput{
		Token:     sess.AdminToken,
		BookingID: id,
		Current:   r.PostFormValue("current"),
		Question:  r.PostFormValue("question"),
	}, orchestrators.UpdateQuestionDeps{Bookings: api})
	if errors.Is(err, orchestrators.ErrAuthRequired) {
		redirectAdminLogin(w, r)
		return
	}
	if err != nil {
		renderAdminPage(w, r, projections.AdminPageInput{
			FilterExpertID: listutil.ParseID(r.PostForm, "filter"),
			EditBookingID:  id,
		}, err)
		return
	}
	if msg != "" {
		sess.PutFlash(flash.TargetAdmin, msg, flash.KindSuccess)
	}
	redirectAdmin(w, r)
}

// handleDeleteBooking handles POST /admin/bookings/{id}/delete
func handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
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

	msg, err := orchestrators.ExecuteDeleteBooking(r.Context(), orchestrators.DeleteInput{
		Token:     sess.AdminToken,
		ID:        id,
		Confirmed: isConfirmed(r),
	}, orchestrators.DeleteBookingDeps{Bookings: api})
	switch {
	case errors.Is(err, orchestrators.ErrNotConfirmed):
		renderAdminConfirm(w, r, "Удаление записи", "Удалить запись?")
		return
	case errors.Is(err, orchestrators.ErrAuthRequired):
		redirectAdminLogin(w, r)
		return
	case err != nil:
		sess.PutFlash(flash.TargetAdmin, userMessage(err), flash.KindError)
	default:
		sess.PutFlash(flash.TargetAdmin, msg, flash.KindSuccess)
	}
	redirectAdmin(w, r)
}

func renderAdminConfirm(w http.ResponseWriter, r *http.Request, title, prompt string) {
	filter := listutil.ParseID(r.PostForm, "filter")
	page := confirmPage{
		Title:  title,
		Prompt: prompt,
		Action: r.URL.Path,
		Back:   adminURL(filter),
	}
	if filter > 0 {
		page.Filter = strconv.FormatInt(filter, 10)
	}
	renderConfirm(w, r, page)
}

// handleAdminPerf handles GET /admin/perf?minutes=N
func handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if perfCollector == nil {
		http.Error(w, "perf collector not configured", http.StatusServiceUnavailable)
		return
	}
	minutes := 60
	if n, err := strconv.Atoi(r.URL.Query().Get("minutes")); err == nil && n > 0 {
		minutes = n
	}
	snap := perfCollector.Snapshot(time.Now().Add(-time.Duration(minutes)*time.Minute), 10)
	writeJSON(w, http.StatusOK, snap)
}

// handleAdminLoginPage handles GET /admin/login
func handleAdminLoginPage(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if sess.IsAdmin() {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	renderTemplate(w, r, "admin_login.html", map[string]any{
		"Messages": sess.TakeFlash(flash.TargetLogin),
	})
}

// handleAdminLogin handles POST /admin/login
func handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	sess := currentSession(r)

	token, err := orchestrators.ExecuteAdminLogin(r.Context(), r.PostFormValue("token"), orchestrators.AuthDeps{Auth: api})
	if err != nil {
		msgs := flash.Set{}
		msgs.Error(flash.TargetLogin, userMessage(err))
		renderTemplate(w, r, "admin_login.html", map[string]any{
			"Messages": msgs,
		})
		return
	}

	if sessions != nil {
		if err := middleware.Renew(r.Context(), sessions, w, sess, settings.Secure); err != nil {
			internalError(w, err)
			return
		}
	}
	sess.AdminToken = token
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// handleAdminLogout handles POST /admin/logout
func handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	orchestrators.ExecuteAdminLogout(r.Context(), orchestrators.AuthDeps{Auth: api})
	currentSession(r).AdminToken = ""
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}
