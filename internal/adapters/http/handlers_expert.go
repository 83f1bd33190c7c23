package web

import (
	"net/http"

	"consultdesk/internal/adapters/http/middleware"
	"consultdesk/internal/application/listutil"
	"consultdesk/internal/application/orchestrators"
	"consultdesk/internal/application/projections"
	"consultdesk/internal/domain/flash"
)

// handleExpertPage handles GET /expert?expert=ID
func handleExpertPage(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	page, err := projections.QueryExpertPage(r.Context(), projections.ExpertPageInput{
		HorizonDays:      settings.HorizonDays,
		Location:         settings.Location,
		SelectedExpertID: listutil.ParseID(r.URL.Query(), "expert"),
	}, projections.ExpertPageDeps{Experts: api, Bookings: api})

	msgs := sess.TakeFlash(flash.TargetExpert)
	if page.Notice != "" {
		msgs.Success(flash.TargetExpert, page.Notice)
	}
	if err != nil {
		msgs.Error(flash.TargetExpert, userMessage(err))
	}

	renderTemplate(w, r, "expert.html", map[string]any{
		"Page":     page,
		"Messages": msgs,
	})
}

// handleExpertLoginPage handles GET /expert/login
func handleExpertLoginPage(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if sess.ExpertAuthed {
		http.Redirect(w, r, "/expert", http.StatusSeeOther)
		return
	}
	renderTemplate(w, r, "expert_login.html", map[string]any{
		"Messages": sess.TakeFlash(flash.TargetLogin),
	})
}

// handleExpertLogin handles POST /expert/login
func handleExpertLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	sess := currentSession(r)

	if err := orchestrators.ExecuteExpertLogin(r.Context(), r.PostFormValue("code"), orchestrators.AuthDeps{Auth: api}); err != nil {
		msgs := flash.Set{}
		msgs.Error(flash.TargetLogin, userMessage(err))
		renderTemplate(w, r, "expert_login.html", map[string]any{
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
	sess.ExpertAuthed = true
	http.Redirect(w, r, "/expert", http.StatusSeeOther)
}

// handleExpertLogout handles POST /expert/logout
func handleExpertLogout(w http.ResponseWriter, r *http.Request) {
	orchestrators.ExecuteExpertLogout(r.Context(), orchestrators.AuthDeps{Auth: api})
	currentSession(r).ExpertAuthed = false
	http.Redirect(w, r, "/expert/login", http.StatusSeeOther)
}
