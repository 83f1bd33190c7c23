package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"consultdesk/internal/adapters/bookingapi"
	"consultdesk/internal/adapters/http/middleware"
	"consultdesk/internal/domain/booking"
	"consultdesk/internal/domain/flash"
)

var msk = time.FixedZone("MSK", 3*60*60)

const expertsJSON = `[{"id":3,"full_name":"Анна Петрова","expertise_area":"Машинное обучение",
"contact_info":"@anna","meeting_room":null,"bio":null,
"slots":[
 {"id":10,"expert_id":3,"start_at":"2026-05-04T10:00:00","duration_minutes":30,"is_available":true},
 {"id":11,"expert_id":3,"start_at":"2026-05-04T11:00:00","duration_minutes":30,"is_available":false}
]}]`

const bookingsJSON = `[{"id":5,"slot_id":11,"student_name":"Иван","student_email":"ivan@example.com",
"question":"Про датасет","vkr_type":"ВКР","magistracy":null,"artifacts_link":null,
"cancellation_code":null,"created_at":"2026-05-01T09:00:00"}]`

type reply struct {
	status int
	body   string
}

// upstream is a fake booking API recording every call as "METHOD path".
type upstream struct {
	mu     sync.Mutex
	calls  []string
	tokens map[string]string
	routes map[string]reply
}

func (u *upstream) called(key string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, c := range u.calls {
		if c == key {
			return true
		}
	}
	return false
}

func (u *upstream) callCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.calls)
}

// newUpstream points the package globals at a fake API serving routes.
// Unlisted routes answer 200 with an empty JSON list.
func newUpstream(t *testing.T, routes map[string]reply) *upstream {
	t.Helper()
	up := &upstream{routes: routes, tokens: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		up.mu.Lock()
		up.calls = append(up.calls, key)
		up.tokens[key] = r.Header.Get(bookingapi.AdminTokenHeader)
		rep, ok := up.routes[key]
		up.mu.Unlock()
		if !ok {
			rep = reply{http.StatusOK, "[]"}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rep.status)
		_, _ = w.Write([]byte(rep.body))
	}))
	t.Cleanup(srv.Close)

	api = bookingapi.New(srv.URL, bookingapi.WithLocation(msk))
	sessions = nil
	settings = Settings{HorizonDays: 365, Location: msk, VKRTypes: []string{"ВКР", "ВКРС"}}
	return up
}

// serve routes req through the real mux with sess attached, as the Sessions middleware would.
func serve(sess *middleware.Session, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	registerRoutes(mux)
	req = req.WithContext(middleware.ContextWithSession(req.Context(), sess))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func bookingForm() url.Values {
	return url.Values{
		"studentName":   {"Иван"},
		"studentEmail":  {"ivan@example.com"},
		"vkrType":       {"ВКР"},
		"magistracy":    {"Data Science"},
		"question":      {"Про датасет"},
		"artifactsLink": {"https://example.com/repo"},
	}
}

func TestStudentPage_ShowsAvailableSlotsOnly(t *testing.T) {
	newUpstream(t, map[string]reply{"GET /experts": {200, expertsJSON}})

	rr := serve(&middleware.Session{}, httptest.NewRequest(http.MethodGet, "/student", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Анна Петрова") || !strings.Contains(body, "пн, 4 мая, 10:00") {
		t.Errorf("expert card missing:\n%s", body)
	}
	if strings.Contains(body, "11:00") {
		t.Error("booked slot must not be offered to students")
	}
	if !strings.Contains(body, `id="book-button" disabled`) {
		t.Error("book button must be disabled without a selected slot")
	}
}

func TestStudentPage_LoadErrorShownInBookingMessage(t *testing.T) {
	newUpstream(t, map[string]reply{"GET /experts": {500, `{"detail":"База недоступна"}`}})

	rr := serve(&middleware.Session{}, httptest.NewRequest(http.MethodGet, "/student", nil))
	if !strings.Contains(rr.Body.String(), "База недоступна") {
		t.Errorf("load error not rendered:\n%s", rr.Body.String())
	}
}

func TestSelectSlot_TogglesAndKeepsDraft(t *testing.T) {
	newUpstream(t, nil)
	sess := &middleware.Session{}

	rr := serve(sess, postForm("/student/slots/10/select", url.Values{"studentName": {"Иван"}}))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/student" {
		t.Fatalf("select: %d %s", rr.Code, rr.Header().Get("Location"))
	}
	if sess.SelectedSlotID != 10 {
		t.Errorf("SelectedSlotID = %d, want 10", sess.SelectedSlotID)
	}
	if sess.Draft == nil || sess.Draft.StudentName != "Иван" {
		t.Errorf("Draft = %+v", sess.Draft)
	}

	serve(sess, postForm("/student/slots/10/select", url.Values{}))
	if sess.SelectedSlotID != 0 {
		t.Errorf("second click must clear selection, got %d", sess.SelectedSlotID)
	}
}

func TestBook_SuccessShowsPopupOnce(t *testing.T) {
	up := newUpstream(t, map[string]reply{
		"GET /experts":        {200, expertsJSON},
		"POST /slots/10/book": {200, `{"id":42,"slot_id":10,"student_name":"Иван","student_email":"ivan@example.com","question":"Про датасет","cancellation_code":"XK7Q","created_at":"2026-05-01T09:00:00"}`},
	})
	sess := &middleware.Session{SelectedSlotID: 10, Draft: &booking.Request{StudentName: "old"}}

	rr := serve(sess, postForm("/student/book", bookingForm()))
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body:\n%s", rr.Code, rr.Body.String())
	}
	if !up.called("POST /slots/10/book") {
		t.Error("booking not sent for the selected slot")
	}
	if sess.LastBooking == nil || sess.LastBooking.BookingID != 42 || sess.LastBooking.CancellationCode != "XK7Q" {
		t.Fatalf("LastBooking = %+v", sess.LastBooking)
	}
	if sess.SelectedSlotID != 0 || sess.Draft != nil || !sess.PopupOpen {
		t.Errorf("session after booking = %+v", sess)
	}

	body := serve(sess, httptest.NewRequest(http.MethodGet, "/student", nil)).Body.String()
	if !strings.Contains(body, "XK7Q") || !strings.Contains(body, "popup-close-form") {
		t.Errorf("popup not shown:\n%s", body)
	}
	body = serve(sess, httptest.NewRequest(http.MethodGet, "/student", nil)).Body.String()
	if strings.Contains(body, "popup-close-form") {
		t.Error("popup must not reappear on the next load")
	}
}

func TestBook_ValidationKeepsValuesAndSkipsAPI(t *testing.T) {
	up := newUpstream(t, map[string]reply{"GET /experts": {200, expertsJSON}})
	sess := &middleware.Session{SelectedSlotID: 10}

	form := bookingForm()
	form.Del("studentEmail")
	rr := serve(sess, postForm("/student/book", form))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Заполните поле") || !strings.Contains(body, `value="Иван"`) {
		t.Errorf("expected message and kept values:\n%s", body)
	}
	if up.called("POST /slots/10/book") {
		t.Error("invalid booking must not reach the API")
	}
	if sess.Draft == nil || sess.Draft.Question != "Про датасет" {
		t.Errorf("Draft = %+v", sess.Draft)
	}
}

func TestBook_WithoutSlot(t *testing.T) {
	newUpstream(t, map[string]reply{"GET /experts": {200, expertsJSON}})

	rr := serve(&middleware.Session{}, postForm("/student/book", bookingForm()))
	if !strings.Contains(rr.Body.String(), "Сначала выберите слот") {
		t.Errorf("body:\n%s", rr.Body.String())
	}
}

func TestCancel(t *testing.T) {
	t.Run("invalid id keeps values", func(t *testing.T) {
		up := newUpstream(t, map[string]reply{"GET /experts": {200, expertsJSON}})
		rr := serve(&middleware.Session{}, postForm("/student/cancel", url.Values{
			"bookingId": {"abc"}, "cancellationCode": {"XK7Q"},
		}))
		body := rr.Body.String()
		if !strings.Contains(body, "Укажите ID записи") || !strings.Contains(body, `value="XK7Q"`) {
			t.Errorf("body:\n%s", body)
		}
		if up.callCount() != 1 {
			t.Errorf("only the expert list should be loaded, calls = %v", up.calls)
		}
	})

	t.Run("success", func(t *testing.T) {
		up := newUpstream(t, map[string]reply{"DELETE /bookings/42": {204, ""}})
		sess := &middleware.Session{}
		rr := serve(sess, postForm("/student/cancel", url.Values{
			"bookingId": {" 42 "}, "cancellationCode": {"XK7Q"},
		}))
		if rr.Code != http.StatusSeeOther {
			t.Fatalf("status = %d", rr.Code)
		}
		if !up.called("DELETE /bookings/42") {
			t.Errorf("calls = %v", up.calls)
		}
		if m, ok := sess.Flash.Get(flash.TargetCancel); !ok || m.Text != "Запись удалена" {
			t.Errorf("flash = %v", sess.Flash)
		}
	})
}

func TestReceipt(t *testing.T) {
	newUpstream(t, nil)

	rr := serve(&middleware.Session{}, httptest.NewRequest(http.MethodGet, "/student/receipt", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("without booking: %d", rr.Code)
	}

	sess := &middleware.Session{LastBooking: &booking.Receipt{BookingID: 42, CancellationCode: "XK7Q", StudentName: "Иван"}}
	rr = serve(sess, httptest.NewRequest(http.MethodGet, "/student/receipt", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "booking_42.txt") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.Contains(rr.Body.String(), "Код отмены: XK7Q") {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	up := newUpstream(t, nil)

	rr := serve(&middleware.Session{}, postForm("/admin/experts/3/delete", url.Values{"confirmed": {"yes"}}))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/admin/login" {
		t.Errorf("got %d %s", rr.Code, rr.Header().Get("Location"))
	}
	if up.callCount() != 0 {
		t.Errorf("no upstream call expected, got %v", up.calls)
	}
}

func TestDeleteExpert_AsksForConfirmation(t *testing.T) {
	up := newUpstream(t, nil)
	sess := &middleware.Session{AdminToken: "secret"}

	rr := serve(sess, postForm("/admin/experts/3/delete", url.Values{"filter": {"3"}}))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Удалить эксперта и все его слоты?") || !strings.Contains(body, `name="confirmed" value="yes"`) {
		t.Errorf("confirmation page missing:\n%s", body)
	}
	if up.callCount() != 0 {
		t.Errorf("unconfirmed delete reached the API: %v", up.calls)
	}
}

func TestDeleteExpert_Confirmed(t *testing.T) {
	up := newUpstream(t, map[string]reply{"DELETE /experts/3": {204, ""}})
	sess := &middleware.Session{AdminToken: "secret"}

	rr := serve(sess, postForm("/admin/experts/3/delete", url.Values{"confirmed": {"yes"}}))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/admin" {
		t.Fatalf("got %d %s", rr.Code, rr.Header().Get("Location"))
	}
	if !up.called("DELETE /experts/3") || up.tokens["DELETE /experts/3"] != "secret" {
		t.Errorf("calls = %v tokens = %v", up.calls, up.tokens)
	}
	if m, ok := sess.Flash.Get(flash.TargetAdmin); !ok || m.Text != "Эксперт удалён" {
		t.Errorf("flash = %v", sess.Flash)
	}

	// following the redirect reloads both lists
	rr = serve(sess, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("admin page status = %d", rr.Code)
	}
	if !up.called("GET /experts") || !up.called("GET /bookings") {
		t.Errorf("reload calls = %v", up.calls)
	}
	if !strings.Contains(rr.Body.String(), "Эксперт удалён") {
		t.Error("flash not shown after redirect")
	}
}

func TestAdminPage_RendersExpertsAndBookings(t *testing.T) {
	newUpstream(t, map[string]reply{
		"GET /experts":  {200, expertsJSON},
		"GET /bookings": {200, bookingsJSON},
	})
	sess := &middleware.Session{AdminToken: "secret"}
	sess.PutFlash(flash.TargetAdmin, "Слот добавлен", flash.KindSuccess)

	rr := serve(sess, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"1/2 свободно", "Занято", "Про датасет", "Слот добавлен", "пн, 4 мая, 11:00"} {
		if !strings.Contains(body, want) {
			t.Errorf("admin page missing %q", want)
		}
	}
	if len(sess.Flash) != 0 {
		t.Error("flash must be consumed by the render")
	}
}

func TestAdminPage_FilterUsesExpertBookings(t *testing.T) {
	up := newUpstream(t, map[string]reply{
		"GET /experts":            {200, expertsJSON},
		"GET /experts/3/bookings": {200, bookingsJSON},
	})

	rr := serve(&middleware.Session{AdminToken: "secret"}, httptest.NewRequest(http.MethodGet, "/admin?filter=3", nil))
	if !strings.Contains(rr.Body.String(), "Фильтр по эксперту применён") {
		t.Errorf("filter notice missing")
	}
	if up.called("GET /bookings") {
		t.Error("filtered view must not load the full list")
	}
}

func TestSaveExpert_ValidationRerendersForm(t *testing.T) {
	up := newUpstream(t, map[string]reply{"GET /experts": {200, expertsJSON}})

	rr := serve(&middleware.Session{AdminToken: "secret"}, postForm("/admin/experts", url.Values{
		"full_name": {"Борис"}, "contact_info": {"@boris"},
	}))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `value="@boris"`) {
		t.Error("submitted values must be kept")
	}
	if up.called("POST /experts") {
		t.Error("invalid expert must not reach the API")
	}
}

func TestAdminLogin(t *testing.T) {
	t.Run("empty token", func(t *testing.T) {
		up := newUpstream(t, nil)
		rr := serve(&middleware.Session{}, postForm("/admin/login", url.Values{"token": {"  "}}))
		if !strings.Contains(rr.Body.String(), "Введите токен") {
			t.Errorf("body:\n%s", rr.Body.String())
		}
		if up.callCount() != 0 {
			t.Errorf("calls = %v", up.calls)
		}
	})

	t.Run("rejected with generic body", func(t *testing.T) {
		newUpstream(t, map[string]reply{"POST /admin/login": {401, ""}})
		rr := serve(&middleware.Session{}, postForm("/admin/login", url.Values{"token": {"bad"}}))
		if !strings.Contains(rr.Body.String(), "Неверный токен") {
			t.Errorf("body:\n%s", rr.Body.String())
		}
	})

	t.Run("success renews session", func(t *testing.T) {
		newUpstream(t, map[string]reply{"POST /admin/login": {200, `{}`}})
		store := middleware.NewMemoryStore()
		sessions = store
		sess := &middleware.Session{ID: "before", CreatedAt: time.Now()}
		_ = store.Save(context.Background(), sess)

		rr := serve(sess, postForm("/admin/login", url.Values{"token": {" secret "}}))
		if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/admin" {
			t.Fatalf("got %d %s", rr.Code, rr.Header().Get("Location"))
		}
		if sess.AdminToken != "secret" || sess.ID == "before" {
			t.Errorf("session = %+v", sess)
		}
	})
}

func TestExpertPage_SelectsOnlyExpert(t *testing.T) {
	up := newUpstream(t, map[string]reply{
		"GET /experts":            {200, expertsJSON},
		"GET /experts/3/bookings": {200, bookingsJSON},
	})

	rr := serve(&middleware.Session{ExpertAuthed: true}, httptest.NewRequest(http.MethodGet, "/expert", nil))
	body := rr.Body.String()
	if !strings.Contains(body, "Иван") || !strings.Contains(body, "Список обновлён") {
		t.Errorf("body:\n%s", body)
	}
	if !up.called("GET /experts/3/bookings") {
		t.Errorf("calls = %v", up.calls)
	}
}

func TestExpertPage_RequiresLogin(t *testing.T) {
	newUpstream(t, nil)
	rr := serve(&middleware.Session{}, httptest.NewRequest(http.MethodGet, "/expert", nil))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/expert/login" {
		t.Errorf("got %d %s", rr.Code, rr.Header().Get("Location"))
	}
}

func TestHealth(t *testing.T) {
	newUpstream(t, map[string]reply{"GET /health": {200, `{"status":"ok"}`}})
	rr := serve(&middleware.Session{}, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"upstream":"ok"`) {
		t.Errorf("healthy: %d %s", rr.Code, rr.Body.String())
	}

	newUpstream(t, map[string]reply{"GET /health": {503, `{"detail":"down"}`}})
	rr = serve(&middleware.Session{}, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded: %d", rr.Code)
	}
}

func TestNewMux_ServesStaticAndMetrics(t *testing.T) {
	handler := NewMux(Options{
		API:       bookingapi.New("http://127.0.0.1:0"),
		Sessions:  middleware.NewMemoryStore(),
		Settings:  Settings{HorizonDays: 365, Location: msk},
		CSRFKey:   []byte("0123456789abcdef0123456789abcdef"),
		RateLimit: 10,
	})

	for _, path := range []string{"/static/style.css", "/metrics"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, rr.Code)
		}
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, postForm("/student/book", bookingForm()))
	if rr.Code != http.StatusForbidden {
		t.Errorf("POST without CSRF token = %d, want 403", rr.Code)
	}
}
