//go:build browser

package browser_test

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"consultdesk/internal/adapters/bookingapi"
	web "consultdesk/internal/adapters/http"
	"consultdesk/internal/adapters/http/perf"
	"consultdesk/internal/adapters/storage"
	"consultdesk/internal/adapters/storage/session"
)

const adminToken = "test-admin-token"

var msk = time.FixedZone("MSK", 3*60*60)

type fakeSlot struct {
	ID              int64  `json:"id"`
	ExpertID        int64  `json:"expert_id"`
	StartAt         string `json:"start_at"`
	DurationMinutes int    `json:"duration_minutes"`
	IsAvailable     bool   `json:"is_available"`
}

type fakeExpert struct {
	ID            int64      `json:"id"`
	FullName      string     `json:"full_name"`
	ExpertiseArea string     `json:"expertise_area"`
	ContactInfo   *string    `json:"contact_info"`
	MeetingRoom   *string    `json:"meeting_room"`
	Bio           *string    `json:"bio"`
	Slots         []fakeSlot `json:"slots"`
}

type fakeBooking struct {
	ID               int64  `json:"id"`
	SlotID           int64  `json:"slot_id"`
	StudentName      string `json:"student_name"`
	StudentEmail     string `json:"student_email"`
	Question         string `json:"question"`
	VKRType          string `json:"vkr_type"`
	Magistracy       string `json:"magistracy"`
	ArtifactsLink    string `json:"artifacts_link"`
	CancellationCode string `json:"cancellation_code"`
	CreatedAt        string `json:"created_at"`
}

// fakeAPI is an in-memory booking API covering the endpoints the pages use.
type fakeAPI struct {
	mu       sync.Mutex
	nextID   int64
	experts  []fakeExpert
	bookings []fakeBooking
}

func (f *fakeAPI) id() int64 {
	f.nextID++
	return f.nextID
}

// addExpert seeds an expert with one available slot per start time.
func (f *fakeAPI) addExpert(name string, starts ...string) fakeExpert {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := fakeExpert{ID: f.id(), FullName: name, ExpertiseArea: "Анализ данных"}
	for _, s := range starts {
		e.Slots = append(e.Slots, fakeSlot{ID: f.id(), ExpertID: e.ID, StartAt: s, DurationMinutes: 30, IsAvailable: true})
	}
	f.experts = append(f.experts, e)
	return e
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	admin := r.Header.Get(bookingapi.AdminTokenHeader) == adminToken

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/experts":
		writeJSON(w, http.StatusOK, f.experts)
	case r.Method == http.MethodGet && r.URL.Path == "/health":
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case r.Method == http.MethodPost && r.URL.Path == "/admin/login":
		var body struct {
			Token string `json:"token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Token != adminToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Неверный токен администратора"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	case r.Method == http.MethodPost && r.URL.Path == "/admin/logout":
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodPost && r.URL.Path == "/experts" && admin:
		var e fakeExpert
		_ = json.NewDecoder(r.Body).Decode(&e)
		e.ID = f.id()
		e.Slots = []fakeSlot{}
		f.experts = append(f.experts, e)
		writeJSON(w, http.StatusOK, e)
	case r.Method == http.MethodDelete && len(parts) == 2 && parts[0] == "experts" && admin:
		id, _ := strconv.ParseInt(parts[1], 10, 64)
		for i, e := range f.experts {
			if e.ID == id {
				f.experts = append(f.experts[:i], f.experts[i+1:]...)
				break
			}
		}
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodGet && r.URL.Path == "/bookings" && admin:
		writeJSON(w, http.StatusOK, f.bookings)
	case r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "slots" && parts[2] == "book":
		f.book(w, r, parts[1])
	case r.Method == http.MethodDelete && len(parts) == 2 && parts[0] == "bookings":
		f.cancel(w, r, parts[1])
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found"})
	}
}

func (f *fakeAPI) book(w http.ResponseWriter, r *http.Request, rawID string) {
	slotID, _ := strconv.ParseInt(rawID, 10, 64)
	for ei := range f.experts {
		for si := range f.experts[ei].Slots {
			s := &f.experts[ei].Slots[si]
			if s.ID != slotID {
				continue
			}
			if !s.IsAvailable {
				writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Слот уже занят"})
				return
			}
			var b fakeBooking
			_ = json.NewDecoder(r.Body).Decode(&b)
			b.ID = f.id()
			b.SlotID = slotID
			b.CancellationCode = uuid.NewString()[:8]
			b.CreatedAt = time.Now().In(msk).Format("2006-01-02T15:04:05")
			s.IsAvailable = false
			f.bookings = append(f.bookings, b)
			writeJSON(w, http.StatusOK, b)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Слот не найден"})
}

func (f *fakeAPI) cancel(w http.ResponseWriter, r *http.Request, rawID string) {
	id, _ := strconv.ParseInt(rawID, 10, 64)
	code := r.URL.Query().Get("cancellation_code")
	for i, b := range f.bookings {
		if b.ID != id {
			continue
		}
		if b.CancellationCode != code {
			writeJSON(w, http.StatusForbidden, map[string]string{"detail": "Неверный код отмены"})
			return
		}
		f.bookings = append(f.bookings[:i], f.bookings[i+1:]...)
		for ei := range f.experts {
			for si := range f.experts[ei].Slots {
				if f.experts[ei].Slots[si].ID == b.SlotID {
					f.experts[ei].Slots[si].IsAvailable = true
				}
			}
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Запись не найдена"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// testApp holds the running web server, its fake upstream and Playwright handles.
type testApp struct {
	BaseURL string
	API     *fakeAPI
	Server  *http.Server
	PW      *playwright.Playwright
	Browser playwright.Browser
}

// newTestApp starts the web server against a fake booking API, with sessions in a temp SQLite file.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	fake := &fakeAPI{}
	upstream := httptest.NewServer(fake)
	t.Cleanup(upstream.Close)

	db, err := storage.Open(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("failed to open session DB: %v", err)
	}
	if err := storage.Migrate(t.Context(), db); err != nil {
		t.Fatalf("failed to migrate session DB: %v", err)
	}
	collector := perf.NewCollector(perf.DefaultRingSize)
	timed := storage.NewTimedDB(db, collector, time.Second)
	var key [32]byte
	copy(key[:], []byte("browser-test-session-key-32bytes"))

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	handler := web.NewMux(web.Options{
		API:       bookingapi.New(upstream.URL, bookingapi.WithLocation(msk)),
		Sessions:  session.NewSQLiteStore(timed, session.NewSealer(key)),
		Collector: collector,
		Settings: web.Settings{
			HorizonDays: 365,
			Location:    msk,
			VKRTypes:    []string{"ВКР", "ВКРС"},
		},
		CSRFKey:        key[:],
		RateLimit:      1000,
		SlowRequest:    time.Second,
		TrustedOrigins: []string{fmt.Sprintf("127.0.0.1:%d", port), fmt.Sprintf("localhost:%d", port)},
	})
	srv := &http.Server{Handler: handler}
	go func() {
		if err := srv.Serve(listener); err != http.ErrServerClosed {
			log.Printf("test server error: %v", err)
		}
	}()

	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("failed to start Playwright: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		t.Fatalf("failed to launch browser: %v", err)
	}

	app := &testApp{
		BaseURL: fmt.Sprintf("http://127.0.0.1:%d", port),
		API:     fake,
		Server:  srv,
		PW:      pw,
		Browser: browser,
	}
	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		srv.Close()
		timed.Close()
	})
	return app
}

// newPage creates a new browser page (tab).
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.Browser.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	return page
}

// loginAdmin signs in through the admin login form.
func (a *testApp) loginAdmin(t *testing.T, page playwright.Page) {
	t.Helper()
	if _, err := page.Goto(a.BaseURL + "/admin/login"); err != nil {
		t.Fatalf("failed to navigate to login: %v", err)
	}
	if err := page.Locator("#token").Fill(adminToken); err != nil {
		t.Fatalf("failed to fill token: %v", err)
	}
	if err := page.Locator("main button[type=submit]").Click(); err != nil {
		t.Fatalf("failed to click login: %v", err)
	}
	if err := page.WaitForURL(a.BaseURL+"/admin", playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("login did not redirect to admin: %v", err)
	}
}

// expectText waits until selector contains text.
func expectText(t *testing.T, page playwright.Page, selector, text string) {
	t.Helper()
	loc := page.Locator(selector).Filter(playwright.LocatorFilterOptions{HasText: text})
	if err := loc.First().WaitFor(playwright.LocatorWaitForOptions{Timeout: playwright.Float(5000)}); err != nil {
		content, _ := page.Locator("main").InnerText()
		t.Fatalf("%s with %q not found: %v\npage:\n%s", selector, text, err, content)
	}
}
