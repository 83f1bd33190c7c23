package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"consultdesk/internal/adapters/http/middleware"
	"consultdesk/internal/adapters/storage"
	"consultdesk/internal/domain/booking"
	"consultdesk/internal/domain/flash"
)

// timeLayout is fixed-width so created_at compares lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// pageState is the JSON column holding student page state and pending flashes.
type pageState struct {
	SelectedSlotID int64            `json:"selected_slot_id,omitempty"`
	ExpertIndex    int              `json:"expert_index,omitempty"`
	PopupOpen      bool             `json:"popup_open,omitempty"`
	LastBooking    *booking.Receipt `json:"last_booking,omitempty"`
	Draft          *booking.Request `json:"draft,omitempty"`
	Flash          flash.Set        `json:"flash,omitempty"`
}

// SQLiteStore implements middleware.SessionStore on SQLite.
// The admin token is sealed with secretbox before it is written.
type SQLiteStore struct {
	db     storage.SQLDB
	sealer *Sealer
}

var _ middleware.SessionStore = (*SQLiteStore)(nil)

// NewSQLiteStore creates a session store over a migrated database.
func NewSQLiteStore(db storage.SQLDB, sealer *Sealer) *SQLiteStore {
	return &SQLiteStore{db: db, sealer: sealer}
}

// Get retrieves a session by id.
// PRE: id is non-empty
// POST: Returns middleware.ErrSessionNotFound for unknown ids
func (s *SQLiteStore) Get(ctx context.Context, id string) (*middleware.Session, error) {
	ctx = storage.WithOp(ctx, "session.Get")
	row := s.db.QueryRowContext(ctx,
		"SELECT id, admin_token, expert_authed, state, created_at, updated_at FROM session WHERE id = ?", id)

	var sess middleware.Session
	var sealed []byte
	var authed int
	var state, createdAt, updated string
	if err := row.Scan(&sess.ID, &sealed, &authed, &state, &createdAt, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, middleware.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	if len(sealed) > 0 {
		token, err := s.sealer.Open(sealed)
		if err != nil {
			// a rotated key invalidates stored tokens; the admin logs in again
			token = ""
		}
		sess.AdminToken = token
	}
	sess.ExpertAuthed = authed != 0

	var ps pageState
	if err := json.Unmarshal([]byte(state), &ps); err != nil {
		return nil, fmt.Errorf("decode session state: %w", err)
	}
	sess.SelectedSlotID = ps.SelectedSlotID
	sess.ExpertIndex = ps.ExpertIndex
	sess.PopupOpen = ps.PopupOpen
	sess.LastBooking = ps.LastBooking
	sess.Draft = ps.Draft
	sess.Flash = ps.Flash

	var err error
	if sess.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if sess.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &sess, nil
}

// Save persists a session (insert or update).
// PRE: sess.ID is non-empty
// POST: Row replaced; created_at is never changed after insert
func (s *SQLiteStore) Save(ctx context.Context, sess *middleware.Session) error {
	ctx = storage.WithOp(ctx, "session.Save")

	var sealed []byte
	if sess.AdminToken != "" {
		var err error
		if sealed, err = s.sealer.Seal(sess.AdminToken); err != nil {
			return err
		}
	}
	state, err := json.Marshal(pageState{
		SelectedSlotID: sess.SelectedSlotID,
		ExpertIndex:    sess.ExpertIndex,
		PopupOpen:      sess.PopupOpen,
		LastBooking:    sess.LastBooking,
		Draft:          sess.Draft,
		Flash:          sess.Flash,
	})
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}

	fields := []string{"id", "admin_token", "expert_authed", "state", "created_at", "updated_at"}
	updates := []string{
		"admin_token=excluded.admin_token",
		"expert_authed=excluded.expert_authed",
		"state=excluded.state",
		"updated_at=excluded.updated_at",
	}
	query := fmt.Sprintf(
		"INSERT INTO session (%s) VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO UPDATE SET %s",
		strings.Join(fields, ", "),
		strings.Join(updates, ", "),
	)

	authed := 0
	if sess.ExpertAuthed {
		authed = 1
	}
	updatedAt := sess.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	_, err = s.db.ExecContext(ctx, query,
		sess.ID,
		sealed,
		authed,
		string(state),
		sess.CreatedAt.UTC().Format(timeLayout),
		updatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes a session.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(storage.WithOp(ctx, "session.Delete"), "DELETE FROM session WHERE id = ?", id)
	return err
}

// Purge removes sessions created before cutoff and returns how many remain.
func (s *SQLiteStore) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	ctx = storage.WithOp(ctx, "session.Purge")
	if _, err := s.db.ExecContext(ctx, "DELETE FROM session WHERE created_at < ?", cutoff.UTC().Format(timeLayout)); err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM session").Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}
