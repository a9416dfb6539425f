package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pkt.systems/pslog"
)

// SQLStore keeps session state in the SQLite schema created by sqlite.MigrateUp.
// Save rewrites all rows of one session inside a single transaction.
type SQLStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLStore wraps a migrated database. A non-positive ttl selects DefaultTTL.
func NewSQLStore(db *sql.DB, ttl time.Duration) *SQLStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SQLStore{db: db, ttl: ttl, now: time.Now}
}

// Load reads the session rows back into a State and extends the expiry.
func (s *SQLStore) Load(ctx context.Context, id string) (*State, error) {
	var snap Snapshot
	var expiresAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT current_tab, pending_input, expires_at
		FROM session
		WHERE id = ?
	`, id).Scan(&snap.CurrentTab, &snap.PendingInput, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	now := s.now()
	if now.UnixMilli() > expiresAt {
		if delErr := s.Delete(ctx, id); delErr != nil {
			return nil, delErr
		}
		pslog.Ctx(ctx).Info("session expired", "session", id)
		return nil, ErrSessionNotFound
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE session SET expires_at = ? WHERE id = ?`,
		now.Add(s.ttl).UnixMilli(), id); err != nil {
		return nil, fmt.Errorf("load session: touch: %w", err)
	}

	tabs, err := s.loadTabs(ctx, id)
	if err != nil {
		return nil, err
	}
	snap.Tabs = tabs

	st, err := Restore(snap)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return st, nil
}

// loadTabs reads tab names and exchanges with two sequential queries. Each result
// set is closed before the next query starts: the in-memory database has one connection.
func (s *SQLStore) loadTabs(ctx context.Context, id string) ([]TabSnapshot, error) {
	tabs, err := s.loadTabNames(ctx, id)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(tabs))
	for i, tab := range tabs {
		index[tab.Name] = i
	}
	if err := s.loadExchanges(ctx, id, tabs, index); err != nil {
		return nil, err
	}
	return tabs, nil
}

func (s *SQLStore) loadTabNames(ctx context.Context, id string) ([]TabSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name
		FROM session_tab
		WHERE session_id = ?
		ORDER BY position ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load tabs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var tabs []TabSnapshot
	for rows.Next() {
		var name string
		if scanErr := rows.Scan(&name); scanErr != nil {
			return nil, fmt.Errorf("scan tab: %w", scanErr)
		}
		tabs = append(tabs, TabSnapshot{Name: name, Exchanges: []Exchange{}})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load tabs: %w", err)
	}
	return tabs, nil
}

func (s *SQLStore) loadExchanges(ctx context.Context, id string, tabs []TabSnapshot, index map[string]int) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tab_name, question, response
		FROM session_exchange
		WHERE session_id = ?
		ORDER BY tab_name ASC, position ASC
	`, id)
	if err != nil {
		return fmt.Errorf("load exchanges: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var tabName string
		var ex Exchange
		if scanErr := rows.Scan(&tabName, &ex.Question, &ex.Response); scanErr != nil {
			return fmt.Errorf("scan exchange: %w", scanErr)
		}
		i, ok := index[tabName]
		if !ok {
			continue
		}
		tabs[i].Exchanges = append(tabs[i].Exchanges, ex)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load exchanges: %w", err)
	}
	return nil
}

// Save replaces every row of the session in one transaction.
func (s *SQLStore) Save(ctx context.Context, id string, st *State) error {
	snap := st.Snapshot()
	expiresAt := s.now().Add(s.ttl).UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save session: begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM session WHERE id = ?`, id); err != nil {
		return fmt.Errorf("save session: clear: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO session (id, current_tab, pending_input, expires_at)
		VALUES (?, ?, ?, ?)
	`, id, snap.CurrentTab, snap.PendingInput, expiresAt); err != nil {
		return fmt.Errorf("save session: insert: %w", err)
	}
	if err := insertTabs(ctx, tx, id, snap.Tabs); err != nil {
		return err
	}
	return tx.Commit()
}

func insertTabs(ctx context.Context, tx *sql.Tx, id string, tabs []TabSnapshot) error {
	for pos, tab := range tabs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO session_tab (session_id, name, position)
			VALUES (?, ?, ?)
		`, id, tab.Name, pos); err != nil {
			return fmt.Errorf("save session: tab %q: %w", tab.Name, err)
		}
		for i, ex := range tab.Exchanges {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO session_exchange (session_id, tab_name, position, question, response)
				VALUES (?, ?, ?, ?, ?)
			`, id, tab.Name, i, ex.Question, ex.Response); err != nil {
				return fmt.Errorf("save session: exchange %d of %q: %w", i, tab.Name, err)
			}
		}
	}
	return nil
}

// Delete removes the session; tabs and exchanges follow by cascade.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Sweep deletes every session past its expiry.
func (s *SQLStore) Sweep(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE expires_at < ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep sessions: %w", err)
	}
	return int(n), nil
}
