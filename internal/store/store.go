// Package store persists analysis results and per-caller bookkeeping in
// SQLite. Every idempotency guarantee the API makes (one analysis per URL,
// one history row per caller and URL, capped device counters) lives inside
// the transactions here.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clarify/internal/core"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// ErrAlreadySubscribed is returned when a subscriber email already exists.
var ErrAlreadySubscribed = errors.New("email is already subscribed")

// Store is the SQLite-backed persistence layer.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (creating if needed) the clarify database under dataDir.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "clarify.db")
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL&_fk=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

// initialize creates the schema.
func (s *Store) initialize() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS analysed_links (
			hashed_url    TEXT PRIMARY KEY,
			title         TEXT NOT NULL,
			is_click_bait INTEGER NOT NULL,
			clarity_score INTEGER NOT NULL,
			explanation   TEXT NOT NULL,
			answer        TEXT NOT NULL,
			summary       TEXT NOT NULL,
			url           TEXT NOT NULL,
			is_video      INTEGER NOT NULL,
			analysed_at   TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS user_history (
			history_id  TEXT PRIMARY KEY,
			user_id     TEXT NOT NULL,
			hashed_url  TEXT NOT NULL,
			analysed_at TEXT NOT NULL,
			UNIQUE (user_id, hashed_url)
		);`,
		`CREATE TABLE IF NOT EXISTS device_history (
			history_id  TEXT PRIMARY KEY,
			device_id   TEXT NOT NULL,
			hashed_url  TEXT NOT NULL,
			analysed_at TEXT NOT NULL,
			UNIQUE (device_id, hashed_url)
		);`,
		`CREATE TABLE IF NOT EXISTS failed_links (
			hashed_url         TEXT PRIMARY KEY,
			url                TEXT NOT NULL,
			visit_count        INTEGER NOT NULL,
			first_attempted_at TEXT NOT NULL,
			last_attempted_at  TEXT NOT NULL,
			reason             TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS device_requests (
			device_id       TEXT PRIMARY KEY,
			request_count   INTEGER NOT NULL DEFAULT 0,
			last_request_at TEXT NOT NULL,
			user_id         TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS feedback (
			id           TEXT PRIMARY KEY,
			device_id    TEXT NOT NULL,
			email        TEXT,
			rating       INTEGER,
			content      TEXT NOT NULL,
			submitted_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS subscribers (
			email         TEXT PRIMARY KEY,
			name          TEXT,
			subscribed_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS verification_codes (
			email      TEXT PRIMARY KEY,
			code       TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
	}

	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetAnalysedLink returns the stored analysis for a hashed URL, or nil when
// the URL has never been analysed.
func (s *Store) GetAnalysedLink(ctx context.Context, hashedURL string) (*core.AnalysedLink, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT hashed_url, title, is_click_bait, clarity_score, explanation, answer, summary, url, is_video, analysed_at
		FROM analysed_links WHERE hashed_url = ?`, hashedURL)
	return scanAnalysedLink(row)
}

func scanAnalysedLink(row *sql.Row) (*core.AnalysedLink, error) {
	var link core.AnalysedLink
	err := row.Scan(
		&link.HashedURL, &link.Title, &link.IsClickBait, &link.ClarityScore,
		&link.Explanation, &link.Answer, &link.Summary, &link.URL, &link.IsVideo, &link.AnalysedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan analysed link: %w", err)
	}
	return &link, nil
}

// SaveAnalysedLink persists an analysis, inserting only if no analysis for
// the hashed URL exists yet. The stored record wins and is returned, so two
// concurrent analyses of the same URL converge on one result.
func (s *Store) SaveAnalysedLink(ctx context.Context, link *core.AnalysedLink) (*core.AnalysedLink, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing core.AnalysedLink
	err = tx.QueryRowContext(ctx, `
		SELECT hashed_url, title, is_click_bait, clarity_score, explanation, answer, summary, url, is_video, analysed_at
		FROM analysed_links WHERE hashed_url = ?`, link.HashedURL).Scan(
		&existing.HashedURL, &existing.Title, &existing.IsClickBait, &existing.ClarityScore,
		&existing.Explanation, &existing.Answer, &existing.Summary, &existing.URL, &existing.IsVideo, &existing.AnalysedAt,
	)
	if err == nil {
		return &existing, tx.Commit()
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check for existing analysis: %w", err)
	}

	stored := *link
	if stored.AnalysedAt == "" {
		stored.AnalysedAt = core.Timestamp()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analysed_links (hashed_url, title, is_click_bait, clarity_score, explanation, answer, summary, url, is_video, analysed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.HashedURL, stored.Title, stored.IsClickBait, stored.ClarityScore,
		stored.Explanation, stored.Answer, stored.Summary, stored.URL, stored.IsVideo, stored.AnalysedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save analysed link: %w", err)
	}
	return &stored, tx.Commit()
}

// AddUserHistory links a hashed URL into a user's history, inserting at most
// one row per (user, URL) pair. Returns the row's analysedAt timestamp and
// whether the URL was already present.
func (s *Store) AddUserHistory(ctx context.Context, userID, hashedURL string) (string, bool, error) {
	return s.addHistory(ctx, "user_history", "user_id", userID, hashedURL)
}

// AddDeviceHistory is AddUserHistory for anonymous device-scoped history.
func (s *Store) AddDeviceHistory(ctx context.Context, deviceID, hashedURL string) (string, bool, error) {
	return s.addHistory(ctx, "device_history", "device_id", deviceID, hashedURL)
}

func (s *Store) addHistory(ctx context.Context, table, ownerCol, owner, hashedURL string) (string, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var analysedAt string
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT analysed_at FROM %s WHERE %s = ? AND hashed_url = ?`, table, ownerCol),
		owner, hashedURL).Scan(&analysedAt)
	if err == nil {
		return analysedAt, true, tx.Commit()
	}
	if err != sql.ErrNoRows {
		return "", false, fmt.Errorf("failed to check history: %w", err)
	}

	analysedAt = core.Timestamp()
	_, err = tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (history_id, %s, hashed_url, analysed_at) VALUES (?, ?, ?, ?)`, table, ownerCol),
		uuid.NewString(), owner, hashedURL, analysedAt)
	if err != nil {
		return "", false, fmt.Errorf("failed to add history row: %w", err)
	}
	return analysedAt, false, tx.Commit()
}

// UserHistory returns one page of a user's history, newest first, joined
// with the analysis payloads and filtered by a title keyword.
func (s *Store) UserHistory(ctx context.Context, userID string, pageSize int, pageToken, keyword string) (*core.HistoryPage, error) {
	return s.history(ctx, "user_history", "user_id", userID, pageSize, pageToken, keyword, false)
}

// DeviceHistory is UserHistory for device-scoped history. The returned
// analysedAt reflects when the device analysed the link, not when the link
// was first analysed globally.
func (s *Store) DeviceHistory(ctx context.Context, deviceID string, pageSize int, pageToken, keyword string) (*core.HistoryPage, error) {
	return s.history(ctx, "device_history", "device_id", deviceID, pageSize, pageToken, keyword, true)
}

func (s *Store) history(ctx context.Context, table, ownerCol, owner string, pageSize int, pageToken, keyword string, ownTimestamp bool) (*core.HistoryPage, error) {
	if pageSize <= 0 {
		pageSize = 10
	}

	query := fmt.Sprintf(`
		SELECT h.history_id, h.analysed_at,
		       a.hashed_url, a.title, a.is_click_bait, a.clarity_score, a.explanation, a.answer, a.summary, a.url, a.is_video, a.analysed_at
		FROM %s h
		JOIN analysed_links a ON a.hashed_url = h.hashed_url
		WHERE h.%s = ? AND instr(a.title, ?) > 0`, table, ownerCol)
	args := []any{owner, keyword}
	if keyword == "" {
		// instr(title, '') is 0 in SQLite; an empty keyword matches everything.
		query = fmt.Sprintf(`
		SELECT h.history_id, h.analysed_at,
		       a.hashed_url, a.title, a.is_click_bait, a.clarity_score, a.explanation, a.answer, a.summary, a.url, a.is_video, a.analysed_at
		FROM %s h
		JOIN analysed_links a ON a.hashed_url = h.hashed_url
		WHERE h.%s = ?`, table, ownerCol)
		args = []any{owner}
	}

	if pageToken != "" {
		tokenQuery := fmt.Sprintf(`SELECT analysed_at FROM %s WHERE history_id = ? AND %s = ?`, table, ownerCol)
		var tokenAt string
		err := s.db.QueryRowContext(ctx, tokenQuery, pageToken, owner).Scan(&tokenAt)
		if err == nil {
			query += ` AND (h.analysed_at < ? OR (h.analysed_at = ? AND h.history_id < ?))`
			args = append(args, tokenAt, tokenAt, pageToken)
		} else if err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to resolve page token: %w", err)
		}
	}

	query += ` ORDER BY h.analysed_at DESC, h.history_id DESC LIMIT ?`
	args = append(args, pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	page := &core.HistoryPage{UserHistory: []core.HistoryItem{}}
	for rows.Next() {
		var item core.HistoryItem
		var ownAt string
		err := rows.Scan(
			&item.HistoryID, &ownAt,
			&item.AnalysedLink.HashedURL, &item.AnalysedLink.Title, &item.AnalysedLink.IsClickBait,
			&item.AnalysedLink.ClarityScore, &item.AnalysedLink.Explanation, &item.AnalysedLink.Answer,
			&item.AnalysedLink.Summary, &item.AnalysedLink.URL, &item.AnalysedLink.IsVideo, &item.AnalysedLink.AnalysedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if ownTimestamp {
			item.AnalysedLink.AnalysedAt = ownAt
		}
		page.UserHistory = append(page.UserHistory, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history rows: %w", err)
	}

	if len(page.UserHistory) == pageSize {
		token := page.UserHistory[len(page.UserHistory)-1].HistoryID
		page.NextPageToken = &token
	}
	return page, nil
}

// ClearUserHistory removes every history row for a user.
func (s *Store) ClearUserHistory(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_history WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear user history: %w", err)
	}
	return nil
}

// ClearDeviceHistory removes every history row for a device.
func (s *Store) ClearDeviceHistory(ctx context.Context, deviceID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM device_history WHERE device_id = ?`, deviceID)
	if err != nil {
		return fmt.Errorf("failed to clear device history: %w", err)
	}
	return nil
}

// RecordFailedLink upserts the failure counter for a URL: the first failure
// creates the record, subsequent ones bump visit_count and refresh the
// reason and last-attempt timestamp.
func (s *Store) RecordFailedLink(ctx context.Context, url, hashedURL, reason string) error {
	now := core.Timestamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO failed_links (hashed_url, url, visit_count, first_attempted_at, last_attempted_at, reason)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT (hashed_url) DO UPDATE SET
			visit_count = visit_count + 1,
			last_attempted_at = excluded.last_attempted_at,
			reason = excluded.reason`,
		hashedURL, url, now, now, reason)
	if err != nil {
		return fmt.Errorf("failed to record failed link: %w", err)
	}
	return nil
}

// GetFailedLink returns the failure record for a hashed URL, or nil.
func (s *Store) GetFailedLink(ctx context.Context, hashedURL string) (*core.FailedLink, error) {
	var f core.FailedLink
	err := s.db.QueryRowContext(ctx, `
		SELECT url, hashed_url, visit_count, first_attempted_at, last_attempted_at, reason
		FROM failed_links WHERE hashed_url = ?`, hashedURL).Scan(
		&f.URL, &f.HashedURL, &f.VisitCount, &f.FirstAttemptedAt, &f.LastAttemptedAt, &f.Reason)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get failed link: %w", err)
	}
	return &f, nil
}

// CountDeviceRequest applies the anonymous quota: below the limit the
// device's counter is incremented and the request is allowed; at the limit
// the counter is left untouched and the request is refused. The counter
// therefore never exceeds the limit.
func (s *Store) CountDeviceRequest(ctx context.Context, deviceID string, limit int) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx,
		`SELECT request_count FROM device_requests WHERE device_id = ?`, deviceID).Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("failed to read device counter: %w", err)
	}

	if count >= limit {
		return false, tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO device_requests (device_id, request_count, last_request_at)
		VALUES (?, 1, ?)
		ON CONFLICT (device_id) DO UPDATE SET
			request_count = request_count + 1,
			last_request_at = excluded.last_request_at`,
		deviceID, core.Timestamp())
	if err != nil {
		return false, fmt.Errorf("failed to count device request: %w", err)
	}
	return true, tx.Commit()
}

// LinkDeviceToUser attaches an authenticated user to a device record and
// resets its anonymous request counter.
func (s *Store) LinkDeviceToUser(ctx context.Context, deviceID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO device_requests (device_id, request_count, last_request_at, user_id)
		VALUES (?, 0, ?, ?)
		ON CONFLICT (device_id) DO UPDATE SET
			request_count = 0,
			user_id = excluded.user_id`,
		deviceID, core.Timestamp(), userID)
	if err != nil {
		return fmt.Errorf("failed to link device to user: %w", err)
	}
	return nil
}

// GetDeviceRecord returns the quota record for a device, or nil.
func (s *Store) GetDeviceRecord(ctx context.Context, deviceID string) (*core.DeviceRecord, error) {
	var rec core.DeviceRecord
	var userID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT device_id, request_count, last_request_at, user_id
		FROM device_requests WHERE device_id = ?`, deviceID).Scan(
		&rec.DeviceID, &rec.RequestCount, &rec.LastRequestAt, &userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device record: %w", err)
	}
	rec.UserID = userID.String
	return &rec, nil
}

// MigrateDeviceHistory moves a device's history rows into a user's history
// in a single transaction. URLs the user already has are skipped; the
// device rows are removed either way, so the migration is idempotent.
func (s *Store) MigrateDeviceHistory(ctx context.Context, deviceID, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT hashed_url, analysed_at FROM device_history WHERE device_id = ?`, deviceID)
	if err != nil {
		return fmt.Errorf("failed to read device history: %w", err)
	}

	type historyRow struct{ hashedURL, analysedAt string }
	var moved []historyRow
	for rows.Next() {
		var r historyRow
		if err := rows.Scan(&r.hashedURL, &r.analysedAt); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan device history: %w", err)
		}
		moved = append(moved, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read device history: %w", err)
	}

	for _, r := range moved {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO user_history (history_id, user_id, hashed_url, analysed_at)
			VALUES (?, ?, ?, ?)`,
			uuid.NewString(), userID, r.hashedURL, r.analysedAt)
		if err != nil {
			return fmt.Errorf("failed to migrate history row: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM device_history WHERE device_id = ?`, deviceID); err != nil {
		return fmt.Errorf("failed to remove migrated device history: %w", err)
	}
	return tx.Commit()
}

// SaveFeedback stores a feedback record.
func (s *Store) SaveFeedback(ctx context.Context, fb *core.Feedback) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (id, device_id, email, rating, content, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), fb.DeviceID, fb.Email, fb.Rating, fb.Content, core.Timestamp())
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}

// SaveSubscriber stores a newsletter signup, rejecting duplicate emails.
func (s *Store) SaveSubscriber(ctx context.Context, sub *core.Subscriber) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscribers (email, name, subscribed_at) VALUES (?, ?, ?)`,
		sub.Email, sub.Name, core.Timestamp())
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadySubscribed
		}
		return fmt.Errorf("failed to save subscriber: %w", err)
	}
	return nil
}

// SaveVerificationCode stores (replacing) the pending code for an email.
func (s *Store) SaveVerificationCode(ctx context.Context, email, code string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verification_codes (email, code, created_at) VALUES (?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET code = excluded.code, created_at = excluded.created_at`,
		email, code, core.Timestamp())
	if err != nil {
		return fmt.Errorf("failed to save verification code: %w", err)
	}
	return nil
}

// ConsumeVerificationCode validates and deletes a pending code. The code is
// single use: a successful consume removes it regardless of later failures.
func (s *Store) ConsumeVerificationCode(ctx context.Context, email, code, notBefore string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var stored, createdAt string
	err = tx.QueryRowContext(ctx,
		`SELECT code, created_at FROM verification_codes WHERE email = ?`, email).Scan(&stored, &createdAt)
	if err == sql.ErrNoRows {
		return false, tx.Commit()
	}
	if err != nil {
		return false, fmt.Errorf("failed to read verification code: %w", err)
	}

	if stored != code || createdAt < notBefore {
		return false, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM verification_codes WHERE email = ?`, email); err != nil {
		return false, fmt.Errorf("failed to consume verification code: %w", err)
	}
	return true, tx.Commit()
}

// Stats holds row counts for the CLI stats command.
type Stats struct {
	AnalysedLinks int
	UserHistory   int
	DeviceHistory int
	FailedLinks   int
	Devices       int
	Feedback      int
	Subscribers   int
}

// GetStats returns row counts for every collection.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	queries := map[string]*int{
		"SELECT COUNT(*) FROM analysed_links":  &stats.AnalysedLinks,
		"SELECT COUNT(*) FROM user_history":    &stats.UserHistory,
		"SELECT COUNT(*) FROM device_history":  &stats.DeviceHistory,
		"SELECT COUNT(*) FROM failed_links":    &stats.FailedLinks,
		"SELECT COUNT(*) FROM device_requests": &stats.Devices,
		"SELECT COUNT(*) FROM feedback":        &stats.Feedback,
		"SELECT COUNT(*) FROM subscribers":     &stats.Subscribers,
	}
	for query, target := range queries {
		if err := s.db.QueryRowContext(ctx, query).Scan(target); err != nil {
			return nil, fmt.Errorf("failed to get count: %w", err)
		}
	}
	return stats, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
