package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nvandessel/ruleloop/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS rules (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	content            TEXT NOT NULL,
	original_correction TEXT NOT NULL DEFAULT '',
	category           TEXT NOT NULL,
	confidence         REAL NOT NULL,
	times_applied      INTEGER NOT NULL DEFAULT 0,
	times_reinforced   INTEGER NOT NULL DEFAULT 0,
	status             TEXT NOT NULL,
	created_at         TEXT NOT NULL,
	updated_at         TEXT NOT NULL,
	last_applied_at    TEXT,
	last_reinforced_at TEXT,
	embedding          BLOB
);
CREATE INDEX IF NOT EXISTS idx_rules_user_status ON rules(user_id, status);

CREATE TABLE IF NOT EXISTS interactions (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	conversation_id    TEXT NOT NULL DEFAULT '',
	user_message       TEXT NOT NULL,
	assistant_response TEXT NOT NULL,
	rules_applied      TEXT NOT NULL DEFAULT '[]',
	was_corrected      INTEGER NOT NULL DEFAULT 0,
	correction_text    TEXT NOT NULL DEFAULT '',
	extracted_rule_id  TEXT NOT NULL DEFAULT '',
	created_at         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id, created_at);

CREATE TABLE IF NOT EXISTS audit_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    TEXT NOT NULL,
	rule_id    TEXT NOT NULL,
	event_type TEXT NOT NULL,
	data       TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_user ON audit_events(user_id, created_at);
`

// SQLiteStore implements Store on a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at dbPath and applies the
// schema. Use ":memory:" for an ephemeral in-process database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// modernc's driver serializes access per connection; a single
	// connection avoids table-lock races between writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const ruleColumns = `id, user_id, content, original_correction, category, confidence,
	times_applied, times_reinforced, status, created_at, updated_at,
	last_applied_at, last_reinforced_at, embedding`

// CreateRule inserts a new rule.
func (s *SQLiteStore) CreateRule(ctx context.Context, rule models.Rule) error {
	if rule.ID == "" {
		return fmt.Errorf("create rule: missing ID")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rules (`+ruleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.UserID, rule.Content, rule.OriginalCorrection,
		string(rule.Category), rule.Confidence,
		rule.TimesApplied, rule.TimesReinforced, string(rule.Status),
		formatTime(rule.CreatedAt), formatTime(rule.UpdatedAt),
		formatTimePtr(rule.LastAppliedAt), formatTimePtr(rule.LastReinforcedAt),
		packEmbedding(rule.Embedding),
	)
	if err != nil {
		return fmt.Errorf("create rule %s: %w", rule.ID, err)
	}
	return nil
}

// GetRule returns the rule with the given ID, or ErrNotFound.
func (s *SQLiteStore) GetRule(ctx context.Context, id string) (*models.Rule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = ?`, id)
	rule, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get rule %s: %w", id, err)
	}
	return rule, nil
}

// UpdateRule replaces the stored rule.
func (s *SQLiteStore) UpdateRule(ctx context.Context, rule models.Rule) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rules SET
			user_id = ?, content = ?, original_correction = ?, category = ?,
			confidence = ?, times_applied = ?, times_reinforced = ?, status = ?,
			created_at = ?, updated_at = ?, last_applied_at = ?,
			last_reinforced_at = ?, embedding = ?
		WHERE id = ?`,
		rule.UserID, rule.Content, rule.OriginalCorrection, string(rule.Category),
		rule.Confidence, rule.TimesApplied, rule.TimesReinforced, string(rule.Status),
		formatTime(rule.CreatedAt), formatTime(rule.UpdatedAt),
		formatTimePtr(rule.LastAppliedAt), formatTimePtr(rule.LastReinforcedAt),
		packEmbedding(rule.Embedding),
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("update rule %s: %w", rule.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rule %s: %w", rule.ID, ErrNotFound)
	}
	return nil
}

// DeleteRule removes the rule.
func (s *SQLiteStore) DeleteRule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete rule %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListRules returns a user's rules, newest first.
func (s *SQLiteStore) ListRules(ctx context.Context, userID string, statuses ...models.RuleStatus) ([]models.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE user_id = ?`
	args := []any{userID}
	if len(statuses) > 0 {
		query += ` AND status IN (?` + repeatPlaceholder(len(statuses)-1) + `)`
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY created_at DESC, id`

	return s.queryRules(ctx, query, args...)
}

// ListActiveRules returns every active rule across all users.
func (s *SQLiteStore) ListActiveRules(ctx context.Context) ([]models.Rule, error) {
	return s.queryRules(ctx,
		`SELECT `+ruleColumns+` FROM rules WHERE status = ? ORDER BY user_id, created_at, id`,
		string(models.StatusActive))
}

func (s *SQLiteStore) queryRules(ctx context.Context, query string, args ...any) ([]models.Rule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []models.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, *rule)
	}
	return out, rows.Err()
}

// MarkApplied bumps usage counters for the given rules in one transaction.
func (s *SQLiteStore) MarkApplied(ctx context.Context, ruleIDs []string, now time.Time) error {
	if len(ruleIDs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("mark applied: begin: %w", err)
	}
	defer tx.Rollback()

	ts := formatTime(now)
	for _, id := range ruleIDs {
		if _, err := tx.ExecContext(ctx, `
			UPDATE rules SET
				times_applied = times_applied + 1,
				last_applied_at = ?,
				updated_at = ?
			WHERE id = ?`, ts, ts, id); err != nil {
			return fmt.Errorf("mark applied %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// ApplyTransitions commits a sweep batch atomically.
func (s *SQLiteStore) ApplyTransitions(ctx context.Context, transitions []RuleTransition, now time.Time) error {
	if len(transitions) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply transitions: begin: %w", err)
	}
	defer tx.Rollback()

	ts := formatTime(now)
	for _, tr := range transitions {
		res, err := tx.ExecContext(ctx, `
			UPDATE rules SET confidence = ?, status = ?, updated_at = ?
			WHERE id = ?`,
			tr.Confidence, string(tr.Status), ts, tr.RuleID)
		if err != nil {
			return fmt.Errorf("apply transition %s: %w", tr.RuleID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("apply transition %s: %w", tr.RuleID, ErrNotFound)
		}
	}
	return tx.Commit()
}

// CreateInteraction inserts a new interaction.
func (s *SQLiteStore) CreateInteraction(ctx context.Context, in models.Interaction) error {
	if in.ID == "" {
		return fmt.Errorf("create interaction: missing ID")
	}
	applied, err := json.Marshal(in.RulesApplied)
	if err != nil {
		return fmt.Errorf("create interaction %s: %w", in.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO interactions (id, user_id, conversation_id, user_message,
			assistant_response, rules_applied, was_corrected, correction_text,
			extracted_rule_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.ConversationID, in.UserMessage,
		in.AssistantResponse, string(applied), boolToInt(in.WasCorrected),
		in.CorrectionText, in.ExtractedRuleID, formatTime(in.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create interaction %s: %w", in.ID, err)
	}
	return nil
}

// GetInteraction returns the interaction with the given ID, or ErrNotFound.
func (s *SQLiteStore) GetInteraction(ctx context.Context, id string) (*models.Interaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, conversation_id, user_message, assistant_response,
			rules_applied, was_corrected, correction_text, extracted_rule_id,
			created_at
		FROM interactions WHERE id = ?`, id)

	in, err := scanInteraction(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("interaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get interaction %s: %w", id, err)
	}
	return in, nil
}

// ListInteractions returns a user's interactions, newest first.
func (s *SQLiteStore) ListInteractions(ctx context.Context, userID string, limit int) ([]models.Interaction, error) {
	query := `
		SELECT id, user_id, conversation_id, user_message, assistant_response,
			rules_applied, was_corrected, correction_text, extracted_rule_id,
			created_at
		FROM interactions WHERE user_id = ? ORDER BY created_at DESC, id`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var out []models.Interaction
	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, *in)
	}
	return out, rows.Err()
}

// MarkCorrected records that the interaction drew a correction.
func (s *SQLiteStore) MarkCorrected(ctx context.Context, id, correctionText, extractedRuleID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE interactions SET was_corrected = 1, correction_text = ?,
			extracted_rule_id = ?
		WHERE id = ?`, correctionText, extractedRuleID, id)
	if err != nil {
		return fmt.Errorf("mark corrected %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("interaction %s: %w", id, ErrNotFound)
	}
	return nil
}

// AppendAudit records one event.
func (s *SQLiteStore) AppendAudit(ctx context.Context, ev models.AuditEvent) error {
	data := []byte("{}")
	if ev.Data != nil {
		var err error
		data, err = json.Marshal(ev.Data)
		if err != nil {
			return fmt.Errorf("append audit: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (user_id, rule_id, event_type, data, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		ev.UserID, ev.RuleID, string(ev.Type), string(data), formatTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// ListAuditEvents returns events for a user, newest first.
func (s *SQLiteStore) ListAuditEvents(ctx context.Context, userID, ruleID string, limit int) ([]models.AuditEvent, error) {
	query := `
		SELECT id, user_id, rule_id, event_type, data, created_at
		FROM audit_events WHERE user_id = ?`
	args := []any{userID}
	if ruleID != "" {
		query += ` AND rule_id = ?`
		args = append(args, ruleID)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []models.AuditEvent
	for rows.Next() {
		var (
			ev      models.AuditEvent
			evType  string
			data    string
			created string
		)
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.RuleID, &evType, &data, &created); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.Type = models.AuditEventType(evType)
		if data != "" && data != "{}" {
			if err := json.Unmarshal([]byte(data), &ev.Data); err != nil {
				return nil, fmt.Errorf("decode audit data: %w", err)
			}
		}
		ev.CreatedAt, err = parseTime(created)
		if err != nil {
			return nil, fmt.Errorf("parse audit time: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

func scanRule(sc scanner) (*models.Rule, error) {
	var (
		rule             models.Rule
		category, status string
		created, updated string
		lastApplied      sql.NullString
		lastReinforced   sql.NullString
		embedding        []byte
	)
	err := sc.Scan(
		&rule.ID, &rule.UserID, &rule.Content, &rule.OriginalCorrection,
		&category, &rule.Confidence, &rule.TimesApplied, &rule.TimesReinforced,
		&status, &created, &updated, &lastApplied, &lastReinforced, &embedding,
	)
	if err != nil {
		return nil, err
	}
	rule.Category = models.RuleCategory(category)
	rule.Status = models.RuleStatus(status)
	if rule.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if rule.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	if rule.LastAppliedAt, err = parseTimePtr(lastApplied); err != nil {
		return nil, err
	}
	if rule.LastReinforcedAt, err = parseTimePtr(lastReinforced); err != nil {
		return nil, err
	}
	rule.Embedding = unpackEmbedding(embedding)
	return &rule, nil
}

func scanInteraction(sc scanner) (*models.Interaction, error) {
	var (
		in        models.Interaction
		applied   string
		corrected int
		created   string
	)
	err := sc.Scan(
		&in.ID, &in.UserID, &in.ConversationID, &in.UserMessage,
		&in.AssistantResponse, &applied, &corrected, &in.CorrectionText,
		&in.ExtractedRuleID, &created,
	)
	if err != nil {
		return nil, err
	}
	in.WasCorrected = corrected != 0
	if applied != "" {
		if err := json.Unmarshal([]byte(applied), &in.RulesApplied); err != nil {
			return nil, err
		}
	}
	if in.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	return &in, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func parseTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// packEmbedding encodes a float32 vector as a little-endian blob.
// Returns nil for an empty vector so the column stays NULL.
func packEmbedding(vec []float32) []byte {
	if len(vec) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func unpackEmbedding(buf []byte) []float32 {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}
