package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/teemow/mailchat/internal/domain"
)

// Driver names accepted by OpenSQL.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

const threadColumns = `id, COALESCE(thread_key, '') AS thread_key, contact_name, contact_email,
	subject, category, priority_score, unread_count, is_muted, is_archived,
	last_message_at, last_summary_preview`

const messageColumns = `id, thread_id, message_id_header, from_address, to_addresses,
	subject, body_text, body_html, direction, delivery_status, is_read,
	sent_at, received_at, summary, action_items, entities,
	category, confidence, priority_score, reasoning`

// SQLStore implements Store on top of sqlx.
type SQLStore struct {
	db     *sqlx.DB
	driver string
	locks  *KeyedLocker
}

var _ Store = (*SQLStore)(nil)

// OpenSQL opens the database for driver ("sqlite" or "pgx") and applies
// pending migrations.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s db: %w", driver, err)
	}

	if driver == DriverSQLite {
		// One connection keeps writers from tripping over SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA foreign_keys=ON",
			"PRAGMA busy_timeout=5000",
		} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("applying %q: %w", pragma, err)
			}
		}
	} else if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	s := &SQLStore{db: db, driver: driver, locks: NewKeyedLocker()}
	if err := s.runMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SchemaVersion returns the highest applied migration.
func (s *SQLStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.GetContext(ctx, &v, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
	return v, err
}

func (s *SQLStore) runMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		stmt := m.sqlite
		if s.driver == DriverPostgres {
			stmt = m.postgres
		}
		err := s.inTx(ctx, func(tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, tx.Rebind("INSERT INTO schema_version (version) VALUES (?)"), m.version)
			return err
		})
		if err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}
	return nil
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// ListThreads implements Store.
func (s *SQLStore) ListThreads(ctx context.Context) ([]domain.Thread, error) {
	threads := []domain.Thread{}
	err := s.db.SelectContext(ctx, &threads,
		"SELECT "+threadColumns+" FROM threads ORDER BY last_message_at DESC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("querying threads: %w", err)
	}
	for i := range threads {
		threads[i].LastMessageAt = threads[i].LastMessageAt.UTC()
	}
	return threads, nil
}

// GetThread implements Store.
func (s *SQLStore) GetThread(ctx context.Context, threadID string) (*domain.Thread, error) {
	return getThread(ctx, s.db, threadID, false)
}

type queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Rebind(query string) string
}

func getThread(ctx context.Context, q queryer, threadID string, forUpdate bool) (*domain.Thread, error) {
	query := "SELECT " + threadColumns + " FROM threads WHERE id = ?"
	if forUpdate {
		query += " FOR UPDATE"
	}

	var t domain.Thread
	if err := q.GetContext(ctx, &t, q.Rebind(query), threadID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ThreadNotFound(threadID)
		}
		return nil, fmt.Errorf("getting thread %s: %w", threadID, err)
	}
	t.LastMessageAt = t.LastMessageAt.UTC()
	return &t, nil
}

// GetMessages implements Store.
func (s *SQLStore) GetMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	if _, err := s.GetThread(ctx, threadID); err != nil {
		return nil, err
	}

	var rows []messageRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(
		"SELECT "+messageColumns+" FROM messages WHERE thread_id = ? ORDER BY sent_at ASC, id ASC"), threadID)
	if err != nil {
		return nil, fmt.Errorf("querying messages for thread %s: %w", threadID, err)
	}

	out := make([]domain.Message, 0, len(rows))
	for _, r := range rows {
		m, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// AppendMessage implements Store.
func (s *SQLStore) AppendMessage(ctx context.Context, msg *domain.Message) error {
	row, err := newMessageRow(msg)
	if err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := getThread(ctx, tx, msg.ThreadID, s.driver == DriverPostgres); err != nil {
			return err
		}

		var n int
		err := tx.GetContext(ctx, &n, tx.Rebind(
			"SELECT COUNT(*) FROM messages WHERE id = ? OR message_id_header = ?"), row.ID, row.MessageIDHeader)
		if err != nil {
			return fmt.Errorf("checking message uniqueness: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("%w: message %s", ErrDuplicate, row.MessageIDHeader)
		}

		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO messages (`+insertMessageColumns+`)
			VALUES (`+insertMessageValues+`)`, row)
		if err != nil {
			return fmt.Errorf("inserting message %s: %w", row.ID, err)
		}
		return nil
	})
}

// UpdateThreadPreview implements Store.
func (s *SQLStore) UpdateThreadPreview(ctx context.Context, threadID string, preview domain.ThreadPreview, unreadDelta int) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		t, err := getThread(ctx, tx, threadID, s.driver == DriverPostgres)
		if err != nil {
			return err
		}
		applyPreview(t, preview, unreadDelta)

		_, err = tx.ExecContext(ctx, tx.Rebind(`
			UPDATE threads SET
				category = ?, priority_score = ?, last_summary_preview = ?,
				last_message_at = ?, unread_count = ?
			WHERE id = ?`),
			string(t.Category), t.PriorityScore, t.LastSummaryPreview,
			t.LastMessageAt.UTC(), t.UnreadCount, threadID,
		)
		if err != nil {
			return fmt.Errorf("updating thread %s: %w", threadID, err)
		}
		return nil
	})
}

// MarkRead implements Store.
func (s *SQLStore) MarkRead(ctx context.Context, threadID string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := getThread(ctx, tx, threadID, s.driver == DriverPostgres); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE threads SET unread_count = 0 WHERE id = ?"), threadID); err != nil {
			return fmt.Errorf("resetting unread count for %s: %w", threadID, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE messages SET is_read = ? WHERE thread_id = ?"), true, threadID); err != nil {
			return fmt.Errorf("marking messages read for %s: %w", threadID, err)
		}
		return nil
	})
}

// SetDeliveryStatus implements Store.
func (s *SQLStore) SetDeliveryStatus(ctx context.Context, messageID string, status domain.DeliveryStatus) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("UPDATE messages SET delivery_status = ? WHERE id = ?"), string(status), messageID)
	if err != nil {
		return fmt.Errorf("updating delivery status for %s: %w", messageID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
	}
	return nil
}

// ThreadByKey implements Store.
func (s *SQLStore) ThreadByKey(ctx context.Context, key string) (*domain.Thread, error) {
	var t domain.Thread
	err := s.db.GetContext(ctx, &t, s.db.Rebind("SELECT "+threadColumns+" FROM threads WHERE thread_key = ?"), key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrThreadKeyNotFound
		}
		return nil, fmt.Errorf("getting thread by key: %w", err)
	}
	t.LastMessageAt = t.LastMessageAt.UTC()
	return &t, nil
}

// CreateThread implements Store.
func (s *SQLStore) CreateThread(ctx context.Context, thread *domain.Thread) error {
	var key interface{}
	if thread.ThreadKey != "" {
		key = thread.ThreadKey
	}

	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		var n int
		err := tx.GetContext(ctx, &n, tx.Rebind("SELECT COUNT(*) FROM threads WHERE id = ? OR thread_key = ?"), thread.ID, key)
		if err != nil {
			return fmt.Errorf("checking thread uniqueness: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("%w: thread %s", ErrDuplicate, thread.ID)
		}

		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO threads (
				id, thread_key, contact_name, contact_email, subject,
				category, priority_score, unread_count, is_muted, is_archived,
				last_message_at, last_summary_preview
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			thread.ID, key, thread.ContactName, thread.ContactEmail, thread.Subject,
			string(categoryOrDefault(thread.Category)), domain.Clamp(thread.PriorityScore), thread.UnreadCount,
			thread.IsMuted, thread.IsArchived, thread.LastMessageAt.UTC(), thread.LastSummaryPreview,
		)
		if err != nil {
			return fmt.Errorf("creating thread %s: %w", thread.ID, err)
		}
		return nil
	})
}

// MessageByHeaderID implements Store.
func (s *SQLStore) MessageByHeaderID(ctx context.Context, header string) (*domain.Message, error) {
	var row messageRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind("SELECT "+messageColumns+" FROM messages WHERE message_id_header = ?"), header)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("getting message by header: %w", err)
	}
	m, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// WithThreadLock implements Store. The in-process lock serializes writers
// within this process; row locks in each transaction cover the database.
func (s *SQLStore) WithThreadLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return s.locks.Do(ctx, key, fn)
}

func categoryOrDefault(c domain.Category) domain.Category {
	if c == "" {
		return domain.CategoryPersonal
	}
	return c
}

const insertMessageColumns = `id, thread_id, message_id_header, from_address, to_addresses,
	subject, body_text, body_html, direction, delivery_status, is_read,
	sent_at, received_at, summary, action_items, entities,
	category, confidence, priority_score, reasoning`

const insertMessageValues = `:id, :thread_id, :message_id_header, :from_address, :to_addresses,
	:subject, :body_text, :body_html, :direction, :delivery_status, :is_read,
	:sent_at, :received_at, :summary, :action_items, :entities,
	:category, :confidence, :priority_score, :reasoning`

// messageRow is the flat database shape of domain.Message. List fields are
// stored as JSON text.
type messageRow struct {
	ID              string    `db:"id"`
	ThreadID        string    `db:"thread_id"`
	MessageIDHeader string    `db:"message_id_header"`
	FromAddress     string    `db:"from_address"`
	ToAddresses     string    `db:"to_addresses"`
	Subject         string    `db:"subject"`
	BodyText        string    `db:"body_text"`
	BodyHTML        string    `db:"body_html"`
	Direction       string    `db:"direction"`
	DeliveryStatus  string    `db:"delivery_status"`
	IsRead          bool      `db:"is_read"`
	SentAt          time.Time `db:"sent_at"`
	ReceivedAt      time.Time `db:"received_at"`
	Summary         string    `db:"summary"`
	ActionItems     string    `db:"action_items"`
	Entities        string    `db:"entities"`
	Category        string    `db:"category"`
	Confidence      float64   `db:"confidence"`
	PriorityScore   float64   `db:"priority_score"`
	Reasoning       string    `db:"reasoning"`
}

func newMessageRow(m *domain.Message) (messageRow, error) {
	to, err := json.Marshal(nonNil(m.ToAddresses))
	if err != nil {
		return messageRow{}, fmt.Errorf("marshaling to_addresses: %w", err)
	}
	actions, err := json.Marshal(nonNil(m.Summary.ActionItems))
	if err != nil {
		return messageRow{}, fmt.Errorf("marshaling action_items: %w", err)
	}
	entities, err := json.Marshal(nonNil(m.Summary.Entities))
	if err != nil {
		return messageRow{}, fmt.Errorf("marshaling entities: %w", err)
	}

	return messageRow{
		ID:              m.ID,
		ThreadID:        m.ThreadID,
		MessageIDHeader: m.MessageIDHeader,
		FromAddress:     m.FromAddress,
		ToAddresses:     string(to),
		Subject:         m.Subject,
		BodyText:        m.BodyText,
		BodyHTML:        m.BodyHTML,
		Direction:       string(m.Direction),
		DeliveryStatus:  string(m.DeliveryStatus),
		IsRead:          m.IsRead,
		SentAt:          m.SentAt.UTC(),
		ReceivedAt:      m.ReceivedAt.UTC(),
		Summary:         m.Summary.Summary,
		ActionItems:     string(actions),
		Entities:        string(entities),
		Category:        string(categoryOrDefault(m.Classification.Category)),
		Confidence:      m.Classification.Confidence,
		PriorityScore:   m.Classification.PriorityScore,
		Reasoning:       m.Classification.Reasoning,
	}, nil
}

func (r messageRow) toDomain() (domain.Message, error) {
	m := domain.Message{
		ID:              r.ID,
		ThreadID:        r.ThreadID,
		MessageIDHeader: r.MessageIDHeader,
		FromAddress:     r.FromAddress,
		Subject:         r.Subject,
		BodyText:        r.BodyText,
		BodyHTML:        r.BodyHTML,
		Direction:       domain.Direction(r.Direction),
		DeliveryStatus:  domain.DeliveryStatus(r.DeliveryStatus),
		IsRead:          r.IsRead,
		SentAt:          r.SentAt.UTC(),
		ReceivedAt:      r.ReceivedAt.UTC(),
		Summary:         domain.Summary{Summary: r.Summary},
		Classification: domain.Classification{
			Category:      domain.Category(r.Category),
			Confidence:    r.Confidence,
			PriorityScore: r.PriorityScore,
			Reasoning:     r.Reasoning,
		},
	}

	for _, f := range []struct {
		name string
		raw  string
		dst  *[]string
	}{
		{"to_addresses", r.ToAddresses, &m.ToAddresses},
		{"action_items", r.ActionItems, &m.Summary.ActionItems},
		{"entities", r.Entities, &m.Summary.Entities},
	} {
		*f.dst = []string{}
		if f.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return domain.Message{}, fmt.Errorf("unmarshaling %s for message %s: %w", f.name, r.ID, err)
		}
	}
	return m, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
