package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/CMSchuyler/Artagent-2.0-3/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository on SQLite. Sessions are stored as JSON
// documents; the schema only indexes what the queries need.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a SQLite-backed repository at the given path.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS chat_sessions (
		session_id TEXT PRIMARY KEY,
		doc_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS debate_sessions (
		session_id TEXT PRIMARY KEY,
		doc_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Session returns the chat session for the id, creating it on first use.
func (s *SQLiteStore) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, ok, err := s.LookupSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if ok {
		return sess, nil
	}
	sess = &domain.Session{
		UserID:             newUserID(),
		AgentConversations: make(map[string]*domain.AgentConversation),
	}
	if err := s.SaveSession(ctx, sessionID, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// LookupSession returns the chat session if it exists.
func (s *SQLiteStore) LookupSession(ctx context.Context, sessionID string) (*domain.Session, bool, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc_json FROM chat_sessions WHERE session_id = ?`, sessionID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("scan chat session: %w", err)
	}
	var sess domain.Session
	if err := json.Unmarshal([]byte(doc), &sess); err != nil {
		return nil, false, fmt.Errorf("decode chat session %s: %w", sessionID, err)
	}
	if sess.AgentConversations == nil {
		sess.AgentConversations = make(map[string]*domain.AgentConversation)
	}
	return &sess, true, nil
}

// SaveSession writes back a chat session.
func (s *SQLiteStore) SaveSession(ctx context.Context, sessionID string, sess *domain.Session) error {
	doc, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode chat session %s: %w", sessionID, err)
	}
	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (session_id, doc_json, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET doc_json = excluded.doc_json, updated_at = excluded.updated_at`,
		sessionID, string(doc), now, now)
	if err != nil {
		return fmt.Errorf("save chat session %s: %w", sessionID, err)
	}
	return nil
}

// DebateSession returns the debate session for the id, creating it on first use.
func (s *SQLiteStore) DebateSession(ctx context.Context, sessionID string) (*domain.DebateSession, error) {
	sess, ok, err := s.LookupDebateSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if ok {
		return sess, nil
	}
	sess = &domain.DebateSession{
		UserID:         newUserID(),
		AgentLastChats: make(map[string]string),
	}
	if err := s.SaveDebateSession(ctx, sessionID, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// LookupDebateSession returns the debate session if it exists.
func (s *SQLiteStore) LookupDebateSession(ctx context.Context, sessionID string) (*domain.DebateSession, bool, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc_json FROM debate_sessions WHERE session_id = ?`, sessionID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("scan debate session: %w", err)
	}
	var sess domain.DebateSession
	if err := json.Unmarshal([]byte(doc), &sess); err != nil {
		return nil, false, fmt.Errorf("decode debate session %s: %w", sessionID, err)
	}
	if sess.AgentLastChats == nil {
		sess.AgentLastChats = make(map[string]string)
	}
	return &sess, true, nil
}

// SaveDebateSession writes back a debate session.
func (s *SQLiteStore) SaveDebateSession(ctx context.Context, sessionID string, sess *domain.DebateSession) error {
	doc, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode debate session %s: %w", sessionID, err)
	}
	now := time.Now().Unix()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO debate_sessions (session_id, doc_json, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET doc_json = excluded.doc_json, updated_at = excluded.updated_at`,
		sessionID, string(doc), now, now)
	if err != nil {
		return fmt.Errorf("save debate session %s: %w", sessionID, err)
	}
	return nil
}

// ResetDebateSession clears remote conversation state for an existing session.
func (s *SQLiteStore) ResetDebateSession(ctx context.Context, sessionID string) (bool, error) {
	sess, ok, err := s.LookupDebateSession(ctx, sessionID)
	if err != nil || !ok {
		return false, err
	}
	sess.Reset()
	if err := s.SaveDebateSession(ctx, sessionID, sess); err != nil {
		return false, err
	}
	return true, nil
}
