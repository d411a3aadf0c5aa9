// Package store provides session persistence. The default implementation is
// an in-memory table matching the process-lifetime semantics of the original
// service; a SQLite implementation is available for deployments that want
// sessions to survive restarts.
//
// Stores serialize individual operations but do not serialize whole debate
// turns: two interleaved turns on the same sessionId can still clobber each
// other's conversation handle. Callers are expected to issue turns per
// session one at a time.
package store

import (
	"context"
	"fmt"

	"github.com/CMSchuyler/Artagent-2.0-3/internal/domain"
	"github.com/google/uuid"
)

// Repository persists chat and debate sessions keyed by a client-chosen
// session id. Get-or-create methods return value-semantics snapshots;
// mutations must be written back with the matching Save method.
type Repository interface {
	// Session returns the chat session for the id, creating it on first use.
	Session(ctx context.Context, sessionID string) (*domain.Session, error)

	// LookupSession returns the chat session if it exists.
	LookupSession(ctx context.Context, sessionID string) (*domain.Session, bool, error)

	// SaveSession writes back a chat session.
	SaveSession(ctx context.Context, sessionID string, s *domain.Session) error

	// DebateSession returns the debate session for the id, creating it on first use.
	DebateSession(ctx context.Context, sessionID string) (*domain.DebateSession, error)

	// LookupDebateSession returns the debate session if it exists.
	LookupDebateSession(ctx context.Context, sessionID string) (*domain.DebateSession, bool, error)

	// SaveDebateSession writes back a debate session.
	SaveDebateSession(ctx context.Context, sessionID string, s *domain.DebateSession) error

	// ResetDebateSession clears the remote conversation handle and per-agent
	// turn history for an existing debate session. Reports whether the
	// session existed.
	ResetDebateSession(ctx context.Context, sessionID string) (bool, error)

	// Close releases store resources.
	Close() error
}

// newUserID mints the synthetic user identity attached to a session on
// creation, in the upstream user_<8 hex> shape.
func newUserID() string {
	return fmt.Sprintf("user_%s", uuid.NewString()[:8])
}
