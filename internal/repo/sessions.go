package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/opsmemory/internal/chrono"
	"github.com/roach88/opsmemory/internal/docstore"
	"github.com/roach88/opsmemory/internal/entity"
)

// SessionParams are the inputs to CreateSession. A zero StartedAt means now.
type SessionParams struct {
	SessionID string
	Mode      string
	Goals     []string
	StartedAt time.Time
}

// CreateSession inserts a new open session. A session_id that is already
// taken fails with docstore.ErrDuplicateKey.
func (r *Repository) CreateSession(ctx context.Context, p SessionParams) (entity.Session, error) {
	if p.SessionID == "" {
		return entity.Session{}, fmt.Errorf("create session: session_id is required")
	}
	s := entity.NewSession(p.SessionID, r.orNow(p.StartedAt), p.Mode, p.Goals...)
	id, err := r.store.Insert(ctx, s.Document())
	if err != nil {
		return entity.Session{}, fmt.Errorf("create session %s: %w", p.SessionID, err)
	}
	s.ID = id
	r.logger.Debug("session created", "session_id", s.SessionID, "id", id)
	return s, nil
}

// GetSession fetches a session by store id.
func (r *Repository) GetSession(ctx context.Context, id string) (entity.Session, bool) {
	return fetch(ctx, r, id, entity.SessionFromDocument)
}

// GetSessionBySessionID fetches a session by its business key.
func (r *Repository) GetSessionBySessionID(ctx context.Context, sessionID string) (entity.Session, bool) {
	sessions := scan(ctx, r, entity.ClassSession, docstore.Filter{"session_id": sessionID}, entity.SessionFromDocument)
	for _, s := range sessions {
		if s.SessionID == sessionID {
			return s, true
		}
	}
	return entity.Session{}, false
}

// ListSessions returns sessions, most recently started first.
func (r *Repository) ListSessions(ctx context.Context, limit int) []entity.Session {
	sessions := scan(ctx, r, entity.ClassSession, nil, entity.SessionFromDocument)
	return newestFirst(sessions,
		func(s entity.Session) time.Time { return s.StartedAt },
		func(s entity.Session) string { return s.ID },
		limit)
}

// LastSession returns the most recently started session.
func (r *Repository) LastSession(ctx context.Context) (entity.Session, bool) {
	sessions := r.ListSessions(ctx, 1)
	if len(sessions) == 0 {
		return entity.Session{}, false
	}
	return sessions[0], true
}

// SessionUpdate holds the session fields to overwrite. Nil fields are left
// unchanged.
type SessionUpdate struct {
	EndedAt   *time.Time
	Summary   *string
	OpenLoops []string
}

// UpdateSession overwrites the supplied fields of the session with the given
// business key and replaces the stored document. Concurrent updates are last
// write wins. Returns ErrNotFound when the session cannot be read.
func (r *Repository) UpdateSession(ctx context.Context, sessionID string, u SessionUpdate) (entity.Session, error) {
	s, ok := r.GetSessionBySessionID(ctx, sessionID)
	if !ok {
		return entity.Session{}, fmt.Errorf("update session %s: %w", sessionID, ErrNotFound)
	}
	var loops entity.Set
	if u.OpenLoops != nil {
		if loops = entity.NewSet(u.OpenLoops...); loops == nil {
			loops = entity.Set{}
		}
	}
	if u.EndedAt != nil {
		s.Close(*u.EndedAt, u.Summary, loops)
	} else {
		s.Amend(u.Summary, loops)
	}
	if err := r.store.Replace(ctx, s.Document()); err != nil {
		return entity.Session{}, fmt.Errorf("update session %s: %w", sessionID, err)
	}
	return s, nil
}

// CloseParams are the inputs to CloseSession. A zero EndedAt means now.
type CloseParams struct {
	EndedAt   time.Time
	Summary   *string
	OpenLoops []string
}

// CloseSession marks the session ended. Returns ErrNotFound when no session
// has that business key.
func (r *Repository) CloseSession(ctx context.Context, sessionID string, p CloseParams) (entity.Session, error) {
	ended := r.orNow(p.EndedAt)
	s, err := r.UpdateSession(ctx, sessionID, SessionUpdate{
		EndedAt:   &ended,
		Summary:   p.Summary,
		OpenLoops: p.OpenLoops,
	})
	if err != nil {
		return entity.Session{}, err
	}
	r.logger.Debug("session closed", "session_id", sessionID, "ended_at", chrono.Format(ended))
	return s, nil
}
