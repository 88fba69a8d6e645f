package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voting-service/internal/config"
	"voting-service/internal/encryption"
	"voting-service/internal/models"
	"voting-service/internal/repository/scylla"
	"voting-service/internal/security"
	"voting-service/internal/util"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrSessionExpired = errors.New("session expired")
)

// Cache is the hot session store in front of the durable repository.
// The Redis session cache satisfies this.
type Cache interface {
	SetSession(ctx context.Context, session *models.Session, ttl time.Duration) error
	GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)
	InvalidateSession(ctx context.Context, sessionID, userID uuid.UUID) error
	InvalidateUserSessions(ctx context.Context, userID uuid.UUID) error
}

// Manager issues, resolves and revokes opaque session tokens. Tokens carry
// only an encrypted session ID; all session state lives server-side.
// Anything that cannot be verified is treated as hostile: undecodable or
// unresolvable tokens are rejected and logged, never repaired.
type Manager struct {
	repo     scylla.SessionRepository
	cache    Cache
	cipher   *encryption.TokenCipher
	recorder security.Recorder
	cfg      config.SessionConfig
	now      func() time.Time
}

func NewManager(repo scylla.SessionRepository, cache Cache, cipher *encryption.TokenCipher,
	recorder security.Recorder, cfg config.SessionConfig) *Manager {
	return &Manager{
		repo:     repo,
		cache:    cache,
		cipher:   cipher,
		recorder: recorder,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Create opens a fresh session and a fresh rotation family for the voter.
func (m *Manager) Create(ctx context.Context, voter *models.Voter, meta models.RequestMeta) (string, *models.Session, error) {
	now := m.now().UTC()

	session := &models.Session{
		SessionID:       uuid.New(),
		FamilyID:        uuid.New(),
		UserID:          voter.UserID,
		Email:           voter.Email,
		Role:            voter.Role,
		CreatedAt:       now,
		FamilyCreatedAt: now,
		LastActivity:    now,
		ExpiresAt:       now.Add(m.cfg.Duration),
		IPAddress:       meta.IPAddress,
		UserAgent:       meta.UserAgent,
	}

	token, err := m.persist(ctx, session)
	if err != nil {
		return "", nil, err
	}

	m.recorder.Record(ctx, models.EventSessionCreated, models.SeverityLow, voter.UserID, meta,
		models.EventDetails{SessionID: session.SessionID.String()})

	return token, session, nil
}

func (m *Manager) persist(ctx context.Context, session *models.Session) (string, error) {
	ttl := session.ExpiresAt.Sub(m.now())

	if err := m.repo.CreateSession(ctx, session, ttl); err != nil {
		return "", err
	}

	if m.cache != nil {
		if err := m.cache.SetSession(ctx, session, ttl); err != nil {
			util.Warn("Failed to cache session",
				zap.String("session_id", session.SessionID.String()),
				zap.Error(err))
		}
	}

	sid := session.SessionID
	return m.cipher.Seal(sid[:])
}

// Resolve validates a token and returns its session. When the session has
// outlived the rotation interval, a replacement token is minted and
// returned; callers must hand it back to the client. An empty rotated
// token means the presented token is still current.
func (m *Manager) Resolve(ctx context.Context, token string, meta models.RequestMeta) (*models.Session, string, error) {
	sessionID, err := m.openToken(token)
	if err != nil {
		m.recorder.Record(ctx, models.EventSessionInvalid, models.SeverityMedium, uuid.Nil, meta,
			models.EventDetails{Reason: "undecodable session token"})
		return nil, "", ErrInvalidSession
	}

	session, err := m.lookup(ctx, sessionID)
	if err != nil {
		if errors.Is(err, scylla.ErrSessionNotFound) {
			// Structurally valid token with no backing session. Either it
			// was revoked or the token key leaked; reject and log.
			m.recorder.Record(ctx, models.EventSessionInvalid, models.SeverityMedium, uuid.Nil, meta,
				models.EventDetails{Reason: "token references no session", SessionID: sessionID.String()})
			return nil, "", ErrInvalidSession
		}
		return nil, "", err
	}

	now := m.now().UTC()

	if session.Expired(now) {
		m.discard(ctx, session)
		m.recorder.Record(ctx, models.EventSessionExpired, models.SeverityMedium, session.UserID, meta,
			models.EventDetails{Reason: "expired session presented", SessionID: session.SessionID.String()})
		return nil, "", ErrSessionExpired
	}

	if session.FamilyAge(now) >= m.cfg.MaxFamilyAge {
		// The rotation chain has hit its absolute lifetime. Kill the
		// whole family; a fresh login is required.
		m.destroyFamily(ctx, session, meta)
		return nil, "", ErrSessionExpired
	}

	if session.Age(now) >= m.cfg.RotateAfter {
		return m.rotate(ctx, session, meta)
	}

	session.LastActivity = now
	if err := m.repo.TouchSession(ctx, session.SessionID, now); err != nil {
		util.Warn("Failed to touch session",
			zap.String("session_id", session.SessionID.String()),
			zap.Error(err))
	}

	return session, "", nil
}

func (m *Manager) openToken(token string) (uuid.UUID, error) {
	plaintext, err := m.cipher.Open(token)
	if err != nil {
		return uuid.Nil, err
	}

	sessionID, err := uuid.FromBytes(plaintext)
	if err != nil {
		return uuid.Nil, ErrInvalidSession
	}
	return sessionID, nil
}

func (m *Manager) lookup(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	if m.cache != nil {
		if session, err := m.cache.GetSession(ctx, sessionID); err == nil && session != nil {
			return session, nil
		}
	}

	session, err := m.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if m.cache != nil {
		ttl := session.ExpiresAt.Sub(m.now())
		if ttl > 0 {
			_ = m.cache.SetSession(ctx, session, ttl)
		}
	}
	return session, nil
}

func (m *Manager) rotate(ctx context.Context, old *models.Session, meta models.RequestMeta) (*models.Session, string, error) {
	now := m.now().UTC()

	next := &models.Session{
		SessionID:       uuid.New(),
		FamilyID:        old.FamilyID,
		UserID:          old.UserID,
		Email:           old.Email,
		Role:            old.Role,
		CreatedAt:       now,
		FamilyCreatedAt: old.FamilyCreatedAt,
		LastActivity:    now,
		ExpiresAt:       now.Add(m.cfg.Duration),
		IPAddress:       meta.IPAddress,
		UserAgent:       meta.UserAgent,
	}

	// ExpiresAt never outruns the family cap.
	familyDeadline := old.FamilyCreatedAt.Add(m.cfg.MaxFamilyAge)
	if next.ExpiresAt.After(familyDeadline) {
		next.ExpiresAt = familyDeadline
	}

	token, err := m.persist(ctx, next)
	if err != nil {
		return nil, "", err
	}

	m.discard(ctx, old)

	m.recorder.Record(ctx, models.EventSessionRotated, models.SeverityLow, old.UserID, meta,
		models.EventDetails{SessionID: next.SessionID.String()})

	return next, token, nil
}

func (m *Manager) discard(ctx context.Context, session *models.Session) {
	if err := m.repo.DeleteSession(ctx, session.SessionID); err != nil {
		util.Warn("Failed to delete session",
			zap.String("session_id", session.SessionID.String()),
			zap.Error(err))
	}
	if m.cache != nil {
		_ = m.cache.InvalidateSession(ctx, session.SessionID, session.UserID)
	}
}

func (m *Manager) destroyFamily(ctx context.Context, session *models.Session, meta models.RequestMeta) {
	ids, err := m.repo.GetFamilySessions(ctx, session.FamilyID)
	if err != nil {
		util.Warn("Failed to enumerate session family",
			zap.String("family_id", session.FamilyID.String()),
			zap.Error(err))
		ids = []uuid.UUID{session.SessionID}
	}

	for _, id := range ids {
		if err := m.repo.DeleteSession(ctx, id); err != nil {
			util.Warn("Failed to delete family session",
				zap.String("session_id", id.String()),
				zap.Error(err))
		}
		if m.cache != nil {
			_ = m.cache.InvalidateSession(ctx, id, session.UserID)
		}
	}

	m.recorder.Record(ctx, models.EventSessionDestroyed, models.SeverityLow, session.UserID, meta,
		models.EventDetails{Reason: "session family exceeded maximum age", Count: len(ids)})
}

// Destroy ends the session a token refers to. Unknown and malformed
// tokens are a no-op, so logout never fails.
func (m *Manager) Destroy(ctx context.Context, token string, meta models.RequestMeta) error {
	sessionID, err := m.openToken(token)
	if err != nil {
		return nil
	}

	session, err := m.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, scylla.ErrSessionNotFound) {
			return nil
		}
		return err
	}

	m.discard(ctx, session)

	m.recorder.Record(ctx, models.EventSessionDestroyed, models.SeverityLow, session.UserID, meta,
		models.EventDetails{SessionID: session.SessionID.String()})
	return nil
}

// InvalidateAll revokes every live session the user holds and reports how
// many were revoked.
func (m *Manager) InvalidateAll(ctx context.Context, userID uuid.UUID) (int, error) {
	ids, err := m.repo.GetUserSessions(ctx, userID)
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		if err := m.repo.DeleteSession(ctx, id); err != nil {
			util.Warn("Failed to delete session during revocation",
				zap.String("session_id", id.String()),
				zap.Error(err))
		}
	}

	if m.cache != nil {
		_ = m.cache.InvalidateUserSessions(ctx, userID)
	}

	m.recorder.Record(ctx, models.EventSessionsRevoked, models.SeverityMedium, userID,
		models.RequestMeta{}, models.EventDetails{Count: len(ids)})

	util.Info("All sessions revoked",
		zap.String("user_id", userID.String()),
		zap.Int("count", len(ids)))

	return len(ids), nil
}
