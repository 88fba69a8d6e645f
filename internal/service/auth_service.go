package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voting-service/internal/config"
	"voting-service/internal/hashing"
	"voting-service/internal/models"
	"voting-service/internal/ratelimit"
	"voting-service/internal/repository/scylla"
	"voting-service/internal/security"
	"voting-service/internal/session"
	"voting-service/internal/util"
)

// AuthService authenticates voters and opens sessions for them.
type AuthService struct {
	voters    scylla.VoterRepository
	sessions  *session.Manager
	hasher    *hashing.Hasher
	limiter   *ratelimit.Limiter
	policies  config.RateLimitConfig
	recorder  security.Recorder
	suspicion *security.SuspicionEvaluator
	now       func() time.Time
}

func NewAuthService(voters scylla.VoterRepository, sessions *session.Manager,
	hasher *hashing.Hasher, limiter *ratelimit.Limiter, policies config.RateLimitConfig,
	recorder security.Recorder, suspicion *security.SuspicionEvaluator) *AuthService {
	return &AuthService{
		voters:    voters,
		sessions:  sessions,
		hasher:    hasher,
		limiter:   limiter,
		policies:  policies,
		recorder:  recorder,
		suspicion: suspicion,
		now:       time.Now,
	}
}

// Login verifies credentials and opens a session. Failed attempts count
// against the login rate limit; a successful login resets it.
func (s *AuthService) Login(ctx context.Context, email, password string, meta models.RequestMeta) (string, *models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	limitKey := "login:" + email

	result, err := s.limiter.Check(ctx, limitKey, s.policies.Login)
	if err != nil {
		return "", nil, err
	}
	if !result.Allowed {
		s.recorder.Record(ctx, models.EventRateLimitExceeded, models.SeverityMedium,
			uuid.Nil, meta, models.EventDetails{Reason: "login rate limit exceeded"})
		return "", nil, ErrRateLimited
	}

	voter, err := s.voters.GetVoterByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, scylla.ErrVoterNotFound) {
			s.recorder.Record(ctx, models.EventLoginFailed, models.SeverityLow,
				uuid.Nil, meta, models.EventDetails{Reason: "unknown email"})
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !voter.IsActive || voter.BlockActive(s.now().UTC()) {
		s.recorder.Record(ctx, models.EventLoginFailed, models.SeverityMedium,
			voter.UserID, meta, models.EventDetails{Reason: "account inactive or blocked"})
		return "", nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.VerifyPassword(password, voter.PasswordDigest)
	if err != nil || !ok {
		s.recorder.Record(ctx, models.EventLoginFailed, models.SeverityMedium,
			voter.UserID, meta, models.EventDetails{Reason: "password mismatch"})
		s.evaluateSuspicion(voter.UserID, meta)
		return "", nil, ErrInvalidCredentials
	}

	if err := s.limiter.Reset(ctx, limitKey); err != nil {
		util.Warn("Failed to reset login rate limit", zap.String("email", email), zap.Error(err))
	}

	token, sess, err := s.sessions.Create(ctx, voter, meta)
	if err != nil {
		return "", nil, err
	}

	s.recorder.Record(ctx, models.EventLoginSuccess, models.SeverityLow,
		voter.UserID, meta, models.EventDetails{SessionID: sess.SessionID.String()})

	return token, sess, nil
}

func (s *AuthService) evaluateSuspicion(userID uuid.UUID, meta models.RequestMeta) {
	if s.suspicion == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := s.suspicion.Evaluate(ctx, userID, meta); err != nil {
			util.Warn("Suspicion evaluation failed",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}()
}

// Logout destroys the session a token refers to. Always succeeds for
// malformed or already-destroyed tokens.
func (s *AuthService) Logout(ctx context.Context, token string, meta models.RequestMeta) error {
	return s.sessions.Destroy(ctx, token, meta)
}

// Resolve validates a token and optionally returns a rotated replacement.
func (s *AuthService) Resolve(ctx context.Context, token string, meta models.RequestMeta) (*models.Session, string, error) {
	return s.sessions.Resolve(ctx, token, meta)
}
