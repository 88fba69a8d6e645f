package security

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"voting-service/internal/client"
	"voting-service/internal/config"
	"voting-service/internal/models"
	"voting-service/internal/repository/scylla"
	"voting-service/internal/util"
)

// SessionRevoker terminates every live session of a user. The session
// manager satisfies this.
type SessionRevoker interface {
	InvalidateAll(ctx context.Context, userID uuid.UUID) (int, error)
}

// SuspicionEvaluator scores recent account behavior against configurable
// thresholds and auto-blocks accounts that cross the risk line. All inputs
// come from the ClickHouse event log, so the score reflects exactly what
// the audit trail shows.
type SuspicionEvaluator struct {
	clickhouse *client.ClickHouseClient
	voters     scylla.VoterRepository
	revoker    SessionRevoker
	recorder   Recorder
	cfg        config.SecurityConfig
}

func NewSuspicionEvaluator(ch *client.ClickHouseClient, voters scylla.VoterRepository,
	revoker SessionRevoker, recorder Recorder, cfg config.SecurityConfig) *SuspicionEvaluator {
	return &SuspicionEvaluator{
		clickhouse: ch,
		voters:     voters,
		revoker:    revoker,
		recorder:   recorder,
		cfg:        cfg,
	}
}

const (
	failedLoginCountQuery = `
		SELECT count() FROM security_events
		WHERE user_id = ? AND event_type = ? AND timestamp >= ?`

	distinctIPCountQuery = `
		SELECT uniqExact(ip_address) FROM security_events
		WHERE user_id = ? AND timestamp >= ? AND ip_address != ''`
)

// Evaluate recomputes the risk score for a user and blocks the account
// when it crosses the configured threshold. Returns the score.
func (e *SuspicionEvaluator) Evaluate(ctx context.Context, userID uuid.UUID, meta models.RequestMeta) (int, error) {
	since := time.Now().UTC().Add(-e.cfg.FailedLoginLookback)

	var failedLogins uint64
	err := e.clickhouse.QueryRow(ctx, failedLoginCountQuery,
		userID.String(), string(models.EventLoginFailed), since).Scan(&failedLogins)
	if err != nil {
		return 0, fmt.Errorf("failed to count failed logins: %w", err)
	}

	var distinctIPs uint64
	err = e.clickhouse.QueryRow(ctx, distinctIPCountQuery,
		userID.String(), since).Scan(&distinctIPs)
	if err != nil {
		return 0, fmt.Errorf("failed to count distinct addresses: %w", err)
	}

	risk := 0
	if int(failedLogins) >= e.cfg.FailedLoginLimit {
		risk += e.cfg.FailedLoginWeight
	}
	if int(distinctIPs) >= e.cfg.DistinctIPLimit {
		risk += e.cfg.DistinctIPWeight
	}

	e.recorder.Record(ctx, models.EventSuspicionEvaluated, models.SeverityLow, userID, meta,
		models.EventDetails{RiskScore: risk, Count: int(failedLogins)})

	if risk <= e.cfg.RiskThreshold {
		return risk, nil
	}

	expiry := time.Now().UTC().Add(e.cfg.AutoBlockDuration)
	reason := fmt.Sprintf("risk score %d exceeded threshold %d", risk, e.cfg.RiskThreshold)

	if err := e.voters.BlockVoter(ctx, userID, reason, &expiry); err != nil {
		return risk, fmt.Errorf("failed to auto-block voter: %w", err)
	}

	revoked := 0
	if e.revoker != nil {
		revoked, err = e.revoker.InvalidateAll(ctx, userID)
		if err != nil {
			util.Error("Failed to revoke sessions for blocked voter",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}

	e.recorder.Record(ctx, models.EventAccountBlocked, models.SeverityHigh, userID, meta,
		models.EventDetails{Reason: reason, RiskScore: risk, Count: revoked})

	util.Warn("Account auto-blocked",
		zap.String("user_id", userID.String()),
		zap.Int("risk_score", risk),
		zap.Int("sessions_revoked", revoked))

	return risk, nil
}
