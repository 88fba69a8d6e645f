package scylla

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"voting-service/internal/config"
	"voting-service/internal/util"
)

// PreparedStatements holds prepared statements that are actually used by the repositories
type PreparedStatements struct {
	CreateVoter        *gocql.Query
	CreateEmailToVoter *gocql.Query
	GetVoterByID       *gocql.Query
	GetVoterByEmail    *gocql.Query
	BlockVoter         *gocql.Query
	UnblockVoter       *gocql.Query
	ListVoters         *gocql.Query

	CreateElection      *gocql.Query
	GetElectionByID     *gocql.Query
	ListElections       *gocql.Query
	CloseElection       *gocql.Query
	CreateCandidate     *gocql.Query
	GetCandidates       *gocql.Query
	DeactivateCandidate *gocql.Query

	InsertVoteIfAbsent *gocql.Query
	GetVote            *gocql.Query
	DeleteVoteIfExists *gocql.Query
	GetVotesByElection *gocql.Query

	CreateSession     *gocql.Query
	GetSessionByID    *gocql.Query
	TouchSession      *gocql.Query
	DeleteSession     *gocql.Query
	AddFamilySession  *gocql.Query
	GetFamilySessions *gocql.Query
	GetUserSessions   *gocql.Query
	AddUserSession    *gocql.Query
	RemoveUserSession *gocql.Query
}

type ScyllaClient struct {
	Session      *gocql.Session
	config       *config.ScyllaConfig
	Prepared     *PreparedStatements
	prepareMutex sync.RWMutex
	isPrepared   bool
}

func NewScyllaClient(cfg *config.Config, logger *zap.Logger) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 4
	cluster.SocketKeepalive = 30 * time.Second
	cluster.MaxPreparedStmts = 1000
	cluster.MaxRoutingKeyInfo = 1000
	cluster.PageSize = 1000
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	if !cfg.IsDevelopment() {
		cluster.SslOpts = &gocql.SslOptions{
			CaPath:                 "/root/certs/ca.pem",
			CertPath:               "/root/certs/server.pem",
			KeyPath:                "/root/certs/server.key",
			EnableHostVerification: true,
		}
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session: session,
		config:  &scyllaConfig,
	}

	if err := client.prepareStatements(); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	util.Info("ScyllaDB client initialized with prepared statements",
		zap.Strings("nodes", scyllaConfig.Nodes),
		zap.String("keyspace", scyllaConfig.Keyspace))

	return client, nil
}

func (s *ScyllaClient) prepareStatements() error {
	s.prepareMutex.Lock()
	defer s.prepareMutex.Unlock()

	if s.isPrepared {
		return nil
	}

	prepared := &PreparedStatements{}

	prepared.CreateVoter = s.Session.Query(`
        INSERT INTO voters (
            user_bucket, user_id, email, password_digest, role,
            apartment_size, is_active, is_blocked, blocked_reason, block_expiry,
            created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.CreateEmailToVoter = s.Session.Query(`
        INSERT INTO email_to_voter (email, user_bucket, user_id, created_at)
        VALUES (?, ?, ?, ?)`)

	prepared.GetVoterByID = s.Session.Query(`
        SELECT user_bucket, user_id, email, password_digest, role,
            apartment_size, is_active, is_blocked, blocked_reason, block_expiry,
            created_at
        FROM voters WHERE user_bucket = ? AND user_id = ?`)

	prepared.GetVoterByEmail = s.Session.Query(`
        SELECT user_bucket, user_id FROM email_to_voter WHERE email = ?`)

	prepared.BlockVoter = s.Session.Query(`
        UPDATE voters SET is_blocked = ?, blocked_reason = ?, block_expiry = ?
        WHERE user_bucket = ? AND user_id = ?`)

	prepared.UnblockVoter = s.Session.Query(`
        UPDATE voters SET is_blocked = ?, blocked_reason = ?, block_expiry = ?
        WHERE user_bucket = ? AND user_id = ?`)

	prepared.ListVoters = s.Session.Query(`
        SELECT user_bucket, user_id, email, password_digest, role,
            apartment_size, is_active, is_blocked, blocked_reason, block_expiry,
            created_at
        FROM voters WHERE user_bucket = ?`)

	prepared.CreateElection = s.Session.Query(`
        INSERT INTO elections (
            election_id, title, voting_method, total_area_manual,
            start_time, end_time, is_active, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	prepared.GetElectionByID = s.Session.Query(`
        SELECT election_id, title, voting_method, total_area_manual,
            start_time, end_time, is_active, created_at
        FROM elections WHERE election_id = ?`)

	// Full scan; the elections table stays small (tens of rows per complex).
	prepared.ListElections = s.Session.Query(`
        SELECT election_id, title, voting_method, total_area_manual,
            start_time, end_time, is_active, created_at
        FROM elections`)

	prepared.CloseElection = s.Session.Query(`
        UPDATE elections SET is_active = ? WHERE election_id = ?`)

	prepared.CreateCandidate = s.Session.Query(`
        INSERT INTO candidates (election_id, candidate_id, name, is_active, created_at)
        VALUES (?, ?, ?, ?, ?)`)

	prepared.GetCandidates = s.Session.Query(`
        SELECT election_id, candidate_id, name, is_active, created_at
        FROM candidates WHERE election_id = ?`)

	prepared.DeactivateCandidate = s.Session.Query(`
        UPDATE candidates SET is_active = ? WHERE election_id = ? AND candidate_id = ?`)

	// The (election_id, user_id) primary key plus IF NOT EXISTS makes
	// double voting impossible even across concurrent coordinators.
	prepared.InsertVoteIfAbsent = s.Session.Query(`
        INSERT INTO votes (election_id, user_id, vote_id, candidate_id, weight, cast_at)
        VALUES (?, ?, ?, ?, ?, ?) IF NOT EXISTS`)

	prepared.GetVote = s.Session.Query(`
        SELECT election_id, user_id, vote_id, candidate_id, weight, cast_at
        FROM votes WHERE election_id = ? AND user_id = ?`)

	prepared.DeleteVoteIfExists = s.Session.Query(`
        DELETE FROM votes WHERE election_id = ? AND user_id = ? IF EXISTS`)

	prepared.GetVotesByElection = s.Session.Query(`
        SELECT election_id, user_id, vote_id, candidate_id, weight, cast_at
        FROM votes WHERE election_id = ?`)

	prepared.CreateSession = s.Session.Query(`
        INSERT INTO sessions (
            session_id, family_id, user_id, email, role,
            created_at, family_created_at, last_activity, expires_at,
            ip_address, user_agent
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) USING TTL ?`)

	prepared.GetSessionByID = s.Session.Query(`
        SELECT session_id, family_id, user_id, email, role,
            created_at, family_created_at, last_activity, expires_at,
            ip_address, user_agent
        FROM sessions WHERE session_id = ?`)

	prepared.TouchSession = s.Session.Query(`
        UPDATE sessions SET last_activity = ? WHERE session_id = ?`)

	prepared.DeleteSession = s.Session.Query(`
        DELETE FROM sessions WHERE session_id = ?`)

	prepared.AddFamilySession = s.Session.Query(`
        INSERT INTO family_sessions (family_id, session_id, created_at)
        VALUES (?, ?, ?) USING TTL ?`)

	prepared.GetFamilySessions = s.Session.Query(`
        SELECT session_id FROM family_sessions WHERE family_id = ?`)

	prepared.GetUserSessions = s.Session.Query(`
        SELECT session_id FROM user_sessions WHERE user_id = ?`)

	prepared.AddUserSession = s.Session.Query(`
        INSERT INTO user_sessions (user_id, session_id, created_at)
        VALUES (?, ?, ?) USING TTL ?`)

	prepared.RemoveUserSession = s.Session.Query(`
        DELETE FROM user_sessions WHERE user_id = ? AND session_id = ?`)

	s.Prepared = prepared
	s.isPrepared = true

	util.Info("Selected ScyllaDB prepared statements created successfully")
	return nil
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}

func (s *ScyllaClient) Query(stmt string, values ...interface{}) *gocql.Query {
	return s.Session.Query(stmt, values...)
}

func (s *ScyllaClient) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var clusterName string
	err := s.Session.Query(`SELECT cluster_name FROM system.local`).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}

	util.Debug("ScyllaDB health check passed", zap.String("cluster_name", clusterName))
	return nil
}

func (s *ScyllaClient) ExecuteWithRetry(query *gocql.Query, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := query.Exec(); err != nil {
			lastErr = err
			if i < maxRetries {
				time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
				continue
			}
		} else {
			return nil
		}
	}
	return fmt.Errorf("query failed after %d retries: %w", maxRetries, lastErr)
}
