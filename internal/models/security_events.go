package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType is the closed set of security-relevant actions. New types are
// added here, never as ad hoc strings.
type EventType string

const (
	EventLoginSuccess       EventType = "LOGIN_SUCCESS"
	EventLoginFailed        EventType = "LOGIN_FAILED"
	EventSessionCreated     EventType = "SESSION_CREATED"
	EventSessionDestroyed   EventType = "SESSION_DESTROYED"
	EventSessionRotated     EventType = "SESSION_ROTATED"
	EventSessionInvalid     EventType = "SESSION_INVALID_TOKEN"
	EventSessionExpired     EventType = "SESSION_EXPIRED"
	EventSessionsRevoked    EventType = "SESSIONS_REVOKED"
	EventVoteCast           EventType = "VOTE_CAST"
	EventVoteFailedDenied   EventType = "VOTE_FAILED_ADMISSION"
	EventVoteFailedLimited  EventType = "VOTE_FAILED_RATE_LIMITED"
	EventVoteRevoked        EventType = "VOTE_REVOKED"
	EventRateLimitExceeded  EventType = "RATE_LIMIT_EXCEEDED"
	EventAccountBlocked     EventType = "ACCOUNT_BLOCKED"
	EventAnomalousMethod    EventType = "ANOMALOUS_VOTING_METHOD"
	EventElectionCreated    EventType = "ELECTION_CREATED"
	EventSuspicionEvaluated EventType = "SUSPICION_EVALUATED"
)

// Severity grades a security event for audit and alerting.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// EventDetails is the structured payload attached to an event. Fields are
// typed so suspicion scoring never parses free-form strings.
type EventDetails struct {
	Reason     string  `json:"reason,omitempty"`
	ElectionID string  `json:"election_id,omitempty"`
	VoteID     string  `json:"vote_id,omitempty"`
	SessionID  string  `json:"session_id,omitempty"`
	Weight     float64 `json:"weight,omitempty"`
	Count      int     `json:"count,omitempty"`
	RiskScore  int     `json:"risk_score,omitempty"`
	Method     string  `json:"method,omitempty"`
}

// SecurityEvent is an append-only audit record. Events are never mutated or
// deleted outside of retention policy.
type SecurityEvent struct {
	EventBucket int          `db:"event_bucket" json:"event_bucket"`
	EventID     uuid.UUID    `db:"event_id" json:"event_id"`
	Type        EventType    `db:"event_type" json:"event_type"`
	Severity    Severity     `db:"severity" json:"severity"`
	UserID      uuid.UUID    `db:"user_id" json:"user_id,omitempty"`
	IPAddress   string       `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent   string       `db:"user_agent" json:"user_agent,omitempty"`
	Details     EventDetails `db:"details" json:"details"`
	Timestamp   time.Time    `db:"event_time" json:"event_time"`
}

// DetailsJSON serializes the structured details for columnar storage.
func (e *SecurityEvent) DetailsJSON() string {
	raw, err := json.Marshal(e.Details)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// Marshal serializes the whole event for Kafka and the search index.
func (e *SecurityEvent) Marshal() []byte {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return raw
}
