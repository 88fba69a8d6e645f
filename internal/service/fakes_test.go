package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"voting-service/internal/models"
	"voting-service/internal/repository/scylla"
)

type fakeElectionRepo struct {
	mu         sync.Mutex
	elections  map[uuid.UUID]*models.Election
	candidates map[uuid.UUID][]*models.Candidate
}

func newFakeElectionRepo() *fakeElectionRepo {
	return &fakeElectionRepo{
		elections:  make(map[uuid.UUID]*models.Election),
		candidates: make(map[uuid.UUID][]*models.Candidate),
	}
}

func (r *fakeElectionRepo) CreateElection(_ context.Context, election *models.Election) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dup := *election
	r.elections[election.ID] = &dup
	return nil
}

func (r *fakeElectionRepo) GetElectionByID(_ context.Context, electionID uuid.UUID) (*models.Election, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	election, ok := r.elections[electionID]
	if !ok {
		return nil, scylla.ErrElectionNotFound
	}
	dup := *election
	return &dup, nil
}

func (r *fakeElectionRepo) ListElections(_ context.Context) ([]*models.Election, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Election
	for _, election := range r.elections {
		dup := *election
		out = append(out, &dup)
	}
	return out, nil
}

func (r *fakeElectionRepo) CloseElection(_ context.Context, electionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if election, ok := r.elections[electionID]; ok {
		election.IsActive = false
	}
	return nil
}

func (r *fakeElectionRepo) CreateCandidate(_ context.Context, candidate *models.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dup := *candidate
	r.candidates[candidate.ElectionID] = append(r.candidates[candidate.ElectionID], &dup)
	return nil
}

func (r *fakeElectionRepo) GetCandidates(_ context.Context, electionID uuid.UUID) ([]*models.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Candidate, 0, len(r.candidates[electionID]))
	for _, candidate := range r.candidates[electionID] {
		dup := *candidate
		out = append(out, &dup)
	}
	return out, nil
}

func (r *fakeElectionRepo) DeactivateCandidate(_ context.Context, electionID, candidateID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, candidate := range r.candidates[electionID] {
		if candidate.ID == candidateID {
			candidate.IsActive = false
		}
	}
	return nil
}

type voteKey struct {
	electionID uuid.UUID
	userID     uuid.UUID
}

// fakeVoteRepo mirrors the conditional-write semantics of the real store:
// per-key check-and-insert under one lock.
type fakeVoteRepo struct {
	mu    sync.Mutex
	votes map[voteKey]*models.Vote
	order []voteKey
}

func newFakeVoteRepo() *fakeVoteRepo {
	return &fakeVoteRepo{votes: make(map[voteKey]*models.Vote)}
}

func (r *fakeVoteRepo) InsertVoteIfAbsent(_ context.Context, vote *models.Vote) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := voteKey{vote.ElectionID, vote.UserID}
	if _, exists := r.votes[key]; exists {
		return false, nil
	}
	dup := *vote
	r.votes[key] = &dup
	r.order = append(r.order, key)
	return true, nil
}

func (r *fakeVoteRepo) GetVote(_ context.Context, electionID, userID uuid.UUID) (*models.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	vote, ok := r.votes[voteKey{electionID, userID}]
	if !ok {
		return nil, scylla.ErrVoteNotFound
	}
	dup := *vote
	return &dup, nil
}

func (r *fakeVoteRepo) DeleteVoteIfExists(_ context.Context, electionID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := voteKey{electionID, userID}
	if _, ok := r.votes[key]; !ok {
		return false, nil
	}
	delete(r.votes, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (r *fakeVoteRepo) GetVotesByElection(_ context.Context, electionID uuid.UUID) ([]*models.Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Vote
	for _, key := range r.order {
		if key.electionID != electionID {
			continue
		}
		dup := *r.votes[key]
		out = append(out, &dup)
	}
	return out, nil
}

func (r *fakeVoteRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.votes)
}

type fakeVoterRepo struct {
	mu     sync.Mutex
	voters map[uuid.UUID]*models.Voter
	order  []uuid.UUID
}

func newFakeVoterRepo() *fakeVoterRepo {
	return &fakeVoterRepo{voters: make(map[uuid.UUID]*models.Voter)}
}

func (r *fakeVoterRepo) CreateVoter(_ context.Context, voter *models.Voter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dup := *voter
	r.voters[voter.UserID] = &dup
	r.order = append(r.order, voter.UserID)
	return nil
}

func (r *fakeVoterRepo) GetVoterByID(_ context.Context, userID uuid.UUID) (*models.Voter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	voter, ok := r.voters[userID]
	if !ok {
		return nil, scylla.ErrVoterNotFound
	}
	dup := *voter
	return &dup, nil
}

func (r *fakeVoterRepo) GetVoterByEmail(_ context.Context, email string) (*models.Voter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, voter := range r.voters {
		if voter.Email == email {
			dup := *voter
			return &dup, nil
		}
	}
	return nil, scylla.ErrVoterNotFound
}

func (r *fakeVoterRepo) BlockVoter(_ context.Context, userID uuid.UUID, reason string, expiry *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if voter, ok := r.voters[userID]; ok {
		voter.IsBlocked = true
		voter.BlockedReason = reason
		voter.BlockExpiry = expiry
	}
	return nil
}

func (r *fakeVoterRepo) UnblockVoter(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if voter, ok := r.voters[userID]; ok {
		voter.IsBlocked = false
		voter.BlockedReason = ""
		voter.BlockExpiry = nil
	}
	return nil
}

func (r *fakeVoterRepo) ListVoters(_ context.Context) ([]*models.Voter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Voter, 0, len(r.order))
	for _, id := range r.order {
		dup := *r.voters[id]
		out = append(out, &dup)
	}
	return out, nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*models.Session)}
}

func (r *fakeSessionRepo) CreateSession(_ context.Context, session *models.Session, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dup := *session
	r.sessions[session.SessionID] = &dup
	return nil
}

func (r *fakeSessionRepo) GetSessionByID(_ context.Context, sessionID uuid.UUID) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, scylla.ErrSessionNotFound
	}
	dup := *session
	return &dup, nil
}

func (r *fakeSessionRepo) TouchSession(_ context.Context, sessionID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[sessionID]; ok {
		session.LastActivity = at
	}
	return nil
}

func (r *fakeSessionRepo) DeleteSession(_ context.Context, sessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func (r *fakeSessionRepo) GetUserSessions(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for id, session := range r.sessions {
		if session.UserID == userID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeSessionRepo) GetFamilySessions(_ context.Context, familyID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for id, session := range r.sessions {
		if session.FamilyID == familyID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type recordedEvent struct {
	Type     models.EventType
	Severity models.Severity
	UserID   uuid.UUID
	Details  models.EventDetails
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeRecorder) Record(_ context.Context, eventType models.EventType, severity models.Severity,
	userID uuid.UUID, _ models.RequestMeta, details models.EventDetails) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{Type: eventType, Severity: severity, UserID: userID, Details: details})
}

func (f *fakeRecorder) byType(eventType models.EventType) []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedEvent
	for _, e := range f.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeRecorder) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}
