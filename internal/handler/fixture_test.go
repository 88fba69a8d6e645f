package handler

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"voting-service/internal/config"
	"voting-service/internal/encryption"
	"voting-service/internal/hashing"
	"voting-service/internal/models"
	"voting-service/internal/ratelimit"
	"voting-service/internal/repository/scylla"
	"voting-service/internal/service"
	"voting-service/internal/session"
	"voting-service/internal/util"
	"voting-service/internal/voting"
)

type fakeStore struct {
	mu        sync.Mutex
	voters    map[uuid.UUID]*models.Voter
	voterSeq  []uuid.UUID
	elections map[uuid.UUID]*models.Election
	cands     map[uuid.UUID][]*models.Candidate
	votes     map[[2]uuid.UUID]*models.Vote
	voteSeq   [][2]uuid.UUID
	sessions  map[uuid.UUID]*models.Session
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		voters:    make(map[uuid.UUID]*models.Voter),
		elections: make(map[uuid.UUID]*models.Election),
		cands:     make(map[uuid.UUID][]*models.Candidate),
		votes:     make(map[[2]uuid.UUID]*models.Vote),
		sessions:  make(map[uuid.UUID]*models.Session),
	}
}

func (s *fakeStore) CreateVoter(_ context.Context, voter *models.Voter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dup := *voter
	s.voters[voter.UserID] = &dup
	s.voterSeq = append(s.voterSeq, voter.UserID)
	return nil
}

func (s *fakeStore) GetVoterByID(_ context.Context, userID uuid.UUID) (*models.Voter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	voter, ok := s.voters[userID]
	if !ok {
		return nil, scylla.ErrVoterNotFound
	}
	dup := *voter
	return &dup, nil
}

func (s *fakeStore) GetVoterByEmail(_ context.Context, email string) (*models.Voter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, voter := range s.voters {
		if voter.Email == email {
			dup := *voter
			return &dup, nil
		}
	}
	return nil, scylla.ErrVoterNotFound
}

func (s *fakeStore) BlockVoter(_ context.Context, userID uuid.UUID, reason string, expiry *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if voter, ok := s.voters[userID]; ok {
		voter.IsBlocked = true
		voter.BlockedReason = reason
		voter.BlockExpiry = expiry
	}
	return nil
}

func (s *fakeStore) UnblockVoter(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if voter, ok := s.voters[userID]; ok {
		voter.IsBlocked = false
		voter.BlockedReason = ""
		voter.BlockExpiry = nil
	}
	return nil
}

func (s *fakeStore) ListVoters(_ context.Context) ([]*models.Voter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Voter, 0, len(s.voterSeq))
	for _, id := range s.voterSeq {
		dup := *s.voters[id]
		out = append(out, &dup)
	}
	return out, nil
}

func (s *fakeStore) CreateElection(_ context.Context, election *models.Election) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dup := *election
	s.elections[election.ID] = &dup
	return nil
}

func (s *fakeStore) GetElectionByID(_ context.Context, electionID uuid.UUID) (*models.Election, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	election, ok := s.elections[electionID]
	if !ok {
		return nil, scylla.ErrElectionNotFound
	}
	dup := *election
	return &dup, nil
}

func (s *fakeStore) ListElections(_ context.Context) ([]*models.Election, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Election
	for _, election := range s.elections {
		dup := *election
		out = append(out, &dup)
	}
	return out, nil
}

func (s *fakeStore) CloseElection(_ context.Context, electionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if election, ok := s.elections[electionID]; ok {
		election.IsActive = false
	}
	return nil
}

func (s *fakeStore) CreateCandidate(_ context.Context, candidate *models.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dup := *candidate
	s.cands[candidate.ElectionID] = append(s.cands[candidate.ElectionID], &dup)
	return nil
}

func (s *fakeStore) GetCandidates(_ context.Context, electionID uuid.UUID) ([]*models.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Candidate, 0, len(s.cands[electionID]))
	for _, candidate := range s.cands[electionID] {
		dup := *candidate
		out = append(out, &dup)
	}
	return out, nil
}

func (s *fakeStore) DeactivateCandidate(_ context.Context, electionID, candidateID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, candidate := range s.cands[electionID] {
		if candidate.ID == candidateID {
			candidate.IsActive = false
		}
	}
	return nil
}

func (s *fakeStore) InsertVoteIfAbsent(_ context.Context, vote *models.Vote) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]uuid.UUID{vote.ElectionID, vote.UserID}
	if _, exists := s.votes[key]; exists {
		return false, nil
	}
	dup := *vote
	s.votes[key] = &dup
	s.voteSeq = append(s.voteSeq, key)
	return true, nil
}

func (s *fakeStore) GetVote(_ context.Context, electionID, userID uuid.UUID) (*models.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	vote, ok := s.votes[[2]uuid.UUID{electionID, userID}]
	if !ok {
		return nil, scylla.ErrVoteNotFound
	}
	dup := *vote
	return &dup, nil
}

func (s *fakeStore) DeleteVoteIfExists(_ context.Context, electionID, userID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]uuid.UUID{electionID, userID}
	if _, ok := s.votes[key]; !ok {
		return false, nil
	}
	delete(s.votes, key)
	for i, k := range s.voteSeq {
		if k == key {
			s.voteSeq = append(s.voteSeq[:i], s.voteSeq[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *fakeStore) GetVotesByElection(_ context.Context, electionID uuid.UUID) ([]*models.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Vote
	for _, key := range s.voteSeq {
		if key[0] != electionID {
			continue
		}
		dup := *s.votes[key]
		out = append(out, &dup)
	}
	return out, nil
}

func (s *fakeStore) CreateSession(_ context.Context, sess *models.Session, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	dup := *sess
	s.sessions[sess.SessionID] = &dup
	return nil
}

func (s *fakeStore) GetSessionByID(_ context.Context, sessionID uuid.UUID) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, scylla.ErrSessionNotFound
	}
	dup := *sess
	return &dup, nil
}

func (s *fakeStore) TouchSession(_ context.Context, sessionID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		sess.LastActivity = at
	}
	return nil
}

func (s *fakeStore) DeleteSession(_ context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *fakeStore) GetUserSessions(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *fakeStore) GetFamilySessions(_ context.Context, familyID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uuid.UUID
	for id, sess := range s.sessions {
		if sess.FamilyID == familyID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, models.EventType, models.Severity, uuid.UUID,
	models.RequestMeta, models.EventDetails) {
}

// apiFixture is a full HTTP stack over in-memory storage.
type apiFixture struct {
	server *httptest.Server
	store  *fakeStore
	cfg    *config.Config
	hasher *hashing.Hasher
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	cfg := &config.Config{
		Environment: "development",
		Session: config.SessionConfig{
			Duration:     24 * time.Hour,
			RotateAfter:  time.Hour,
			MaxFamilyAge: 7 * 24 * time.Hour,
			TokenKey:     base64.StdEncoding.EncodeToString(key),
			CookieName:   "vs_session",
		},
		RateLimit: config.RateLimitConfig{
			Login: ratelimit.Policy{MaxAttempts: 10, Window: time.Minute, BlockDuration: time.Minute},
			Vote:  ratelimit.Policy{MaxAttempts: 100, Window: time.Minute, BlockDuration: time.Minute},
		},
		Hashing: config.HashingConfig{
			Argon2MemoryCost:  8 * 1024,
			Argon2TimeCost:    1,
			Argon2Parallelism: 1,
		},
	}

	store := newFakeStore()
	recorder := nopRecorder{}

	cipher, err := encryption.NewTokenCipher(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewTokenCipher() error = %v", err)
	}
	hasher := hashing.NewHasher(cfg)
	sessions := session.NewManager(store, nil, cipher, recorder, cfg.Session)
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore())

	authService := service.NewAuthService(store, sessions, hasher, limiter, cfg.RateLimit, recorder, nil)
	admission := voting.NewAdmissionController(store, store, store)
	tallier := voting.NewTallier(store, store, store)
	votingService := service.NewVotingService(admission, tallier, store, store, store,
		limiter, cfg.RateLimit, recorder)
	electionService := service.NewElectionService(store, recorder)

	router := NewRouter(cfg, authService,
		NewAuthHandler(authService, cfg),
		NewElectionHandler(electionService, votingService),
		NewVoteHandler(votingService),
		util.Get())

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &apiFixture{server: server, store: store, cfg: cfg, hasher: hasher}
}

func (f *apiFixture) addVoter(t *testing.T, email, password string, role models.Role, size float64) uuid.UUID {
	t.Helper()

	digest, err := f.hasher.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	voter := &models.Voter{
		UserID:         uuid.New(),
		Email:          email,
		PasswordDigest: digest,
		Role:           role,
		ApartmentSize:  size,
		IsActive:       true,
	}
	if err := f.store.CreateVoter(context.Background(), voter); err != nil {
		t.Fatalf("CreateVoter() error = %v", err)
	}
	return voter.UserID
}

func (f *apiFixture) addElection(t *testing.T, method models.VotingMethod) (uuid.UUID, uuid.UUID) {
	t.Helper()

	now := time.Now().UTC()
	election := &models.Election{
		ID:           uuid.New(),
		Title:        "test election",
		VotingMethod: method,
		StartTime:    now.Add(-time.Hour),
		EndTime:      now.Add(time.Hour),
		IsActive:     true,
	}
	if err := f.store.CreateElection(context.Background(), election); err != nil {
		t.Fatalf("CreateElection() error = %v", err)
	}
	candidate := &models.Candidate{
		ID:         uuid.New(),
		ElectionID: election.ID,
		Name:       "Option A",
		IsActive:   true,
	}
	if err := f.store.CreateCandidate(context.Background(), candidate); err != nil {
		t.Fatalf("CreateCandidate() error = %v", err)
	}
	return election.ID, candidate.ID
}

func (f *apiFixture) sessionCookie(resp *http.Response) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == f.cfg.Session.CookieName {
			return cookie
		}
	}
	return nil
}
