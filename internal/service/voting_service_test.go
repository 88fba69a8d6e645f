package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"voting-service/internal/config"
	"voting-service/internal/models"
	"voting-service/internal/ratelimit"
	"voting-service/internal/voting"
)

type votingFixture struct {
	service   *VotingService
	elections *fakeElectionRepo
	votes     *fakeVoteRepo
	voters    *fakeVoterRepo
	recorder  *fakeRecorder
	now       time.Time
}

func testRateLimits() config.RateLimitConfig {
	return config.RateLimitConfig{
		Login: ratelimit.Policy{MaxAttempts: 5, Window: time.Minute, BlockDuration: time.Minute},
		Vote:  ratelimit.Policy{MaxAttempts: 100, Window: time.Minute, BlockDuration: time.Minute},
	}
}

func newVotingFixture(t *testing.T) *votingFixture {
	t.Helper()

	// The admission controller reads the wall clock, so elections in these
	// tests are windowed around real time.
	f := &votingFixture{
		elections: newFakeElectionRepo(),
		votes:     newFakeVoteRepo(),
		voters:    newFakeVoterRepo(),
		recorder:  &fakeRecorder{},
		now:       time.Now().UTC(),
	}

	admission := voting.NewAdmissionController(f.elections, f.votes, f.voters)
	tallier := voting.NewTallier(f.elections, f.votes, f.voters)
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore())

	f.service = NewVotingService(admission, tallier, f.votes, f.voters, f.elections,
		limiter, testRateLimits(), f.recorder)
	f.service.now = func() time.Time { return f.now }
	return f
}

func (f *votingFixture) addElection(t *testing.T, method models.VotingMethod) uuid.UUID {
	t.Helper()

	election := &models.Election{
		ID:           uuid.New(),
		Title:        "garden budget",
		VotingMethod: method,
		StartTime:    f.now.Add(-time.Hour),
		EndTime:      f.now.Add(time.Hour),
		IsActive:     true,
	}
	if err := f.elections.CreateElection(context.Background(), election); err != nil {
		t.Fatalf("CreateElection() error = %v", err)
	}
	return election.ID
}

func (f *votingFixture) addCandidate(t *testing.T, electionID uuid.UUID) uuid.UUID {
	t.Helper()

	candidate := &models.Candidate{
		ID:         uuid.New(),
		ElectionID: electionID,
		Name:       "Option A",
		IsActive:   true,
	}
	if err := f.elections.CreateCandidate(context.Background(), candidate); err != nil {
		t.Fatalf("CreateCandidate() error = %v", err)
	}
	return candidate.ID
}

func (f *votingFixture) addVoter(t *testing.T, size float64) uuid.UUID {
	t.Helper()

	voter := &models.Voter{
		UserID:        uuid.New(),
		Email:         "resident@example.com",
		Role:          models.RoleResident,
		ApartmentSize: size,
		IsActive:      true,
	}
	if err := f.voters.CreateVoter(context.Background(), voter); err != nil {
		t.Fatalf("CreateVoter() error = %v", err)
	}
	return voter.UserID
}

func TestCastVote(t *testing.T) {
	f := newVotingFixture(t)
	ctx := context.Background()

	electionID := f.addElection(t, models.OnePersonOneVote)
	candidateID := f.addCandidate(t, electionID)
	voterID := f.addVoter(t, 80)

	voteID, err := f.service.CastVote(ctx, CastVoteRequest{
		VoterID: voterID, CandidateID: candidateID, ElectionID: electionID,
	})
	if err != nil {
		t.Fatalf("CastVote() error = %v", err)
	}
	if voteID == uuid.Nil {
		t.Fatal("CastVote() returned nil vote id")
	}

	stored, err := f.votes.GetVote(ctx, electionID, voterID)
	if err != nil {
		t.Fatalf("GetVote() error = %v", err)
	}
	if stored.Weight != 1.0 {
		t.Errorf("stored weight = %v, want 1.0 under one person one vote", stored.Weight)
	}

	if got := f.recorder.byType(models.EventVoteCast); len(got) != 1 {
		t.Errorf("VOTE_CAST events = %d, want 1", len(got))
	}
	if f.recorder.total() != 1 {
		t.Errorf("total events = %d, want exactly 1 per attempt", f.recorder.total())
	}
}

func TestCastVoteWeighted(t *testing.T) {
	f := newVotingFixture(t)
	ctx := context.Background()

	electionID := f.addElection(t, models.WeightedBySizeVoters)
	candidateID := f.addCandidate(t, electionID)
	voterID := f.addVoter(t, 85.5)

	if _, err := f.service.CastVote(ctx, CastVoteRequest{
		VoterID: voterID, CandidateID: candidateID, ElectionID: electionID,
	}); err != nil {
		t.Fatalf("CastVote() error = %v", err)
	}

	stored, err := f.votes.GetVote(ctx, electionID, voterID)
	if err != nil {
		t.Fatalf("GetVote() error = %v", err)
	}
	if stored.Weight != 85.5 {
		t.Errorf("stored weight = %v, want the apartment size 85.5", stored.Weight)
	}
}

func TestCastVoteDenials(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, f *votingFixture) CastVoteRequest
		wantErr error
	}{
		{
			name: "second cast rejected",
			setup: func(t *testing.T, f *votingFixture) CastVoteRequest {
				electionID := f.addElection(t, models.OnePersonOneVote)
				candidateID := f.addCandidate(t, electionID)
				voterID := f.addVoter(t, 80)
				req := CastVoteRequest{VoterID: voterID, CandidateID: candidateID, ElectionID: electionID}
				if _, err := f.service.CastVote(context.Background(), req); err != nil {
					t.Fatalf("first CastVote() error = %v", err)
				}
				return req
			},
			wantErr: voting.ErrAlreadyVoted,
		},
		{
			name: "unknown candidate",
			setup: func(t *testing.T, f *votingFixture) CastVoteRequest {
				electionID := f.addElection(t, models.OnePersonOneVote)
				f.addCandidate(t, electionID)
				return CastVoteRequest{
					VoterID: f.addVoter(t, 80), CandidateID: uuid.New(), ElectionID: electionID,
				}
			},
			wantErr: voting.ErrCandidateNotFound,
		},
		{
			name: "unknown election",
			setup: func(t *testing.T, f *votingFixture) CastVoteRequest {
				return CastVoteRequest{
					VoterID: f.addVoter(t, 80), CandidateID: uuid.New(), ElectionID: uuid.New(),
				}
			},
			wantErr: voting.ErrElectionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newVotingFixture(t)
			req := tt.setup(t, f)

			before := f.recorder.total()
			_, err := f.service.CastVote(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CastVote() error = %v, want %v", err, tt.wantErr)
			}
			if got := f.recorder.total() - before; got != 1 {
				t.Errorf("events for denied attempt = %d, want exactly 1", got)
			}
			if got := f.recorder.byType(models.EventVoteFailedDenied); len(got) == 0 {
				t.Error("no VOTE_FAILED_ADMISSION event recorded")
			}
		})
	}
}

func TestCastVoteConcurrentSingleBallot(t *testing.T) {
	f := newVotingFixture(t)

	electionID := f.addElection(t, models.OnePersonOneVote)
	candidateID := f.addCandidate(t, electionID)
	voterID := f.addVoter(t, 80)

	const attempts = 20
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.CastVote(context.Background(), CastVoteRequest{
				VoterID: voterID, CandidateID: candidateID, ElectionID: electionID,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded, duplicates := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, voting.ErrAlreadyVoted):
			duplicates++
		default:
			t.Errorf("unexpected CastVote() error = %v", err)
		}
	}

	if succeeded != 1 {
		t.Errorf("successful casts = %d, want exactly 1", succeeded)
	}
	if duplicates != attempts-1 {
		t.Errorf("already-voted rejections = %d, want %d", duplicates, attempts-1)
	}
	if f.votes.count() != 1 {
		t.Errorf("stored ballots = %d, want 1", f.votes.count())
	}
	if f.recorder.total() != attempts {
		t.Errorf("events = %d, want one per attempt (%d)", f.recorder.total(), attempts)
	}
}

func TestCastVoteRateLimited(t *testing.T) {
	f := newVotingFixture(t)
	ctx := context.Background()

	electionID := f.addElection(t, models.OnePersonOneVote)
	candidateID := f.addCandidate(t, electionID)
	voterID := f.addVoter(t, 80)

	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore())
	limits := testRateLimits()
	limits.Vote = ratelimit.Policy{MaxAttempts: 1, Window: time.Minute, BlockDuration: time.Minute}
	admission := voting.NewAdmissionController(f.elections, f.votes, f.voters)
	tallier := voting.NewTallier(f.elections, f.votes, f.voters)
	f.service = NewVotingService(admission, tallier, f.votes, f.voters, f.elections,
		limiter, limits, f.recorder)

	req := CastVoteRequest{VoterID: voterID, CandidateID: candidateID, ElectionID: electionID}
	if _, err := f.service.CastVote(ctx, req); err != nil {
		t.Fatalf("first CastVote() error = %v", err)
	}

	_, err := f.service.CastVote(ctx, req)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second CastVote() error = %v, want ErrRateLimited", err)
	}
	if got := f.recorder.byType(models.EventVoteFailedLimited); len(got) != 1 {
		t.Errorf("VOTE_FAILED_RATE_LIMITED events = %d, want 1", len(got))
	}
}

func TestCastVoteAnomalousMethod(t *testing.T) {
	f := newVotingFixture(t)
	ctx := context.Background()

	electionID := f.addElection(t, models.VotingMethod("APPROVAL"))
	candidateID := f.addCandidate(t, electionID)
	voterID := f.addVoter(t, 80)

	voteID, err := f.service.CastVote(ctx, CastVoteRequest{
		VoterID: voterID, CandidateID: candidateID, ElectionID: electionID,
	})
	if err != nil {
		t.Fatalf("CastVote() error = %v", err)
	}
	if voteID == uuid.Nil {
		t.Fatal("cast under unknown method failed, want fallback weight")
	}

	stored, err := f.votes.GetVote(ctx, electionID, voterID)
	if err != nil {
		t.Fatalf("GetVote() error = %v", err)
	}
	if stored.Weight != 1.0 {
		t.Errorf("fallback weight = %v, want 1.0", stored.Weight)
	}
	if got := f.recorder.byType(models.EventAnomalousMethod); len(got) != 1 {
		t.Errorf("ANOMALOUS_VOTING_METHOD events = %d, want 1", len(got))
	}
}

func TestRevokeVote(t *testing.T) {
	f := newVotingFixture(t)
	ctx := context.Background()

	electionID := f.addElection(t, models.OnePersonOneVote)
	candidateID := f.addCandidate(t, electionID)
	voterID := f.addVoter(t, 80)

	req := CastVoteRequest{VoterID: voterID, CandidateID: candidateID, ElectionID: electionID}
	if _, err := f.service.CastVote(ctx, req); err != nil {
		t.Fatalf("CastVote() error = %v", err)
	}

	if err := f.service.RevokeVote(ctx, voterID, electionID, models.RequestMeta{}); err != nil {
		t.Fatalf("RevokeVote() error = %v", err)
	}
	if f.votes.count() != 0 {
		t.Errorf("ballots after revoke = %d, want 0", f.votes.count())
	}
	if got := f.recorder.byType(models.EventVoteRevoked); len(got) != 1 {
		t.Fatalf("VOTE_REVOKED events = %d, want 1", len(got))
	}

	// Revoking again is a no-op and appends no duplicate event.
	if err := f.service.RevokeVote(ctx, voterID, electionID, models.RequestMeta{}); err != nil {
		t.Fatalf("second RevokeVote() error = %v", err)
	}
	if got := f.recorder.byType(models.EventVoteRevoked); len(got) != 1 {
		t.Errorf("VOTE_REVOKED events after no-op revoke = %d, want 1", len(got))
	}

	// The voter may cast again after revoking.
	if _, err := f.service.CastVote(ctx, req); err != nil {
		t.Fatalf("re-cast after revoke error = %v", err)
	}
}

func TestRevokeVoteClosedElection(t *testing.T) {
	f := newVotingFixture(t)
	ctx := context.Background()

	electionID := f.addElection(t, models.OnePersonOneVote)
	candidateID := f.addCandidate(t, electionID)
	voterID := f.addVoter(t, 80)

	req := CastVoteRequest{VoterID: voterID, CandidateID: candidateID, ElectionID: electionID}
	if _, err := f.service.CastVote(ctx, req); err != nil {
		t.Fatalf("CastVote() error = %v", err)
	}

	if err := f.elections.CloseElection(ctx, electionID); err != nil {
		t.Fatalf("CloseElection() error = %v", err)
	}

	err := f.service.RevokeVote(ctx, voterID, electionID, models.RequestMeta{})
	if !errors.Is(err, voting.ErrElectionNotActive) {
		t.Fatalf("RevokeVote() on closed election error = %v, want ErrElectionNotActive", err)
	}
	if f.votes.count() != 1 {
		t.Error("ballot removed despite closed election")
	}
}

func TestResultsUnknownElection(t *testing.T) {
	f := newVotingFixture(t)

	_, err := f.service.Results(context.Background(), uuid.New())
	if !errors.Is(err, voting.ErrElectionNotFound) {
		t.Fatalf("Results() error = %v, want ErrElectionNotFound", err)
	}
}
