package service

import (
	"voting-service/internal/config"
	"voting-service/internal/hashing"
	"voting-service/internal/ratelimit"
	"voting-service/internal/repository/scylla"
	"voting-service/internal/security"
	"voting-service/internal/session"
	"voting-service/internal/voting"
)

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	cfg       *config.Config
	voters    scylla.VoterRepository
	elections scylla.ElectionRepository
	votes     scylla.VoteRepository
	sessions  *session.Manager
	hasher    *hashing.Hasher
	limiter   *ratelimit.Limiter
	recorder  security.Recorder
	suspicion *security.SuspicionEvaluator

	authService     *AuthService
	votingService   *VotingService
	electionService *ElectionService
}

func NewServiceFactory(
	cfg *config.Config,
	voters scylla.VoterRepository,
	elections scylla.ElectionRepository,
	votes scylla.VoteRepository,
	sessions *session.Manager,
	hasher *hashing.Hasher,
	limiter *ratelimit.Limiter,
	recorder security.Recorder,
	suspicion *security.SuspicionEvaluator,
) *ServiceFactory {
	return &ServiceFactory{
		cfg:       cfg,
		voters:    voters,
		elections: elections,
		votes:     votes,
		sessions:  sessions,
		hasher:    hasher,
		limiter:   limiter,
		recorder:  recorder,
		suspicion: suspicion,
	}
}

// AuthService returns the auth service instance (singleton)
func (f *ServiceFactory) AuthService() *AuthService {
	if f.authService == nil {
		f.authService = NewAuthService(f.voters, f.sessions, f.hasher,
			f.limiter, f.cfg.RateLimit, f.recorder, f.suspicion)
	}
	return f.authService
}

// VotingService returns the voting service instance (singleton)
func (f *ServiceFactory) VotingService() *VotingService {
	if f.votingService == nil {
		admission := voting.NewAdmissionController(f.elections, f.votes, f.voters)
		tallier := voting.NewTallier(f.elections, f.votes, f.voters)
		f.votingService = NewVotingService(admission, tallier, f.votes, f.voters,
			f.elections, f.limiter, f.cfg.RateLimit, f.recorder)
	}
	return f.votingService
}

// ElectionService returns the election service instance (singleton)
func (f *ServiceFactory) ElectionService() *ElectionService {
	if f.electionService == nil {
		f.electionService = NewElectionService(f.elections, f.recorder)
	}
	return f.electionService
}
