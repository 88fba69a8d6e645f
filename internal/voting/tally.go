package voting

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"voting-service/internal/models"
	"voting-service/internal/repository/scylla"
)

// Tallier computes election results. Every call produces an independent
// snapshot from one consistent read of the vote set; nothing is mutated,
// so tallies can run concurrently with vote casting.
type Tallier struct {
	elections scylla.ElectionRepository
	votes     scylla.VoteRepository
	voters    scylla.VoterRepository
	now       func() time.Time
}

func NewTallier(elections scylla.ElectionRepository, votes scylla.VoteRepository,
	voters scylla.VoterRepository) *Tallier {
	return &Tallier{
		elections: elections,
		votes:     votes,
		voters:    voters,
		now:       time.Now,
	}
}

func (t *Tallier) Tally(ctx context.Context, electionID uuid.UUID) (*models.VotingSummary, error) {
	election, err := t.elections.GetElectionByID(ctx, electionID)
	if err != nil {
		return nil, err
	}

	var (
		candidates []*models.Candidate
		votes      []*models.Vote
		allVoters  []*models.Voter
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		candidates, err = t.elections.GetCandidates(gctx, electionID)
		return err
	})
	g.Go(func() error {
		var err error
		votes, err = t.votes.GetVotesByElection(gctx, electionID)
		return err
	})
	g.Go(func() error {
		var err error
		allVoters, err = t.voters.ListVoters(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := t.now().UTC()
	return computeSummary(election, candidates, votes, allVoters, now), nil
}

// computeSummary is the pure tally over an already-loaded snapshot.
func computeSummary(election *models.Election, candidates []*models.Candidate,
	votes []*models.Vote, allVoters []*models.Voter, now time.Time) *models.VotingSummary {

	counts := make(map[uuid.UUID]int, len(candidates))
	weights := make(map[uuid.UUID]float64, len(candidates))

	totalVotes := 0
	totalWeighted := 0.0
	for _, vote := range votes {
		counts[vote.CandidateID]++
		weights[vote.CandidateID] += vote.Weight
		totalVotes++
		totalWeighted += vote.Weight
	}

	// The weighted denominator depends on the method: the manually entered
	// total area for MANUAL, otherwise the weight actually cast. Under
	// MANUAL the weighted percentages may legitimately sum below 100.
	denominator := totalWeighted
	if election.VotingMethod == models.WeightedBySizeManual {
		denominator = election.TotalAreaManual
	}

	results := make([]models.CandidateResult, 0, len(candidates))
	winnerID := ""
	bestWeight := math.Inf(-1)

	for _, candidate := range candidates {
		result := models.CandidateResult{
			CandidateID:   candidate.ID.String(),
			Name:          candidate.Name,
			VoteCount:     counts[candidate.ID],
			WeightedVotes: weights[candidate.ID],
		}
		if totalVotes > 0 {
			result.Percentage = float64(result.VoteCount) / float64(totalVotes) * 100
		}
		if denominator > 0 {
			result.WeightedPercentage = result.WeightedVotes / denominator * 100
		}
		results = append(results, result)

		// Strict greater-than keeps ties on the first candidate in
		// stable input order.
		if result.VoteCount > 0 || result.WeightedVotes > 0 {
			if result.WeightedVotes > bestWeight {
				bestWeight = result.WeightedVotes
				winnerID = candidate.ID.String()
			}
		}
	}

	eligible := 0
	for _, voter := range allVoters {
		if voter.IsActive && voter.Role.Can(models.CapCastVote) {
			eligible++
		}
	}
	quorumRequired := int(math.Ceil(float64(eligible) * 0.5))

	return &models.VotingSummary{
		ElectionID:          election.ID.String(),
		VotingMethod:        election.VotingMethod,
		Candidates:          results,
		TotalVotes:          totalVotes,
		TotalWeightedVotes:  totalWeighted,
		WeightedDenominator: denominator,
		WinnerID:            winnerID,
		TotalEligibleVoters: eligible,
		QuorumRequired:      quorumRequired,
		HasQuorum:           totalVotes >= quorumRequired,
		IsCompleted:         now.After(election.EndTime),
		ComputedAt:          now,
	}
}
