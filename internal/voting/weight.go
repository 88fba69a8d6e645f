package voting

import (
	"go.uber.org/zap"

	"voting-service/internal/models"
	"voting-service/internal/util"
)

// Weight computes the tally contribution of one ballot. It is a pure
// function of the election's method and the voter's apartment size:
//
//	ONE_PERSON_ONE_VOTE      -> 1.0, apartment size ignored
//	WEIGHTED_BY_SIZE_MANUAL  -> apartment size (the election's manual total
//	                            area only ever acts as a tally denominator)
//	WEIGHTED_BY_SIZE_VOTERS  -> apartment size
//
// An unknown method falls back to 1.0 and reports the anomaly; it never
// fails a cast that admission already allowed.
func Weight(method models.VotingMethod, voter *models.Voter) (float64, bool) {
	switch method {
	case models.OnePersonOneVote:
		return 1.0, true
	case models.WeightedBySizeManual, models.WeightedBySizeVoters:
		return voter.ApartmentSize, true
	default:
		util.Warn("Unknown voting method, defaulting weight to 1.0",
			zap.String("voting_method", string(method)),
			zap.String("user_id", voter.UserID.String()))
		return 1.0, false
	}
}
