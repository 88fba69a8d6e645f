package voting

import (
	"testing"

	"github.com/google/uuid"

	"voting-service/internal/models"
)

func TestWeight(t *testing.T) {
	tests := []struct {
		name       string
		method     models.VotingMethod
		size       float64
		wantWeight float64
		wantKnown  bool
	}{
		{"opov ignores size", models.OnePersonOneVote, 85.5, 1.0, true},
		{"opov zero size", models.OnePersonOneVote, 0, 1.0, true},
		{"manual weighting uses size", models.WeightedBySizeManual, 85.5, 85.5, true},
		{"voters weighting uses size", models.WeightedBySizeVoters, 42.3, 42.3, true},
		{"unknown method falls back", models.VotingMethod("RANKED_CHOICE"), 85.5, 1.0, false},
		{"empty method falls back", models.VotingMethod(""), 85.5, 1.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			voter := &models.Voter{UserID: uuid.New(), ApartmentSize: tt.size}
			weight, known := Weight(tt.method, voter)
			if weight != tt.wantWeight {
				t.Errorf("Weight() = %v, want %v", weight, tt.wantWeight)
			}
			if known != tt.wantKnown {
				t.Errorf("Weight() known = %v, want %v", known, tt.wantKnown)
			}
		})
	}
}
