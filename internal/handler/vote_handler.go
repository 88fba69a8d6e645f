package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"voting-service/internal/models"
	"voting-service/internal/service"
)

// VoteHandler handles ballot casting and revocation.
type VoteHandler struct {
	votingService *service.VotingService
}

func NewVoteHandler(votingService *service.VotingService) *VoteHandler {
	return &VoteHandler{votingService: votingService}
}

func (h *VoteHandler) RegisterRoutes(router chi.Router) {
	router.Route("/elections/{electionID}/votes", func(r chi.Router) {
		r.Use(RequireAuth)
		r.Post("/", h.CastVote)
		r.Delete("/", h.RevokeVote)
	})
}

type castVoteRequest struct {
	CandidateID string `json:"candidate_id"`
}

type castVoteResponse struct {
	VoteID string `json:"vote_id"`
}

func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := SessionFromContext(ctx)

	if !actor.Role.Can(models.CapCastVote) {
		respondWithError(w, http.StatusForbidden, service.ErrPermissionDenied, "Role may not vote")
		return
	}

	electionID, err := uuid.Parse(chi.URLParam(r, "electionID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid election ID")
		return
	}

	var req castVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}
	candidateID, err := uuid.Parse(req.CandidateID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid candidate ID")
		return
	}

	voteID, err := h.votingService.CastVote(ctx, service.CastVoteRequest{
		VoterID:     actor.UserID,
		CandidateID: candidateID,
		ElectionID:  electionID,
		Meta:        requestMeta(r),
	})
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Vote not admitted")
		return
	}

	respondWithJSON(w, http.StatusCreated, successResponse(castVoteResponse{
		VoteID: voteID.String(),
	}, "Vote cast"))
}

func (h *VoteHandler) RevokeVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := SessionFromContext(ctx)

	electionID, err := uuid.Parse(chi.URLParam(r, "electionID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid election ID")
		return
	}

	if err := h.votingService.RevokeVote(ctx, actor.UserID, electionID, requestMeta(r)); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to revoke vote")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Vote revoked"))
}
