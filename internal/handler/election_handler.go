package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"voting-service/internal/models"
	"voting-service/internal/service"
)

// ElectionHandler handles election setup and results.
type ElectionHandler struct {
	electionService *service.ElectionService
	votingService   *service.VotingService
}

func NewElectionHandler(electionService *service.ElectionService, votingService *service.VotingService) *ElectionHandler {
	return &ElectionHandler{
		electionService: electionService,
		votingService:   votingService,
	}
}

func (h *ElectionHandler) RegisterRoutes(router chi.Router) {
	router.Route("/elections", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)
			r.Post("/", h.CreateElection)
			r.Post("/{electionID}/candidates", h.AddCandidate)
			r.Post("/{electionID}/close", h.CloseElection)
		})
		r.Get("/", h.ListElections)
		r.Get("/{electionID}", h.GetElection)
		r.Get("/{electionID}/results", h.Results)
	})
}

func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := SessionFromContext(ctx)

	var req service.CreateElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	election, err := h.electionService.CreateElection(ctx, actor, req, requestMeta(r))
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to create election")
		return
	}

	respondWithJSON(w, http.StatusCreated, successResponse(election, "Election created"))
}

type addCandidateRequest struct {
	Name string `json:"name"`
}

func (h *ElectionHandler) AddCandidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := SessionFromContext(ctx)

	electionID, err := uuid.Parse(chi.URLParam(r, "electionID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid election ID")
		return
	}

	var req addCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid request body")
		return
	}

	candidate, err := h.electionService.AddCandidate(ctx, actor, electionID, req.Name)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to add candidate")
		return
	}

	respondWithJSON(w, http.StatusCreated, successResponse(candidate, "Candidate added"))
}

func (h *ElectionHandler) CloseElection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := SessionFromContext(ctx)

	electionID, err := uuid.Parse(chi.URLParam(r, "electionID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid election ID")
		return
	}

	if err := h.electionService.CloseElection(ctx, actor, electionID); err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to close election")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(nil, "Election closed"))
}

func (h *ElectionHandler) ListElections(w http.ResponseWriter, r *http.Request) {
	elections, err := h.electionService.ListElections(r.Context())
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to list elections")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(elections, ""))
}

type electionResponse struct {
	Election   *models.Election    `json:"election"`
	Candidates []*models.Candidate `json:"candidates"`
}

func (h *ElectionHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	electionID, err := uuid.Parse(chi.URLParam(r, "electionID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid election ID")
		return
	}

	election, candidates, err := h.electionService.GetElection(ctx, electionID)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to get election")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(electionResponse{
		Election:   election,
		Candidates: candidates,
	}, ""))
}

func (h *ElectionHandler) Results(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	electionID, err := uuid.Parse(chi.URLParam(r, "electionID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err, "Invalid election ID")
		return
	}

	summary, err := h.votingService.Results(ctx, electionID)
	if err != nil {
		respondWithError(w, getStatusCode(err), err, "Failed to compute results")
		return
	}

	respondWithJSON(w, http.StatusOK, successResponse(summary, ""))
}
