package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Clark-Hu/imdb-ratings/internal/domain"
	"github.com/Clark-Hu/imdb-ratings/internal/lookup"
)

const (
	msgMethodNotAllowed = "Method not allowed"
	msgInvalidID        = "Invalid IMDb ID format. Expected format: tt1234567"
	msgNotFound         = "IMDb ID not found"
	msgInternal         = "Internal server error"
)

// RatingLookup is implemented by *lookup.Service.
type RatingLookup interface {
	Get(ctx context.Context, id string) (domain.Rating, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

type ratingResponse struct {
	IMDbID    string    `json:"imdbId"`
	Rating    float64   `json:"rating"`
	NumVotes  int64     `json:"numVotes"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s *Server) handleGetRating(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("imdbId")

	rating, err := s.ratings.Get(r.Context(), id)
	switch {
	case err == nil:
		s.metrics.LookupResults.WithLabelValues("ok").Inc()
		s.respondJSON(w, http.StatusOK, ratingResponse{
			IMDbID:    rating.ID,
			Rating:    rating.Rating,
			NumVotes:  rating.Votes,
			UpdatedAt: rating.UpdatedAt,
		})
	case errors.Is(err, lookup.ErrInvalidInput):
		s.metrics.LookupResults.WithLabelValues("invalid").Inc()
		s.respondError(w, http.StatusBadRequest, msgInvalidID)
	case errors.Is(err, lookup.ErrNotFound):
		s.metrics.LookupResults.WithLabelValues("not_found").Inc()
		s.respondError(w, http.StatusNotFound, msgNotFound)
	default:
		s.metrics.LookupResults.WithLabelValues("error").Inc()
		s.logger.Printf("rating lookup failed for %q: %v", id, err)
		s.respondError(w, http.StatusInternalServerError, msgInternal)
	}
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Printf("failed to encode response: %v", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorResponse{Error: message})
}
