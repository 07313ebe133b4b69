package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/safar/horeca-store/internal/catalog"
	"github.com/safar/horeca-store/internal/database"
	"github.com/safar/horeca-store/internal/pricing"
)

// ProblemDetail is an RFC7807 error body.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// errBadRequest marks client input that failed decoding or validation.
var errBadRequest = errors.New("bad request")

var validate = validator.New()

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func respondProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// decodeJSON reads the body into target and runs its validate tags.
func decodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("%w: invalid request body: %w", errBadRequest, err)
	}
	if err := validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return badRequest("field %s failed on %s", verrs[0].Namespace(), verrs[0].Tag())
		}
		return badRequest("%v", err)
	}
	return nil
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, pricing.ErrEmptyOrder),
		errors.Is(err, pricing.ErrInvalidQuantity),
		errors.Is(err, pricing.ErrInvalidDiscount),
		errors.Is(err, pricing.ErrTierOverlap):
		respondProblem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, database.ErrClientNotFound),
		errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrPriceLevelNotFound),
		errors.Is(err, database.ErrOrderNotFound),
		errors.Is(err, database.ErrZoneNotFound):
		respondProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, database.ErrOrderNotPending),
		errors.Is(err, database.ErrClientInactive),
		errors.Is(err, database.ErrDuplicateProduct),
		errors.Is(err, database.ErrDuplicateZone),
		errors.Is(err, database.ErrZoneInUse),
		errors.Is(err, database.ErrOptimisticLockFailed):
		respondProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, database.ErrLockTimeout):
		// the wrapped driver error stays in the logs
		respondProblem(w, http.StatusConflict, "Conflict", database.ErrLockTimeout.Error())
	case database.IsConstraintViolation(err):
		log.Warn().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("constraint violation")
		respondProblem(w, http.StatusConflict, "Conflict", "request conflicts with stored data")
	case errors.Is(err, catalog.ErrUnavailable):
		respondProblem(w, http.StatusServiceUnavailable, "Service Unavailable", err.Error())
	default:
		log.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		respondProblem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
