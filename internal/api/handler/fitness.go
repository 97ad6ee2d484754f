package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/larsfl/trailside/internal/api/middleware"
	"github.com/larsfl/trailside/internal/api/request"
	"github.com/larsfl/trailside/internal/api/response"
	"github.com/larsfl/trailside/internal/core"
	"github.com/larsfl/trailside/internal/metrics"
)

// Fitness handles the fitness-tracker connect endpoints.
type Fitness struct {
	svc *core.FitnessService
}

func NewFitness(svc *core.FitnessService) *Fitness {
	return &Fitness{svc: svc}
}

// Connect godoc
//
//	@Summary		Start connecting a fitness-tracker account
//	@Description	Generates PKCE parameters, stores the code verifier server-side, and returns the provider authorization URL for the member's browser to follow.
//	@Tags			Fitness
//	@Security		BearerAuth
//	@Success		200 {object} map[string]string
//	@Failure		401 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/fitness/connect [post]
func (h *Fitness) Connect(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	redirectURL, err := h.svc.BeginConnect(r.Context(), userID)
	if err != nil {
		h.writeFlowError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]string{"redirect_url": redirectURL})
}

// Callback godoc
//
//	@Summary		Complete the fitness-tracker connect flow
//	@Description	Accepts the authorization code and state relayed by the frontend after the provider redirect, exchanges the code plus the stored verifier for tokens, and persists the connection. A provider error (denied consent) short-circuits to 400 and discards the pending flow. The verifier is consumed on first use; a replayed callback fails with 400.
//	@Tags			Fitness
//	@Security		BearerAuth
//	@Param			body body request.CompleteFitnessConnect true "Callback parameters"
//	@Success		200 {object} model.FitnessConnection
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		401 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/fitness/callback [post]
func (h *Fitness) Callback(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req request.CompleteFitnessConnect
	if err := request.Decode(r, &req); err != nil {
		metrics.ConnectOutcomes.WithLabelValues("missing_params").Inc()
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The provider redirected with an error (e.g. the member denied
	// consent): no exchange happens, the pending verifier is discarded.
	if req.Error != "" {
		if err := h.svc.AbortConnect(r.Context(), userID, req.State, req.Error); err != nil {
			h.writeFlowError(w, r, err)
			return
		}
		metrics.ConnectOutcomes.WithLabelValues("provider_denied").Inc()
		response.WriteError(w, http.StatusBadRequest, "the provider reported an error, restart the connect flow")
		return
	}

	result, err := h.svc.CompleteConnect(r.Context(), userID, req.Code, req.State)
	if err != nil {
		h.writeFlowError(w, r, err)
		return
	}

	metrics.ConnectOutcomes.WithLabelValues("connected").Inc()
	response.WriteJSON(w, http.StatusOK, result.Connection)
}

// Connection godoc
//
//	@Summary		Get the active fitness-tracker connection
//	@Description	Returns the member's active connection with credential fields redacted, or 404 when none exists.
//	@Tags			Fitness
//	@Security		BearerAuth
//	@Success		200 {object} model.FitnessConnection
//	@Failure		401 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/fitness/connection [get]
func (h *Fitness) Connection(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		response.WriteError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	conn, err := h.svc.GetActiveConnection(r.Context(), userID)
	if err != nil {
		h.writeFlowError(w, r, err)
		return
	}
	if conn == nil {
		response.WriteError(w, http.StatusNotFound, "no active connection")
		return
	}

	response.WriteJSON(w, http.StatusOK, conn)
}

// Disconnect godoc
//
//	@Summary		Disconnect the fitness-tracker account
//	@Description	Best-effort revokes the token with the provider, then deactivates the local connection. Idempotent: disconnecting with no active connection succeeds.
//	@Tags			Fitness
//	@Security		BearerAuth
//	@Success		204
//	@Failure		401 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/fitness/connection [delete]
func (h *Fitness) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	if err := h.svc.Disconnect(r.Context(), userID); err != nil {
		h.writeFlowError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeFlowError maps flow failures to stable user-facing messages. The
// detailed cause, including any provider error body, goes to the log only.
func (h *Fitness) writeFlowError(w http.ResponseWriter, r *http.Request, err error) {
	logger := zerolog.Ctx(r.Context())

	switch {
	case errors.Is(err, core.ErrUnauthenticated):
		metrics.ConnectOutcomes.WithLabelValues("unauthenticated").Inc()
		response.WriteError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, core.ErrMissingParameters):
		metrics.ConnectOutcomes.WithLabelValues("missing_params").Inc()
		logger.Warn().Err(err).Msg("fitness connect callback missing parameters")
		response.WriteError(w, http.StatusBadRequest, "missing or expired authorization, restart the connect flow")
	case errors.Is(err, core.ErrTokenExchangeRejected):
		metrics.ConnectOutcomes.WithLabelValues("exchange_rejected").Inc()
		logger.Warn().Err(err).Msg("fitness provider rejected the authorization")
		response.WriteError(w, http.StatusBadRequest, "the provider rejected the authorization, restart the connect flow")
	case errors.Is(err, core.ErrPersistenceFailure):
		metrics.ConnectOutcomes.WithLabelValues("persistence_failure").Inc()
		logger.Error().Err(err).Msg("fitness connection write failed")
		response.WriteError(w, http.StatusInternalServerError, "could not save the connection, try again")
	default:
		metrics.ConnectOutcomes.WithLabelValues("internal_error").Inc()
		logger.Error().Err(err).Msg("fitness connect flow failed")
		response.WriteError(w, http.StatusInternalServerError, "unexpected error, try again")
	}
}
