package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"primedag/consensus"
	"primedag/logger"
)

// StartConsensus launches the engine's round loop
func (h *Handler) StartConsensus(w http.ResponseWriter, r *http.Request) {
	h.Engine.Start()
	respondJSON(w, http.StatusOK, map[string]string{"message": "Consensus engine started"})
}

// StopConsensus stops the round loop after the in-flight round completes
func (h *Handler) StopConsensus(w http.ResponseWriter, r *http.Request) {
	h.Engine.Stop()
	respondJSON(w, http.StatusOK, map[string]string{"message": "Consensus engine stopped"})
}

// RunRound executes a single consensus round with the given number
func (h *Handler) RunRound(w http.ResponseWriter, r *http.Request) {
	round, err := strconv.ParseUint(mux.Vars(r)["number"], 10, 64)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": "round number must be a non-negative integer",
		})
		return
	}

	record, err := h.Engine.RunConsensusRound(round)
	if err != nil {
		logger.Logger.Error("Manual consensus round failed",
			zap.Uint64("round", round), zap.Error(err))
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// CheckFork runs fork detection over the last three rounds
func (h *Handler) CheckFork(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]bool{
		"fork_detected": h.Engine.HandleFork(),
	})
}

// GetConsensusState returns the engine's aggregate state snapshot
func (h *Handler) GetConsensusState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Engine.GetConsensusState())
}

// GetConsensusStats returns derived consensus statistics
func (h *Handler) GetConsensusStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Engine.GetConsensusStats())
}

// GetValidators lists all validators
func (h *Handler) GetValidators(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"validators": h.Engine.GetValidators(),
	})
}

// GetValidator returns a single validator by id
func (h *Handler) GetValidator(w http.ResponseWriter, r *http.Request) {
	v, err := h.Engine.GetValidator(mux.Vars(r)["id"])
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, consensus.ErrValidatorNotFound) {
			status = http.StatusNotFound
		}
		respondError(w, status, err)
		return
	}
	respondJSON(w, http.StatusOK, v)
}

// UpdateReputation applies a reputation delta to a validator
func (h *Handler) UpdateReputation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Delta float64 `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid request payload",
		})
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.Engine.UpdateValidatorReputation(id, body.Delta); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, consensus.ErrValidatorNotFound) {
			status = http.StatusNotFound
		}
		respondError(w, status, err)
		return
	}

	logger.Logger.Info("Validator reputation updated",
		zap.String("validator", id), zap.Float64("delta", body.Delta))
	respondJSON(w, http.StatusOK, map[string]string{"message": "Reputation updated"})
}
