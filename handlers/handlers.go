package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"primedag/consensus"
	"primedag/dag"
	"primedag/logger"
	"primedag/models"
	"primedag/prime"
	"primedag/repository"
)

// Handler contains the HTTP handlers for the DAG and consensus API endpoints
type Handler struct {
	Graph  *dag.Graph
	Engine *consensus.Engine
	Prime  *prime.Engine
}

// NewHandler creates and returns a new Handler instance
func NewHandler(g *dag.Graph, e *consensus.Engine, pe *prime.Engine) *Handler {
	return &Handler{Graph: g, Engine: e, Prime: pe}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

// SubmitTransaction handles POST requests to add a transaction to the DAG.
// The transaction is checked against the prime layer before insertion and
// a confidence pass runs after a successful insert.
func (h *Handler) SubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var tx models.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		logger.Logger.Error("Failed to decode transaction", zap.Error(err))
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Invalid request payload",
		})
		return
	}

	if err := h.Prime.ValidateTransaction(&tx); err != nil {
		logger.Logger.Error("Transaction failed prime validation",
			zap.String("tx_id", tx.ID), zap.Error(err))
		respondError(w, http.StatusUnprocessableEntity, err)
		return
	}

	if err := h.Graph.AddTransaction(&tx); err != nil {
		logger.Logger.Error("Failed to add transaction",
			zap.String("tx_id", tx.ID), zap.Error(err))
		status := http.StatusBadRequest
		if errors.Is(err, dag.ErrTransactionExists) {
			status = http.StatusConflict
		}
		respondError(w, status, err)
		return
	}

	h.Graph.UpdateConfidenceScores()

	logger.Logger.Info("Transaction accepted",
		zap.String("tx_id", tx.ID), zap.Strings("parents", tx.Parents))
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "Transaction accepted",
		"transaction": tx,
	})
}

// GetTransaction handles GET requests for a single transaction by id
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	tx, err := h.Graph.GetTransaction(id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repository.ErrNotFound) {
			status = http.StatusNotFound
		}
		respondError(w, status, err)
		return
	}
	respondJSON(w, http.StatusOK, tx)
}

// GetPendingTransactions returns all transactions still pending
func (h *Handler) GetPendingTransactions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": h.Graph.GetPendingTransactions(),
	})
}

// GetConfirmedTransactions returns all confirmed transactions
func (h *Handler) GetConfirmedTransactions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": h.Graph.GetConfirmedTransactions(),
	})
}

// GetTips handles GET requests for the live tip set
func (h *Handler) GetTips(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tips": h.Graph.GetTips(),
	})
}

// SelectParents returns up to count weighted-random parent candidates
func (h *Handler) SelectParents(w http.ResponseWriter, r *http.Request) {
	count := 2
	if raw := r.URL.Query().Get("count"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondJSON(w, http.StatusBadRequest, map[string]string{
				"error": "count must be a positive integer",
			})
			return
		}
		count = parsed
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"parents": h.Graph.SelectParents(count),
	})
}

// GetDagStats returns the current shape of the graph
func (h *Handler) GetDagStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Graph.GetDagStats())
}

// GetStorageSize reports the persistence collaborator's total size
func (h *Handler) GetStorageSize(w http.ResponseWriter, r *http.Request) {
	size, err := h.Graph.GetStorageSize()
	if err != nil {
		logger.Logger.Error("Failed to read storage size", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]uint64{"storage_size": size})
}
