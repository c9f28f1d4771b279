package routers

import (
	"primedag/handlers"

	"github.com/gorilla/mux"
)

// RegisterRoutes sets up all the HTTP routes for the DAG and consensus API
func RegisterRoutes(r *mux.Router, h *handlers.Handler) {

	// Submits a pre-signed transaction into the DAG
	r.HandleFunc("/transactions", h.SubmitTransaction).Methods("POST")

	// Retrieves a transaction by id
	r.HandleFunc("/transactions/{id}", h.GetTransaction).Methods("GET")

	// Lists transactions still awaiting confirmation
	r.HandleFunc("/transactions/status/pending", h.GetPendingTransactions).Methods("GET")

	// Lists transactions promoted past the confidence threshold
	r.HandleFunc("/transactions/status/confirmed", h.GetConfirmedTransactions).Methods("GET")

	// Returns the live tip set
	r.HandleFunc("/tips", h.GetTips).Methods("GET")

	// Weighted-random parent candidates for a new transaction
	r.HandleFunc("/tips/select", h.SelectParents).Methods("GET")

	// Graph shape: node count, depth, tips, branching factor
	r.HandleFunc("/dag/stats", h.GetDagStats).Methods("GET")

	// Total bytes held by the persistence collaborator
	r.HandleFunc("/storage/size", h.GetStorageSize).Methods("GET")

	// Consensus engine lifecycle and manual round execution
	r.HandleFunc("/consensus/start", h.StartConsensus).Methods("POST")
	r.HandleFunc("/consensus/stop", h.StopConsensus).Methods("POST")
	r.HandleFunc("/consensus/rounds/{number}", h.RunRound).Methods("POST")
	r.HandleFunc("/consensus/fork-check", h.CheckFork).Methods("POST")
	r.HandleFunc("/consensus/state", h.GetConsensusState).Methods("GET")
	r.HandleFunc("/consensus/stats", h.GetConsensusStats).Methods("GET")

	// Validator registry
	r.HandleFunc("/validators", h.GetValidators).Methods("GET")
	r.HandleFunc("/validators/{id}", h.GetValidator).Methods("GET")
	r.HandleFunc("/validators/{id}/reputation", h.UpdateReputation).Methods("PUT")
}
