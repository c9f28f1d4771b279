package models

// NodeStatus tracks a graph node through its confirmation lifecycle.
type NodeStatus string

const (
	StatusPending   NodeStatus = "pending"
	StatusConfirmed NodeStatus = "confirmed"
	StatusFinalized NodeStatus = "finalized"
	StatusRejected  NodeStatus = "rejected"
)

// QuantumProof carries the prime hash of a transaction id and the
// resistance score claimed for it. Attached at creation, never mutated.
type QuantumProof struct {
	PrimeHash       []byte  `json:"prime_hash"`
	ResistanceScore float64 `json:"resistance_score"` // 0..100
	Timestamp       int64   `json:"timestamp"`
}

// Transaction is immutable once created.
type Transaction struct {
	ID           string       `json:"id"` // uuid
	Sender       []byte       `json:"sender"`
	Receiver     []byte       `json:"receiver"`
	Amount       uint64       `json:"amount"`
	Nonce        uint64       `json:"nonce"`
	Timestamp    int64        `json:"timestamp"` // unix seconds
	Parents      []string     `json:"parents"`
	Signature    []byte       `json:"signature"`
	QuantumProof QuantumProof `json:"quantum_proof"`
	Metadata     []byte       `json:"metadata,omitempty"`
}

// GraphNode wraps a transaction inside the DAG with its derived state.
// Weight is computed once at insertion; confidence is recomputed repeatedly.
type GraphNode struct {
	Transaction  *Transaction `json:"transaction"`
	Children     []string     `json:"children"`
	Weight       int64        `json:"weight"`
	Confidence   float64      `json:"confidence"` // 0..1
	Status       NodeStatus   `json:"status"`
	QuantumScore float64      `json:"quantum_score"`
}

// DagStats is a read-only snapshot of the graph shape.
type DagStats struct {
	NodeCount       int     `json:"node_count"`
	MaxDepth        int     `json:"max_depth"`
	TipCount        int     `json:"tip_count"`
	AvgBranchFactor float64 `json:"avg_branch_factor"`
}

// TransactionFilter narrows repository scans. Zero values match everything.
type TransactionFilter struct {
	Status    NodeStatus `json:"status,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	MinAmount uint64     `json:"min_amount,omitempty"`
}
