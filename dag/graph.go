package dag

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"primedag/logger"
	"primedag/models"
	"primedag/prime"
	"primedag/repository"
)

var (
	ErrTransactionExists      = errors.New("transaction already exists")
	ErrParentNotFound         = errors.New("parent transaction not found")
	ErrInvalidTimestamp       = errors.New("transaction timestamp too far in the future")
	ErrInsufficientResistance = errors.New("quantum resistance score below minimum")
)

const (
	// maxClockDrift bounds how far in the future a timestamp may sit.
	maxClockDrift = 5 * time.Minute
	// minResistanceScore is the admission floor for quantum proofs.
	minResistanceScore = 50.0
	parentWeightFactor = 10
	confirmThreshold   = 0.8
)

// Graph holds the transaction DAG: nodes, the live tip set, and derived
// weights and confidences. A single RWMutex serializes inserts and
// confidence updates against concurrent readers.
type Graph struct {
	mu        sync.RWMutex
	prime     *prime.Engine
	store     repository.Store
	nodes     map[string]*models.GraphNode
	tips      map[string]struct{}
	genesisID string
	txCount   uint64
	rng       *rand.Rand

	updates chan statusUpdate
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewGraph builds a graph holding only the finalized genesis node.
// The store is optional; when nil the graph is purely in-memory.
func NewGraph(pe *prime.Engine, store repository.Store) *Graph {
	g := &Graph{
		prime:   pe,
		store:   store,
		nodes:   make(map[string]*models.GraphNode),
		tips:    make(map[string]struct{}),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		updates: make(chan statusUpdate, statusQueueSize),
		done:    make(chan struct{}),
	}

	genesisID := uuid.Nil.String()
	genesisTx := &models.Transaction{
		ID:        genesisID,
		Timestamp: time.Now().Unix(),
		QuantumProof: models.QuantumProof{
			PrimeHash:       pe.PrimeHash([]byte(genesisID)),
			ResistanceScore: 100,
			Timestamp:       time.Now().Unix(),
		},
	}
	g.nodes[genesisID] = &models.GraphNode{
		Transaction:  genesisTx,
		Children:     []string{},
		Weight:       1,
		Confidence:   1.0,
		Status:       models.StatusFinalized,
		QuantumScore: 100,
	}
	g.genesisID = genesisID
	g.txCount = 1

	g.wg.Add(1)
	go g.persistLoop()
	return g
}

// GenesisID returns the id of the graph's single genesis node.
func (g *Graph) GenesisID() string {
	return g.genesisID
}

// AddTransaction validates and inserts a transaction. Any rejection is
// returned before graph state or the tip set is touched.
func (g *Graph) AddTransaction(tx *models.Transaction) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[tx.ID]; ok {
		return ErrTransactionExists
	}
	for _, pid := range tx.Parents {
		if _, ok := g.nodes[pid]; !ok {
			return fmt.Errorf("%w: %s", ErrParentNotFound, pid)
		}
	}
	if tx.Timestamp > time.Now().Add(maxClockDrift).Unix() {
		return ErrInvalidTimestamp
	}
	if tx.QuantumProof.ResistanceScore < minResistanceScore {
		return ErrInsufficientResistance
	}

	clone := cloneTransaction(tx)
	node := &models.GraphNode{
		Transaction:  clone,
		Children:     []string{},
		Weight:       insertionWeight(clone),
		Confidence:   0,
		Status:       models.StatusPending,
		QuantumScore: clone.QuantumProof.ResistanceScore,
	}

	if g.store != nil {
		if err := g.store.StoreTransaction(clone); err != nil {
			return fmt.Errorf("store transaction: %w", err)
		}
		if err := g.store.StoreDagNode(node); err != nil {
			return fmt.Errorf("store dag node: %w", err)
		}
	}

	g.nodes[clone.ID] = node
	for _, pid := range clone.Parents {
		parent := g.nodes[pid]
		parent.Children = append(parent.Children, clone.ID)
		delete(g.tips, pid)
	}
	g.tips[clone.ID] = struct{}{}
	g.txCount++

	logger.Logger.Debug("transaction inserted",
		zap.String("tx_id", clone.ID),
		zap.Int("parents", len(clone.Parents)),
		zap.Int64("weight", node.Weight))
	return nil
}

// insertionWeight combines the proof's resistance score, a per-parent
// bonus, and the transaction's age in seconds. Older transactions carry
// more weight.
func insertionWeight(tx *models.Transaction) int64 {
	age := time.Now().Unix() - tx.Timestamp
	if age < 0 {
		age = 0
	}
	return int64(tx.QuantumProof.ResistanceScore) +
		parentWeightFactor*int64(len(tx.Parents)) +
		age
}

// GetTransaction returns a copy of the transaction, falling back to the
// persistence collaborator when it is not in memory.
func (g *Graph) GetTransaction(id string) (*models.Transaction, error) {
	g.mu.RLock()
	node, ok := g.nodes[id]
	g.mu.RUnlock()
	if ok {
		return cloneTransaction(node.Transaction), nil
	}
	if g.store != nil {
		return g.store.GetTransaction(id)
	}
	return nil, repository.ErrNotFound
}

// GetNode returns a copy of the graph node for the given transaction id.
func (g *Graph) GetNode(id string) (*models.GraphNode, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	node, ok := g.nodes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneNode(node), nil
}

// GetTips returns the ids of the live tip set.
func (g *Graph) GetTips() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	tips := make([]string, 0, len(g.tips))
	for id := range g.tips {
		tips = append(tips, id)
	}
	return tips
}

// SelectParents picks up to count tip ids at random, biased by node
// weight. When the tip set is empty it falls back to the genesis id.
func (g *Graph) SelectParents(count int) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.tips) == 0 {
		return []string{g.genesisID}
	}

	candidates := make([]string, 0, len(g.tips))
	weights := make([]float64, 0, len(g.tips))
	for id := range g.tips {
		candidates = append(candidates, id)
		weights = append(weights, float64(g.nodes[id].Weight))
	}

	if count > len(candidates) {
		count = len(candidates)
	}
	selected := make([]string, 0, count)
	for len(selected) < count {
		var total float64
		for _, w := range weights {
			total += w
		}
		idx := 0
		if total > 0 {
			p := g.rng.Float64() * total
			acc := 0.0
			for i, w := range weights {
				acc += w
				if p <= acc {
					idx = i
					break
				}
			}
		} else {
			idx = g.rng.Intn(len(candidates))
		}
		selected = append(selected, candidates[idx])
		candidates = append(candidates[:idx], candidates[idx+1:]...)
		weights = append(weights[:idx], weights[idx+1:]...)
	}
	return selected
}

// TransactionCount reports the number of nodes including genesis.
func (g *Graph) TransactionCount() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.txCount
}

// GetPendingTransactions returns copies of all transactions whose nodes
// are still pending.
func (g *Graph) GetPendingTransactions() []*models.Transaction {
	return g.transactionsByStatus(models.StatusPending)
}

// GetConfirmedTransactions returns copies of all confirmed transactions.
func (g *Graph) GetConfirmedTransactions() []*models.Transaction {
	return g.transactionsByStatus(models.StatusConfirmed)
}

func (g *Graph) transactionsByStatus(status models.NodeStatus) []*models.Transaction {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var txs []*models.Transaction
	for _, node := range g.nodes {
		if node.Status == status {
			txs = append(txs, cloneTransaction(node.Transaction))
		}
	}
	return txs
}

// GetStorageSize reports the persistence collaborator's total size, or
// zero when the graph is purely in-memory.
func (g *Graph) GetStorageSize() (uint64, error) {
	if g.store == nil {
		return 0, nil
	}
	return g.store.GetStorageSize()
}

func cloneTransaction(tx *models.Transaction) *models.Transaction {
	clone := *tx
	clone.Parents = append([]string(nil), tx.Parents...)
	clone.Sender = append([]byte(nil), tx.Sender...)
	clone.Receiver = append([]byte(nil), tx.Receiver...)
	clone.Signature = append([]byte(nil), tx.Signature...)
	clone.Metadata = append([]byte(nil), tx.Metadata...)
	clone.QuantumProof.PrimeHash = append([]byte(nil), tx.QuantumProof.PrimeHash...)
	return &clone
}

func cloneNode(node *models.GraphNode) *models.GraphNode {
	clone := *node
	clone.Transaction = cloneTransaction(node.Transaction)
	clone.Children = append([]string(nil), node.Children...)
	return &clone
}
