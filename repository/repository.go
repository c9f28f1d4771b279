package repository

import (
	"encoding/json"
	"errors"

	"github.com/syndtr/goleveldb/leveldb"

	"primedag/db"
	"primedag/models"
)

// ErrNotFound reports a missing transaction or node.
var ErrNotFound = errors.New("not found")

const (
	txPrefix   = "tx:"
	nodePrefix = "node:"
)

// Store abstracts the persistence collaborator from the graph and
// consensus logic.
type Store interface {
	StoreTransaction(tx *models.Transaction) error
	StoreDagNode(node *models.GraphNode) error
	GetTransaction(id string) (*models.Transaction, error)
	GetTransactions(filter models.TransactionFilter) ([]*models.Transaction, error)
	GetDagNode(id string) (*models.GraphNode, error)
	UpdateNodeStatus(id string, status models.NodeStatus, confidence float64) error
	GetTransactionCount() (uint64, error)
	GetStorageSize() (uint64, error)
}

// LevelDBStore implements Store on LevelDB with JSON-encoded values.
// Transactions and graph nodes live under separate key prefixes.
type LevelDBStore struct {
	db *db.LevelDB
}

// NewLevelDBStore creates and returns a new LevelDBStore instance
func NewLevelDBStore(db *db.LevelDB) *LevelDBStore {
	return &LevelDBStore{db: db}
}

// StoreTransaction persists a transaction under its id
func (s *LevelDBStore) StoreTransaction(tx *models.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(txPrefix+tx.ID), data)
}

// StoreDagNode persists a graph node under its transaction id
func (s *LevelDBStore) StoreDagNode(node *models.GraphNode) error {
	data, err := json.Marshal(node)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(nodePrefix+node.Transaction.ID), data)
}

// GetTransaction retrieves a transaction by id
func (s *LevelDBStore) GetTransaction(id string) (*models.Transaction, error) {
	data, err := s.db.Get([]byte(txPrefix + id))
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var tx models.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetTransactions scans stored transactions, applying the filter's
// amount bound and result limit. Status filtering is resolved against
// the stored node, when one exists.
func (s *LevelDBStore) GetTransactions(filter models.TransactionFilter) ([]*models.Transaction, error) {
	iter := s.db.NewIterator([]byte(txPrefix))
	defer iter.Release()

	var txs []*models.Transaction
	for iter.Next() {
		var tx models.Transaction
		if err := json.Unmarshal(iter.Value(), &tx); err != nil {
			return nil, err
		}
		if tx.Amount < filter.MinAmount {
			continue
		}
		if filter.Status != "" {
			node, err := s.GetDagNode(tx.ID)
			if err != nil || node.Status != filter.Status {
				continue
			}
		}
		txs = append(txs, &tx)
		if filter.Limit > 0 && len(txs) >= filter.Limit {
			break
		}
	}
	return txs, iter.Error()
}

// GetDagNode retrieves a graph node by transaction id
func (s *LevelDBStore) GetDagNode(id string) (*models.GraphNode, error) {
	data, err := s.db.Get([]byte(nodePrefix + id))
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var node models.GraphNode
	if err := json.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

// UpdateNodeStatus rewrites a stored node with its new status and confidence
func (s *LevelDBStore) UpdateNodeStatus(id string, status models.NodeStatus, confidence float64) error {
	node, err := s.GetDagNode(id)
	if err != nil {
		return err
	}
	node.Status = status
	node.Confidence = confidence
	return s.StoreDagNode(node)
}

// GetTransactionCount counts stored transactions
func (s *LevelDBStore) GetTransactionCount() (uint64, error) {
	iter := s.db.NewIterator([]byte(txPrefix))
	defer iter.Release()

	var count uint64
	for iter.Next() {
		count++
	}
	return count, iter.Error()
}

// GetStorageSize sums the byte size of all stored keys and values
func (s *LevelDBStore) GetStorageSize() (uint64, error) {
	iter := s.db.NewIterator(nil)
	defer iter.Release()

	var size uint64
	for iter.Next() {
		size += uint64(len(iter.Key()) + len(iter.Value()))
	}
	return size, iter.Error()
}
