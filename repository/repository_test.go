package repository_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"primedag/db"
	"primedag/models"
	"primedag/repository"
)

func testStore(t *testing.T) *repository.LevelDBStore {
	t.Helper()
	ldb, err := db.NewLevelDB(filepath.Join(t.TempDir(), "leveldb"))
	require.NoError(t, err)
	t.Cleanup(func() { ldb.Close() })
	return repository.NewLevelDBStore(ldb)
}

func testNode(id string, amount uint64) *models.GraphNode {
	return &models.GraphNode{
		Transaction: &models.Transaction{
			ID:     id,
			Amount: amount,
			QuantumProof: models.QuantumProof{
				ResistanceScore: 80,
			},
		},
		Children: []string{},
		Weight:   100,
		Status:   models.StatusPending,
	}
}

func TestStoreAndGetTransaction(t *testing.T) {
	store := testStore(t)

	node := testNode("tx-1", 42)
	require.NoError(t, store.StoreTransaction(node.Transaction))
	require.NoError(t, store.StoreDagNode(node))

	tx, err := store.GetTransaction("tx-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), tx.Amount)

	got, err := store.GetDagNode("tx-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Weight)

	_, err = store.GetTransaction("missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateNodeStatus(t *testing.T) {
	store := testStore(t)

	node := testNode("tx-1", 1)
	require.NoError(t, store.StoreDagNode(node))
	require.NoError(t, store.UpdateNodeStatus("tx-1", models.StatusConfirmed, 0.9))

	got, err := store.GetDagNode("tx-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Equal(t, 0.9, got.Confidence)

	assert.ErrorIs(t, store.UpdateNodeStatus("missing", models.StatusConfirmed, 1), repository.ErrNotFound)
}

func TestGetTransactionsFilter(t *testing.T) {
	store := testStore(t)

	for i, amount := range []uint64{5, 50, 500} {
		node := testNode(string(rune('a'+i)), amount)
		require.NoError(t, store.StoreTransaction(node.Transaction))
		require.NoError(t, store.StoreDagNode(node))
	}

	txs, err := store.GetTransactions(models.TransactionFilter{MinAmount: 50})
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	txs, err = store.GetTransactions(models.TransactionFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	count, err := store.GetTransactionCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	size, err := store.GetStorageSize()
	require.NoError(t, err)
	assert.Greater(t, size, uint64(0))
}
