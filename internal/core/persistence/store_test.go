package persistence

import (
	"context"
	"encoding/json"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chainwatch/internal/config"
	"chainwatch/internal/core/db"
	"chainwatch/internal/logger"
	"chainwatch/internal/types"
)

func migrationsPath(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	log, err := logger.NewLogger(logger.WithLevel("error"))
	require.NoError(t, err)

	cfg := config.PersistenceConfig{
		DSN:            testDSN(t),
		MigrationsPath: migrationsPath(t),
	}
	database, err := db.New(cfg, log)
	require.NoError(t, err)
	require.NoError(t, database.Migrate())

	t.Cleanup(func() { database.Close() })
	return database
}

func testDSN(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.WithLevel("error"))
	require.NoError(t, err)
	return log
}

func TestStore_EnqueueAndFlushPersistsRow(t *testing.T) {
	database := newTestDB(t)
	s := New(database, config.PersistenceConfig{BatchSize: 100, BatchIntervalMillis: 500}, testLogger(t))
	defer s.Close(context.Background())

	row := types.ContractRow{
		Network:         "ethereum",
		ContractAddress: "0xabc",
		DeployerAddress: "0xdeployer",
		BlockNumber:     10,
		TransactionHash: "0xhash",
		ContractType:    types.ContractTypeERC20,
		ContractInfo:    json.RawMessage(`{}`),
		DeploymentType:  types.DeploymentKindDirect,
		Timestamp:       time.Now(),
	}

	require.NoError(t, s.Enqueue(context.Background(), row))
	count, err := s.Flush(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)

	var stored string
	err = database.Conn().QueryRow(
		"SELECT contract_address FROM contracts WHERE network = ? AND contract_address = ?",
		"ethereum", "0xabc",
	).Scan(&stored)
	require.NoError(t, err)
	require.Equal(t, "0xabc", stored)
}

func TestStore_ReenqueueSameKeyIsIdempotent(t *testing.T) {
	database := newTestDB(t)
	s := New(database, config.PersistenceConfig{BatchSize: 100, BatchIntervalMillis: 500}, testLogger(t))
	defer s.Close(context.Background())

	row := types.ContractRow{
		Network: "ethereum", ContractAddress: "0xabc", DeployerAddress: "0xd",
		BlockNumber: 1, TransactionHash: "0xh", ContractType: types.ContractTypeERC20,
		ContractInfo: json.RawMessage(`{}`), DeploymentType: types.DeploymentKindDirect, Timestamp: time.Now(),
	}

	require.NoError(t, s.Enqueue(context.Background(), row))
	require.NoError(t, s.Enqueue(context.Background(), row))
	_, err := s.Flush(context.Background())
	require.NoError(t, err)

	var count int
	err = database.Conn().QueryRow("SELECT COUNT(*) FROM contracts WHERE network = ? AND contract_address = ?", "ethereum", "0xabc").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestStore_AdvanceCursorThenReadBack(t *testing.T) {
	database := newTestDB(t)
	s := New(database, config.PersistenceConfig{BatchSize: 100, BatchIntervalMillis: 500}, testLogger(t))
	defer s.Close(context.Background())

	_, found, err := s.ReadCursor(context.Background(), "ethereum")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, s.AdvanceCursor(context.Background(), "ethereum", 42))
	_, err = s.Flush(context.Background())
	require.NoError(t, err)

	height, found, err := s.ReadCursor(context.Background(), "ethereum")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(42), height)
}

func TestStore_CloseDrainsQueue(t *testing.T) {
	database := newTestDB(t)
	s := New(database, config.PersistenceConfig{BatchSize: 100, BatchIntervalMillis: 500}, testLogger(t))

	row := types.ContractRow{
		Network: "ethereum", ContractAddress: "0xdef", DeployerAddress: "0xd",
		BlockNumber: 1, TransactionHash: "0xh", ContractType: types.ContractTypeERC20,
		ContractInfo: json.RawMessage(`{}`), DeploymentType: types.DeploymentKindDirect, Timestamp: time.Now(),
	}
	require.NoError(t, s.Enqueue(context.Background(), row))
	require.NoError(t, s.Close(context.Background()))

	var count int
	err := database.Conn().QueryRow("SELECT COUNT(*) FROM contracts WHERE contract_address = ?", "0xdef").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
