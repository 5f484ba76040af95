package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zakimal/zero-chain-ui/internal/model"
	"github.com/zakimal/zero-chain-ui/pkg/database"
)

func exerciseRepository(t *testing.T, repo TransferRepository, prefix string) {
	ctx := context.Background()

	a := &model.Transfer{ID: prefix + "-a", Sender: prefix + "-alice", Recipient: "bob", Amount: 10, Status: model.TransferStatusPending}
	require.NoError(t, repo.Create(ctx, a))
	time.Sleep(5 * time.Millisecond)
	b := &model.Transfer{ID: prefix + "-b", Sender: prefix + "-carol", Recipient: "bob", Amount: 20, Status: model.TransferStatusPending}
	require.NoError(t, repo.Create(ctx, b))

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), got.Amount)
	assert.False(t, got.CreatedAt.IsZero())

	a.Status = model.TransferStatusFinalised
	a.Confirmations = 3
	a.Terminal = true
	require.NoError(t, repo.Update(ctx, a))
	got, err = repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransferStatusFinalised, got.Status)
	assert.True(t, got.Terminal)

	_, err = repo.Get(ctx, prefix+"-missing")
	assert.ErrorIs(t, err, ErrTransferNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &model.Transfer{ID: prefix + "-missing"}), ErrTransferNotFound)

	list, err := repo.List(ctx, ListFilter{Sender: prefix + "-alice"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	// 只删终态记录
	n, err := repo.DeleteTerminalBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))
	_, err = repo.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrTransferNotFound)
	_, err = repo.Get(ctx, b.ID)
	assert.NoError(t, err)
}

func TestMemoryTransferRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryTransferRepository(), "mem")
}

func TestMemoryListOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTransferRepository()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"t1", "t2", "t3"} {
		require.NoError(t, repo.Create(ctx, &model.Transfer{ID: id, CreatedAt: base.Add(time.Duration(i) * time.Second)}))
	}
	assert.Error(t, repo.Create(ctx, &model.Transfer{ID: "t1"}))

	list, err := repo.List(ctx, ListFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "t3", list[0].ID)
	assert.Equal(t, "t2", list[1].ID)
}

func TestMemoryDeleteKeepsRecent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTransferRepository()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Create(ctx, &model.Transfer{ID: "old", Terminal: true}))
	now = now.Add(time.Hour)
	require.NoError(t, repo.Create(ctx, &model.Transfer{ID: "recent", Terminal: true}))

	n, err := repo.DeleteTerminalBefore(ctx, now.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = repo.Get(ctx, "recent")
	assert.NoError(t, err)
}

// 需要本地 PostgreSQL: TEST_DB_DSN="host=localhost user=... dbname=... sslmode=disable"
func TestGormTransferRepository(t *testing.T) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	db, err := database.ConnectPostgres(dsn, false)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.AllModels()...))

	prefix := time.Now().Format("150405.000000")
	exerciseRepository(t, NewGormTransferRepository(db), prefix)
}
