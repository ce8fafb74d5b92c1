package participants

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/db/models"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/types"
)

func setupParticipantsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Participant{}))
	return db
}

func TestEnsureByAddressIsIdempotent(t *testing.T) {
	db := setupParticipantsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	first, err := repo.EnsureByAddress(ctx, "0xaaa")
	require.NoError(t, err)
	second, err := repo.EnsureByAddress(ctx, "0xaaa")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRunningTotals(t *testing.T) {
	db := setupParticipantsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.AddAmountPaid(ctx, "0xaaa", types.MustAmount("600")))
	require.NoError(t, repo.AddAmountPaid(ctx, "0xaaa", types.MustAmount("400")))
	require.NoError(t, repo.AddAmountReceived(ctx, "0xbbb", types.MustAmount("1000")))
	require.NoError(t, repo.IncrementGroupsCreated(ctx, "0xaaa"))
	require.NoError(t, repo.IncrementGroupsJoined(ctx, "0xbbb"))

	sender, err := repo.GetByAddress(ctx, "0xaaa")
	require.NoError(t, err)
	assert.Equal(t, "1000", sender.TotalAmountPaid.String())
	assert.Equal(t, "0", sender.TotalAmountReceived.String())
	assert.Equal(t, 1, sender.TotalGroupsCreated)

	receiver, err := repo.GetByAddress(ctx, "0xbbb")
	require.NoError(t, err)
	assert.Equal(t, "1000", receiver.TotalAmountReceived.String())
	assert.Equal(t, 1, receiver.TotalGroupsJoined)
}

func TestResetTotals(t *testing.T) {
	db := setupParticipantsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.AddAmountPaid(ctx, "0xaaa", types.MustAmount("500")))
	require.NoError(t, repo.IncrementGroupsCreated(ctx, "0xaaa"))

	require.NoError(t, repo.ResetTotals(ctx))

	participant, err := repo.GetByAddress(ctx, "0xaaa")
	require.NoError(t, err)
	assert.True(t, participant.TotalAmountPaid.IsZero())
	assert.Equal(t, 0, participant.TotalGroupsCreated)
}
