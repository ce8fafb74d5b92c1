package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/swiftpaylabs/swiftpay-backend/internal/groups"
	"github.com/swiftpaylabs/swiftpay-backend/internal/notify"
	"github.com/swiftpaylabs/swiftpay-backend/internal/participants"
	"github.com/swiftpaylabs/swiftpay-backend/internal/payments"
	"github.com/swiftpaylabs/swiftpay-backend/internal/updates"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/config"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/db"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/db/models"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/enums"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/logger"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/types"
)

func setupIngestService(t *testing.T) (Service, *gorm.DB, *notify.Broker) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.AutoMigrate(
		&models.Group{}, &models.GroupMember{}, &models.UpdateRequest{},
		&models.Payment{}, &models.ChainEvent{}, &models.Participant{},
		&models.EventDLQ{},
	))

	logg := logger.New(logger.Options{ServiceName: "ingest-test", Output: io.Discard})
	broker := notify.NewBroker(logg)

	svc, err := NewService(
		db.NewWithConn(gdb),
		NewRepository(gdb),
		NewDLQRepository(gdb),
		groups.NewRepository(gdb),
		updates.NewRepository(gdb),
		payments.NewRepository(gdb),
		participants.NewRepository(gdb),
		broker,
		nil,
		nil,
		config.EventingConfig{
			CASMaxRetries:     3,
			CASRetryBackoff:   time.Millisecond,
			OrphanMaxAttempts: 5,
			OrphanQueueCap:    32,
		},
		logg,
	)
	require.NoError(t, err)
	return svc, gdb, broker
}

func makeEvent(t *testing.T, eventType, txHash string, logIndex int, payload any) RawEvent {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return RawEvent{
		EventType:       eventType,
		ContractAddress: "0xCONTRACT",
		TransactionHash: txHash,
		BlockNumber:     100,
		LogIndex:        logIndex,
		EventData:       data,
	}
}

func groupCreatedEvent(t *testing.T, chainGroupID, txHash string) RawEvent {
	return makeEvent(t, string(enums.ChainEventGroupCreated), txHash, 0, GroupCreatedData{
		GroupID: chainGroupID,
		Name:    "roadtrip",
		Amount:  types.MustAmount("1000"),
		Creator: "0xalice",
		Members: types.MemberShares{
			{Addr: "0xalice", Percentage: 60},
			{Addr: "0xbob", Percentage: 40},
		},
	})
}

func drainMessages(sub *notify.Subscription) []notify.Message {
	var out []notify.Message
	for {
		select {
		case msg, ok := <-sub.C:
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func mustGroup(t *testing.T, gdb *gorm.DB, chainGroupID string) *models.Group {
	t.Helper()

	group, err := groups.NewRepository(gdb).GetByChainID(context.Background(), chainGroupID)
	require.NoError(t, err)
	return group
}

func TestIngestGroupCreatedAppliesMirror(t *testing.T) {
	svc, gdb, broker := setupIngestService(t)
	ctx := context.Background()
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub.ID)

	results, err := svc.IngestBatch(ctx, []RawEvent{groupCreatedEvent(t, "grp-1", "0xaa")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeApplied, results[0].Outcome)

	group := mustGroup(t, gdb, "grp-1")
	assert.Equal(t, "roadtrip", group.Name)
	assert.Equal(t, 2, group.MemberCount)
	assert.Len(t, group.Members, 2)
	assert.False(t, group.IsPaid)

	creator, err := participants.NewRepository(gdb).GetByAddress(ctx, "0xalice")
	require.NoError(t, err)
	assert.Equal(t, 1, creator.TotalGroupsCreated)
	assert.Equal(t, 1, creator.TotalGroupsJoined)

	msgs := drainMessages(sub)
	require.Len(t, msgs, 1)
	assert.Equal(t, enums.NotificationTypeGroupCreated, msgs[0].Type)
	assert.Equal(t, "grp-1", msgs[0].ChainGroupID)
}

func TestIngestSameEventTwiceIsDuplicate(t *testing.T) {
	svc, gdb, _ := setupIngestService(t)
	ctx := context.Background()
	evt := groupCreatedEvent(t, "grp-1", "0xaa")

	_, err := svc.IngestBatch(ctx, []RawEvent{evt})
	require.NoError(t, err)

	results, err := svc.IngestBatch(ctx, []RawEvent{evt})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, results[0].Outcome)

	creator, err := participants.NewRepository(gdb).GetByAddress(ctx, "0xalice")
	require.NoError(t, err)
	assert.Equal(t, 1, creator.TotalGroupsCreated)

	var eventCount int64
	require.NoError(t, gdb.Model(&models.ChainEvent{}).Count(&eventCount).Error)
	assert.Equal(t, int64(1), eventCount)
}

func TestIngestUnknownTypePersistedAndSkipped(t *testing.T) {
	svc, gdb, _ := setupIngestService(t)
	ctx := context.Background()

	evt := makeEvent(t, "SomethingNew", "0xbb", 0, map[string]string{"groupId": "grp-9"})
	results, err := svc.IngestBatch(ctx, []RawEvent{evt})
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, results[0].Outcome)

	var stored models.ChainEvent
	require.NoError(t, gdb.First(&stored, "transaction_hash = ?", "0xbb").Error)
	assert.Equal(t, enums.ChainEventStatusApplied, stored.Status)
	assert.NotNil(t, stored.AppliedAt)
}

func TestIngestBatchIsolatesFailures(t *testing.T) {
	svc, gdb, _ := setupIngestService(t)
	ctx := context.Background()

	// First event targets a group that was never mirrored; the second must
	// still apply.
	bad := makeEvent(t, string(enums.ChainEventGroupUpdated), "0xcc", 0, GroupUpdatedData{
		GroupID: "missing",
		NewName: "nope",
	})
	good := groupCreatedEvent(t, "grp-1", "0xdd")

	results, err := svc.IngestBatch(ctx, []RawEvent{bad, good})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, OutcomeFailed, results[0].Outcome)
	assert.NotEmpty(t, results[0].Error)
	assert.Equal(t, OutcomeApplied, results[1].Outcome)

	// The failed event's claim stays in received for redelivery.
	var stored models.ChainEvent
	require.NoError(t, gdb.First(&stored, "transaction_hash = ?", "0xcc").Error)
	assert.Equal(t, enums.ChainEventStatusReceived, stored.Status)

	mustGroup(t, gdb, "grp-1")
}

func TestUpdateLifecycle(t *testing.T) {
	svc, gdb, broker := setupIngestService(t)
	ctx := context.Background()

	_, err := svc.IngestBatch(ctx, []RawEvent{groupCreatedEvent(t, "grp-1", "0xaa")})
	require.NoError(t, err)

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub.ID)

	proposed := types.MemberShares{
		{Addr: "0xalice", Percentage: 50},
		{Addr: "0xbob", Percentage: 30},
		{Addr: "0xcarol", Percentage: 20},
	}
	request := makeEvent(t, string(enums.ChainEventGroupUpdateRequested), "0xr1", 0, UpdateRequestedData{
		GroupID:    "grp-1",
		Requester:  "0xalice",
		NewName:    "roadtrip v2",
		NewAmount:  types.MustAmount("2000"),
		NewMembers: proposed,
	})
	results, err := svc.IngestBatch(ctx, []RawEvent{request})
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, results[0].Outcome)

	group := mustGroup(t, gdb, "grp-1")
	assert.True(t, group.HasPendingUpdate)

	approve := func(txHash, approver string) Result {
		evt := makeEvent(t, string(enums.ChainEventGroupUpdateApproved), txHash, 0, UpdateApprovedData{
			GroupID: "grp-1", Approver: approver,
		})
		results, err := svc.IngestBatch(ctx, []RawEvent{evt})
		require.NoError(t, err)
		return results[0]
	}

	assert.Equal(t, OutcomeApplied, approve("0xa1", "0xalice").Outcome)
	assert.Equal(t, OutcomeApplied, approve("0xa2", "0xbob").Outcome)

	group = mustGroup(t, gdb, "grp-1")
	assert.Equal(t, 2, group.ApprovalCount)

	open, err := updates.NewRepository(gdb).GetOpenByGroupID(ctx, group.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, open.ApprovalCount)
	assert.True(t, open.ReadyNotified)

	var readyCount int
	for _, msg := range drainMessages(sub) {
		if msg.Type == enums.NotificationTypeGroupUpdateReady {
			readyCount++
		}
	}
	assert.Equal(t, 1, readyCount, "readiness must be announced exactly once")

	execute := makeEvent(t, string(enums.ChainEventGroupUpdateExecuted), "0xe1", 0, UpdateExecutedData{
		GroupID: "grp-1", Executor: "0xalice",
	})
	results, err = svc.IngestBatch(ctx, []RawEvent{execute})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, results[0].Outcome)

	group = mustGroup(t, gdb, "grp-1")
	assert.Equal(t, "roadtrip v2", group.Name)
	assert.Equal(t, "2000", group.Amount.String())
	assert.Equal(t, 3, group.MemberCount)
	assert.Len(t, group.Members, 3)
	assert.False(t, group.HasPendingUpdate)
	assert.Equal(t, 0, group.ApprovalCount)
	for _, member := range group.Members {
		assert.False(t, member.HasApprovedUpdate)
	}

	_, err = updates.NewRepository(gdb).GetOpenByGroupID(ctx, group.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Executing again without an open request is a harmless no-op.
	replayed := makeEvent(t, string(enums.ChainEventGroupUpdateExecuted), "0xe2", 0, UpdateExecutedData{
		GroupID: "grp-1", Executor: "0xalice",
	})
	results, err = svc.IngestBatch(ctx, []RawEvent{replayed})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, results[0].Outcome)
	assert.Equal(t, "roadtrip v2", mustGroup(t, gdb, "grp-1").Name)
}

func TestDuplicateApprovalDoesNotDoubleCount(t *testing.T) {
	svc, gdb, _ := setupIngestService(t)
	ctx := context.Background()

	_, err := svc.IngestBatch(ctx, []RawEvent{groupCreatedEvent(t, "grp-1", "0xaa")})
	require.NoError(t, err)
	_, err = svc.IngestBatch(ctx, []RawEvent{makeEvent(t, string(enums.ChainEventGroupUpdateRequested), "0xr1", 0, UpdateRequestedData{
		GroupID:   "grp-1",
		Requester: "0xalice",
		NewName:   "v2",
		NewAmount: types.MustAmount("1000"),
		NewMembers: types.MemberShares{
			{Addr: "0xalice", Percentage: 100},
		},
	})})
	require.NoError(t, err)

	for i, txHash := range []string{"0xa1", "0xa2"} {
		evt := makeEvent(t, string(enums.ChainEventGroupUpdateApproved), txHash, i, UpdateApprovedData{
			GroupID: "grp-1", Approver: "0xalice",
		})
		results, err := svc.IngestBatch(ctx, []RawEvent{evt})
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, results[0].Outcome)
	}

	group := mustGroup(t, gdb, "grp-1")
	assert.Equal(t, 1, group.ApprovalCount)
}

func TestApprovalFromNonMemberRejected(t *testing.T) {
	svc, gdb, _ := setupIngestService(t)
	ctx := context.Background()

	_, err := svc.IngestBatch(ctx, []RawEvent{groupCreatedEvent(t, "grp-1", "0xaa")})
	require.NoError(t, err)
	_, err = svc.IngestBatch(ctx, []RawEvent{makeEvent(t, string(enums.ChainEventGroupUpdateRequested), "0xr1", 0, UpdateRequestedData{
		GroupID:    "grp-1",
		Requester:  "0xalice",
		NewName:    "v2",
		NewAmount:  types.MustAmount("1000"),
		NewMembers: types.MemberShares{{Addr: "0xalice", Percentage: 100}},
	})})
	require.NoError(t, err)

	evt := makeEvent(t, string(enums.ChainEventGroupUpdateApproved), "0xa1", 0, UpdateApprovedData{
		GroupID: "grp-1", Approver: "0xmallory",
	})
	results, err := svc.IngestBatch(ctx, []RawEvent{evt})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, results[0].Outcome)
	assert.Contains(t, results[0].Error, "not a member")
	assert.Equal(t, 0, mustGroup(t, gdb, "grp-1").ApprovalCount)
}

func TestPaymentSettlesGroupAndTotalsOnce(t *testing.T) {
	svc, gdb, broker := setupIngestService(t)
	ctx := context.Background()
	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub.ID)

	_, err := svc.IngestBatch(ctx, []RawEvent{groupCreatedEvent(t, "grp-1", "0xaa")})
	require.NoError(t, err)

	payment := makeEvent(t, string(enums.ChainEventPayment), "0xp1", 0, PaymentData{
		GroupID:     "grp-1",
		FromAddress: "0xdave",
		ToAddress:   "0xalice",
		Amount:      types.MustAmount("1000"),
	})
	results, err := svc.IngestBatch(ctx, []RawEvent{payment})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, results[0].Outcome)

	results, err = svc.IngestBatch(ctx, []RawEvent{payment})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, results[0].Outcome)

	group := mustGroup(t, gdb, "grp-1")
	assert.True(t, group.IsPaid)

	partsRepo := participants.NewRepository(gdb)
	payer, err := partsRepo.GetByAddress(ctx, "0xdave")
	require.NoError(t, err)
	assert.Equal(t, "1000", payer.TotalAmountPaid.String())

	payee, err := partsRepo.GetByAddress(ctx, "0xalice")
	require.NoError(t, err)
	assert.Equal(t, "1000", payee.TotalAmountReceived.String())

	var paymentCount int64
	require.NoError(t, gdb.Model(&models.Payment{}).Count(&paymentCount).Error)
	assert.Equal(t, int64(1), paymentCount)

	var paidMsgs int
	for _, msg := range drainMessages(sub) {
		if msg.Type == enums.NotificationTypePaymentCompleted {
			paidMsgs++
		}
	}
	assert.Equal(t, 1, paidMsgs)
}

func TestPartialPaymentLeavesGroupUnpaid(t *testing.T) {
	svc, gdb, _ := setupIngestService(t)
	ctx := context.Background()

	_, err := svc.IngestBatch(ctx, []RawEvent{groupCreatedEvent(t, "grp-1", "0xaa")})
	require.NoError(t, err)

	payment := makeEvent(t, string(enums.ChainEventPayment), "0xp1", 0, PaymentData{
		GroupID:     "grp-1",
		FromAddress: "0xdave",
		ToAddress:   "0xalice",
		Amount:      types.MustAmount("400"),
	})
	results, err := svc.IngestBatch(ctx, []RawEvent{payment})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, results[0].Outcome)
	assert.False(t, mustGroup(t, gdb, "grp-1").IsPaid)
}

func TestOrphanApprovalBufferedThenDrained(t *testing.T) {
	svc, gdb, _ := setupIngestService(t)
	ctx := context.Background()

	_, err := svc.IngestBatch(ctx, []RawEvent{groupCreatedEvent(t, "grp-1", "0xaa")})
	require.NoError(t, err)

	// Approval lands before the request it belongs to.
	orphan := makeEvent(t, string(enums.ChainEventGroupUpdateApproved), "0xa1", 0, UpdateApprovedData{
		GroupID: "grp-1", Approver: "0xalice",
	})
	results, err := svc.IngestBatch(ctx, []RawEvent{orphan})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeferred, results[0].Outcome)
	assert.Equal(t, 1, svc.OrphanCount())

	// The request arrives and the buffered approval is replayed behind it.
	request := makeEvent(t, string(enums.ChainEventGroupUpdateRequested), "0xr1", 0, UpdateRequestedData{
		GroupID:    "grp-1",
		Requester:  "0xalice",
		NewName:    "v2",
		NewAmount:  types.MustAmount("1000"),
		NewMembers: types.MemberShares{{Addr: "0xalice", Percentage: 100}},
	})
	results, err = svc.IngestBatch(ctx, []RawEvent{request})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, results[0].Outcome)

	assert.Equal(t, 0, svc.OrphanCount())
	assert.Equal(t, 1, mustGroup(t, gdb, "grp-1").ApprovalCount)
}

func TestExhaustedOrphanGoesToDLQ(t *testing.T) {
	svc, gdb, _ := setupIngestService(t)
	ctx := context.Background()

	orphan := makeEvent(t, string(enums.ChainEventGroupUpdateApproved), "0xa1", 0, UpdateApprovedData{
		GroupID: "nowhere", Approver: "0xalice",
	})
	results, err := svc.IngestBatch(ctx, []RawEvent{orphan})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeferred, results[0].Outcome)

	// Each sweep re-orphans the approval; after the attempt budget it is
	// evicted instead of re-buffered.
	for i := 0; i < 6; i++ {
		svc.SweepOrphans(ctx)
	}
	assert.Equal(t, 0, svc.OrphanCount())

	count, err := NewDLQRepository(gdb).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	entries, err := NewDLQRepository(gdb).ListByChainGroupID(ctx, "nowhere")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, enums.ChainEventGroupUpdateApproved, entries[0].EventType)
}

func TestReplayAppliesStuckReceivedEvent(t *testing.T) {
	svc, gdb, _ := setupIngestService(t)
	ctx := context.Background()

	// Fails first because the group does not exist yet; the claim stays in
	// status received.
	payment := makeEvent(t, string(enums.ChainEventPayment), "0xp1", 0, PaymentData{
		GroupID:     "grp-1",
		FromAddress: "0xdave",
		ToAddress:   "0xalice",
		Amount:      types.MustAmount("1000"),
	})
	results, err := svc.IngestBatch(ctx, []RawEvent{payment})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, results[0].Outcome)

	_, err = svc.IngestBatch(ctx, []RawEvent{groupCreatedEvent(t, "grp-1", "0xaa")})
	require.NoError(t, err)

	var stuck models.ChainEvent
	require.NoError(t, gdb.First(&stuck, "transaction_hash = ?", "0xp1").Error)
	require.Equal(t, enums.ChainEventStatusReceived, stuck.Status)

	result := svc.Replay(ctx, &stuck)
	assert.Equal(t, OutcomeApplied, result.Outcome)
	assert.True(t, mustGroup(t, gdb, "grp-1").IsPaid)
}

func TestRosterValidationRejectsBadPercentages(t *testing.T) {
	svc, _, _ := setupIngestService(t)
	ctx := context.Background()

	evt := makeEvent(t, string(enums.ChainEventGroupCreated), "0xaa", 0, GroupCreatedData{
		GroupID: "grp-1",
		Name:    "broken",
		Amount:  types.MustAmount("1000"),
		Creator: "0xalice",
		Members: types.MemberShares{
			{Addr: "0xalice", Percentage: 70},
			{Addr: "0xbob", Percentage: 40},
		},
	})
	results, err := svc.IngestBatch(ctx, []RawEvent{evt})
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, results[0].Outcome)
	assert.Contains(t, results[0].Error, "sum")
}
