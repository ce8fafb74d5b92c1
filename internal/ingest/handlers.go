package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/swiftpaylabs/swiftpay-backend/internal/groups"
	"github.com/swiftpaylabs/swiftpay-backend/internal/notify"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/db/models"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/enums"
	pkgerrors "github.com/swiftpaylabs/swiftpay-backend/pkg/errors"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/types"
)

// errOrphanApproval marks an approval that arrived before the group or its
// update request was mirrored. The service buffers these instead of failing.
var errOrphanApproval = errors.New("approval precedes its update request")

// handlerFunc applies one event inside the supplied transaction and returns
// the notifications to publish after commit.
type handlerFunc func(ctx context.Context, tx *gorm.DB, evt *models.ChainEvent) ([]notify.Message, error)

func (s *service) handlerRegistry() map[enums.ChainEventType]handlerFunc {
	return map[enums.ChainEventType]handlerFunc{
		enums.ChainEventGroupCreated:         s.handleGroupCreated,
		enums.ChainEventGroupUpdated:         s.handleGroupUpdated,
		enums.ChainEventGroupUpdateRequested: s.handleUpdateRequested,
		enums.ChainEventGroupUpdateApproved:  s.handleUpdateApproved,
		enums.ChainEventGroupUpdateExecuted:  s.handleUpdateExecuted,
		enums.ChainEventPayment:              s.handlePayment,
	}
}

func (s *service) handleGroupCreated(ctx context.Context, tx *gorm.DB, evt *models.ChainEvent) ([]notify.Message, error) {
	data, err := decodeData[GroupCreatedData](evt.EventData)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "group created payload")
	}
	if data.GroupID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group created event missing group id")
	}

	groupsRepo := s.groups.WithTx(tx)
	if _, err := groupsRepo.GetByChainID(ctx, data.GroupID); err == nil {
		// Duplicate creation under retries; the first write stands.
		return nil, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if len(data.Members) > 0 {
		if err := groups.ValidateRoster(data.Members); err != nil {
			return nil, err
		}
	}

	group := &models.Group{
		ChainGroupID:    data.GroupID,
		Name:            data.Name,
		Amount:          data.Amount,
		CreatorAddress:  data.Creator,
		MemberCount:     len(data.Members),
		TransactionHash: evt.TransactionHash,
		BlockNumber:     evt.BlockNumber,
	}
	if data.TokenAddress != "" {
		token := data.TokenAddress
		group.TokenAddress = &token
	}
	for _, share := range data.Members {
		group.Members = append(group.Members, models.GroupMember{
			MemberAddress: share.Addr,
			Percentage:    share.Percentage,
		})
	}
	if err := groupsRepo.Create(ctx, group); err != nil {
		return nil, err
	}

	partsRepo := s.participants.WithTx(tx)
	if err := partsRepo.IncrementGroupsCreated(ctx, data.Creator); err != nil {
		return nil, err
	}
	for _, share := range data.Members {
		if err := partsRepo.IncrementGroupsJoined(ctx, share.Addr); err != nil {
			return nil, err
		}
	}

	return []notify.Message{{
		Type:         enums.NotificationTypeGroupCreated,
		ChainGroupID: data.GroupID,
		Addresses:    append(data.Members.Addresses(), data.Creator),
		Payload:      data,
		EmittedAt:    time.Now().UTC(),
	}}, nil
}

func (s *service) handleGroupUpdated(ctx context.Context, tx *gorm.DB, evt *models.ChainEvent) ([]notify.Message, error) {
	data, err := decodeData[GroupUpdatedData](evt.EventData)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "group updated payload")
	}

	groupsRepo := s.groups.WithTx(tx)
	group, err := groupsRepo.GetByChainID(ctx, data.GroupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("group %s not mirrored yet", data.GroupID))
		}
		return nil, err
	}

	if len(data.NewMembers) > 0 {
		if err := groups.ValidateRoster(data.NewMembers); err != nil {
			return nil, err
		}
	}

	if data.NewName != "" {
		group.Name = data.NewName
	}
	if !data.NewAmount.IsZero() {
		group.Amount = data.NewAmount
	}
	group.IsPaid = false
	group.TransactionHash = evt.TransactionHash
	group.BlockNumber = evt.BlockNumber

	if len(data.NewMembers) > 0 {
		if err := s.applyRoster(ctx, tx, group, data.NewMembers); err != nil {
			return nil, err
		}
	}
	if err := groupsRepo.UpdateVersioned(ctx, group); err != nil {
		return nil, err
	}

	return []notify.Message{{
		Type:         enums.NotificationTypeGroupUpdated,
		ChainGroupID: data.GroupID,
		Addresses:    data.NewMembers.Addresses(),
		Payload:      data,
		EmittedAt:    time.Now().UTC(),
	}}, nil
}

func (s *service) handleUpdateRequested(ctx context.Context, tx *gorm.DB, evt *models.ChainEvent) ([]notify.Message, error) {
	data, err := decodeData[UpdateRequestedData](evt.EventData)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "update requested payload")
	}

	groupsRepo := s.groups.WithTx(tx)
	group, err := groupsRepo.GetByChainID(ctx, data.GroupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("group %s not mirrored yet", data.GroupID))
		}
		return nil, err
	}

	updatesRepo := s.updates.WithTx(tx)
	if _, err := updatesRepo.GetOpenByGroupID(ctx, group.ID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("group %s already has an open update request", data.GroupID))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := groups.ValidateRoster(data.NewMembers); err != nil {
		return nil, err
	}

	request := &models.UpdateRequest{
		GroupID:          group.ID,
		RequesterAddress: data.Requester,
		NewName:          data.NewName,
		NewAmount:        data.NewAmount,
		ProposedMembers:  data.NewMembers,
		TransactionHash:  evt.TransactionHash,
		BlockNumber:      evt.BlockNumber,
	}
	if err := updatesRepo.Create(ctx, request); err != nil {
		return nil, err
	}

	group.HasPendingUpdate = true
	group.TransactionHash = evt.TransactionHash
	group.BlockNumber = evt.BlockNumber
	if err := groupsRepo.UpdateVersioned(ctx, group); err != nil {
		return nil, err
	}

	return []notify.Message{{
		Type:         enums.NotificationTypeGroupUpdateRequested,
		ChainGroupID: data.GroupID,
		Addresses:    currentMemberAddresses(group),
		Payload:      data,
		EmittedAt:    time.Now().UTC(),
	}}, nil
}

func (s *service) handleUpdateApproved(ctx context.Context, tx *gorm.DB, evt *models.ChainEvent) ([]notify.Message, error) {
	data, err := decodeData[UpdateApprovedData](evt.EventData)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "update approved payload")
	}

	groupsRepo := s.groups.WithTx(tx)
	group, err := groupsRepo.GetByChainID(ctx, data.GroupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errOrphanApproval
		}
		return nil, err
	}

	updatesRepo := s.updates.WithTx(tx)
	request, err := updatesRepo.GetOpenByGroupID(ctx, group.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errOrphanApproval
		}
		return nil, err
	}

	if !isCurrentMember(group, data.Approver) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("approver %s is not a member of group %s", data.Approver, data.GroupID))
	}

	flipped, err := groupsRepo.MarkMemberApproved(ctx, group.ID, data.Approver)
	if err != nil {
		return nil, err
	}
	if !flipped {
		// Duplicate approval this cycle; tolerated, not counted.
		return nil, nil
	}

	if err := updatesRepo.IncrementApproval(ctx, request.ID); err != nil {
		return nil, err
	}

	group.ApprovalCount++
	group.TransactionHash = evt.TransactionHash
	group.BlockNumber = evt.BlockNumber
	if err := groupsRepo.UpdateVersioned(ctx, group); err != nil {
		return nil, err
	}

	// Edge-triggered readiness: fires for exactly one approval per cycle.
	if request.ApprovalCount+1 >= group.MemberCount {
		notified, err := updatesRepo.MarkReadyNotified(ctx, request.ID)
		if err != nil {
			return nil, err
		}
		if notified {
			return []notify.Message{{
				Type:         enums.NotificationTypeGroupUpdateReady,
				ChainGroupID: data.GroupID,
				Addresses:    currentMemberAddresses(group),
				Payload:      map[string]any{"groupId": data.GroupID, "requestId": request.ID},
				EmittedAt:    time.Now().UTC(),
			}}, nil
		}
	}
	return nil, nil
}

func (s *service) handleUpdateExecuted(ctx context.Context, tx *gorm.DB, evt *models.ChainEvent) ([]notify.Message, error) {
	data, err := decodeData[UpdateExecutedData](evt.EventData)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "update executed payload")
	}

	groupsRepo := s.groups.WithTx(tx)
	group, err := groupsRepo.GetByChainID(ctx, data.GroupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("group %s not mirrored yet", data.GroupID))
		}
		return nil, err
	}

	updatesRepo := s.updates.WithTx(tx)
	request, err := updatesRepo.GetOpenByGroupID(ctx, group.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Already executed or never observed; execution is idempotent.
			return nil, nil
		}
		return nil, err
	}

	if err := groups.ValidateRoster(request.ProposedMembers); err != nil {
		return nil, err
	}

	group.Name = request.NewName
	group.Amount = request.NewAmount
	group.IsPaid = false
	group.HasPendingUpdate = false
	group.ApprovalCount = 0
	group.TransactionHash = evt.TransactionHash
	group.BlockNumber = evt.BlockNumber
	if err := s.applyRoster(ctx, tx, group, request.ProposedMembers); err != nil {
		return nil, err
	}
	if err := groupsRepo.UpdateVersioned(ctx, group); err != nil {
		return nil, err
	}
	if err := updatesRepo.Complete(ctx, request.ID, time.Now().UTC()); err != nil {
		return nil, err
	}

	return []notify.Message{{
		Type:         enums.NotificationTypeGroupUpdated,
		ChainGroupID: data.GroupID,
		Addresses:    request.ProposedMembers.Addresses(),
		Payload: map[string]any{
			"groupId":  data.GroupID,
			"executor": data.Executor,
			"name":     request.NewName,
			"amount":   request.NewAmount,
			"members":  request.ProposedMembers,
		},
		EmittedAt: time.Now().UTC(),
	}}, nil
}

func (s *service) handlePayment(ctx context.Context, tx *gorm.DB, evt *models.ChainEvent) ([]notify.Message, error) {
	data, err := decodeData[PaymentData](evt.EventData)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "payment payload")
	}

	groupsRepo := s.groups.WithTx(tx)
	group, err := groupsRepo.GetByChainID(ctx, data.GroupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("group %s not mirrored yet", data.GroupID))
		}
		return nil, err
	}

	paymentsRepo := s.payments.WithTx(tx)
	exists, err := paymentsRepo.Exists(ctx, group.ID, evt.TransactionHash, evt.LogIndex)
	if err != nil {
		return nil, err
	}
	if exists {
		// Replayed payment; totals already counted.
		return nil, nil
	}

	payment := &models.Payment{
		GroupID:         group.ID,
		FromAddress:     data.FromAddress,
		ToAddress:       data.ToAddress,
		Amount:          data.Amount,
		TransactionHash: evt.TransactionHash,
		BlockNumber:     evt.BlockNumber,
		LogIndex:        evt.LogIndex,
		Status:          enums.PaymentStatusCompleted,
	}
	if data.TokenAddress != "" {
		token := data.TokenAddress
		payment.TokenAddress = &token
	}
	if err := paymentsRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	partsRepo := s.participants.WithTx(tx)
	if err := partsRepo.AddAmountPaid(ctx, data.FromAddress, data.Amount); err != nil {
		return nil, err
	}
	if err := partsRepo.AddAmountReceived(ctx, data.ToAddress, data.Amount); err != nil {
		return nil, err
	}

	// A full-amount settlement marks the group paid; anything else leaves the
	// flag for the next full settlement cycle.
	if data.Amount.Cmp(group.Amount) >= 0 {
		group.IsPaid = true
	}
	group.TransactionHash = evt.TransactionHash
	group.BlockNumber = evt.BlockNumber
	if err := groupsRepo.UpdateVersioned(ctx, group); err != nil {
		return nil, err
	}

	return []notify.Message{{
		Type:         enums.NotificationTypePaymentCompleted,
		ChainGroupID: data.GroupID,
		Addresses:    []string{data.FromAddress, data.ToAddress},
		Payload:      data,
		EmittedAt:    time.Now().UTC(),
	}}, nil
}

// applyRoster swaps the member rows and keeps participant join totals in step
// for genuinely new addresses.
func (s *service) applyRoster(ctx context.Context, tx *gorm.DB, group *models.Group, shares types.MemberShares) error {
	previous := make(map[string]struct{}, len(group.Members))
	for _, member := range group.Members {
		previous[member.MemberAddress] = struct{}{}
	}

	members := make([]models.GroupMember, 0, len(shares))
	for _, share := range shares {
		members = append(members, models.GroupMember{
			MemberAddress: share.Addr,
			Percentage:    share.Percentage,
		})
	}
	if err := s.groups.WithTx(tx).ReplaceMembers(ctx, group.ID, members); err != nil {
		return err
	}
	group.MemberCount = len(shares)

	partsRepo := s.participants.WithTx(tx)
	for _, share := range shares {
		if _, joined := previous[share.Addr]; joined {
			continue
		}
		if err := partsRepo.IncrementGroupsJoined(ctx, share.Addr); err != nil {
			return err
		}
	}
	return nil
}

func isCurrentMember(group *models.Group, address string) bool {
	for _, member := range group.Members {
		if member.MemberAddress == address {
			return true
		}
	}
	return false
}

func currentMemberAddresses(group *models.Group) []string {
	out := make([]string, 0, len(group.Members))
	for _, member := range group.Members {
		out = append(out, member.MemberAddress)
	}
	return out
}
