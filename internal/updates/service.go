package updates

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/db/models"
	pkgerrors "github.com/swiftpaylabs/swiftpay-backend/pkg/errors"
)

// Service exposes update request reads.
type Service interface {
	// Open returns the group's open request, or nil when none exists.
	Open(ctx context.Context, groupID uuid.UUID) (*models.UpdateRequest, error)
	History(ctx context.Context, groupID uuid.UUID) ([]models.UpdateRequest, error)
}

type service struct {
	repo Repository
}

// NewService wires update request read dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "updates repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Open(ctx context.Context, groupID uuid.UUID) (*models.UpdateRequest, error) {
	if groupID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group id required")
	}
	request, err := s.repo.GetOpenByGroupID(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get open update request")
	}
	return request, nil
}

func (s *service) History(ctx context.Context, groupID uuid.UUID) ([]models.UpdateRequest, error) {
	if groupID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group id required")
	}
	rows, err := s.repo.ListByGroupID(ctx, groupID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list update requests")
	}
	return rows, nil
}
