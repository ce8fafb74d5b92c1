package participants

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/db/models"
	pkgerrors "github.com/swiftpaylabs/swiftpay-backend/pkg/errors"
)

// Service exposes participant reads.
type Service interface {
	Get(ctx context.Context, address string) (*models.Participant, error)
}

type service struct {
	repo Repository
}

// NewService wires participant read dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "participants repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, address string) (*models.Participant, error) {
	if strings.TrimSpace(address) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "participant address required")
	}
	participant, err := s.repo.GetByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "participant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get participant")
	}
	return participant, nil
}
