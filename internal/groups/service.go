package groups

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/swiftpaylabs/swiftpay-backend/pkg/db/models"
	pkgerrors "github.com/swiftpaylabs/swiftpay-backend/pkg/errors"
	"github.com/swiftpaylabs/swiftpay-backend/pkg/pagination"
)

// Service defines the read surface over mirrored groups.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Group, error)
	GetByChainID(ctx context.Context, chainGroupID string) (*models.Group, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	ListByParticipant(ctx context.Context, address string) ([]models.Group, error)
}

type service struct {
	repo Repository
}

// ListParams configures group listing.
type ListParams struct {
	IsPaid *bool
	Limit  int
	Cursor string
}

// ListResult wraps returned groups plus the cursor for the next page.
type ListResult struct {
	Items  []models.Group `json:"items"`
	Cursor string         `json:"cursor"`
}

// NewService wires group read dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "groups repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "group id required")
	}
	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "group not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get group")
	}
	return group, nil
}

func (s *service) GetByChainID(ctx context.Context, chainGroupID string) (*models.Group, error) {
	if strings.TrimSpace(chainGroupID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "chain group id required")
	}
	group, err := s.repo.GetByChainID(ctx, chainGroupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "group not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "get group by chain id")
	}
	return group, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listGroupsParams{
		IsPaid: params.IsPaid,
		Limit:  params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list groups")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

func (s *service) ListByParticipant(ctx context.Context, address string) ([]models.Group, error) {
	if strings.TrimSpace(address) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "participant address required")
	}
	rows, err := s.repo.ListByParticipant(ctx, address)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list groups by participant")
	}
	return rows, nil
}
