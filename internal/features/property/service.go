package property

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-propflow/internal/common/apperrors"
	common_models "go-propflow/internal/common/models"
	"go-propflow/internal/features/audit"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PropertyService interface {
	CreateProperty(ctx context.Context, p *Property) (*Property, error)
	GetProperty(ctx context.Context, id string) (*Property, error)
	ListProperties(ctx context.Context) ([]Property, error)
}

type PropertyServiceImpl struct {
	PropertyRepo PropertyRepository
	AuditService audit.AuditService
}

func NewPropertyService(propertyRepo PropertyRepository, auditService audit.AuditService) PropertyService {
	return &PropertyServiceImpl{
		PropertyRepo: propertyRepo,
		AuditService: auditService,
	}
}

func (s *PropertyServiceImpl) CreateProperty(ctx context.Context, p *Property) (*Property, error) {
	if strings.TrimSpace(p.Reference) == "" {
		return nil, apperrors.Validation("property reference is required")
	}
	if strings.TrimSpace(p.Address) == "" {
		return nil, apperrors.Validation("property address is required")
	}

	now := time.Now()
	p.ID = primitive.NewObjectID()
	p.Status = PropertyStatusPendingApproval
	p.CreatedAt = now
	p.UpdatedAt = now
	for i := range p.Owners {
		if p.Owners[i].ID.IsZero() {
			p.Owners[i].ID = primitive.NewObjectID()
		}
	}

	if err := s.PropertyRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionCreate, "properties", p.ID.Hex(), map[string]common_models.Change{
		"reference": {Old: nil, New: p.Reference},
	})

	return p, nil
}

func (s *PropertyServiceImpl) GetProperty(ctx context.Context, id string) (*Property, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperrors.Validation("invalid property id")
	}
	p, err := s.PropertyRepo.FindByID(ctx, objID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("property %s: %w", id, apperrors.ErrNotFound)
	}
	return p, nil
}

func (s *PropertyServiceImpl) ListProperties(ctx context.Context) ([]Property, error) {
	return s.PropertyRepo.List(ctx)
}
