package role

import (
	"context"
	"fmt"
	"slices"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RoleService interface {
	GetRoleByName(ctx context.Context, name string) (*Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	// GetPermissionsForRoles flattens role grants into "resource:action" codes
	GetPermissionsForRoles(ctx context.Context, roleIDHexes []string) ([]string, error)
	CheckPermission(ctx context.Context, roleIDHexes []string, resource string, action string) (bool, error)
}

type RoleServiceImpl struct {
	RoleRepo RoleRepository
}

func NewRoleService(roleRepo RoleRepository) RoleService {
	return &RoleServiceImpl{
		RoleRepo: roleRepo,
	}
}

func (s *RoleServiceImpl) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	return s.RoleRepo.FindByName(ctx, name)
}

func (s *RoleServiceImpl) ListRoles(ctx context.Context) ([]Role, error) {
	return s.RoleRepo.List(ctx)
}

func (s *RoleServiceImpl) GetPermissionsForRoles(ctx context.Context, roleIDHexes []string) ([]string, error) {
	ids := make([]primitive.ObjectID, 0, len(roleIDHexes))
	for _, hex := range roleIDHexes {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	roles, err := s.RoleRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var codes []string
	for _, r := range roles {
		for resource, actions := range r.Permissions {
			for _, action := range actions {
				code := fmt.Sprintf("%s:%s", resource, action)
				if !slices.Contains(codes, code) {
					codes = append(codes, code)
				}
			}
		}
	}
	return codes, nil
}

func (s *RoleServiceImpl) CheckPermission(ctx context.Context, roleIDHexes []string, resource string, action string) (bool, error) {
	codes, err := s.GetPermissionsForRoles(ctx, roleIDHexes)
	if err != nil {
		return false, err
	}
	return slices.Contains(codes, fmt.Sprintf("%s:%s", resource, action)), nil
}
