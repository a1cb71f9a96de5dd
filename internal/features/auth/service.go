package auth

import (
	"context"

	"go-propflow/internal/common/apperrors"
	common_models "go-propflow/internal/common/models"
	"go-propflow/internal/features/audit"
	"go-propflow/internal/features/user"
	"go-propflow/pkg/utils"
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (string, error)
}

type AuthServiceImpl struct {
	UserRepo     user.UserRepository
	AuditService audit.AuditService
}

func NewAuthService(userRepo user.UserRepository, auditService audit.AuditService) AuthService {
	return &AuthServiceImpl{
		UserRepo:     userRepo,
		AuditService: auditService,
	}
}

func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.UserRepo.FindByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if u == nil || u.Status != "active" {
		return "", &apperrors.UnauthorizedError{Msg: "invalid credentials"}
	}

	// TODO: replace with bcrypt once the seeded accounts are migrated
	if u.Password != password {
		return "", &apperrors.UnauthorizedError{Msg: "invalid credentials"}
	}

	roleHexes := make([]string, 0, len(u.Roles))
	for _, roleID := range u.Roles {
		roleHexes = append(roleHexes, roleID.Hex())
	}

	token, err := utils.GenerateToken(u.ID, roleHexes)
	if err != nil {
		return "", err
	}

	_ = s.AuditService.LogChange(ctx, common_models.AuditActionLogin, "users", u.ID.Hex(), nil)

	return token, nil
}
