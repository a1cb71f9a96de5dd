package user

import (
	"context"

	common_models "go-propflow/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserService interface {
	GetUser(ctx context.Context, id primitive.ObjectID) (*common_models.User, error)
	GetUsersByRole(ctx context.Context, roleID primitive.ObjectID) ([]common_models.User, error)
}

type UserServiceImpl struct {
	UserRepo UserRepository
}

func NewUserService(userRepo UserRepository) UserService {
	return &UserServiceImpl{
		UserRepo: userRepo,
	}
}

func (s *UserServiceImpl) GetUser(ctx context.Context, id primitive.ObjectID) (*common_models.User, error) {
	return s.UserRepo.FindByID(ctx, id)
}

func (s *UserServiceImpl) GetUsersByRole(ctx context.Context, roleID primitive.ObjectID) ([]common_models.User, error) {
	return s.UserRepo.FindByRole(ctx, roleID)
}
