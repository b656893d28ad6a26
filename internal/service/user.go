package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/adpanel/adpanel/internal/apperr"
	"github.com/adpanel/adpanel/internal/model"
	"github.com/adpanel/adpanel/internal/repository"
)

type UserService struct {
	store *repository.Store
}

func NewUserService(store *repository.Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) ByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.store.Users.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, storeErr("get user", err)
	}

	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	users, err := s.store.Users.List(ctx)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	return users, nil
}

func (s *UserService) SetAdmin(ctx context.Context, actorID, userID string, isAdmin bool) error {
	if actorID == userID && !isAdmin {
		return apperr.Validation("admins cannot revoke their own role")
	}

	err := s.store.Users.SetAdmin(ctx, userID, isAdmin)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.NotFound("user not found")
		}
		return storeErr("update user role", err)
	}

	slog.Info("user role changed", "actor_id", actorID, "user_id", userID, "is_admin", isAdmin)
	return nil
}
