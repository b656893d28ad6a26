package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/adpanel/adpanel/internal/apperr"
	"github.com/adpanel/adpanel/internal/model"
	"github.com/adpanel/adpanel/internal/realtime"
	"github.com/adpanel/adpanel/internal/repository"
	"github.com/adpanel/adpanel/internal/validation"
	"github.com/google/uuid"
)

type GroupService struct {
	store     *repository.Store
	publisher realtime.Publisher
}

func NewGroupService(store *repository.Store, publisher realtime.Publisher) *GroupService {
	return &GroupService{store: store, publisher: publisher}
}

func (s *GroupService) Create(ctx context.Context, userID, name string) (*model.Group, error) {
	name = strings.TrimSpace(name)
	err := validation.ValidateName(name)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	group := &model.Group{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		CreatedAt: utcNow(),
	}

	err = s.store.Groups.Create(ctx, group)
	if err != nil {
		return nil, storeErr("create group", err)
	}

	return group, nil
}

func (s *GroupService) List(ctx context.Context, userID string) ([]*model.Group, error) {
	groups, err := s.store.Groups.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeErr("list groups", err)
	}
	return groups, nil
}

// Delete removes a group. Its links go with it; its media stay, ungrouped.
func (s *GroupService) Delete(ctx context.Context, userID, groupID string) error {
	_, err := ownedGroup(ctx, s.store, userID, groupID)
	if err != nil {
		return err
	}

	err = s.store.Groups.Delete(ctx, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrGroupNotFound) {
			return apperr.NotFound("group not found")
		}
		return storeErr("delete group", err)
	}

	err = s.publisher.Publish(ctx, userID, realtime.MediaUpdated(groupID))
	if err != nil {
		slog.Warn("failed to publish media update", "error", err, "user_id", userID, "group_id", groupID)
	}
	return nil
}

// ownedGroup loads a group and hides groups owned by other users behind
// the same NotFound as a missing one.
func ownedGroup(ctx context.Context, store *repository.Store, userID, groupID string) (*model.Group, error) {
	group, err := store.Groups.ByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrGroupNotFound) {
			return nil, apperr.NotFound("group not found")
		}
		return nil, storeErr("get group", err)
	}
	if group.UserID != userID {
		return nil, apperr.NotFound("group not found")
	}
	return group, nil
}
