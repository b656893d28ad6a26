package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"time"

	"github.com/adpanel/adpanel/internal/apperr"
	"github.com/adpanel/adpanel/internal/model"
	"github.com/adpanel/adpanel/internal/realtime"
	"github.com/adpanel/adpanel/internal/repository"
	"github.com/adpanel/adpanel/internal/storage"
	"github.com/adpanel/adpanel/internal/validation"
	"github.com/google/uuid"
)

type MediaService struct {
	store     *repository.Store
	storage   storage.Storage
	publisher realtime.Publisher
	now       func() time.Time
}

func NewMediaService(store *repository.Store, storage storage.Storage, publisher realtime.Publisher) *MediaService {
	return &MediaService{
		store:     store,
		storage:   storage,
		publisher: publisher,
		now:       utcNow,
	}
}

type upload struct {
	header   *multipart.FileHeader
	detected *validation.DetectedFile
	media    *model.Media
}

// Upload stores a batch of files for userID, optionally into groupID. The
// batch is all or nothing: every file is validated before anything is
// stored, and rows are written in one transaction. One media_updated event
// is published per successful batch.
func (s *MediaService) Upload(ctx context.Context, userID, groupID string, files []*multipart.FileHeader) ([]*model.Media, error) {
	if len(files) == 0 {
		return nil, apperr.Validation("at least one file is required")
	}

	var groupRef *string
	if groupID != "" {
		_, err := ownedGroup(ctx, s.store, userID, groupID)
		if err != nil {
			return nil, err
		}
		groupRef = &groupID
	}

	uploads := make([]*upload, 0, len(files))
	for _, header := range files {
		detected, err := validation.ValidateFile(header, validation.ImageConstraints, validation.VideoConstraints)
		if err != nil {
			return nil, apperr.Validation(err.Error())
		}
		uploads = append(uploads, &upload{header: header, detected: detected})
	}

	now := s.now()
	var saved []string
	cleanup := func() {
		for _, key := range saved {
			delErr := s.storage.Delete(context.WithoutCancel(ctx), key)
			if delErr != nil {
				slog.Error("failed to delete file from storage during cleanup", "error", delErr, "path", key)
			}
		}
	}

	for _, u := range uploads {
		filename := uuid.NewString() + u.detected.Ext
		key := fmt.Sprintf("media/%s/%s", userID, filename)

		err := s.save(ctx, key, u)
		if err != nil {
			cleanup()
			return nil, apperr.Wrap(apperr.KindStore, "failed to store file", err)
		}
		saved = append(saved, key)

		u.media = &model.Media{
			ID:           uuid.Must(uuid.NewV7()).String(),
			UserID:       userID,
			GroupID:      groupRef,
			Type:         u.detected.MediaType,
			Filename:     filename,
			OriginalName: u.header.Filename,
			MimeType:     u.detected.MimeType,
			Size:         u.header.Size,
			StoragePath:  key,
			CreatedAt:    now,
		}
	}

	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		for _, u := range uploads {
			err := tx.Media.Create(ctx, u.media)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		cleanup()
		return nil, storeErr("create media records", err)
	}

	media := make([]*model.Media, 0, len(uploads))
	for _, u := range uploads {
		u.media.URL = s.storage.URL(ctx, u.media.StoragePath)
		media = append(media, u.media)
	}

	s.publish(ctx, userID, groupID)
	slog.Info("media uploaded", "user_id", userID, "group_id", groupID, "count", len(media))
	return media, nil
}

func (s *MediaService) save(ctx context.Context, key string, u *upload) error {
	file, err := u.header.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() { _ = file.Close() }()

	return s.storage.Save(ctx, key, file, u.detected.MimeType)
}

// List returns all of userID's media in storage order.
func (s *MediaService) List(ctx context.Context, userID string) ([]*model.Media, error) {
	media, err := s.store.Media.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeErr("list media", err)
	}

	for _, m := range media {
		m.URL = s.storage.URL(ctx, m.StoragePath)
	}
	return media, nil
}

// Reassign moves a media item into groupID, or out of any group when
// groupID is nil or empty. Displays of both the old and new group are
// notified.
func (s *MediaService) Reassign(ctx context.Context, userID, mediaID string, groupID *string) (*model.Media, error) {
	media, err := s.ownedMedia(ctx, userID, mediaID)
	if err != nil {
		return nil, err
	}

	if groupID != nil && *groupID == "" {
		groupID = nil
	}
	if groupID != nil {
		_, err = ownedGroup(ctx, s.store, userID, *groupID)
		if err != nil {
			return nil, err
		}
	}

	err = s.store.Media.UpdateGroup(ctx, mediaID, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return nil, apperr.NotFound("media not found")
		}
		return nil, storeErr("update media", err)
	}

	previous := media.GroupID
	media.GroupID = groupID
	media.URL = s.storage.URL(ctx, media.StoragePath)

	if previous != nil {
		s.publish(ctx, userID, *previous)
	}
	if groupID != nil && (previous == nil || *previous != *groupID) {
		s.publish(ctx, userID, *groupID)
	}

	return media, nil
}

// Delete removes a media item and its stored object.
func (s *MediaService) Delete(ctx context.Context, userID, mediaID string) error {
	media, err := s.ownedMedia(ctx, userID, mediaID)
	if err != nil {
		return err
	}

	err = s.store.Media.Delete(ctx, mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return apperr.NotFound("media not found")
		}
		return storeErr("delete media record", err)
	}

	// Row is gone; the stored object is removed best effort.
	delErr := s.storage.Delete(ctx, media.StoragePath)
	if delErr != nil {
		slog.Error("failed to delete file from storage", "error", delErr, "path", media.StoragePath)
	}

	if media.GroupID != nil {
		s.publish(ctx, userID, *media.GroupID)
	}
	return nil
}

func (s *MediaService) ownedMedia(ctx context.Context, userID, mediaID string) (*model.Media, error) {
	media, err := s.store.Media.ByID(ctx, mediaID)
	if err != nil {
		if errors.Is(err, repository.ErrMediaNotFound) {
			return nil, apperr.NotFound("media not found")
		}
		return nil, storeErr("get media", err)
	}
	if media.UserID != userID {
		return nil, apperr.NotFound("media not found")
	}
	return media, nil
}

// publish is best effort: a broadcast failure never fails the mutation
// that triggered it.
func (s *MediaService) publish(ctx context.Context, userID, groupID string) {
	err := s.publisher.Publish(ctx, userID, realtime.MediaUpdated(groupID))
	if err != nil {
		slog.Warn("failed to publish media update", "error", err, "user_id", userID, "group_id", groupID)
	}
}
