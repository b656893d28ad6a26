package service

import (
	"context"
	"errors"
	"time"

	"github.com/adpanel/adpanel/internal/apperr"
	"github.com/adpanel/adpanel/internal/model"
	"github.com/adpanel/adpanel/internal/repository"
	"github.com/adpanel/adpanel/internal/storage"
)

// PlaybackContent is what a display needs to render a link.
type PlaybackContent struct {
	Code      string         `json:"code"`
	UserID    string         `json:"user_id"`
	GroupID   string         `json:"group_id"`
	GroupName string         `json:"group_name"`
	ExpiresAt time.Time      `json:"expires_at"`
	Media     []*model.Media `json:"media"`
}

// PlaybackService resolves public link codes. Every call reads the store;
// expiry is checked against the wall clock at request time.
type PlaybackService struct {
	store   *repository.Store
	storage storage.Storage
	now     func() time.Time
}

func NewPlaybackService(store *repository.Store, storage storage.Storage) *PlaybackService {
	return &PlaybackService{store: store, storage: storage, now: utcNow}
}

// Resolve returns the media behind code. An unknown code is NotFound and
// an expired one is Expired, so the display can tell them apart.
func (s *PlaybackService) Resolve(ctx context.Context, code string) (*PlaybackContent, error) {
	if !model.ValidLinkCode(code) {
		return nil, apperr.NotFound("link not found")
	}

	link, err := s.store.Links.ByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, apperr.NotFound("link not found")
		}
		return nil, storeErr("get link", err)
	}

	if link.IsExpired(s.now()) {
		return nil, apperr.Expired("link has expired")
	}

	group, err := s.store.Groups.ByID(ctx, link.GroupID)
	if err != nil {
		if errors.Is(err, repository.ErrGroupNotFound) {
			return nil, apperr.NotFound("link not found")
		}
		return nil, storeErr("get group", err)
	}

	media, err := s.store.Media.ListByGroup(ctx, link.UserID, link.GroupID)
	if err != nil {
		return nil, storeErr("list media", err)
	}
	for _, m := range media {
		m.URL = s.storage.URL(ctx, m.StoragePath)
	}

	return &PlaybackContent{
		Code:      link.Code,
		UserID:    link.UserID,
		GroupID:   link.GroupID,
		GroupName: group.Name,
		ExpiresAt: link.ExpiresAt,
		Media:     media,
	}, nil
}
