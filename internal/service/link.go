package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/adpanel/adpanel/internal/apperr"
	"github.com/adpanel/adpanel/internal/model"
	"github.com/adpanel/adpanel/internal/repository"
	"github.com/google/uuid"
)

// randomDraws is how many uniform draws the allocator makes before it
// switches to picking from the set of free codes.
const randomDraws = 16

var errCodeTaken = errors.New("link code taken")

// LinkResult is a link as returned to its owner.
type LinkResult struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	URL       string    `json:"url"`
	GroupID   string    `json:"group_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type LinkService struct {
	store       *repository.Store
	playbackURL func(code string) string
	ttl         time.Duration
	maxAttempts int
	intn        func(n int) int
	now         func() time.Time
}

func NewLinkService(store *repository.Store, playbackURL func(code string) string, ttl time.Duration, maxAttempts int) *LinkService {
	if maxAttempts <= 0 {
		maxAttempts = 64
	}
	return &LinkService{
		store:       store,
		playbackURL: playbackURL,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		intn:        rand.IntN,
		now:         utcNow,
	}
}

// Generate allocates a code in 1000-9999 that no unexpired link holds and
// binds it to groupID. Attempts are bounded; a saturated code space fails
// with CapacityExhausted instead of spinning.
func (s *LinkService) Generate(ctx context.Context, userID, groupID string) (*LinkResult, error) {
	if groupID == "" {
		return nil, apperr.Validation("group_id is required")
	}

	_, err := ownedGroup(ctx, s.store, userID, groupID)
	if err != nil {
		return nil, err
	}

	span := model.LinkCodeMax - model.LinkCodeMin + 1
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		var code string
		if attempt < randomDraws {
			code = strconv.Itoa(model.LinkCodeMin + s.intn(span))
		} else {
			code, err = s.drawFree(ctx)
			if err != nil {
				return nil, err
			}
		}

		link, err := s.claim(ctx, code, userID, groupID)
		if errors.Is(err, errCodeTaken) {
			continue
		}
		if err != nil {
			return nil, storeErr("create link", err)
		}

		slog.Info("link generated", "user_id", userID, "group_id", groupID, "code", link.Code, "attempts", attempt+1)
		return s.result(link), nil
	}

	slog.Warn("link allocation exhausted attempts", "user_id", userID, "attempts", s.maxAttempts)
	return nil, apperr.CapacityExhausted("no link codes available, try again later")
}

// claim evicts an expired holder of code, checks for a live one and
// inserts, all in one transaction. A concurrent claim of the same code
// loses on the unique constraint and is reported as errCodeTaken.
func (s *LinkService) claim(ctx context.Context, code, userID, groupID string) (*model.Link, error) {
	now := s.now()
	link := &model.Link{
		ID:        uuid.NewString(),
		Code:      code,
		UserID:    userID,
		GroupID:   groupID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		_, err := tx.Links.EvictExpiredCode(ctx, code, now)
		if err != nil {
			return err
		}

		active, err := tx.Links.CodeActive(ctx, code, now)
		if err != nil {
			return err
		}
		if active {
			return errCodeTaken
		}

		err = tx.Links.Create(ctx, link)
		if errors.Is(err, repository.ErrDuplicateCode) {
			return errCodeTaken
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return link, nil
}

// drawFree picks uniformly among codes no unexpired link holds.
func (s *LinkService) drawFree(ctx context.Context) (string, error) {
	codes, err := s.store.Links.ActiveCodes(ctx, s.now())
	if err != nil {
		return "", storeErr("list active codes", err)
	}

	taken := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		taken[c] = struct{}{}
	}

	free := make([]string, 0, model.LinkCodeMax-model.LinkCodeMin+1-len(taken))
	for n := model.LinkCodeMin; n <= model.LinkCodeMax; n++ {
		code := strconv.Itoa(n)
		if _, ok := taken[code]; !ok {
			free = append(free, code)
		}
	}
	if len(free) == 0 {
		return "", apperr.CapacityExhausted("no link codes available, try again later")
	}

	return free[s.intn(len(free))], nil
}

func (s *LinkService) List(ctx context.Context, userID string) ([]*LinkResult, error) {
	links, err := s.store.Links.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeErr("list links", err)
	}

	results := make([]*LinkResult, 0, len(links))
	for _, l := range links {
		results = append(results, s.result(l))
	}
	return results, nil
}

func (s *LinkService) Delete(ctx context.Context, userID, linkID string) error {
	link, err := s.store.Links.ByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return apperr.NotFound("link not found")
		}
		return storeErr("get link", err)
	}
	if link.UserID != userID {
		return apperr.NotFound("link not found")
	}

	err = s.store.Links.Delete(ctx, linkID)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return apperr.NotFound("link not found")
		}
		return storeErr("delete link", err)
	}
	return nil
}

// PurgeExpired deletes every expired link so its code can be reused.
func (s *LinkService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.Links.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, storeErr("purge expired links", err)
	}
	if n > 0 {
		slog.Info("expired links purged", "count", n)
	}
	return n, nil
}

func (s *LinkService) result(l *model.Link) *LinkResult {
	return &LinkResult{
		ID:        l.ID,
		Code:      l.Code,
		URL:       s.playbackURL(l.Code),
		GroupID:   l.GroupID,
		CreatedAt: l.CreatedAt,
		ExpiresAt: l.ExpiresAt,
	}
}
