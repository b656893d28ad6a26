package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"strings"

	"github.com/adpanel/adpanel/internal/apperr"
	"github.com/adpanel/adpanel/internal/model"
	"github.com/adpanel/adpanel/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

// PackageInput is an admin's package definition. Price is in major
// currency units and is stored in minor units.
type PackageInput struct {
	Name         string          `json:"name"`
	Features     json.RawMessage `json:"features"`
	Price        float64         `json:"price"`
	DurationDays int             `json:"duration_days"`
	Active       *bool           `json:"active"`
}

const (
	// maxPrice is the largest accepted amount in major units.
	maxPrice        = 1e9
	maxDurationDays = 36500
)

type PackageService struct {
	store *repository.Store
}

func NewPackageService(store *repository.Store) *PackageService {
	return &PackageService{store: store}
}

func (s *PackageService) List(ctx context.Context, activeOnly bool) ([]*model.Package, error) {
	packages, err := s.store.Packages.List(ctx, activeOnly)
	if err != nil {
		return nil, storeErr("list packages", err)
	}
	return packages, nil
}

func (s *PackageService) Create(ctx context.Context, in PackageInput) (*model.Package, error) {
	features, err := validatePackage(&in)
	if err != nil {
		return nil, err
	}

	now := utcNow()
	pkg := &model.Package{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Features:     features,
		Price:        toMinorUnits(in.Price),
		DurationDays: in.DurationDays,
		Active:       in.Active == nil || *in.Active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.store.Packages.Create(ctx, pkg)
	if err != nil {
		return nil, storeErr("create package", err)
	}

	slog.Info("package created", "package_id", pkg.ID, "name", pkg.Name, "price", pkg.Price)
	return pkg, nil
}

func (s *PackageService) Update(ctx context.Context, id string, in PackageInput) (*model.Package, error) {
	features, err := validatePackage(&in)
	if err != nil {
		return nil, err
	}

	pkg, err := s.byID(ctx, id)
	if err != nil {
		return nil, err
	}

	pkg.Name = in.Name
	pkg.Features = features
	pkg.Price = toMinorUnits(in.Price)
	pkg.DurationDays = in.DurationDays
	if in.Active != nil {
		pkg.Active = *in.Active
	}
	pkg.UpdatedAt = utcNow()

	err = s.save(ctx, pkg)
	if err != nil {
		return nil, err
	}
	return pkg, nil
}

// Deactivate hides a package from the catalogue. Existing subscriptions
// and payments keep referencing it.
func (s *PackageService) Deactivate(ctx context.Context, id string) error {
	pkg, err := s.byID(ctx, id)
	if err != nil {
		return err
	}

	pkg.Active = false
	pkg.UpdatedAt = utcNow()
	return s.save(ctx, pkg)
}

func (s *PackageService) byID(ctx context.Context, id string) (*model.Package, error) {
	pkg, err := s.store.Packages.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPackageNotFound) {
			return nil, apperr.NotFound("package not found")
		}
		return nil, storeErr("get package", err)
	}
	return pkg, nil
}

func (s *PackageService) save(ctx context.Context, pkg *model.Package) error {
	err := s.store.Packages.Update(ctx, pkg)
	if err != nil {
		if errors.Is(err, repository.ErrPackageNotFound) {
			return apperr.NotFound("package not found")
		}
		return storeErr("update package", err)
	}
	return nil
}

func validatePackage(in *PackageInput) (types.JSONText, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperr.Validation("name is required")
	}
	if in.Price < 0 || math.IsNaN(in.Price) || math.IsInf(in.Price, 0) {
		return nil, apperr.Validation("price must not be negative")
	}
	if in.Price > maxPrice {
		return nil, apperr.Validation("price is too large")
	}
	if in.DurationDays < 1 {
		return nil, apperr.Validation("duration_days must be at least 1")
	}
	if in.DurationDays > maxDurationDays {
		return nil, apperr.Validation("duration_days must be at most 36500")
	}

	raw := bytes.TrimSpace(in.Features)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return types.JSONText("{}"), nil
	}
	var features map[string]any
	if err := json.Unmarshal(raw, &features); err != nil {
		return nil, apperr.Validation("features must be a JSON object")
	}
	return types.JSONText(raw), nil
}

func toMinorUnits(major float64) int64 {
	return int64(math.Round(major * 100))
}
