package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/adpanel/adpanel/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageCatalogue(t *testing.T) {
	ctx := context.Background()
	svc := NewPackageService(newTestStore(t))

	pkg, err := svc.Create(ctx, PackageInput{
		Name:         "Starter",
		Features:     json.RawMessage(`{"screens": 2, "video": true}`),
		Price:        499.99,
		DurationDays: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(49999), pkg.Price)
	assert.True(t, pkg.Active)

	active := false
	_, err = svc.Create(ctx, PackageInput{Name: "Legacy", Price: 10, DurationDays: 7, Active: &active})
	require.NoError(t, err)

	listed, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.JSONEq(t, `{"screens": 2, "video": true}`, string(listed[0].Features))

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	updated, err := svc.Update(ctx, pkg.ID, PackageInput{Name: "Starter+", Price: 599, DurationDays: 60})
	require.NoError(t, err)
	assert.Equal(t, int64(59900), updated.Price)
	assert.JSONEq(t, `{}`, string(updated.Features))

	require.NoError(t, svc.Deactivate(ctx, pkg.ID))
	listed, err = svc.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, listed)

	err = svc.Deactivate(ctx, "missing")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestPackageValidation(t *testing.T) {
	svc := NewPackageService(newTestStore(t))

	for name, in := range map[string]PackageInput{
		"missing name":     {Price: 1, DurationDays: 1},
		"negative price":   {Name: "x", Price: -1, DurationDays: 1},
		"zero duration":    {Name: "x", Price: 1},
		"huge price":       {Name: "x", Price: 1e17, DurationDays: 30},
		"huge duration":    {Name: "x", Price: 1, DurationDays: 200000},
		"features array":   {Name: "x", Price: 1, DurationDays: 1, Features: json.RawMessage(`[1,2]`)},
		"features garbage": {Name: "x", Price: 1, DurationDays: 1, Features: json.RawMessage(`{oops`)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), in)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}
