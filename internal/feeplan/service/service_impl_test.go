package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/propbill/internal/config"
	feeplandomain "github.com/smallbiznis/propbill/internal/feeplan/domain"
	"github.com/smallbiznis/propbill/internal/testutil/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFallsBackFromUserToOrgToDefault(t *testing.T) {
	e := enginetest.New(t, enginetest.Options{})
	ctx := context.Background()
	org := e.CreateOrg(t, "Resolver Org")
	user := e.Node.Generate()
	march := enginetest.Date(2025, time.March, 1)

	resolution, err := e.FeePlans.Resolve(ctx, org.ID, user, march)
	require.NoError(t, err)
	assert.True(t, resolution.Defaulted)
	assert.Equal(t, feeplandomain.TierLaunch, resolution.Tier)
	assert.Equal(t, 12, resolution.Percent)

	orgPlan := e.SetPlan(t, org.ID, 0, feeplandomain.TierMaximize, enginetest.Date(2024, time.December, 1))
	resolution, err = e.FeePlans.Resolve(ctx, org.ID, user, march)
	require.NoError(t, err)
	assert.False(t, resolution.Defaulted)
	assert.False(t, resolution.UserScoped)
	assert.Equal(t, orgPlan.ID, resolution.PlanID)
	assert.Equal(t, 22, resolution.Percent)

	e.SetPlan(t, org.ID, user, feeplandomain.TierElevate, enginetest.Date(2025, time.January, 15))
	percent, err := e.FeePlans.ResolvePercent(ctx, org.ID, user, march)
	require.NoError(t, err)
	assert.Equal(t, 18, percent)
}

func TestResolveNeverPicksFuturePlans(t *testing.T) {
	e := enginetest.New(t, enginetest.Options{})
	ctx := context.Background()
	org := e.CreateOrg(t, "Future Org")

	e.SetPlan(t, org.ID, 0, feeplandomain.TierElevate, enginetest.Date(2025, time.January, 1))
	e.SetPlan(t, org.ID, 0, feeplandomain.TierMaximize, enginetest.Date(2025, time.March, 2))

	percent, err := e.FeePlans.ResolvePercent(ctx, org.ID, 0, enginetest.Date(2025, time.March, 1))
	require.NoError(t, err)
	assert.Equal(t, 18, percent)

	percent, err = e.FeePlans.ResolvePercent(ctx, org.ID, 0, enginetest.Date(2025, time.March, 2))
	require.NoError(t, err)
	assert.Equal(t, 22, percent)
}

func TestUpsertSameDayUpdatesInPlace(t *testing.T) {
	e := enginetest.New(t, enginetest.Options{})
	ctx := context.Background()
	org := e.CreateOrg(t, "Upsert Org")
	day := enginetest.Date(2025, time.February, 1)

	first := e.SetPlan(t, org.ID, 0, feeplandomain.TierLaunch, day)
	second := e.SetPlan(t, org.ID, 0, feeplandomain.TierMaximize, day.Add(13*time.Hour))

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, feeplandomain.TierMaximize, second.Tier)
	assert.Equal(t, 22, second.Percent)

	plans, err := e.FeePlans.List(ctx, org.ID, nil)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

func TestUpsertValidation(t *testing.T) {
	e := enginetest.New(t, enginetest.Options{})
	ctx := context.Background()
	org := e.CreateOrg(t, "Validation Org")

	_, err := e.FeePlans.Upsert(ctx, feeplandomain.UpsertRequest{OrgID: org.ID, Tier: "platinum", EffectiveDate: time.Now()})
	assert.ErrorIs(t, err, feeplandomain.ErrInvalidTier)

	_, err = e.FeePlans.Upsert(ctx, feeplandomain.UpsertRequest{OrgID: org.ID, Tier: "launch"})
	assert.ErrorIs(t, err, feeplandomain.ErrInvalidEffectiveDate)

	_, err = e.FeePlans.Upsert(ctx, feeplandomain.UpsertRequest{Tier: "launch", EffectiveDate: time.Now()})
	assert.ErrorIs(t, err, feeplandomain.ErrInvalidOrganization)
}

func TestResolveUsesConfiguredDefaultTier(t *testing.T) {
	cfg := config.DefaultBillingConfig()
	cfg.DefaultTier = "elevate"
	e := enginetest.New(t, enginetest.Options{Billing: cfg})
	org := e.CreateOrg(t, "Default Org")

	resolution, err := e.FeePlans.Resolve(context.Background(), org.ID, 0, enginetest.Date(2025, time.March, 1))
	require.NoError(t, err)
	assert.True(t, resolution.Defaulted)
	assert.Equal(t, 18, resolution.Percent)
}
