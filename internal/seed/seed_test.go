package seed

import (
	"testing"

	"github.com/smallbiznis/propbill/internal/config"
	invoicedomain "github.com/smallbiznis/propbill/internal/invoice/domain"
	organizationdomain "github.com/smallbiznis/propbill/internal/organization/domain"
	"github.com/smallbiznis/propbill/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestEnsureMainOrgIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	node := testutil.NewNode(t)

	require.NoError(t, EnsureMainOrg(db, node, "eur"))
	require.NoError(t, EnsureMainOrg(db, node, "eur"))

	var orgs []organizationdomain.Organization
	require.NoError(t, db.Find(&orgs).Error)
	require.Len(t, orgs, 1)
	assert.Equal(t, "main", orgs[0].Slug)
	assert.Equal(t, "EUR", orgs[0].Currency)

	var members int64
	require.NoError(t, db.Model(&organizationdomain.OrganizationMember{}).Count(&members).Error)
	assert.EqualValues(t, 1, members)

	var seq invoicedomain.InvoiceSequence
	require.NoError(t, db.Where("org_id = ?", orgs[0].ID).First(&seq).Error)
	assert.EqualValues(t, 0, seq.LastValue)
}

func TestModuleSeedsOnlyWhenEnabled(t *testing.T) {
	for _, enabled := range []bool{false, true} {
		db := testutil.NewDB(t)
		billing := config.NewStaticBillingConfigHolder(config.BillingConfig{Currency: "usd"})

		app := fxtest.New(t,
			fx.Supply(
				db,
				config.Config{SeedDefaultOrg: enabled},
				billing,
				testutil.NewNode(t),
			),
			Module,
		)
		app.RequireStart()
		app.RequireStop()

		var count int64
		require.NoError(t, db.Model(&organizationdomain.Organization{}).Count(&count).Error)
		if enabled {
			assert.EqualValues(t, 1, count)
		} else {
			assert.Zero(t, count)
		}
	}
}
