package authorization_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/smallbiznis/propbill/internal/authorization"
	"github.com/smallbiznis/propbill/internal/testutil/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeByMemberRole(t *testing.T) {
	e := enginetest.New(t, enginetest.Options{})
	ctx := context.Background()
	org := e.CreateOrg(t, "Authz Org")
	orgID := org.ID.String()

	admin := e.Node.Generate()
	member := e.Node.Generate()
	outsider := e.Node.Generate()
	require.NoError(t, e.Organizations.AddMember(ctx, org.ID, admin, "admin"))
	require.NoError(t, e.Organizations.AddMember(ctx, org.ID, member, "member"))

	adminActor := fmt.Sprintf("user:%s", admin)
	memberActor := fmt.Sprintf("user:%s", member)

	assert.NoError(t, e.Authz.Authorize(ctx, adminActor, orgID, authorization.ObjectInvoice, authorization.ActionInvoiceSetStatus))
	assert.NoError(t, e.Authz.Authorize(ctx, adminActor, orgID, authorization.ObjectFeePlan, authorization.ActionFeePlanReapply))
	assert.NoError(t, e.Authz.Authorize(ctx, memberActor, orgID, authorization.ObjectInvoice, authorization.ActionInvoiceGenerate))
	assert.NoError(t, e.Authz.Authorize(ctx, memberActor, orgID, authorization.ObjectKPI, authorization.ActionKPIView))

	for _, action := range []string{
		authorization.ActionInvoiceSetStatus,
		authorization.ActionInvoiceDelete,
	} {
		err := e.Authz.Authorize(ctx, memberActor, orgID, authorization.ObjectInvoice, action)
		assert.ErrorIs(t, err, authorization.ErrForbidden, action)
	}
	assert.ErrorIs(t, e.Authz.Authorize(ctx, memberActor, orgID, authorization.ObjectPayment, authorization.ActionPaymentRemove), authorization.ErrForbidden)
	assert.ErrorIs(t, e.Authz.Authorize(ctx, memberActor, orgID, authorization.ObjectFeePlan, authorization.ActionFeePlanUpsert), authorization.ErrForbidden)

	err := e.Authz.Authorize(ctx, fmt.Sprintf("user:%s", outsider), orgID, authorization.ObjectInvoice, authorization.ActionInvoiceView)
	assert.ErrorIs(t, err, authorization.ErrForbidden)
}

func TestAuthorizeFollowsRoleChanges(t *testing.T) {
	e := enginetest.New(t, enginetest.Options{})
	ctx := context.Background()
	org := e.CreateOrg(t, "Role Change Org")
	user := e.Node.Generate()
	actor := fmt.Sprintf("user:%s", user)

	require.NoError(t, e.Organizations.AddMember(ctx, org.ID, user, "admin"))
	require.NoError(t, e.Authz.Authorize(ctx, actor, org.ID.String(), authorization.ObjectInvoice, authorization.ActionInvoiceDelete))

	require.NoError(t, e.Organizations.AddMember(ctx, org.ID, user, "member"))
	err := e.Authz.Authorize(ctx, actor, org.ID.String(), authorization.ObjectInvoice, authorization.ActionInvoiceDelete)
	assert.ErrorIs(t, err, authorization.ErrForbidden)
}

func TestAuthorizeSystemActor(t *testing.T) {
	e := enginetest.New(t, enginetest.Options{})
	org := e.CreateOrg(t, "System Org")

	err := e.Authz.Authorize(context.Background(), "system", org.ID.String(), authorization.ObjectFeePlan, authorization.ActionFeePlanReapply)
	assert.NoError(t, err)
}

func TestAuthorizeRejectsMalformedInput(t *testing.T) {
	e := enginetest.New(t, enginetest.Options{})
	ctx := context.Background()
	org := e.CreateOrg(t, "Input Org")

	assert.ErrorIs(t, e.Authz.Authorize(ctx, "", org.ID.String(), authorization.ObjectKPI, authorization.ActionKPIView), authorization.ErrInvalidActor)
	assert.ErrorIs(t, e.Authz.Authorize(ctx, "robot:1", org.ID.String(), authorization.ObjectKPI, authorization.ActionKPIView), authorization.ErrInvalidActor)
	assert.ErrorIs(t, e.Authz.Authorize(ctx, "user:abc", org.ID.String(), authorization.ObjectKPI, authorization.ActionKPIView), authorization.ErrInvalidActor)
	assert.ErrorIs(t, e.Authz.Authorize(ctx, "system", "", authorization.ObjectKPI, authorization.ActionKPIView), authorization.ErrInvalidOrganization)
	assert.ErrorIs(t, e.Authz.Authorize(ctx, "system", org.ID.String(), "", authorization.ActionKPIView), authorization.ErrInvalidObject)
}
