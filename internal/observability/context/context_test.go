package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))

	ctx = WithRequestID(ctx, " req-1 ")
	ctx = WithOrgID(ctx, "42")
	ctx = WithActor(ctx, "user", "7")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "42", OrgIDFromContext(ctx))
	actorType, actorID := ActorFromContext(ctx)
	assert.Equal(t, "user", actorType)
	assert.Equal(t, "7", actorID)

	assert.Equal(t, ctx, WithActor(ctx, "", "8"))
}
