package authorization

import (
	"context"
	"errors"
)

// Service decides whether an actor may perform an action inside an organization.
type Service interface {
	// Authorize returns nil when allowed and ErrForbidden otherwise.
	// Actors are "system" or "user:<snowflake id>".
	Authorize(ctx context.Context, actor string, orgID string, object string, action string) error
}

var (
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidObject       = errors.New("invalid_object")
	ErrInvalidAction       = errors.New("invalid_action")
	ErrForbidden           = errors.New("forbidden")
)
