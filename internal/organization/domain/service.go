package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleSystem = "system"
)

type Service interface {
	Create(ctx context.Context, ownerUserID snowflake.ID, req CreateOrganizationRequest) (*Organization, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Organization, error)
	ListIDs(ctx context.Context) ([]snowflake.ID, error)
	AddMember(ctx context.Context, orgID, userID snowflake.ID, role string) error
	// MemberRole returns "" when the user does not belong to the organization.
	MemberRole(ctx context.Context, orgID, userID snowflake.ID) (string, error)
}

type CreateOrganizationRequest struct {
	Name         string `json:"name"`
	Currency     string `json:"currency"`
	BillingEmail string `json:"billing_email"`
}

var (
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidCurrency      = errors.New("invalid_currency")
	ErrInvalidUser          = errors.New("invalid_user")
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrInvalidEmail         = errors.New("invalid_email")
	ErrInvalidRole          = errors.New("invalid_role")
	ErrOrganizationNotFound = errors.New("organization_not_found")
)
