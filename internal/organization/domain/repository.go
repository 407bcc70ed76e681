package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrganization(ctx context.Context, org Organization) error
	FindByID(ctx context.Context, id snowflake.ID) (*Organization, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	ListIDs(ctx context.Context) ([]snowflake.ID, error)
	UpsertMember(ctx context.Context, member OrganizationMember) error
	FindMemberRole(ctx context.Context, orgID, userID snowflake.ID) (string, error)
}
