package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/propbill/internal/invoice/domain"
	organizationdomain "github.com/smallbiznis/propbill/internal/organization/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultOrgName  = "Main"
	defaultOrgSlug  = "main"
	defaultCurrency = "USD"
	// DefaultAdminUserID is the platform user granted admin on the seeded org.
	DefaultAdminUserID snowflake.ID = 1
)

// EnsureMainOrg seeds the default organization, its admin member and its
// invoice counter. It is safe to call on every startup.
func EnsureMainOrg(db *gorm.DB, node *snowflake.Node, currency string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id generator is required")
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		currency = defaultCurrency
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := ensureMainOrgTx(ctx, tx, node, currency)
		if err != nil {
			return err
		}
		if err := ensureAdminMemberTx(ctx, tx, node, org.ID); err != nil {
			return err
		}
		return ensureInvoiceSequenceTx(ctx, tx, org.ID)
	})
}

func ensureMainOrgTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, currency string) (organizationdomain.Organization, error) {
	var org organizationdomain.Organization
	err := tx.WithContext(ctx).Where("slug = ?", defaultOrgSlug).First(&org).Error
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return org, err
	}
	org = organizationdomain.Organization{
		ID:        node.Generate(),
		Name:      defaultOrgName,
		Slug:      defaultOrgSlug,
		Currency:  currency,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(&org).Error; err != nil {
		return org, err
	}
	return org, nil
}

func ensureAdminMemberTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID snowflake.ID) error {
	member := organizationdomain.OrganizationMember{
		ID:        node.Generate(),
		OrgID:     orgID,
		UserID:    DefaultAdminUserID,
		Role:      organizationdomain.RoleAdmin,
		CreatedAt: time.Now().UTC(),
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "org_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&member).Error
}

func ensureInvoiceSequenceTx(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) error {
	seq := invoicedomain.InvoiceSequence{
		OrgID:     orgID,
		LastValue: 0,
		UpdatedAt: time.Now().UTC(),
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "org_id"}},
			DoNothing: true,
		}).
		Create(&seq).Error
}
