package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/propbill/internal/clock"
	"github.com/smallbiznis/propbill/internal/config"
	"github.com/smallbiznis/propbill/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    domain.Repository
	GenID   *snowflake.Node
	Clock   clock.Clock
	Billing *config.BillingConfigHolder `optional:"true"`
}

type service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	genID   *snowflake.Node
	clock   clock.Clock
	billing *config.BillingConfigHolder
}

func NewService(p Params) domain.Service {
	return &service{
		db:      p.DB,
		log:     p.Log.Named("organization.service"),
		repo:    p.Repo,
		genID:   p.GenID,
		clock:   p.Clock,
		billing: p.Billing,
	}
}

func (s *service) Create(ctx context.Context, ownerUserID snowflake.ID, req domain.CreateOrganizationRequest) (*domain.Organization, error) {
	if ownerUserID == 0 {
		return nil, domain.ErrInvalidUser
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.billing.Get().Currency
	}
	if len(currency) != 3 {
		return nil, domain.ErrInvalidCurrency
	}

	email := strings.TrimSpace(req.BillingEmail)
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, domain.ErrInvalidEmail
		}
	}

	orgSlug, err := s.uniqueSlug(ctx, name)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	org := domain.Organization{
		ID:           s.genID.Generate(),
		Name:         name,
		Slug:         orgSlug,
		Currency:     currency,
		BillingEmail: email,
		CreatedAt:    now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrganization(ctx, org); err != nil {
			return err
		}
		return repo.UpsertMember(ctx, domain.OrganizationMember{
			ID:        s.genID.Generate(),
			OrgID:     org.ID,
			UserID:    ownerUserID,
			Role:      domain.RoleAdmin,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("organization created",
		zap.String("org_id", org.ID.String()),
		zap.String("slug", org.Slug),
	)
	return &org, nil
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	if id == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	org, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.ErrOrganizationNotFound
	}
	return org, nil
}

func (s *service) ListIDs(ctx context.Context) ([]snowflake.ID, error) {
	return s.repo.ListIDs(ctx)
}

func (s *service) AddMember(ctx context.Context, orgID, userID snowflake.ID, role string) error {
	if orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	if userID == 0 {
		return domain.ErrInvalidUser
	}
	role = strings.ToLower(strings.TrimSpace(role))
	switch role {
	case domain.RoleAdmin, domain.RoleMember:
	default:
		return domain.ErrInvalidRole
	}

	if _, err := s.GetByID(ctx, orgID); err != nil {
		return err
	}

	return s.repo.UpsertMember(ctx, domain.OrganizationMember{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		UserID:    userID,
		Role:      role,
		CreatedAt: s.clock.Now().UTC(),
	})
}

func (s *service) MemberRole(ctx context.Context, orgID, userID snowflake.ID) (string, error) {
	if orgID == 0 || userID == 0 {
		return "", nil
	}
	return s.repo.FindMemberRole(ctx, orgID, userID)
}

func (s *service) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "org"
	}
	candidate := base
	for i := 2; i < 100; i++ {
		exists, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return fmt.Sprintf("%s-%d", base, s.clock.Now().UnixNano()), nil
}
