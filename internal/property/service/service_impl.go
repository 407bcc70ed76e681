package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propbill/internal/clock"
	propertydomain "github.com/smallbiznis/propbill/internal/property/domain"
	"github.com/smallbiznis/propbill/pkg/db/option"
	"github.com/smallbiznis/propbill/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	repo repository.Repository[propertydomain.Property]
}

func NewService(p Params) propertydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("property.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  repository.ProvideStore[propertydomain.Property](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req propertydomain.CreatePropertyRequest) (*propertydomain.Property, error) {
	if req.OrgID == 0 {
		return nil, propertydomain.ErrInvalidOrganization
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, propertydomain.ErrInvalidName
	}

	property := propertydomain.Property{
		ID:          s.genID.Generate(),
		OrgID:       req.OrgID,
		OwnerUserID: req.OwnerUserID,
		Name:        name,
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := s.repo.Create(ctx, &property); err != nil {
		return nil, err
	}
	return &property, nil
}

func (s *Service) Get(ctx context.Context, orgID, id snowflake.ID) (*propertydomain.Property, error) {
	if orgID == 0 {
		return nil, propertydomain.ErrInvalidOrganization
	}
	if id == 0 {
		return nil, propertydomain.ErrInvalidProperty
	}
	item, err := s.repo.FindOne(ctx, &propertydomain.Property{ID: id, OrgID: orgID})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, propertydomain.ErrPropertyNotFound
	}
	return item, nil
}

func (s *Service) List(ctx context.Context, orgID snowflake.ID) ([]propertydomain.Property, error) {
	if orgID == 0 {
		return nil, propertydomain.ErrInvalidOrganization
	}
	items, err := s.repo.Find(ctx, &propertydomain.Property{OrgID: orgID},
		option.WithSortBy(option.QuerySortBy{Field: "name", Allow: map[string]bool{"name": true}}),
	)
	if err != nil {
		return nil, err
	}
	properties := make([]propertydomain.Property, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		properties = append(properties, *item)
	}
	return properties, nil
}

func (s *Service) Count(ctx context.Context, orgID snowflake.ID) (int64, error) {
	if orgID == 0 {
		return 0, propertydomain.ErrInvalidOrganization
	}
	return s.repo.Count(ctx, &propertydomain.Property{OrgID: orgID})
}

func (s *Service) Delete(ctx context.Context, orgID, id snowflake.ID) error {
	if _, err := s.Get(ctx, orgID, id); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`DELETE FROM ledger_entries WHERE org_id = ? AND property_id = ?`, orgID, id).Error; err != nil {
			return err
		}
		if err := tx.Exec(`DELETE FROM bookings WHERE org_id = ? AND property_id = ?`, orgID, id).Error; err != nil {
			return err
		}
		return s.repo.WithTrx(tx).Delete(ctx, int64(id))
	})
	if err != nil {
		return err
	}

	s.log.Info("property deleted",
		zap.String("org_id", orgID.String()),
		zap.String("property_id", id.String()),
	)
	return nil
}
