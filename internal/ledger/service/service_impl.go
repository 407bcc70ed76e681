package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propbill/internal/clock"
	ledgerdomain "github.com/smallbiznis/propbill/internal/ledger/domain"
	"github.com/smallbiznis/propbill/internal/period"
	propertydomain "github.com/smallbiznis/propbill/internal/property/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        ledgerdomain.Repository
	PropertySvc propertydomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        ledgerdomain.Repository
	propertySvc propertydomain.Service
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("ledger.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		propertySvc: p.PropertySvc,
	}
}

func (s *Service) Create(ctx context.Context, req ledgerdomain.CreateEntryRequest) (*ledgerdomain.LedgerEntry, error) {
	if req.OrgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}
	if req.PropertyID == 0 {
		return nil, ledgerdomain.ErrInvalidProperty
	}
	if req.EntryDate.IsZero() {
		return nil, ledgerdomain.ErrInvalidEntryDate
	}

	if _, err := s.propertySvc.Get(ctx, req.OrgID, req.PropertyID); err != nil {
		if errors.Is(err, propertydomain.ErrPropertyNotFound) {
			return nil, ledgerdomain.ErrInvalidProperty
		}
		return nil, err
	}

	entry := ledgerdomain.LedgerEntry{
		ID:          s.genID.Generate(),
		OrgID:       req.OrgID,
		PropertyID:  req.PropertyID,
		AmountMinor: req.AmountMinor,
		EntryDate:   period.DateOnly(req.EntryDate),
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   s.clock.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Service) Delete(ctx context.Context, orgID, id snowflake.ID) error {
	if orgID == 0 {
		return ledgerdomain.ErrInvalidOrganization
	}
	affected, err := s.repo.Delete(ctx, s.db, orgID, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledgerdomain.ErrEntryNotFound
	}
	return nil
}

func (s *Service) List(ctx context.Context, filter ledgerdomain.ListFilter) ([]ledgerdomain.LedgerEntry, error) {
	if filter.OrgID == 0 {
		return nil, ledgerdomain.ErrInvalidOrganization
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, ledgerdomain.ErrInvalidTimeRange
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	entries := make([]ledgerdomain.LedgerEntry, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		entries = append(entries, *item)
	}
	return entries, nil
}

func (s *Service) Totals(ctx context.Context, orgID, propertyID snowflake.ID, from, to time.Time) (ledgerdomain.Totals, error) {
	if orgID == 0 {
		return ledgerdomain.Totals{}, ledgerdomain.ErrInvalidOrganization
	}
	if !from.Before(to) {
		return ledgerdomain.Totals{}, ledgerdomain.ErrInvalidTimeRange
	}
	return s.repo.SumWindow(ctx, s.db, orgID, propertyID, from, to)
}
