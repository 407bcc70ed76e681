package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/propbill/internal/audit/domain"
	organizationdomain "github.com/smallbiznis/propbill/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectOrganization = "organization"
	ObjectInvoice      = "invoice"
	ObjectPayment      = "payment"
	ObjectFeePlan      = "fee_plan"
	ObjectKPI          = "kpi"
	ObjectProperty     = "property"
	ObjectLedger       = "ledger"
	ObjectBooking      = "booking"
	ObjectAuditLog     = "audit_log"
)

const (
	ActionOrganizationView   = "organization.view"
	ActionOrganizationManage = "organization.manage"

	ActionInvoiceView      = "invoice.view"
	ActionInvoiceGenerate  = "invoice.generate"
	ActionInvoiceSetStatus = "invoice.set_status"
	ActionInvoiceDelete    = "invoice.delete"

	ActionPaymentView   = "payment.view"
	ActionPaymentApply  = "payment.apply"
	ActionPaymentRemove = "payment.remove"

	ActionFeePlanView    = "fee_plan.view"
	ActionFeePlanUpsert  = "fee_plan.upsert"
	ActionFeePlanReapply = "fee_plan.reapply"

	ActionKPIView = "kpi.view"

	ActionPropertyView   = "property.view"
	ActionPropertyManage = "property.manage"

	ActionLedgerView   = "ledger.view"
	ActionLedgerManage = "ledger.manage"

	ActionBookingView   = "booking.view"
	ActionBookingManage = "booking.manage"

	ActionAuditLogView = "audit_log.view"
)

const (
	RoleAdmin  = "role:admin"
	RoleMember = "role:member"
	RoleSystem = "role:system"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	OrgSvc   organizationdomain.Service
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	orgSvc   organizationdomain.Service
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		orgSvc:   p.OrgSvc,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, orgID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return ErrInvalidOrganization
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, actorType, actorID, err := s.resolveActor(ctx, actor, orgID)
	if err != nil {
		s.auditDecision(ctx, "authorization.denied", actorType, actorID, orgID, object, action)
		return err
	}

	domain := fmt.Sprintf("org:%s", orgID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("subject", subject),
			zap.String("org_id", orgID),
			zap.String("action", action),
		)
		s.auditDecision(ctx, "authorization.denied", actorType, actorID, orgID, object, action)
		return ErrForbidden
	}

	if shouldAuditGrant(action) {
		s.auditDecision(ctx, "authorization.granted", actorType, actorID, orgID, object, action)
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string, orgID string) (string, string, string, *string, error) {
	if actor == "system" {
		return actor, RoleSystem, "system", nil, nil
	}
	if strings.HasPrefix(actor, "user:") {
		userID, err := snowflake.ParseString(strings.TrimPrefix(actor, "user:"))
		if err != nil || userID == 0 {
			return "", "", "", nil, ErrInvalidActor
		}
		userIDStr := userID.String()
		subject := fmt.Sprintf("user:%s", userIDStr)
		parsedOrgID, err := snowflake.ParseString(orgID)
		if err != nil || parsedOrgID == 0 {
			return subject, "", "user", &userIDStr, ErrInvalidOrganization
		}
		role, err := s.roleForUser(ctx, parsedOrgID, userID)
		if err != nil {
			return subject, "", "user", &userIDStr, err
		}
		return subject, fmt.Sprintf("role:%s", role), "user", &userIDStr, nil
	}
	return "", "", "", nil, ErrInvalidActor
}

func (s *ServiceImpl) roleForUser(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (string, error) {
	if s.orgSvc == nil {
		return "", ErrForbidden
	}
	role, err := s.orgSvc.MemberRole(ctx, orgID, userID)
	if err != nil {
		return "", err
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

// ensureGrouping keeps exactly one role link per subject and org.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDecision(ctx context.Context, auditAction string, actorType string, actorID *string, orgID string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	parsedOrgID, err := snowflake.ParseString(orgID)
	if err != nil || parsedOrgID == 0 {
		return
	}
	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		OrgID:      parsedOrgID,
		ActorType:  actorType,
		ActorID:    actorID,
		Action:     auditAction,
		TargetType: auditdomain.TargetAuthorization,
		TargetID:   "capability",
		Metadata: map[string]any{
			"object":  object,
			"action":  action,
			"actor":   actorType,
			"subject": actorSubject(actorType, actorID),
		},
	})
}

func actorSubject(actorType string, actorID *string) string {
	switch actorType {
	case "system":
		return "system"
	case "user":
		if actorID != nil && strings.TrimSpace(*actorID) != "" {
			return fmt.Sprintf("user:%s", strings.TrimSpace(*actorID))
		}
	}
	return ""
}

func shouldAuditGrant(action string) bool {
	switch action {
	case ActionInvoiceSetStatus, ActionInvoiceDelete, ActionFeePlanReapply, ActionPaymentRemove:
		return true
	default:
		return false
	}
}

func memberPolicies(role string) [][]string {
	return [][]string{
		{role, ObjectOrganization, ActionOrganizationView},
		{role, ObjectInvoice, ActionInvoiceView},
		{role, ObjectInvoice, ActionInvoiceGenerate},
		{role, ObjectPayment, ActionPaymentView},
		{role, ObjectPayment, ActionPaymentApply},
		{role, ObjectFeePlan, ActionFeePlanView},
		{role, ObjectKPI, ActionKPIView},
		{role, ObjectProperty, ActionPropertyView},
		{role, ObjectProperty, ActionPropertyManage},
		{role, ObjectLedger, ActionLedgerView},
		{role, ObjectLedger, ActionLedgerManage},
		{role, ObjectBooking, ActionBookingView},
		{role, ObjectBooking, ActionBookingManage},
	}
}

func adminPolicies(role string) [][]string {
	return [][]string{
		{role, ObjectInvoice, ActionInvoiceSetStatus},
		{role, ObjectInvoice, ActionInvoiceDelete},
		{role, ObjectPayment, ActionPaymentRemove},
		{role, ObjectFeePlan, ActionFeePlanUpsert},
		{role, ObjectFeePlan, ActionFeePlanReapply},
		{role, ObjectAuditLog, ActionAuditLogView},
		{role, ObjectOrganization, ActionOrganizationManage},
	}
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	var policies [][]string
	policies = append(policies, memberPolicies(RoleMember)...)
	policies = append(policies, memberPolicies(RoleAdmin)...)
	policies = append(policies, adminPolicies(RoleAdmin)...)
	// Scheduler and CLI runs.
	policies = append(policies, memberPolicies(RoleSystem)...)
	policies = append(policies, adminPolicies(RoleSystem)...)

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
