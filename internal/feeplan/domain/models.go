package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Tier string

const (
	TierLaunch   Tier = "launch"
	TierElevate  Tier = "elevate"
	TierMaximize Tier = "maximize"
)

var tierPercents = map[Tier]int{
	TierLaunch:   12,
	TierElevate:  18,
	TierMaximize: 22,
}

// ParseTier normalizes raw into a known tier.
func ParseTier(raw string) (Tier, bool) {
	tier := Tier(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := tierPercents[tier]
	return tier, ok
}

// Percent returns the management fee percent charged on gross revenue.
func (t Tier) Percent() (int, bool) {
	percent, ok := tierPercents[t]
	return percent, ok
}

// FeePlan assigns a tier to an org (UserID 0) or to one user from EffectiveDate on.
type FeePlan struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID `gorm:"not null;uniqueIndex:ux_fee_plans_org_user_effective,priority:1" json:"org_id"`
	UserID        snowflake.ID `gorm:"not null;default:0;uniqueIndex:ux_fee_plans_org_user_effective,priority:2" json:"user_id"`
	Tier          Tier         `gorm:"type:text;not null" json:"tier"`
	Percent       int          `gorm:"not null" json:"percent"`
	EffectiveDate time.Time    `gorm:"not null;uniqueIndex:ux_fee_plans_org_user_effective,priority:3" json:"effective_date"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (FeePlan) TableName() string { return "fee_plans" }

// Resolution describes which plan priced a period.
type Resolution struct {
	Tier          Tier         `json:"tier"`
	Percent       int          `json:"percent"`
	PlanID        snowflake.ID `json:"plan_id,omitempty"`
	UserScoped    bool         `json:"user_scoped"`
	Defaulted     bool         `json:"defaulted"`
	EffectiveDate *time.Time   `json:"effective_date,omitempty"`
}
