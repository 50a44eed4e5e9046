package leave

import (
	"sort"
	"time"
)

// MinServiceMonths is the seniority below which no annual leave accrues.
const MinServiceMonths = 6

// MaxAnnualLeaveDays caps the open-ended tier.
const MaxAnnualLeaveDays = 30

// MonthsOfService counts whole calendar months between hire and now. The day
// of month is ignored, so hire 2024-01-31 and now 2024-02-01 is one month.
func MonthsOfService(hire, now time.Time) int {
	return (now.Year()-hire.Year())*12 + int(now.Month()) - int(hire.Month())
}

// AnnualLeaveDays maps months of service to annual leave days using the tier
// table. Rules are evaluated in ascending MinMonths order; the first bounded
// tier containing months wins. The open-ended tier adds one day per full year
// beyond its MinMonths, capped at MaxAnnualLeaveDays.
func AnnualLeaveDays(months int, rules []AnnualLeaveRule) int {
	if months < MinServiceMonths {
		return 0
	}

	sorted := make([]AnnualLeaveRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MinMonths < sorted[j].MinMonths })

	for _, r := range sorted {
		if r.MaxMonths == nil {
			if months >= r.MinMonths {
				return min(r.Days+(months-r.MinMonths)/12, MaxAnnualLeaveDays)
			}
			continue
		}
		if months >= r.MinMonths && months < *r.MaxMonths {
			return r.Days
		}
	}
	return 0
}

// Entitlement returns the seniority-based annual days. ok is false when there
// is no hire date or no rule table, in which case the caller falls back to the
// policy default.
func Entitlement(hire *time.Time, rules []AnnualLeaveRule, now time.Time) (days int, ok bool) {
	if hire == nil || len(rules) == 0 {
		return 0, false
	}
	return AnnualLeaveDays(MonthsOfService(*hire, now), rules), true
}

// EntitledDays resolves the yearly days for a policy, applying the seniority
// override to the Annual type.
func EntitledDays(p Policy, hire *time.Time, rules []AnnualLeaveRule, now time.Time) int {
	if p.LeaveType != AnnualLeaveType {
		return p.DefaultAnnualDays
	}
	if days, ok := Entitlement(hire, rules, now); ok {
		return days
	}
	return p.DefaultAnnualDays
}

// StatutoryAnnualRules is the default seniority table seeded on a fresh database.
func StatutoryAnnualRules() []AnnualLeaveRule {
	upto := func(n int) *int { return &n }
	return []AnnualLeaveRule{
		{MinMonths: 0, MaxMonths: upto(6), Days: 0},
		{MinMonths: 6, MaxMonths: upto(12), Days: 3},
		{MinMonths: 12, MaxMonths: upto(24), Days: 7},
		{MinMonths: 24, MaxMonths: upto(36), Days: 10},
		{MinMonths: 36, MaxMonths: upto(60), Days: 14},
		{MinMonths: 60, MaxMonths: upto(120), Days: 15},
		{MinMonths: 120, MaxMonths: nil, Days: 16},
	}
}

// DefaultPolicies is the leave-type catalog seeded on a fresh database.
func DefaultPolicies() []Policy {
	return []Policy{
		{LeaveType: AnnualLeaveType, DefaultAnnualDays: 7, Description: "依年資計算之特別休假", IsActive: true, ReminderThresholdDays: 3, ReminderEnabled: true, Category: "statutory", SortOrder: 1},
		{LeaveType: "病假", DefaultAnnualDays: 30, Description: "普通傷病假，全年未住院者 30 日", IsActive: true, Category: "statutory", SortOrder: 2},
		{LeaveType: "事假", DefaultAnnualDays: 14, Description: "因事必須親自處理者", IsActive: true, Category: "statutory", SortOrder: 3},
		{LeaveType: "婚假", DefaultAnnualDays: 8, Description: "結婚者給予婚假 8 日", IsActive: true, Category: "special", SortOrder: 1},
		{LeaveType: "喪假", DefaultAnnualDays: 8, Description: "依親屬關係給予 3 至 8 日", IsActive: true, Category: "special", SortOrder: 2},
		{LeaveType: "產假", DefaultAnnualDays: 56, Description: "分娩前後給予產假 8 星期", IsActive: true, Category: "special", SortOrder: 3},
	}
}
