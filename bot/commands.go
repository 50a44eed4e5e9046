package bot

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/leavebot/leave"
	"github.com/warp/leavebot/render"
)

// balanceKeywords all open the balance report.
var balanceKeywords = []string{render.CommandBalance, "查詢假期", "假期餘額", "休假餘額"}

// command answers free text outside a dialog. Matching is by substring;
// anything unrecognised gets the help message.
func (d *Dispatcher) command(ctx context.Context, r *replier, who leave.Identity, text string) error {
	switch {
	case strings.Contains(text, render.CommandApply):
		return d.leaveTypes(ctx, r, who, 0, false)
	case containsAny(text, balanceKeywords):
		return d.balance(ctx, r, who, false)
	case strings.Contains(text, render.CommandDetail):
		return d.detail(ctx, r, who)
	case strings.Contains(text, render.CommandRoster):
		return d.roster(ctx, r)
	}
	return r.send(ctx, render.Help(d.cfg.AppURL))
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// annualDays resolves the caller's seniority entitlement, or nil when it
// cannot be computed.
func (d *Dispatcher) annualDays(ctx context.Context, who leave.Identity) ([]leave.AnnualLeaveRule, *int, error) {
	rules, err := d.repo.AnnualLeaveRules(ctx)
	if err != nil {
		return nil, nil, err
	}
	days, ok := leave.Entitlement(who.HireDate, rules, d.today())
	if !ok {
		return rules, nil, nil
	}
	return rules, &days, nil
}

// leaveTypes sends the leave-type carousel. With all set it pages through the
// full list starting at offset.
func (d *Dispatcher) leaveTypes(ctx context.Context, r *replier, who leave.Identity, offset int, all bool) error {
	policies, err := d.repo.ActivePolicies(ctx)
	if err != nil {
		return err
	}
	if !all && len(policies) == 0 {
		return r.text(ctx, "dialog.no_leave_types")
	}
	if all && offset >= len(policies) {
		return r.text(ctx, "dialog.no_other_types")
	}

	_, annual, err := d.annualDays(ctx, who)
	if err != nil {
		return err
	}
	if all {
		return r.send(ctx, render.AllLeaveTypesCarousel(policies, annual, offset))
	}
	return r.send(ctx, render.LeaveTypeCarousel(policies, annual))
}

// balance reports this year's pending and approved usage against each
// active type's entitlement, in hours.
func (d *Dispatcher) balance(ctx context.Context, r *replier, who leave.Identity, showAll bool) error {
	policies, err := d.repo.ActivePolicies(ctx)
	if err != nil {
		return err
	}
	rules, err := d.repo.AnnualLeaveRules(ctx)
	if err != nil {
		return err
	}
	year := d.today().Year()
	requests, err := d.repo.RequestsInYear(ctx, who.AccountID, year)
	if err != nil {
		return err
	}

	daily := d.daily(who)
	used := map[string]decimal.Decimal{}
	for _, req := range requests {
		if !req.Status.Blocking() {
			continue
		}
		used[req.LeaveType] = used[req.LeaveType].Add(req.HoursOrDays(daily))
	}

	rows := make([]render.BalanceRow, 0, len(policies))
	for _, p := range policies {
		days := leave.EntitledDays(p, who.HireDate, rules, d.today())
		rows = append(rows, render.BalanceRow{
			LeaveType: p.LeaveType,
			Total:     leave.FullDayHours(days, daily),
			Used:      used[p.LeaveType],
			Daily:     daily,
		})
	}
	return r.send(ctx, render.BalanceReport(rows, showAll, year))
}

func (d *Dispatcher) detail(ctx context.Context, r *replier, who leave.Identity) error {
	year := d.today().Year()
	requests, err := d.repo.RequestsInYear(ctx, who.AccountID, year)
	if err != nil {
		return err
	}
	return r.send(ctx, render.LeaveDetail(requests, year, d.daily(who)))
}

// roster lists everyone's approved leave touching the current month.
func (d *Dispatcher) roster(ctx context.Context, r *replier) error {
	today := d.today()
	from := leave.StartOfMonth(today.Year(), today.Month())
	to := leave.EndOfMonth(today.Year(), today.Month())

	entries, err := d.repo.ApprovedInRange(ctx, from, to)
	if err != nil {
		return err
	}
	return r.send(ctx, render.MonthlyRoster(entries, today.Format("2006-01")))
}
