package service

import (
	"context"
	"time"

	"github.com/getAlby/finhub.go/common"
	"github.com/getAlby/finhub.go/db/models"
	"github.com/getAlby/finhub.go/lib/responses"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const trendMonths = 12

type PeriodStats struct {
	From          time.Time       `json:"from"`
	To            time.Time       `json:"to"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetSavings    decimal.Decimal `json:"net_savings"`
	SavingsRate   decimal.Decimal `json:"savings_rate"`
	EntryCount    int             `json:"entry_count"`
}

type PeriodComparison struct {
	IncomeChange  decimal.Decimal `json:"income_change"`
	ExpenseChange decimal.Decimal `json:"expense_change"`
	SavingsChange decimal.Decimal `json:"savings_change"`
}

type MonthlyTotals struct {
	Month    string          `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Savings  decimal.Decimal `json:"savings"`
}

type DashboardStats struct {
	Current            PeriodStats         `json:"current_period"`
	Previous           PeriodStats         `json:"previous_period"`
	Comparison         PeriodComparison    `json:"comparison"`
	SpendingByCategory []CategoryBreakdown `json:"spending_by_category"`
	MonthlyTrend       []MonthlyTotals     `json:"monthly_trend"`
}

// GetDashboardStats compares [from, to] with the period of equal length just before it.
// Income counts net pay from payroll records; the trend covers the twelve months ending with to.
func (svc *FinhubService) GetDashboardStats(ctx context.Context, userID uuid.UUID, from, to time.Time) (*DashboardStats, error) {
	from, to = common.Date(from), common.Date(to)
	if to.Before(from) {
		return nil, responses.NewValidationError("to %s is before from %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	days := int(to.Sub(from).Hours()/24) + 1
	previousTo := from.AddDate(0, 0, -1)
	previousFrom := previousTo.AddDate(0, 0, 1-days)
	trendFrom := time.Date(to.Year(), to.Month()-trendMonths+1, 1, 0, 0, 0, 0, time.UTC)

	earliest := previousFrom
	if trendFrom.Before(earliest) {
		earliest = trendFrom
	}
	var income []models.IncomeEntry
	err := svc.DB.NewSelect().
		Model(&income).
		Where("user_id = ?", userID).
		Where("income_date >= ?", earliest).
		Where("income_date <= ?", to).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	expenses, err := svc.expensesBetween(ctx, userID, earliest, to)
	if err != nil {
		return nil, err
	}

	current := periodStats(from, to, income, expenses)
	previous := periodStats(previousFrom, previousTo, income, expenses)
	var inPeriod []models.Expense
	for _, e := range expenses {
		if within(e.ExpenseDate, from, to) {
			inPeriod = append(inPeriod, e)
		}
	}

	return &DashboardStats{
		Current:  current,
		Previous: previous,
		Comparison: PeriodComparison{
			IncomeChange:  percentChange(current.TotalIncome, previous.TotalIncome),
			ExpenseChange: percentChange(current.TotalExpenses, previous.TotalExpenses),
			SavingsChange: percentChange(current.NetSavings, previous.NetSavings),
		},
		SpendingByCategory: breakdownByCategory(inPeriod),
		MonthlyTrend:       monthlyTrend(trendFrom, income, expenses),
	}, nil
}

func within(date, from, to time.Time) bool {
	return !date.Before(from) && !date.After(to)
}

func periodStats(from, to time.Time, income []models.IncomeEntry, expenses []models.Expense) PeriodStats {
	stats := PeriodStats{From: from, To: to, TotalIncome: decimal.Zero, TotalExpenses: decimal.Zero}
	for _, i := range income {
		if within(i.IncomeDate, from, to) {
			stats.TotalIncome = stats.TotalIncome.Add(i.NetAmount)
			stats.EntryCount++
		}
	}
	for _, e := range expenses {
		if within(e.ExpenseDate, from, to) {
			stats.TotalExpenses = stats.TotalExpenses.Add(e.Amount)
			stats.EntryCount++
		}
	}
	stats.NetSavings = stats.TotalIncome.Sub(stats.TotalExpenses)
	stats.SavingsRate = percentOf(stats.NetSavings, stats.TotalIncome)
	return stats
}

// percentChange is the change from previous to current in percent, to one decimal place.
// From nothing, any growth counts as 100%.
func percentChange(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		if current.IsPositive() {
			return decimal.NewFromInt(100)
		}
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous.Abs()).Mul(decimal.NewFromInt(100)).Round(1)
}

func monthlyTrend(first time.Time, income []models.IncomeEntry, expenses []models.Expense) []MonthlyTotals {
	trend := make([]MonthlyTotals, trendMonths)
	index := map[string]int{}
	for i := range trend {
		month := first.AddDate(0, i, 0).Format("2006-01")
		trend[i] = MonthlyTotals{Month: month, Income: decimal.Zero, Expenses: decimal.Zero}
		index[month] = i
	}
	for _, e := range income {
		if i, ok := index[e.IncomeDate.UTC().Format("2006-01")]; ok {
			trend[i].Income = trend[i].Income.Add(e.NetAmount)
		}
	}
	for _, e := range expenses {
		if i, ok := index[e.ExpenseDate.UTC().Format("2006-01")]; ok {
			trend[i].Expenses = trend[i].Expenses.Add(e.Amount)
		}
	}
	for i := range trend {
		trend[i].Savings = trend[i].Income.Sub(trend[i].Expenses)
	}
	return trend
}
