package core

// CategoryTotal is one row of the expense-by-category breakdown.
type CategoryTotal struct {
	Category string `json:"category"`
	Amount   Money  `json:"amount"`
}

// Summary is the dashboard aggregate for one user. Balance is always
// TotalIncome - TotalExpense; recent lists carry at most five rows each.
type Summary struct {
	TotalIncome    Money           `json:"totalIncome"`
	TotalExpense   Money           `json:"totalExpense"`
	Balance        Money           `json:"balance"`
	RecentIncomes  []Income        `json:"recentIncomes"`
	RecentExpenses []Expense       `json:"recentExpenses"`
	CategoryTotals []CategoryTotal `json:"categoryTotals"`
}

// MonthlySummary holds per-month income and expense sums for one calendar
// year. Index 0 is January; months without data stay zero.
type MonthlySummary struct {
	Income   [12]Money `json:"income"`
	Expenses [12]Money `json:"expenses"`
}

// MonthLabels is the fixed label sequence chart payloads are indexed by.
var MonthLabels = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// ReportData combines the monthly series with per-category totals for the
// reports page charts.
type ReportData struct {
	Labels         [12]string `json:"labels"`
	Income         [12]Money  `json:"income"`
	Expenses       [12]Money  `json:"expenses"`
	CategoryData   []Money    `json:"categoryData"`
	CategoryLabels []string   `json:"categoryLabels"`
}

// NewSummary derives the balance from the parts and normalizes nil slices so
// the JSON encoding always carries arrays.
func NewSummary(incomeCents, expenseCents int64, recentIn []Income, recentEx []Expense, byCategory []CategoryTotal) Summary {
	if recentIn == nil {
		recentIn = []Income{}
	}
	if recentEx == nil {
		recentEx = []Expense{}
	}
	if byCategory == nil {
		byCategory = []CategoryTotal{}
	}
	return Summary{
		TotalIncome:    Money{Cents: incomeCents},
		TotalExpense:   Money{Cents: expenseCents},
		Balance:        Money{Cents: incomeCents - expenseCents},
		RecentIncomes:  recentIn,
		RecentExpenses: recentEx,
		CategoryTotals: byCategory,
	}
}

// NewReportData assembles the chart payload from monthly sums and category
// totals, keeping the category order (descending by amount) intact.
func NewReportData(monthly MonthlySummary, byCategory []CategoryTotal) ReportData {
	rd := ReportData{
		Labels:         MonthLabels,
		Income:         monthly.Income,
		Expenses:       monthly.Expenses,
		CategoryData:   []Money{},
		CategoryLabels: []string{},
	}
	for _, ct := range byCategory {
		rd.CategoryLabels = append(rd.CategoryLabels, ct.Category)
		rd.CategoryData = append(rd.CategoryData, ct.Amount)
	}
	return rd
}
