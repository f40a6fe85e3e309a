package payroll

import (
	"sort"

	"github.com/warp/payclock/generic"
	"github.com/warp/payclock/worklog"
)

// ReportRow is one employee's line in a period pay report.
// The csv tags are the column headers of the exported report.
type ReportRow struct {
	PeriodStart string `csv:"period_start" json:"period_start"`
	PeriodEnd   string `csv:"period_end" json:"period_end"`
	EmployeeID  string `csv:"employee_id" json:"employee_id"`
	Strategy    string `csv:"strategy" json:"strategy"`
	Rate        string `csv:"rate" json:"rate"`
	Hours       string `csv:"hours" json:"hours"`
	Pay         string `csv:"pay" json:"pay"`
}

// Report computes one row per employee that either has sessions in period or
// has a strategy in strategies. Employees without a strategy are listed with
// their hours and an empty pay.
func Report(period *worklog.PayPeriod, strategies map[generic.EmployeeID]Strategy) []ReportRow {
	ids := map[generic.EmployeeID]bool{}
	for _, id := range period.Employees() {
		ids[id] = true
	}
	for id := range strategies {
		ids[id] = true
	}

	sorted := make([]generic.EmployeeID, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rows := make([]ReportRow, 0, len(sorted))
	for _, id := range sorted {
		row := ReportRow{
			PeriodStart: period.Start().String(),
			PeriodEnd:   period.End().String(),
			EmployeeID:  string(id),
			Hours:       period.HoursWorked(id).StringFixed(2),
		}
		if s, ok := strategies[id]; ok {
			row.Strategy = string(s.Kind)
			row.Rate = s.Rate.StringFixed(2)
			row.Pay = Calculate(s, period, id).StringFixed(2)
		}
		rows = append(rows, row)
	}
	return rows
}
