package billing

import (
	"github.com/warp/report-engine/generic"
)

// Violation is one employee exceeding one category cap on one day.
type Violation struct {
	Employee string           `json:"employee"`
	Date     generic.Day      `json:"date"`
	Project  string           `json:"project"`
	Category generic.Category `json:"category"`
	Actual   generic.Hours    `json:"actual_hours"`
	Billable generic.Hours    `json:"billed_hours"`
	Extra    generic.Hours    `json:"extra_hours"`
	Cap      generic.Hours    `json:"max_allowed"`
	Tasks    []string         `json:"tasks"`
}

// Violations lists every daily total with extra hours, ordered by date,
// then employee, then category priority.
func Violations(totals []DailyCategoryTotal) []Violation {
	out := []Violation{}
	for _, t := range totals {
		if !t.Outcome.HasExtra() || t.Outcome.Cap == nil {
			continue
		}
		out = append(out, Violation{
			Employee: t.Employee,
			Date:     t.Date,
			Project:  t.Project,
			Category: t.Category,
			Actual:   t.Outcome.Actual,
			Billable: t.Outcome.Billable,
			Extra:    t.Outcome.Extra,
			Cap:      *t.Outcome.Cap,
			Tasks:    t.Tasks,
		})
	}
	return out
}
