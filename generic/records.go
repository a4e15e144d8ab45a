package generic

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// CATEGORY - Fixed set of work categories
// =============================================================================

// Category is one of six fixed work categories. Billing caps are keyed by it.
type Category string

const (
	CategoryETL         Category = "etl"
	CategoryReporting   Category = "reporting"
	CategoryDevelopment Category = "development"
	CategoryTesting     Category = "testing"
	CategoryArchitect   Category = "architect"
	CategoryOther       Category = "other"
)

// Categories lists every category in classification priority order.
var Categories = []Category{
	CategoryETL,
	CategoryReporting,
	CategoryDevelopment,
	CategoryTesting,
	CategoryArchitect,
	CategoryOther,
}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Rank returns the priority position of the category, used for stable output order.
func (c Category) Rank() int {
	for i, known := range Categories {
		if c == known {
			return i
		}
	}
	return len(Categories)
}

// =============================================================================
// EMPLOYEE - Canonical person resolved from the roster
// =============================================================================

// Employee is a roster person. PrimaryEmail is the canonical identity and
// is always the first entry of Aliases.
type Employee struct {
	Name         string   `json:"name"`
	PrimaryEmail string   `json:"primary_email"`
	Aliases      []string `json:"aliases"`
	Mobile       string   `json:"mobile,omitempty"`
}

// UnknownEmployeeName is displayed for emails no roster row claims.
const UnknownEmployeeName = "Unknown Employee"

// =============================================================================
// REPORT - One decoded work-report submission
// =============================================================================

// Report is one decoded work-report row.
//
// Email is the raw submitter address; Employee is the resolved primary
// email (equal to Email when the address is unknown to the roster).
type Report struct {
	ID          int       `json:"id"`
	Email       string    `json:"email"`
	Employee    string    `json:"employee"`
	Name        string    `json:"name"`
	SubmittedAt time.Time `json:"submitted_at"`
	Date        Day       `json:"date"`
	Project     string    `json:"project"`
	Tasks       string    `json:"tasks"`
	Hours       Hours     `json:"hours"`
	TaskCount   int       `json:"task_count"`
}

// =============================================================================
// WORK ENTRY - One classified slice of a report
// =============================================================================

// WorkEntry is a classified portion of a report. A single-line report
// yields one entry; a multi-line report yields one entry per line.
type WorkEntry struct {
	ReportID int      `json:"report_id"`
	Email    string   `json:"email"`
	Employee string   `json:"employee"`
	Date     Day      `json:"date"`
	Project  string   `json:"project"`
	Text     string   `json:"text"`
	Hours    Hours    `json:"hours"`
	Category Category `json:"category"`
}
