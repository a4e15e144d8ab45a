/*
Package identity resolves raw email addresses to canonical employees.

PURPOSE:
  Submitters use whichever address they are signed into: work, personal,
  an old alias. The roster lists every known address of a person in one
  free-text cell. The Directory turns those cells into one Employee per
  person and maps every alias back to its primary email.

KEY CONCEPTS:
  - Primary email: first address extracted from the roster cell
  - Aliases: every extracted address, primary first
  - First-wins: an address already claimed by an earlier roster row is
    ignored for later rows; a row left with no address is dropped

EXTRACTION ORDER:
  "Jane Doe <jane@corp.com>, jane.doe@gmail.com"
    1. bracketed addresses:   jane@corp.com
    2. plain addresses in the remainder: jane.doe@gmail.com
  Lower-cased, de-duplicated, first-seen order. Display name is the text
  before the first "<" or "@", trimmed of trailing commas.

IMMUTABILITY:
  A Directory is never mutated after Build. Reload builds a new one.

SEE ALSO:
  - analytics/engine.go: Builds a Directory per load
*/
package identity

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/warp/report-engine/generic"
)

// =============================================================================
// EXTRACTION
// =============================================================================

var (
	bracketEmail = regexp.MustCompile(`<([^>]+)>`)
	plainEmail   = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)
)

// ExtractEmails returns every address in a roster cell, bracketed ones
// first, lower-cased and de-duplicated in first-seen order.
func ExtractEmails(text string) []string {
	var found []string
	for _, m := range bracketEmail.FindAllStringSubmatch(text, -1) {
		found = append(found, m[1])
	}
	remainder := bracketEmail.ReplaceAllString(text, "")
	found = append(found, plainEmail.FindAllString(remainder, -1)...)

	seen := make(map[string]bool, len(found))
	var out []string
	for _, e := range found {
		e = NormalizeEmail(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// DisplayName returns the text before the first "<" or "@", trimmed.
func DisplayName(text string) string {
	name, _, _ := strings.Cut(text, "<")
	name, _, _ = strings.Cut(name, "@")
	name = strings.TrimSpace(name)
	name = strings.TrimRight(name, ", ")
	return strings.TrimSpace(name)
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// =============================================================================
// DIRECTORY
// =============================================================================

// Directory maps aliases to employees. Safe for concurrent reads.
type Directory struct {
	employees []generic.Employee // roster order
	byAlias   map[string]int     // alias -> index into employees
}

// BuildStats reports what Build kept and dropped.
type BuildStats struct {
	RowsRead         int
	Employees        int
	NoEmail          int // rows dropped for having no address
	DuplicateAliases int // addresses ignored because an earlier row claimed them
	Issues           []error
}

// Dropped returns the number of roster rows that did not become employees.
func (s BuildStats) Dropped() int { return s.RowsRead - s.Employees }

// Build constructs a Directory from raw roster rows.
func Build(rows []generic.RosterRow) (*Directory, BuildStats) {
	d := &Directory{byAlias: make(map[string]int)}
	stats := BuildStats{RowsRead: len(rows)}

	for i, row := range rows {
		var emails []string
		for _, e := range ExtractEmails(row.NameEmail) {
			if owner, taken := d.byAlias[e]; taken {
				stats.DuplicateAliases++
				stats.Issues = append(stats.Issues, fmt.Errorf("roster row %d: %w: %s (owned by %s)",
					i+1, generic.ErrDuplicateAlias, e, d.employees[owner].PrimaryEmail))
				continue
			}
			emails = append(emails, e)
		}

		if len(emails) == 0 {
			stats.NoEmail++
			stats.Issues = append(stats.Issues, &generic.DataQualityError{
				Source: "roster", Row: i + 1, Reason: generic.ErrNoEmail, Value: row.NameEmail,
			})
			continue
		}

		idx := len(d.employees)
		d.employees = append(d.employees, generic.Employee{
			Name:         DisplayName(row.NameEmail),
			PrimaryEmail: emails[0],
			Aliases:      emails,
			Mobile:       strings.TrimSpace(row.Mobile),
		})
		for _, e := range emails {
			d.byAlias[e] = idx
		}
	}

	stats.Employees = len(d.employees)
	return d, stats
}

// Empty returns a directory with no employees.
func Empty() *Directory {
	return &Directory{byAlias: map[string]int{}}
}

// =============================================================================
// LOOKUPS
// =============================================================================

// Resolve returns the primary email owning any alias.
func (d *Directory) Resolve(email string) (string, bool) {
	idx, ok := d.byAlias[NormalizeEmail(email)]
	if !ok {
		return "", false
	}
	return d.employees[idx].PrimaryEmail, true
}

// PrimaryOf resolves an alias, falling back to the normalised raw address.
func (d *Directory) PrimaryOf(email string) string {
	if p, ok := d.Resolve(email); ok {
		return p
	}
	return NormalizeEmail(email)
}

// Employee returns the employee owning any alias.
func (d *Directory) Employee(email string) (generic.Employee, bool) {
	idx, ok := d.byAlias[NormalizeEmail(email)]
	if !ok {
		return generic.Employee{}, false
	}
	return d.copyOf(idx), true
}

// Aliases returns every address of the employee owning email.
func (d *Directory) Aliases(email string) []string {
	e, ok := d.Employee(email)
	if !ok {
		return nil
	}
	return e.Aliases
}

// NameOf returns the display name for an address, or UnknownEmployeeName.
func (d *Directory) NameOf(email string) string {
	if e, ok := d.Employee(email); ok {
		return e.Name
	}
	return generic.UnknownEmployeeName
}

// FindByName returns the first employee, in roster order, whose name
// contains the query or is contained in it. Case-insensitive.
func (d *Directory) FindByName(query string) (generic.Employee, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return generic.Employee{}, false
	}
	for i, e := range d.employees {
		name := strings.ToLower(e.Name)
		if name == "" {
			continue
		}
		if strings.Contains(name, q) || strings.Contains(q, name) {
			return d.copyOf(i), true
		}
	}
	return generic.Employee{}, false
}

// Employees returns all employees in roster order.
func (d *Directory) Employees() []generic.Employee {
	out := make([]generic.Employee, len(d.employees))
	for i := range d.employees {
		out[i] = d.copyOf(i)
	}
	return out
}

// Len returns the number of employees.
func (d *Directory) Len() int { return len(d.employees) }

func (d *Directory) copyOf(idx int) generic.Employee {
	e := d.employees[idx]
	e.Aliases = append([]string(nil), e.Aliases...)
	return e
}
