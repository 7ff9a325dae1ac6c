// Package period defines the accounting period under analysis and its
// durable store. A period is the (month, year) pair every upload and every
// dashboard panel targets; months use the backend's lowercase French names.
package period

import (
	"fmt"
	"strings"
	"time"
)

// Month names as the accounting backend expects them (unaccented, lowercase).
const (
	Janvier   = "janvier"
	Fevrier   = "fevrier"
	Mars      = "mars"
	Avril     = "avril"
	Mai       = "mai"
	Juin      = "juin"
	Juillet   = "juillet"
	Aout      = "aout"
	Septembre = "septembre"
	Octobre   = "octobre"
	Novembre  = "novembre"
	Decembre  = "decembre"
)

var monthNames = [12]string{
	Janvier, Fevrier, Mars, Avril, Mai, Juin,
	Juillet, Aout, Septembre, Octobre, Novembre, Decembre,
}

// monthNumbers also accepts the accented spellings the backend tolerates.
var monthNumbers = map[string]int{
	Janvier: 1, "février": 2, Fevrier: 2, Mars: 3, Avril: 4, Mai: 5, Juin: 6,
	Juillet: 7, "août": 8, Aout: 8, Septembre: 9, Octobre: 10, Novembre: 11,
	"décembre": 12, Decembre: 12,
}

// Period is the (month, year) pair an upload/analysis cycle targets.
// Both fields must be set together; a partially filled Period is invalid.
type Period struct {
	Month string `json:"mois"`
	Year  int    `json:"annee"`
}

// Current returns the period for the wall-clock month.
func Current() Period {
	return At(time.Now())
}

// At returns the period containing t.
func At(t time.Time) Period {
	return Period{Month: monthNames[t.Month()-1], Year: t.Year()}
}

// Validate reports whether p is a publishable period.
func (p Period) Validate() error {
	if strings.TrimSpace(p.Month) == "" {
		return fmt.Errorf("period month is empty")
	}
	if _, ok := monthNumbers[strings.ToLower(strings.TrimSpace(p.Month))]; !ok {
		return fmt.Errorf("unknown month %q", p.Month)
	}
	if p.Year < 2000 || p.Year > 2100 {
		return fmt.Errorf("year %d out of range", p.Year)
	}
	return nil
}

// MonthNumber returns the 1-12 index of the period's month, or 0 if unknown.
func (p Period) MonthNumber() int {
	return monthNumbers[strings.ToLower(strings.TrimSpace(p.Month))]
}

// String formats the period the way it is shown to users, e.g. "mars 2024".
func (p Period) String() string {
	return fmt.Sprintf("%s %d", p.Month, p.Year)
}

// Equal reports whether two periods denote the same month, ignoring
// accent/case spelling differences.
func (p Period) Equal(other Period) bool {
	return p.Year == other.Year && p.MonthNumber() == other.MonthNumber() && p.MonthNumber() != 0
}
