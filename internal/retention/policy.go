// Package retention thins out scheduler-created snapshots by age.
package retention

import (
	"fmt"
	"time"

	"github.com/kadirbelkuyu/dbsaver/internal/models"
)

const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = 31 * Day
	Year  = 365 * Day
)

// BeyondYear selects what happens to snapshots at least a year old.
type BeyondYear string

const (
	BeyondYearKeep    BeyondYear = "keep"
	BeyondYearMonthly BeyondYear = "monthly"
	BeyondYearDelete  BeyondYear = "delete"
)

func ParseBeyondYear(value string) (BeyondYear, error) {
	switch BeyondYear(value) {
	case BeyondYearKeep, BeyondYearMonthly, BeyondYearDelete:
		return BeyondYear(value), nil
	case "":
		return BeyondYearMonthly, nil
	default:
		return "", fmt.Errorf("unknown beyond-year policy: %s", value)
	}
}

// Policy decides whether a snapshot survives pruning.
type Policy struct {
	BeyondYear BeyondYear
}

// Keep reports whether snapshot should be kept at instant now. Ages are
// compared in whole milliseconds; the tier bounds are exclusive.
//
//	age <= week           keep
//	week < age < month    keep when day-of-month % 7 == 1
//	month < age < year    keep when day-of-month == 1
//	age >= year           per BeyondYear
//
// Ages exactly equal to a month fall in no tier and are kept.
func (p Policy) Keep(now time.Time, snapshot models.Snapshot) bool {
	if snapshot.Manual {
		return true
	}

	age := now.UnixMilli() - snapshot.Timestamp
	day := snapshot.Time().Day()

	switch {
	case age > Week.Milliseconds() && age < Month.Milliseconds():
		return day%7 == 1
	case age > Month.Milliseconds() && age < Year.Milliseconds():
		return day == 1
	case age >= Year.Milliseconds():
		switch p.BeyondYear {
		case BeyondYearKeep:
			return true
		case BeyondYearDelete:
			return false
		default:
			return day == 1
		}
	default:
		return true
	}
}
