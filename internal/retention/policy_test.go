package retention

import (
	"testing"
	"time"

	"github.com/kadirbelkuyu/dbsaver/internal/models"

	"github.com/stretchr/testify/assert"
)

func snapshotAt(ts time.Time, manual bool) models.Snapshot {
	return models.Snapshot{Timestamp: ts.UnixMilli(), Manual: manual}
}

func TestPolicyTierBoundaries(t *testing.T) {
	policy := Policy{BeyondYear: BeyondYearMonthly}
	ms := time.Millisecond

	tests := []struct {
		name string
		now  time.Time
		age  time.Duration
		keep bool
	}{
		// Snapshot falls on the 2nd, which passes no calendar rule.
		{"just inside a week", time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC), Week - ms, true},
		{"just past a week", time.Date(2024, 5, 9, 0, 0, 0, 1_000_000, time.UTC), Week + ms, false},
		// Snapshot falls on the 8th, which passes the weekly rule only.
		{"week tier on the 8th", time.Date(2024, 5, 15, 0, 0, 0, 1_000_000, time.UTC), Week + ms, true},
		{"just inside a month on the 8th", time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC).Add(-ms), Month - ms, true},
		{"just past a month on the 8th", time.Date(2024, 6, 8, 0, 0, 0, 1_000_000, time.UTC), Month + ms, false},
		// Snapshot falls on the 1st, which passes both rules.
		{"just past a month on the 1st", time.Date(2024, 6, 1, 0, 0, 0, 1_000_000, time.UTC), Month + ms, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := snapshotAt(tt.now.Add(-tt.age), false)
			assert.Equal(t, tt.keep, policy.Keep(tt.now, snapshot))
		})
	}
}

func TestPolicyBeyondYear(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	firstOfMonth := snapshotAt(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), false)
	midMonth := snapshotAt(time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC), false)

	monthly := Policy{BeyondYear: BeyondYearMonthly}
	assert.True(t, monthly.Keep(now, firstOfMonth))
	assert.False(t, monthly.Keep(now, midMonth))

	keep := Policy{BeyondYear: BeyondYearKeep}
	assert.True(t, keep.Keep(now, midMonth))

	drop := Policy{BeyondYear: BeyondYearDelete}
	assert.False(t, drop.Keep(now, firstOfMonth))
}

func TestPolicyNeverRejectsManual(t *testing.T) {
	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	manual := snapshotAt(now.Add(-400*Day), true)

	for _, beyond := range []BeyondYear{BeyondYearKeep, BeyondYearMonthly, BeyondYearDelete} {
		assert.True(t, Policy{BeyondYear: beyond}.Keep(now, manual))
	}
}

func TestParseBeyondYear(t *testing.T) {
	value, err := ParseBeyondYear("")
	assert.NoError(t, err)
	assert.Equal(t, BeyondYearMonthly, value)

	value, err = ParseBeyondYear("delete")
	assert.NoError(t, err)
	assert.Equal(t, BeyondYearDelete, value)

	_, err = ParseBeyondYear("forever")
	assert.Error(t, err)
}
