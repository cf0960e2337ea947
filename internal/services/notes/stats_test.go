package notes

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func statsFixture(n int, doneEvery int) []*Note {
	list := make([]*Note, 0, n)
	base := time.Now().UTC()
	for i := 0; i < n; i++ {
		list = append(list, &Note{
			ID:        NewNoteID(),
			Content:   fmt.Sprintf("note %d", i),
			Done:      doneEvery > 0 && i%doneEvery == 0,
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(-time.Duration(i) * time.Minute),
		})
	}
	return list
}

func TestComputeStats(t *testing.T) {
	tests := []struct {
		name          string
		list          []*Note
		recentLimit   int
		wantTotal     int
		wantCompleted int
		wantRecent    int
	}{
		{
			name:        "empty snapshot",
			list:        nil,
			recentLimit: 5,
		},
		{
			name:          "fewer notes than recent limit",
			list:          statsFixture(3, 3),
			recentLimit:   5,
			wantTotal:     3,
			wantCompleted: 1,
			wantRecent:    3,
		},
		{
			name:          "recent projection bounded",
			list:          statsFixture(12, 2),
			recentLimit:   5,
			wantTotal:     12,
			wantCompleted: 6,
			wantRecent:    5,
		},
		{
			name:        "all pending",
			list:        statsFixture(4, 0),
			recentLimit: 5,
			wantTotal:   4,
			wantRecent:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := ComputeStats(tt.list, tt.recentLimit)

			assert.Equal(t, tt.wantTotal, stats.Total)
			assert.Equal(t, tt.wantCompleted, stats.Completed)
			assert.Equal(t, tt.wantTotal-tt.wantCompleted, stats.Pending)
			assert.Len(t, stats.Recent, tt.wantRecent)

			// Derived counts must always reconcile.
			assert.Equal(t, stats.Total, stats.Completed+stats.Pending)
		})
	}
}

func TestComputeStatsRecentKeepsHeadOrder(t *testing.T) {
	list := statsFixture(10, 0)
	stats := ComputeStats(list, 3)

	for i, n := range stats.Recent {
		assert.Equal(t, list[i].ID, n.ID)
	}
}
