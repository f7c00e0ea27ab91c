package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekRangeMondayAligned(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			"周三",
			time.Date(2026, 8, 26, 14, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			"周一凌晨",
			time.Date(2026, 8, 24, 0, 0, 1, 0, time.UTC),
			time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		},
		{
			"周日深夜仍属本周",
			time.Date(2026, 8, 30, 23, 59, 59, 0, time.UTC),
			time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := WeekRange(tt.now)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}
