package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMondayOf(t *testing.T) {
	tests := []struct {
		name string
		day  time.Time
		want time.Time
	}{
		{"周一当天", time.Date(2026, 8, 24, 15, 30, 0, 0, time.UTC), time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)},
		{"周三", time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC), time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)},
		{"周日", time.Date(2026, 8, 30, 23, 59, 0, 0, time.UTC), time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)},
		{"跨月周一", time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MondayOf(tt.day))
		})
	}
}

func TestUpdateStreak(t *testing.T) {
	up := &UserProgress{}
	day1 := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, up.UpdateStreak(day1), "首次学习从 1 开始")
	assert.Equal(t, 0, up.LongestStreak, "最长纪录只在连续日延续时刷新")

	// 当天重复学习不变
	assert.Equal(t, 1, up.UpdateStreak(day1.Add(5*time.Hour)))

	// 次日 +1
	day2 := day1.AddDate(0, 0, 1)
	assert.Equal(t, 2, up.UpdateStreak(day2))
	assert.Equal(t, 2, up.LongestStreak)

	// 中断一天后重置
	day4 := day1.AddDate(0, 0, 3)
	assert.Equal(t, 1, up.UpdateStreak(day4))
	assert.Equal(t, 2, up.LongestStreak, "最长纪录保留")
}

func TestUpdateWeeklyGoal(t *testing.T) {
	up := &UserProgress{WeeklyGoalDays: 5}
	monday := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)

	up.UpdateWeeklyGoal(monday, false)
	assert.Equal(t, 1, up.CurrentWeekDays)
	require.NotNil(t, up.WeekStartDate)

	// 当天已学过不重复计数
	up.UpdateWeeklyGoal(monday.Add(3*time.Hour), true)
	assert.Equal(t, 1, up.CurrentWeekDays)

	// 次日第一次学习 +1
	up.UpdateWeeklyGoal(monday.AddDate(0, 0, 1), false)
	assert.Equal(t, 2, up.CurrentWeekDays)

	// 跨周清零后重新计数
	nextMonday := monday.AddDate(0, 0, 7)
	up.UpdateWeeklyGoal(nextMonday, false)
	assert.Equal(t, 1, up.CurrentWeekDays)
}

func TestWeeklyGoalPercentage(t *testing.T) {
	up := &UserProgress{WeeklyGoalDays: 5, CurrentWeekDays: 2}
	assert.InDelta(t, 40.0, up.WeeklyGoalPercentage(), 0.001)

	up.CurrentWeekDays = 7
	assert.Equal(t, 100.0, up.WeeklyGoalPercentage(), "超额达成封顶 100")

	up.WeeklyGoalDays = 0
	assert.Equal(t, 0.0, up.WeeklyGoalPercentage())
}

func TestDailyStudyAccuracyRate(t *testing.T) {
	d := &DailyStudy{CorrectAnswers: 3, TotalAttempts: 4}
	assert.InDelta(t, 75.0, d.AccuracyRate(), 0.001)

	empty := &DailyStudy{}
	assert.Equal(t, 0.0, empty.AccuracyRate())
}
