package model

import "time"

// UserProgress 用户全局学习统计，每用户一行
type UserProgress struct {
	BaseModel
	UserID uint `gorm:"uniqueIndex;not null" json:"userId"`

	// 累计统计
	TotalLessonsCompleted int   `gorm:"default:0" json:"totalLessonsCompleted"`
	TotalProblemsSolved   int   `gorm:"default:0" json:"totalProblemsSolved"`
	TotalStudyMinutes     int   `gorm:"default:0" json:"totalStudyMinutes"`
	TotalExpEarned        int64 `gorm:"default:0" json:"totalExpEarned"`

	// 连续学习（Streak）
	CurrentStreak int        `gorm:"default:0" json:"currentStreak"`
	LongestStreak int        `gorm:"default:0" json:"longestStreak"`
	LastStudyDate *time.Time `gorm:"type:date" json:"lastStudyDate"`

	// 周目标
	WeeklyGoalDays  int        `gorm:"default:5" json:"weeklyGoalDays"`
	CurrentWeekDays int        `gorm:"default:0" json:"currentWeekDays"`
	WeekStartDate   *time.Time `gorm:"type:date" json:"weekStartDate"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}

// UpdateStreak 连续学习日更新：当天已学过不变，昨天学过则 +1，否则重置为 1
func (up *UserProgress) UpdateStreak(today time.Time) int {
	today = dateOnly(today)

	if up.LastStudyDate != nil && sameDate(*up.LastStudyDate, today) {
		return up.CurrentStreak
	}

	yesterday := today.AddDate(0, 0, -1)
	if up.LastStudyDate != nil && sameDate(*up.LastStudyDate, yesterday) {
		up.CurrentStreak++
		if up.CurrentStreak > up.LongestStreak {
			up.LongestStreak = up.CurrentStreak
		}
	} else {
		up.CurrentStreak = 1
	}

	up.LastStudyDate = &today
	return up.CurrentStreak
}

// UpdateWeeklyGoal 周目标达成日更新：跨周时清零，当天第一次学习时 +1
func (up *UserProgress) UpdateWeeklyGoal(today time.Time, studiedToday bool) {
	today = dateOnly(today)
	weekStart := MondayOf(today)

	if up.WeekStartDate == nil || !sameDate(*up.WeekStartDate, weekStart) {
		up.CurrentWeekDays = 0
		up.WeekStartDate = &weekStart
	}

	if !studiedToday {
		up.CurrentWeekDays++
	}
}

// WeeklyGoalPercentage 周目标达成率，封顶 100
func (up *UserProgress) WeeklyGoalPercentage() float64 {
	if up.WeeklyGoalDays == 0 {
		return 0.0
	}
	pct := float64(up.CurrentWeekDays) / float64(up.WeeklyGoalDays) * 100
	if pct > 100 {
		return 100.0
	}
	return pct
}

// MondayOf 所在周的周一（联赛周期与周目标共用的对齐规则）
func MondayOf(t time.Time) time.Time {
	t = dateOnly(t)
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return t.AddDate(0, 0, -offset)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DailyStudy 每日学习记录，(user, date) 唯一
type DailyStudy struct {
	BaseModel
	UserID    uint      `gorm:"uniqueIndex:idx_user_study_date;not null" json:"userId"`
	StudyDate time.Time `gorm:"type:date;uniqueIndex:idx_user_study_date;index;not null" json:"studyDate"`

	LessonsCompleted int   `gorm:"default:0" json:"lessonsCompleted"`
	ProblemsSolved   int   `gorm:"default:0" json:"problemsSolved"`
	ExpEarned        int64 `gorm:"default:0" json:"expEarned"`
	StudyMinutes     int   `gorm:"default:0" json:"studyMinutes"`

	CorrectAnswers int `gorm:"default:0" json:"correctAnswers"`
	TotalAttempts  int `gorm:"default:0" json:"totalAttempts"`

	GoalAchieved bool `gorm:"default:false" json:"goalAchieved"`
}

func (DailyStudy) TableName() string {
	return "daily_studies"
}

// AccuracyRate 正确率
func (d *DailyStudy) AccuracyRate() float64 {
	if d.TotalAttempts == 0 {
		return 0.0
	}
	return float64(d.CorrectAnswers) / float64(d.TotalAttempts) * 100
}
