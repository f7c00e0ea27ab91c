package service

import (
	"codequest_backend/internal/model"
	"codequest_backend/internal/repository"
)

type DashboardService struct {
	UserRepo     *repository.UserRepository
	ProgressRepo *repository.ProgressRepository
	RankingRepo  *repository.RankingRepository
	Ranking      *RankingService
}

func NewDashboardService(
	userRepo *repository.UserRepository,
	progressRepo *repository.ProgressRepository,
	rankingRepo *repository.RankingRepository,
	ranking *RankingService,
) *DashboardService {
	return &DashboardService{
		UserRepo:     userRepo,
		ProgressRepo: progressRepo,
		RankingRepo:  rankingRepo,
		Ranking:      ranking,
	}
}

type DailyStudyView struct {
	Date             string  `json:"date"`
	LessonsCompleted int     `json:"lessonsCompleted"`
	ProblemsSolved   int     `json:"problemsSolved"`
	ExpEarned        int64   `json:"expEarned"`
	AccuracyRate     float64 `json:"accuracyRate"`
}

type DashboardView struct {
	UserID       uint   `json:"userId"`
	Nickname     string `json:"nickname"`
	ProfileImage string `json:"profileImage"`
	Hearts       int    `json:"hearts"`
	Coins        int    `json:"coins"`

	TotalExp   int64      `json:"totalExp"`
	Tier       model.Tier `json:"tier"`
	TierInfo   TierView   `json:"tierInfo"`
	GlobalRank int        `json:"globalRank"` // 0 表示尚未上榜

	CurrentStreak int `json:"currentStreak"`
	LongestStreak int `json:"longestStreak"`

	WeeklyGoalDays       int     `json:"weeklyGoalDays"`
	CurrentWeekDays      int     `json:"currentWeekDays"`
	WeeklyGoalPercentage float64 `json:"weeklyGoalPercentage"`

	TotalLessonsCompleted int   `json:"totalLessonsCompleted"`
	TotalProblemsSolved   int   `json:"totalProblemsSolved"`
	TotalExpEarned        int64 `json:"totalExpEarned"`

	League *LeagueRankingsResult `json:"league,omitempty"`

	RecentDays []DailyStudyView `json:"recentDays"`
}

// GetDashboard 仪表盘聚合：用户、段位、全服名次、streak、周目标、
// 本周联赛与最近 7 天学习记录。
func (s *DashboardService) GetDashboard(userID uint) (*DashboardView, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}

	tier := s.Ranking.TierFor(user.Exp)

	view := &DashboardView{
		UserID:       user.ID,
		Nickname:     user.Nickname,
		ProfileImage: user.ProfileImage,
		Hearts:       user.Hearts,
		Coins:        user.Coins,
		TotalExp:     user.Exp,
		Tier:         tier.Tier,
		TierInfo:     tierView(tier),
	}

	if global, err := s.RankingRepo.GetGlobalForUser(userID); err == nil && global != nil {
		view.GlobalRank = global.Rank
	}

	progress, err := s.ProgressRepo.GetOrCreateUserProgress(s.ProgressRepo.DB, userID)
	if err != nil {
		return nil, err
	}
	view.CurrentStreak = progress.CurrentStreak
	view.LongestStreak = progress.LongestStreak
	view.WeeklyGoalDays = progress.WeeklyGoalDays
	view.CurrentWeekDays = progress.CurrentWeekDays
	view.WeeklyGoalPercentage = progress.WeeklyGoalPercentage()
	view.TotalLessonsCompleted = progress.TotalLessonsCompleted
	view.TotalProblemsSolved = progress.TotalProblemsSolved
	view.TotalExpEarned = progress.TotalExpEarned

	if league, err := s.Ranking.GetLeagueRankings(userID); err == nil {
		view.League = league
	}

	recent, err := s.ProgressRepo.RecentDailyStudies(userID, 7)
	if err != nil {
		return nil, err
	}
	view.RecentDays = make([]DailyStudyView, len(recent))
	for i := range recent {
		d := &recent[i]
		view.RecentDays[i] = DailyStudyView{
			Date:             d.StudyDate.Format("2006-01-02"),
			LessonsCompleted: d.LessonsCompleted,
			ProblemsSolved:   d.ProblemsSolved,
			ExpEarned:        d.ExpEarned,
			AccuracyRate:     d.AccuracyRate(),
		}
	}

	return view, nil
}
