package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newParticipant(userID uint, codingExp, certExp int64, joinedAt time.Time) *LeagueParticipant {
	return &LeagueParticipant{
		UserID:          userID,
		WeeklyCodingExp: codingExp,
		WeeklyCertExp:   certExp,
		JoinedAt:        joinedAt,
	}
}

func TestAssignRanksOrdersByTotalExpDesc(t *testing.T) {
	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	participants := []*LeagueParticipant{
		newParticipant(1, 100, 0, base),
		newParticipant(2, 300, 50, base.Add(time.Minute)),
		newParticipant(3, 200, 0, base.Add(2*time.Minute)),
	}

	AssignRanks(participants, 10, 10)

	ranks := map[uint]int{}
	for _, p := range participants {
		ranks[p.UserID] = p.CurrentRank
	}
	assert.Equal(t, 1, ranks[2])
	assert.Equal(t, 2, ranks[3])
	assert.Equal(t, 3, ranks[1])
}

func TestAssignRanksTieBrokenByJoinOrder(t *testing.T) {
	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	late := newParticipant(1, 500, 0, base.Add(time.Hour))
	early := newParticipant(2, 500, 0, base)

	AssignRanks([]*LeagueParticipant{late, early}, 10, 10)

	assert.Equal(t, 1, early.CurrentRank, "先加入者并列时应排在前面")
	assert.Equal(t, 2, late.CurrentRank)
}

func TestAssignRanksAssignsDistinctRanks(t *testing.T) {
	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	participants := make([]*LeagueParticipant, 0, 50)
	for i := 0; i < 50; i++ {
		participants = append(participants, newParticipant(uint(i+1), int64(i*7%41), 0, base.Add(time.Duration(i)*time.Second)))
	}

	AssignRanks(participants, 10, 10)

	seen := map[int]bool{}
	for _, p := range participants {
		require.False(t, seen[p.CurrentRank], "名次不应重复")
		seen[p.CurrentRank] = true
		require.GreaterOrEqual(t, p.CurrentRank, 1)
		require.LessOrEqual(t, p.CurrentRank, 50)
	}
}

func TestAssignRanksStatusZones(t *testing.T) {
	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	participants := make([]*LeagueParticipant, 0, 50)
	for i := 0; i < 50; i++ {
		// EXP 递减，名次即加入顺序
		participants = append(participants, newParticipant(uint(i+1), int64(1000-i), 0, base.Add(time.Duration(i)*time.Second)))
	}

	AssignRanks(participants, 10, 10)

	for _, p := range participants {
		switch {
		case p.CurrentRank <= 10:
			assert.Equal(t, StatusPromotion, p.Status, "rank %d", p.CurrentRank)
		case p.CurrentRank > 40:
			assert.Equal(t, StatusDemotion, p.Status, "rank %d", p.CurrentRank)
		default:
			assert.Equal(t, StatusSafe, p.Status, "rank %d", p.CurrentRank)
		}
	}
}

func TestAssignRanksSmallLeaguePromotionWins(t *testing.T) {
	// 15 人时晋级区与降级区重叠（6-10 名两者皆符合），晋级优先
	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	participants := make([]*LeagueParticipant, 0, 15)
	for i := 0; i < 15; i++ {
		participants = append(participants, newParticipant(uint(i+1), int64(150-i), 0, base.Add(time.Duration(i)*time.Second)))
	}

	AssignRanks(participants, 10, 10)

	for _, p := range participants {
		if p.CurrentRank <= 10 {
			assert.Equal(t, StatusPromotion, p.Status, "rank %d", p.CurrentRank)
		} else {
			assert.Equal(t, StatusDemotion, p.Status, "rank %d", p.CurrentRank)
		}
	}
}

func TestRankChangeAndTrend(t *testing.T) {
	p := &LeagueParticipant{}

	// 首次排名：没有前次名次，变化为 0
	p.applyRank(5)
	assert.Equal(t, 0, p.RankChange())
	assert.Equal(t, "SAME", p.RankTrend())

	// 上升
	p.applyRank(2)
	assert.Equal(t, 3, p.RankChange())
	assert.Equal(t, "UP", p.RankTrend())
	assert.Equal(t, 2, p.HighestRank)

	// 下降，最高名次保留
	p.applyRank(7)
	assert.Equal(t, -5, p.RankChange())
	assert.Equal(t, "DOWN", p.RankTrend())
	assert.Equal(t, 2, p.HighestRank)
}

func TestAddWeeklyExpByType(t *testing.T) {
	now := time.Date(2026, 8, 26, 15, 0, 0, 0, time.UTC)
	p := &LeagueParticipant{}

	p.AddWeeklyExp(30, ExpTypeCoding, now)
	p.AddWeeklyExp(20, ExpTypeCertification, now)
	p.AddWeeklyExp(10, ExpTypeCoding, now)

	assert.Equal(t, int64(40), p.WeeklyCodingExp)
	assert.Equal(t, int64(20), p.WeeklyCertExp)
	assert.Equal(t, int64(60), p.WeeklyTotalExp())
	assert.Equal(t, 3, p.TotalActivities)
	require.NotNil(t, p.LastActivityAt)
}

func TestLeagueIsFull(t *testing.T) {
	league := &League{MaxParticipants: 50, CurrentParticipants: 49}
	assert.False(t, league.IsFull())

	league.CurrentParticipants = 50
	assert.True(t, league.IsFull())
}

func TestLeagueDaysRemaining(t *testing.T) {
	weekEnd := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC) // 周日
	league := &League{WeekEnd: weekEnd}

	monday := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 7, league.DaysRemaining(monday))

	sunday := time.Date(2026, 8, 30, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, league.DaysRemaining(sunday), "截止日当天计为 1 天")

	after := time.Date(2026, 8, 31, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, league.DaysRemaining(after))
}

func TestLeagueShouldClose(t *testing.T) {
	weekEnd := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	league := &League{WeekEnd: weekEnd}
	league.IsActive = true

	assert.True(t, league.ShouldClose(time.Date(2026, 8, 30, 3, 0, 0, 0, time.UTC)))
	assert.False(t, league.ShouldClose(time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC)))

	league.IsFinished = true
	assert.False(t, league.ShouldClose(time.Date(2026, 8, 30, 3, 0, 0, 0, time.UTC)), "已结算的联赛不再结算")
}
