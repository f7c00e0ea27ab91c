package model

import (
	"sort"
	"time"
)

// League 周联赛 - 每个段位每周生成新的联赛（人数上限 50）
type League struct {
	UUIDBase
	Tier Tier `gorm:"size:20;index;index:idx_tier_week,priority:1;not null" json:"tier"`

	// 联赛周期（周一对齐）
	WeekStart time.Time `gorm:"type:date;index;index:idx_tier_week,priority:2;not null" json:"weekStart"`
	WeekEnd   time.Time `gorm:"type:date;not null" json:"weekEnd"`

	// 定员
	MaxParticipants     int `gorm:"default:50" json:"maxParticipants"`
	CurrentParticipants int `gorm:"default:0" json:"currentParticipants"`

	// 状态
	IsActive   bool `gorm:"default:true;index:idx_active_finished,priority:1" json:"isActive"`
	IsFinished bool `gorm:"default:false;index:idx_active_finished,priority:2" json:"isFinished"`
}

func (League) TableName() string {
	return "leagues"
}

func (l *League) IsFull() bool {
	return l.CurrentParticipants >= l.MaxParticipants
}

// DaysRemaining 截止日当天计为 1 天（day 7 含当日）
func (l *League) DaysRemaining(now time.Time) int {
	today := now.Truncate(24 * time.Hour)
	end := l.WeekEnd.Truncate(24 * time.Hour)
	if today.After(end) {
		return 0
	}
	return int(end.Sub(today).Hours()/24) + 1
}

// ShouldClose 联赛是否应在今天结算：周期已到期且尚未结束
func (l *League) ShouldClose(today time.Time) bool {
	return l.IsActive && !l.IsFinished && sameDate(l.WeekEnd, today)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

type PromotionStatus string

const (
	StatusSafe      PromotionStatus = "SAFE"      // 安全区
	StatusPromotion PromotionStatus = "PROMOTION" // 晋级区（前 10 名）
	StatusDemotion  PromotionStatus = "DEMOTION"  // 降级区（后 10 名）
)

// LeagueParticipant 联赛参与者，(league, user) 唯一
type LeagueParticipant struct {
	UUIDBase
	LeagueID string `gorm:"type:varchar(36);uniqueIndex:idx_league_user;index:idx_league_rank,priority:1;not null" json:"leagueId"`
	UserID   uint   `gorm:"uniqueIndex:idx_league_user;not null" json:"userId"`

	// 周 EXP（编程 / 认证分开累计）
	WeeklyCodingExp int64 `gorm:"default:0" json:"weeklyCodingExp"`
	WeeklyCertExp   int64 `gorm:"default:0" json:"weeklyCertExp"`

	// 排名信息
	CurrentRank  int `gorm:"default:0;index:idx_league_rank,priority:2" json:"currentRank"`
	PreviousRank int `gorm:"default:0" json:"previousRank"`
	HighestRank  int `gorm:"default:0" json:"highestRank"`

	Status PromotionStatus `gorm:"size:20;default:'SAFE'" json:"status"`

	// 活动追踪
	LastActivityAt  *time.Time `json:"lastActivityAt"`
	TotalActivities int        `gorm:"default:0" json:"totalActivities"`
	JoinedAt        time.Time  `gorm:"not null" json:"joinedAt"`

	League League `gorm:"foreignKey:LeagueID" json:"-"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`
}

func (LeagueParticipant) TableName() string {
	return "league_participants"
}

// WeeklyTotalExp 本周合计 EXP
func (p *LeagueParticipant) WeeklyTotalExp() int64 {
	return p.WeeklyCodingExp + p.WeeklyCertExp
}

// RankChange 正数表示排名上升
func (p *LeagueParticipant) RankChange() int {
	if p.PreviousRank == 0 {
		return 0
	}
	return p.PreviousRank - p.CurrentRank
}

func (p *LeagueParticipant) RankTrend() string {
	change := p.RankChange()
	switch {
	case change > 0:
		return "UP"
	case change < 0:
		return "DOWN"
	}
	return "SAME"
}

// AddWeeklyExp 按类型累加周 EXP 并刷新活动信息
func (p *LeagueParticipant) AddWeeklyExp(amount int64, expType ExpType, now time.Time) {
	switch expType {
	case ExpTypeCoding:
		p.WeeklyCodingExp += amount
	case ExpTypeCertification:
		p.WeeklyCertExp += amount
	}
	p.LastActivityAt = &now
	p.TotalActivities++
}

// applyRank 写入新名次并维护前次/最高名次，0 视为未设置
func (p *LeagueParticipant) applyRank(newRank int) {
	p.PreviousRank = p.CurrentRank
	p.CurrentRank = newRank

	if p.HighestRank == 0 || newRank < p.HighestRank {
		p.HighestRank = newRank
	}
}

// applyStatus 名次区间决定晋降级状态；人数少于 20 时区间重叠，晋级优先
func (p *LeagueParticipant) applyStatus(total, promotionZone, demotionZone int) {
	switch {
	case p.CurrentRank <= promotionZone:
		p.Status = StatusPromotion
	case p.CurrentRank > total-demotionZone:
		p.Status = StatusDemotion
	default:
		p.Status = StatusSafe
	}
}

// AssignRanks 对联赛全体参与者重排名次。
//
// 排序规则：周合计 EXP 降序，并列时按加入时间升序（先来者优先）。
// 名次为 1..N 的稠密排列，随后按区间刷新晋降级状态。
func AssignRanks(participants []*LeagueParticipant, promotionZone, demotionZone int) {
	sort.SliceStable(participants, func(i, j int) bool {
		ti, tj := participants[i].WeeklyTotalExp(), participants[j].WeeklyTotalExp()
		if ti != tj {
			return ti > tj
		}
		return participants[i].JoinedAt.Before(participants[j].JoinedAt)
	})

	total := len(participants)
	for i, p := range participants {
		p.applyRank(i + 1)
		p.applyStatus(total, promotionZone, demotionZone)
	}
}
