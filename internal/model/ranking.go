package model

import (
	"math"
	"sort"
	"time"
)

type ExpType string

const (
	ExpTypeCoding        ExpType = "coding"
	ExpTypeCertification ExpType = "certification"
)

func (t ExpType) Valid() bool {
	return t == ExpTypeCoding || t == ExpTypeCertification
}

type Tier string

const (
	TierBronze   Tier = "BRONZE"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
	TierDiamond  Tier = "DIAMOND"
	TierMaster   Tier = "MASTER"
	TierLegend   Tier = "LEGEND"
)

// TierUnbounded 最高段位没有 EXP 上限，用哨兵值表示
const TierUnbounded int64 = math.MaxInt64

// TierConfig 段位配置，不可变、按 Order 升序（1 为最低段位）
type TierConfig struct {
	Tier           Tier
	MinExp         int64
	MaxExp         int64 // 含上界；最高段位为 TierUnbounded
	Icon           string
	Color          string
	Order          int
	CoinMultiplier float64
}

// DefaultTierTable 7 个段位的静态配置，构造引擎时注入
func DefaultTierTable() []TierConfig {
	return []TierConfig{
		{Tier: TierBronze, MinExp: 0, MaxExp: 999, Icon: "🥉", Color: "#CD7F32", Order: 1, CoinMultiplier: 1.0},
		{Tier: TierSilver, MinExp: 1000, MaxExp: 2499, Icon: "🥈", Color: "#C0C0C0", Order: 2, CoinMultiplier: 1.0},
		{Tier: TierGold, MinExp: 2500, MaxExp: 4999, Icon: "🥇", Color: "#FFD700", Order: 3, CoinMultiplier: 1.0},
		{Tier: TierPlatinum, MinExp: 5000, MaxExp: 9999, Icon: "💎", Color: "#E5E4E2", Order: 4, CoinMultiplier: 1.0},
		{Tier: TierDiamond, MinExp: 10000, MaxExp: 19999, Icon: "💠", Color: "#B9F2FF", Order: 5, CoinMultiplier: 1.0},
		{Tier: TierMaster, MinExp: 20000, MaxExp: 49999, Icon: "👑", Color: "#FF6B6B", Order: 6, CoinMultiplier: 1.0},
		{Tier: TierLegend, MinExp: 50000, MaxExp: TierUnbounded, Icon: "⚡", Color: "#8B5CF6", Order: 7, CoinMultiplier: 1.0},
	}
}

// TierFor 按总 EXP 定位段位，区间外兜底为最低段位
func TierFor(totalExp int64, table []TierConfig) TierConfig {
	for _, tc := range table {
		if totalExp >= tc.MinExp && totalExp <= tc.MaxExp {
			return tc
		}
	}
	return table[0]
}

// TierInfo 按段位名查配置
func TierInfo(tier Tier, table []TierConfig) TierConfig {
	for _, tc := range table {
		if tc.Tier == tier {
			return tc
		}
	}
	return table[0]
}

type LeagueResult string

const (
	ResultPromoted   LeagueResult = "PROMOTED"
	ResultDemoted    LeagueResult = "DEMOTED"
	ResultMaintained LeagueResult = "MAINTAINED"
)

// ResultFromStatus 结算时由晋降级状态得出最终结果
func ResultFromStatus(status PromotionStatus) LeagueResult {
	switch status {
	case StatusPromotion:
		return ResultPromoted
	case StatusDemotion:
		return ResultDemoted
	}
	return ResultMaintained
}

// UserRankingHistory 联赛结算时的不可变快照，每 (user, league) 仅一条
type UserRankingHistory struct {
	UUIDBase
	UserID   uint   `gorm:"not null;index:idx_user_recorded,priority:1" json:"userId"`
	LeagueID string `gorm:"type:varchar(36);not null;index" json:"leagueId"`

	FinalRank      int   `gorm:"not null" json:"finalRank"`
	FinalExp       int64 `gorm:"not null" json:"finalExp"`
	FinalCodingExp int64 `gorm:"not null" json:"finalCodingExp"`
	FinalCertExp   int64 `gorm:"not null" json:"finalCertExp"`

	Result      LeagueResult `gorm:"size:20;not null" json:"result"`
	RewardCoins int          `gorm:"default:0" json:"rewardCoins"`

	RecordedAt time.Time `gorm:"not null;index:idx_user_recorded,priority:2,sort:desc" json:"recordedAt"`

	League League `gorm:"foreignKey:LeagueID" json:"-"`
	User   User   `gorm:"foreignKey:UserID" json:"-"`
}

func (UserRankingHistory) TableName() string {
	return "user_ranking_history"
}

// CalculateReward 结算奖励：基础 100 金币 × 名次倍率 × 段位序号，整数截断
func CalculateReward(rank int, tier TierConfig, baseCoins int) int {
	var rankMultiplier float64
	switch {
	case rank == 1:
		rankMultiplier = 5.0
	case rank <= 3:
		rankMultiplier = 3.0
	case rank <= 10:
		rankMultiplier = 2.0
	case rank <= 20:
		rankMultiplier = 1.5
	default:
		rankMultiplier = 1.0
	}

	return int(float64(baseCoins) * rankMultiplier * float64(tier.Order))
}

// GlobalRanking 全服排名，每用户一行
type GlobalRanking struct {
	UserID      uint      `gorm:"primaryKey" json:"userId"`
	Rank        int       `gorm:"index;not null" json:"rank"`
	TotalExp    int64     `gorm:"default:0" json:"totalExp"`
	CurrentTier Tier      `gorm:"size:20;index:idx_tier_rank,priority:1" json:"currentTier"`
	LastUpdated time.Time `gorm:"autoUpdateTime" json:"lastUpdated"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (GlobalRanking) TableName() string {
	return "global_rankings"
}

// AssignGlobalRanks 全量重排全服名次：总 EXP 相同者名次相同，
// 名次 = 比自己严格更高者数 + 1（稠密并列语义）。
func AssignGlobalRanks(rows []*GlobalRanking) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TotalExp > rows[j].TotalExp
	})

	for i, row := range rows {
		if i > 0 && row.TotalExp == rows[i-1].TotalExp {
			row.Rank = rows[i-1].Rank
			continue
		}
		row.Rank = i + 1
	}
}
