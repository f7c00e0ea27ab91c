package service

import (
	"codequest_backend/internal/config"
	"codequest_backend/internal/model"
	"codequest_backend/internal/repository"
	"codequest_backend/internal/util"
	"codequest_backend/pkg/logger"
	"codequest_backend/pkg/monitoring"
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 全服排名首页缓存
const globalRankingsCacheKey = "rankings:global:first"
const globalRankingsCacheTTL = 60 * time.Second

// txRunner 事务边界，*gorm.DB 天然满足
type txRunner interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// userExpStore 排名服务用到的用户读写子集
type userExpStore interface {
	FindByID(id uint) (*model.User, error)
	FindByIDTx(tx *gorm.DB, id uint) (*model.User, error)
	AddExpTx(tx *gorm.DB, userID uint, amount int64) error
}

// leagueStore 周联赛与参与记录的读写子集
type leagueStore interface {
	FindOpenLeagueTx(tx *gorm.DB, tier model.Tier, weekStart time.Time) (*model.League, error)
	CreateLeagueTx(tx *gorm.DB, league *model.League) error
	FindParticipantTx(tx *gorm.DB, leagueID string, userID uint) (*model.LeagueParticipant, error)
	CreateParticipantTx(tx *gorm.DB, p *model.LeagueParticipant) error
	SaveParticipantTx(tx *gorm.DB, p *model.LeagueParticipant) error
	IncrementParticipantsTx(tx *gorm.DB, leagueID string) (bool, error)
	ParticipantsOfTx(tx *gorm.DB, leagueID string) ([]*model.LeagueParticipant, error)
	ParticipantsRanked(leagueID string) ([]model.LeagueParticipant, error)
	FindCurrentParticipation(userID uint, weekStart time.Time) (*model.LeagueParticipant, error)
	LeaguesClosingOnTx(tx *gorm.DB, today time.Time) ([]model.League, error)
	MarkFinishedTx(tx *gorm.DB, leagueID string) error
	CreateHistoryTx(tx *gorm.DB, record *model.UserRankingHistory) error
}

// globalRankStore 全服排名与历史战绩的读写子集
type globalRankStore interface {
	UpsertGlobalTx(tx *gorm.DB, userID uint, totalExp int64, tier model.Tier) (*model.GlobalRanking, error)
	CountHigherTx(tx *gorm.DB, totalExp int64) (int64, error)
	UpdateRankTx(tx *gorm.DB, userID uint, rank int) error
	GetGlobalPage(limit, offset int) ([]model.GlobalRanking, error)
	AllGlobalTx(tx *gorm.DB) ([]*model.GlobalRanking, error)
	SaveGlobalTx(tx *gorm.DB, row *model.GlobalRanking) error
	GetUserHistory(userID uint, limit int) ([]model.UserRankingHistory, error)
}

var (
	_ userExpStore    = (*repository.UserRepository)(nil)
	_ leagueStore     = (*repository.LeagueRepository)(nil)
	_ globalRankStore = (*repository.RankingRepository)(nil)
	_ txRunner        = (*gorm.DB)(nil)
)

type RankingService struct {
	UserRepo    userExpStore
	LeagueRepo  leagueStore
	RankingRepo globalRankStore
	Cfg         *config.Config
	DB          txRunner
	Redis       *redis.Client

	// 段位表构造时注入，运行期不可变
	tierTable []model.TierConfig
}

func NewRankingService(
	userRepo userExpStore,
	leagueRepo leagueStore,
	rankingRepo globalRankStore,
	cfg *config.Config,
	db txRunner,
	rdb *redis.Client,
	tierTable []model.TierConfig,
) *RankingService {
	return &RankingService{
		UserRepo:    userRepo,
		LeagueRepo:  leagueRepo,
		RankingRepo: rankingRepo,
		Cfg:         cfg,
		DB:          db,
		Redis:       rdb,
		tierTable:   tierTable,
	}
}

// WeekRange 周一对齐的联赛周期
func WeekRange(now time.Time) (weekStart, weekEnd time.Time) {
	weekStart = model.MondayOf(now)
	weekEnd = weekStart.AddDate(0, 0, 6)
	return weekStart, weekEnd
}

// TierFor 按总 EXP 定位段位
func (s *RankingService) TierFor(totalExp int64) model.TierConfig {
	return model.TierFor(totalExp, s.tierTable)
}

func (s *RankingService) TierTable() []model.TierConfig {
	return s.tierTable
}

type TierView struct {
	Tier  model.Tier `json:"tier"`
	Icon  string     `json:"icon"`
	Color string     `json:"color"`
	Order int        `json:"order"`
}

func tierView(tc model.TierConfig) TierView {
	return TierView{Tier: tc.Tier, Icon: tc.Icon, Color: tc.Color, Order: tc.Order}
}

// AddExpResult add_exp 的结果摘要
type AddExpResult struct {
	UserID     uint                  `json:"userId"`
	TotalExp   int64                 `json:"totalExp"`
	Tier       model.Tier            `json:"tier"`
	WeeklyExp  int64                 `json:"weeklyExp"`
	LeagueRank int                   `json:"leagueRank"`
	RankChange int                   `json:"rankChange"`
	Status     model.PromotionStatus `json:"status"`
}

// AddExp 核心路径：累加总 EXP → 重定段位 → 解析本周联赛与参与记录
// → 累加周 EXP → 重算联赛排名 → 更新全服排名。
//
// 全部写入在同一事务内完成，任何一步失败整体回滚，外部看不到
// 半套状态（比如 EXP 已加但排名未更新）。
func (s *RankingService) AddExp(userID uint, amount int64, expType model.ExpType) (*AddExpResult, error) {
	return s.addExpAt(userID, amount, expType, time.Now())
}

func (s *RankingService) addExpAt(userID uint, amount int64, expType model.ExpType, now time.Time) (*AddExpResult, error) {
	if !expType.Valid() {
		return nil, util.ErrInvalidExpType
	}
	if amount <= 0 {
		return nil, util.ErrInvalidExpAmount
	}

	var result AddExpResult

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// 1. 原子累加用户总 EXP
		if err := s.UserRepo.AddExpTx(tx, userID, amount); err != nil {
			return err
		}

		user, err := s.UserRepo.FindByIDTx(tx, userID)
		if err != nil {
			return err
		}

		// 2. 按新的总 EXP 重定段位
		tier := model.TierFor(user.Exp, s.tierTable)

		// 3. 本周联赛（没有则创建）
		league, err := s.getOrCreateWeeklyLeagueTx(tx, tier.Tier, now)
		if err != nil {
			return err
		}

		// 4. 参与记录（首次活动时加入联赛，满员则整个事务失败）
		participant, err := s.LeagueRepo.FindParticipantTx(tx, league.ID, userID)
		if err != nil {
			return err
		}
		if participant == nil {
			participant = &model.LeagueParticipant{
				LeagueID: league.ID,
				UserID:   userID,
				JoinedAt: now,
			}
			if err := s.LeagueRepo.CreateParticipantTx(tx, participant); err != nil {
				return err
			}

			ok, err := s.LeagueRepo.IncrementParticipantsTx(tx, league.ID)
			if err != nil {
				return err
			}
			if !ok {
				return util.ErrLeagueFull
			}
		}

		// 5. 累加周 EXP 并刷新活动信息
		participant.AddWeeklyExp(amount, expType, now)
		if err := s.LeagueRepo.SaveParticipantTx(tx, participant); err != nil {
			return err
		}

		// 6. 重算联赛内排名
		ranked, err := s.updateLeagueRankingsTx(tx, league.ID)
		if err != nil {
			return err
		}
		for _, p := range ranked {
			if p.ID == participant.ID {
				participant = p
				break
			}
		}

		// 7. 更新全服排名
		if err := s.updateGlobalRankingTx(tx, userID, user.Exp, tier.Tier); err != nil {
			return err
		}

		// 8. 结果摘要
		result = AddExpResult{
			UserID:     userID,
			TotalExp:   user.Exp,
			Tier:       tier.Tier,
			WeeklyExp:  participant.WeeklyTotalExp(),
			LeagueRank: participant.CurrentRank,
			RankChange: participant.RankChange(),
			Status:     participant.Status,
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	monitoring.ExpAddedCounter.WithLabelValues(string(expType)).Add(float64(amount))
	s.invalidateGlobalCache()

	return &result, nil
}

// getOrCreateWeeklyLeagueTx 解析本周该段位的未满员联赛，没有则创建。
// 行锁保证并发的首个加入者不会重复建联赛。
func (s *RankingService) getOrCreateWeeklyLeagueTx(tx *gorm.DB, tier model.Tier, now time.Time) (*model.League, error) {
	weekStart, weekEnd := WeekRange(now)

	league, err := s.LeagueRepo.FindOpenLeagueTx(tx, tier, weekStart)
	if err != nil {
		return nil, err
	}
	if league != nil {
		return league, nil
	}

	league = &model.League{
		Tier:            tier,
		WeekStart:       weekStart,
		WeekEnd:         weekEnd,
		MaxParticipants: s.Cfg.League.MaxParticipants,
	}
	league.IsActive = true
	if err := s.LeagueRepo.CreateLeagueTx(tx, league); err != nil {
		return nil, err
	}
	logger.Log.Info("weekly league created",
		zap.String("tier", string(tier)),
		zap.Time("weekStart", weekStart))
	return league, nil
}

// updateLeagueRankingsTx 对联赛全体参与者重排 1..N 的稠密名次并落库
func (s *RankingService) updateLeagueRankingsTx(tx *gorm.DB, leagueID string) ([]*model.LeagueParticipant, error) {
	participants, err := s.LeagueRepo.ParticipantsOfTx(tx, leagueID)
	if err != nil {
		return nil, err
	}

	model.AssignRanks(participants, s.Cfg.League.PromotionZone, s.Cfg.League.DemotionZone)

	for _, p := range participants {
		if err := s.LeagueRepo.SaveParticipantTx(tx, p); err != nil {
			return nil, err
		}
	}
	return participants, nil
}

// updateGlobalRankingTx upsert 后按 '严格更高者数 + 1' 计算名次
func (s *RankingService) updateGlobalRankingTx(tx *gorm.DB, userID uint, totalExp int64, tier model.Tier) error {
	if _, err := s.RankingRepo.UpsertGlobalTx(tx, userID, totalExp, tier); err != nil {
		return err
	}

	higher, err := s.RankingRepo.CountHigherTx(tx, totalExp)
	if err != nil {
		return err
	}

	return s.RankingRepo.UpdateRankTx(tx, userID, int(higher)+1)
}

type LeagueRankingEntry struct {
	Rank         int                   `json:"rank"`
	UserID       uint                  `json:"userId"`
	Nickname     string                `json:"nickname"`
	ProfileImage string                `json:"profileImage"`
	WeeklyExp    int64                 `json:"weeklyExp"`
	CodingExp    int64                 `json:"codingExp"`
	CertExp      int64                 `json:"certExp"`
	Status       model.PromotionStatus `json:"status"`
	RankChange   int                   `json:"rankChange"`
	IsMe         bool                  `json:"isMe"`
}

// LeagueRankingsResult 本周联赛排名快照；未参加时 Participating 为 false
type LeagueRankingsResult struct {
	Participating     bool                  `json:"participating"`
	Message           string                `json:"message,omitempty"`
	MyRank            int                   `json:"myRank,omitempty"`
	MyExp             int64                 `json:"myExp,omitempty"`
	MyStatus          model.PromotionStatus `json:"myStatus,omitempty"`
	RankChange        int                   `json:"rankChange,omitempty"`
	Tier              model.Tier            `json:"tier"`
	TierInfo          TierView              `json:"tierInfo"`
	LeagueID          string                `json:"leagueId,omitempty"`
	WeekStart         string                `json:"weekStart,omitempty"`
	WeekEnd           string                `json:"weekEnd,omitempty"`
	DaysRemaining     int                   `json:"daysRemaining,omitempty"`
	TotalParticipants int                   `json:"totalParticipants,omitempty"`
	Rankings          []LeagueRankingEntry  `json:"rankings,omitempty"`
}

// GetLeagueRankings 查询本周联赛排名。
// 未参加不是错误：返回 '尚未参加' 以及按总 EXP 推导的段位。
func (s *RankingService) GetLeagueRankings(userID uint) (*LeagueRankingsResult, error) {
	now := time.Now()
	weekStart, _ := WeekRange(now)

	participant, err := s.LeagueRepo.FindCurrentParticipation(userID, weekStart)
	if err != nil {
		return nil, err
	}

	if participant == nil {
		user, err := s.UserRepo.FindByID(userID)
		if err != nil {
			return nil, err
		}
		tier := model.TierFor(user.Exp, s.tierTable)
		return &LeagueRankingsResult{
			Participating: false,
			Message:       "本周还没有参加联赛",
			Tier:          tier.Tier,
			TierInfo:      tierView(tier),
		}, nil
	}

	league := participant.League
	participants, err := s.LeagueRepo.ParticipantsRanked(league.ID)
	if err != nil {
		return nil, err
	}

	entries := make([]LeagueRankingEntry, len(participants))
	for i, p := range participants {
		entries[i] = LeagueRankingEntry{
			Rank:         p.CurrentRank,
			UserID:       p.UserID,
			Nickname:     p.User.Nickname,
			ProfileImage: p.User.ProfileImage,
			WeeklyExp:    p.WeeklyTotalExp(),
			CodingExp:    p.WeeklyCodingExp,
			CertExp:      p.WeeklyCertExp,
			Status:       p.Status,
			RankChange:   p.RankChange(),
			IsMe:         p.UserID == userID,
		}
	}

	tier := model.TierInfo(league.Tier, s.tierTable)
	return &LeagueRankingsResult{
		Participating:     true,
		MyRank:            participant.CurrentRank,
		MyExp:             participant.WeeklyTotalExp(),
		MyStatus:          participant.Status,
		RankChange:        participant.RankChange(),
		Tier:              league.Tier,
		TierInfo:          tierView(tier),
		LeagueID:          league.ID,
		WeekStart:         league.WeekStart.Format("2006-01-02"),
		WeekEnd:           league.WeekEnd.Format("2006-01-02"),
		DaysRemaining:     league.DaysRemaining(now),
		TotalParticipants: league.CurrentParticipants,
		Rankings:          entries,
	}, nil
}

type GlobalRankingEntry struct {
	Rank         int        `json:"rank"`
	UserID       uint       `json:"userId"`
	Nickname     string     `json:"nickname"`
	ProfileImage string     `json:"profileImage"`
	TotalExp     int64      `json:"totalExp"`
	Tier         model.Tier `json:"tier"`
	TierIcon     string     `json:"tierIcon"`
	TierColor    string     `json:"tierColor"`
}

// GetGlobalRankings 全服排名分页，首页走 Redis 短缓存
func (s *RankingService) GetGlobalRankings(limit, offset int) ([]GlobalRankingEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	cacheable := offset == 0 && limit == 100
	if cacheable {
		if cached, err := s.Redis.Get(context.Background(), globalRankingsCacheKey).Result(); err == nil {
			var entries []GlobalRankingEntry
			if json.Unmarshal([]byte(cached), &entries) == nil {
				return entries, nil
			}
		}
	}

	rows, err := s.RankingRepo.GetGlobalPage(limit, offset)
	if err != nil {
		return nil, err
	}

	entries := make([]GlobalRankingEntry, len(rows))
	for i, row := range rows {
		tier := model.TierInfo(row.CurrentTier, s.tierTable)
		entries[i] = GlobalRankingEntry{
			Rank:         row.Rank,
			UserID:       row.UserID,
			Nickname:     row.User.Nickname,
			ProfileImage: row.User.ProfileImage,
			TotalExp:     row.TotalExp,
			Tier:         row.CurrentTier,
			TierIcon:     tier.Icon,
			TierColor:    tier.Color,
		}
	}

	if cacheable {
		if data, err := json.Marshal(entries); err == nil {
			s.Redis.Set(context.Background(), globalRankingsCacheKey, data, globalRankingsCacheTTL)
		}
	}

	return entries, nil
}

func (s *RankingService) invalidateGlobalCache() {
	if err := s.Redis.Del(context.Background(), globalRankingsCacheKey).Err(); err != nil {
		logger.Log.Warn("failed to invalidate global rankings cache", zap.Error(err))
	}
}

// SeasonCloseResult 周结算结果
type SeasonCloseResult struct {
	Processed int    `json:"processedLeagues"`
	Date      string `json:"date"`
	Skipped   bool   `json:"skipped"`
	Reason    string `json:"reason,omitempty"`
}

// ProcessWeeklyPromotionDemotion 周日结算：把今天到期的联赛逐个
// 归档（每个参与者一条不可变历史快照 + 结算奖励），然后标记结束。
//
// 非周日调用与同日重复调用都是显式的空操作，不是错误。
func (s *RankingService) ProcessWeeklyPromotionDemotion() (*SeasonCloseResult, error) {
	return s.settleWeekAt(time.Now())
}

func (s *RankingService) settleWeekAt(now time.Time) (*SeasonCloseResult, error) {
	if now.Weekday() != time.Sunday {
		return &SeasonCloseResult{
			Date:    now.Format("2006-01-02"),
			Skipped: true,
			Reason:  "联赛结算只在周日执行",
		}, nil
	}

	processed := 0
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		leagues, err := s.LeagueRepo.LeaguesClosingOnTx(tx, now)
		if err != nil {
			return err
		}

		for i := range leagues {
			if err := s.closeLeagueTx(tx, &leagues[i], now); err != nil {
				return err
			}
			processed++
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	if processed > 0 {
		monitoring.LeaguesClosedCounter.Add(float64(processed))
		logger.Log.Info("weekly leagues settled",
			zap.Int("processed", processed),
			zap.String("date", now.Format("2006-01-02")))
	}

	return &SeasonCloseResult{
		Processed: processed,
		Date:      now.Format("2006-01-02"),
	}, nil
}

// closeLeagueTx 归档一个联赛的全部参与者并标记结束
func (s *RankingService) closeLeagueTx(tx *gorm.DB, league *model.League, now time.Time) error {
	participants, err := s.LeagueRepo.ParticipantsOfTx(tx, league.ID)
	if err != nil {
		return err
	}

	tier := model.TierInfo(league.Tier, s.tierTable)
	for _, p := range participants {
		record := &model.UserRankingHistory{
			UserID:         p.UserID,
			LeagueID:       league.ID,
			FinalRank:      p.CurrentRank,
			FinalExp:       p.WeeklyTotalExp(),
			FinalCodingExp: p.WeeklyCodingExp,
			FinalCertExp:   p.WeeklyCertExp,
			Result:         model.ResultFromStatus(p.Status),
			RewardCoins:    model.CalculateReward(p.CurrentRank, tier, s.Cfg.League.BaseRewardCoins),
			RecordedAt:     now,
		}
		if err := s.LeagueRepo.CreateHistoryTx(tx, record); err != nil {
			return err
		}
	}

	return s.LeagueRepo.MarkFinishedTx(tx, league.ID)
}

// RebuildGlobalRankings 全量重建全服名次（管理端修复工具）
func (s *RankingService) RebuildGlobalRankings() (int, error) {
	rebuilt := 0
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		rows, err := s.RankingRepo.AllGlobalTx(tx)
		if err != nil {
			return err
		}

		model.AssignGlobalRanks(rows)

		for _, row := range rows {
			if err := s.RankingRepo.SaveGlobalTx(tx, row); err != nil {
				return err
			}
		}
		rebuilt = len(rows)
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.invalidateGlobalCache()
	return rebuilt, nil
}

type RankingHistoryEntry struct {
	WeekStart   string             `json:"weekStart"`
	WeekEnd     string             `json:"weekEnd"`
	Tier        model.Tier         `json:"tier"`
	TierIcon    string             `json:"tierIcon"`
	FinalRank   int                `json:"finalRank"`
	FinalExp    int64              `json:"finalExp"`
	Result      model.LeagueResult `json:"result"`
	RewardCoins int                `json:"rewardCoins"`
	RecordedAt  time.Time          `json:"recordedAt"`
}

// GetUserRankingHistory 历史联赛战绩，新在前
func (s *RankingService) GetUserRankingHistory(userID uint, limit int) ([]RankingHistoryEntry, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	records, err := s.RankingRepo.GetUserHistory(userID, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]RankingHistoryEntry, len(records))
	for i, record := range records {
		tier := model.TierInfo(record.League.Tier, s.tierTable)
		entries[i] = RankingHistoryEntry{
			WeekStart:   record.League.WeekStart.Format("2006-01-02"),
			WeekEnd:     record.League.WeekEnd.Format("2006-01-02"),
			Tier:        record.League.Tier,
			TierIcon:    tier.Icon,
			FinalRank:   record.FinalRank,
			FinalExp:    record.FinalExp,
			Result:      record.Result,
			RewardCoins: record.RewardCoins,
			RecordedAt:  record.RecordedAt,
		}
	}
	return entries, nil
}
