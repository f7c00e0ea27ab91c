package service

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"codequest_backend/internal/config"
	"codequest_backend/internal/model"
	"codequest_backend/internal/util"
	"codequest_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeRankingStore 内存版排名存储。Transaction 失败时整体回滚到快照，
// 用来在无数据库环境下验证加经验与周结算的事务语义。
type fakeRankingStore struct {
	users        map[uint]model.User
	leagues      map[string]model.League
	participants map[string]model.LeagueParticipant
	globals      map[uint]model.GlobalRanking
	histories    []model.UserRankingHistory
	seq          int

	// 故障注入
	incrementFails  bool  // 模拟并发抢占了最后一个名额
	upsertGlobalErr error // 全服排名写入失败
}

func newFakeRankingStore() *fakeRankingStore {
	return &fakeRankingStore{
		users:        map[uint]model.User{},
		leagues:      map[string]model.League{},
		participants: map[string]model.LeagueParticipant{},
		globals:      map[uint]model.GlobalRanking{},
	}
}

func (f *fakeRankingStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeRankingStore) snapshot() *fakeRankingStore {
	snap := newFakeRankingStore()
	for k, v := range f.users {
		snap.users[k] = v
	}
	for k, v := range f.leagues {
		snap.leagues[k] = v
	}
	for k, v := range f.participants {
		snap.participants[k] = v
	}
	for k, v := range f.globals {
		snap.globals[k] = v
	}
	snap.histories = append([]model.UserRankingHistory(nil), f.histories...)
	snap.seq = f.seq
	return snap
}

func (f *fakeRankingStore) Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error {
	snap := f.snapshot()
	if err := fc(nil); err != nil {
		f.users = snap.users
		f.leagues = snap.leagues
		f.participants = snap.participants
		f.globals = snap.globals
		f.histories = snap.histories
		f.seq = snap.seq
		return err
	}
	return nil
}

func (f *fakeRankingStore) FindByID(id uint) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (f *fakeRankingStore) FindByIDTx(_ *gorm.DB, id uint) (*model.User, error) {
	return f.FindByID(id)
}

func (f *fakeRankingStore) AddExpTx(_ *gorm.DB, userID uint, amount int64) error {
	u, ok := f.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Exp += amount
	f.users[userID] = u
	return nil
}

func (f *fakeRankingStore) FindOpenLeagueTx(_ *gorm.DB, tier model.Tier, weekStart time.Time) (*model.League, error) {
	for _, l := range f.leagues {
		if l.Tier == tier && sameDay(l.WeekStart, weekStart) && l.IsActive && !l.IsFinished &&
			l.CurrentParticipants < l.MaxParticipants {
			league := l
			return &league, nil
		}
	}
	return nil, nil
}

func (f *fakeRankingStore) CreateLeagueTx(_ *gorm.DB, league *model.League) error {
	if league.ID == "" {
		league.ID = f.nextID("league")
	}
	f.leagues[league.ID] = *league
	return nil
}

func (f *fakeRankingStore) FindParticipantTx(_ *gorm.DB, leagueID string, userID uint) (*model.LeagueParticipant, error) {
	for _, p := range f.participants {
		if p.LeagueID == leagueID && p.UserID == userID {
			participant := p
			return &participant, nil
		}
	}
	return nil, nil
}

func (f *fakeRankingStore) CreateParticipantTx(_ *gorm.DB, p *model.LeagueParticipant) error {
	if p.ID == "" {
		p.ID = f.nextID("participant")
	}
	f.participants[p.ID] = *p
	return nil
}

func (f *fakeRankingStore) SaveParticipantTx(_ *gorm.DB, p *model.LeagueParticipant) error {
	f.participants[p.ID] = *p
	return nil
}

func (f *fakeRankingStore) IncrementParticipantsTx(_ *gorm.DB, leagueID string) (bool, error) {
	if f.incrementFails {
		return false, nil
	}
	l := f.leagues[leagueID]
	if l.CurrentParticipants >= l.MaxParticipants {
		return false, nil
	}
	l.CurrentParticipants++
	f.leagues[leagueID] = l
	return true, nil
}

func (f *fakeRankingStore) ParticipantsOfTx(_ *gorm.DB, leagueID string) ([]*model.LeagueParticipant, error) {
	var out []*model.LeagueParticipant
	for _, p := range f.participants {
		if p.LeagueID == leagueID {
			participant := p
			out = append(out, &participant)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRankingStore) ParticipantsRanked(leagueID string) ([]model.LeagueParticipant, error) {
	ptrs, _ := f.ParticipantsOfTx(nil, leagueID)
	out := make([]model.LeagueParticipant, len(ptrs))
	for i, p := range ptrs {
		p.User = f.users[p.UserID]
		out[i] = *p
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CurrentRank < out[j].CurrentRank })
	return out, nil
}

func (f *fakeRankingStore) FindCurrentParticipation(userID uint, weekStart time.Time) (*model.LeagueParticipant, error) {
	for _, p := range f.participants {
		l := f.leagues[p.LeagueID]
		if p.UserID == userID && sameDay(l.WeekStart, weekStart) && l.IsActive {
			participant := p
			participant.League = l
			return &participant, nil
		}
	}
	return nil, nil
}

func (f *fakeRankingStore) LeaguesClosingOnTx(_ *gorm.DB, today time.Time) ([]model.League, error) {
	var out []model.League
	for _, l := range f.leagues {
		if l.IsActive && !l.IsFinished && sameDay(l.WeekEnd, today) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRankingStore) MarkFinishedTx(_ *gorm.DB, leagueID string) error {
	l := f.leagues[leagueID]
	l.IsActive = false
	l.IsFinished = true
	f.leagues[leagueID] = l
	return nil
}

func (f *fakeRankingStore) CreateHistoryTx(_ *gorm.DB, record *model.UserRankingHistory) error {
	f.histories = append(f.histories, *record)
	return nil
}

func (f *fakeRankingStore) UpsertGlobalTx(_ *gorm.DB, userID uint, totalExp int64, tier model.Tier) (*model.GlobalRanking, error) {
	if f.upsertGlobalErr != nil {
		return nil, f.upsertGlobalErr
	}
	row := f.globals[userID]
	row.UserID = userID
	row.TotalExp = totalExp
	row.CurrentTier = tier
	f.globals[userID] = row
	return &row, nil
}

func (f *fakeRankingStore) CountHigherTx(_ *gorm.DB, totalExp int64) (int64, error) {
	var count int64
	for _, row := range f.globals {
		if row.TotalExp > totalExp {
			count++
		}
	}
	return count, nil
}

func (f *fakeRankingStore) UpdateRankTx(_ *gorm.DB, userID uint, rank int) error {
	row := f.globals[userID]
	row.Rank = rank
	f.globals[userID] = row
	return nil
}

func (f *fakeRankingStore) GetGlobalPage(limit, offset int) ([]model.GlobalRanking, error) {
	var rows []model.GlobalRanking
	for _, row := range f.globals {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Rank < rows[j].Rank })
	if offset >= len(rows) {
		return nil, nil
	}
	rows = rows[offset:]
	if limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakeRankingStore) AllGlobalTx(_ *gorm.DB) ([]*model.GlobalRanking, error) {
	var rows []*model.GlobalRanking
	for _, row := range f.globals {
		r := row
		rows = append(rows, &r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].UserID < rows[j].UserID })
	return rows, nil
}

func (f *fakeRankingStore) SaveGlobalTx(_ *gorm.DB, row *model.GlobalRanking) error {
	f.globals[row.UserID] = *row
	return nil
}

func (f *fakeRankingStore) GetUserHistory(userID uint, limit int) ([]model.UserRankingHistory, error) {
	var out []model.UserRankingHistory
	for _, h := range f.histories {
		if h.UserID == userID {
			h.League = f.leagues[h.LeagueID]
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func newTestRankingService(store *fakeRankingStore) *RankingService {
	logger.Log = zap.NewNop()
	cfg := &config.Config{
		League: config.LeagueConfig{
			MaxParticipants: 50,
			PromotionZone:   10,
			DemotionZone:    10,
			BaseRewardCoins: 100,
		},
	}
	// 缓存失效失败只记日志，不影响结果
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	return NewRankingService(store, store, store, cfg, store, rdb, model.DefaultTierTable())
}

func TestAddExpJoinsWeeklyLeague(t *testing.T) {
	store := newFakeRankingStore()
	store.users[42] = model.User{BaseModel: model.BaseModel{ID: 42}, Nickname: "gopher", Exp: 100}
	svc := newTestRankingService(store)

	wednesday := time.Date(2026, 8, 26, 14, 0, 0, 0, time.UTC)
	res, err := svc.addExpAt(42, 50, model.ExpTypeCoding, wednesday)
	require.NoError(t, err)

	assert.Equal(t, int64(150), res.TotalExp)
	assert.Equal(t, int64(50), res.WeeklyExp)
	assert.Equal(t, 1, res.LeagueRank)
	assert.Equal(t, model.TierFor(150, model.DefaultTierTable()).Tier, res.Tier)

	require.Len(t, store.leagues, 1)
	for _, l := range store.leagues {
		assert.True(t, sameDay(l.WeekStart, time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)), "联赛周期周一对齐")
		assert.Equal(t, 1, l.CurrentParticipants)
	}
	require.Len(t, store.participants, 1)
	assert.Equal(t, 1, store.globals[42].Rank)

	// 同周再次加经验：复用已有联赛与参与记录
	res, err = svc.addExpAt(42, 30, model.ExpTypeCertification, wednesday.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, int64(80), res.WeeklyExp)
	require.Len(t, store.participants, 1)
	for _, l := range store.leagues {
		assert.Equal(t, 1, l.CurrentParticipants)
	}
}

func TestAddExpRollsBackWhenSeatLost(t *testing.T) {
	store := newFakeRankingStore()
	store.users[42] = model.User{BaseModel: model.BaseModel{ID: 42}, Exp: 100}
	store.incrementFails = true
	svc := newTestRankingService(store)

	wednesday := time.Date(2026, 8, 26, 14, 0, 0, 0, time.UTC)
	_, err := svc.addExpAt(42, 50, model.ExpTypeCoding, wednesday)
	require.ErrorIs(t, err, util.ErrLeagueFull)

	// 经验累加、建联赛、参与记录全部随事务回滚
	assert.Equal(t, int64(100), store.users[42].Exp)
	assert.Empty(t, store.leagues)
	assert.Empty(t, store.participants)
	assert.Empty(t, store.globals)
}

func TestAddExpRollsBackOnLateStepFailure(t *testing.T) {
	store := newFakeRankingStore()
	store.users[42] = model.User{BaseModel: model.BaseModel{ID: 42}, Exp: 100}
	store.upsertGlobalErr = errors.New("global ranking unavailable")
	svc := newTestRankingService(store)

	wednesday := time.Date(2026, 8, 26, 14, 0, 0, 0, time.UTC)
	_, err := svc.addExpAt(42, 50, model.ExpTypeCoding, wednesday)
	require.ErrorIs(t, err, store.upsertGlobalErr)

	assert.Equal(t, int64(100), store.users[42].Exp, "最后一步失败也不能留下半套状态")
	assert.Empty(t, store.leagues)
	assert.Empty(t, store.participants)
}

func TestWeeklySettlementIsIdempotent(t *testing.T) {
	store := newFakeRankingStore()
	weekStart := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 8, 30, 3, 0, 0, 0, time.UTC)
	tier := model.DefaultTierTable()[0]

	league := model.League{
		UUIDBase:            model.UUIDBase{ID: "league-w35"},
		Tier:                tier.Tier,
		WeekStart:           weekStart,
		WeekEnd:             weekStart.AddDate(0, 0, 6),
		MaxParticipants:     50,
		CurrentParticipants: 2,
		IsActive:            true,
	}
	store.leagues[league.ID] = league
	store.participants["p-1"] = model.LeagueParticipant{
		UUIDBase: model.UUIDBase{ID: "p-1"}, LeagueID: league.ID, UserID: 1,
		WeeklyCodingExp: 300, CurrentRank: 1, Status: model.StatusPromotion, JoinedAt: weekStart,
	}
	store.participants["p-2"] = model.LeagueParticipant{
		UUIDBase: model.UUIDBase{ID: "p-2"}, LeagueID: league.ID, UserID: 2,
		WeeklyCodingExp: 100, CurrentRank: 2, Status: model.StatusPromotion, JoinedAt: weekStart,
	}
	svc := newTestRankingService(store)

	first, err := svc.settleWeekAt(sunday)
	require.NoError(t, err)
	assert.False(t, first.Skipped)
	assert.Equal(t, 1, first.Processed)

	closed := store.leagues[league.ID]
	assert.True(t, closed.IsFinished)
	assert.False(t, closed.IsActive)

	require.Len(t, store.histories, 2)
	winner := store.histories[0]
	assert.Equal(t, uint(1), winner.UserID)
	assert.Equal(t, 1, winner.FinalRank)
	assert.Equal(t, int64(300), winner.FinalExp)
	assert.Equal(t, model.ResultFromStatus(model.StatusPromotion), winner.Result)
	assert.Equal(t, model.CalculateReward(1, tier, 100), winner.RewardCoins)

	// 同日重复结算：已结束的联赛不再被选中，空操作而非报错
	second, err := svc.settleWeekAt(sunday)
	require.NoError(t, err)
	assert.False(t, second.Skipped)
	assert.Equal(t, 0, second.Processed)
	assert.Len(t, store.histories, 2)
}

func TestWeeklySettlementOnlyRunsOnSunday(t *testing.T) {
	store := newFakeRankingStore()
	weekStart := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	league := model.League{
		UUIDBase:  model.UUIDBase{ID: "league-w35"},
		Tier:      model.DefaultTierTable()[0].Tier,
		WeekStart: weekStart,
		WeekEnd:   weekStart.AddDate(0, 0, 6),
		IsActive:  true,
	}
	store.leagues[league.ID] = league
	svc := newTestRankingService(store)

	saturday := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	res, err := svc.settleWeekAt(saturday)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Zero(t, res.Processed)
	assert.False(t, store.leagues[league.ID].IsFinished)
}
