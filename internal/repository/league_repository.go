package repository

import (
	"codequest_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LeagueRepository struct {
	DB *gorm.DB
}

func NewLeagueRepository(db *gorm.DB) *LeagueRepository {
	return &LeagueRepository{DB: db}
}

// FindOpenLeagueTx 找到本周该段位未满员的活跃联赛并锁行，
// 并发的首次加入者靠这把行锁串行化，防止超员。
func (r *LeagueRepository) FindOpenLeagueTx(tx *gorm.DB, tier model.Tier, weekStart time.Time) (*model.League, error) {
	var league model.League
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tier = ? AND week_start = ? AND is_active = ? AND is_finished = ?",
			tier, weekStart.Format("2006-01-02"), true, false).
		Where("current_participants < max_participants").
		Order("created_at").
		First(&league).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &league, nil
}

func (r *LeagueRepository) CreateLeagueTx(tx *gorm.DB, league *model.League) error {
	return tx.Create(league).Error
}

// FindParticipantTx (league, user) 唯一对
func (r *LeagueRepository) FindParticipantTx(tx *gorm.DB, leagueID string, userID uint) (*model.LeagueParticipant, error) {
	var p model.LeagueParticipant
	err := tx.Where("league_id = ? AND user_id = ?", leagueID, userID).First(&p).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *LeagueRepository) CreateParticipantTx(tx *gorm.DB, p *model.LeagueParticipant) error {
	return tx.Create(p).Error
}

func (r *LeagueRepository) SaveParticipantTx(tx *gorm.DB, p *model.LeagueParticipant) error {
	return tx.Save(p).Error
}

// IncrementParticipantsTx 在容量限制内递增参与者计数。
// 返回 false 表示联赛已满员（并发加入失败，整个事务应回滚）。
func (r *LeagueRepository) IncrementParticipantsTx(tx *gorm.DB, leagueID string) (bool, error) {
	result := tx.Model(&model.League{}).
		Where("id = ? AND current_participants < max_participants", leagueID).
		Update("current_participants", gorm.Expr("current_participants + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ParticipantsOfTx 联赛全体参与者（排名重算前的一致快照）
func (r *LeagueRepository) ParticipantsOfTx(tx *gorm.DB, leagueID string) ([]*model.LeagueParticipant, error) {
	var participants []*model.LeagueParticipant
	err := tx.Where("league_id = ?", leagueID).Find(&participants).Error
	return participants, err
}

// ParticipantsRanked 排名升序的参与者列表（读路径）
func (r *LeagueRepository) ParticipantsRanked(leagueID string) ([]model.LeagueParticipant, error) {
	var participants []model.LeagueParticipant
	err := r.DB.Preload("User").
		Where("league_id = ?", leagueID).
		Order("current_rank").
		Find(&participants).Error
	return participants, err
}

// FindCurrentParticipation 用户本周所在联赛的参与记录，未参加返回 nil
func (r *LeagueRepository) FindCurrentParticipation(userID uint, weekStart time.Time) (*model.LeagueParticipant, error) {
	var p model.LeagueParticipant
	err := r.DB.Preload("League").
		Joins("JOIN leagues ON leagues.id = league_participants.league_id").
		Where("league_participants.user_id = ? AND leagues.week_start = ? AND leagues.is_active = ?",
			userID, weekStart.Format("2006-01-02"), true).
		First(&p).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *LeagueRepository) FindLeagueByID(id string) (*model.League, error) {
	var league model.League
	err := r.DB.First(&league, "id = ?", id).Error
	return &league, err
}

// LeaguesClosingOnTx 今天到期、仍活跃且未结算的联赛。
// 已结算的联赛不会再被选中，同日重复结算因此是空操作。
func (r *LeagueRepository) LeaguesClosingOnTx(tx *gorm.DB, today time.Time) ([]model.League, error) {
	var leagues []model.League
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("week_end = ? AND is_active = ? AND is_finished = ?",
			today.Format("2006-01-02"), true, false).
		Find(&leagues).Error
	return leagues, err
}

func (r *LeagueRepository) MarkFinishedTx(tx *gorm.DB, leagueID string) error {
	return tx.Model(&model.League{}).
		Where("id = ?", leagueID).
		Updates(map[string]interface{}{"is_active": false, "is_finished": true}).
		Error
}

func (r *LeagueRepository) CreateHistoryTx(tx *gorm.DB, record *model.UserRankingHistory) error {
	return tx.Create(record).Error
}
