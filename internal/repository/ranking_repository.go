package repository

import (
	"codequest_backend/internal/model"

	"gorm.io/gorm"
)

type RankingRepository struct {
	DB *gorm.DB
}

func NewRankingRepository(db *gorm.DB) *RankingRepository {
	return &RankingRepository{DB: db}
}

// UpsertGlobalTx 写入总 EXP 与段位（名次另行计算）
func (r *RankingRepository) UpsertGlobalTx(tx *gorm.DB, userID uint, totalExp int64, tier model.Tier) (*model.GlobalRanking, error) {
	var row model.GlobalRanking
	err := tx.Where("user_id = ?", userID).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		row = model.GlobalRanking{UserID: userID, TotalExp: totalExp, CurrentTier: tier, Rank: 0}
		if err := tx.Create(&row).Error; err != nil {
			return nil, err
		}
		return &row, nil
	}
	if err != nil {
		return nil, err
	}

	row.TotalExp = totalExp
	row.CurrentTier = tier
	if err := tx.Save(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// CountHigherTx 总 EXP 严格高于给定值的人数；名次 = 该数 + 1（并列同名次）
func (r *RankingRepository) CountHigherTx(tx *gorm.DB, totalExp int64) (int64, error) {
	var count int64
	err := tx.Model(&model.GlobalRanking{}).
		Where("total_exp > ?", totalExp).
		Count(&count).Error
	return count, err
}

func (r *RankingRepository) UpdateRankTx(tx *gorm.DB, userID uint, rank int) error {
	return tx.Model(&model.GlobalRanking{}).
		Where("user_id = ?", userID).
		Update("rank", rank).
		Error
}

func (r *RankingRepository) GetGlobalPage(limit, offset int) ([]model.GlobalRanking, error) {
	var rows []model.GlobalRanking
	err := r.DB.Preload("User").
		Order("`rank`").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, err
}

func (r *RankingRepository) GetGlobalForUser(userID uint) (*model.GlobalRanking, error) {
	var row model.GlobalRanking
	err := r.DB.Where("user_id = ?", userID).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// AllGlobalTx 全量行（全服名次重建用）
func (r *RankingRepository) AllGlobalTx(tx *gorm.DB) ([]*model.GlobalRanking, error) {
	var rows []*model.GlobalRanking
	err := tx.Find(&rows).Error
	return rows, err
}

func (r *RankingRepository) SaveGlobalTx(tx *gorm.DB, row *model.GlobalRanking) error {
	return tx.Save(row).Error
}

// GetUserHistory 最近的联赛结算记录，新在前
func (r *RankingRepository) GetUserHistory(userID uint, limit int) ([]model.UserRankingHistory, error) {
	var history []model.UserRankingHistory
	err := r.DB.Preload("League").
		Where("user_id = ?", userID).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&history).Error
	return history, err
}
