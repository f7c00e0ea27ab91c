package repository

import (
	"codequest_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type WorldRepository struct {
	DB *gorm.DB
}

func NewWorldRepository(db *gorm.DB) *WorldRepository {
	return &WorldRepository{DB: db}
}

func (r *WorldRepository) ListWorlds() ([]model.World, error) {
	var worlds []model.World
	err := r.DB.Order("title").Find(&worlds).Error
	return worlds, err
}

func (r *WorldRepository) FindWorldByID(id uint) (*model.World, error) {
	var world model.World
	err := r.DB.First(&world, id).Error
	return &world, err
}

func (r *WorldRepository) ListStages(worldID uint) ([]model.Stage, error) {
	var stages []model.Stage
	err := r.DB.Where("world_id = ?", worldID).Order("`order`").Find(&stages).Error
	return stages, err
}

func (r *WorldRepository) FindStageByID(id uint) (*model.Stage, error) {
	var stage model.Stage
	err := r.DB.First(&stage, id).Error
	return &stage, err
}

// FindPrevStage 同一世界内顺序紧邻的上一个阶段，不存在时返回 nil
func (r *WorldRepository) FindPrevStage(stage *model.Stage) (*model.Stage, error) {
	var prev model.Stage
	err := r.DB.Where("world_id = ? AND `order` = ?", stage.WorldID, stage.Order-1).
		First(&prev).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prev, nil
}

func (r *WorldRepository) GetUserWorld(userID, worldID uint) (*model.UserWorld, error) {
	var uw model.UserWorld
	err := r.DB.Where("user_id = ? AND world_id = ?", userID, worldID).First(&uw).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &uw, nil
}

func (r *WorldRepository) TouchUserWorld(userID, worldID uint) error {
	now := time.Now()
	uw := model.UserWorld{
		UserID:        userID,
		WorldID:       worldID,
		IsUnlocked:    true,
		LastStudiedAt: &now,
	}

	return r.DB.Transaction(func(tx *gorm.DB) error {
		var existing model.UserWorld
		err := tx.Where("user_id = ? AND world_id = ?", userID, worldID).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			return tx.Create(&uw).Error
		}
		if err != nil {
			return err
		}
		return tx.Model(&existing).Update("last_studied_at", now).Error
	})
}

func (r *WorldRepository) GetStageProgress(userID, stageID uint) (*model.UserStageProgress, error) {
	var sp model.UserStageProgress
	err := r.DB.Where("user_id = ? AND stage_id = ?", userID, stageID).First(&sp).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

// MarkStageCompletedTx 阶段完成 upsert，重复调用不刷新完成时间
func (r *WorldRepository) MarkStageCompletedTx(tx *gorm.DB, userID, stageID uint, now time.Time) error {
	var sp model.UserStageProgress
	err := tx.Where("user_id = ? AND stage_id = ?", userID, stageID).First(&sp).Error
	if err == gorm.ErrRecordNotFound {
		sp = model.UserStageProgress{
			UserID:      userID,
			StageID:     stageID,
			IsCompleted: true,
			CompletedAt: &now,
		}
		return tx.Create(&sp).Error
	}
	if err != nil {
		return err
	}
	if sp.IsCompleted {
		return nil
	}
	sp.IsCompleted = true
	sp.CompletedAt = &now
	return tx.Save(&sp).Error
}

func (r *WorldRepository) CountStages(worldID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Stage{}).Where("world_id = ?", worldID).Count(&count).Error
	return count, err
}
