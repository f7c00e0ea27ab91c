package model

import "time"

// World 编程语言世界（Python、JavaScript 等）
type World struct {
	BaseModel
	Title       string `gorm:"size:100;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Icon        string `gorm:"size:50" json:"icon"`
	IsLocked    bool   `gorm:"default:true" json:"isLocked"`

	Stages []Stage `gorm:"foreignKey:WorldID" json:"stages,omitempty"`
}

func (World) TableName() string {
	return "worlds"
}

// UserWorld 用户的世界学习记录
type UserWorld struct {
	BaseModel
	UserID         uint       `gorm:"uniqueIndex:idx_user_world;not null" json:"userId"`
	WorldID        uint       `gorm:"uniqueIndex:idx_user_world;not null" json:"worldId"`
	IsUnlocked     bool       `gorm:"default:false" json:"isUnlocked"`
	CompletedStage int        `gorm:"default:0" json:"completedStage"`
	LastStudiedAt  *time.Time `json:"lastStudiedAt"` // 只在完成课程时更新

	World World `gorm:"foreignKey:WorldID" json:"world,omitempty"`
}

func (UserWorld) TableName() string {
	return "user_worlds"
}

// ProgressPercentage 世界完成百分比
func (uw *UserWorld) ProgressPercentage(totalStages int) int {
	if totalStages == 0 {
		return 0
	}
	return int(float64(uw.CompletedStage) / float64(totalStages) * 100)
}

// Stage 阶段（世界内按顺序排列）
type Stage struct {
	BaseModel
	WorldID     uint   `gorm:"uniqueIndex:idx_world_order;not null;index" json:"worldId"`
	Title       string `gorm:"size:100;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Order       int    `gorm:"uniqueIndex:idx_world_order;not null" json:"order"`

	Lessons []Lesson `gorm:"foreignKey:StageID" json:"lessons,omitempty"`
}

func (Stage) TableName() string {
	return "stages"
}

// UserStageProgress 用户的阶段完成情况
type UserStageProgress struct {
	BaseModel
	UserID      uint       `gorm:"uniqueIndex:idx_user_stage;not null" json:"userId"`
	StageID     uint       `gorm:"uniqueIndex:idx_user_stage;not null" json:"stageId"`
	IsCompleted bool       `gorm:"default:false" json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt"`
}

func (UserStageProgress) TableName() string {
	return "user_stage_progress"
}
