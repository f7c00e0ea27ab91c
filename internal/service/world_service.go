package service

import (
	"codequest_backend/internal/model"
	"codequest_backend/internal/repository"
	"codequest_backend/internal/util"
	"time"
)

type WorldService struct {
	WorldRepo    *repository.WorldRepository
	LessonRepo   *repository.LessonRepository
	ProgressRepo *repository.ProgressRepository
}

func NewWorldService(
	worldRepo *repository.WorldRepository,
	lessonRepo *repository.LessonRepository,
	progressRepo *repository.ProgressRepository,
) *WorldService {
	return &WorldService{
		WorldRepo:    worldRepo,
		LessonRepo:   lessonRepo,
		ProgressRepo: progressRepo,
	}
}

type WorldView struct {
	ID                 uint       `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Icon               string     `json:"icon"`
	IsUnlocked         bool       `json:"isUnlocked"`
	TotalStages        int        `json:"totalStages"`
	CompletedStages    int        `json:"completedStages"`
	ProgressPercentage int        `json:"progressPercentage"`
	LastStudiedAt      *time.Time `json:"lastStudiedAt,omitempty"`
}

// ListWorlds 世界列表：默认解锁的世界对所有人开放，其余看用户记录
func (s *WorldService) ListWorlds(userID uint) ([]WorldView, error) {
	worlds, err := s.WorldRepo.ListWorlds()
	if err != nil {
		return nil, err
	}

	views := make([]WorldView, len(worlds))
	for i := range worlds {
		world := &worlds[i]

		totalStages, err := s.WorldRepo.CountStages(world.ID)
		if err != nil {
			return nil, err
		}

		uw, err := s.WorldRepo.GetUserWorld(userID, world.ID)
		if err != nil {
			return nil, err
		}

		view := WorldView{
			ID:          world.ID,
			Title:       world.Title,
			Description: world.Description,
			Icon:        world.Icon,
			IsUnlocked:  !world.IsLocked,
			TotalStages: int(totalStages),
		}
		if uw != nil {
			if uw.IsUnlocked {
				view.IsUnlocked = true
			}
			view.CompletedStages = uw.CompletedStage
			view.ProgressPercentage = uw.ProgressPercentage(int(totalStages))
			view.LastStudiedAt = uw.LastStudiedAt
		}
		views[i] = view
	}
	return views, nil
}

type StageView struct {
	ID               uint   `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	Order            int    `json:"order"`
	IsLocked         bool   `json:"isLocked"`
	IsCompleted      bool   `json:"isCompleted"`
	TotalLessons     int    `json:"totalLessons"`
	CompletedLessons int    `json:"completedLessons"`
}

type WorldDetailView struct {
	World  WorldView   `json:"world"`
	Stages []StageView `json:"stages"`
}

// GetWorldDetail 世界详情：阶段按顺序排列，前一阶段未完成则锁定，
// 第一阶段不锁定。
func (s *WorldService) GetWorldDetail(userID, worldID uint) (*WorldDetailView, error) {
	world, err := s.WorldRepo.FindWorldByID(worldID)
	if err != nil {
		return nil, util.ErrWorldNotFound
	}

	stages, err := s.WorldRepo.ListStages(worldID)
	if err != nil {
		return nil, err
	}

	stageViews := make([]StageView, len(stages))
	prevCompleted := true
	completedCount := 0
	for i := range stages {
		stage := &stages[i]

		sp, err := s.WorldRepo.GetStageProgress(userID, stage.ID)
		if err != nil {
			return nil, err
		}
		isCompleted := sp != nil && sp.IsCompleted
		if isCompleted {
			completedCount++
		}

		totalLessons, err := s.LessonRepo.CountByStage(stage.ID)
		if err != nil {
			return nil, err
		}
		completedLessons, err := s.ProgressRepo.CountCompletedLessons(userID, stage.ID)
		if err != nil {
			return nil, err
		}

		stageViews[i] = StageView{
			ID:               stage.ID,
			Title:            stage.Title,
			Description:      stage.Description,
			Order:            stage.Order,
			IsLocked:         !prevCompleted,
			IsCompleted:      isCompleted,
			TotalLessons:     int(totalLessons),
			CompletedLessons: int(completedLessons),
		}

		prevCompleted = isCompleted
	}

	uw, err := s.WorldRepo.GetUserWorld(userID, worldID)
	if err != nil {
		return nil, err
	}

	worldView := WorldView{
		ID:          world.ID,
		Title:       world.Title,
		Description: world.Description,
		Icon:        world.Icon,
		IsUnlocked:  !world.IsLocked,
		TotalStages: len(stages),
	}
	if uw != nil {
		if uw.IsUnlocked {
			worldView.IsUnlocked = true
		}
		worldView.LastStudiedAt = uw.LastStudiedAt
	}
	worldView.CompletedStages = completedCount
	if len(stages) > 0 {
		worldView.ProgressPercentage = completedCount * 100 / len(stages)
	}

	return &WorldDetailView{World: worldView, Stages: stageViews}, nil
}

// UnlockWorld 解锁一个世界（管理员或付费流程触发）
func (s *WorldService) UnlockWorld(userID, worldID uint) error {
	if _, err := s.WorldRepo.FindWorldByID(worldID); err != nil {
		return util.ErrWorldNotFound
	}
	return s.WorldRepo.TouchUserWorld(userID, worldID)
}

// GetStage 阶段基本信息
func (s *WorldService) GetStage(stageID uint) (*model.Stage, error) {
	stage, err := s.WorldRepo.FindStageByID(stageID)
	if err != nil {
		return nil, util.ErrWorldNotFound
	}
	return stage, nil
}
