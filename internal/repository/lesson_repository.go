package repository

import (
	"codequest_backend/internal/model"

	"gorm.io/gorm"
)

type LessonRepository struct {
	DB *gorm.DB
}

func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: db}
}

func (r *LessonRepository) FindByID(id uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.First(&lesson, id).Error
	return &lesson, err
}

func (r *LessonRepository) ListByStage(stageID uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Where("stage_id = ?", stageID).Order("`order`").Find(&lessons).Error
	return lessons, err
}

// FindPrevLesson 同一阶段内顺序紧邻的上一课，不存在时返回 nil
func (r *LessonRepository) FindPrevLesson(lesson *model.Lesson) (*model.Lesson, error) {
	var prev model.Lesson
	err := r.DB.Where("stage_id = ? AND `order` = ?", lesson.StageID, lesson.Order-1).
		First(&prev).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prev, nil
}

// ProblemIDsOfLesson 课程全部题目 ID，按题目顺序
func (r *LessonRepository) ProblemIDsOfLesson(lessonID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Problem{}).
		Where("lesson_id = ?", lessonID).
		Order("`order`").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *LessonRepository) FindProblemByID(id uint) (*model.Problem, error) {
	var problem model.Problem
	err := r.DB.First(&problem, id).Error
	return &problem, err
}

func (r *LessonRepository) ListProblems(lessonID uint) ([]model.Problem, error) {
	var problems []model.Problem
	err := r.DB.Where("lesson_id = ?", lessonID).Order("`order`").Find(&problems).Error
	return problems, err
}

func (r *LessonRepository) CountByStage(stageID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Lesson{}).Where("stage_id = ?", stageID).Count(&count).Error
	return count, err
}
