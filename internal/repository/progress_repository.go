package repository

import (
	"codequest_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// GetLessonProgress 无记录时返回 nil（'尚未开始'是合法状态，不是错误）
func (r *ProgressRepository) GetLessonProgress(userID, lessonID uint) (*model.UserLessonProgress, error) {
	return getLessonProgress(r.DB, userID, lessonID)
}

func getLessonProgress(db *gorm.DB, userID, lessonID uint) (*model.UserLessonProgress, error) {
	var progress model.UserLessonProgress
	err := db.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&progress).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// GetLessonProgressTx 事务内读取进度记录
func (r *ProgressRepository) GetLessonProgressTx(tx *gorm.DB, userID, lessonID uint) (*model.UserLessonProgress, error) {
	return getLessonProgress(tx, userID, lessonID)
}

func (r *ProgressRepository) SaveLessonProgress(tx *gorm.DB, progress *model.UserLessonProgress) error {
	return tx.Save(progress).Error
}

// CountCompletedLessons 阶段内该用户已完成的课程数
func (r *ProgressRepository) CountCompletedLessons(userID, stageID uint) (int64, error) {
	return countCompletedLessons(r.DB, userID, stageID)
}

func (r *ProgressRepository) CountCompletedLessonsTx(tx *gorm.DB, userID, stageID uint) (int64, error) {
	return countCompletedLessons(tx, userID, stageID)
}

func countCompletedLessons(db *gorm.DB, userID, stageID uint) (int64, error) {
	var count int64
	err := db.Model(&model.UserLessonProgress{}).
		Joins("JOIN lessons ON lessons.id = user_lesson_progress.lesson_id").
		Where("user_lesson_progress.user_id = ? AND lessons.stage_id = ? AND user_lesson_progress.is_completed = ?",
			userID, stageID, true).
		Count(&count).Error
	return count, err
}

// GetOrCreateUserProgress 用户全局统计，没有则创建
func (r *ProgressRepository) GetOrCreateUserProgress(tx *gorm.DB, userID uint) (*model.UserProgress, error) {
	var progress model.UserProgress
	err := tx.Where("user_id = ?", userID).First(&progress).Error
	if err == gorm.ErrRecordNotFound {
		progress = model.UserProgress{UserID: userID}
		if err := tx.Create(&progress).Error; err != nil {
			return nil, err
		}
		return &progress, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *ProgressRepository) SaveUserProgress(tx *gorm.DB, progress *model.UserProgress) error {
	return tx.Save(progress).Error
}

// HasStudiedOn 当天是否已有学习记录（周目标去重用）
func (r *ProgressRepository) HasStudiedOn(tx *gorm.DB, userID uint, date time.Time) (bool, error) {
	var count int64
	err := tx.Model(&model.DailyStudy{}).
		Where("user_id = ? AND study_date = ?", userID, date.Format("2006-01-02")).
		Count(&count).Error
	return count > 0, err
}

// UpsertDailyStudy 累加当日学习记录，(user, date) 唯一
func (r *ProgressRepository) UpsertDailyStudy(tx *gorm.DB, userID uint, date time.Time, delta model.DailyStudy) error {
	var daily model.DailyStudy
	err := tx.Where("user_id = ? AND study_date = ?", userID, date.Format("2006-01-02")).
		First(&daily).Error

	if err == gorm.ErrRecordNotFound {
		delta.UserID = userID
		delta.StudyDate = date
		return tx.Create(&delta).Error
	}
	if err != nil {
		return err
	}

	daily.LessonsCompleted += delta.LessonsCompleted
	daily.ProblemsSolved += delta.ProblemsSolved
	daily.ExpEarned += delta.ExpEarned
	daily.StudyMinutes += delta.StudyMinutes
	daily.CorrectAnswers += delta.CorrectAnswers
	daily.TotalAttempts += delta.TotalAttempts
	return tx.Save(&daily).Error
}

func (r *ProgressRepository) RecentDailyStudies(userID uint, days int) ([]model.DailyStudy, error) {
	var studies []model.DailyStudy
	err := r.DB.Where("user_id = ?", userID).
		Order("study_date DESC").
		Limit(days).
		Find(&studies).Error
	return studies, err
}
