package model

import "time"

type LessonStatus string

const (
	LessonLocked     LessonStatus = "locked"      // 前一课未完成
	LessonAvailable  LessonStatus = "available"   // 可开始
	LessonInProgress LessonStatus = "in_progress" // 进行中
	LessonCompleted  LessonStatus = "completed"   // 已完成（可复习）
)

// MoveResult move_to_next_problem 的结果
type MoveResult string

const (
	NextProblem   MoveResult = "next_problem"
	RoundComplete MoveResult = "round_complete"
)

// UserLessonProgress 用户的课程进行状态
//
// 轮次模型：第 1 轮包含课程的全部题目，之后每一轮只重做上一轮
// 答错的题目，直到没有错题为止。所有状态变更方法都只修改内存中的
// 快照，持久化由事务内的 repository 负责。
type UserLessonProgress struct {
	BaseModel
	UserID   uint `gorm:"uniqueIndex:idx_user_lesson;not null" json:"userId"`
	LessonID uint `gorm:"uniqueIndex:idx_user_lesson;not null" json:"lessonId"`

	IsCompleted  bool `gorm:"default:false" json:"isCompleted"`
	IsInProgress bool `gorm:"default:false" json:"isInProgress"`

	// 中途放弃追踪（重置进度时保留）
	AbandonCount  int        `gorm:"default:0" json:"abandonCount"`
	LastAbandonAt *time.Time `json:"lastAbandonAt"`

	// 当前轮次信息
	CurrentRound        int `gorm:"default:1" json:"currentRound"` // 第1轮：全部题目，第2轮起：仅错题
	CurrentProblemIndex int `gorm:"default:0" json:"currentProblemIndex"`

	// 题目列表管理
	CurrentRoundProblems   []uint `gorm:"serializer:json;type:json" json:"currentRoundProblems"`
	FailedProblemsThisRnd  []uint `gorm:"serializer:json;type:json;column:failed_problems_this_round" json:"failedProblemsThisRound"`
	CompletedProblemIDs    []uint `gorm:"serializer:json;type:json" json:"completedProblemIds"`
	TotalProblems          int    `gorm:"default:0" json:"totalProblems"`
	CompletedProblemsCount int    `gorm:"default:0" json:"completedProblemsCount"`

	StartedAt   *time.Time `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

func (UserLessonProgress) TableName() string {
	return "user_lesson_progress"
}

// InitializeRoundOne 初始化第一轮（全部题目）
func (p *UserLessonProgress) InitializeRoundOne(problemIDs []uint, now time.Time) {
	p.CurrentRound = 1
	p.CurrentProblemIndex = 0
	p.CurrentRoundProblems = append([]uint(nil), problemIDs...)
	p.FailedProblemsThisRnd = []uint{}
	p.CompletedProblemIDs = []uint{}
	p.CompletedProblemsCount = 0
	p.TotalProblems = len(problemIDs)
	p.IsInProgress = true
	p.StartedAt = &now
}

// ResetProgress 中途放弃时重置进度，保留放弃次数审计
func (p *UserLessonProgress) ResetProgress(now time.Time) {
	p.CurrentRound = 1
	p.CurrentProblemIndex = 0
	p.FailedProblemsThisRnd = []uint{}
	p.CompletedProblemIDs = []uint{}
	p.CompletedProblemsCount = 0
	p.IsInProgress = false
	p.AbandonCount++
	p.LastAbandonAt = &now
}

// StartNextRound 开始下一轮（仅错题）。没有错题时返回 false 且不改状态。
func (p *UserLessonProgress) StartNextRound() bool {
	if len(p.FailedProblemsThisRnd) == 0 {
		return false
	}

	p.CurrentRound++
	p.CurrentProblemIndex = 0
	p.CurrentRoundProblems = append([]uint(nil), p.FailedProblemsThisRnd...)
	p.FailedProblemsThisRnd = []uint{}
	return true
}

// CurrentProblemID 当前应作答的题目，轮次已结束时返回 false
func (p *UserLessonProgress) CurrentProblemID() (uint, bool) {
	if p.CurrentProblemIndex >= len(p.CurrentRoundProblems) {
		return 0, false
	}
	return p.CurrentRoundProblems[p.CurrentProblemIndex], true
}

// MoveToNextProblem 移动到下一题
func (p *UserLessonProgress) MoveToNextProblem() MoveResult {
	p.CurrentProblemIndex++

	if p.CurrentProblemIndex >= len(p.CurrentRoundProblems) {
		return RoundComplete
	}
	return NextProblem
}

// MarkProblemFailed 记录答错（试错型题目用），幂等
func (p *UserLessonProgress) MarkProblemFailed(problemID uint) {
	for _, id := range p.FailedProblemsThisRnd {
		if id == problemID {
			return
		}
	}
	p.FailedProblemsThisRnd = append(p.FailedProblemsThisRnd, problemID)
}

// MarkProblemCompleted 记录完成，幂等
func (p *UserLessonProgress) MarkProblemCompleted(problemID uint) {
	for _, id := range p.CompletedProblemIDs {
		if id == problemID {
			return
		}
	}
	p.CompletedProblemIDs = append(p.CompletedProblemIDs, problemID)
	p.CompletedProblemsCount++
}

// AllProblemsCompleted 无论在哪一轮完成，完成数达到总数即整课完成
func (p *UserLessonProgress) AllProblemsCompleted() bool {
	return p.TotalProblems > 0 && p.CompletedProblemsCount >= p.TotalProblems
}

// Complete 标记整课完成
func (p *UserLessonProgress) Complete(now time.Time) {
	p.IsCompleted = true
	p.IsInProgress = false
	if p.CompletedAt == nil {
		p.CompletedAt = &now
	}
}

// Status 从进度记录推导课程状态（锁定判断由调用方先行处理）
func (p *UserLessonProgress) Status() LessonStatus {
	if p == nil {
		return LessonAvailable
	}
	if p.IsCompleted {
		return LessonCompleted
	}
	if p.IsInProgress {
		return LessonInProgress
	}
	return LessonAvailable
}
