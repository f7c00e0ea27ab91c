package service

import (
	"codequest_backend/internal/model"
	"codequest_backend/internal/repository"
	"codequest_backend/internal/util"
	"codequest_backend/pkg/logger"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LessonService struct {
	LessonRepo   *repository.LessonRepository
	WorldRepo    *repository.WorldRepository
	ProgressRepo *repository.ProgressRepository
	UserRepo     *repository.UserRepository
	Ranking      *RankingService
	DB           *gorm.DB
}

func NewLessonService(
	lessonRepo *repository.LessonRepository,
	worldRepo *repository.WorldRepository,
	progressRepo *repository.ProgressRepository,
	userRepo *repository.UserRepository,
	ranking *RankingService,
	db *gorm.DB,
) *LessonService {
	return &LessonService{
		LessonRepo:   lessonRepo,
		WorldRepo:    worldRepo,
		ProgressRepo: progressRepo,
		UserRepo:     userRepo,
		Ranking:      ranking,
		DB:           db,
	}
}

// LessonStatusFor 推导课程状态：前一课未完成即锁定，每个阶段的
// 第一课不锁定。
func (s *LessonService) LessonStatusFor(userID uint, lesson *model.Lesson) (model.LessonStatus, error) {
	prev, err := s.LessonRepo.FindPrevLesson(lesson)
	if err != nil {
		return "", err
	}
	if prev != nil {
		prevProgress, err := s.ProgressRepo.GetLessonProgress(userID, prev.ID)
		if err != nil {
			return "", err
		}
		if prevProgress == nil || !prevProgress.IsCompleted {
			return model.LessonLocked, nil
		}
	}

	progress, err := s.ProgressRepo.GetLessonProgress(userID, lesson.ID)
	if err != nil {
		return "", err
	}
	return progress.Status(), nil
}

type LessonView struct {
	ID            uint               `json:"id"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	Order         int                `json:"order"`
	Status        model.LessonStatus `json:"status"`
	TotalProblems int                `json:"totalProblems"`
	CurrentRound  int                `json:"currentRound,omitempty"`
}

// ListLessons 阶段内课程列表（带用户状态）
func (s *LessonService) ListLessons(userID, stageID uint) ([]LessonView, error) {
	if _, err := s.WorldRepo.FindStageByID(stageID); err != nil {
		return nil, util.ErrWorldNotFound
	}

	lessons, err := s.LessonRepo.ListByStage(stageID)
	if err != nil {
		return nil, err
	}

	views := make([]LessonView, len(lessons))
	prevCompleted := true // 第一课不锁定
	for i := range lessons {
		lesson := &lessons[i]
		progress, err := s.ProgressRepo.GetLessonProgress(userID, lesson.ID)
		if err != nil {
			return nil, err
		}

		status := progress.Status()
		if !prevCompleted {
			status = model.LessonLocked
		}

		total := 0
		round := 0
		if progress != nil {
			total = progress.TotalProblems
			round = progress.CurrentRound
		}

		views[i] = LessonView{
			ID:            lesson.ID,
			Title:         lesson.Title,
			Description:   lesson.Description,
			Order:         lesson.Order,
			Status:        status,
			TotalProblems: total,
			CurrentRound:  round,
		}

		prevCompleted = progress != nil && progress.IsCompleted
	}
	return views, nil
}

type StartLessonResult struct {
	LessonID       uint   `json:"lessonId"`
	Round          int    `json:"round"`
	TotalProblems  int    `json:"totalProblems"`
	FirstProblemID uint   `json:"firstProblemId"`
	IsReview       bool   `json:"isReview"`
}

// StartLesson 开始（或复习重开）一门课，初始化第一轮为全部题目。
// 已完成的课程允许重新开始，完成标记不回退。
func (s *LessonService) StartLesson(userID, lessonID uint) (*StartLessonResult, error) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		return nil, util.ErrLessonNotFound
	}

	status, err := s.LessonStatusFor(userID, lesson)
	if err != nil {
		return nil, err
	}
	if status == model.LessonLocked {
		return nil, util.ErrLessonLocked
	}

	problemIDs, err := s.LessonRepo.ProblemIDsOfLesson(lessonID)
	if err != nil {
		return nil, err
	}
	if len(problemIDs) == 0 {
		return nil, util.ErrProblemNotFound
	}

	now := time.Now()
	var result StartLessonResult

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		progress, err := s.ProgressRepo.GetLessonProgressTx(tx, userID, lessonID)
		if err != nil {
			return err
		}
		if progress == nil {
			progress = &model.UserLessonProgress{UserID: userID, LessonID: lessonID}
		}

		isReview := progress.IsCompleted
		progress.InitializeRoundOne(problemIDs, now)
		if err := s.ProgressRepo.SaveLessonProgress(tx, progress); err != nil {
			return err
		}

		result = StartLessonResult{
			LessonID:       lessonID,
			Round:          progress.CurrentRound,
			TotalProblems:  progress.TotalProblems,
			FirstProblemID: problemIDs[0],
			IsReview:       isReview,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 课程所属世界记为"最近学习"
	stage, err := s.WorldRepo.FindStageByID(lesson.StageID)
	if err == nil {
		if err := s.WorldRepo.TouchUserWorld(userID, stage.WorldID); err != nil {
			logger.Log.Warn("failed to touch user world",
				zap.Uint("userId", userID), zap.Error(err))
		}
	}

	return &result, nil
}

type CurrentProblemView struct {
	Round         int            `json:"round"`
	ProblemIndex  int            `json:"problemIndex"`
	RoundProblems int            `json:"roundProblems"`
	Problem       *model.Problem `json:"problem"`
}

// GetCurrentProblem 当前应作答的题目
func (s *LessonService) GetCurrentProblem(userID, lessonID uint) (*CurrentProblemView, error) {
	progress, err := s.ProgressRepo.GetLessonProgress(userID, lessonID)
	if err != nil {
		return nil, err
	}
	if progress == nil || !progress.IsInProgress {
		return nil, util.ErrLessonNotInProgress
	}

	problemID, ok := progress.CurrentProblemID()
	if !ok {
		return nil, util.ErrProblemNotFound
	}

	problem, err := s.LessonRepo.FindProblemByID(problemID)
	if err != nil {
		return nil, util.ErrProblemNotFound
	}

	return &CurrentProblemView{
		Round:         progress.CurrentRound,
		ProblemIndex:  progress.CurrentProblemIndex,
		RoundProblems: len(progress.CurrentRoundProblems),
		Problem:       problem,
	}, nil
}

// SubmitOutcome 一次提交之后进度机的走向
type SubmitOutcome string

const (
	OutcomeNextProblem     SubmitOutcome = "next_problem"
	OutcomeRetry           SubmitOutcome = "retry"
	OutcomeRoundComplete   SubmitOutcome = "round_complete"
	OutcomeLessonCompleted SubmitOutcome = "lesson_completed"
)

type SubmitAnswerResult struct {
	Correct       bool          `json:"correct"`
	Outcome       SubmitOutcome `json:"outcome"`
	Explanation   string        `json:"explanation,omitempty"`
	Hint          string        `json:"hint,omitempty"`
	NextProblemID uint          `json:"nextProblemId,omitempty"`
	Round         int           `json:"round"`
	ExpAwarded    int64         `json:"expAwarded"`
	CoinsAwarded  int           `json:"coinsAwarded"`

	// 整课完成时附带排名摘要
	Ranking *AddExpResult `json:"ranking,omitempty"`
}

// SubmitAnswer 提交当前题目的答案并推进轮次状态机。
//
// 试错型题目（选择、单词、连线）答错也前进，错题进入下一轮；
// 即时重试型题目（排序、抄写、编程、填空）答对之前停在原地。
// 只接受当前指针指向的题目，乱序提交拒绝。
func (s *LessonService) SubmitAnswer(userID, lessonID, problemID uint, answer string) (*SubmitAnswerResult, error) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		return nil, util.ErrLessonNotFound
	}

	now := time.Now()
	var result SubmitAnswerResult
	var expReward int64
	var coinReward int
	lessonCompleted := false

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		progress, err := s.ProgressRepo.GetLessonProgressTx(tx, userID, lessonID)
		if err != nil {
			return err
		}
		if progress == nil || !progress.IsInProgress {
			return util.ErrLessonNotInProgress
		}

		currentID, ok := progress.CurrentProblemID()
		if !ok || currentID != problemID {
			return util.ErrProblemOutOfOrder
		}

		problem, err := s.LessonRepo.FindProblemByID(problemID)
		if err != nil {
			return util.ErrProblemNotFound
		}

		correct := gradeAnswer(problem, answer)
		result = SubmitAnswerResult{
			Correct: correct,
			Round:   progress.CurrentRound,
		}

		if correct {
			result.Explanation = problem.CorrectExplanation
			progress.MarkProblemCompleted(problemID)
			expReward = problem.ExpReward
			coinReward = problem.CoinReward
			s.advance(progress, &result, now)
		} else {
			result.Hint = problem.FirstHint
			if problem.IsTrialProblem() {
				// 试错型：记错题并前进
				progress.MarkProblemFailed(problemID)
				s.advance(progress, &result, now)
			} else {
				// 即时重试型：停在原地
				result.Outcome = OutcomeRetry
			}
		}

		lessonCompleted = result.Outcome == OutcomeLessonCompleted

		if err := s.ProgressRepo.SaveLessonProgress(tx, progress); err != nil {
			return err
		}

		if err := s.recordStudyActivityTx(tx, userID, now, correct, expReward, lessonCompleted); err != nil {
			return err
		}

		if lessonCompleted {
			if err := s.completeStageIfDoneTx(tx, userID, lesson.StageID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 奖励在进度事务提交后发放（排名引擎有自己的事务边界）
	if expReward > 0 {
		addExp, err := s.Ranking.AddExp(userID, expReward, model.ExpTypeCoding)
		if err != nil {
			logger.Log.Error("failed to add exp after correct answer",
				zap.Uint("userId", userID), zap.Uint("problemId", problemID), zap.Error(err))
		} else {
			result.ExpAwarded = expReward
			result.Ranking = addExp
		}
	}
	if coinReward > 0 {
		if err := s.UserRepo.AddCoins(userID, coinReward); err != nil {
			logger.Log.Error("failed to add coins after correct answer",
				zap.Uint("userId", userID), zap.Error(err))
		} else {
			result.CoinsAwarded = coinReward
		}
	}

	if lessonCompleted {
		logger.Log.Info("lesson completed",
			zap.Uint("userId", userID),
			zap.Uint("lessonId", lessonID),
			zap.Int("rounds", result.Round))
	}

	return &result, nil
}

// advance 正常前进一步：轮次结束时进入错题轮，没有错题则整课完成
func (s *LessonService) advance(progress *model.UserLessonProgress, result *SubmitAnswerResult, now time.Time) {
	if progress.MoveToNextProblem() == model.NextProblem {
		result.Outcome = OutcomeNextProblem
		if next, ok := progress.CurrentProblemID(); ok {
			result.NextProblemID = next
		}
		return
	}

	if progress.StartNextRound() {
		result.Outcome = OutcomeRoundComplete
		result.Round = progress.CurrentRound
		if next, ok := progress.CurrentProblemID(); ok {
			result.NextProblemID = next
		}
		return
	}

	progress.Complete(now)
	result.Outcome = OutcomeLessonCompleted
}

// recordStudyActivityTx 学习活动入账：streak、周目标、每日统计
func (s *LessonService) recordStudyActivityTx(tx *gorm.DB, userID uint, now time.Time, correct bool, exp int64, lessonCompleted bool) error {
	studiedToday, err := s.ProgressRepo.HasStudiedOn(tx, userID, now)
	if err != nil {
		return err
	}

	userProgress, err := s.ProgressRepo.GetOrCreateUserProgress(tx, userID)
	if err != nil {
		return err
	}

	userProgress.UpdateStreak(now)
	userProgress.UpdateWeeklyGoal(now, studiedToday)
	if correct {
		userProgress.TotalProblemsSolved++
		userProgress.TotalExpEarned += exp
	}
	if lessonCompleted {
		userProgress.TotalLessonsCompleted++
	}
	if err := s.ProgressRepo.SaveUserProgress(tx, userProgress); err != nil {
		return err
	}

	delta := model.DailyStudy{
		TotalAttempts: 1,
		ExpEarned:     exp,
	}
	if correct {
		delta.CorrectAnswers = 1
		delta.ProblemsSolved = 1
	}
	if lessonCompleted {
		delta.LessonsCompleted = 1
	}
	return s.ProgressRepo.UpsertDailyStudy(tx, userID, now, delta)
}

// completeStageIfDoneTx 阶段内全部课程完成时标记阶段完成
func (s *LessonService) completeStageIfDoneTx(tx *gorm.DB, userID, stageID uint, now time.Time) error {
	total, err := s.LessonRepo.CountByStage(stageID)
	if err != nil {
		return err
	}
	completed, err := s.ProgressRepo.CountCompletedLessonsTx(tx, userID, stageID)
	if err != nil {
		return err
	}
	if total == 0 || completed < total {
		return nil
	}
	return s.WorldRepo.MarkStageCompletedTx(tx, userID, stageID, now)
}

type AbandonResult struct {
	LessonID     uint `json:"lessonId"`
	AbandonCount int  `json:"abandonCount"`
}

// AbandonLesson 中途放弃：进度清零，放弃次数与时间保留
func (s *LessonService) AbandonLesson(userID, lessonID uint) (*AbandonResult, error) {
	now := time.Now()
	var result AbandonResult

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		progress, err := s.ProgressRepo.GetLessonProgressTx(tx, userID, lessonID)
		if err != nil {
			return err
		}
		if progress == nil || !progress.IsInProgress {
			return util.ErrLessonNotInProgress
		}

		progress.ResetProgress(now)
		if err := s.ProgressRepo.SaveLessonProgress(tx, progress); err != nil {
			return err
		}

		result = AbandonResult{LessonID: lessonID, AbandonCount: progress.AbandonCount}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// gradeAnswer 判题：去掉首尾空白后与标准答案比较。编程题按行
// 归一化后比较（行尾空白不影响判定）。
func gradeAnswer(problem *model.Problem, answer string) bool {
	if problem.ProblemType == model.Coding || problem.ProblemType == model.CopyCode {
		return normalizeCode(answer) == normalizeCode(problem.CorrectAnswer)
	}
	return strings.TrimSpace(answer) == strings.TrimSpace(problem.CorrectAnswer)
}

func normalizeCode(code string) string {
	lines := strings.Split(strings.ReplaceAll(code, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" && len(out) == 0 {
			continue
		}
		out = append(out, trimmed)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
