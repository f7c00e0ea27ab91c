package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeRoundOne(t *testing.T) {
	now := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	p := &UserLessonProgress{}

	p.InitializeRoundOne([]uint{11, 12, 13, 14}, now)

	assert.Equal(t, 1, p.CurrentRound)
	assert.Equal(t, 0, p.CurrentProblemIndex)
	assert.Equal(t, []uint{11, 12, 13, 14}, p.CurrentRoundProblems)
	assert.Equal(t, 4, p.TotalProblems)
	assert.True(t, p.IsInProgress)
	require.NotNil(t, p.StartedAt)

	current, ok := p.CurrentProblemID()
	require.True(t, ok)
	assert.Equal(t, uint(11), current)
}

func TestRoundRolloverOnlyFailedProblems(t *testing.T) {
	now := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	p := &UserLessonProgress{}
	p.InitializeRoundOne([]uint{1, 2, 3, 4}, now)

	// 第 1 轮：1、3 答对，2、4 答错
	p.MarkProblemCompleted(1)
	p.MoveToNextProblem()
	p.MarkProblemFailed(2)
	p.MoveToNextProblem()
	p.MarkProblemCompleted(3)
	p.MoveToNextProblem()
	p.MarkProblemFailed(4)
	result := p.MoveToNextProblem()

	assert.Equal(t, RoundComplete, result)
	require.True(t, p.StartNextRound())

	assert.Equal(t, 2, p.CurrentRound)
	assert.Equal(t, []uint{2, 4}, p.CurrentRoundProblems, "第 2 轮只包含上一轮错题")
	assert.Empty(t, p.FailedProblemsThisRnd, "进入新轮次后错题列表清空")

	current, ok := p.CurrentProblemID()
	require.True(t, ok)
	assert.Equal(t, uint(2), current)
}

func TestStartNextRoundFalseWhenNoFailures(t *testing.T) {
	now := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	p := &UserLessonProgress{}
	p.InitializeRoundOne([]uint{1, 2}, now)

	p.MarkProblemCompleted(1)
	p.MoveToNextProblem()
	p.MarkProblemCompleted(2)
	result := p.MoveToNextProblem()

	assert.Equal(t, RoundComplete, result)
	assert.False(t, p.StartNextRound(), "没有错题时不开新轮次")
	assert.Equal(t, 1, p.CurrentRound)
	assert.True(t, p.AllProblemsCompleted())
}

func TestLessonCompletesAcrossRounds(t *testing.T) {
	now := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	p := &UserLessonProgress{}
	p.InitializeRoundOne([]uint{1, 2, 3}, now)

	// 第 1 轮：只有 2 答对
	p.MarkProblemFailed(1)
	p.MoveToNextProblem()
	p.MarkProblemCompleted(2)
	p.MoveToNextProblem()
	p.MarkProblemFailed(3)
	p.MoveToNextProblem()
	require.True(t, p.StartNextRound())

	// 第 2 轮：1 答对，3 又答错
	p.MarkProblemCompleted(1)
	p.MoveToNextProblem()
	p.MarkProblemFailed(3)
	p.MoveToNextProblem()
	require.True(t, p.StartNextRound())
	assert.Equal(t, 3, p.CurrentRound)
	assert.Equal(t, []uint{3}, p.CurrentRoundProblems)

	// 第 3 轮：3 终于答对
	p.MarkProblemCompleted(3)
	assert.Equal(t, RoundComplete, p.MoveToNextProblem())
	assert.False(t, p.StartNextRound())
	assert.True(t, p.AllProblemsCompleted(), "无论在哪一轮答对都计入完成")

	p.Complete(now)
	assert.True(t, p.IsCompleted)
	assert.False(t, p.IsInProgress)
	require.NotNil(t, p.CompletedAt)
}

func TestMarkProblemIdempotent(t *testing.T) {
	now := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	p := &UserLessonProgress{}
	p.InitializeRoundOne([]uint{1, 2}, now)

	p.MarkProblemCompleted(1)
	p.MarkProblemCompleted(1)
	assert.Equal(t, 1, p.CompletedProblemsCount)

	p.MarkProblemFailed(2)
	p.MarkProblemFailed(2)
	assert.Equal(t, []uint{2}, p.FailedProblemsThisRnd)
}

func TestResetProgressKeepsAbandonAudit(t *testing.T) {
	now := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	p := &UserLessonProgress{}
	p.InitializeRoundOne([]uint{1, 2, 3}, now)
	p.MarkProblemCompleted(1)
	p.MoveToNextProblem()
	p.MarkProblemFailed(2)

	abandonTime := now.Add(time.Hour)
	p.ResetProgress(abandonTime)

	assert.Equal(t, 1, p.CurrentRound)
	assert.Equal(t, 0, p.CurrentProblemIndex)
	assert.Empty(t, p.FailedProblemsThisRnd)
	assert.Empty(t, p.CompletedProblemIDs)
	assert.Equal(t, 0, p.CompletedProblemsCount)
	assert.False(t, p.IsInProgress)
	assert.Equal(t, 1, p.AbandonCount, "放弃次数保留")
	require.NotNil(t, p.LastAbandonAt)

	// 再次放弃后计数累加
	p.InitializeRoundOne([]uint{1, 2, 3}, now)
	p.ResetProgress(abandonTime.Add(time.Hour))
	assert.Equal(t, 2, p.AbandonCount)
}

func TestCurrentProblemIDAfterRoundEnd(t *testing.T) {
	now := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	p := &UserLessonProgress{}
	p.InitializeRoundOne([]uint{1}, now)

	p.MarkProblemCompleted(1)
	p.MoveToNextProblem()

	_, ok := p.CurrentProblemID()
	assert.False(t, ok, "轮次结束后没有当前题目")
}

func TestLessonStatusDerivation(t *testing.T) {
	var nilProgress *UserLessonProgress
	assert.Equal(t, LessonAvailable, nilProgress.Status(), "无进度记录即可开始")

	p := &UserLessonProgress{IsInProgress: true}
	assert.Equal(t, LessonInProgress, p.Status())

	p = &UserLessonProgress{IsCompleted: true}
	assert.Equal(t, LessonCompleted, p.Status())

	p = &UserLessonProgress{}
	assert.Equal(t, LessonAvailable, p.Status())
}

func TestProblemTypeClassification(t *testing.T) {
	trial := []ProblemType{MultipleChoice, WordBank, Matching}
	for _, pt := range trial {
		p := &Problem{ProblemType: pt}
		assert.True(t, p.IsTrialProblem(), string(pt))
		assert.False(t, p.IsImmediateRetry(), string(pt))
	}

	retry := []ProblemType{ArrangeBlocks, CopyCode, Coding, FillCode}
	for _, pt := range retry {
		p := &Problem{ProblemType: pt}
		assert.True(t, p.IsImmediateRetry(), string(pt))
		assert.False(t, p.IsTrialProblem(), string(pt))
	}
}
