package model

import "encoding/json"

// Lesson 课程（由 4-5 道题组成）
type Lesson struct {
	BaseModel
	StageID     uint   `gorm:"uniqueIndex:idx_stage_order;not null;index" json:"stageId"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Order       int    `gorm:"uniqueIndex:idx_stage_order;not null" json:"order"`

	Problems []Problem `gorm:"foreignKey:LessonID" json:"problems,omitempty"`
}

func (Lesson) TableName() string {
	return "lessons"
}

type ProblemType string

const (
	MultipleChoice ProblemType = "multiple_choice" // 客观选择题
	WordBank       ProblemType = "word_bank"       // 单词选择
	ArrangeBlocks  ProblemType = "arrange_blocks"  // 代码块排序
	Matching       ProblemType = "matching"        // 连线题
	CopyCode       ProblemType = "copy_code"       // 代码抄写
	Coding         ProblemType = "coding"          // 编程题
	FillCode       ProblemType = "fill_code"       // 代码填空
)

type ProblemDifficulty string

const (
	DifficultyEasy   ProblemDifficulty = "easy"
	DifficultyMedium ProblemDifficulty = "medium"
	DifficultyHard   ProblemDifficulty = "hard"
)

// Problem 题目
type Problem struct {
	BaseModel
	LessonID uint `gorm:"uniqueIndex:idx_lesson_order;not null;index" json:"lessonId"`

	Title       string      `gorm:"size:200;not null" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	ProblemType ProblemType `gorm:"size:20;default:'coding'" json:"problemType"`

	// 题目数据，结构因题型而异（选项、填空、代码块依赖等）
	ProblemData json.RawMessage `gorm:"type:json" json:"problemData"`

	CorrectAnswer      string `gorm:"type:text" json:"-"`
	CorrectExplanation string `gorm:"type:text" json:"correctExplanation,omitempty"`

	// 答错时的阶梯式提示
	FirstHint  string `gorm:"type:text" json:"firstHint,omitempty"`
	SecondHint string `gorm:"type:text" json:"secondHint,omitempty"`
	ThirdHint  string `gorm:"type:text" json:"thirdHint,omitempty"`

	Difficulty    ProblemDifficulty `gorm:"size:20;default:'easy'" json:"difficulty"`
	IsBossProblem bool              `gorm:"default:false" json:"isBossProblem"`
	Order         int               `gorm:"uniqueIndex:idx_lesson_order;not null" json:"order"`

	// 编程题用
	InitialCode  string `gorm:"type:text" json:"initialCode,omitempty"`
	SolutionCode string `gorm:"type:text" json:"-"`

	// 奖励
	ExpReward  int64 `gorm:"default:10" json:"expReward"`
	CoinReward int   `gorm:"default:5" json:"coinReward"`

	TestCases []TestCase `gorm:"foreignKey:ProblemID" json:"-"`
}

func (Problem) TableName() string {
	return "problems"
}

// IsTrialProblem 试错型题目：答错也进入下一题，记入本轮失败列表
func (p *Problem) IsTrialProblem() bool {
	switch p.ProblemType {
	case MultipleChoice, WordBank, Matching:
		return true
	}
	return false
}

// IsImmediateRetry 即时重试型题目：答对之前不放行
func (p *Problem) IsImmediateRetry() bool {
	switch p.ProblemType {
	case ArrangeBlocks, CopyCode, Coding, FillCode:
		return true
	}
	return false
}

// TestCase 编程题的测试用例
type TestCase struct {
	BaseModel
	ProblemID      uint   `gorm:"not null;index" json:"problemId"`
	InputData      string `gorm:"type:text" json:"inputData"`
	ExpectedOutput string `gorm:"type:text" json:"expectedOutput"`
	IsHidden       bool   `gorm:"default:false" json:"isHidden"`
	Order          int    `gorm:"not null" json:"order"`
}

func (TestCase) TableName() string {
	return "test_cases"
}
