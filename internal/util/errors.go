package util

import "errors"

var (
	ErrUserNotFound     = errors.New("用户不存在")
	ErrEmailRegistered  = errors.New("该邮箱已被注册")
	ErrPermissionDenied = errors.New("permission denied")

	// 联赛 / 排名
	ErrInvalidExpType   = errors.New("invalid exp type")
	ErrInvalidExpAmount = errors.New("exp amount must be positive")
	ErrLeagueFull       = errors.New("league is full")
	ErrLeagueNotFound   = errors.New("league not found")

	// 课程进度
	ErrWorldNotFound       = errors.New("world not found")
	ErrLessonNotFound      = errors.New("lesson not found")
	ErrProblemNotFound     = errors.New("problem not found")
	ErrLessonLocked        = errors.New("lesson locked: previous lesson not completed")
	ErrLessonNotInProgress = errors.New("lesson not in progress")
	ErrProblemOutOfOrder   = errors.New("problem is not the current problem of this round")
)
