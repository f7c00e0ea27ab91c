package controller

import (
	"codequest_backend/internal/service"
	"codequest_backend/internal/util"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

type LessonController struct {
	LessonService *service.LessonService
}

func NewLessonController(lessonService *service.LessonService) *LessonController {
	return &LessonController{LessonService: lessonService}
}

func lessonID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "无效的课程 ID")
		return 0, false
	}
	return uint(id), true
}

// StartLesson godoc
// @Summary 开始课程
// @Description 初始化第一轮（全部题目）。已完成的课程可重新开始复习。
// @Tags 课程
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程 ID"
// @Success 200 {object} util.Response{data=service.StartLessonResult}
// @Failure 403 {object} util.Response "前置课程未完成"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/lessons/{id}/start [post]
func (c *LessonController) StartLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := lessonID(ctx)
	if !ok {
		return
	}

	result, err := c.LessonService.StartLesson(claims.UserID, id)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrLessonNotFound), errors.Is(err, util.ErrProblemNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrLessonLocked):
			util.Error(ctx, 403, "前置课程未完成")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, result)
}

// GetCurrentProblem godoc
// @Summary 当前题目
// @Description 当前轮次中应作答的题目
// @Tags 课程
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程 ID"
// @Success 200 {object} util.Response{data=service.CurrentProblemView}
// @Failure 409 {object} util.Response "课程未在进行中"
// @Router /api/lessons/{id}/current-problem [get]
func (c *LessonController) GetCurrentProblem(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := lessonID(ctx)
	if !ok {
		return
	}

	view, err := c.LessonService.GetCurrentProblem(claims.UserID, id)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrLessonNotInProgress):
			util.Conflict(ctx, "课程未在进行中")
		case errors.Is(err, util.ErrProblemNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, view)
}

type SubmitAnswerRequest struct {
	ProblemID uint   `json:"problemId" binding:"required"`
	Answer    string `json:"answer"`
}

// SubmitAnswer godoc
// @Summary 提交答案
// @Description 提交当前题目的答案并推进轮次状态机
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程 ID"
// @Param   body body SubmitAnswerRequest true "题目与答案"
// @Success 200 {object} util.Response{data=service.SubmitAnswerResult}
// @Failure 409 {object} util.Response "乱序提交或课程未在进行中"
// @Router /api/lessons/{id}/submit [post]
func (c *LessonController) SubmitAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := lessonID(ctx)
	if !ok {
		return
	}

	var req SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.LessonService.SubmitAnswer(claims.UserID, id, req.ProblemID, req.Answer)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrLessonNotFound), errors.Is(err, util.ErrProblemNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrLessonNotInProgress):
			util.Conflict(ctx, "课程未在进行中")
		case errors.Is(err, util.ErrProblemOutOfOrder):
			util.Conflict(ctx, "只能提交当前题目")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, result)
}

// AbandonLesson godoc
// @Summary 放弃课程
// @Description 中途放弃，进度清零但保留放弃次数
// @Tags 课程
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程 ID"
// @Success 200 {object} util.Response{data=service.AbandonResult}
// @Failure 409 {object} util.Response "课程未在进行中"
// @Router /api/lessons/{id}/abandon [post]
func (c *LessonController) AbandonLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	id, ok := lessonID(ctx)
	if !ok {
		return
	}

	result, err := c.LessonService.AbandonLesson(claims.UserID, id)
	if err != nil {
		if errors.Is(err, util.ErrLessonNotInProgress) {
			util.Conflict(ctx, "课程未在进行中")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, result)
}
