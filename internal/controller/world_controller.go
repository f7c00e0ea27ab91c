package controller

import (
	"codequest_backend/internal/service"
	"codequest_backend/internal/util"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

type WorldController struct {
	WorldService  *service.WorldService
	LessonService *service.LessonService
}

func NewWorldController(worldService *service.WorldService, lessonService *service.LessonService) *WorldController {
	return &WorldController{
		WorldService:  worldService,
		LessonService: lessonService,
	}
}

// ListWorlds godoc
// @Summary 世界列表
// @Description 全部编程语言世界及当前用户的进度
// @Tags 世界
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]service.WorldView}
// @Router /api/worlds [get]
func (c *WorldController) ListWorlds(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	worlds, err := c.WorldService.ListWorlds(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, worlds)
}

// GetWorldDetail godoc
// @Summary 世界详情
// @Description 世界内的阶段列表，含锁定与完成状态
// @Tags 世界
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "世界 ID"
// @Success 200 {object} util.Response{data=service.WorldDetailView}
// @Failure 404 {object} util.Response "世界不存在"
// @Router /api/worlds/{id} [get]
func (c *WorldController) GetWorldDetail(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	worldID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "无效的世界 ID")
		return
	}

	detail, err := c.WorldService.GetWorldDetail(claims.UserID, uint(worldID))
	if err != nil {
		if errors.Is(err, util.ErrWorldNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, detail)
}

// ListStageLessons godoc
// @Summary 阶段内课程列表
// @Description 阶段内课程及用户状态（锁定/可开始/进行中/已完成）
// @Tags 世界
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "阶段 ID"
// @Success 200 {object} util.Response{data=[]service.LessonView}
// @Failure 404 {object} util.Response "阶段不存在"
// @Router /api/stages/{id}/lessons [get]
func (c *WorldController) ListStageLessons(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	stageID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "无效的阶段 ID")
		return
	}

	lessons, err := c.LessonService.ListLessons(claims.UserID, uint(stageID))
	if err != nil {
		if errors.Is(err, util.ErrWorldNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, lessons)
}

// UnlockWorld godoc
// @Summary 解锁世界
// @Tags 世界
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "世界 ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "世界不存在"
// @Router /api/worlds/{id}/unlock [post]
func (c *WorldController) UnlockWorld(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	worldID, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		util.BadRequest(ctx, "无效的世界 ID")
		return
	}

	if err := c.WorldService.UnlockWorld(claims.UserID, uint(worldID)); err != nil {
		if errors.Is(err, util.ErrWorldNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, gin.H{"message": "已解锁"})
}
