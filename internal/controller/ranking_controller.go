package controller

import (
	"codequest_backend/internal/model"
	"codequest_backend/internal/service"
	"codequest_backend/internal/util"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
)

type RankingController struct {
	RankingService *service.RankingService
}

func NewRankingController(rankingService *service.RankingService) *RankingController {
	return &RankingController{RankingService: rankingService}
}

type AddExpRequest struct {
	Amount  int64  `json:"amount" binding:"required"`
	ExpType string `json:"expType" binding:"required"`
}

// AddExp godoc
// @Summary 添加经验值
// @Description 累加经验并同步段位、周联赛与全服排名
// @Tags 排名
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body AddExpRequest true "经验值与类型"
// @Success 200 {object} util.Response{data=service.AddExpResult}
// @Failure 400 {object} util.Response "无效的经验类型或数量"
// @Failure 409 {object} util.Response "联赛已满"
// @Router /api/rankings/exp [post]
func (c *RankingController) AddExp(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req AddExpRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.RankingService.AddExp(claims.UserID, req.Amount, model.ExpType(req.ExpType))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrInvalidExpType), errors.Is(err, util.ErrInvalidExpAmount):
			util.BadRequest(ctx, err.Error())
		case errors.Is(err, util.ErrLeagueFull):
			util.Conflict(ctx, "本周联赛已满员")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, result)
}

// GetLeagueRankings godoc
// @Summary 本周联赛排名
// @Description 当前用户所在联赛的完整排名；未参加时返回段位信息
// @Tags 排名
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.LeagueRankingsResult}
// @Router /api/rankings/league [get]
func (c *RankingController) GetLeagueRankings(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.RankingService.GetLeagueRankings(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// GetGlobalRankings godoc
// @Summary 全服排名
// @Tags 排名
// @Produce  json
// @Security BearerAuth
// @Param   limit query int false "每页数量（默认 100）"
// @Param   offset query int false "偏移量"
// @Success 200 {object} util.Response{data=[]service.GlobalRankingEntry}
// @Router /api/rankings/global [get]
func (c *RankingController) GetGlobalRankings(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))

	entries, err := c.RankingService.GetGlobalRankings(limit, offset)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

// GetHistory godoc
// @Summary 历史联赛战绩
// @Tags 排名
// @Produce  json
// @Security BearerAuth
// @Param   limit query int false "条数（默认 10）"
// @Success 200 {object} util.Response{data=[]service.RankingHistoryEntry}
// @Router /api/rankings/history [get]
func (c *RankingController) GetHistory(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	entries, err := c.RankingService.GetUserRankingHistory(claims.UserID, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

// GetTiers godoc
// @Summary 段位表
// @Description 全部段位及经验区间
// @Tags 排名
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.TierConfig}
// @Router /api/rankings/tiers [get]
func (c *RankingController) GetTiers(ctx *gin.Context) {
	util.Success(ctx, c.RankingService.TierTable())
}

// CloseSeason godoc
// @Summary 周联赛结算
// @Description 管理端手动触发周日结算；非周日为显式空操作
// @Tags 排名
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=service.SeasonCloseResult}
// @Router /api/admin/rankings/close-season [post]
func (c *RankingController) CloseSeason(ctx *gin.Context) {
	result, err := c.RankingService.ProcessWeeklyPromotionDemotion()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// RebuildGlobal godoc
// @Summary 重建全服排名
// @Description 管理端修复工具，全量重算名次
// @Tags 排名
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/admin/rankings/rebuild [post]
func (c *RankingController) RebuildGlobal(ctx *gin.Context) {
	count, err := c.RankingService.RebuildGlobalRankings()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"rebuilt": count})
}
