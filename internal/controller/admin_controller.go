package controller

import (
	"errors"
	"strconv"

	"video_label_backend/internal/service"
	"video_label_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AdminController 管理员覆盖与准确率统计
type AdminController struct {
	OverrideService *service.OverrideService
}

func NewAdminController(overrideService *service.OverrideService) *AdminController {
	return &AdminController{OverrideService: overrideService}
}

// OverrideRequest 权威答案覆盖请求
type OverrideRequest struct {
	VideoID    uint   `json:"videoId" binding:"required"`
	QuestionID uint   `json:"questionId" binding:"required"`
	ProjectID  uint   `json:"projectId" binding:"required"`
	Value      string `json:"value" binding:"required"`
}

// OverrideGroundTruth godoc
// @Summary 覆盖权威答案
// @Description 覆盖保留首次复核值（originalValue），等值覆盖是幂等无操作
// @Tags 管理
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body OverrideRequest true "覆盖内容"
// @Success 200 {object} util.Response{data=model.ReviewerGroundTruth} "成功"
// @Failure 400 {object} util.Response "值不在选项中"
// @Failure 403 {object} util.Response "无项目管理员角色"
// @Failure 404 {object} util.Response "权威答案不存在"
// @Router /api/admin/ground-truth/override [put]
func (c *AdminController) OverrideGroundTruth(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req OverrideRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	gt, err := c.OverrideService.Override(ctx.Request.Context(),
		req.VideoID, req.QuestionID, req.ProjectID, claims.UserID, req.Value)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrPermissionDenied):
			util.Forbidden(ctx)
		case errors.Is(err, util.ErrGroundTruthNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrValueNotInOptions):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, gt)
}

// GetProjectAccuracy godoc
// @Summary 项目准确率统计
// @Description 前置条件：项目已有完整 ground truth 覆盖，否则返回 409
// @Tags 管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "项目ID"
// @Success 200 {object} util.Response{data=service.AccuracyReport} "成功"
// @Failure 409 {object} util.Response "ground truth 覆盖不完整"
// @Router /api/admin/projects/{id}/accuracy [get]
func (c *AdminController) GetProjectAccuracy(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的项目ID")
		return
	}

	report, err := c.OverrideService.ProjectAccuracy(ctx.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, util.ErrIncompleteGroundTruth) {
			util.Conflict(ctx, err.Error())
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, report)
}
