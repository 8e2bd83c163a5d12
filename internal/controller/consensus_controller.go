package controller

import (
	"errors"

	"video_label_backend/internal/service"
	"video_label_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// ConsensusController 加权共识自动提交
type ConsensusController struct {
	ConsensusService *service.ConsensusService
}

func NewConsensusController(consensusService *service.ConsensusService) *ConsensusController {
	return &ConsensusController{ConsensusService: consensusService}
}

func (c *ConsensusController) bind(ctx *gin.Context) (*service.AutoSubmitRequest, bool) {
	var req service.AutoSubmitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return nil, false
	}
	if req.VideoID == 0 || req.ProjectID == 0 || req.GroupID == 0 {
		util.BadRequest(ctx, "videoId、projectId、groupId 均为必填")
		return nil, false
	}
	if req.TargetUserID == 0 {
		claims := util.GetUserFromContext(ctx)
		if claims == nil {
			util.Unauthorized(ctx)
			return nil, false
		}
		req.TargetUserID = claims.UserID
	}
	return &req, true
}

func (c *ConsensusController) respond(ctx *gin.Context, result *service.GroupSubmitResult, err error) {
	if err != nil {
		switch {
		case errors.Is(err, util.ErrPermissionDenied):
			util.Forbidden(ctx)
		case errors.Is(err, util.ErrGroupNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrGroupNotInProject),
			errors.Is(err, util.ErrAmbiguousVirtualResponses),
			errors.Is(err, util.ErrUnknownVerificationHook):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, result)
}

// AutoSubmitAnnotator godoc
// @Summary 标注员自动提交（尽力而为）
// @Description 对一个问题组按加权共识自动生成目标用户的答案：已有答案的题跳过，
// @Description 共识不足的题记入失败明细，其余题通过校验钩子后落库。
// @Tags 共识
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.AutoSubmitRequest true "提交参数"
// @Success 200 {object} util.Response{data=service.GroupSubmitResult} "提交报告"
// @Failure 400 {object} util.Response "请求不合法"
// @Failure 403 {object} util.Response "目标用户无标注员角色"
// @Router /api/consensus/annotator [post]
func (c *ConsensusController) AutoSubmitAnnotator(ctx *gin.Context) {
	req, ok := c.bind(ctx)
	if !ok {
		return
	}
	result, err := c.ConsensusService.AutoSubmitAnnotator(ctx.Request.Context(), req)
	c.respond(ctx, result, err)
}

// AutoSubmitReviewer godoc
// @Summary 复核员自动提交（原子）
// @Description 为缺 ground truth 的题计算共识并整组原子落库：已有行原样复用，
// @Description 任一题共识失败则整组放弃。整组已有 ground truth 时零写入成功返回。
// @Tags 共识
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.AutoSubmitRequest true "提交参数"
// @Success 200 {object} util.Response{data=service.GroupSubmitResult} "提交报告"
// @Failure 400 {object} util.Response "请求不合法"
// @Failure 403 {object} util.Response "目标用户无复核员角色"
// @Router /api/consensus/reviewer [post]
func (c *ConsensusController) AutoSubmitReviewer(ctx *gin.Context) {
	req, ok := c.bind(ctx)
	if !ok {
		return
	}
	result, err := c.ConsensusService.AutoSubmitReviewer(ctx.Request.Context(), req)
	c.respond(ctx, result, err)
}
