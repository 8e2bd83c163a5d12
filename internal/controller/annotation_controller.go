package controller

import (
	"errors"
	"strconv"

	"video_label_backend/internal/model"
	"video_label_backend/internal/service"
	"video_label_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AnnotationController 人工标注提交、自由文本复核与复核员自改
type AnnotationController struct {
	AnnotationService *service.AnnotationService
	OverrideService   *service.OverrideService
}

func NewAnnotationController(annotationService *service.AnnotationService, overrideService *service.OverrideService) *AnnotationController {
	return &AnnotationController{
		AnnotationService: annotationService,
		OverrideService:   overrideService,
	}
}

// SubmitGroup godoc
// @Summary 提交整组答案
// @Description 以问题文本为键一次提交一个问题组的答案；任何一项校验不通过整组拒绝。
// @Description 与现存行完全相同的重复提交不产生写入。
// @Tags 标注
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.SubmitGroupRequest true "答案"
// @Success 200 {object} util.Response "提交成功"
// @Failure 400 {object} util.Response "值不合法或问题不属于该组"
// @Failure 403 {object} util.Response "无标注员角色"
// @Router /api/annotations [post]
func (c *AnnotationController) SubmitGroup(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.SubmitGroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	req.UserID = claims.UserID

	if err := c.AnnotationService.SubmitGroup(ctx.Request.Context(), &req); err != nil {
		switch {
		case errors.Is(err, util.ErrPermissionDenied):
			util.Forbidden(ctx)
		case errors.Is(err, util.ErrGroupNotInProject),
			errors.Is(err, util.ErrQuestionNotInGroup),
			errors.Is(err, util.ErrValueNotInOptions):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// ReviewAnswerRequest 自由文本答案复核请求
type ReviewAnswerRequest struct {
	Status model.ReviewStatus `json:"status" binding:"required,oneof=approved rejected pending"`
}

// ReviewAnswer godoc
// @Summary 复核自由文本答案
// @Tags 标注
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "答案ID"
// @Param   body body ReviewAnswerRequest true "裁决"
// @Success 200 {object} util.Response "成功"
// @Failure 403 {object} util.Response "无复核员角色"
// @Router /api/annotations/{id}/review [put]
func (c *AnnotationController) ReviewAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	answerID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的答案ID")
		return
	}

	var req ReviewAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	err = c.AnnotationService.ReviewAnswer(ctx.Request.Context(), uint(answerID), claims.UserID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrPermissionDenied):
			util.Forbidden(ctx)
		case errors.Is(err, util.ErrInvalidQuestionType):
			util.BadRequest(ctx, "只有自由文本答案需要复核")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// CorrectGroundTruthRequest 复核员自改请求
type CorrectGroundTruthRequest struct {
	VideoID    uint   `json:"videoId" binding:"required"`
	QuestionID uint   `json:"questionId" binding:"required"`
	ProjectID  uint   `json:"projectId" binding:"required"`
	Value      string `json:"value" binding:"required"`
}

// CorrectGroundTruth godoc
// @Summary 修正自己提交的权威答案
// @Description 仅该行的署名复核员可调用；originalValue 与管理员覆盖字段不变
// @Tags 标注
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body CorrectGroundTruthRequest true "修正内容"
// @Success 200 {object} util.Response{data=model.ReviewerGroundTruth} "成功"
// @Failure 400 {object} util.Response "值不在选项中"
// @Failure 403 {object} util.Response "不是该行的署名复核员"
// @Failure 404 {object} util.Response "权威答案不存在"
// @Router /api/ground-truth/correct [put]
func (c *AnnotationController) CorrectGroundTruth(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CorrectGroundTruthRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	gt, err := c.OverrideService.Correct(ctx.Request.Context(),
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
