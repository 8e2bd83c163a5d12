package controller

import (
	"errors"
	"strconv"

	"video_label_backend/internal/service"
	"video_label_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// SchemaController 问题与问题组管理
type SchemaController struct {
	SchemaService *service.SchemaService
}

func NewSchemaController(schemaService *service.SchemaService) *SchemaController {
	return &SchemaController{SchemaService: schemaService}
}

// CreateQuestion godoc
// @Summary 创建问题
// @Description 创建单选或自由文本问题，选项权重用于加权计票
// @Tags 标注模板
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.QuestionReq true "问题定义"
// @Success 201 {object} util.Response{data=model.Question} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/admin/questions [post]
func (c *SchemaController) CreateQuestion(ctx *gin.Context) {
	var req service.QuestionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.SchemaService.CreateQuestion(req)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrInvalidQuestionType),
			errors.Is(err, util.ErrOptionWeightMismatch),
			errors.Is(err, util.ErrDuplicateOption),
			errors.Is(err, util.ErrValueNotInOptions):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, question)
}

// GetQuestion godoc
// @Summary 获取问题详情
// @Tags 标注模板
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "问题ID"
// @Success 200 {object} util.Response{data=model.Question} "成功"
// @Failure 404 {object} util.Response "问题不存在"
// @Router /api/questions/{id} [get]
func (c *SchemaController) GetQuestion(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的问题ID")
		return
	}

	question, err := c.SchemaService.GetQuestion(uint(id))
	if err != nil {
		if errors.Is(err, util.ErrQuestionNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, question)
}

// ListQuestions godoc
// @Summary 获取问题列表
// @Tags 标注模板
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/questions [get]
func (c *SchemaController) ListQuestions(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))

	questions, total, err := c.SchemaService.ListQuestions(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: questions, Total: total, Page: page, Limit: limit})
}

// ArchiveQuestion godoc
// @Summary 归档问题
// @Description 归档后的问题从组列表与完成度统计中消失，历史答案保留
// @Tags 标注模板
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "问题ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/admin/questions/{id}/archive [post]
func (c *SchemaController) ArchiveQuestion(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的问题ID")
		return
	}

	if err := c.SchemaService.ArchiveQuestion(uint(id)); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// CreateGroup godoc
// @Summary 创建问题组
// @Description 校验钩子名必须已在服务端注册；可复用组跨项目共享
// @Tags 标注模板
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.GroupReq true "问题组定义"
// @Success 201 {object} util.Response{data=model.QuestionGroup} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/admin/question-groups [post]
func (c *SchemaController) CreateGroup(ctx *gin.Context) {
	var req service.GroupReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	group, err := c.SchemaService.CreateGroup(req)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrUnknownVerificationHook),
			errors.Is(err, util.ErrQuestionNotFound):
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, group)
}

// GetGroup godoc
// @Summary 获取问题组详情
// @Description 返回组信息及按序排列的未归档问题
// @Tags 标注模板
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "问题组ID"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 404 {object} util.Response "问题组不存在"
// @Router /api/question-groups/{id} [get]
func (c *SchemaController) GetGroup(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的问题组ID")
		return
	}

	group, questions, err := c.SchemaService.GetGroup(uint(id))
	if err != nil {
		if errors.Is(err, util.ErrGroupNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, gin.H{"group": group, "questions": questions})
}

// ListGroups godoc
// @Summary 获取问题组列表
// @Tags 标注模板
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/question-groups [get]
func (c *SchemaController) ListGroups(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))

	groups, total, err := c.SchemaService.ListGroups(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: groups, Total: total, Page: page, Limit: limit})
}

// ArchiveGroup godoc
// @Summary 归档问题组
// @Tags 标注模板
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "问题组ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/admin/question-groups/{id}/archive [post]
func (c *SchemaController) ArchiveGroup(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的问题组ID")
		return
	}

	if err := c.SchemaService.ArchiveGroup(uint(id)); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
