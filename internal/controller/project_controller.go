package controller

import (
	"errors"
	"strconv"

	"video_label_backend/internal/model"
	"video_label_backend/internal/service"
	"video_label_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// ProjectController 项目、视频分配、角色分配与完成度查询
type ProjectController struct {
	ProjectService *service.ProjectService
}

func NewProjectController(projectService *service.ProjectService) *ProjectController {
	return &ProjectController{ProjectService: projectService}
}

func projectID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的项目ID")
		return 0, false
	}
	return uint(id), true
}

// CreateProject godoc
// @Summary 创建项目
// @Tags 项目
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.ProjectReq true "项目信息"
// @Success 201 {object} util.Response{data=model.Project} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/admin/projects [post]
func (c *ProjectController) CreateProject(ctx *gin.Context) {
	var req service.ProjectReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	project, err := c.ProjectService.Create(req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, project)
}

// GetProject godoc
// @Summary 获取项目详情
// @Tags 项目
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "项目ID"
// @Success 200 {object} util.Response{data=model.Project} "成功"
// @Failure 404 {object} util.Response "项目不存在"
// @Router /api/projects/{id} [get]
func (c *ProjectController) GetProject(ctx *gin.Context) {
	id, ok := projectID(ctx)
	if !ok {
		return
	}

	project, err := c.ProjectService.Get(id)
	if err != nil {
		if errors.Is(err, util.ErrProjectNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, project)
}

// ListProjects godoc
// @Summary 获取项目列表
// @Tags 项目
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(10)
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/projects [get]
func (c *ProjectController) ListProjects(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))

	projects, total, err := c.ProjectService.List(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: projects, Total: total, Page: page, Limit: limit})
}

// ArchiveProject godoc
// @Summary 归档项目
// @Tags 项目
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "项目ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/admin/projects/{id}/archive [post]
func (c *ProjectController) ArchiveProject(ctx *gin.Context) {
	id, ok := projectID(ctx)
	if !ok {
		return
	}

	if err := c.ProjectService.Archive(id); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// AssignVideoRequest 视频分配请求
type AssignVideoRequest struct {
	VideoID uint `json:"videoId" binding:"required"`
}

// AssignVideo godoc
// @Summary 分配视频到项目
// @Tags 项目
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "项目ID"
// @Param   body body AssignVideoRequest true "视频"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "项目或视频不存在"
// @Router /api/admin/projects/{id}/videos [post]
func (c *ProjectController) AssignVideo(ctx *gin.Context) {
	id, ok := projectID(ctx)
	if !ok {
		return
	}

	var req AssignVideoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ProjectService.AssignVideo(id, req.VideoID); err != nil {
		switch {
		case errors.Is(err, util.ErrProjectNotFound), errors.Is(err, util.ErrVideoNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// AttachGroupRequest 问题组挂载请求
type AttachGroupRequest struct {
	GroupID   uint `json:"groupId" binding:"required"`
	SortOrder int  `json:"sortOrder"`
}

// AttachGroup godoc
// @Summary 把问题组挂到项目模板
// @Description 可复用组不得携带项目级展示覆盖
// @Tags 项目
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "项目ID"
// @Param   body body AttachGroupRequest true "问题组"
// @Success 200 {object} util.Response "成功"
// @Failure 409 {object} util.Response "可复用组携带展示覆盖"
// @Router /api/admin/projects/{id}/groups [post]
func (c *ProjectController) AttachGroup(ctx *gin.Context) {
	id, ok := projectID(ctx)
	if !ok {
		return
	}

	var req AttachGroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ProjectService.AttachGroup(id, req.GroupID, req.SortOrder); err != nil {
		switch {
		case errors.Is(err, util.ErrGroupNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrReusableDisplayOverride):
			util.Conflict(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// DisplayOverrideRequest 项目级展示覆盖请求
type DisplayOverrideRequest struct {
	QuestionID   uint   `json:"questionId" binding:"required"`
	OptionValue  string `json:"optionValue" binding:"required"`
	DisplayText  string `json:"displayText"`
	DisplayValue string `json:"displayValue"`
}

// SetDisplayOverride godoc
// @Summary 设置项目级选项展示覆盖
// @Description 问题属于任一可复用组时拒绝
// @Tags 项目
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "项目ID"
// @Param   body body DisplayOverrideRequest true "覆盖内容"
// @Success 200 {object} util.Response "成功"
// @Failure 409 {object} util.Response "问题属于可复用组"
// @Router /api/admin/projects/{id}/displays [put]
func (c *ProjectController) SetDisplayOverride(ctx *gin.Context) {
	id, ok := projectID(ctx)
	if !ok {
		return
	}

	var req DisplayOverrideRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	err := c.ProjectService.SetDisplayOverride(&model.ProjectQuestionDisplay{
		ProjectID:    id,
		QuestionID:   req.QuestionID,
		OptionValue:  req.OptionValue,
		DisplayText:  req.DisplayText,
		DisplayValue: req.DisplayValue,
	})
	if err != nil {
		if errors.Is(err, util.ErrReusableDisplayOverride) {
			util.Conflict(ctx, err.Error())
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// AssignRole godoc
// @Summary 分配项目角色
// @Description 角色层级向下展开：授予 admin 同时授予 reviewer、annotator
// @Tags 项目
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "项目ID"
// @Param   body body service.AssignRoleReq true "角色分配"
// @Success 200 {object} util.Response "成功"
// @Failure 400 {object} util.Response "角色无效"
// @Router /api/admin/projects/{id}/roles [post]
func (c *ProjectController) AssignRole(ctx *gin.Context) {
	id, ok := projectID(ctx)
	if !ok {
		return
	}

	var req service.AssignRoleReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.ProjectService.AssignRole(id, req); err != nil {
		switch {
		case errors.Is(err, util.ErrInvalidRole):
			util.BadRequest(ctx, err.Error())
		case errors.Is(err, util.ErrProjectNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// RemoveRole godoc
// @Summary 移除项目角色
// @Description 沿层级级联：移除 annotator 同时失效 reviewer 和 admin
// @Tags 项目
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "项目ID"
// @Param   userId path int true "用户ID"
// @Param   role path string true "角色"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "角色分配不存在"
// @Router /api/admin/projects/{id}/roles/{userId}/{role} [delete]
func (c *ProjectController) RemoveRole(ctx *gin.Context) {
	id, ok := projectID(ctx)
	if !ok {
		return
	}
	userID, err := strconv.ParseUint(ctx.Param("userId"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的用户ID")
		return
	}

	err = c.ProjectService.RemoveRole(id, uint(userID), model.RoleType(ctx.Param("role")))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrInvalidRole):
			util.BadRequest(ctx, err.Error())
		case errors.Is(err, util.ErrRoleAssignmentNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// GetCompletion godoc
// @Summary 查询用户完成度
// @Description 标注员完成度 = 已答数/(问题数×视频数)，复核完成度按 ground truth 行数计
// @Tags 项目
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "项目ID"
// @Param   userId query int false "用户ID，缺省取当前用户"
// @Param   role query string false "角色视角" default(annotator)
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/projects/{id}/completion [get]
func (c *ProjectController) GetCompletion(ctx *gin.Context) {
	id, ok := projectID(ctx)
	if !ok {
		return
	}

	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	userID := claims.UserID
	if q := ctx.Query("userId"); q != "" {
		parsed, err := strconv.ParseUint(q, 10, 64)
		if err != nil {
			util.BadRequest(ctx, "无效的用户ID")
			return
		}
		userID = uint(parsed)
	}

	role := model.RoleType(ctx.DefaultQuery("role", string(model.RoleAnnotator)))
	completion, err := c.ProjectService.UserCompletion(ctx.Request.Context(), id, userID, role)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"projectId": id, "userId": userID, "role": role, "completion": completion})
}
