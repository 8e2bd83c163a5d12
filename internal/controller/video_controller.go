package controller

import (
	"errors"
	"strconv"

	"video_label_backend/internal/service"
	"video_label_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type VideoController struct {
	VideoService *service.VideoService
}

func NewVideoController(videoService *service.VideoService) *VideoController {
	return &VideoController{VideoService: videoService}
}

// Upload godoc
// @Summary 上传视频
// @Description 上传视频文件，服务端探测元数据后存入存储后端
// @Tags 视频
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   file formData file true "视频文件"
// @Param   name formData string false "视频名称，缺省取文件名"
// @Success 201 {object} util.Response{data=model.Video} "上传成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/admin/videos [post]
func (c *VideoController) Upload(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "缺少视频文件")
		return
	}

	name := ctx.PostForm("name")
	if name == "" {
		name = file.Filename
	}

	video, err := c.VideoService.Upload(ctx.Request.Context(), name, file)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, video)
}

// GetVideo godoc
// @Summary 获取视频详情
// @Tags 视频
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "视频ID"
// @Success 200 {object} util.Response{data=model.Video} "成功"
// @Failure 404 {object} util.Response "视频不存在"
// @Router /api/videos/{id} [get]
func (c *VideoController) GetVideo(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的视频ID")
		return
	}

	video, err := c.VideoService.Get(uint(id))
	if err != nil {
		if errors.Is(err, util.ErrVideoNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, video)
}

// ListVideos godoc
// @Summary 获取视频列表
// @Tags 视频
// @Produce  json
// @Security ApiKeyAuth
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(10)
// @Param   includeArchived query bool false "包含已归档" default(false)
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Router /api/videos [get]
func (c *VideoController) ListVideos(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	includeArchived := ctx.DefaultQuery("includeArchived", "false") == "true"

	videos, total, err := c.VideoService.List(page, limit, includeArchived)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: videos, Total: total, Page: page, Limit: limit})
}

// ArchiveVideo godoc
// @Summary 归档视频
// @Description 归档后的视频不再计入项目完成度
// @Tags 视频
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "视频ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/admin/videos/{id}/archive [post]
func (c *VideoController) ArchiveVideo(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "无效的视频ID")
		return
	}

	if err := c.VideoService.Archive(uint(id)); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
