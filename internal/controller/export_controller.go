package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"video_label_backend/internal/service"
	"video_label_backend/internal/util"
	"video_label_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ExportController 多项目权威答案导出
type ExportController struct {
	ExportService *service.ExportService
}

func NewExportController(exportService *service.ExportService) *ExportController {
	return &ExportController{ExportService: exportService}
}

func parseProjectIDs(ctx *gin.Context) ([]uint, bool) {
	raw := ctx.Query("projectIds")
	if raw == "" {
		util.BadRequest(ctx, "缺少 projectIds 参数")
		return nil, false
	}

	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			util.BadRequest(ctx, "无效的项目ID: "+part)
			return nil, false
		}
		ids = append(ids, uint(id))
	}
	return ids, true
}

// ValidateConsistency godoc
// @Summary 跨项目一致性预检
// @Description 独立于导出运行两项检查：可复用组在共享视频上的 ground truth 一致性，
// @Description 以及不可复用组的项目隔离性。返回全部违规明细（视频清单有截断上限）。
// @Tags 导出
// @Produce  json
// @Security ApiKeyAuth
// @Param   projectIds query string true "逗号分隔的项目ID列表"
// @Success 200 {object} util.Response{data=object} "检查结果"
// @Router /api/admin/export/validate [get]
func (c *ExportController) ValidateConsistency(ctx *gin.Context) {
	ids, ok := parseProjectIDs(ctx)
	if !ok {
		return
	}

	violations, err := c.ExportService.ValidateConsistency(ctx.Request.Context(), ids)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"consistent": len(violations) == 0, "violations": violations})
}

// Export godoc
// @Summary 导出多项目权威答案
// @Description 先做一致性校验，任一违规整体拒绝；通过后逐视频装配导出行，
// @Description 附带各项目的展示覆盖。
// @Tags 导出
// @Produce  json
// @Security ApiKeyAuth
// @Param   projectIds query string true "逗号分隔的项目ID列表"
// @Success 200 {object} util.Response{data=[]service.ExportRow} "导出数据"
// @Failure 409 {object} util.Response "一致性校验失败"
// @Router /api/admin/export [get]
func (c *ExportController) Export(ctx *gin.Context) {
	ids, ok := parseProjectIDs(ctx)
	if !ok {
		return
	}

	rows, err := c.ExportService.Export(ctx.Request.Context(), ids, func(done, total int) {
		if done%1000 == 0 || done == total {
			logger.Log.Info("导出进度", zap.Int("done", done), zap.Int("total", total))
		}
	})
	if err != nil {
		var cerr *service.ConsistencyError
		if errors.As(err, &cerr) {
			ctx.JSON(http.StatusConflict, util.Response{
				Code:    http.StatusConflict,
				Message: cerr.Error(),
				Data:    gin.H{"violations": cerr.Violations},
			})
			return
		}
		if errors.Is(err, ctx.Request.Context().Err()) && ctx.Request.Context().Err() != nil {
			// 客户端断开，照常结束
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}
