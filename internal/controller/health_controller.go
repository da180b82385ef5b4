package controller

import (
	"blackhorse_backend/internal/util"
	"blackhorse_backend/pkg/storage"
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthController struct {
	Engine storage.Engine
}

func NewHealthController(engine storage.Engine) *HealthController {
	return &HealthController{Engine: engine}
}

// @Summary 健康检查
// @Description 检查服务与存储引擎状态
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Router /health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	// 探测存储引擎可用性
	if _, err := c.Engine.List(ctx.Request.Context(), storage.CollectionCounters); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Storage unavailable")
		return
	}

	util.Success(ctx, gin.H{
		"status": "ok",
		"components": gin.H{
			"storage": "up",
		},
	})
}
