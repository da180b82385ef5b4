package controller

import (
	"blackhorse_backend/internal/service"
	"blackhorse_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type NoticeController struct {
	NoticeService *service.NoticeService
}

func NewNoticeController(noticeService *service.NoticeService) *NoticeController {
	return &NoticeController{NoticeService: noticeService}
}

// List godoc
// @Summary 公告列表
// @Description 重要公告置顶，其余按发布时间倒序
// @Tags 公告
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.Notice} "公告列表"
// @Router /api/notices [get]
func (c *NoticeController) List(ctx *gin.Context) {
	notices, err := c.NoticeService.List(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, notices)
}
