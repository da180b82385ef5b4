package controller

import (
	"blackhorse_backend/internal/service"
	"blackhorse_backend/internal/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type ChatController struct {
	ChatService *service.ChatService
}

func NewChatController(chatService *service.ChatService) *ChatController {
	return &ChatController{ChatService: chatService}
}

// SendMessageRequest 私信请求体
type SendMessageRequest struct {
	ToID    string `json:"toId" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// Send godoc
// @Summary 发送私信
// @Tags 聊天
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param   body body SendMessageRequest true "私信内容"
// @Success 201 {object} util.Response{data=model.ChatMessage} "已发送"
// @Failure 400 {object} util.Response "消息内容不能为空"
// @Failure 404 {object} util.Response "收信人不存在"
// @Router /api/messages [post]
func (c *ChatController) Send(ctx *gin.Context) {
	var req SendMessageRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	claims := util.GetClaimsFromContext(ctx)
	msg, err := c.ChatService.Send(ctx.Request.Context(), claims.UserID, req.ToID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrEmptyMessage):
			util.BadRequest(ctx, "消息内容不能为空")
		case errors.Is(err, util.ErrUserNotFound):
			util.Error(ctx, http.StatusNotFound, "用户不存在")
		case errors.Is(err, util.ErrStorageBusy):
			util.Error(ctx, http.StatusServiceUnavailable, "系统繁忙，请稍后重试")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, msg)
}

// History godoc
// @Summary 与某会员的聊天记录
// @Description 双方之间的全部消息，时间升序
// @Tags 聊天
// @Security BearerAuth
// @Produce  json
// @Param   id path string true "对方会员 ID"
// @Success 200 {object} util.Response{data=[]model.ChatMessage} "消息列表"
// @Router /api/messages/{id} [get]
func (c *ChatController) History(ctx *gin.Context) {
	claims := util.GetClaimsFromContext(ctx)
	msgs, err := c.ChatService.History(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, msgs)
}
