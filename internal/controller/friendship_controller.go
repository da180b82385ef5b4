package controller

import (
	"blackhorse_backend/internal/service"
	"blackhorse_backend/internal/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type FriendshipController struct {
	FriendshipService *service.FriendshipService
}

func NewFriendshipController(friendshipService *service.FriendshipService) *FriendshipController {
	return &FriendshipController{FriendshipService: friendshipService}
}

// Like godoc
// @Summary 点赞
// @Description 给目标会员点赞，无次数限制；目标不存在时静默成功
// @Tags 社交
// @Security BearerAuth
// @Produce  json
// @Param   id path string true "目标会员 ID"
// @Success 200 {object} util.Response "已点赞"
// @Router /api/users/{id}/like [post]
func (c *FriendshipController) Like(ctx *gin.Context) {
	if err := c.FriendshipService.Like(ctx.Request.Context(), ctx.Param("id")); err != nil {
		if errors.Is(err, util.ErrStorageBusy) {
			util.Error(ctx, http.StatusServiceUnavailable, "系统繁忙，请稍后重试")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// SendRequest godoc
// @Summary 发送好友申请
// @Tags 社交
// @Security BearerAuth
// @Produce  json
// @Param   id path string true "目标会员 ID"
// @Success 200 {object} util.Response "已发送"
// @Failure 404 {object} util.Response "用户不存在"
// @Failure 409 {object} util.Response "已经是好友或已发送过申请"
// @Router /api/users/{id}/friend-request [post]
func (c *FriendshipController) SendRequest(ctx *gin.Context) {
	claims := util.GetClaimsFromContext(ctx)
	err := c.FriendshipService.SendFriendRequest(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrUserNotFound):
			util.Error(ctx, http.StatusNotFound, "用户不存在")
		case errors.Is(err, util.ErrAlreadyFriends):
			util.Error(ctx, http.StatusConflict, "已经是好友了")
		case errors.Is(err, util.ErrAlreadyRequested):
			util.Error(ctx, http.StatusConflict, "已发送过申请")
		case errors.Is(err, util.ErrStorageBusy):
			util.Error(ctx, http.StatusServiceUnavailable, "系统繁忙，请稍后重试")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// AcceptRequest godoc
// @Summary 接受好友申请
// @Description 双方会员记录在同一事务中建立对称好友关系
// @Tags 社交
// @Security BearerAuth
// @Produce  json
// @Param   id path string true "申请人 ID"
// @Success 200 {object} util.Response "已接受"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/friend-requests/{id}/accept [post]
func (c *FriendshipController) AcceptRequest(ctx *gin.Context) {
	claims := util.GetClaimsFromContext(ctx)
	err := c.FriendshipService.AcceptFriendRequest(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrUserNotFound):
			util.Error(ctx, http.StatusNotFound, "用户不存在")
		case errors.Is(err, util.ErrStorageBusy):
			util.Error(ctx, http.StatusServiceUnavailable, "系统繁忙，请稍后重试")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// RejectRequest godoc
// @Summary 拒绝好友申请
// @Description 幂等操作，申请不存在时同样返回成功
// @Tags 社交
// @Security BearerAuth
// @Produce  json
// @Param   id path string true "申请人 ID"
// @Success 200 {object} util.Response "已拒绝"
// @Router /api/friend-requests/{id}/reject [post]
func (c *FriendshipController) RejectRequest(ctx *gin.Context) {
	claims := util.GetClaimsFromContext(ctx)
	if err := c.FriendshipService.RejectFriendRequest(ctx.Request.Context(), claims.UserID, ctx.Param("id")); err != nil {
		if errors.Is(err, util.ErrStorageBusy) {
			util.Error(ctx, http.StatusServiceUnavailable, "系统繁忙，请稍后重试")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// Friends godoc
// @Summary 好友列表
// @Tags 社交
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.PublicUser} "好友列表"
// @Router /api/friends [get]
func (c *FriendshipController) Friends(ctx *gin.Context) {
	claims := util.GetClaimsFromContext(ctx)
	friends, err := c.FriendshipService.Friends(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, friends)
}

// PendingRequests godoc
// @Summary 待处理的好友申请
// @Tags 社交
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.PublicUser} "申请人列表"
// @Router /api/friend-requests [get]
func (c *FriendshipController) PendingRequests(ctx *gin.Context) {
	claims := util.GetClaimsFromContext(ctx)
	requests, err := c.FriendshipService.PendingRequests(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, requests)
}
