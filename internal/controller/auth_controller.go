package controller

import (
	"blackhorse_backend/internal/model"
	"blackhorse_backend/internal/service"
	"blackhorse_backend/internal/util"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService       *service.AuthService
	InvitationService *service.InvitationService
}

func NewAuthController(authService *service.AuthService, invitationService *service.InvitationService) *AuthController {
	return &AuthController{
		AuthService:       authService,
		InvitationService: invitationService,
	}
}

// RegisterRequest 注册请求体
// swagger:model RegisterRequest
type RegisterRequest struct {
	Username     string `json:"username" binding:"required,min=2,max=20"`
	Password     string `json:"password" binding:"required,min=3"`
	Age          int    `json:"age" binding:"required,min=18,max=99"`
	ContactType  string `json:"contactType" binding:"required,oneof=wechat phone"`
	ContactValue string `json:"contactValue" binding:"required"`
	InviteCode   string `json:"inviteCode" binding:"required"`
}

// Register godoc
// @Summary 注册新会员
// @Description 凭邀请码注册，邀请码一次有效
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body RegisterRequest true "注册信息"
// @Success 201 {object} util.Response{data=object} "注册成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "用户名已存在"
// @Failure 422 {object} util.Response "邀请码无效或已被使用"
// @Router /api/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.AuthService.Register(ctx.Request.Context(), service.RegisterInput{
		Username:     req.Username,
		Password:     req.Password,
		Age:          req.Age,
		ContactType:  model.ContactType(req.ContactType),
		ContactValue: req.ContactValue,
		InviteCode:   req.InviteCode,
	})
	if err != nil {
		switch {
		case errors.Is(err, util.ErrUsernameTaken):
			util.Error(ctx, http.StatusConflict, "用户名已存在")
		case errors.Is(err, util.ErrInviteInvalid):
			util.Error(ctx, http.StatusUnprocessableEntity, "邀请码无效或已被使用")
		case errors.Is(err, util.ErrStorageBusy):
			util.Error(ctx, http.StatusServiceUnavailable, "系统繁忙，请稍后重试")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, gin.H{"id": user.ID, "uid": user.UID})
}

// LoginRequest 登录请求体
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login godoc
// @Summary 会员登录
// @Description 校验凭据并签发令牌；封禁生效中返回结构化封禁信息
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body LoginRequest true "登录凭据"
// @Success 200 {object} util.Response{data=object} "登录成功"
// @Failure 401 {object} util.Response "账号或密码错误"
// @Failure 403 {object} util.Response "账号已被封禁"
// @Router /api/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	token, user, err := c.AuthService.Login(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		var banErr *util.BanError
		switch {
		case errors.As(err, &banErr):
			util.Banned(ctx, banErr)
		case errors.Is(err, util.ErrInvalidCredentials):
			util.Error(ctx, http.StatusUnauthorized, "账号或密码错误")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{
		"token": token,
		"user":  user.Public(time.Now()),
	})
}

// AdminLoginRequest 管理员登录请求体
type AdminLoginRequest struct {
	ID     string `json:"id" binding:"required"`
	Secret string `json:"secret" binding:"required"`
}

// AdminLogin godoc
// @Summary 管理员登录
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body AdminLoginRequest true "管理员凭据"
// @Success 200 {object} util.Response{data=object} "登录成功"
// @Failure 401 {object} util.Response "凭据错误"
// @Router /api/admin/login [post]
func (c *AuthController) AdminLogin(ctx *gin.Context) {
	var req AdminLoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	token, err := c.AuthService.AdminLogin(req.ID, req.Secret)
	if err != nil {
		util.Error(ctx, http.StatusUnauthorized, "账号或密码错误")
		return
	}
	util.Success(ctx, gin.H{"token": token})
}

// Logout godoc
// @Summary 退出登录
// @Tags 认证
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} util.Response "已退出"
// @Router /api/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	claims := util.GetClaimsFromContext(ctx)
	if claims != nil {
		c.AuthService.Logout(claims.SessionID)
	}
	util.Success(ctx, nil)
}

// Heartbeat godoc
// @Summary 在线心跳
// @Description 刷新最后活跃时间，参考客户端每 10 秒调用一次
// @Tags 认证
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} util.Response "已刷新"
// @Router /api/heartbeat [post]
func (c *AuthController) Heartbeat(ctx *gin.Context) {
	claims := util.GetClaimsFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	if err := c.AuthService.Heartbeat(ctx.Request.Context(), claims.UserID); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ValidateInviteRequest 邀请码预检请求体
type ValidateInviteRequest struct {
	Code string `json:"code" binding:"required"`
}

// ValidateInvite godoc
// @Summary 校验邀请码
// @Description 注册前的预检查，不消耗邀请码
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body ValidateInviteRequest true "邀请码"
// @Success 200 {object} util.Response{data=object} "校验结果"
// @Router /api/invitations/validate [post]
func (c *AuthController) ValidateInvite(ctx *gin.Context) {
	var req ValidateInviteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	valid, err := c.InvitationService.Validate(ctx.Request.Context(), req.Code)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"valid": valid})
}
