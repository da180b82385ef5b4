package controller

import (
	"blackhorse_backend/internal/model"
	"blackhorse_backend/internal/repository"
	"blackhorse_backend/internal/service"
	"blackhorse_backend/internal/util"
	"blackhorse_backend/pkg/storage"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// AdminController 后台管理接口，全部要求管理员角色
type AdminController struct {
	UserService       *service.UserService
	AuthService       *service.AuthService
	InvitationService *service.InvitationService
	ModerationService *service.ModerationService
	NoticeService     *service.NoticeService
	BackupService     *service.BackupService
}

func NewAdminController(
	userService *service.UserService,
	authService *service.AuthService,
	invitationService *service.InvitationService,
	moderationService *service.ModerationService,
	noticeService *service.NoticeService,
	backupService *service.BackupService,
) *AdminController {
	return &AdminController{
		UserService:       userService,
		AuthService:       authService,
		InvitationService: invitationService,
		ModerationService: moderationService,
		NoticeService:     noticeService,
		BackupService:     backupService,
	}
}

// ---- 会员管理 ----

// ListUsers godoc
// @Summary 会员列表
// @Tags 后台
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.AdminUser} "会员列表"
// @Router /api/admin/users [get]
func (c *AdminController) ListUsers(ctx *gin.Context) {
	users, err := c.UserService.AdminList(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, users)
}

// AdminCreateUserRequest 后台添加会员请求体
type AdminCreateUserRequest struct {
	Username     string `json:"username" binding:"required,min=2,max=20"`
	Password     string `json:"password"`
	Age          int    `json:"age" binding:"required,min=18,max=99"`
	ContactType  string `json:"contactType" binding:"required,oneof=wechat phone"`
	ContactValue string `json:"contactValue" binding:"required"`
}

// CreateUser godoc
// @Summary 添加会员
// @Description 管理员直接添加，不消耗邀请码；密码缺省为 888888
// @Tags 后台
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param   body body AdminCreateUserRequest true "会员信息"
// @Success 201 {object} util.Response{data=object} "已创建"
// @Failure 409 {object} util.Response "用户名已存在"
// @Router /api/admin/users [post]
func (c *AdminController) CreateUser(ctx *gin.Context) {
	var req AdminCreateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.AdminCreate(ctx.Request.Context(), service.AdminCreateInput{
		Username:     req.Username,
		Password:     req.Password,
		Age:          req.Age,
		ContactType:  model.ContactType(req.ContactType),
		ContactValue: req.ContactValue,
	})
	if err != nil {
		if errors.Is(err, util.ErrUsernameTaken) {
			util.Error(ctx, http.StatusConflict, "用户名已存在")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, gin.H{"id": user.ID, "uid": user.UID})
}

// DeleteUser godoc
// @Summary 删除会员
// @Description 软删除：记录保留，账号从所有查找中消失，登录名可复用
// @Tags 后台
// @Security BearerAuth
// @Produce  json
// @Param   id path string true "会员 ID"
// @Success 200 {object} util.Response "已删除"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/admin/users/{id} [delete]
func (c *AdminController) DeleteUser(ctx *gin.Context) {
	err := c.UserService.AdminDelete(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.Error(ctx, http.StatusNotFound, "用户不存在")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// ResetPasswordRequest 后台重置密码请求体
type ResetPasswordRequest struct {
	Username    string `json:"username" binding:"required"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword godoc
// @Summary 重置会员密码
// @Description 不传新密码时重置为缺省密码 888888
// @Tags 后台
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param   body body ResetPasswordRequest true "重置信息"
// @Success 200 {object} util.Response "已重置"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/admin/users/reset-password [post]
func (c *AdminController) ResetPassword(ctx *gin.Context) {
	var req ResetPasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	err := c.UserService.ResetPassword(ctx.Request.Context(), req.Username, req.NewPassword)
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.Error(ctx, http.StatusNotFound, "用户不存在")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// BanUserRequest 封禁请求体
type BanUserRequest struct {
	DurationMinutes int `json:"durationMinutes" binding:"required,min=1"`
}

// BanUser godoc
// @Summary 封禁会员
// @Description 设定时长封禁并立即吊销该会员的全部会话
// @Tags 后台
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param   id path string true "会员 ID"
// @Param   body body BanUserRequest true "封禁时长"
// @Success 200 {object} util.Response "已封禁"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/admin/users/{id}/ban [post]
func (c *AdminController) BanUser(ctx *gin.Context) {
	var req BanUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	err := c.AuthService.Ban(ctx.Request.Context(), ctx.Param("id"), time.Duration(req.DurationMinutes)*time.Minute)
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.Error(ctx, http.StatusNotFound, "用户不存在")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// UnbanUser godoc
// @Summary 解除封禁
// @Tags 后台
// @Security BearerAuth
// @Produce  json
// @Param   id path string true "会员 ID"
// @Success 200 {object} util.Response "已解封"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/admin/users/{id}/unban [post]
func (c *AdminController) UnbanUser(ctx *gin.Context) {
	err := c.AuthService.Unban(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.Error(ctx, http.StatusNotFound, "用户不存在")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// ---- 邀请码 ----

// ListInvitations godoc
// @Summary 邀请码列表
// @Tags 后台
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.InvitationCode} "邀请码列表"
// @Router /api/admin/invitations [get]
func (c *AdminController) ListInvitations(ctx *gin.Context) {
	invites, err := c.InvitationService.List(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, invites)
}

// GenerateInvitation godoc
// @Summary 生成邀请码
// @Tags 后台
// @Security BearerAuth
// @Produce  json
// @Success 201 {object} util.Response{data=model.InvitationCode} "新邀请码"
// @Router /api/admin/invitations [post]
func (c *AdminController) GenerateInvitation(ctx *gin.Context) {
	invite, err := c.InvitationService.Generate(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, invite)
}

// DeleteInvitation godoc
// @Summary 删除邀请码
// @Tags 后台
// @Security BearerAuth
// @Produce  json
// @Param   id path string true "邀请码 ID"
// @Success 200 {object} util.Response "已删除"
// @Router /api/admin/invitations/{id} [delete]
func (c *AdminController) DeleteInvitation(ctx *gin.Context) {
	if err := c.InvitationService.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ---- 审核队列 ----

// ListPasswordRequests godoc
// @Summary 改密/找回申请列表
// @Tags 后台
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.PasswordRequest} "申请列表"
// @Router /api/admin/password-requests [get]
func (c *AdminController) ListPasswordRequests(ctx *gin.Context) {
	reqs, err := c.ModerationService.ListPasswordRequests(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, reqs)
}

// ApprovePasswordRequest godoc
// @Summary 批准改密/找回申请
// @Description 先写入新凭据再归档申请；RETRIEVE 或未填新密码时重置为 888888
// @Tags 后台
// @Security BearerAuth
// @Produce  json
// @Param   id path string true "申请 ID"
// @Success 200 {object} util.Response "已批准"
// @Failure 404 {object} util.Response "申请不存在"
// @Router /api/admin/password-requests/{id}/approve [post]
func (c *AdminController) ApprovePasswordRequest(ctx *gin.Context) {
	err := c.ModerationService.ApprovePasswordRequest(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrUserNotFound):
			util.Error(ctx, http.StatusNotFound, "用户不存在")
		case errors.Is(err, storage.ErrNotFound):
			util.NotFound(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// ResolvePasswordRequest godoc
// @Summary 标记申请为已处理
// @Description 不改密码，仅归档；幂等
// @Tags 后台
// @Security BearerAuth
// @Produce  json
// @Param   id path string true "申请 ID"
// @Success 200 {object} util.Response "已处理"
// @Router /api/admin/password-requests/{id}/resolve [post]
func (c *AdminController) ResolvePasswordRequest(ctx *gin.Context) {
	if err := c.ModerationService.ResolvePasswordRequest(ctx.Request.Context(), ctx.Param("id")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// DeletePasswordRequest godoc
// @Summary 删除申请记录
// @Tags 后台
// @Security BearerAuth
// @Produce  json
// @Param   id path string true "申请 ID"
// @Success 200 {object} util.Response "已删除"
// @Router /api/admin/password-requests/{id} [delete]
func (c *AdminController) DeletePasswordRequest(ctx *gin.Context) {
	if err := c.ModerationService.DeletePasswordRequest(ctx.Request.Context(), ctx.Param("id")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ListBanAppeals godoc
// @Summary 封禁申诉列表
// @Tags 后台
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.BanAppeal} "申诉列表"
// @Router /api/admin/appeals [get]
func (c *AdminController) ListBanAppeals(ctx *gin.Context) {
	appeals, err := c.ModerationService.ListBanAppeals(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, appeals)
}

// ResolveBanAppeal godoc
// @Summary 标记申诉为已处理
// @Description 仅归档申诉，解封走单独的解封接口；幂等
// @Tags 后台
// @Security BearerAuth
// @Produce  json
// @Param   id path string true "申诉 ID"
// @Success 200 {object} util.Response "已处理"
// @Router /api/admin/appeals/{id}/resolve [post]
func (c *AdminController) ResolveBanAppeal(ctx *gin.Context) {
	if err := c.ModerationService.ResolveBanAppeal(ctx.Request.Context(), ctx.Param("id")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// DeleteBanAppeal godoc
// @Summary 删除申诉记录
// @Tags 后台
// @Security BearerAuth
// @Produce  json
// @Param   id path string true "申诉 ID"
// @Success 200 {object} util.Response "已删除"
// @Router /api/admin/appeals/{id} [delete]
func (c *AdminController) DeleteBanAppeal(ctx *gin.Context) {
	if err := c.ModerationService.DeleteBanAppeal(ctx.Request.Context(), ctx.Param("id")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ---- 公告 ----

// CreateNoticeRequest 发布公告请求体
type CreateNoticeRequest struct {
	Title       string `json:"title" binding:"required"`
	Content     string `json:"content" binding:"required"`
	IsImportant bool   `json:"isImportant"`
}

// CreateNotice godoc
// @Summary 发布公告
// @Tags 后台
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param   body body CreateNoticeRequest true "公告内容"
// @Success 201 {object} util.Response{data=model.Notice} "已发布"
// @Router /api/admin/notices [post]
func (c *AdminController) CreateNotice(ctx *gin.Context) {
	var req CreateNoticeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	notice, err := c.NoticeService.Publish(ctx.Request.Context(), req.Title, req.Content, req.IsImportant)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Created(ctx, notice)
}

// DeleteNotice godoc
// @Summary 删除公告
// @Tags 后台
// @Security BearerAuth
// @Produce  json
// @Param   id path string true "公告 ID"
// @Success 200 {object} util.Response "已删除"
// @Router /api/admin/notices/{id} [delete]
func (c *AdminController) DeleteNotice(ctx *gin.Context) {
	if err := c.NoticeService.Delete(ctx.Request.Context(), ctx.Param("id")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ---- 数据备份 ----

// ExportData godoc
// @Summary 导出数据库
// @Description 导出全部集合为 JSON 文档，可用于备份或迁移
// @Tags 后台
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} repository.BackupDocument "导出文档"
// @Router /api/admin/export [get]
func (c *AdminController) ExportData(ctx *gin.Context) {
	doc, err := c.BackupService.Export(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", "attachment; filename=blackhorse-backup.json")
	ctx.JSON(http.StatusOK, doc)
}

// ImportData godoc
// @Summary 导入数据库
// @Description 整库替换，导入后所有登录会话作废
// @Tags 后台
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param   body body repository.BackupDocument true "导出文档"
// @Success 200 {object} util.Response "已导入"
// @Router /api/admin/import [post]
func (c *AdminController) ImportData(ctx *gin.Context) {
	var doc repository.BackupDocument
	if err := ctx.ShouldBindJSON(&doc); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if err := c.BackupService.Import(ctx.Request.Context(), &doc); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
