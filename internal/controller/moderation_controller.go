package controller

import (
	"blackhorse_backend/internal/model"
	"blackhorse_backend/internal/service"
	"blackhorse_backend/internal/util"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ModerationController 公开的申诉/申请入口（无需登录，封禁会员也能访问）
type ModerationController struct {
	ModerationService *service.ModerationService
}

func NewModerationController(moderationService *service.ModerationService) *ModerationController {
	return &ModerationController{ModerationService: moderationService}
}

// PasswordRequestBody 改密/找回申请请求体
type PasswordRequestBody struct {
	Username    string `json:"username" binding:"required"`
	RequestType string `json:"requestType" binding:"required,oneof=RESET RETRIEVE"`
	NewPassword string `json:"newPassword"`
	ContactInfo string `json:"contactInfo" binding:"required"`
}

// SubmitPasswordRequest godoc
// @Summary 提交改密/找回申请
// @Description 同一账号同时只能有一条待审申请
// @Tags 审核
// @Accept  json
// @Produce  json
// @Param   body body PasswordRequestBody true "申请内容"
// @Success 201 {object} util.Response{data=model.PasswordRequest} "已提交"
// @Failure 404 {object} util.Response "用户不存在"
// @Failure 409 {object} util.Response "已有待处理的申请"
// @Router /api/password-requests [post]
func (c *ModerationController) SubmitPasswordRequest(ctx *gin.Context) {
	var req PasswordRequestBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.ModerationService.SubmitPasswordRequest(ctx.Request.Context(), service.PasswordRequestInput{
		Username:    req.Username,
		RequestType: model.PasswordRequestType(req.RequestType),
		NewPassword: req.NewPassword,
		ContactInfo: req.ContactInfo,
	})
	if err != nil {
		switch {
		case errors.Is(err, util.ErrUserNotFound):
			util.Error(ctx, http.StatusNotFound, "用户不存在")
		case errors.Is(err, util.ErrDuplicatePending):
			util.Error(ctx, http.StatusConflict, "已有一个待处理的申请")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, result)
}

// BanAppealBody 封禁申诉请求体
type BanAppealBody struct {
	Username    string `json:"username" binding:"required"`
	ContactInfo string `json:"contactInfo" binding:"required"`
}

// SubmitBanAppeal godoc
// @Summary 提交封禁申诉
// @Description 被封会员通过公开入口申诉，同一账号同时只能有一条待审申诉
// @Tags 审核
// @Accept  json
// @Produce  json
// @Param   body body BanAppealBody true "申诉内容"
// @Success 201 {object} util.Response{data=model.BanAppeal} "已提交"
// @Failure 404 {object} util.Response "用户不存在"
// @Failure 409 {object} util.Response "已有待处理的申诉"
// @Router /api/appeals [post]
func (c *ModerationController) SubmitBanAppeal(ctx *gin.Context) {
	var req BanAppealBody
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	appeal, err := c.ModerationService.SubmitBanAppeal(ctx.Request.Context(), service.BanAppealInput{
		Username:    req.Username,
		ContactInfo: req.ContactInfo,
	})
	if err != nil {
		switch {
		case errors.Is(err, util.ErrUserNotFound):
			util.Error(ctx, http.StatusNotFound, "用户不存在")
		case errors.Is(err, util.ErrDuplicatePending):
			util.Error(ctx, http.StatusConflict, "已有一个待处理的申诉")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, appeal)
}
