package controller

import (
	"blackhorse_backend/internal/model"
	"blackhorse_backend/internal/service"
	"blackhorse_backend/internal/util"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UserController struct {
	UserService    *service.UserService
	StorageService *service.StorageService
}

func NewUserController(userService *service.UserService, storageService *service.StorageService) *UserController {
	return &UserController{UserService: userService, StorageService: storageService}
}

// Lobby godoc
// @Summary 大厅会员列表
// @Description 除自己以外的全部可见会员，带在线状态
// @Tags 会员
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.PublicUser} "会员列表"
// @Router /api/users [get]
func (c *UserController) Lobby(ctx *gin.Context) {
	claims := util.GetClaimsFromContext(ctx)
	users, err := c.UserService.Lobby(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, users)
}

// Leaderboard godoc
// @Summary 点赞排行榜
// @Description 点赞数降序，平局按注册时间先后
// @Tags 会员
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.PublicUser} "排行榜"
// @Router /api/users/leaderboard [get]
func (c *UserController) Leaderboard(ctx *gin.Context) {
	users, err := c.UserService.Leaderboard(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, users)
}

// Profile godoc
// @Summary 当前会员档案
// @Tags 会员
// @Security BearerAuth
// @Produce  json
// @Success 200 {object} util.Response{data=model.PublicUser} "档案"
// @Router /api/users/me [get]
func (c *UserController) Profile(ctx *gin.Context) {
	claims := util.GetClaimsFromContext(ctx)
	user, err := c.UserService.Get(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.Error(ctx, http.StatusNotFound, "用户不存在")
		return
	}
	util.Success(ctx, user.Public(time.Now()))
}

// UpdateProfileRequest 档案更新请求体，缺省字段不改动
type UpdateProfileRequest struct {
	DisplayName  *string   `json:"displayName"`
	Age          *int      `json:"age" binding:"omitempty,min=18,max=99"`
	ContactType  *string   `json:"contactType" binding:"omitempty,oneof=wechat phone"`
	ContactValue *string   `json:"contactValue"`
	Bio          *string   `json:"bio"`
	Photos       *[]string `json:"photos"`
}

// UpdateProfile godoc
// @Summary 更新档案
// @Tags 会员
// @Security BearerAuth
// @Accept  json
// @Produce  json
// @Param   body body UpdateProfileRequest true "要修改的字段"
// @Success 200 {object} util.Response{data=model.PublicUser} "更新后的档案"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/users/me [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	var req UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	update := service.ProfileUpdate{
		DisplayName:  req.DisplayName,
		Age:          req.Age,
		ContactValue: req.ContactValue,
		Bio:          req.Bio,
		Photos:       req.Photos,
	}
	if req.ContactType != nil {
		ct := model.ContactType(*req.ContactType)
		update.ContactType = &ct
	}

	claims := util.GetClaimsFromContext(ctx)
	user, err := c.UserService.UpdateProfile(ctx.Request.Context(), claims.UserID, update)
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.Error(ctx, http.StatusNotFound, "用户不存在")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, user.Public(time.Now()))
}

// UploadPhoto godoc
// @Summary 上传相册照片
// @Description 上传单张照片，返回可写入档案的 URL
// @Tags 会员
// @Security BearerAuth
// @Accept  multipart/form-data
// @Produce  json
// @Param   photo formData file true "照片文件"
// @Success 200 {object} util.Response{data=object} "照片 URL"
// @Failure 400 {object} util.Response "缺少文件"
// @Router /api/users/me/photos [post]
func (c *UserController) UploadPhoto(ctx *gin.Context) {
	file, err := ctx.FormFile("photo")
	if err != nil {
		util.BadRequest(ctx, "缺少照片文件")
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	claims := util.GetClaimsFromContext(ctx)
	filename := fmt.Sprintf("photos/%s/%s%s", claims.UserID, uuid.New().String(), filepath.Ext(file.Filename))
	url, err := c.StorageService.Upload(ctx.Request.Context(), filename, src, file.Size, file.Header.Get("Content-Type"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"url": url})
}
