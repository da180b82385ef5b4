package service

import (
	"blackhorse_backend/internal/model"
	"blackhorse_backend/internal/repository"
	"blackhorse_backend/internal/util"
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ModerationService 负责两条审核队列：改密/找回申请与封禁申诉。
type ModerationService struct {
	RequestRepo *repository.RequestRepository
	UserRepo    *repository.UserRepository
}

func NewModerationService(requestRepo *repository.RequestRepository, userRepo *repository.UserRepository) *ModerationService {
	return &ModerationService{RequestRepo: requestRepo, UserRepo: userRepo}
}

type PasswordRequestInput struct {
	Username    string
	RequestType model.PasswordRequestType
	NewPassword string
	ContactInfo string
}

// SubmitPasswordRequest 会员提交改密或找回密码申请，进入待审队列
func (s *ModerationService) SubmitPasswordRequest(ctx context.Context, input PasswordRequestInput) (*model.PasswordRequest, error) {
	if _, err := s.UserRepo.FindByUsername(ctx, input.Username); err != nil {
		return nil, err
	}
	req := &model.PasswordRequest{
		ID:          uuid.New().String(),
		Username:    input.Username,
		RequestType: input.RequestType,
		NewPassword: input.NewPassword,
		ContactInfo: input.ContactInfo,
		Status:      model.StatusPending,
		CreatedAt:   time.Now(),
	}
	if err := s.RequestRepo.CreatePasswordRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *ModerationService) ListPasswordRequests(ctx context.Context) ([]*model.PasswordRequest, error) {
	return s.RequestRepo.ListPasswordRequests(ctx)
}

// ApprovePasswordRequest 先落新凭据再归档申请：凭据写入失败时申请保持 PENDING，
// 不会出现“申请已处理但密码没改”的状态。
func (s *ModerationService) ApprovePasswordRequest(ctx context.Context, id string) error {
	req, err := s.RequestRepo.GetPasswordRequest(ctx, id)
	if err != nil {
		return err
	}
	if req.Status == model.StatusResolved {
		return nil
	}
	newPassword := req.NewPassword
	if newPassword == "" {
		newPassword = util.DefaultResetPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user, err := s.UserRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		return err
	}
	if _, err := s.UserRepo.Update(ctx, user.ID, func(u *model.User) error {
		u.Password = string(hashed)
		return nil
	}); err != nil {
		return err
	}
	return s.RequestRepo.ResolvePasswordRequest(ctx, id)
}

func (s *ModerationService) ResolvePasswordRequest(ctx context.Context, id string) error {
	return s.RequestRepo.ResolvePasswordRequest(ctx, id)
}

func (s *ModerationService) DeletePasswordRequest(ctx context.Context, id string) error {
	return s.RequestRepo.DeletePasswordRequest(ctx, id)
}

type BanAppealInput struct {
	Username    string
	ContactInfo string
}

// SubmitBanAppeal 被封会员提交申诉，同名会员最多一条待审记录
func (s *ModerationService) SubmitBanAppeal(ctx context.Context, input BanAppealInput) (*model.BanAppeal, error) {
	user, err := s.UserRepo.FindByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	appeal := &model.BanAppeal{
		ID:          uuid.New().String(),
		Username:    input.Username,
		UserID:      user.ID,
		ContactInfo: input.ContactInfo,
		Status:      model.StatusPending,
		CreatedAt:   time.Now(),
	}
	if err := s.RequestRepo.CreateBanAppeal(ctx, appeal); err != nil {
		return nil, err
	}
	return appeal, nil
}

func (s *ModerationService) ListBanAppeals(ctx context.Context) ([]*model.BanAppeal, error) {
	return s.RequestRepo.ListBanAppeals(ctx)
}

func (s *ModerationService) ResolveBanAppeal(ctx context.Context, id string) error {
	return s.RequestRepo.ResolveBanAppeal(ctx, id)
}

func (s *ModerationService) DeleteBanAppeal(ctx context.Context, id string) error {
	return s.RequestRepo.DeleteBanAppeal(ctx, id)
}
