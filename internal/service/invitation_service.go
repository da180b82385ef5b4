package service

import (
	"blackhorse_backend/internal/model"
	"blackhorse_backend/internal/repository"
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"
)

const inviteCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type InvitationService struct {
	InviteRepo *repository.InvitationRepository
}

func NewInvitationService(inviteRepo *repository.InvitationRepository) *InvitationService {
	return &InvitationService{InviteRepo: inviteRepo}
}

// Generate 生成形如 BH-XXXXXX 的新邀请码
func (s *InvitationService) Generate(ctx context.Context) (*model.InvitationCode, error) {
	code := "BH-"
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(inviteCodeChars))))
		if err != nil {
			return nil, err
		}
		code += string(inviteCodeChars[n.Int64()])
	}
	invite := &model.InvitationCode{
		ID:        uuid.New().String(),
		Code:      code,
		IsUsed:    false,
		CreatedAt: time.Now(),
	}
	if err := s.InviteRepo.Create(ctx, invite); err != nil {
		return nil, err
	}
	return invite, nil
}

func (s *InvitationService) List(ctx context.Context) ([]*model.InvitationCode, error) {
	return s.InviteRepo.List(ctx)
}

func (s *InvitationService) Delete(ctx context.Context, id string) error {
	return s.InviteRepo.Delete(ctx, id)
}

// Validate 校验邀请码当前是否可用（注册前的预检查）
func (s *InvitationService) Validate(ctx context.Context, code string) (bool, error) {
	return s.InviteRepo.Validate(ctx, code)
}
