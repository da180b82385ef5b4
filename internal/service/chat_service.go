package service

import (
	"blackhorse_backend/internal/model"
	"blackhorse_backend/internal/repository"
	"blackhorse_backend/internal/util"
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ChatService struct {
	MessageRepo *repository.MessageRepository
	UserRepo    *repository.UserRepository
}

func NewChatService(messageRepo *repository.MessageRepository, userRepo *repository.UserRepository) *ChatService {
	return &ChatService{MessageRepo: messageRepo, UserRepo: userRepo}
}

// Send 发送私信，收信人必须存在且未被删除
func (s *ChatService) Send(ctx context.Context, fromID, toID, content string) (*model.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, util.ErrEmptyMessage
	}
	if _, err := s.UserRepo.FindByID(ctx, toID); err != nil {
		return nil, err
	}
	seq, err := s.UserRepo.NextMessageSeq(ctx)
	if err != nil {
		return nil, err
	}
	msg := &model.ChatMessage{
		ID:        uuid.New().String(),
		FromID:    fromID,
		ToID:      toID,
		Content:   content,
		Timestamp: time.Now(),
		Seq:       seq,
	}
	if err := s.MessageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// History 当前会员与对方的完整聊天记录，时间升序
func (s *ChatService) History(ctx context.Context, userID, peerID string) ([]*model.ChatMessage, error) {
	return s.MessageRepo.Between(ctx, userID, peerID)
}
