package service

import (
	"blackhorse_backend/internal/model"
	"blackhorse_backend/internal/repository"
	"context"
	"time"

	"github.com/google/uuid"
)

type NoticeService struct {
	NoticeRepo *repository.NoticeRepository
}

func NewNoticeService(noticeRepo *repository.NoticeRepository) *NoticeService {
	return &NoticeService{NoticeRepo: noticeRepo}
}

func (s *NoticeService) Publish(ctx context.Context, title, content string, important bool) (*model.Notice, error) {
	notice := &model.Notice{
		ID:          uuid.New().String(),
		Title:       title,
		Content:     content,
		IsImportant: important,
		CreatedAt:   time.Now(),
	}
	if err := s.NoticeRepo.Create(ctx, notice); err != nil {
		return nil, err
	}
	return notice, nil
}

func (s *NoticeService) List(ctx context.Context) ([]*model.Notice, error) {
	return s.NoticeRepo.List(ctx)
}

func (s *NoticeService) Delete(ctx context.Context, id string) error {
	return s.NoticeRepo.Delete(ctx, id)
}
