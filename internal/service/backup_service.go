package service

import (
	"blackhorse_backend/internal/repository"
	"context"
)

type BackupService struct {
	BackupRepo *repository.BackupRepository
	Sessions   *SessionRegistry
}

func NewBackupService(backupRepo *repository.BackupRepository, sessions *SessionRegistry) *BackupService {
	return &BackupService{BackupRepo: backupRepo, Sessions: sessions}
}

func (s *BackupService) Export(ctx context.Context) (*repository.BackupDocument, error) {
	return s.BackupRepo.Export(ctx)
}

// Import 整库替换。导入前的登录会话全部作废，避免持有旧数据里
// 已不存在的会员身份。
func (s *BackupService) Import(ctx context.Context, doc *repository.BackupDocument) error {
	if err := s.BackupRepo.Import(ctx, doc); err != nil {
		return err
	}
	s.Sessions.Clear()
	return nil
}
