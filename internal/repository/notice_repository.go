package repository

import (
	"blackhorse_backend/internal/model"
	"blackhorse_backend/pkg/storage"
	"context"
	"encoding/json"
	"sort"
)

type NoticeRepository struct {
	Engine storage.Engine
}

func NewNoticeRepository(engine storage.Engine) *NoticeRepository {
	return &NoticeRepository{Engine: engine}
}

func (r *NoticeRepository) Create(ctx context.Context, notice *model.Notice) error {
	data, err := json.Marshal(notice)
	if err != nil {
		return err
	}
	return r.Engine.Put(ctx, storage.CollectionNotices, notice.ID, data)
}

// List 重要公告在前，其余按时间倒序
func (r *NoticeRepository) List(ctx context.Context) ([]*model.Notice, error) {
	records, err := r.Engine.List(ctx, storage.CollectionNotices)
	if err != nil {
		return nil, err
	}
	notices := make([]*model.Notice, 0, len(records))
	for _, rec := range records {
		var n model.Notice
		if err := json.Unmarshal(rec.Data, &n); err != nil {
			return nil, err
		}
		notices = append(notices, &n)
	}
	sort.Slice(notices, func(i, j int) bool {
		if notices[i].IsImportant != notices[j].IsImportant {
			return notices[i].IsImportant
		}
		return notices[i].CreatedAt.After(notices[j].CreatedAt)
	})
	return notices, nil
}

func (r *NoticeRepository) Delete(ctx context.Context, id string) error {
	return r.Engine.Delete(ctx, storage.CollectionNotices, id)
}
