package repository

import (
	"blackhorse_backend/internal/model"
	"blackhorse_backend/pkg/storage"
	"context"
	"encoding/json"
	"sort"
)

type MessageRepository struct {
	Engine storage.Engine
}

func NewMessageRepository(engine storage.Engine) *MessageRepository {
	return &MessageRepository{Engine: engine}
}

// Create 消息一经写入不再修改
func (r *MessageRepository) Create(ctx context.Context, msg *model.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return r.Engine.PutIfVersion(ctx, storage.CollectionMessages, msg.ID, data, storage.VersionNone)
}

// Between 两名会员之间的全部私信，时间升序，同一时刻按写入顺序
func (r *MessageRepository) Between(ctx context.Context, userID1, userID2 string) ([]*model.ChatMessage, error) {
	records, err := r.Engine.List(ctx, storage.CollectionMessages)
	if err != nil {
		return nil, err
	}
	msgs := make([]*model.ChatMessage, 0)
	for _, rec := range records {
		var m model.ChatMessage
		if err := json.Unmarshal(rec.Data, &m); err != nil {
			return nil, err
		}
		if (m.FromID == userID1 && m.ToID == userID2) || (m.FromID == userID2 && m.ToID == userID1) {
			msgs = append(msgs, &m)
		}
	}
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].Timestamp.Equal(msgs[j].Timestamp) {
			return msgs[i].Seq < msgs[j].Seq
		}
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
	return msgs, nil
}
