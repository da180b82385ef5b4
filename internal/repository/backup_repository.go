package repository

import (
	"blackhorse_backend/internal/model"
	"blackhorse_backend/pkg/storage"
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"
)

// BackupDocument 整库导出格式，字段名与历史导出文件保持一致
type BackupDocument struct {
	Users            []*model.User            `json:"users"`
	Invites          []*model.InvitationCode  `json:"invites"`
	Messages         []*model.ChatMessage     `json:"messages"`
	Notices          []*model.Notice          `json:"notices"`
	PasswordRequests []*model.PasswordRequest `json:"passwordRequests"`
	BanAppeals       []*model.BanAppeal       `json:"banAppeals"`
	Timestamp        time.Time                `json:"timestamp"`
}

type BackupRepository struct {
	Engine storage.Engine

	// importMu 串行化导入；导入本身不是单个事务，并发导入会交错
	importMu sync.Mutex
}

func NewBackupRepository(engine storage.Engine) *BackupRepository {
	return &BackupRepository{Engine: engine}
}

func (r *BackupRepository) Export(ctx context.Context) (*BackupDocument, error) {
	doc := &BackupDocument{
		Users:            []*model.User{},
		Invites:          []*model.InvitationCode{},
		Messages:         []*model.ChatMessage{},
		Notices:          []*model.Notice{},
		PasswordRequests: []*model.PasswordRequest{},
		BanAppeals:       []*model.BanAppeal{},
		Timestamp:        time.Now(),
	}
	if err := collect(ctx, r.Engine, storage.CollectionMembers, &doc.Users); err != nil {
		return nil, err
	}
	if err := collect(ctx, r.Engine, storage.CollectionInvitations, &doc.Invites); err != nil {
		return nil, err
	}
	if err := collect(ctx, r.Engine, storage.CollectionMessages, &doc.Messages); err != nil {
		return nil, err
	}
	if err := collect(ctx, r.Engine, storage.CollectionNotices, &doc.Notices); err != nil {
		return nil, err
	}
	if err := collect(ctx, r.Engine, storage.CollectionPasswordRequests, &doc.PasswordRequests); err != nil {
		return nil, err
	}
	if err := collect(ctx, r.Engine, storage.CollectionBanAppeals, &doc.BanAppeals); err != nil {
		return nil, err
	}
	return doc, nil
}

func collect[T any](ctx context.Context, engine storage.Engine, collection string, out *[]*T) error {
	records, err := engine.List(ctx, collection)
	if err != nil {
		return err
	}
	for _, rec := range records {
		item := new(T)
		if err := json.Unmarshal(rec.Data, item); err != nil {
			return err
		}
		*out = append(*out, item)
	}
	return nil
}

// Import 整库替换：清空业务集合后写入文档内容，随后重建登录名索引、
// 审核队列占位索引和计数器。导入不是增量合并，文档里没有的记录导入后
// 也不存在。导入期间并发读取可能看到半新半旧的库——这是管理员专用的
// 停机操作，调用方应确保此时没有在线流量。
func (r *BackupRepository) Import(ctx context.Context, doc *BackupDocument) error {
	r.importMu.Lock()
	defer r.importMu.Unlock()

	collections := []string{
		storage.CollectionMembers,
		storage.CollectionInvitations,
		storage.CollectionMessages,
		storage.CollectionNotices,
		storage.CollectionPasswordRequests,
		storage.CollectionBanAppeals,
		storage.CollectionLogins,
		storage.CollectionCounters,
		storage.CollectionPending,
	}
	for _, collection := range collections {
		if err := r.wipe(ctx, collection); err != nil {
			return err
		}
	}

	for _, u := range doc.Users {
		if err := r.put(ctx, storage.CollectionMembers, u.ID, u); err != nil {
			return err
		}
		if !u.IsDeleted {
			if err := r.put(ctx, storage.CollectionLogins, loginKey(u.Username), loginIndex{UserID: u.ID}); err != nil {
				return err
			}
		}
	}
	for _, inv := range doc.Invites {
		if err := r.put(ctx, storage.CollectionInvitations, inv.ID, inv); err != nil {
			return err
		}
	}
	maxSeq := int64(0)
	for _, m := range doc.Messages {
		if m.Seq > maxSeq {
			maxSeq = m.Seq
		}
		if err := r.put(ctx, storage.CollectionMessages, m.ID, m); err != nil {
			return err
		}
	}
	for _, n := range doc.Notices {
		if err := r.put(ctx, storage.CollectionNotices, n.ID, n); err != nil {
			return err
		}
	}
	for _, req := range doc.PasswordRequests {
		if err := r.put(ctx, storage.CollectionPasswordRequests, req.ID, req); err != nil {
			return err
		}
		if req.Status == model.StatusPending {
			key := pendingKey(storage.CollectionPasswordRequests, req.Username)
			if err := r.put(ctx, storage.CollectionPending, key, pendingIndex{RequestID: req.ID}); err != nil {
				return err
			}
		}
	}
	for _, a := range doc.BanAppeals {
		if err := r.put(ctx, storage.CollectionBanAppeals, a.ID, a); err != nil {
			return err
		}
		if a.Status == model.StatusPending {
			key := pendingKey(storage.CollectionBanAppeals, a.Username)
			if err := r.put(ctx, storage.CollectionPending, key, pendingIndex{RequestID: a.ID}); err != nil {
				return err
			}
		}
	}

	return r.reseedCounters(ctx, doc.Users, maxSeq)
}

func (r *BackupRepository) wipe(ctx context.Context, collection string) error {
	records, err := r.Engine.List(ctx, collection)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if err := r.Engine.Delete(ctx, collection, rec.Key); err != nil {
			return err
		}
	}
	return nil
}

func (r *BackupRepository) put(ctx context.Context, collection, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.Engine.Put(ctx, collection, key, data)
}

// reseedCounters 计数器落在导入数据的最大值上，后续分配从这里继续
func (r *BackupRepository) reseedCounters(ctx context.Context, users []*model.User, maxSeq int64) error {
	maxUID := int64(0)
	for _, u := range users {
		if v, err := strconv.ParseInt(u.UID, 10, 64); err == nil && v > maxUID {
			maxUID = v
		}
	}
	if maxUID > 0 {
		if err := r.put(ctx, storage.CollectionCounters, counterMemberNumber, counter{Value: maxUID}); err != nil {
			return err
		}
	}
	if maxSeq > 0 {
		if err := r.put(ctx, storage.CollectionCounters, counterMessageSeq, counter{Value: maxSeq}); err != nil {
			return err
		}
	}
	return nil
}
