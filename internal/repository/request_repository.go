package repository

import (
	"blackhorse_backend/internal/model"
	"blackhorse_backend/internal/util"
	"blackhorse_backend/pkg/storage"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
)

// RequestRepository 两个独立的审核队列：改密/找回申请与封禁申诉。
// 同一个登录名在每个队列里最多一条 PENDING 记录，由 create-only 的
// 占位索引保证，并发提交只有一个能落库。
type RequestRepository struct {
	Engine storage.Engine
}

func NewRequestRepository(engine storage.Engine) *RequestRepository {
	return &RequestRepository{Engine: engine}
}

// pendingIndex 队列的“该登录名尚有待处理记录”占位索引
type pendingIndex struct {
	RequestID string `json:"requestId"`
}

// pendingKey 索引键：队列集合名 + 小写登录名
func pendingKey(collection, username string) string {
	return collection + "/" + strings.ToLower(username)
}

// ---- 改密/找回申请 ----

func (r *RequestRepository) CreatePasswordRequest(ctx context.Context, req *model.PasswordRequest) error {
	return r.createPending(ctx, storage.CollectionPasswordRequests, req.ID, req.Username, req)
}

func (r *RequestRepository) ListPasswordRequests(ctx context.Context) ([]*model.PasswordRequest, error) {
	records, err := r.Engine.List(ctx, storage.CollectionPasswordRequests)
	if err != nil {
		return nil, err
	}
	reqs := make([]*model.PasswordRequest, 0, len(records))
	for _, rec := range records {
		var req model.PasswordRequest
		if err := json.Unmarshal(rec.Data, &req); err != nil {
			return nil, err
		}
		reqs = append(reqs, &req)
	}
	sort.Slice(reqs, func(i, j int) bool {
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
	return reqs, nil
}

func (r *RequestRepository) GetPasswordRequest(ctx context.Context, id string) (*model.PasswordRequest, error) {
	rec, err := r.Engine.Get(ctx, storage.CollectionPasswordRequests, id)
	if err != nil {
		return nil, err
	}
	var req model.PasswordRequest
	if err := json.Unmarshal(rec.Data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// ResolvePasswordRequest PENDING→RESOLVED，单向。已处理或不存在都按无操作处理。
func (r *RequestRepository) ResolvePasswordRequest(ctx context.Context, id string) error {
	return r.resolve(ctx, storage.CollectionPasswordRequests, id, func(data []byte) ([]byte, string, bool, error) {
		var req model.PasswordRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, "", false, err
		}
		if req.Status == model.StatusResolved {
			return nil, "", false, nil
		}
		req.Status = model.StatusResolved
		out, err := json.Marshal(&req)
		return out, req.Username, true, err
	})
}

func (r *RequestRepository) DeletePasswordRequest(ctx context.Context, id string) error {
	return r.deletePending(ctx, storage.CollectionPasswordRequests, id, func(data []byte) (string, bool, error) {
		var req model.PasswordRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return "", false, err
		}
		return req.Username, req.Status == model.StatusPending, nil
	})
}

// ---- 封禁申诉 ----

func (r *RequestRepository) CreateBanAppeal(ctx context.Context, appeal *model.BanAppeal) error {
	return r.createPending(ctx, storage.CollectionBanAppeals, appeal.ID, appeal.Username, appeal)
}

func (r *RequestRepository) ListBanAppeals(ctx context.Context) ([]*model.BanAppeal, error) {
	records, err := r.Engine.List(ctx, storage.CollectionBanAppeals)
	if err != nil {
		return nil, err
	}
	appeals := make([]*model.BanAppeal, 0, len(records))
	for _, rec := range records {
		var a model.BanAppeal
		if err := json.Unmarshal(rec.Data, &a); err != nil {
			return nil, err
		}
		appeals = append(appeals, &a)
	}
	sort.Slice(appeals, func(i, j int) bool {
		return appeals[i].CreatedAt.After(appeals[j].CreatedAt)
	})
	return appeals, nil
}

func (r *RequestRepository) ResolveBanAppeal(ctx context.Context, id string) error {
	return r.resolve(ctx, storage.CollectionBanAppeals, id, func(data []byte) ([]byte, string, bool, error) {
		var a model.BanAppeal
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, "", false, err
		}
		if a.Status == model.StatusResolved {
			return nil, "", false, nil
		}
		a.Status = model.StatusResolved
		out, err := json.Marshal(&a)
		return out, a.Username, true, err
	})
}

func (r *RequestRepository) DeleteBanAppeal(ctx context.Context, id string) error {
	return r.deletePending(ctx, storage.CollectionBanAppeals, id, func(data []byte) (string, bool, error) {
		var a model.BanAppeal
		if err := json.Unmarshal(data, &a); err != nil {
			return "", false, err
		}
		return a.Username, a.Status == model.StatusPending, nil
	})
}

// createPending 占位索引和记录本体在同一事务里 create-only 写入。
// 索引已存在说明该登录名还有待处理记录，事务整体回滚。
func (r *RequestRepository) createPending(ctx context.Context, collection, id, username string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	idxData, _ := json.Marshal(pendingIndex{RequestID: id})
	err = r.Engine.Transact(ctx, []storage.Op{
		{
			Kind:            storage.OpPut,
			Collection:      storage.CollectionPending,
			Key:             pendingKey(collection, username),
			Data:            idxData,
			ExpectedVersion: storage.VersionNone,
		},
		{
			Kind:            storage.OpPut,
			Collection:      collection,
			Key:             id,
			Data:            data,
			ExpectedVersion: storage.VersionNone,
		},
	})
	if errors.Is(err, storage.ErrAborted) {
		return util.ErrDuplicatePending
	}
	return err
}

// resolve 状态翻转和占位索引释放在同一事务里完成
func (r *RequestRepository) resolve(ctx context.Context, collection, id string, mutate func([]byte) ([]byte, string, bool, error)) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		rec, err := r.Engine.Get(ctx, collection, id)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		data, username, changed, err := mutate(rec.Data)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		err = r.Engine.Transact(ctx, []storage.Op{
			{Kind: storage.OpPut, Collection: collection, Key: id, Data: data, ExpectedVersion: rec.Version},
			{Kind: storage.OpDelete, Collection: storage.CollectionPending, Key: pendingKey(collection, username), ExpectedVersion: storage.VersionAny},
		})
		if errors.Is(err, storage.ErrAborted) {
			continue
		}
		return err
	}
	return util.ErrStorageBusy
}

// deletePending 删除记录。记录仍是 PENDING 时连占位索引一起删；
// 已处理记录的索引早已释放，登录名可能已被新的申请占用，不能动。
func (r *RequestRepository) deletePending(ctx context.Context, collection, id string, decode func([]byte) (string, bool, error)) error {
	rec, err := r.Engine.Get(ctx, collection, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	username, pending, err := decode(rec.Data)
	if err != nil {
		return err
	}
	if !pending {
		return r.Engine.Delete(ctx, collection, id)
	}
	return r.Engine.Transact(ctx, []storage.Op{
		{Kind: storage.OpDelete, Collection: collection, Key: id, ExpectedVersion: storage.VersionAny},
		{Kind: storage.OpDelete, Collection: storage.CollectionPending, Key: pendingKey(collection, username), ExpectedVersion: storage.VersionAny},
	})
}
