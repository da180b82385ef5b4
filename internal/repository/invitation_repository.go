package repository

import (
	"blackhorse_backend/internal/model"
	"blackhorse_backend/pkg/storage"
	"context"
	"encoding/json"
	"errors"
	"sort"
)

type InvitationRepository struct {
	Engine storage.Engine
}

func NewInvitationRepository(engine storage.Engine) *InvitationRepository {
	return &InvitationRepository{Engine: engine}
}

func (r *InvitationRepository) Create(ctx context.Context, invite *model.InvitationCode) error {
	data, err := json.Marshal(invite)
	if err != nil {
		return err
	}
	return r.Engine.PutIfVersion(ctx, storage.CollectionInvitations, invite.ID, data, storage.VersionNone)
}

func (r *InvitationRepository) List(ctx context.Context) ([]*model.InvitationCode, error) {
	records, err := r.Engine.List(ctx, storage.CollectionInvitations)
	if err != nil {
		return nil, err
	}
	invites := make([]*model.InvitationCode, 0, len(records))
	for _, rec := range records {
		var inv model.InvitationCode
		if err := json.Unmarshal(rec.Data, &inv); err != nil {
			return nil, err
		}
		invites = append(invites, &inv)
	}
	sort.Slice(invites, func(i, j int) bool {
		return invites[i].CreatedAt.After(invites[j].CreatedAt)
	})
	return invites, nil
}

// FindByCode 返回邀请码和它当前的存储版本，供兑换时做条件写
func (r *InvitationRepository) FindByCode(ctx context.Context, code string) (*model.InvitationCode, int64, error) {
	records, err := r.Engine.List(ctx, storage.CollectionInvitations)
	if err != nil {
		return nil, 0, err
	}
	for _, rec := range records {
		var inv model.InvitationCode
		if err := json.Unmarshal(rec.Data, &inv); err != nil {
			return nil, 0, err
		}
		if inv.Code == code {
			return &inv, rec.Version, nil
		}
	}
	return nil, 0, storage.ErrNotFound
}

// RedeemOp 构造把邀请码标记为已用的事务操作。版本期望取读取时的
// 版本，两个并发注册最多一个能提交。
func (r *InvitationRepository) RedeemOp(invite *model.InvitationCode, version int64, usedBy string) (storage.Op, error) {
	redeemed := *invite
	redeemed.IsUsed = true
	redeemed.UsedBy = usedBy
	data, err := json.Marshal(&redeemed)
	if err != nil {
		return storage.Op{}, err
	}
	return storage.Op{
		Kind:            storage.OpPut,
		Collection:      storage.CollectionInvitations,
		Key:             invite.ID,
		Data:            data,
		ExpectedVersion: version,
	}, nil
}

func (r *InvitationRepository) Delete(ctx context.Context, id string) error {
	return r.Engine.Delete(ctx, storage.CollectionInvitations, id)
}

// Validate 邀请码存在且未被使用
func (r *InvitationRepository) Validate(ctx context.Context, code string) (bool, error) {
	inv, _, err := r.FindByCode(ctx, code)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !inv.IsUsed, nil
}
