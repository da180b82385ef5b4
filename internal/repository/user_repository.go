package repository

import (
	"blackhorse_backend/internal/model"
	"blackhorse_backend/internal/util"
	"blackhorse_backend/pkg/monitoring"
	"blackhorse_backend/pkg/storage"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// maxRetries 乐观写冲突的重试上限，超过后对外返回 ErrStorageBusy
const maxRetries = 5

const (
	counterMemberNumber = "member-number"
	counterMessageSeq   = "message-seq"
)

type UserRepository struct {
	Engine storage.Engine
	Redis  *redis.Client
}

func NewUserRepository(engine storage.Engine, rdb *redis.Client) *UserRepository {
	return &UserRepository{Engine: engine, Redis: rdb}
}

// loginIndex 登录名唯一索引记录，key 为小写登录名
type loginIndex struct {
	UserID string `json:"userId"`
}

type counter struct {
	Value int64 `json:"value"`
}

func loginKey(username string) string {
	return strings.ToLower(username)
}

func decodeUser(rec storage.Record) (*model.User, int64, error) {
	var u model.User
	if err := json.Unmarshal(rec.Data, &u); err != nil {
		return nil, 0, err
	}
	return &u, rec.Version, nil
}

// FindByID 软删除的会员对所有查找不可见
func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	rec, err := r.Engine.Get(ctx, storage.CollectionMembers, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, util.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u, _, err := decodeUser(rec)
	if err != nil {
		return nil, err
	}
	if u.IsDeleted {
		return nil, util.ErrUserNotFound
	}
	return u, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	rec, err := r.Engine.Get(ctx, storage.CollectionLogins, loginKey(username))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, util.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	var idx loginIndex
	if err := json.Unmarshal(rec.Data, &idx); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, idx.UserID)
}

func (r *UserRepository) List(ctx context.Context) ([]*model.User, error) {
	records, err := r.Engine.List(ctx, storage.CollectionMembers)
	if err != nil {
		return nil, err
	}
	users := make([]*model.User, 0, len(records))
	for _, rec := range records {
		u, _, err := decodeUser(rec)
		if err != nil {
			return nil, err
		}
		if u.IsDeleted {
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

// AllocateUID 分配下一个会员号。计数器记录是唯一的串行化点：
// 并发调用各自 PutIfVersion，失败方重读重试，保证号码不重复。
func (r *UserRepository) AllocateUID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		rec, err := r.Engine.Get(ctx, storage.CollectionCounters, counterMemberNumber)
		if errors.Is(err, storage.ErrNotFound) {
			// 计数器不存在，用现有会员号的最大值做底
			next, seedErr := r.seedMemberCounter(ctx)
			if seedErr == nil {
				return strconv.FormatInt(next, 10), nil
			}
			if errors.Is(seedErr, storage.ErrVersionConflict) {
				continue
			}
			return "", seedErr
		}
		if err != nil {
			return "", err
		}

		var c counter
		if err := json.Unmarshal(rec.Data, &c); err != nil {
			return "", err
		}
		c.Value++
		data, _ := json.Marshal(c)
		err = r.Engine.PutIfVersion(ctx, storage.CollectionCounters, counterMemberNumber, data, rec.Version)
		if errors.Is(err, storage.ErrVersionConflict) {
			monitoring.WriteConflicts.WithLabelValues(storage.CollectionCounters).Inc()
			continue
		}
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(c.Value, 10), nil
	}
	return "", util.ErrStorageBusy
}

func (r *UserRepository) seedMemberCounter(ctx context.Context) (int64, error) {
	max := int64(util.UIDFloor)
	records, err := r.Engine.List(ctx, storage.CollectionMembers)
	if err != nil {
		return 0, err
	}
	for _, rec := range records {
		u, _, err := decodeUser(rec)
		if err != nil {
			continue
		}
		if v, perr := strconv.ParseInt(u.UID, 10, 64); perr == nil && v > max {
			max = v
		}
	}
	next := max + 1
	data, _ := json.Marshal(counter{Value: next})
	err = r.Engine.PutIfVersion(ctx, storage.CollectionCounters, counterMemberNumber, data, storage.VersionNone)
	if err != nil {
		return 0, err
	}
	return next, nil
}

// NextMessageSeq 发放消息插入序号
func (r *UserRepository) NextMessageSeq(ctx context.Context) (int64, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		rec, err := r.Engine.Get(ctx, storage.CollectionCounters, counterMessageSeq)
		if errors.Is(err, storage.ErrNotFound) {
			data, _ := json.Marshal(counter{Value: 1})
			err = r.Engine.PutIfVersion(ctx, storage.CollectionCounters, counterMessageSeq, data, storage.VersionNone)
			if errors.Is(err, storage.ErrVersionConflict) {
				continue
			}
			if err != nil {
				return 0, err
			}
			return 1, nil
		}
		if err != nil {
			return 0, err
		}
		var c counter
		if err := json.Unmarshal(rec.Data, &c); err != nil {
			return 0, err
		}
		c.Value++
		data, _ := json.Marshal(c)
		err = r.Engine.PutIfVersion(ctx, storage.CollectionCounters, counterMessageSeq, data, rec.Version)
		if errors.Is(err, storage.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return 0, err
		}
		return c.Value, nil
	}
	return 0, util.ErrStorageBusy
}

// Create 在一个事务里写入会员记录、登录名索引和调用方附加的操作
// （注册时是邀请码的版本化更新）。任何一项版本期望不满足都整体回滚。
func (r *UserRepository) Create(ctx context.Context, user *model.User, extra ...storage.Op) error {
	userData, err := json.Marshal(user)
	if err != nil {
		return err
	}
	idxData, _ := json.Marshal(loginIndex{UserID: user.ID})

	ops := []storage.Op{
		{
			Kind:            storage.OpPut,
			Collection:      storage.CollectionLogins,
			Key:             loginKey(user.Username),
			Data:            idxData,
			ExpectedVersion: storage.VersionNone,
		},
		{
			Kind:            storage.OpPut,
			Collection:      storage.CollectionMembers,
			Key:             user.ID,
			Data:            userData,
			ExpectedVersion: storage.VersionNone,
		},
	}
	ops = append(ops, extra...)
	return r.Engine.Transact(ctx, ops)
}

// Update 单记录乐观写：读-改-条件写，冲突时有界重试。
// mutate 返回错误时原样透传，不计入重试。
func (r *UserRepository) Update(ctx context.Context, id string, mutate func(*model.User) error) (*model.User, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		rec, err := r.Engine.Get(ctx, storage.CollectionMembers, id)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, util.ErrUserNotFound
		}
		if err != nil {
			return nil, err
		}
		u, version, err := decodeUser(rec)
		if err != nil {
			return nil, err
		}
		if u.IsDeleted {
			return nil, util.ErrUserNotFound
		}
		if err := mutate(u); err != nil {
			return nil, err
		}
		data, err := json.Marshal(u)
		if err != nil {
			return nil, err
		}
		err = r.Engine.PutIfVersion(ctx, storage.CollectionMembers, id, data, version)
		if errors.Is(err, storage.ErrVersionConflict) {
			monitoring.WriteConflicts.WithLabelValues(storage.CollectionMembers).Inc()
			continue
		}
		if err != nil {
			return nil, err
		}
		return u, nil
	}
	return nil, util.ErrStorageBusy
}

// Heartbeat 更新最后活跃时间。会员不存在时静默返回，不算错误。
func (r *UserRepository) Heartbeat(ctx context.Context, id string) error {
	_, err := r.Update(ctx, id, func(u *model.User) error {
		u.LastActiveAt = time.Now()
		return nil
	})
	if errors.Is(err, util.ErrUserNotFound) {
		return nil
	}
	return err
}

// AcceptFriend 双向好友写入：两条会员记录在一个事务里以各自的
// 版本期望提交，绝不出现只有单边成立的中间态。
func (r *UserRepository) AcceptFriend(ctx context.Context, ownerID, requesterID string) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		ownerRec, err := r.Engine.Get(ctx, storage.CollectionMembers, ownerID)
		if errors.Is(err, storage.ErrNotFound) {
			return util.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		reqRec, err := r.Engine.Get(ctx, storage.CollectionMembers, requesterID)
		if errors.Is(err, storage.ErrNotFound) {
			return util.ErrUserNotFound
		}
		if err != nil {
			return err
		}

		owner, ownerVer, err := decodeUser(ownerRec)
		if err != nil {
			return err
		}
		requester, reqVer, err := decodeUser(reqRec)
		if err != nil {
			return err
		}
		if owner.IsDeleted || requester.IsDeleted {
			return util.ErrUserNotFound
		}

		owner.FriendRequests = remove(owner.FriendRequests, requesterID)
		// 重试时可能已有单侧成立，追加前查重保证可安全重放
		if !owner.HasFriend(requesterID) {
			owner.Friends = append(owner.Friends, requesterID)
		}
		if !requester.HasFriend(ownerID) {
			requester.Friends = append(requester.Friends, ownerID)
		}

		ownerData, _ := json.Marshal(owner)
		reqData, _ := json.Marshal(requester)

		err = r.Engine.Transact(ctx, []storage.Op{
			{Kind: storage.OpPut, Collection: storage.CollectionMembers, Key: ownerID, Data: ownerData, ExpectedVersion: ownerVer},
			{Kind: storage.OpPut, Collection: storage.CollectionMembers, Key: requesterID, Data: reqData, ExpectedVersion: reqVer},
		})
		if errors.Is(err, storage.ErrAborted) {
			monitoring.WriteConflicts.WithLabelValues(storage.CollectionMembers).Inc()
			continue
		}
		if err != nil {
			return err
		}

		r.invalidateFriendCache(ctx, ownerID, requesterID)
		return nil
	}
	return util.ErrStorageBusy
}

// SoftDelete 标记删除并释放登录名索引
func (r *UserRepository) SoftDelete(ctx context.Context, id string) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		rec, err := r.Engine.Get(ctx, storage.CollectionMembers, id)
		if errors.Is(err, storage.ErrNotFound) {
			return util.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		u, version, err := decodeUser(rec)
		if err != nil {
			return err
		}
		if u.IsDeleted {
			return nil
		}
		u.IsDeleted = true
		data, _ := json.Marshal(u)

		err = r.Engine.Transact(ctx, []storage.Op{
			{Kind: storage.OpPut, Collection: storage.CollectionMembers, Key: id, Data: data, ExpectedVersion: version},
			{Kind: storage.OpDelete, Collection: storage.CollectionLogins, Key: loginKey(u.Username), ExpectedVersion: storage.VersionAny},
		})
		if errors.Is(err, storage.ErrAborted) {
			monitoring.WriteConflicts.WithLabelValues(storage.CollectionMembers).Inc()
			continue
		}
		return err
	}
	return util.ErrStorageBusy
}

// FriendIDsCached 好友 ID 列表（带缓存），缓存失效时回源会员记录
func (r *UserRepository) FriendIDsCached(ctx context.Context, userID string) ([]string, error) {
	if r.Redis == nil {
		return r.friendIDs(ctx, userID)
	}

	key := friendCacheKey(userID)
	cached, err := r.Redis.SMembers(ctx, key).Result()
	if err == nil && len(cached) > 0 {
		ids := make([]string, 0, len(cached))
		for _, s := range cached {
			if s != "" && s != "-" {
				ids = append(ids, s)
			}
		}
		return ids, nil
	}

	ids, err := r.friendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		pipe := r.Redis.Pipeline()
		for _, id := range ids {
			pipe.SAdd(ctx, key, id)
		}
		pipe.Expire(ctx, key, 24*time.Hour)
		pipe.Exec(ctx)
	} else {
		// 防止缓存穿透：空集合存占位符，短过期
		r.Redis.SAdd(ctx, key, "-")
		r.Redis.Expire(ctx, key, 5*time.Minute)
	}
	return ids, nil
}

func (r *UserRepository) friendIDs(ctx context.Context, userID string) ([]string, error) {
	u, err := r.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Friends, nil
}

func (r *UserRepository) invalidateFriendCache(ctx context.Context, userIDs ...string) {
	if r.Redis == nil {
		return
	}
	for _, id := range userIDs {
		r.Redis.Del(ctx, friendCacheKey(id))
	}
}

func friendCacheKey(userID string) string {
	return fmt.Sprintf("bhd:relation:friends:%s", userID)
}

func remove(ids []string, target string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
