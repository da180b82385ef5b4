package storage

import (
	"context"
	"errors"
)

// 逻辑集合名，与导出/导入格式保持一致
const (
	CollectionMembers          = "members"
	CollectionInvitations      = "invitations"
	CollectionMessages         = "messages"
	CollectionNotices          = "notices"
	CollectionPasswordRequests = "password-requests"
	CollectionBanAppeals       = "ban-appeals"
	// 内部簿记集合：登录名唯一索引、序号分配器与审核队列占位索引
	CollectionLogins   = "logins"
	CollectionCounters = "counters"
	CollectionPending  = "pending-index"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict 表示带版本写入时记录已被其他调用方修改
	ErrVersionConflict = errors.New("version conflict")
	// ErrAborted 表示事务因某个操作的版本期望不满足而整体回滚
	ErrAborted = errors.New("transaction aborted")
)

// Record 是存储引擎中的一条版本化文档。Version 从 1 开始，每次写入加 1。
type Record struct {
	Key     string
	Version int64
	Data    []byte
}

// 版本期望的哨兵值
const (
	// VersionAny 无条件写入（upsert）
	VersionAny int64 = -1
	// VersionNone 记录必须不存在（create-only）
	VersionNone int64 = 0
)

type OpKind int

const (
	OpPut OpKind = iota
	OpDelete
)

// Op 是事务中的一个写操作。ExpectedVersion 取 VersionAny、VersionNone
// 或一个具体版本号；不满足时整个事务以 ErrAborted 失败。
type Op struct {
	Kind            OpKind
	Collection      string
	Key             string
	Data            []byte
	ExpectedVersion int64
}

// Engine 是核心组件与存储后端之间的唯一契约。实现必须保证：
// PutIfVersion 在并发写同一记录时至多一个成功；Transact 中的所有
// 操作要么全部提交要么全部不提交。
type Engine interface {
	Get(ctx context.Context, collection, key string) (Record, error)
	List(ctx context.Context, collection string) ([]Record, error)
	Put(ctx context.Context, collection, key string, data []byte) error
	PutIfVersion(ctx context.Context, collection, key string, data []byte, expectedVersion int64) error
	Transact(ctx context.Context, ops []Op) error
	Delete(ctx context.Context, collection, key string) error
}
