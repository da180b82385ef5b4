package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *MemoryEngine {
	t.Helper()
	e, err := NewMemoryEngine("")
	require.NoError(t, err)
	return e
}

func TestMemoryEngine_PutAndGet(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.Put(ctx, CollectionMembers, "a", []byte(`{"v":1}`)))

	rec, err := e.Get(ctx, CollectionMembers, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Version)
	assert.JSONEq(t, `{"v":1}`, string(rec.Data))

	require.NoError(t, e.Put(ctx, CollectionMembers, "a", []byte(`{"v":2}`)))
	rec, err = e.Get(ctx, CollectionMembers, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Version)
}

func TestMemoryEngine_GetMissing(t *testing.T) {
	e := newEngine(t)
	_, err := e.Get(context.Background(), CollectionMembers, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryEngine_PutIfVersion(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	// create-only
	require.NoError(t, e.PutIfVersion(ctx, CollectionMembers, "a", []byte(`1`), VersionNone))
	assert.ErrorIs(t, e.PutIfVersion(ctx, CollectionMembers, "a", []byte(`1`), VersionNone), ErrVersionConflict)

	// 版本匹配才允许写
	require.NoError(t, e.PutIfVersion(ctx, CollectionMembers, "a", []byte(`2`), 1))
	assert.ErrorIs(t, e.PutIfVersion(ctx, CollectionMembers, "a", []byte(`3`), 1), ErrVersionConflict)

	// VersionAny 总是成功
	require.NoError(t, e.PutIfVersion(ctx, CollectionMembers, "a", []byte(`4`), VersionAny))

	rec, err := e.Get(ctx, CollectionMembers, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.Version)
	assert.Equal(t, []byte(`4`), rec.Data)
}

func TestMemoryEngine_ConcurrentPutIfVersion_OneWinner(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	require.NoError(t, e.Put(ctx, CollectionMembers, "a", []byte(`0`)))

	const workers = 32
	var wg sync.WaitGroup
	wins := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if e.PutIfVersion(ctx, CollectionMembers, "a", []byte(`x`), 1) == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count, "exactly one conditional write may succeed")
}

func TestMemoryEngine_TransactAtomicity(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	require.NoError(t, e.Put(ctx, CollectionMembers, "a", []byte(`1`)))

	// 第二个操作版本不匹配，第一个也不能落库
	err := e.Transact(ctx, []Op{
		{Kind: OpPut, Collection: CollectionMembers, Key: "a", Data: []byte(`2`), ExpectedVersion: 1},
		{Kind: OpPut, Collection: CollectionMembers, Key: "b", Data: []byte(`1`), ExpectedVersion: 99},
	})
	assert.ErrorIs(t, err, ErrAborted)

	rec, err := e.Get(ctx, CollectionMembers, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte(`1`), rec.Data)
	_, err = e.Get(ctx, CollectionMembers, "b")
	assert.ErrorIs(t, err, ErrNotFound)

	// 全部满足时一起提交
	require.NoError(t, e.Transact(ctx, []Op{
		{Kind: OpPut, Collection: CollectionMembers, Key: "a", Data: []byte(`2`), ExpectedVersion: 1},
		{Kind: OpPut, Collection: CollectionMembers, Key: "b", Data: []byte(`1`), ExpectedVersion: VersionNone},
		{Kind: OpDelete, Collection: CollectionLogins, Key: "ghost"},
	}))
	rec, err = e.Get(ctx, CollectionMembers, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Version)
}

func TestMemoryEngine_Delete(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	require.NoError(t, e.Put(ctx, CollectionMembers, "a", []byte(`1`)))
	require.NoError(t, e.Delete(ctx, CollectionMembers, "a"))
	_, err := e.Get(ctx, CollectionMembers, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	// 删除不存在的记录不是错误
	assert.NoError(t, e.Delete(ctx, CollectionMembers, "a"))
}

func TestMemoryEngine_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snap.json")

	e1, err := NewMemoryEngine(path)
	require.NoError(t, err)
	require.NoError(t, e1.Put(ctx, CollectionMembers, "a", []byte(`{"v":1}`)))
	require.NoError(t, e1.Put(ctx, CollectionMembers, "a", []byte(`{"v":2}`)))
	require.NoError(t, e1.Put(ctx, CollectionNotices, "n", []byte(`{}`)))

	// 重新打开同一个快照文件，数据和版本都要在
	e2, err := NewMemoryEngine(path)
	require.NoError(t, err)
	rec, err := e2.Get(ctx, CollectionMembers, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Version)
	assert.JSONEq(t, `{"v":2}`, string(rec.Data))

	records, err := e2.List(ctx, CollectionNotices)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMemoryEngine_ReadIsolation(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	require.NoError(t, e.Put(ctx, CollectionMembers, "a", []byte(`abc`)))

	rec, err := e.Get(ctx, CollectionMembers, "a")
	require.NoError(t, err)
	rec.Data[0] = 'z'

	again, err := e.Get(ctx, CollectionMembers, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte(`abc`), again.Data, "callers must not be able to mutate stored data")
}
