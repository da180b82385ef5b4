package repository

import (
	"blackhorse_backend/internal/model"
	"blackhorse_backend/internal/util"
	"blackhorse_backend/pkg/storage"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequestRepo(t *testing.T) *RequestRepository {
	t.Helper()
	engine, err := storage.NewMemoryEngine("")
	require.NoError(t, err)
	return NewRequestRepository(engine)
}

func passwordRequest(username string) *model.PasswordRequest {
	return &model.PasswordRequest{
		ID:          uuid.New().String(),
		Username:    username,
		RequestType: model.PasswordReset,
		NewPassword: "newpass",
		ContactInfo: "wx_" + username,
		Status:      model.StatusPending,
		CreatedAt:   time.Now(),
	}
}

func TestRequestRepository_DuplicatePending(t *testing.T) {
	repo := newRequestRepo(t)
	ctx := context.Background()

	first := passwordRequest("Anna")
	require.NoError(t, repo.CreatePasswordRequest(ctx, first))

	// 同一登录名的第二条待审申请被拒绝
	err := repo.CreatePasswordRequest(ctx, passwordRequest("Anna"))
	assert.ErrorIs(t, err, util.ErrDuplicatePending)

	// 其他登录名不受影响
	require.NoError(t, repo.CreatePasswordRequest(ctx, passwordRequest("David")))

	// 处理掉第一条后同名可以再次提交
	require.NoError(t, repo.ResolvePasswordRequest(ctx, first.ID))
	require.NoError(t, repo.CreatePasswordRequest(ctx, passwordRequest("Anna")))
}

func TestRequestRepository_ConcurrentSubmitSameName(t *testing.T) {
	repo := newRequestRepo(t)
	ctx := context.Background()

	// 同一登录名并发提交，占位索引保证只有一条能落库
	const racers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	var succeeded int32
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := repo.CreatePasswordRequest(ctx, passwordRequest("Anna"))
			if err == nil {
				atomic.AddInt32(&succeeded, 1)
			} else {
				assert.ErrorIs(t, err, util.ErrDuplicatePending)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), succeeded)
	reqs, err := repo.ListPasswordRequests(ctx)
	require.NoError(t, err)
	require.Len(t, reqs, 1, "exactly one pending request may commit")
	assert.Equal(t, model.StatusPending, reqs[0].Status)
}

func TestRequestRepository_DeleteFreesName(t *testing.T) {
	repo := newRequestRepo(t)
	ctx := context.Background()

	req := passwordRequest("Anna")
	require.NoError(t, repo.CreatePasswordRequest(ctx, req))

	// 大小写不同也算同一登录名
	assert.ErrorIs(t, repo.CreatePasswordRequest(ctx, passwordRequest("anna")), util.ErrDuplicatePending)

	// 删除待审记录后同名可以再次提交
	require.NoError(t, repo.DeletePasswordRequest(ctx, req.ID))
	second := passwordRequest("Anna")
	require.NoError(t, repo.CreatePasswordRequest(ctx, second))

	// 删除已处理的记录不影响之后提交的同名申请
	require.NoError(t, repo.ResolvePasswordRequest(ctx, second.ID))
	third := passwordRequest("Anna")
	require.NoError(t, repo.CreatePasswordRequest(ctx, third))
	require.NoError(t, repo.DeletePasswordRequest(ctx, second.ID))
	assert.ErrorIs(t, repo.CreatePasswordRequest(ctx, passwordRequest("Anna")), util.ErrDuplicatePending)
}

func TestRequestRepository_ResolveOneWay(t *testing.T) {
	repo := newRequestRepo(t)
	ctx := context.Background()

	req := passwordRequest("Anna")
	require.NoError(t, repo.CreatePasswordRequest(ctx, req))

	require.NoError(t, repo.ResolvePasswordRequest(ctx, req.ID))
	got, err := repo.GetPasswordRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, got.Status)

	// 重复处理和处理不存在的记录都是无操作
	require.NoError(t, repo.ResolvePasswordRequest(ctx, req.ID))
	require.NoError(t, repo.ResolvePasswordRequest(ctx, "ghost"))
}

func TestRequestRepository_BanAppeals(t *testing.T) {
	repo := newRequestRepo(t)
	ctx := context.Background()

	appeal := &model.BanAppeal{
		ID:          uuid.New().String(),
		Username:    "Anna",
		UserID:      "u1",
		ContactInfo: "wx_anna",
		Status:      model.StatusPending,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, repo.CreateBanAppeal(ctx, appeal))

	dup := &model.BanAppeal{ID: uuid.New().String(), Username: "Anna", Status: model.StatusPending, CreatedAt: time.Now()}
	assert.ErrorIs(t, repo.CreateBanAppeal(ctx, dup), util.ErrDuplicatePending)

	require.NoError(t, repo.ResolveBanAppeal(ctx, appeal.ID))
	appeals, err := repo.ListBanAppeals(ctx)
	require.NoError(t, err)
	require.Len(t, appeals, 1)
	assert.Equal(t, model.StatusResolved, appeals[0].Status)

	require.NoError(t, repo.DeleteBanAppeal(ctx, appeal.ID))
	appeals, err = repo.ListBanAppeals(ctx)
	require.NoError(t, err)
	assert.Empty(t, appeals)
}

func TestRequestRepository_ListOrder(t *testing.T) {
	repo := newRequestRepo(t)
	ctx := context.Background()

	old := passwordRequest("Anna")
	old.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, repo.CreatePasswordRequest(ctx, old))

	fresh := passwordRequest("David")
	require.NoError(t, repo.CreatePasswordRequest(ctx, fresh))

	reqs, err := repo.ListPasswordRequests(ctx)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "David", reqs[0].Username, "newest first")
}
