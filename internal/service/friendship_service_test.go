package service

import (
	"blackhorse_backend/internal/model"
	"blackhorse_backend/internal/util"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFriendshipEnv(t *testing.T) (*testEnv, *FriendshipService, *model.User, *model.User) {
	t.Helper()
	env := newTestEnv(t)
	ctx := context.Background()
	anna, err := env.userRepo.FindByUsername(ctx, "Anna")
	require.NoError(t, err)
	david, err := env.userRepo.FindByUsername(ctx, "David")
	require.NoError(t, err)
	return env, NewFriendshipService(env.userRepo), anna, david
}

func TestFriendshipService_RequestAndAccept(t *testing.T) {
	_, svc, anna, david := newFriendshipEnv(t)
	ctx := context.Background()

	require.NoError(t, svc.SendFriendRequest(ctx, david.ID, anna.ID))

	pending, err := svc.PendingRequests(ctx, anna.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, david.ID, pending[0].ID)

	// 重复申请被拒绝
	assert.ErrorIs(t, svc.SendFriendRequest(ctx, david.ID, anna.ID), util.ErrAlreadyRequested)

	require.NoError(t, svc.AcceptFriendRequest(ctx, anna.ID, david.ID))

	// 对称性：两侧同时可见
	annaFriends, err := svc.Friends(ctx, anna.ID)
	require.NoError(t, err)
	davidFriends, err := svc.Friends(ctx, david.ID)
	require.NoError(t, err)
	require.Len(t, annaFriends, 1)
	require.Len(t, davidFriends, 1)
	assert.Equal(t, david.ID, annaFriends[0].ID)
	assert.Equal(t, anna.ID, davidFriends[0].ID)

	// 已是好友后再申请
	assert.ErrorIs(t, svc.SendFriendRequest(ctx, david.ID, anna.ID), util.ErrAlreadyFriends)
}

func TestFriendshipService_Reject(t *testing.T) {
	_, svc, anna, david := newFriendshipEnv(t)
	ctx := context.Background()

	require.NoError(t, svc.SendFriendRequest(ctx, david.ID, anna.ID))
	require.NoError(t, svc.RejectFriendRequest(ctx, anna.ID, david.ID))

	pending, err := svc.PendingRequests(ctx, anna.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	friends, err := svc.Friends(ctx, anna.ID)
	require.NoError(t, err)
	assert.Empty(t, friends)

	// 拒绝幂等：不存在的申请同样成功
	assert.NoError(t, svc.RejectFriendRequest(ctx, anna.ID, david.ID))
	assert.NoError(t, svc.RejectFriendRequest(ctx, anna.ID, "ghost"))
}

func TestFriendshipService_SendToMissingUser(t *testing.T) {
	_, svc, anna, _ := newFriendshipEnv(t)
	err := svc.SendFriendRequest(context.Background(), anna.ID, "ghost")
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestFriendshipService_Like(t *testing.T) {
	env, svc, anna, _ := newFriendshipEnv(t)
	ctx := context.Background()

	before := anna.Likes
	require.NoError(t, svc.Like(ctx, anna.ID))
	require.NoError(t, svc.Like(ctx, anna.ID))

	got, err := env.userRepo.FindByID(ctx, anna.ID)
	require.NoError(t, err)
	assert.Equal(t, before+2, got.Likes)

	// 目标不存在时静默成功
	assert.NoError(t, svc.Like(ctx, "ghost"))
}

func TestFriendshipService_ConcurrentLikes(t *testing.T) {
	env, svc, anna, _ := newFriendshipEnv(t)
	ctx := context.Background()
	before := anna.Likes

	const likes = 30
	var wg sync.WaitGroup
	for i := 0; i < likes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				err := svc.Like(ctx, anna.ID)
				if err == nil {
					return
				}
				if err != util.ErrStorageBusy {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	got, err := env.userRepo.FindByID(ctx, anna.ID)
	require.NoError(t, err)
	assert.Equal(t, before+likes, got.Likes)
}
