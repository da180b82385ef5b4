package repository

import (
	"blackhorse_backend/internal/model"
	"blackhorse_backend/internal/util"
	"blackhorse_backend/pkg/storage"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserRepo(t *testing.T) *UserRepository {
	t.Helper()
	engine, err := storage.NewMemoryEngine("")
	require.NoError(t, err)
	return NewUserRepository(engine, nil)
}

func mustCreateUser(t *testing.T, repo *UserRepository, username string) *model.User {
	t.Helper()
	ctx := context.Background()
	uid, err := repo.AllocateUID(ctx)
	require.NoError(t, err)
	now := time.Now()
	u := &model.User{
		ID:             uuid.New().String(),
		UID:            uid,
		Username:       username,
		DisplayName:    username,
		Password:       "hash",
		Age:            25,
		ContactType:    model.ContactWechat,
		ContactValue:   "wx_" + username,
		Bio:            util.DefaultBio,
		Photos:         []string{},
		Friends:        []string{},
		FriendRequests: []string{},
		RegisteredAt:   now,
		LastActiveAt:   now,
	}
	require.NoError(t, repo.Create(ctx, u))
	return u
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo := newUserRepo(t)
	ctx := context.Background()
	u := mustCreateUser(t, repo, "Anna")

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Anna", got.Username)

	// 登录名查找不区分大小写
	got, err = repo.FindByUsername(ctx, "aNNa")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestUserRepository_CreateDuplicateUsername(t *testing.T) {
	repo := newUserRepo(t)
	mustCreateUser(t, repo, "Anna")

	dup := &model.User{ID: uuid.New().String(), UID: "99999", Username: "anna"}
	err := repo.Create(context.Background(), dup)
	assert.ErrorIs(t, err, storage.ErrAborted)
}

func TestUserRepository_AllocateUID(t *testing.T) {
	repo := newUserRepo(t)
	ctx := context.Background()

	first, err := repo.AllocateUID(ctx)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d", util.UIDFloor+1), first)

	second, err := repo.AllocateUID(ctx)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d", util.UIDFloor+2), second)
}

func TestUserRepository_AllocateUID_Concurrent(t *testing.T) {
	repo := newUserRepo(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	uids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			uid, err := repo.AllocateUID(ctx)
			if err == nil {
				uids <- uid
			}
		}()
	}
	wg.Wait()
	close(uids)

	seen := make(map[string]bool)
	for uid := range uids {
		assert.False(t, seen[uid], "duplicate member number %s", uid)
		seen[uid] = true
	}
}

func TestUserRepository_Update_ConcurrentLikes(t *testing.T) {
	repo := newUserRepo(t)
	ctx := context.Background()
	u := mustCreateUser(t, repo, "Anna")

	const likes = 50
	var wg sync.WaitGroup
	for i := 0; i < likes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				_, err := repo.Update(ctx, u.ID, func(m *model.User) error {
					m.Likes++
					return nil
				})
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

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, likes, got.Likes, "no like may be lost")
}

func TestUserRepository_AcceptFriend_Symmetric(t *testing.T) {
	repo := newUserRepo(t)
	ctx := context.Background()
	anna := mustCreateUser(t, repo, "Anna")
	david := mustCreateUser(t, repo, "David")

	_, err := repo.Update(ctx, anna.ID, func(u *model.User) error {
		u.FriendRequests = append(u.FriendRequests, david.ID)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, repo.AcceptFriend(ctx, anna.ID, david.ID))

	gotAnna, err := repo.FindByID(ctx, anna.ID)
	require.NoError(t, err)
	gotDavid, err := repo.FindByID(ctx, david.ID)
	require.NoError(t, err)

	assert.True(t, gotAnna.HasFriend(david.ID))
	assert.True(t, gotDavid.HasFriend(anna.ID))
	assert.Empty(t, gotAnna.FriendRequests)

	// 重复接受不产生重复条目
	require.NoError(t, repo.AcceptFriend(ctx, anna.ID, david.ID))
	gotAnna, err = repo.FindByID(ctx, anna.ID)
	require.NoError(t, err)
	assert.Len(t, gotAnna.Friends, 1)
}

func TestUserRepository_SoftDelete(t *testing.T) {
	repo := newUserRepo(t)
	ctx := context.Background()
	u := mustCreateUser(t, repo, "Anna")

	require.NoError(t, repo.SoftDelete(ctx, u.ID))

	_, err := repo.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
	_, err = repo.FindByUsername(ctx, "Anna")
	assert.ErrorIs(t, err, util.ErrUserNotFound)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	// 登录名已释放，可以被新会员重新占用
	again := mustCreateUser(t, repo, "Anna")
	assert.NotEqual(t, u.ID, again.ID)
	assert.NotEqual(t, u.UID, again.UID, "member numbers are never reused")
}

func TestUserRepository_Heartbeat(t *testing.T) {
	repo := newUserRepo(t)
	ctx := context.Background()
	u := mustCreateUser(t, repo, "Anna")

	before, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	require.NoError(t, repo.Heartbeat(ctx, u.ID))
	after, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, after.LastActiveAt.After(before.LastActiveAt))

	// 不存在的会员：无操作而非错误
	assert.NoError(t, repo.Heartbeat(ctx, "ghost"))
}

func TestUserRepository_NextMessageSeq(t *testing.T) {
	repo := newUserRepo(t)
	ctx := context.Background()

	first, err := repo.NextMessageSeq(ctx)
	require.NoError(t, err)
	second, err := repo.NextMessageSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, first+1, second)
}
