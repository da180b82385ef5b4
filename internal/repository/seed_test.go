package repository

import (
	"blackhorse_backend/internal/util"
	"blackhorse_backend/pkg/storage"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeed(t *testing.T) {
	engine, err := storage.NewMemoryEngine("")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, engine))

	userRepo := NewUserRepository(engine, nil)
	users, err := userRepo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)

	anna, err := userRepo.FindByUsername(ctx, "Anna")
	require.NoError(t, err)
	assert.Equal(t, "88001", anna.UID)
	assert.Equal(t, 128, anna.Likes)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(anna.Password), []byte("123")))

	inviteRepo := NewInvitationRepository(engine)
	valid, err := inviteRepo.Validate(ctx, util.SeedInviteCode)
	require.NoError(t, err)
	assert.True(t, valid)

	noticeRepo := NewNoticeRepository(engine)
	notices, err := noticeRepo.List(ctx)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.True(t, notices[0].IsImportant)

	// 种子会员已分配到 88003，下一个号要接着排
	uid, err := userRepo.AllocateUID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "88004", uid)
}

func TestSeed_Idempotent(t *testing.T) {
	engine, err := storage.NewMemoryEngine("")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, engine))
	require.NoError(t, Seed(ctx, engine))

	users, err := NewUserRepository(engine, nil).List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 3)
}
