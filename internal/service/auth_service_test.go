package service

import (
	"blackhorse_backend/internal/config"
	"blackhorse_backend/internal/model"
	"blackhorse_backend/internal/repository"
	"blackhorse_backend/internal/util"
	"blackhorse_backend/pkg/storage"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		JWT:   config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour},
		Admin: config.AdminConfig{ID: "072324", Secret: "072324"},
	}
}

type testEnv struct {
	engine   storage.Engine
	userRepo *repository.UserRepository
	auth     *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	engine, err := storage.NewMemoryEngine("")
	require.NoError(t, err)
	require.NoError(t, repository.Seed(context.Background(), engine))

	userRepo := repository.NewUserRepository(engine, nil)
	inviteRepo := repository.NewInvitationRepository(engine)
	auth := NewAuthService(userRepo, inviteRepo, NewSessionRegistry(), testConfig())
	return &testEnv{engine: engine, userRepo: userRepo, auth: auth}
}

func registerInput(username, code string) RegisterInput {
	return RegisterInput{
		Username:     username,
		Password:     "secret",
		Age:          25,
		ContactType:  model.ContactWechat,
		ContactValue: "wx_" + username,
		InviteCode:   code,
	}
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Register(ctx, registerInput("Frank", util.SeedInviteCode))
	require.NoError(t, err)
	assert.Equal(t, "88004", user.UID)
	assert.Equal(t, "Frank", user.DisplayName)
	assert.Equal(t, util.DefaultBio, user.Bio)

	token, logged, err := env.auth.Login(ctx, "Frank", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, logged.ID)

	_, _, err = env.auth.Login(ctx, "Frank", "wrong")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
	_, _, err = env.auth.Login(ctx, "Nobody", "secret")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
}

func TestAuthService_RegisterConsumesInvite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, registerInput("Frank", util.SeedInviteCode))
	require.NoError(t, err)

	_, err = env.auth.Register(ctx, registerInput("Grace", util.SeedInviteCode))
	assert.ErrorIs(t, err, util.ErrInviteInvalid)

	_, err = env.auth.Register(ctx, registerInput("Grace", "NO-SUCH-CODE"))
	assert.ErrorIs(t, err, util.ErrInviteInvalid)
}

func TestAuthService_RegisterDuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 种子会员占用的登录名（大小写不敏感）
	_, err := env.auth.Register(ctx, registerInput("anna", util.SeedInviteCode))
	assert.ErrorIs(t, err, util.ErrUsernameTaken)
}

func TestAuthService_ConcurrentRegistrationSameCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 两个并发注册抢同一个码，恰好一个成功
	const racers = 2
	var wg sync.WaitGroup
	results := make([]error, racers)
	names := []string{"Frank", "Grace"}
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = env.auth.Register(ctx, registerInput(names[i], util.SeedInviteCode))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, util.ErrInviteInvalid)
		}
	}
	assert.Equal(t, 1, succeeded)

	users, err := env.userRepo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 4, "exactly one registration may commit")
}

func TestAuthService_BanLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Register(ctx, registerInput("Frank", util.SeedInviteCode))
	require.NoError(t, err)
	token, _, err := env.auth.Login(ctx, "Frank", "secret")
	require.NoError(t, err)

	claims, err := util.ParseJWT(token, env.auth.Cfg.JWT.Secret)
	require.NoError(t, err)
	resolved, err := env.auth.ResolveSession(ctx, claims)
	require.NoError(t, err)
	require.NotNil(t, resolved)

	// 封禁 60 分钟：现有会话立刻失效，登录报封禁并携带解封时间
	require.NoError(t, env.auth.Ban(ctx, user.ID, time.Hour))

	resolved, err = env.auth.ResolveSession(ctx, claims)
	require.NoError(t, err)
	assert.Nil(t, resolved, "ban revokes live sessions")

	_, _, err = env.auth.Login(ctx, "Frank", "secret")
	var banErr *util.BanError
	require.ErrorAs(t, err, &banErr)
	assert.Equal(t, "Frank", banErr.Username)
	assert.WithinDuration(t, time.Now().Add(time.Hour), banErr.ExpiresAt, 5*time.Second)

	// 封禁到期（直接把到期时间拨到过去）后登录恢复，标记被惰性清除
	expired := time.Now().Add(-time.Minute)
	_, err = env.userRepo.Update(ctx, user.ID, func(u *model.User) error {
		u.BanExpiresAt = &expired
		return nil
	})
	require.NoError(t, err)

	_, logged, err := env.auth.Login(ctx, "Frank", "secret")
	require.NoError(t, err)
	assert.False(t, logged.IsBanned)
	assert.Nil(t, logged.BanExpiresAt)
}

func TestAuthService_ResolveSessionReportsActiveBan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Register(ctx, registerInput("Frank", util.SeedInviteCode))
	require.NoError(t, err)
	token, _, err := env.auth.Login(ctx, "Frank", "secret")
	require.NoError(t, err)
	claims, err := util.ParseJWT(token, env.auth.Cfg.JWT.Secret)
	require.NoError(t, err)

	// 绕过封禁流程直接写入标记（比如整库导入带来的封禁），会话还在
	until := time.Now().Add(time.Hour)
	_, err = env.userRepo.Update(ctx, user.ID, func(u *model.User) error {
		u.IsBanned = true
		u.BanExpiresAt = &until
		return nil
	})
	require.NoError(t, err)

	// 第一个请求拿到结构化封禁详情，同时会话被吊销
	resolved, err := env.auth.ResolveSession(ctx, claims)
	assert.Nil(t, resolved)
	var banErr *util.BanError
	require.ErrorAs(t, err, &banErr)
	assert.Equal(t, "Frank", banErr.Username)
	assert.Equal(t, until.Unix(), banErr.ExpiresAt.Unix())

	// 之后的请求只剩被吊销的会话
	resolved, err = env.auth.ResolveSession(ctx, claims)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestAuthService_Unban(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Register(ctx, registerInput("Frank", util.SeedInviteCode))
	require.NoError(t, err)
	require.NoError(t, env.auth.Ban(ctx, user.ID, time.Hour))
	require.NoError(t, env.auth.Unban(ctx, user.ID))

	_, _, err = env.auth.Login(ctx, "Frank", "secret")
	assert.NoError(t, err)
}

func TestAuthService_LogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.auth.Register(ctx, registerInput("Frank", util.SeedInviteCode))
	require.NoError(t, err)
	token, _, err := env.auth.Login(ctx, "Frank", "secret")
	require.NoError(t, err)
	claims, err := util.ParseJWT(token, env.auth.Cfg.JWT.Secret)
	require.NoError(t, err)

	env.auth.Logout(claims.SessionID)

	resolved, err := env.auth.ResolveSession(ctx, claims)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestAuthService_AdminLogin(t *testing.T) {
	env := newTestEnv(t)

	token, err := env.auth.AdminLogin("072324", "072324")
	require.NoError(t, err)
	claims, err := util.ParseJWT(token, env.auth.Cfg.JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, util.RoleAdmin, claims.Role)
	assert.True(t, env.auth.ResolveAdminSession(claims))

	_, err = env.auth.AdminLogin("072324", "wrong")
	assert.True(t, errors.Is(err, util.ErrInvalidCredentials))
}

func TestAuthService_Heartbeat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.auth.Register(ctx, registerInput("Frank", util.SeedInviteCode))
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, env.auth.Heartbeat(ctx, user.ID))

	got, err := env.userRepo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.LastActiveAt.After(user.LastActiveAt))
	assert.True(t, got.IsOnline(time.Now()))

	assert.NoError(t, env.auth.Heartbeat(ctx, "ghost"))
}
