package service

import (
	"blackhorse_backend/internal/model"
	"blackhorse_backend/internal/repository"
	"blackhorse_backend/internal/util"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newModerationEnv(t *testing.T) (*testEnv, *ModerationService) {
	t.Helper()
	env := newTestEnv(t)
	requestRepo := repository.NewRequestRepository(env.engine)
	return env, NewModerationService(requestRepo, env.userRepo)
}

func TestModerationService_PasswordRequestFlow(t *testing.T) {
	env, svc := newModerationEnv(t)
	ctx := context.Background()

	req, err := svc.SubmitPasswordRequest(ctx, PasswordRequestInput{
		Username:    "Anna",
		RequestType: model.PasswordReset,
		NewPassword: "brand-new",
		ContactInfo: "wx_anna",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, req.Status)

	// 同名第二条待审申请被拒绝
	_, err = svc.SubmitPasswordRequest(ctx, PasswordRequestInput{
		Username: "Anna", RequestType: model.PasswordRetrieve, ContactInfo: "wx_anna",
	})
	assert.ErrorIs(t, err, util.ErrDuplicatePending)

	// 批准：新凭据先生效，申请再归档
	require.NoError(t, svc.ApprovePasswordRequest(ctx, req.ID))

	_, _, err = env.auth.Login(ctx, "Anna", "brand-new")
	assert.NoError(t, err)
	_, _, err = env.auth.Login(ctx, "Anna", "123")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	reqs, err := svc.ListPasswordRequests(ctx)
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, model.StatusResolved, reqs[0].Status)

	// 重复批准：已归档，无操作
	assert.NoError(t, svc.ApprovePasswordRequest(ctx, req.ID))
}

func TestModerationService_RetrieveUsesDefaultPassword(t *testing.T) {
	env, svc := newModerationEnv(t)
	ctx := context.Background()

	req, err := svc.SubmitPasswordRequest(ctx, PasswordRequestInput{
		Username:    "David",
		RequestType: model.PasswordRetrieve,
		ContactInfo: "13800000000",
	})
	require.NoError(t, err)
	require.NoError(t, svc.ApprovePasswordRequest(ctx, req.ID))

	_, _, err = env.auth.Login(ctx, "David", util.DefaultResetPassword)
	assert.NoError(t, err)
}

func TestModerationService_SubmitForUnknownUser(t *testing.T) {
	_, svc := newModerationEnv(t)
	ctx := context.Background()

	_, err := svc.SubmitPasswordRequest(ctx, PasswordRequestInput{
		Username: "Nobody", RequestType: model.PasswordReset, ContactInfo: "x",
	})
	assert.ErrorIs(t, err, util.ErrUserNotFound)

	_, err = svc.SubmitBanAppeal(ctx, BanAppealInput{Username: "Nobody", ContactInfo: "x"})
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestModerationService_BanAppealFlow(t *testing.T) {
	env, svc := newModerationEnv(t)
	ctx := context.Background()

	anna, err := env.userRepo.FindByUsername(ctx, "Anna")
	require.NoError(t, err)

	appeal, err := svc.SubmitBanAppeal(ctx, BanAppealInput{Username: "Anna", ContactInfo: "wx_anna"})
	require.NoError(t, err)
	assert.Equal(t, anna.ID, appeal.UserID)

	_, err = svc.SubmitBanAppeal(ctx, BanAppealInput{Username: "Anna", ContactInfo: "wx_anna"})
	assert.ErrorIs(t, err, util.ErrDuplicatePending)

	require.NoError(t, svc.ResolveBanAppeal(ctx, appeal.ID))
	appeals, err := svc.ListBanAppeals(ctx)
	require.NoError(t, err)
	require.Len(t, appeals, 1)
	assert.Equal(t, model.StatusResolved, appeals[0].Status)

	// 归档后可以再次申诉
	_, err = svc.SubmitBanAppeal(ctx, BanAppealInput{Username: "Anna", ContactInfo: "wx_anna"})
	assert.NoError(t, err)
}
