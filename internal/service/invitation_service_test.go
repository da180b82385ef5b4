package service

import (
	"blackhorse_backend/internal/repository"
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvitationService_Generate(t *testing.T) {
	env := newTestEnv(t)
	svc := NewInvitationService(repository.NewInvitationRepository(env.engine))
	ctx := context.Background()

	pattern := regexp.MustCompile(`^BH-[A-Z0-9]{6}$`)
	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		invite, err := svc.Generate(ctx)
		require.NoError(t, err)
		assert.Regexp(t, pattern, invite.Code)
		assert.False(t, invite.IsUsed)
		seen[invite.Code] = true
	}
	assert.Greater(t, len(seen), 1, "codes should not all collide")

	// 种子码 + 10 个新码
	invites, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, invites, 11)
}

func TestInvitationService_ValidateAndDelete(t *testing.T) {
	env := newTestEnv(t)
	svc := NewInvitationService(repository.NewInvitationRepository(env.engine))
	ctx := context.Background()

	invite, err := svc.Generate(ctx)
	require.NoError(t, err)

	valid, err := svc.Validate(ctx, invite.Code)
	require.NoError(t, err)
	assert.True(t, valid)

	require.NoError(t, svc.Delete(ctx, invite.ID))
	valid, err = svc.Validate(ctx, invite.Code)
	require.NoError(t, err)
	assert.False(t, valid)
}
