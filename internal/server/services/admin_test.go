package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/learnhub/internal/common"
	"github.com/dmitrijs2005/learnhub/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTestAdmin(t *testing.T, env *testEnv) *Principal {
	t.Helper()
	created, err := SeedAdmin(context.Background(), nil, env.tx, memManager{s: env.store},
		AdminSeed{Email: "root@example.com", FullName: "Root", Password: "Root@12345"}, env.clock.Now)
	require.NoError(t, err)
	require.True(t, created)

	u := env.store.userByEmail("root@example.com")
	return &Principal{UserID: u.ID, Email: u.Email, Role: u.Role}
}

func TestAdmin_ChangeRole(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	admin := seedTestAdmin(t, env)
	id := env.registerVerified(t, "vic@example.com", "Secret@123")

	u, err := env.admin.ChangeRole(ctx, admin, id, models.RoleInstructor)
	require.NoError(t, err)
	assert.Equal(t, models.RoleInstructor, u.Role)
	assert.Equal(t, models.RoleInstructor, env.store.user(id).Role)

	_, err = env.admin.ChangeRole(ctx, admin, id, models.RoleInstructor)
	requireServiceError(t, err, KindConflict, common.ErrorAlreadyExists)

	_, err = env.admin.ChangeRole(ctx, admin, id, models.Role("Owner"))
	requireServiceError(t, err, KindValidation, common.ErrorValidation)

	_, err = env.admin.ChangeRole(ctx, admin, "missing", models.RoleAdmin)
	requireServiceError(t, err, KindNotFound, common.ErrorNotFound)

	history, err := env.admin.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, ActionChangeRole, history[0].Action)
	assert.Equal(t, admin.UserID, history[0].AdminID)
	assert.Equal(t, "RegularUser -> Instructor", history[0].Details)
}

func TestAdmin_ProtectedUserIsUntouchable(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	admin := seedTestAdmin(t, env)

	_, err := env.admin.ChangeRole(ctx, admin, admin.UserID, models.RoleRegularUser)
	requireServiceError(t, err, KindForbidden, common.ErrSystemProtectedUser)

	_, err = env.admin.Delete(ctx, admin, admin.UserID)
	requireServiceError(t, err, KindForbidden, common.ErrSystemProtectedUser)

	_, err = env.admin.Disable(ctx, admin, admin.UserID)
	requireServiceError(t, err, KindForbidden, common.ErrSystemProtectedUser)

	assert.Empty(t, env.store.actions)
}

func TestAdmin_DeleteEndsSessionsAndRestore(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	admin := seedTestAdmin(t, env)
	id := env.registerVerified(t, "wes@example.com", "Secret@123")

	s, err := env.svc.Signin(ctx, "wes@example.com", "Secret@123")
	require.NoError(t, err)

	_, err = env.admin.Delete(ctx, admin, id)
	require.NoError(t, err)
	assert.True(t, env.store.user(id).IsDeleted)

	_, err = env.admin.Delete(ctx, admin, id)
	requireServiceError(t, err, KindConflict, common.ErrAccountDeleted)

	_, err = env.svc.Refresh(ctx, s.RefreshToken)
	requireServiceError(t, err, KindUnauthorized, common.ErrRefreshTokenRevoked)
	_, err = env.svc.Authenticate(ctx, s.AccessToken)
	requireServiceError(t, err, KindUnauthorized, common.ErrInvalidToken)

	_, err = env.svc.Signin(ctx, "wes@example.com", "Secret@123")
	requireServiceError(t, err, KindAuthentication, common.ErrAccountDeleted)

	_, err = env.admin.Restore(ctx, admin, id)
	require.NoError(t, err)
	_, err = env.admin.Restore(ctx, admin, id)
	requireServiceError(t, err, KindConflict, common.ErrorValidation)

	_, err = env.svc.Signin(ctx, "wes@example.com", "Secret@123")
	require.NoError(t, err)

	history, err := env.admin.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, ActionRestore, history[0].Action)
	assert.Equal(t, ActionDelete, history[1].Action)
	assert.Equal(t, "revoked 1 refresh tokens", history[1].Details)
}

func TestAdmin_DisableEnable(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	admin := seedTestAdmin(t, env)
	id := env.registerVerified(t, "xia@example.com", "Secret@123")

	_, err := env.admin.Disable(ctx, admin, id)
	require.NoError(t, err)
	_, err = env.admin.Disable(ctx, admin, id)
	requireServiceError(t, err, KindConflict, common.ErrAccountInactive)

	_, err = env.svc.Signin(ctx, "xia@example.com", "Secret@123")
	requireServiceError(t, err, KindAuthentication, common.ErrAccountInactive)

	_, err = env.admin.Enable(ctx, admin, id)
	require.NoError(t, err)
	_, err = env.admin.Enable(ctx, admin, id)
	requireServiceError(t, err, KindConflict, common.ErrorValidation)

	_, err = env.svc.Signin(ctx, "xia@example.com", "Secret@123")
	require.NoError(t, err)
}

func TestAdmin_EnableRequiresVerification(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	admin := seedTestAdmin(t, env)

	_, err := env.svc.Signup(ctx, SignupInput{Email: "yan@example.com", Password: "Secret@123", ConfirmPassword: "Secret@123"})
	require.NoError(t, err)
	yan := env.store.userByEmail("yan@example.com")

	_, err = env.admin.Enable(ctx, admin, yan.ID)
	requireServiceError(t, err, KindConflict, common.ErrNotVerified)
	assert.False(t, env.store.user(yan.ID).IsActive)
}

func TestAdmin_SearchAndGet(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	seedTestAdmin(t, env)
	id := env.registerVerified(t, "zoe@school.example", "Secret@123")

	_, err := env.admin.Search(ctx, "  ")
	requireServiceError(t, err, KindValidation, common.ErrorValidation)

	_, err = env.admin.Search(ctx, "nobody")
	requireServiceError(t, err, KindNotFound, common.ErrorNotFound)

	found, err := env.admin.Search(ctx, "SCHOOL")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, id, found[0].ID)

	u, err := env.admin.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "zoe@school.example", u.Email)

	_, err = env.admin.Get(ctx, "missing")
	requireServiceError(t, err, KindNotFound, common.ErrorNotFound)
}

func TestAdmin_MalformedIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	admin := seedTestAdmin(t, env)

	for _, id := range []string{"abc", "", "1; DROP TABLE users"} {
		_, err := env.admin.Get(ctx, id)
		requireServiceError(t, err, KindNotFound, common.ErrorNotFound)

		_, err = env.admin.History(ctx, id)
		requireServiceError(t, err, KindNotFound, common.ErrorNotFound)

		_, err = env.admin.Disable(ctx, admin, id)
		requireServiceError(t, err, KindNotFound, common.ErrorNotFound)
	}

	_, err := env.admin.Get(ctx, "6f1c2a8e-4b3d-4e5f-9a0b-1c2d3e4f5a6b")
	requireServiceError(t, err, KindNotFound, common.ErrorNotFound)
	assert.Empty(t, env.store.actions)
}
