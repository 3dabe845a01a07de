package service

import (
	"testing"
	"time"

	"go-retail-core/internal/model"
	"go-retail-core/internal/repository"
	"go-retail-core/internal/testutil"
	"go-retail-core/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuth(t *testing.T, idle time.Duration) AuthService {
	t.Helper()
	db := testutil.NewDB(t)
	privileges := repository.NewPrivilegeRepo(db)
	require.NoError(t, privileges.SeedDefaults())

	auth := NewAuthService(repository.NewStaffRepo(db), privileges, jwt.NewManager("test-secret", time.Hour), nil, idle)
	require.NoError(t, auth.EnsureManager("Boss@Example.com", "secret123", "Boss"))
	return auth
}

func TestEnsureManagerRunsOnce(t *testing.T) {
	auth := newAuth(t, 0)
	require.NoError(t, auth.EnsureManager("other@example.com", "secret123", "Other"))

	_, err := auth.Login("other@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	resp, err := auth.Login("boss@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, model.RoleManager, resp.Staff.RoleCode)
	assert.Len(t, resp.Privileges, len(model.DefaultPrivileges))
}

func TestLoginReplacesEarlierSession(t *testing.T) {
	auth := newAuth(t, 0)

	first, err := auth.Login("boss@example.com", "secret123")
	require.NoError(t, err)
	staff, err := auth.Authenticate(first.Token)
	require.NoError(t, err)
	assert.Equal(t, "Boss", staff.AsActor().Name)

	second, err := auth.Login("boss@example.com", "secret123")
	require.NoError(t, err)

	_, err = auth.Authenticate(first.Token)
	assert.ErrorIs(t, err, ErrSessionReplaced)
	_, err = auth.Authenticate(second.Token)
	assert.NoError(t, err)

	_, err = auth.Login("boss@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Authenticate("not-a-token")
	assert.Error(t, err)
}

func TestChangePasswordLogsOut(t *testing.T) {
	auth := newAuth(t, 0)
	resp, err := auth.Login("boss@example.com", "secret123")
	require.NoError(t, err)

	assert.ErrorIs(t, auth.ChangePassword(resp.Staff.ID, "nope", "newsecret"), ErrWrongPassword)
	require.NoError(t, auth.ChangePassword(resp.Staff.ID, "secret123", "newsecret"))

	_, err = auth.Authenticate(resp.Token)
	assert.ErrorIs(t, err, ErrSessionReplaced)
	_, err = auth.Login("boss@example.com", "newsecret")
	assert.NoError(t, err)
}

func TestIdleSessionExpires(t *testing.T) {
	auth := newAuth(t, 50*time.Millisecond)
	resp, err := auth.Login("boss@example.com", "secret123")
	require.NoError(t, err)

	_, err = auth.Authenticate(resp.Token)
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	_, err = auth.Authenticate(resp.Token)
	assert.ErrorIs(t, err, ErrSessionTimeout)

	// A heartbeat keeps the session alive.
	require.NoError(t, auth.Heartbeat(resp.Staff.ID))
	_, err = auth.Authenticate(resp.Token)
	assert.NoError(t, err)
}

func TestCreateStaff(t *testing.T) {
	auth := newAuth(t, 0)
	boss := model.Actor{ID: "boss"}

	cashier, err := auth.CreateStaff(CreateStaffRequest{
		Email: "Till@Example.com", Password: "till123", FullName: "Till One", RoleCode: model.RoleCashier,
	}, boss)
	require.NoError(t, err)
	assert.Equal(t, "till@example.com", cashier.Email)
	assert.ElementsMatch(t, model.CashierPrivileges, cashier.Privileges)

	_, err = auth.CreateStaff(CreateStaffRequest{
		Email: "till@example.com", Password: "till123", FullName: "Again", RoleCode: model.RoleCashier,
	}, boss)
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = auth.CreateStaff(CreateStaffRequest{
		Email: "x@example.com", Password: "till123", FullName: "X", RoleCode: "OWNER",
	}, boss)
	assert.ErrorIs(t, err, ErrValidation)

	resp, err := auth.Login("till@example.com", "till123")
	require.NoError(t, err)
	assert.ElementsMatch(t, model.CashierPrivileges, resp.Privileges)
}
