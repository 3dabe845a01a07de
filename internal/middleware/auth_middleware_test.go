package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go-retail-core/internal/model"
	"go-retail-core/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct {
	service.AuthService
	staff *model.Staff
	err   error
}

func (s stubAuth) Authenticate(string) (*model.Staff, error) { return s.staff, s.err }

func newApp(auth service.AuthService, guard fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/", RequireAuth(auth), guard, func(c *fiber.Ctx) error {
		actor, _ := ActorFrom(c)
		return c.SendString(actor.Name)
	})
	return app
}

func call(t *testing.T, app *fiber.App, header string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestRequireAuth(t *testing.T) {
	staff := &model.Staff{FullName: "Till One", Privileges: []model.Privilege{{Code: model.PrivPOSSell}}}
	staff.ID = uuid.New()
	allow := func(c *fiber.Ctx) error { return c.Next() }

	ok := newApp(stubAuth{staff: staff}, allow)
	assert.Equal(t, http.StatusOK, call(t, ok, "Bearer abc"))
	assert.Equal(t, http.StatusUnauthorized, call(t, ok, ""))
	assert.Equal(t, http.StatusUnauthorized, call(t, ok, "Token abc"))

	replaced := newApp(stubAuth{err: service.ErrSessionReplaced}, allow)
	assert.Equal(t, http.StatusUnauthorized, call(t, replaced, "Bearer abc"))
}

func TestRequirePrivilege(t *testing.T) {
	staff := &model.Staff{FullName: "Till One", Privileges: []model.Privilege{{Code: model.PrivPOSSell}}}
	staff.ID = uuid.New()
	auth := stubAuth{staff: staff}

	assert.Equal(t, http.StatusOK, call(t, newApp(auth, RequirePrivilege(model.PrivPOSSell)), "Bearer x"))
	assert.Equal(t, http.StatusForbidden, call(t, newApp(auth, RequirePrivilege(model.PrivSaleRefund)), "Bearer x"))
	assert.Equal(t, http.StatusOK, call(t, newApp(auth, RequireAnyPrivilege(model.PrivSaleRefund, model.PrivPOSSell)), "Bearer x"))
	assert.Equal(t, http.StatusForbidden, call(t, newApp(auth, RequireAnyPrivilege(model.PrivStockAdjust)), "Bearer x"))
}

func TestWithActor(t *testing.T) {
	app := fiber.New()
	app.Get("/", WithActor(model.Actor{ID: "system", Name: "Storefront"}), func(c *fiber.Ctx) error {
		actor, ok := ActorFrom(c)
		require.True(t, ok)
		return c.SendString(actor.ID)
	})
	assert.Equal(t, http.StatusOK, call(t, app, ""))
}
