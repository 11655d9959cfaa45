package echoapi_test

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textmine/backend/core/user"
	testutil "github.com/textmine/backend/tests"
)

func Test_roleGates(t *testing.T) {
	env, app := newApp()
	admin := getToken(t, env, testutil.CreateUser(t, env.Repos.Users, "Admin", "admin@example.com", "", user.RoleAdmin, true))
	mod := getToken(t, env, testutil.CreateUser(t, env.Repos.Users, "Mod", "mod@example.com", "", user.RoleModerator, true))
	miner := getToken(t, env, testutil.CreateUser(t, env.Repos.Users, "Miner", "miner@example.com", "", user.RoleMiner, true))

	adminRequired := marshalObj(t, httpErr{Error: "admin role required"})
	modRequired := marshalObj(t, httpErr{Error: "moderator role required"})
	minerRequired := marshalObj(t, httpErr{Error: "miner role required"})
	empty := marshalList(t)

	runHTTPTests(t, app, []httpTest{
		{name: "admin: no token", path: "/v1/admin/users", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "admin: miner", path: "/v1/admin/users", token: miner, wantCode: http.StatusForbidden, wantData: adminRequired},
		{name: "admin: moderator", path: "/v1/admin/texts", token: mod, wantCode: http.StatusForbidden, wantData: adminRequired},
		{name: "admin: admin", path: "/v1/admin/moderated-texts", token: admin, wantCode: http.StatusOK, wantData: empty},

		{name: "moderator: no token", path: "/v1/moderator/classrooms", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "moderator: miner", path: "/v1/moderator/classrooms", token: miner, wantCode: http.StatusForbidden, wantData: modRequired},
		{name: "moderator: moderator", path: "/v1/moderator/classrooms", token: mod, wantCode: http.StatusOK, wantData: empty},
		{name: "moderator: admin", path: "/v1/moderator/classrooms", token: admin, wantCode: http.StatusOK, wantData: empty},

		{name: "miner: moderator", path: "/v1/miner/classrooms", token: mod, wantCode: http.StatusForbidden, wantData: minerRequired},
		{name: "miner: admin", path: "/v1/miner/classrooms", token: admin, wantCode: http.StatusForbidden, wantData: minerRequired},
		{name: "miner: miner", path: "/v1/miner/classrooms", token: miner, wantCode: http.StatusOK, wantData: empty},
		{name: "miner: default tasks", path: "/v1/miner/tasks", token: miner, wantCode: http.StatusOK, wantData: empty},

		{name: "notifications: no token", path: "/v1/notifications", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "notifications: moderator", path: "/v1/notifications", token: mod, wantCode: http.StatusOK, wantData: empty},
		{name: "notifications: bad read flag", path: "/v1/notifications?read=bogus", token: mod, wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"read": "must be a boolean"})},
		{name: "admin: bad is_active flag", path: "/v1/admin/users?is_active=lol", token: admin, wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"is_active": "must be a boolean"})},
	})
}

func Test_adminApi_users(t *testing.T) {
	env, app := newApp()
	now := time.Now()
	adminUsr := testutil.CreateUser(t, env.Repos.Users, "Admin", "admin@example.com", "", user.RoleAdmin, true, now.Add(-3*time.Hour))
	mod := testutil.CreateUser(t, env.Repos.Users, "Mod", "mod@example.com", "", user.RoleModerator, true, now.Add(-2*time.Hour))
	miner := testutil.CreateUser(t, env.Repos.Users, "Miner", "miner@example.com", "", user.RoleMiner, false, now.Add(-time.Hour))
	admin := getToken(t, env, adminUsr)

	path := func(params ...string) string {
		v := make(url.Values)
		for i := 0; i+1 < len(params); i += 2 {
			v.Add(params[i], params[i+1])
		}
		return "/v1/admin/users?" + v.Encode()
	}

	runHTTPTests(t, app, []httpTest{
		{name: "all", path: "/v1/admin/users", token: admin, wantCode: http.StatusOK, wantData: marshalList(t, miner, mod, adminUsr)},
		{name: "search", path: path("search", "MOD"), token: admin, wantCode: http.StatusOK, wantData: marshalList(t, mod)},
		{name: "role", path: path("role", "miner"), token: admin, wantCode: http.StatusOK, wantData: marshalList(t, miner)},
		{name: "is_active", path: path("is_active", "true"), token: admin, wantCode: http.StatusOK, wantData: marshalList(t, mod, adminUsr)},
		{name: "is_active (invalid)", path: path("is_active", "lol"), token: admin, wantCode: http.StatusOK, wantData: marshalList(t)},
		{name: "order by name", path: path("ordering", "name"), token: admin, wantCode: http.StatusOK, wantData: marshalList(t, adminUsr, miner, mod)},
		{name: "order by -email", path: path("ordering", "-email"), token: admin, wantCode: http.StatusOK, wantData: marshalList(t, mod, miner, adminUsr)},
	})

	t.Run("create", func(t *testing.T) {
		body := []byte(`{"name": "Ann", "email": "Ann@Example.com", "role": "moderator", "password": "s3cret-pass", "password_confirm": "s3cret-pass"}`)
		rec := do(app, http.MethodPost, "/v1/admin/users", admin, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var got user.User
		decode(t, rec, &got)
		assert.Equal(t, "ann@example.com", got.Email)
		assert.Equal(t, user.RoleModerator, got.Role)
		assert.True(t, got.IsActive)

		rec = do(app, http.MethodPost, "/v1/admin/users", admin, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var errs map[string]string
		decode(t, rec, &errs)
		assert.Contains(t, errs, "email")

		rec = do(app, http.MethodPost, "/v1/admin/users", admin, []byte(`{"name": "Bo", "email": "bo@example.com", "role": "teacher", "password": "s3cret-pass", "password_confirm": "s3cret-pass"}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("toggle active", func(t *testing.T) {
		rec := do(app, http.MethodPut, "/v1/admin/users/"+miner.ID+"/toggle-active", admin)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got user.User
		decode(t, rec, &got)
		assert.True(t, got.IsActive)

		rec = do(app, http.MethodPut, "/v1/admin/users/"+adminUsr.ID+"/toggle-active", admin)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = do(app, http.MethodPut, "/v1/admin/users/00000000-0000-0000-0000-000000000000/toggle-active", admin)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
