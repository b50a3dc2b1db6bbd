package routes

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadigross/userbase/internal/config"
	"github.com/nadigross/userbase/internal/database/dbtest"
	"github.com/nadigross/userbase/internal/handlers"
	"github.com/nadigross/userbase/internal/logging"
	"github.com/nadigross/userbase/internal/repository"
	"github.com/nadigross/userbase/internal/services"
)

type testAPI struct {
	app  *fiber.App
	logs *bytes.Buffer
}

func newTestAPI(t *testing.T, production bool) *testAPI {
	t.Helper()

	appEnv := "test"
	if production {
		appEnv = "production"
	}
	cfg := &config.Config{CORSOrigins: "*", AppEnv: appEnv}

	logs := &bytes.Buffer{}
	log := slog.New(logging.NewJSONHandler(logs, "debug"))

	db := dbtest.New(t)
	userService := services.NewUserService(repository.NewGormUserRepository(db))

	app := NewApp(cfg, log)
	Setup(app,
		handlers.NewUserHandler(userService),
		handlers.NewHealthHandler(services.NewHealthService(db, userService)),
	)
	return &testAPI{app: app, logs: logs}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (a *testAPI) signupAnn(t *testing.T) map[string]any {
	t.Helper()
	status, body := a.do(t, http.MethodPost, "/v1/users/signup", map[string]any{
		"email": "a@x.com", "username": "ann", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, status, body)
	return body
}

func TestSignup(t *testing.T) {
	api := newTestAPI(t, false)

	body := api.signupAnn(t)

	assert.NotZero(t, body["id"])
	assert.Equal(t, "a@x.com", body["email"])
	assert.Equal(t, "ann", body["username"])
	assert.Equal(t, true, body["isActive"])
	assert.Equal(t, body["createdAt"], body["updatedAt"])
	assert.NotContains(t, body, "password")
}

func TestSignup_DuplicateEmail(t *testing.T) {
	api := newTestAPI(t, false)
	api.signupAnn(t)

	status, body := api.do(t, http.MethodPost, "/v1/users/signup", map[string]any{
		"email": "a@x.com", "username": "annie", "password": "secret2",
	})

	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, false, body["success"])
}

func TestSignup_ValidationErrors(t *testing.T) {
	api := newTestAPI(t, false)

	status, body := api.do(t, http.MethodPost, "/v1/users/signup", map[string]any{
		"email": "nope", "username": "ann",
	})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Validation failed", body["message"])

	errs, ok := body["errors"].([]any)
	require.True(t, ok, body)
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.(map[string]any)["field"].(string))
	}
	assert.ElementsMatch(t, []string{"email", "password"}, fields)
}

func TestSignup_MalformedBody(t *testing.T) {
	api := newTestAPI(t, false)

	req := httptest.NewRequest(http.MethodPost, "/v1/users/signup", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := api.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t, false)
	created := api.signupAnn(t)

	status, body := api.do(t, http.MethodPost, "/v1/users/login", map[string]any{
		"username": "ann", "password": "secret1",
	})

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, created["id"], body["id"])
	assert.NotContains(t, body, "password")
}

func TestLogin_SameAnswerForWrongPasswordAndUnknownUser(t *testing.T) {
	api := newTestAPI(t, false)
	api.signupAnn(t)

	wrongStatus, wrongBody := api.do(t, http.MethodPost, "/v1/users/login", map[string]any{
		"username": "ann", "password": "wrong",
	})
	unknownStatus, unknownBody := api.do(t, http.MethodPost, "/v1/users/login", map[string]any{
		"username": "nobody", "password": "secret1",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongStatus)
	assert.Equal(t, http.StatusUnauthorized, unknownStatus)
	assert.Equal(t, wrongBody, unknownBody)
	assert.Equal(t, "Invalid username or password", wrongBody["message"])
}

func TestLogin_Validation(t *testing.T) {
	api := newTestAPI(t, false)

	status, body := api.do(t, http.MethodPost, "/v1/users/login", map[string]any{"username": "an"})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, body["errors"])
}

func TestGetUser(t *testing.T) {
	api := newTestAPI(t, false)
	created := api.signupAnn(t)

	status, body := api.do(t, http.MethodGet, "/v1/users/1", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, created["id"], body["id"])
	assert.NotContains(t, body, "password")
}

func TestGetUser_NotFound(t *testing.T) {
	api := newTestAPI(t, false)

	status, body := api.do(t, http.MethodGet, "/v1/users/999999", nil)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "User not found.", body["message"])
}

func TestGetUser_InvalidID(t *testing.T) {
	api := newTestAPI(t, false)

	status, body := api.do(t, http.MethodGet, "/v1/users/abc", nil)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid user ID", body["message"])
	assert.Equal(t, false, body["success"])
}

func TestUpdateUser(t *testing.T) {
	api := newTestAPI(t, false)
	created := api.signupAnn(t)

	status, body := api.do(t, http.MethodPut, "/v1/users/1", map[string]any{
		"username":  "annie",
		"isActive":  false,
		"id":        77,
		"createdAt": "2000-01-01T00:00:00Z",
	})

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, created["id"], body["id"])
	assert.Equal(t, created["createdAt"], body["createdAt"])
	assert.Equal(t, "annie", body["username"])
	assert.Equal(t, false, body["isActive"])
	assert.NotEqual(t, created["updatedAt"], body["updatedAt"])
}

func TestUpdateUser_EmptyBodyIsRead(t *testing.T) {
	api := newTestAPI(t, false)
	created := api.signupAnn(t)

	status, body := api.do(t, http.MethodPut, "/v1/users/1", map[string]any{})

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, created["updatedAt"], body["updatedAt"])
}

func TestUpdateUser_MissingBodyIsRead(t *testing.T) {
	for _, contentType := range []string{"", "application/json"} {
		t.Run("content-type="+contentType, func(t *testing.T) {
			api := newTestAPI(t, false)
			created := api.signupAnn(t)

			req := httptest.NewRequest(http.MethodPut, "/v1/users/1", nil)
			if contentType != "" {
				req.Header.Set("Content-Type", contentType)
			}
			resp, err := api.app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, http.StatusOK, resp.StatusCode)
			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, created["id"], body["id"])
			assert.Equal(t, "ann", body["username"])
			assert.Equal(t, created["updatedAt"], body["updatedAt"])
		})
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	api := newTestAPI(t, false)

	status, body := api.do(t, http.MethodPut, "/v1/users/999999", map[string]any{"username": "ghost"})

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "User not found.", body["message"])
}

func TestUpdateUser_DuplicateEmail(t *testing.T) {
	api := newTestAPI(t, false)
	api.signupAnn(t)
	status, _ := api.do(t, http.MethodPost, "/v1/users/signup", map[string]any{
		"email": "b@x.com", "username": "bob", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, status)

	status, _ = api.do(t, http.MethodPut, "/v1/users/2", map[string]any{"email": "a@x.com"})
	assert.Equal(t, http.StatusConflict, status)
}

func TestDeleteUser(t *testing.T) {
	api := newTestAPI(t, false)
	api.signupAnn(t)

	status, body := api.do(t, http.MethodDelete, "/v1/users/1", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "User deleted.", body["message"])

	status, _ = api.do(t, http.MethodGet, "/v1/users/1", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = api.do(t, http.MethodDelete, "/v1/users/1", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "User not found.", body["message"])
}

func TestListUsers(t *testing.T) {
	api := newTestAPI(t, false)
	for _, name := range []string{"ann", "bob", "cat"} {
		status, _ := api.do(t, http.MethodPost, "/v1/users/signup", map[string]any{
			"email": name + "@x.com", "username": name, "password": "secret1",
		})
		require.Equal(t, http.StatusOK, status)
	}

	status, body := api.do(t, http.MethodGet, "/v1/users?limit=2&offset=1", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["total"])
	assert.EqualValues(t, 2, body["limit"])
	assert.EqualValues(t, 1, body["offset"])

	users := body["users"].([]any)
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[0].(map[string]any)["username"])
	assert.NotContains(t, users[0], "password")
}

func TestListUsers_ClampsLimit(t *testing.T) {
	api := newTestAPI(t, false)

	status, body := api.do(t, http.MethodGet, "/v1/users?limit=5000&offset=-3", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 100, body["limit"])
	assert.EqualValues(t, 0, body["offset"])
	assert.Empty(t, body["users"])
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, false)
	api.signupAnn(t)

	status, body := api.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["users"])
}

func TestRequestLogging_RedactsPassword(t *testing.T) {
	api := newTestAPI(t, false)
	api.signupAnn(t)

	logs := api.logs.String()
	assert.Contains(t, logs, `"method":"POST"`)
	assert.Contains(t, logs, `"path":"/v1/users/signup"`)
	assert.Contains(t, logs, `"username":"ann"`)
	assert.Contains(t, logs, `"password":"[REDACTED]"`)
	assert.NotContains(t, logs, "secret1")
	assert.Contains(t, logs, `"status":200`)
}

func TestSecurityHeaders(t *testing.T) {
	api := newTestAPI(t, false)

	resp, err := api.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestErrorHandler_InternalErrors(t *testing.T) {
	for _, production := range []bool{false, true} {
		api := newTestAPI(t, production)
		api.app.Get("/boom", func(c *fiber.Ctx) error {
			return errors.New("db exploded")
		})

		status, body := api.do(t, http.MethodGet, "/boom", nil)

		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Internal server error", body["message"])
		if production {
			assert.NotContains(t, body, "detail")
		} else {
			assert.Equal(t, "db exploded", body["detail"])
		}
		assert.Contains(t, api.logs.String(), "unhandled server error")
	}
}

func TestErrorHandler_RecoversPanics(t *testing.T) {
	api := newTestAPI(t, true)
	api.app.Get("/panic", func(c *fiber.Ctx) error {
		panic("kaboom")
	})

	status, body := api.do(t, http.MethodGet, "/panic", nil)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Internal server error", body["message"])
}

func TestUnknownRoute(t *testing.T) {
	api := newTestAPI(t, false)

	status, body := api.do(t, http.MethodGet, "/v2/nothing", nil)

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["success"])
}
