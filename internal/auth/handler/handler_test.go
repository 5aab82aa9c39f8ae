package handler

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"havenlink/internal/auth/service"
	identitystore "havenlink/internal/identity/store/identity"
	"havenlink/internal/jwttoken"
	"havenlink/pkg/testutil"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	identities := identitystore.NewInMemory()
	tokens := jwttoken.NewService("test-signing-key", "havenlink-test")
	svc := service.New(identities, tokens, time.Hour)

	r := chi.NewRouter()
	New(svc, slog.Default()).Register(r)
	return r
}

func TestHandleRegister(t *testing.T) {
	t.Run("successful registration returns the pending identity", func(t *testing.T) {
		r := newTestRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", map[string]string{
			"email":        "Host@Example.com",
			"display_name": "Anna",
			"password":     "a long enough password",
			"role":         "host",
		})

		rr := testutil.DoRequest(r, req)
		testutil.AssertStatus(t, rr, http.StatusCreated)

		resp := testutil.UnmarshalResponse[map[string]string](t, rr)
		assert.Equal(t, "host@example.com", (*resp)["email"])
		assert.Equal(t, "pending", (*resp)["profile_status"])
		assert.NotEmpty(t, (*resp)["id"])
	})

	t.Run("unknown role is rejected before the service runs", func(t *testing.T) {
		r := newTestRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", map[string]string{
			"email":        "user@example.com",
			"display_name": "Anna",
			"password":     "a long enough password",
			"role":         "moderator",
		})

		rr := testutil.DoRequest(r, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rr, "invalid_input")
	})

	t.Run("unknown body fields are rejected", func(t *testing.T) {
		r := newTestRouter(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", map[string]string{
			"email":    "user@example.com",
			"password": "a long enough password",
			"role":     "seeker",
			"admin":    "true",
		})

		rr := testutil.DoRequest(r, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rr, "bad_request")
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		r := newTestRouter(t)
		body := map[string]string{
			"email":        "host@example.com",
			"display_name": "Anna",
			"password":     "a long enough password",
			"role":         "host",
		}
		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", body))
		require.Equal(t, http.StatusCreated, rr.Code)

		rr = testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", body))
		testutil.AssertStatus(t, rr, http.StatusConflict)
		testutil.AssertErrorCode(t, rr, "conflict")
	})
}

func TestHandleLogin(t *testing.T) {
	register := func(t *testing.T, r chi.Router) {
		t.Helper()
		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", map[string]string{
			"email":        "seeker@example.com",
			"display_name": "Olena",
			"password":     "a long enough password",
			"role":         "seeker",
		}))
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	t.Run("valid credentials return a bearer token", func(t *testing.T) {
		r := newTestRouter(t)
		register(t, r)

		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", map[string]string{
			"email":    "seeker@example.com",
			"password": "a long enough password",
		}))
		testutil.AssertStatus(t, rr, http.StatusOK)

		resp := testutil.UnmarshalResponse[loginResponse](t, rr)
		assert.Equal(t, "Bearer", resp.TokenType)
		assert.Equal(t, int64(3600), resp.ExpiresIn)
		assert.NotEmpty(t, resp.AccessToken)
		assert.Equal(t, "seeker@example.com", resp.Identity.Email)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		r := newTestRouter(t)
		register(t, r)

		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", map[string]string{
			"email":    "seeker@example.com",
			"password": "not the password",
		}))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
		testutil.AssertErrorCode(t, rr, "unauthorized")
	})

	t.Run("missing fields are a bad request", func(t *testing.T) {
		r := newTestRouter(t)
		rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", map[string]string{
			"email": "seeker@example.com",
		}))
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rr, "bad_request")
	})
}
