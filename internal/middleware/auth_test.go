package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"lost-found-backend/internal/models"
	"lost-found-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubValidator map[string]services.Caller

func (s stubValidator) Authenticate(ctx context.Context, token string) (services.Caller, error) {
	if token == "db-down" {
		return services.Caller{}, &services.PersistenceError{Op: "get user", Err: errors.New("connection refused")}
	}
	caller, ok := s[token]
	if !ok {
		return services.Caller{}, services.ErrAuthRequired
	}
	return caller, nil
}

var tokens = stubValidator{
	"student-token": {ID: "student-1", Role: models.RoleStudent},
	"admin-token":   {ID: "admin-1", Role: models.RoleAdmin},
}

func echoCaller(w http.ResponseWriter, r *http.Request) {
	caller := GetCaller(r.Context())
	w.Header().Set("X-Caller", caller.ID)
	w.Header().Set("X-Role", string(caller.Role))
	w.WriteHeader(http.StatusOK)
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["error"]
}

func TestAuthMiddleware(t *testing.T) {
	handler := AuthMiddleware(tokens)(http.HandlerFunc(echoCaller))

	tests := []struct {
		name       string
		prepare    func(r *http.Request)
		wantStatus int
		wantCaller string
		wantError  string
	}{
		{
			name:       "bearer header",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer student-token") },
			wantStatus: http.StatusOK,
			wantCaller: "student-1",
		},
		{
			name:       "cookie",
			prepare:    func(r *http.Request) { r.AddCookie(&http.Cookie{Name: TokenCookie, Value: "admin-token"}) },
			wantStatus: http.StatusOK,
			wantCaller: "admin-1",
		},
		{
			name: "header wins over cookie",
			prepare: func(r *http.Request) {
				r.Header.Set("Authorization", "Bearer student-token")
				r.AddCookie(&http.Cookie{Name: TokenCookie, Value: "admin-token"})
			},
			wantStatus: http.StatusOK,
			wantCaller: "student-1",
		},
		{
			name:       "missing token",
			prepare:    func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Please log in first",
		},
		{
			name:       "malformed header",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "Token student-token") },
			wantStatus: http.StatusUnauthorized,
			wantError:  "Please log in first",
		},
		{
			name:       "lookup failure",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer db-down") },
			wantStatus: http.StatusInternalServerError,
			wantError:  "Server error",
		},
		{
			name:       "invalid token",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer forged") },
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, errorBody(t, rec))
				return
			}
			assert.Equal(t, tt.wantCaller, rec.Header().Get("X-Caller"))
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	handler := AuthMiddleware(tokens)(RequireAdmin(http.HandlerFunc(echoCaller)))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer student-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Admin access required", errorBody(t, rec))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, string(models.RoleAdmin), rec.Header().Get("X-Role"))
}

func TestGetCallerAnonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, services.Caller{}, GetCaller(req.Context()))
	assert.Empty(t, GetUserID(req.Context()))
}
