package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nao1215/storefront/pkg/apperror"
	"github.com/nao1215/storefront/pkg/auth"
)

// TestRequireRoles はRequireRolesミドルウェアを検証する。
func TestRequireRoles(t *testing.T) {
	t.Parallel()

	tokens := newTestTokens(t, time.Now)

	tests := []struct {
		name       string
		tokenRoles []auth.Role
		required   []auth.Role
		wantStatus int
		wantCalled bool
	}{
		{
			name:       "必要なロールを持つ場合は通過すること",
			tokenRoles: []auth.Role{auth.RoleCustomer},
			required:   []auth.Role{auth.RoleCustomer},
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name:       "いずれかのロールが一致すれば通過すること",
			tokenRoles: []auth.Role{auth.RoleAdmin},
			required:   []auth.Role{auth.RoleCustomer, auth.RoleAdmin},
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name:       "adminのみのトークンでcustomer用ルートは403になること",
			tokenRoles: []auth.Role{auth.RoleAdmin},
			required:   []auth.Role{auth.RoleCustomer},
			wantStatus: http.StatusForbidden,
			wantCalled: false,
		},
		{
			name:       "ロールを持たないトークンは403になること",
			tokenRoles: nil,
			required:   []auth.Role{auth.RoleAdmin},
			wantStatus: http.StatusForbidden,
			wantCalled: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tokenStr, _, err := tokens.Issue(auth.AccessToken, "user-role", auth.NewRoleSet(tt.tokenRoles...))
			if err != nil {
				t.Fatalf("Issue()でエラーが発生: %v", err)
			}

			called := false
			router := newTestRouter()
			router.GET("/test", VerifyToken(tokens, nil, 0), RequireRoles(tt.required...), okHandler(&called))

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("Authorization", "Bearer "+tokenStr)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("ステータスコード = %d, want %d", w.Code, tt.wantStatus)
			}
			if called != tt.wantCalled {
				t.Errorf("ハンドラー呼び出し = %v, want %v", called, tt.wantCalled)
			}
			if tt.wantStatus == http.StatusForbidden {
				env := decodeEnvelope(t, w)
				if env.Code != apperror.CodeForbidden {
					t.Errorf("code = %q, want %q", env.Code, apperror.CodeForbidden)
				}
				if env.Message != apperror.Forbidden().Message {
					t.Errorf("message = %q, want %q", env.Message, apperror.Forbidden().Message)
				}
			}
		})
	}

	t.Run("トークン検証より前に実行された場合は内部エラーになること", func(t *testing.T) {
		t.Parallel()

		called := false
		router := newTestRouter()
		router.GET("/test", RequireRoles(auth.RoleCustomer), okHandler(&called))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		if w.Code != http.StatusInternalServerError {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusInternalServerError)
		}
		if called {
			t.Error("ハンドラーが呼ばれるべきではない")
		}
	})

	t.Run("トークンが無い場合は403ではなく401になること", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter()
		router.GET("/test", VerifyToken(tokens, nil, 0), RequireRoles(auth.RoleAdmin), okHandler(nil))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコード = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})

	t.Run("ロールが空の場合はパニックすること", func(t *testing.T) {
		t.Parallel()

		defer func() {
			if recover() == nil {
				t.Error("RequireRoles()はパニックするべき")
			}
		}()
		RequireRoles()
	})
}
