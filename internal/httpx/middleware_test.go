package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yacosta738/go-shopping-cart/internal/auth"
)

func TestRequireAuth(t *testing.T) {
	tokens := &auth.TokenProvider{Secret: []byte("test-secret"), Validity: time.Hour}

	var gotUser string
	handler := RequireAuth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/carts", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/carts", nil)
		req.Header.Set("Authorization", "Basic abc")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/carts", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("valid token passes the user through", func(t *testing.T) {
		token, _, err := tokens.Issue("user-9")
		if err != nil {
			t.Fatal(err)
		}
		req := httptest.NewRequest(http.MethodGet, "/carts", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if gotUser != "user-9" {
			t.Fatalf("user = %q, want user-9", gotUser)
		}
	})
}

func TestPagination(t *testing.T) {
	cases := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", defaultPageSize, 0},
		{"?limit=5&offset=10", 5, 10},
		{"?limit=9999", maxPageSize, 0},
		{"?limit=-1&offset=-2", defaultPageSize, 0},
		{"?limit=abc", defaultPageSize, 0},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/products"+tc.query, nil)
		limit, offset := pagination(req)
		if limit != tc.wantLimit || offset != tc.wantOffset {
			t.Errorf("pagination(%q) = (%d, %d), want (%d, %d)", tc.query, limit, offset, tc.wantLimit, tc.wantOffset)
		}
	}
}
