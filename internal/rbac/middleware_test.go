package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"mentorship-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

func serve(t *testing.T, kind string, allowed ...string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		if kind != "" {
			c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), "p1", kind))
		}
		c.Next()
	}, RequireAnyKind(allowed...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w.Code
}

func TestRequireAnyKind_AdminBypasses(t *testing.T) {
	if code := serve(t, KindAdmin, KindMentor); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyKind_DeniesOtherKinds(t *testing.T) {
	if code := serve(t, KindUser, KindMentor); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyKind_RequiresPrincipal(t *testing.T) {
	if code := serve(t, "", KindUser); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestIsValidKind(t *testing.T) {
	if !IsValidKind(KindMentor) || IsValidKind("super_admin") {
		t.Fatalf("unexpected kind validation")
	}
}
