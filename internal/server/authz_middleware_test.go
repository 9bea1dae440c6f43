package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWithAuthz_EnforcedDeny(t *testing.T) {
	h := newTestHandler(t, authorizerStub{fn: func(subject, object, action string) (bool, bool, error) {
		if subject != "role:anonymous" {
			t.Fatalf("subject=%q", subject)
		}
		return false, true, nil
	}})

	rec := doJSON(t, h, http.MethodGet, "/manifestmod/api/rules", "", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestWithAuthz_ShadowDenyPasses(t *testing.T) {
	h := newTestHandler(t, authorizerStub{fn: func(string, string, string) (bool, bool, error) {
		return false, false, nil
	}})

	rec := doJSON(t, h, http.MethodGet, "/manifestmod/api/rules", "administrator", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestWithAuthz_ErrorIs500(t *testing.T) {
	h := newTestHandler(t, authorizerStub{fn: func(string, string, string) (bool, bool, error) {
		return false, false, errors.New("enforcer broken")
	}})

	rec := doJSON(t, h, http.MethodGet, "/manifestmod/api/rules", "administrator", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestWithAuthz_UncheckedRouteSkipsAuthorize(t *testing.T) {
	called := false
	h := newTestHandler(t, authorizerStub{fn: func(string, string, string) (bool, bool, error) {
		called = true
		return false, true, nil
	}})

	rec := doJSON(t, h, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if called {
		t.Fatal("ops route must not hit the enforcer")
	}
}

func TestAuthzRequirementForRoute(t *testing.T) {
	cases := []struct {
		method string
		path   string
		object string
		action string
		check  bool
	}{
		{http.MethodGet, "/manifestmod/api/rules", "manifestmod.rules", "read", true},
		{http.MethodPost, "/manifestmod/api/rules", "manifestmod.rules", "write", true},
		{http.MethodGet, "/manifestmod/api/rule", "manifestmod.rules", "read", true},
		{http.MethodPost, "/manifestmod/api/rules/enable", "manifestmod.rules", "write", true},
		{http.MethodPost, "/manifestmod/api/rules/delete", "manifestmod.rules", "write", true},
		{http.MethodPost, "/manifestmod/api/evaluate", "manifestmod.evaluate", "execute", true},
		{http.MethodGet, "/health", "", "", false},
	}
	for _, tc := range cases {
		object, action, check := authzRequirementForRoute(tc.method, tc.path)
		if object != tc.object || action != tc.action || check != tc.check {
			t.Fatalf("%s %s: got (%q, %q, %v)", tc.method, tc.path, object, action, check)
		}
	}
}

func TestWithIdentity(t *testing.T) {
	var got Principal
	var ok bool
	inner := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, ok = currentPrincipal(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Actor-UUID", " u1 ")
	req.Header.Set("X-Actor-Role", "Administrator")
	withIdentity(inner).ServeHTTP(httptest.NewRecorder(), req)
	if !ok || got.UUID != "u1" || got.RoleSlug != "administrator" {
		t.Fatalf("principal=%+v ok=%v", got, ok)
	}

	ok = false
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	withIdentity(inner).ServeHTTP(httptest.NewRecorder(), req)
	if ok {
		t.Fatal("expected no principal without headers")
	}
}
