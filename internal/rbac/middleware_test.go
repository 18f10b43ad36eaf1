package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glintcare/glintcare/internal/shared"
)

type stubPermissions struct {
	granted map[int64][]string
}

func (s stubPermissions) EffectivePermissions(_ context.Context, userID int64) ([]string, error) {
	return s.granted[userID], nil
}

func requestWithActor(userID int64) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if userID == 0 {
		return req
	}
	ctx := shared.ContextWithActor(req.Context(), &shared.Actor{UserID: userID, Subject: "tester"})
	return req.WithContext(ctx)
}

func TestRequireAnyAllowsMatchingPermission(t *testing.T) {
	mw := Middleware{Service: stubPermissions{granted: map[int64][]string{
		7: {shared.PermLoyaltyView},
	}}}
	called := false
	handler := mw.RequireAny(shared.PermLoyaltyView, shared.PermLoyaltyAdjust)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithActor(7))

	require.True(t, called)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAnyRejectsMissingPermission(t *testing.T) {
	mw := Middleware{Service: stubPermissions{granted: map[int64][]string{
		7: {shared.PermProductsView},
	}}}
	handler := mw.RequireAny(shared.PermLoyaltyAdjust)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithActor(7))

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAnyRejectsAnonymous(t *testing.T) {
	mw := Middleware{Service: stubPermissions{}}
	handler := mw.RequireAny(shared.PermLoyaltyView)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithActor(0))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAllNeedsEveryPermission(t *testing.T) {
	mw := Middleware{Service: stubPermissions{granted: map[int64][]string{
		3: {shared.PermRolesView},
		4: {shared.PermRolesView, shared.PermRolesEdit},
	}}}
	chain := mw.RequireAll(shared.PermRolesView, shared.PermRolesEdit)

	rec := httptest.NewRecorder()
	chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("partial grant should be rejected")
	})).ServeHTTP(rec, requestWithActor(3))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	called := false
	chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rec, requestWithActor(4))
	require.True(t, called)
}

func TestRequireAnyEmptyListPassesThrough(t *testing.T) {
	mw := Middleware{Service: stubPermissions{}}
	called := false
	handler := mw.RequireAny()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithActor(0))
	require.True(t, called)
}
