package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func identityRequest(userID, role, storeID string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/x", nil)
	if userID != "" {
		r.Header.Set(headerUserID, userID)
	}
	if role != "" {
		r.Header.Set(headerRole, role)
	}
	if storeID != "" {
		r.Header.Set(headerStoreID, storeID)
	}
	return r
}

func TestWithIdentity(t *testing.T) {
	var got Identity
	h := WithIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = IdentityFrom(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), identityRequest("u1", RoleStoreAdmin, "s1"))
	assert.Equal(t, Identity{UserID: "u1", Role: RoleStoreAdmin, StoreID: "s1"}, got)
}

func TestRequireAuth(t *testing.T) {
	var called bool
	h := WithIdentity(RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, identityRequest("", "", ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, identityRequest("u1", RoleCustomer, ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestRequireRoles(t *testing.T) {
	h := WithIdentity(RequireRoles(RoleSuperAdmin, RoleStoreAdmin)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, identityRequest("u1", RoleCustomer, ""))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, identityRequest("u1", RoleStoreAdmin, "s1"))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, identityRequest("u1", "", ""))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCanAccessStore(t *testing.T) {
	assert.True(t, Identity{Role: RoleSuperAdmin}.CanAccessStore("any"))
	assert.True(t, Identity{Role: RoleStoreAdmin, StoreID: "s1"}.CanAccessStore("s1"))
	assert.False(t, Identity{Role: RoleStoreAdmin, StoreID: "s1"}.CanAccessStore("s2"))
	assert.False(t, Identity{Role: RoleCustomer}.CanAccessStore("s1"))
	assert.False(t, Identity{}.CanAccessStore("s1"))
}
