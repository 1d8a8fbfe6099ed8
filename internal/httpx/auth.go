package httpx

import (
	"context"
	"net/http"
)

// Authentication itself lives at the gateway; it forwards the verified
// identity in these headers. This middleware is the trust boundary.
const (
	headerUserID  = "X-User-Id"
	headerRole    = "X-User-Role"
	headerStoreID = "X-Store-Id"
)

const (
	RoleSuperAdmin = "SUPER_ADMIN"
	RoleStoreAdmin = "STORE_ADMIN"
	RoleCustomer   = "CUSTOMER"
)

type Identity struct {
	UserID  string
	Role    string
	StoreID string // assigned store for STORE_ADMIN
}

// CanAccessStore implements the store-scope rule: a store admin only
// touches their own assigned store.
func (id Identity) CanAccessStore(storeID string) bool {
	switch id.Role {
	case RoleSuperAdmin:
		return true
	case RoleStoreAdmin:
		return id.StoreID == storeID
	default:
		return false
	}
}

type identityKey struct{}

func WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{
			UserID:  r.Header.Get(headerUserID),
			Role:    r.Header.Get(headerRole),
			StoreID: r.Header.Get(headerStoreID),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
	})
}

func IdentityFrom(ctx context.Context) Identity {
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFrom(r.Context()).UserID == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody("User not authenticated"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed[IdentityFrom(r.Context()).Role] {
				writeJSON(w, http.StatusForbidden, errorBody("Forbidden"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
