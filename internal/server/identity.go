package server

import (
	"context"
	"net/http"
	"strings"
)

// Principal is the caller identity supplied by the fronting session
// layer. This service trusts the headers; authentication itself is an
// external collaborator's job.
type Principal struct {
	UUID     string
	RoleSlug string
}

type principalContextKey struct{}

const (
	headerActorUUID = "X-Actor-UUID"
	headerActorRole = "X-Actor-Role"
)

func withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uuid := strings.TrimSpace(r.Header.Get(headerActorUUID))
		role := strings.TrimSpace(strings.ToLower(r.Header.Get(headerActorRole)))
		if uuid == "" && role == "" {
			next.ServeHTTP(w, r)
			return
		}
		p := Principal{UUID: uuid, RoleSlug: role}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalContextKey{}, p)))
	})
}

func currentPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
