package http

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/service"
	"github.com/aussiebroadwan/gatehouse/pkg/gatehousesdk"
	"github.com/aussiebroadwan/gatehouse/pkg/httpx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

type actorKey struct{}

func withActor(ctx context.Context, a domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// actorFrom returns the caller resolved by authenticate, or nil.
func actorFrom(ctx context.Context) domain.Actor {
	a, _ := ctx.Value(actorKey{}).(domain.Actor)
	return a
}

// authenticate resolves the bearer token into the request's actor. Module
// callers are gated by opts.
func (r *Router) authenticate(opts service.ResolveOptions) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := req.Context()

			actor, err := r.Resolver.Resolve(ctx, httpx.BearerToken(req), opts)
			if err != nil {
				writeActorError(w, req, err)
				return
			}

			kind, id := string(actor.Kind()), actor.PrincipalID()
			ctx = withActor(ctx, actor)
			ctx = slogx.WithActor(ctx, kind, id)
			ctx = httpx.WithPrincipalKey(ctx, kind+":"+id)

			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// requireUser refuses module actors. Chain it after authenticate.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if _, err := service.RequireUser(actorFrom(req.Context())); err != nil {
			slogx.FromContext(req.Context()).Warn("module token used on a user-only route")
			writeActorError(w, req, err)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// userActor returns the human caller. Only valid behind requireUser.
func userActor(req *http.Request) domain.UserActor {
	ua, _ := actorFrom(req.Context()).(domain.UserActor)
	return ua
}

func writeActorError(w http.ResponseWriter, req *http.Request, err error) {
	ae, ok := service.AsAuthError(err)
	if !ok {
		slogx.FromContext(req.Context()).Error("failed to resolve actor", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, gatehousesdk.ErrorCodeServerError, "Failed to authenticate request")
		return
	}

	if ae.Status() == http.StatusForbidden {
		httpx.SetBearerChallenge(w, "insufficient_scope")
	} else {
		httpx.SetBearerChallenge(w, "invalid_token")
	}
	httpx.WriteJSON(w, ae.Status(), gatehousesdk.AuthErrorResponse{
		Authorized: false,
		Error:      ae.Message(),
	})
}
