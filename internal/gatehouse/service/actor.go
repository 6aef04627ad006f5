package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/metrics"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/store"
	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// AuthErrorKind enumerates why a bearer token was refused.
type AuthErrorKind int

const (
	NoToken AuthErrorKind = iota + 1
	InvalidOrExpiredToken
	InvalidToken
	ModuleInactive
	InsufficientAbilities
	ModuleNotAllowed
)

func (k AuthErrorKind) String() string {
	switch k {
	case NoToken:
		return "no_token"
	case InvalidOrExpiredToken:
		return "invalid_or_expired_token"
	case InvalidToken:
		return "invalid_token"
	case ModuleInactive:
		return "module_inactive"
	case InsufficientAbilities:
		return "insufficient_abilities"
	case ModuleNotAllowed:
		return "module_not_allowed"
	default:
		return "unknown"
	}
}

// AuthError is returned by ActorResolver.Resolve for every refusal.
type AuthError struct {
	Kind AuthErrorKind
}

func (e *AuthError) Error() string { return "auth: " + e.Kind.String() }

// Status maps the kind to the HTTP status the boundary should answer with.
func (e *AuthError) Status() int {
	switch e.Kind {
	case ModuleInactive, InsufficientAbilities, ModuleNotAllowed:
		return http.StatusForbidden
	default:
		return http.StatusUnauthorized
	}
}

// Message is safe to show the caller. Every unauthenticated kind other than
// a missing header reads the same so callers cannot probe why a token failed.
func (e *AuthError) Message() string {
	switch e.Kind {
	case NoToken:
		return "Bearer token missing from the Authorization header."
	case ModuleInactive:
		return "The module that owns this token is inactive."
	case InsufficientAbilities:
		return "The module token does not carry the required abilities."
	case ModuleNotAllowed:
		return "The module is not allowed to access this resource."
	default:
		return "Invalid or expired token."
	}
}

func authErr(kind AuthErrorKind) error { return &AuthError{Kind: kind} }

// AsAuthError unwraps err into an *AuthError.
func AsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// ResolveOptions gates module callers. Both fields are ignored for users.
type ResolveOptions struct {
	// RequiredAbility must be carried by the module's token (or "*").
	RequiredAbility string

	// AllowedModules, when non-empty, lists the module slugs let through.
	AllowedModules []string
}

// ActorResolver turns a raw bearer secret into the request's actor.
type ActorResolver struct {
	Store   store.Store
	Metrics *metrics.Metrics

	// Now defaults to time.Now.
	Now func() time.Time
}

func (r *ActorResolver) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

// Resolve authenticates raw and applies module gating from opts. Failures
// are *AuthError; any other error is a store failure.
func (r *ActorResolver) Resolve(ctx context.Context, raw string, opts ResolveOptions) (domain.Actor, error) {
	actor, err := r.resolve(ctx, raw, opts)

	if ae, ok := AsAuthError(err); ok {
		r.Metrics.ActorResolved(ae.Kind.String())
	} else if err == nil {
		r.Metrics.ActorResolved(string(actor.Kind()))
	}
	return actor, err
}

func (r *ActorResolver) resolve(ctx context.Context, raw string, opts ResolveOptions) (domain.Actor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, authErr(NoToken)
	}

	now := r.now()
	tok, err := r.lookup(ctx, raw)
	if err != nil {
		return nil, err
	}
	if !tok.Valid(now) {
		return nil, authErr(InvalidOrExpiredToken)
	}

	l := slogx.FromContext(ctx)

	switch tok.PrincipalType {
	case domain.PrincipalModule:
		m, err := r.Store.Modules().GetModuleByID(ctx, tok.PrincipalID)
		if errors.Is(err, store.ErrNotFound) {
			l.Warn("token owner missing", slog.String("token_id", tok.ID), slog.String("principal_type", string(tok.PrincipalType)))
			return nil, authErr(InvalidToken)
		}
		if err != nil {
			return nil, fmt.Errorf("load module: %w", err)
		}

		if !m.IsActive {
			return nil, authErr(ModuleInactive)
		}
		if opts.RequiredAbility != "" && !tok.Can(opts.RequiredAbility) {
			return nil, authErr(InsufficientAbilities)
		}
		if len(opts.AllowedModules) > 0 && !slices.Contains(opts.AllowedModules, m.Slug) {
			return nil, authErr(ModuleNotAllowed)
		}

		if err := r.Store.Modules().TouchModuleLastUsed(ctx, m.ID, now); err != nil {
			l.Warn("failed to touch module last_used_at", slog.String("module", m.Slug), slog.Any("error", err))
		} else {
			m.LastUsedAt = &now
		}

		return domain.ModuleActor{Module: m, AccessToken: tok}, nil

	case domain.PrincipalUser:
		u, err := r.Store.Users().GetUserByID(ctx, tok.PrincipalID)
		if errors.Is(err, store.ErrNotFound) {
			l.Warn("token owner missing", slog.String("token_id", tok.ID), slog.String("principal_type", string(tok.PrincipalType)))
			return nil, authErr(InvalidToken)
		}
		if err != nil {
			return nil, fmt.Errorf("load user: %w", err)
		}
		return domain.UserActor{User: u, AccessToken: tok}, nil

	default:
		l.Warn("token has unsupported principal type", slog.String("token_id", tok.ID), slog.String("principal_type", string(tok.PrincipalType)))
		return nil, authErr(InvalidToken)
	}
}

// lookup finds the registry record for raw. Tokens issued here are
// "<id>|<secret>"; a bare secret (as seeded for modules) is looked up by
// its hash. Unknown tokens are reported as InvalidOrExpiredToken.
func (r *ActorResolver) lookup(ctx context.Context, raw string) (domain.AccessToken, error) {
	tokens := r.Store.AccessTokens()

	if id, secret, ok := strings.Cut(raw, "|"); ok {
		tok, err := tokens.GetAccessTokenByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return domain.AccessToken{}, authErr(InvalidOrExpiredToken)
		}
		if err != nil {
			return domain.AccessToken{}, fmt.Errorf("lookup token: %w", err)
		}
		if !cryptox.EqualHash(tok.TokenHash, cryptox.HashSecret(secret)) {
			return domain.AccessToken{}, authErr(InvalidOrExpiredToken)
		}
		return tok, nil
	}

	tok, err := tokens.GetAccessTokenByHash(ctx, cryptox.HashSecret(raw))
	if errors.Is(err, store.ErrNotFound) {
		return domain.AccessToken{}, authErr(InvalidOrExpiredToken)
	}
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("lookup token: %w", err)
	}
	return tok, nil
}

// RequireUser narrows an actor to a human user. Module tokens are refused
// as InvalidToken on user-only surfaces.
func RequireUser(actor domain.Actor) (domain.UserActor, error) {
	switch a := actor.(type) {
	case domain.UserActor:
		return a, nil
	case domain.ModuleActor:
		return domain.UserActor{}, authErr(InvalidToken)
	default:
		return domain.UserActor{}, authErr(InvalidToken)
	}
}
