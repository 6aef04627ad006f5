package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/metrics"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/store"
	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// StalenessBuffer is how close to expiry a provider token may be before it
// is refreshed ahead of use.
const StalenessBuffer = 60 * time.Second

// DefaultOutboundTimeout bounds each call to the provider.
const DefaultOutboundTimeout = 10 * time.Second

// CredentialVault reads and writes a user's provider credentials, sealing
// the token columns at rest when a Sealer is configured.
type CredentialVault struct {
	Store  store.Store
	Sealer *cryptox.Sealer
}

func (v *CredentialVault) Load(ctx context.Context, userID string) (domain.GoogleCredentials, error) {
	stored, err := v.Store.Users().GetGoogleCredentials(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted after its token was resolved; nothing is connected.
		return domain.GoogleCredentials{}, nil
	}
	if err != nil {
		return domain.GoogleCredentials{}, err
	}

	access, err := v.Sealer.Open(stored.AccessToken)
	if err != nil {
		return domain.GoogleCredentials{}, fmt.Errorf("open access token: %w", err)
	}
	refresh, err := v.Sealer.Open(stored.RefreshToken)
	if err != nil {
		return domain.GoogleCredentials{}, fmt.Errorf("open refresh token: %w", err)
	}

	return domain.GoogleCredentials{AccessToken: access, RefreshToken: refresh, ExpiresAt: stored.ExpiresAt}, nil
}

func (v *CredentialVault) Save(ctx context.Context, userID string, creds domain.GoogleCredentials) error {
	return saveCredentials(ctx, v.Store.Users(), v.Sealer, userID, creds)
}

func saveCredentials(ctx context.Context, users store.Users, sealer *cryptox.Sealer, userID string, creds domain.GoogleCredentials) error {
	access, err := sealer.Seal(creds.AccessToken)
	if err != nil {
		return err
	}
	refresh, err := sealer.Seal(creds.RefreshToken)
	if err != nil {
		return err
	}
	return users.SaveGoogleCredentials(ctx, userID, domain.GoogleCredentials{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    creds.ExpiresAt,
	})
}

// CredentialRefresher keeps a user's provider access token usable.
//
// Concurrent refreshes for the same user are coalesced: callers that find
// the token stale at the same time share one token-endpoint exchange.
type CredentialRefresher struct {
	Vault *CredentialVault

	// OAuth carries the client id, secret and token endpoint. Only the
	// refresh-token grant is used here.
	OAuth *oauth2.Config

	// HTTPClient is used for the token endpoint; nil means http.DefaultClient.
	HTTPClient *http.Client
	Timeout    time.Duration
	Metrics    *metrics.Metrics
	Now        func() time.Time

	group singleflight.Group
}

func (r *CredentialRefresher) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

// Stale reports whether creds need a refresh at now. A missing expiry is
// treated as stale.
func Stale(creds domain.GoogleCredentials, now time.Time) bool {
	if creds.ExpiresAt == nil {
		return true
	}
	return creds.ExpiresAt.Before(now.Add(StalenessBuffer))
}

// EnsureLiveAccessToken returns the user's provider access token,
// refreshing it first when it is stale and a refresh token is held. An
// empty string means the user has not connected the provider. A failed
// refresh leaves the previous token in place and returns it.
func (r *CredentialRefresher) EnsureLiveAccessToken(ctx context.Context, userID string) (string, error) {
	creds, err := r.Vault.Load(ctx, userID)
	if err != nil {
		return "", err
	}
	if !creds.Connected() {
		return "", nil
	}

	if Stale(creds, r.now()) && creds.RefreshToken != "" {
		tok, err := r.ForceRefresh(ctx, userID)
		if err != nil {
			return "", err
		}
		if tok != "" {
			return tok, nil
		}
	}

	return creds.AccessToken, nil
}

// HasRefreshToken reports whether a refresh-token grant is possible for
// the user.
func (r *CredentialRefresher) HasRefreshToken(ctx context.Context, userID string) (bool, error) {
	creds, err := r.Vault.Load(ctx, userID)
	if err != nil {
		return false, err
	}
	return creds.RefreshToken != "", nil
}

// CurrentAccessToken returns the stored token without refreshing.
func (r *CredentialRefresher) CurrentAccessToken(ctx context.Context, userID string) (string, error) {
	creds, err := r.Vault.Load(ctx, userID)
	if err != nil {
		return "", err
	}
	return creds.AccessToken, nil
}

// ForceRefresh exchanges the stored refresh token for a new access token
// and persists it. It returns "" without touching the store when the client
// is unconfigured, no refresh token is held, or the provider refuses.
// Errors are reserved for store failures.
func (r *CredentialRefresher) ForceRefresh(ctx context.Context, userID string) (string, error) {
	v, err, _ := r.group.Do(userID, func() (any, error) {
		// Detach from the first caller's cancellation; other callers share
		// this result.
		return r.refresh(context.WithoutCancel(ctx), userID)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *CredentialRefresher) refresh(ctx context.Context, userID string) (string, error) {
	l := slogx.FromContext(ctx).With(slog.String("user_id", userID))

	if r.OAuth == nil || r.OAuth.ClientID == "" || r.OAuth.ClientSecret == "" {
		r.Metrics.CredentialRefresh("unconfigured", 0)
		l.Debug("provider client not configured; skipping refresh")
		return "", nil
	}

	creds, err := r.Vault.Load(ctx, userID)
	if err != nil {
		return "", err
	}
	if creds.RefreshToken == "" {
		r.Metrics.CredentialRefresh("no_refresh_token", 0)
		return "", nil
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultOutboundTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if r.HTTPClient != nil {
		callCtx = context.WithValue(callCtx, oauth2.HTTPClient, r.HTTPClient)
	}

	start := time.Now()
	tok, err := r.OAuth.TokenSource(callCtx, &oauth2.Token{RefreshToken: creds.RefreshToken}).Token()
	elapsed := time.Since(start)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			r.Metrics.CredentialRefresh("provider_error", elapsed)
			status := 0
			if re.Response != nil {
				status = re.Response.StatusCode
			}
			l.Warn("provider rejected refresh", slog.Int("status", status), slog.String("error_code", re.ErrorCode))
		} else {
			r.Metrics.CredentialRefresh("transport_error", elapsed)
			l.Warn("refresh request failed", slog.Any("error", err))
		}
		return "", nil
	}
	if tok.AccessToken == "" {
		r.Metrics.CredentialRefresh("provider_error", elapsed)
		return "", nil
	}

	next := domain.GoogleCredentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: creds.RefreshToken,
	}
	if tok.RefreshToken != "" {
		next.RefreshToken = tok.RefreshToken
	}
	next.ExpiresAt = expiryOf(tok, r.now())

	if err := r.Vault.Save(ctx, userID, next); err != nil {
		r.Metrics.CredentialRefresh("store_error", elapsed)
		return "", fmt.Errorf("persist refreshed credentials: %w", err)
	}

	r.Metrics.CredentialRefresh("success", elapsed)
	l.Info("provider credentials refreshed", slog.Bool("rotated_refresh_token", tok.RefreshToken != "" && tok.RefreshToken != creds.RefreshToken))
	return tok.AccessToken, nil
}

// expiryOf computes the stored expiry from expires_in against now, so the
// service clock governs staleness. A token without expires_in yields nil.
func expiryOf(tok *oauth2.Token, now time.Time) *time.Time {
	var exp time.Time
	switch {
	case tok.ExpiresIn > 0:
		exp = now.Add(time.Duration(tok.ExpiresIn) * time.Second)
	case !tok.Expiry.IsZero():
		exp = tok.Expiry
	default:
		return nil
	}
	exp = exp.UTC()
	return &exp
}
