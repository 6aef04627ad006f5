package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/store"
	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/idx"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

// DefaultUserInfoURL returns the signed-in user's profile.
const DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var (
	ErrInvalidState = errors.New("invalid_state")
	ErrLoginFailed  = errors.New("login_failed")
)

// ProviderProfile is the subset of the provider's userinfo response we keep.
type ProviderProfile struct {
	ID      string `json:"id"`
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (p ProviderProfile) subject() string {
	if p.ID != "" {
		return p.ID
	}
	return p.Sub
}

// LoginResult is a completed sign-in.
type LoginResult struct {
	User        domain.User
	Token       IssuedToken
	RedirectURL string
}

// LoginService runs the provider's authorization-code flow and mints the
// internal bearer token the frontend uses afterwards.
type LoginService struct {
	Store       store.Store
	OAuth       *oauth2.Config
	States      *jwtx.StateSigner
	Sealer      *cryptox.Sealer
	UserInfoURL string
	FrontendURL string
	HTTPClient  *http.Client
	Timeout     time.Duration

	// Tokens mints the bearer token handed to the frontend.
	Tokens *TokenService
	Now    func() time.Time
}

func (s *LoginService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// AuthCodeURL returns the consent URL. Offline access and a forced consent
// prompt make the provider return a refresh token every time.
func (s *LoginService) AuthCodeURL(ret string) (string, error) {
	state, err := s.States.Issue(ret)
	if err != nil {
		return "", err
	}
	return s.OAuth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")), nil
}

// Callback completes the flow: it checks state, exchanges code, upserts the
// user by email, stores the provider credentials and issues a bearer token.
func (s *LoginService) Callback(ctx context.Context, state, code string) (LoginResult, error) {
	l := slogx.FromContext(ctx)

	claims, err := s.States.Verify(state)
	if err != nil {
		l.Info("login callback with bad state", slog.Any("error", err))
		return LoginResult{}, ErrInvalidState
	}
	if strings.TrimSpace(code) == "" {
		return LoginResult{}, fmt.Errorf("%w: missing code", ErrLoginFailed)
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultOutboundTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if s.HTTPClient != nil {
		callCtx = context.WithValue(callCtx, oauth2.HTTPClient, s.HTTPClient)
	}

	tok, err := s.OAuth.Exchange(callCtx, code)
	if err != nil {
		l.Warn("code exchange failed", slog.Any("error", err))
		return LoginResult{}, fmt.Errorf("%w: exchange: %v", ErrLoginFailed, err)
	}

	profile, err := s.fetchProfile(callCtx, tok)
	if err != nil {
		l.Warn("userinfo fetch failed", slog.Any("error", err))
		return LoginResult{}, fmt.Errorf("%w: userinfo: %v", ErrLoginFailed, err)
	}
	if profile.Email == "" {
		return LoginResult{}, fmt.Errorf("%w: provider returned no email", ErrLoginFailed)
	}

	now := s.now()
	var result LoginResult

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := upsertProviderUser(ctx, tx.Users(), profile, now)
		if err != nil {
			return err
		}

		creds := domain.GoogleCredentials{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
		if creds.RefreshToken == "" {
			// The provider only sends a refresh token on first consent;
			// keep the one we already hold.
			prev, err := tx.Users().GetGoogleCredentials(ctx, u.ID)
			if err != nil {
				return err
			}
			if creds.RefreshToken, err = s.Sealer.Open(prev.RefreshToken); err != nil {
				return err
			}
		}
		creds.ExpiresAt = expiryOf(tok, now)
		if err := saveCredentials(ctx, tx.Users(), s.Sealer, u.ID, creds); err != nil {
			return fmt.Errorf("save credentials: %w", err)
		}

		issued, err := s.Tokens.IssueUserToken(ctx, tx.AccessTokens(), u.ID)
		if err != nil {
			return err
		}

		result = LoginResult{User: u, Token: issued}
		return nil
	})
	if err != nil {
		return LoginResult{}, err
	}

	result.RedirectURL = s.successURL(result.Token.PlainText, claims.Return)

	l.Info("user signed in", slog.String("user_id", result.User.ID))
	return result, nil
}

// successURL points the frontend at its login-success page. The token
// comes first; a return path signed into the state rides along.
func (s *LoginService) successURL(token, ret string) string {
	u := strings.TrimRight(s.FrontendURL, "/") + "/login-success?token=" + url.QueryEscape(token)
	if ret != "" {
		u += "&return=" + url.QueryEscape(ret)
	}
	return u
}

func (s *LoginService) fetchProfile(ctx context.Context, tok *oauth2.Token) (ProviderProfile, error) {
	endpoint := s.UserInfoURL
	if endpoint == "" {
		endpoint = DefaultUserInfoURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ProviderProfile{}, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := s.OAuth.Client(ctx, tok).Do(req)
	if err != nil {
		return ProviderProfile{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return ProviderProfile{}, fmt.Errorf("status %d: %s", res.StatusCode, body)
	}

	var p ProviderProfile
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		return ProviderProfile{}, fmt.Errorf("decode: %w", err)
	}
	return p, nil
}

func upsertProviderUser(ctx context.Context, users store.Users, p ProviderProfile, now time.Time) (domain.User, error) {
	var googleID, avatar *string
	if sub := p.subject(); sub != "" {
		googleID = &sub
	}
	if p.Picture != "" {
		avatar = &p.Picture
	}
	name := p.Name
	if name == "" {
		name = p.Email
	}

	u, err := users.GetUserByEmail(ctx, p.Email)
	switch {
	case err == nil:
		u.Name = name
		u.GoogleID = googleID
		u.Avatar = avatar
		if err := users.UpdateUser(ctx, u); err != nil {
			return domain.User{}, fmt.Errorf("update user: %w", err)
		}
		return u, nil

	case errors.Is(err, store.ErrNotFound):
		u = domain.User{
			ID:       idx.NewAt(now).String(),
			Name:     name,
			Email:    p.Email,
			GoogleID: googleID,
			Avatar:   avatar,
		}
		if err := users.CreateUser(ctx, u); err != nil {
			return domain.User{}, fmt.Errorf("create user: %w", err)
		}
		return u, nil

	default:
		return domain.User{}, err
	}
}
