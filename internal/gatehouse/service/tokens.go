package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/store"
	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/idx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

const (
	// UserTokenName labels tokens minted at login.
	UserTokenName = "auth_token"

	// ModuleTokenName labels the single persistent token of a module.
	ModuleTokenName = "module-token"
)

var ErrInvalidModule = errors.New("invalid_module")

// IssuedToken pairs the plaintext bearer value, shown exactly once, with
// its stored record.
type IssuedToken struct {
	PlainText string
	Token     domain.AccessToken
}

// ModuleSpec describes a module to provision.
type ModuleSpec struct {
	Slug        string
	Name        string
	Description string

	// Secret is the bearer value the module will present. It is stored
	// hashed and looked up as a bare secret.
	Secret    string
	Abilities []string
}

type TokenService struct {
	Store store.Store

	// UserTokenTTL bounds login tokens; zero issues tokens without expiry.
	UserTokenTTL time.Duration

	Now func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// IssueUserToken mints a wildcard bearer token for a user, formatted as
// "<token id>|<secret>". It writes through tokens so callers can issue
// inside their own transaction.
func (s *TokenService) IssueUserToken(ctx context.Context, tokens store.AccessTokens, userID string) (IssuedToken, error) {
	secret, err := cryptox.GenerateSecret(cryptox.SecretSize)
	if err != nil {
		return IssuedToken{}, err
	}

	now := s.now()
	tok := domain.AccessToken{
		ID:            idx.NewAt(now).String(),
		PrincipalType: domain.PrincipalUser,
		PrincipalID:   userID,
		Name:          UserTokenName,
		TokenHash:     cryptox.HashSecret(secret),
		Abilities:     []string{domain.AbilityAll},
		CreatedAt:     now,
	}
	if s.UserTokenTTL > 0 {
		exp := now.Add(s.UserTokenTTL)
		tok.ExpiresAt = &exp
	}

	if err := tokens.CreateAccessToken(ctx, tok); err != nil {
		return IssuedToken{}, fmt.Errorf("store token: %w", err)
	}

	return IssuedToken{PlainText: tok.ID + "|" + secret, Token: tok}, nil
}

// ProvisionModule upserts the module by slug, marks it active and replaces
// its persistent token. Running it again with the same spec is a no-op in
// effect.
func (s *TokenService) ProvisionModule(ctx context.Context, spec ModuleSpec) (domain.Module, error) {
	spec.Slug = strings.TrimSpace(spec.Slug)
	if spec.Slug == "" || spec.Secret == "" {
		return domain.Module{}, ErrInvalidModule
	}
	if spec.Name == "" {
		spec.Name = spec.Slug
	}
	if len(spec.Abilities) == 0 {
		spec.Abilities = []string{domain.AbilityPermissionsBatch}
	}

	now := s.now()
	var mod domain.Module

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		m, err := tx.Modules().UpsertModule(ctx, domain.Module{
			ID:          idx.NewAt(now).String(),
			Name:        spec.Name,
			Slug:        spec.Slug,
			Description: spec.Description,
			IsActive:    true,
		})
		if err != nil {
			return fmt.Errorf("upsert module: %w", err)
		}

		if _, err := tx.AccessTokens().DeleteAccessTokensForPrincipal(ctx, domain.PrincipalModule, m.ID, ModuleTokenName); err != nil {
			return err
		}

		err = tx.AccessTokens().CreateAccessToken(ctx, domain.AccessToken{
			ID:            idx.NewAt(now).String(),
			PrincipalType: domain.PrincipalModule,
			PrincipalID:   m.ID,
			Name:          ModuleTokenName,
			TokenHash:     cryptox.HashSecret(spec.Secret),
			Abilities:     spec.Abilities,
			CreatedAt:     now,
		})
		if err != nil {
			return fmt.Errorf("store module token: %w", err)
		}

		mod = m
		return nil
	})
	if err != nil {
		return domain.Module{}, err
	}

	slogx.FromContext(ctx).Info("module provisioned",
		slog.String("module", mod.Slug),
		slog.String("module_id", mod.ID),
		slog.Any("abilities", spec.Abilities),
	)
	return mod, nil
}

// RevokeAll deletes every token held by a principal.
func (s *TokenService) RevokeAll(ctx context.Context, tokens store.AccessTokens, kind domain.PrincipalType, principalID string) (int64, error) {
	n, err := tokens.DeleteAccessTokensForPrincipal(ctx, kind, principalID, "")
	if err != nil {
		return 0, fmt.Errorf("revoke tokens: %w", err)
	}
	return n, nil
}
