package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/store"
)

func TestIssueUserToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	st := newTestStore(t)
	svc := &TokenService{Store: st, UserTokenTTL: time.Hour, Now: func() time.Time { return now }}

	u := seedUser(t, st, "ada@example.com")

	issued, err := svc.IssueUserToken(ctx, st.AccessTokens(), u.ID)
	require.NoError(t, err)

	id, secret, ok := strings.Cut(issued.PlainText, "|")
	require.True(t, ok)
	require.Equal(t, issued.Token.ID, id)
	require.NotEmpty(t, secret)
	require.NotContains(t, issued.Token.TokenHash, secret)
	require.Equal(t, UserTokenName, issued.Token.Name)
	require.True(t, now.Add(time.Hour).Equal(*issued.Token.ExpiresAt))

	r := &ActorResolver{Store: st, Now: func() time.Time { return now }}
	actor, err := r.Resolve(ctx, issued.PlainText, ResolveOptions{})
	require.NoError(t, err)
	require.Equal(t, u.ID, actor.PrincipalID())

	// Past the TTL the same token is refused.
	r.Now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = r.Resolve(ctx, issued.PlainText, ResolveOptions{})
	requireAuthKind(t, err, InvalidOrExpiredToken)
}

func TestIssueUserToken_NoTTL(t *testing.T) {
	st := newTestStore(t)
	svc := &TokenService{Store: st}
	u := seedUser(t, st, "ada@example.com")

	issued, err := svc.IssueUserToken(context.Background(), st.AccessTokens(), u.ID)
	require.NoError(t, err)
	require.Nil(t, issued.Token.ExpiresAt)
}

func TestProvisionModule_Idempotent(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &TokenService{Store: st}
	r := &ActorResolver{Store: st}

	spec := ModuleSpec{Slug: "pg", Name: "Portal", Secret: "pg-secret-value"}

	first, err := svc.ProvisionModule(ctx, spec)
	require.NoError(t, err)
	second, err := svc.ProvisionModule(ctx, spec)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.True(t, second.IsActive)

	toks, err := st.AccessTokens().ListAccessTokensForPrincipal(ctx, domain.PrincipalModule, first.ID)
	require.NoError(t, err)
	require.Len(t, toks, 1)
	require.Equal(t, ModuleTokenName, toks[0].Name)
	require.Equal(t, []string{domain.AbilityPermissionsBatch}, toks[0].Abilities)

	actor, err := r.Resolve(ctx, "pg-secret-value", batchOpts)
	require.NoError(t, err)
	require.Equal(t, domain.PrincipalModule, actor.Kind())
}

func TestProvisionModule_ReactivatesAndRotates(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &TokenService{Store: st}
	r := &ActorResolver{Store: st}

	m, err := svc.ProvisionModule(ctx, ModuleSpec{Slug: "pg", Secret: "old-secret"})
	require.NoError(t, err)
	require.Equal(t, "pg", m.Name)
	require.NoError(t, st.Modules().SetModuleActive(ctx, m.ID, false))

	_, err = svc.ProvisionModule(ctx, ModuleSpec{Slug: "pg", Secret: "new-secret"})
	require.NoError(t, err)

	_, err = r.Resolve(ctx, "old-secret", batchOpts)
	requireAuthKind(t, err, InvalidOrExpiredToken)

	_, err = r.Resolve(ctx, "new-secret", batchOpts)
	require.NoError(t, err)
}

func TestProvisionModule_Invalid(t *testing.T) {
	svc := &TokenService{Store: newTestStore(t)}

	_, err := svc.ProvisionModule(context.Background(), ModuleSpec{Slug: " ", Secret: "x"})
	require.ErrorIs(t, err, ErrInvalidModule)

	_, err = svc.ProvisionModule(context.Background(), ModuleSpec{Slug: "pg"})
	require.ErrorIs(t, err, ErrInvalidModule)
}

func TestRevokeAll(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &TokenService{Store: st}
	r := &ActorResolver{Store: st}
	u := seedUser(t, st, "ada@example.com")
	other := seedUser(t, st, "grace@example.com")

	a, err := svc.IssueUserToken(ctx, st.AccessTokens(), u.ID)
	require.NoError(t, err)
	b, err := svc.IssueUserToken(ctx, st.AccessTokens(), u.ID)
	require.NoError(t, err)
	kept, err := svc.IssueUserToken(ctx, st.AccessTokens(), other.ID)
	require.NoError(t, err)

	n, err := svc.RevokeAll(ctx, st.AccessTokens(), domain.PrincipalUser, u.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	for _, tok := range []IssuedToken{a, b} {
		_, err = r.Resolve(ctx, tok.PlainText, ResolveOptions{})
		requireAuthKind(t, err, InvalidOrExpiredToken)
	}

	actor, err := r.Resolve(ctx, kept.PlainText, ResolveOptions{})
	require.NoError(t, err)
	require.Equal(t, other.ID, actor.PrincipalID())
}

func TestIssueUserToken_RolledBackWithTx(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &TokenService{Store: st}
	u := seedUser(t, st, "ada@example.com")

	var issued IssuedToken
	boom := errors.New("abort")
	err := st.WithTx(ctx, func(tx store.Tx) error {
		var err error
		if issued, err = svc.IssueUserToken(ctx, tx.AccessTokens(), u.ID); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = (&ActorResolver{Store: st}).Resolve(ctx, issued.PlainText, ResolveOptions{})
	requireAuthKind(t, err, InvalidOrExpiredToken)
}
