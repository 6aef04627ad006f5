package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAccessToken_Valid(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	require.True(t, AccessToken{}.Valid(now), "no expiry never expires")
	require.True(t, AccessToken{ExpiresAt: &future}.Valid(now))
	require.False(t, AccessToken{ExpiresAt: &past}.Valid(now))
	require.False(t, AccessToken{ExpiresAt: &now}.Valid(now), "expiry instant is exclusive")
}

func TestAccessToken_Can(t *testing.T) {
	tests := []struct {
		name      string
		abilities []string
		ability   string
		want      bool
	}{
		{"wildcard", []string{AbilityAll}, AbilityPermissionsBatch, true},
		{"exact", []string{AbilityPermissionsBatch}, AbilityPermissionsBatch, true},
		{"other ability", []string{"calendar:read"}, AbilityPermissionsBatch, false},
		{"empty set grants nothing", nil, AbilityPermissionsBatch, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, AccessToken{Abilities: tt.abilities}.Can(tt.ability))
		})
	}
}

func TestActorKinds(t *testing.T) {
	var a Actor = UserActor{User: User{ID: "u1"}}
	require.Equal(t, PrincipalUser, a.Kind())
	require.Equal(t, "u1", a.PrincipalID())

	a = ModuleActor{Module: Module{ID: "m1", Slug: "pg"}}
	require.Equal(t, PrincipalModule, a.Kind())
	require.Equal(t, "m1", a.PrincipalID())
}

func TestVerdict_Authorized(t *testing.T) {
	require.True(t, Verdict{}.Authorized())
	require.False(t, Verdict{MissingRoles: []string{"admin"}}.Authorized())
	require.False(t, Verdict{MissingPermissions: []string{"users.read"}}.Authorized())
}

func TestGoogleCredentials_Connected(t *testing.T) {
	require.False(t, GoogleCredentials{}.Connected())
	require.True(t, GoogleCredentials{AccessToken: "ya29"}.Connected())
}
