package domain

// PrincipalType tags the owner of an access token.
type PrincipalType string

const (
	PrincipalUser   PrincipalType = "user"
	PrincipalModule PrincipalType = "module"
)

// Actor is the resolved caller of a request. It is one of UserActor or
// ModuleActor; the unexported method closes the set.
type Actor interface {
	Kind() PrincipalType
	PrincipalID() string
	Token() AccessToken
	isActor()
}

type UserActor struct {
	User        User
	AccessToken AccessToken
}

func (a UserActor) Kind() PrincipalType { return PrincipalUser }
func (a UserActor) PrincipalID() string { return a.User.ID }
func (a UserActor) Token() AccessToken  { return a.AccessToken }
func (UserActor) isActor()              {}

type ModuleActor struct {
	Module      Module
	AccessToken AccessToken
}

func (a ModuleActor) Kind() PrincipalType { return PrincipalModule }
func (a ModuleActor) PrincipalID() string { return a.Module.ID }
func (a ModuleActor) Token() AccessToken  { return a.AccessToken }
func (ModuleActor) isActor()              {}
