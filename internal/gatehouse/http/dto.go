package http

import (
	"github.com/aussiebroadwan/gatehouse/internal/gatehouse/domain"
	"github.com/aussiebroadwan/gatehouse/pkg/gatehousesdk"
)

func toUser(u domain.User) gatehousesdk.User {
	return gatehousesdk.User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		GoogleID:  u.GoogleID,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toRole(r domain.Role) gatehousesdk.Role {
	return gatehousesdk.Role{
		ID:        r.ID,
		Name:      r.Name,
		GuardName: r.GuardName,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toPermission(p domain.Permission) gatehousesdk.Permission {
	return gatehousesdk.Permission{
		ID:        p.ID,
		Name:      p.Name,
		GuardName: p.GuardName,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// mapAll converts a slice, returning an empty (not nil) slice so lists
// encode as [].
func mapAll[T, U any](in []T, f func(T) U) []U {
	out := make([]U, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
