package auth

import (
	"context"
	"slices"
)

type Permission string

const (
	PermissionPunchUpload         Permission = "attendance.punch_upload"
	PermissionAttendanceView      Permission = "attendance.view_all"
	PermissionAttendanceVerify    Permission = "attendance.verify"
	PermissionAttendanceReprocess Permission = "attendance.reprocess"
	PermissionPointView           Permission = "points.view_all"
	PermissionPointExcuse         Permission = "points.excuse"
	PermissionPointManage         Permission = "points.manage"
)

// Actor is whoever triggers a mutating operation. The engine only ever asks
// an Authorizer about it; it never looks at roles.
type Actor struct {
	UserID      string
	EmployeeID  *string
	Permissions []Permission
}

// System is the actor used by background jobs whose trigger was authorized upstream.
var System = Actor{UserID: "system"}

// Authorizer is the externally supplied permission predicate.
type Authorizer interface {
	Allowed(ctx context.Context, actor Actor, permission Permission) bool
}

// AuthorizerFunc adapts a plain function to Authorizer.
type AuthorizerFunc func(ctx context.Context, actor Actor, permission Permission) bool

func (f AuthorizerFunc) Allowed(ctx context.Context, actor Actor, permission Permission) bool {
	return f(ctx, actor, permission)
}

// PermissionListAuthorizer grants exactly the permissions carried by the actor.
type PermissionListAuthorizer struct{}

func (PermissionListAuthorizer) Allowed(_ context.Context, actor Actor, permission Permission) bool {
	return slices.Contains(actor.Permissions, permission)
}

// Require returns ErrForbidden unless the authorizer allows the permission.
func Require(ctx context.Context, authorizer Authorizer, actor Actor, permission Permission) error {
	if authorizer == nil || !authorizer.Allowed(ctx, actor, permission) {
		return ErrForbidden
	}
	return nil
}

type actorKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (Actor, error) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok {
		return Actor{}, ErrNoActor
	}
	return actor, nil
}
