package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxPrincipalID ctxKey = iota
	ctxKind
)

// ErrUnauthenticated is returned when no principal is attached to the request.
var ErrUnauthenticated = errors.New("unauthenticated")

func WithPrincipal(ctx context.Context, principalID, kind string) context.Context {
	ctx = context.WithValue(ctx, ctxPrincipalID, principalID)
	ctx = context.WithValue(ctx, ctxKind, kind)
	return ctx
}

func PrincipalID(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxPrincipalID).(string); ok && s != "" {
		return s, nil
	}
	return "", ErrUnauthenticated
}

func Kind(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxKind).(string); ok && s != "" {
		return s, nil
	}
	return "", ErrUnauthenticated
}
