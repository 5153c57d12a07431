package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxSubjectID ctxKey = iota
	ctxRole
)

func WithIdentity(ctx context.Context, subjectID, role string) context.Context {
	ctx = context.WithValue(ctx, ctxSubjectID, subjectID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return ctx
}

func SubjectID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxSubjectID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("subject_id not in context")
}

func Role(ctx context.Context) (string, error) {
	v := ctx.Value(ctxRole)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("role not in context")
}
