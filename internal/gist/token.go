package gist

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/hpungsan/harbor/internal/errors"
	"github.com/hpungsan/harbor/internal/workspace"
)

// SaveToken stores the access token under workspace.KeyToken. The value is
// written in cleartext, readable by anyone who can read the store.
func SaveToken(ctx context.Context, store workspace.Store, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.NewInvalidRequest("token is required")
	}
	log.Printf("warning: GitHub token is stored unencrypted in the local store")
	if err := store.Save(ctx, workspace.KeyToken, token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// LoadToken returns the stored token, or "" when none is stored.
func LoadToken(ctx context.Context, store workspace.Store) (string, error) {
	token, ok, err := store.Load(ctx, workspace.KeyToken)
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	if !ok {
		return "", nil
	}
	return strings.TrimSpace(token), nil
}

// ResolveToken picks the first non-empty of explicit, env and the stored
// token. A missing token is UNAUTHORIZED.
func ResolveToken(ctx context.Context, store workspace.Store, explicit, env string) (string, error) {
	for _, t := range []string{explicit, env} {
		if t = strings.TrimSpace(t); t != "" {
			return t, nil
		}
	}
	token, err := LoadToken(ctx, store)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", errors.NewUnauthorized("GitHub token is required")
	}
	return token, nil
}
