// Package auth contains the session providers of the client: a local one
// backed by the SQLite roster and a remote one backed by the identity
// gateway. Both announce session changes through a Broadcaster.
package auth

import (
	"context"

	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
)

// Handler receives the signed-in identity, or nil after sign-out.
type Handler func(id models.Identity)

// Provider authenticates users. Every successful sign-in, sign-up and
// restore, and every sign-out, is also published to OnSessionChange
// subscribers, asynchronously and in order.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (models.Identity, error)
	SignUp(ctx context.Context, email, password, name string) (models.Identity, error)
	// FederatedLoginURL returns the Google consent URL for state.
	FederatedLoginURL(state string) (string, error)
	// SignInWithFederated completes Google sign-in with the pasted redirect
	// URL or code. Cancellation returns common.ErrUserCancelled.
	SignInWithFederated(ctx context.Context, callback string) (models.Identity, error)
	SignOut(ctx context.Context) error
	// Restore resumes a previous session. It returns nil, nil when there is
	// none.
	Restore(ctx context.Context) (models.Identity, error)
	OnSessionChange(h Handler) (unsubscribe func())
	Close() error
}
