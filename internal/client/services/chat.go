package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/aquemenida/caliope-ai-studio/internal/client/ai"
	"github.com/aquemenida/caliope-ai-studio/internal/client/gamification"
	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
	"github.com/aquemenida/caliope-ai-studio/internal/client/profile"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"github.com/aquemenida/caliope-ai-studio/internal/logging"
)

// Chat keeps one AI conversation per signed-in profile. A new profile, or
// a new session of the same one, starts a new conversation.
type Chat struct {
	ai        ai.Collaborator
	store     *profile.Store
	mutations *Mutations
	notifier  gamification.Notifier
	logger    logging.Logger

	mu      sync.Mutex
	conv    ai.Conversation
	owner   models.ProfileID
	ownMode profile.Mode
}

func NewChat(collab ai.Collaborator, store *profile.Store, m *Mutations, n gamification.Notifier, l logging.Logger) *Chat {
	return &Chat{ai: collab, store: store, mutations: m, notifier: n, logger: l.With("module", "chat")}
}

func (c *Chat) conversation(mode profile.Mode, p *models.Profile) ai.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conv == nil || c.owner != p.ID || c.ownMode != mode {
		c.conv = c.ai.NewConversation(p)
		c.owner, c.ownMode = p.ID, mode
	}
	return c.conv
}

// Reset drops the conversation, e.g. after logout.
func (c *Chat) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conv = nil
	c.owner = ""
}

// Send asks for recommendations. A reply with recommendations is recorded
// in the history. Failures are notified and returned.
func (c *Chat) Send(ctx context.Context, message string) (ai.Reply, error) {
	mode, p := c.store.Snapshot()
	if p == nil {
		return ai.Reply{}, common.ErrNoActiveSession
	}

	reply, err := c.conversation(mode, p).SendMessage(ctx, message)
	if err != nil {
		c.logger.Warn(ctx, "chat message failed", "error", err)
		c.notifier.Notify(common.UserMessage(err), models.KindError)
		return ai.Reply{}, err
	}

	if len(reply.Recommendations) > 0 {
		if err := c.mutations.AddHistory(ctx, message, reply.Recommendations); err != nil {
			c.logger.Warn(ctx, "history not recorded", "error", err)
		}
		c.notifier.Notify(fmt.Sprintf("Encontré %d sugerencias para ti.", len(reply.Recommendations)), models.KindSuccess)
	}
	return reply, nil
}
