package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aquemenida/caliope-ai-studio/internal/client/ai"
	"github.com/aquemenida/caliope-ai-studio/internal/client/gamification"
	"github.com/aquemenida/caliope-ai-studio/internal/client/media"
	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
	"github.com/aquemenida/caliope-ai-studio/internal/client/profile"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
	"github.com/aquemenida/caliope-ai-studio/internal/logging"
)

const MsgJournalIncomplete = "Por favor, añade una imagen y describe tu momento."

// ErrJournalIncomplete is returned when the image or the text is missing.
var ErrJournalIncomplete = fmt.Errorf("%w: %s", common.ErrInvalidArgument, MsgJournalIncomplete)

type JournalSubmission struct {
	Image    []byte
	MimeType string
	Text     string
}

// Journal saves visual journal entries: the AI reflects on the image and
// text, the image is stored and the entry is prepended to the journal.
type Journal struct {
	ai        ai.Collaborator
	uploader  media.Uploader
	store     *profile.Store
	mutations *Mutations
	notifier  gamification.Notifier
	logger    logging.Logger
}

// NewJournal uses uploader for persistent sessions. Demo sessions and
// failed uploads fall back to an embedded data URL.
func NewJournal(collab ai.Collaborator, uploader media.Uploader, store *profile.Store, m *Mutations, n gamification.Notifier, l logging.Logger) *Journal {
	if uploader == nil {
		uploader = media.DataURLUploader{}
	}
	return &Journal{ai: collab, uploader: uploader, store: store, mutations: m, notifier: n, logger: l.With("module", "journal")}
}

func (j *Journal) Save(ctx context.Context, in JournalSubmission) (models.JournalEntry, error) {
	text := strings.TrimSpace(in.Text)
	if len(in.Image) == 0 || text == "" {
		return models.JournalEntry{}, ErrJournalIncomplete
	}
	if len(in.Image) > media.MaxImageSize {
		return models.JournalEntry{}, fmt.Errorf("%w: image larger than 4 MB", common.ErrInvalidArgument)
	}
	mode, cur := j.store.Snapshot()
	if cur == nil {
		return models.JournalEntry{}, common.ErrNoActiveSession
	}

	analysis, err := j.ai.AnalyzeJournalEntry(ctx, in.Image, in.MimeType, text)
	if err != nil {
		j.logger.Warn(ctx, "journal analysis failed", "error", err)
		j.notifier.Notify(common.UserMessage(err), models.KindError)
		return models.JournalEntry{}, err
	}

	url, err := j.storeImage(ctx, mode, in)
	if err != nil {
		return models.JournalEntry{}, err
	}

	entry, err := j.mutations.AddJournalEntry(ctx, JournalInput{ImageURL: url, UserText: text, AIAnalysis: analysis})
	if err != nil {
		return models.JournalEntry{}, err
	}
	return entry, nil
}

func (j *Journal) storeImage(ctx context.Context, mode profile.Mode, in JournalSubmission) (string, error) {
	inline := media.DataURLUploader{}
	if mode == profile.Demo {
		return inline.Upload(ctx, in.Image, in.MimeType)
	}
	url, err := j.uploader.Upload(ctx, in.Image, in.MimeType)
	if err == nil {
		return url, nil
	}
	if errors.Is(err, common.ErrInvalidArgument) {
		return "", err
	}
	j.logger.Warn(ctx, "image upload failed, embedding it", "error", err)
	return inline.Upload(ctx, in.Image, in.MimeType)
}
