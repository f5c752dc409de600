package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/aquemenida/caliope-ai-studio/internal/client/catalog"
	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
	"github.com/aquemenida/caliope-ai-studio/internal/common"
)

const (
	IntroFound    = "¡Claro! Basado en lo que me cuentas, he encontrado algunas opciones que creo que te encantarán:"
	IntroNotFound = "No he encontrado recomendaciones específicas para eso. ¿Podrías darme más detalles o intentarlo de otra manera?"
)

// Collaborator is what the session services need from the AI.
type Collaborator interface {
	NewConversation(p *models.Profile) Conversation
	DailyTip(ctx context.Context) (string, error)
	// ProactiveSuggestion never fails; a fallback sentence replaces errors.
	ProactiveSuggestion(ctx context.Context, p *models.Profile) string
	AnalyzeJournalEntry(ctx context.Context, image []byte, mimeType, text string) (string, error)
}

type Conversation interface {
	SendMessage(ctx context.Context, message string) (Reply, error)
}

type Reply struct {
	Text            string
	Recommendations []models.Recommendation
}

var _ Collaborator = (*Gemini)(nil)

// FallbackSuggestion is used when the suggestion cannot be generated.
func FallbackSuggestion(name string) string {
	return fmt.Sprintf("¡Que tengas un día excelente, %s! Recuerda tomar un momento para ti.", name)
}

type conversation struct {
	g      *Gemini
	system content

	mu      sync.Mutex
	history []content
}

// NewConversation starts a chat bound to the profile as it is now. Later
// profile changes are not seen by the conversation.
func (g *Gemini) NewConversation(p *models.Profile) Conversation {
	return &conversation{
		g:      g,
		system: content{Parts: []part{{Text: systemInstruction(p, g.catalog)}}},
	}
}

type recommendationsPayload struct {
	Recommendations []struct {
		ID     int    `json:"id"`
		Reason string `json:"reason"`
	} `json:"recommendations"`
}

func (c *conversation) SendMessage(ctx context.Context, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, fmt.Errorf("%w: empty message", common.ErrInvalidArgument)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	user := content{Role: "user", Parts: []part{{Text: message}}}
	contents := append(append([]content(nil), c.history...), user)
	text, err := c.g.generate(ctx, generateRequest{
		SystemInstruction: &c.system,
		Contents:          contents,
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   recommendationSchema,
		},
	})
	if err != nil {
		return Reply{}, err
	}

	var payload recommendationsPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return Reply{}, fmt.Errorf("%w: decode recommendations: %v", common.ErrUpstreamFailure, err)
	}
	c.history = append(contents, content{Role: "model", Parts: []part{{Text: text}}})

	recs := resolve(c.g.catalog, payload)
	reply := Reply{Text: IntroNotFound, Recommendations: recs}
	if len(recs) > 0 {
		reply.Text = IntroFound
	}
	return reply, nil
}

// resolve maps recommended ids to catalog services, dropping unknown ids.
func resolve(cat *catalog.Catalog, payload recommendationsPayload) []models.Recommendation {
	recs := make([]models.Recommendation, 0, len(payload.Recommendations))
	for _, r := range payload.Recommendations {
		svc, ok := cat.Service(r.ID)
		if !ok {
			continue
		}
		recs = append(recs, models.Recommendation{WellnessService: svc, Reason: r.Reason})
	}
	return recs
}

func (g *Gemini) DailyTip(ctx context.Context) (string, error) {
	return g.generate(ctx, generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: dailyTipPrompt}}}},
		GenerationConfig: &generationConfig{Temperature: temperature(0.8)},
	})
}

func (g *Gemini) ProactiveSuggestion(ctx context.Context, p *models.Profile) string {
	text, err := g.generate(ctx, generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: suggestionPrompt(p, g.catalog)}}}},
		GenerationConfig: &generationConfig{Temperature: temperature(0.7)},
	})
	if err != nil {
		g.logger.Warn(ctx, "proactive suggestion failed", "error", err)
		return FallbackSuggestion(p.Name)
	}
	return text
}

func (g *Gemini) AnalyzeJournalEntry(ctx context.Context, image []byte, mimeType, text string) (string, error) {
	if len(image) == 0 || strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: image and text are required", common.ErrInvalidArgument)
	}
	return g.generate(ctx, generateRequest{
		Contents: []content{{Role: "user", Parts: []part{
			{InlineData: &inlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
			{Text: journalPrompt(text)},
		}}},
	})
}
