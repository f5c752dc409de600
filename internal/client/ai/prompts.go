package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aquemenida/caliope-ai-studio/internal/client/catalog"
	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
)

const notSpecified = "No especificado"

const dailyTipPrompt = "Dame un consejo de bienestar corto y accionable para el día de hoy. Sé conciso y positivo. No más de 25 palabras."

var recommendationSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"recommendations": map[string]any{
			"type": "ARRAY",
			"items": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"id":     map[string]any{"type": "INTEGER"},
					"reason": map[string]any{"type": "STRING"},
				},
				"required": []string{"id", "reason"},
			},
		},
	},
	"required": []string{"recommendations"},
}

const (
	coachPersona   = "Eres Caliope, una coach de bienestar experta y proactiva. Usa el historial y las metas del usuario para guiarle a largo plazo."
	curatorPersona = "Eres Caliope, una curadora de bienestar amable y empática. Recomienda los servicios que mejor se ajusten a lo que el usuario cuenta."
)

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return notSpecified
	}
	return s
}

func goalName(p *models.Profile, cat *catalog.Catalog) string {
	if fa, ok := cat.FocusArea(p.GoalID); ok {
		return fa.Name
	}
	return ""
}

func systemInstruction(p *models.Profile, cat *catalog.Catalog) string {
	persona := curatorPersona
	if p.IsPremium() {
		persona = coachPersona
	}
	services, _ := json.Marshal(cat.Services)

	var sb strings.Builder
	sb.WriteString(persona)
	sb.WriteString("\n\nResponde solo con un objeto JSON que cumpla el esquema. Elige de 2 a 3 servicios de la lista, ")
	sb.WriteString("con una razón breve para cada uno. Si ninguno encaja devuelve {\"recommendations\": []}. No inventes servicios.\n\n")
	fmt.Fprintf(&sb, "- Nombre: %s\n", p.Name)
	fmt.Fprintf(&sb, "- Nivel de Membresía: %s\n", p.Membership)
	fmt.Fprintf(&sb, "- Metas de bienestar: %s\n", orNotSpecified(goalName(p, cat)))
	fmt.Fprintf(&sb, "- Biografía/Intereses: %s\n\n", orNotSpecified(p.Bio))
	sb.WriteString("Servicios disponibles:\n")
	sb.Write(services)
	return sb.String()
}

func suggestionPrompt(p *models.Profile, cat *catalog.Catalog) string {
	last := "Ninguna reciente"
	if len(p.History) > 0 {
		last = p.History[0].Query
	}
	return fmt.Sprintf(
		"Eres Caliope, una coach de bienestar. Escribe una sola frase motivadora y accionable para el día de %s. "+
			"No sugieras un servicio concreto.\n- Meta: %s\n- Biografía/Intereses: %s\n- Últimas interacciones: %s",
		p.Name, orNotSpecified(goalName(p, cat)), orNotSpecified(p.Bio), last)
}

func journalPrompt(text string) string {
	return fmt.Sprintf(
		"Eres Caliope, una coach de bienestar empática. Analiza la imagen y los pensamientos del usuario y ofrece una reflexión breve (2-3 frases) y positiva. Pensamientos del usuario: %q",
		text)
}
