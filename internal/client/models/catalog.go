package models

type WellnessService struct {
	ID          int      `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Category    string   `json:"category" yaml:"category"`
	Description string   `json:"description" yaml:"description"`
	Price       string   `json:"price" yaml:"price"`
	Image       string   `json:"image" yaml:"image"`
	Keywords    []string `json:"keywords" yaml:"keywords"`
	Rating      float64  `json:"rating" yaml:"rating"`
	Popularity  int      `json:"popularity" yaml:"popularity"`
}

// Recommendation is a catalog service plus the AI's reason for it. The
// reason is not written back to the catalog.
type Recommendation struct {
	WellnessService
	Reason string `json:"reason"`
}

type Achievement struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
}

type FocusArea struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
}

type NotificationKind string

const (
	KindSuccess NotificationKind = "success"
	KindError   NotificationKind = "error"
	KindInfo    NotificationKind = "info"
)
