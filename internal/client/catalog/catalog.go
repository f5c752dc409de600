// Package catalog exposes the static wellness catalog embedded in the
// binary: services, achievements, level titles, focus areas, membership
// features and the demo seed profile.
package catalog

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/aquemenida/caliope-ai-studio/internal/client/models"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embedded []byte

type Catalog struct {
	Services           []models.WellnessService `yaml:"services"`
	Achievements       []models.Achievement     `yaml:"achievements"`
	LevelNames         []string                 `yaml:"level_names"`
	FocusAreas         []models.FocusArea       `yaml:"focus_areas"`
	MembershipFeatures map[models.Tier][]string `yaml:"membership_features"`
	QuickReplies       []string                 `yaml:"quick_replies"`
	Demo               demoSeed                 `yaml:"demo"`
}

type demoSeed struct {
	ID           string                 `yaml:"id"`
	Name         string                 `yaml:"name"`
	Email        string                 `yaml:"email"`
	Preferences  []string               `yaml:"preferences"`
	GoalID       string                 `yaml:"goal_id"`
	Bio          string                 `yaml:"bio"`
	Experience   int                    `yaml:"experience"`
	Membership   models.Tier            `yaml:"membership"`
	Achievements []string               `yaml:"achievements"`
	Feedback     map[int]models.Verdict `yaml:"feedback"`
	History      []struct {
		DaysAgo         int    `yaml:"days_ago"`
		Query           string `yaml:"query"`
		Recommendations []struct {
			ServiceID int    `yaml:"service_id"`
			Reason    string `yaml:"reason"`
		} `yaml:"recommendations"`
	} `yaml:"history"`
	Appointments []struct {
		ServiceID   int    `yaml:"service_id"`
		ServiceName string `yaml:"service_name"`
		DaysAhead   int    `yaml:"days_ahead"`
		At          string `yaml:"at"`
	} `yaml:"appointments"`
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the embedded catalog. It panics if the embedded document
// is invalid, which can only happen at build time.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(embedded)
		if err != nil {
			panic(fmt.Errorf("embedded catalog: %w", err))
		}
		defaultCat = c
	})
	return defaultCat
}

// Parse decodes a catalog document and checks its internal references.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if len(c.LevelNames) == 0 {
		return nil, fmt.Errorf("catalog has no level names")
	}
	for _, h := range c.Demo.History {
		for _, r := range h.Recommendations {
			if _, ok := c.Service(r.ServiceID); !ok {
				return nil, fmt.Errorf("demo history references unknown service %d", r.ServiceID)
			}
		}
	}
	return &c, nil
}

func (c *Catalog) Service(id int) (models.WellnessService, bool) {
	for _, s := range c.Services {
		if s.ID == id {
			return s, true
		}
	}
	return models.WellnessService{}, false
}

func (c *Catalog) Achievement(id string) (models.Achievement, bool) {
	for _, a := range c.Achievements {
		if a.ID == id {
			return a, true
		}
	}
	return models.Achievement{}, false
}

func (c *Catalog) FocusArea(id string) (models.FocusArea, bool) {
	for _, f := range c.FocusAreas {
		if f.ID == id {
			return f, true
		}
	}
	return models.FocusArea{}, false
}

// LevelName returns the title of level (1-based), clamped to the last one.
func (c *Catalog) LevelName(level int) string {
	switch {
	case level < 1:
		return c.LevelNames[0]
	case level > len(c.LevelNames):
		return c.LevelNames[len(c.LevelNames)-1]
	default:
		return c.LevelNames[level-1]
	}
}

// DemoProfile builds a fresh copy of the demo profile relative to now.
// Every call returns independent data.
func (c *Catalog) DemoProfile(now time.Time) *models.Profile {
	d := c.Demo
	p := models.NewProfile(models.ProfileID(d.ID), d.Email, models.Seed{Name: d.Name}, now)
	p.Preferences = append(p.Preferences, d.Preferences...)
	p.GoalID = d.GoalID
	p.Bio = d.Bio
	p.Experience = d.Experience
	p.Level = d.Experience/100 + 1
	p.Membership = d.Membership
	p.Achievements = append(p.Achievements, d.Achievements...)
	for k, v := range d.Feedback {
		p.Feedback[k] = v
	}

	for _, h := range d.History {
		item := models.HistoryItem{Date: now.AddDate(0, 0, -h.DaysAgo), Query: h.Query}
		for _, r := range h.Recommendations {
			s, _ := c.Service(r.ServiceID)
			s.Keywords = append([]string(nil), s.Keywords...)
			item.Recommendations = append(item.Recommendations, models.Recommendation{WellnessService: s, Reason: r.Reason})
		}
		p.History = append(p.History, item)
	}

	for _, a := range d.Appointments {
		at, err := time.Parse("15:04", a.At)
		if err != nil {
			at = time.Date(0, 1, 1, 9, 0, 0, 0, time.UTC)
		}
		day := now.AddDate(0, 0, a.DaysAhead)
		date := time.Date(day.Year(), day.Month(), day.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
		p.Appointments = append(p.Appointments, models.Appointment{ServiceID: a.ServiceID, ServiceName: a.ServiceName, Date: date})
	}
	return p
}
