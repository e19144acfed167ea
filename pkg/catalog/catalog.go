package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	MinLevel = 1
	MaxLevel = 5
)

var ErrUnknownDisease = errors.New("unknown disease")

type Severity struct {
	Level int    `yaml:"level" json:"level"`
	Name  string `yaml:"name" json:"name"`
}

type Disease struct {
	ID          uint     `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Symptoms    []string `yaml:"symptoms" json:"symptoms"`
	Precautions string   `yaml:"precautions" json:"precautions"`
	HighRisk    bool     `yaml:"high_risk" json:"high_risk"`
}

// Catalog is the reference data for diseases and severity levels. It is
// loaded once and shared read-only.
type Catalog struct {
	Severities []Severity `yaml:"severities" json:"severities"`
	Diseases   []Disease  `yaml:"diseases" json:"diseases"`
}

func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Validate checks that severities cover levels 1..5 in order and that
// diseases have unique ids and at least one symptom keyword.
func (c *Catalog) Validate() error {
	if len(c.Diseases) == 0 {
		return errors.New("catalog has no diseases")
	}
	if len(c.Severities) != MaxLevel {
		return fmt.Errorf("catalog must define %d severity levels, got %d", MaxLevel, len(c.Severities))
	}
	for i, sev := range c.Severities {
		if sev.Level != i+MinLevel {
			return fmt.Errorf("severity %q has level %d, want %d", sev.Name, sev.Level, i+MinLevel)
		}
		if strings.TrimSpace(sev.Name) == "" {
			return fmt.Errorf("severity level %d has no name", sev.Level)
		}
	}
	seen := make(map[uint]struct{}, len(c.Diseases))
	for _, d := range c.Diseases {
		if d.ID == 0 || strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("disease %q needs an id and a name", d.Name)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("duplicate disease id %d", d.ID)
		}
		seen[d.ID] = struct{}{}
		if len(d.Symptoms) == 0 {
			return fmt.Errorf("disease %q has no symptoms", d.Name)
		}
	}
	return nil
}

func (c *Catalog) Disease(id uint) (Disease, error) {
	for _, d := range c.Diseases {
		if d.ID == id {
			return d, nil
		}
	}
	return Disease{}, fmt.Errorf("disease %d: %w", id, ErrUnknownDisease)
}

func (c *Catalog) DiseaseByName(name string) (Disease, bool) {
	for _, d := range c.Diseases {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return Disease{}, false
}

// SeverityByLevel returns the severity for level, clamped into range.
func (c *Catalog) SeverityByLevel(level int) Severity {
	if level < MinLevel {
		level = MinLevel
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return c.Severities[level-MinLevel]
}

func (c *Catalog) SeverityByName(name string) (Severity, bool) {
	for _, s := range c.Severities {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Severity{}, false
}

func Default() *Catalog {
	return &Catalog{
		Severities: []Severity{
			{Level: 1, Name: "Critical"},
			{Level: 2, Name: "Urgent"},
			{Level: 3, Name: "Medium"},
			{Level: 4, Name: "Low"},
			{Level: 5, Name: "Minimal"},
		},
		Diseases: []Disease{
			{
				ID:          1,
				Name:        "Dengue",
				Symptoms:    []string{"high fever", "severe headache", "pain behind the eyes", "joint and muscle pain", "rash"},
				Precautions: "Rest, stay hydrated, and take acetaminophen for pain. Avoid aspirin and ibuprofen.",
				HighRisk:    true,
			},
			{
				ID:          2,
				Name:        "Measles",
				Symptoms:    []string{"fever", "dry cough", "runny nose", "sore throat", "inflamed eyes", "rash"},
				Precautions: "Rest, stay hydrated, and use humidifier for cough. Isolation recommended.",
			},
			{
				ID:          3,
				Name:        "Skin infection",
				Symptoms:    []string{"redness", "swelling", "warmth", "pain", "pus or drainage"},
				Precautions: "Keep area clean and dry. Apply prescribed topical medications. Cover with sterile bandage.",
			},
			{
				ID:          4,
				Name:        "Diarrhea",
				Symptoms:    []string{"loose watery stools", "abdominal cramps", "nausea", "bloating", "dehydration"},
				Precautions: "Stay hydrated with water and electrolyte solutions. Eat mild foods like rice and bananas.",
			},
			{
				ID:          5,
				Name:        "Tuberculosis",
				Symptoms:    []string{"persistent cough", "chest pain", "weight loss", "night sweats", "fatigue"},
				Precautions: "Complete isolation and full course of prescribed antibiotics. Regular medical follow-up.",
				HighRisk:    true,
			},
		},
	}
}
