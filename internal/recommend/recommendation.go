package recommend

import (
	"context"
	"encoding/json"
)

const (
	SourceHeuristic = "heuristic"
	SourceRemote    = "remote"
)

// ProhibitedMessage is returned instead of a recommendation when the
// description mentions denied content.
const ProhibitedMessage = "This request involves prohibited content (weapons, explosives or drugs) and cannot be staffed."

// Recommendation is a staffing estimate derived from a posting description.
// When Prohibited is set only Message is meaningful, and only those two fields
// are encoded.
type Recommendation struct {
	Prohibited bool   `json:"prohibited,omitempty" mapstructure:"-"`
	Message    string `json:"message,omitempty" mapstructure:"-"`

	Specialties   []string `json:"specialties" mapstructure:"specialties"`
	NumPeople     int      `json:"num_people" mapstructure:"num_people"`
	EstimatedRate float64  `json:"estimated_rate" mapstructure:"estimated_rate"`
	Components    []string `json:"components" mapstructure:"components"`
	EstimatedTime int      `json:"estimated_time" mapstructure:"estimated_time"`
	Tasks         []Task   `json:"tasks" mapstructure:"tasks"`

	Source string `json:"source,omitempty" mapstructure:"-"`
}

type prohibitedView struct {
	Prohibited bool   `json:"prohibited"`
	Message    string `json:"message"`
}

func (r Recommendation) MarshalJSON() ([]byte, error) {
	if r.Prohibited {
		return json.Marshal(prohibitedView{Prohibited: true, Message: r.Message})
	}

	type plain Recommendation
	return json.Marshal(plain(r))
}

type Task struct {
	Description   string   `json:"description" mapstructure:"description"`
	Specialties   []string `json:"specialties" mapstructure:"specialties"`
	NumPeople     int      `json:"num_people" mapstructure:"num_people"`
	EstimatedTime int      `json:"estimated_time" mapstructure:"estimated_time"`
}

// TextCompletionProvider is a remote text-completion backend.
type TextCompletionProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
	// Probe checks that the backend is reachable with the configured credential.
	Probe(ctx context.Context) error
}
