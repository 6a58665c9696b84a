package recommend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

func parseResponse(raw string) (*Recommendation, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, errors.New("empty response")
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if data == nil {
		return nil, errors.New("response is not a json object")
	}

	rec := &Recommendation{
		NumPeople:     1,
		EstimatedRate: defaultRate,
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           rec,
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}

	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("decode recommendation: %w", err)
	}

	normalize(rec)
	rec.Source = SourceRemote

	return rec, nil
}

func normalize(rec *Recommendation) {
	if rec.NumPeople < 1 {
		rec.NumPeople = 1
	}
	if rec.Specialties == nil {
		rec.Specialties = []string{}
	}
	if rec.Components == nil {
		rec.Components = []string{}
	}
	if rec.Tasks == nil {
		rec.Tasks = []Task{}
	}
	for i := range rec.Tasks {
		if rec.Tasks[i].Specialties == nil {
			rec.Tasks[i].Specialties = []string{}
		}
	}
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
