package knowledge

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

const defaultScenarioID = "unknown"

// Scenario is an interview scenario definition. Fields not used for
// retrieval (personas, observer metrics) are ignored.
type Scenario struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Domain         string `json:"domain"`
	Difficulty     string `json:"difficulty"`
	Context        string `json:"context"`
	InitialProblem string `json:"initial_problem"`
}

// ParseScenario reads a scenario definition. Any JSON object is accepted:
// scalar fields may be strings or numbers and missing fields are left
// empty.
func ParseScenario(raw []byte) (Scenario, error) {
	if !gjson.ValidBytes(raw) {
		return Scenario{}, fmt.Errorf("%w: scenario is not valid JSON", ErrParse)
	}

	return scenarioFrom(gjson.ParseBytes(raw))
}

func scenarioFrom(rec gjson.Result) (Scenario, error) {
	if !rec.IsObject() {
		return Scenario{}, fmt.Errorf("%w: scenario must be a JSON object", ErrParse)
	}

	return Scenario{
		ID:             rec.Get("id").String(),
		Title:          rec.Get("title").String(),
		Domain:         rec.Get("domain").String(),
		Difficulty:     rec.Get("difficulty").String(),
		Context:        rec.Get("context").String(),
		InitialProblem: rec.Get("initial_problem").String(),
	}, nil
}

func (s Scenario) Text() string {
	fields := []struct {
		label string
		value string
	}{
		{"Interview Scenario", s.Title},
		{"Domain", s.Domain},
		{"Difficulty", s.Difficulty},
		{"Context", s.Context},
		{"Problem", s.InitialProblem},
	}

	var sentences []string
	for _, f := range fields {
		if f.value != "" {
			sentences = append(sentences, fmt.Sprintf("%s: %s.", f.label, f.value))
		}
	}

	return strings.Join(sentences, " ")
}

func ScenarioDocID(id string) string {
	return "scenario_" + or(id, defaultScenarioID)
}

// IndexScenario indexes the scenario as scenario_<id>.
func (e *Engine) IndexScenario(s Scenario) error {
	return e.index(sourceScenario, ScenarioDocID(s.ID), s.Text())
}
