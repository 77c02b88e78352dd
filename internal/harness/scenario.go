package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/lore/internal/eval"
	"github.com/roach88/lore/internal/ir"
)

// Scenario defines an end-to-end engine test: the world it runs in
// (game state, candidate pool, relationship seeds), the sequence of
// engine operations to perform, and assertions on the outcomes.
type Scenario struct {
	// Name uniquely identifies the scenario. Golden files are keyed by it.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Seed fixes the evaluator's random source for deterministic runs.
	Seed uint64 `yaml:"seed,omitempty"`

	// State is the game state snapshot every step evaluates against.
	State ir.GameState `yaml:"state"`

	// BehaviorScores, Positions, and LastEventTurn are the evaluation
	// side channels that are not part of the state snapshot shape.
	BehaviorScores map[string]float64       `yaml:"behavior_scores,omitempty"`
	Positions      map[string]eval.Position `yaml:"positions,omitempty"`
	LastEventTurn  map[string]int           `yaml:"last_event_turn,omitempty"`

	// Candidates is the entity pool queries draw from. Entries use the
	// candidate JSON field names; conditions use the tagged-union shape.
	Candidates []yaml.Node `yaml:"candidates,omitempty"`

	// Relationships seed the graph before any step runs.
	Relationships []yaml.Node `yaml:"relationships,omitempty"`

	// Steps are the engine operations, executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate step outcomes after the full sequence ran.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is a single engine operation.
type Step struct {
	// Op selects the operation. See the Op* constants.
	Op string `yaml:"op"`

	// Entity is the subject for evaluate, check_availability, analyze.
	Entity string `yaml:"entity,omitempty"`

	// Conditions gate evaluate and check_availability steps.
	Conditions []yaml.Node `yaml:"conditions,omitempty"`

	// Filter drives query steps. Uses the query filter JSON field names.
	Filter yaml.Node `yaml:"filter,omitempty"`

	// Query tuning for query and recommend steps.
	MaxResults    int    `yaml:"max_results,omitempty"`
	SortBy        string `yaml:"sort_by,omitempty"`
	ExpandRelated bool   `yaml:"expand_related,omitempty"`

	// Kind selects the entity kind for recommend steps.
	Kind string `yaml:"kind,omitempty"`

	// From, To, and MaxHops drive find_path steps.
	From    string `yaml:"from,omitempty"`
	To      string `yaml:"to,omitempty"`
	MaxHops int    `yaml:"max_hops,omitempty"`

	// Relationship is the edge payload for add_relationship steps.
	Relationship yaml.Node `yaml:"relationship,omitempty"`

	// Type is the relationship type for remove_relationship steps.
	Type string `yaml:"type,omitempty"`
}

// Step operation constants.
const (
	OpEvaluate           = "evaluate"
	OpQuery              = "query"
	OpRecommend          = "recommend"
	OpCheckAvailability  = "check_availability"
	OpAnalyze            = "analyze"
	OpFindPath           = "find_path"
	OpAddRelationship    = "add_relationship"
	OpRemoveRelationship = "remove_relationship"
)

var validOps = map[string]bool{
	OpEvaluate:           true,
	OpQuery:              true,
	OpRecommend:          true,
	OpCheckAvailability:  true,
	OpAnalyze:            true,
	OpFindPath:           true,
	OpAddRelationship:    true,
	OpRemoveRelationship: true,
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so typos surface as load errors instead of silently
// dropped configuration.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML bytes.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, len(s.Steps)); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *Step) error {
	if step.Op == "" {
		return fmt.Errorf("steps[%d]: op is required", index)
	}
	if !validOps[step.Op] {
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	switch step.Op {
	case OpEvaluate, OpCheckAvailability, OpAnalyze:
		if step.Entity == "" {
			return fmt.Errorf("steps[%d]: entity is required for %s", index, step.Op)
		}
	case OpRecommend:
		if step.Kind == "" {
			return fmt.Errorf("steps[%d]: kind is required for recommend", index)
		}
	case OpFindPath:
		if step.From == "" || step.To == "" {
			return fmt.Errorf("steps[%d]: from and to are required for find_path", index)
		}
	case OpAddRelationship:
		if step.Relationship.IsZero() {
			return fmt.Errorf("steps[%d]: relationship is required for add_relationship", index)
		}
	case OpRemoveRelationship:
		if step.From == "" || step.To == "" || step.Type == "" {
			return fmt.Errorf("steps[%d]: from, to, and type are required for remove_relationship", index)
		}
	}
	return nil
}

// decodeJSONShaped converts a YAML node to a value whose Go type uses
// JSON struct tags, going through a JSON round-trip so tagged-union
// conditions decode through their codec.
func decodeJSONShaped(node yaml.Node, out any) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	jsonBytes, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonBytes, out)
}

// decodeConditions converts step condition nodes to conditions via the
// tagged-union decoder.
func decodeConditions(nodes []yaml.Node) ([]ir.Condition, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	raw := make([]any, len(nodes))
	for i, node := range nodes {
		if err := node.Decode(&raw[i]); err != nil {
			return nil, fmt.Errorf("conditions[%d]: %w", i, err)
		}
	}
	jsonBytes, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	return ir.UnmarshalConditions(jsonBytes)
}
