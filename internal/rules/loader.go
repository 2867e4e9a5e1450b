package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapdash/internal/query"
	"github.com/leapstack-labs/leapdash/internal/semtype"
	"gopkg.in/yaml.v3"
)

// DefaultMaxScore is the score ceiling applied when a rule declares none.
const DefaultMaxScore = 100

// ParseError represents a rule parsing error.
type ParseError struct {
	File    string
	Message string
}

func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return e.Message
}

// UnknownFieldError represents an unknown field in a rule file.
type UnknownFieldError struct {
	File  string
	Field string
}

func (e *UnknownFieldError) Error() string {
	msg := fmt.Sprintf("unknown field %q in rule", e.Field)
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, msg)
	}
	return msg
}

// ruleYAML mirrors the on-disk rule shape. Sections are lists of
// single-key maps so declaration order is preserved and identifiers may
// repeat for overloaded definitions.
type ruleYAML struct {
	TableType   string                 `yaml:"table_type"`
	Title       string                 `yaml:"title"`
	Description string                 `yaml:"description"`
	MaxScore    int                    `yaml:"max_score"`
	Dimensions  []map[string]yaml.Node `yaml:"dimensions"`
	Metrics     []map[string]yaml.Node `yaml:"metrics"`
	Filters     []map[string]yaml.Node `yaml:"filters"`
	Cards       []map[string]yaml.Node `yaml:"cards"`
}

type dimensionYAML struct {
	FieldType   []string `yaml:"field_type"`
	Named       string   `yaml:"named"`
	LinksTo     string   `yaml:"links_to"`
	Aggregation string   `yaml:"aggregation"`
	Score       int      `yaml:"score"`
}

type metricYAML struct {
	Metric any `yaml:"metric"`
	Score  int `yaml:"score"`
}

type filterYAML struct {
	Filter any `yaml:"filter"`
	Score  int `yaml:"score"`
}

type cardYAML struct {
	Title         string              `yaml:"title"`
	Description   string              `yaml:"description"`
	Visualization yaml.Node           `yaml:"visualization"`
	Dimensions    []string            `yaml:"dimensions"`
	Metrics       []string            `yaml:"metrics"`
	Filters       []string            `yaml:"filters"`
	Query         string              `yaml:"query"`
	Limit         int                 `yaml:"limit"`
	OrderBy       []map[string]string `yaml:"order_by"`
	Score         int                 `yaml:"score"`
}

var (
	ruleFields      = knownFields("table_type", "title", "description", "max_score", "dimensions", "metrics", "filters", "cards")
	dimensionFields = knownFields("field_type", "named", "links_to", "aggregation", "score")
	metricFields    = knownFields("metric", "score")
	filterFields    = knownFields("filter", "score")
	cardFields      = knownFields("title", "description", "visualization", "dimensions", "metrics", "filters", "query", "limit", "order_by", "score")
)

func knownFields(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// ParseRule parses a single rule file. Unknown fields are errors.
func ParseRule(name string, data []byte) (*Rule, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{File: name, Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	for field := range raw {
		if !ruleFields[field] {
			return nil, &UnknownFieldError{File: name, Field: field}
		}
	}

	var y ruleYAML
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, &ParseError{File: name, Message: fmt.Sprintf("failed to parse rule: %v", err)}
	}
	if y.TableType == "" {
		return nil, &ParseError{File: name, Message: "rule is missing table_type"}
	}
	if y.MaxScore == 0 {
		y.MaxScore = DefaultMaxScore
	}
	if y.MaxScore < 0 {
		return nil, &ParseError{File: name, Message: "max_score must be positive"}
	}

	rule := &Rule{
		Name:        name,
		TableType:   semtype.Type(y.TableType),
		Title:       y.Title,
		Description: y.Description,
		MaxScore:    y.MaxScore,
		Metrics:     make(map[string][]*MetricDef),
		Filters:     make(map[string][]*FilterDef),
	}

	for _, entry := range y.Dimensions {
		id, node, err := singleEntry(name, entry, "dimensions")
		if err != nil {
			return nil, err
		}
		def, err := parseDimension(name, id, node)
		if err != nil {
			return nil, err
		}
		rule.Dimensions = append(rule.Dimensions, NamedDimension{ID: id, Def: def})
	}

	for _, entry := range y.Metrics {
		id, node, err := singleEntry(name, entry, "metrics")
		if err != nil {
			return nil, err
		}
		var my metricYAML
		if err := decodeStrict(name, node, metricFields, &my); err != nil {
			return nil, err
		}
		expr, err := query.ParseForm(my.Metric)
		if err != nil {
			return nil, &ParseError{File: name, Message: fmt.Sprintf("metric %s: %v", id, err)}
		}
		rule.Metrics[id] = append(rule.Metrics[id], &MetricDef{Metric: expr, Score: my.Score})
	}

	for _, entry := range y.Filters {
		id, node, err := singleEntry(name, entry, "filters")
		if err != nil {
			return nil, err
		}
		var fy filterYAML
		if err := decodeStrict(name, node, filterFields, &fy); err != nil {
			return nil, err
		}
		expr, err := query.ParseForm(fy.Filter)
		if err != nil {
			return nil, &ParseError{File: name, Message: fmt.Sprintf("filter %s: %v", id, err)}
		}
		rule.Filters[id] = append(rule.Filters[id], &FilterDef{Filter: expr, Score: fy.Score})
	}

	for _, entry := range y.Cards {
		id, node, err := singleEntry(name, entry, "cards")
		if err != nil {
			return nil, err
		}
		spec, err := parseCard(name, id, node)
		if err != nil {
			return nil, err
		}
		rule.Cards = append(rule.Cards, NamedCard{ID: id, Spec: spec})
	}

	return rule, nil
}

func singleEntry(file string, entry map[string]yaml.Node, section string) (string, yaml.Node, error) {
	if len(entry) != 1 {
		return "", yaml.Node{}, &ParseError{
			File:    file,
			Message: fmt.Sprintf("%s entries must have exactly one identifier, got %d", section, len(entry)),
		}
	}
	for id, node := range entry {
		return id, node, nil
	}
	panic("unreachable")
}

func decodeStrict(file string, node yaml.Node, known map[string]bool, out any) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return &ParseError{File: file, Message: fmt.Sprintf("invalid definition: %v", err)}
	}
	for field := range raw {
		if !known[field] {
			return &UnknownFieldError{File: file, Field: field}
		}
	}
	if err := node.Decode(out); err != nil {
		return &ParseError{File: file, Message: fmt.Sprintf("invalid definition: %v", err)}
	}
	return nil
}

func parseDimension(file, id string, node yaml.Node) (*DimensionDef, error) {
	var dy dimensionYAML
	if err := decodeStrict(file, node, dimensionFields, &dy); err != nil {
		return nil, err
	}
	if len(dy.FieldType) < 1 || len(dy.FieldType) > 2 {
		return nil, &ParseError{
			File:    file,
			Message: fmt.Sprintf("dimension %s: field_type must have one or two elements, got %d", id, len(dy.FieldType)),
		}
	}

	def := &DimensionDef{
		FieldType:   dy.FieldType,
		Named:       dy.Named,
		LinksTo:     semtype.Type(dy.LinksTo),
		Aggregation: dy.Aggregation,
		Score:       dy.Score,
	}
	if dy.Named != "" {
		re, err := regexp.Compile("(?i)" + dy.Named)
		if err != nil {
			return nil, &ParseError{File: file, Message: fmt.Sprintf("dimension %s: invalid named pattern: %v", id, err)}
		}
		def.named = re
	}
	return def, nil
}

func parseCard(file, id string, node yaml.Node) (*CardSpec, error) {
	var cy cardYAML
	if err := decodeStrict(file, node, cardFields, &cy); err != nil {
		return nil, err
	}

	spec := &CardSpec{
		Title:       cy.Title,
		Description: cy.Description,
		Dimensions:  cy.Dimensions,
		Metrics:     cy.Metrics,
		Filters:     cy.Filters,
		Query:       cy.Query,
		Limit:       cy.Limit,
		Score:       cy.Score,
	}

	if !cy.Visualization.IsZero() {
		viz, err := parseVisualization(file, id, cy.Visualization)
		if err != nil {
			return nil, err
		}
		spec.Visualization = viz
	}

	for _, ob := range cy.OrderBy {
		if len(ob) != 1 {
			return nil, &ParseError{
				File:    file,
				Message: fmt.Sprintf("card %s: order_by entries must have exactly one identifier", id),
			}
		}
		for obID, direction := range ob {
			if direction != query.Ascending && direction != query.Descending {
				return nil, &ParseError{
					File:    file,
					Message: fmt.Sprintf("card %s: order_by direction must be %q or %q, got %q", id, query.Ascending, query.Descending, direction),
				}
			}
			spec.OrderBy = append(spec.OrderBy, OrderBySpec{ID: obID, Direction: direction})
		}
	}

	return spec, nil
}

// parseVisualization accepts either a bare chart type ("line") or a
// single-key map of chart type to settings.
func parseVisualization(file, id string, node yaml.Node) (*Visualization, error) {
	var s string
	if err := node.Decode(&s); err == nil {
		return &Visualization{Type: s}, nil
	}

	var m map[string]map[string]any
	if err := node.Decode(&m); err != nil || len(m) != 1 {
		return nil, &ParseError{
			File:    file,
			Message: fmt.Sprintf("card %s: visualization must be a chart type or a single-key settings map", id),
		}
	}
	for vizType, settings := range m {
		return &Visualization{Type: vizType, Settings: settings}, nil
	}
	panic("unreachable")
}

// LoadDir loads every *.yaml rule file in dir, non-recursively. The rule
// name is the file name without extension. Files named
// ga_dimensions.yaml extend the GA dimension literal set instead of
// defining a rule.
func LoadDir(dir string) ([]*Rule, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rules directory: %w", err)
	}

	var rules []*Rule
	var gaDims []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ext)

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read rule file %s: %w", entry.Name(), err)
		}

		if name == "ga_dimensions" {
			dims, err := parseGADimensions(name, data)
			if err != nil {
				return nil, nil, err
			}
			gaDims = append(gaDims, dims...)
			continue
		}

		rule, err := ParseRule(name, data)
		if err != nil {
			return nil, nil, err
		}
		rules = append(rules, rule)
	}

	sort.Slice(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })
	return rules, gaDims, nil
}

func parseGADimensions(file string, data []byte) ([]string, error) {
	var y struct {
		GADimensions []string `yaml:"ga_dimensions"`
	}
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, &ParseError{File: file, Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	return y.GADimensions, nil
}
