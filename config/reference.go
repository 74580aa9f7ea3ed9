package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tsawler/certscore/features"
	"github.com/tsawler/certscore/scoring"
)

// ErrInvalidReference is returned when a reference file does not match the
// expected shape or holds out-of-range values.
var ErrInvalidReference = errors.New("invalid reference file")

// Reference is the on-disk form of the scoring tables. Every section is
// optional; missing sections and keys keep the base policy's values.
type Reference struct {
	Weights            *referenceWeights             `json:"weights,omitempty"`
	GradeThresholds    map[string]float64            `json:"grade_thresholds,omitempty"`
	CertificateWeights map[string]map[string]float64 `json:"certificate_weights,omitempty"`
}

type referenceWeights struct {
	CertificateType *float64 `json:"certificate_type,omitempty"`
	Validity        *float64 `json:"validity,omitempty"`
	Completeness    *float64 `json:"completeness,omitempty"`
	FarmSize        *float64 `json:"farm_size,omitempty"`
	Practices       *float64 `json:"practices,omitempty"`
}

var gradeNames = []string{"A+", "A", "B", "C", "D"}

func numberSchema(upper float64) map[string]any {
	return map[string]any{"type": "number", "minimum": 0, "maximum": upper}
}

func closedObject(keys []string, value map[string]any) map[string]any {
	props := make(map[string]any, len(keys))
	for _, k := range keys {
		props[k] = value
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
}

// referenceSchema builds the JSON Schema for reference files from the known
// type and authority codes.
func referenceSchema() map[string]any {
	authorities := make([]string, len(features.Authorities))
	for i, a := range features.Authorities {
		authorities[i] = string(a)
	}
	types := make([]string, len(features.CertificateTypes))
	for i, t := range features.CertificateTypes {
		types[i] = string(t)
	}

	return map[string]any{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type":    "object",
		"properties": map[string]any{
			"weights": closedObject(
				[]string{"certificate_type", "validity", "completeness", "farm_size", "practices"},
				numberSchema(1),
			),
			"grade_thresholds":    closedObject(gradeNames, numberSchema(100)),
			"certificate_weights": closedObject(types, closedObject(authorities, numberSchema(100))),
		},
		"additionalProperties": false,
	}
}

var compileReferenceSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	b, err := json.Marshal(referenceSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("reference.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("reference.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
})

// ParseReference validates data against the reference schema and decodes it
func ParseReference(data []byte) (*Reference, error) {
	schema, err := compileReferenceSchema()
	if err != nil {
		return nil, err
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}

	var ref Reference
	if err := json.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	return &ref, nil
}

// LoadReference reads the reference file at path and applies it to base
func LoadReference(path string, base scoring.Policy) (scoring.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read reference file: %w", err)
	}
	ref, err := ParseReference(data)
	if err != nil {
		return base, err
	}
	return ref.Apply(base)
}

// Apply returns a copy of base with the reference overrides applied
func (r *Reference) Apply(base scoring.Policy) (scoring.Policy, error) {
	p := base.Clone()

	if w := r.Weights; w != nil {
		set := func(dst *float64, src *float64) {
			if src != nil {
				*dst = *src
			}
		}
		set(&p.Weights.CertificateType, w.CertificateType)
		set(&p.Weights.Validity, w.Validity)
		set(&p.Weights.Completeness, w.Completeness)
		set(&p.Weights.FarmSize, w.FarmSize)
		set(&p.Weights.Practices, w.Practices)

		if sum := p.Weights.Sum(); math.Abs(sum-1) > 0.01 {
			return base, fmt.Errorf("%w: weights sum to %.3f, want 1", ErrInvalidReference, sum)
		}
	}

	for i, band := range p.Grades {
		if threshold, ok := r.GradeThresholds[band.Grade]; ok {
			p.Grades[i].Min = threshold
		}
	}
	slices.SortStableFunc(p.Grades, func(a, b scoring.GradeBand) int {
		switch {
		case a.Min > b.Min:
			return -1
		case a.Min < b.Min:
			return 1
		}
		return 0
	})

	for t, byAuthority := range r.CertificateWeights {
		ct := features.CertificateType(t)
		if p.CertificateWeights[ct] == nil {
			p.CertificateWeights[ct] = make(map[features.Authority]float64, len(byAuthority))
		}
		for a, score := range byAuthority {
			p.CertificateWeights[ct][features.Authority(a)] = score
		}
	}

	return p, nil
}
