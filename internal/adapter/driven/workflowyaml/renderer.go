// Package workflowyaml renders workflow specs as GitHub Actions YAML.
package workflowyaml

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/secretpipe/internal/domain/model"
	"github.com/ericfisherdev/secretpipe/internal/domain/port/driven"
)

var _ driven.WorkflowRenderer = (*Renderer)(nil)

// Renderer builds the document as a yaml.Node tree so key order follows the
// spec rather than map iteration.
type Renderer struct {
	indent int
}

// NewRenderer returns a Renderer using two-space indentation.
func NewRenderer() *Renderer {
	return &Renderer{indent: 2}
}

// Render encodes spec. Output is byte-identical for equal specs.
func (r *Renderer) Render(spec model.WorkflowSpec) (string, error) {
	if spec.JobID == "" {
		return "", errors.New("render workflow: job id is required")
	}

	jobs := mapping(
		spec.JobID, mapping(
			"runs-on", scalar(spec.RunsOn),
			"steps", stepsNode(spec.Steps),
		),
	)

	doc := mapping(
		"name", scalar(spec.Name),
		"on", triggersNode(spec.Triggers),
		"jobs", jobs,
	)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(r.indent)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("encode workflow %q: %w", spec.Name, err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("flush workflow %q: %w", spec.Name, err)
	}
	return buf.String(), nil
}

func triggersNode(t model.Triggers) *yaml.Node {
	node := mapping(
		"push", filterNode(t.Push),
		"pull_request", filterNode(t.PullRequest),
	)
	if t.ManualDispatch {
		appendPair(node, "workflow_dispatch", &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle})
	}
	return node
}

func filterNode(f model.BranchFilter) *yaml.Node {
	node := mapping()
	if len(f.Branches) > 0 {
		appendPair(node, "branches", sequence(f.Branches))
	}
	if len(f.Paths) > 0 {
		appendPair(node, "paths", sequence(f.Paths))
	}
	return node
}

func stepsNode(steps []model.Step) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, s := range steps {
		step := mapping("name", scalar(s.Name))
		if s.ID != "" {
			appendPair(step, "id", scalar(s.ID))
		}
		if s.Uses != "" {
			appendPair(step, "uses", scalar(s.Uses))
		}
		if len(s.With) > 0 {
			with := mapping()
			for _, p := range s.With {
				appendPair(with, p.Key, scalar(p.Value))
			}
			appendPair(step, "with", with)
		}
		if s.Run != "" {
			appendPair(step, "run", scalar(s.Run))
		}
		seq.Content = append(seq.Content, step)
	}
	return seq
}

// mapping builds a block mapping from alternating key/value arguments.
func mapping(pairs ...any) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for i := 0; i+1 < len(pairs); i += 2 {
		appendPair(node, pairs[i].(string), pairs[i+1].(*yaml.Node))
	}
	return node
}

func appendPair(node *yaml.Node, key string, value *yaml.Node) {
	node.Content = append(node.Content, scalar(key), value)
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func sequence(values []string) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, v := range values {
		seq.Content = append(seq.Content, scalar(v))
	}
	return seq
}
