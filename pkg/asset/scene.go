package asset

import (
	"context"
	"encoding/json"

	"github.com/crazy-max/unpak/pkg/archive"
	"github.com/crazy-max/unpak/pkg/factory"
	"github.com/pkg/errors"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Scene document encodings
const (
	EncodingJSON = "json"
	EncodingYAML = "yaml"
)

// Scene is an interchange scene graph referencing meshes and textures by
// logical path.
type Scene struct {
	path     string
	encoding string
	Name     string `json:"name" yaml:"name"`
	Nodes    []Node `json:"nodes" yaml:"nodes"`
}

// Node is one scene graph node. Mesh and Texture are resolver base paths.
type Node struct {
	Name    string `json:"name" yaml:"name"`
	Mesh    string `json:"mesh,omitempty" yaml:"mesh,omitempty"`
	Texture string `json:"texture,omitempty" yaml:"texture,omitempty"`
	Parent  string `json:"parent,omitempty" yaml:"parent,omitempty"`
}

// NewScene decodes a commented JSON (.scene) or YAML scene document.
func NewScene(_ context.Context, path string, data []byte) (factory.Object, error) {
	s := &Scene{path: path}
	switch archive.Ext(path) {
	case "yaml", "yml":
		s.encoding = EncodingYAML
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, errors.Wrap(err, "decoding yaml scene")
		}
	default:
		s.encoding = EncodingJSON
		if err := json.Unmarshal(jsonc.ToJSON(data), s); err != nil {
			return nil, errors.Wrap(err, "decoding scene")
		}
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scene) Path() string { return s.path }

// Encoding returns the document encoding.
func (s *Scene) Encoding() string { return s.encoding }

// Bytes encodes the scene in its source encoding.
func (s *Scene) Bytes() []byte {
	if s.encoding == EncodingYAML {
		b, _ := yaml.Marshal(s)
		return b
	}
	b, _ := json.MarshalIndent(s, "", "  ")
	return append(b, '\n')
}

// Node returns the node called name.
func (s *Scene) Node(name string) (Node, bool) {
	for _, n := range s.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}

func (s *Scene) validate() error {
	names := make(map[string]string, len(s.Nodes))
	for i, n := range s.Nodes {
		if n.Name == "" {
			return errors.Errorf("node %d has no name", i)
		}
		if _, dup := names[n.Name]; dup {
			return errors.Errorf("duplicate node %q", n.Name)
		}
		names[n.Name] = n.Parent
	}
	for _, n := range s.Nodes {
		// walk up to the root; a walk longer than the node count is a cycle
		parent := n.Parent
		for depth := 0; parent != ""; depth++ {
			next, ok := names[parent]
			if !ok {
				return errors.Errorf("node %q: unknown parent %q", n.Name, parent)
			}
			if depth >= len(s.Nodes) {
				return errors.Errorf("node %q: parent cycle", n.Name)
			}
			parent = next
		}
	}
	return nil
}
