// Package scenefile reads and writes scene documents: the interchange files avatars are
// imported from and the merged avatar is exported to. JSON and YAML encodings are supported,
// picked by file extension.
package scenefile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownFormat = errors.New("scenefile: unknown file extension")
	ErrEmptyDocument = errors.New("scenefile: document has no objects")
)

// Document is a scene file: a forest of objects plus, on export, the export profile.
type Document struct {
	Export  *Profile    `json:"export,omitempty" yaml:"export,omitempty"`
	Objects []ObjectDoc `json:"objects" yaml:"objects"`
}

// ObjectDoc is one object and its subtree. The basis is either Matrix (row-major 4×4) or the
// location / rotation (Euler XYZ radians) / scale triple; Matrix wins when both are present.
type ObjectDoc struct {
	Name     string       `json:"name" yaml:"name"`
	Type     string       `json:"type" yaml:"type"`
	Matrix   *[16]float64 `json:"matrix,omitempty" yaml:"matrix,omitempty"`
	Location [3]float64   `json:"location" yaml:"location"`
	Rotation [3]float64   `json:"rotation" yaml:"rotation"`
	Scale    *[3]float64  `json:"scale,omitempty" yaml:"scale,omitempty"`

	// Armature objects.
	Bones []BoneDoc `json:"bones,omitempty" yaml:"bones,omitempty"`

	// Mesh objects. Armature names the object, in the same document, the mesh is skinned to.
	Armature     string      `json:"armature,omitempty" yaml:"armature,omitempty"`
	VertexGroups []string    `json:"vertex_groups,omitempty" yaml:"vertex_groups,omitempty"`
	Vertices     []VertexDoc `json:"vertices,omitempty" yaml:"vertices,omitempty"`

	Children []ObjectDoc `json:"children,omitempty" yaml:"children,omitempty"`
}

// BoneDoc is a bone in armature space. Deform defaults to true.
type BoneDoc struct {
	Name   string     `json:"name" yaml:"name"`
	Parent string     `json:"parent,omitempty" yaml:"parent,omitempty"`
	Head   [3]float64 `json:"head" yaml:"head"`
	Tail   [3]float64 `json:"tail" yaml:"tail"`
	Roll   float64    `json:"roll,omitempty" yaml:"roll,omitempty"`
	Deform *bool      `json:"deform,omitempty" yaml:"deform,omitempty"`
}

type VertexDoc struct {
	Co      [3]float64  `json:"co" yaml:"co"`
	Weights []WeightDoc `json:"weights,omitempty" yaml:"weights,omitempty"`
}

type WeightDoc struct {
	Group  string  `json:"group" yaml:"group"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// Load reads a scene document from a .json, .yaml or .yml file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenefile: read %s: %w", path, err)
	}

	var doc Document
	switch ext(path) {
	case ".json":
		err = json.Unmarshal(data, &doc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("scenefile: load %s: %w", path, ErrUnknownFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("scenefile: parse %s: %w", path, err)
	}
	return &doc, nil
}

// Save writes doc to path, creating the parent directory.
func Save(path string, doc *Document) error {
	var (
		data []byte
		err  error
	)
	switch ext(path) {
	case ".json":
		data, err = json.MarshalIndent(doc, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(doc)
	default:
		return fmt.Errorf("scenefile: save %s: %w", path, ErrUnknownFormat)
	}
	if err != nil {
		return fmt.Errorf("scenefile: encode %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("scenefile: mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("scenefile: write %s: %w", path, err)
	}
	return nil
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
