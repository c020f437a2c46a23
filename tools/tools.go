// Package tools is the registry of image tools offered by the command line
// and its command palette.
package tools

import (
	"strings"

	"github.com/eliasnau/imagetools/errors"
)

// Tool describes one entry of the palette.
type Tool struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	Keywords    string `yaml:"keywords,omitempty"`
	Icon        string `yaml:"icon,omitempty"`
	Group       string `yaml:"group,omitempty"`
}

// Built-in tools.
var (
	Convert = Tool{
		ID:          "convert",
		Title:       "Convert Image Format",
		Description: "Convert an image to another format",
		Keywords:    "image format convert png jpg webp",
		Icon:        "Replace",
		Group:       "Images",
	}
	RoundCorners = Tool{
		ID:          "round-corners",
		Title:       "Round Image Corners",
		Description: "Apply rounded corners to an image",
		Keywords:    "image edit round corners radius",
		Icon:        "SquareRoundCorner",
		Group:       "Images",
	}
	Metadata = Tool{
		ID:          "metadata",
		Title:       "Metadata Viewer",
		Description: "Inspect and strip basic image metadata (EXIF).",
		Keywords:    "exif metadata strip remove privacy",
		Icon:        "Info",
		Group:       "Analysis",
	}
)

// Registry is an ordered set of tools.
type Registry struct {
	tools []Tool
}

// Default returns a registry with the built-in tools.
func Default() *Registry {
	r, _ := NewRegistry(Convert, RoundCorners, Metadata)
	return r
}

// NewRegistry builds a registry. IDs must be non-empty and unique.
func NewRegistry(tools ...Tool) (*Registry, error) {
	seen := make(map[string]bool, len(tools))
	for _, t := range tools {
		if t.ID == "" {
			return nil, errors.New(errors.CodeInvalidInput, "tool without id").WithOp("tools.NewRegistry")
		}
		if seen[t.ID] {
			return nil, errors.Newf(errors.CodeAlreadyExists, "duplicate tool %q", t.ID).WithOp("tools.NewRegistry")
		}
		seen[t.ID] = true
	}
	return &Registry{tools: append([]Tool(nil), tools...)}, nil
}

// All returns the tools in registration order.
func (r *Registry) All() []Tool {
	return append([]Tool(nil), r.tools...)
}

// Find returns the tool with the given id.
func (r *Registry) Find(id string) (Tool, error) {
	for _, t := range r.tools {
		if t.ID == id {
			return t, nil
		}
	}
	return Tool{}, errors.Newf(errors.CodeNotFound, "no tool %q", id).WithOp("tools.Find")
}

// Search returns the tools whose id, title, description or keywords contain
// every whitespace separated term of query, ignoring case. An empty query
// matches everything.
func (r *Registry) Search(query string) []Tool {
	terms := strings.Fields(strings.ToLower(query))
	var out []Tool
	for _, t := range r.tools {
		haystack := strings.ToLower(strings.Join([]string{t.ID, t.Title, t.Description, t.Keywords}, " "))
		if matchesAll(haystack, terms) {
			out = append(out, t)
		}
	}
	return out
}

func matchesAll(s string, terms []string) bool {
	for _, term := range terms {
		if !strings.Contains(s, term) {
			return false
		}
	}
	return true
}

// Group is a titled list of tools.
type Group struct {
	Name  string
	Tools []Tool
}

// Groups returns the tools grouped by Group in order of first appearance.
// Tools without a group are collected under "Other".
func (r *Registry) Groups() []Group {
	var out []Group
	index := make(map[string]int)
	for _, t := range r.tools {
		name := t.Group
		if name == "" {
			name = "Other"
		}
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, Group{Name: name})
		}
		out[i].Tools = append(out[i].Tools, t)
	}
	return out
}
