// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/z5labs/cooked/config/key"
	"github.com/z5labs/cooked/internal/try"

	"gopkg.in/yaml.v3"
)

// Yaml represents a Source where its underlying format is YAML.
//
// Mappings nested under the top level mapping become sections and keep
// their document order. Every value records the line of its key.
type Yaml struct {
	r io.Reader
}

// FromYaml returns a source which will apply its config
// from YAML values parsed from the given io.Reader.
func FromYaml(r io.Reader) Yaml {
	return Yaml{r: r}
}

// InvalidYamlError occurs if the underlying io.Reader contains invalid YAML.
type InvalidYamlError struct {
	Line  int
	Cause error
}

// Error implements the error interface.
func (e InvalidYamlError) Error() string {
	if e.Line == UnknownLine {
		return fmt.Sprintf("invalid yaml: %s", e.Cause)
	}
	return fmt.Sprintf("invalid yaml (line %d): %s", e.Line, e.Cause)
}

// Unwrap implements the implicit interface used by errors.Is and errors.As.
func (e InvalidYamlError) Unwrap() error {
	return e.Cause
}

// Apply implements the Source interface.
func (src Yaml) Apply(store Store) (err error) {
	defer try.Close(&err, src.r)

	b, err := io.ReadAll(src.r)
	if err != nil {
		return err
	}

	var doc yaml.Node
	err = yaml.Unmarshal(b, &doc)
	if err != nil {
		return InvalidYamlError{Cause: err}
	}
	if len(doc.Content) == 0 {
		return nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return InvalidYamlError{
			Line:  root.Line,
			Cause: fmt.Errorf("top level must be a mapping, found %s", kindName(root.Kind)),
		}
	}
	return walkYaml(root, store, nil)
}

func walkYaml(m *yaml.Node, store Store, chain key.Chain) error {
	for i := 0; i+1 < len(m.Content); i += 2 {
		k, v := m.Content[i], resolveAlias(m.Content[i+1])
		link := append(chain[:len(chain):len(chain)], key.Name(k.Value))

		if v.Kind == yaml.MappingNode {
			err := walkYaml(v, store, link)
			if err != nil {
				return err
			}
			continue
		}

		raw, err := yamlText(v)
		if err != nil {
			return InvalidYamlError{Line: v.Line, Cause: err}
		}
		err = store.Set(link, Value{Raw: raw, Line: k.Line})
		if err != nil {
			return err
		}
	}
	return nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// yamlText returns the raw text of a scalar, or the scalars of a
// sequence joined with ", ". Null becomes the empty string.
func yamlText(n *yaml.Node) (string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return "", nil
		}
		return n.Value, nil
	case yaml.SequenceNode:
		ss := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			s, err := yamlText(resolveAlias(item))
			if err != nil {
				return "", err
			}
			ss = append(ss, s)
		}
		return strings.Join(ss, ", "), nil
	default:
		return "", fmt.Errorf("unsupported %s value", kindName(n.Kind))
	}
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
