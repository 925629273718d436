package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// overlayFile is the YAML document shape: a list of body definitions.
type overlayFile struct {
	Bodies []Definition `yaml:"bodies"`
}

// Load returns the built-in definitions merged with the YAML overlay at
// path. Overlay entries replace built-in bodies of the same name and append
// otherwise. An empty path returns the built-ins unchanged.
func Load(path string) ([]Definition, error) {
	defs := Builtin()
	if path == "" {
		return defs, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}

	var overlay overlayFile
	if err := yaml.Unmarshal(raw, &overlay); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}

	index := make(map[string]int, len(defs))
	for i, d := range defs {
		index[d.Name] = i
	}

	for _, d := range overlay.Bodies {
		if d.Name == "" {
			return nil, fmt.Errorf("catalog %s: body with empty name", path)
		}
		if !d.Central && d.RelativeTo == "" {
			return nil, fmt.Errorf("catalog %s: body %q needs relative_to or central", path, d.Name)
		}
		if i, ok := index[d.Name]; ok {
			defs[i] = d
		} else {
			index[d.Name] = len(defs)
			defs = append(defs, d)
		}
	}
	return defs, nil
}
