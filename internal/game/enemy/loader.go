package enemy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// contentFile is the on-disk shape of one catalog YAML file. A catalog may
// be split across several files; lists are concatenated in file name order.
type contentFile struct {
	Archetypes []*Archetype  `yaml:"archetypes"`
	Weights    []WeightTable `yaml:"weights"`
	Fallback   *WeightTable  `yaml:"fallback"`
	Scaling    *Scaling      `yaml:"scaling"`
}

// LoadCatalogFromBytes parses a single YAML document into a Catalog.
//
// Precondition: data must be valid YAML for a contentFile.
// Postcondition: Returns a validated *Catalog, or an error.
func LoadCatalogFromBytes(data []byte) (*Catalog, error) {
	var f contentFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog YAML: %w", err)
	}
	return f.build()
}

// LoadCatalog reads all *.yaml files in dir and merges them into a Catalog.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a validated *Catalog or an error naming the first
// file that failed to parse.
func LoadCatalog(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading enemy dir %q: %w", dir, err)
	}

	var merged contentFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var f contentFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		merged.Archetypes = append(merged.Archetypes, f.Archetypes...)
		merged.Weights = append(merged.Weights, f.Weights...)
		if f.Fallback != nil {
			merged.Fallback = f.Fallback
		}
		if f.Scaling != nil {
			merged.Scaling = f.Scaling
		}
	}
	c, err := merged.build()
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", dir, err)
	}
	return c, nil
}

func (f contentFile) build() (*Catalog, error) {
	var fallback WeightTable
	if f.Fallback != nil {
		fallback = *f.Fallback
	}
	var scaling Scaling
	if f.Scaling != nil {
		scaling = *f.Scaling
	}
	return NewCatalog(f.Archetypes, f.Weights, fallback, scaling)
}
