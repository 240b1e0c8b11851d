package engine

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/teleop/internal/dynamo"
)

//go:embed assets.yaml
var builtinAssets []byte

// Asset describes what the kinematic engine needs to know about a model
// file. The file itself is never read.
type Asset struct {
	Static      bool       `yaml:"static"`
	Height      float64    `yaml:"height"`
	HalfExtents [3]float64 `yaml:"half_extents"`
	Mass        float64    `yaml:"mass"`
}

type Catalog struct {
	Assets map[string]Asset `yaml:"assets"`
}

// DefaultCatalog returns the built-in assets.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(builtinAssets)
	if err != nil {
		panic(fmt.Sprintf("engine: builtin catalog: %v", err))
	}
	return c
}

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	c := &Catalog{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	if c.Assets == nil {
		c.Assets = make(map[string]Asset)
	}
	for ref, a := range c.Assets {
		if a.Static {
			continue
		}
		for i, h := range a.HalfExtents {
			if h < 0 {
				return nil, fmt.Errorf("asset %s: negative half extent %d", ref, i)
			}
		}
	}
	return c, nil
}

// Merge returns a catalog with the assets of o layered over c.
func (c *Catalog) Merge(o *Catalog) *Catalog {
	out := &Catalog{Assets: make(map[string]Asset, len(c.Assets))}
	for ref, a := range c.Assets {
		out.Assets[ref] = a
	}
	if o != nil {
		for ref, a := range o.Assets {
			out.Assets[ref] = a
		}
	}
	return out
}

// Lookup resolves ref, trying a ".urdf" suffix when the bare name is
// missing.
func (c *Catalog) Lookup(ref string) (Asset, error) {
	if a, ok := c.Assets[ref]; ok {
		return a, nil
	}
	if !strings.HasSuffix(ref, ".urdf") {
		if a, ok := c.Assets[ref+".urdf"]; ok {
			return a, nil
		}
	}
	return Asset{}, fmt.Errorf("%w: %s", dynamo.ErrUnknownAsset, ref)
}

func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Assets))
	for ref := range c.Assets {
		names = append(names, ref)
	}
	sort.Strings(names)
	return names
}
