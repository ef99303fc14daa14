package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed styles.yaml
var defaultStyles []byte

// Style describes the voice of an outreach email.
type Style struct {
	Name     string   `yaml:"name"`
	Summary  string   `yaml:"summary"`
	Length   string   `yaml:"length"`
	Guidance []string `yaml:"guidance"`
}

// Instruction renders the style as an instruction block.
func (s Style) Instruction() string {
	var b strings.Builder
	fmt.Fprintf(&b, "STYLE: %s\n", s.Summary)
	for _, g := range s.Guidance {
		fmt.Fprintf(&b, "- %s\n", g)
	}
	fmt.Fprintf(&b, "- Length: %s", s.Length)
	return b.String()
}

// Catalog holds the known email styles.
type Catalog struct {
	Default string  `yaml:"default"`
	Styles  []Style `yaml:"styles"`
}

// DefaultCatalog returns the built-in style catalog.
func DefaultCatalog() *Catalog {
	c, err := parseCatalog(defaultStyles)
	if err != nil {
		panic(err) // embedded file is part of the build
	}
	return c
}

// LoadCatalog reads a style catalog from a YAML file. An empty path returns
// the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "prompt: read styles %s", path)
	}
	return parseCatalog(data)
}

func parseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "prompt: parse styles")
	}
	if len(c.Styles) == 0 {
		return nil, eris.New("prompt: style catalog is empty")
	}
	if c.Default == "" {
		c.Default = c.Styles[0].Name
	}
	if _, ok := c.lookup(c.Default); !ok {
		return nil, eris.Errorf("prompt: default style %q not in catalog", c.Default)
	}
	return &c, nil
}

// Get returns the named style, or the catalog default when name is unknown.
func (c *Catalog) Get(name string) Style {
	if s, ok := c.lookup(name); ok {
		return s
	}
	s, _ := c.lookup(c.Default)
	return s
}

// Names lists the styles in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Styles))
	for i, s := range c.Styles {
		names[i] = s.Name
	}
	return names
}

func (c *Catalog) lookup(name string) (Style, bool) {
	for _, s := range c.Styles {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Style{}, false
}
