// Package catalog is the static registry of simulated security tools.
// Scan profiles reference tools by id; the registry is consulted for
// listings, health reporting and advisory tooling checks. It never
// executes anything.
package catalog

import (
	"slices"
	"sort"
	"strings"

	"github.com/cjrt007/Tornado.Ai/pkg/control"
)

// Category groups tools by target surface.
type Category string

const (
	Network Category = "network"
	WebApp  Category = "webapp"
	Cloud   Category = "cloud"
	Binary  Category = "binary"
	CTF     Category = "ctf"
	OSINT   Category = "osint"
)

// simSuffix marks a simulated tool. Profile parameters are keyed by the id
// without it.
const simSuffix = ".sim"

// Tool describes one simulated tool.
type Tool struct {
	ID                  string            `json:"id"`
	Category            Category          `json:"category"`
	Summary             string            `json:"summary"`
	InputSchema         map[string]string `json:"inputSchema"`
	RequiredPermissions []string          `json:"requiredPermissions"`
	// EstimatedDuration is in seconds.
	EstimatedDuration int `json:"estimatedDuration"`
}

// Catalog is an immutable, ordered tool registry.
type Catalog struct {
	tools []Tool
	index map[string]int
}

// New builds a catalog from tools. Later duplicates replace earlier ones.
func New(tools []Tool) *Catalog {
	c := &Catalog{index: make(map[string]int, len(tools))}
	for _, t := range tools {
		if i, ok := c.index[t.ID]; ok {
			c.tools[i] = t
			continue
		}
		c.index[t.ID] = len(c.tools)
		c.tools = append(c.tools, t)
	}
	return c
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return New(builtin())
}

// Size returns the number of registered tools.
func (c *Catalog) Size() int { return len(c.tools) }

// All returns every tool in registration order.
func (c *Catalog) All() []Tool {
	out := make([]Tool, len(c.tools))
	copy(out, c.tools)
	return out
}

// Get looks a tool up by id.
func (c *Catalog) Get(id string) (Tool, bool) {
	i, ok := c.index[id]
	if !ok {
		return Tool{}, false
	}
	return c.tools[i], true
}

// ByCategory returns the tools of one category, or all tools when cat is empty.
func (c *Catalog) ByCategory(cat Category) []Tool {
	if cat == "" {
		return c.All()
	}
	var out []Tool
	for _, t := range c.tools {
		if t.Category == cat {
			out = append(out, t)
		}
	}
	return out
}

// Categories returns the distinct categories in sorted order.
func (c *Catalog) Categories() []Category {
	seen := map[Category]bool{}
	var out []Category
	for _, t := range c.tools {
		if !seen[t.Category] {
			seen[t.Category] = true
			out = append(out, t.Category)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Known reports whether id names a tool. A parameter key without the
// simulation suffix also matches.
func (c *Catalog) Known(id string) bool {
	if _, ok := c.index[id]; ok {
		return true
	}
	if !strings.HasSuffix(id, simSuffix) {
		_, ok := c.index[id+simSuffix]
		return ok
	}
	return false
}

// UnknownTooling lists the tooling ids and parameter keys of p that are not
// in the catalog, sorted. The store does not reject these; callers log them.
func (c *Catalog) UnknownTooling(p control.ScanProfile) []string {
	var unknown []string
	for _, id := range p.Tooling {
		if !c.Known(id) {
			unknown = append(unknown, id)
		}
	}
	for key := range p.Parameters {
		if !c.Known(key) && !slices.Contains(unknown, key) {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown
}
