package catalog_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cjrt007/Tornado.Ai/pkg/catalog"
	"github.com/cjrt007/Tornado.Ai/pkg/control"
)

func TestDefaultCatalog(t *testing.T) {
	t.Parallel()

	c := catalog.Default()
	assert.Equal(t, 23, c.Size())

	nmap, ok := c.Get("nmap_scan.sim")
	require.True(t, ok)
	assert.Equal(t, catalog.Network, nmap.Category)
	assert.Equal(t, 120, nmap.EstimatedDuration)
	assert.Equal(t, []string{"execute_tools"}, nmap.RequiredPermissions)
	assert.Equal(t, "low|med|high", nmap.InputSchema["intensity"])

	for _, tool := range c.All() {
		assert.NotEmpty(t, tool.Summary, tool.ID)
		assert.NotNil(t, tool.InputSchema, tool.ID)
	}
}

func TestByCategory(t *testing.T) {
	t.Parallel()

	c := catalog.Default()
	cloud := c.ByCategory(catalog.Cloud)
	require.Len(t, cloud, 5)
	for _, tool := range cloud {
		assert.Equal(t, catalog.Cloud, tool.Category)
	}
	assert.Len(t, c.ByCategory(""), c.Size())
	assert.Empty(t, c.ByCategory("quantum"))
}

func TestCategoriesSorted(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []catalog.Category{
		catalog.Binary, catalog.Cloud, catalog.CTF, catalog.Network, catalog.OSINT, catalog.WebApp,
	}, catalog.Default().Categories())
}

func TestNewReplacesDuplicates(t *testing.T) {
	t.Parallel()

	c := catalog.New([]catalog.Tool{
		{ID: "a", Summary: "first"},
		{ID: "b", Summary: "second"},
		{ID: "a", Summary: "replaced"},
	})
	assert.Equal(t, 2, c.Size())
	a, _ := c.Get("a")
	assert.Equal(t, "replaced", a.Summary)
	assert.Equal(t, "a", c.All()[0].ID)
}

func TestKnownAcceptsParameterKeys(t *testing.T) {
	t.Parallel()

	c := catalog.Default()
	assert.True(t, c.Known("nuclei_scan.sim"))
	assert.True(t, c.Known("nuclei_scan"))
	assert.False(t, c.Known("metasploit"))
	assert.False(t, c.Known("metasploit.sim"))
}

func TestUnknownTooling(t *testing.T) {
	t.Parallel()

	c := catalog.Default()
	for _, p := range control.DefaultScanProfiles(time.Now()) {
		assert.Empty(t, c.UnknownTooling(p), p.ID)
	}

	p := control.ScanProfile{
		Tooling:    []string{"nmap_scan.sim", "zmap.sim", "burp"},
		Parameters: map[string]any{"burp": map[string]any{}, "nmap_scan": map[string]any{}, "custom": 1},
	}
	assert.Equal(t, []string{"burp", "custom", "zmap.sim"}, c.UnknownTooling(p))
}
