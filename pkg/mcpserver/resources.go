package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cjrt007/Tornado.Ai/pkg/defaults"
	"github.com/cjrt007/Tornado.Ai/pkg/jsonutil"
)

// Resource URIs.
const (
	uriControl = "tornado://control"
	uriTools   = "tornado://tools"
	uriVersion = "tornado://version"
)

func (s *Server) registerResources() {
	s.mcp.AddResource(
		&mcp.Resource{
			URI:         uriControl,
			Name:        "Control Surface",
			Description: "Current feature toggles, role controls and scan profiles.",
			MIMEType:    defaults.ContentTypeJSON,
		},
		func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return jsonResource(uriControl, s.store.Snapshot())
		},
	)

	s.mcp.AddResource(
		&mcp.Resource{
			URI:         uriTools,
			Name:        "Tool Catalog",
			Description: "Simulated security tools that scan profiles may reference.",
			MIMEType:    defaults.ContentTypeJSON,
		},
		func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return jsonResource(uriTools, s.catalog.All())
		},
	)

	s.mcp.AddResource(
		&mcp.Resource{
			URI:         uriVersion,
			Name:        defaults.ToolNameDisplay + " Version",
			Description: "Server version and registry size.",
			MIMEType:    defaults.ContentTypeJSON,
		},
		func(_ context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return jsonResource(uriVersion, map[string]any{
				"name":         defaults.ToolNameDisplay,
				"version":      defaults.Version,
				"registrySize": s.catalog.Size(),
				"categories":   s.catalog.Categories(),
			})
		},
	)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := jsonutil.MarshalIndent(v, "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: defaults.ContentTypeJSON, Text: string(data)},
		},
	}, nil
}
