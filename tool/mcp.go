package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPRepository sources tool descriptors from a running MCP server,
// mirroring the teacher's local/MCP repository split in
// tools/registry.go's initializeFromConfig.
type MCPRepository struct {
	name   string
	client *mcpclient.Client
}

// NewMCPRepository wraps an already-initialized MCP client, named name
// for discovery-conflict reporting.
func NewMCPRepository(name string, client *mcpclient.Client) *MCPRepository {
	return &MCPRepository{name: name, client: client}
}

func (r *MCPRepository) Name() string { return r.name }

// Tools lists the server's tools and wraps each as an agent-facing direct
// tool descriptor whose Executor round-trips a CallTool request.
func (r *MCPRepository) Tools() ([]*Descriptor, error) {
	ctx := context.Background()
	result, err := r.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, &RegistryError{Operation: "MCPRepository.Tools", Message: fmt.Sprintf("list tools from %q failed", r.name), Err: err}
	}

	out := make([]*Descriptor, 0, len(result.Tools))
	for _, t := range result.Tools {
		t := t
		out = append(out, NewDirect(t.Name, t.Description, convertSchema(t.InputSchema), r.callTool(t.Name)))
	}
	return out, nil
}

// convertSchema round-trips an MCP tool's input schema through JSON into a
// *jsonschema.Schema, the same marshal-then-unmarshal approach the teacher
// uses in pkg/tool/mcptoolset/mcptoolset.go's convertSchema (there it lands
// in a map[string]any; here the target is our Descriptor's schema type
// instead). Falls back to a bare object schema if the server sent
// something convertSchema can't decode, rather than failing discovery for
// every other tool the server offers.
func convertSchema(input mcp.ToolInputSchema) *jsonschema.Schema {
	data, err := json.Marshal(input)
	if err != nil {
		return &jsonschema.Schema{Type: "object"}
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return &jsonschema.Schema{Type: "object"}
	}
	return &schema
}

func (r *MCPRepository) callTool(toolName string) Executor {
	return func(ctx context.Context, argumentsJSON string) (string, error) {
		var args map[string]any
		if argumentsJSON != "" {
			if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
				return "", fmt.Errorf("tool %q: invalid arguments JSON: %w", toolName, err)
			}
		}

		req := mcp.CallToolRequest{}
		req.Params.Name = toolName
		req.Params.Arguments = args

		result, err := r.client.CallTool(ctx, req)
		if err != nil {
			return "", fmt.Errorf("tool %q: call failed: %w", toolName, err)
		}

		var out string
		for _, c := range result.Content {
			if text, ok := mcp.AsTextContent(c); ok {
				out += text.Text
			}
		}
		return out, nil
	}
}
