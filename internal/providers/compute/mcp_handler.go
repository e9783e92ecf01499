package compute

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPToolCaller is the subset of an initialized mcp-go client this
// package needs; satisfied by *client.Client.
type MCPToolCaller interface {
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

var _ MCPToolCaller = (*client.Client)(nil)

// NewMCPHandler adapts an initialized MCP client/tool pair into a
// compute.Handler: the event is marshalled as the tool's JSON arguments,
// and the tool's first text-content result is unmarshalled back as the
// handler's payload. This is the in-process substrate for functions
// backed by an external MCP server rather than a Go closure.
func NewMCPHandler(c MCPToolCaller, toolName string) Handler {
	return func(ctx context.Context, event any, ictx InvocationContext) (any, error) {
		args, err := toToolArgs(event)
		if err != nil {
			return nil, fmt.Errorf("compute: marshal event for tool %s: %w", toolName, err)
		}

		result, err := c.CallTool(ctx, mcp.CallToolRequest{
			Params: struct {
				Name      string    `json:"name"`
				Arguments any       `json:"arguments,omitempty"`
				Meta      *mcp.Meta `json:"_meta,omitempty"`
			}{
				Name:      toolName,
				Arguments: args,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("compute: call tool %s: %w", toolName, err)
		}
		if result.IsError {
			return nil, fmt.Errorf("compute: tool %s reported an error: %s", toolName, firstText(result))
		}

		text := firstText(result)
		if text == "" {
			return nil, nil
		}
		var payload any
		if err := json.Unmarshal([]byte(text), &payload); err != nil {
			return text, nil
		}
		return payload, nil
	}
}

func toToolArgs(event any) (map[string]any, error) {
	if event == nil {
		return map[string]any{}, nil
	}
	if m, ok := event.(map[string]any); ok {
		return m, nil
	}
	b, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func firstText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	if tc, ok := mcp.AsTextContent(result.Content[0]); ok {
		return tc.Text
	}
	return ""
}
