package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/headfinder/pkg/annotate"
)

// Tool names.
const (
	ToolNameFindHeads = "find_heads"
	ToolNameListRules = "list_rules"
)

// MaxTreeInputBytes is the maximum size of an inline tree (1 MB).
const MaxTreeInputBytes = 1 << 20

// Sentinel errors for tool input validation.
var (
	ErrEmptyTree    = errors.New("tree parameter is required and must not be empty")
	ErrTreeTooLarge = errors.New("tree input exceeds maximum size")
)

// FindHeadsInput is the input schema for the find_heads tool.
type FindHeadsInput struct {
	Tree string `json:"tree" jsonschema:"constituency tree as JSON with tag, optional word and children"`
}

// ListRulesInput is the input schema for the list_rules tool.
type ListRulesInput struct {
	Tag string `json:"tag,omitempty" jsonschema:"optional parent tag to describe (default: all rules)"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func (s *Server) handleFindHeads(
	ctx context.Context, _ *mcpsdk.CallToolRequest, input FindHeadsInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Tree == "" {
		return errorResult(ErrEmptyTree)
	}

	if len(input.Tree) > MaxTreeInputBytes {
		return errorResult(fmt.Errorf("%w: %d bytes (max %d)", ErrTreeTooLarge, len(input.Tree), MaxTreeInputBytes))
	}

	res, err := s.annotator.Annotate(ctx, []byte(input.Tree))
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(res)
}

func (s *Server) handleListRules(
	_ context.Context, _ *mcpsdk.CallToolRequest, input ListRulesInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Tag == "" {
		return jsonResult(s.annotator.Rules())
	}

	info, err := s.annotator.Rule(input.Tag)
	if err != nil {
		if def, ok := s.annotator.Default(); ok && errors.Is(err, annotate.ErrUnknownTag) {
			return jsonResult(def)
		}

		return errorResult(err)
	}

	return jsonResult(info)
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
	}, ToolOutput{Data: value}, nil
}
