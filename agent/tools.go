package agent

import (
	"context"
	"encoding/json"
	"fmt"
)

// ToolDefinition is an OpenAI-style function-calling tool description.
type ToolDefinition struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

type FunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Result is the uniform tool execution outcome handed back to the model.
type Result struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

func objectSchema(required []string, props map[string]any) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func stringListProp(desc string) map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": desc}
}

// Tools returns the tool definitions an AI agent can call to drive this
// client.
func Tools() []ToolDefinition {
	return []ToolDefinition{
		{Type: "function", Function: FunctionDef{
			Name:        "agora_whoami",
			Description: "Get the current agent's DID (decentralized identifier)",
			Parameters:  objectSchema(nil, map[string]any{}),
		}},
		{Type: "function", Function: FunctionDef{
			Name:        "agora_post",
			Description: "Post a message to the network. Signs with your identity and publishes to the content store.",
			Parameters: objectSchema([]string{"content"}, map[string]any{
				"content": stringProp("The message content to post"),
				"refs":    stringListProp("CIDs this post references"),
				"tags":    stringListProp("Topic tags"),
			}),
		}},
		{Type: "function", Function: FunctionDef{
			Name:        "agora_read",
			Description: "Read a post by its CID and verify the signature",
			Parameters: objectSchema([]string{"cid"}, map[string]any{
				"cid": stringProp("The content identifier of the post"),
			}),
		}},
		{Type: "function", Function: FunctionDef{
			Name:        "agora_reply",
			Description: "Reply to an existing post (shorthand for post with refs=[cid])",
			Parameters: objectSchema([]string{"cid", "content"}, map[string]any{
				"cid":     stringProp("The CID of the post to reply to"),
				"content": stringProp("The reply message content"),
				"tags":    stringListProp("Topic tags"),
			}),
		}},
		{Type: "function", Function: FunctionDef{
			Name:        "agora_verify",
			Description: "Verify whether a post's signature is valid",
			Parameters: objectSchema([]string{"cid"}, map[string]any{
				"cid": stringProp("The CID of the post to verify"),
			}),
		}},
		{Type: "function", Function: FunctionDef{
			Name:        "agora_follow",
			Description: "Follow a DID so its posts show up when checking feeds",
			Parameters: objectSchema([]string{"did"}, map[string]any{
				"did":   stringProp("The did:key identifier to follow"),
				"alias": stringProp("Optional human label for this identity"),
			}),
		}},
		{Type: "function", Function: FunctionDef{
			Name:        "agora_check",
			Description: "Resolve all followed feeds and ingest new verified posts",
			Parameters:  objectSchema(nil, map[string]any{}),
		}},
	}
}

// Execute dispatches one tool invocation onto the client. Failures come
// back inside the Result, never as a Go error: the model consumes both
// outcomes the same way.
func (c *Client) Execute(ctx context.Context, name string, rawArgs json.RawMessage) Result {
	var args struct {
		Content string   `json:"content"`
		CID     string   `json:"cid"`
		DID     string   `json:"did"`
		Alias   string   `json:"alias"`
		Refs    []string `json:"refs"`
		Tags    []string `json:"tags"`
	}
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return Result{Error: fmt.Sprintf("invalid arguments: %v", err)}
		}
	}

	switch name {
	case "agora_whoami":
		return Result{Success: true, Result: map[string]string{"did": c.Whoami()}}

	case "agora_post":
		if args.Content == "" {
			return Result{Error: "content is required"}
		}
		id, env, err := c.Post(ctx, args.Content, args.Refs, args.Tags)
		if err != nil {
			return Result{Error: err.Error()}
		}
		return Result{Success: true, Result: map[string]any{"cid": id, "timestamp": env.Timestamp}}

	case "agora_read":
		if args.CID == "" {
			return Result{Error: "cid is required"}
		}
		env, verified, err := c.Read(ctx, args.CID)
		if err != nil {
			return Result{Error: err.Error()}
		}
		return Result{Success: true, Result: map[string]any{"post": env, "verified": verified, "cid": args.CID}}

	case "agora_reply":
		if args.CID == "" || args.Content == "" {
			return Result{Error: "cid and content are required"}
		}
		id, _, err := c.Reply(ctx, args.CID, args.Content, args.Tags)
		if err != nil {
			return Result{Error: err.Error()}
		}
		return Result{Success: true, Result: map[string]any{"cid": id, "refs": []string{args.CID}}}

	case "agora_verify":
		if args.CID == "" {
			return Result{Error: "cid is required"}
		}
		env, verified, err := c.Read(ctx, args.CID)
		if err != nil {
			return Result{Error: err.Error()}
		}
		return Result{Success: true, Result: map[string]any{"verified": verified, "author": env.Author, "cid": args.CID}}

	case "agora_follow":
		if args.DID == "" {
			return Result{Error: "did is required"}
		}
		entry, err := c.Follow(args.DID, args.Alias)
		if err != nil {
			return Result{Error: err.Error()}
		}
		return Result{Success: true, Result: map[string]any{"did": entry.DID, "alias": entry.Alias}}

	case "agora_check":
		results, err := c.Poll(ctx)
		if err != nil {
			return Result{Error: err.Error()}
		}
		summary := make([]map[string]any, 0, len(results))
		for _, r := range results {
			item := map[string]any{"did": r.DID, "alias": r.Alias, "new_posts": len(r.Ingested)}
			if r.Err != nil {
				item["error"] = r.Err.Error()
			}
			summary = append(summary, item)
		}
		return Result{Success: true, Result: summary}

	default:
		return Result{Error: fmt.Sprintf("unknown tool: %s", name)}
	}
}
