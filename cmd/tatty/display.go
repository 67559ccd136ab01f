package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	tatty "github.com/nevindra/tatty"
)

const resultPreviewLimit = 500

// essentialParams are the only parameters echoed on tool start; full
// documents would drown the console.
var essentialParams = []string{"file_path", "pattern", "command", "path"}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if os.Getenv("TATTY_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// displayCallbacks prints run progress for the console front-end. Only
// depth-0 events are shown; sub-agent activity is summarized by its
// start/complete lines.
func displayCallbacks() tatty.Callbacks {
	return tatty.Callbacks{
		OnIteration: func(iteration, depth int) {
			if depth == 0 {
				fmt.Printf("\n%s\nIteration %d\n%s\n", divider(), iteration, divider())
			}
		},
		OnToolStart: func(action tatty.Action, args json.RawMessage, index, total, depth int) {
			if depth != 0 {
				return
			}
			fmt.Printf("\nExecuting tool: %s", action)
			if total > 1 {
				fmt.Printf(" (%d/%d)", index, total)
			}
			fmt.Println()
			if p := previewParams(args); p != "" {
				fmt.Printf("   Parameters: %s\n", p)
			}
		},
		OnToolResult: func(result string, depth int) {
			if depth != 0 {
				return
			}
			if len(result) > resultPreviewLimit {
				result = result[:resultPreviewLimit] +
					fmt.Sprintf("\n... [truncated: showing first %d of %d characters]", resultPreviewLimit, len(result))
			}
			fmt.Printf("   Result: %s\n", result)
		},
		OnAgentReply: func(text string) {
			fmt.Printf("\nAgent reply: %s\n", text)
		},
		OnSubAgentStart: func(description, prompt string, depth int) {
			if len(prompt) > 100 {
				prompt = prompt[:100] + "..."
			}
			fmt.Printf("\nLaunching sub-agent: %s\n   Prompt: %s\n", description, prompt)
		},
		OnSubAgentComplete: func(result string, depth int) {
			fmt.Printf("Sub-agent finished (depth %d)\n", depth)
		},
	}
}

// previewParams extracts the essential parameters from a raw argument
// document as a short k=v listing.
func previewParams(args json.RawMessage) string {
	if len(args) == 0 {
		return ""
	}
	var doc map[string]any
	if err := json.Unmarshal(args, &doc); err != nil {
		return ""
	}
	var parts []string
	for _, key := range essentialParams {
		if v, ok := doc[key]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", key, v))
		}
	}
	return strings.Join(parts, ", ")
}

func divider() string {
	return strings.Repeat("=", 60)
}
