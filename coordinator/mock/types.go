package mock

import (
	"encoding/json"
	"strings"

	"reviewagent/coordinator"
	"reviewagent/tools"
)

// ParseModelOutput splits model text into tool calls and remaining content. It serves models that
// embed tool requests as {"tool_calls":[...]} objects in plain text instead of calling tools natively.
//
// The method handles several scenarios:
// 1. Pure tool calls: {"tool_calls":[{"name":"tool_name","input":{...}}, ...]}
// 2. Mixed content: "Some text\n{"tool_calls":[...]}\nMore text"
// 3. Pure content: Regular text or JSON without tool_calls
func ParseModelOutput(text string) coordinator.Response {
	s := strings.TrimSpace(text)
	if s == "" {
		return coordinator.Response{}
	}

	var content strings.Builder
	var calls []tools.Call

	i := 0
	for i < len(s) {
		start := strings.IndexByte(s[i:], '{')
		if start == -1 {
			content.WriteString(s[i:])
			break
		}
		start += i

		if start > i {
			content.WriteString(s[i:start])
		}

		// Find the matching closing brace
		braceCount := 0
		end := start
		inString := false
		escaped := false

		for end < len(s) {
			char := s[end]

			if escaped {
				escaped = false
				end++
				continue
			}

			if char == '\\' && inString {
				escaped = true
				end++
				continue
			}

			if char == '"' {
				inString = !inString
			} else if !inString {
				if char == '{' {
					braceCount++
				} else if char == '}' {
					braceCount--
					if braceCount == 0 {
						break
					}
				}
			}
			end++
		}

		if braceCount != 0 || end >= len(s) {
			// Malformed JSON, treat as regular content
			content.WriteString(s[start:])
			break
		}

		obj := s[start : end+1]

		var probe struct {
			ToolCalls []tools.Call `json:"tool_calls"`
		}
		if err := json.Unmarshal([]byte(obj), &probe); err == nil && len(probe.ToolCalls) > 0 {
			for _, tc := range probe.ToolCalls {
				if tc.Input == nil {
					tc.Input = map[string]any{}
				}
				calls = append(calls, tc)
			}
		} else {
			content.WriteString(obj)
		}

		i = end + 1
	}

	return coordinator.Response{
		Content:   strings.TrimSpace(content.String()),
		ToolCalls: calls,
	}
}
