package capability

import (
	"fmt"
	"strconv"
	"strings"

	contractx "github.com/chatwright/chatwright/agent/contract"
)

// failed builds the degraded response for a handler-internal error. The
// content is user-facing; the cause goes to the log at the call site.
func failed(c contractx.Capability, content string) contractx.AgentResponse {
	return contractx.AgentResponse{
		Capability: c,
		Content:    content,
		Format:     contractx.FormatError,
		Success:    false,
	}
}

func paramString(params map[string]any, key string) string {
	v, ok := params[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// paramStrings accepts both a JSON array and a comma-separated string, since
// gateway output is loose about list encoding.
func paramStrings(params map[string]any, key string) []string {
	v, ok := params[key]
	if !ok || v == nil {
		return nil
	}
	var out []string
	switch t := v.(type) {
	case []string:
		out = append(out, t...)
	case []any:
		for _, item := range t {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.Split(t, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func paramFloat(params map[string]any, key string) float64 {
	v, ok := params[key]
	if !ok || v == nil {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
