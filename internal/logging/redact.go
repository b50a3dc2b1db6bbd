package logging

import "encoding/json"

const (
	maxLoggedBody = 2048
	redacted      = "[REDACTED]"
)

var secretKeys = map[string]bool{"password": true}

// LoggableBody turns a request body into a log value. JSON bodies are decoded
// and every "password" key is masked at any depth; other bodies are logged as
// truncated text. An empty body logs as nil.
func LoggableBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}

	var v any
	if err := json.Unmarshal(body, &v); err == nil {
		return redact(v)
	}

	if len(body) > maxLoggedBody {
		body = body[:maxLoggedBody]
	}
	return string(body)
}

func redact(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if secretKeys[k] {
				t[k] = redacted
				continue
			}
			t[k] = redact(val)
		}
	case []any:
		for i, val := range t {
			t[i] = redact(val)
		}
	}
	return v
}
