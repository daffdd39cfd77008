// Package autoload registers every built-in provider with the default
// llm registry.
package autoload

import (
	_ "promptgate/pkg/llm/dummy"
	_ "promptgate/pkg/llm/gemini"
	_ "promptgate/pkg/llm/ollama"
	_ "promptgate/pkg/llm/openailm"
)
