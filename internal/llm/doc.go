// Package llm provides the completion capability used to process email.
// It supports multiple providers (OpenAI, Anthropic, Gemini and Ollama) behind a
// single Client interface, a guard that adds rate limiting, timeouts and retries,
// the normalizer that recovers structured values from free-form provider text,
// and the field extractors built on top of both.
package llm
