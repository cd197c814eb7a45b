// Package llm provides an OpenRouter-compatible chat client used to classify
// transcribed audio clips for harmful content.
//
// # Classification Logic
//
// The client sends a transcript to a configured model with a structured
// prompt requesting JSON output: flagged (bool), score (0-1), and category
// (a short label or null). A blank transcript is treated as unflagged
// without making a network call.
//
// # Configuration
//
// Requires api_key and model, and optionally base_url, referer, title, and
// timeout.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive JSON response.
// Client.Classify: harmful-content classification for a transcript.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default).
// Context cancellation aborts retries immediately.
//
// # Fallback
//
// If the LLM is unavailable, Classify returns an error rather than a
// default verdict: an unreachable classifier must not silently pass content
// as unflagged. Callers should route the clip to the failure path described
// in DecodeLLMJSON's callers rather than guess a result.
package llm
