// Package llm talks to hosted language models.
//
// Three wire protocols are supported: any OpenAI-compatible chat-completions
// endpoint (Client), Anthropic's Messages API (AnthropicClient), and the
// Gemini API (GeminiClient). Every backend satisfies Completer, which takes a
// system prompt, a user prompt, and sampling settings and returns the model's
// text.
//
// Fallback wraps a backend with an ordered list of candidate models and tries
// each in turn until one answers. New builds the configured backend wrapped in
// a Fallback.
//
// HTTP-based backends retry 408, 429, and 5xx responses with exponential
// backoff, honouring Retry-After when the server sends one. Responses that
// carry no content are retried too. DecodeJSON tolerates the usual formatting
// noise around JSON payloads (code fences, leading prose).
package llm
