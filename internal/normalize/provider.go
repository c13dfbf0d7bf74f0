// Package normalize maps raw upstream identifiers to canonical ids and
// human-friendly display strings. Everything here is a pure function of
// its input; the transform layer calls these once per record.
package normalize

import "strings"

// providerAliases maps raw upstream provider tags to canonical ids.
// The upstream feed tags records with the serving stack rather than the
// model vendor (e.g. "gemini" for AI Studio), so a few tags fold into a
// different canonical provider.
var providerAliases = map[string]string{
	"gemini":           "google",
	"bedrock_converse": "bedrock",
	"vertex_ai":        "vertex",
	"sagemaker_chat":   "sagemaker",
}

// ProviderID normalizes a raw upstream provider tag to a canonical
// provider id. Lower-cases, collapses the vertex_ai* family, applies the
// alias table, and strips the "_ai" suffix noise some tags carry.
// Idempotent: normalizing an already-normalized id is a no-op.
func ProviderID(raw string) string {
	id := strings.ToLower(strings.TrimSpace(raw))
	if id == "" {
		return ""
	}
	if strings.HasPrefix(id, "vertex_ai") {
		return "vertex"
	}
	if alias, ok := providerAliases[id]; ok {
		return alias
	}
	return strings.TrimSuffix(id, "_ai")
}

// providerNames is the curated provider display-name table, keyed by
// canonical provider id. Brand casing here can't be inferred generically.
var providerNames = map[string]string{
	"ai21":        "AI21 Labs",
	"anthropic":   "Anthropic",
	"anyscale":    "Anyscale",
	"azure":       "Azure OpenAI",
	"bedrock":     "Amazon Bedrock",
	"cerebras":    "Cerebras",
	"cloudflare":  "Cloudflare Workers AI",
	"cohere":      "Cohere",
	"databricks":  "Databricks",
	"deepinfra":   "DeepInfra",
	"deepseek":    "DeepSeek",
	"fireworks":   "Fireworks AI",
	"google":      "Google",
	"groq":        "Groq",
	"huggingface": "Hugging Face",
	"mistral":     "Mistral AI",
	"nvidia_nim":  "NVIDIA NIM",
	"ollama":      "Ollama",
	"openai":      "OpenAI",
	"openrouter":  "OpenRouter",
	"perplexity":  "Perplexity",
	"replicate":   "Replicate",
	"sagemaker":   "Amazon SageMaker",
	"together":    "Together AI",
	"vertex":      "Google Vertex AI",
	"voyage":      "Voyage AI",
	"xai":         "xAI",
}

// providerAbbrevs are words upper-cased wholesale when auto-generating a
// provider display name.
var providerAbbrevs = map[string]string{
	"ai":  "AI",
	"api": "API",
	"llm": "LLM",
	"ml":  "ML",
}

// textCompletionPrefix marks legacy text-completion wrapper providers
// (e.g. "text-completion-openai"); the wrapped provider name is used.
const textCompletionPrefix = "text-completion-"

// ProviderDisplayName derives a display string for a provider id.
// Curated table first, then the text-completion unwrap, then a generic
// title-casing of the id's words.
func ProviderDisplayName(id string) string {
	key := strings.ToLower(id)
	if name, ok := providerNames[key]; ok {
		return name
	}
	if wrapped, ok := strings.CutPrefix(key, textCompletionPrefix); ok {
		if name, ok := providerNames[wrapped]; ok {
			return name
		}
		key = wrapped
	}
	words := strings.FieldsFunc(key, func(r rune) bool {
		return r == '-' || r == '_'
	})
	for i, w := range words {
		if abbrev, ok := providerAbbrevs[w]; ok {
			words[i] = abbrev
		} else {
			words[i] = capitalize(w)
		}
	}
	return strings.Join(words, " ")
}

// capitalize upper-cases the first byte only; the rest of the word keeps
// its original casing (so "4o" stays "4o").
func capitalize(s string) string {
	if s == "" {
		return ""
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-('a'-'A')) + s[1:]
	}
	return s
}
