package transform

import (
	"strconv"
	"strings"

	"github.com/everstacklabs/modelfeed/internal/artifact"
	"github.com/everstacklabs/modelfeed/internal/normalize"
)

const tokensPerMillion = 1_000_000

// providerTagField carries the upstream provider tag; entries without it
// do not transform.
const providerTagField = "litellm_provider"

// modelIDPrefixes are provider-name prefixes stripped from raw model
// identifiers ("openai/gpt-4" -> "gpt-4"). Only the first matching prefix
// is removed, so Google's nested "gemini/gemini-1.5-pro" keeps the
// model's own gemini- stem.
var modelIDPrefixes = []string{
	"openai",
	"anthropic",
	"azure",
	"bedrock",
	"bedrock_converse",
	"gemini",
	"vertex_ai",
	"mistral",
	"groq",
	"deepseek",
	"xai",
	"fireworks_ai",
	"together_ai",
	"openrouter",
	"cohere",
	"perplexity",
	"sagemaker",
	"text-completion-openai",
}

// legacyCapabilityFallbacks maps older upstream flag names onto the
// canonical capability they predate. Applied only when the canonical
// flag is unset on the source record.
var legacyCapabilityFallbacks = map[string]string{
	"supports_response_schema":           "supports_json_mode",
	"supports_parallel_function_calling": "supports_parallel_functions",
}

// Record converts one upstream entry into a canonical model record.
// Returns nil when the entry lacks the minimal required shape (no
// provider tag). Pure function of its three inputs; unparseable optional
// numerics read as absent.
func Record(rawID string, src map[string]any, vocab *Vocab) *artifact.ModelRecord {
	rawProvider, ok := src[providerTagField].(string)
	if !ok || rawProvider == "" {
		return nil
	}

	providerID := normalize.ProviderID(rawProvider)
	modelID := normalizeModelID(rawID, rawProvider)

	rec := &artifact.ModelRecord{
		ProviderID:   providerID,
		ProviderName: normalize.ProviderDisplayName(providerID),
		ModelID:      modelID,
		ModelName:    normalize.DisplayName(modelID),
		Capabilities: make(map[string]bool),
		ModelType:    DefaultModelType,
	}

	// Token limits; the legacy max_tokens field backfills both sides.
	rec.MaxInputTokens = intField(src, "max_input_tokens")
	rec.MaxOutputTokens = intField(src, "max_output_tokens")
	if legacy := intField(src, "max_tokens"); legacy != nil {
		if rec.MaxInputTokens == nil {
			rec.MaxInputTokens = legacy
		}
		if rec.MaxOutputTokens == nil {
			rec.MaxOutputTokens = legacy
		}
	}

	// Primary costs default to 0; per-million is always derived.
	rec.InputCostPerToken = floatFieldOrZero(src, "input_cost_per_token")
	rec.OutputCostPerToken = floatFieldOrZero(src, "output_cost_per_token")
	rec.InputCostPerMillion = rec.InputCostPerToken * tokensPerMillion
	rec.OutputCostPerMillion = rec.OutputCostPerToken * tokensPerMillion

	// Cache costs stay null when absent.
	if v := floatField(src, "cache_read_input_token_cost"); v != nil {
		million := *v * tokensPerMillion
		rec.CacheReadCostPerToken = v
		rec.CacheReadCostPerMillion = &million
	}
	if v := floatField(src, "cache_creation_input_token_cost"); v != nil {
		million := *v * tokensPerMillion
		rec.CacheWriteCostPerToken = v
		rec.CacheWriteCostPerMillion = &million
	}

	for _, flag := range vocab.Capabilities {
		if b, ok := src[flag].(bool); ok {
			rec.Capabilities[flag] = b
		}
	}
	for legacy, canonical := range legacyCapabilityFallbacks {
		if _, set := rec.Capabilities[canonical]; set {
			continue
		}
		if b, ok := src[legacy].(bool); ok {
			rec.Capabilities[canonical] = b
		}
	}
	for _, flag := range artifact.LegacyCapabilities {
		if _, set := rec.Capabilities[flag]; !set {
			rec.Capabilities[flag] = false
		}
	}

	if mode, ok := src["mode"].(string); ok && mode != "" {
		if typ, known := vocab.Types[mode]; known {
			rec.ModelType = typ
		}
	}

	if d, ok := src["deprecation_date"].(string); ok && d != "" {
		date := d
		rec.DeprecationDate = &date
	}

	return rec
}

func normalizeModelID(rawID, rawProvider string) string {
	if id, ok := strings.CutPrefix(rawID, strings.ToLower(rawProvider)+"/"); ok {
		return id
	}
	for _, prefix := range modelIDPrefixes {
		if id, ok := strings.CutPrefix(rawID, prefix+"/"); ok {
			return id
		}
	}
	return rawID
}

// floatField reads an optional numeric field. Strings holding numbers are
// tolerated; anything unparseable reads as absent.
func floatField(src map[string]any, key string) *float64 {
	switch v := src[key].(type) {
	case float64:
		return &v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return &f
		}
	}
	return nil
}

func floatFieldOrZero(src map[string]any, key string) float64 {
	if v := floatField(src, key); v != nil {
		return *v
	}
	return 0
}

func intField(src map[string]any, key string) *int {
	if v := floatField(src, key); v != nil {
		n := int(*v)
		return &n
	}
	return nil
}
