package normalize

import "testing"

func TestProviderID(t *testing.T) {
	cases := map[string]string{
		"openai":           "openai",
		"OpenAI":           "openai",
		"gemini":           "google",
		"vertex_ai":        "vertex",
		"vertex_ai_beta":   "vertex",
		"vertex_ai-language-models": "vertex",
		"bedrock_converse": "bedrock",
		"fireworks_ai":     "fireworks",
		"together_ai":      "together",
		"xai":              "xai",
		"sagemaker_chat":   "sagemaker",
		"":                 "",
	}
	for raw, want := range cases {
		if got := ProviderID(raw); got != want {
			t.Errorf("ProviderID(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestProviderIDIdempotent(t *testing.T) {
	for _, raw := range []string{"gemini", "vertex_ai_beta", "fireworks_ai", "anthropic"} {
		once := ProviderID(raw)
		if twice := ProviderID(once); twice != once {
			t.Errorf("ProviderID not idempotent for %q: %q -> %q", raw, once, twice)
		}
	}
}

func TestProviderDisplayName(t *testing.T) {
	cases := map[string]string{
		"openai":                 "OpenAI",
		"xai":                    "xAI",
		"mistral":                "Mistral AI",
		"text-completion-openai": "OpenAI",
		"some-llm-host":          "Some LLM Host",
		"acme_ml":                "Acme ML",
	}
	for id, want := range cases {
		if got := ProviderDisplayName(id); got != want {
			t.Errorf("ProviderDisplayName(%q) = %q, want %q", id, got, want)
		}
	}
}
