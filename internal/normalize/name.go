package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// displayOverrides is the curated model display-name table, keyed by
// normalized model id with any trailing date suffix already removed.
// These handle brand casing the generic rule can't produce: lowercase
// suffixes ("mini"), version-dot notation ("3.5"), dropped "-latest".
var displayOverrides = map[string]string{
	"chatgpt-4o-latest":        "ChatGPT-4o",
	"claude-3-5-haiku":         "Claude 3.5 Haiku",
	"claude-3-5-sonnet":        "Claude 3.5 Sonnet",
	"claude-3-7-sonnet":        "Claude 3.7 Sonnet",
	"claude-3-haiku":           "Claude 3 Haiku",
	"claude-3-opus":            "Claude 3 Opus",
	"claude-3-sonnet":          "Claude 3 Sonnet",
	"codestral":                "Codestral",
	"command-r":                "Command R",
	"command-r-plus":           "Command R+",
	"deepseek-chat":            "DeepSeek Chat",
	"deepseek-reasoner":        "DeepSeek Reasoner",
	"gemini-1.5-flash":         "Gemini 1.5 Flash",
	"gemini-1.5-pro":           "Gemini 1.5 Pro",
	"gemini-2.0-flash":         "Gemini 2.0 Flash",
	"gemini-2.5-pro":           "Gemini 2.5 Pro",
	"gpt-3.5-turbo":            "GPT-3.5 Turbo",
	"gpt-4":                    "GPT-4",
	"gpt-4-turbo":              "GPT-4 Turbo",
	"gpt-4.1":                  "GPT-4.1",
	"gpt-4.1-mini":             "GPT-4.1 mini",
	"gpt-4.1-nano":             "GPT-4.1 nano",
	"gpt-4o":                   "GPT-4o",
	"gpt-4o-mini":              "GPT-4o mini",
	"grok-2":                   "Grok 2",
	"grok-3":                   "Grok 3",
	"mistral-large":            "Mistral Large",
	"mistral-small":            "Mistral Small",
	"o1":                       "o1",
	"o1-mini":                  "o1-mini",
	"o1-preview":               "o1-preview",
	"o3":                       "o3",
	"o3-mini":                  "o3-mini",
	"o4-mini":                  "o4-mini",
	"text-embedding-3-large":   "Text Embedding 3 Large",
	"text-embedding-3-small":   "Text Embedding 3 Small",
	"text-embedding-ada-002":   "Text Embedding Ada 002",
}

// fineTunePrefix marks fine-tuned model ids ("ft:gpt-4o-mini:org::id").
const fineTunePrefix = "ft:"

const fineTuneSuffix = " [Fine-tuned]"

var monthAbbrev = [...]string{
	"", "Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

var (
	reDateFull    = regexp.MustCompile(`-(\d{4})-(\d{2})-(\d{2})$`)
	reDateCompact = regexp.MustCompile(`-(\d{4})(\d{2})(\d{2})$`)
	reDateShort   = regexp.MustCompile(`-(\d{2})(\d{2})$`)

	reGPTToken   = regexp.MustCompile(`\bGpt\b`)
	reGPTVersion = regexp.MustCompile(`GPT (\d)`)
	reAIToken    = regexp.MustCompile(`\bAi\b`)
	reAPIToken   = regexp.MustCompile(`\bApi\b`)
	reParamSize  = regexp.MustCompile(`\b(\d+)b\b`)
)

// DisplayName derives a human-friendly display string from a normalized
// model id. Empty input yields empty output. Degenerate separator
// placement (doubled, leading, or trailing hyphens) intentionally yields
// doubled/leading/trailing spaces; downstream consumers match on the
// exact strings, so the behavior is contractual.
func DisplayName(id string) string {
	if id == "" {
		return ""
	}
	if name, ok := displayOverrides[id]; ok {
		return name
	}
	if rest, ok := strings.CutPrefix(id, fineTunePrefix); ok {
		// Keep only the model portion of ft:model:org::suffix ids.
		if i := strings.IndexByte(rest, ':'); i >= 0 {
			rest = rest[:i]
		}
		return DisplayName(rest) + fineTuneSuffix
	}

	base := id
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if name, ok := displayOverrides[base]; ok {
		return name
	}

	base, date := splitDateSuffix(base)
	if date != "" {
		if name, ok := displayOverrides[base]; ok {
			return name + " " + date
		}
	}

	name := applyTouchups(titleCase(base))
	if date != "" {
		name += " " + date
	}
	return name
}

// titleCase splits on hyphens, capitalizes each segment's first letter,
// and joins with single spaces. Empty segments are preserved as empty
// words, which is where the doubled-space contract comes from.
func titleCase(id string) string {
	segments := strings.Split(id, "-")
	for i, seg := range segments {
		segments[i] = capitalize(seg)
	}
	return strings.Join(segments, " ")
}

// applyTouchups fixes acronym and brand casing the generic title-case
// rule gets wrong.
func applyTouchups(name string) string {
	name = reGPTToken.ReplaceAllString(name, "GPT")
	name = reGPTVersion.ReplaceAllString(name, "GPT-$1")
	name = reAIToken.ReplaceAllString(name, "AI")
	name = reAPIToken.ReplaceAllString(name, "API")
	name = reParamSize.ReplaceAllString(name, "${1}B")
	return name
}

// splitDateSuffix detects a trailing release-date suffix in
// YYYY-MM-DD, YYYYMMDD, or YYMM form. It returns the id with the suffix
// removed plus the date formatted as "(Mon YYYY)", or the id unchanged
// and "" when no valid date is present. A month outside 1-12 means the
// digits are part of the name, not a date.
func splitDateSuffix(id string) (string, string) {
	if m := reDateFull.FindStringSubmatch(id); m != nil {
		if date, ok := formatDate(m[1], m[2]); ok {
			return id[:len(id)-len(m[0])], date
		}
	}
	if m := reDateCompact.FindStringSubmatch(id); m != nil {
		if date, ok := formatDate(m[1], m[2]); ok {
			return id[:len(id)-len(m[0])], date
		}
	}
	if m := reDateShort.FindStringSubmatch(id); m != nil {
		if date, ok := formatDate("20"+m[1], m[2]); ok {
			return id[:len(id)-len(m[0])], date
		}
	}
	return id, ""
}

func formatDate(year, month string) (string, bool) {
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return "", false
	}
	return fmt.Sprintf("(%s %s)", monthAbbrev[m], year), true
}
