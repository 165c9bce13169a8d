package index

import "strings"

// Mode selects how a search query is interpreted.
type Mode string

const (
	// ModeExact treats the whole trimmed query as one case-insensitive
	// substring.
	ModeExact Mode = "exact"
	// ModeTokensAnd splits the query on commas; every non-empty token
	// must appear in the prompt.
	ModeTokensAnd Mode = "tokens-and"
)

// Filter returns the entries whose prompt matches query under the given
// mode, preserving input order. An empty or whitespace-only query, or a
// token query that reduces to no tokens, returns the input unchanged.
// Filter never mutates or reorders entries.
func Filter(entries []Entry, query string, mode Mode) []Entry {
	query = strings.TrimSpace(query)
	if query == "" {
		return entries
	}

	if mode == ModeExact {
		needle := strings.ToLower(query)
		matched := make([]Entry, 0, len(entries))
		for _, e := range entries {
			if strings.Contains(e.PromptLower(), needle) {
				matched = append(matched, e)
			}
		}
		return matched
	}

	// Default to tokens-AND, as the original search did for any
	// unrecognized mode.
	tokens := splitTokens(query)
	if len(tokens) == 0 {
		return entries
	}

	matched := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if matchesAll(e.PromptLower(), tokens) {
			matched = append(matched, e)
		}
	}
	return matched
}

func splitTokens(query string) []string {
	parts := strings.Split(query, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

func matchesAll(prompt string, tokens []string) bool {
	for _, tok := range tokens {
		if !strings.Contains(prompt, tok) {
			return false
		}
	}
	return true
}
