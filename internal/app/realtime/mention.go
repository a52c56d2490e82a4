package realtime

import (
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// MentionMatcher finds @handle mentions of bot accounts in message content.
// Matching is case-insensitive and stops at a word boundary, so "@botany"
// does not mention "bot".
type MentionMatcher struct {
	pattern *regexp.Regexp
}

// NewMentionMatcher compiles a matcher for handles. An empty handle set
// matches nothing.
func NewMentionMatcher(handles []string) *MentionMatcher {
	cleaned := lo.Uniq(lo.FilterMap(handles, func(h string, _ int) (string, bool) {
		h = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
		return regexp.QuoteMeta(h), h != ""
	}))
	if len(cleaned) == 0 {
		return &MentionMatcher{}
	}

	// Longest first so "@clawbot" prefers "clawbot" over "claw".
	sort.Slice(cleaned, func(i, j int) bool {
		if len(cleaned[i]) != len(cleaned[j]) {
			return len(cleaned[i]) > len(cleaned[j])
		}
		return cleaned[i] < cleaned[j]
	})

	return &MentionMatcher{
		pattern: regexp.MustCompile(`(?i)@(` + strings.Join(cleaned, "|") + `)\b`),
	}
}

// Match returns the lowercased handles mentioned in content, in order of
// first appearance and without repeats.
func (m *MentionMatcher) Match(content string) []string {
	if m.pattern == nil {
		return nil
	}

	found := m.pattern.FindAllStringSubmatch(content, -1)
	if len(found) == 0 {
		return nil
	}

	return lo.Uniq(lo.Map(found, func(sub []string, _ int) string {
		return strings.ToLower(sub[1])
	}))
}
