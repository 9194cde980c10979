package webhook

import "github.com/stretchr/testify/mock"

// MatchEvent creates a custom matcher for event arguments in mocks
func MatchEvent(matcher func(Event) bool) interface{} {
	return mock.MatchedBy(matcher)
}

// MatchPatch creates a custom matcher for patch arguments in mocks
func MatchPatch(matcher func(Patch) bool) interface{} {
	return mock.MatchedBy(matcher)
}

// HasAnalysis matches patches that carry an analysis
func HasAnalysis(p Patch) bool {
	return p.Analysis != nil
}

// HasForwardStatus returns a patch predicate for the given forward status
func HasForwardStatus(status ForwardStatus) func(Patch) bool {
	return func(p Patch) bool {
		return p.ForwardStatus != nil && *p.ForwardStatus == status
	}
}
