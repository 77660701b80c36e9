package reqs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcplane/mcpd/internal/reqs"
)

func TestParseExactPin(t *testing.T) {
	m := reqs.Parse("requests==2.26.0\n")
	require.Contains(t, m, "requests")
	assert.Equal(t, reqs.Constraint{Op: reqs.OpExact, Version: "2.26.0"}, m["requests"])
}

func TestParseAllOperators(t *testing.T) {
	cases := map[string]reqs.Constraint{
		"a==1.0":  {Op: reqs.OpExact, Version: "1.0"},
		"b>=1.0":  {Op: reqs.OpAtLeast, Version: "1.0"},
		"c<=1.0":  {Op: reqs.OpAtMost, Version: "1.0"},
		"d~=1.0":  {Op: reqs.OpCompatible, Version: "1.0"},
		"e>1.0":   {Op: reqs.OpGreaterThan, Version: "1.0"},
		"f<1.0":   {Op: reqs.OpLessThan, Version: "1.0"},
		"g":       {Op: reqs.OpAny},
	}
	for line, want := range cases {
		m := reqs.Parse(line)
		name := line[:1]
		require.Contains(t, m, name, "line %q", line)
		assert.Equal(t, want, m[name], "line %q", line)
	}
}

func TestParseOperatorPriority(t *testing.T) {
	// >= must not be mis-tokenized as '>' followed by '='.
	m := reqs.Parse("flask>=2.0.0")
	assert.Equal(t, reqs.Constraint{Op: reqs.OpAtLeast, Version: "2.0.0"}, m["flask"])
}

func TestParseInlineComment(t *testing.T) {
	m := reqs.Parse("requests==2.26.0 # pinned for CVE-123\n")
	assert.Equal(t, reqs.Constraint{Op: reqs.OpExact, Version: "2.26.0"}, m["requests"])
}

func TestParseCommentOnlyLineDropped(t *testing.T) {
	m := reqs.Parse("# just a comment\n\n")
	assert.Empty(t, m)
}

func TestParseExtras(t *testing.T) {
	m := reqs.Parse("requests[security,socks]\n")
	require.Contains(t, m, "requests[security,socks]")
	assert.Equal(t, reqs.Constraint{Op: reqs.OpAny}, m["requests[security,socks]"])
}

func TestParseLastWinsOnDuplicate(t *testing.T) {
	m := reqs.Parse("flask==1.0.0\nflask==2.0.0\n")
	assert.Equal(t, reqs.Constraint{Op: reqs.OpExact, Version: "2.0.0"}, m["flask"])
}

func TestParseWhitespaceTrimmed(t *testing.T) {
	m := reqs.Parse("  requests  ==  2.26.0  \n")
	assert.Equal(t, reqs.Constraint{Op: reqs.OpExact, Version: "2.26.0"}, m["requests"])
}

func TestParseNeverFailsOnGarbage(t *testing.T) {
	m := reqs.Parse("===not-a-real-line===\n\t\n   \n")
	// Must not panic; entries may or may not be produced, but the call
	// must return normally.
	_ = m
}

func TestParseRenderRoundTripExactPins(t *testing.T) {
	original := map[string]reqs.Constraint{
		"alpha": {Op: reqs.OpExact, Version: "1.0.0"},
		"beta":  {Op: reqs.OpExact, Version: "2.3.4"},
	}
	rendered := reqs.Render(original)
	parsed := reqs.Parse(rendered)
	assert.Equal(t, original, parsed)
}
