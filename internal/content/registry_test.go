package content

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	typ, ok := ParseType("case_studies")
	require.True(t, ok)
	require.Equal(t, TypeCaseStudy, typ)

	_, ok = ParseType("case-studies")
	require.False(t, ok)
	_, ok = ParseType("")
	require.False(t, ok)
}

func TestRelationshipsAreBidirectional(t *testing.T) {
	forward, ok := RelationshipFor(TypeCaseStudy, "industries")
	require.True(t, ok)
	reverse, ok := RelationshipFor(TypeIndustry, "case_studies")
	require.True(t, ok)

	require.Equal(t, forward.Junction, reverse.Junction)
	require.Equal(t, forward.SourceField, reverse.TargetField)
	require.Equal(t, forward.TargetField, reverse.SourceField)
	require.Equal(t, forward.TracksDeletes, reverse.TracksDeletes)
}

func TestEveryTypeHasRelationships(t *testing.T) {
	for _, typ := range Types() {
		require.NotEmpty(t, RelationshipsFor(typ), "type %s has no junctions", typ)
	}
}
