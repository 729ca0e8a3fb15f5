package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternScanner_FindsClassesAtAnyDepth(t *testing.T) {
	text := `
class CfgMovesBasic;
class CfgMovesMaleSdr: CfgMovesBasic {
	class States {
		class AmovPercMstpSlowWrflDnon;
		class AmovPercMrunSlowWrflDf: AmovPercMstpSlowWrflDnon {
			speed = 0.634570;
		};
		class AmovPercMrunSlowWrflDfl: AmovPercMrunSlowWrflDf {
			speed = 0.634570;
		};
	};
};
`
	entities, err := NewPatternScanner().Extract(context.Background(), text)

	require.NoError(t, err)
	require.Len(t, entities, 6)

	parents := make(map[string]string, len(entities))
	for _, e := range entities {
		assert.Empty(t, e.Properties)
		parents[e.Name] = e.Parent
	}
	assert.Equal(t, "CfgMovesBasic", parents["CfgMovesMaleSdr"])
	assert.Equal(t, "AmovPercMstpSlowWrflDnon", parents["AmovPercMrunSlowWrflDf"])
	assert.Equal(t, "AmovPercMrunSlowWrflDf", parents["AmovPercMrunSlowWrflDfl"])
	assert.Equal(t, "", parents["States"])
}

func TestPatternScanner_ToleratesMalformedInput(t *testing.T) {
	entities, err := NewPatternScanner().Extract(context.Background(), "class Broken { x = ; }}}} subclass Nope {")

	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "Broken", entities[0].Name)
}

func TestPatternScanner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPatternScanner().Extract(ctx, "class A {};")

	assert.ErrorIs(t, err, context.Canceled)
}
