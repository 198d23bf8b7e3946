package semantic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnalyzeReturns_ClassifiesLiteralAndCallReturns(t *testing.T) {
	in := FunctionInput{
		ReturnType: "(int, error)",
		Body: "if x < 0 {\n" +
			"  return 0, fmt.Errorf(\"bad\")\n" +
			"}\n" +
			"return compute(x), nil\n",
	}
	res := AnalyzeReturns(in)
	require.Len(t, res.Points, 2)
	require.True(t, res.Points[0].Conditional)
	require.False(t, res.Points[1].Conditional)
	require.Equal(t, []string{"int", "error"}, res.ReturnTypeUnion)
}

func TestAnalyzeReturns_DetectsTransformations(t *testing.T) {
	in := FunctionInput{Body: "return json.Marshal(v)\n"}
	res := AnalyzeReturns(in)
	require.Len(t, res.Points, 1)
	require.Contains(t, res.Points[0].Transformations, "json_parse")
}

func TestAnalyzeReturns_NoReturnsImpliesAlwaysThrows(t *testing.T) {
	in := FunctionInput{Body: "panic(\"unreachable\")\n"}
	res := AnalyzeReturns(in)
	require.Empty(t, res.Points)
	require.True(t, res.AlwaysThrows)
}
