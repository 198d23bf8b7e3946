package semantic

import (
	"context"
	"testing"

	"github.com/kraklabs/codegraph/internal/config"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeDataFlow_TracksParameterToReturn(t *testing.T) {
	in := FunctionInput{
		FunctionID: "fn1",
		ParamNames: []string{"name"},
		Body: "result := name\n" +
			"return result\n",
	}
	res := AnalyzeDataFlow(context.Background(), in, config.DefaultAnalyzerOptions())
	require.False(t, res.TimedOut)
	require.NotZero(t, res.Confidence)

	var sawReturnEdge bool
	for _, e := range res.Edges {
		if e.Kind == EdgeReturn {
			sawReturnEdge = true
		}
	}
	require.True(t, sawReturnEdge)
}

func TestAnalyzeDataFlow_DetectsNetworkTaint(t *testing.T) {
	in := FunctionInput{
		FunctionID: "fn2",
		Body:       "resp, err := http.Get(url)\nreturn resp, err\n",
	}
	res := AnalyzeDataFlow(context.Background(), in, config.DefaultAnalyzerOptions())
	require.Contains(t, res.TaintedFrom, TaintNetwork)
}

func TestAnalyzeDataFlow_DisabledTaintTrackingSkipsSignals(t *testing.T) {
	in := FunctionInput{
		FunctionID: "fn3",
		Body:       "resp, err := http.Get(url)\nreturn resp, err\n",
	}
	opts := config.DefaultAnalyzerOptions()
	opts.TrackTaint = false
	res := AnalyzeDataFlow(context.Background(), in, opts)
	require.Empty(t, res.TaintedFrom)
}
