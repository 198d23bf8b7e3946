package semantic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnalyzeErrors_FindsWrappedReturnAndThrow(t *testing.T) {
	in := FunctionInput{
		Body: "if err != nil {\n" +
			"  return fmt.Errorf(\"read: %w\", err)\n" +
			"}\n",
	}
	res := AnalyzeErrors(in)
	require.NotEmpty(t, res.ThrowPoints)
	require.NotEmpty(t, res.RecoveryBlocks)
	require.Equal(t, "wrap-and-propagate", res.RecoveryBlocks[0].Strategy)
}

func TestAnalyzeErrors_DetectsDeferRecover(t *testing.T) {
	in := FunctionInput{
		Body: "defer func() {\n" +
			"  if r := recover(); r != nil {\n" +
			"    log.Println(r)\n" +
			"  }\n" +
			"}()\n",
	}
	res := AnalyzeErrors(in)
	var sawRecover bool
	for _, b := range res.RecoveryBlocks {
		if b.Strategy == "panic-recover" {
			sawRecover = true
		}
	}
	require.True(t, sawRecover)
}

func TestAnalyzeErrors_IgnoredCallWithoutErrNameIsNotFlagged(t *testing.T) {
	in := FunctionInput{Body: "_ = conn.Close()\n"}
	res := AnalyzeErrors(in)
	require.Empty(t, res.RecoveryBlocks)
}

func TestAnalyzeErrors_SwallowedErrIsFlagged(t *testing.T) {
	in := FunctionInput{Body: "_ = errConn.Close()\n"}
	res := AnalyzeErrors(in)
	require.Len(t, res.RecoveryBlocks, 1)
	require.Equal(t, "swallow", res.RecoveryBlocks[0].Strategy)
}
