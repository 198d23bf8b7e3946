package semantic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func findPattern(detected []DetectedPattern, name string) (DetectedPattern, bool) {
	for _, d := range detected {
		if d.PatternName == name {
			return d, true
		}
	}
	return DetectedPattern{}, false
}

func TestDetectPatterns_RepositoryDetected(t *testing.T) {
	in := PatternInput{
		TypeName:    "UserRepository",
		MethodNames: []string{"FindByID", "Save", "Delete"},
		FieldNames:  []string{"db"},
	}
	detected := DetectPatterns(in)
	p, ok := findPattern(detected, "repository")
	require.True(t, ok)
	require.GreaterOrEqual(t, p.Confidence, 0.55)
}

func TestDetectPatterns_SingletonDetected(t *testing.T) {
	in := PatternInput{
		TypeName:        "ConfigLoader",
		MethodNames:     []string{"GetInstance"},
		FieldNames:      []string{"instance"},
		ConstructorBody: "var once sync.Once\nonce.Do(func() { instance = &ConfigLoader{} })",
	}
	detected := DetectPatterns(in)
	_, ok := findPattern(detected, "singleton")
	require.True(t, ok)
}

func TestDetectPatterns_BuilderDetected(t *testing.T) {
	in := PatternInput{
		TypeName:    "RequestBuilder",
		MethodNames: []string{"WithHeader", "WithBody", "Build"},
	}
	detected := DetectPatterns(in)
	_, ok := findPattern(detected, "builder")
	require.True(t, ok)
}

func TestDetectPatterns_NoSignalsMatchedReturnsEmpty(t *testing.T) {
	in := PatternInput{TypeName: "Point", FieldNames: []string{"X", "Y"}}
	detected := DetectPatterns(in)
	require.Empty(t, detected)
}
