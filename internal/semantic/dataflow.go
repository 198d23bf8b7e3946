package semantic

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kraklabs/codegraph/internal/config"
)

var assignPattern = regexp.MustCompile(`(?m)^\s*(\w+)\s*(:?=)\s*(.+)$`)

var taintSignals = []struct {
	source  TaintSource
	pattern *regexp.Regexp
}{
	{TaintUserInput, regexp.MustCompile(`\b(r\.Form|r\.URL\.Query|req\.Body|c\.Param|c\.Query|os\.Args)\b`)},
	{TaintNetwork, regexp.MustCompile(`\b(http\.Get|http\.Post|net\.Dial|Client\.Do)\b`)},
	{TaintFilesystem, regexp.MustCompile(`\b(os\.ReadFile|os\.Open|ioutil\.ReadFile|filepath\.Walk)\b`)},
	{TaintDatabase, regexp.MustCompile(`\b(\.Query|\.Exec|\.QueryRow|db\.)\b`)},
	{TaintEnvironment, regexp.MustCompile(`\bos\.(Getenv|LookupEnv)\b`)},
	{TaintTime, regexp.MustCompile(`\btime\.Now\(\)`)},
	{TaintRandom, regexp.MustCompile(`\b(rand\.Int|rand\.Read|rand\.Float64)\b`)},
	{TaintExternalAPI, regexp.MustCompile(`\b\w+Client\.\w+\(`)},
}

// AnalyzeDataFlow builds an intra-function data-flow graph from a raw body
// preview. It never parses a full AST: nodes are parameters and
// assignment targets, edges are assign/transform/return relationships
// inferred from simple line-pattern matching, in the same spirit as the
// regex-driven pattern detectors elsewhere in the retrieval pack.
func AnalyzeDataFlow(ctx context.Context, in FunctionInput, opts config.AnalyzerOptions) DataFlowResult {
	deadline := opts.Timeout
	if deadline <= 0 {
		deadline = 5 * time.Second
	}
	start := time.Now()

	result := DataFlowResult{}
	nodeIndex := make(map[string]string) // variable name -> node id

	for i, name := range in.ParamNames {
		id := fmt.Sprintf("%s:param:%d", in.FunctionID, i)
		result.Nodes = append(result.Nodes, DataFlowNode{ID: id, Kind: NodeParameter, Name: name, Line: 0})
		nodeIndex[name] = id
	}

	lines := strings.Split(in.Body, "\n")
	for lineNo, line := range lines {
		if time.Since(start) > deadline {
			result.Confidence = 0
			result.TimedOut = true
			return result
		}

		if m := assignPattern.FindStringSubmatch(line); m != nil {
			target, rhs := m[1], m[3]
			if isGoKeyword(target) {
				continue
			}
			targetID := fmt.Sprintf("%s:var:%s:%d", in.FunctionID, target, lineNo+1)
			result.Nodes = append(result.Nodes, DataFlowNode{ID: targetID, Kind: NodeVariable, Name: target, Line: lineNo + 1})

			if opts.IncludeLiterals || !isLiteral(rhs) {
				if srcID, ok := nodeIndex[strings.TrimSpace(rhs)]; ok {
					result.Edges = append(result.Edges, DataFlowEdge{FromID: srcID, ToID: targetID, Kind: EdgeAssign})
				} else if isCallExpr(rhs) {
					callID := fmt.Sprintf("%s:call:%d", in.FunctionID, lineNo+1)
					result.Nodes = append(result.Nodes, DataFlowNode{ID: callID, Kind: NodeCallResult, Name: rhs, Line: lineNo + 1})
					result.Edges = append(result.Edges, DataFlowEdge{FromID: callID, ToID: targetID, Kind: EdgeTransform})
				}
			}
			nodeIndex[target] = targetID
		}

		if strings.Contains(line, "return ") || strings.TrimSpace(line) == "return" {
			returnID := fmt.Sprintf("%s:return:%d", in.FunctionID, lineNo+1)
			result.Nodes = append(result.Nodes, DataFlowNode{ID: returnID, Kind: NodeReturn, Line: lineNo + 1})
			for name, id := range nodeIndex {
				if strings.Contains(line, name) {
					result.Edges = append(result.Edges, DataFlowEdge{FromID: id, ToID: returnID, Kind: EdgeReturn})
				}
			}
		}

		if opts.TrackTaint {
			for _, sig := range taintSignals {
				if sig.pattern.MatchString(line) {
					result.TaintedFrom = appendTaintOnce(result.TaintedFrom, sig.source)
				}
			}
		}
	}

	if opts.TrackTaint && len(result.TaintedFrom) == 0 && strings.Contains(in.Body, "unsafe") {
		result.TaintedFrom = append(result.TaintedFrom, TaintUnknown)
	}

	result.Confidence = confidenceFor(len(result.Nodes), len(result.Edges))
	return result
}

func appendTaintOnce(sources []TaintSource, s TaintSource) []TaintSource {
	for _, existing := range sources {
		if existing == s {
			return sources
		}
	}
	return append(sources, s)
}

func confidenceFor(nodeCount, edgeCount int) float64 {
	if nodeCount == 0 {
		return 0
	}
	c := 0.4 + float64(edgeCount)*0.05
	if c > 0.95 {
		c = 0.95
	}
	return c
}

func isLiteral(expr string) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return false
	}
	switch expr[0] {
	case '"', '\'', '`':
		return true
	}
	return expr == "true" || expr == "false" || expr == "nil" || isNumeric(expr)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != '-' {
			return false
		}
	}
	return true
}

func isCallExpr(expr string) bool {
	expr = strings.TrimSpace(expr)
	return strings.Contains(expr, "(") && strings.HasSuffix(expr, ")")
}

func isGoKeyword(s string) bool {
	switch s {
	case "if", "for", "switch", "case", "return", "func", "var", "const", "type", "package", "import":
		return true
	}
	return false
}
