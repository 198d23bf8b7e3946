package semantic

import (
	"regexp"
	"strings"
)

var (
	throwPattern       = regexp.MustCompile(`(?m)^\s*(panic\(.*\)|return\s+.*\berr\w*\b.*)$`)
	deferRecoverBlock  = regexp.MustCompile(`defer\s+func\(\)\s*\{[\s\S]*?recover\(\)`)
	wrapErrorPattern   = regexp.MustCompile(`fmt\.Errorf\([^)]*%w`)
	logAndContinue     = regexp.MustCompile(`log\.\w+\(.*err`)
	swallowedAssign    = regexp.MustCompile(`_\s*=\s*[\w.]+\(`)
)

// AnalyzeErrors finds throw points (panics and error returns) and
// recovery blocks (deferred recover, or declared error-wrapping style) in
// a function body, tagging each recovery with a coarse strategy label.
func AnalyzeErrors(in FunctionInput) ErrorAnalysis {
	result := ErrorAnalysis{}

	lines := strings.Split(in.Body, "\n")
	for lineNo, line := range lines {
		if m := throwPattern.FindStringSubmatch(line); m != nil {
			result.ThrowPoints = append(result.ThrowPoints, ThrowPoint{
				Line:       lineNo + 1,
				Expression: strings.TrimSpace(m[1]),
			})
		}
		if strings.HasPrefix(strings.TrimSpace(line), "panic(") {
			continue
		}
		switch {
		case wrapErrorPattern.MatchString(line):
			result.RecoveryBlocks = append(result.RecoveryBlocks, RecoveryBlock{Line: lineNo + 1, Strategy: "wrap-and-propagate"})
		case logAndContinue.MatchString(line):
			result.RecoveryBlocks = append(result.RecoveryBlocks, RecoveryBlock{Line: lineNo + 1, Strategy: "log-and-continue"})
		case swallowedAssign.MatchString(line) && strings.Contains(line, "err"):
			result.RecoveryBlocks = append(result.RecoveryBlocks, RecoveryBlock{Line: lineNo + 1, Strategy: "swallow"})
		}
	}

	if loc := deferRecoverBlock.FindStringIndex(in.Body); loc != nil {
		recoveredLine := strings.Count(in.Body[:loc[0]], "\n") + 1
		result.RecoveryBlocks = append(result.RecoveryBlocks, RecoveryBlock{Line: recoveredLine, Strategy: "panic-recover"})
	}

	confidence := 0.4
	if len(result.ThrowPoints) > 0 {
		confidence += 0.3
	}
	if len(result.RecoveryBlocks) > 0 {
		confidence += 0.2
	}
	if confidence > 0.9 {
		confidence = 0.9
	}
	result.Confidence = confidence
	return result
}
