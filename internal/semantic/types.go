// Package semantic implements the lazy, cache-backed analyzers of C10:
// intra-function data flow, return-point classification, error/throw
// tracking, and design-pattern detection. The function analyzers take a
// raw function body preview (the same BodyPreview the extractor captured),
// AnalyzeDataFlow also takes a small option struct, and DetectPatterns
// takes a type's names and method list; none of them parse source
// themselves, mirroring
// the string-signal style of the pattern detectors in the teacher's own
// retrieval pack rather than building a second AST layer.
package semantic

// TaintSource enumerates where tainted data can originate inside a
// function body, per spec §4.10.
type TaintSource string

const (
	TaintUserInput   TaintSource = "user_input"
	TaintNetwork     TaintSource = "network"
	TaintFilesystem  TaintSource = "filesystem"
	TaintDatabase    TaintSource = "database"
	TaintEnvironment TaintSource = "environment"
	TaintTime        TaintSource = "time"
	TaintRandom      TaintSource = "random"
	TaintExternalAPI TaintSource = "external_api"
	TaintUnknown     TaintSource = "unknown"
)

// NodeKind classifies a data-flow graph node.
type NodeKind string

const (
	NodeParameter  NodeKind = "parameter"
	NodeVariable   NodeKind = "variable"
	NodeReturn     NodeKind = "return"
	NodeCallResult NodeKind = "call_result"
	NodeExternal   NodeKind = "external"
)

// EdgeKind classifies a data-flow graph edge.
type EdgeKind string

const (
	EdgeAssign      EdgeKind = "assign"
	EdgeTransform   EdgeKind = "transform"
	EdgeRead        EdgeKind = "read"
	EdgeWrite       EdgeKind = "write"
	EdgeParameter   EdgeKind = "parameter"
	EdgeReturn      EdgeKind = "return"
	EdgeConditional EdgeKind = "conditional"
	EdgeMerge       EdgeKind = "merge"
	EdgePropagate   EdgeKind = "propagate"
)

// DataFlowNode is one value-carrying site inside a function body.
type DataFlowNode struct {
	ID   string
	Kind NodeKind
	Name string
	Line int
}

// DataFlowEdge connects two nodes with a labeled relationship.
type DataFlowEdge struct {
	FromID string
	ToID   string
	Kind   EdgeKind
}

// DataFlowResult is the data-flow analyzer's output.
type DataFlowResult struct {
	Nodes       []DataFlowNode
	Edges       []DataFlowEdge
	TaintedFrom []TaintSource
	Confidence  float64
	TimedOut    bool
}

// ReturnValueKind classifies the expression a return point yields.
type ReturnValueKind string

const (
	ReturnLiteral    ReturnValueKind = "literal"
	ReturnVariable   ReturnValueKind = "variable"
	ReturnCall       ReturnValueKind = "call"
	ReturnExpression ReturnValueKind = "expression"
)

// ReturnPoint is one return statement found in a function body.
type ReturnPoint struct {
	Line            int
	Conditional     bool
	ValueKind       ReturnValueKind
	Transformations []string
}

// ReturnAnalysis is the return analyzer's output.
type ReturnAnalysis struct {
	Points          []ReturnPoint
	ReturnTypeUnion []string
	CanReturnVoid   bool
	AlwaysThrows    bool
	Confidence      float64
}

// ThrowPoint is one explicit error-raise site.
type ThrowPoint struct {
	Line       int
	Expression string
}

// RecoveryBlock is a try/catch or Go-style deferred-recover block.
type RecoveryBlock struct {
	Line     int
	Strategy string // "log-and-continue", "wrap-and-propagate", "swallow", "panic-recover"
}

// ErrorAnalysis is the error analyzer's output.
type ErrorAnalysis struct {
	ThrowPoints    []ThrowPoint
	RecoveryBlocks []RecoveryBlock
	Confidence     float64
}

// FunctionInput is the shared input every analyzer and detector consumes.
type FunctionInput struct {
	FunctionID  string
	Name        string
	ParentScope string
	Signature   string
	ReturnType  string
	DocComment  string
	Body        string
	ParamNames  []string
	ParamTypes  []string
}
