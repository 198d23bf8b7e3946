package uce

import (
	"regexp"
	"strings"
)

// GoParser is a pattern-matching Parser for Go source, in the same spirit
// as the teacher's "simplified" mode: brace-counted function bodies and
// regex-driven signature/call extraction rather than a full AST walk. It
// exists to prove out the Parser contract end to end without depending on
// a specific grammar library; internal/uce/treesitter.go offers a second,
// AST-accurate implementation of the same contract for Go specifically.
type GoParser struct{}

// NewGoParser returns a ready-to-use GoParser.
func NewGoParser() *GoParser { return &GoParser{} }

var (
	funcDeclRe   = regexp.MustCompile(`^func\s+(\([^)]*\)\s+)?([A-Za-z_]\w*)\s*(\([^)]*\))\s*([^{]*)\{?`)
	receiverRe   = regexp.MustCompile(`^\(\s*\w*\s+\*?([A-Za-z_]\w*)\s*\)`)
	paramSplitRe = regexp.MustCompile(`\s*,\s*`)
	structRe     = regexp.MustCompile(`^type\s+([A-Za-z_]\w*)\s+struct\s*\{?`)
	ifaceRe      = regexp.MustCompile(`^type\s+([A-Za-z_]\w*)\s+interface\s*\{?`)
	aliasRe      = regexp.MustCompile(`^type\s+([A-Za-z_]\w*)\s*=?\s*([A-Za-z_][\w.\[\]*]*)\s*$`)
	importOneRe  = regexp.MustCompile(`^(?:(\w+|\.|_)\s+)?"([^"]+)"$`)
	packageRe    = regexp.MustCompile(`^package\s+(\w+)`)
	fieldRe      = regexp.MustCompile(`^([A-Za-z_]\w*)\s+(\*?\[\]?[A-Za-z_][\w.\[\]*]*)`)
	callRe       = regexp.MustCompile(`([A-Za-z_]\w*)\.([A-Za-z_]\w*)\(|([A-Za-z_]\w*)\(`)
)

// Parse implements uce.Parser for language=="go". Any other language
// returns an empty File with no error, matching the teacher's
// unsupported-language handling (logged and skipped, not failed).
func (g *GoParser) Parse(sourceBytes []byte, language string) (*File, error) {
	f := &File{Language: language}
	if language != "go" {
		return f, nil
	}
	lines := strings.Split(string(sourceBytes), "\n")

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if f.PackageName == "" {
			if m := packageRe.FindStringSubmatch(trimmed); m != nil {
				f.PackageName = m[1]
			}
		}
		if strings.HasPrefix(trimmed, "import \"") {
			if m := importOneRe.FindStringSubmatch(strings.TrimPrefix(trimmed, "import ")); m != nil {
				f.Imports = append(f.Imports, Import{ImportPath: m[2], Alias: m[1], Line: i + 1})
			}
			continue
		}
		if trimmed == "import (" {
			g.parseImportBlock(lines, i, f)
			continue
		}
		if strings.HasPrefix(trimmed, "func ") {
			fn, end := g.parseFunction(lines, i)
			if fn != nil {
				f.Functions = append(f.Functions, *fn)
			}
			_ = end
			continue
		}
		if m := structRe.FindStringSubmatch(trimmed); m != nil {
			cls, _ := g.parseStruct(lines, i, m[1])
			f.Classes = append(f.Classes, cls)
			continue
		}
		if m := ifaceRe.FindStringSubmatch(trimmed); m != nil {
			iface, _ := g.parseInterface(lines, i, m[1])
			f.Interfaces = append(f.Interfaces, iface)
			continue
		}
		if m := aliasRe.FindStringSubmatch(trimmed); m != nil && strings.HasPrefix(trimmed, "type ") {
			f.TypeAliases = append(f.TypeAliases, TypeAlias{
				Name:      m[1],
				Loc:       Location{StartLine: i + 1, EndLine: i + 1},
				Modifiers: exportModifier(m[1]),
			})
		}
	}
	return f, nil
}

func (g *GoParser) parseImportBlock(lines []string, start int, f *File) {
	for i := start + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == ")" {
			return
		}
		if trimmed == "" {
			continue
		}
		if m := importOneRe.FindStringSubmatch(trimmed); m != nil {
			f.Imports = append(f.Imports, Import{ImportPath: m[2], Alias: m[1], Line: i + 1})
		}
	}
}

func exportModifier(name string) []Modifier {
	if name != "" && strings.ToUpper(name[:1]) == name[:1] {
		return []Modifier{ModExport}
	}
	return nil
}

// parseFunction extracts one function or method starting at `start`,
// brace-counting to find its closing line, matching the teacher's
// parseGoFile loop structure.
func (g *GoParser) parseFunction(lines []string, start int) (*Function, int) {
	m := funcDeclRe.FindStringSubmatch(strings.TrimSpace(lines[start]))
	if m == nil {
		return nil, start
	}
	receiver := ""
	if m[1] != "" {
		if rm := receiverRe.FindStringSubmatch(strings.TrimSpace(m[1])); rm != nil {
			receiver = rm[1]
		}
	}
	name := m[2]
	params := parseParams(m[3])
	returnType := strings.TrimSpace(strings.TrimSuffix(m[4], "{"))

	bodyLines := []string{lines[start]}
	braceCount := strings.Count(lines[start], "{") - strings.Count(lines[start], "}")
	end := start
	for i := start + 1; i < len(lines) && braceCount > 0; i++ {
		bodyLines = append(bodyLines, lines[i])
		braceCount += strings.Count(lines[i], "{") - strings.Count(lines[i], "}")
		end = i
	}
	body := strings.Join(bodyLines, "\n")

	fn := &Function{
		Name:            name,
		ParentScope:     receiver,
		Loc:             Location{StartLine: start + 1, EndLine: end + 1, StartCol: 1, EndCol: len(lines[start]) + 1},
		Signature:       strings.TrimSpace(lines[start]),
		ReturnType:      returnType,
		Params:          params,
		Modifiers:       exportModifier(name),
		BodyPreview:     body,
		Complexity:      estimateComplexity(body),
		UnresolvedCalls: extractCalls(body, start+1),
	}
	return fn, end
}

func parseParams(raw string) []Param {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "(")
	raw = strings.TrimSuffix(raw, ")")
	if raw == "" {
		return nil
	}
	var params []Param
	for _, part := range paramSplitRe.Split(raw, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Fields(part)
		if len(fields) == 1 {
			params = append(params, Param{Name: "", Type: fields[0]})
		} else {
			params = append(params, Param{Name: fields[0], Type: strings.Join(fields[1:], " ")})
		}
	}
	return params
}

// estimateComplexity is a cheap cyclomatic-complexity proxy: count of
// branch/loop keywords plus one, the same heuristic the teacher's tooling
// surface (pkg/tools) reports as "complexity" without a real AST.
func estimateComplexity(body string) int {
	complexity := 1
	for _, kw := range []string{"if ", "for ", "case ", "&&", "||"} {
		complexity += strings.Count(body, kw)
	}
	return complexity
}

// extractCalls finds call-site patterns in a function body using the same
// identifier(...) / pkg.Name(...) heuristic the teacher's findGoCalls uses,
// but keeps the qualifier instead of resolving it, since resolution belongs
// to the linker (C7), not the parser.
func extractCalls(body string, startLine int) []UnresolvedCall {
	var calls []UnresolvedCall
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		for _, m := range callRe.FindAllStringSubmatch(line, -1) {
			if m[1] != "" && m[2] != "" {
				calls = append(calls, UnresolvedCall{
					CalleeName: m[2],
					ModulePath: m[1],
					Line:       startLine + i,
					IsDirect:   true,
				})
			} else if m[3] != "" && !isGoKeyword(m[3]) {
				calls = append(calls, UnresolvedCall{
					CalleeName: m[3],
					Line:       startLine + i,
					IsDirect:   true,
				})
			}
		}
	}
	return calls
}

func isGoKeyword(s string) bool {
	switch s {
	case "if", "for", "switch", "return", "range", "func", "go", "defer", "select", "make", "new", "len", "cap", "append", "panic", "recover":
		return true
	}
	return false
}

func (g *GoParser) parseStruct(lines []string, start int, name string) (Class, int) {
	end, body := scanBraceBlock(lines, start)
	cls := Class{
		Name:      name,
		Loc:       Location{StartLine: start + 1, EndLine: end + 1},
		Modifiers: exportModifier(name),
	}
	for i, line := range body {
		trimmed := strings.TrimSpace(line)
		if m := fieldRe.FindStringSubmatch(trimmed); m != nil {
			cls.Fields = append(cls.Fields, Field{Name: m[1], Type: strings.TrimLeft(m[2], "*[]"), Line: start + 2 + i})
			typeName := strings.TrimLeft(m[2], "*[]")
			if typeName != "" && !isPrimitiveType(typeName) {
				cls.UnresolvedTypes = append(cls.UnresolvedTypes, UnresolvedTypeRef{TypeName: typeName, Context: CtxGeneric})
			}
		}
	}
	return cls, end
}

func (g *GoParser) parseInterface(lines []string, start int, name string) (Interface, int) {
	end, body := scanBraceBlock(lines, start)
	iface := Interface{
		Name:      name,
		Loc:       Location{StartLine: start + 1, EndLine: end + 1},
		Modifiers: exportModifier(name),
	}
	for _, line := range body {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		if m := regexp.MustCompile(`^([A-Za-z_]\w*)\s*\(([^)]*)\)\s*(.*)$`).FindStringSubmatch(trimmed); m != nil {
			iface.Methods = append(iface.Methods, Function{
				Name:       m[1],
				Params:     parseParams("(" + m[2] + ")"),
				ReturnType: strings.TrimSpace(m[3]),
			})
		}
	}
	return iface, end
}

func scanBraceBlock(lines []string, start int) (int, []string) {
	braceCount := strings.Count(lines[start], "{") - strings.Count(lines[start], "}")
	end := start
	var body []string
	for i := start + 1; i < len(lines) && braceCount > 0; i++ {
		body = append(body, lines[i])
		braceCount += strings.Count(lines[i], "{") - strings.Count(lines[i], "}")
		end = i
	}
	return end, body
}

var primitiveTypes = map[string]bool{
	"string": true, "int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
	"float32": true, "float64": true, "bool": true, "byte": true, "rune": true,
	"error": true, "any": true, "interface{}": true,
}

func isPrimitiveType(t string) bool {
	return primitiveTypes[t]
}
