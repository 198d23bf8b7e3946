package uce

import (
	"context"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// TreeSitterGoParser is the AST-accurate counterpart to GoParser: it walks a
// real Go syntax tree instead of pattern-matching lines, at the cost of a
// heavier dependency. Only the Go grammar is wired (spec §1 leaves the
// tree-sitter front-end itself an external collaborator; we prove the
// contract with one concrete language rather than vendoring every grammar
// in the pack).
type TreeSitterGoParser struct {
	pool sync.Pool
	once sync.Once
}

// NewTreeSitterGoParser returns a ready-to-use TreeSitterGoParser.
func NewTreeSitterGoParser() *TreeSitterGoParser {
	return &TreeSitterGoParser{}
}

func (p *TreeSitterGoParser) initPool() {
	p.once.Do(func() {
		p.pool.New = func() any {
			parser := sitter.NewParser()
			parser.SetLanguage(golang.GetLanguage())
			return parser
		}
	})
}

// Parse implements uce.Parser for language=="go" using a real Go grammar.
func (p *TreeSitterGoParser) Parse(sourceBytes []byte, language string) (*File, error) {
	f := &File{Language: language}
	if language != "go" {
		return f, nil
	}
	p.initPool()
	parser := p.pool.Get().(*sitter.Parser)
	defer p.pool.Put(parser)

	tree, err := parser.ParseCtx(context.Background(), nil, sourceBytes)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	walkGoNode(root, sourceBytes, f)
	return f, nil
}

func nodeText(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(src)
}

func walkGoNode(n *sitter.Node, src []byte, f *File) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "package_clause":
		if id := n.NamedChild(0); id != nil {
			f.PackageName = nodeText(id, src)
		}
	case "import_spec":
		imp := parseImportSpec(n, src)
		f.Imports = append(f.Imports, imp)
	case "function_declaration":
		f.Functions = append(f.Functions, parseFuncNode(n, src, ""))
		return // children already consumed
	case "method_declaration":
		recv := methodReceiverType(n, src)
		f.Functions = append(f.Functions, parseFuncNode(n, src, recv))
		return
	case "type_declaration":
		parseTypeDeclNode(n, src, f)
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walkGoNode(n.NamedChild(i), src, f)
	}
}

func parseImportSpec(n *sitter.Node, src []byte) Import {
	imp := Import{Line: int(n.StartPoint().Row) + 1}
	pathNode := n.ChildByFieldName("path")
	imp.ImportPath = strings.Trim(nodeText(pathNode, src), `"`)
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		imp.Alias = nodeText(nameNode, src)
	}
	return imp
}

func methodReceiverType(n *sitter.Node, src []byte) string {
	recv := n.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	text := nodeText(recv, src)
	text = strings.Trim(text, "()")
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimPrefix(fields[len(fields)-1], "*")
}

func parseFuncNode(n *sitter.Node, src []byte, receiver string) Function {
	nameNode := n.ChildByFieldName("name")
	paramsNode := n.ChildByFieldName("parameters")
	resultNode := n.ChildByFieldName("result")
	bodyNode := n.ChildByFieldName("body")

	name := nodeText(nameNode, src)
	fn := Function{
		Name:        name,
		ParentScope: receiver,
		Loc: Location{
			StartLine: int(n.StartPoint().Row) + 1,
			EndLine:   int(n.EndPoint().Row) + 1,
			StartCol:  int(n.StartPoint().Column) + 1,
			EndCol:    int(n.EndPoint().Column) + 1,
		},
		Signature:   strings.TrimSuffix(strings.TrimSpace(signatureText(n, bodyNode, src)), "{"),
		ReturnType:  strings.TrimSpace(nodeText(resultNode, src)),
		Params:      parseParamList(paramsNode, src),
		Modifiers:   exportModifier(name),
		BodyPreview: nodeText(bodyNode, src),
		Complexity:  estimateComplexity(nodeText(bodyNode, src)),
	}
	fn.UnresolvedCalls = extractCalls(fn.BodyPreview, fn.Loc.StartLine)
	return fn
}

// signatureText returns the source text of n up to (but excluding) body,
// i.e. everything before the opening brace of the function body.
func signatureText(n, body *sitter.Node, src []byte) string {
	full := nodeText(n, src)
	if body == nil {
		return full
	}
	offset := int(body.StartByte() - n.StartByte())
	if offset < 0 || offset > len(full) {
		return full
	}
	return full[:offset]
}

func parseParamList(n *sitter.Node, src []byte) []Param {
	if n == nil {
		return nil
	}
	var params []Param
	for i := 0; i < int(n.NamedChildCount()); i++ {
		decl := n.NamedChild(i)
		nameNode := decl.ChildByFieldName("name")
		typeNode := decl.ChildByFieldName("type")
		params = append(params, Param{Name: nodeText(nameNode, src), Type: nodeText(typeNode, src)})
	}
	return params
}

func parseTypeDeclNode(n *sitter.Node, src []byte, f *File) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		spec := n.NamedChild(i)
		if spec.Type() != "type_spec" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		typeNode := spec.ChildByFieldName("type")
		name := nodeText(nameNode, src)
		if typeNode == nil {
			continue
		}
		switch typeNode.Type() {
		case "struct_type":
			f.Classes = append(f.Classes, parseStructType(name, typeNode, src))
		case "interface_type":
			f.Interfaces = append(f.Interfaces, parseInterfaceType(name, typeNode, src))
		default:
			f.TypeAliases = append(f.TypeAliases, TypeAlias{
				Name:      name,
				Loc:       Location{StartLine: int(spec.StartPoint().Row) + 1, EndLine: int(spec.EndPoint().Row) + 1},
				Modifiers: exportModifier(name),
			})
		}
	}
}

func parseStructType(name string, n *sitter.Node, src []byte) Class {
	cls := Class{
		Name:      name,
		Loc:       Location{StartLine: int(n.StartPoint().Row) + 1, EndLine: int(n.EndPoint().Row) + 1},
		Modifiers: exportModifier(name),
	}
	fieldList := n.ChildByFieldName("body")
	if fieldList == nil {
		return cls
	}
	for i := 0; i < int(fieldList.NamedChildCount()); i++ {
		decl := fieldList.NamedChild(i)
		if decl.Type() != "field_declaration" {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		typeNode := decl.ChildByFieldName("type")
		fname := nodeText(nameNode, src)
		ftype := strings.TrimLeft(nodeText(typeNode, src), "*[]")
		cls.Fields = append(cls.Fields, Field{Name: fname, Type: ftype, Line: int(decl.StartPoint().Row) + 1})
		if ftype != "" && !isPrimitiveType(ftype) {
			cls.UnresolvedTypes = append(cls.UnresolvedTypes, UnresolvedTypeRef{TypeName: ftype, Context: CtxGeneric})
		}
	}
	return cls
}

func parseInterfaceType(name string, n *sitter.Node, src []byte) Interface {
	iface := Interface{
		Name:      name,
		Loc:       Location{StartLine: int(n.StartPoint().Row) + 1, EndLine: int(n.EndPoint().Row) + 1},
		Modifiers: exportModifier(name),
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		member := n.NamedChild(i)
		if member.Type() != "method_spec" {
			continue
		}
		nameNode := member.ChildByFieldName("name")
		paramsNode := member.ChildByFieldName("parameters")
		resultNode := member.ChildByFieldName("result")
		iface.Methods = append(iface.Methods, Function{
			Name:       nodeText(nameNode, src),
			Params:     parseParamList(paramsNode, src),
			ReturnType: nodeText(resultNode, src),
		})
	}
	return iface
}
