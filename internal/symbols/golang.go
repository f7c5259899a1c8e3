package symbols

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/scouthq/scout/internal/scoutlog"
	"github.com/scouthq/scout/internal/types"
)

type goExtractor struct{}

func newGoExtractor() Extractor { return goExtractor{} }

func (goExtractor) Extensions() []string { return []string{".go"} }

// Extract walks the root node's direct children, recording one Symbol per
// top-level function_declaration (KindFunction), method_declaration
// (KindMethod), and named type_spec inside a type_declaration (KindClass —
// Go's nearest analogue). Method bodies and nested types are not enumerated
// separately.
func (goExtractor) Extract(ctx context.Context, content []byte, filePath string) []types.Symbol {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		scoutlog.Warnf("symbols: parsing %s: %v", filePath, err)
		return nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		scoutlog.Warnf("symbols: %s produced no parse tree", filePath)
		return nil
	}
	if root.HasError() {
		scoutlog.Warnf("symbols: %s contains syntax errors, returning no symbols", filePath)
		return nil
	}
	scoutlog.Debugf("symbols: parsed %s, %d top-level node(s)", filePath, root.ChildCount())

	var out []types.Symbol
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "function_declaration":
			if sym, ok := goFuncSymbol(child, content, types.KindFunction); ok {
				out = append(out, sym)
			}
		case "method_declaration":
			if sym, ok := goFuncSymbol(child, content, types.KindMethod); ok {
				out = append(out, sym)
			}
		case "type_declaration":
			out = append(out, goTypeSymbols(child, content)...)
		}
	}
	return out
}

func goFuncSymbol(node *sitter.Node, content []byte, kind types.SymbolKind) (types.Symbol, bool) {
	var name string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "identifier" || child.Type() == "field_identifier" {
			name = string(content[child.StartByte():child.EndByte()])
			break
		}
	}
	if name == "" {
		return types.Symbol{}, false
	}
	return types.Symbol{
		Name:      name,
		Kind:      kind,
		LineStart: int(node.StartPoint().Row) + 1,
		LineEnd:   int(node.EndPoint().Row) + 1,
	}, true
}

func goTypeSymbols(decl *sitter.Node, content []byte) []types.Symbol {
	var out []types.Symbol
	for i := 0; i < int(decl.ChildCount()); i++ {
		spec := decl.Child(i)
		if spec.Type() != "type_spec" {
			continue
		}
		var name string
		for j := 0; j < int(spec.ChildCount()); j++ {
			child := spec.Child(j)
			if child.Type() == "type_identifier" {
				name = string(content[child.StartByte():child.EndByte()])
				break
			}
		}
		if name == "" {
			continue
		}
		out = append(out, types.Symbol{
			Name:      name,
			Kind:      types.KindClass,
			LineStart: int(spec.StartPoint().Row) + 1,
			LineEnd:   int(spec.EndPoint().Row) + 1,
		})
	}
	return out
}
