package symbols

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/scouthq/scout/internal/scoutlog"
	"github.com/scouthq/scout/internal/types"
)

type pythonExtractor struct{}

func newPythonExtractor() Extractor { return pythonExtractor{} }

func (pythonExtractor) Extensions() []string { return []string{".py", ".pyi"} }

// Extract walks the root node's direct children, recording one Symbol per
// top-level function_definition and class_definition (including those
// wrapped in a decorated_definition), plus one Symbol per method defined
// directly in a class body. Definitions nested inside a function body (a
// closure) are not enumerated separately; they fall within the enclosing
// symbol's line range.
func (pythonExtractor) Extract(ctx context.Context, content []byte, filePath string) []types.Symbol {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

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
		case "function_definition":
			if sym, ok := pythonDefSymbol(child, content, types.KindFunction); ok {
				out = append(out, sym)
			}
		case "class_definition":
			if sym, ok := pythonDefSymbol(child, content, types.KindClass); ok {
				out = append(out, sym)
			}
			out = append(out, pythonClassMethods(child, content)...)
		case "decorated_definition":
			for j := 0; j < int(child.ChildCount()); j++ {
				inner := child.Child(j)
				switch inner.Type() {
				case "function_definition":
					if sym, ok := pythonDefSymbol(inner, content, types.KindFunction); ok {
						out = append(out, sym)
					}
				case "class_definition":
					if sym, ok := pythonDefSymbol(inner, content, types.KindClass); ok {
						out = append(out, sym)
					}
					out = append(out, pythonClassMethods(inner, content)...)
				}
			}
		}
	}
	return out
}

// pythonClassMethods returns one Symbol per method defined directly in
// classNode's body (the "block" child), unwrapping one level of
// decorated_definition the same way top-level functions are. A
// function_definition is a method exactly when it is a direct child of a
// class body; anything deeper stays inside its enclosing symbol's range.
func pythonClassMethods(classNode *sitter.Node, content []byte) []types.Symbol {
	var body *sitter.Node
	for i := 0; i < int(classNode.ChildCount()); i++ {
		if classNode.Child(i).Type() == "block" {
			body = classNode.Child(i)
			break
		}
	}
	if body == nil {
		return nil
	}

	var out []types.Symbol
	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		switch child.Type() {
		case "function_definition":
			if sym, ok := pythonDefSymbol(child, content, types.KindMethod); ok {
				out = append(out, sym)
			}
		case "decorated_definition":
			for j := 0; j < int(child.ChildCount()); j++ {
				if inner := child.Child(j); inner.Type() == "function_definition" {
					if sym, ok := pythonDefSymbol(inner, content, types.KindMethod); ok {
						out = append(out, sym)
					}
				}
			}
		}
	}
	return out
}

func pythonDefSymbol(node *sitter.Node, content []byte, kind types.SymbolKind) (types.Symbol, bool) {
	var name string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "identifier" {
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
