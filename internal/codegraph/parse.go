package codegraph

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/fgarofalo56/ragengine/internal/graph"
)

// Parser extracts graph.File nodes from Go source using the tree-sitter
// golang grammar. Only Go is supported, matching the reach of the corpus's
// one tree-sitter integration; unsupported extensions are the caller's
// concern to filter out before calling ParseFile.
type Parser struct{}

// NewParser returns a ready-to-use Parser. A new *sitter.Parser is created
// per ParseFile call since the underlying C parser is not thread-safe.
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile parses one Go source file into a graph.File. A parse failure
// (malformed source, or a tree with no root) is not fatal: it yields a File
// with no classes/functions rather than an error, so one bad file doesn't
// abort an entire repository index.
func (p *Parser) ParseFile(ctx context.Context, fileID, repoName, path string, content []byte) (graph.File, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil || tree == nil || tree.RootNode() == nil {
		return graph.File{ID: fileID, RepoName: repoName, Path: path}, nil
	}
	root := tree.RootNode()

	f := graph.File{
		ID:       fileID,
		RepoName: repoName,
		Path:     path,
		Imports:  extractImports(root, content),
	}

	classesByName := map[string]*graph.Class{}
	var order []string

	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "type_declaration":
			if c := extractStruct(child, content, repoName, path); c != nil {
				if _, exists := classesByName[c.Name]; !exists {
					order = append(order, c.Name)
				}
				classesByName[c.Name] = c
			}
		case "function_declaration":
			f.Functions = append(f.Functions, extractFunction(child, content, repoName, path))
		case "method_declaration":
			recv := methodReceiverType(child, content)
			if recv == "" {
				continue
			}
			c, ok := classesByName[recv]
			if !ok {
				c = &graph.Class{FullName: fullName(repoName, path, recv), Name: recv}
				classesByName[recv] = c
				order = append(order, recv)
			}
			c.Methods = append(c.Methods, extractMethod(child, content, repoName, path, recv))
		}
	}

	for _, name := range order {
		f.Classes = append(f.Classes, *classesByName[name])
	}
	return f, nil
}

func fullName(repoName, path, symbol string) string {
	return fmt.Sprintf("%s/%s.%s", repoName, path, symbol)
}

func nodeText(content []byte, n *sitter.Node) string {
	if n == nil {
		return ""
	}
	start, end := n.StartByte(), n.EndByte()
	if end <= start || int(end) > len(content) {
		return ""
	}
	return string(content[start:end])
}

func extractImports(root *sitter.Node, content []byte) []string {
	var imports []string
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "import_spec" {
			if path := n.ChildByFieldName("path"); path != nil {
				imports = append(imports, strings.Trim(nodeText(content, path), `"`))
			}
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if c := n.Child(i); c != nil {
				walk(c)
			}
		}
	}
	walk(root)
	return imports
}

func extractStruct(typeDecl *sitter.Node, content []byte, repoName, path string) *graph.Class {
	for i := 0; i < int(typeDecl.ChildCount()); i++ {
		spec := typeDecl.Child(i)
		if spec == nil || spec.Type() != "type_spec" {
			continue
		}
		name := nodeText(content, spec.ChildByFieldName("name"))
		typeNode := spec.ChildByFieldName("type")
		if name == "" || typeNode == nil || typeNode.Type() != "struct_type" {
			continue
		}

		c := &graph.Class{FullName: fullName(repoName, path, name), Name: name}
		fieldList := typeNode.ChildByFieldName("body")
		if fieldList == nil {
			return c
		}
		for j := 0; j < int(fieldList.ChildCount()); j++ {
			field := fieldList.Child(j)
			if field == nil || field.Type() != "field_declaration" {
				continue
			}
			fieldType := nodeText(content, field.ChildByFieldName("type"))
			for k := 0; k < int(field.ChildCount()); k++ {
				fc := field.Child(k)
				if fc == nil || fc.Type() != "field_identifier" {
					continue
				}
				fieldName := nodeText(content, fc)
				c.Attributes = append(c.Attributes, graph.Attribute{
					FullName: fullName(repoName, path, name+"."+fieldName),
					Name:     fieldName,
					Type:     fieldType,
				})
			}
		}
		return c
	}
	return nil
}

func methodReceiverType(methodDecl *sitter.Node, content []byte) string {
	recv := methodDecl.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	// receiver is a parameter_list with a single parameter_declaration
	// whose type may be a pointer_type wrapping a type_identifier.
	for i := 0; i < int(recv.ChildCount()); i++ {
		param := recv.Child(i)
		if param == nil || param.Type() != "parameter_declaration" {
			continue
		}
		t := param.ChildByFieldName("type")
		if t == nil {
			continue
		}
		if t.Type() == "pointer_type" {
			t = t.ChildByFieldName("type")
		}
		return strings.TrimSpace(nodeText(content, t))
	}
	return ""
}

func extractFunction(fn *sitter.Node, content []byte, repoName, path string) graph.Function {
	name := nodeText(content, fn.ChildByFieldName("name"))
	return graph.Function{
		FullName:   fullName(repoName, path, name),
		Name:       name,
		ParamsList: paramList(fn, content),
		ReturnType: resultType(fn, content),
	}
}

func extractMethod(fn *sitter.Node, content []byte, repoName, path, recv string) graph.Method {
	name := nodeText(content, fn.ChildByFieldName("name"))
	return graph.Method{
		FullName:   fullName(repoName, path, recv+"."+name),
		Name:       name,
		ParamsList: paramList(fn, content),
		ReturnType: resultType(fn, content),
	}
}

func paramList(fn *sitter.Node, content []byte) []string {
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(params.ChildCount()); i++ {
		p := params.Child(i)
		if p == nil || p.Type() != "parameter_declaration" {
			continue
		}
		out = append(out, strings.TrimSpace(nodeText(content, p)))
	}
	return out
}

func resultType(fn *sitter.Node, content []byte) string {
	result := fn.ChildByFieldName("result")
	if result == nil {
		return ""
	}
	return strings.TrimSpace(nodeText(content, result))
}
