package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/simonhull/norms/pkg/pattern"
	"github.com/simonhull/norms/pkg/project"
)

// grammar describes how callables look in one tree-sitter grammar
type grammar struct {
	language func() *sitter.Language
	funcs    map[string]bool
	public   func(n *sitter.Node, name string, src []byte) bool
}

var grammars = map[string]grammar{
	project.Go: {
		language: golang.GetLanguage,
		funcs:    set("function_declaration", "method_declaration"),
		public: func(_ *sitter.Node, name string, _ []byte) bool {
			r, _ := utf8.DecodeRuneInString(name)
			return unicode.IsUpper(r)
		},
	},
	project.Python: {
		language: python.GetLanguage,
		funcs:    set("function_definition"),
		public: func(_ *sitter.Node, name string, _ []byte) bool {
			return !strings.HasPrefix(name, "_")
		},
	},
	project.JavaScript: {
		language: javascript.GetLanguage,
		funcs:    set("function_declaration", "generator_function_declaration", "method_definition"),
		public:   jsPublic,
	},
	project.TypeScript: {
		language: typescript.GetLanguage,
		funcs:    set("function_declaration", "generator_function_declaration", "method_definition", "method_signature"),
		public:   jsPublic,
	},
	project.Rust: {
		language: rust.GetLanguage,
		funcs:    set("function_item", "function_signature_item"),
		public: func(n *sitter.Node, _ string, src []byte) bool {
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				if child.Type() == "visibility_modifier" && child.Content(src) == "pub" {
					return true
				}
			}
			return false
		},
	},
}

func jsPublic(n *sitter.Node, name string, src []byte) bool {
	if strings.HasPrefix(name, "_") || strings.HasPrefix(name, "#") {
		return false
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "accessibility_modifier" {
			mod := child.Content(src)
			return mod != "private" && mod != "protected"
		}
	}
	return true
}

// HasGrammar reports whether lang can be parsed into a syntax tree
func HasGrammar(lang string) bool {
	_, ok := grammars[lang]
	return ok
}

// treeSignatures extracts public signatures from a full parse
func treeSignatures(ctx context.Context, path string, src []byte, lang string) ([]pattern.Signature, error) {
	g, ok := grammars[lang]
	if !ok {
		return nil, fmt.Errorf("no grammar for %s", lang)
	}
	language := g.language()
	if lang == project.TypeScript && strings.EqualFold(filepath.Ext(path), ".tsx") {
		language = tsx.GetLanguage()
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(language)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	var sigs []pattern.Signature
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if g.funcs[n.Type()] {
			if sig, ok := treeSignature(n, g, src); ok {
				sigs = append(sigs, sig)
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(tree.RootNode())
	return sigs, nil
}

func treeSignature(n *sitter.Node, g grammar, src []byte) (pattern.Signature, bool) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return pattern.Signature{}, false
	}
	name := nameNode.Content(src)
	if !g.public(n, name, src) {
		return pattern.Signature{}, false
	}

	sig := pattern.Signature{
		Name: name,
		Line: int(n.StartPoint().Row) + 1,
	}
	if n.ChildByFieldName("result") != nil || n.ChildByFieldName("return_type") != nil {
		sig.HasReturnType = true
	}

	counts := make(map[pattern.NamingStyle]int)
	if list := n.ChildByFieldName("parameters"); list != nil {
		for i := 0; i < int(list.NamedChildCount()); i++ {
			names, arity := paramNames(list.NamedChild(i), src)
			sig.Arity += arity
			for _, pn := range names {
				if style := ClassifyIdentifier(pn, false); style != "" {
					counts[style]++
				}
			}
		}
	}
	for _, style := range styleOrder {
		if counts[style] > counts[sig.ParamCasing] {
			sig.ParamCasing = style
		}
	}
	return sig, true
}

// paramNames returns the names a parameter node declares and how many
// parameters it counts for
func paramNames(n *sitter.Node, src []byte) ([]string, int) {
	switch n.Type() {
	case "comment", "self_parameter":
		return nil, 0
	case "parameter_declaration", "variadic_parameter_declaration":
		var names []string
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if child := n.NamedChild(i); child.Type() == "identifier" {
				names = append(names, child.Content(src))
			}
		}
		if len(names) == 0 {
			return nil, 1
		}
		return names, len(names)
	}

	name := firstIdentifier(n, src)
	switch name {
	case "self", "cls", "this":
		return nil, 0
	case "":
		return nil, 1
	}
	return []string{name}, 1
}

func firstIdentifier(n *sitter.Node, src []byte) string {
	if n.Type() == "identifier" {
		return n.Content(src)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if name := firstIdentifier(n.NamedChild(i), src); name != "" {
			return name
		}
	}
	return ""
}
