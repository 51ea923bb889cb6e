// Package parser reads source files with tree-sitter and reports the facts the
// signal collector needs: the language, the imported modules and how many
// top-level declarations a file carries.
package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Language names a grammar and the node types that matter for profiling.
type Language struct {
	Name    string
	grammar *sitter.Language
	decls   []string
	imports []string
}

var (
	goLang = Language{
		Name: "Go", grammar: golang.GetLanguage(),
		decls:   []string{"function_declaration", "method_declaration", "type_declaration"},
		imports: []string{"import_declaration"},
	}
	pythonLang = Language{
		Name: "Python", grammar: python.GetLanguage(),
		decls:   []string{"function_definition", "class_definition"},
		imports: []string{"import_statement", "import_from_statement"},
	}
	jsLang = Language{
		Name: "JavaScript", grammar: javascript.GetLanguage(),
		decls:   []string{"function_declaration", "class_declaration"},
		imports: []string{"import_statement", "call_expression"},
	}
	tsLang = Language{
		Name: "TypeScript", grammar: typescript.GetLanguage(),
		decls:   []string{"function_declaration", "class_declaration", "interface_declaration"},
		imports: []string{"import_statement"},
	}
	tsxLang = Language{
		Name: "TypeScript", grammar: tsx.GetLanguage(),
		decls:   []string{"function_declaration", "class_declaration", "interface_declaration"},
		imports: []string{"import_statement"},
	}
	javaLang = Language{
		Name: "Java", grammar: java.GetLanguage(),
		decls:   []string{"class_declaration", "interface_declaration", "method_declaration"},
		imports: []string{"import_declaration"},
	}
	rustLang = Language{
		Name: "Rust", grammar: rust.GetLanguage(),
		decls:   []string{"function_item", "struct_item", "enum_item", "trait_item"},
		imports: []string{"use_declaration", "extern_crate_declaration"},
	}
	rubyLang = Language{
		Name: "Ruby", grammar: ruby.GetLanguage(),
		decls:   []string{"method", "class", "module"},
		imports: []string{"call"},
	}
	cLang = Language{
		Name: "C", grammar: c.GetLanguage(),
		decls:   []string{"function_definition", "struct_specifier"},
		imports: []string{"preproc_include"},
	}
	cppLang = Language{
		Name: "C++", grammar: cpp.GetLanguage(),
		decls:   []string{"function_definition", "class_specifier", "struct_specifier"},
		imports: []string{"preproc_include"},
	}
)

var byExtension = map[string]Language{
	".go":   goLang,
	".py":   pythonLang,
	".js":   jsLang,
	".jsx":  jsLang,
	".mjs":  jsLang,
	".cjs":  jsLang,
	".ts":   tsLang,
	".tsx":  tsxLang,
	".java": javaLang,
	".rs":   rustLang,
	".rb":   rubyLang,
	".c":    cLang,
	".h":    cLang,
	".cc":   cppLang,
	".cpp":  cppLang,
	".hpp":  cppLang,
}

// Detect returns the grammar for a file name.
func Detect(filename string) (Language, bool) {
	l, ok := byExtension[strings.ToLower(filepath.Ext(filename))]
	return l, ok
}

// Parser wraps a tree-sitter parser. It is not safe for concurrent use.
type Parser struct {
	inner *sitter.Parser
}

// NewParser creates a new Parser instance.
func NewParser() *Parser {
	return &Parser{inner: sitter.NewParser()}
}

// Parse parses source using the grammar detected from filename.
func (p *Parser) Parse(ctx context.Context, filename string, source []byte) (*Tree, error) {
	lang, ok := Detect(filename)
	if !ok {
		return nil, fmt.Errorf("unsupported file extension %q", filepath.Ext(filename))
	}
	p.inner.SetLanguage(lang.grammar)
	st, err := p.inner.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return &Tree{tree: st, source: source, lang: lang}, nil
}

// Tree is a parsed file. Close releases the underlying syntax tree.
type Tree struct {
	tree   *sitter.Tree
	source []byte
	lang   Language
}

// Language returns the grammar the tree was parsed with.
func (t *Tree) Language() Language { return t.lang }

// Close releases the syntax tree.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// Declarations counts function, type and class declarations.
func (t *Tree) Declarations() int {
	kinds := set(t.lang.decls)
	n := 0
	walk(t.tree.RootNode(), func(node *sitter.Node) {
		if kinds[node.Type()] {
			n++
		}
	})
	return n
}

// Imports returns the imported module paths in source order, without
// duplicates.
func (t *Tree) Imports() []string {
	kinds := set(t.lang.imports)
	seen := make(map[string]bool)
	var out []string
	walk(t.tree.RootNode(), func(node *sitter.Node) {
		if !kinds[node.Type()] {
			return
		}
		for _, path := range t.importPaths(node) {
			if path != "" && !seen[path] {
				seen[path] = true
				out = append(out, path)
			}
		}
	})
	return out
}

func (t *Tree) importPaths(node *sitter.Node) []string {
	text := node.Content(t.source)
	switch node.Type() {
	case "import_declaration":
		return t.declarationPaths(node)
	case "import_statement":
		if t.lang.Name == "Python" {
			return pythonImport(text)
		}
		return []string{fromClause(text)}
	case "import_from_statement":
		return []string{pythonFrom(text)}
	case "use_declaration":
		return []string{trimQuotes(strings.TrimSuffix(strings.TrimPrefix(text, "use "), ";"))}
	case "extern_crate_declaration":
		return []string{trimQuotes(strings.TrimSuffix(strings.TrimPrefix(text, "extern crate "), ";"))}
	case "preproc_include":
		return []string{strings.Trim(strings.TrimSpace(strings.TrimPrefix(text, "#include")), `<>"`)}
	case "call":
		return rubyRequire(text)
	case "call_expression":
		return commonJSRequire(text)
	}
	return nil
}

// declarationPaths collects Go string literals and Java scoped identifiers.
func (t *Tree) declarationPaths(node *sitter.Node) []string {
	var paths []string
	walk(node, func(n *sitter.Node) {
		switch n.Type() {
		case "interpreted_string_literal":
			paths = append(paths, trimQuotes(n.Content(t.source)))
		case "scoped_identifier":
			if p := n.Parent(); p != nil && p.Type() == "scoped_identifier" {
				return
			}
			paths = append(paths, n.Content(t.source))
		}
	})
	return paths
}

func fromClause(text string) string {
	if i := strings.LastIndex(text, " from "); i >= 0 {
		return trimQuotes(text[i+len(" from "):])
	}
	// import "./side-effect";
	return trimQuotes(strings.TrimPrefix(text, "import"))
}

func pythonImport(text string) []string {
	var out []string
	for _, part := range strings.Split(strings.TrimPrefix(text, "import "), ",") {
		if i := strings.Index(part, " as "); i >= 0 {
			part = part[:i]
		}
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func pythonFrom(text string) string {
	text = strings.TrimPrefix(text, "from ")
	if i := strings.Index(text, " import "); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

func rubyRequire(text string) []string {
	for _, prefix := range []string{"require_relative", "require"} {
		rest, ok := strings.CutPrefix(text, prefix)
		if ok && rest != "" && (rest[0] == ' ' || rest[0] == '(') {
			if prefix == "require_relative" {
				return []string{"./" + trimQuotes(rest)}
			}
			return []string{trimQuotes(rest)}
		}
	}
	return nil
}

func commonJSRequire(text string) []string {
	rest, ok := strings.CutPrefix(text, "require(")
	if !ok {
		return nil
	}
	return []string{trimQuotes(strings.TrimSuffix(rest, ")"))}
}

func trimQuotes(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "\"'`();"))
}

func set(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

// walk visits node and its descendants depth-first.
func walk(node *sitter.Node, fn func(*sitter.Node)) {
	if node == nil {
		return
	}
	fn(node)
	for i := 0; i < int(node.ChildCount()); i++ {
		walk(node.Child(i), fn)
	}
}
