// Package javasrc provides Java source analysis using tree-sitter: file
// structure extraction, targeted context for large files, skeleton
// generation, and test-file location.
package javasrc

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// Param is one method parameter.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Method describes one method or constructor of a type.
type Method struct {
	Name        string   `json:"name"`
	ReturnType  string   `json:"return_type,omitempty"`
	Parameters  []Param  `json:"parameters,omitempty"`
	Modifiers   []string `json:"modifiers,omitempty"`
	Annotations []string `json:"annotations,omitempty"`
	Public      bool     `json:"public"`
	Constructor bool     `json:"constructor,omitempty"`

	startByte int
	endByte   int
}

// Signature renders the method header without its body.
func (m Method) Signature() string {
	var b strings.Builder
	if len(m.Modifiers) > 0 {
		b.WriteString(strings.Join(m.Modifiers, " "))
		b.WriteString(" ")
	}
	if !m.Constructor && m.ReturnType != "" {
		b.WriteString(m.ReturnType)
		b.WriteString(" ")
	}
	b.WriteString(m.Name)
	b.WriteString("(")
	for i, p := range m.Parameters {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Type)
		if p.Name != "" {
			b.WriteString(" ")
			b.WriteString(p.Name)
		}
	}
	b.WriteString(")")
	return b.String()
}

// Field describes one field of a type.
type Field struct {
	Name      string   `json:"name"`
	Type      string   `json:"type"`
	Modifiers []string `json:"modifiers,omitempty"`
	Public    bool     `json:"public"`

	startByte int
	endByte   int
}

// Structure is the parsed shape of one Java source file's primary type.
type Structure struct {
	Package     string   `json:"package,omitempty"`
	Name        string   `json:"name"`
	Kind        string   `json:"kind"` // class, interface, enum, record
	Extends     string   `json:"extends,omitempty"`
	Implements  []string `json:"implements,omitempty"`
	Imports     []string `json:"imports,omitempty"`
	Annotations []string `json:"annotations,omitempty"`
	Methods     []Method `json:"methods,omitempty"`
	Fields      []Field  `json:"fields,omitempty"`

	headerEnd int // byte offset just past the type declaration opening
}

// PublicMethods counts non-constructor public methods.
func (s *Structure) PublicMethods() int {
	n := 0
	for _, m := range s.Methods {
		if m.Public && !m.Constructor {
			n++
		}
	}
	return n
}

// TestMethods counts methods annotated as tests.
func (s *Structure) TestMethods() int {
	n := 0
	for _, m := range s.Methods {
		for _, a := range m.Annotations {
			if strings.HasPrefix(a, "@Test") || strings.HasPrefix(a, "@ParameterizedTest") || strings.HasPrefix(a, "@RepeatedTest") {
				n++
				break
			}
		}
	}
	return n
}

// Analyzer parses Java source with tree-sitter. Not safe for concurrent
// use; create one per caller.
type Analyzer struct {
	parser *sitter.Parser
}

// NewAnalyzer creates a Java analyzer.
func NewAnalyzer() *Analyzer {
	p := sitter.NewParser()
	p.SetLanguage(java.GetLanguage())
	return &Analyzer{parser: p}
}

// Analyze parses content and extracts the structure of its primary
// top-level type.
func (a *Analyzer) Analyze(ctx context.Context, content []byte) (*Structure, error) {
	tree, err := a.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse java source: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	structure := &Structure{}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_declaration":
			structure.Package = extractPackageName(child, content)
		case "import_declaration":
			structure.Imports = append(structure.Imports, extractImport(child, content)...)
		case "class_declaration":
			if structure.Name == "" {
				a.extractType(child, content, structure, "class")
			}
		case "interface_declaration":
			if structure.Name == "" {
				a.extractType(child, content, structure, "interface")
			}
		case "enum_declaration":
			if structure.Name == "" {
				a.extractType(child, content, structure, "enum")
			}
		case "record_declaration":
			if structure.Name == "" {
				a.extractType(child, content, structure, "record")
			}
		}
	}

	if structure.Name == "" {
		return nil, fmt.Errorf("no top-level type declaration found")
	}
	return structure, nil
}

func (a *Analyzer) extractType(node *sitter.Node, content []byte, structure *Structure, kind string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	structure.Name = text(nameNode, content)
	structure.Kind = kind
	structure.Annotations = extractAnnotations(node, content)

	if superclass := node.ChildByFieldName("superclass"); superclass != nil {
		structure.Extends = extractTypeReference(superclass, content)
	}
	if interfaces := node.ChildByFieldName("interfaces"); interfaces != nil {
		structure.Implements = collectTypeNames(interfaces, content)
	}

	if body := node.ChildByFieldName("body"); body != nil {
		structure.headerEnd = int(body.StartByte()) + 1
		a.extractBody(body, content, structure)
	}
}

func (a *Analyzer) extractBody(body *sitter.Node, content []byte, structure *Structure) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		switch member.Type() {
		case "method_declaration":
			if m := extractMethod(member, content, false); m != nil {
				structure.Methods = append(structure.Methods, *m)
			}
		case "constructor_declaration":
			if m := extractMethod(member, content, true); m != nil {
				structure.Methods = append(structure.Methods, *m)
			}
		case "field_declaration":
			structure.Fields = append(structure.Fields, extractFields(member, content)...)
		}
	}
}

func extractPackageName(node *sitter.Node, content []byte) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "scoped_identifier" || child.Type() == "identifier" {
			return text(child, content)
		}
	}
	return ""
}

func extractImport(node *sitter.Node, content []byte) []string {
	var imports []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "scoped_identifier" || child.Type() == "identifier" {
			imports = append(imports, strings.TrimSuffix(text(child, content), ".*"))
		}
	}
	return imports
}

func extractMethod(node *sitter.Node, content []byte, constructor bool) *Method {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	m := &Method{
		Name:        text(nameNode, content),
		Modifiers:   extractModifiers(node, content),
		Annotations: extractAnnotations(node, content),
		Constructor: constructor,
		startByte:   int(node.StartByte()),
		endByte:     int(node.EndByte()),
	}
	m.Public = hasModifierKeyword(node, content, "public")

	if params := node.ChildByFieldName("parameters"); params != nil {
		for i := 0; i < int(params.NamedChildCount()); i++ {
			child := params.NamedChild(i)
			if child.Type() != "formal_parameter" && child.Type() != "spread_parameter" {
				continue
			}
			var p Param
			if typeNode := child.ChildByFieldName("type"); typeNode != nil {
				p.Type = extractTypeReference(typeNode, content)
			}
			if pn := child.ChildByFieldName("name"); pn != nil {
				p.Name = text(pn, content)
			}
			m.Parameters = append(m.Parameters, p)
		}
	}
	if returnType := node.ChildByFieldName("type"); returnType != nil {
		m.ReturnType = extractTypeReference(returnType, content)
	}
	return m
}

func extractFields(node *sitter.Node, content []byte) []Field {
	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return nil
	}
	typeName := extractTypeReference(typeNode, content)
	modifiers := extractModifiers(node, content)
	public := hasModifierKeyword(node, content, "public")

	var fields []Field
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "variable_declarator" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		fields = append(fields, Field{
			Name:      text(nameNode, content),
			Type:      typeName,
			Modifiers: modifiers,
			Public:    public,
			startByte: int(node.StartByte()),
			endByte:   int(node.EndByte()),
		})
	}
	return fields
}

// extractModifiers returns modifier keywords except access modifiers.
func extractModifiers(node *sitter.Node, content []byte) []string {
	var modifiers []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "modifiers" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			mod := child.Child(j)
			if mod.Type() == "marker_annotation" || mod.Type() == "annotation" {
				continue
			}
			if modText := strings.TrimSpace(text(mod, content)); modText != "" {
				modifiers = append(modifiers, modText)
			}
		}
	}
	return modifiers
}

func hasModifierKeyword(node *sitter.Node, content []byte, keyword string) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "modifiers" && strings.Contains(text(child, content), keyword) {
			return true
		}
	}
	return false
}

// extractAnnotations collects annotations directly on the node or inside
// its modifiers child.
func extractAnnotations(node *sitter.Node, content []byte) []string {
	var annotations []string
	appendAnn := func(n *sitter.Node) {
		t := n.Type()
		if t == "marker_annotation" || t == "annotation" {
			annotations = append(annotations, strings.TrimSpace(text(n, content)))
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		appendAnn(child)
		if child.Type() == "modifiers" {
			for j := 0; j < int(child.ChildCount()); j++ {
				appendAnn(child.Child(j))
			}
		}
	}
	return annotations
}

// extractTypeReference extracts a type name, stripping generic arguments.
func extractTypeReference(typeNode *sitter.Node, content []byte) string {
	switch typeNode.Type() {
	case "generic_type":
		for i := 0; i < int(typeNode.NamedChildCount()); i++ {
			child := typeNode.NamedChild(i)
			if child.Type() == "type_identifier" || child.Type() == "scoped_type_identifier" {
				return text(child, content)
			}
		}
		return ""
	case "superclass", "super_interfaces":
		for i := 0; i < int(typeNode.NamedChildCount()); i++ {
			if name := extractTypeReference(typeNode.NamedChild(i), content); name != "" {
				return name
			}
		}
		return ""
	default:
		return strings.TrimSpace(text(typeNode, content))
	}
}

// collectTypeNames gathers every type name under an implements clause,
// descending through the type_list wrapper.
func collectTypeNames(node *sitter.Node, content []byte) []string {
	var names []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "type_list":
			names = append(names, collectTypeNames(child, content)...)
		case "type_identifier", "scoped_type_identifier", "generic_type":
			if name := extractTypeReference(child, content); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

func text(node *sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}
