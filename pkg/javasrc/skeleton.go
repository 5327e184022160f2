package javasrc

import "strings"

// SkeletonSpec describes the type skeleton to generate.
type SkeletonSpec struct {
	Kind        string // class, interface, enum, annotation
	Package     string
	Name        string
	Extends     string
	Implements  []string
	Imports     []string
	Annotations []string
}

// GenerateSkeleton renders an empty Java type declaration the
// Transformer can hand to the model as a starting point.
func GenerateSkeleton(spec SkeletonSpec) string {
	var b strings.Builder
	if spec.Package != "" {
		b.WriteString("package " + spec.Package + ";\n\n")
	}
	for _, imp := range spec.Imports {
		b.WriteString("import " + imp + ";\n")
	}
	if len(spec.Imports) > 0 {
		b.WriteString("\n")
	}
	for _, ann := range spec.Annotations {
		if !strings.HasPrefix(ann, "@") {
			ann = "@" + ann
		}
		b.WriteString(ann + "\n")
	}

	kind := spec.Kind
	if kind == "" {
		kind = "class"
	}
	if kind == "annotation" {
		b.WriteString("public @interface " + spec.Name + " {\n}\n")
		return b.String()
	}

	b.WriteString("public " + kind + " " + spec.Name)
	if spec.Extends != "" {
		b.WriteString(" extends " + spec.Extends)
	}
	if len(spec.Implements) > 0 && kind == "class" {
		b.WriteString(" implements " + strings.Join(spec.Implements, ", "))
	}
	b.WriteString(" {\n")

	if kind == "enum" {
		b.WriteString("    ;\n")
	}
	b.WriteString("}\n")
	return b.String()
}
