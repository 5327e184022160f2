package javasrc

import (
	"context"
	"strings"
)

// TargetedContext returns file content reduced for prompt inclusion.
// Files at or under threshold bytes pass through whole. Larger files
// are reduced to the package/import header, field declarations, and
// full bodies of only the methods whose names overlap the intent
// keywords; all other methods are elided to their signatures.
func (a *Analyzer) TargetedContext(ctx context.Context, content []byte, keywords []string, threshold int) (string, error) {
	if threshold <= 0 || len(content) <= threshold {
		return string(content), nil
	}

	structure, err := a.Analyze(ctx, content)
	if err != nil {
		// Unparseable content falls back to the raw head of the file.
		if len(content) > threshold {
			return string(content[:threshold]), nil
		}
		return string(content), nil
	}

	var b strings.Builder
	if structure.Package != "" {
		b.WriteString("package " + structure.Package + ";\n\n")
	}
	for _, imp := range structure.Imports {
		b.WriteString("import " + imp + ";\n")
	}
	if len(structure.Imports) > 0 {
		b.WriteString("\n")
	}

	for _, ann := range structure.Annotations {
		b.WriteString(ann + "\n")
	}
	b.WriteString("public " + structure.Kind + " " + structure.Name)
	if structure.Extends != "" {
		b.WriteString(" extends " + structure.Extends)
	}
	if len(structure.Implements) > 0 {
		b.WriteString(" implements " + strings.Join(structure.Implements, ", "))
	}
	b.WriteString(" {\n")

	for _, f := range structure.Fields {
		b.WriteString("    " + strings.TrimSpace(string(content[f.startByte:f.endByte])) + "\n")
	}
	if len(structure.Fields) > 0 {
		b.WriteString("\n")
	}

	for _, m := range structure.Methods {
		if methodMatchesKeywords(m, keywords) {
			b.WriteString("    " + strings.TrimSpace(string(content[m.startByte:m.endByte])) + "\n\n")
		} else {
			b.WriteString("    " + m.Signature() + " { /* ... */ }\n\n")
		}
	}

	b.WriteString("}\n")
	return b.String(), nil
}

// methodMatchesKeywords reports whether a method name overlaps any
// intent keyword, case-insensitively, in either direction.
func methodMatchesKeywords(m Method, keywords []string) bool {
	name := strings.ToLower(m.Name)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if len(kw) < 3 {
			continue
		}
		if strings.Contains(name, kw) || strings.Contains(kw, name) {
			return true
		}
	}
	return false
}
