package classes

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/Aman-CERP/classindex/internal/extract"
)

// ArrayPlaceholder replaces array values in reduced-fidelity mode.
const ArrayPlaceholder = "[array]"

// Collector flattens entity trees into ClassRecords.
type Collector struct {
	reducedFidelity bool
}

// NewCollector creates a collector. With reducedFidelity, array
// properties render as ArrayPlaceholder instead of their elements.
func NewCollector(reducedFidelity bool) *Collector {
	return &Collector{reducedFidelity: reducedFidelity}
}

// Flatten emits one record per named entity, visiting nested entities
// at every depth in declaration order. Every record carries file.
func (c *Collector) Flatten(file string, entities []*extract.Entity) []ClassRecord {
	var out []ClassRecord
	for _, e := range entities {
		out = c.collect(file, e, out)
	}
	return out
}

func (c *Collector) collect(file string, e *extract.Entity, out []ClassRecord) []ClassRecord {
	if e == nil {
		return out
	}

	if e.Name == "" {
		slog.Debug("skipping unnamed class", slog.String("path", file))
	} else {
		out = append(out, ClassRecord{
			Name:       e.Name,
			Parent:     e.Parent,
			Properties: c.properties(e.Properties),
			SourceFile: file,
		})
	}

	for _, child := range e.Children() {
		out = c.collect(file, child, out)
	}
	return out
}

func (c *Collector) properties(props []extract.Property) []Property {
	out := make([]Property, 0, len(props))
	for _, p := range props {
		if p.Value.Kind == extract.KindClass {
			continue
		}
		out = append(out, Property{Key: p.Key, Value: Render(p.Value, c.reducedFidelity)})
	}
	return out
}

// Render converts a property value to its string form.
func Render(v extract.Value, reducedFidelity bool) string {
	if v.Kind == extract.KindArray && reducedFidelity {
		return ArrayPlaceholder
	}
	return render(v, false)
}

// render formats v; inArray quotes strings so element boundaries stay visible.
func render(v extract.Value, inArray bool) string {
	switch v.Kind {
	case extract.KindString:
		if inArray {
			return `"` + v.Text + `"`
		}
		return v.Text
	case extract.KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case extract.KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case extract.KindBoolean:
		return strconv.FormatBool(v.Bool)
	case extract.KindArray:
		parts := make([]string, len(v.Elems))
		for i, el := range v.Elems {
			parts[i] = render(el, true)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case extract.KindReference, extract.KindExpression:
		return v.Text
	case extract.KindMacro:
		return strconv.Itoa(v.Count) + ":" + v.Text
	case extract.KindClass:
		return "class"
	default:
		return ""
	}
}
