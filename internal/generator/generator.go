// Package generator synthesizes flow source files from a model.Model.
//
// Generation runs twice. The first pass declares every message, DSL function
// and integration; the draft is parsed back and the second pass keeps only
// what the flow statements reference.
package generator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"martianoff/flowc/internal/ctxlog"
	"martianoff/flowc/internal/dsl"
	"martianoff/flowc/internal/generator/tsast"
	"martianoff/flowc/internal/model"
)

// Extension is appended to generated file names.
const Extension = ".flow.ts"

// Options configures a Generator.
type Options struct {
	// DSLModule is the specifier generated files import the DSL from.
	DSLModule string
	// Formatter post-processes the printed text. Nil leaves it as printed.
	Formatter Formatter
	// Printer defaults to tsast.DefaultPrinter.
	Printer *tsast.Printer
}

// Generator turns models into source text.
type Generator struct {
	opts Options
}

// File is one generated source file; Path is relative to the output
// directory.
type File struct {
	Path    string
	Content string
}

// New creates a Generator.
func New(opts Options) *Generator {
	if opts.DSLModule == "" {
		opts.DSLModule = dsl.DefaultModule
	}
	if opts.Printer == nil {
		opts.Printer = tsast.DefaultPrinter
	}
	return &Generator{opts: opts}
}

// Generate renders every flow of m into a single file.
func (g *Generator) Generate(ctx context.Context, m *model.Model) (string, error) {
	return g.render(ctx, "flows"+Extension, m, m.Flows)
}

// GenerateFiles renders one file per flow, named after the flow.
func (g *Generator) GenerateFiles(ctx context.Context, m *model.Model) ([]File, error) {
	used := make(map[string]int)
	files := make([]File, 0, len(m.Flows))
	for _, f := range m.Flows {
		base := FileName(f.Name)
		used[base]++
		if n := used[base]; n > 1 {
			base += "-" + strconv.Itoa(n)
		}
		path := base + Extension
		content, err := g.render(ctx, path, m, []model.Flow{f})
		if err != nil {
			return nil, err
		}
		files = append(files, File{Path: path, Content: content})
	}
	return files, nil
}

func (g *Generator) render(ctx context.Context, path string, m *model.Model, flows []model.Flow) (string, error) {
	e := &emitter{m: m, pkg: dsl.Package(g.opts.DSLModule)}
	draft := g.opts.Printer.File(e.file(flows))

	u, err := analyze(ctx, path, draft)
	if err != nil {
		return "", fmt.Errorf("analyzing generated %s: %w", path, err)
	}
	e.usage = u
	src := g.opts.Printer.File(e.file(flows))

	if g.opts.Formatter == nil {
		return src, nil
	}
	formatted, err := g.opts.Formatter.Format(ctx, path, src)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("formatter failed; keeping unformatted output", "file", path, "error", err)
		return src, nil
	}
	return formatted, nil
}

// FileName turns a flow name into a kebab-case file name.
func FileName(name string) string {
	var sb strings.Builder
	prevLower, dash := false, false
	for _, r := range name {
		switch {
		case unicode.IsUpper(r):
			if prevLower {
				sb.WriteByte('-')
			}
			sb.WriteRune(unicode.ToLower(r))
			prevLower, dash = false, false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			prevLower, dash = true, false
		default:
			if !dash && sb.Len() > 0 {
				sb.WriteByte('-')
				dash = true
			}
			prevLower = false
		}
	}
	out := strings.Trim(sb.String(), "-")
	if out == "" {
		return "flow"
	}
	return out
}
