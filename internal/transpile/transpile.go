// Package transpile turns module sources into CommonJS bodies the sandbox can
// run.
package transpile

import (
	"context"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"martianoff/flowc/flowerr"
	"martianoff/flowc/internal/ctxlog"
	"martianoff/flowc/internal/pathres"
)

// Transpiler converts one file's source to a CommonJS function body.
type Transpiler interface {
	Transpile(ctx context.Context, path string, src []byte) (string, error)
}

// ESBuild transpiles through esbuild's transform API.
type ESBuild struct {
	// Target is the emitted language level. Zero means ES2017.
	Target api.Target
}

// New returns an ESBuild transpiler with default settings.
func New() *ESBuild {
	return &ESBuild{}
}

// Transpile lowers DSL type arguments of TypeScript sources, then emits
// CommonJS. JSON files become a module.exports assignment.
func (e *ESBuild) Transpile(ctx context.Context, path string, src []byte) (string, error) {
	loader := loaderFor(path)
	if loader == api.LoaderTS || loader == api.LoaderTSX {
		lowered, err := LowerTypeArguments(ctx, path, src)
		if err != nil {
			return "", err
		}
		src = lowered
	}

	target := e.Target
	if target == 0 {
		target = api.ES2017
	}
	result := api.Transform(string(src), api.TransformOptions{
		Loader:     loader,
		Format:     api.FormatCommonJS,
		Target:     target,
		Sourcefile: path,
		LogLevel:   api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return "", toSyntaxErrors(path, result.Errors)
	}
	for _, w := range result.Warnings {
		ctxlog.FromContext(ctx).Debug("transpile warning", "path", path, "msg", w.Text)
	}
	return string(result.Code), nil
}

func loaderFor(path string) api.Loader {
	switch strings.ToLower(pathres.Ext(path)) {
	case ".tsx":
		return api.LoaderTSX
	case ".js", ".mjs", ".cjs":
		return api.LoaderJS
	case ".jsx":
		return api.LoaderJSX
	case ".json":
		return api.LoaderJSON
	}
	return api.LoaderTS
}

func toSyntaxErrors(path string, msgs []api.Message) error {
	errs := make([]error, 0, len(msgs))
	for _, m := range msgs {
		line, col := 0, 0
		if m.Location != nil {
			line, col = m.Location.Line, m.Location.Column+1
		}
		errs = append(errs, flowerr.NewSyntaxErrorInFile(path, line, col, m.Text))
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return &flowerr.MultiError{Errors: errs}
}
