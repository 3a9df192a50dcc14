package generator

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Formatter rewrites generated source text.
type Formatter interface {
	Format(ctx context.Context, path, src string) (string, error)
}

// FormatterFunc adapts a function to Formatter.
type FormatterFunc func(ctx context.Context, path, src string) (string, error)

func (f FormatterFunc) Format(ctx context.Context, path, src string) (string, error) {
	return f(ctx, path, src)
}

// FilePlaceholder in ExecFormatter.Args is replaced by the file path.
const FilePlaceholder = "{file}"

// ExecFormatter pipes the source through an external command and reads the
// result from its standard output.
type ExecFormatter struct {
	Command string
	Args    []string
}

// Prettier formats with prettier found on PATH.
func Prettier() *ExecFormatter {
	return &ExecFormatter{Command: "prettier", Args: []string{"--stdin-filepath", FilePlaceholder}}
}

func (x *ExecFormatter) Format(ctx context.Context, path, src string) (string, error) {
	args := make([]string, len(x.Args))
	for i, a := range x.Args {
		args[i] = strings.ReplaceAll(a, FilePlaceholder, path)
	}
	cmd := exec.CommandContext(ctx, x.Command, args...)
	cmd.Stdin = strings.NewReader(src)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s: %w: %s", x.Command, err, msg)
		}
		return "", fmt.Errorf("%s: %w", x.Command, err)
	}
	return stdout.String(), nil
}
