package generator_test

import (
	"context"
	"errors"
	"os/exec"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/flowc/internal/build"
	"martianoff/flowc/internal/dsl"
	"martianoff/flowc/internal/generator"
	"martianoff/flowc/internal/model"
	"martianoff/flowc/internal/testutil"
	"martianoff/flowc/internal/vfs"
)

func buildFiles(t *testing.T, files map[string]string, root string) *model.Model {
	t.Helper()
	fs, err := vfs.NewMemory(files)
	require.NoError(t, err)
	b, err := build.NewBuilder(fs, build.Options{})
	require.NoError(t, err)
	res, err := b.Build(context.Background(), root)
	require.NoError(t, err)
	require.NoError(t, res.Validation)
	return res.Model
}

func shopModel(t *testing.T) (*model.Model, map[string]string) {
	t.Helper()
	files := testutil.Files(t, "shop", "/app")
	return buildFiles(t, files, "/app"), files
}

var sortMessages = cmpopts.SortSlices(func(a, b model.Message) bool { return a.Name < b.Name })

func TestGenerateFiles_RoundTrip(t *testing.T) {
	ctx := context.Background()
	original, shop := shopModel(t)

	files, err := generator.New(generator.Options{}).GenerateFiles(ctx, original)
	require.NoError(t, err)
	var names []string
	for _, f := range files {
		names = append(names, f.Path)
	}
	assert.Equal(t, []string{"catalog.flow.ts", "orders.flow.ts"}, names)

	regenerated := map[string]string{"/gen/flows/integrations.ts": shop["/app/flows/integrations.ts"]}
	for _, f := range files {
		regenerated["/gen/flows/"+f.Path] = f.Content
	}
	again := buildFiles(t, regenerated, "/gen")

	if diff := cmp.Diff(original, again, sortMessages); diff != "" {
		t.Errorf("round trip mismatch (-original +regenerated):\n%s", diff)
	}
}

func TestGenerate_SingleFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	original, shop := shopModel(t)

	src, err := generator.New(generator.Options{}).Generate(ctx, original)
	require.NoError(t, err)

	again := buildFiles(t, map[string]string{
		"/gen/integrations.ts": shop["/app/flows/integrations.ts"],
		"/gen/flows.flow.ts":   src,
	}, "/gen")
	if diff := cmp.Diff(original, again, sortMessages); diff != "" {
		t.Errorf("round trip mismatch (-original +regenerated):\n%s", diff)
	}
}

func TestGenerate_IsStable(t *testing.T) {
	ctx := context.Background()
	original, shop := shopModel(t)
	gen := generator.New(generator.Options{})

	first, err := gen.Generate(ctx, original)
	require.NoError(t, err)
	again := buildFiles(t, map[string]string{
		"/gen/integrations.ts": shop["/app/flows/integrations.ts"],
		"/gen/flows.flow.ts":   first,
	}, "/gen")
	second, err := gen.Generate(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func smallModel() *model.Model {
	m := model.New()
	m.Messages = []model.Message{
		{Type: model.MessageCommand, Name: "Ping", Fields: []model.Field{
			{Name: "id", Type: "string", Required: true},
			{Name: "note", Type: "string"},
		}},
		{Type: model.MessageEvent, Name: "Ponged", Source: model.SourceInternal, Fields: []model.Field{
			{Name: "id", Type: "string", Required: true},
		}},
		{Type: model.MessageState, Name: "Unused", Fields: []model.Field{}},
	}
	m.Integrations = []model.Integration{
		{Name: "Pager", Source: "./integrations"},
		{Name: "Slack", Source: dsl.DefaultModule},
		{Name: "Idle", Source: "./integrations"},
	}
	m.Flows = []model.Flow{{
		Name: "Ping Pong",
		Slices: []model.Slice{{
			Type: model.SliceCommand,
			Name: "ping",
			Via:  []string{"Pager", "Slack"},
			Server: model.Server{Specs: model.Spec{Rules: []model.Rule{{
				Description: "pongs",
				Examples: []model.Example{{
					Description: "pong",
					When:        model.SingleWhen(model.NewRef(model.MessageCommand, "Ping", map[string]any{"id": "p1"})),
					Then:        []model.Outcome{{Ref: model.NewRef(model.MessageEvent, "Ponged", map[string]any{"id": "p1"})}},
				}},
			}}}},
		}},
	}}
	return m
}

func TestGenerate_KeepsOnlyWhatIsUsed(t *testing.T) {
	src, err := generator.New(generator.Options{}).Generate(context.Background(), smallModel())
	require.NoError(t, err)

	assert.Contains(t, src, "import { flow, command, specs, rule, example } from '@flowc/dsl';")
	assert.Contains(t, src, "import type { Command, Event } from '@flowc/dsl';")
	assert.Contains(t, src, "import { Pager } from './integrations';")
	assert.Contains(t, src, "export type Ping = Command<'Ping', { id: string; note?: string }>;")
	assert.Contains(t, src, ".via(Pager, 'Slack')")
	assert.Contains(t, src, ".when<Ping>({ id: 'p1' })")
	assert.Contains(t, src, ".then<Ponged>({ id: 'p1' })")

	assert.NotContains(t, src, "Unused")
	assert.NotContains(t, src, "Idle")
	assert.NotContains(t, src, "State")
	assert.NotContains(t, src, "query")
	assert.True(t, strings.HasSuffix(src, ";\n"))
}

func TestGenerate_CustomDSLModule(t *testing.T) {
	src, err := generator.New(generator.Options{DSLModule: "@acme/flows"}).Generate(context.Background(), smallModel())
	require.NoError(t, err)
	assert.Contains(t, src, "from '@acme/flows';")
	assert.NotContains(t, src, dsl.DefaultModule)
	assert.Contains(t, src, ".via(Pager, 'Slack')")
	assert.Contains(t, src, "import { Pager } from './integrations';")
}

func TestGenerate_ErrorOutcomeAndPlaceholder(t *testing.T) {
	m := smallModel()
	ex := &m.Flows[0].Slices[0].Server.Specs.Rules[0].Examples[0]
	ex.Then = []model.Outcome{{Error: &model.ErrorOutcome{Type: model.NotFoundError, Message: "no such ping"}}}
	ex.When = model.SingleWhen(model.NewRef(model.MessageCommand, model.Placeholder, nil))

	src, err := generator.New(generator.Options{}).Generate(context.Background(), m)
	require.NoError(t, err)
	assert.Contains(t, src, ".when({})")
	assert.Contains(t, src, ".thenError('NotFoundError', 'no such ping')")
	assert.NotContains(t, src, "Ponged")
}

func TestGenerate_FormatterFallback(t *testing.T) {
	ctx := context.Background()
	plain, err := generator.New(generator.Options{}).Generate(ctx, smallModel())
	require.NoError(t, err)

	failing := generator.FormatterFunc(func(ctx context.Context, path, src string) (string, error) {
		return "", errors.New("formatter crashed")
	})
	got, err := generator.New(generator.Options{Formatter: failing}).Generate(ctx, smallModel())
	require.NoError(t, err)
	assert.Equal(t, plain, got)

	var seen string
	upper := generator.FormatterFunc(func(ctx context.Context, path, src string) (string, error) {
		seen = path
		return "// formatted\n" + src, nil
	})
	got, err = generator.New(generator.Options{Formatter: upper}).Generate(ctx, smallModel())
	require.NoError(t, err)
	assert.Equal(t, "flows.flow.ts", seen)
	assert.Equal(t, "// formatted\n"+plain, got)
}

func TestExecFormatter(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
	ctx := context.Background()
	out, err := (&generator.ExecFormatter{Command: "cat"}).Format(ctx, "a.flow.ts", "flow('A', () => {});\n")
	require.NoError(t, err)
	assert.Equal(t, "flow('A', () => {});\n", out)

	_, err = (&generator.ExecFormatter{Command: "sh", Args: []string{"-c", "echo bad {file} >&2; exit 3"}}).Format(ctx, "a.flow.ts", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad a.flow.ts")
}

func TestGenerateFiles_NameCollisions(t *testing.T) {
	m := smallModel()
	second := m.Flows[0]
	second.Name = "ping-pong"
	m.Flows = append(m.Flows, second)

	files, err := generator.New(generator.Options{}).GenerateFiles(context.Background(), m)
	require.NoError(t, err)
	var names []string
	for _, f := range files {
		names = append(names, f.Path)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"ping-pong-2.flow.ts", "ping-pong.flow.ts"}, names)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Items", "items"},
		{"ShoppingCart", "shopping-cart"},
		{"Order  Fulfilment!", "order-fulfilment"},
		{"HTTPServer", "httpserver"},
		{"v2 Checkout", "v2-checkout"},
		{"!!!", "flow"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, generator.FileName(tt.in))
		})
	}
}
