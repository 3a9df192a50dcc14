package build_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/flowc/flowerr"
	"martianoff/flowc/internal/build"
	"martianoff/flowc/internal/model"
	"martianoff/flowc/internal/testutil"
	"martianoff/flowc/internal/vfs"
)

func newShop(t *testing.T, opts build.Options) (*vfs.Billy, *build.Builder) {
	t.Helper()
	fs := testutil.MemoryFS(t, "shop", "/app", nil)
	b, err := build.NewBuilder(fs, opts)
	require.NoError(t, err)
	return fs, b
}

func flowNames(m *model.Model) []string {
	var names []string
	for _, f := range m.Flows {
		names = append(names, f.Name)
	}
	return names
}

func TestDiscover_IncludeExclude(t *testing.T) {
	_, b := newShop(t, build.Options{})
	entries, err := b.Discover(context.Background(), "/app")
	require.NoError(t, err)
	assert.Equal(t, []string{"/app/flows/catalog.flow.ts", "/app/flows/orders.flow.ts"}, entries)
}

func TestDiscover_CustomPatterns(t *testing.T) {
	_, b := newShop(t, build.Options{Include: []string{"flows/orders*.ts"}})
	entries, err := b.Discover(context.Background(), "/app")
	require.NoError(t, err)
	assert.Equal(t, []string{"/app/flows/orders.flow.ts"}, entries)
}

func TestNewBuilder_InvalidPattern(t *testing.T) {
	fs, err := vfs.NewMemory(nil)
	require.NoError(t, err)
	_, err = build.NewBuilder(fs, build.Options{Include: []string{"[flows"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid glob pattern")
}

func TestBuild_Shop(t *testing.T) {
	_, b := newShop(t, build.Options{})
	res, err := b.Build(context.Background(), "/app")
	require.NoError(t, err)

	assert.NoError(t, res.Validation)
	assert.False(t, res.Cached)
	assert.Equal(t, []string{"Catalog", "Orders"}, flowNames(res.Model))
	assert.Contains(t, res.Fingerprint, "h1:")

	var names []string
	for _, msg := range res.Model.Messages {
		names = append(names, msg.Name)
	}
	assert.Equal(t, []string{"AddItem", "ItemAdded", "CatalogView", "SendWelcome", "OrderPlaced", "OrderView"}, names)

	for _, msg := range res.Model.Messages {
		switch msg.Name {
		case "ItemAdded":
			assert.Equal(t, model.SourceInternal, msg.Source)
		case "OrderPlaced":
			assert.Equal(t, model.SourceInternal, msg.Source, "given events are neither produced nor consumed")
		}
	}
	assert.Equal(t, []model.Integration{{Name: "Mailer", Source: "./integrations"}}, res.Model.Integrations)

	for _, d := range res.Diagnostics {
		t.Logf("diagnostic: %s", d)
	}
}

func TestBuild_DependencyTypesComeFirst(t *testing.T) {
	fs, err := vfs.NewMemory(map[string]string{
		"/app/deps/billing.flow.ts": `import { flow, command, specs, rule, example } from '@flowc/dsl';
import type { Event } from '@flowc/dsl';
import type { ChargeCard } from './charge';

type Invoiced = Event<'Invoiced', { invoiceId: string }>;

flow('Billing', () => {
  command('charge').server(() => {
    specs(() => {
      rule('charges', () => {
        example('charged')
          .when<ChargeCard>({ invoiceId: 'i1' })
          .then<Invoiced>({ invoiceId: 'i1' });
      });
    });
  });
});
`,
		"/app/deps/charge.ts": `import type { Command } from '@flowc/dsl';
export type ChargeCard = Command<'ChargeCard', { invoiceId: string }>;
`,
	})
	require.NoError(t, err)
	b, err := build.NewBuilder(fs, build.Options{})
	require.NoError(t, err)

	res, err := b.Build(context.Background(), "/app")
	require.NoError(t, err)
	require.NoError(t, res.Validation)
	assert.Equal(t, []string{"/app/deps/billing.flow.ts", "/app/deps/charge.ts"}, res.Graph.Order)

	var names []string
	for _, msg := range res.Model.Messages {
		names = append(names, msg.Name)
	}
	assert.Equal(t, []string{"ChargeCard", "Invoiced"}, names)
}

func TestBuildCached_Invalidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(t *testing.T, fs *vfs.Billy)
		cached bool
		flows  []string
	}{
		{
			name:   "unchanged",
			mutate: func(t *testing.T, fs *vfs.Billy) {},
			cached: true,
			flows:  []string{"Catalog", "Orders"},
		},
		{
			name: "reachable module modified",
			mutate: func(t *testing.T, fs *vfs.Billy) {
				require.NoError(t, fs.WriteFile("/app/flows/integrations.ts", []byte(
					"import { integration } from '@flowc/dsl';\n\nexport const Mailer = integration('Mailer', 'smtp');\n")))
			},
			cached: false,
			flows:  []string{"Catalog", "Orders"},
		},
		{
			name: "unreachable file modified",
			mutate: func(t *testing.T, fs *vfs.Billy) {
				require.NoError(t, fs.WriteFile("/app/notes/scratch.ts", []byte("export const draft = 'edited';\n")))
			},
			cached: true,
			flows:  []string{"Catalog", "Orders"},
		},
		{
			name: "line endings only",
			mutate: func(t *testing.T, fs *vfs.Billy) {
				require.NoError(t, fs.WriteFile("/app/flows/integrations.ts", []byte(
					"import { integration } from '@flowc/dsl';\r\n\r\nexport const Mailer = integration('Mailer', 'email');\r\n")))
			},
			cached: true,
			flows:  []string{"Catalog", "Orders"},
		},
		{
			name: "entry deleted",
			mutate: func(t *testing.T, fs *vfs.Billy) {
				require.NoError(t, fs.Remove("/app/flows/orders.flow.ts"))
			},
			cached: false,
			flows:  []string{"Catalog"},
		},
		{
			name: "entry renamed",
			mutate: func(t *testing.T, fs *vfs.Billy) {
				require.NoError(t, fs.Rename("/app/flows/orders.flow.ts", "/app/flows/sales/orders.flow.ts"))
			},
			cached: false,
			flows:  []string{"Catalog", "Orders"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, b := newShop(t, build.Options{})
			first, err := b.BuildCached(ctx, "shop", "/app")
			require.NoError(t, err)
			require.False(t, first.Cached)

			tt.mutate(t, fs)

			second, err := b.BuildCached(ctx, "shop", "/app")
			require.NoError(t, err)
			assert.Equal(t, tt.cached, second.Cached)
			assert.ElementsMatch(t, tt.flows, flowNames(second.Model))
			if tt.cached {
				assert.Equal(t, first.Fingerprint, second.Fingerprint)
			} else {
				assert.NotEqual(t, first.Fingerprint, second.Fingerprint)
			}
		})
	}
}

func TestBuildCached_NewTargetAppears(t *testing.T) {
	ctx := context.Background()
	fs, err := vfs.NewMemory(map[string]string{
		"/app/a.flow.ts": `import { flow } from '@flowc/dsl';
import { label } from './shared';
flow(label, () => {});
`,
		"/app/shared/index.ts": "export const label = 'FromIndex';\n",
	})
	require.NoError(t, err)
	b, err := build.NewBuilder(fs, build.Options{Include: []string{"*.flow.ts"}})
	require.NoError(t, err)

	first, err := b.BuildCached(ctx, "k", "/app")
	require.NoError(t, err)
	assert.Equal(t, []string{"FromIndex"}, flowNames(first.Model))

	// "./shared.ts" is tried before "./shared/index.ts".
	require.NoError(t, fs.WriteFile("/app/shared.ts", []byte("export const label = 'FromFile';\n")))

	second, err := b.BuildCached(ctx, "k", "/app")
	require.NoError(t, err)
	assert.False(t, second.Cached)
	assert.Equal(t, []string{"FromFile"}, flowNames(second.Model))
}

func TestBuildCached_KeysAndInvalidate(t *testing.T) {
	ctx := context.Background()
	_, b := newShop(t, build.Options{})

	_, err := b.BuildCached(ctx, "a", "/app")
	require.NoError(t, err)
	other, err := b.BuildCached(ctx, "b", "/app")
	require.NoError(t, err)
	assert.False(t, other.Cached, "keys are cached independently")

	b.Invalidate("a")
	again, err := b.BuildCached(ctx, "a", "/app")
	require.NoError(t, err)
	assert.False(t, again.Cached)

	hit, err := b.BuildCached(ctx, "b", "/app")
	require.NoError(t, err)
	assert.True(t, hit.Cached)
}

func TestBuildCached_Concurrent(t *testing.T) {
	ctx := context.Background()
	_, b := newShop(t, build.Options{})

	var wg sync.WaitGroup
	results := make([]*build.Result, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = b.BuildCached(ctx, "shop", "/app")
		}()
	}
	wg.Wait()

	built := 0
	for i := range results {
		require.NoError(t, errs[i])
		if !results[i].Cached {
			built++
		}
		assert.Equal(t, results[0].Fingerprint, results[i].Fingerprint)
	}
	assert.Equal(t, 1, built)
}

func TestBuild_PathAliases(t *testing.T) {
	ctx := context.Background()
	fs, err := vfs.NewMemory(map[string]string{
		"/app/flows/mail.flow.ts": `import { flow, command, specs, rule, example } from '@flowc/dsl';
import type { Command, Event } from '@flowc/dsl';
import { Mailer } from '@shop/integrations';

type Send = Command<'Send', { to: string }>;
type Sent = Event<'Sent', { to: string }>;

flow('Mail', () => {
  command('send').via(Mailer).server(() => {
    specs(() => {
      rule('sends', () => {
        example('ok').when<Send>({ to: 'a@b.c' }).then<Sent>({ to: 'a@b.c' });
      });
    });
  });
});
`,
		"/app/lib/integrations.ts": "import { integration } from '@flowc/dsl';\nexport const Mailer = integration('Mailer', 'email');\n",
	})
	require.NoError(t, err)
	b, err := build.NewBuilder(fs, build.Options{Paths: map[string]string{"@shop/*": "/app/lib/*"}})
	require.NoError(t, err)

	res, err := b.BuildCached(ctx, "mail", "/app")
	require.NoError(t, err)
	require.NoError(t, res.Validation)
	assert.Equal(t, 2, res.Graph.Passes)
	assert.Equal(t, []model.Integration{{Name: "Mailer", Source: "@shop/integrations"}}, res.Model.Integrations)

	require.NoError(t, fs.WriteFile("/app/lib/integrations.ts", []byte(
		"import { integration } from '@flowc/dsl';\nexport const Mailer = integration('Mailer', 'smtp');\n")))
	res, err = b.BuildCached(ctx, "mail", "/app")
	require.NoError(t, err)
	assert.False(t, res.Cached)
}

func TestBuild_UnresolvedExternal(t *testing.T) {
	fs, err := vfs.NewMemory(map[string]string{
		"/app/a.flow.ts": "import pad from 'left-pad';\nexport const padded = pad;\n",
	})
	require.NoError(t, err)
	b, err := build.NewBuilder(fs, build.Options{})
	require.NoError(t, err)

	_, err = b.Build(context.Background(), "/app")
	require.Error(t, err)
	var ge *flowerr.GraphError
	require.True(t, errors.As(err, &ge), "got %v", err)
	assert.Equal(t, "left-pad", ge.Specifier)
}

func TestBuild_InvalidModelIsReturned(t *testing.T) {
	fs, err := vfs.NewMemory(map[string]string{
		"/app/a.flow.ts": `import { flow, command, specs, rule, example } from '@flowc/dsl';
flow('A', () => {
  command('c').server(() => {
    specs(() => {
      rule('r', () => {
        example('e').when({ nothing: 'matches' }).then({ at: 'all' });
      });
    });
  });
});
`,
	})
	require.NoError(t, err)
	b, err := build.NewBuilder(fs, build.Options{})
	require.NoError(t, err)

	res, err := b.Build(context.Background(), "/app")
	require.NoError(t, err)
	require.NotNil(t, res.Model)
	var ve *flowerr.ValidationError
	require.True(t, errors.As(res.Validation, &ve), "got %v", res.Validation)
	assert.NotEmpty(t, ve.Issues)
}

func TestGraph_DoesNotExecute(t *testing.T) {
	fs := testutil.MemoryFS(t, "shop", "/app", map[string]string{
		"/app/flows/boom.flow.ts": "import './types';\nthrow new Error('never executed');\n",
	})
	b, err := build.NewBuilder(fs, build.Options{})
	require.NoError(t, err)

	g, err := b.Graph(context.Background(), "/app")
	require.NoError(t, err)
	assert.Equal(t, []string{"/app/flows/boom.flow.ts", "/app/flows/catalog.flow.ts", "/app/flows/orders.flow.ts"}, g.Entries)
	assert.NotNil(t, g.Module("/app/flows/types.ts"))
	assert.NotNil(t, g.Module("/app/flows/integrations.ts"))
	assert.Nil(t, g.Module("/app/notes/scratch.ts"))
	assert.Empty(t, g.Externals())
}

func TestBuild_ExecutionErrorsAreNotWrapped(t *testing.T) {
	fs, err := vfs.NewMemory(map[string]string{
		"/app/a.flow.ts": "throw new Error('assert fails');\n",
	})
	require.NoError(t, err)
	b, err := build.NewBuilder(fs, build.Options{})
	require.NoError(t, err)

	_, err = b.Build(context.Background(), "/app")
	var ex *goja.Exception
	require.True(t, errors.As(err, &ex), "got %T", err)
	assert.Same(t, ex, err)
	assert.Contains(t, ex.Error(), "assert fails")
}
