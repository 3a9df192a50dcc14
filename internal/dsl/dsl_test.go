package dsl_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/flowc/flowerr"
	"martianoff/flowc/internal/dsl"
	"martianoff/flowc/internal/loader"
	"martianoff/flowc/internal/loader/sandbox"
	"martianoff/flowc/internal/model"
	"martianoff/flowc/internal/vfs"
)

func run(t *testing.T, files map[string]string, entries ...string) (*dsl.Registry, error) {
	t.Helper()
	ctx := context.Background()
	fs, err := vfs.NewMemory(files)
	require.NoError(t, err)

	reg := dsl.NewRegistry("")
	g, err := loader.NewBuilder(fs, loader.Options{Overrides: reg.Overrides()}).Build(ctx, entries)
	require.NoError(t, err)
	return reg, sandbox.New(nil, g, sandbox.Options{}).Run(ctx, entries...)
}

const itemsFlow = `import { flow, command, query, react, specs, rule, example, should, data, sink, source, gql } from '@flowc/dsl';
import type { Command, Event, State } from '@flowc/dsl';
import { MailChimp } from './integrations';

type CreateItem = Command<'CreateItem', { itemId: string; description: string }>;
type ItemCreated = Event<'ItemCreated', { id: string; description: string; addedAt: Date }>;

flow('Items', 'flow-1', () => {
  command('create item')
    .stream('item-${itemId}')
    .via(MailChimp)
    .client(() => {
      specs('Item form', () => {
        should('show a form');
        should('validate the description');
      });
    })
    .request(gql` + "`" + `mutation CreateItem($input: CreateItemInput!) { createItem(input: $input) { success } }` + "`" + `)
    .server(() => {
      data([sink().event('ItemCreated').toStream('item-${itemId}')]);
      specs('Create', () => {
        rule('items are created', () => {
          example('adds an item')
            .when<CreateItem>({ itemId: 'item_123', description: 'A new item' })
            .then<ItemCreated>({ id: 'item_123', description: 'A new item', addedAt: new Date('2030-01-01T09:00:00.000Z') });
          example('rejects empty ids')
            .when<CreateItem>({ itemId: '', description: 'x' })
            .thenError('ValidationError', 'itemId required');
        });
      });
    });

  query('view items').server('lists items', () => {
    data([source().state('AvailableItems').fromProjection('AvailableItemsProjection', 'itemId')]);
    specs(() => {
      rule('shows items', () => {
        example('one item')
          .given({ id: 'item_123' })
          .and({ id: 'item_456' })
          .then({ products: [{ id: 'item_123', price: 9.5 }] });
      });
    });
  });

  react('notify on create').via('MailChimp').server(() => {
    specs(() => {
      rule('sends mail', () => {
        example('mail')
          .when<ItemCreated>([{ id: 'a' }, { id: 'b' }])
          .then({ to: 'x' });
      });
    });
  });
});
`

const integrations = `import { integration } from '@flowc/dsl';
export const MailChimp = integration('MailChimp', 'email');
`

func TestRegistry_CapturesFlow(t *testing.T) {
	reg, err := run(t, map[string]string{
		"/flows/items.flow.ts":   itemsFlow,
		"/flows/integrations.ts": integrations,
	}, "/flows/items.flow.ts")
	require.NoError(t, err)

	require.Len(t, reg.Flows(), 1)
	f := reg.Flows()[0]
	assert.Equal(t, "Items", f.Name)
	assert.Equal(t, "flow-1", f.ID)
	assert.Equal(t, "/flows/items.flow.ts", f.File)
	require.Len(t, f.Slices, 3)

	create := f.Slices[0]
	assert.Equal(t, model.SliceCommand, create.Kind)
	assert.Equal(t, "item-${itemId}", create.Stream)
	assert.Equal(t, []string{"MailChimp"}, create.Via)
	require.NotNil(t, create.Client)
	assert.Equal(t, &model.ClientSpecs{Name: "Item form", Rules: []string{"show a form", "validate the description"}}, create.Client.Specs)
	assert.Contains(t, create.Request, "mutation CreateItem")
	require.Len(t, create.Server.Data, 1)
	assert.Equal(t, model.Target{Type: model.MessageEvent, Name: "ItemCreated"}, create.Server.Data[0].Target)
	assert.Equal(t, &model.Destination{Type: "stream", Pattern: "item-${itemId}"}, create.Server.Data[0].Destination)

	rules := create.Server.Specs.Rules
	require.Len(t, rules, 1)
	require.Len(t, rules[0].Examples, 2)
	happy := rules[0].Examples[0]
	assert.Equal(t, []dsl.Ref{{Name: "CreateItem", Data: map[string]any{"itemId": "item_123", "description": "A new item"}}}, happy.When)
	require.Len(t, happy.Then, 1)
	assert.Equal(t, "ItemCreated", happy.Then[0].Name)
	addedAt, ok := happy.Then[0].Data["addedAt"].(time.Time)
	require.True(t, ok)
	assert.True(t, addedAt.Equal(time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.UTC, addedAt.Location())

	rejected := rules[0].Examples[1]
	assert.Equal(t, &model.ErrorOutcome{Type: model.ValidationError, Message: "itemId required"}, rejected.Error)
	assert.Empty(t, rejected.Then)

	view := f.Slices[1]
	assert.Equal(t, "lists items", view.Server.Description)
	assert.Equal(t, &model.Origin{Type: "projection", Name: "AvailableItemsProjection", IDField: "itemId"}, view.Server.Data[0].Origin)
	ex := view.Server.Specs.Rules[0].Examples[0]
	assert.Len(t, ex.Given, 2)
	assert.True(t, ex.Given[1].IsPlaceholder())
	assert.Equal(t, map[string]any{"products": []any{map[string]any{"id": "item_123", "price": 9.5}}}, ex.Then[0].Data)

	notify := f.Slices[2]
	assert.Nil(t, notify.Client)
	whens := notify.Server.Specs.Rules[0].Examples[0].When
	require.Len(t, whens, 2)
	assert.Equal(t, "ItemCreated", whens[1].Name)

	require.Len(t, reg.Integrations(), 1)
	assert.Equal(t, &dsl.Integration{Name: "MailChimp", Type: "email", File: "/flows/integrations.ts"}, reg.Integrations()[0])
}

func TestRegistry_FreshPerBuild(t *testing.T) {
	files := map[string]string{
		"/a.flow.ts": "import { flow } from '@flowc/dsl';\nflow('A', () => {});\n",
	}
	first, err := run(t, files, "/a.flow.ts")
	require.NoError(t, err)
	second, err := run(t, files, "/a.flow.ts")
	require.NoError(t, err)

	assert.Len(t, first.Flows(), 1)
	assert.Len(t, second.Flows(), 1)
}

func TestRegistry_InvalidRequest(t *testing.T) {
	_, err := run(t, map[string]string{
		"/a.flow.ts": "import { flow, command } from '@flowc/dsl';\nflow('A', () => { command('c').request('mutation {'); });\n",
	}, "/a.flow.ts")
	require.Error(t, err)

	var gie *flowerr.GenerationInputError
	require.True(t, errors.As(err, &gie))
	assert.Contains(t, err.Error(), "invalid request")
}

func TestRegistry_MisplacedCalls(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"slice outside flow", "command('x');", "must be called directly inside flow()"},
		{"rule outside specs", "flow('A', () => { rule('r', () => {}); });", "rule() must be called inside server specs()"},
		{"should in server", "flow('A', () => { command('c').server(() => { should('x'); }); });", "should() must be called inside client()"},
		{"bad error type", "flow('A', () => { command('c').server(() => { specs(() => { rule('r', () => { example('e').thenError('Boom'); }); }); }); });", "thenError() type must be one of"},
		{"sink without destination", "flow('A', () => { command('c').server(() => { data([sink().event('E')]); }); });", `sink for "E" has no destination`},
		{"react client", "flow('A', () => { react('r').client(() => {}); });", "cannot have a client"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "import { flow, command, react, rule, should, specs, example, data, sink } from '@flowc/dsl';\n" + tt.src + "\n"
			_, err := run(t, map[string]string{"/a.flow.ts": src}, "/a.flow.ts")
			require.Error(t, err)
			var gie *flowerr.GenerationInputError
			require.True(t, errors.As(err, &gie), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRegistry_UserErrorsPropagate(t *testing.T) {
	_, err := run(t, map[string]string{
		"/a.flow.ts": "import { flow } from '@flowc/dsl';\nflow('A', () => { throw new Error('intentional'); });\n",
	}, "/a.flow.ts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "intentional")
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, dsl.ValidateRequest("/a.ts", "query Items { items { id } }"))
	assert.Error(t, dsl.ValidateRequest("/a.ts", ""))
	assert.Error(t, dsl.ValidateRequest("/a.ts", "query {"))
}

func TestPackage(t *testing.T) {
	p := dsl.Package("")
	assert.Equal(t, dsl.DefaultModule, p.Module)
	assert.True(t, p.IsFunction("flow"))
	assert.True(t, p.IsType("Command"))
	assert.False(t, p.IsFunction("Command"))
	assert.Contains(t, p.Constants, model.Placeholder)
}
