package transpile_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/flowc/flowerr"
	"martianoff/flowc/internal/transpile"
)

func TestLowerTypeArguments(t *testing.T) {
	src := `example('adds').given<ItemAdded>({ id: 'a' }).and<Cart.CartOpened>({}).when<CreateItem>({ itemId: 'x' }).then<Box<ItemCreated>>({ id: 'x' });`
	out, err := transpile.LowerTypeArguments(context.Background(), "/f.ts", []byte(src))
	require.NoError(t, err)
	assert.Equal(t,
		`example('adds').typed("ItemAdded").given<ItemAdded>({ id: 'a' }).typed("CartOpened").and<Cart.CartOpened>({}).typed("CreateItem").when<CreateItem>({ itemId: 'x' }).typed("Box").then<Box<ItemCreated>>({ id: 'x' });`,
		string(out))
}

func TestLowerLeavesOtherCallsAlone(t *testing.T) {
	src := "const m = new Map<string, number>();\nfoo.when({ a: 1 });\nuse<Foo>(x);\n"
	out, err := transpile.LowerTypeArguments(context.Background(), "/f.ts", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, src, string(out))
}

func TestTranspileTypeScript(t *testing.T) {
	src := `import { flow, command } from '@flowc/dsl';
type CreateItem = Command<'CreateItem', { itemId: string }>;
export const name: string = 'items';
flow('Items', () => {
  command('create').server(() => {}).example('x').when<CreateItem>({ itemId: 'a' });
});
`
	code, err := transpile.New().Transpile(context.Background(), "/flows/items.flow.ts", []byte(src))
	require.NoError(t, err)
	assert.Contains(t, code, `require("@flowc/dsl")`)
	assert.Contains(t, code, `.typed("CreateItem").when(`)
	assert.NotContains(t, code, "type CreateItem")
	assert.NotContains(t, code, ": string")
	assert.Contains(t, code, "module.exports")
}

func TestTranspileJSON(t *testing.T) {
	code, err := transpile.New().Transpile(context.Background(), "/data/items.json", []byte(`{"a": 1}`))
	require.NoError(t, err)
	assert.Contains(t, code, "module.exports")
}

func TestTranspileSyntaxError(t *testing.T) {
	_, err := transpile.New().Transpile(context.Background(), "/bad.js", []byte("const = ;"))
	require.Error(t, err)
	var se *flowerr.SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "/bad.js", se.FilePath)
	assert.Equal(t, 1, se.Line)
}

func TestTranspileTypeScriptParseError(t *testing.T) {
	_, err := transpile.New().Transpile(context.Background(), "/bad.ts", []byte("flow('x', () => {"))
	require.Error(t, err)
	var se *flowerr.SyntaxError
	assert.True(t, errors.As(err, &se))
}
