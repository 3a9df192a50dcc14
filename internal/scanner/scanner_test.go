package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const source = `import { flow, command as cmd } from '@flowc/dsl';
import type { Command, Event } from '@flowc/dsl';
import Default, * as helpers from './helpers';
import './side-effect';
import { type ItemCreated, CreateItem } from "./types";
export { shared } from './shared';
export * from './all';
export type { OnlyType } from './only-type';

const lazy = () => import('./lazy');
const legacy = require('../legacy');
const computed = require(name);

flow('Items', () => {
  cmd('create');
});
`

func TestScan_AllKinds(t *testing.T) {
	res, err := ScanSource(context.Background(), "/flows/items.flow.ts", []byte(source))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"@flowc/dsl",
		"./helpers",
		"./side-effect",
		"./types",
		"./shared",
		"./all",
		"./only-type",
		"./lazy",
		"../legacy",
	}, res.Specifiers())

	kinds := map[string]Kind{}
	for _, imp := range res.Imports {
		kinds[imp.Specifier] = imp.Kind
	}
	assert.Equal(t, KindExport, kinds["./shared"])
	assert.Equal(t, KindExport, kinds["./all"])
	assert.Equal(t, KindDynamic, kinds["./lazy"])
	assert.Equal(t, KindRequire, kinds["../legacy"])
	assert.Equal(t, KindImport, kinds["./side-effect"])
}

func TestScan_Bindings(t *testing.T) {
	res, err := ScanSource(context.Background(), "/a.ts", []byte(source))
	require.NoError(t, err)

	first := res.Imports[0]
	assert.False(t, first.TypeOnly)
	assert.Equal(t, []Binding{
		{Local: "flow", Imported: "flow"},
		{Local: "cmd", Imported: "command"},
	}, first.Bindings)

	assert.True(t, res.Imports[1].TypeOnly)
	assert.True(t, res.Imports[1].Bindings[0].TypeOnly)

	assert.Equal(t, []Binding{
		{Local: "Default", Imported: "default"},
		{Local: "helpers", Imported: "*"},
	}, res.Imports[2].Bindings)

	types := res.Imports[4].Bindings
	require.Len(t, types, 2)
	assert.True(t, types[0].TypeOnly)
	assert.False(t, types[1].TypeOnly)

	spec, ok := res.BindingSource("cmd")
	assert.True(t, ok)
	assert.Equal(t, "@flowc/dsl", spec)
	_, ok = res.BindingSource("nothing")
	assert.False(t, ok)
}

func TestScan_ImportRequireClause(t *testing.T) {
	res, err := ScanSource(context.Background(), "/a.ts", []byte(`import fs = require('fs');`))
	require.NoError(t, err)
	require.Len(t, res.Imports, 1)
	assert.Equal(t, "fs", res.Imports[0].Specifier)
	assert.Equal(t, []Binding{{Local: "fs", Imported: "*"}}, res.Imports[0].Bindings)
}

func TestScan_ParseErrorPropagates(t *testing.T) {
	_, err := ScanSource(context.Background(), "/a.ts", []byte(`import { from './x'`))
	assert.Error(t, err)
}
