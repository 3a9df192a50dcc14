package typeinfo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martianoff/flowc/internal/typeinfo"
)

func extract(t *testing.T, src string) *typeinfo.Set {
	t.Helper()
	set, err := typeinfo.ExtractSource(context.Background(), "/src/types.ts", []byte(src))
	require.NoError(t, err)
	return set
}

func TestExtractMarkerAliases(t *testing.T) {
	set := extract(t, `
import type { Command, Event, State } from '@flowc/dsl';

export type CreateItem = Command<'CreateItem', { itemId: string; description: string }>;
export type ItemCreated = Event<'ItemCreated', {
  id: string;
  description: string;
  addedAt: Date;
}>;
type AvailableItems = State<'AvailableItems', { items?: { id: string; price: number }[] }>;
export type Ping = Command<'Ping'>;
`)
	require.Equal(t, 4, set.Len())

	names := []string{}
	for _, ti := range set.All() {
		names = append(names, ti.Name)
	}
	assert.Equal(t, []string{"CreateItem", "ItemCreated", "AvailableItems", "Ping"}, names)

	create, ok := set.Get("CreateItem")
	require.True(t, ok)
	assert.Equal(t, "CreateItem", create.StringLiteral)
	assert.Equal(t, typeinfo.Command, create.Classification)
	assert.True(t, create.Explicit)
	assert.Equal(t, []typeinfo.Field{
		{Name: "itemId", Type: "string", Required: true},
		{Name: "description", Type: "string", Required: true},
	}, create.DataFields)

	created, _ := set.Get("ItemCreated")
	assert.Equal(t, typeinfo.Event, created.Classification)
	assert.Equal(t, []string{"id", "description", "addedAt"}, created.FieldNames())
	assert.Equal(t, "Date", created.DataFields[2].Type)

	items, _ := set.Get("AvailableItems")
	assert.Equal(t, typeinfo.State, items.Classification)
	require.Len(t, items.DataFields, 1)
	assert.False(t, items.DataFields[0].Required)
	assert.Equal(t, "{ id: string; price: number }[]", items.DataFields[0].Type)

	ping, _ := set.Get("Ping")
	assert.Empty(t, ping.DataFields)
}

func TestExtractEnvelopeShapes(t *testing.T) {
	set := extract(t, `
interface ItemShipped {
  type: 'ItemShipped';
  data: { itemId: string; carrier: 'ups' | 'dhl' };
}

export type ShipItem = {
  type: 'ShipItem';
  data: { itemId: string };
};

export type CartSummary = { type: "CartSummary"; data: { total: number } };

interface NotAMessage {
  name: string;
}
`)
	require.Equal(t, 3, set.Len())

	shipped, _ := set.Get("ItemShipped")
	assert.Equal(t, typeinfo.Event, shipped.Classification)
	assert.False(t, shipped.Explicit)
	assert.Equal(t, "'ups' | 'dhl'", shipped.DataFields[1].Type)

	ship, _ := set.Get("ShipItem")
	assert.Equal(t, typeinfo.Unknown, ship.Classification)

	summary, _ := set.Get("CartSummary")
	assert.Equal(t, typeinfo.State, summary.Classification)

	_, ok := set.Get("NotAMessage")
	assert.False(t, ok)
}

func TestExtractIgnoresOtherGenerics(t *testing.T) {
	set := extract(t, `
type Wrapped = Promise<'x'>;
type Loose = Command<string>;
type Qualified = dsl.Event<'Qualified', { at: Date }>;
`)
	require.Equal(t, 1, set.Len())
	q, ok := set.Get("Qualified")
	require.True(t, ok)
	assert.Equal(t, typeinfo.Event, q.Classification)
}

func TestExtractFirstDeclarationWins(t *testing.T) {
	set := extract(t, `
type A = Command<'A', { x: string }>;
type A = Event<'A', { y: string }>;
`)
	a, _ := set.Get("A")
	assert.Equal(t, typeinfo.Command, a.Classification)
}

func TestExtractSyntaxError(t *testing.T) {
	_, err := typeinfo.ExtractSource(context.Background(), "/src/bad.ts", []byte("type X = Command<'X', {"))
	assert.Error(t, err)
}

func TestSetByLiteralAndMerge(t *testing.T) {
	a := typeinfo.NewSet()
	a.Add(&typeinfo.TypeInfo{Name: "CreateItem", StringLiteral: "item.create"})
	b := typeinfo.NewSet()
	b.Add(&typeinfo.TypeInfo{Name: "CreateItem", StringLiteral: "dup"})
	b.Add(&typeinfo.TypeInfo{Name: "ItemCreated", StringLiteral: "ItemCreated"})
	a.Merge(b)

	assert.Equal(t, 2, a.Len())
	ti, ok := a.ByLiteral("item.create")
	require.True(t, ok)
	assert.Equal(t, "CreateItem", ti.Name)
	_, ok = a.ByLiteral("dup")
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want typeinfo.Classification
	}{
		{"ItemCreated", typeinfo.Event},
		{"PaymentSent", typeinfo.Event},
		{"CreateItem", typeinfo.Command},
		{"Submit", typeinfo.Command},
		{"Settings", typeinfo.Unknown},
		{"ItemList", typeinfo.State},
		{"OrderSummary", typeinfo.State},
		{"ProductDetails", typeinfo.State},
		{"CartState", typeinfo.State},
		{"Widget", typeinfo.Unknown},
		{"Feed", typeinfo.Unknown},
		{"NewsFeed", typeinfo.Unknown},
		{"Speed", typeinfo.Unknown},
		{"Seed", typeinfo.Unknown},
		{"Set", typeinfo.Command},
		{"SetSpeed", typeinfo.Command},
		{"FeedPublished", typeinfo.Event},
		{"ItemUsed", typeinfo.Event},
		{"Created", typeinfo.Event},
		{"ItemSet", typeinfo.Event},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, typeinfo.Classify(tt.name))
		})
	}
}
