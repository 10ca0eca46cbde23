package schema_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/goxaml/internal/testtypes"
	"github.com/reoring/goxaml/schema"
)

func prefixes(m map[string]string) (func(string) string, func(string) (string, bool)) {
	byNS := map[string]string{}
	for p, ns := range m {
		byNS[ns] = p
	}
	return func(ns string) string { return byNS[ns] },
		func(p string) (string, bool) { ns, ok := m[p]; return ns, ok }
}

func TestTypeName_RoundTrip(t *testing.T) {
	sctx := schema.NewContext()
	sctx.Register(testtypes.Catalog{})
	prefixOf, nsOf := prefixes(map[string]string{"": testNS, "x": schema.XamlNamespace})

	for _, rt := range []reflect.Type{
		reflect.TypeFor[int](),
		reflect.TypeFor[testtypes.Person](),
		reflect.TypeFor[[]string](),
		reflect.TypeFor[map[string][]int](),
	} {
		typ := sctx.TypeFor(rt)
		name := schema.FormatTypeName(typ, prefixOf)
		back, err := sctx.ParseTypeName(name, nsOf)
		require.NoError(t, err, name)
		assert.True(t, typ.Equal(back), "%s -> %s", name, back)
	}
	assert.Equal(t, "x:Map(x:string, x:Slice(x:int))",
		schema.FormatTypeName(sctx.TypeFor(reflect.TypeFor[map[string][]int]()), prefixOf))
}

func TestParseTypeName_Errors(t *testing.T) {
	sctx := schema.NewContext()
	_, nsOf := prefixes(map[string]string{})

	_, err := sctx.ParseTypeName("q:Thing", nsOf)
	assert.Error(t, err, "undeclared prefix")
	_, err = sctx.ParseTypeName("x:Slice(x:int", nsOf)
	assert.Error(t, err)
	_, err = sctx.ParseTypeName("x:", nsOf)
	assert.Error(t, err)

	typ, err := sctx.ParseTypeName("x:int", nsOf)
	require.NoError(t, err, "x needs no declaration")
	assert.Equal(t, reflect.TypeFor[int](), typ.UnderlyingType())
}

func TestMemberName_RoundTrip(t *testing.T) {
	sctx := schema.NewContext()
	prefixOf, nsOf := prefixes(map[string]string{"t": testNS, "x": schema.XamlNamespace})
	row := sctx.RegisterAttachable(reflect.TypeFor[testtypes.Grid](), "Row", reflect.TypeFor[int]())
	pt := sctx.TypeOf(testtypes.Person{})
	age, _ := pt.Member("Age")

	for _, m := range []*schema.Member{age, row, schema.Lang().Key, schema.Lang().Items} {
		name := schema.FormatMemberName(m, prefixOf)
		back, err := sctx.ParseMemberName(name, pt, nsOf)
		require.NoError(t, err, name)
		assert.True(t, m == back || m.Equal(back), name)
	}
	assert.Equal(t, "t:Grid.Row", schema.FormatMemberName(row, prefixOf))
	assert.Equal(t, "x:Key", schema.FormatMemberName(schema.Lang().Key, prefixOf))

	m, err := sctx.ParseMemberName("t:Grid.Column", pt, nsOf)
	require.NoError(t, err)
	assert.True(t, m.IsUnknown())

	_, err = sctx.ParseMemberName("Age", nil, nsOf)
	assert.Error(t, err)
	_, err = sctx.ParseMemberName("t:Plain", pt, nsOf)
	assert.Error(t, err)
}
