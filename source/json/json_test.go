package json_test

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/goxaml"
	"github.com/reoring/goxaml/internal/testtypes"
	"github.com/reoring/goxaml/node"
	"github.com/reoring/goxaml/objectreader"
	"github.com/reoring/goxaml/objectwriter"
	"github.com/reoring/goxaml/schema"
	sjson "github.com/reoring/goxaml/source/json"
)

const testNS = schema.ClrNamespacePrefix + "github.com/reoring/goxaml/internal/testtypes"

func encode(t *testing.T, sctx *schema.Context, nodes []node.Node) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, node.Transform(context.Background(), sjson.NewEncoder(&buf, sctx), node.FromSlice(nodes)))
	return buf.String()
}

func TestEncode_Document(t *testing.T) {
	sctx := schema.NewContext()
	l := sctx.Language()
	got := encode(t, sctx, []node.Node{
		node.StartObjectNode(sctx.TypeOf(0)),
		node.StartMemberNode(l.Initialization), node.ValueNode(42), node.EndMemberNode(),
		node.EndObjectNode(),
	})
	assert.JSONEq(t, `{
		"namespaces": [{"prefix": "x", "uri": "`+schema.XamlNamespace+`"}],
		"nodes": [
			{"kind": "StartObject", "type": "x:int"},
			{"kind": "StartMember", "member": "x:_Initialization"},
			{"kind": "Value", "value": "42"},
			{"kind": "EndMember"},
			{"kind": "EndObject"}
		]}`, got)
	assert.Equal(t, 9, strings.Count(got, "\n"), "one element per line")
}

func TestEncode_EmptyStream(t *testing.T) {
	sctx := schema.NewContext()
	got := encode(t, sctx, nil)
	assert.JSONEq(t, `{"namespaces": [], "nodes": []}`, got)
	nodes, err := node.Collect(sjson.NewBytes([]byte(got), sctx))
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestEncode_AttachableMemberDeclaresOwnerNamespace(t *testing.T) {
	sctx := schema.NewContext()
	row := sctx.RegisterAttachable(reflect.TypeFor[testtypes.Grid](), "Row", reflect.TypeFor[int]())
	got := encode(t, sctx, []node.Node{
		node.StartObjectNode(sctx.TypeOf(testtypes.Cell{})),
		node.StartMemberNode(row), node.ValueNode(2), node.EndMemberNode(),
		node.EndObjectNode(),
	})
	assert.Contains(t, got, `"type":"testtypes:Cell"`)
	assert.Contains(t, got, `"member":"testtypes:Grid.Row"`)

	nodes, err := node.Collect(sjson.NewBytes([]byte(got), sctx))
	require.NoError(t, err)
	var members []*schema.Member
	for _, n := range nodes {
		if n.Kind == node.StartMember {
			members = append(members, n.Member)
		}
	}
	require.Len(t, members, 1)
	assert.Same(t, row, members[0])
}

func TestEncoder_RejectsInvalidSequence(t *testing.T) {
	sctx := schema.NewContext()
	enc := sjson.NewEncoder(&bytes.Buffer{}, sctx)
	assert.True(t, goxaml.HasCode(enc.WriteValue("x"), goxaml.CodeInvalidTransition))

	enc = sjson.NewEncoder(&bytes.Buffer{}, sctx)
	require.NoError(t, enc.WriteStartObject(sctx.TypeOf(testtypes.Person{})))
	assert.True(t, goxaml.HasCode(enc.Close(), goxaml.CodeInvalidTransition))
}

func TestEncoder_ValueWithoutConverter(t *testing.T) {
	sctx := schema.NewContext()
	p := sctx.TypeOf(testtypes.Person{})
	enc := sjson.NewEncoder(&bytes.Buffer{}, sctx)
	require.NoError(t, enc.WriteStartObject(p))
	m, _ := p.Member("Address")
	require.NoError(t, enc.WriteStartMember(m))
	assert.True(t, goxaml.HasCode(enc.WriteValue(testtypes.Address{}), goxaml.CodeTypeMismatch))
}

const personDoc = `{
  "version": 1,
  "namespaces": [
    {"prefix": "", "uri": "` + testNS + `"},
    {"prefix": "x", "uri": "` + schema.XamlNamespace + `"}
  ],
  "nodes": [
    {"kind": "StartObject", "type": "Person"},
    {"kind": "StartMember", "member": "Age"},
    {"kind": "Value", "value": 30},
    {"kind": "EndMember"},
    {"kind": "StartMember", "member": "Name"},
    {"kind": "Value", "value": "Ann"},
    {"kind": "EndMember"},
    {"kind": "EndObject"}
  ]
}`

func TestDecode_NodesAndLineInfo(t *testing.T) {
	sctx := schema.NewContext()
	sctx.Register(testtypes.Person{})
	nodes, err := node.Collect(sjson.NewBytes([]byte(personDoc), sctx))
	require.NoError(t, err)
	var got []string
	for _, n := range nodes {
		got = append(got, n.String())
	}
	assert.Equal(t, []string{
		"NamespaceDeclaration(=" + testNS + ")",
		"NamespaceDeclaration(x=" + schema.XamlNamespace + ")",
		"StartObject(Person)",
		"StartMember(Age)", "Value(30)", "EndMember",
		"StartMember(Name)", "Value(Ann)", "EndMember",
		"EndObject",
	}, got)
	assert.Zero(t, nodes[0].Line)
	assert.Equal(t, 1, nodes[2].Line)
	assert.Equal(t, 8, nodes[9].Line)
	assert.Equal(t, "30", nodes[4].Value, "numbers arrive as text")
}

func TestDecode_BuildsObject(t *testing.T) {
	sctx := schema.NewContext()
	sctx.Register(testtypes.Person{})
	out, err := objectwriter.Build(context.Background(), sjson.NewBytes([]byte(personDoc), sctx), sctx)
	require.NoError(t, err)
	assert.Equal(t, &testtypes.Person{Name: "Ann", Age: 30}, out)
}

func TestDecode_Errors(t *testing.T) {
	sctx := schema.NewContext()
	sctx.Register(testtypes.Person{})
	tests := []struct {
		name string
		doc  string
		line int
	}{
		{"not an object", `[]`, 0},
		{"truncated", `{"nodes":[{"kind":"StartObject"`, 0},
		{"unknown kind", `{"nodes":[{"kind":"StartObject","type":"x:int"},{"kind":"Bogus"}]}`, 2},
		{"undeclared prefix", `{"nodes":[{"kind":"StartObject","type":"m:Person"}]}`, 1},
		{"bare member at root", `{"nodes":[{"kind":"StartMember","member":"Name"}]}`, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := node.Collect(sjson.NewBytes([]byte(tc.doc), sctx))
			require.Error(t, err)
			iss, ok := goxaml.AsIssues(err)
			require.True(t, ok, "%v", err)
			assert.Equal(t, goxaml.CodeParseError, iss.First().Code)
			assert.Equal(t, tc.line, iss.First().Line)
		})
	}
}

func TestRoundTrip_ThroughDocument(t *testing.T) {
	sctx := schema.NewContext()
	in := &testtypes.Person{
		Name:      "Ann",
		Age:       30,
		Tags:      []string{"a", "b"},
		Nicknames: []string{"annie"},
		Born:      time.Date(2001, 2, 3, 4, 5, 6, 0, time.UTC),
		Friend:    &testtypes.Person{Name: "Bo"},
	}
	r, err := objectreader.New(in, sctx)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, node.Transform(context.Background(), sjson.NewEncoder(&buf, sctx), r))

	out, err := objectwriter.Build(context.Background(), sjson.NewDecoder(&buf, sctx), sctx)
	require.NoError(t, err)
	got := out.(*testtypes.Person)
	assert.Equal(t, in.Name, got.Name)
	assert.Equal(t, in.Age, got.Age)
	assert.Equal(t, in.Tags, got.Tags)
	assert.Equal(t, in.Nicknames, got.Nicknames)
	assert.True(t, in.Born.Equal(got.Born))
	require.NotNil(t, got.Friend)
	assert.Equal(t, "Bo", got.Friend.Name)
}

func TestRoundTrip_SharedObjects(t *testing.T) {
	sctx := schema.NewContext()
	s := &testtypes.Shape{Sides: 5}
	r, err := objectreader.New(&testtypes.Canvas{Primary: s, Secondary: s}, sctx)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, node.Transform(context.Background(), sjson.NewEncoder(&buf, sctx), r))

	out, err := objectwriter.Build(context.Background(), sjson.NewDecoder(&buf, sctx), sctx)
	require.NoError(t, err)
	c := out.(*testtypes.Canvas)
	assert.Same(t, c.Primary, c.Secondary)
	assert.Equal(t, 5, c.Primary.Sides)
}
