package yaml_test

import (
	"bytes"
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/reoring/goxaml"
	"github.com/reoring/goxaml/internal/testtypes"
	"github.com/reoring/goxaml/node"
	"github.com/reoring/goxaml/objectreader"
	"github.com/reoring/goxaml/objectwriter"
	"github.com/reoring/goxaml/schema"
	syaml "github.com/reoring/goxaml/source/yaml"
)

const testNS = schema.ClrNamespacePrefix + "github.com/reoring/goxaml/internal/testtypes"

func encode(t *testing.T, sctx *schema.Context, src node.Source) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, node.Transform(context.Background(), syaml.NewEncoder(&buf, sctx), src))
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc), buf.String())
	return doc
}

func strs(nodes []node.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.String())
	}
	return out
}

func TestEncode_ObjectShape(t *testing.T) {
	sctx := schema.NewContext()
	r, err := objectreader.New(&testtypes.Address{Street: "Main", City: "Oslo"}, sctx)
	require.NoError(t, err)
	doc := encode(t, sctx, r)
	assert.Equal(t, "Address", doc["$type"])
	assert.Equal(t, "Oslo", doc["City"])
	assert.Equal(t, "Main", doc["Street"])
	ns, ok := doc["$ns"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, testNS, ns[""])
}

func TestEncode_ItemsAndText(t *testing.T) {
	sctx := schema.NewContext()
	r, err := objectreader.New([]int{1, 2}, sctx)
	require.NoError(t, err)
	doc := encode(t, sctx, r)
	assert.Equal(t, "x:Slice(x:int)", doc["$type"])
	items, ok := doc["x:_Items"].([]any)
	require.True(t, ok, "%v", doc)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "x:int", first["$type"])
	assert.Equal(t, "1", first["x:_Initialization"], "values stay text")
}

func TestEncode_DirectiveDeclaresNamespaceOnObject(t *testing.T) {
	sctx := schema.NewContext()
	l := sctx.Language()
	doc := encode(t, sctx, node.FromSlice([]node.Node{
		node.StartObjectNode(sctx.TypeOf(testtypes.Cell{})),
		node.StartMemberNode(l.Uid), node.ValueNode("u1"), node.EndMemberNode(),
		node.EndObjectNode(),
	}))
	assert.Equal(t, map[string]any{"testtypes": testNS, "x": schema.XamlNamespace}, doc["$ns"])
	assert.Equal(t, "testtypes:Cell", doc["$type"])
	assert.Equal(t, "u1", doc["x:Uid"])
}

func TestEncode_NullAndMultipleValues(t *testing.T) {
	sctx := schema.NewContext()
	l := sctx.Language()
	doc := encode(t, sctx, node.FromSlice([]node.Node{
		node.StartObjectNode(sctx.TypeOf(testtypes.Upper{})),
		node.StartMemberNode(l.PositionalParameters), node.ValueNode("a"), node.ValueNode(nil), node.EndMemberNode(),
		node.EndObjectNode(),
	}))
	assert.Equal(t, []any{"a", nil}, doc["x:_PositionalParameters"])
}

func TestEncoder_RejectsInvalidSequence(t *testing.T) {
	sctx := schema.NewContext()
	enc := syaml.NewEncoder(&bytes.Buffer{}, sctx)
	err := enc.WriteEndObject()
	assert.True(t, goxaml.HasCode(err, goxaml.CodeInvalidTransition))

	var buf bytes.Buffer
	enc = syaml.NewEncoder(&buf, sctx)
	require.NoError(t, enc.WriteStartObject(sctx.TypeOf(testtypes.Person{})))
	assert.True(t, goxaml.HasCode(enc.Close(), goxaml.CodeInvalidTransition))
	assert.Zero(t, buf.Len())
}

const personDoc = `$ns:
  "": ` + testNS + `
  x: ` + schema.XamlNamespace + `
$type: Person
Name: &n Ann
email: *n
Age: 30
Address: ~
`

func TestDecode_NodesAndLineInfo(t *testing.T) {
	sctx := schema.NewContext()
	sctx.Register(testtypes.Person{})
	nodes, err := node.Collect(syaml.NewBytes([]byte(personDoc), sctx))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"NamespaceDeclaration(=" + testNS + ")",
		"NamespaceDeclaration(x=" + schema.XamlNamespace + ")",
		"StartObject(Person)",
		"StartMember(Name)", "Value(Ann)", "EndMember",
		"StartMember(email)", "Value(Ann)", "EndMember",
		"StartMember(Age)", "Value(30)", "EndMember",
		"StartMember(Address)", "Value(<nil>)", "EndMember",
		"EndObject",
	}, strs(nodes))
	assert.Equal(t, node.LineInfo{Line: 2, Position: 3}, nodes[0].LineInfo)
	assert.Equal(t, node.LineInfo{Line: 4, Position: 1}, nodes[2].LineInfo)
	assert.Equal(t, node.LineInfo{Line: 5, Position: 1}, nodes[3].LineInfo)
	assert.Equal(t, 7, nodes[10].Line)
}

func TestDecode_BuildsObject(t *testing.T) {
	sctx := schema.NewContext()
	sctx.Register(testtypes.Person{})
	doc := `$ns: {"": "` + testNS + `"}
$type: Person
Name: Ann
email: ann@example.com
Age: 30
`
	out, err := objectwriter.Build(context.Background(), syaml.NewBytes([]byte(doc), sctx), sctx)
	require.NoError(t, err)
	assert.Equal(t, &testtypes.Person{Name: "Ann", Email: "ann@example.com", Age: 30}, out)
}

func TestDecode_EmptyDocument(t *testing.T) {
	nodes, err := node.Collect(syaml.NewBytes(nil, schema.NewContext()))
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestDecode_Errors(t *testing.T) {
	sctx := schema.NewContext()
	sctx.Register(testtypes.Person{})
	header := `$ns: {"": "` + testNS + `"}` + "\n"
	tests := []struct {
		name string
		doc  string
		line int
	}{
		{"syntax", "a: [1, 2\n", 0},
		{"root is a scalar", "hello\n", 1},
		{"member before type", header + "Name: Ann\n$type: Person\n", 2},
		{"type after start", header + "$type: Person\n$type: Person\n", 3},
		{"undeclared prefix", "$type: m:Person\n", 1},
		{"no type", header, 1},
		{"sequence inside sequence", header + "$type: Person\nTags: [[a]]\n", 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := node.Collect(syaml.NewBytes([]byte(tc.doc), sctx))
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
	row := sctx.RegisterAttachable(reflect.TypeFor[testtypes.Grid](), "Row", reflect.TypeFor[int]())
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
	require.NoError(t, node.Transform(context.Background(), syaml.NewEncoder(&buf, sctx), r))

	out, err := objectwriter.Build(context.Background(), syaml.NewDecoder(&buf, sctx), sctx)
	require.NoError(t, err, buf.String())
	got := out.(*testtypes.Person)
	assert.Equal(t, in.Name, got.Name)
	assert.Equal(t, in.Age, got.Age)
	assert.Equal(t, in.Tags, got.Tags)
	assert.Equal(t, in.Nicknames, got.Nicknames)
	assert.True(t, in.Born.Equal(got.Born))
	require.NotNil(t, got.Friend)
	assert.Equal(t, "Bo", got.Friend.Name)

	cell := &testtypes.Cell{Text: "a"}
	require.True(t, schema.SetAttached(cell, row, 3))
	t.Cleanup(func() { schema.ClearAttached(cell) })
	r, err = objectreader.New(&testtypes.Grid{Cells: []*testtypes.Cell{cell}}, sctx)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, node.Transform(context.Background(), syaml.NewEncoder(&buf, sctx), r))
	out, err = objectwriter.Build(context.Background(), syaml.NewDecoder(&buf, sctx), sctx)
	require.NoError(t, err, buf.String())
	g := out.(*testtypes.Grid)
	require.Len(t, g.Cells, 1)
	t.Cleanup(func() { schema.ClearAttached(g.Cells[0]) })
	v, ok := schema.Attached(g.Cells[0], row)
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestRoundTrip_SharedObjects(t *testing.T) {
	sctx := schema.NewContext()
	s := &testtypes.Shape{Sides: 5}
	r, err := objectreader.New(&testtypes.Canvas{Primary: s, Secondary: s}, sctx)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, node.Transform(context.Background(), syaml.NewEncoder(&buf, sctx), r))

	out, err := objectwriter.Build(context.Background(), syaml.NewDecoder(&buf, sctx), sctx)
	require.NoError(t, err, buf.String())
	c := out.(*testtypes.Canvas)
	assert.Same(t, c.Primary, c.Secondary)
}
