package objectreader_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/goxaml"
	"github.com/reoring/goxaml/internal/testtypes"
	"github.com/reoring/goxaml/node"
	"github.com/reoring/goxaml/objectreader"
	"github.com/reoring/goxaml/schema"
)

const testNS = schema.ClrNamespacePrefix + "github.com/reoring/goxaml/internal/testtypes"

func read(t *testing.T, root any, opts ...objectreader.Settings) []string {
	t.Helper()
	r, err := objectreader.New(root, schema.NewContext(), opts...)
	require.NoError(t, err)
	nodes, err := node.Collect(r)
	require.NoError(t, err)
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.Kind != node.NamespaceDeclaration {
			out = append(out, n.String())
		}
	}
	return out
}

func TestRead_ContentValueRoot(t *testing.T) {
	assert.Equal(t, []string{
		"StartObject(int)",
		"StartMember(x:_Initialization)", "Value(42)", "EndMember",
		"EndObject",
	}, read(t, 42))
}

func TestRead_List(t *testing.T) {
	assert.Equal(t, []string{
		"StartObject(Slice(int))",
		"StartMember(x:_Items)",
		"StartObject(int)", "StartMember(x:_Initialization)", "Value(1)", "EndMember", "EndObject",
		"StartObject(int)", "StartMember(x:_Initialization)", "Value(2)", "EndMember", "EndObject",
		"EndMember",
		"EndObject",
	}, read(t, []int{1, 2}))
}

func TestRead_EmptyListHasNoItems(t *testing.T) {
	assert.Equal(t, []string{"StartObject(Slice(string))", "EndObject"}, read(t, []string{}))
}

func TestRead_Nil(t *testing.T) {
	assert.Equal(t, []string{"StartObject(Null)", "EndObject"}, read(t, nil))
}

func TestRead_StructMembersInOrder(t *testing.T) {
	p := &testtypes.Person{
		Name:      "Ann",
		Age:       30,
		Email:     "ann@example.com",
		Tags:      []string{"a"},
		Nicknames: []string{"annie"},
		Born:      time.Date(1990, 1, 2, 3, 4, 5, 0, time.FixedZone("JST", 9*3600)),
		OnChange:  func() {},
	}
	got := read(t, p)
	assert.Equal(t, []string{
		"StartObject(Person)",
		"StartMember(Address)", "StartObject(Null)", "EndObject", "EndMember",
		"StartMember(Age)", "Value(30)", "EndMember",
		"StartMember(Born)", "Value(1990-01-01T18:04:05Z)", "EndMember",
		"StartMember(Friend)", "StartObject(Null)", "EndObject", "EndMember",
		"StartMember(Name)", "Value(Ann)", "EndMember",
		"StartMember(Nicknames)", "GetObject", "StartMember(x:_Items)",
		"StartObject(string)", "StartMember(x:_Initialization)", "Value(annie)", "EndMember", "EndObject",
		"EndMember", "EndObject", "EndMember",
		"StartMember(Tags)", "StartObject(Slice(string))", "StartMember(x:_Items)",
		"StartObject(string)", "StartMember(x:_Initialization)", "Value(a)", "EndMember", "EndObject",
		"EndMember", "EndObject", "EndMember",
		"StartMember(email)", "Value(ann@example.com)", "EndMember",
		"EndObject",
	}, got)
}

func TestRead_OmitEmptyMembers(t *testing.T) {
	assert.Equal(t, []string{
		"StartObject(Profile)",
		"StartMember(Level)", "Value(0)", "EndMember",
		"EndObject",
	}, read(t, &testtypes.Profile{Tags: []string{}}))

	assert.Equal(t, []string{
		"StartObject(Profile)",
		"StartMember(Level)", "Value(2)", "EndMember",
		"StartMember(Score)", "Value(7)", "EndMember",
		"StartMember(note)", "Value(hi)", "EndMember",
		"EndObject",
	}, read(t, &testtypes.Profile{Score: 7, Note: "hi", Level: 2}))
}

func TestRead_OmitZero(t *testing.T) {
	got := read(t, &testtypes.Person{Name: "Ann", Tags: []string{}}, objectreader.Settings{OmitZero: true})
	assert.Equal(t, []string{
		"StartObject(Person)",
		"StartMember(Name)", "Value(Ann)", "EndMember",
		"StartMember(Tags)", "StartObject(Slice(string))", "EndObject", "EndMember",
		"EndObject",
	}, got, "an empty slice is not the zero value")
}

func TestRead_PositionalParametersAndArguments(t *testing.T) {
	assert.Equal(t, []string{
		"StartObject(Upper)",
		"StartMember(x:_PositionalParameters)", "Value(hi)", "EndMember",
		"EndObject",
	}, read(t, testtypes.Upper{Text: "hi"}))

	got := read(t, testtypes.Money{Amount: 5, Currency: "USD"})
	assert.Equal(t, []string{
		"StartObject(Money)",
		"StartMember(x:Arguments)",
		"StartObject(int64)", "StartMember(x:_Initialization)", "Value(5)", "EndMember", "EndObject",
		"StartObject(string)", "StartMember(x:_Initialization)", "Value(USD)", "EndMember", "EndObject",
		"EndMember",
		"EndObject",
	}, got)
}

func TestRead_DictionaryKeysSorted(t *testing.T) {
	got := read(t, map[string]int{"b": 2, "a": 1})
	assert.Equal(t, []string{
		"StartObject(Map(string, int))",
		"StartMember(x:_Items)",
		"StartObject(int)",
		"StartMember(x:_Initialization)", "Value(1)", "EndMember",
		"StartMember(x:Key)", "Value(a)", "EndMember",
		"EndObject",
		"StartObject(int)",
		"StartMember(x:_Initialization)", "Value(2)", "EndMember",
		"StartMember(x:Key)", "Value(b)", "EndMember",
		"EndObject",
		"EndMember",
		"EndObject",
	}, got)
}

func TestRead_SharedReference(t *testing.T) {
	s := &testtypes.Shape{Sides: 3}
	got := read(t, &testtypes.Canvas{Primary: s, Secondary: s})
	assert.Equal(t, []string{
		"StartObject(Canvas)",
		"StartMember(Primary)",
		"StartObject(Shape)",
		"StartMember(x:Name)", "Value(" + objectreader.ReferenceNamePrefix + "0)", "EndMember",
		"StartMember(Sides)", "Value(3)", "EndMember",
		"EndObject",
		"EndMember",
		"StartMember(Secondary)",
		"StartObject(Reference)",
		"StartMember(x:_PositionalParameters)", "Value(" + objectreader.ReferenceNamePrefix + "0)", "EndMember",
		"EndObject",
		"EndMember",
		"EndObject",
	}, got)
}

func TestRead_CycleUsesNameProperty(t *testing.T) {
	root := &testtypes.TreeNode{Name: "root"}
	child := &testtypes.TreeNode{Name: "leaf", Parent: root}
	root.Children = []*testtypes.TreeNode{child}

	got := read(t, root)
	assert.Contains(t, got, "StartObject(Reference)")
	assert.Contains(t, got, "Value(root)")
	assert.NotContains(t, got, "StartMember(x:Name)", "the name property already names the object")
}

func TestRead_ArrayAndTypeValues(t *testing.T) {
	sctx := schema.NewContext()
	r, err := objectreader.New(&testtypes.Holder{Values: [2]string{"a", "b"}, Kind: sctx.TypeOf(testtypes.Person{})}, sctx)
	require.NoError(t, err)
	nodes, err := node.Collect(r)
	require.NoError(t, err)
	var strs []string
	for _, n := range nodes {
		strs = append(strs, n.String())
	}
	assert.Contains(t, strs, "StartObject(Array)")
	assert.Contains(t, strs, "StartObject(Type)")
	assert.Contains(t, strs, "Value(Person)", "root namespace is the default prefix")
	assert.Contains(t, strs, "Value(x:string)")
}

func TestReader_NamespacesDeterministic(t *testing.T) {
	sctx := schema.NewContext()
	c := &testtypes.Catalog{Items: []any{time.Unix(0, 0), testtypes.Color("red"), 1}}
	var last []node.Namespace
	for range 3 {
		r, err := objectreader.New(c, sctx)
		require.NoError(t, err)
		ns := r.Namespaces()
		if last != nil {
			assert.Equal(t, last, ns)
		}
		last = ns
	}
	assert.Equal(t, []node.Namespace{
		{Prefix: "", Namespace: testNS},
		{Prefix: "t", Namespace: schema.ClrNamespacePrefix + "time"},
		{Prefix: "x", Namespace: schema.XamlNamespace},
	}, last)

	r, _ := objectreader.New(c, sctx)
	first, err := r.NextNode()
	require.NoError(t, err)
	assert.Equal(t, node.NamespaceDeclaration, first.Kind)
	assert.Equal(t, "", first.Namespace.Prefix)
	p, ok := r.LookupPrefix(schema.XamlNamespace)
	assert.True(t, ok)
	assert.Equal(t, "x", p)
}

func TestRead_UnsupportedValue(t *testing.T) {
	_, err := objectreader.New(&testtypes.Catalog{Extra: func() {}}, schema.NewContext())
	require.Error(t, err)
	iss, ok := goxaml.AsIssues(err)
	require.True(t, ok)
	assert.Equal(t, goxaml.CodeUnknownType, iss[0].Code)
	assert.Equal(t, "/Extra", iss[0].Path)
}

func TestRead_MaxDepth(t *testing.T) {
	p := &testtypes.Person{Friend: &testtypes.Person{Friend: &testtypes.Person{}}}
	_, err := objectreader.New(p, schema.NewContext(), objectreader.Settings{MaxDepth: 2})
	assert.True(t, goxaml.HasCode(err, goxaml.CodeMaxDepth))
}

func TestReader_StopEarly(t *testing.T) {
	r, err := objectreader.New([]int{1, 2, 3}, schema.NewContext())
	require.NoError(t, err)
	seen := 0
	for _, err := range r.Nodes() {
		require.NoError(t, err)
		seen++
		if seen == 3 {
			break
		}
	}
	assert.Equal(t, 3, seen)
	require.NoError(t, r.Close())
}
