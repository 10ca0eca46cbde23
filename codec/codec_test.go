package codec_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/goxaml"
	"github.com/reoring/goxaml/codec"
	"github.com/reoring/goxaml/internal/testtypes"
	"github.com/reoring/goxaml/objectwriter"
	"github.com/reoring/goxaml/schema"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

func samplePerson() *testtypes.Person {
	return &testtypes.Person{
		Name:      "Ann",
		Age:       30,
		Email:     "ann@example.com",
		Address:   &testtypes.Address{Street: "Main", City: "Oslo"},
		Tags:      []string{"a", "b"},
		Nicknames: []string{"annie"},
		Born:      time.Date(1999, 12, 31, 23, 59, 0, 0, time.UTC),
		Friend:    &testtypes.Person{Name: "Bo", Age: 2},
	}
}

func assertSamePerson(t *testing.T, want, got *testtypes.Person) {
	t.Helper()
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Age, got.Age)
	assert.Equal(t, want.Email, got.Email)
	assert.Equal(t, want.Address, got.Address)
	assert.Equal(t, want.Tags, got.Tags)
	assert.Equal(t, want.Nicknames, got.Nicknames)
	assert.True(t, want.Born.Equal(got.Born))
	require.NotNil(t, got.Friend)
	assert.Equal(t, want.Friend.Name, got.Friend.Name)
	assert.Equal(t, want.Friend.Age, got.Friend.Age)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]codec.Format{"json": codec.FormatJSON, "YAML": codec.FormatYAML, " yml ": codec.FormatYAML} {
		f, err := codec.ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, f, in)
	}
	_, err := codec.ParseFormat("xml")
	assert.Error(t, err)
	assert.Equal(t, "yaml", codec.FormatYAML.String())
	assert.Equal(t, "Format(7)", codec.Format(7).String())
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path       string
		format     codec.Format
		compressed bool
	}{
		{"doc.json", codec.FormatJSON, false},
		{"doc.yaml", codec.FormatYAML, false},
		{"dir/doc.YML", codec.FormatYAML, false},
		{"doc.yaml.zst", codec.FormatYAML, true},
		{"doc.zst", codec.FormatJSON, true},
		{"noext", codec.FormatJSON, false},
	}
	for _, tc := range tests {
		f, c := codec.DetectFormat(tc.path)
		assert.Equal(t, tc.format, f, tc.path)
		assert.Equal(t, tc.compressed, c, tc.path)
	}
}

func TestSaveLoad(t *testing.T) {
	for _, opt := range []codec.Options{
		{Format: codec.FormatJSON},
		{Format: codec.FormatYAML},
		{Format: codec.FormatJSON, Compress: true},
		{Format: codec.FormatYAML, Compress: true, Background: true, QueueCapacity: 1},
		{Format: codec.FormatJSON, Strict: true, MaxDepth: 10},
	} {
		t.Run(opt.Format.String(), func(t *testing.T) {
			ctx := context.Background()
			sctx := schema.NewContext()
			in := samplePerson()
			var buf bytes.Buffer
			require.NoError(t, codec.Save(ctx, in, &buf, sctx, opt))
			if opt.Compress {
				assert.True(t, bytes.HasPrefix(buf.Bytes(), zstdMagic))
			}
			out, err := codec.LoadAs[*testtypes.Person](ctx, &buf, sctx, opt)
			require.NoError(t, err)
			assertSamePerson(t, in, out)
		})
	}
}

func TestLoadAs_DereferencesRoot(t *testing.T) {
	ctx := context.Background()
	sctx := schema.NewContext()
	var buf bytes.Buffer
	require.NoError(t, codec.Save(ctx, &testtypes.Address{City: "Oslo"}, &buf, sctx, codec.Options{}))
	doc := buf.String()

	addr, err := codec.LoadAs[testtypes.Address](ctx, strings.NewReader(doc), sctx, codec.Options{})
	require.NoError(t, err)
	assert.Equal(t, testtypes.Address{City: "Oslo"}, addr)

	_, err = codec.LoadAs[testtypes.Person](ctx, strings.NewReader(doc), sctx, codec.Options{})
	assert.True(t, goxaml.HasCode(err, goxaml.CodeTypeMismatch))
}

func TestLoad_WriterSettings(t *testing.T) {
	ctx := context.Background()
	sctx := schema.NewContext()
	var buf bytes.Buffer
	require.NoError(t, codec.Save(ctx, &testtypes.Address{City: "Oslo"}, &buf, sctx, codec.Options{}))

	existing := &testtypes.Address{Street: "kept"}
	out, err := codec.Load(ctx, &buf, sctx, codec.Options{Writer: objectwriter.Settings{RootObjectInstance: existing}})
	require.NoError(t, err)
	assert.Same(t, existing, out)
	assert.Equal(t, "Oslo", existing.City)
}

func TestLoad_ParseError(t *testing.T) {
	ctx := context.Background()
	sctx := schema.NewContext()
	_, err := codec.Load(ctx, strings.NewReader("{not json"), sctx, codec.Options{})
	assert.True(t, goxaml.HasCode(err, goxaml.CodeParseError))

	_, err = codec.Load(ctx, strings.NewReader("plain text"), sctx, codec.Options{Compress: true})
	assert.Error(t, err)
}

const nestedDoc = `$ns: {"": "` + schema.ClrNamespacePrefix + `github.com/reoring/goxaml/internal/testtypes"}
$type: Person
Name: Ann
Friend:
  $type: Person
  Name: Bo
`

func TestLoad_StrictDepth(t *testing.T) {
	ctx := context.Background()
	sctx := schema.NewContext()
	sctx.Register(testtypes.Person{})
	yamlOpt := codec.Options{Format: codec.FormatYAML}

	out, err := codec.LoadAs[*testtypes.Person](ctx, strings.NewReader(nestedDoc), sctx, yamlOpt)
	require.NoError(t, err)
	assert.Equal(t, "Bo", out.Friend.Name)

	yamlOpt.Strict, yamlOpt.MaxDepth = true, 1
	_, err = codec.Load(ctx, strings.NewReader(nestedDoc), sctx, yamlOpt)
	require.Error(t, err)
	assert.True(t, goxaml.HasCode(err, goxaml.CodeMaxDepth))
}

func TestLoad_StrictDuplicateMemberInBackground(t *testing.T) {
	ctx := context.Background()
	sctx := schema.NewContext()
	sctx.Register(testtypes.Person{})
	doc := `{"namespaces":[{"prefix":"","uri":"` + schema.ClrNamespacePrefix + `github.com/reoring/goxaml/internal/testtypes"}],
"nodes":[
{"kind":"StartObject","type":"Person"},
{"kind":"StartMember","member":"Age"},{"kind":"Value","value":1},{"kind":"EndMember"},
{"kind":"StartMember","member":"Age"},{"kind":"Value","value":2},{"kind":"EndMember"},
{"kind":"EndObject"}]}`
	_, err := codec.Load(ctx, strings.NewReader(doc), sctx, codec.Options{Strict: true, Background: true})
	require.Error(t, err)
	iss, ok := goxaml.AsIssues(err)
	require.True(t, ok, "%v", err)
	assert.Equal(t, goxaml.CodeDuplicateMember, iss.First().Code)
	assert.Equal(t, 5, iss.First().Line)
}

func TestConvert(t *testing.T) {
	ctx := context.Background()
	sctx := schema.NewContext()
	in := samplePerson()
	var jsonDoc, yamlDoc bytes.Buffer
	require.NoError(t, codec.Save(ctx, in, &jsonDoc, sctx, codec.Options{}))

	to := codec.Options{Format: codec.FormatYAML, Compress: true}
	require.NoError(t, codec.Convert(ctx, &jsonDoc, &yamlDoc, sctx, codec.Options{}, to))
	assert.True(t, bytes.HasPrefix(yamlDoc.Bytes(), zstdMagic))

	out, err := codec.LoadAs[*testtypes.Person](ctx, &yamlDoc, sctx, to)
	require.NoError(t, err)
	assertSamePerson(t, in, out)
}

func TestClone(t *testing.T) {
	ctx := context.Background()
	sctx := schema.NewContext()
	s := &testtypes.Shape{Sides: 4}
	in := &testtypes.Canvas{Primary: s, Secondary: s}
	out, err := codec.CloneAs(ctx, in, sctx, codec.Options{})
	require.NoError(t, err)
	assert.NotSame(t, in, out)
	assert.NotSame(t, s, out.Primary)
	assert.Same(t, out.Primary, out.Secondary)
	assert.Equal(t, 4, out.Primary.Sides)

	p, err := codec.CloneAs(ctx, samplePerson(), sctx, codec.Options{})
	require.NoError(t, err)
	assertSamePerson(t, samplePerson(), p)

	n, err := codec.Clone(ctx, []int{1, 2}, sctx, codec.Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, n)
}
