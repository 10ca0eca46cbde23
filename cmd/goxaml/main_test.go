package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	j "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/untillpro/goutils/logger"

	"github.com/reoring/goxaml/codec"
	"github.com/reoring/goxaml/internal/testtypes"
	"github.com/reoring/goxaml/node"
	"github.com/reoring/goxaml/schema"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func writeDoc(t *testing.T, name string, v any, opt codec.Options) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, codec.Save(context.Background(), v, f, schema.NewContext(), opt))
	return path
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]logger.TLogLevel{
		"":        logger.LogLevelWarning,
		"warn":    logger.LogLevelWarning,
		"NONE":    logger.LogLevelNone,
		"error":   logger.LogLevelError,
		"info":    logger.LogLevelInfo,
		"debug":   logger.LogLevelVerbose,
		"verbose": logger.LogLevelVerbose,
	} {
		got, err := parseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseLogLevel("loud")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	c, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), c)

	path := filepath.Join(t.TempDir(), "goxaml.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "info"
format = "yaml"
max_depth = 5
compress = true
colour = "blue"
`), 0o600))
	c, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config{LogLevel: "info", Format: "yaml", MaxDepth: 5, Compress: true}, c)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestCollectStats(t *testing.T) {
	sctx := schema.NewContext()
	l := sctx.Language()
	p := sctx.TypeOf(testtypes.Person{})
	name, _ := p.Member("Name")
	tags, _ := p.Member("Tags")
	s, err := collectStats(node.FromSlice([]node.Node{
		node.NamespaceNode("x", schema.XamlNamespace),
		node.StartObjectNode(p),
		node.StartMemberNode(name), node.ValueNode("Ann"), node.EndMemberNode(),
		node.StartMemberNode(tags),
		node.StartObjectNode(sctx.TypeOf([]string{})), node.StartMemberNode(l.Items),
		node.StartObjectNode(sctx.TypeOf("")), node.StartMemberNode(l.Initialization), node.ValueNode("a"), node.EndMemberNode(), node.EndObjectNode(),
		node.EndMemberNode(), node.EndObjectNode(),
		node.EndMemberNode(),
		node.EndObjectNode(),
	}))
	require.NoError(t, err)
	assert.Equal(t, 17, s.Nodes)
	assert.Equal(t, 3, s.MaxDepth)
	assert.Equal(t, "Person", s.Root)
	assert.Equal(t, 3, s.Kinds["StartObject"])
	assert.Equal(t, 1, s.Kinds["NamespaceDeclaration"])
	assert.Equal(t, []memberStat{{Member: "Name", Nodes: 3}, {Member: "Tags", Nodes: 11}}, s.Members)
}

func TestValidateCommand(t *testing.T) {
	path := writeDoc(t, "person.json", &testtypes.Person{Name: "Ann", Tags: []string{"a"}}, codec.Options{})
	out, _, err := run(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, path+": ok (")

	bad := filepath.Join(t.TempDir(), "dup.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"namespaces":[{"prefix":"","uri":"urn:test"}],"nodes":[
{"kind":"StartObject","type":"Thing"},
{"kind":"StartMember","member":"A"},{"kind":"Value","value":"1"},{"kind":"EndMember"},
{"kind":"StartMember","member":"A"},{"kind":"Value","value":"2"},{"kind":"EndMember"},
{"kind":"EndObject"}]}`), 0o600))
	_, errOut, err := run(t, "validate", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 issue(s)")
	assert.Contains(t, errOut, "5:0:")
	assert.Contains(t, errOut, "[duplicate_member] at /A")
}

func TestConvertAndStatsCommands(t *testing.T) {
	src := writeDoc(t, "person.json", &testtypes.Person{Name: "Ann", Age: 3}, codec.Options{})
	dst := filepath.Join(t.TempDir(), "person.yaml.zst")

	_, _, err := run(t, "convert", src, "-o", dst)
	require.NoError(t, err)
	raw, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte{0x28, 0xb5, 0x2f, 0xfd}), "compressed by file name")

	out, _, err := run(t, "stats", "--json", dst)
	require.NoError(t, err)
	var s docStats
	require.NoError(t, j.Unmarshal([]byte(out), &s))
	assert.Equal(t, "Person", s.Root)
	assert.Positive(t, s.Nodes)
	assert.NotEmpty(t, s.Members)

	out, _, err = run(t, "convert", dst, "--to", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"type":"Person"`)
}

func TestConvertCommand_RejectsUnknownFormat(t *testing.T) {
	src := writeDoc(t, "person.json", &testtypes.Address{City: "Oslo"}, codec.Options{})
	_, _, err := run(t, "convert", src, "--to", "xml")
	assert.Error(t, err)

	_, _, err = run(t, "validate", src, "--from", "toml")
	assert.Error(t, err)
}
