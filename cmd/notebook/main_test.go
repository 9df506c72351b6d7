package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notebook/pkg/git"
)

// notebookCLI runs commands against one temporary notebook.
type notebookCLI struct {
	t    *testing.T
	path string
}

func newCLI(t *testing.T) *notebookCLI {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	return &notebookCLI{t: t, path: t.TempDir()}
}

func (c *notebookCLI) run(args ...string) (string, error) {
	c.t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--path", c.path}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (c *notebookCLI) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, "notebook %s: %s", strings.Join(args, " "), out)
	return out
}

type listed struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Images []int  `json:"images"`
}

func (c *notebookCLI) list() []listed {
	c.t.Helper()
	var notes []listed
	require.NoError(c.t, json.Unmarshal([]byte(c.mustRun("list", "--format", "json")), &notes))
	return notes
}

func TestCLI_Lifecycle(t *testing.T) {
	cli := newCLI(t)

	first := strings.TrimSpace(cli.mustRun("new", "--title", "First", "--body", "one"))
	second := strings.TrimSpace(cli.mustRun("new", "--title", "Second"))

	notes := cli.list()
	require.Len(t, notes, 2)
	assert.Equal(t, second, notes[0].ID, "newest commit first")
	assert.Equal(t, first, notes[1].ID)

	// Editing the older note moves it to the top. A prefix is enough.
	cli.mustRun("edit", first[:8], "--body", "edited")
	notes = cli.list()
	assert.Equal(t, first, notes[0].ID)
	assert.Equal(t, "First", notes[0].Title, "title untouched when only --body is given")
	assert.Equal(t, "edited", notes[0].Body)

	out := cli.mustRun("show", first)
	assert.Contains(t, out, "Title:   First")
	assert.Contains(t, out, "edited")

	cli.mustRun("delete", second)
	notes = cli.list()
	require.Len(t, notes, 1)

	_, err := cli.run("delete", second)
	assert.Error(t, err)

	_, err = cli.run("purge")
	assert.Error(t, err, "purge needs --yes")

	out = cli.mustRun("purge", "--yes")
	assert.Contains(t, out, "deleted 1 notes")
	assert.Empty(t, cli.list())

	out = cli.mustRun("purge", "--yes")
	assert.Contains(t, out, "deleted 0 notes")
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 4, 4))))
}

func TestCLI_Images(t *testing.T) {
	cli := newCLI(t)
	shots := filepath.Join(t.TempDir(), "shots")
	require.NoError(t, os.MkdirAll(filepath.Join(shots, "nested"), 0755))
	writePNG(t, filepath.Join(shots, "a.png"))
	writePNG(t, filepath.Join(shots, "nested", "b.png"))
	require.NoError(t, os.WriteFile(filepath.Join(shots, "notes.txt"), []byte("not an image"), 0644))

	id := strings.TrimSpace(cli.mustRun("new", "--title", "Pictures"))

	cli.mustRun("attach", id, filepath.Join(shots, "**", "*.png"))
	cli.mustRun("attach", id, filepath.Join(shots, "notes.txt"))
	notes := cli.list()
	require.Len(t, notes, 1)
	require.Len(t, notes[0].Images, 3)
	assert.Equal(t, len("not an image"), notes[0].Images[2], "non images are kept as is")

	cli.mustRun("detach", id, "0")
	notes = cli.list()
	require.Len(t, notes[0].Images, 2)
	assert.Equal(t, len("not an image"), notes[0].Images[1], "later images move down")

	_, err := cli.run("detach", id, "5")
	assert.Error(t, err)

	_, err = cli.run("attach", id, filepath.Join(shots, "*.gif"))
	assert.Error(t, err, "a pattern matching nothing is an error")
}

func TestCLI_UnknownID(t *testing.T) {
	cli := newCLI(t)
	cli.mustRun("new", "--title", "a")
	cli.mustRun("new", "--title", "b")

	_, err := cli.run("show", "")
	assert.Error(t, err)

	// Ids are hex, so nothing starts with "zzzz".
	_, err = cli.run("show", "zzzz")
	assert.Error(t, err)
}

func TestCLI_Formats(t *testing.T) {
	cli := newCLI(t)
	cli.mustRun("new", "--title", "Groceries", "--body", "milk\neggs")

	text := cli.mustRun("list")
	assert.Contains(t, text, "Groceries")

	yamlOut := cli.mustRun("list", "--format", "yaml")
	assert.Contains(t, yamlOut, "title: Groceries")

	_, err := cli.run("list", "--format", "xml")
	assert.Error(t, err)
}

func TestCLI_YAMLSnapshot(t *testing.T) {
	cli := newCLI(t)
	cli.mustRun("--snapshot", "notes.yaml", "new", "--title", "kept in yaml")

	data, err := os.ReadFile(filepath.Join(cli.path, "notes.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "kept in yaml")
}

func TestCLI_State(t *testing.T) {
	cli := newCLI(t)
	cli.mustRun("new", "--title", "x")

	var state map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(cli.mustRun("state")), &state))
	assert.Contains(t, state, "manager")
	assert.Contains(t, state, "fs")
}

func TestCLI_Version(t *testing.T) {
	cli := newCLI(t)
	assert.Contains(t, cli.mustRun("version"), "notebook version")
}

func TestCLI_VersioningFollowsGit(t *testing.T) {
	if !git.IsInstalled() {
		t.Skip("git not installed")
	}

	t.Run("Git work tree is versioned", func(t *testing.T) {
		cli := newCLI(t)
		client := git.NewClient(cli.path, "", nil)
		require.NoError(t, client.Init())

		cli.mustRun("new", "--title", "tracked")

		history, err := client.Log(5)
		require.NoError(t, err)
		require.NotEmpty(t, history)
		assert.Contains(t, history[0], "save 1 note")
	})

	t.Run("Explicit false wins", func(t *testing.T) {
		cli := newCLI(t)
		t.Setenv("NOTEBOOK_VERSIONING", "false")
		client := git.NewClient(cli.path, "", nil)
		require.NoError(t, client.Init())

		cli.mustRun("new", "--title", "untracked")

		history, _ := client.Log(5)
		assert.Empty(t, history, "no commits when versioning is off")
	})

	t.Run("Plain directory is not versioned", func(t *testing.T) {
		cli := newCLI(t)
		cli.mustRun("new", "--title", "plain")

		_, err := os.Stat(filepath.Join(cli.path, ".git"))
		assert.True(t, os.IsNotExist(err))
	})
}
