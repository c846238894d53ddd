package main_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	main "github.com/fwojciec/hbscontent/cmd/hbscontent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func run(t *testing.T, m *main.Main, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err = m.Run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return out.String(), errOut.String(), err
}

func TestMain_Run_Help(t *testing.T) {
	t.Parallel()

	stdout, _, err := run(t, &main.Main{}, "", "--help")

	require.NoError(t, err)
	assert.Contains(t, stdout, "hbscontent")
	assert.Contains(t, stdout, "extract")
	assert.Contains(t, stdout, "build")
	assert.Contains(t, stdout, "search")
}

func TestMain_Run_NoArgs(t *testing.T) {
	t.Parallel()

	_, _, err := run(t, &main.Main{}, "")

	assert.Error(t, err)
}

func TestMain_Run_Extract(t *testing.T) {
	t.Parallel()

	t.Run("prints contents record for a file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "page.hbs")
		writeFile(t, path, "<h1>Hello</h1><p>World</p>")

		stdout, _, err := run(t, &main.Main{}, "", "extract", path)

		require.NoError(t, err)
		assert.Equal(t, `{"title":"Hello","body":"HelloWorld","keywords":[],"rawTemplate":"<h1>Hello</h1><p>World</p>"}`+"\n", stdout)
	})

	t.Run("reads standard input", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := run(t, &main.Main{}, `<div>{{pulse-docs/heading property="topic"}}Text</div>`, "extract", "-")

		require.NoError(t, err)
		assert.Contains(t, stdout, `"keywords":["topic"]`)
	})

	t.Run("reports parse errors", func(t *testing.T) {
		t.Parallel()

		_, stderr, err := run(t, &main.Main{}, "<div><p>Hello</div>", "extract", "-")

		require.Error(t, err)
		assert.Contains(t, stderr, "error: closing tag </div> did not match last open tag <p>")
	})

	t.Run("reports missing file", func(t *testing.T) {
		t.Parallel()

		_, stderr, err := run(t, &main.Main{}, "", "extract", filepath.Join(t.TempDir(), "missing.hbs"))

		require.Error(t, err)
		assert.Contains(t, stderr, "error:")
	})
}

func TestMain_Run_Build(t *testing.T) {
	t.Parallel()

	t.Run("writes contents files", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		src := filepath.Join(dir, "src")
		dest := filepath.Join(dir, "out")
		writeFile(t, filepath.Join(src, "index.hbs"), "<h1>Home</h1>")
		writeFile(t, filepath.Join(src, "guide", "setup.hbs"), "<h2>Setup</h2>")
		writeFile(t, filepath.Join(src, "notes.txt"), "ignored")

		stdout, _, err := run(t, &main.Main{}, "", "build", src, dest)

		require.NoError(t, err)
		assert.Contains(t, stdout, "Extracted 2")

		data, err := os.ReadFile(filepath.Join(dest, "guide", "setup.template-contents"))
		require.NoError(t, err)
		assert.Equal(t, `{"title":"Setup","body":"Setup","keywords":[],"rawTemplate":"<h2>Setup</h2>"}`, string(data))
		_, err = os.Stat(filepath.Join(dest, "notes.template-contents"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("fails on invalid template and leaves no output", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		src := filepath.Join(dir, "src")
		dest := filepath.Join(dir, "out")
		writeFile(t, filepath.Join(src, "bad.hbs"), "<div>")

		_, stderr, err := run(t, &main.Main{}, "", "build", src, dest)

		require.Error(t, err)
		assert.Contains(t, stderr, "failed bad.hbs")
		_, err = os.Stat(dest)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("skips invalid templates when asked", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		src := filepath.Join(dir, "src")
		dest := filepath.Join(dir, "out")
		writeFile(t, filepath.Join(src, "bad.hbs"), "<div>")
		writeFile(t, filepath.Join(src, "good.hbs"), "<p>ok</p>")

		stdout, stderr, err := run(t, &main.Main{}, "", "build", src, dest, "--skip-invalid")

		require.NoError(t, err)
		assert.Contains(t, stdout, "skipped 1")
		assert.Contains(t, stderr, "skipped bad.hbs")
		_, err = os.Stat(filepath.Join(dest, "good.template-contents"))
		assert.NoError(t, err)
	})

	t.Run("reads config file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		src := filepath.Join(dir, "src")
		dest := filepath.Join(dir, "out")
		cfg := filepath.Join(dir, "hbscontent.yaml")
		writeFile(t, filepath.Join(src, "page.handlebars"), "<h1>Page</h1>")
		writeFile(t, cfg, "extensions: [.handlebars]\ntarget_extension: json\n")

		_, _, err := run(t, &main.Main{}, "", "build", src, dest, "--config", cfg)

		require.NoError(t, err)
		_, err = os.Stat(filepath.Join(dest, "page.json"))
		assert.NoError(t, err)
	})

	t.Run("flags override config file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		src := filepath.Join(dir, "src")
		dest := filepath.Join(dir, "out")
		cfg := filepath.Join(dir, "hbscontent.yaml")
		writeFile(t, filepath.Join(src, "page.hbs"), "<h1>Page</h1>")
		writeFile(t, cfg, "target_extension: json\n")

		_, _, err := run(t, &main.Main{}, "", "build", src, dest, "--config", cfg, "--target", "contents")

		require.NoError(t, err)
		_, err = os.Stat(filepath.Join(dest, "page.contents"))
		assert.NoError(t, err)
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		src := filepath.Join(dir, "src")
		writeFile(t, filepath.Join(src, "page.hbs"), "")

		_, stderr, err := run(t, &main.Main{}, "", "build", src, filepath.Join(dir, "out"), "--ext", "hbs")

		require.Error(t, err)
		assert.Contains(t, stderr, "must start with a dot")
	})
}

func TestMain_Run_BuildAndSearch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	index := filepath.Join(dir, "index.db")
	writeFile(t, filepath.Join(src, "intro.hbs"), `<h1>Introduction</h1><p>Getting started</p>`)
	writeFile(t, filepath.Join(src, "setup.hbs"), `<h1>Setup</h1><div>{{pulse-docs/heading property="install"}}</div>`)

	stdout, _, err := run(t, &main.Main{}, "", "build", src, filepath.Join(dir, "out"), "--index", index)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Extracted 2")

	// A second build reuses the index
	stdout, _, err = run(t, &main.Main{}, "", "build", src, filepath.Join(dir, "out"), "--index", index)
	require.NoError(t, err)
	assert.Contains(t, stdout, "cached 2")

	stdout, _, err = run(t, &main.Main{}, "", "search", "started", "--index", index)
	require.NoError(t, err)
	assert.Contains(t, stdout, "intro.hbs  Introduction")
	assert.NotContains(t, stdout, "setup.hbs")

	stdout, _, err = run(t, &main.Main{}, "", "search", "--keyword", "install", "--index", index)
	require.NoError(t, err)
	assert.Contains(t, stdout, "setup.hbs  Setup  [install]")

	// The index path can come from the environment
	stdout, _, err = run(t, &main.Main{IndexPath: index}, "", "search", "nothing-matches")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No matching templates.")
}

func TestMain_Run_SearchRequiresIndex(t *testing.T) {
	t.Parallel()

	_, stderr, err := run(t, &main.Main{}, "", "search", "anything")

	require.Error(t, err)
	assert.Contains(t, stderr, "no index specified")
}
