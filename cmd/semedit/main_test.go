// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

const goSrc = "package demo\n\nfunc Add(a, b int) int {\n\treturn a + b\n}\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "semedit "+version+"\n", out)
}

func TestApply(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "demo.go", goSrc)

	out, _, err := run(t, "apply", "--workdir", dir, "--log-level", "error",
		"-f", "demo.go", "-s", "anchor:a + b#0", "-o", "replace_exact", "-t", "b + a", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "+\treturn b + a\n")
	assert.Contains(t, out, `"written": false`)
	data, _ := os.ReadFile(path)
	assert.Equal(t, goSrc, string(data))

	out, _, err = run(t, "apply", "--workdir", dir, "--log-level", "error",
		"-f", "demo.go", "-s", "anchor:a + b#0", "-o", "replace_exact", "-t", "b + a")
	require.NoError(t, err)
	assert.Contains(t, out, `"written": true`)
	assert.Contains(t, out, `"revision": 2`)
	data, _ = os.ReadFile(path)
	assert.Contains(t, string(data), "return b + a")
}

func TestApply_Rejected(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "demo.go", goSrc)

	_, errOut, err := run(t, "apply", "--workdir", dir, "--log-level", "error",
		"-f", "demo.go", "-s", "anchor:a + b#0", "-o", "replace_exact", "-t", "a +")
	require.Error(t, err)
	assert.Contains(t, errOut, "syntax_violation")
	data, _ := os.ReadFile(path)
	assert.Equal(t, goSrc, string(data))

	_, _, err = run(t, "apply", "--workdir", dir, "-f", "demo.go", "-s", "bogus", "-t", "x")
	require.Error(t, err)
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.go", goSrc)
	writeFile(t, dir, "bad.go", "package demo\n\nfunc Add( {\n")

	out, _, err := run(t, "check", "--workdir", dir, "good.go")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, _, err = run(t, "check", "--workdir", dir, "bad.go")
	require.Error(t, err)
	assert.Contains(t, out, filepath.Join(dir, "bad.go")+":")
}

func TestLanguages(t *testing.T) {
	out, _, err := run(t, "languages")
	require.NoError(t, err)
	assert.Contains(t, out, "go")
	assert.Contains(t, out, "rust")
	assert.Contains(t, out, "format=true")
}

func TestOutline(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "demo.go", goSrc)

	out, _, err := run(t, "outline", "--workdir", dir, "demo.go")
	require.NoError(t, err)
	assert.Contains(t, out, "(1/1 definitions)")
	assert.Contains(t, out, "   3  func Add(a, b int) int {")
}
