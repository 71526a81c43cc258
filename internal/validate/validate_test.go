// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package validate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petar-djukic/semedit/internal/edit"
	"github.com/petar-djukic/semedit/internal/language"
	"github.com/petar-djukic/semedit/internal/syntax"
	"github.com/petar-djukic/semedit/pkg/types"
)

func parse(t *testing.T, p *syntax.Provider, lang, src string) *syntax.Tree {
	t.Helper()
	tree, err := p.Parse(context.Background(), lang, []byte(src))
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree
}

func insertAt(lang, src, marker, text string) edit.Edit {
	off := strings.Index(src, marker) + len(marker)
	return edit.New(types.EditPosition{
		Span: types.Span{Start: off, End: off},
		Mode: types.InsertAfter,
	}, text, lang, 1)
}

func TestValidate(t *testing.T) {
	goSrc := "package demo\n\nfunc run() {\n\tx := 1\n\t_ = x\n}\n"
	rustSrc := "struct Point {\n    x: i32,\n    y: i32,\n}\n"
	jsSrc := "function a() { ) }\nfunction b() { return 1; }\n"

	tests := []struct {
		name     string
		lang     string
		src      string
		edit     edit.Edit
		wantKind types.ErrorKind
		wantRule string
	}{
		{
			name: "go statement in function body",
			lang: "go",
			src:  goSrc,
			edit: insertAt("go", goSrc, "_ = x\n", "\ty := 2\n\t_ = y\n"),
		},
		{
			name:     "go unbalanced expression",
			lang:     "go",
			src:      goSrc,
			edit:     insertAt("go", goSrc, "_ = x\n", "\ty := (\n"),
			wantKind: types.KindSyntaxViolation,
		},
		{
			name:     "rust function in struct fields",
			lang:     "rust",
			src:      rustSrc,
			edit:     insertAt("rust", rustSrc, "y: i32,\n", "    fn area(&self) -> i32 { self.x * self.y }\n"),
			wantKind: types.KindContextViolation,
			wantRule: "function.in.struct.fields",
		},
		{
			name: "pre-existing error elsewhere is ignored",
			lang: "javascript",
			src:  jsSrc,
			edit: edit.New(types.EditPosition{
				Span: types.Span{Start: strings.Index(jsSrc, "1;"), End: strings.Index(jsSrc, "1;") + 1},
				Mode: types.ReplaceRange,
			}, "2", "javascript", 1),
		},
		{
			name: "plain text accepts anything",
			lang: "notes",
			src:  "hello\n",
			edit: insertAt("notes", "hello\n", "hello", " ) ( {"),
		},
	}

	p := syntax.NewProvider()
	v := New(p, language.Builtin())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := parse(t, p, tt.lang, tt.src)
			sp, err := v.Validate(context.Background(), before, tt.edit)
			if tt.wantKind == "" {
				require.NoError(t, err)
				defer sp.Close()
				want, _ := tt.edit.Apply([]byte(tt.src))
				assert.Equal(t, string(want), string(sp.Text))
				assert.Equal(t, string(sp.Text), string(sp.Tree().Source()))
				return
			}
			require.Error(t, err)
			assert.Nil(t, sp)
			assert.Equal(t, tt.wantKind, types.KindOf(err))

			var te *types.Error
			require.True(t, errors.As(err, &te))
			require.NotNil(t, te.Range)
			assert.Positive(t, te.Line)
			assert.Contains(t, te.Context, ">")
			if tt.wantRule != "" {
				assert.Equal(t, tt.wantRule, te.Rule)
				assert.NotEmpty(t, te.Suggestion)
			}
		})
	}
}

func TestValidate_PreExistingErrorsSurvive(t *testing.T) {
	src := "function a() { ) }\nfunction b() { return 1; }\n"
	p := syntax.NewProvider()
	before := parse(t, p, "javascript", src)
	require.True(t, before.HasErrors())

	e := insertAt("javascript", src, "return 1; }\n", "function c() { return 3; }\n")
	sp, err := New(p, language.Builtin()).Validate(context.Background(), before, e)
	require.NoError(t, err)
	defer sp.Close()
	assert.True(t, sp.Tree().HasErrors(), "unrelated error is carried, not repaired")
}

func TestValidate_ErrorEnclosingEditSurvives(t *testing.T) {
	src := "function a() { ) return 1; }\nfunction b() { return 2; }\n"
	p := syntax.NewProvider()
	before := parse(t, p, "javascript", src)
	require.True(t, before.HasErrors())

	off := strings.Index(src, "1;")
	e := edit.New(types.EditPosition{Span: types.Span{Start: off, End: off + 1}, Mode: types.ReplaceRange}, "42", "javascript", 1)
	sp, err := New(p, language.Builtin()).Validate(context.Background(), before, e)
	require.NoError(t, err)
	defer sp.Close()
	assert.Contains(t, string(sp.Text), "return 42;")
}

func TestCarry(t *testing.T) {
	target := types.Span{Start: 10, End: 12}
	tests := []struct {
		name   string
		span   types.Span
		target types.Span
		delta  int
		want   types.Span
		ok     bool
	}{
		{"before target", types.Span{Start: 2, End: 5}, target, 3, types.Span{Start: 2, End: 5}, true},
		{"ends at insertion point", types.Span{Start: 2, End: 10}, types.Span{Start: 10, End: 10}, 4, types.Span{Start: 2, End: 10}, true},
		{"after target shifts", types.Span{Start: 20, End: 25}, target, 3, types.Span{Start: 23, End: 28}, true},
		{"starts at insertion point shifts", types.Span{Start: 10, End: 14}, types.Span{Start: 10, End: 10}, 4, types.Span{Start: 14, End: 18}, true},
		{"enclosing grows", types.Span{Start: 5, End: 30}, target, 3, types.Span{Start: 5, End: 33}, true},
		{"enclosing shrinks", types.Span{Start: 5, End: 30}, target, -2, types.Span{Start: 5, End: 28}, true},
		{"equal to target", target, target, 1, types.Span{Start: 10, End: 13}, true},
		{"overlaps target start", types.Span{Start: 8, End: 11}, target, 3, types.Span{}, false},
		{"overlaps target end", types.Span{Start: 11, End: 15}, target, 3, types.Span{}, false},
		{"inside target", types.Span{Start: 10, End: 11}, types.Span{Start: 9, End: 13}, 0, types.Span{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := carry(tt.span, tt.target, tt.delta)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBlocks(t *testing.T) {
	const root, fnA, fnB syntax.NodeID = 0, 1, 7
	edited := types.Span{Start: 10, End: 15}
	tests := []struct {
		name      string
		span      types.Span
		top       syntax.NodeID
		editedTop syntax.NodeID
		want      bool
	}{
		{"inside edited range", types.Span{Start: 12, End: 14}, fnB, fnA, true},
		{"shares end byte", types.Span{Start: 15, End: 16}, fnB, fnA, true},
		{"shares start byte", types.Span{Start: 8, End: 10}, fnB, fnA, true},
		{"covers edited range", types.Span{Start: 0, End: 40}, root, root, true},
		{"same top-level node, apart", types.Span{Start: 30, End: 31}, fnA, fnA, true},
		{"other top-level node, apart", types.Span{Start: 30, End: 31}, fnB, fnA, false},
		{"one byte past the end", types.Span{Start: 16, End: 17}, fnB, fnA, false},
		{"edit directly under the root", types.Span{Start: 30, End: 31}, root, root, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, blocks(tt.span, edited, tt.top, tt.editedTop, root))
		})
	}
}

func TestValidate_OutOfRangeEdit(t *testing.T) {
	p := syntax.NewProvider()
	before := parse(t, p, "go", "package demo\n")
	e := edit.New(types.EditPosition{Span: types.Span{Start: 100, End: 100}, Mode: types.InsertAfter}, "x", "go", 1)

	_, err := New(p, language.Builtin()).Validate(context.Background(), before, e)
	assert.ErrorIs(t, err, types.ErrInvalidBoundary)
}

func TestSpeculation_Keep(t *testing.T) {
	p := syntax.NewProvider()
	src := "package demo\n"
	before := parse(t, p, "go", src)
	sp, err := New(p, language.Builtin()).Validate(context.Background(), before, insertAt("go", src, src, "\nvar x = 1\n"))
	require.NoError(t, err)

	tree := sp.Keep()
	sp.Close()
	caps, err := tree.Query("(var_declaration) @v")
	require.NoError(t, err, "kept tree still queryable after Close")
	assert.Len(t, caps, 1)
	tree.Close()
}

func TestReparse(t *testing.T) {
	p := syntax.NewProvider()
	src := "package demo\n\nfunc f() {}\n"
	before := parse(t, p, "go", src)
	v := New(p, language.Builtin())
	e := insertAt("go", src, "{}\n", "")

	sp, err := v.Reparse(context.Background(), before, e, []byte("package demo\n\nfunc f() {\n}\n"))
	require.NoError(t, err)
	sp.Close()

	_, err = v.Reparse(context.Background(), before, e, []byte("package demo\n\nfunc f() {\n"))
	assert.ErrorIs(t, err, types.ErrSyntaxViolation)
}
