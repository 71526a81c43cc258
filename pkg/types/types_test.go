// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelector(t *testing.T) {
	tests := []struct {
		in      string
		want    Selector
		wantErr bool
	}{
		{in: "name:parse", want: ByName("parse", "")},
		{in: "name:Point:struct_item", want: ByName("Point", "struct_item")},
		{in: "kind:function_item", want: ByKind("function_item")},
		{in: "query:(function_item name: (identifier) @target)", want: ByQuery("(function_item name: (identifier) @target)")},
		{in: "pos:3:7", want: ByLineColumn(3, 7)},
		{in: "offset:42", want: ByOffset(42)},
		{in: "anchor:x := 1", want: ByAnchor("x := 1", AllOccurrences)},
		{in: "anchor:x := 1#2", want: ByAnchor("x := 1", 2)},
		{in: "anchor:a#b", want: ByAnchor("a#b", AllOccurrences)},
		{in: "name:", wantErr: true},
		{in: "pos:0:1", wantErr: true},
		{in: "pos:x", wantErr: true},
		{in: "offset:-1", wantErr: true},
		{in: "regex:.*", wantErr: true},
		{in: "parse", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSelector(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidSelector), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestSelectorJSON(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Selector
	}{
		{"name", `{"by":"name","name":"parse","kind":"function_item"}`, ByName("parse", "function_item")},
		{"offset zero", `{"by":"position","offset":0}`, ByOffset(0)},
		{"line column", `{"by":"position","line":2,"column":1}`, ByLineColumn(2, 1)},
		{"anchor with end", `{"by":"anchor","anchor":"begin","occurrence":0,"end":"end"}`, ByAnchor("begin", 0).WithEnd("end")},
		{"anchor all", `{"by":"anchor","anchor":"x"}`, ByAnchor("x", AllOccurrences)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Selector
			require.NoError(t, json.Unmarshal([]byte(tt.json), &got))
			assert.Equal(t, tt.want, got)

			data, err := json.Marshal(got)
			require.NoError(t, err)
			assert.JSONEq(t, tt.json, string(data))
		})
	}

	var s Selector
	err := json.Unmarshal([]byte(`{"by":"kind"}`), &s)
	assert.True(t, errors.Is(err, ErrInvalidSelector))
	assert.Error(t, s.Validate(), "failed unmarshal leaves the zero selector")
}

func TestParseOperation(t *testing.T) {
	for _, op := range []Operation{InsertBefore, InsertAfter, InsertAfterNode, ReplaceRange, ReplaceExact, ReplaceNode} {
		got, err := ParseOperation(op.String())
		require.NoError(t, err)
		assert.Equal(t, op, got)
	}
	_, err := ParseOperation("delete")
	assert.Error(t, err)
	assert.Equal(t, "unknown", Operation(99).String())
	assert.True(t, InsertAfterNode.IsInsert())
	assert.False(t, ReplaceExact.IsInsert())
}

func TestSpan(t *testing.T) {
	s := Span{Start: 10, End: 20}
	assert.Equal(t, 10, s.Len())
	assert.True(t, s.Touches(Span{Start: 20, End: 25}), "shared boundary touches")
	assert.True(t, s.Touches(Span{Start: 5, End: 10}))
	assert.False(t, s.Touches(Span{Start: 21, End: 25}))
	assert.True(t, s.Contains(Span{Start: 12, End: 20}))
	assert.False(t, s.Contains(Span{Start: 9, End: 12}))
	assert.Equal(t, "[10,20)", s.String())
}

func TestError(t *testing.T) {
	cause := fs.ErrPermission
	err := fmt.Errorf("commit: %w", IoError("/tmp/a.go", cause))

	assert.True(t, errors.Is(err, ErrIoFailure))
	assert.True(t, errors.Is(err, fs.ErrPermission))
	assert.False(t, errors.Is(err, ErrStaleTarget))
	assert.Equal(t, KindIoFailure, KindOf(err))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, "/tmp/a.go", e.Path)
	assert.Equal(t, "io_failure: accessing /tmp/a.go: permission denied", e.Error())

	stale := &Error{Kind: KindStaleTarget, ExpectedRevision: 5, ActualRevision: 6}
	data, jerr := json.Marshal(stale)
	require.NoError(t, jerr)
	assert.JSONEq(t, `{"kind":"stale_target","message":"","expected_revision":5,"actual_revision":6}`, string(data))
}
