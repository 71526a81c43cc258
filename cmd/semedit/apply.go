// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/petar-djukic/semedit/internal/feedback"
	"github.com/petar-djukic/semedit/pkg/semedit"
	"github.com/petar-djukic/semedit/pkg/types"
)

func newApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Validate and apply one edit",
		Long: "Apply resolves the selector in the file, validates the edit and writes it. " +
			"Selectors use the forms name:NAME[:KIND], kind:KIND, query:QUERY, pos:LINE:COL, offset:N and anchor:TEXT[#N].",
		RunE: runApply,
	}
	cmd.Flags().StringP("file", "f", "", "File to edit (required)")
	cmd.Flags().StringP("selector", "s", "", "Target selector (required)")
	cmd.Flags().StringP("op", "o", "replace_node", "Operation: insert_before, insert_after, insert_after_node, replace_range, replace_exact, replace_node")
	cmd.Flags().StringP("text", "t", "", "Replacement text")
	cmd.Flags().String("text-file", "", "Read the replacement text from a file, - for stdin")
	cmd.Flags().String("end", "", "End pattern for replace_range with an anchor selector")
	cmd.Flags().Int("index", -1, "Candidate index when the selector matches several nodes")
	cmd.Flags().String("language", "", "Override language detection")
	cmd.Flags().Bool("dry-run", false, "Print the preview diff without writing")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("selector")
	return cmd
}

// applyOutput is printed as JSON after the diff.
type applyOutput struct {
	OperationID string `json:"operation_id"`
	Written     bool   `json:"written"`
	Revision    uint64 `json:"revision"`
	Tip         string `json:"tip,omitempty"`
}

func runApply(cmd *cobra.Command, _ []string) error {
	req, err := applyRequest(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ed, err := semedit.New(editorConfig(logger))
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer ed.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		p, err := ed.Stage(ctx, req)
		if err != nil {
			return reportFailure(cmd, err)
		}
		defer func() {
			if err := ed.Abort(ctx, p.OperationID); err != nil {
				logger.Warn("aborting dry-run operation", "op", p.OperationID, "error", err)
			}
		}()
		fmt.Fprint(out, p.Diff.Unified)
		return printJSON(out, applyOutput{OperationID: p.OperationID, Revision: p.Revision, Tip: p.Diff.Metrics.Tip})
	}

	res, err := ed.Apply(ctx, req)
	if err != nil {
		return reportFailure(cmd, err)
	}
	fmt.Fprint(out, res.Diff.Unified)
	return printJSON(out, applyOutput{
		OperationID: res.OperationID,
		Written:     res.Written,
		Revision:    res.Revision,
		Tip:         res.Diff.Metrics.Tip,
	})
}

func applyRequest(cmd *cobra.Command) (semedit.Request, error) {
	flags := cmd.Flags()
	file, _ := flags.GetString("file")
	selText, _ := flags.GetString("selector")
	opText, _ := flags.GetString("op")
	end, _ := flags.GetString("end")
	index, _ := flags.GetInt("index")
	lang, _ := flags.GetString("language")

	sel, err := types.ParseSelector(selText)
	if err != nil {
		return semedit.Request{}, err
	}
	if end != "" {
		sel = sel.WithEnd(end)
	}
	op, err := types.ParseOperation(opText)
	if err != nil {
		return semedit.Request{}, err
	}
	text, err := replacementText(cmd)
	if err != nil {
		return semedit.Request{}, err
	}
	policy := types.RequireUnique()
	if index >= 0 {
		policy = types.SelectIndex(index)
	}
	return semedit.Request{
		Path:      file,
		Language:  lang,
		Selector:  sel,
		Operation: op,
		Text:      text,
		Policy:    policy,
	}, nil
}

func replacementText(cmd *cobra.Command) (string, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("text-file")
	if path == "" {
		text, _ := flags.GetString("text")
		return text, nil
	}
	if flags.Changed("text") {
		return "", errors.New("--text and --text-file are mutually exclusive")
	}
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading replacement text: %w", err)
	}
	return string(data), nil
}

// reportFailure prints the rendered failure report and returns err so the
// command exits non-zero.
func reportFailure(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), feedback.Report(err))
	cmd.SilenceErrors = true
	return err
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
