package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/spf13/cobra"

	"github.com/go-pack/packrewrite"
	"github.com/go-pack/packrewrite/utils/trace"
)

// app carries the dependencies of the CLI, so that tests can run it
// against an in-memory filesystem and buffers.
type app struct {
	fs  billy.Filesystem
	in  io.Reader
	out io.Writer

	commitField string
	inputPath   string
	outputPath  string
	traceOn     bool
}

func newRootCmd(fs billy.Filesystem, in io.Reader, out io.Writer) *cobra.Command {
	a := &app{fs: fs, in: in, out: out}

	cmd := &cobra.Command{
		Use:   "packrewrite",
		Short: "Rewrite the commit field of commits inside a git push request",
		Long: `packrewrite reads a base64-encoded git push request, replaces the
"Commit: GitHub <noreply@github.com>" field of every commit object in its
packfile with the given value, recomputes the packfile checksum and prints
the rewritten request, base64-encoded.

The ref-update metadata preceding the packfile is passed through untouched.`,
		SilenceUsage: true,
		RunE:         a.run,
	}

	cmd.Flags().StringVarP(&a.commitField, "commit-field", "c", "",
		`replacement commit field, e.g. "Alice <alice@example.com>"`)
	cmd.Flags().StringVarP(&a.inputPath, "input", "i", "",
		"read the push request from this file instead of stdin")
	cmd.Flags().StringVarP(&a.outputPath, "output", "o", "",
		"write the rewritten request to this file instead of stdout")
	cmd.Flags().BoolVar(&a.traceOn, "trace", false,
		"log decoding and encoding steps to stderr")
	cmd.MarkFlagRequired("commit-field") // nolint: errcheck

	return cmd
}

func (a *app) run(cmd *cobra.Command, args []string) error {
	if a.traceOn {
		trace.SetTarget(trace.General | trace.Pack)
	}

	request, err := a.readRequest()
	if err != nil {
		return err
	}

	res, err := packrewrite.Transform(string(request), a.commitField)
	if err != nil {
		return err
	}

	if res.Rewritten == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(),
			"warning: no commit object contained the GitHub commit field\n")
	}

	return a.writeRequest(res.Request)
}

func (a *app) readRequest() ([]byte, error) {
	if a.inputPath == "" {
		return io.ReadAll(a.in)
	}

	path, err := filepath.Abs(a.inputPath)
	if err != nil {
		return nil, err
	}

	return util.ReadFile(a.fs, path)
}

func (a *app) writeRequest(request string) error {
	if a.outputPath == "" {
		_, err := fmt.Fprintln(a.out, request)
		return err
	}

	path, err := filepath.Abs(a.outputPath)
	if err != nil {
		return err
	}

	return util.WriteFile(a.fs, path, []byte(request), 0o644)
}
