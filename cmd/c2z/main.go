package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/anvil-lang/c2z/internal/frontend"
	"github.com/anvil-lang/c2z/internal/target"
	"github.com/anvil-lang/c2z/internal/xlate"
)

var version = "0.1.0"

var (
	resourcesPath string
	dumpTarget    bool
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "c2z [fixture]",
		Short: "c2z translates a C translation unit fixture to Target source",
		Long: `c2z drives the translation session (internal/xlate) over a YAML
translation-unit fixture and prints the resulting Target declarations.
It does not parse C itself — see internal/frontend for the fixture
contract a real Clang front end would satisfy instead.`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return doTranslate(args[0], out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().StringVar(&resourcesPath, "resources", "resources/builtins.yaml", "path to the primitive/reserved-word resource file")
	rootCmd.Flags().BoolVar(&dumpTarget, "dump-target", true, "print the translated Target tree to stdout")

	return rootCmd
}

// doTranslate loads fixture as a translation unit, runs it through
// internal/xlate, and reports diagnostics and the translated tree the
// way ralph-cc's do<Pass> helpers report an intermediate representation.
func doTranslate(fixture string, out, errOut io.Writer) error {
	unit, err := frontend.LoadFixture(fixture)
	if err != nil {
		fmt.Fprintf(errOut, "c2z: error loading %s: %v\n", fixture, err)
		return err
	}

	tree, errsOut, err := xlate.Translate(xlate.Config{ResourcesPath: resourcesPath, Diag: errOut}, unit)
	if err != nil {
		fmt.Fprintf(errOut, "c2z: error translating %s: %v\n", fixture, err)
		return err
	}

	for _, e := range errsOut {
		fmt.Fprintf(errOut, "c2z: %s\n", e)
	}

	if dumpTarget {
		target.NewPrinter(out).PrintTree(tree)
	}
	return nil
}
