// Command bfvm runs Brainfuck programs under either the AOT specializer or
// the hot-loop interpreter, replacing the teacher's three separate
// main()s (optjit, simplejit, optinterp) with one binary.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/gobrainfuck/bfvm"
	"github.com/gobrainfuck/bfvm/internal/bench"
	"github.com/gobrainfuck/bfvm/internal/ir"
)

var (
	mode   string
	timing bool
	verify bool
)

func runCmd(cmd *cobra.Command, args []string) {
	filename := args[0]
	src, err := os.ReadFile(filename)
	if err != nil {
		log.Fatalf("reading %q: %v", filename, err)
	}

	if verify {
		p, err := ir.Compile(src)
		if err != nil {
			log.Fatalf("compile: %v", err)
		}
		if err := ir.Validate(p); err != nil {
			log.Fatalf("invalid program: %v", err)
		}
		fmt.Println("ok")
		return
	}

	if mode == "both" {
		res, err := bfvm.CheckEquivalence(src, os.Stdin)
		if err != nil {
			log.Fatal(err)
		}
		os.Stdout.Write(res.AOTOutput)
		if !res.Equal {
			log.Fatalf("aot/jit divergence: %s", res.Diff)
		}
		return
	}

	m, err := parseMode(mode)
	if err != nil {
		log.Fatal(err)
	}

	if !timing {
		if err := bfvm.Run(src, m, bfvm.RunOptions{In: os.Stdin, Out: os.Stdout}); err != nil {
			log.Fatal(err)
		}
		return
	}

	tracker := bench.Track(mode, os.Stdin, os.Stdout)
	if err := bfvm.Run(src, m, bfvm.RunOptions{In: tracker.In, Out: tracker.Out}); err != nil {
		log.Fatal(err)
	}
	fmt.Fprintln(os.Stderr, tracker.Finish())
}

func parseMode(m string) (bfvm.Mode, error) {
	switch m {
	case "aot":
		return bfvm.ModeAOT, nil
	case "jit":
		return bfvm.ModeJIT, nil
	default:
		return 0, fmt.Errorf("unknown mode %q (want aot, jit, or both)", m)
	}
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("bfvm: ")

	cmdRun := &cobra.Command{
		Use:   "run [bf file]",
		Short: "Run the given Brainfuck program",
		Args:  cobra.ExactArgs(1),
		Run:   runCmd,
	}
	cmdRun.Flags().StringVar(&mode, "mode", "aot", "execution mode: aot, jit, or both")
	cmdRun.Flags().BoolVar(&timing, "timing", false, "report elapsed time and byte counts to stderr")
	cmdRun.Flags().BoolVar(&verify, "verify", false, "check IR invariants without running the program")

	rootCmd := &cobra.Command{Use: "bfvm"}
	rootCmd.AddCommand(cmdRun)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
