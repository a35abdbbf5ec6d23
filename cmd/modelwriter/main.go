// Command modelwriter reads a single-root compiled-model file and writes
// the topologically-sorted node-list form the serving stack consumes.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vplabeler/core/pkg/vpio"
	"github.com/vplabeler/core/pkg/vpmodel"
)

const usage = `modelwriter - compile a single-root model into node-list form

USAGE:
    modelwriter --input_model_path=<path> --output_model_path=<path>

FLAGS:
    --input_model_path <path>    Single-root compiled-node model file (required)
    --output_model_path <path>   Destination for the node-list stream (required)
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("modelwriter", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }

	inputPath := fs.String("input_model_path", "", "single-root compiled-node model file")
	outputPath := fs.String("output_model_path", "", "destination for the node-list stream")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *inputPath == "" || *outputPath == "" {
		fs.Usage()
		return 2
	}

	if err := writeModel(*inputPath, *outputPath); err != nil {
		fmt.Fprintf(os.Stderr, "modelwriter: %v\n", err)
		return 1
	}

	return 0
}

func writeModel(inputPath, outputPath string) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	var root vpmodel.CompiledNode
	if err := vpio.ReadTextproto(in, &root); err != nil {
		return fmt.Errorf("read single-root model: %w", err)
	}

	// Validate the tree actually builds before committing it to disk: a
	// malformed tree should fail here, not at first Label call.
	if _, err := vpmodel.BuildFromRoot(root); err != nil {
		return fmt.Errorf("validate model: %w", err)
	}

	nodes := vpmodel.ToNodeListRepresentation(root)

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	entries := make([]any, len(nodes))
	for i, n := range nodes {
		entries[i] = n
	}

	if err := vpio.WriteNodeListStream(out, entries); err != nil {
		return fmt.Errorf("write node-list stream: %w", err)
	}

	return nil
}
