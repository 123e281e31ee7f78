package commands

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/livetemplate/mint/internal/store"
	"github.com/livetemplate/mint/internal/transform"
)

type transformOutput struct {
	Entry   string   `json:"entry"`
	Imports []string `json:"imports"`
	Code    string   `json:"code"`
}

// TransformCommand prints the code the preview evaluates for a source file.
// The file "-" reads standard input.
func TransformCommand(args []string) error {
	flagSet := flag.NewFlagSet("transform", flag.ContinueOnError)
	asJSON := flagSet.Bool("json", false, "Print entry, imports and code as JSON")
	flagSet.Usage = func() {
		fmt.Println("Usage: mint transform [options] [file]")
		fmt.Println()
		fmt.Println("Options:")
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	path := store.EntryFile
	if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	src, err := readSource(path)
	if err != nil {
		return err
	}
	return runTransform(os.Stdout, path, src, *asJSON)
}

func readSource(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func runTransform(w io.Writer, path, src string, asJSON bool) error {
	unit, err := transform.Transform(src)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if asJSON {
		imports := unit.Imports
		if imports == nil {
			imports = []string{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(transformOutput{Entry: unit.Entry, Imports: imports, Code: unit.Code})
	}

	fmt.Fprintf(w, "// entry: %s\n", unit.Entry)
	for _, imp := range unit.Imports {
		fmt.Fprintf(w, "// removed import: %s\n", imp)
	}
	_, err = io.WriteString(w, unit.Code)
	return err
}
