// Command mint serves a browser editor with a live mobile preview for
// React Native style components.
package main

import (
	"fmt"
	"os"

	"github.com/livetemplate/mint/cmd/mint/commands"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "serve":
		err = commands.ServeCommand(args)
	case "check":
		err = commands.CheckCommand(args)
	case "transform":
		err = commands.TransformCommand(args)
	case "new":
		err = commands.NewCommand(args)
	case "version":
		fmt.Printf("mint version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("mint - React Native preview in the browser")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mint serve [directory]          Start the editor and preview server")
	fmt.Println("  mint check [file]               Run a component headlessly and report errors")
	fmt.Println("  mint transform [file]           Print the code the preview evaluates")
	fmt.Println("  mint new <name>                 Create a project from the starter app")
	fmt.Println("  mint version                    Show version")
	fmt.Println("  mint help                       Show this help")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  mint serve                      # Serve the current directory")
	fmt.Println("  mint serve ./app --port 3000    # Serve ./app on port 3000")
	fmt.Println("  mint serve --no-watch           # Ignore edits made outside the editor")
	fmt.Println("  mint check App.js --platform android")
	fmt.Println("  mint check --remote http://localhost:9222")
	fmt.Println("  mint transform App.js --json")
	fmt.Println("  mint new my-app")
	fmt.Println()
	fmt.Println("Documentation: https://github.com/livetemplate/mint")
}
