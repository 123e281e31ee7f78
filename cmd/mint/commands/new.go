package commands

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/livetemplate/mint/internal/config"
	"github.com/livetemplate/mint/internal/platform"
	"github.com/livetemplate/mint/internal/store"
)

// NewCommand implements the new command.
func NewCommand(args []string) error {
	flagSet := flag.NewFlagSet("new", flag.ContinueOnError)
	platformName := flagSet.String("platform", string(platform.Default), "Initial platform profile: ios or android")

	flagSet.Usage = func() {
		fmt.Println("Usage: mint new [options] <project-name>")
		fmt.Println()
		fmt.Println("Create a new mint project from the starter app.")
		fmt.Println()
		fmt.Println("Options:")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return err
	}

	remainingArgs := flagSet.Args()
	if len(remainingArgs) < 1 {
		return fmt.Errorf("project name required\n\nUsage: mint new [options] <project-name>")
	}
	projectName := remainingArgs[0]

	p, err := platform.Parse(*platformName)
	if err != nil {
		return err
	}

	if projectName == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	if strings.Contains(projectName, " ") {
		return fmt.Errorf("project name cannot contain spaces")
	}
	if _, err := os.Stat(projectName); !os.IsNotExist(err) {
		return fmt.Errorf("directory '%s' already exists", projectName)
	}

	if err := createProject(projectName, p); err != nil {
		os.RemoveAll(projectName)
		return err
	}
	printSuccessMessage(projectName)
	return nil
}

// createProject writes the starter app and a mint.yaml into a new directory.
func createProject(projectName string, p platform.Profile) error {
	files, err := store.StarterFiles()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(projectName, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		outputPath := filepath.Join(projectName, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", name, err)
		}
		if err := os.WriteFile(outputPath, []byte(files[name]), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	cfg := config.DefaultConfig()
	cfg.Title = toTitle(projectName)
	cfg.Editor.Platform = string(p)
	cfg.Store.Project = projectName
	return cfg.Save(filepath.Join(projectName, "mint.yaml"))
}

// printSuccessMessage displays the project creation success message
func printSuccessMessage(projectName string) {
	fmt.Printf("✨ Created new project: %s\n\n", projectName)
	fmt.Printf("🚀 Next steps:\n")
	fmt.Printf("   cd %s\n", projectName)
	fmt.Printf("   mint serve\n\n")
	fmt.Printf("📱 The editor will be available at http://localhost:8080\n")
}

// toTitle converts a project name to a title case string
// Example: "my-app" -> "My App"
func toTitle(name string) string {
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")

	words := strings.Fields(name)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}
