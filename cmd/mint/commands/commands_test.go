package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/livetemplate/mint/internal/config"
	"github.com/livetemplate/mint/internal/platform"
	"github.com/livetemplate/mint/internal/sandbox"
)

const counterApp = `import React, { useState } from 'react';
import { View, Text } from 'react-native';

export default function Counter() {
  const [n] = useState(0);
  return <View><Text>{n}</Text></View>;
}
`

func TestNewCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	if err := NewCommand([]string{"--platform", "android", "my-app"}); err != nil {
		t.Fatalf("NewCommand failed: %v", err)
	}

	for _, name := range []string{"App.js", "app.json", "package.json", "components/Button.js", "screens/HomeScreen.js", "mint.yaml"} {
		if _, err := os.Stat(filepath.Join("my-app", name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}

	cfg, err := config.Load(filepath.Join("my-app", "mint.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Title != "My App" {
		t.Errorf("Title = %q, want My App", cfg.Title)
	}
	if cfg.Editor.GetPlatform() != platform.Android {
		t.Errorf("platform = %s, want android", cfg.Editor.GetPlatform())
	}
	if cfg.Store.Project != "my-app" {
		t.Errorf("project = %q, want my-app", cfg.Store.Project)
	}
}

func TestNewCommandErrors(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := os.Mkdir("taken", 0755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no name", nil, "project name required"},
		{"spaces", []string{"my app"}, "cannot contain spaces"},
		{"exists", []string{"taken"}, "already exists"},
		{"bad platform", []string{"--platform", "web", "x"}, "unknown platform"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewCommand(tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("NewCommand(%v) error = %v, want %q", tt.args, err, tt.want)
			}
		})
	}
}

func TestToTitle(t *testing.T) {
	tests := map[string]string{
		"my-app":      "My App",
		"snake_case":  "Snake Case",
		"ALLCAPS":     "Allcaps",
		"two--dashes": "Two Dashes",
	}
	for in, want := range tests {
		if got := toTitle(in); got != want {
			t.Errorf("toTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseServeFlags(t *testing.T) {
	opts, err := parseServeFlags([]string{"./app", "--port", "3000", "--host", "0.0.0.0", "--no-watch", "-d", "--no-snack", "-c", "x.yaml"})
	if err != nil {
		t.Fatalf("parseServeFlags failed: %v", err)
	}
	if opts.dir != "./app" || opts.port != "3000" || opts.host != "0.0.0.0" || opts.configPath != "x.yaml" {
		t.Errorf("unexpected options: %+v", opts)
	}
	if opts.watch == nil || *opts.watch {
		t.Error("expected watch to be disabled")
	}
	if !opts.debug || !opts.noSnack || opts.noStore {
		t.Errorf("unexpected switches: %+v", opts)
	}

	if _, err := parseServeFlags([]string{"--port"}); err == nil {
		t.Error("expected error for --port without value")
	}
	if _, err := parseServeFlags([]string{"--bogus"}); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestLoadServeConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mint.yaml"), []byte("title: Demo\nserver:\n  port: 9000\n"), 0644); err != nil {
		t.Fatal(err)
	}

	watch := false
	cfg, err := loadServeConfig(dir, serveOptions{port: "9100", watch: &watch, noSnack: true})
	if err != nil {
		t.Fatalf("loadServeConfig failed: %v", err)
	}
	if cfg.Title != "Demo" || cfg.Server.Port != 9100 {
		t.Errorf("unexpected config: title=%q port=%d", cfg.Title, cfg.Server.Port)
	}
	if cfg.Features.Watch || cfg.Snack.Enabled {
		t.Error("CLI overrides not applied")
	}

	if _, err := loadServeConfig(dir, serveOptions{port: "http"}); err == nil {
		t.Error("expected error for invalid port")
	}
}

func TestRunTransform(t *testing.T) {
	var buf bytes.Buffer
	if err := runTransform(&buf, "App.js", counterApp, false); err != nil {
		t.Fatalf("runTransform failed: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "// entry: Counter\n") {
		t.Errorf("missing entry header:\n%s", out)
	}
	if !strings.Contains(out, "// removed import: react-native") {
		t.Errorf("missing import note:\n%s", out)
	}
	if strings.Contains(out, "export default") {
		t.Errorf("export not rewritten:\n%s", out)
	}

	buf.Reset()
	if err := runTransform(&buf, "App.js", counterApp, true); err != nil {
		t.Fatalf("runTransform json failed: %v", err)
	}
	var got transformOutput
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Entry != "Counter" || len(got.Imports) != 2 {
		t.Errorf("unexpected output: %+v", got)
	}
}

func TestRunTransformError(t *testing.T) {
	err := runTransform(&bytes.Buffer{}, "Broken.js", "function App() {\n  return (\n}", false)
	if err == nil || !strings.HasPrefix(err.Error(), "Broken.js: line 3") {
		t.Errorf("unexpected error: %v", err)
	}
}

type fakeRunner struct {
	result *sandbox.Result
	err    error
	doc    *sandbox.Document
}

func (f *fakeRunner) Run(ctx context.Context, doc *sandbox.Document) (*sandbox.Result, error) {
	f.doc = doc
	return f.result, f.err
}

func newBuilder(t *testing.T) *sandbox.Builder {
	t.Helper()
	b, err := sandbox.NewBuilder(sandbox.DefaultOptions())
	if err != nil {
		t.Fatalf("NewBuilder failed: %v", err)
	}
	return b
}

func TestRunCheck(t *testing.T) {
	b := newBuilder(t)

	t.Run("ready", func(t *testing.T) {
		runner := &fakeRunner{result: &sandbox.Result{
			Messages: []sandbox.Message{{Type: sandbox.TypeReady, Generation: 1}},
			Dialogs:  []string{"Hello"},
		}}
		var buf bytes.Buffer
		if err := runCheck(context.Background(), &buf, runner, b, "App.js", counterApp, platform.Android, true); err != nil {
			t.Fatalf("runCheck failed: %v", err)
		}
		if runner.doc == nil || runner.doc.Profile != platform.Android || runner.doc.Entry != "Counter" {
			t.Errorf("unexpected document: %+v", runner.doc)
		}
		if !strings.Contains(buf.String(), "dialog: Hello") || !strings.Contains(buf.String(), "rendered Counter on android") {
			t.Errorf("unexpected output:\n%s", buf.String())
		}
	})

	t.Run("runtime error", func(t *testing.T) {
		runner := &fakeRunner{result: &sandbox.Result{
			Messages: []sandbox.Message{{Type: sandbox.TypeError, Generation: 1, Message: "Foo is not defined"}},
		}}
		err := runCheck(context.Background(), &bytes.Buffer{}, runner, b, "App.js", counterApp, platform.IOS, false)
		var failed *CheckFailedError
		if !errors.As(err, &failed) || failed.Message.Message != "Foo is not defined" {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("error after ready", func(t *testing.T) {
		runner := &fakeRunner{result: &sandbox.Result{
			Messages: []sandbox.Message{
				{Type: sandbox.TypeReady, Generation: 1},
				{Type: sandbox.TypeError, Generation: 1, Message: "late"},
			},
		}}
		err := runCheck(context.Background(), &bytes.Buffer{}, runner, b, "App.js", counterApp, platform.IOS, false)
		if err == nil || !strings.Contains(err.Error(), "late") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("no outcome", func(t *testing.T) {
		runner := &fakeRunner{result: &sandbox.Result{}}
		err := runCheck(context.Background(), &bytes.Buffer{}, runner, b, "App.js", counterApp, platform.IOS, false)
		if !errors.Is(err, sandbox.ErrNoOutcome) {
			t.Errorf("expected ErrNoOutcome, got %v", err)
		}
	})

	t.Run("syntax error skips the browser", func(t *testing.T) {
		runner := &fakeRunner{}
		err := runCheck(context.Background(), &bytes.Buffer{}, runner, b, "App.js", "function App() {\n  return (\n}", platform.IOS, false)
		var failed *CheckFailedError
		if !errors.As(err, &failed) || failed.Message.Line != 3 {
			t.Errorf("unexpected error: %v", err)
		}
		if runner.doc != nil {
			t.Error("runner should not be called for a syntax error")
		}
	})
}
