package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// testEnv isolates a command run from the user's configuration and data.
type testEnv struct {
	dir        string
	configPath string
	modelPath  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	configPath := filepath.Join(dir, "urlscan.yaml")
	if err := os.WriteFile(configPath, []byte("scan:\n  batchSize: 4\n"), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return &testEnv{
		dir:        dir,
		configPath: configPath,
		modelPath:  filepath.Join(dir, "model.json"),
	}
}

// run executes the root command with args and returns stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))

	err := cmd.Execute()
	return out.String(), err
}
