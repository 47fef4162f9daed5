package main

import (
	"testing"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "urlscan" {
			t.Errorf("expected use 'urlscan', got %q", cmd.Use)
		}
	})

	t.Run("has descriptions", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" || cmd.Long == "" {
			t.Error("expected non-empty short and long description")
		}
	})

	t.Run("has version", func(t *testing.T) {
		t.Parallel()
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has global flags", func(t *testing.T) {
		t.Parallel()

		testCases := []struct {
			name      string
			shorthand string
			def       string
		}{
			{"verbose", "v", "false"},
			{"config", "c", ""},
			{"log-format", "", "text"},
		}
		for _, tc := range testCases {
			flag := cmd.PersistentFlags().Lookup(tc.name)
			if flag == nil {
				t.Errorf("expected %s flag", tc.name)
				continue
			}
			if flag.Shorthand != tc.shorthand {
				t.Errorf("%s: expected shorthand %q, got %q", tc.name, tc.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tc.def {
				t.Errorf("%s: expected default %q, got %q", tc.name, tc.def, flag.DefValue)
			}
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()

		want := map[string]bool{
			"scan": false, "serve": false, "train": false,
			"history": false, "init": false, "version": false,
		}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Name()]; ok {
				want[sub.Name()] = true
			}
		}
		for name, found := range want {
			if !found {
				t.Errorf("expected %s subcommand", name)
			}
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage {
			t.Error("expected SilenceUsage to be true")
		}
		if !cmd.SilenceErrors {
			t.Error("expected SilenceErrors to be true")
		}
	})
}

// TestLoadConfigMissingFile tests that an explicit config path must exist.
func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.configPath = env.dir + "/missing.yaml"

	if _, err := env.run(t, "scan", "--no-ml", "example.com"); err == nil {
		t.Error("expected error for missing config file")
	}
}

// TestLoadConfigAppliesFile tests that file values reach the command and
// flags only override what the user set.
func TestLoadConfigAppliesFile(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	scanCmd, _, err := NewRootCmd().Find([]string{"scan"})
	if err != nil {
		t.Fatalf("failed to find scan command: %v", err)
	}
	if err := scanCmd.ParseFlags([]string{"--config", env.configPath, "--no-ml"}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	cfg, err := buildScanConfig(scanCmd, []string{"example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BatchSize != 4 {
		t.Errorf("expected batch size 4 from the file, got %d", cfg.BatchSize)
	}
	if !cfg.DisableClassifier {
		t.Error("expected --no-ml to disable the classifier")
	}
	if len(cfg.Targets) != 1 || cfg.Targets[0] != "https://example.com" {
		t.Errorf("expected normalized target, got %v", cfg.Targets)
	}
}
