package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"dripl/internal/config"
	"dripl/internal/testsupport"
)

type cliEnv struct {
	cfg        *config.Config
	baseDir    string
	outputDir  string
	configPath string
}

func setupCLIEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliEnv {
	t.Helper()
	return newCLIEnv(t, testsupport.NewConfig(t, opts...))
}

// newCLIEnv writes cfg to disk and isolates HOME and the environment
// fallbacks so only the file drives the commands under test.
func newCLIEnv(t *testing.T, cfg *config.Config) *cliEnv {
	t.Helper()
	testsupport.ClearEnv(t)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	return &cliEnv{
		cfg:        cfg,
		baseDir:    base,
		outputDir:  cfg.Paths.OutputDir,
		configPath: testsupport.WriteConfigFile(t, cfg),
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Fatalf("expected output to contain %q\nOutput:\n%s", expected, output)
	}
}
