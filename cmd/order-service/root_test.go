package main

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	sort.Strings(names)

	want := []string{"migrate", "prune", "serve"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("subcommands mismatch (-want +got):\n%s", diff)
	}
}

func TestPruneCommandHasThresholdFlag(t *testing.T) {
	root := newRootCommand()

	cmd, _, err := root.Find([]string{"prune"})
	if err != nil {
		t.Fatalf("find prune: %v", err)
	}
	flag := cmd.Flags().Lookup("threshold")
	if flag == nil {
		t.Fatal("expected --threshold flag on prune")
	}
	if flag.DefValue != "" {
		t.Fatalf("expected empty default so LOG_RETENTION_THRESHOLD applies, got %q", flag.DefValue)
	}
}

func TestServeAndRootAcceptMigrateFlag(t *testing.T) {
	root := newRootCommand()
	if root.Flags().Lookup("migrate") == nil {
		t.Fatal("expected --migrate on root command")
	}

	serve, _, err := root.Find([]string{"serve"})
	if err != nil {
		t.Fatalf("find serve: %v", err)
	}
	if serve.Flags().Lookup("migrate") == nil {
		t.Fatal("expected --migrate on serve command")
	}
}
