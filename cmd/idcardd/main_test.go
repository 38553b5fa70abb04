package main

import "testing"

func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := newRootCmd()
	if cmd.Use != "idcardd" {
		t.Errorf("expected use 'idcardd', got %q", cmd.Use)
	}
	for _, name := range []string{"config", "addr", "no-store"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
	if err := cmd.Args(cmd, []string{"extra"}); err == nil {
		t.Error("expected positional arguments to be rejected")
	}
}
