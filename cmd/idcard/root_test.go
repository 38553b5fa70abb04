package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "idcard" {
			t.Errorf("expected use 'idcard', got %q", cmd.Use)
		}
	})

	t.Run("has persistent flags", func(t *testing.T) {
		t.Parallel()
		for name, short := range map[string]string{"config": "c", "verbose": "v"} {
			flag := cmd.PersistentFlags().Lookup(name)
			if flag == nil {
				t.Fatalf("expected %s flag", name)
			}
			if flag.Shorthand != short {
				t.Errorf("%s: expected shorthand %q, got %q", name, short, flag.Shorthand)
			}
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		want := map[string]bool{
			"process": false, "batch": false, "watch": false,
			"export": false, "probe": false, "dbhealth": false, "version": false,
		}
		for _, sub := range cmd.Commands() {
			want[sub.Name()] = true
		}
		for name, found := range want {
			if !found {
				t.Errorf("expected %s subcommand", name)
			}
		}
	})
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	cmd := NewVersionCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)
	if !strings.HasPrefix(out.String(), "idcard version ") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestProcessCmdRequiresArgs(t *testing.T) {
	t.Parallel()

	cmd := NewProcessCmd()
	if err := cmd.Args(cmd, nil); err == nil {
		t.Error("expected an error without image arguments")
	}
	for _, name := range []string{"lang", "mode", "techniques", "save", "heic", "compact"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
}

func TestBatchID(t *testing.T) {
	t.Parallel()

	root := filepath.Join("scans", "2026")
	got := batchID(root, filepath.Join(root, "north", "card.jpg"))
	if got != "north/card.jpg" {
		t.Errorf("batchID = %q", got)
	}
}

func TestDayFlag(t *testing.T) {
	t.Parallel()

	cmd := NewExportCmd()
	if err := cmd.Flags().Set("from", "2026-03-01"); err != nil {
		t.Fatal(err)
	}
	from, err := dayFlag(cmd, "from")
	if err != nil || from == nil || from.Day() != 1 || from.Month() != 3 {
		t.Fatalf("from = %v, err = %v", from, err)
	}
	to, err := dayFlag(cmd, "to")
	if err != nil || to != nil {
		t.Fatalf("unset flag: to = %v, err = %v", to, err)
	}
	if err := cmd.Flags().Set("to", "03/01/2026"); err != nil {
		t.Fatal(err)
	}
	if _, err := dayFlag(cmd, "to"); err == nil {
		t.Error("expected an error for a non-ISO day")
	}
}

// writeConfig points the database at a fresh sqlite file.
func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := "database:\n  driver: sqlite\n  dsn: " + filepath.ToSlash(filepath.Join(dir, "idcard.db")) + "\nlog:\n  level: error\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	return cfgPath, dir
}

func TestDBHealthCmd(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"dbhealth", "-c", cfgPath})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("dbhealth: %v", err)
	}
	if !strings.Contains(out.String(), "DB health: OK (sqlite, 0 documents)") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestExportCmd(t *testing.T) {
	cfgPath, dir := writeConfig(t)
	xlsx := filepath.Join(dir, "out", "cards.xlsx")

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"export", "-c", cfgPath, "-o", xlsx})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("export: %v", err)
	}
	st, err := os.Stat(xlsx)
	if err != nil || st.Size() == 0 {
		t.Fatalf("spreadsheet not written: %v", err)
	}
}

func TestMissingConfigFile(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"dbhealth", "-c", filepath.Join(t.TempDir(), "absent.yaml")})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error for an explicit missing config file")
	}
}
