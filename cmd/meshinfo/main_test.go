package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestUsageMarksUploadAsDryRun(t *testing.T) {
	for _, line := range strings.Split(usage, "\n") {
		if strings.Contains(line, "upload [-i index]") {
			if !strings.Contains(line, "Dry run") {
				t.Errorf("upload usage should say it is a dry run: %q", line)
			}
			return
		}
	}
	t.Fatal("upload command missing from usage")
}

func TestCmdUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tri.obj")
	obj := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"
	if err := os.WriteFile(path, []byte(obj), 0644); err != nil {
		t.Fatalf("failed to write obj: %v", err)
	}

	if err := cmdUpload([]string{path}); err != nil {
		t.Errorf("cmdUpload failed: %v", err)
	}
	if err := cmdUpload(nil); err == nil {
		t.Error("expected error without a file argument")
	}
}
