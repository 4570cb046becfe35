package processor

import (
	"strings"
	"testing"

	appErr "codearena/pkg/errors"
)

func TestLookupKnownProcessors(t *testing.T) {
	for _, id := range []string{"c++17", "c11", "python3"} {
		proc, err := Lookup(id)
		if err != nil {
			t.Fatalf("Lookup(%q) failed: %v", id, err)
		}
		if proc.ID != id {
			t.Errorf("Lookup(%q) returned id %q", id, proc.ID)
		}
		if proc.Image == "" || proc.CodeFilename == "" {
			t.Errorf("Lookup(%q) returned incomplete processor: %+v", id, proc)
		}
	}
}

func TestLookupUnknownProcessor(t *testing.T) {
	_, err := Lookup("brainfuck")
	if err == nil {
		t.Fatal("expected error for unknown processor")
	}
	if appErr.GetCode(err) != appErr.LanguageNotSupported {
		t.Errorf("got code %d, want LanguageNotSupported", appErr.GetCode(err))
	}
}

func TestCompileCmd(t *testing.T) {
	cpp, _ := Lookup("c++17")
	if cmd := cpp.CompileCmd("/work"); !strings.Contains(cmd, "g++ -std=c++17") {
		t.Errorf("unexpected c++17 compile command: %q", cmd)
	}
	py, _ := Lookup("python3")
	if cmd := py.CompileCmd("/work"); cmd != "" {
		t.Errorf("python3 should not compile, got %q", cmd)
	}
}

func TestFinalCmdShape(t *testing.T) {
	for _, id := range IDs() {
		proc, _ := Lookup(id)
		cmd := proc.FinalCmd("/work", 10)
		for _, want := range []string{"timeout 10s", "/usr/bin/time", "/work/input.txt", "/work/output.txt", "/work/time.txt"} {
			if !strings.Contains(cmd, want) {
				t.Errorf("%s final command missing %q: %q", id, want, cmd)
			}
		}
	}
}

func TestIDsSorted(t *testing.T) {
	ids := IDs()
	if len(ids) != 3 {
		t.Fatalf("got %d ids, want 3", len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Errorf("ids not sorted: %v", ids)
		}
	}
}
