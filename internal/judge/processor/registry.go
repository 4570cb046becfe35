// Package processor maps user-facing processor ids to container images and
// command templates. Adding a language is one table row.
package processor

import (
	"fmt"
	"sort"

	appErr "codearena/pkg/errors"
)

// Processor is a named language+toolchain profile. Command templates are
// parameterized by the work directory and (for the run) a timeout in
// seconds; the final command must redirect stdin from input.txt, stdout to
// output.txt and record the wall time to time.txt.
type Processor struct {
	ID           string
	Image        string
	CodeFilename string
	NeedsCompile bool

	compileTpl func(workDir string) string
	finalTpl   func(workDir string, timeoutSec int) string
}

// CompileCmd renders the compile command; empty for interpreted languages.
func (p Processor) CompileCmd(workDir string) string {
	if p.compileTpl == nil {
		return ""
	}
	return p.compileTpl(workDir)
}

// FinalCmd renders the measured, timeout-bounded run command.
func (p Processor) FinalCmd(workDir string, timeoutSec int) string {
	return p.finalTpl(workDir, timeoutSec)
}

// timedCmd wraps a run command so that /usr/bin/time records the wall clock
// to time.txt and timeout enforces the hard cap (exit 124). Stdout goes to
// output.txt rather than the container log so it never interleaves with the
// wrapper's stderr.
func timedCmd(workDir string, timeoutSec int, run string) string {
	return fmt.Sprintf(
		"/usr/bin/time -f '%%e' -o %s/time.txt timeout %ds %s < %s/input.txt > %s/output.txt",
		workDir, timeoutSec, run, workDir, workDir,
	)
}

var registry = map[string]Processor{
	"c++17": {
		ID:           "c++17",
		Image:        "gcc:13",
		CodeFilename: "main.cpp",
		NeedsCompile: true,
		compileTpl: func(dir string) string {
			return fmt.Sprintf("g++ -std=c++17 -O2 -o %s/main %s/main.cpp", dir, dir)
		},
		finalTpl: func(dir string, timeoutSec int) string {
			return timedCmd(dir, timeoutSec, fmt.Sprintf("%s/main", dir))
		},
	},
	"c11": {
		ID:           "c11",
		Image:        "gcc:13",
		CodeFilename: "main.c",
		NeedsCompile: true,
		compileTpl: func(dir string) string {
			return fmt.Sprintf("gcc -std=c11 -O2 -o %s/main %s/main.c", dir, dir)
		},
		finalTpl: func(dir string, timeoutSec int) string {
			return timedCmd(dir, timeoutSec, fmt.Sprintf("%s/main", dir))
		},
	},
	"python3": {
		ID:           "python3",
		Image:        "python:3.11-slim",
		CodeFilename: "main.py",
		NeedsCompile: false,
		finalTpl: func(dir string, timeoutSec int) string {
			return timedCmd(dir, timeoutSec, fmt.Sprintf("python3 %s/main.py", dir))
		},
	},
}

// Lookup resolves a processor id.
func Lookup(id string) (Processor, error) {
	proc, ok := registry[id]
	if !ok {
		return Processor{}, appErr.Newf(appErr.LanguageNotSupported, "unsupported processor: %s", id)
	}
	return proc, nil
}

// IDs returns the supported processor ids in sorted order.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
