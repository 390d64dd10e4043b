//go:build !tinygo

package main

import (
	"bytes"
	"strings"
	"testing"

	"sparkrt/kernel"
)

func TestParseThread(t *testing.T) {
	tests := []struct {
		in   string
		want threadSpec
	}{
		{"a:3", threadSpec{name: "a", prio: 3, limit: kernel.DefaultStarvationLimit}},
		{"hog:1:0", threadSpec{name: "hog", prio: 1}},
		{"p:5:7:4", threadSpec{name: "p", prio: 5, limit: 7, sleep: 4}},
	}
	for _, tt := range tests {
		got, err := parseThread(tt.in)
		if err != nil {
			t.Fatalf("parseThread(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("parseThread(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}

	for _, in := range []string{"", "a", ":1", "a:256", "a:1:x", "a:1:2:3:4"} {
		if _, err := parseThread(in); err == nil {
			t.Fatalf("parseThread(%q) error = nil", in)
		}
	}
}

func traceLines(t *testing.T, opts options) []string {
	t.Helper()
	var buf bytes.Buffer
	if err := run(&buf, opts); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}

func TestRunShowsStarvationBoost(t *testing.T) {
	lines := traceLines(t, options{
		ticks: 5,
		idle:  true,
		threads: []threadSpec{
			{name: "hog", prio: 1},
			{name: "worker", prio: 50, limit: 3},
		},
	})
	want := []string{
		"policy priority-aging, 3 threads",
		"    0  hog",
		"    1  hog",
		"    2  hog",
		"    3  hog  boost=worker",
		"    4  worker",
		"    5  hog",
	}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Fatalf("trace =\n%s\nwant\n%s", strings.Join(lines, "\n"), strings.Join(want, "\n"))
	}
}

func TestRunSleepingThreads(t *testing.T) {
	lines := traceLines(t, options{
		ticks:   0,
		idle:    true,
		threads: []threadSpec{{name: "a", prio: 1, sleep: 2}, {name: "b", prio: 5}},
	})
	if got := lines[1]; got != "    0  a > b" {
		t.Fatalf("tick 0 = %q, want %q", got, "    0  a > b")
	}

	lines = traceLines(t, options{
		ticks:   0,
		threads: []threadSpec{{name: "a", prio: 1, sleep: 3}},
	})
	if got := lines[1]; got != "    0  a > (wfi)" {
		t.Fatalf("tick 0 = %q, want %q", got, "    0  a > (wfi)")
	}
}

func TestRunTable(t *testing.T) {
	lines := traceLines(t, options{
		policy:  "round-robin",
		ticks:   2,
		table:   true,
		threads: []threadSpec{{name: "a", prio: 1}},
	})
	if lines[0] != "policy round-robin, 1 threads" {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.Contains(lines[len(lines)-1], " a ") || !strings.HasSuffix(lines[len(lines)-1], " run") {
		t.Fatalf("last table row = %q", lines[len(lines)-1])
	}
}

func TestRunUnknownPolicy(t *testing.T) {
	var buf bytes.Buffer
	if err := run(&buf, options{policy: "lottery", threads: []threadSpec{{name: "a"}}}); err == nil {
		t.Fatal("run() error = nil for an unknown policy")
	}
}

func TestRunVerboseLogs(t *testing.T) {
	var buf bytes.Buffer
	err := run(&buf, options{
		ticks:   4,
		idle:    true,
		verbose: true,
		threads: []threadSpec{{name: "hog", prio: 1}, {name: "worker", prio: 50, limit: 3}},
	})
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"level=info",
		"src=kernel",
		"kernel: launch",
		`msg="starvation boost"`,
		"thread=worker",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "starvation boost"); n != 1 {
		t.Fatalf("starvation boost logged %d times, want 1", n)
	}
}
