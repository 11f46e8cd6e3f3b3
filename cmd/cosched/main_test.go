package main

import (
	"bytes"
	"strings"
	"testing"
)

func runArgs(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := runMain(append([]string{"cosched"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunConcurrent(t *testing.T) {
	code, out, errOut := runArgs(t, "--unit", "1ms", "concurrent")
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", code, errOut)
	}
	if !strings.Contains(out, "[10 11 12 13]") || !strings.Contains(out, "Function executed in 0.0100s") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(errOut, "demo finished") {
		t.Fatalf("expected completion log, got:\n%s", errOut)
	}
}

func TestRunCountersJoinAll(t *testing.T) {
	code, out, errOut := runArgs(t, "counters", "--join-all")
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", code, errOut)
	}
	for _, want := range []string{"End of - count 1", "End of - count 2", "End of - count 3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestRunDeadlockExitsNonZero(t *testing.T) {
	code, _, errOut := runArgs(t, "deadlock")
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(errOut, "cosched: demo deadlock") || !strings.Contains(errOut, "deadlock") {
		t.Fatalf("expected deadlock message on stderr, got:\n%s", errOut)
	}
}

func TestRunAll(t *testing.T) {
	code, out, errOut := runArgs(t, "--unit", "1ms", "all")
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", code, errOut)
	}
	for _, name := range []string{"concurrent", "counters", "sequential", "wait"} {
		if !strings.Contains(out, "== "+name+" ==") {
			t.Fatalf("missing section %q in output:\n%s", name, out)
		}
	}
	if strings.Contains(out, "== deadlock ==") {
		t.Fatal("deadlock demo must not run under all")
	}
}

func TestRunMetrics(t *testing.T) {
	code, _, errOut := runArgs(t, "--metrics", "--verbose", "wait")
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", code, errOut)
	}
	for _, want := range []string{
		`cosched_tasks_spawned_total{demo="wait"} 3`,
		`cosched_runs_total{demo="wait"} 1`,
		"task_finished",
	} {
		if !strings.Contains(errOut, want) {
			t.Fatalf("missing %q in stderr:\n%s", want, errOut)
		}
	}
}

func TestRunRealtime(t *testing.T) {
	code, out, errOut := runArgs(t, "--realtime", "--unit", "2ms", "sequential")
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", code, errOut)
	}
	if !strings.Contains(out, "End of - count 3") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}
