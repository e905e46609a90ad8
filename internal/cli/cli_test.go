package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/five82/kadai/internal/action"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func execute(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	code := Execute(context.Background(), args, Streams{
		In:  strings.NewReader(stdin),
		Out: &out,
		Err: &errOut,
	})
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

// newProject creates a project whose actions are the given files and points
// HOME and the log file into the test's temp dir.
func newProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	t.Setenv("HOME", filepath.Join(root, "home"))
	t.Setenv("KADAI_LOG", filepath.Join(root, "kadai.log"))
	t.Setenv("KADAI_LOG_LEVEL", "")

	actions := filepath.Join(root, ".kadai", "actions")
	for name, body := range files {
		path := filepath.Join(actions, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return root
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRoot_NoProjectNonInteractive(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KADAI_LOG", filepath.Join(dir, "kadai.log"))

	res := execute(t, "", "--cwd", dir)
	if res.code != 1 {
		t.Fatalf("code = %d, want 1", res.code)
	}
	if !strings.Contains(res.stderr, ".kadai") {
		t.Fatalf("stderr %q does not mention .kadai", res.stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, ".kadai")); !os.IsNotExist(err) {
		t.Fatalf(".kadai created without a terminal: %v", err)
	}
}

func TestList(t *testing.T) {
	root := newProject(t, map[string]string{
		"hello.sh":     "#!/bin/sh\n# kadai:name Hello\n# kadai:emoji 👋\necho hi\n",
		"db/seed.py":   "# kadai:description Seed the db\n# kadai:confirm true\n",
		"secret.sh":    "# kadai:hidden true\necho secret\n",
		"notes.txt":    "not an action",
		"_helpers.sh":  "echo skipped\n",
		".dotfile.sh":  "echo skipped\n",
		"tools/fmt.ts": "// kadai:name Format\n",
	})

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"visible only", []string{"list"}, []string{"db/seed", "hello", "tools/fmt"}},
		{"all", []string{"list", "--all"}, []string{"db/seed", "hello", "secret", "tools/fmt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, "", append(tt.args, "--cwd", root)...)
			if res.code != 0 {
				t.Fatalf("code = %d, stderr %q", res.code, res.stderr)
			}
			var entries []listEntry
			if err := json.Unmarshal([]byte(res.stdout), &entries); err != nil {
				t.Fatalf("decode: %v\n%s", err, res.stdout)
			}
			got := make(map[string]listEntry)
			for _, e := range entries {
				got[e.ID] = e
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ids = %v, want %v", keysOf(got), tt.want)
			}
			for _, id := range tt.want {
				if _, ok := got[id]; !ok {
					t.Fatalf("missing %q in %v", id, keysOf(got))
				}
			}
			seed := got["db/seed"]
			if !seed.Confirm || seed.Runtime != "python" || seed.Name != "Seed" || len(seed.Category) != 1 || seed.Category[0] != "db" {
				t.Fatalf("db/seed entry = %+v", seed)
			}
			if hello := got["hello"]; hello.Emoji != "👋" || hello.Category == nil {
				t.Fatalf("hello entry = %+v", hello)
			}
		})
	}
}

func keysOf(m map[string]listEntry) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestList_YAML(t *testing.T) {
	root := newProject(t, map[string]string{"hello.sh": "echo hi\n"})

	res := execute(t, "", "list", "--format", "yaml", "--cwd", root)
	if res.code != 0 {
		t.Fatalf("code = %d, stderr %q", res.code, res.stderr)
	}
	for _, want := range []string{"- id: hello", "name: Hello", "runtime: bash", "confirm: false"} {
		if !strings.Contains(res.stdout, want) {
			t.Fatalf("yaml output missing %q:\n%s", want, res.stdout)
		}
	}
}

func TestList_UnknownFormat(t *testing.T) {
	root := newProject(t, map[string]string{"hello.sh": "echo hi\n"})

	res := execute(t, "", "list", "--format", "xml", "--cwd", root)
	if res.code != 1 || !strings.Contains(res.stderr, "unsupported format") {
		t.Fatalf("got code %d stderr %q", res.code, res.stderr)
	}
}

func TestList_NoProject(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KADAI_LOG", filepath.Join(dir, "kadai.log"))

	res := execute(t, "", "list", "--cwd", dir)
	if res.code != 1 || !strings.Contains(res.stderr, ".kadai") {
		t.Fatalf("got code %d stderr %q", res.code, res.stderr)
	}
}

func TestRun(t *testing.T) {
	requireShell(t)
	root := newProject(t, map[string]string{
		"ok.sh":       "#!/bin/sh\necho \"hello $GREETING\"\n",
		"fail.sh":     "#!/bin/sh\necho oops >&2\nexit 3\n",
		"pwd.sh":      "#!/bin/sh\npwd\n",
		"danger.sh":   "#!/bin/sh\n# kadai:confirm true\necho boom\n",
		"nested/a.sh": "#!/bin/sh\necho nested\n",
	})
	config := "[env]\nGREETING = \"world\"\n"
	if err := os.WriteFile(filepath.Join(root, ".kadai", "config.toml"), []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	tests := []struct {
		name       string
		id         string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{"success with config env", "ok", 0, "hello world\n", ""},
		{"exit code propagates", "fail", 3, "", "oops\n"},
		{"nested id", "nested/a", 0, "nested\n", ""},
		{"confirm skipped without a terminal", "danger", 0, "boom\n", ""},
		{"unknown id", "missing", 1, "", "action not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, "", "run", tt.id, "--cwd", root)
			if res.code != tt.wantCode {
				t.Fatalf("code = %d, want %d (stderr %q)", res.code, tt.wantCode, res.stderr)
			}
			if res.stdout != tt.wantStdout {
				t.Fatalf("stdout = %q, want %q", res.stdout, tt.wantStdout)
			}
			if !strings.Contains(res.stderr, tt.wantStderr) {
				t.Fatalf("stderr = %q, want it to contain %q", res.stderr, tt.wantStderr)
			}
		})
	}

	t.Run("runs from the project root", func(t *testing.T) {
		res := execute(t, "", "run", "pwd", "--cwd", filepath.Join(root, ".kadai", "actions"))
		if res.code != 0 {
			t.Fatalf("code = %d (stderr %q)", res.code, res.stderr)
		}
		want, err := filepath.EvalSymlinks(root)
		if err != nil {
			t.Fatalf("EvalSymlinks: %v", err)
		}
		got, err := filepath.EvalSymlinks(strings.TrimSpace(res.stdout))
		if err != nil {
			t.Fatalf("EvalSymlinks(%q): %v", res.stdout, err)
		}
		if got != want {
			t.Fatalf("pwd = %q, want %q", got, want)
		}
	})
}

func TestRun_RequiresID(t *testing.T) {
	root := newProject(t, map[string]string{"hello.sh": "echo hi\n"})

	res := execute(t, "", "run", "--cwd", root)
	if res.code != 1 {
		t.Fatalf("code = %d, want 1", res.code)
	}
}

func TestLogs(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "kadai.log")
	t.Setenv("KADAI_LOG", logPath)
	lines := []string{
		"2026-03-01T10:00:00Z INFO kadai: starting",
		"2026-03-01T10:00:01Z DEBU kadai: local actions loaded",
		"2026-03-01T10:00:02Z WARN kadai: source refresh failed",
		"2026-03-01T10:00:03Z ERRO kadai: run failed",
		"  continuation of the error",
	}
	if err := os.WriteFile(logPath, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"all lines", []string{"logs"}, lines},
		{"tail", []string{"logs", "-n", "2"}, lines[3:]},
		{"level filter", []string{"logs", "--level", "warn"}, lines[2:]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := execute(t, "", tt.args...)
			if res.code != 0 {
				t.Fatalf("code = %d (stderr %q)", res.code, res.stderr)
			}
			want := strings.Join(tt.want, "\n") + "\n"
			if res.stdout != want {
				t.Fatalf("stdout = %q, want %q", res.stdout, want)
			}
		})
	}
}

func TestLogs_MissingFileAndBadLevel(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KADAI_LOG", filepath.Join(dir, "absent.log"))

	res := execute(t, "", "logs")
	if res.code != 0 || res.stdout != "" || !strings.Contains(res.stderr, "no log entries") {
		t.Fatalf("missing log: %+v", res)
	}
	res = execute(t, "", "logs", "--level", "loud")
	if res.code != 1 || !strings.Contains(res.stderr, "invalid --level") {
		t.Fatalf("bad level: %+v", res)
	}
}

func TestScaffold(t *testing.T) {
	dir := t.TempDir()

	projectDir, err := Scaffold(dir)
	if err != nil {
		t.Fatalf("Scaffold: %v", err)
	}
	if projectDir != filepath.Join(dir, ".kadai") {
		t.Fatalf("projectDir = %q", projectDir)
	}
	sample := filepath.Join(projectDir, "actions", "hello.sh")
	info, err := os.Stat(sample)
	if err != nil {
		t.Fatalf("stat sample: %v", err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Fatalf("sample not executable: %v", info.Mode())
	}

	if err := os.WriteFile(sample, []byte("echo mine\n"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Scaffold(dir); err != nil {
		t.Fatalf("second Scaffold: %v", err)
	}
	data, err := os.ReadFile(sample)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "echo mine\n" {
		t.Fatalf("existing sample overwritten: %q", data)
	}
}

func TestScaffold_SampleIsListed(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", filepath.Join(dir, "home"))
	t.Setenv("KADAI_LOG", filepath.Join(dir, "kadai.log"))
	if _, err := Scaffold(dir); err != nil {
		t.Fatalf("Scaffold: %v", err)
	}

	res := execute(t, "", "list", "--cwd", dir)
	if res.code != 0 {
		t.Fatalf("code = %d (stderr %q)", res.code, res.stderr)
	}
	if !strings.Contains(res.stdout, `"name": "Hello World"`) {
		t.Fatalf("sample not listed:\n%s", res.stdout)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}
	for _, tt := range tests {
		var prompt bytes.Buffer
		got := confirm(bufio.NewReader(strings.NewReader(tt.input)), &prompt, actionNamed("Nuke"))
		if got != tt.want {
			t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if prompt.String() != "Run Nuke? [y/N] " {
			t.Errorf("prompt = %q", prompt.String())
		}
	}
}

func actionNamed(name string) action.Action {
	return action.Action{ID: strings.ToLower(name), Meta: action.Meta{Name: name}}
}

func TestPrintExitLine(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	tests := []struct {
		code int
		want string
	}{
		{0, "✓ exit code 0\n"},
		{2, "✗ exit code 2\n"},
		{-1, "✗ exit code -1\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		printExitLine(&buf, tt.code)
		if buf.String() != tt.want {
			t.Errorf("printExitLine(%d) = %q, want %q", tt.code, buf.String(), tt.want)
		}
	}
}

func TestExitError(t *testing.T) {
	err := &ExitError{Code: 4}
	if err.Error() != "exit status 4" {
		t.Fatalf("Error() = %q", err.Error())
	}
}
