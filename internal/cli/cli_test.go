package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	calerrors "github.com/AndreyAkinshin/calcheck/internal/errors"
)

const passingSuite = `
cases:
  - {name: a, kind: compare, x: [1, 2], xref: [1, 2]}
  - {name: b, kind: confirm, value: true}
`

const failingSuite = `
cases:
  - {name: a, kind: compare, x: [1, 2], xref: [1, 3]}
  - {name: b, kind: confirm, value: true}
`

// workdir switches to an empty directory so no calcheck.yaml is picked up
// and returns its path.
func workdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeSuite(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(args ...string) (code int, stdout, stderr string) {
	var out, errb bytes.Buffer
	code = run(args, &out, &errb)
	return code, out.String(), errb.String()
}

func TestRootCmd_HasExpectedSubcommands(t *testing.T) {
	root := (&app{}).rootCmd()

	for _, name := range []string{"run", "validate", "policies", "schema", "version"} {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		assert.True(t, found, "expected subcommand %q", name)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
	assert.NotNil(t, root.PersistentFlags().Lookup("check-eps"))
}

func TestVersion(t *testing.T) {
	workdir(t)

	code, stdout, _ := execute("version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "calcheck dev\n", stdout)

	code, stdout, _ = execute("--version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "calcheck dev\n", stdout)
}

func TestRun_Passing(t *testing.T) {
	dir := workdir(t)
	path := writeSuite(t, dir, "pass.yaml", passingSuite)

	code, stdout, _ := execute("run", "--color=never", path)

	assert.Equal(t, calerrors.ExitSuccess, code)
	assert.Contains(t, stdout, "pass/a: OK")
	assert.Contains(t, stdout, "pass/b: OK")
	assert.Contains(t, stdout, "All tests passed: 2 total")
}

func TestRun_Failing(t *testing.T) {
	dir := workdir(t)
	path := writeSuite(t, dir, "fail.yaml", failingSuite)

	code, stdout, _ := execute("run", "--color=never", path)

	assert.Equal(t, calerrors.ExitRuntimeError, code)
	assert.Contains(t, stdout, "fail/a: FAILED")
	assert.Contains(t, stdout, "Some tests failed: 1 out of 2")
}

func TestRun_FlagPolicyApplies(t *testing.T) {
	dir := workdir(t)
	path := writeSuite(t, dir, "fail.yaml", failingSuite)

	code, stdout, _ := execute("run", "--color=never", "--check-eps=1", path)

	assert.Equal(t, calerrors.ExitSuccess, code, stdout)
}

func TestRun_ConfigFilePolicyApplies(t *testing.T) {
	dir := workdir(t)
	path := writeSuite(t, dir, "fail.yaml", failingSuite)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "calcheck.yaml"), []byte("color: never\ncheck:\n  eps: 1\n"), 0o644))

	code, stdout, _ := execute("run", path)

	assert.Equal(t, calerrors.ExitSuccess, code, stdout)
}

func TestRun_Quiet(t *testing.T) {
	dir := workdir(t)
	path := writeSuite(t, dir, "fail.yaml", failingSuite)

	_, stdout, _ := execute("run", "-q", "--color=never", path)

	assert.NotContains(t, stdout, "fail/b: OK")
	assert.Contains(t, stdout, "fail/a: FAILED")
	assert.Contains(t, stdout, "Some tests failed")
}

func TestRun_Directory(t *testing.T) {
	dir := workdir(t)
	suites := filepath.Join(dir, "suites")
	require.NoError(t, os.Mkdir(suites, 0o755))
	writeSuite(t, suites, "one.yaml", passingSuite)
	writeSuite(t, suites, "two.yaml", passingSuite)

	code, stdout, _ := execute("run", "--color=never", suites)

	assert.Equal(t, calerrors.ExitSuccess, code)
	assert.Contains(t, stdout, "one/a: OK")
	assert.Contains(t, stdout, "two/b: OK")
	assert.Contains(t, stdout, "All tests passed: 4 total")
}

func TestRun_NoTests(t *testing.T) {
	dir := workdir(t)
	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.Mkdir(empty, 0o755))

	code, stdout, _ := execute("run", "--color=never", empty)

	assert.Equal(t, calerrors.ExitSuccess, code)
	assert.Contains(t, stdout, "No tests defined")
}

func TestRun_MissingSolverIsFailedCheck(t *testing.T) {
	dir := workdir(t)
	path := writeSuite(t, dir, "solve.yaml", `
cases:
  - name: fit
    kind: solve
    request:
      intrinsics: [[1000, 1000, 320, 240]]
      frames_rt_toref: [[0, 0, 0, 0, 0, 1]]
      observations: [[10, 20, 1]]
      indices_frame_camintrinsics_camextrinsics: [[0, 0, -1]]
      lensmodel: LENSMODEL_PINHOLE
      imagersizes: [[640, 480]]
      calibration_object_spacing: 0.1
      calibration_object_width_n: 1
      calibration_object_height_n: 1
    expect:
      x: {value: [0]}
  - {name: after, kind: confirm, value: true}
`)

	code, stdout, _ := execute("run", "--color=never", "--solver-command=calcheck-no-such-solver", path)

	assert.Equal(t, calerrors.ExitRuntimeError, code)
	assert.Contains(t, stdout, "solve/fit: FAILED")
	assert.Contains(t, stdout, "solve/after: OK")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args func(dir string) []string
		code int
	}{
		{"no arguments", func(string) []string { return []string{"run"} }, calerrors.ExitConfigError},
		{"unknown command", func(string) []string { return []string{"frobnicate"} }, calerrors.ExitConfigError},
		{"unknown flag", func(string) []string { return []string{"run", "--frobnicate", "x"} }, calerrors.ExitConfigError},
		{"missing suite", func(dir string) []string {
			return []string{"run", filepath.Join(dir, "missing.yaml")}
		}, calerrors.ExitRuntimeError},
		{"invalid suite", func(dir string) []string {
			return []string{"run", writeSuiteRaw(dir, "bad.yaml", "cases:\n  - {name: a, kind: compare}\n")}
		}, calerrors.ExitConfigError},
		{"invalid config", func(dir string) []string {
			return []string{"run", "--log-level=loud", writeSuiteRaw(dir, "ok.yaml", passingSuite)}
		}, calerrors.ExitConfigError},
		{"missing config file", func(dir string) []string {
			return []string{"run", "--config", filepath.Join(dir, "nope.yaml"), writeSuiteRaw(dir, "ok.yaml", passingSuite)}
		}, calerrors.ExitConfigError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := workdir(t)

			code, _, stderr := execute(tt.args(dir)...)

			assert.Equal(t, tt.code, code)
			assert.Contains(t, stderr, "calcheck: ")
		})
	}
}

func writeSuiteRaw(dir, name, content string) string {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		panic(err)
	}
	return path
}

func TestValidate(t *testing.T) {
	dir := workdir(t)
	path := writeSuite(t, dir, "pass.yaml", passingSuite)

	code, stdout, _ := execute("validate", "--color=never", path)

	assert.Equal(t, calerrors.ExitSuccess, code)
	assert.Contains(t, stdout, path+": OK: 2 cases")
}

func TestPolicies(t *testing.T) {
	workdir(t)

	code, stdout, _ := execute("policies", "--color=never", "--check-relative")

	assert.Equal(t, calerrors.ExitSuccess, code)
	assert.Contains(t, stdout, "Absolute")
	assert.Contains(t, stdout, "Worstcase")
	assert.Contains(t, stdout, "Percentile")
	assert.Contains(t, stdout, "default: relative RMS <= 1e-06")
}

func TestSchema(t *testing.T) {
	workdir(t)

	code, stdout, _ := execute("schema")

	assert.Equal(t, calerrors.ExitSuccess, code)
	assert.Contains(t, stdout, `"$schema"`)
	assert.Contains(t, stdout, `"cases"`)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"config", calerrors.Config("bad"), calerrors.ExitConfigError},
		{"environment", calerrors.Environment("no solver", nil), calerrors.ExitEnvironmentError},
		{"runtime", calerrors.New("boom"), calerrors.ExitRuntimeError},
		{"usage", errors.New(`unknown flag: --nope`), calerrors.ExitConfigError},
		{"other", errors.New("something else"), calerrors.ExitRuntimeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestRun_SuiteHeader(t *testing.T) {
	dir := workdir(t)
	path := writeSuite(t, dir, "pass.yaml", "description: smoke\n"+passingSuite)

	_, stdout, _ := execute("run", "--color=never", path)
	assert.Contains(t, stdout, "== pass (2 cases): smoke\n")

	_, stdout, _ = execute("run", "-q", "--color=never", path)
	assert.NotContains(t, stdout, "== pass")
}

func TestRun_WarnsWhenSolveCasesHaveNoSolver(t *testing.T) {
	dir := workdir(t)
	path := writeSuite(t, dir, "solve.yaml", `
cases:
  - name: fit
    kind: solve
    request:
      intrinsics: [[1000, 1000, 320, 240]]
      frames_rt_toref: [[0, 0, 0, 0, 0, 1]]
      observations: [[10, 20, 1]]
      indices_frame_camintrinsics_camextrinsics: [[0, 0, -1]]
      calibration_object_width_n: 1
      calibration_object_height_n: 1
    expect:
      x: {value: [0]}
`)

	code, stdout, stderr := execute("run", "--color=never", path)

	assert.Equal(t, calerrors.ExitRuntimeError, code)
	assert.Contains(t, stderr, "warning: 1 solve case(s) will fail: no solver configured")
	assert.Contains(t, stdout, "solve/fit: FAILED")

	_, _, stderr = execute("run", "--color=never", writeSuite(t, dir, "pass.yaml", passingSuite))
	assert.NotContains(t, stderr, "warning:")
}
