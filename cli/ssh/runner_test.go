package ssh

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/perfgo/perfsweep/model"
	"github.com/stretchr/testify/assert"
)

func TestRemoteCommand(t *testing.T) {
	tests := []struct {
		name    string
		dir     string
		path    string
		args    []string
		timeout time.Duration
		want    string
	}{
		{
			name: "no timeout",
			dir:  "/home/bench/.cache/perfsweep/repositories/lab-1a2b3c4d/worktree",
			path: "./sort",
			args: []string{"4", "100000"},
			want: "cd /home/bench/.cache/perfsweep/repositories/lab-1a2b3c4d/worktree && " +
				"printf '%s\\n' 'perfsweep: launching benchmark' >&2 && exec ./sort 4 100000",
		},
		{
			name:    "timeout and quoting",
			dir:     "/tmp/my dir",
			path:    "mpiexec",
			args:    []string{"-n", "2", "./pi", "a b"},
			timeout: 1500 * time.Millisecond,
			want: "cd '/tmp/my dir' && printf '%s\\n' 'perfsweep: launching benchmark' >&2 && " +
				"exec timeout -s KILL 1.5 mpiexec -n 2 ./pi 'a b'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RemoteCommand(tt.dir, tt.path, tt.args, tt.timeout))
		})
	}
}

func TestRemoteOutcome(t *testing.T) {
	const marker = launchMarker + "\n"

	tests := []struct {
		name      string
		status    model.ExitStatus
		stderr    string
		wallClock time.Duration
		timeout   time.Duration
		want      model.ExitKind
		wantCode  int
	}{
		{"success", model.ExitStatus{Kind: model.ExitSuccess}, marker, time.Millisecond, time.Second, model.ExitSuccess, 0},
		{"benchmark failure", model.ExitStatus{Kind: model.ExitNonZero, Code: 3}, marker, time.Millisecond, time.Second, model.ExitNonZero, 3},
		{"killed by timeout", model.ExitStatus{Kind: model.ExitNonZero, Code: 137}, marker, 1100 * time.Millisecond, time.Second, model.ExitTimedOut, 0},
		{"killed before timeout", model.ExitStatus{Kind: model.ExitNonZero, Code: 137}, marker, 200 * time.Millisecond, time.Second, model.ExitNonZero, 137},
		{"killed without timeout", model.ExitStatus{Kind: model.ExitNonZero, Code: 137}, marker, time.Hour, 0, model.ExitNonZero, 137},
		{"benchmark exits 255", model.ExitStatus{Kind: model.ExitNonZero, Code: 255}, marker, time.Millisecond, time.Second, model.ExitNonZero, 255},
		{"benchmark exits 127", model.ExitStatus{Kind: model.ExitNonZero, Code: 127}, marker, time.Millisecond, 0, model.ExitNonZero, 127},
		{"benchmark exits 126", model.ExitStatus{Kind: model.ExitNonZero, Code: 126}, marker, time.Millisecond, 0, model.ExitNonZero, 126},
		{"ssh error", model.ExitStatus{Kind: model.ExitNonZero, Code: 255}, "", time.Millisecond, 0, model.ExitLaunchFailed, 0},
		{"missing directory", model.ExitStatus{Kind: model.ExitNonZero, Code: 1}, "cd: no such file or directory\n", time.Millisecond, 0, model.ExitLaunchFailed, 0},
		{"local timeout", model.ExitStatus{Kind: model.ExitTimedOut}, "", 6 * time.Second, time.Second, model.ExitTimedOut, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := remoteOutcome(model.RunOutcome{
				Status:    tt.status,
				Stderr:    tt.stderr,
				WallClock: tt.wallClock,
			}, tt.timeout)
			assert.Equal(t, tt.want, got.Status.Kind)
			assert.Equal(t, tt.wantCode, got.Status.Code)
			assert.NotContains(t, got.Stderr, launchMarker)
		})
	}
}

func TestRemoteOutcome_LaunchFailureCause(t *testing.T) {
	got := remoteOutcome(model.RunOutcome{Status: model.ExitStatus{Kind: model.ExitNonZero, Code: 255}}, 0)
	assert.Equal(t, "ssh connection failed", got.Status.Cause)

	got = remoteOutcome(model.RunOutcome{Status: model.ExitStatus{Kind: model.ExitNonZero, Code: 2}}, 0)
	assert.Equal(t, "remote shell failed before launch (exit 2)", got.Status.Cause)
}

func TestStripLaunchMarker(t *testing.T) {
	stderr, launched := stripLaunchMarker("warning: x\n" + launchMarker + "\nrank 0 failed\n")
	assert.True(t, launched)
	assert.Equal(t, "warning: x\nrank 0 failed\n", stderr)

	stderr, launched = stripLaunchMarker("Connection refused\n")
	assert.False(t, launched)
	assert.Equal(t, "Connection refused\n", stderr)
}

func TestRemoteRepositoryDir(t *testing.T) {
	a := remoteRepositoryDir("/home/bench/.cache/perfsweep", "lab", "/src/one/lab")
	b := remoteRepositoryDir("/home/bench/.cache/perfsweep", "lab", "/src/two/lab")

	assert.Regexp(t, `^/home/bench/\.cache/perfsweep/repositories/lab-[0-9a-f]{8}$`, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, remoteRepositoryDir("/home/bench/.cache/perfsweep", "lab", "/src/one/lab"))
}

func TestControlSocketPath(t *testing.T) {
	dir := "/run/user/1000/perfsweep"
	path := controlSocketPath(dir, "bench@very-long-hostname.cluster.example.org")

	assert.Equal(t, dir, filepath.Dir(path))
	assert.Len(t, filepath.Base(path), len("ssh-")+12)
	assert.NotEqual(t, path, controlSocketPath(dir, "other"))
}

func TestNormalizeArch(t *testing.T) {
	for in, want := range map[string]string{
		"x86_64":  "amd64",
		"aarch64": "arm64",
		"i686":    "386",
		"armv7l":  "arm",
		"riscv64": "riscv64",
	} {
		assert.Equal(t, want, normalizeArch(in), in)
	}
}
