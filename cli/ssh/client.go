// Package ssh provides SSH multiplexing and remote command execution
// for perfsweep. It manages persistent SSH connections, syncs the working
// tree and runs benchmarks on the remote host.
package ssh

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/rs/zerolog"
)

// Client manages an SSH connection to a specific remote host.
type Client struct {
	logger       zerolog.Logger
	host         string
	controlPath  string
	identityFile string
	extraOptions []string
}

// SSHOption is a function that configures an SSH client.
type SSHOption func(*Client)

// WithIdentityFile sets the identity file (private key) to use for authentication.
func WithIdentityFile(path string) SSHOption {
	return func(c *Client) {
		c.identityFile = path
	}
}

// WithExtraOptions adds extra SSH options (-o values) to the connection.
func WithExtraOptions(options ...string) SSHOption {
	return func(c *Client) {
		c.extraOptions = append(c.extraOptions, options...)
	}
}

// New creates a new SSH client and establishes a multiplexed connection to the host.
func New(logger zerolog.Logger, host string, opts ...SSHOption) (*Client, error) {
	c := &Client{
		logger: logger,
		host:   host,
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.setupMultiplexing(); err != nil {
		return nil, fmt.Errorf("failed to setup SSH multiplexing: %w", err)
	}

	return c, nil
}

// Close closes the SSH connection and cleans up the control socket.
func (c *Client) Close() {
	c.logger.Debug().Str("controlPath", c.controlPath).Msg("Cleaning up SSH multiplexing")

	cmd := exec.Command("ssh", "-o", "ControlPath="+c.controlPath, "-O", "exit", c.host)
	_ = cmd.Run() // Ignore errors on cleanup

	_ = os.Remove(c.controlPath)
}

// Host returns the remote host this client is connected to.
func (c *Client) Host() string {
	return c.host
}

// RunCommand executes a command on the remote host and returns the output.
func (c *Client) RunCommand(command string) (string, error) {
	args := append(c.buildSSHArgs(), c.host, command)
	cmd := exec.Command("ssh", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug().
		Str("host", c.host).
		Str("command", command).
		Msg("Running remote command")

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command failed: %w (stderr: %s)", err, stderr.String())
	}

	return stdout.String(), nil
}

// buildSSHArgs returns the arguments of every command sent over the master
// connection.
func (c *Client) buildSSHArgs() []string {
	args := []string{
		"-o", "ControlPath=" + c.controlPath,
		"-o", "ControlMaster=no",
	}
	return append(args, c.authArgs()...)
}

// authArgs returns the identity and extra options shared by the master
// connection and the commands using it.
func (c *Client) authArgs() []string {
	var args []string
	if c.identityFile != "" {
		args = append(args, "-i", c.identityFile)
	}
	for _, opt := range c.extraOptions {
		args = append(args, "-o", opt)
	}
	return args
}

// DetectSystem detects the OS and architecture of the remote system in
// GOOS/GOARCH form.
func (c *Client) DetectSystem() (string, string, error) {
	out, err := c.RunCommand("uname -s && uname -m")
	if err != nil {
		return "", "", fmt.Errorf("failed to detect remote system: %w", err)
	}

	fields := strings.Fields(out)
	if len(fields) != 2 {
		return "", "", fmt.Errorf("unexpected uname output: %q", out)
	}
	return strings.ToLower(fields[0]), normalizeArch(fields[1]), nil
}

func normalizeArch(arch string) string {
	switch arch {
	case "x86_64", "amd64":
		return "amd64"
	case "aarch64", "arm64":
		return "arm64"
	case "i386", "i686":
		return "386"
	case "armv7l":
		return "arm"
	}
	return arch
}

// Hostname returns the host name and the number of online CPUs of the
// remote system.
func (c *Client) Hostname() (string, int, error) {
	out, err := c.RunCommand("hostname && getconf _NPROCESSORS_ONLN")
	if err != nil {
		return "", 0, fmt.Errorf("failed to query remote host: %w", err)
	}

	fields := strings.Fields(out)
	if len(fields) != 2 {
		return "", 0, fmt.Errorf("unexpected remote host output: %q", out)
	}
	cpus, err := strconv.Atoi(fields[1])
	if err != nil {
		return "", 0, fmt.Errorf("invalid remote CPU count %q: %w", fields[1], err)
	}
	return fields[0], cpus, nil
}

// GetRemoteRepositoryDir determines the remote directory of the current
// repository below the remote perfsweep cache.
func (c *Client) GetRemoteRepositoryDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	out, err := exec.Command("git", "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", fmt.Errorf("failed to get git root: %w", err)
	}
	gitRoot := strings.TrimSpace(string(out))

	cacheDir, err := c.getRemoteCacheDir()
	if err != nil {
		return "", err
	}

	return remoteRepositoryDir(cacheDir, filepath.Base(cwd), gitRoot), nil
}

// remoteRepositoryDir names a checkout after the working directory and a
// short hash of the local git root, so equal names of different repositories
// do not collide.
func remoteRepositoryDir(cacheDir, name, gitRoot string) string {
	hash := sha256.Sum256([]byte(gitRoot))
	return fmt.Sprintf("%s/repositories/%s-%s", cacheDir, name, hex.EncodeToString(hash[:])[:8])
}

// SyncDirectoryToRemote copies the working tree below the current directory,
// including uncommitted and untracked files that are not ignored, to the
// remote host. It returns the remote directory the benchmarks run in.
func (c *Client) SyncDirectoryToRemote(remoteBaseDir string) (string, error) {
	if err := exec.Command("git", "rev-parse", "--git-dir").Run(); err != nil {
		return "", fmt.Errorf("not in a git repository: %w", err)
	}

	remoteDir := remoteBaseDir + "/worktree"
	quotedDir := shellescape.Quote(remoteDir)

	c.logger.Info().
		Str("host", c.host).
		Str("remote", remoteDir).
		Msg("Syncing git working tree to remote host")

	if _, err := c.RunCommand("mkdir -p " + quotedDir); err != nil {
		return "", fmt.Errorf("failed to create remote directory: %w", err)
	}

	archiveCmd := exec.Command("sh", "-c",
		"(git ls-files -z; git ls-files --others --exclude-standard -z) | tar --null -T - -czf -",
	)
	args := append(c.buildSSHArgs(), c.host, fmt.Sprintf("cd %s && tar -xzf -", quotedDir))
	sshCmd := exec.Command("ssh", args...)

	pipe, err := archiveCmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to create pipe: %w", err)
	}
	sshCmd.Stdin = pipe

	var archiveStderr, sshStderr bytes.Buffer
	archiveCmd.Stderr = &archiveStderr
	sshCmd.Stderr = &sshStderr

	if err := sshCmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start SSH: %w", err)
	}
	if err := archiveCmd.Start(); err != nil {
		_ = sshCmd.Process.Kill()
		return "", fmt.Errorf("failed to start archive: %w", err)
	}

	if err := archiveCmd.Wait(); err != nil {
		return "", fmt.Errorf("archive failed: %w (stderr: %s)", err, archiveStderr.String())
	}
	if err := sshCmd.Wait(); err != nil {
		return "", fmt.Errorf("failed to extract on remote: %w (stderr: %s)", err, sshStderr.String())
	}

	c.logger.Debug().Msg("Working tree synced successfully")
	return remoteDir, nil
}

// setupMultiplexing establishes an SSH master connection for multiplexing.
func (c *Client) setupMultiplexing() error {
	controlDir := controlSocketDir()
	if err := os.MkdirAll(controlDir, 0700); err != nil {
		return fmt.Errorf("failed to create control directory: %w", err)
	}
	c.controlPath = controlSocketPath(controlDir, c.host)

	c.logger.Debug().
		Str("host", c.host).
		Str("controlPath", c.controlPath).
		Msg("Setting up SSH multiplexing")

	args := []string{
		"-o", "ControlMaster=auto",
		"-o", "ControlPath=" + c.controlPath,
		"-o", "ControlPersist=30s",
		"-o", "ConnectTimeout=10",
		"-o", "ServerAliveInterval=15",
		"-o", "ServerAliveCountMax=3",
	}
	args = append(args, c.authArgs()...)
	args = append(args,
		"-f", // Run in background
		"-N", // Don't execute a remote command
		c.host,
	)

	cmd := exec.Command("ssh", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to establish SSH master connection: %w (stderr: %s)", err, stderr.String())
	}

	c.logger.Debug().Str("host", c.host).Msg("SSH master connection established")
	return nil
}

// controlSocketPath keeps the socket path short: Unix domain sockets are
// limited to 104-108 bytes.
func controlSocketPath(dir, host string) string {
	hash := sha256.Sum256([]byte(host))
	return filepath.Join(dir, "ssh-"+hex.EncodeToString(hash[:])[:12])
}

// controlSocketDir returns the directory to use for SSH control sockets.
func controlSocketDir() string {
	if xdgRuntime := os.Getenv("XDG_RUNTIME_DIR"); xdgRuntime != "" {
		return filepath.Join(xdgRuntime, "perfsweep")
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		if home := os.Getenv("HOME"); home != "" {
			configHome = filepath.Join(home, ".config")
		}
	}
	if configHome != "" {
		return filepath.Join(configHome, "perfsweep")
	}

	return filepath.Join(os.TempDir(), "perfsweep")
}

// getRemoteCacheDir determines the cache directory on the remote host.
func (c *Client) getRemoteCacheDir() (string, error) {
	cacheDir, err := c.RunCommand(`
if [ -n "$XDG_CACHE_HOME" ]; then
    echo "$XDG_CACHE_HOME/perfsweep"
elif [ -n "$HOME" ]; then
    echo "$HOME/.cache/perfsweep"
else
    echo "/tmp/perfsweep"
fi
`)
	if err != nil {
		return "", fmt.Errorf("failed to determine remote cache directory: %w", err)
	}

	return strings.TrimSpace(cacheDir), nil
}
