package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	require.NoError(t, writeConfigFixture(home))

	stdout, stderr, err := runGlive(t, binaryPath, home, "version")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Equal(t, "dev\n", stdout)

	_, stderr, err = runGlive(t, binaryPath, home, "auth", "set-key", "--value", "test-key-123")
	require.NoError(t, err, "stderr: %s", stderr)

	stdout, stderr, err = runGlive(t, binaryPath, home, "auth", "status")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "api key: found (secret:gemini_api_key)")

	stdout, stderr, err = runGlive(t, binaryPath, home, "sessions", "list")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "No sessions recorded.")

	_, err = os.Stat(filepath.Join(home, "data", "glive.db"))
	require.NoError(t, err, "sqlite path from config.toml")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "glive-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/glive")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build glive binary: %s", string(output))
	return binaryPath
}

func runGlive(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	// An empty PATH keeps a real pass install out of the test.
	cmd.Env = append(os.Environ(), "HOME="+home, "PATH="+t.TempDir(), "GEMINI_API_KEY=")
	cmd.Dir = home

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func writeConfigFixture(home string) error {
	configDir := filepath.Join(home, ".glive")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}

	config := `[store]
backend = "sqlite"
sqlite_path = "~/data/glive.db"

[log]
level = "warn"
`

	return os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(config), 0o600)
}
