package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_CreatesHomeAndConfig(t *testing.T) {
	home := setupCLITest(t)
	t.Setenv("CARBONLEDGER_STORE_PATH", filepath.Join(home, "db", "ledger.db"))

	out, _, err := runCLI(t, "setup", "--non-interactive")
	require.NoError(t, err)

	assert.Contains(t, out, "[OK] carbonledger")
	assert.Contains(t, out, "[OK] Created "+filepath.Join(home, "db"))
	assert.Contains(t, out, "[OK] Initialized config")
	assert.Contains(t, out, "[OK] Store sqlite ready")
	assert.Contains(t, out, "Setup complete!")

	_, statErr := os.Stat(filepath.Join(home, "config.yaml"))
	require.NoError(t, statErr)
}

func TestSetup_Idempotent(t *testing.T) {
	setupCLITest(t)

	_, _, err := runCLI(t, "setup", "--non-interactive")
	require.NoError(t, err)

	out, _, err := runCLI(t, "setup", "--non-interactive", "--skip-store-check")
	require.NoError(t, err)
	assert.Contains(t, out, "Config already exists")
	assert.Contains(t, out, "[SKIP] Skipped store check")
}

func TestSetup_WarnsOnSharedJobsWithBadger(t *testing.T) {
	setupCLITest(t)
	t.Setenv("CARBONLEDGER_STORE_DRIVER", "badger")
	t.Setenv("CARBONLEDGER_STORE_PATH", "")
	t.Setenv("CARBONLEDGER_JOBS_DRIVER", "nats")
	t.Setenv("CARBONLEDGER_JOBS_URL", "nats://127.0.0.1:4222")

	out, _, err := runCLI(t, "setup", "--non-interactive", "--skip-store-check")
	require.NoError(t, err)
	assert.Contains(t, out, "[WARN] jobs.driver nats needs a store shared between processes")
}
