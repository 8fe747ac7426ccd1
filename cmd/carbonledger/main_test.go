package main

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rshade/carbonledger/internal/cli"
	"github.com/rshade/carbonledger/internal/engine"
	"github.com/rshade/carbonledger/pkg/version"
)

func TestMainComponents(t *testing.T) {
	t.Run("version available", func(t *testing.T) {
		assert.NotEmpty(t, version.GetVersion())
	})

	t.Run("cli root command", func(t *testing.T) {
		root := cli.NewRootCmd(version.GetVersion())
		assert.NotNil(t, root)
		assert.Equal(t, "carbonledger", root.Use)
		assert.Equal(t, version.GetVersion(), root.Version)
	})
}

func TestRun_Version(t *testing.T) {
	t.Setenv("CARBONLEDGER_HOME", t.TempDir())
	old := os.Args
	t.Cleanup(func() { os.Args = old })
	os.Args = []string{"carbonledger", "--version"}
	assert.NoError(t, run())
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: cli.ExitOK},
		{name: "generic", err: errors.New("boom"), want: cli.ExitFailure},
		{name: "missing flowchart", err: fmt.Errorf("ingest: %w", engine.ErrFlowchartNotFound), want: cli.ExitConfiguration},
		{name: "partial batch", err: &cli.ExitError{Code: cli.ExitPartial, Reason: "2 of 5 failed"}, want: cli.ExitPartial},
		{
			name: "wrapped exit error",
			err:  errors.Join(errors.New("outer"), &cli.ExitError{Code: 42, Reason: "custom"}),
			want: 42,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cli.ExitCode(tt.err))
		})
	}
}
