package shell

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpGolden(t *testing.T) {
	ts := newTestShell(t)
	assert.Equal(t, 0, ts.Execute(context.Background(), "help"))

	stdout, err := os.ReadFile(ts.stdout)
	require.NoError(t, err)

	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
		goldie.WithTestNameForDir(true),
	)
	g.Assert(t, "help", stdout)
}
