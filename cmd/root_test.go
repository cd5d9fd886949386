package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pasid-sim/pasid-sim/sim"
	"github.com/pasid-sim/pasid-sim/sim/trace"
)

// newOverrideCommand binds the override flags to a fresh command so that
// Changed() reflects only what the test sets.
func newOverrideCommand(t *testing.T, config string) *cobra.Command {
	t.Helper()
	c := &cobra.Command{}
	c.Flags().Int64Var(&seed, "seed", 42, "")
	c.Flags().IntVar(&numMessages, "num-messages", 10, "")
	configPath, propertiesDir = config, ""
	t.Cleanup(func() { configPath, propertiesDir = "", "" })
	return c
}

func TestLoadDeployment_NoOverrides_KeepsTopologyValues(t *testing.T) {
	c := newOverrideCommand(t, filepath.Join("..", "examples", "two_tier.yaml"))

	cfg, err := loadDeployment(c)

	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 10, cfg.Source.NumMessages)
}

func TestLoadDeployment_FlagsOverrideTopology(t *testing.T) {
	// GIVEN --seed and --num-messages set on the command line
	c := newOverrideCommand(t, filepath.Join("..", "examples", "two_tier.yaml"))
	require.NoError(t, c.Flags().Set("seed", "7"))
	require.NoError(t, c.Flags().Set("num-messages", "3"))

	// WHEN the topology is loaded
	cfg, err := loadDeployment(c)

	// THEN the flags win
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 3, cfg.Source.NumMessages)
}

func TestLoadDeployment_NoSource_ReturnsError(t *testing.T) {
	c := newOverrideCommand(t, "")
	_, err := loadDeployment(c)
	assert.ErrorIs(t, err, sim.ErrInvalidConfiguration)
}

func TestLoadDeployment_BothSources_ReturnsError(t *testing.T) {
	c := newOverrideCommand(t, "topology.yaml")
	propertiesDir = "props"
	_, err := loadDeployment(c)
	assert.ErrorIs(t, err, sim.ErrInvalidConfiguration)
}

func TestPrintWiring_ListsEveryComponent(t *testing.T) {
	cfg, err := loadTopologyFile(filepath.Join("..", "examples", "two_tier.yaml"))
	require.NoError(t, err)

	var buf bytes.Buffer
	printWiring(&buf, cfg.Expand())
	out := buf.String()

	assert.Contains(t, out, "=== Topology ===")
	assert.Contains(t, out, "Source     1000 -> 2000")
	assert.Contains(t, out, "Dispatcher 2000 -> 2001,2002 (capacity 5, round-robin, block)")
	assert.Contains(t, out, "Worker     3002 -> 1000")
}

func TestPrintTraceSummary_ShowsDistribution(t *testing.T) {
	st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
	st.RecordAdmission(trace.AdmissionRecord{MessageID: 1, Admitted: true})
	st.RecordDispatch(trace.DispatchRecord{MessageID: 1, DispatcherID: 2000, ChosenChild: 2002})
	st.RecordDispatch(trace.DispatchRecord{MessageID: 2, DispatcherID: 2000, ChosenChild: 2001})

	var buf bytes.Buffer
	printTraceSummary(&buf, trace.Summarize(st))

	assert.Contains(t, buf.String(), "Dispatches : 2")
	assert.Contains(t, buf.String(), "Dispatcher 2000: 2001=1 2002=1")
}
