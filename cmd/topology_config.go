package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pasid-sim/pasid-sim/sim/cluster"
)

// loadTopologyFile parses a YAML topology. Unknown keys are errors so that
// typos in option names surface before the run starts.
func loadTopologyFile(path string) (cluster.DeploymentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cluster.DeploymentConfig{}, fmt.Errorf("read topology file: %w", err)
	}
	return parseTopology(data)
}

func parseTopology(data []byte) (cluster.DeploymentConfig, error) {
	var cfg cluster.DeploymentConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cluster.DeploymentConfig{}, fmt.Errorf("parse topology YAML: %w", err)
	}
	return cfg, nil
}
