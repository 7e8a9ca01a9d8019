// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"os"

	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/vechain/metronome/delivery"
	"github.com/vechain/metronome/rotation"
)

// nodeConfig is the optional YAML configuration of a node.
type nodeConfig struct {
	Rotation rotation.Params  `yaml:"rotation"`
	Delivery delivery.Options `yaml:"delivery"`
	Workers  int              `yaml:"workers"`
}

func defaultNodeConfig() nodeConfig {
	return nodeConfig{
		Rotation: rotation.DefaultParams(),
		Delivery: delivery.DefaultOptions(),
		Workers:  workersFlag.Value,
	}
}

// readNodeConfig overlays the YAML file at path on the defaults. An empty path
// yields the defaults.
func readNodeConfig(path string) (nodeConfig, error) {
	cfg := defaultNodeConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "decode config file")
	}
	return cfg, nil
}

// loadNodeConfig reads the config file and applies the flags set explicitly on top.
func loadNodeConfig(ctx *cli.Context) (nodeConfig, error) {
	cfg, err := readNodeConfig(ctx.String(configFileFlag.Name))
	if err != nil {
		return cfg, err
	}
	if ctx.IsSet(rotationIntervalFlag.Name) {
		cfg.Rotation.RotationInterval = ctx.Uint64(rotationIntervalFlag.Name)
	}
	if ctx.IsSet(gracePeriodFlag.Name) {
		cfg.Rotation.GracePeriod = ctx.Uint64(gracePeriodFlag.Name)
	}
	if ctx.IsSet(workersFlag.Name) {
		cfg.Workers = ctx.Int(workersFlag.Name)
	}
	if secret := ctx.String(webhookSecretFlag.Name); secret != "" {
		cfg.Delivery.Secret = secret
	}
	return cfg, nil
}
