// Copyright (c) 2019 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/vechain/metronome/programs/queue"
)

// LoadCustomNet reads a genesis spec from a json file.
func LoadCustomNet(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read genesis file")
	}
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, errors.Wrap(err, "decode genesis file")
	}
	if err := validateSpec(&spec); err != nil {
		return nil, err
	}
	return New("customnet", &spec), nil
}

func validateSpec(spec *Spec) error {
	if spec.Admin.IsZero() {
		return errors.New("admin is required")
	}
	if spec.LaunchTime <= 0 {
		return errors.New("launchTime must be positive")
	}
	if err := queue.ValidateSchedule(spec.SnapshotSchedule); err != nil {
		return errors.WithMessage(err, "snapshotSchedule")
	}
	names := make(map[string]bool, len(spec.Pools))
	for _, p := range spec.Pools {
		if p.Name == "" || p.Size == 0 {
			return errors.Errorf("pool %q: name and size are required", p.Name)
		}
		if names[p.Name] {
			return errors.Errorf("pool %q declared twice", p.Name)
		}
		names[p.Name] = true
	}
	return nil
}
