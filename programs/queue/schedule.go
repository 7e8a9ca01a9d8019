// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package queue

import (
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateSchedule checks schedule is a cron expression, with optional seconds,
// or a descriptor such as "@hourly" or "@every 1m". The empty schedule runs once.
func ValidateSchedule(schedule string) error {
	if schedule == "" {
		return nil
	}
	if _, err := parser.Parse(schedule); err != nil {
		return errors.Wrap(ErrInvalidSchedule, err.Error())
	}
	return nil
}

// NextExecAt returns the first trigger time of schedule strictly after unix.
// The empty schedule is due immediately.
func NextExecAt(schedule string, unix int64) (uint64, error) {
	if schedule == "" {
		return 0, nil
	}
	s, err := parser.Parse(schedule)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidSchedule, err.Error())
	}
	next := s.Next(time.Unix(unix, 0).UTC())
	if next.IsZero() || next.Unix() < 0 {
		return 0, errors.Wrapf(ErrInvalidSchedule, "%q never fires", schedule)
	}
	return uint64(next.Unix()), nil
}
