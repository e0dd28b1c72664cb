package storage

import (
	"errors"
	"time"

	"github.com/sony/sonyflake"
)

var flakeEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// IDGenerator issues positive item ids that increase roughly in time order.
type IDGenerator struct {
	sf *sonyflake.Sonyflake
}

// NewIDGenerator creates a generator. A zero machineID lets sonyflake derive
// one from the host's private IP address.
func NewIDGenerator(machineID uint16) (*IDGenerator, error) {
	settings := sonyflake.Settings{StartTime: flakeEpoch}
	if machineID != 0 {
		settings.MachineID = func() (uint16, error) { return machineID, nil }
	}
	sf, err := sonyflake.New(settings)
	if err != nil {
		return nil, err
	}
	if sf == nil {
		return nil, errors.New("failed to create Sonyflake instance")
	}
	return &IDGenerator{sf: sf}, nil
}

func (g *IDGenerator) NextID() (int64, error) {
	v, err := g.sf.NextID()
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}
