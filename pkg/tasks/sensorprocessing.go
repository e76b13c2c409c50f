package tasks

import (
	"context"
	"fmt"

	"github.com/jihwankim/haultruck/pkg/filter"
	"github.com/jihwankim/haultruck/pkg/sensordata"
	"github.com/jihwankim/haultruck/pkg/syncutil"
)

// SensorProcessing reads raw samples, smooths every numeric channel with
// its own order-M moving-average filter, and writes the result to the
// shared circular buffer (spec.md §4.4).
type SensorProcessing struct {
	reader sensordata.Reader
	buffer *syncutil.RingBuffer[sensordata.Filtered]

	x, y, theta, velocity, temperature *filter.MovingAverage
}

// NewSensorProcessing constructs the task with one filter per channel,
// all sharing the same order.
func NewSensorProcessing(reader sensordata.Reader, buffer *syncutil.RingBuffer[sensordata.Filtered], order int) *SensorProcessing {
	return &SensorProcessing{
		reader:      reader,
		buffer:      buffer,
		x:           filter.NewMovingAverage(order),
		y:           filter.NewMovingAverage(order),
		theta:       filter.NewMovingAverage(order),
		velocity:    filter.NewMovingAverage(order),
		temperature: filter.NewMovingAverage(order),
	}
}

// Tick performs one read-filter-write cycle.
func (s *SensorProcessing) Tick(ctx context.Context) error {
	sample, err := s.reader.Read()
	if err != nil {
		return fmt.Errorf("read sensor sample: %w", err)
	}

	filtered := sensordata.Filtered{
		PositionX:       s.x.Push(sample.PositionX),
		PositionY:       s.y.Push(sample.PositionY),
		Theta:           s.theta.Push(sample.Theta),
		Velocity:        s.velocity.Push(sample.Velocity),
		Temperature:     s.temperature.Push(sample.Temperature),
		ElectricalFault: sample.ElectricalFault,
		HydraulicFault:  sample.HydraulicFault,
		Timestamp:       sample.Timestamp,
	}
	s.buffer.Write(filtered)
	return nil
}
