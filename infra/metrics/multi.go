package metrics

import coremetrics "github.com/kilianp07/groundlink/core/metrics"

// MultiSink fans coordination events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordMessage forwards the record to all sinks, returning the first error.
func (m *MultiSink) RecordMessage(r coremetrics.MessageRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordMessage(r); err != nil {
			return err
		}
	}
	return nil
}

// RecordAck forwards the record to all sinks, returning the first error.
func (m *MultiSink) RecordAck(r coremetrics.AckRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordAck(r); err != nil {
			return err
		}
	}
	return nil
}

// RecordMissionStatus forwards the record to all sinks, returning the first error.
func (m *MultiSink) RecordMissionStatus(r coremetrics.MissionRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordMissionStatus(r); err != nil {
			return err
		}
	}
	return nil
}

// RecordFleetSize forwards the gauge to all sinks, returning the first error.
func (m *MultiSink) RecordFleetSize(active int) error {
	for _, s := range m.Sinks {
		if err := s.RecordFleetSize(active); err != nil {
			return err
		}
	}
	return nil
}
