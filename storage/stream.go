package storage

import (
	"fmt"
	"time"

	"caravela.dev/busmetrics/model"
)

const DefaultChunkSize = 5000

// PositionStream is a bounded iterator over one day's raw positions.
// It pulls fixed-size chunks from a PositionSource using a
// (recorded_at, id) keyset cursor, so peak memory stays constant
// regardless of day volume.
type PositionStream struct {
	source    PositionSource
	start     time.Time
	end       time.Time
	chunkSize int

	cursor PositionCursor
	done   bool
}

// NewPositionStream creates a stream over [start, end). A chunkSize
// of 0 or less uses DefaultChunkSize.
func NewPositionStream(source PositionSource, start, end time.Time, chunkSize int) *PositionStream {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &PositionStream{
		source:    source,
		start:     start,
		end:       end,
		chunkSize: chunkSize,
	}
}

// Next returns the next chunk of at most chunkSize positions, or nil
// once the stream is exhausted. A short chunk terminates the stream.
func (s *PositionStream) Next() ([]model.PositionPoint, error) {
	if s.done {
		return nil, nil
	}

	chunk, err := s.source.ListPositions(s.start, s.end, s.cursor, s.chunkSize)
	if err != nil {
		return nil, fmt.Errorf("listing positions: %w", err)
	}

	if len(chunk) < s.chunkSize {
		s.done = true
	}
	if len(chunk) == 0 {
		return nil, nil
	}

	last := chunk[len(chunk)-1]
	s.cursor = PositionCursor{RecordedAt: last.RecordedAt, ID: last.ID}

	return chunk, nil
}

// Reset rewinds the stream to the beginning of its window.
func (s *PositionStream) Reset() {
	s.cursor = PositionCursor{}
	s.done = false
}
