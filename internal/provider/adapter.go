// AngelaMos | 2026
// adapter.go

package provider

import (
	"context"
	"iter"
)

// Source tells which data path produced a stream.
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
)

type Params struct {
	// Limit caps the number of records yielded. Zero means no cap.
	Limit int
}

// Adapter fetches one provider catalog. Adapters never write shared state.
type Adapter interface {
	Name() string
	Subscription() string
	Fetch(ctx context.Context, params Params) *Stream
}

// Producer pushes records into yield until the listing is exhausted, yield
// returns false, or a fetch fails. A failure is yielded once as the error
// and ends production.
type Producer func(s *Stream, yield func(Record, error) bool)

// Stream is a lazy, finite sequence of records from one fetch.
type Stream struct {
	produce Producer
	limit   int
	source  Source
}

func NewStream(params Params, produce Producer) *Stream {
	return &Stream{
		produce: produce,
		limit:   params.Limit,
		source:  SourceLive,
	}
}

// All yields records in fetch order. After a yielded error nothing else is
// produced.
func (s *Stream) All() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		n := 0
		s.produce(s, func(rec Record, err error) bool {
			if err != nil {
				yield(Record{}, err)
				return false
			}
			if s.limit > 0 && n >= s.limit {
				return false
			}
			n++
			if !yield(rec, nil) {
				return false
			}
			return s.limit <= 0 || n < s.limit
		})
	}
}

// Source is final once All has been fully consumed.
func (s *Stream) Source() Source {
	return s.source
}

func (s *Stream) SetSource(src Source) {
	s.source = src
}

// Collect drains a stream. Records fetched before a failure are returned
// together with the error.
func Collect(s *Stream) ([]Record, error) {
	var out []Record
	for rec, err := range s.All() {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}
