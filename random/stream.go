package random

import (
	"github.com/iti/rngstream"
	"github.com/sarchlab/desim/sim"
)

// Stream is a named MRG32k3a random number stream. Every stream is split
// into substreams, which is how replications get independent numbers.
type Stream struct {
	name       string
	rng        *rngstream.RngStream
	antithetic bool
}

// NewStream allocates the next stream of the generator.
func NewStream(name string) *Stream {
	return &Stream{
		name: name,
		rng:  rngstream.New(name),
	}
}

// Name returns the name of the stream.
func (s *Stream) Name() string {
	return s.name
}

// RandU01 returns a value uniformly distributed in (0, 1).
func (s *Stream) RandU01() float64 {
	return s.rng.RandU01()
}

// NextValue makes a Stream usable as a U(0, 1) Source.
func (s *Stream) NextValue() float64 {
	return s.RandU01()
}

// ResetStartStream rewinds the stream to its very first value.
func (s *Stream) ResetStartStream() {
	s.rng.ResetStartStream()
}

// ResetStartSubstream rewinds the stream to the start of the current
// substream.
func (s *Stream) ResetStartSubstream() {
	s.rng.ResetStartSubstream()
}

// AdvanceToNextSubstream jumps to the start of the next substream.
func (s *Stream) AdvanceToNextSubstream() {
	s.rng.ResetNextSubstream()
}

// SetAntithetic switches the stream to return 1-u instead of u.
func (s *Stream) SetAntithetic(antithetic bool) {
	s.antithetic = antithetic
	s.rng.SetAntithetic(antithetic)
}

// IsAntithetic tells if the stream returns antithetic values.
func (s *Stream) IsAntithetic() bool {
	return s.antithetic
}

// StreamProvider hands out streams and applies replication-level stream
// control to all of them at once.
type StreamProvider struct {
	streams []*Stream
	byName  map[string]*Stream
}

// NewStreamProvider creates an empty StreamProvider.
func NewStreamProvider() *StreamProvider {
	return &StreamProvider{
		byName: make(map[string]*Stream),
	}
}

// Stream returns the stream with the given name, allocating it on first use.
func (p *StreamProvider) Stream(name string) *Stream {
	if name == "" {
		panic(sim.NewConfigError("stream name must not be empty"))
	}

	if s, found := p.byName[name]; found {
		return s
	}

	s := NewStream(name)
	p.streams = append(p.streams, s)
	p.byName[name] = s

	return s
}

// NumStreams returns how many streams were handed out.
func (p *StreamProvider) NumStreams() int {
	return len(p.streams)
}

// ResetStartStreams rewinds every stream to its first value.
func (p *StreamProvider) ResetStartStreams() {
	for _, s := range p.streams {
		s.ResetStartStream()
	}
}

// ResetStartSubstreams rewinds every stream to the start of its current
// substream.
func (p *StreamProvider) ResetStartSubstreams() {
	for _, s := range p.streams {
		s.ResetStartSubstream()
	}
}

// AdvanceToNextSubstreams moves every stream to its next substream.
func (p *StreamProvider) AdvanceToNextSubstreams() {
	for _, s := range p.streams {
		s.AdvanceToNextSubstream()
	}
}

// SetAntithetic switches every stream in or out of antithetic mode.
func (p *StreamProvider) SetAntithetic(antithetic bool) {
	for _, s := range p.streams {
		s.SetAntithetic(antithetic)
	}
}
