package audio

import "kiosk-voice/internal/domain"

// chunker turns arbitrarily sized device buffers into fixed-size frames.
type chunker struct {
	size       int
	sampleRate int
	buf        []int16
}

func newChunker(size, sampleRate int) *chunker {
	if size <= 0 {
		size = domain.DefaultChunkSize
	}
	return &chunker{
		size:       size,
		sampleRate: sampleRate,
		buf:        make([]int16, 0, size),
	}
}

// push appends samples and calls emit once per completed frame. Each emitted
// frame owns its slice.
func (c *chunker) push(samples []int16, emit func(domain.AudioFrame)) {
	for len(samples) > 0 {
		n := min(c.size-len(c.buf), len(samples))
		c.buf = append(c.buf, samples[:n]...)
		samples = samples[n:]

		if len(c.buf) == c.size {
			emit(domain.AudioFrame{Samples: c.buf, SampleRate: c.sampleRate})
			c.buf = make([]int16, 0, c.size)
		}
	}
}

// flush pads a partial frame with silence and emits it.
func (c *chunker) flush(emit func(domain.AudioFrame)) {
	if len(c.buf) == 0 {
		return
	}
	c.push(make([]int16, c.size-len(c.buf)), emit)
}

// reset drops a partial frame.
func (c *chunker) reset() {
	c.buf = c.buf[:0]
}
