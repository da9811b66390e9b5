package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"kiosk-voice/internal/domain"
)

const wavHeaderSize = 44

// EncodeWAV writes the frames of one recording as a 16-bit mono PCM WAV clip.
func EncodeWAV(frames []domain.AudioFrame) []byte {
	sampleRate := 16000
	total := 0
	for _, f := range frames {
		total += len(f.Samples)
	}
	if len(frames) > 0 && frames[0].SampleRate > 0 {
		sampleRate = frames[0].SampleRate
	}

	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + total*2)

	dataSize := total * 2

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for _, f := range frames {
		buf.Write(f.Bytes())
	}

	return buf.Bytes()
}

// DecodeWAV reads a 16-bit PCM WAV clip. Stereo input keeps the left channel.
func DecodeWAV(data []byte) (samples []int16, sampleRate int, err error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a wav file")
	}

	var (
		channels   int
		bitsPerSmp int
		pcm        []byte
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if size < 0 || body+size > len(data) {
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("fmt chunk too short")
			}
			if format := binary.LittleEndian.Uint16(data[body:]); format != 1 {
				return nil, 0, fmt.Errorf("unsupported wav format %d", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bitsPerSmp = int(binary.LittleEndian.Uint16(data[body+14:]))
		case "data":
			pcm = data[body : body+size]
		}

		pos = body + size + size%2
	}

	if channels == 0 {
		return nil, 0, fmt.Errorf("missing fmt chunk")
	}
	if bitsPerSmp != 16 {
		return nil, 0, fmt.Errorf("unsupported bit depth %d", bitsPerSmp)
	}

	stride := 2 * channels
	samples = make([]int16, 0, len(pcm)/stride)
	for i := 0; i+1 < len(pcm); i += stride {
		samples = append(samples, int16(binary.LittleEndian.Uint16(pcm[i:])))
	}
	return samples, sampleRate, nil
}
