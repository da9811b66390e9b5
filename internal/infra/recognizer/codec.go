package recognizer

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"kiosk-voice/internal/domain"
)

const (
	MessageRealtime     = "realtime"
	MessageFullSentence = "fullSentence"

	lengthPrefixSize = 4
)

// FrameMetadata travels in front of every PCM payload.
type FrameMetadata struct {
	SampleRate int `json:"sampleRate"`
}

// EncodeFrame builds one outbound message:
// [uint32 LE metadata length][metadata JSON][PCM int16 LE].
func EncodeFrame(frame domain.AudioFrame) ([]byte, error) {
	meta, err := json.Marshal(FrameMetadata{SampleRate: frame.SampleRate})
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}

	pcm := frame.Bytes()
	msg := make([]byte, lengthPrefixSize+len(meta)+len(pcm))
	binary.LittleEndian.PutUint32(msg[:lengthPrefixSize], uint32(len(meta)))
	copy(msg[lengthPrefixSize:], meta)
	copy(msg[lengthPrefixSize+len(meta):], pcm)
	return msg, nil
}

// DecodeFrame splits an outbound message back into metadata and PCM bytes.
func DecodeFrame(msg []byte) (FrameMetadata, []byte, error) {
	var meta FrameMetadata
	if len(msg) < lengthPrefixSize {
		return meta, nil, fmt.Errorf("message too short: %d bytes", len(msg))
	}

	metaLen := int(binary.LittleEndian.Uint32(msg[:lengthPrefixSize]))
	if metaLen > len(msg)-lengthPrefixSize {
		return meta, nil, fmt.Errorf("metadata length %d exceeds message size %d", metaLen, len(msg))
	}

	if err := json.Unmarshal(msg[lengthPrefixSize:lengthPrefixSize+metaLen], &meta); err != nil {
		return meta, nil, fmt.Errorf("parsing metadata: %w", err)
	}
	return meta, msg[lengthPrefixSize+metaLen:], nil
}

type inboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// DecodeMessage maps a server message onto a transcript fragment. Messages
// of other types report false.
func DecodeMessage(data []byte) (domain.TranscriptFragment, bool, error) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.TranscriptFragment{}, false, fmt.Errorf("%w: %w", domain.ErrDecode, err)
	}

	switch msg.Type {
	case MessageRealtime:
		return domain.TranscriptFragment{Text: msg.Text}, true, nil
	case MessageFullSentence:
		return domain.TranscriptFragment{Text: msg.Text, IsFinal: true}, true, nil
	default:
		return domain.TranscriptFragment{}, false, nil
	}
}
