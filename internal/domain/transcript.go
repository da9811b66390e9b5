package domain

// TranscriptFragment is one recognition result. Partial fragments replace
// each other until a final one arrives.
type TranscriptFragment struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

// Utterance is a finalized, deduplicated piece of recognized text waiting for dispatch.
type Utterance struct {
	ID   string
	Text string
}
