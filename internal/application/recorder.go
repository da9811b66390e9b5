package application

import "kiosk-voice/internal/domain"

// Recorder collects the frames of one user-delimited recording.
// Only one recording or upload can be active at a time.
type Recorder struct {
	recording bool
	uploading bool
	frames    []domain.AudioFrame
}

func (r *Recorder) Recording() bool { return r.recording }
func (r *Recorder) Uploading() bool { return r.uploading }

// Begin starts a new recording. It reports false while a recording or an
// upload is still active.
func (r *Recorder) Begin() bool {
	if r.recording || r.uploading {
		return false
	}
	r.recording = true
	r.frames = nil
	return true
}

func (r *Recorder) Add(frame domain.AudioFrame) {
	if r.recording {
		r.frames = append(r.frames, frame)
	}
}

// Finish ends the recording and returns its frames. When frames were
// captured the recorder stays busy until UploadDone.
func (r *Recorder) Finish() []domain.AudioFrame {
	frames := r.frames
	r.recording = false
	r.frames = nil
	r.uploading = len(frames) > 0
	return frames
}

func (r *Recorder) UploadDone() {
	r.uploading = false
}

// Reset drops any recording in progress.
func (r *Recorder) Reset() {
	r.recording = false
	r.frames = nil
}
