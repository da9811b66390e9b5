package application

// Display shows pipeline status to the customer.
type Display interface {
	SetStatus(text string)
	// ShowMessage shows text that clears itself after a while.
	ShowMessage(text string)
	SetLiveTranscript(text string)
}

type NoopDisplay struct{}

func (NoopDisplay) SetStatus(string)         {}
func (NoopDisplay) ShowMessage(string)       {}
func (NoopDisplay) SetLiveTranscript(string) {}
