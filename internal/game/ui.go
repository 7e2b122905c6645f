package game

import (
	"time"
)

// UIAdapter is the single surface the engine drives rendering through.
// Host environments implement it once; the engine never branches on
// which UI flavor is active.
//
// Adapters must not invoke onChoice/onSelect synchronously from inside
// the registering call: callbacks re-enter the engine and are treated
// as external input.
type UIAdapter interface {
	ActivateRollButton()
	DeactivateRollButton()

	StartTimer(d time.Duration)
	StopTimer()
	PauseTimer()
	ResumeTimer()

	ShowRemainingMoves(n int)
	UpdateRemainingMoves(n int)

	HideAllModals()
	// ShowPrompt opens a modal choice; the returned dismiss closes it
	// without answering.
	ShowPrompt(title string, options []string, onChoice func(choice string)) (dismiss func())

	// RegisterSpaceSelection highlights the candidate spaces and
	// reports the player's pick; the returned unregister tears the
	// registration down.
	RegisterSpaceSelection(spaces []string, onSelect func(spaceID string)) (unregister func())
}

// NullUI is the headless adapter: every call is a no-op and prompts are
// never answered. The server process and most tests run against it.
type NullUI struct{}

// NewNullUI creates the no-op adapter.
func NewNullUI() *NullUI { return &NullUI{} }

func (*NullUI) ActivateRollButton()   {}
func (*NullUI) DeactivateRollButton() {}

func (*NullUI) StartTimer(time.Duration) {}
func (*NullUI) StopTimer()               {}
func (*NullUI) PauseTimer()              {}
func (*NullUI) ResumeTimer()             {}

func (*NullUI) ShowRemainingMoves(int)   {}
func (*NullUI) UpdateRemainingMoves(int) {}

func (*NullUI) HideAllModals() {}

func (*NullUI) ShowPrompt(string, []string, func(string)) func() {
	return func() {}
}

func (*NullUI) RegisterSpaceSelection([]string, func(string)) func() {
	return func() {}
}
