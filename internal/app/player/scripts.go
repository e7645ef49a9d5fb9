package player

import "fmt"

// Transport button selectors of the player page.
const (
	PlayButton     = ".play-btn"
	PauseButton    = ".pause-btn"
	NextButton     = ".next-btn"
	PreviousButton = ".prev-btn"
)

// ClickScript returns a script that clicks the first element matching
// selector. The script evaluates to the selector when it clicked and to ""
// when no element matches.
func ClickScript(selector string) string {
	return fmt.Sprintf(
		`(function(){var b=document.querySelector(%[1]q);if(!b){return "";}b.dispatchEvent(new MouseEvent("click",{bubbles:true}));return %[1]q;})();`,
		selector)
}

// PlayPauseScript returns a script that clicks pause when the pause button
// is rendered, and play otherwise. It evaluates to the selector it clicked.
func PlayPauseScript() string {
	return fmt.Sprintf(
		`(function(){var p=document.querySelector(%[1]q);if(p&&p.offsetParent!==null){p.dispatchEvent(new MouseEvent("click",{bubbles:true}));return %[1]q;}var b=document.querySelector(%[2]q);if(!b){return "";}b.dispatchEvent(new MouseEvent("click",{bubbles:true}));return %[2]q;})();`,
		PauseButton, PlayButton)
}

// stateAfterClick maps the clicked button to the resulting playback state.
func stateAfterClick(selector string) (State, bool) {
	switch selector {
	case PlayButton:
		return StatePlaying, true
	case PauseButton:
		return StatePaused, true
	}
	return StateUnknown, false
}
