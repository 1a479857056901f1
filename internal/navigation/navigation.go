// Package navigation resolves tab selections into screen transitions.
package navigation

import "fmt"

// Tab is an entry of the bottom navigation
type Tab string

const (
	TabNone   Tab = ""
	TabHome   Tab = "home"
	TabGarden Tab = "garden"
	TabCamera Tab = "camera"
)

// Screen is a page of the application
type Screen string

const (
	ScreenHome   Screen = "home"
	ScreenGarden Screen = "garden"
	ScreenCamera Screen = "camera"
	ScreenResult Screen = "result"
)

// State is the navigation state carried between screens. The zero value has no tab selected.
type State struct {
	LastSelected Tab
}

// Transition starts To and, when FinishCurrent is set, closes From so the back stack does not grow
type Transition struct {
	From          Screen
	To            Screen
	FinishCurrent bool
}

// ParseTab accepts the lower-case tab names
func ParseTab(value string) (Tab, error) {
	switch tab := Tab(value); tab {
	case TabHome, TabGarden, TabCamera:
		return tab, nil
	default:
		return TabNone, fmt.Errorf("unknown tab %q", value)
	}
}

// ParseScreen accepts the lower-case screen names
func ParseScreen(value string) (Screen, error) {
	switch screen := Screen(value); screen {
	case ScreenHome, ScreenGarden, ScreenCamera, ScreenResult:
		return screen, nil
	default:
		return "", fmt.Errorf("unknown screen %q", value)
	}
}

// ScreenFor returns the screen a tab opens
func ScreenFor(tab Tab) Screen {
	switch tab {
	case TabGarden:
		return ScreenGarden
	case TabCamera:
		return ScreenCamera
	default:
		return ScreenHome
	}
}

// TabFor returns the tab highlighted on a screen. The result screen has none.
func TabFor(screen Screen) Tab {
	switch screen {
	case ScreenHome:
		return TabHome
	case ScreenGarden:
		return TabGarden
	case ScreenCamera:
		return TabCamera
	default:
		return TabNone
	}
}

// Init records tab as the last selection on first screen setup. Later calls keep the state.
func Init(state State, tab Tab) State {
	if state.LastSelected == TabNone {
		state.LastSelected = tab
	}
	return state
}

// Resolve handles a tab selection on the current screen. Selecting the last selected tab
// yields no transition, any other tab yields exactly one.
func Resolve(state State, current Screen, selected Tab) (State, *Transition) {
	if selected == state.LastSelected {
		return state, nil
	}
	state.LastSelected = selected
	return state, &Transition{
		From:          current,
		To:            ScreenFor(selected),
		FinishCurrent: true,
	}
}

// ResolveCamera handles the camera button. It always selects the camera tab and opens the
// camera screen unless it is already showing.
func ResolveCamera(state State, current Screen) (State, *Transition) {
	state.LastSelected = TabCamera
	if current == ScreenCamera {
		return state, nil
	}
	return state, &Transition{
		From:          current,
		To:            ScreenCamera,
		FinishCurrent: true,
	}
}
