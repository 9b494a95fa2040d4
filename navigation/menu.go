package navigation

// MenuState is the open state of the mobile overlay
type MenuState int

const (
	Closed MenuState = iota
	Open
)

func (s MenuState) String() string {
	if s == Open {
		return "open"
	}
	return "closed"
}

// Menu is the open/close machine of the mobile overlay. The zero value is
// Closed
type Menu struct {
	state MenuState
}

// State returns the current state
func (m *Menu) State() MenuState { return m.state }

// IsOpen reports whether the overlay is shown
func (m *Menu) IsOpen() bool { return m.state == Open }

// Toggle flips the state, as the hamburger button does
func (m *Menu) Toggle() MenuState {
	if m.state == Open {
		m.state = Closed
	} else {
		m.state = Open
	}
	return m.state
}

// Open shows the overlay
func (m *Menu) Open() { m.state = Open }

// Close hides the overlay. Every closing trigger (overlay click, item
// selection, logout, external link) goes through here
func (m *Menu) Close() { m.state = Closed }

// Select handles a click on a navigation item: it closes the menu and
// navigates to the item. The menu does not react to route changes on its own
func (m *Menu) Select(item Item, r Router) {
	m.Close()
	r.Navigate(item.Path)
}
