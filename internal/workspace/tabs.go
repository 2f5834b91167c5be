package workspace

// TabID identifies a top-level workspace view.
type TabID string

// Workspace tabs.
const (
	TabInterview TabID = "interview"
	TabJobs      TabID = "jobs"
	TabSettings  TabID = "settings"
)

var tabLabels = map[TabID]string{
	TabInterview: "Interview Practice",
	TabJobs:      "Job Descriptions",
	TabSettings:  "Settings",
}

// AllTabs returns the tabs in navigation order.
func AllTabs() []TabID {
	return []TabID{TabInterview, TabJobs, TabSettings}
}

// ParseTab converts a string into a TabID from the closed set.
func ParseTab(s string) (TabID, error) {
	tab := TabID(s)
	if !tab.Valid() {
		return "", &ValidationError{Field: "tab", Message: "must be one of interview, jobs, settings"}
	}
	return tab, nil
}

// Valid reports whether t is one of the workspace tabs.
func (t TabID) Valid() bool {
	_, ok := tabLabels[t]
	return ok
}

// Label returns the navigation label for the tab.
func (t TabID) Label() string {
	return tabLabels[t]
}

// Tabs holds the active tab and mobile sidebar visibility. It has no side effects outside itself.
type Tabs struct {
	active      TabID
	sidebarOpen bool
}

// NewTabs returns tab state at its defaults: interview tab, sidebar closed.
func NewTabs() *Tabs {
	return &Tabs{active: TabInterview}
}

// SetActive switches to tab and dismisses the sidebar. Every tab is reachable from every tab.
func (t *Tabs) SetActive(tab TabID) error {
	if !tab.Valid() {
		return &ValidationError{Field: "tab", Message: "must be one of interview, jobs, settings"}
	}
	t.active = tab
	t.sidebarOpen = false
	return nil
}

// ToggleSidebar flips sidebar visibility.
func (t *Tabs) ToggleSidebar() {
	t.sidebarOpen = !t.sidebarOpen
}

// CloseSidebar hides the sidebar.
func (t *Tabs) CloseSidebar() {
	t.sidebarOpen = false
}

// Active returns the active tab.
func (t *Tabs) Active() TabID {
	return t.active
}

// SidebarOpen reports whether the sidebar is visible.
func (t *Tabs) SidebarOpen() bool {
	return t.sidebarOpen
}

// Reset restores the defaults.
func (t *Tabs) Reset() {
	t.active = TabInterview
	t.sidebarOpen = false
}
