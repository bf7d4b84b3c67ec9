package visit

import "fmt"

// Tab selects which entries the list view shows.
type Tab string

// TabAll shows every entry. The other tabs are one per status.
const TabAll Tab = "all"

// Tabs returns every tab in display order.
func Tabs() []Tab {
	tabs := []Tab{TabAll}
	for _, s := range Statuses {
		tabs = append(tabs, Tab(s))
	}
	return tabs
}

// ParseTab converts user input into a Tab. Empty input selects TabAll.
func ParseTab(s string) (Tab, error) {
	if s == "" || Tab(s) == TabAll {
		return TabAll, nil
	}
	if Status(s).IsValid() {
		return Tab(s), nil
	}
	return "", fmt.Errorf("invalid tab %q", s)
}

// Label returns a human-readable label for the tab.
func (t Tab) Label() string {
	if t == TabAll {
		return "All"
	}
	return Status(t).Label()
}

// Matches reports whether the entry belongs in the tab.
func (t Tab) Matches(e Entry) bool {
	return t == TabAll || Tab(e.EffectiveStatus()) == t
}

// Filter returns the entries shown under the tab, preserving order.
func Filter(entries []Entry, tab Tab) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if tab.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// Counts returns the number of entries under every tab.
func Counts(entries []Entry) map[Tab]int {
	counts := make(map[Tab]int, len(Statuses)+1)
	for _, t := range Tabs() {
		counts[t] = 0
	}
	for _, e := range entries {
		counts[TabAll]++
		counts[Tab(e.EffectiveStatus())]++
	}
	return counts
}
