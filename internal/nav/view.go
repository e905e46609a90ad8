package nav

import (
	"github.com/five82/kadai/internal/action"
)

// ViewModel is everything a renderer needs to draw the top screen.
type ViewModel struct {
	Screen      Screen
	Breadcrumbs []string

	// Menu screens.
	Items     []action.MenuItem
	Selected  int
	Searching bool
	Query     string
	Empty     string

	// Confirm and output screens. Err wraps action.ErrNotFound when the
	// screen names an id that is not in the current list.
	Action *action.Action
	Err    error

	// Share screens.
	Actions []action.Action

	Notice string
}

// View projects the machine state into a ViewModel.
func (m *Machine) View() ViewModel {
	top := m.Top()
	vm := ViewModel{
		Screen:      top,
		Breadcrumbs: m.breadcrumbs(),
		Notice:      m.notice,
	}
	switch top.Kind {
	case KindMenu:
		vm.Items = m.Items()
		vm.Selected = m.selected
		vm.Searching = m.searching
		vm.Query = m.query
		if len(vm.Items) == 0 {
			if m.query != "" {
				vm.Empty = "No matching items"
			} else {
				vm.Empty = "No actions found"
			}
		}
	case KindConfirm, KindOutput:
		a, err := action.Find(m.actions, top.ActionID)
		if err != nil {
			vm.Err = err
		} else {
			vm.Action = &a
		}
	case KindShare:
		for _, id := range top.ActionIDs {
			if a, err := action.Find(m.actions, id); err == nil {
				vm.Actions = append(vm.Actions, a)
			}
		}
	}
	return vm
}

func (m *Machine) breadcrumbs() []string {
	top := m.Top()
	crumbs := []string{"kadai"}
	switch top.Kind {
	case KindMenu:
		crumbs = append(crumbs, top.Path...)
	case KindConfirm, KindOutput:
		if a, err := action.Find(m.actions, top.ActionID); err == nil {
			crumbs = append(crumbs, a.Category...)
			crumbs = append(crumbs, a.Name())
		} else {
			crumbs = append(crumbs, top.ActionID)
		}
	case KindShare:
		crumbs = append(crumbs, "share")
	}
	return crumbs
}
