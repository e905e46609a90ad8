package action

import (
	"sort"
	"strings"
	"time"
)

// ItemType distinguishes menu rows.
type ItemType int

const (
	ItemAction ItemType = iota
	ItemCategory
	ItemSeparator
)

func (t ItemType) String() string {
	switch t {
	case ItemAction:
		return "action"
	case ItemCategory:
		return "category"
	case ItemSeparator:
		return "separator"
	default:
		return "unknown"
	}
}

// DividerValue is the value of the separator closing the "New" section.
const DividerValue = "__sep_divider"

// DefaultNewWindow is how long an action counts as new after it was added.
const DefaultNewWindow = 7 * 24 * time.Hour

// MenuItem is a view-level projection of an action or category.
type MenuItem struct {
	Type        ItemType
	Label       string
	Emoji       string
	Description string
	// Value is the action id for action rows and the category segment for
	// category rows.
	Value string
	IsNew bool
}

// BuildMenuItems lists what the menu at path shows: one category row for
// each distinct next segment below path and one action row for each visible
// action whose category is exactly path. Categories sort before actions and
// each group is alphabetical by label. When path mixes new and older
// actions, the new ones are repeated in a leading "New" section.
func BuildMenuItems(actions []Action, path []string, now time.Time, window time.Duration) []MenuItem {
	var cats, acts []MenuItem
	seenCat := make(map[string]bool)
	newCount := 0

	for _, a := range actions {
		if !hasPrefix(a.Category, path) {
			continue
		}
		if len(a.Category) > len(path) {
			seg := a.Category[len(path)]
			if !seenCat[seg] {
				seenCat[seg] = true
				cats = append(cats, MenuItem{Type: ItemCategory, Label: seg, Value: seg})
			}
			continue
		}
		item := actionItem(a)
		item.IsNew = a.IsNew(now, window)
		if item.IsNew {
			newCount++
		}
		acts = append(acts, item)
	}

	sortItems(cats)
	sortItems(acts)

	items := make([]MenuItem, 0, len(cats)+len(acts)+newCount+2)
	if newCount > 0 && newCount < len(acts) {
		items = append(items, MenuItem{Type: ItemSeparator, Label: "New", Value: "__sep_new"})
		for _, it := range acts {
			if it.IsNew {
				items = append(items, it)
			}
		}
		items = append(items, MenuItem{Type: ItemSeparator, Value: DividerValue})
	}
	items = append(items, cats...)
	items = append(items, acts...)
	return items
}

func actionItem(a Action) MenuItem {
	return MenuItem{
		Type:        ItemAction,
		Label:       a.Meta.Name,
		Emoji:       a.Meta.Emoji,
		Description: a.Meta.Description,
		Value:       a.ID,
	}
}

func hasPrefix(category, path []string) bool {
	if len(category) < len(path) {
		return false
	}
	for i, p := range path {
		if category[i] != p {
			return false
		}
	}
	return true
}

func sortItems(items []MenuItem) {
	sort.SliceStable(items, func(i, j int) bool {
		li, lj := strings.ToLower(items[i].Label), strings.ToLower(items[j].Label)
		if li != lj {
			return li < lj
		}
		return items[i].Value < items[j].Value
	})
}
