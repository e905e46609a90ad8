// Package search ranks menu items against a fuzzy query.
package search

import (
	"sort"

	"github.com/sahilm/fuzzy"

	"github.com/five82/kadai/internal/action"
)

// labels adapts a menu item slice to fuzzy.Source.
type labels []action.MenuItem

func (l labels) String(i int) string { return l[i].Label }
func (l labels) Len() int            { return len(l) }

// Filter returns the items matching query, best match first. An empty query
// returns items unchanged. Separators are dropped and items sharing a value
// are collapsed to their first occurrence before matching. Equal scores keep
// their input order, so filtering an already filtered list with the same
// query returns it unchanged.
func Filter(items []action.MenuItem, query string) []action.MenuItem {
	if query == "" {
		return items
	}

	seen := make(map[string]bool, len(items))
	domain := make(labels, 0, len(items))
	for _, it := range items {
		if it.Type == action.ItemSeparator || seen[it.Value] {
			continue
		}
		seen[it.Value] = true
		domain = append(domain, it)
	}

	matches := fuzzy.FindFrom(query, domain)
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Index < matches[j].Index
	})

	out := make([]action.MenuItem, 0, len(matches))
	for _, m := range matches {
		out = append(out, domain[m.Index])
	}
	return out
}
