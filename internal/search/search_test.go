package search

import (
	"reflect"
	"testing"

	"github.com/five82/kadai/internal/action"
)

func item(label, value string) action.MenuItem {
	return action.MenuItem{Type: action.ItemAction, Label: label, Value: value}
}

func sampleItems() []action.MenuItem {
	return []action.MenuItem{
		{Type: action.ItemSeparator, Label: "New", Value: "__sep_new"},
		item("Echo Environment", "echo-env"),
		{Type: action.ItemSeparator, Value: action.DividerValue},
		{Type: action.ItemCategory, Label: "database", Value: "database"},
		item("Deploy Staging", "deploy"),
		item("Echo Environment", "echo-env"),
		item("Hello World", "hello"),
	}
}

func values(items []action.MenuItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Value)
	}
	return out
}

func TestFilter_EmptyQueryReturnsInput(t *testing.T) {
	items := sampleItems()
	got := Filter(items, "")
	if !reflect.DeepEqual(got, items) {
		t.Fatalf("Filter(\"\") = %v, want input unchanged", values(got))
	}
}

func TestFilter_FuzzyMatchesAndDedupes(t *testing.T) {
	got := Filter(sampleItems(), "echenv")
	if len(got) != 1 || got[0].Value != "echo-env" {
		t.Fatalf("Filter(echenv) = %v, want [echo-env]", values(got))
	}
}

func TestFilter_ExcludesSeparators(t *testing.T) {
	got := Filter(sampleItems(), "e")
	for _, it := range got {
		if it.Type == action.ItemSeparator {
			t.Fatalf("separator in results: %v", values(got))
		}
	}
}

func TestFilter_RanksCompactMatchesFirst(t *testing.T) {
	items := []action.MenuItem{
		item("Database Backup", "backup"),
		item("Deploy", "deploy"),
	}
	got := Filter(items, "dep")
	if len(got) == 0 || got[0].Value != "deploy" {
		t.Fatalf("Filter(dep) = %v, want deploy first", values(got))
	}
}

func TestFilter_NoMatches(t *testing.T) {
	if got := Filter(sampleItems(), "zzz"); len(got) != 0 {
		t.Fatalf("Filter(zzz) = %v, want empty", values(got))
	}
}

func TestFilter_Idempotent(t *testing.T) {
	for _, q := range []string{"", "e", "o", "dep", "hw", "database"} {
		once := Filter(sampleItems(), q)
		twice := Filter(once, q)
		if !reflect.DeepEqual(values(once), values(twice)) {
			t.Fatalf("query %q: once = %v, twice = %v", q, values(once), values(twice))
		}
	}
}
