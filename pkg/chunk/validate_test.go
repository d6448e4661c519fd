package chunk

import (
	"errors"
	"reflect"
	"testing"
)

func TestEntities_Valid(t *testing.T) {
	got, err := Entities([]string{" Q1 ", "P31", "Q1", "", "Q42"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := []string{"Q1", "P31", "Q42"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Entities = %v, want %v", got, want)
	}
}

func TestEntities_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		items []string
		item  string
	}{
		{"bad id", []string{"Q1", "Q1", "Q2", "bad id"}, "bad id"},
		{"lowercase", []string{"q5"}, "q5"},
		{"bare prefix", []string{"Q"}, "Q"},
		{"suffix", []string{"Q5x"}, "Q5x"},
		{"url form", []string{"http://www.wikidata.org/entity/Q5"}, "http://www.wikidata.org/entity/Q5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Entities(tt.items)
			var invalid *InvalidInputError
			if !errors.As(err, &invalid) {
				t.Fatalf("err = %v, want *InvalidInputError", err)
			}
			if invalid.Item != tt.item {
				t.Errorf("offending item = %q, want %q", invalid.Item, tt.item)
			}
		})
	}
}

func TestEntities_Empty(t *testing.T) {
	for _, items := range [][]string{nil, {}, {"", "  ", "\t"}} {
		if _, err := Entities(items); err == nil {
			t.Errorf("Entities(%q) should fail", items)
		}
	}
}

func TestTitles_Valid(t *testing.T) {
	got, err := Titles([]string{"Max Planck", "Max_Planck", "Max Planck", " Humanism "})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// "_" is allowed; duplicates collapse to the first occurrence.
	want := []string{"Max Planck", "Max_Planck", "Humanism"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Titles = %v, want %v", got, want)
	}
}

func TestTitles_ForbiddenCharacters(t *testing.T) {
	for _, title := range []string{"a#b", "a<b", "a>b", "a[b", "a]b", "a{b", "a}b", "a|b"} {
		t.Run(title, func(t *testing.T) {
			_, err := Titles([]string{"ok", title})
			var invalid *InvalidInputError
			if !errors.As(err, &invalid) {
				t.Fatalf("err = %v, want *InvalidInputError", err)
			}
			if invalid.Item != title {
				t.Errorf("offending item = %q, want %q", invalid.Item, title)
			}
		})
	}
}

func TestDedup_Idempotent(t *testing.T) {
	items := []string{"Q3", "Q1", "Q3", "Q2", "Q1", "Q3"}

	once := dedup(items)
	twice := dedup(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("dedup(dedup(L)) = %v, want %v", twice, once)
	}
	want := []string{"Q3", "Q1", "Q2"}
	if !reflect.DeepEqual(once, want) {
		t.Errorf("dedup = %v, want first-occurrence order %v", once, want)
	}
}
