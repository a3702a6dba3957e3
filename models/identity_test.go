package models

import "testing"

func TestNameKeyedIdentity(t *testing.T) {
	ident := NameKeyedIdentity{}

	cases := []struct {
		name  string
		value string
	}{
		{"cyrillic subject", "Математика"},
		{"teacher full name", "Иванов Иван Иванович"},
		{"latin name", "Physics"},
		{"empty name", ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			first := ident.IDFor(tc.value)
			if first == 0 {
				t.Fatal("id must never be zero")
			}
			if second := ident.IDFor(tc.value); second != first {
				t.Errorf("same name produced %d then %d", first, second)
			}
		})
	}

	if ident.IDFor("Математика") == ident.IDFor("Физика") {
		t.Error("distinct names must produce distinct ids")
	}
}

func TestFreshIdentity(t *testing.T) {
	ident := FreshIdentity{}

	seen := make(map[uint]bool)
	for i := 0; i < 100; i++ {
		id := ident.IDFor("")
		if id == 0 {
			t.Fatal("id must never be zero")
		}
		if seen[id] {
			t.Fatal("fresh ids repeated within one batch")
		}
		seen[id] = true
	}
}
