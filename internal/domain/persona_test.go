package domain

import "testing"

func TestLoadPersonasBuiltIn(t *testing.T) {
	t.Parallel()

	p, err := LoadPersonas()
	if err != nil {
		t.Fatalf("LoadPersonas failed: %v", err)
	}

	ids := p.IDs()
	if len(ids) != 4 {
		t.Fatalf("expected 4 personas, got %d (%v)", len(ids), ids)
	}
	if got := p.Default().ID; got != "safety_guardian" {
		t.Fatalf("default persona = %q, want safety_guardian", got)
	}
	for _, id := range []string{"safety_guardian", "field_partner", "executive_advisor", "data_detective"} {
		d, ok := p.Get(id)
		if !ok {
			t.Fatalf("persona %q missing", id)
		}
		if d.DisplayName == "" || d.EmojiTag == "" || d.GreetingPrefix == "" {
			t.Fatalf("persona %q incomplete: %+v", id, d)
		}
	}
	if _, ok := p.Get("pirate"); ok {
		t.Fatal("unknown persona should not resolve")
	}
}

func TestParsePersonasRejectsBadRegistries(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":           "personas: []\n",
		"missing id":      "personas:\n  - name: Nobody\n",
		"duplicate":       "personas:\n  - id: a\n  - id: a\n",
		"unknown default": "default: b\npersonas:\n  - id: a\n",
		"not yaml":        "personas: [",
	}
	for name, doc := range cases {
		if _, err := ParsePersonas([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestParsePersonasDefaultsToFirst(t *testing.T) {
	t.Parallel()

	p, err := ParsePersonas([]byte("personas:\n  - id: a\n    name: A\n  - id: b\n    name: B\n"))
	if err != nil {
		t.Fatalf("ParsePersonas failed: %v", err)
	}
	if p.Default().ID != "a" {
		t.Fatalf("default = %q, want a", p.Default().ID)
	}
}

func TestIntentValid(t *testing.T) {
	t.Parallel()

	for _, i := range Intents {
		if !i.Valid() {
			t.Fatalf("%q should be valid", i)
		}
	}
	if Intent("weather").Valid() {
		t.Fatal("unknown intent reported valid")
	}
}
