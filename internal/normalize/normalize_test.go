package normalize

import "testing"

func TestText_AccentInsensitive(t *testing.T) {
	if Text("Espírito") != Text("Espirito") {
		t.Fatalf("expected accents to be ignored: %q vs %q", Text("Espírito"), Text("Espirito"))
	}
	if got := Text("FAGNER do Espírito Santo Sá"); got != "fagner do espirito santo sa" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}

func TestText_BreaksAndWhitespace(t *testing.T) {
	in := "  Fagner\r\ndo\tEspírito\fSanto   \n\n Sá  "
	if got := Text(in); got != "fagner do espirito santo sa" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}

func TestText_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"Ação Ñandú Øre Ça va?",
		"Line one\nLine two\r\n\tTabbed",
		"İstanbul ŞIMŞEK",
		"résumé naïve",
	}
	for _, in := range inputs {
		once := Text(in)
		if twice := Text(once); twice != once {
			t.Fatalf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestText_Empty(t *testing.T) {
	if Text("") != "" || Text(" \n\t ") != "" {
		t.Fatalf("expected empty output for blank input")
	}
}
