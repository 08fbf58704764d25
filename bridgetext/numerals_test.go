package bridgetext

import "testing"

func TestCountWordSpellsOneToTen(t *testing.T) {
	want := []string{"En", "Två", "Tre", "Fyra", "Fem", "Sex", "Sju", "Åtta", "Nio", "Tio"}
	for i, w := range want {
		if got := countWord(i + 1); got != w {
			t.Errorf("countWord(%d) = %q, want %q", i+1, got, w)
		}
	}
}

func TestCountWordFallsBackToDigitsAboveTen(t *testing.T) {
	if got := countWord(11); got != "11" {
		t.Errorf("countWord(11) = %q, want %q", got, "11")
	}
	if got := countWord(42); got != "42" {
		t.Errorf("countWord(42) = %q, want %q", got, "42")
	}
}

func TestCountWordLowerLowercasesFirstLetter(t *testing.T) {
	if got := countWordLower(2); got != "två" {
		t.Errorf("countWordLower(2) = %q, want %q", got, "två")
	}
	if got := countWordLower(8); got != "åtta" {
		t.Errorf("countWordLower(8) = %q, want %q", got, "åtta")
	}
}

func TestCountWordLowerFallsBackToDigits(t *testing.T) {
	if got := countWordLower(15); got != "15" {
		t.Errorf("countWordLower(15) = %q, want %q", got, "15")
	}
}

func TestLowerFirst(t *testing.T) {
	if got := lowerFirst("Tre"); got != "tre" {
		t.Errorf("lowerFirst(Tre) = %q, want %q", got, "tre")
	}
	if got := lowerFirst(""); got != "" {
		t.Errorf("lowerFirst(\"\") = %q, want empty", got)
	}
	if got := lowerFirst("42"); got != "42" {
		t.Errorf("lowerFirst(42) = %q, want unchanged", got)
	}
}
