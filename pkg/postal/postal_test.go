package postal

import "testing"

func TestIsValidZIPCode(t *testing.T) {
	valid := []string{"94103", "10001-1234", " 30301 "}
	for _, s := range valid {
		if !IsValidZIPCode(s) {
			t.Errorf("IsValidZIPCode(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "9410", "941031", "94103-12", "ABCDE", "94103-12345"}
	for _, s := range invalid {
		if IsValidZIPCode(s) {
			t.Errorf("IsValidZIPCode(%q) = true, want false", s)
		}
	}
}

func TestParseZIPCode(t *testing.T) {
	zip, plus4, ok := ParseZIPCode("94103-1234")
	if !ok || zip != "94103" || plus4 != "1234" {
		t.Fatalf("ParseZIPCode: got %q %q %v", zip, plus4, ok)
	}

	zip, plus4, ok = ParseZIPCode("94103")
	if !ok || zip != "94103" || plus4 != "" {
		t.Fatalf("ParseZIPCode: got %q %q %v", zip, plus4, ok)
	}

	if _, _, ok := ParseZIPCode("1234"); ok {
		t.Fatal("ParseZIPCode accepted 4 digits")
	}
}
