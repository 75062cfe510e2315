package validation

import (
	"strings"
	"testing"
)

func fieldsOf(r *Result) map[string]bool {
	fields := make(map[string]bool, len(r.Errors))
	for _, e := range r.Errors {
		fields[e.Field] = true
	}
	return fields
}

func TestRulesAccumulate(t *testing.T) {
	r := &Result{}
	r.Name("name", "")
	r.Description("description", "short")
	r.Email("email", "nope")
	r.Phone("phone", "123")
	r.Price("price", "abc")
	r.Stock("stock", "-3")

	if r.OK() {
		t.Fatal("Result with failures reported OK")
	}
	if len(r.Errors) != 6 {
		t.Fatalf("Expected 6 errors, one per failed rule, got %d: %v", len(r.Errors), r.Errors)
	}

	fields := fieldsOf(r)
	for _, want := range []string{"name", "description", "email", "phone", "price", "stock"} {
		if !fields[want] {
			t.Errorf("No error recorded for field %q", want)
		}
	}
}

func TestNameRule(t *testing.T) {
	pass := []string{"Ab", "Maria Lopez", strings.Repeat("a", NameMaxLen)}
	fail := []string{"", "   ", "a", strings.Repeat("a", NameMaxLen+1)}

	for _, v := range pass {
		r := &Result{}
		r.Name("name", v)
		if !r.OK() {
			t.Errorf("Name(%q) rejected: %v", v, r.Errors)
		}
	}
	for _, v := range fail {
		r := &Result{}
		r.Name("name", v)
		if r.OK() {
			t.Errorf("Name(%q) accepted", v)
		}
	}
}

func TestDescriptionRule(t *testing.T) {
	pass := []string{strings.Repeat("d", DescriptionMinLen), strings.Repeat("d", DescriptionMaxLen)}
	fail := []string{"", "too short", strings.Repeat("d", DescriptionMaxLen+1)}

	for _, v := range pass {
		r := &Result{}
		r.Description("description", v)
		if !r.OK() {
			t.Errorf("Description of length %d rejected: %v", len(v), r.Errors)
		}
	}
	for _, v := range fail {
		r := &Result{}
		r.Description("description", v)
		if r.OK() {
			t.Errorf("Description %q accepted", v)
		}
	}
}

func TestLengthRulesCountCharactersNotBytes(t *testing.T) {
	// Two-byte runes: at the character cap these are over the byte cap.
	r := &Result{}
	r.Name("name", strings.Repeat("ñ", NameMaxLen))
	if !r.OK() {
		t.Errorf("Name of %d multi-byte characters rejected: %v", NameMaxLen, r.Errors)
	}

	r = &Result{}
	r.Name("name", "ñú")
	if !r.OK() {
		t.Errorf("Two-character multi-byte name rejected: %v", r.Errors)
	}

	r = &Result{}
	r.Description("description", strings.Repeat("é", DescriptionMaxLen))
	if !r.OK() {
		t.Errorf("Description of %d multi-byte characters rejected: %v", DescriptionMaxLen, r.Errors)
	}

	r = &Result{}
	r.Description("description", strings.Repeat("é", DescriptionMinLen-1))
	if r.OK() {
		t.Errorf("Description of %d characters accepted", DescriptionMinLen-1)
	}
}

func TestPriceRuleParsesAndBounds(t *testing.T) {
	cases := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"9.99", 9.99, true},
		{"0.01", 0.01, true},
		{"1,250.50", 1250.50, true}, // thousands separators stripped
		{"1,000,000", 1_000_000, true},
		{"1000000.01", 0, false},
		{"0", 0, false},
		{"-5", 0, false},
		{"", 0, false},
		{"abc", 0, false},
	}

	for _, tc := range cases {
		r := &Result{}
		got := r.Price("price", tc.input)
		if r.OK() != tc.ok {
			t.Errorf("Price(%q): ok = %v, want %v (%v)", tc.input, r.OK(), tc.ok, r.Errors)
			continue
		}
		if tc.ok && got != tc.want {
			t.Errorf("Price(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestStockRuleParsesAndBounds(t *testing.T) {
	cases := []struct {
		input string
		want  int
		ok    bool
	}{
		{"0", 0, true},
		{"25", 25, true},
		{"10000", 10_000, true},
		{"10001", 0, false},
		{"-1", 0, false},
		{"", 0, false},
		{"2.5", 0, false},
		{"many", 0, false},
	}

	for _, tc := range cases {
		r := &Result{}
		got := r.Stock("stock", tc.input)
		if r.OK() != tc.ok {
			t.Errorf("Stock(%q): ok = %v, want %v (%v)", tc.input, r.OK(), tc.ok, r.Errors)
			continue
		}
		if tc.ok && got != tc.want {
			t.Errorf("Stock(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestRulesTrimWhitespace(t *testing.T) {
	r := &Result{}
	r.Name("name", "  Maria Lopez  ")
	r.Email("email", " maria@example.com ")
	r.Phone("phone", " 7123-4567 ")
	price := r.Price("price", " 9.99 ")
	stock := r.Stock("stock", " 3 ")

	if !r.OK() {
		t.Fatalf("Padded inputs rejected: %v", r.Errors)
	}
	if price != 9.99 || stock != 3 {
		t.Errorf("Padded inputs parsed wrong: price %v, stock %v", price, stock)
	}
}
