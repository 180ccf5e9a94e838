package activities

import (
	"reflect"
	"strings"
	"testing"
)

func TestParsePlanItems(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"Algebra\nGeometry\n\n", []string{"Algebra", "Geometry"}},
		{"  Fractions  \n\t\nDecimals", []string{"Fractions", "Decimals"}},
		{"\n\n  \n", []string{}},
		{"", []string{}},
		{"Single topic", []string{"Single topic"}},
	}
	for _, tc := range cases {
		got := parsePlanItems(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("parsePlanItems(%q): got %v want %v", tc.in, got, tc.want)
		}
	}
}

func TestPlanPromptMentionsTag(t *testing.T) {
	p := planPrompt("linear algebra")
	if len(p) == 0 {
		t.Fatalf("empty prompt")
	}
	if want := "linear algebra"; !strings.Contains(p, want) {
		t.Fatalf("prompt %q does not mention %q", p, want)
	}
}
