package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAlertMatches(t *testing.T) {
	target := decimal.NewFromInt(3000)
	cases := []struct {
		name      string
		condition Condition
		price     string
		want      bool
	}{
		{"above crossed", Above, "3050", true},
		{"above boundary", Above, "3000", true},
		{"above not yet", Above, "2999.99", false},
		{"below crossed", Below, "2950", true},
		{"below boundary", Below, "3000", true},
		{"below not yet", Below, "3000.01", false},
		{"unknown condition", Condition("sideways"), "3000", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := Alert{TargetPrice: target, Condition: tc.condition}
			if got := a.Matches(decimal.RequireFromString(tc.price)); got != tc.want {
				t.Fatalf("Matches(%s) = %v, want %v", tc.price, got, tc.want)
			}
		})
	}
}

func TestParseCondition(t *testing.T) {
	for in, want := range map[string]Condition{"": Above, "above": Above, "ABOVE": Above, " below ": Below} {
		got, err := ParseCondition(in)
		if err != nil {
			t.Fatalf("ParseCondition(%q): unexpected error %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseCondition(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := ParseCondition("sideways"); err == nil {
		t.Fatal("expected error for unknown condition")
	}
}
