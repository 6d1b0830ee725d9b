package query

import (
	"reflect"
	"testing"
)

func TestParseSplitsPositiveAndNegative(t *testing.T) {
	got := QueryParser{}.Parse("dog -cat park")
	if got.PositiveText != "dog park" {
		t.Fatalf("positive text = %q", got.PositiveText)
	}
	if !reflect.DeepEqual(got.NegativeTerms, []string{"cat"}) {
		t.Fatalf("negative terms = %v", got.NegativeTerms)
	}
}

func TestParseHandlesNotKeyword(t *testing.T) {
	got := QueryParser{}.Parse("dog NOT cat")
	if got.PositiveText != "dog" {
		t.Fatalf("positive text = %q", got.PositiveText)
	}
	if !reflect.DeepEqual(got.NegativeTerms, []string{"cat"}) {
		t.Fatalf("negative terms = %v", got.NegativeTerms)
	}
}

func TestParsePreservesQuotedPhrase(t *testing.T) {
	got := QueryParser{}.Parse(`"red car" at night`)
	if !got.HasQuotedPhrase {
		t.Fatal("expected HasQuotedPhrase")
	}
	if got.PositiveText != `"red car" at night` {
		t.Fatalf("positive text = %q", got.PositiveText)
	}
}

func TestParseIgnoresBareHyphen(t *testing.T) {
	got := QueryParser{}.Parse("a - b")
	if !reflect.DeepEqual(got.NegativeTerms, []string(nil)) {
		t.Fatalf("expected no negative terms for a lone hyphen, got %v", got.NegativeTerms)
	}
	if got.PositiveText != "a - b" {
		t.Fatalf("positive text = %q", got.PositiveText)
	}
}

func TestFTSProjectionAppendsNotClauses(t *testing.T) {
	parsed := ParsedQuery{PositiveText: "dog park", NegativeTerms: []string{"cat", "leash"}}
	got := parsed.FTSProjection()
	want := "dog park NOT cat NOT leash"
	if got != want {
		t.Fatalf("projection = %q, want %q", got, want)
	}
}

func TestParseMixedNegativeFormsAndQuotedPhrase(t *testing.T) {
	got := QueryParser{}.Parse(`-x NOT y "a b" c`)
	if got.PositiveText != `"a b" c` {
		t.Fatalf("positive text = %q", got.PositiveText)
	}
	if !reflect.DeepEqual(got.NegativeTerms, []string{"x", "y"}) {
		t.Fatalf("negative terms = %v", got.NegativeTerms)
	}
	if !got.HasQuotedPhrase {
		t.Fatal("expected HasQuotedPhrase")
	}
}

func TestFTSProjectionSkipsEmptyNegatives(t *testing.T) {
	parsed := ParsedQuery{PositiveText: "dog", NegativeTerms: []string{""}}
	if got := parsed.FTSProjection(); got != "dog" {
		t.Fatalf("projection = %q, want %q", got, "dog")
	}
}
