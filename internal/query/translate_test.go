package query

import (
	"context"
	"testing"
)

func TestDictionaryTranslatorEnglishToCJK(t *testing.T) {
	d := NewDictionaryTranslator(map[string]string{"dog": "狗", "park": "公园"})
	got, err := d.Translate(context.Background(), "dog park", DirEnglishToCJK)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if got != "狗 公园" {
		t.Fatalf("translated = %q", got)
	}
}

func TestDictionaryTranslatorCJKToEnglishDerivesReverseMap(t *testing.T) {
	d := NewDictionaryTranslator(map[string]string{"dog": "狗"})
	got, err := d.Translate(context.Background(), "狗", DirCJKToEnglish)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if got != "dog" {
		t.Fatalf("translated = %q", got)
	}
}

func TestDictionaryTranslatorAlwaysAvailable(t *testing.T) {
	d := NewDictionaryTranslator(nil)
	if !d.IsAvailable() {
		t.Fatal("expected dictionary translator to always be available")
	}
}

func TestDictionaryTranslatorPassesThroughUnknownWords(t *testing.T) {
	d := NewDictionaryTranslator(map[string]string{"dog": "狗"})
	got, _ := d.Translate(context.Background(), "dog running", DirEnglishToCJK)
	if got != "狗 running" {
		t.Fatalf("translated = %q", got)
	}
}

func TestNeuralTranslatorUnavailableWithoutAPIKey(t *testing.T) {
	n := NewNeuralTranslator("https://example.invalid/translate", "", nil)
	if n.IsAvailable() {
		t.Fatal("expected neural translator to be unavailable without an API key")
	}
	if _, err := n.Translate(context.Background(), "dog", DirEnglishToCJK); err == nil {
		t.Fatal("expected an error when no API key is configured")
	}
}

func TestNeuralTranslatorAvailableWithAPIKey(t *testing.T) {
	n := NewNeuralTranslator("https://example.invalid/translate", "secret-key", nil)
	if !n.IsAvailable() {
		t.Fatal("expected neural translator to be available with an API key")
	}
}
