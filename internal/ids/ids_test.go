package ids

import (
	"errors"
	"testing"
)

func TestUUIDProviderIssuesParsableIdentifiers(t *testing.T) {
	provider := NewUUIDProvider()
	first, err := provider.NewID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := provider.NewID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct identifiers, got %q twice", first)
	}
	if _, err := Parse(first); err != nil {
		t.Fatalf("expected issued identifier to parse: %v", err)
	}
	if first >= second {
		t.Fatalf("expected v7 identifiers to sort by issue order: %q >= %q", first, second)
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "blank", input: "   "},
		{name: "object-id", input: "652f1c0e9b1e8a0012345678"},
		{name: "garbage", input: "not-an-id"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := Parse(testCase.input); !errors.Is(err, ErrInvalidID) {
				t.Fatalf("expected ErrInvalidID, got %v", err)
			}
		})
	}
}

func TestParseNormalizesCase(t *testing.T) {
	parsed, err := Parse(" 0192F0C4-7B1A-7C3D-9E8F-0123456789AB ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != "0192f0c4-7b1a-7c3d-9e8f-0123456789ab" {
		t.Fatalf("unexpected canonical form %q", parsed)
	}
}
