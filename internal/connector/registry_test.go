package connector

import "testing"

func TestNewUnknownVenueIsError(t *testing.T) {
	t.Parallel()

	_, err := New(VenueConfig{Name: "NOT_A_VENUE"})
	if err == nil {
		t.Fatal("expected an error for an unregistered venue name")
	}
}

func TestNewBuiltinVenuesAreRegistered(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"FMFW", "BITRUE"} {
		c, err := New(VenueConfig{Name: name, Logger: discardLogger()})
		if err != nil {
			t.Fatalf("New(%s) error: %v", name, err)
		}
		if c == nil {
			t.Fatalf("New(%s) returned a nil connector", name)
		}
		if c.Name() != name {
			t.Fatalf("c.Name() = %s, want %s", c.Name(), name)
		}
	}
}
