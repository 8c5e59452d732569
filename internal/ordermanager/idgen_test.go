package ordermanager

import (
	"strings"
	"testing"
)

func TestNewClientOrderIDShapeAndBudget(t *testing.T) {
	t.Parallel()

	id := newClientOrderID("FMFW")
	if !strings.HasPrefix(id, "meld_fmfw_") {
		t.Fatalf("id = %q, want prefix %q", id, "meld_fmfw_")
	}
	if len(id) > idBudget {
		t.Fatalf("len(id) = %d, want <= %d", len(id), idBudget)
	}
}

func TestNewClientOrderIDIsUnique(t *testing.T) {
	t.Parallel()

	a := newClientOrderID("BITRUE")
	b := newClientOrderID("BITRUE")
	if a == b {
		t.Fatalf("two successive IDs collided: %q", a)
	}
}

func TestNewClientOrderIDLowercasesExchange(t *testing.T) {
	t.Parallel()

	id := newClientOrderID("BITRUE")
	if !strings.HasPrefix(id, "meld_bitrue_") {
		t.Fatalf("id = %q, want lowercased exchange in prefix", id)
	}
}
