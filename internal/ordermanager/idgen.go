package ordermanager

import (
	"strings"

	"github.com/google/uuid"
)

// clientOrderPrefix matches the venue-side prefix every client order ID must
// carry (spec §6 default: "meld_").
const clientOrderPrefix = "meld_"

// idBudget is the maximum total client order ID length the venues accept.
const idBudget = 32

// newClientOrderID builds "<prefix><exchange>_<uuid suffix>", truncating the
// uuid suffix so the whole ID fits idBudget characters. Grounded on
// order_manger.py::_create_id's exact formula, using google/uuid for the
// random component instead of Python's uuid1().hex.
func newClientOrderID(exchange string) string {
	exchange = strings.ToLower(exchange)
	head := clientOrderPrefix + exchange + "_"
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")

	budget := idBudget - len(head)
	if budget < 0 {
		budget = 0
	}
	if budget > len(raw) {
		budget = len(raw)
	}
	return head + raw[:budget]
}
