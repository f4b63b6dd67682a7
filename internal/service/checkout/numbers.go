package checkout

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/kirinyoku/seatflow/internal/domain"
)

// newConfirmationNumber returns "CN-" followed by 12 uppercase hex digits.
func newConfirmationNumber() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return "CN-" + strings.ToUpper(hex.EncodeToString(b))
}

// invoiceNumber is unique per hold: the session and the hold's full UUID.
func invoiceNumber(h *domain.CheckoutHold) string {
	id := strings.ReplaceAll(h.UUID.String(), "-", "")
	return fmt.Sprintf("INV-%d-%s", h.SessionID, strings.ToUpper(id))
}
