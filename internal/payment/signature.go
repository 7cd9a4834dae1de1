// Package payment verifies payment confirmations issued by the external
// gateway. It is the only place where gateway-approved data is trusted.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/manasdevX/ShopEasy-sub001/internal/domain"
)

type Confirmation struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Sign computes the hex HMAC-SHA256 of "<orderId>|<paymentId>".
func (v *Verifier) Sign(gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the confirmation in constant time.
func (v *Verifier) Verify(c Confirmation) error {
	if len(v.secret) == 0 {
		return errors.New("payment: verifier has no secret configured")
	}
	if strings.TrimSpace(c.GatewayOrderID) == "" || strings.TrimSpace(c.GatewayPaymentID) == "" || strings.TrimSpace(c.Signature) == "" {
		return fmt.Errorf("%w: gatewayOrderId, gatewayPaymentId and signature are required", domain.ErrValidation)
	}
	expected := v.Sign(c.GatewayOrderID, c.GatewayPaymentID)
	if !hmac.Equal([]byte(expected), []byte(c.Signature)) {
		return domain.ErrSignatureMismatch
	}
	return nil
}
