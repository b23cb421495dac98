package payments

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Confirmation is the authoritative result of a successful gateway
// verification.
type Confirmation struct {
	OrderName string `json:"orderName"`
}

// VerificationError carries the gateway's failure response verbatim. Callers
// propagate status and body to the client without interpretation.
type VerificationError struct {
	StatusCode int
	Body       []byte
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("payment verification failed: gateway returned %d", e.StatusCode)
}

// Verifier confirms payments against the gateway's REST confirm endpoint
// using secret-key basic auth.
type Verifier struct {
	client     *http.Client
	confirmURL string
	secretKey  string
}

func NewVerifier(confirmURL, secretKey string) *Verifier {
	return &Verifier{
		client:     &http.Client{Timeout: 10 * time.Second},
		confirmURL: confirmURL,
		secretKey:  secretKey,
	}
}

// Verify submits (paymentKey, orderID, amount) for confirmation. A non-2xx
// gateway response becomes a *VerificationError; nothing is retried here.
func (v *Verifier) Verify(ctx context.Context, paymentKey, orderID string, amount int64) (*Confirmation, error) {
	payload, err := json.Marshal(map[string]any{
		"paymentKey": paymentKey,
		"orderId":    orderID,
		"amount":     amount,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal confirm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.confirmURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build confirm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(v.secretKey+":")))

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("confirm payment: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read confirm response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &VerificationError{StatusCode: resp.StatusCode, Body: body}
	}

	var conf Confirmation
	if err := json.Unmarshal(body, &conf); err != nil {
		return nil, fmt.Errorf("decode confirm response: %w", err)
	}
	return &conf, nil
}
