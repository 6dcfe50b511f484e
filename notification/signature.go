package notification

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Header names of a signed delivery.
const (
	HeaderSignature = "X-Signature"
	HeaderRequestID = "X-Request-Id"
)

var (
	// ErrMalformedSignature means the x-signature header lacks ts or v1.
	ErrMalformedSignature = errors.New("malformed x-signature header")
	// ErrInvalidSignature means the v1 digest does not match the manifest.
	ErrInvalidSignature = errors.New("invalid x-signature")
)

// Signature is a parsed x-signature header: "ts=1704908010,v1=618c85...".
type Signature struct {
	Timestamp string
	V1        string
}

// ParseSignature splits an x-signature header. Unknown keys are ignored.
func ParseSignature(header string) (Signature, error) {
	var sig Signature
	for part := range strings.SplitSeq(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			sig.Timestamp = strings.TrimSpace(value)
		case "v1":
			sig.V1 = strings.TrimSpace(value)
		}
	}
	if sig.Timestamp == "" || sig.V1 == "" {
		return Signature{}, fmt.Errorf("%w: %q", ErrMalformedSignature, header)
	}
	return sig, nil
}

// Manifest builds the string Mercado Pago signs. Alphanumeric data IDs are
// signed in lower case.
func Manifest(dataID, requestID, ts string) string {
	return "id:" + strings.ToLower(dataID) + ";request-id:" + requestID + ";ts:" + ts + ";"
}

// Sign returns the hex HMAC-SHA256 of the manifest under secret.
func Sign(secret, dataID, requestID, ts string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(Manifest(dataID, requestID, ts)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks the x-signature header of a delivery against the
// webhook secret. The comparison runs in constant time.
func VerifySignature(secret, xSignature, xRequestID, dataID string) error {
	sig, err := ParseSignature(xSignature)
	if err != nil {
		return err
	}
	got, err := hex.DecodeString(strings.ToLower(sig.V1))
	if err != nil {
		return fmt.Errorf("%w: v1 is not hex", ErrMalformedSignature)
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(Manifest(dataID, xRequestID, sig.Timestamp)))
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}
