// Package fingerprint derives the client fingerprint sent with every API request.
// It lets the backend tie a session to the device it was issued to.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
)

// Header carries the fingerprint on outgoing requests.
const Header = "X-Client-Fingerprint"

var ErrNoDeviceID = errors.New("device id is empty")

// FromDevice hashes the device id together with the client details, such as the
// user agent. Equal inputs always yield the same fingerprint.
func FromDevice(deviceID string, details ...string) (string, error) {
	if strings.TrimSpace(deviceID) == "" {
		return "", ErrNoDeviceID
	}

	h := sha256.New()
	h.Write([]byte(deviceID))

	for _, val := range details {
		slog.Debug("Building fingerprint", "detail", val)
		// separator keeps ("ab", "c") and ("a", "bc") apart
		h.Write([]byte{0})
		h.Write([]byte(val))
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
