package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

type RegistrationStatus string

const (
	RegistrationOk     RegistrationStatus = "registered"
	RegistrationFailed RegistrationStatus = "failed"
)

// RegisterWithBackend announces the wallet's public key to the backend
// registry. The call is best effort: registration is an eventually
// consistent side effect, so a failure is logged and swallowed, reported
// only through the returned status.
func RegisterWithBackend(ctx context.Context, client *http.Client, baseUrl string, publicKey string) RegistrationStatus {
	payload, err := json.Marshal(map[string]string{"publicKey": publicKey})
	if err != nil {
		slog.Warn("wallet: registration payload error", "error", err)
		return RegistrationFailed
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		baseUrl+"/wallet/register", bytes.NewReader(payload))
	if err != nil {
		slog.Warn("wallet: registration request error", "error", err)
		return RegistrationFailed
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		slog.Warn("wallet: backend registration failed", "error", err)
		return RegistrationFailed
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		slog.Warn("wallet: backend registration rejected", "status", res.StatusCode)
		return RegistrationFailed
	}
	slog.Debug("wallet: registered with backend", "publicKey", publicKey)
	return RegistrationOk
}
