// internal/license/keygen.go
package license

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"
	"sort"
	"strings"

	"github.com/keygen-sh/keygen-go/v3"
	"go.uber.org/zap"
)

// Validator gates startup behind a keygen.sh license check. The gate
// is optional: callers skip construction when no key is configured,
// and a failed validation degrades to a warning banner rather than
// aborting a read-mostly client.
type Validator struct {
	logger *zap.Logger
	key    string
}

// NewValidator configures the keygen client. account and product
// identify the keygen.sh tenant, key is the user's license key.
func NewValidator(account, product, key string, logger *zap.Logger) *Validator {
	keygen.Account = account
	keygen.Product = product
	keygen.LicenseKey = key

	return &Validator{
		logger: logger.Named("license"),
		key:    key,
	}
}

// Validate checks the license against keygen.sh and activates this
// machine on first use.
func (v *Validator) Validate(ctx context.Context) error {
	fingerprint, err := Fingerprint()
	if err != nil {
		return fmt.Errorf("failed to generate machine fingerprint: %w", err)
	}

	v.logger.Info("validating license",
		zap.String("key", maskKey(v.key)),
		zap.String("fingerprint", fingerprint[:12]))

	lic, err := keygen.Validate(ctx, fingerprint)
	switch {
	case errors.Is(err, keygen.ErrLicenseNotActivated):
		v.logger.Info("license not activated on this machine, activating")
		machine, activateErr := lic.Activate(ctx, fingerprint)
		if activateErr != nil {
			return fmt.Errorf("failed to activate license: %w", activateErr)
		}
		v.logger.Info("license activated", zap.String("machine_id", machine.ID))

	case errors.Is(err, keygen.ErrLicenseExpired):
		return fmt.Errorf("license has expired")

	case err != nil:
		return fmt.Errorf("license validation failed: %w", err)
	}

	if lic == nil {
		return fmt.Errorf("license not found")
	}

	v.logger.Info("license valid", zap.String("license_id", lic.ID))
	return nil
}

// Heartbeat re-validates to keep the machine activation fresh.
func (v *Validator) Heartbeat(ctx context.Context) error {
	fingerprint, err := Fingerprint()
	if err != nil {
		return fmt.Errorf("failed to generate machine fingerprint: %w", err)
	}
	if _, err := keygen.Validate(ctx, fingerprint); err != nil {
		return fmt.Errorf("heartbeat failed: %w", err)
	}
	v.logger.Debug("license heartbeat sent")
	return nil
}

// Fingerprint derives a stable machine identity from the hostname,
// the MAC addresses of the hardware interfaces and the OS name. All
// MACs are included and sorted, so interfaces flapping up and down do
// not change the identity.
func Fingerprint() (string, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}

	var macs []string
	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		macs = append(macs, iface.HardwareAddr.String())
	}
	if len(macs) == 0 {
		return "", fmt.Errorf("no usable network interfaces found")
	}
	sort.Strings(macs)

	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "unknown"
	}

	data := hostname + "-" + strings.Join(macs, "-") + "-" + runtime.GOOS
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash), nil
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return "********"
	}
	return key[:8] + "..."
}
