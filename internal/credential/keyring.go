// Package credential stores mailbox passwords in the system keyring.
package credential

import (
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "notifyd"

// MailKey returns the keyring key holding the IMAP password for the
// mailbox with the given id.
func MailKey(mailboxID string) string {
	return "imap-" + mailboxID
}

// MailEnvVar returns the environment variable that overrides the keyring
// for a mailbox password, e.g. NOTIFYD_IMAP_PASSWORD_SITE_OFFICE.
func MailEnvVar(mailboxID string) string {
	id := strings.ToUpper(mailboxID)
	id = strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, id)
	return "NOTIFYD_IMAP_PASSWORD_" + id
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/notifyd/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("notifyd-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// MailPassword returns the password for a mailbox, preferring the
// environment override over the keyring.
func MailPassword(mailboxID string) (string, error) {
	if v, ok := os.LookupEnv(MailEnvVar(mailboxID)); ok && v != "" {
		return v, nil
	}
	return Get(MailKey(mailboxID))
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Label: serviceName + " " + key,
		Data:  []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
