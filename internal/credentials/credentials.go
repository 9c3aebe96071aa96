// Package credentials keeps passwords of remote address books in the OS keyring.
package credentials

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tartampluch/vcf2ics/internal/config"
	"github.com/zalando/go-keyring"
)

// ErrEmptyUser is returned when storing a password without a user name.
var ErrEmptyUser = errors.New("keyring: user name is required")

// Lookup returns the stored password of user, or "" when there is none.
// A keyring failure is not fatal: the source may simply be public.
func Lookup(user string) string {
	if user == "" {
		return ""
	}
	pass, err := keyring.Get(config.KeyringService, user)
	if err != nil {
		slog.Debug(config.MsgPassFail,
			config.LogKeyComponent, config.CompKeyring,
			config.LogKeyUser, user,
			config.LogKeyError, err)
		return ""
	}
	return pass
}

// Store saves the password of user, replacing any previous one.
func Store(user, password string) error {
	if user == "" {
		return ErrEmptyUser
	}
	if err := keyring.Set(config.KeyringService, user, password); err != nil {
		return fmt.Errorf("%s: %w", config.ErrKeyringSave, err)
	}
	slog.Info(config.MsgPasswordSaved,
		config.LogKeyComponent, config.CompKeyring,
		config.LogKeyUser, user)
	return nil
}

// Resolve prefers an explicit password and falls back to the keyring.
func Resolve(user, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return Lookup(user)
}
