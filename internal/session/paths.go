// Package session maps an account (a phone number) to its on-disk
// layout under ~/.tgsum.
package session

import (
	"os"
	"path/filepath"
	"strings"
)

// BaseDir returns ~/.tgsum.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".tgsum")
}

// Dir returns the account-specific directory.
func Dir(account string) string {
	return filepath.Join(BaseDir(), "accounts", sanitize(account))
}

// CacheDBPath returns the message cache database path.
func CacheDBPath(account string) string {
	return filepath.Join(Dir(account), "cache.db")
}

// TelegramSessionPath returns the MTProto session file path.
func TelegramSessionPath(account string) string {
	return filepath.Join(Dir(account), "telegram.session")
}

// LockPath returns the lock file path for an account.
func LockPath(account string) string {
	return filepath.Join(Dir(account), "LOCK")
}

// LogDir returns the log directory for an account.
func LogDir(account string) string {
	return filepath.Join(Dir(account), "logs")
}

// LogPath returns the log file path.
func LogPath(account string) string {
	return filepath.Join(LogDir(account), "tgsum.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the account directory tree with proper permissions.
func EnsureDir(account string) error {
	dirs := []string{
		Dir(account),
		LogDir(account),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}

// sanitize keeps the directory name to the phone digits so "+98912..."
// and "98912..." share one account layout.
func sanitize(account string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, account)
}
