package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/atelier/internal/credential"
	"github.com/felixgeelhaar/atelier/internal/store"
)

func atelierDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".atelier")
}

func getStore() store.Storage {
	dir := atelierDir()
	storeLayer, err := store.NewSQLiteStore(
		filepath.Join(dir, "metadata.db"),
		filepath.Join(dir, "staging"),
	)
	if err != nil {
		fmt.Printf("Failed to init store: %v\n", err)
		os.Exit(1)
	}
	return storeLayer
}

// secretValue reads a config key, decrypting it if it was stored
// encrypted. A decryption failure reads as unset.
func secretValue(s store.Storage, key string) string {
	raw, _ := s.Value(key)
	if raw == "" {
		return ""
	}
	mgr, err := credential.NewManager()
	if err != nil {
		return raw
	}
	val, err := mgr.Decrypt(raw)
	if err != nil {
		return ""
	}
	return val
}
