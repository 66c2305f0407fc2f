// Package wallet manages on-disk credential stores. Each wallet is a
// directory under <runtime>/wallets holding one JSON file per identity,
// with certificate and private key stored base64-encoded.
package wallet

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fabenv"
)

// Store enumerates and mutates the wallets directory. It is stateless;
// every call reads the filesystem fresh.
type Store struct {
	root string
}

// NewStore creates a Store for the runtime rooted at dir. Wallets live
// under dir/wallets.
func NewStore(dir string) *Store {
	return &Store{root: filepath.Join(dir, "wallets")}
}

// List returns the wallets found on disk, sorted lexicographically with
// hidden entries excluded. A missing wallets directory is an empty
// list, not an error.
func (s *Store) List() ([]fabenv.Wallet, error) {
	names, err := listVisible(s.root, func(e os.DirEntry) bool { return e.IsDir() })
	if err != nil {
		return nil, err
	}
	out := make([]fabenv.Wallet, 0, len(names))
	for _, name := range names {
		out = append(out, fabenv.Wallet{Name: name})
	}
	return out, nil
}

// Identities returns the identities inside a wallet, sorted by file
// name with hidden entries excluded. Certificate and private key are
// decoded from base64 to PEM text.
func (s *Store) Identities(wallet string) ([]fabenv.Identity, error) {
	dir := filepath.Join(s.root, wallet)
	names, err := listVisible(dir, func(e os.DirEntry) bool { return !e.IsDir() })
	if err != nil {
		return nil, err
	}

	out := make([]fabenv.Identity, 0, len(names))
	for _, name := range names {
		id, err := readIdentity(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// Create makes the wallet directory. Creating an existing wallet is a
// no-op.
func (s *Store) Create(wallet string) error {
	if err := os.MkdirAll(filepath.Join(s.root, wallet), 0o755); err != nil {
		return fmt.Errorf("create wallet %q: %w", wallet, err)
	}
	return nil
}

// Delete removes the wallet and everything in it.
func (s *Store) Delete(wallet string) error {
	if err := os.RemoveAll(filepath.Join(s.root, wallet)); err != nil {
		return fmt.Errorf("delete wallet %q: %w", wallet, err)
	}
	return nil
}

// Import writes an identity into a wallet, encoding certificate and
// private key as base64.
func (s *Store) Import(wallet string, id fabenv.Identity) error {
	if strings.TrimSpace(id.Name) == "" {
		return fmt.Errorf("identity name is required")
	}
	if err := s.Create(wallet); err != nil {
		return err
	}

	record := identityFile{
		Name:       id.Name,
		MSPID:      id.MSPID,
		Cert:       base64.StdEncoding.EncodeToString([]byte(id.Certificate)),
		PrivateKey: base64.StdEncoding.EncodeToString([]byte(id.PrivateKey)),
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal identity %q: %w", id.Name, err)
	}

	path := filepath.Join(s.root, wallet, id.Name+".json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write identity %q: %w", id.Name, err)
	}
	return nil
}

// identityFile is the on-disk identity representation.
type identityFile struct {
	Name       string `json:"name"`
	MSPID      string `json:"msp_id"`
	Cert       string `json:"cert"`
	PrivateKey string `json:"private_key"`
}

func readIdentity(path string) (fabenv.Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fabenv.Identity{}, fmt.Errorf("read identity file: %w", err)
	}

	var record identityFile
	if err := json.Unmarshal(data, &record); err != nil {
		return fabenv.Identity{}, fmt.Errorf("parse identity file %s: %w", filepath.Base(path), err)
	}

	cert, err := base64.StdEncoding.DecodeString(record.Cert)
	if err != nil {
		return fabenv.Identity{}, fmt.Errorf("decode certificate in %s: %w", filepath.Base(path), err)
	}
	key, err := base64.StdEncoding.DecodeString(record.PrivateKey)
	if err != nil {
		return fabenv.Identity{}, fmt.Errorf("decode private key in %s: %w", filepath.Base(path), err)
	}

	return fabenv.Identity{
		Name:        record.Name,
		MSPID:       record.MSPID,
		Certificate: string(cert),
		PrivateKey:  string(key),
	}, nil
}

// listVisible returns sorted, non-hidden entry names from dir matched
// by keep. Absence of dir is an empty list.
func listVisible(dir string, keep func(os.DirEntry) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") || !keep(e) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
