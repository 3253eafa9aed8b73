package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"academicchain/cmd/internal/passphrase"
	"academicchain/crypto"
)

const keyPassEnv = "ACAD_KEY_PASS"

func newPassSource(confirm bool) *passphrase.Source {
	s := passphrase.NewSource(keyPassEnv, "signing keystore")
	if confirm {
		s.WithConfirmation()
	}
	return s
}

func runKeygen(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var out string
	var force bool
	fs.StringVar(&out, "out", "academic.keystore", "path of the keystore to create")
	fs.BoolVar(&force, "force", false, "overwrite an existing keystore")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	path := strings.TrimSpace(out)
	if path == "" {
		fmt.Fprintln(stderr, "Error: --out is required")
		return 1
	}
	if _, err := os.Stat(path); err == nil && !force {
		fmt.Fprintf(stderr, "Error: %s already exists; pass --force to overwrite\n", path)
		return 1
	}
	pass, err := newPassSource(true).Get()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error: generate key: %v\n", err)
		return 1
	}
	if err := crypto.SaveToKeystore(path, key, pass); err != nil {
		fmt.Fprintf(stderr, "Error: write keystore: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Keystore written to %s\n", path)
	fmt.Fprintf(stdout, "Address: %s\n", key.PubKey().Address().String())
	return 0
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var keyPath string
	fs.StringVar(&keyPath, "key", "academic.keystore", "keystore to read")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	key, err := loadKey(keyPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	addr := key.PubKey().Address()
	fmt.Fprintln(stdout, addr.String())
	fmt.Fprintln(stdout, addr.Common().Hex())
	return 0
}

func loadKey(path string) (*crypto.PrivateKey, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("--key is required")
	}
	if _, err := os.Stat(trimmed); os.IsNotExist(err) {
		return nil, fmt.Errorf("keystore %s not found. run academic-cli keygen first", trimmed)
	}
	pass, err := newPassSource(false).Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(trimmed, pass)
	if err != nil {
		return nil, fmt.Errorf("unable to decrypt keystore %s: %w", trimmed, err)
	}
	return key, nil
}
