package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Profile holds operator settings read from a YAML file. Zero values mean
// "not set" so command-line flags and built-in defaults can fill them in.
type Profile struct {
	Env            string            `yaml:"env"`
	RPCURL         string            `yaml:"rpc_url"`
	RPCHeaders     map[string]string `yaml:"rpc_headers"`
	RPCMaxAttempts int               `yaml:"rpc_max_attempts"`
	RPCTimeout     time.Duration     `yaml:"rpc_timeout"`
	Keypair        string            `yaml:"keypair"`
	ExtraKeypairs  []string          `yaml:"extra_keypairs"`
	Commitment     string            `yaml:"commitment"`
	ConfirmTimeout time.Duration     `yaml:"confirm_timeout"`
	MetricsAddr    string            `yaml:"metrics_addr"`
}

// LoadProfile reads a YAML profile. An empty path yields an empty profile.
func LoadProfile(path string) (*Profile, error) {
	if path == "" {
		return &Profile{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	if p.ConfirmTimeout < 0 {
		return nil, fmt.Errorf("invalid confirm_timeout %s in profile %s", p.ConfirmTimeout, path)
	}
	if p.RPCTimeout < 0 {
		return nil, fmt.Errorf("invalid rpc_timeout %s in profile %s", p.RPCTimeout, path)
	}
	if p.RPCMaxAttempts < 0 {
		return nil, fmt.Errorf("invalid rpc_max_attempts %d in profile %s", p.RPCMaxAttempts, path)
	}
	return &p, nil
}

// LoadDotEnv loads environment variables from the given files, or ./.env when
// none are given. Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		err := godotenv.Load(path)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ExpandHome resolves a leading "~/" against the user's home directory.
func ExpandHome(path string) (string, error) {
	if len(path) < 2 || path[:2] != "~/" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

// DefaultKeypair returns the solana CLI keypair location for the current user.
func DefaultKeypair() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DefaultKeypairPath)
}
