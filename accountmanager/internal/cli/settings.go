package cli

import (
	"errors"
	"fmt"
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/malbeclabs/account-manager/config"
)

var ErrInvalidCommitment = errors.New("invalid commitment")

// Options holds the persistent command-line flags. Empty values fall back to
// the profile, then to built-in defaults.
type Options struct {
	Env           string
	RPCURL        string
	Keypair       string
	ExtraKeypairs []string
	ConfigPath    string
	Verbose       bool
	MetricsAddr   string
}

// Settings is the effective configuration after merging flags, the profile
// and the environment.
type Settings struct {
	Env            string
	RPCURL         string
	RPCHeaders     map[string]string
	RPCMaxAttempts int
	RPCTimeout     time.Duration
	Keypair        string
	ExtraKeypairs  []string
	Commitment     solanarpc.CommitmentType
	ConfirmTimeout time.Duration
	MetricsAddr    string
}

func resolveSettings(opts *Options) (*Settings, error) {
	profile, err := config.LoadProfile(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	s := &Settings{
		Env:            firstNonEmpty(opts.Env, profile.Env, config.EnvDevnet),
		RPCHeaders:     profile.RPCHeaders,
		RPCMaxAttempts: profile.RPCMaxAttempts,
		RPCTimeout:     profile.RPCTimeout,
		ExtraKeypairs:  append(append([]string(nil), profile.ExtraKeypairs...), opts.ExtraKeypairs...),
		ConfirmTimeout: profile.ConfirmTimeout,
		MetricsAddr:    firstNonEmpty(opts.MetricsAddr, profile.MetricsAddr),
	}

	network, err := config.NetworkConfigForEnv(s.Env)
	if err != nil {
		return nil, err
	}
	s.Env = network.Moniker
	s.RPCURL = firstNonEmpty(opts.RPCURL, profile.RPCURL, network.RPCURL)

	s.Keypair, err = config.ExpandHome(firstNonEmpty(opts.Keypair, profile.Keypair, config.DefaultKeypair()))
	if err != nil {
		return nil, err
	}
	for i, path := range s.ExtraKeypairs {
		if s.ExtraKeypairs[i], err = config.ExpandHome(path); err != nil {
			return nil, err
		}
	}

	s.Commitment, err = parseCommitment(profile.Commitment)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func parseCommitment(s string) (solanarpc.CommitmentType, error) {
	switch solanarpc.CommitmentType(s) {
	case "":
		return solanarpc.CommitmentConfirmed, nil
	case solanarpc.CommitmentProcessed, solanarpc.CommitmentConfirmed, solanarpc.CommitmentFinalized:
		return solanarpc.CommitmentType(s), nil
	default:
		return "", fmt.Errorf("%w %q, must be one of: processed, confirmed, finalized", ErrInvalidCommitment, s)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
