// Package wallet signs and submits transactions with local keypairs.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
)

var (
	ErrKeypairRequired = errors.New("keypair is required")
	ErrKeypairInvalid  = errors.New("keypair is invalid")
	ErrMissingSigner   = errors.New("missing signer")
)

// Network submits signed transactions. *solanarpc.Client satisfies it.
type Network interface {
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts solanarpc.TransactionOpts) (solana.Signature, error)
}

// Keyring is a wallet backed by a primary keypair, which pays fees and
// receives reclaimed funds, plus optional extra keypairs able to co-sign
// for accounts they control.
type Keyring struct {
	primary solana.PrivateKey
	keys    map[solana.PublicKey]solana.PrivateKey
	opts    solanarpc.TransactionOpts
}

func New(primary solana.PrivateKey, extra ...solana.PrivateKey) (*Keyring, error) {
	if primary == nil {
		return nil, ErrKeypairRequired
	}
	if !primary.IsValid() {
		return nil, ErrKeypairInvalid
	}
	k := &Keyring{
		primary: primary,
		keys:    map[solana.PublicKey]solana.PrivateKey{primary.PublicKey(): primary},
		opts: solanarpc.TransactionOpts{
			PreflightCommitment: solanarpc.CommitmentProcessed,
		},
	}
	for i, key := range extra {
		if !key.IsValid() {
			return nil, fmt.Errorf("%w: extra keypair %d", ErrKeypairInvalid, i)
		}
		k.keys[key.PublicKey()] = key
	}
	return k, nil
}

// Load reads keypairs in the solana-keygen JSON format.
func Load(primaryPath string, extraPaths ...string) (*Keyring, error) {
	if primaryPath == "" {
		return nil, ErrKeypairRequired
	}
	primary, err := solana.PrivateKeyFromSolanaKeygenFile(primaryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair %s: %w", primaryPath, err)
	}
	extra := make([]solana.PrivateKey, 0, len(extraPaths))
	for _, path := range extraPaths {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load keypair %s: %w", path, err)
		}
		extra = append(extra, key)
	}
	return New(primary, extra...)
}

func (k *Keyring) PublicKey() solana.PublicKey {
	return k.primary.PublicKey()
}

// Signers lists the public keys the keyring can sign for, primary first.
func (k *Keyring) Signers() []solana.PublicKey {
	out := []solana.PublicKey{k.primary.PublicKey()}
	for pk := range k.keys {
		if !pk.Equals(k.primary.PublicKey()) {
			out = append(out, pk)
		}
	}
	return out
}

// SignTransaction fills every required signature. It fails when the
// transaction needs a signer the keyring does not hold.
func (k *Keyring) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var missing []solana.PublicKey
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if priv, ok := k.keys[key]; ok {
			return &priv
		}
		missing = append(missing, key)
		return nil
	})
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingSigner, missing[0])
	}
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}

func (k *Keyring) SendTransaction(ctx context.Context, tx *solana.Transaction, network Network) (solana.Signature, error) {
	sig, err := network.SendTransactionWithOpts(ctx, tx, k.opts)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig, nil
}
