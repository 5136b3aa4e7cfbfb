// Package evm reads on-chain wallet state over JSON-RPC. The safety gate
// uses it for the native gas-asset balance check.
package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// weiPerEther converts wei balances to ether units.
var weiPerEther = new(big.Float).SetFloat64(1e18)

// Wallet reads balances for one address over an EVM JSON-RPC endpoint.
type Wallet struct {
	client  *ethclient.Client
	address common.Address
}

// Dial connects to the RPC endpoint and binds the wallet address.
func Dial(ctx context.Context, rpcURL, address string) (*Wallet, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("evm: invalid address %q", address)
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("evm: dial %s: %w", rpcURL, err)
	}

	return &Wallet{
		client:  client,
		address: common.HexToAddress(address),
	}, nil
}

// Client exposes the underlying RPC client for components that send
// transactions over the same connection.
func (w *Wallet) Client() *ethclient.Client {
	return w.client
}

// Address returns the bound wallet address.
func (w *Wallet) Address() string {
	return w.address.Hex()
}

// GasBalance returns the native asset balance in ether units.
func (w *Wallet) GasBalance(ctx context.Context) (float64, error) {
	wei, err := w.client.BalanceAt(ctx, w.address, nil)
	if err != nil {
		return 0, fmt.Errorf("evm: balance of %s: %w", w.address.Hex(), err)
	}

	ether, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEther).Float64()
	return ether, nil
}

// Healthy reports whether the RPC endpoint answers within the context
// deadline.
func (w *Wallet) Healthy(ctx context.Context) bool {
	_, err := w.client.BlockNumber(ctx)
	return err == nil
}

// Close releases the underlying RPC connection.
func (w *Wallet) Close() {
	w.client.Close()
}

// ParsePrivateKey decodes a hex-encoded secp256k1 private key (with or
// without 0x prefix).
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("evm: parse private key: %w", err)
	}
	return key, nil
}

// AddressFromKey derives the 0x address controlled by a private key.
func AddressFromKey(key *ecdsa.PrivateKey) string {
	return crypto.PubkeyToAddress(key.PublicKey).Hex()
}
