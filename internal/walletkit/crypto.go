package walletkit

import (
	"context"
	"fmt"
)

const (
	MethodCreateMnemonic    = "createTonMnemonic"
	MethodMnemonicToKeyPair = "mnemonicToKeyPair"
	MethodSign              = "sign"

	DefaultMnemonicWords = 24
)

type MnemonicType string

const (
	MnemonicTypeTon   MnemonicType = "ton"
	MnemonicTypeBIP39 MnemonicType = "bip39"
)

type KeyPair struct {
	PublicKey string `json:"publicKey"`
	SecretKey string `json:"secretKey"`
}

type CryptoOperations struct {
	bridge Bridge
}

func NewCryptoOperations(b Bridge) *CryptoOperations {
	return &CryptoOperations{bridge: b}
}

func (c *CryptoOperations) CreateMnemonic(ctx context.Context, count int) ([]string, error) {
	if count <= 0 {
		count = DefaultMnemonicWords
	}
	words, err := invokeItems[string](ctx, c.bridge, MethodCreateMnemonic, map[string]int{"count": count})
	if err != nil {
		return nil, err
	}
	if len(words) != count {
		return nil, fmt.Errorf("expected %d mnemonic words, got %d", count, len(words))
	}
	return words, nil
}

func (c *CryptoOperations) MnemonicToKeyPair(ctx context.Context, words []string, mnemonicType MnemonicType) (KeyPair, error) {
	if mnemonicType == "" {
		mnemonicType = MnemonicTypeTon
	}
	return invokeObject[KeyPair](ctx, c.bridge, MethodMnemonicToKeyPair, map[string]any{
		"mnemonic": words,
		"type":     mnemonicType,
	})
}

// Sign returns the hex signature of data, itself hex encoded.
func (c *CryptoOperations) Sign(ctx context.Context, data, secretKey string) (string, error) {
	raw, err := invokeValue(ctx, c.bridge, MethodSign, map[string]string{
		"data":      data,
		"secretKey": secretKey,
	})
	if err != nil {
		return "", err
	}
	return scalarString(raw)
}
