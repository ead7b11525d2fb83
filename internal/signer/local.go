package signer

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	clierr "github.com/gzale/wrapcycle/internal/errors"
)

// LocalSigner holds one account's private key in memory for the process
// lifetime. Keys are derived once at startup and never rotated.
type LocalSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

var _ Signer = (*LocalSigner)(nil)

func (s *LocalSigner) Address() common.Address {
	return s.address
}

func (s *LocalSigner) SignTx(chainID *big.Int, tx *types.Transaction) (*types.Transaction, error) {
	if s == nil || s.privateKey == nil {
		return nil, clierr.New(clierr.CodeSigner, "local signer is not initialized")
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.privateKey)
}

// KeySource names where one account's private key comes from. Exactly one
// field must be set.
type KeySource struct {
	PrivateKeyHex        string
	PrivateKeyEnv        string
	PrivateKeyFile       string
	KeystorePath         string
	KeystorePassword     string
	KeystorePasswordFile string
}

func NewLocalSigner(src KeySource) (*LocalSigner, error) {
	pk, err := loadPrivateKey(src)
	if err != nil {
		return nil, err
	}
	pub, ok := pk.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, clierr.New(clierr.CodeSigner, "invalid ECDSA public key")
	}
	return &LocalSigner{privateKey: pk, address: crypto.PubkeyToAddress(*pub)}, nil
}

func loadPrivateKey(src KeySource) (*ecdsa.PrivateKey, error) {
	if strings.TrimSpace(src.PrivateKeyHex) != "" {
		return parseHexKey(src.PrivateKeyHex)
	}
	if name := strings.TrimSpace(src.PrivateKeyEnv); name != "" {
		raw := os.Getenv(name)
		if strings.TrimSpace(raw) == "" {
			return nil, clierr.New(clierr.CodeSigner, fmt.Sprintf("environment variable %s is empty", name))
		}
		return parseHexKey(raw)
	}
	if path := strings.TrimSpace(src.PrivateKeyFile); path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeSigner, "read private key file", err)
		}
		return parseHexKey(string(buf))
	}
	if path := strings.TrimSpace(src.KeystorePath); path != "" {
		password := src.KeystorePassword
		if strings.TrimSpace(password) == "" && strings.TrimSpace(src.KeystorePasswordFile) != "" {
			buf, err := os.ReadFile(src.KeystorePasswordFile)
			if err != nil {
				return nil, clierr.Wrap(clierr.CodeSigner, "read keystore password file", err)
			}
			password = strings.TrimSpace(string(buf))
		}
		if strings.TrimSpace(password) == "" {
			return nil, clierr.New(clierr.CodeSigner, "keystore password is required")
		}
		buf, err := os.ReadFile(path)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeSigner, "read keystore file", err)
		}
		key, err := keystore.DecryptKey(buf, password)
		if err != nil {
			return nil, clierr.Wrap(clierr.CodeSigner, "decrypt keystore", err)
		}
		return key.PrivateKey, nil
	}
	return nil, clierr.New(clierr.CodeSigner, "missing signing key: set key, key_env, key_file or keystore")
}

func parseHexKey(raw string) (*ecdsa.PrivateKey, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "0x")
	if clean == "" {
		return nil, clierr.New(clierr.CodeSigner, "empty private key")
	}
	pk, err := crypto.HexToECDSA(clean)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeSigner, "parse private key", err)
	}
	return pk, nil
}
