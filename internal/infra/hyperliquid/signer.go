package hyperliquid

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/vmihailenco/msgpack/v5"
)

// L1 actions are signed as an EIP-712 "Agent" message on this fixed domain.
const (
	l1ChainID    = 1337
	l1DomainName = "Exchange"
	l1Version    = "1"
	zeroAddress  = "0x0000000000000000000000000000000000000000"
)

// Signer signs L1 actions with a secp256k1 private key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner parses a hex private key, with or without 0x prefix.
func NewSigner(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Address is the signing wallet. The trading account may differ when an
// agent wallet signs for it.
func (s *Signer) Address() string {
	return s.address.Hex()
}

// ActionHash is keccak256(msgpack(action) || nonce || vault flag).
func ActionHash(action any, nonce int64, vault string) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(action); err != nil {
		return nil, fmt.Errorf("msgpack action: %w", err)
	}

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(nonce))
	buf.Write(n[:])

	if vault == "" {
		buf.WriteByte(0x00)
	} else {
		buf.WriteByte(0x01)
		buf.Write(common.HexToAddress(vault).Bytes())
	}
	return crypto.Keccak256(buf.Bytes()), nil
}

// agentTypedData builds the EIP-712 payload for an action hash.
func agentTypedData(connectionID []byte, mainnet bool) apitypes.TypedData {
	source := "b"
	if mainnet {
		source = "a"
	}
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Agent": {
				{Name: "source", Type: "string"},
				{Name: "connectionId", Type: "bytes32"},
			},
		},
		PrimaryType: "Agent",
		Domain: apitypes.TypedDataDomain{
			Name:              l1DomainName,
			Version:           l1Version,
			ChainId:           math.NewHexOrDecimal256(l1ChainID),
			VerifyingContract: zeroAddress,
		},
		Message: apitypes.TypedDataMessage{
			"source":       source,
			"connectionId": connectionID,
		},
	}
}

// SignL1Action signs action for the given nonce. mainnet selects the
// agent source so testnet signatures are never valid on mainnet.
func (s *Signer) SignL1Action(action any, nonce int64, mainnet bool) (Signature, error) {
	connectionID, err := ActionHash(action, nonce, "")
	if err != nil {
		return Signature{}, err
	}

	digest, _, err := agentDigest(connectionID, mainnet)
	if err != nil {
		return Signature{}, fmt.Errorf("eip712 hash: %w", err)
	}

	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return Signature{}, fmt.Errorf("sign action: %w", err)
	}

	return Signature{
		R: hexutil.Encode(sig[:32]),
		S: hexutil.Encode(sig[32:64]),
		V: sig[64] + 27,
	}, nil
}

// agentDigest is the EIP-712 digest a signature commits to.
func agentDigest(connectionID []byte, mainnet bool) ([]byte, string, error) {
	return apitypes.TypedDataAndHash(agentTypedData(connectionID, mainnet))
}
