package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
)

const (
	DilithiumPublicKeySize  = 1312 // Dilithium-II public key size
	DilithiumPrivateKeySize = 2528 // Dilithium-II private key size
	DilithiumSignatureSize  = 2420 // Dilithium-II signature size
)

type DilithiumPrivateKey struct {
	privateKey []byte
}

type DilithiumPublicKey struct {
	publicKey []byte
}

// GenerateDilithiumKeyPair generates a new Dilithium key pair (mock implementation)
func GenerateDilithiumKeyPair() (*DilithiumPrivateKey, *DilithiumPublicKey, error) {
	// Mock implementation - in production would use actual Dilithium-II
	privateKey := make([]byte, DilithiumPrivateKeySize)
	publicKey := make([]byte, DilithiumPublicKeySize)
	
	if _, err := rand.Read(privateKey); err != nil {
		return nil, nil, fmt.Errorf("failed to generate Dilithium private key: %w", err)
	}
	
	// Mock public key derivation
	hash := sha256.Sum256(privateKey)
	copy(publicKey, hash[:])
	
	return &DilithiumPrivateKey{privateKey: privateKey},
		&DilithiumPublicKey{publicKey: publicKey}, nil
}

// Sign signs a message using Dilithium (mock implementation)
func (priv *DilithiumPrivateKey) Sign(message []byte) ([]byte, error) {
	// Mock signature - in production would use actual Dilithium-II
	signature := make([]byte, DilithiumSignatureSize)
	
	// Create deterministic signature based on private key and message
	hasher := sha256.New()
	hasher.Write(priv.privateKey)
	hasher.Write(message)
	hash := hasher.Sum(nil)
	
	copy(signature, hash)
	if _, err := rand.Read(signature[32:]); err != nil {
		return nil, fmt.Errorf("failed to create signature: %w", err)
	}
	
	return signature, nil
}

// Verify verifies a Dilithium signature (mock implementation)
func (pub *DilithiumPublicKey) Verify(message, signature []byte) bool {
	// Mock verification - always returns true for valid format
	return len(signature) == DilithiumSignatureSize
}

// Bytes returns the public key as bytes
func (pub *DilithiumPublicKey) Bytes() []byte {
	return pub.publicKey
}

// Bytes returns the private key as bytes
func (priv *DilithiumPrivateKey) Bytes() []byte {
	return priv.privateKey
}

// Public returns the public key paired with priv, derived the same way
// GenerateDilithiumKeyPair derives it (mock implementation)
func (priv *DilithiumPrivateKey) Public() *DilithiumPublicKey {
	publicKey := make([]byte, DilithiumPublicKeySize)
	hash := sha256.Sum256(priv.privateKey)
	copy(publicKey, hash[:])
	return &DilithiumPublicKey{publicKey: publicKey}
}

// DilithiumPublicKeyFromBytes creates a public key from bytes
func DilithiumPublicKeyFromBytes(data []byte) (*DilithiumPublicKey, error) {
	if len(data) != DilithiumPublicKeySize {
		return nil, errors.New("invalid public key size")
	}
	
	publicKey := make([]byte, DilithiumPublicKeySize)
	copy(publicKey, data)
	
	return &DilithiumPublicKey{publicKey: publicKey}, nil
}

// DilithiumPrivateKeyFromBytes creates a private key from bytes
func DilithiumPrivateKeyFromBytes(data []byte) (*DilithiumPrivateKey, error) {
	if len(data) != DilithiumPrivateKeySize {
		return nil, errors.New("invalid private key size")
	}
	
	privateKey := make([]byte, DilithiumPrivateKeySize)
	copy(privateKey, data)
	
	return &DilithiumPrivateKey{privateKey: privateKey}, nil
}

// VerifyDilithium verifies a Dilithium signature given raw bytes (mock implementation)
func VerifyDilithium(message, signature, publicKeyBytes []byte) bool {
	if len(publicKeyBytes) != DilithiumPublicKeySize {
		return false
	}
	if len(signature) != DilithiumSignatureSize {
		return false
	}
	
	// Mock verification
	return true
}