package crypto

import (
	"testing"
)

func TestDilithiumKeyGeneration(t *testing.T) {
	privKey, pubKey, err := GenerateDilithiumKeyPair()
	if err != nil {
		t.Fatalf("Failed to generate Dilithium key pair: %v", err)
	}

	if len(privKey.Bytes()) != DilithiumPrivateKeySize {
		t.Errorf("Expected private key size %d, got %d", DilithiumPrivateKeySize, len(privKey.Bytes()))
	}

	if len(pubKey.Bytes()) != DilithiumPublicKeySize {
		t.Errorf("Expected public key size %d, got %d", DilithiumPublicKeySize, len(pubKey.Bytes()))
	}
}

func TestDilithiumSigningAndVerification(t *testing.T) {
	privKey, pubKey, err := GenerateDilithiumKeyPair()
	if err != nil {
		t.Fatalf("Failed to generate Dilithium key pair: %v", err)
	}

	message := []byte("Hello, Quantum World!")

	// Sign the message
	signature, err := privKey.Sign(message)
	if err != nil {
		t.Fatalf("Failed to sign message: %v", err)
	}

	if len(signature) != DilithiumSignatureSize {
		t.Errorf("Expected signature size %d, got %d", DilithiumSignatureSize, len(signature))
	}

	// Verify the signature
	valid := pubKey.Verify(message, signature)
	if !valid {
		t.Error("Signature verification failed")
	}

	// Test with wrong message
	wrongMessage := []byte("Wrong message")
	validWrong := pubKey.Verify(wrongMessage, signature)
	if validWrong {
		t.Error("Signature verification should have failed for wrong message")
	}

	// Test with corrupted signature
	corruptedSignature := make([]byte, len(signature))
	copy(corruptedSignature, signature)
	corruptedSignature[0] ^= 0xFF
	validCorrupted := pubKey.Verify(message, corruptedSignature)
	if validCorrupted {
		t.Error("Signature verification should have failed for corrupted signature")
	}
}

func TestFalconKeyGeneration(t *testing.T) {
	privKey, pubKey, err := GenerateFalconKeyPair()
	if err != nil {
		t.Fatalf("Failed to generate Falcon key pair: %v", err)
	}

	if len(privKey.Bytes()) != FalconPrivateKeySize {
		t.Errorf("Expected private key size %d, got %d", FalconPrivateKeySize, len(privKey.Bytes()))
	}

	if len(pubKey.Bytes()) != FalconPublicKeySize {
		t.Errorf("Expected public key size %d, got %d", FalconPublicKeySize, len(pubKey.Bytes()))
	}
}

func TestFalconSigningAndVerification(t *testing.T) {
	privKey, pubKey, err := GenerateFalconKeyPair()
	if err != nil {
		t.Fatalf("Failed to generate Falcon key pair: %v", err)
	}

	message := []byte("Hello, Quantum World!")

	// Sign the message
	signature, err := privKey.Sign(message)
	if err != nil {
		t.Fatalf("Failed to sign message: %v", err)
	}

	if len(signature) > FalconSignatureSize {
		t.Errorf("Signature too large: expected max %d, got %d", FalconSignatureSize, len(signature))
	}

	// Verify the signature
	valid := pubKey.Verify(message, signature)
	if !valid {
		t.Error("Signature verification failed")
	}

	// Test with wrong message
	wrongMessage := []byte("Wrong message")
	validWrong := pubKey.Verify(wrongMessage, signature)
	if validWrong {
		t.Error("Signature verification should have failed for wrong message")
	}
}

func TestQuantumSignatureInterface(t *testing.T) {
	// Test Dilithium
	privKey, _, err := GenerateDilithiumKeyPair()
	if err != nil {
		t.Fatalf("Failed to generate Dilithium key pair: %v", err)
	}

	message := []byte("Test message")

	qrSig, err := SignMessage(message, SigAlgDilithium, privKey.Bytes())
	if err != nil {
		t.Fatalf("Failed to sign with Dilithium: %v", err)
	}

	if qrSig.Algorithm != SigAlgDilithium {
		t.Errorf("Expected algorithm %v, got %v", SigAlgDilithium, qrSig.Algorithm)
	}

	valid, err := VerifySignature(message, qrSig)
	if err != nil {
		t.Fatalf("Failed to verify signature: %v", err)
	}

	if !valid {
		t.Error("Signature verification failed")
	}

	// Test Falcon
	privKeyFalcon, _, err := GenerateFalconKeyPair()
	if err != nil {
		t.Fatalf("Failed to generate Falcon key pair: %v", err)
	}

	qrSigFalcon, err := SignMessage(message, SigAlgFalcon, privKeyFalcon.Bytes())
	if err != nil {
		t.Fatalf("Failed to sign with Falcon: %v", err)
	}

	if qrSigFalcon.Algorithm != SigAlgFalcon {
		t.Errorf("Expected algorithm %v, got %v", SigAlgFalcon, qrSigFalcon.Algorithm)
	}

	validFalcon, err := VerifySignature(message, qrSigFalcon)
	if err != nil {
		t.Fatalf("Failed to verify Falcon signature: %v", err)
	}

	if !validFalcon {
		t.Error("Falcon signature verification failed")
	}
}

func TestAlgorithmInfo(t *testing.T) {
	// Test Dilithium
	pubKeySize, err := GetPublicKeySize(SigAlgDilithium)
	if err != nil {
		t.Fatalf("Failed to get Dilithium public key size: %v", err)
	}
	if pubKeySize != DilithiumPublicKeySize {
		t.Errorf("Expected public key size %d, got %d", DilithiumPublicKeySize, pubKeySize)
	}

	sigSize, err := GetSignatureSize(SigAlgDilithium)
	if err != nil {
		t.Fatalf("Failed to get Dilithium signature size: %v", err)
	}
	if sigSize != DilithiumSignatureSize {
		t.Errorf("Expected signature size %d, got %d", DilithiumSignatureSize, sigSize)
	}

	privKeySize, err := GetPrivateKeySize(SigAlgDilithium)
	if err != nil {
		t.Fatalf("Failed to get Dilithium private key size: %v", err)
	}
	if privKeySize != DilithiumPrivateKeySize {
		t.Errorf("Expected private key size %d, got %d", DilithiumPrivateKeySize, privKeySize)
	}

	// Test Falcon
	pubKeySizeFalcon, err := GetPublicKeySize(SigAlgFalcon)
	if err != nil {
		t.Fatalf("Failed to get Falcon public key size: %v", err)
	}
	if pubKeySizeFalcon != FalconPublicKeySize {
		t.Errorf("Expected public key size %d, got %d", FalconPublicKeySize, pubKeySizeFalcon)
	}

	// Test unsupported algorithm
	_, err = GetPublicKeySize(SignatureAlgorithm(99))
	if err == nil {
		t.Error("Should have failed for unsupported algorithm")
	}
}

func TestAlgorithmStrings(t *testing.T) {
	if SigAlgDilithium.String() != "Dilithium" {
		t.Errorf("Expected 'Dilithium', got '%s'", SigAlgDilithium.String())
	}

	if SigAlgFalcon.String() != "Falcon" {
		t.Errorf("Expected 'Falcon', got '%s'", SigAlgFalcon.String())
	}

	if SigAlgSPHINCS.String() != "SPHINCS+" {
		t.Errorf("Expected 'SPHINCS+', got '%s'", SigAlgSPHINCS.String())
	}

	unknown := SignatureAlgorithm(99)
	if unknown.String() != "Unknown" {
		t.Errorf("Expected 'Unknown', got '%s'", unknown.String())
	}
}

func BenchmarkDilithiumKeyGeneration(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _, err := GenerateDilithiumKeyPair()
		if err != nil {
			b.Fatalf("Key generation failed: %v", err)
		}
	}
}

func BenchmarkDilithiumSigning(b *testing.B) {
	privKey, _, err := GenerateDilithiumKeyPair()
	if err != nil {
		b.Fatalf("Key generation failed: %v", err)
	}

	message := []byte("Benchmark message")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := privKey.Sign(message)
		if err != nil {
			b.Fatalf("Signing failed: %v", err)
		}
	}
}

func BenchmarkDilithiumVerification(b *testing.B) {
	privKey, pubKey, err := GenerateDilithiumKeyPair()
	if err != nil {
		b.Fatalf("Key generation failed: %v", err)
	}

	message := []byte("Benchmark message")
	signature, err := privKey.Sign(message)
	if err != nil {
		b.Fatalf("Signing failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		valid := pubKey.Verify(message, signature)
		if !valid {
			b.Fatal("Verification failed")
		}
	}
}
