package services

import (
	"encoding/json"

	"habitly/internal/crypto"
	"habitly/internal/models"
)

// EncryptionService wraps the cipher with domain-specific methods.
// Questionnaire answers are the one thing stored encrypted at rest; migration
// copies the ciphertext verbatim, so conversion never needs the key.
type EncryptionService struct {
	cipher *crypto.Cipher
}

func NewEncryptionService(encryptionKey []byte) (*EncryptionService, error) {
	c, err := crypto.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	return &EncryptionService{cipher: c}, nil
}

// EncryptResponses serializes and encrypts a response map for storage.
func (s *EncryptionService) EncryptResponses(m models.ResponseMap) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return s.cipher.Encrypt(string(raw))
}

// DecryptResponses decrypts a stored payload back into a response map.
func (s *EncryptionService) DecryptResponses(ciphertext string) (models.ResponseMap, error) {
	if ciphertext == "" {
		return models.ResponseMap{}, nil
	}
	plain, err := s.cipher.Decrypt(ciphertext)
	if err != nil {
		return nil, err
	}
	var m models.ResponseMap
	if err := json.Unmarshal([]byte(plain), &m); err != nil {
		return nil, err
	}
	return m, nil
}
