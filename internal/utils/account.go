package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// MaskedAccountNumber is stored when the client sends no account number.
const MaskedAccountNumber = "****0000"

// SealAccountNumber normalizes a client-supplied account number. Numbers of
// more than four digits are masked to "****" plus the last four and the full
// number is returned encrypted; shorter values are stored as given.
func SealAccountNumber(number string, key []byte) (masked, sealed string, err error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return MaskedAccountNumber, "", nil
	}
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, number)
	if len(digits) <= 4 || strings.HasPrefix(number, "****") {
		return number, "", nil
	}
	sealed, err = Encrypt(digits, key)
	if err != nil {
		return "", "", fmt.Errorf("failed to encrypt account number: %w", err)
	}
	return Mask(digits), sealed, nil
}

// Mask keeps the last four characters of number.
func Mask(number string) string {
	if len(number) <= 4 {
		return "****" + number
	}
	return "****" + number[len(number)-4:]
}

// Encrypt encrypts a string using AES-CBC with PKCS#7 padding and returns
// hex(IV || ciphertext).
func Encrypt(data string, key []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("input data is empty")
	}
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return "", fmt.Errorf("encryption key must be 16, 24, or 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	plain := []byte(data)
	padding := aes.BlockSize - len(plain)%aes.BlockSize
	for range padding {
		plain = append(plain, byte(padding))
	}

	ciphertext := make([]byte, len(plain))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plain)

	return hex.EncodeToString(append(iv, ciphertext...)), nil
}

// Decrypt reverses Encrypt.
func Decrypt(encryptedData string, key []byte) (string, error) {
	if len(encryptedData) == 0 {
		return "", fmt.Errorf("encrypted data is empty")
	}
	if len(key) != 16 && len(key) != 24 && len(key) != 32 {
		return "", fmt.Errorf("decryption key must be 16, 24, or 32 bytes, got %d", len(key))
	}

	data, err := hex.DecodeString(encryptedData)
	if err != nil {
		return "", fmt.Errorf("failed to decode hex: %w", err)
	}
	if len(data) < 2*aes.BlockSize || len(data)%aes.BlockSize != 0 {
		return "", fmt.Errorf("invalid ciphertext length: %d bytes", len(data))
	}

	iv, ciphertext := data[:aes.BlockSize], data[aes.BlockSize:]

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	padding := int(plaintext[len(plaintext)-1])
	if padding > aes.BlockSize || padding == 0 {
		return "", fmt.Errorf("invalid padding value: %d", padding)
	}
	for i := len(plaintext) - padding; i < len(plaintext); i++ {
		if int(plaintext[i]) != padding {
			return "", fmt.Errorf("invalid padding bytes at position %d", i)
		}
	}
	return string(plaintext[:len(plaintext)-padding]), nil
}
