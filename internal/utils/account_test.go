package utils

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = bytes.Repeat([]byte{0x2a}, 32)

func TestEncryptDecrypt(t *testing.T) {
	for _, plain := range []string{"1", "1234567890123456", "exactly16bytes!!"} {
		sealed, err := Encrypt(plain, testKey)
		require.NoError(t, err)
		got, err := Decrypt(sealed, testKey)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}

	_, err := Encrypt("x", []byte("short"))
	assert.Error(t, err)

	_, err = Decrypt("abcd", testKey)
	assert.Error(t, err)
}

func TestSealAccountNumber(t *testing.T) {
	tests := []struct {
		in         string
		wantMasked string
		wantSealed bool
	}{
		{"", MaskedAccountNumber, false},
		{"1234", "1234", false},
		{"****1234", "****1234", false},
		{"ES91 2100 0418 4502 0005 1332", "****1332", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			masked, sealed, err := SealAccountNumber(tt.in, testKey)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMasked, masked)
			assert.Equal(t, tt.wantSealed, sealed != "")
			if tt.wantSealed {
				plain, err := Decrypt(sealed, testKey)
				require.NoError(t, err)
				assert.Equal(t, "9121000418450200051332", plain)
			}
		})
	}
}
