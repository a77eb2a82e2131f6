package filetypes

import (
	"github.com/GlintPay/defcheck/sops"
)

type Decrypter interface {
	Decrypt(data []byte) ([]byte, error)
}

// SopsDecrypter decrypts definitions that carry SOPS metadata, passing others through untouched
type SopsDecrypter struct{}

func (SopsDecrypter) Decrypt(data []byte) ([]byte, error) {
	return sops.DecryptJSON(data)
}
