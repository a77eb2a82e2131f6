package filetypes

import (
	"github.com/GlintPay/defcheck/backend"
	"github.com/rs/zerolog/log"
	"io"
)

// ToBytes reads a definition file's content, decrypting it if a decrypter is supplied
func ToBytes(f backend.File, decrypter Decrypter) ([]byte, error) {
	reader, err := f.Data().Reader()
	if err != nil {
		return nil, err
	}

	defer func(reader io.ReadCloser) {
		if e := reader.Close(); e != nil {
			log.Warn().Err(e).Msgf("Closing %s", f.FullyQualifiedName())
		}
	}(reader)

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if decrypter == nil {
		return data, nil
	}
	return decrypter.Decrypt(data)
}
