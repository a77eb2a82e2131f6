package sops

import (
	"fmt"

	"github.com/getsops/sops/v3/decrypt"
	"gopkg.in/yaml.v3"
)

// Metadata is the `sops` block SOPS appends to an encrypted JSON document
type Metadata struct {
	Kms          any    `yaml:"kms,omitempty"`
	GcpKms       any    `yaml:"gcp_kms,omitempty"`
	AzureKv      any    `yaml:"azure_kv,omitempty"`
	Age          any    `yaml:"age,omitempty"`
	LastModified string `yaml:"lastmodified,omitempty"`
	Mac          string `yaml:"mac,omitempty"`
	Version      string `yaml:"version,omitempty"`
}

// IsEncrypted checks whether a definition document has a top-level `sops` block.
// yaml.v3 reads JSON as well, which keeps this tolerant of documents that fail to parse.
func IsEncrypted(data []byte) bool {
	var content struct {
		Sops *Metadata `yaml:"sops"`
	}
	if err := yaml.Unmarshal(data, &content); err != nil {
		return false
	}
	return content.Sops != nil
}

// DecryptJSON returns the decrypted document if it is SOPS-encrypted, or the original content otherwise
func DecryptJSON(data []byte) ([]byte, error) {
	if !IsEncrypted(data) {
		return data, nil
	}

	decrypted, err := decrypt.Data(data, "json")
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt SOPS-encrypted definition: %w", err)
	}

	return decrypted, nil
}
