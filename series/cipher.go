package series

// Cipher protects task text and comments at rest. The manager encrypts
// before every write and never stores plaintext when a real cipher is set.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// PlainText is the identity cipher.
type PlainText struct{}

func (PlainText) Encrypt(s string) (string, error) { return s, nil }

func (PlainText) Decrypt(s string) (string, error) { return s, nil }
