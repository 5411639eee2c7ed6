package runtime

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/joho/godotenv"

	"github.com/prelude-sh/prelude/internal/config"
	"github.com/prelude-sh/prelude/internal/hostctx"
)

// EnvSecretsPassphrase holds the passphrase for an encrypted secrets file.
const EnvSecretsPassphrase = "PRELUDE_SECRETS_PASSPHRASE"

const armorHeader = "-----BEGIN PGP MESSAGE-----"

// SecretsError reports a secrets file that exists but cannot be used.
type SecretsError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SecretsError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("secrets file %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("secrets file %s: %s", e.Path, e.Message)
}

func (e *SecretsError) Unwrap() error { return e.Cause }

// mergeSecretsFile merges a secrets dotenv file. Files ending in .gpg or
// .pgp are OpenPGP messages encrypted with a passphrase taken from
// PRELUDE_SECRETS_PASSPHRASE; anything else is a plain dotenv file. A
// missing file is fine, an encrypted file without a passphrase is not.
func mergeSecretsFile(host *hostctx.Context, env *Env, path string, strategy config.MergeStrategy) error {
	if !isEncryptedSecrets(path) {
		return mergeEnvFile(host, env, path, strategy)
	}

	ciphertext, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &SecretsError{Path: path, Message: "read failed", Cause: err}
	}

	passphrase := strings.TrimSpace(env.Vars[EnvSecretsPassphrase])
	if passphrase == "" {
		return &SecretsError{Path: path, Message: "encrypted but " + EnvSecretsPassphrase + " is not set"}
	}

	plaintext, err := decryptSymmetric(ciphertext, []byte(passphrase))
	if err != nil {
		return &SecretsError{Path: path, Message: "decrypt failed", Cause: err}
	}

	incoming, err := godotenv.Parse(bytes.NewReader(plaintext))
	if err != nil {
		return &SecretsError{Path: path, Message: "parse failed", Cause: err}
	}
	return mergeIncoming(host, env, incoming, path, strategy)
}

func isEncryptedSecrets(path string) bool {
	return strings.HasSuffix(path, ".gpg") || strings.HasSuffix(path, ".pgp")
}

// decryptSymmetric decrypts a passphrase-encrypted OpenPGP message, armored
// or binary.
func decryptSymmetric(ciphertext, passphrase []byte) ([]byte, error) {
	var reader io.Reader = bytes.NewReader(ciphertext)
	if bytes.Contains(ciphertext, []byte(armorHeader)) {
		block, err := armor.Decode(reader)
		if err != nil {
			return nil, fmt.Errorf("decode armor: %w", err)
		}
		reader = block.Body
	}

	attempted := false
	prompt := func(keys []openpgp.Key, symmetric bool) ([]byte, error) {
		if attempted {
			return nil, fmt.Errorf("wrong passphrase")
		}
		attempted = true
		return passphrase, nil
	}

	md, err := openpgp.ReadMessage(reader, nil, prompt, nil)
	if err != nil {
		return nil, err
	}

	plaintext, err := io.ReadAll(md.UnverifiedBody)
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}
