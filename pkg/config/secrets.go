package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/scrypt"
)

// On-disk layout of .solar/secrets.json.enc:
//
//	[version:1][salt:16][nonce:12][AES-256-GCM(credentialsFile JSON)+tag]
const (
	secretsFileName       = "secrets.json.enc"
	credentialsFormat     = byte(1)
	saltSize              = 16
	nonceSize             = 12
	gcmTagSize            = 16
	keySize               = 32
	scryptN, scryptR      = 1 << 15, 8
	scryptP               = 1
	secretsFileMode       = os.FileMode(0600)
	credentialsHeaderSize = 1 + saltSize + nonceSize
)

// CredentialNames are the provider credentials the vault stores.
//
//nolint:gochecknoglobals // fixed list
var CredentialNames = []string{
	EnvGoogleAPIKey,
	EnvLegacyAPIKey,
	EnvAnthropicAPIKey,
	EnvOpenAIAPIKey,
	EnvOllamaHost,
}

// ErrUnknownCredential is returned when a name outside CredentialNames is stored.
var ErrUnknownCredential = errors.New("unknown credential name")

// IsCredentialName reports whether name is one of CredentialNames.
func IsCredentialName(name string) bool {
	return slices.Contains(CredentialNames, name)
}

// credentialsFile is the decrypted payload.
type credentialsFile struct {
	SavedAt     time.Time         `json:"saved_at"`
	Credentials map[string]string `json:"credentials"`
}

// credentialVault holds unlocked credentials and the project password for the process.
type credentialVault struct {
	mu       sync.RWMutex
	values   map[string]string
	password string
}

//nolint:gochecknoglobals // process-wide unlocked credentials
var vault = &credentialVault{}

func (v *credentialVault) replace(values map[string]string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.values = values
}

func (v *credentialVault) lookup(name string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	value, ok := v.values[name]
	return value, ok && value != ""
}

func (v *credentialVault) copyValues() map[string]string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]string, len(v.values))
	for k, val := range v.values {
		out[k] = val
	}
	return out
}

// SetProjectPassword remembers the secrets password; the web UI also uses it for basic auth.
func SetProjectPassword(password string) {
	vault.mu.Lock()
	defer vault.mu.Unlock()
	vault.password = password
}

// GetProjectPassword returns the password the secrets file was unlocked with, if any.
func GetProjectPassword() string {
	vault.mu.RLock()
	defer vault.mu.RUnlock()
	return vault.password
}

// ClearProjectPassword forgets the project password.
func ClearProjectPassword() {
	SetProjectPassword("")
}

// GetSecret resolves name from the unlocked credentials first, then the environment.
func GetSecret(name string) (string, error) {
	if value, ok := vault.lookup(name); ok {
		return value, nil
	}
	if value := os.Getenv(name); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("secret %s not found in secrets file or environment", name)
}

// StoredCredentials returns the sorted names held in memory. Values are never exposed.
func StoredCredentials() []string {
	values := vault.copyValues()
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetCredential stores a provider credential in memory.
func SetCredential(name, value string) error {
	if !IsCredentialName(name) {
		return fmt.Errorf("%w: %s", ErrUnknownCredential, name)
	}
	vault.mu.Lock()
	defer vault.mu.Unlock()
	if vault.values == nil {
		vault.values = make(map[string]string)
	}
	vault.values[name] = value
	return nil
}

// DeleteCredential removes a provider credential from memory.
func DeleteCredential(name string) error {
	if !IsCredentialName(name) {
		return fmt.Errorf("%w: %s", ErrUnknownCredential, name)
	}
	vault.mu.Lock()
	defer vault.mu.Unlock()
	delete(vault.values, name)
	return nil
}

// SaveCredentials writes the in-memory credentials to the project's encrypted file.
func SaveCredentials(projectDir, password string) error {
	return WriteCredentialsFile(projectDir, password, vault.copyValues())
}

// SecretsFilePath returns <projectDir>/.solar/secrets.json.enc.
func SecretsFilePath(projectDir string) string {
	return filepath.Join(projectDir, ProjectConfigDir, secretsFileName)
}

// SecretsFileExists reports whether the project has an encrypted secrets file.
func SecretsFileExists(projectDir string) bool {
	_, err := os.Stat(SecretsFilePath(projectDir))
	return err == nil
}

// WriteCredentialsFile encrypts credentials into .solar/secrets.json.enc, replacing any
// existing file. Names outside CredentialNames are rejected.
func WriteCredentialsFile(projectDir, password string, credentials map[string]string) error {
	for name := range credentials {
		if !IsCredentialName(name) {
			return fmt.Errorf("%w: %s", ErrUnknownCredential, name)
		}
	}
	plaintext, err := json.Marshal(credentialsFile{SavedAt: time.Now().UTC(), Credentials: credentials})
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	sealed, err := sealCredentials(password, plaintext)
	if err != nil {
		return err
	}
	return writePrivateFile(SecretsFilePath(projectDir), sealed)
}

// ReadCredentialsFile decrypts .solar/secrets.json.enc. Unknown names in the file are dropped.
func ReadCredentialsFile(projectDir, password string) (map[string]string, error) {
	path := SecretsFilePath(projectDir)
	if err := ensureOwnerOnly(path); err != nil {
		return nil, err
	}
	sealed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}
	plaintext, err := openCredentials(password, sealed)
	if err != nil {
		return nil, err
	}

	var file credentialsFile
	if err := json.Unmarshal(plaintext, &file); err != nil {
		return nil, fmt.Errorf("failed to parse secrets: %w", err)
	}
	credentials := make(map[string]string, len(file.Credentials))
	for name, value := range file.Credentials {
		if !IsCredentialName(name) {
			LogInfo("Ignoring unknown credential %q in %s", name, path)
			continue
		}
		credentials[name] = value
	}
	return credentials, nil
}

// UnlockSecrets decrypts the project secrets file into memory and remembers the password
// for web UI auth. A missing file is not an error.
func UnlockSecrets(projectDir, password string) (int, error) {
	if !SecretsFileExists(projectDir) {
		return 0, nil
	}
	credentials, err := ReadCredentialsFile(projectDir, password)
	if err != nil {
		return 0, err
	}
	vault.replace(credentials)
	SetProjectPassword(password)
	return len(credentials), nil
}

func sealCredentials(password string, plaintext []byte) ([]byte, error) {
	out := make([]byte, credentialsHeaderSize, credentialsHeaderSize+len(plaintext)+gcmTagSize)
	out[0] = credentialsFormat
	salt, nonce := out[1:1+saltSize], out[1+saltSize:credentialsHeaderSize]
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	aead, err := credentialsAEAD(password, salt)
	if err != nil {
		return nil, err
	}
	// The header is authenticated so a tampered version byte fails to open.
	return aead.Seal(out, nonce, plaintext, out[:credentialsHeaderSize]), nil
}

func openCredentials(password string, sealed []byte) ([]byte, error) {
	if len(sealed) < credentialsHeaderSize+gcmTagSize {
		return nil, errors.New("secrets file is corrupted or invalid format (too small)")
	}
	if sealed[0] != credentialsFormat {
		return nil, fmt.Errorf("unsupported secrets file format %d", sealed[0])
	}
	salt, nonce := sealed[1:1+saltSize], sealed[1+saltSize:credentialsHeaderSize]
	aead, err := credentialsAEAD(password, salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, sealed[credentialsHeaderSize:], sealed[:credentialsHeaderSize])
	if err != nil {
		return nil, errors.New("decryption failed (wrong password or corrupted file)")
	}
	return plaintext, nil
}

// credentialsAEAD derives the AES-256-GCM cipher for password and salt.
func credentialsAEAD(password string, salt []byte) (cipher.AEAD, error) {
	pw := []byte(password)
	key, err := scrypt.Key(pw, salt, scryptN, scryptR, scryptP, keySize)
	clear(pw)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}

// writePrivateFile replaces path with data via a 0600 temp file in the same directory.
func writePrivateFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", ProjectConfigDir, err)
	}
	tmp, err := os.CreateTemp(dir, secretsFileName+".*")
	if err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write secrets file: %w", err)
	}
	if err := tmp.Chmod(secretsFileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set secrets file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write secrets file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace secrets file: %w", err)
	}
	return nil
}

// ensureOwnerOnly tightens the secrets file to 0600 if someone loosened it.
func ensureOwnerOnly(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat secrets file: %w", err)
	}
	if perm := info.Mode().Perm(); perm != secretsFileMode {
		LogInfo("Secrets file %s has mode %04o, resetting to %04o", path, perm, secretsFileMode)
		if err := os.Chmod(path, secretsFileMode); err != nil {
			return fmt.Errorf("failed to fix file permissions: %w", err)
		}
	}
	return nil
}
