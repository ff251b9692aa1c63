package session

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// TokenStore persists the session token between runs.
type TokenStore interface {
	// Load returns the stored token, or "" when there is none.
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// storedToken is the on-disk layout of a FileStore.
type storedToken struct {
	Token   string `json:"token"`
	Sealed  bool   `json:"sealed,omitempty"`
	SavedAt int64  `json:"saved_at"`
}

// FileStore keeps the token in a JSON file. When an AEAD is set the token is
// sealed with a random nonce prepended to the ciphertext.
type FileStore struct {
	path string
	aead cipher.AEAD
	mu   sync.Mutex
}

// NewFileStore returns a store writing to path. aead may be nil.
func NewFileStore(path string, aead cipher.AEAD) *FileStore {
	return &FileStore{path: path, aead: aead}
}

func (fs *FileStore) Load() (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.Open(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	defer f.Close()

	var st storedToken
	if err := json.NewDecoder(f).Decode(&st); err != nil {
		return "", fmt.Errorf("decode token file: %w", err)
	}
	if !st.Sealed {
		return st.Token, nil
	}
	if fs.aead == nil {
		return "", errors.New("token file is sealed but no secret is configured")
	}
	data, err := base64.StdEncoding.DecodeString(st.Token)
	if err != nil || len(data) < fs.aead.NonceSize() {
		return "", errors.New("token file is corrupt")
	}
	nonce, ct := data[:fs.aead.NonceSize()], data[fs.aead.NonceSize():]
	plain, err := fs.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("open token: %w", err)
	}
	return string(plain), nil
}

func (fs *FileStore) Save(token string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	st := storedToken{Token: token, SavedAt: time.Now().Unix()}
	if fs.aead != nil {
		nonce := make([]byte, fs.aead.NonceSize())
		if _, err := rand.Read(nonce); err != nil {
			return fmt.Errorf("generate nonce: %w", err)
		}
		st.Token = base64.StdEncoding.EncodeToString(fs.aead.Seal(nonce, nonce, []byte(token), nil))
		st.Sealed = true
	}

	if dir := filepath.Dir(fs.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(fs.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(st)
}

func (fs *FileStore) Clear() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := os.Remove(fs.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// NewAEAD derives a token cipher from secret.
func NewAEAD(secret string) (cipher.AEAD, error) {
	if secret == "" {
		return nil, errors.New("empty token secret")
	}
	key := make([]byte, chacha20poly1305.KeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("gophbank token"))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	return aead, nil
}

// MemoryStore is a TokenStore that lives only as long as the process.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Save(token string) error {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear() error {
	return m.Save("")
}
