package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// Profile is the locally cached login context: which gateway this profile
// talks to and the last contact that signed in, so the auth form can be
// prefilled. No credentials are stored; the provider owns session tokens.
type Profile struct {
	GatewayURL string `json:"gateway_url"`
	Contact    string `json:"contact"`
}

func GetConfigDir(profileName string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "emberchat", profileName)
}

func getSealKey() []byte {
	paths := []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}
	var id string
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err == nil {
			id = strings.TrimSpace(string(data))
			break
		}
	}

	if id == "" {
		hostname, _ := os.Hostname()
		id = hostname
	}

	hash := sha256.Sum256([]byte(id))
	return hash[:]
}

func seal(data []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(getSealKey())
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, data, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func open(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(getSealKey())
	if err != nil {
		return nil, err
	}

	nonceSize := aead.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	return aead.Open(nil, nonce, sealed, nil)
}

// LoadProfile reads the cached profile, migrating a plaintext file left by
// an older build. Returns nil when nothing usable is cached.
func LoadProfile(profileName string) *Profile {
	configDir := GetConfigDir(profileName)
	if configDir == "" {
		return nil
	}

	data, err := os.ReadFile(filepath.Join(configDir, "profile.json"))
	if err != nil {
		return nil
	}

	opened, err := open(string(data))
	if err != nil {
		var p Profile
		if err := json.Unmarshal(data, &p); err == nil {
			SaveProfile(profileName, &p)
			return &p
		}
		return nil
	}

	var p Profile
	if err := json.Unmarshal(opened, &p); err != nil {
		return nil
	}
	return &p
}

func SaveProfile(profileName string, p *Profile) error {
	configDir := GetConfigDir(profileName)
	if configDir == "" {
		return fmt.Errorf("could not get config directory")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	sealed, err := seal(data)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, "profile.json"), []byte(sealed), 0600)
}

func ClearProfile(profileName string) {
	configDir := GetConfigDir(profileName)
	if configDir != "" {
		os.Remove(filepath.Join(configDir, "profile.json"))
	}
}
