package identity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// SessionFileName is the file written under the data directory by sign-in.
const SessionFileName = "session.yaml"

// Session is the persisted sign-in state.
type Session struct {
	UserID   string    `yaml:"user_id"`
	Token    string    `yaml:"token,omitempty"`
	SignedIn time.Time `yaml:"signed_in"`
}

// FileProvider persists the session as YAML in a data directory so the
// CLI commands share one sign-in.
type FileProvider struct {
	path string

	mu sync.Mutex
	ls listeners
}

// NewFileProvider creates a provider storing its session under dataDir.
func NewFileProvider(dataDir string) *FileProvider {
	return &FileProvider{path: filepath.Join(dataDir, SessionFileName)}
}

var _ Provider = (*FileProvider)(nil)

// Path returns the session file location.
func (p *FileProvider) Path() string { return p.path }

// Load reads the stored session. It returns ErrNoSession when none exists.
func (p *FileProvider) Load() (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.load()
}

func (p *FileProvider) load() (Session, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("reading session: %w", err)
	}

	var s Session
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("parsing session: %w", err)
	}
	if s.UserID == "" {
		return Session{}, ErrNoSession
	}
	return s, nil
}

// CurrentIdentity implements Provider.
func (p *FileProvider) CurrentIdentity(_ context.Context) (string, error) {
	s, err := p.Load()
	if err != nil {
		return "", err
	}
	return s.UserID, nil
}

// OnIdentityChange implements Provider.
func (p *FileProvider) OnIdentityChange(fn func(string)) func() {
	return p.ls.add(fn)
}

// SignIn writes the session file with owner-only permissions.
func (p *FileProvider) SignIn(s Session) error {
	if s.UserID == "" {
		return fmt.Errorf("sign in: %w", ErrNoSession)
	}
	if s.SignedIn.IsZero() {
		s.SignedIn = time.Now().UTC()
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	p.mu.Lock()
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("creating data dir: %w", err)
	}
	err = os.WriteFile(p.path, data, 0o600)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("writing session: %w", err)
	}

	p.ls.notify(s.UserID)
	return nil
}

// SignOut removes the session file. Signing out twice is not an error.
func (p *FileProvider) SignOut() error {
	p.mu.Lock()
	err := os.Remove(p.path)
	p.mu.Unlock()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing session: %w", err)
	}

	p.ls.notify("")
	return nil
}
