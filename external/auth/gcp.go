package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gcpauth "cloud.google.com/go/auth"
	"cloud.google.com/go/auth/credentials"
	internalauth "github.com/husen-82/android-stt-ver2.0/internal/auth"
	"google.golang.org/api/option"
)

const (
	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
	handshakeTimeout   = 15 * time.Second
)

type state int

const (
	stateUninitialized state = iota
	stateInitializing
	stateReady
	stateFailed
)

type GCPConfig struct {
	ProjectID       string
	CredentialsJSON string
}

// tokenSource abstracts the live credential so the state machine can be
// exercised without real GCP material.
type tokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// session is everything a successful handshake yields.
type session struct {
	tokens        tokenSource
	projectID     string
	clientOptions []option.ClientOption
}

// GCPManager implements internal/auth.Manager on top of Google
// application-default credentials. The strategy is environment-selected:
// an inline service-account key when configured, ambient ADC (including
// workload identity federation in CI) otherwise.
type GCPManager struct {
	cfg       GCPConfig
	handshake func(ctx context.Context) (session, error)

	mu       sync.Mutex
	state    state
	inflight chan struct{}
	session  session
}

func NewGCPManager(cfg GCPConfig) *GCPManager {
	m := &GCPManager{cfg: cfg}
	m.handshake = m.detectAndProbe
	return m
}

// Initialize is idempotent. Exactly one handshake runs at a time;
// concurrent callers wait for the in-flight attempt and observe its
// outcome. A failed attempt leaves the manager retryable.
func (m *GCPManager) Initialize(ctx context.Context) error {
	for {
		m.mu.Lock()
		switch m.state {
		case stateReady:
			m.mu.Unlock()
			return nil
		case stateInitializing:
			done := m.inflight
			m.mu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		default:
			m.state = stateInitializing
			m.inflight = make(chan struct{})
			m.mu.Unlock()
		}

		sess, err := m.handshake(ctx)

		m.mu.Lock()
		if err != nil {
			m.state = stateFailed
			m.session = session{}
		} else {
			m.state = stateReady
			m.session = sess
		}
		close(m.inflight)
		m.mu.Unlock()

		if err != nil {
			return err
		}
		slog.Info("credential manager ready", "project_id", sess.projectID)
		return nil
	}
}

func (m *GCPManager) AccessToken(ctx context.Context) (string, error) {
	tokens, err := m.readySession()
	if err != nil {
		return "", err
	}
	return tokens.tokens.AccessToken(ctx)
}

func (m *GCPManager) ProjectID() (string, error) {
	sess, err := m.readySession()
	if err != nil {
		return "", err
	}
	return sess.projectID, nil
}

// ClientOptions returns authenticated options for constructing Google
// API clients. Fails fast before Initialize, like the other accessors.
func (m *GCPManager) ClientOptions() ([]option.ClientOption, error) {
	sess, err := m.readySession()
	if err != nil {
		return nil, err
	}
	return sess.clientOptions, nil
}

func (m *GCPManager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == stateReady
}

// Refresh discards all held credential material and runs a fresh
// Initialize. An in-flight initialization is allowed to finish first so
// stale and fresh credentials are never both current.
func (m *GCPManager) Refresh(ctx context.Context) error {
	for {
		m.mu.Lock()
		if m.state == stateInitializing {
			done := m.inflight
			m.mu.Unlock()
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		m.session = session{}
		m.state = stateUninitialized
		m.mu.Unlock()
		slog.Info("credential manager refresh requested")
		return m.Initialize(ctx)
	}
}

func (m *GCPManager) readySession() (session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != stateReady {
		return session{}, internalauth.ErrNotInitialized
	}
	return m.session, nil
}

// detectAndProbe acquires application-default credentials and proves
// they are live by fetching an access token and the project identifier
// before the manager transitions to ready.
func (m *GCPManager) detectAndProbe(ctx context.Context) (session, error) {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	opts := &credentials.DetectOptions{
		Scopes: []string{cloudPlatformScope},
	}
	strategy := "ambient"
	if m.cfg.CredentialsJSON != "" {
		opts.CredentialsJSON = []byte(m.cfg.CredentialsJSON)
		strategy = "keyfile"
	}
	slog.Info("credential manager initializing", "strategy", strategy)

	creds, err := credentials.DetectDefault(opts)
	if err != nil {
		return session{}, fmt.Errorf("%w: detect credentials: %v", internalauth.ErrAuthenticationFailed, err)
	}

	if _, err := creds.Token(ctx); err != nil {
		return session{}, fmt.Errorf("%w: token probe: %v", internalauth.ErrAuthenticationFailed, err)
	}

	projectID, err := creds.ProjectID(ctx)
	if err != nil || projectID == "" {
		// Workload identity credentials do not always carry a project;
		// fall back to the configured one.
		projectID = m.cfg.ProjectID
	}
	if projectID == "" {
		return session{}, fmt.Errorf("%w: no project id resolvable", internalauth.ErrAuthenticationFailed)
	}

	return session{
		tokens:        credsTokenSource{creds: creds},
		projectID:     projectID,
		clientOptions: []option.ClientOption{option.WithAuthCredentials(creds)},
	}, nil
}

type credsTokenSource struct {
	creds *gcpauth.Credentials
}

func (s credsTokenSource) AccessToken(ctx context.Context) (string, error) {
	tok, err := s.creds.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", internalauth.ErrAuthenticationFailed, err)
	}
	return tok.Value, nil
}
