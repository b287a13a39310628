package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultPersistKeyPrefix = "chatwright:session:"
	defaultPersistTTL       = 24 * time.Hour
	maxPersistResponseBytes = 2 << 20
)

// RedisPersisterConfig configures the Upstash Redis REST backend.
type RedisPersisterConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// RedisPersister stores session snapshots in Upstash Redis over its REST
// protocol. It satisfies Persister.
type RedisPersister struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
}

type PersistOption func(*RedisPersister)

func WithKeyPrefix(prefix string) PersistOption {
	return func(p *RedisPersister) {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			p.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) PersistOption {
	return func(p *RedisPersister) { p.ttl = ttl }
}

func WithHTTPClient(client *http.Client) PersistOption {
	return func(p *RedisPersister) {
		if client != nil {
			p.httpClient = client
		}
	}
}

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func NewRedisPersister(cfg RedisPersisterConfig, opts ...PersistOption) (*RedisPersister, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("redis rest url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("redis rest token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	p := &RedisPersister{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		keyPrefix:  defaultPersistKeyPrefix,
		ttl:        defaultPersistTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	return p, nil
}

func (p *RedisPersister) Load(ctx context.Context, sessionID string) (*Session, error) {
	key, err := p.key(sessionID)
	if err != nil {
		return nil, err
	}

	resp, err := p.exec(ctx, []any{"GET", key})
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrSessionNotFound
	}

	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, fmt.Errorf("decode session payload: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(encoded), &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if sess.State.Context == nil {
		sess.State.Context = make(map[string]any)
	}
	return &sess, nil
}

func (p *RedisPersister) Save(ctx context.Context, sess *Session) error {
	if sess == nil {
		return errors.New("session is nil")
	}
	key, err := p.key(sess.ID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	cmd := []any{"SET", key, string(payload)}
	if p.ttl > 0 {
		cmd = append(cmd, "EX", ttlSeconds(p.ttl))
	}
	_, err = p.exec(ctx, cmd)
	return err
}

func (p *RedisPersister) Delete(ctx context.Context, sessionID string) error {
	key, err := p.key(sessionID)
	if err != nil {
		return err
	}
	_, err = p.exec(ctx, []any{"DEL", key})
	return err
}

func (p *RedisPersister) key(sessionID string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrInvalidSession
	}
	return p.keyPrefix + sessionID, nil
}

func (p *RedisPersister) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPersistResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if ttl%time.Second != 0 {
		seconds++
	}
	if seconds <= 0 {
		return 1
	}
	return int64(seconds)
}
