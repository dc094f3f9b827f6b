package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/metafog/freesend/internal/pkg/config"
	"github.com/metafog/freesend/internal/pkg/fetchguard"
	"github.com/metafog/freesend/internal/pkg/goerror"
	"github.com/metafog/freesend/internal/pkg/instrument"
	"github.com/metafog/freesend/internal/relay/entity"
	"github.com/metafog/freesend/internal/relay/outbound/mailer"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
modules:
  relay:
    own_host: "freesend.test"
    max_concurrent_fetches: 2
`

type stubStore struct {
	mu          sync.Mutex
	smtpByToken map[string]*entity.SmtpConfig
	keyByToken  map[string]*entity.ApiKey
	smtpByID    map[string]*entity.SmtpConfig
	records     []entity.EmailRecord
	recordErr   error

	smtpByTokenCalls int
}

func (s *stubStore) GetSmtpConfigByToken(_ context.Context, token string) (*entity.SmtpConfig, error) {
	s.mu.Lock()
	s.smtpByTokenCalls++
	s.mu.Unlock()

	cfg, ok := s.smtpByToken[token]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return cfg, nil
}

func (s *stubStore) GetApiKeyByToken(_ context.Context, token string) (*entity.ApiKey, error) {
	key, ok := s.keyByToken[token]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return key, nil
}

func (s *stubStore) GetSmtpConfigByID(_ context.Context, id, tenantID string) (*entity.SmtpConfig, error) {
	cfg, ok := s.smtpByID[id]
	if !ok || cfg.TenantID != tenantID {
		return nil, goerror.ErrNotFound
	}
	return cfg, nil
}

func (s *stubStore) CreateEmailRecord(_ context.Context, rec entity.EmailRecord) error {
	if s.recordErr != nil {
		return s.recordErr
	}

	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	return nil
}

type spyMailer struct {
	mu      sync.Mutex
	servers []mailer.Server
	msgs    []mailer.Message
	err     error
}

func (m *spyMailer) Send(_ context.Context, srv mailer.Server, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	m.servers = append(m.servers, srv)
	m.msgs = append(m.msgs, msg)
	return nil
}

// stubCipher decrypts values stored as "enc:<plain>".
type stubCipher struct{ err error }

func (c stubCipher) Decrypt(stored string) (string, error) {
	if c.err != nil {
		return "", c.err
	}

	plain, ok := strings.CutPrefix(stored, "enc:")
	if !ok {
		return "", errors.New("malformed stored value")
	}
	return plain, nil
}

type stubFetcher struct {
	mu      sync.Mutex
	results map[string]*fetchguard.Result
	errs    map[string]error

	gotOwnHosts []string
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string, ownHosts ...string) (*fetchguard.Result, error) {
	f.mu.Lock()
	f.gotOwnHosts = ownHosts
	f.mu.Unlock()

	if err, ok := f.errs[rawURL]; ok {
		return nil, err
	}
	if res, ok := f.results[rawURL]; ok {
		return res, nil
	}
	return nil, errors.New("no stub for " + rawURL)
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type seqID struct {
	mu sync.Mutex
	n  int
}

func (s *seqID) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("rec-%d", s.n)
}

type usecaseFixture struct {
	uc      *Usecase
	store   *stubStore
	mailer  *spyMailer
	fetcher *stubFetcher
	now     time.Time
}

func newFixture(t *testing.T) *usecaseFixture {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(testConfigYAML))
	require.NoError(t, err)

	store := &stubStore{
		smtpByToken: map[string]*entity.SmtpConfig{},
		keyByToken:  map[string]*entity.ApiKey{},
		smtpByID:    map[string]*entity.SmtpConfig{},
	}
	spy := &spyMailer{}
	fetcher := &stubFetcher{results: map[string]*fetchguard.Result{}, errs: map[string]error{}}
	now := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

	uc := New(Dependency{
		RepoDB:     store,
		RepoMailer: spy,
		Cipher:     stubCipher{},
		Fetcher:    fetcher,
		Config:     cfg,
		OID:        &seqID{},
		Clock:      fixedClock{now: now},
		Instrument: instrument.NewNoop(),
	})

	return &usecaseFixture{uc: uc, store: store, mailer: spy, fetcher: fetcher, now: now}
}

func (f *usecaseFixture) withActiveKey(token string) {
	f.store.smtpByToken[token] = &entity.SmtpConfig{
		ID:       "smtp-1",
		TenantID: "tenant-1",
		Name:     "primary",
		Host:     "smtp.example.com",
		Port:     587,
		Security: entity.SecurityModeTLS,
		Username: "mailer@example.com",
		Password: "enc:hunter2",
	}
	smtpID := "smtp-1"
	f.store.keyByToken[token] = &entity.ApiKey{
		ID:           "key-1",
		TenantID:     "tenant-1",
		Name:         "prod",
		Token:        token,
		Status:       entity.KeyStatusActive,
		SmtpConfigID: &smtpID,
		CreatedAt:    f.now.Add(-24 * time.Hour),
	}
}

func requireBusinessError(t *testing.T, err error, msg string, code goerror.Code) {
	t.Helper()

	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, msg, gerr.Msg())
	require.Equal(t, code, gerr.Code())
}
