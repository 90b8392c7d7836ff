package services

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"finanze/internal/core"
	"finanze/internal/fetcher"
	"finanze/internal/log"
	"finanze/internal/storage"
)

// pendingTTL bounds how long a CODE_REQUESTED attempt can be resumed.
const pendingTTL = 10 * time.Minute

type pendingLogin struct {
	entityID    string
	credentials map[string]string
	expires     time.Time
}

// pendingLogins tracks two-factor attempts awaiting their code, keyed by
// process id.
type pendingLogins struct {
	mu       sync.Mutex
	attempts map[string]pendingLogin
	now      func() time.Time
}

func newPendingLogins(now func() time.Time) *pendingLogins {
	return &pendingLogins{attempts: make(map[string]pendingLogin), now: now}
}

// start records an attempt and returns its new process id. An earlier
// attempt for the same entity is superseded.
func (p *pendingLogins) start(entityID string, creds map[string]string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, a := range p.attempts {
		if a.entityID == entityID {
			delete(p.attempts, id)
		}
	}
	id := uuid.NewString()
	p.attempts[id] = pendingLogin{entityID: entityID, credentials: creds, expires: p.now().Add(pendingTTL)}
	return id
}

// lookup returns the live attempt for processID if it belongs to entityID.
func (p *pendingLogins) lookup(processID, entityID string) (pendingLogin, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	a, ok := p.attempts[processID]
	if !ok || a.entityID != entityID {
		return pendingLogin{}, false
	}
	if p.now().After(a.expires) {
		delete(p.attempts, processID)
		return pendingLogin{}, false
	}
	return a, true
}

func (p *pendingLogins) finish(processID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.attempts, processID)
}

func (p *pendingLogins) dropEntity(entityID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, a := range p.attempts {
		if a.entityID == entityID {
			delete(p.attempts, id)
		}
	}
}

// LoginService runs interactive entity logins, including the two step
// code flow.
type LoginService struct {
	repo     *storage.SQLiteRepository
	creds    CredentialStore
	fetchers *fetcher.Registry
	pending  *pendingLogins
	logger   *log.Logger
	now      func() time.Time
}

func NewLoginService(repo *storage.SQLiteRepository, creds CredentialStore, fetchers *fetcher.Registry, logger *log.Logger) *LoginService {
	now := func() time.Time { return time.Now().UTC() }
	return &LoginService{
		repo:     repo,
		creds:    creds,
		fetchers: fetchers,
		pending:  newPendingLogins(now),
		logger:   logger.WithComponent(log.ComponentLogin),
		now:      now,
	}
}

// Login authenticates against an entity. Unknown entities are an error
// (core.ErrEntityNotFound); every other outcome is a result code.
func (s *LoginService) Login(ctx context.Context, req core.LoginRequest) (core.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return core.LoginResponse{}, err
	}
	entity, err := s.repo.GetEntity(ctx, req.Entity)
	if err != nil {
		return core.LoginResponse{}, err
	}
	if entity.Type != core.FinancialInstitution {
		return core.LoginResponse{}, errors.Wrapf(core.ErrInvalidRequest, "entity %s does not support login", entity.ID)
	}
	f, ok := s.fetchers.Get(entity.ID)
	if !ok {
		s.logger.ErrorContext(ctx, "No fetcher registered", log.FieldEntityID, entity.ID)
		return core.LoginResponse{Code: core.LoginUnexpectedError}, nil
	}

	creds := req.Credentials
	if req.Resuming() {
		attempt, ok := s.pending.lookup(*req.ProcessID, entity.ID)
		if !ok {
			s.logger.WarnContext(ctx, "Unknown login process",
				log.FieldEntityID, entity.ID,
				log.FieldProcessID, *req.ProcessID)
			return core.LoginResponse{Code: core.LoginInvalidCode}, nil
		}
		creds = mergeCredentials(attempt.credentials, req.Credentials)
	} else if !entity.CredentialsComplete(creds) {
		return core.LoginResponse{}, errors.Wrapf(core.ErrInvalidRequest, "incomplete credentials for %s", entity.ID)
	}

	result := f.Login(ctx, fetcher.LoginParams{
		Credentials: creds,
		Code:        req.Code,
		ProcessID:   req.ProcessID,
	})

	resp, err := s.complete(ctx, entity.ID, creds, req.ProcessID, result)
	if err != nil {
		return core.LoginResponse{}, err
	}
	s.logger.InfoContext(ctx, "Entity login finished",
		log.FieldEntityID, entity.ID,
		log.FieldResultCode, resp.Code,
		log.FieldCategory, resp.Code.Category().String())
	return resp, nil
}

// complete turns a fetcher login result into a response and persists what
// a successful login produced.
func (s *LoginService) complete(ctx context.Context, entityID string, creds map[string]string, processID *string, result fetcher.LoginResult) (core.LoginResponse, error) {
	switch result.Code {
	case core.LoginCodeRequested:
		pid := s.pending.start(entityID, creds)
		return core.LoginResponse{
			Code:      core.LoginCodeRequested,
			ProcessID: &pid,
			Details:   core.ProcessRef{ProcessID: pid},
		}, nil

	case core.LoginCreated, core.LoginResumed:
		if processID != nil {
			s.pending.finish(*processID)
		}
		if err := s.creds.SaveCredentials(ctx, entityID, creds); err != nil {
			return core.LoginResponse{}, errors.Wrap(err, "save credentials")
		}
		if err := s.saveSession(ctx, entityID, result); err != nil {
			return core.LoginResponse{}, err
		}
		return core.LoginResponse{Code: result.Code}, nil

	case core.LoginManual:
		return core.LoginResponse{Code: core.LoginManual, Details: result.Details}, nil
	}

	if !result.Code.Valid() {
		s.logger.ErrorContext(ctx, "Fetcher returned unknown login code",
			log.FieldEntityID, entityID,
			log.FieldResultCode, result.Code)
		return core.LoginResponse{Code: core.LoginUnexpectedError}, nil
	}
	return core.LoginResponse{Code: result.Code}, nil
}

func (s *LoginService) saveSession(ctx context.Context, entityID string, result fetcher.LoginResult) error {
	if result.Session == nil {
		return nil
	}
	now := s.now()
	session := storage.Session{Payload: result.Session, CreatedAt: now}
	if result.SessionTTL > 0 {
		expires := now.Add(result.SessionTTL)
		session.ExpiresAt = &expires
	}
	if err := s.repo.SaveSession(ctx, entityID, session); err != nil {
		return errors.Wrap(err, "save session")
	}
	return nil
}

// Disconnect forgets the credentials, session and pending attempts of an
// entity.
func (s *LoginService) Disconnect(ctx context.Context, req core.DisconnectRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if _, err := s.repo.GetEntity(ctx, req.EntityID); err != nil {
		return err
	}
	if err := s.creds.DeleteCredentials(ctx, req.EntityID); err != nil {
		return errors.Wrap(err, "delete credentials")
	}
	if err := s.repo.DeleteSession(ctx, req.EntityID); err != nil {
		return errors.Wrap(err, "delete session")
	}
	s.pending.dropEntity(req.EntityID)

	s.logger.InfoContext(ctx, "Entity disconnected",
		log.FieldEntityID, req.EntityID,
		log.FieldOperation, log.OpDisconnect)
	return nil
}

func mergeCredentials(base, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
