// Package memstore holds in-memory versions of the repositories and the
// delivery collaborators for tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"sdp-backend/internal/apperr"
	"sdp-backend/internal/models"

	"github.com/google/uuid"
)

// Accounts is an in-memory account and address store
type Accounts struct {
	mu        sync.Mutex
	byID      map[string]*models.Account
	addresses map[string][]models.Address
	seq       int
}

func NewAccounts() *Accounts {
	return &Accounts{
		byID:      make(map[string]*models.Account),
		addresses: make(map[string][]models.Address),
	}
}

func (s *Accounts) Create(_ context.Context, a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byID {
		if a.Email != nil && existing.Email != nil && *a.Email == *existing.Email {
			return apperr.ErrEmailTaken
		}
		if a.Mobile != nil && existing.Mobile != nil && *a.Mobile == *existing.Mobile {
			return apperr.ErrMobileTaken
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Role == "" {
		a.Role = models.RoleCustomer
	}
	s.seq++
	a.CreatedAt = time.Unix(int64(s.seq), 0)
	a.UpdatedAt = a.CreatedAt
	cp := *a
	s.byID[a.ID] = &cp
	return nil
}

func (s *Accounts) find(match func(*models.Account) bool) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.byID {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *Accounts) GetByID(_ context.Context, id string) (*models.Account, error) {
	return s.find(func(a *models.Account) bool { return a.ID == id })
}

func (s *Accounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	return s.find(func(a *models.Account) bool { return a.Email != nil && *a.Email == email })
}

func (s *Accounts) GetByMobile(_ context.Context, mobile string) (*models.Account, error) {
	return s.find(func(a *models.Account) bool { return a.Mobile != nil && *a.Mobile == mobile })
}

func (s *Accounts) update(id string, fn func(*models.Account) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	return fn(a)
}

func (s *Accounts) MarkEmailVerified(_ context.Context, id string, at time.Time) error {
	return s.update(id, func(a *models.Account) error {
		a.EmailVerified = true
		a.EmailVerifiedAt = &at
		return nil
	})
}

func (s *Accounts) AttachMobile(_ context.Context, id, mobile string, at time.Time) error {
	s.mu.Lock()
	for otherID, other := range s.byID {
		if otherID != id && other.Mobile != nil && *other.Mobile == mobile {
			s.mu.Unlock()
			return apperr.ErrMobileTaken
		}
	}
	s.mu.Unlock()

	return s.update(id, func(a *models.Account) error {
		a.Mobile = &mobile
		a.MobileVerified = true
		a.MobileVerifiedAt = &at
		return nil
	})
}

func (s *Accounts) UpdateGating(_ context.Context, id string, g models.Gating) error {
	return s.update(id, func(a *models.Account) error {
		a.ProfileComplete = g.ProfileComplete
		a.CanPlaceOrders = g.CanPlaceOrders
		return nil
	})
}

// SetGatingFlags overwrites the stored flags without recomputing them
func (s *Accounts) SetGatingFlags(id string, profileComplete, canPlaceOrders bool) {
	s.update(id, func(a *models.Account) error {
		a.ProfileComplete = profileComplete
		a.CanPlaceOrders = canPlaceOrders
		return nil
	})
}

// Remove deletes an account outright
func (s *Accounts) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
}

func (s *Accounts) List(_ context.Context, limit, offset int) ([]*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*models.Account, 0, len(s.byID))
	for _, a := range s.byID {
		cp := *a
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (s *Accounts) AddAddress(_ context.Context, addr *models.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[addr.AccountID]; !ok {
		return apperr.ErrNotFound
	}
	if addr.ID == "" {
		addr.ID = uuid.NewString()
	}
	s.addresses[addr.AccountID] = append(s.addresses[addr.AccountID], *addr)
	return nil
}

// VerifyAddresses marks every address on the account verified
func (s *Accounts) VerifyAddresses(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.addresses[accountID] {
		s.addresses[accountID][i].Verified = true
	}
}

func (s *Accounts) VerifyAddress(_ context.Context, addressID string) (*models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for accountID := range s.addresses {
		for i := range s.addresses[accountID] {
			if s.addresses[accountID][i].ID == addressID {
				s.addresses[accountID][i].Verified = true
				cp := s.addresses[accountID][i]
				return &cp, nil
			}
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *Accounts) ListAddresses(_ context.Context, accountID string) ([]models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Address(nil), s.addresses[accountID]...), nil
}

// OTPs is an in-memory OTP challenge store
type OTPs struct {
	mu         sync.Mutex
	challenges []*models.OTPChallenge
	seq        int
}

func NewOTPs() *OTPs {
	return &OTPs{}
}

func (s *OTPs) Create(_ context.Context, c *models.OTPChallenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	s.seq++
	c.CreatedAt = time.Unix(int64(s.seq), 0)
	cp := *c
	s.challenges = append(s.challenges, &cp)
	return nil
}

func (s *OTPs) LatestByMobile(_ context.Context, mobile string) (*models.OTPChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.challenges) - 1; i >= 0; i-- {
		c := s.challenges[i]
		if c.Mobile == mobile {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *OTPs) get(id string) *models.OTPChallenge {
	for _, c := range s.challenges {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *OTPs) IncrementAttempts(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.get(id); c != nil && c.Status == models.OTPStatusPending {
		c.Attempts++
	}
	return nil
}

func (s *OTPs) SetStatus(_ context.Context, id, status string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.get(id)
	if c == nil || c.Status != models.OTPStatusPending {
		return false, nil
	}
	c.Status = status
	return true, nil
}

func (s *OTPs) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.challenges {
		if c.ID == id {
			s.challenges = append(s.challenges[:i], s.challenges[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *OTPs) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.challenges[:0]
	var n int64
	for _, c := range s.challenges {
		if c.ExpiresAt.Before(now) {
			n++
			continue
		}
		kept = append(kept, c)
	}
	s.challenges = kept
	return n, nil
}

// Len reports how many challenges are stored
func (s *OTPs) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.challenges)
}

// Latest returns a copy of the most recently created challenge
func (s *OTPs) Latest() *models.OTPChallenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.challenges) == 0 {
		return nil
	}
	cp := *s.challenges[len(s.challenges)-1]
	return &cp
}

// Tokens is an in-memory email verification token store
type Tokens struct {
	mu     sync.Mutex
	tokens map[string]*models.VerificationToken
}

func NewTokens() *Tokens {
	return &Tokens{tokens: make(map[string]*models.VerificationToken)}
}

func (s *Tokens) Replace(_ context.Context, t *models.VerificationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.tokens {
		if existing.AccountID == t.AccountID {
			delete(s.tokens, id)
		}
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	cp := *t
	s.tokens[t.ID] = &cp
	return nil
}

func (s *Tokens) Find(_ context.Context, accountID, tokenHash string) (*models.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tokens {
		if t.AccountID == accountID && t.TokenHash == tokenHash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *Tokens) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[id]; !ok {
		return false, nil
	}
	delete(s.tokens, id)
	return true, nil
}

func (s *Tokens) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, t := range s.tokens {
		if t.ExpiresAt.Before(now) {
			delete(s.tokens, id)
			n++
		}
	}
	return n, nil
}

// Len reports how many tokens are stored
func (s *Tokens) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// Admins is an in-memory operator store
type Admins struct {
	mu     sync.Mutex
	admins map[string]*models.AdminAccount
}

func NewAdmins(admins ...*models.AdminAccount) *Admins {
	s := &Admins{admins: make(map[string]*models.AdminAccount)}
	for _, a := range admins {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		cp := *a
		s.admins[a.ID] = &cp
	}
	return s
}

func (s *Admins) GetByID(_ context.Context, id string) (*models.AdminAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Admins) GetByEmail(_ context.Context, email string) (*models.AdminAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.admins {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *Admins) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.admins[id]; ok {
		a.LastLogin = &at
	}
	return nil
}

func (s *Admins) SetActive(_ context.Context, id string, isActive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[id]
	if !ok {
		return apperr.ErrNotFound
	}
	a.IsActive = isActive
	return nil
}

// LoginLogs is an in-memory operator login log
type LoginLogs struct {
	mu      sync.Mutex
	Entries []models.LoginLog
}

func (s *LoginLogs) Create(_ context.Context, l *models.LoginLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Entries = append(s.Entries, *l)
	return nil
}

func (s *LoginLogs) CloseLatest(_ context.Context, adminID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.Entries) - 1; i >= 0; i-- {
		if s.Entries[i].AdminID == adminID && s.Entries[i].LogoutTime == nil {
			s.Entries[i].LogoutTime = &at
			return nil
		}
	}
	return nil
}

// Sender records delivered OTP codes
type Sender struct {
	mu    sync.Mutex
	Err   error
	Codes map[string][]string
}

func NewSender() *Sender {
	return &Sender{Codes: make(map[string][]string)}
}

func (s *Sender) SendOTP(_ context.Context, mobile, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Codes[mobile] = append(s.Codes[mobile], code)
	return nil
}

// LastCode returns the most recent code sent to mobile
func (s *Sender) LastCode(mobile string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	codes := s.Codes[mobile]
	if len(codes) == 0 {
		return ""
	}
	return codes[len(codes)-1]
}

// Mailer records verification links
type Mailer struct {
	mu    sync.Mutex
	Err   error
	Links map[string][]string
}

func NewMailer() *Mailer {
	return &Mailer{Links: make(map[string][]string)}
}

func (m *Mailer) SendVerification(_ context.Context, to, _, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Links[to] = append(m.Links[to], link)
	return nil
}

// LastLink returns the most recent link mailed to the address
func (m *Mailer) LastLink(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	links := m.Links[to]
	if len(links) == 0 {
		return ""
	}
	return links[len(links)-1]
}

// Sent reports how many links were mailed to the address
func (m *Mailer) Sent(to string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Links[to])
}
