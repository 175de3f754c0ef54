package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
)

// Mask replaces the value of every masked variable.
const Mask = "***"

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks the values of session
// variables whose names match any pattern before they reach the store.
// Masking is one-way: a masked variable reads back as Mask, so it only
// suits values needed within a single step (one-time codes, card numbers
// handed straight to an action).
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pii pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) mask(s *domain.Session) *domain.Session {
	cloned := s.Clone()
	for k := range cloned.Context {
		for _, p := range m.patterns {
			if p.MatchString(k) {
				cloned.Context[k] = Mask
				break
			}
		}
	}
	return cloned
}

func (m *piiMiddleware) Create(ctx context.Context, session *domain.Session) error {
	return m.next.Create(ctx, m.mask(session))
}

func (m *piiMiddleware) Save(ctx context.Context, session *domain.Session) error {
	return m.next.Save(ctx, m.mask(session))
}

func (m *piiMiddleware) Load(ctx context.Context, conversationID string) (*domain.Session, error) {
	return m.next.Load(ctx, conversationID)
}

func (m *piiMiddleware) Delete(ctx context.Context, conversationID string) error {
	return m.next.Delete(ctx, conversationID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
