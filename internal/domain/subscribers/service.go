package subscribers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"bounty-webhooks/internal/domain/events"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	URL         string
	Events      []string
	Secret      string
	Description string
	Active      *bool // nil => true
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Subscriber, error) {
	u, err := validateURL(in.URL)
	if err != nil {
		return Subscriber{}, err
	}
	evs, err := parseEvents(in.Events)
	if err != nil {
		return Subscriber{}, err
	}
	secret, err := validateSecret(in.Secret)
	if err != nil {
		return Subscriber{}, err
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}

	now := s.now().UTC()
	sub := Subscriber{
		ID:          uuid.NewString(),
		URL:         u,
		Events:      evs,
		Active:      active,
		Secret:      secret,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		return Subscriber{}, err
	}
	return sub, nil
}

// PatchSecret distingue "no enviado" de "limpiar" (null o "").
type PatchSecret struct {
	Present bool
	Value   string
}

type UpdateInput struct {
	URL         *string
	Events      *[]string
	Active      *bool
	Description *string
	Secret      PatchSecret
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Subscriber, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Subscriber{}, ErrInvalidInput
	}

	cur, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Subscriber{}, err
	}

	if in.URL != nil {
		u, err := validateURL(*in.URL)
		if err != nil {
			return Subscriber{}, err
		}
		cur.URL = u
	}
	if in.Events != nil {
		evs, err := parseEvents(*in.Events)
		if err != nil {
			return Subscriber{}, err
		}
		cur.Events = evs
	}
	if in.Active != nil {
		cur.Active = *in.Active
	}
	if in.Description != nil {
		cur.Description = strings.TrimSpace(*in.Description)
	}
	if in.Secret.Present {
		secret, err := validateSecret(in.Secret.Value)
		if err != nil {
			return Subscriber{}, err
		}
		cur.Secret = secret
	}

	cur.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, cur); err != nil {
		return Subscriber{}, err
	}
	return cur, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Subscriber, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Subscriber{}, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Subscriber, error) {
	return s.repo.List(ctx)
}

// ListActive es la lectura única por ciclo que hace el poller.
func (s *Service) ListActive(ctx context.Context) ([]Subscriber, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Subscriber, 0, len(all))
	for _, sub := range all {
		if sub.Active {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: url required", ErrInvalidInput)
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: url must be absolute", ErrInvalidInput)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: url scheme must be http or https", ErrInvalidInput)
	}
	return raw, nil
}

// validateSecret no recorta: el secret es la clave HMAC y el receptor la
// tiene byte a byte. Vacío significa "usar la clave global".
func validateSecret(raw string) (string, error) {
	if raw != "" && strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: secret must not be blank", ErrInvalidInput)
	}
	return raw, nil
}

// parseEvents valida y deduplica, conservando el orden de ciclo de vida.
func parseEvents(in []string) ([]events.EventType, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: events required", ErrInvalidInput)
	}

	want := map[events.EventType]bool{}
	for _, raw := range in {
		t, ok := events.ParseEventType(raw)
		if !ok {
			return nil, fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, raw)
		}
		want[t] = true
	}

	out := make([]events.EventType, 0, len(want))
	for _, t := range events.LifecycleTypes() {
		if want[t] {
			out = append(out, t)
		}
	}
	return out, nil
}
