package settings

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrInvalidValue is returned when an update carries an unsupported value.
var ErrInvalidValue = errors.New("invalid settings value")

// Invalidator drops cached copies of an image reference.
type Invalidator interface {
	Delete(ref string)
}

type Service struct {
	store       Store
	invalidator Invalidator
	logger      *zap.Logger
}

type ServiceOption func(*Service)

// WithInvalidator evicts the previous and new image references on every update.
func WithInvalidator(inv Invalidator) ServiceOption {
	return func(s *Service) { s.invalidator = inv }
}

func NewService(store Store, logger *zap.Logger, opts ...ServiceOption) *Service {
	s := &Service{store: store, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns a fresh snapshot of the certificate settings.
func (s *Service) Load(ctx context.Context) (Settings, error) {
	values, err := s.store.GetValues(ctx)
	if err != nil {
		return Settings{}, err
	}
	return FromValues(values), nil
}

// Update validates and stores the given raw values and returns the result.
func (s *Service) Update(ctx context.Context, values map[string]string) (Settings, error) {
	if err := validate(values); err != nil {
		return Settings{}, err
	}
	previous, err := s.Load(ctx)
	if err != nil {
		return Settings{}, err
	}
	if err := s.store.PutValues(ctx, values); err != nil {
		return Settings{}, err
	}

	s.logger.Info("Certificate settings updated", zap.Int("keys", len(values)))

	current, err := s.Load(ctx)
	if err != nil {
		return Settings{}, err
	}
	if s.invalidator != nil {
		for _, ref := range imageRefs(previous, current) {
			s.invalidator.Delete(ref)
		}
	}
	return current, nil
}

// imageRefs lists the distinct, non-empty image references of the given settings.
func imageRefs(all ...Settings) []string {
	seen := make(map[string]bool)
	var refs []string
	for _, st := range all {
		for _, ref := range []string{st.BackgroundURL, st.LogoURL, st.SignatureImageURL} {
			if ref != "" && !seen[ref] {
				seen[ref] = true
				refs = append(refs, ref)
			}
		}
	}
	return refs
}

func validate(values map[string]string) error {
	if v, ok := values[KeyBackgroundType]; ok && v != "" {
		switch BackgroundType(v) {
		case BackgroundDefault, BackgroundCustom:
		default:
			return fmt.Errorf("%w: %s=%q", ErrInvalidValue, KeyBackgroundType, v)
		}
	}
	if v, ok := values[KeySignatureType]; ok && v != "" {
		switch SignatureType(v) {
		case SignatureText, SignatureImage:
		default:
			return fmt.Errorf("%w: %s=%q", ErrInvalidValue, KeySignatureType, v)
		}
	}
	return nil
}
