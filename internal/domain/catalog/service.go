package catalog

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const (
	pushChannel = "canalProductos"
	pushEvent   = "eventoProductos"
)

// ErrInvalidInput marks validation failures; handlers map it to 400.
var ErrInvalidInput = errors.New("datos de producto inválidos")

// PushTrigger publishes catalog change events to the realtime channel.
type PushTrigger interface {
	Trigger(ctx context.Context, channel, event string, data interface{}) error
}

type Service struct {
	repo   Repository
	push   PushTrigger
	logger zerolog.Logger
}

// NewService wires the catalog service; push may be nil when realtime
// delivery is not configured.
func NewService(repo Repository, push PushTrigger, logger zerolog.Logger) *Service {
	return &Service{repo: repo, push: push, logger: logger}
}

func (s *Service) Search(ctx context.Context, term string) ([]Product, error) {
	products, err := s.repo.Search(ctx, strings.TrimSpace(term))
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

func (s *Service) NamesByCategory(ctx context.Context, category string) ([]string, error) {
	names, err := s.repo.NamesByCategory(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Product, []Ingredient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	ingredients, err := s.repo.Ingredients(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return p, ingredients, nil
}

// Upsert validates the payload, writes it, and fires the realtime event.
// A failed push never fails the mutation.
func (s *Service) Upsert(ctx context.Context, in ProductInput) (int64, error) {
	p, err := parseProduct(in)
	if err != nil {
		return 0, err
	}

	action := "creado"
	if p.ID > 0 {
		if err := s.repo.Update(ctx, p); err != nil {
			return 0, err
		}
		action = "actualizado"
	} else {
		id, err := s.repo.Insert(ctx, p)
		if err != nil {
			return 0, err
		}
		p.ID = id
	}

	s.trigger(ctx, map[string]interface{}{"accion": action, "id": p.ID, "nombre": p.Name})
	return p.ID, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.trigger(ctx, map[string]interface{}{"accion": "eliminado", "id": id})
	return nil
}

func (s *Service) trigger(ctx context.Context, data map[string]interface{}) {
	if s.push == nil {
		return
	}
	if err := s.push.Trigger(ctx, pushChannel, pushEvent, data); err != nil {
		s.logger.Warn().Err(err).Msg("catalog: push trigger failed")
	}
}

func parseProduct(in ProductInput) (*Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidInput
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(in.Price), 64)
	if err != nil {
		return nil, ErrInvalidInput
	}

	p := &Product{
		Name:     name,
		Price:    price,
		Category: strings.TrimSpace(in.Category),
	}

	if raw := strings.TrimSpace(in.ID); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return nil, ErrInvalidInput
		}
		p.ID = id
	}

	// Empty stock means unknown, stored as NULL.
	if raw := strings.TrimSpace(in.Stock); raw != "" {
		stock, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, ErrInvalidInput
		}
		p.Stock = &stock
	}

	if desc := strings.TrimSpace(in.Description); desc != "" {
		p.Description = &desc
	}

	return p, nil
}
