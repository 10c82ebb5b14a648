package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/keepsite/apiserver/types"
	"github.com/rs/zerolog"
)

// EventChannel is the broker channel content-change events go to.
const EventChannel = "content-events"

// PageRepository defines persistence operations for CMS pages.
type PageRepository interface {
	List(ctx context.Context) ([]types.Page, error)
	ListPublic(ctx context.Context) ([]types.PublicPage, error)
	Get(ctx context.Context, id int) (types.Page, error)
	GetHomepage(ctx context.Context) (types.Page, error)
	Create(ctx context.Context, page types.Page) (types.Page, error)
	Update(ctx context.Context, page types.Page) (types.Page, error)
	UpdateFields(ctx context.Context, id int, fields map[string]any) (types.Page, error)
	Delete(ctx context.Context, id int) error
	Reorder(ctx context.Context, orderedIDs []int) error
}

// EventPublisher delivers content-change events to downstream
// consumers (cache invalidators, static-site rebuilds).
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// ContentEvent describes a mutation of the page set.
type ContentEvent struct {
	Action string    `json:"action"`
	PageID int       `json:"page_id,omitempty"`
	Order  []int     `json:"order,omitempty"`
	At     time.Time `json:"at"`
}

// PageService encapsulates page use-cases and emits content-change
// events after successful mutations. A nil publisher disables events.
type PageService struct {
	repo      PageRepository
	publisher EventPublisher
	logger    zerolog.Logger
}

func NewPageService(repo PageRepository, publisher EventPublisher, logger zerolog.Logger) *PageService {
	return &PageService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *PageService) List(ctx context.Context) ([]types.Page, error) {
	return s.repo.List(ctx)
}

func (s *PageService) ListPublic(ctx context.Context) ([]types.PublicPage, error) {
	return s.repo.ListPublic(ctx)
}

func (s *PageService) Get(ctx context.Context, id int) (types.Page, error) {
	return s.repo.Get(ctx, id)
}

func (s *PageService) GetHomepage(ctx context.Context) (types.Page, error) {
	return s.repo.GetHomepage(ctx)
}

func (s *PageService) Create(ctx context.Context, page types.Page) (types.Page, error) {
	created, err := s.repo.Create(ctx, page)
	if err != nil {
		return types.Page{}, err
	}
	s.publishEvent(ctx, ContentEvent{Action: "page.created", PageID: created.ID})
	return created, nil
}

func (s *PageService) Update(ctx context.Context, page types.Page) (types.Page, error) {
	updated, err := s.repo.Update(ctx, page)
	if err != nil {
		return types.Page{}, err
	}
	s.publishEvent(ctx, ContentEvent{Action: "page.updated", PageID: updated.ID})
	return updated, nil
}

func (s *PageService) Patch(ctx context.Context, id int, fields map[string]any) (types.Page, error) {
	updated, err := s.repo.UpdateFields(ctx, id, fields)
	if err != nil {
		return types.Page{}, err
	}
	s.publishEvent(ctx, ContentEvent{Action: "page.updated", PageID: id})
	return updated, nil
}

func (s *PageService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publishEvent(ctx, ContentEvent{Action: "page.deleted", PageID: id})
	return nil
}

// Reorder applies the requested navigation order. An empty sequence is
// a no-op and publishes nothing.
func (s *PageService) Reorder(ctx context.Context, orderedIDs []int) error {
	if len(orderedIDs) == 0 {
		return nil
	}
	if err := s.repo.Reorder(ctx, orderedIDs); err != nil {
		return err
	}
	s.publishEvent(ctx, ContentEvent{Action: "pages.reordered", Order: orderedIDs})
	return nil
}

// publishEvent is best-effort: a broker failure is logged and never
// surfaced to the caller that performed the mutation.
func (s *PageService) publishEvent(ctx context.Context, event ContentEvent) {
	if s.publisher == nil {
		return
	}
	event.At = time.Now()
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error().Err(err).Str("action", event.Action).Msg("encode content event")
		return
	}
	if _, err := s.publisher.Publish(ctx, EventChannel, data, map[string]string{"action": event.Action}); err != nil {
		s.logger.Warn().Err(err).Str("action", event.Action).Msg("publish content event")
	}
}
