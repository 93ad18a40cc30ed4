package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/donorlink/internal/client/cache"
	"github.com/dmitrijs2005/donorlink/internal/client/client"
	"github.com/dmitrijs2005/donorlink/internal/client/mapper"
	"github.com/dmitrijs2005/donorlink/internal/client/models"
	"github.com/dmitrijs2005/donorlink/internal/client/realtime"
	"github.com/dmitrijs2005/donorlink/internal/common"
	"github.com/dmitrijs2005/donorlink/internal/logging"
)

// RequestService is the blood request board as seen by the presentation
// layer. Several requests may share one access code.
type RequestService interface {
	List(ctx context.Context) *ListQuery[models.Request]
	GetByCode(ctx context.Context, code string) *Query[models.Request]
	ListByCode(ctx context.Context, code string) *ListQuery[models.Request]
	Create(ctx context.Context, draft models.RequestDraft) (models.Request, error)
	UpdateStatus(ctx context.Context, id string, status models.RequestStatus) (models.Request, error)
	Delete(ctx context.Context, id string) error
	DeleteByCode(ctx context.Context, code string) error
	Store() *cache.Store[models.Request]
}

type requestService struct {
	remote client.RequestAccessor
	store  *cache.Store[models.Request]
	source realtime.Source
	logger logging.Logger
	retry  time.Duration
	now    func() time.Time
}

func NewRequestService(remote client.RequestAccessor, opts Options) RequestService {
	logger := opts.logger().With("module", "requests")
	return &requestService{
		remote: remote,
		store: cache.New(cache.Options[models.Request]{
			Collection:        common.RequestsCollection,
			Logger:            logger,
			Metrics:           opts.Metrics,
			Correlate:         CorrelateRequests,
			TombstoneCapacity: opts.TombstoneCapacity,
		}),
		source: opts.Source,
		logger: logger,
		retry:  opts.ResubscribeDelay,
		now:    time.Now,
	}
}

func (s *requestService) Store() *cache.Store[models.Request] { return s.store }

func (s *requestService) subscriber() Subscriber[models.Request] {
	if s.source == nil {
		return nil
	}
	return func(ctx context.Context) (*realtime.Stream[models.Request], error) {
		return realtime.Subscribe(ctx, s.source, common.RequestsCollection, mapper.RequestToDomain, s.logger)
	}
}

func (s *requestService) open(ctx context.Context, key cache.ViewKey, fetch func(context.Context) ([]models.Request, error)) *ListQuery[models.Request] {
	return openList(ctx, queryOptions[models.Request]{
		store:     s.store,
		key:       key,
		fetch:     fetch,
		subscribe: s.subscriber(),
		logger:    s.logger,
		retry:     s.retry,
	})
}

func (s *requestService) List(ctx context.Context) *ListQuery[models.Request] {
	return s.open(ctx, cache.All(), s.remote.ListAll)
}

// ListByCode lists the requests filed under code, newest first.
func (s *requestService) ListByCode(ctx context.Context, code string) *ListQuery[models.Request] {
	code = models.NormalizeAccessCode(code)
	return s.open(ctx, cache.ByCode(code), func(ctx context.Context) ([]models.Request, error) {
		return s.remote.ListByKey(ctx, code)
	})
}

// GetByCode returns the newest request filed under code.
func (s *requestService) GetByCode(ctx context.Context, code string) *Query[models.Request] {
	list := s.ListByCode(ctx, code)
	return &Query[models.Request]{list: list, collection: common.RequestsCollection, code: models.NormalizeAccessCode(code)}
}

// Create files a request. An empty access code is generated and an empty
// status means active.
func (s *requestService) Create(ctx context.Context, draft models.RequestDraft) (models.Request, error) {
	code, err := ensureAccessCode(draft.AccessCode)
	if err != nil {
		return models.Request{}, err
	}
	draft.AccessCode = code
	draft = draft.Normalize()
	if draft.Status != models.StatusActive {
		return models.Request{}, fmt.Errorf("%w: new request must be %s", common.ErrInvalidTransition, models.StatusActive)
	}
	s.store.Ensure(cache.All())

	optimistic := draft.Optimistic(models.NewTemporaryID(), s.now())
	return insert(ctx, s.store, s.logger, optimistic, func(ctx context.Context) (models.Request, error) {
		return s.remote.Create(ctx, draft)
	})
}

// UpdateStatus moves a request to status. A request that is no longer
// active cannot become active again.
func (s *requestService) UpdateStatus(ctx context.Context, id string, status models.RequestStatus) (models.Request, error) {
	if models.IsTemporaryID(id) {
		return models.Request{}, common.ErrTemporaryID
	}
	if !status.Valid() {
		return models.Request{}, fmt.Errorf("%w: unknown status %q", common.ErrInvalidTransition, status)
	}
	if cur, ok := s.store.Find(id); ok && !cur.Status.CanTransitionTo(status) {
		return models.Request{}, fmt.Errorf("%w: %s -> %s", common.ErrInvalidTransition, cur.Status, status)
	}

	patch := models.StatusPatch(status)
	return update(ctx, s.store, s.logger, id, byID[models.Request](id), patch.Apply,
		func(ctx context.Context) (models.Request, error) {
			return s.remote.UpdateFields(ctx, client.ByID(id), patch)
		})
}

// Delete removes one request.
func (s *requestService) Delete(ctx context.Context, id string) error {
	if models.IsTemporaryID(id) {
		return common.ErrTemporaryID
	}
	return remove(ctx, s.store, byID[models.Request](id), func(ctx context.Context) error {
		return s.remote.Delete(ctx, client.ByID(id))
	})
}

// DeleteByCode removes every request filed under code.
func (s *requestService) DeleteByCode(ctx context.Context, code string) error {
	sel := client.ByAccessCode(code)
	if err := sel.Validate(); err != nil {
		return err
	}
	return remove(ctx, s.store, byAccessCode[models.Request](code), func(ctx context.Context) error {
		return s.remote.Delete(ctx, sel)
	})
}
