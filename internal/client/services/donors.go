package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/donorlink/internal/client/cache"
	"github.com/dmitrijs2005/donorlink/internal/client/client"
	"github.com/dmitrijs2005/donorlink/internal/client/mapper"
	"github.com/dmitrijs2005/donorlink/internal/client/models"
	"github.com/dmitrijs2005/donorlink/internal/client/realtime"
	"github.com/dmitrijs2005/donorlink/internal/common"
	"github.com/dmitrijs2005/donorlink/internal/logging"
)

// DonorService is the donor directory as seen by the presentation layer.
//
// List and GetByCode return open queries the caller must Close. Create,
// Update and Delete are optimistic and block until the remote store answers;
// remote failures are returned unchanged after the cache is rolled back.
type DonorService interface {
	List(ctx context.Context) *ListQuery[models.Donor]
	GetByCode(ctx context.Context, code string) *Query[models.Donor]
	Create(ctx context.Context, draft models.DonorDraft) (models.Donor, error)
	Update(ctx context.Context, code string, patch models.DonorPatch) (models.Donor, error)
	Delete(ctx context.Context, code string) error
	Store() *cache.Store[models.Donor]
}

type donorService struct {
	remote client.DonorAccessor
	store  *cache.Store[models.Donor]
	source realtime.Source
	logger logging.Logger
	retry  time.Duration
	now    func() time.Time
}

func NewDonorService(remote client.DonorAccessor, opts Options) DonorService {
	logger := opts.logger().With("module", "donors")
	return &donorService{
		remote: remote,
		store: cache.New(cache.Options[models.Donor]{
			Collection:        common.DonorsCollection,
			Logger:            logger,
			Metrics:           opts.Metrics,
			Correlate:         CorrelateDonors,
			TombstoneCapacity: opts.TombstoneCapacity,
		}),
		source: opts.Source,
		logger: logger,
		retry:  opts.ResubscribeDelay,
		now:    time.Now,
	}
}

func (s *donorService) Store() *cache.Store[models.Donor] { return s.store }

func (s *donorService) subscriber() Subscriber[models.Donor] {
	if s.source == nil {
		return nil
	}
	return func(ctx context.Context) (*realtime.Stream[models.Donor], error) {
		return realtime.Subscribe(ctx, s.source, common.DonorsCollection, mapper.DonorToDomain, s.logger)
	}
}

func (s *donorService) List(ctx context.Context) *ListQuery[models.Donor] {
	return openList(ctx, queryOptions[models.Donor]{
		store:     s.store,
		key:       cache.All(),
		fetch:     s.remote.ListAll,
		subscribe: s.subscriber(),
		logger:    s.logger,
		retry:     s.retry,
	})
}

func (s *donorService) GetByCode(ctx context.Context, code string) *Query[models.Donor] {
	code = models.NormalizeAccessCode(code)
	list := openList(ctx, queryOptions[models.Donor]{
		store: s.store,
		key:   cache.ByCode(code),
		fetch: singleton(func(ctx context.Context) (models.Donor, error) {
			return s.remote.GetByKey(ctx, code)
		}),
		subscribe: s.subscriber(),
		logger:    s.logger,
		retry:     s.retry,
	})
	return &Query[models.Donor]{list: list, collection: common.DonorsCollection, code: code}
}

// Create registers a donor. An empty access code is generated.
func (s *donorService) Create(ctx context.Context, draft models.DonorDraft) (models.Donor, error) {
	code, err := ensureAccessCode(draft.AccessCode)
	if err != nil {
		return models.Donor{}, err
	}
	draft.AccessCode = code
	s.store.Ensure(cache.All())

	optimistic := draft.Optimistic(models.NewTemporaryID(), s.now())
	return insert(ctx, s.store, s.logger, optimistic, func(ctx context.Context) (models.Donor, error) {
		return s.remote.Create(ctx, draft)
	})
}

// Update edits the donor profile filed under code.
func (s *donorService) Update(ctx context.Context, code string, patch models.DonorPatch) (models.Donor, error) {
	if patch.Empty() {
		return models.Donor{}, common.ErrEmptyPatch
	}
	sel := client.ByAccessCode(code)
	if err := sel.Validate(); err != nil {
		return models.Donor{}, err
	}
	return update(ctx, s.store, s.logger, sel.AccessCode, byAccessCode[models.Donor](code), patch.Apply,
		func(ctx context.Context) (models.Donor, error) {
			return s.remote.UpdateFields(ctx, sel, patch)
		})
}

// Delete removes the donor profile filed under code.
func (s *donorService) Delete(ctx context.Context, code string) error {
	sel := client.ByAccessCode(code)
	if err := sel.Validate(); err != nil {
		return err
	}
	return remove(ctx, s.store, byAccessCode[models.Donor](code), func(ctx context.Context) error {
		return s.remote.Delete(ctx, sel)
	})
}
