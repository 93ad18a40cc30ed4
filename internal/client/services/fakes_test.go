package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dmitrijs2005/donorlink/internal/client/client"
	"github.com/dmitrijs2005/donorlink/internal/client/models"
	"github.com/dmitrijs2005/donorlink/internal/client/realtime"
	"github.com/dmitrijs2005/donorlink/internal/common"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

// fakeDonors is an in-memory DonorAccessor. Hooks replace the default
// behaviour of single calls.
type fakeDonors struct {
	client.DonorAccessor

	mu     sync.Mutex
	rows   []models.Donor
	lists  int
	listFn func(ctx context.Context) ([]models.Donor, error)

	createFn func(ctx context.Context, d models.DonorDraft) (models.Donor, error)
	updateFn func(ctx context.Context, sel client.Selector, p models.DonorPatch) (models.Donor, error)
	deleteFn func(ctx context.Context, sel client.Selector) error
}

func (f *fakeDonors) ListAll(ctx context.Context) ([]models.Donor, error) {
	f.mu.Lock()
	f.lists++
	fn := f.listFn
	rows := append([]models.Donor(nil), f.rows...)
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return rows, nil
}

func (f *fakeDonors) GetByKey(ctx context.Context, code string) (models.Donor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.rows {
		if d.AccessCode == code {
			return d, nil
		}
	}
	return models.Donor{}, &common.NotFoundError{Collection: common.DonorsCollection, Key: code}
}

func (f *fakeDonors) Create(ctx context.Context, d models.DonorDraft) (models.Donor, error) {
	return f.createFn(ctx, d)
}

func (f *fakeDonors) UpdateFields(ctx context.Context, sel client.Selector, p models.DonorPatch) (models.Donor, error) {
	return f.updateFn(ctx, sel, p)
}

func (f *fakeDonors) Delete(ctx context.Context, sel client.Selector) error {
	return f.deleteFn(ctx, sel)
}

func (f *fakeDonors) add(d models.Donor) {
	f.mu.Lock()
	f.rows = append(f.rows, d)
	f.mu.Unlock()
}

func (f *fakeDonors) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

type fakeRequests struct {
	client.RequestAccessor

	mu   sync.Mutex
	rows []models.Request

	createFn func(ctx context.Context, d models.RequestDraft) (models.Request, error)
	updateFn func(ctx context.Context, sel client.Selector, p models.RequestPatch) (models.Request, error)
	deleteFn func(ctx context.Context, sel client.Selector) error
}

func (f *fakeRequests) ListAll(ctx context.Context) ([]models.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Request(nil), f.rows...), nil
}

func (f *fakeRequests) ListByKey(ctx context.Context, code string) ([]models.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Request
	for _, r := range f.rows {
		if r.AccessCode == code {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRequests) Create(ctx context.Context, d models.RequestDraft) (models.Request, error) {
	return f.createFn(ctx, d)
}

func (f *fakeRequests) UpdateFields(ctx context.Context, sel client.Selector, p models.RequestPatch) (models.Request, error) {
	return f.updateFn(ctx, sel, p)
}

func (f *fakeRequests) Delete(ctx context.Context, sel client.Selector) error {
	return f.deleteFn(ctx, sel)
}

// chanFeed is a realtime.Feed driven by the test.
type chanFeed struct {
	ch   chan realtime.Envelope
	done chan struct{}
	once sync.Once
}

func newChanFeed() *chanFeed {
	return &chanFeed{ch: make(chan realtime.Envelope, 16), done: make(chan struct{})}
}

func (f *chanFeed) Next(ctx context.Context) (realtime.Envelope, error) {
	select {
	case <-ctx.Done():
		return realtime.Envelope{}, ctx.Err()
	case <-f.done:
		return realtime.Envelope{}, common.ErrStreamClosed
	case env := <-f.ch:
		return env, nil
	}
}

func (f *chanFeed) Close() error {
	f.once.Do(func() { close(f.done) })
	return nil
}

func (f *chanFeed) isClosed() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// fakeSource hands out a fresh chanFeed per Open and reports it on opened.
type fakeSource struct {
	opened chan *chanFeed
}

func newFakeSource() *fakeSource {
	return &fakeSource{opened: make(chan *chanFeed, 8)}
}

func (s *fakeSource) Open(ctx context.Context, table string) (realtime.Feed, error) {
	f := newChanFeed()
	s.opened <- f
	return f, nil
}

func donorEnvelope(kind realtime.Kind, d models.Donor) realtime.Envelope {
	rec, _ := json.Marshal(map[string]any{
		"id":           d.ID,
		"access_code":  d.AccessCode,
		"full_name":    d.FullName,
		"phone_number": d.PhoneNumber,
		"blood_group":  string(d.BloodGroup),
		"city":         d.City,
		"created_at":   d.CreatedAt,
	})
	return realtime.Envelope{Type: kind, Table: common.DonorsCollection, Record: rec}
}

func donor(id, code string, age time.Duration) models.Donor {
	return models.Donor{
		ID: id, AccessCode: code, FullName: "Donor " + id, PhoneNumber: "1",
		BloodGroup: models.BloodGroupOPos, City: "Riga", CreatedAt: t0.Add(-age),
	}
}

func request(id, code string, status models.RequestStatus, age time.Duration) models.Request {
	return models.Request{
		ID: id, AccessCode: code, BloodGroup: models.BloodGroupBNeg, ContactNumber: "555",
		Location: "Ward 3", Urgency: models.UrgencyUrgent, Status: status, CreatedAt: t0.Add(-age),
	}
}
