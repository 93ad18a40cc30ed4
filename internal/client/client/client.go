package client

import (
	"context"

	"github.com/dmitrijs2005/donorlink/internal/client/mapper"
	"github.com/dmitrijs2005/donorlink/internal/client/models"
	"github.com/dmitrijs2005/donorlink/internal/common"
)

// Accessor is the request/response contract with the remote store for one
// collection. E is the domain entity, D its draft and P its partial update.
type Accessor[E models.Entity, D any, P any] interface {
	// ListAll returns every row, newest first.
	ListAll(ctx context.Context) ([]E, error)
	// GetByKey returns the newest row with the given access code.
	GetByKey(ctx context.Context, code string) (E, error)
	// ListByKey returns all rows with the given access code, newest first.
	ListByKey(ctx context.Context, code string) ([]E, error)
	Create(ctx context.Context, draft D) (E, error)
	UpdateFields(ctx context.Context, sel Selector, patch P) (E, error)
	Delete(ctx context.Context, sel Selector) error
}

type (
	DonorAccessor   = Accessor[models.Donor, models.DonorDraft, models.DonorPatch]
	RequestAccessor = Accessor[models.Request, models.RequestDraft, models.RequestPatch]
)

// StatsSource reports collection sizes.
type StatsSource interface {
	Stats(ctx context.Context) (models.Stats, error)
}

// Selector addresses rows for updates and deletes, either by identifier or
// by access code. Exactly one field must be set.
type Selector struct {
	ID         string
	AccessCode string
}

func ByID(id string) Selector { return Selector{ID: id} }

func ByAccessCode(code string) Selector {
	return Selector{AccessCode: models.NormalizeAccessCode(code)}
}

func (s Selector) Validate() error {
	if (s.ID == "") == (s.AccessCode == "") {
		return common.ErrInvalidSelector
	}
	if models.IsTemporaryID(s.ID) {
		return common.ErrTemporaryID
	}
	return nil
}

// column and value of the equality filter.
func (s Selector) filter() (string, string) {
	if s.ID != "" {
		return "id", s.ID
	}
	return "access_code", s.AccessCode
}

func (s Selector) String() string {
	c, v := s.filter()
	return c + "=" + v
}

// Table describes how one collection is laid out on the wire.
type Table[E models.Entity, D any, P any, R any] struct {
	Name     string
	Columns  []string
	Scan     func(mapper.Scanner) (R, error)
	ToDomain func(R) E
	ToInsert func(D) mapper.Payload
	ToUpdate func(P) mapper.Payload
}

var DonorTable = Table[models.Donor, models.DonorDraft, models.DonorPatch, mapper.DonorRow]{
	Name:     common.DonorsCollection,
	Columns:  mapper.DonorColumns,
	Scan:     mapper.ScanDonor,
	ToDomain: mapper.DonorToDomain,
	ToInsert: mapper.DonorToWireInsert,
	ToUpdate: mapper.DonorToWireUpdate,
}

var RequestTable = Table[models.Request, models.RequestDraft, models.RequestPatch, mapper.RequestRow]{
	Name:     common.RequestsCollection,
	Columns:  mapper.RequestColumns,
	Scan:     mapper.ScanRequest,
	ToDomain: mapper.RequestToDomain,
	ToInsert: mapper.RequestToWireInsert,
	ToUpdate: mapper.RequestToWireUpdate,
}

func toDomain[E models.Entity, R any](rows []R, fn func(R) E) []E {
	out := make([]E, 0, len(rows))
	for _, r := range rows {
		out = append(out, fn(r))
	}
	return out
}
