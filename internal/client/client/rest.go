package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/donorlink/internal/client/mapper"
	"github.com/dmitrijs2005/donorlink/internal/client/models"
	"github.com/dmitrijs2005/donorlink/internal/common"
	"github.com/go-resty/resty/v2"
)

const restPathPrefix = "/rest/v1/"

// NewRESTClient builds the HTTP client shared by the REST accessors.
// Retries are left to the caller.
func NewRESTClient(baseURL, apiKey string, timeout time.Duration) *resty.Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		c.SetHeader(common.APIKeyHeaderName, apiKey).
			SetAuthToken(apiKey)
	}
	return c
}

// RESTAccessor talks to a PostgREST-style gateway in front of the store.
type RESTAccessor[E models.Entity, D any, P any, R any] struct {
	rc    *resty.Client
	table Table[E, D, P, R]
}

func NewRESTAccessor[E models.Entity, D any, P any, R any](rc *resty.Client, table Table[E, D, P, R]) *RESTAccessor[E, D, P, R] {
	return &RESTAccessor[E, D, P, R]{rc: rc, table: table}
}

func NewRESTDonors(rc *resty.Client) *RESTAccessor[models.Donor, models.DonorDraft, models.DonorPatch, mapper.DonorRow] {
	return NewRESTAccessor(rc, DonorTable)
}

func NewRESTRequests(rc *resty.Client) *RESTAccessor[models.Request, models.RequestDraft, models.RequestPatch, mapper.RequestRow] {
	return NewRESTAccessor(rc, RequestTable)
}

func (a *RESTAccessor[E, D, P, R]) path() string { return restPathPrefix + a.table.Name }

func (a *RESTAccessor[E, D, P, R]) request(ctx context.Context, result any) *resty.Request {
	return a.rc.R().
		SetContext(ctx).
		SetError(&StoreError{}).
		SetResult(result)
}

func (a *RESTAccessor[E, D, P, R]) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return remoteError(op, a.table.Name, mapTransportError(err))
	}
	if resp.IsError() {
		se, ok := resp.Error().(*StoreError)
		if !ok || se == nil {
			se = &StoreError{Message: resp.String()}
		}
		se.Status = resp.StatusCode()
		if se.Message == "" {
			se.Message = resp.Status()
		}
		return remoteError(op, a.table.Name, mapStatusError(se))
	}
	return nil
}

func (a *RESTAccessor[E, D, P, R]) list(ctx context.Context, op string, params map[string]string) ([]E, error) {
	var rows []R
	q := map[string]string{"select": "*", "order": "created_at.desc"}
	for k, v := range params {
		q[k] = v
	}
	resp, err := a.request(ctx, &rows).SetQueryParams(q).Get(a.path())
	if err := a.check(op, resp, err); err != nil {
		return nil, err
	}
	return toDomain(rows, a.table.ToDomain), nil
}

func (a *RESTAccessor[E, D, P, R]) ListAll(ctx context.Context) ([]E, error) {
	return a.list(ctx, "list", nil)
}

func (a *RESTAccessor[E, D, P, R]) ListByKey(ctx context.Context, code string) ([]E, error) {
	return a.list(ctx, "list by key", map[string]string{
		"access_code": "eq." + models.NormalizeAccessCode(code),
	})
}

func (a *RESTAccessor[E, D, P, R]) GetByKey(ctx context.Context, code string) (E, error) {
	var zero E
	code = models.NormalizeAccessCode(code)
	items, err := a.list(ctx, "get by key", map[string]string{
		"access_code": "eq." + code,
		"limit":       "1",
	})
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, &common.NotFoundError{Collection: a.table.Name, Key: code}
	}
	return items[0], nil
}

func (a *RESTAccessor[E, D, P, R]) Create(ctx context.Context, draft D) (E, error) {
	var (
		zero E
		rows []R
	)
	resp, err := a.request(ctx, &rows).
		SetHeader("Prefer", "return=representation").
		SetBody(a.table.ToInsert(draft)).
		Post(a.path())
	if err := a.check("create", resp, err); err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, remoteError("create", a.table.Name, fmt.Errorf("%w: empty insert response", common.ErrorInternal))
	}
	return a.table.ToDomain(rows[0]), nil
}

func (a *RESTAccessor[E, D, P, R]) UpdateFields(ctx context.Context, sel Selector, patch P) (E, error) {
	var (
		zero E
		rows []R
	)
	if err := sel.Validate(); err != nil {
		return zero, err
	}
	col, val := sel.filter()
	resp, err := a.request(ctx, &rows).
		SetHeader("Prefer", "return=representation").
		SetQueryParam(col, "eq."+val).
		SetBody(a.table.ToUpdate(patch)).
		Patch(a.path())
	if err := a.check("update", resp, err); err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, &common.NotFoundError{Collection: a.table.Name, Key: val}
	}
	return a.table.ToDomain(rows[0]), nil
}

func (a *RESTAccessor[E, D, P, R]) Delete(ctx context.Context, sel Selector) error {
	if err := sel.Validate(); err != nil {
		return err
	}
	col, val := sel.filter()
	resp, err := a.rc.R().
		SetContext(ctx).
		SetError(&StoreError{}).
		SetHeader("Prefer", "return=minimal").
		SetQueryParam(col, "eq."+val).
		Delete(a.path())
	return a.check("delete", resp, err)
}

// RESTStats counts rows with HEAD requests and exact count headers.
type RESTStats struct {
	rc *resty.Client
}

func NewRESTStats(rc *resty.Client) *RESTStats { return &RESTStats{rc: rc} }

func (s *RESTStats) count(ctx context.Context, table string) (int, error) {
	resp, err := s.rc.R().
		SetContext(ctx).
		SetHeader("Prefer", "count=exact").
		SetQueryParam("select", "id").
		Head(restPathPrefix + table)
	if err != nil {
		return 0, remoteError("count", table, mapTransportError(err))
	}
	if resp.IsError() {
		se := &StoreError{Status: resp.StatusCode(), Message: resp.Status()}
		return 0, remoteError("count", table, mapStatusError(se))
	}
	n, err := parseContentRange(resp.Header().Get("Content-Range"))
	if err != nil {
		return 0, remoteError("count", table, err)
	}
	return n, nil
}

func (s *RESTStats) Stats(ctx context.Context) (models.Stats, error) {
	donors, err := s.count(ctx, common.DonorsCollection)
	if err != nil {
		return models.Stats{}, err
	}
	requests, err := s.count(ctx, common.RequestsCollection)
	if err != nil {
		return models.Stats{}, err
	}
	return models.Stats{Donors: donors, Requests: requests}, nil
}

// parseContentRange extracts the total from "0-24/3573" or "*/0".
func parseContentRange(h string) (int, error) {
	i := strings.LastIndexByte(h, '/')
	if i < 0 || i == len(h)-1 {
		return 0, fmt.Errorf("malformed content range %q", h)
	}
	n, err := strconv.Atoi(h[i+1:])
	if err != nil {
		return 0, fmt.Errorf("malformed content range %q: %w", h, err)
	}
	return n, nil
}
