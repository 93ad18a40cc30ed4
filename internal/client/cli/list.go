package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/donorlink/internal/client/models"
	"github.com/dmitrijs2005/donorlink/internal/client/services"
)

// listResult returns the current view contents, waiting for the first
// fetch when nothing is cached yet.
func listResult[E models.Entity](ctx context.Context, q *services.ListQuery[E]) (services.Result[[]E], error) {
	r := q.Result()
	if !r.IsLoading {
		return r, nil
	}
	return q.Wait(ctx)
}

func (a *App) ListDonors(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	r, err := listResult(ctx, a.donorList)
	if err != nil {
		return err
	}
	if r.Err != nil {
		if len(r.Data) == 0 {
			return r.Err
		}
		fmt.Fprintln(a.out, "Warning: showing cached donors:", r.Err)
	}
	if len(r.Data) == 0 {
		fmt.Fprintln(a.out, "No donors registered yet.")
		return nil
	}
	for _, d := range r.Data {
		fmt.Fprintln(a.out, formatDonorLine(d))
	}
	return nil
}

func (a *App) ListRequests(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	r, err := listResult(ctx, a.requestList)
	if err != nil {
		return err
	}
	return a.printRequests(r, "No blood requests yet.")
}

func (a *App) printRequests(r services.Result[[]models.Request], empty string) error {
	if r.Err != nil {
		if len(r.Data) == 0 {
			return r.Err
		}
		fmt.Fprintln(a.out, "Warning: showing cached requests:", r.Err)
	}
	if len(r.Data) == 0 {
		fmt.Fprintln(a.out, empty)
		return nil
	}
	for _, req := range r.Data {
		fmt.Fprintln(a.out, formatRequestLine(req))
	}
	return nil
}

// ShowDonor prints the donor profile filed under code, prompting for the
// code when it is empty.
func (a *App) ShowDonor(ctx context.Context, code string) error {
	code, err := a.accessCode(code)
	if err != nil {
		return err
	}

	q := a.donors.GetByCode(ctx, code)
	defer q.Close()

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	r, err := q.Wait(ctx)
	if err != nil {
		return err
	}
	if r.Err != nil {
		return r.Err
	}
	fmt.Fprintln(a.out, formatDonor(r.Data))
	return nil
}

// MyRequests lists every request filed under code.
func (a *App) MyRequests(ctx context.Context, code string) error {
	code, err := a.accessCode(code)
	if err != nil {
		return err
	}

	q := a.requests.ListByCode(ctx, code)
	defer q.Close()

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	r, err := q.Wait(ctx)
	if err != nil {
		return err
	}
	return a.printRequests(r, "No requests filed under this access code.")
}

func (a *App) Stats(ctx context.Context) error {
	r := a.statsQuery.Result()
	if r.IsLoading || r.Err != nil {
		ctx, cancel := a.withTimeout(ctx)
		defer cancel()
		if err := a.statsQuery.Refetch(ctx); err != nil {
			return err
		}
		r = a.statsQuery.Result()
	}
	fmt.Fprintf(a.out, "Donors: %d\nRequests: %d\n", r.Data.Donors, r.Data.Requests)
	return nil
}

// Metrics prints the cache counters gathered since startup.
func (a *App) Metrics(context.Context) error {
	families, err := a.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := ""
			for _, lp := range m.GetLabel() {
				labels += fmt.Sprintf(" %s=%s", lp.GetName(), lp.GetValue())
			}
			value := m.GetCounter().GetValue()
			if g := m.GetGauge(); g != nil {
				value = g.GetValue()
			}
			fmt.Fprintf(a.out, "%s%s %g\n", mf.GetName(), labels, value)
		}
	}
	return nil
}

// ResetCache drops the saved snapshots and reloads both lists from the
// remote store.
func (a *App) ResetCache(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.snapshots.Reset(ctx); err != nil {
		return err
	}
	if err := a.donorList.Refetch(ctx); err != nil {
		return err
	}
	if err := a.requestList.Refetch(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Saved snapshots dropped; lists reloaded.")
	return nil
}
