package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/donorlink/internal/client/models"
	"github.com/dmitrijs2005/donorlink/internal/client/realtime"
	"github.com/dmitrijs2005/donorlink/internal/common"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func donor(id, code, name string, age time.Duration) models.Donor {
	return models.Donor{
		ID: id, AccessCode: code, FullName: name, PhoneNumber: "1",
		BloodGroup: models.BloodGroupONeg, City: "Riga", CreatedAt: t0.Add(-age),
	}
}

func request(id, code string, status models.RequestStatus, age time.Duration) models.Request {
	return models.Request{
		ID: id, AccessCode: code, BloodGroup: models.BloodGroupAPos, ContactNumber: "555",
		Location: "Ward 3", Urgency: models.UrgencyNormal, Status: status, CreatedAt: t0.Add(-age),
	}
}

func sameAccessCode(a, b models.Donor) bool { return a.AccessCode == b.AccessCode }

func newDonorStore() *Store[models.Donor] {
	return New(Options[models.Donor]{Collection: common.DonorsCollection, Correlate: sameAccessCode})
}

func newRequestStore() *Store[models.Request] {
	return New(Options[models.Request]{Collection: common.RequestsCollection})
}

func load[E models.Entity](t *testing.T, s *Store[E], key ViewKey, rows ...E) {
	t.Helper()
	require.NoError(t, s.Refresh(context.Background(), key, func(context.Context) ([]E, error) {
		return rows, nil
	}))
}

func ids[E models.Entity](items []E) []string {
	out := make([]string, len(items))
	for i, e := range items {
		out[i] = e.GetID()
	}
	return out
}

func assertNoDuplicateIDs[E models.Entity](t *testing.T, s *Store[E]) {
	t.Helper()
	for _, k := range s.Keys() {
		seen := map[string]bool{}
		for _, id := range ids(s.List(k)) {
			require.False(t, seen[id], "duplicate %s in %s", id, k)
			seen[id] = true
		}
	}
}

func TestViewKey_RoundTrip(t *testing.T) {
	for _, k := range []ViewKey{All(), ByCode("ab12-cd34")} {
		got, err := ParseViewKey(k.String())
		require.NoError(t, err)
		require.Equal(t, k, got)
	}
	assert.Equal(t, "byCode:AB12-CD34", ByCode(" ab12-cd34").String())
	_, err := ParseViewKey("byCode:")
	require.Error(t, err)
	_, err = ParseViewKey("mine")
	require.Error(t, err)
}

func TestRefresh_ProjectsNewestFirst(t *testing.T) {
	s := newDonorStore()
	load(t, s, All(),
		donor("d-1", "A", "Ann", 2*time.Hour),
		donor("d-3", "C", "Cy", 0),
		donor("d-2", "B", "Bo", 0),
	)

	st := s.State(All())
	assert.Equal(t, []string{"d-2", "d-3", "d-1"}, ids(st.Data))
	assert.True(t, st.Loaded)
	assert.False(t, st.Stale)
	assert.False(t, st.IsLoading())
}

func TestState_UnknownViewIsLoading(t *testing.T) {
	s := newDonorStore()
	st := s.State(All())
	assert.True(t, st.IsLoading())
	assert.Empty(t, st.Data)
}

func TestScenario_CreateThenConfirm(t *testing.T) {
	s := newDonorStore()
	load(t, s, All())

	d := donor("tmp-1", "AB12-CD34", "Dana", 0)
	p, err := s.BeginInsert(d)
	require.NoError(t, err)
	assert.Equal(t, []string{"tmp-1"}, ids(s.List(All())))

	confirmed := d
	confirmed.ID = "d-42"
	require.NoError(t, s.ConfirmInsert(p, confirmed))

	got := s.List(All())
	require.Len(t, got, 1)
	assert.Equal(t, confirmed, got[0])
	_, ok := s.Find("tmp-1")
	assert.False(t, ok)
	assert.True(t, s.State(All()).Stale)
	assert.Equal(t, 0, s.PendingCount())
}

func TestScenario_CreateThenFail(t *testing.T) {
	s := newDonorStore()
	load(t, s, All())

	p, err := s.BeginInsert(donor("tmp-1", "AB12-CD34", "Dana", 0))
	require.NoError(t, err)
	s.Fail(p, errors.New("rejected"))

	assert.Empty(t, s.List(All()))
}

func TestBeginInsert_RequiresTemporaryID(t *testing.T) {
	s := newDonorStore()
	_, err := s.BeginInsert(donor("d-1", "A", "Ann", 0))
	require.Error(t, err)
}

func TestRollback_RestoresEveryTouchedViewExactly(t *testing.T) {
	s := newRequestStore()
	r1 := request("r-1", "X", models.StatusActive, time.Hour)
	r2 := request("r-2", "X", models.StatusActive, 2*time.Hour)
	r3 := request("r-3", "Y", models.StatusActive, 3*time.Hour)
	load(t, s, All(), r1, r2, r3)
	load(t, s, ByCode("X"), r1, r2)

	before := map[ViewKey][]models.Request{All(): s.List(All()), ByCode("X"): s.List(ByCode("X"))}

	pu := s.BeginUpdate(func(r models.Request) bool { return r.ID == "r-1" },
		models.StatusPatch(models.StatusFulfilled).Apply)
	got, _ := s.Find("r-1")
	require.Equal(t, models.StatusFulfilled, got.Status)
	s.Fail(pu, errors.New("boom"))

	pd := s.BeginDelete(func(r models.Request) bool { return r.AccessCode == "X" })
	require.Len(t, s.List(All()), 1)
	require.Empty(t, s.List(ByCode("X")))
	s.Fail(pd, errors.New("boom"))

	for k, want := range before {
		if diff := cmp.Diff(want, s.List(k)); diff != "" {
			t.Errorf("view %s differs after rollback (-want +got):\n%s", k, diff)
		}
	}
}

func TestFail_KeepsOtherPendingMutations(t *testing.T) {
	s := newDonorStore()
	load(t, s, All())

	p1, err := s.BeginInsert(donor("tmp-1", "A", "Ann", 0))
	require.NoError(t, err)
	_, err = s.BeginInsert(donor("tmp-2", "B", "Bo", 0))
	require.NoError(t, err)

	s.Fail(p1, errors.New("rejected"))
	assert.Equal(t, []string{"tmp-2"}, ids(s.List(All())))
}

func TestFail_KeepsLaterConfirmations(t *testing.T) {
	s := newRequestStore()
	r1 := request("r-1", "X", models.StatusActive, time.Hour)
	load(t, s, All(), r1)
	load(t, s, ByCode("X"), r1)

	opt := request("tmp-A", "X", models.StatusActive, 0)
	pa, err := s.BeginInsert(opt)
	require.NoError(t, err)
	pb := s.BeginUpdate(func(e models.Request) bool { return e.ID == "r-1" },
		models.StatusPatch(models.StatusFulfilled).Apply)

	server := opt
	server.ID = "r-2"
	require.NoError(t, s.ConfirmInsert(pa, server))
	s.Fail(pb, errors.New("rejected"))

	for _, k := range []ViewKey{All(), ByCode("X")} {
		got := s.List(k)
		assert.Equal(t, []string{"r-2", "r-1"}, ids(got), k.String())
		assert.Equal(t, models.StatusActive, got[1].Status, k.String())
	}
	assertNoDuplicateIDs(t, s)
}

func TestFail_KeepsEventsAppliedMeanwhile(t *testing.T) {
	s := newRequestStore()
	r1 := request("r-1", "X", models.StatusActive, time.Hour)
	load(t, s, All(), r1)

	p := s.BeginUpdate(func(e models.Request) bool { return e.ID == "r-1" },
		models.StatusPatch(models.StatusFulfilled).Apply)

	external := r1
	external.Status = models.StatusNotNeeded
	s.ApplyEvent(realtime.Updated[models.Request]{Entity: external})
	s.ApplyEvent(realtime.Inserted[models.Request]{Entity: request("r-5", "Y", models.StatusActive, 0)})
	s.Fail(p, errors.New("rejected"))

	got := s.List(All())
	require.Equal(t, []string{"r-5", "r-1"}, ids(got))
	assert.Equal(t, models.StatusNotNeeded, got[1].Status, "rollback restores the newest server value")
}

func TestFail_RestoresRefreshedValue(t *testing.T) {
	s := newRequestStore()
	r1 := request("r-1", "X", models.StatusActive, time.Hour)
	load(t, s, All(), r1)

	p := s.BeginDelete(func(e models.Request) bool { return e.ID == "r-1" })
	fetched := r1
	fetched.Notes = "bring id"
	load(t, s, All(), fetched, request("r-3", "X", models.StatusActive, 0))
	require.Equal(t, []string{"r-3"}, ids(s.List(All())))

	s.Fail(p, errors.New("rejected"))
	got := s.List(All())
	require.Equal(t, []string{"r-3", "r-1"}, ids(got))
	assert.Equal(t, "bring id", got[1].Notes)
}

func TestPendingDelete_HidesPushedChanges(t *testing.T) {
	s := newRequestStore()
	r1 := request("r-1", "X", models.StatusActive, time.Hour)
	load(t, s, All(), r1)
	load(t, s, ByCode("X"), r1)

	external := r1
	external.Status = models.StatusNotNeeded

	p := s.BeginDelete(func(e models.Request) bool { return e.ID == "r-1" })
	s.ApplyEvent(realtime.Updated[models.Request]{Entity: external})
	assert.Empty(t, s.List(All()))
	assert.Empty(t, s.List(ByCode("X")))

	s.Fail(p, errors.New("rejected"))
	for _, k := range []ViewKey{All(), ByCode("X")} {
		got := s.List(k)
		require.Len(t, got, 1, k.String())
		assert.Equal(t, models.StatusNotNeeded, got[0].Status, k.String())
	}

	p = s.BeginDelete(func(e models.Request) bool { return e.ID == "r-1" })
	s.ApplyEvent(realtime.Updated[models.Request]{Entity: r1})
	s.ConfirmDelete(p)
	s.ApplyEvent(realtime.Updated[models.Request]{Entity: r1})
	assert.Empty(t, s.List(All()))
}

func TestGone_RemovesAndRemembers(t *testing.T) {
	s := newRequestStore()
	r1 := request("r-1", "X", models.StatusActive, time.Hour)
	load(t, s, All(), r1, request("r-2", "X", models.StatusActive, 0))

	p := s.BeginUpdate(func(e models.Request) bool { return e.ID == "r-1" },
		models.StatusPatch(models.StatusFulfilled).Apply)
	err := s.Gone(p, "r-1")
	var sw *common.StaleWriteError
	require.ErrorAs(t, err, &sw)
	assert.Equal(t, "r-1", sw.ID)
	assert.Equal(t, []string{"r-2"}, ids(s.List(All())))
	assert.Zero(t, s.PendingCount())

	s.ApplyEvent(realtime.Updated[models.Request]{Entity: r1})
	assert.Equal(t, []string{"r-2"}, ids(s.List(All())))
}

func TestIdempotentMerge(t *testing.T) {
	s := newRequestStore()
	load(t, s, All(), request("r-1", "X", models.StatusActive, time.Hour))

	events := []realtime.Event[models.Request]{
		realtime.Inserted[models.Request]{Entity: request("r-2", "X", models.StatusActive, 0)},
		realtime.Updated[models.Request]{Entity: request("r-1", "X", models.StatusFulfilled, time.Hour)},
		realtime.Deleted[models.Request]{ID: "r-2"},
	}
	for _, ev := range events {
		s.ApplyEvent(ev)
		once := s.List(All())
		s.ApplyEvent(ev)
		if diff := cmp.Diff(once, s.List(All())); diff != "" {
			t.Errorf("%s applied twice differs (-once +twice):\n%s", ev.Kind(), diff)
		}
	}
	assert.Equal(t, []string{"r-1"}, ids(s.List(All())))
}

func TestApplyEvent_MovesBetweenCodeViews(t *testing.T) {
	s := newRequestStore()
	r := request("r-1", "X", models.StatusActive, 0)
	load(t, s, All(), r)
	load(t, s, ByCode("X"), r)
	load(t, s, ByCode("Y"))

	moved := r
	moved.AccessCode = "Y"
	s.ApplyEvent(realtime.Updated[models.Request]{Entity: moved})

	assert.Empty(t, s.List(ByCode("X")))
	assert.Equal(t, []string{"r-1"}, ids(s.List(ByCode("Y"))))
	assert.Len(t, s.List(All()), 1)
}

func TestApplyEvent_IgnoresTemporaryIDs(t *testing.T) {
	s := newDonorStore()
	load(t, s, All())
	p, err := s.BeginInsert(donor("tmp-1", "A", "Ann", 0))
	require.NoError(t, err)

	s.ApplyEvent(realtime.Deleted[models.Donor]{ID: "tmp-1"})
	s.ApplyEvent(realtime.Updated[models.Donor]{Entity: donor("tmp-9", "Z", "Zed", 0)})

	assert.Equal(t, []string{"tmp-1"}, ids(s.List(All())))
	require.NotNil(t, p)
}

func finalState[E models.Entity](s *Store[E]) map[string]State[E] {
	out := map[string]State[E]{}
	for _, k := range s.Keys() {
		st := s.State(k)
		st.Version = 0
		out[k.String()] = st
	}
	return out
}

func TestOrderingInvariance(t *testing.T) {
	run := func(pushFirst bool, s *Store[models.Donor]) map[string]State[models.Donor] {
		load(t, s, All())
		load(t, s, ByCode("AB12-CD34"))

		opt := donor("tmp-1", "AB12-CD34", "Dana", 0)
		p, err := s.BeginInsert(opt)
		require.NoError(t, err)

		server := opt
		server.ID = "d-42"
		push := realtime.Inserted[models.Donor]{Entity: server}
		if pushFirst {
			s.ApplyEvent(push)
			require.NoError(t, s.ConfirmInsert(p, server))
		} else {
			require.NoError(t, s.ConfirmInsert(p, server))
			s.ApplyEvent(push)
		}
		assertNoDuplicateIDs(t, s)
		return finalState(s)
	}

	t.Run("with correlation", func(t *testing.T) {
		a := run(true, newDonorStore())
		b := run(false, newDonorStore())
		if diff := cmp.Diff(a, b); diff != "" {
			t.Fatalf("orderings diverge (-push first +confirm first):\n%s", diff)
		}
		assert.Equal(t, []string{"d-42"}, ids(a["all"].Data))
	})

	t.Run("without correlation", func(t *testing.T) {
		plain := func() *Store[models.Donor] {
			return New(Options[models.Donor]{Collection: common.DonorsCollection})
		}
		a := run(true, plain())
		b := run(false, plain())
		if diff := cmp.Diff(a, b); diff != "" {
			t.Fatalf("orderings diverge (-push first +confirm first):\n%s", diff)
		}
	})
}

func TestCorrelation_DropsOptimisticEntryEarly(t *testing.T) {
	s := newDonorStore()
	load(t, s, All())

	opt := donor("tmp-1", "AB12-CD34", "Dana", 0)
	p, err := s.BeginInsert(opt)
	require.NoError(t, err)

	server := opt
	server.ID = "d-42"
	s.ApplyEvent(realtime.Inserted[models.Donor]{Entity: server})
	assert.Equal(t, []string{"d-42"}, ids(s.List(All())))

	require.NoError(t, s.ConfirmInsert(p, server))
	assert.Equal(t, []string{"d-42"}, ids(s.List(All())))
}

func TestScenario_ConcurrentExternalUpdate(t *testing.T) {
	s := newRequestStore()
	r := request("r-1", "X", models.StatusActive, 0)
	load(t, s, All(), r)

	p := s.BeginUpdate(func(e models.Request) bool { return e.ID == "r-1" },
		models.StatusPatch(models.StatusFulfilled).Apply)
	got, _ := s.First(All())
	require.Equal(t, models.StatusFulfilled, got.Status)

	external := r
	external.Status = models.StatusNotNeeded
	s.ApplyEvent(realtime.Updated[models.Request]{Entity: external})
	got, _ = s.First(All())
	require.Equal(t, models.StatusNotNeeded, got.Status, "last applied change wins")

	require.NoError(t, s.ConfirmUpdate(p, external))
	got, _ = s.First(All())
	assert.Equal(t, models.StatusNotNeeded, got.Status, "confirmation must not resurrect the local value")
}

func TestScenario_DeleteTerminalRequest(t *testing.T) {
	s := newRequestStore()
	a := request("r-1", "X", models.StatusFulfilled, time.Hour)
	b := request("r-2", "X", models.StatusActive, 0)
	other := request("r-3", "Y", models.StatusActive, 0)
	load(t, s, All(), a, b, other)
	load(t, s, ByCode("X"), a, b)

	p := s.BeginDelete(func(r models.Request) bool { return r.ID == "r-1" })
	s.ConfirmDelete(p)

	assert.ElementsMatch(t, []string{"r-2", "r-3"}, ids(s.List(All())))
	assert.Equal(t, []string{"r-2"}, ids(s.List(ByCode("X"))))
}

func TestConfirmInsert_UpsertsIntoUntouchedCodeView(t *testing.T) {
	s := newRequestStore()
	load(t, s, All())
	load(t, s, ByCode("Y"))

	opt := request("tmp-1", "X", models.StatusActive, 0)
	p, err := s.BeginInsert(opt)
	require.NoError(t, err)
	assert.Empty(t, s.List(ByCode("Y")))

	server := opt
	server.ID = "r-9"
	server.AccessCode = "Y"
	require.NoError(t, s.ConfirmInsert(p, server))

	assert.Equal(t, []string{"r-9"}, ids(s.List(ByCode("Y"))))
	assert.True(t, s.State(ByCode("Y")).Stale)
}

func TestTombstones_StaleConfirmationAndRefresh(t *testing.T) {
	s := newRequestStore()
	r := request("r-1", "X", models.StatusActive, 0)
	load(t, s, All(), r)

	p := s.BeginUpdate(func(e models.Request) bool { return e.ID == "r-1" },
		models.StatusPatch(models.StatusDeceased).Apply)
	s.ApplyEvent(realtime.Deleted[models.Request]{ID: "r-1"})

	confirmed := r
	confirmed.Status = models.StatusDeceased
	err := s.ConfirmUpdate(p, confirmed)
	var sw *common.StaleWriteError
	require.ErrorAs(t, err, &sw)
	assert.Equal(t, "r-1", sw.ID)
	assert.Empty(t, s.List(All()))

	// a late read that still includes the row does not bring it back
	load(t, s, All(), r)
	assert.Empty(t, s.List(All()))

	// nor does a late update event
	s.ApplyEvent(realtime.Updated[models.Request]{Entity: r})
	assert.Empty(t, s.List(All()))
}

func TestSettleTwiceIsNoop(t *testing.T) {
	s := newDonorStore()
	load(t, s, All())
	p, err := s.BeginInsert(donor("tmp-1", "A", "Ann", 0))
	require.NoError(t, err)

	server := donor("d-1", "A", "Ann", 0)
	require.NoError(t, s.ConfirmInsert(p, server))
	s.Fail(p, errors.New("late"))
	require.NoError(t, s.ConfirmInsert(p, server))

	assert.Equal(t, []string{"d-1"}, ids(s.List(All())))
}

func TestRefresh_SupersededResponseIsDiscarded(t *testing.T) {
	s := newDonorStore()
	release := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Refresh(context.Background(), All(), func(context.Context) ([]models.Donor, error) {
			close(started)
			<-release
			return []models.Donor{donor("d-old", "A", "Old", 0)}, nil
		})
	}()
	<-started

	load(t, s, All(), donor("d-new", "B", "New", 0))
	close(release)
	wg.Wait()

	assert.Equal(t, []string{"d-new"}, ids(s.List(All())))
}

func TestRefresh_FailureKeepsLastKnownGood(t *testing.T) {
	s := newDonorStore()
	load(t, s, All(), donor("d-1", "A", "Ann", 0))

	boom := errors.New("offline")
	err := s.Refresh(context.Background(), All(), func(context.Context) ([]models.Donor, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	st := s.State(All())
	assert.Equal(t, []string{"d-1"}, ids(st.Data))
	assert.ErrorIs(t, st.Err, boom)

	load(t, s, All(), donor("d-2", "B", "Bo", 0))
	assert.NoError(t, s.State(All()).Err)
}

func TestRefresh_CancelledFetchIsReportedNotRecorded(t *testing.T) {
	s := newDonorStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Refresh(ctx, All(), func(ctx context.Context) ([]models.Donor, error) {
		return nil, ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, s.State(All()).Err)
}

func TestRefresh_KeepsPendingOptimisticState(t *testing.T) {
	s := newRequestStore()
	r1 := request("r-1", "X", models.StatusActive, time.Hour)
	r2 := request("r-2", "X", models.StatusActive, 2*time.Hour)
	load(t, s, All(), r1, r2)

	_, err := s.BeginInsert(request("tmp-1", "X", models.StatusActive, 0))
	require.NoError(t, err)
	s.BeginUpdate(func(e models.Request) bool { return e.ID == "r-1" }, models.StatusPatch(models.StatusFulfilled).Apply)
	s.BeginDelete(func(e models.Request) bool { return e.ID == "r-2" })

	load(t, s, All(), r1, r2)

	got := s.List(All())
	assert.Equal(t, []string{"tmp-1", "r-1"}, ids(got))
	assert.Equal(t, models.StatusFulfilled, got[1].Status)
}

func TestRefresh_WritesDuringFetchMarkStale(t *testing.T) {
	s := newRequestStore()
	load(t, s, All())

	pushed := request("r-7", "X", models.StatusActive, 0)
	require.NoError(t, s.Refresh(context.Background(), All(), func(context.Context) ([]models.Request, error) {
		s.ApplyEvent(realtime.Inserted[models.Request]{Entity: pushed})
		return []models.Request{}, nil
	}))

	st := s.State(All())
	assert.True(t, st.Stale)
	assert.Empty(t, st.Data, "the fetched rows replace the view")
}

func TestChanges_NotifiesAndUnsubscribes(t *testing.T) {
	s := newDonorStore()
	ch, cancel := s.Changes()

	s.Ensure(All())
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}

	cancel()
	cancel()
	s.Invalidate()
	select {
	case <-ch:
		t.Fatal("notified after unsubscribe")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestInvalidateAndForget(t *testing.T) {
	s := newDonorStore()
	load(t, s, All(), donor("d-1", "A", "Ann", 0))
	load(t, s, ByCode("A"), donor("d-1", "A", "Ann", 0))

	s.Invalidate(ByCode("A"))
	assert.False(t, s.State(All()).Stale)
	assert.True(t, s.State(ByCode("A")).Stale)

	s.Forget(ByCode("A"))
	assert.ElementsMatch(t, []ViewKey{All()}, s.Keys())
}

func TestExportImport(t *testing.T) {
	s := newRequestStore()
	r1 := request("r-1", "X", models.StatusActive, time.Hour)
	r2 := request("r-2", "X", models.StatusActive, 2*time.Hour)
	load(t, s, All(), r1, r2)
	s.Ensure(ByCode("Q"))

	_, err := s.BeginInsert(request("tmp-1", "X", models.StatusActive, 0))
	require.NoError(t, err)
	s.BeginUpdate(func(e models.Request) bool { return e.ID == "r-1" }, models.StatusPatch(models.StatusFulfilled).Apply)
	s.BeginDelete(func(e models.Request) bool { return e.ID == "r-2" })

	exp := s.Export()
	require.Len(t, exp, 1, "unloaded views are not exported")
	if diff := cmp.Diff([]models.Request{r1, r2}, exp[All()]); diff != "" {
		t.Fatalf("export mismatch (-want +got):\n%s", diff)
	}

	fresh := newRequestStore()
	fresh.Import(All(), append(exp[All()], request("tmp-x", "X", models.StatusActive, 0)))
	st := fresh.State(All())
	assert.Equal(t, []string{"r-1", "r-2"}, ids(st.Data))
	assert.True(t, st.Loaded)
	assert.True(t, st.Stale)
}

func TestMetrics_CountOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	s := New(Options[models.Donor]{Collection: "donors", Metrics: m})
	load(t, s, All())

	p, err := s.BeginInsert(donor("tmp-1", "A", "Ann", 0))
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pending.WithLabelValues("donors")))
	s.Fail(p, errors.New("x"))

	p, err = s.BeginInsert(donor("tmp-2", "A", "Ann", 0))
	require.NoError(t, err)
	require.NoError(t, s.ConfirmInsert(p, donor("d-1", "A", "Ann", 0)))
	s.ApplyEvent(realtime.Inserted[models.Donor]{Entity: donor("d-1", "A", "Ann", 0)})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("donors", "insert", "rolled_back")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("donors", "insert", "confirmed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("donors", "INSERT", "duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.refreshes.WithLabelValues("donors", "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.pending.WithLabelValues("donors")))
}

func TestConcurrentWritersKeepViewsConsistent(t *testing.T) {
	s := newRequestStore()
	load(t, s, All())
	load(t, s, ByCode("X"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			opt := request(models.NewTemporaryID(), "X", models.StatusActive, 0)
			p, err := s.BeginInsert(opt)
			if err != nil {
				t.Error(err)
				return
			}
			server := opt
			server.ID = "r-" + string(rune('a'+i))
			_ = s.ConfirmInsert(p, server)
		}(i)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			s.mu.RLock()
			all, code := len(s.views[All()].entries), len(s.views[ByCode("X")].entries)
			s.mu.RUnlock()
			if all != code {
				t.Errorf("views out of step: all=%d byCode=%d", all, code)
				return
			}
		}
	}()
	wg.Wait()
	<-done

	assert.Len(t, s.List(All()), 20)
	assertNoDuplicateIDs(t, s)
}
