package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/model"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/repository"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/repository/memory"
)

func newBookingService(t *testing.T) (*BookingService, *memory.Store) {
	t.Helper()
	store := memory.New()
	return NewBookingService(store), store
}

func seats(n int) *int { return &n }

func registerClass(t *testing.T, svc *BookingService, classID string, slots int) {
	t.Helper()
	err := svc.RegisterClass(context.Background(), model.CreateClassRequest{
		ClassID:    classID,
		ClassName:  "Class " + classID,
		TotalSlots: seats(slots),
	})
	require.NoError(t, err)
}

func book(t *testing.T, svc *BookingService, classID, userID string) model.Outcome {
	t.Helper()
	out, err := svc.BookSlot(context.Background(), model.BookSlotRequest{
		ClassID:     classID,
		UserID:      userID,
		UserName:    "name-" + userID,
		BookingDate: "2026-10-18",
	})
	require.NoError(t, err)
	return out
}

func userIDs(list []model.Reservation) []string {
	ids := make([]string, 0, len(list))
	for _, r := range list {
		ids = append(ids, r.UserID)
	}
	return ids
}

func requireConsistent(t *testing.T, store *memory.Store, classID string) model.ClassState {
	t.Helper()
	state, ok := store.State(classID)
	require.True(t, ok, "class %s missing", classID)
	require.True(t, state.Consistent(), "counters out of sync: %+v", state)
	return state
}

func TestRegisterClassZeroesCounters(t *testing.T) {
	svc, store := newBookingService(t)

	err := svc.RegisterClass(context.Background(), model.CreateClassRequest{
		ClassID:     "yoga",
		ClassName:   "Yoga",
		Description: "Morning flow",
		Icon:        "lotus",
		Color:       "#00ff00",
		TotalSlots:  seats(3),
		Bookings:    7,
		Waitlist:    2,
	})
	require.NoError(t, err)

	state, ok := store.State("yoga")
	require.True(t, ok)
	assert.Equal(t, 0, state.Class.Bookings)
	assert.Equal(t, 0, state.Class.Waitlist)
	assert.Equal(t, 3, state.Class.TotalSlots)
	assert.NotEmpty(t, state.Class.ID)
	assert.Nil(t, state.Record, "booking record is created lazily")
}

func TestRegisterClassKeepsClassIDVerbatim(t *testing.T) {
	svc, store := newBookingService(t)
	ctx := context.Background()
	registerClass(t, svc, " yoga ", 1)
	registerClass(t, svc, "yoga", 1)

	_, ok := store.State(" yoga ")
	require.True(t, ok)

	assert.Equal(t, model.OutcomeConfirmed, book(t, svc, " yoga ", "u1"))
	assert.Equal(t, model.OutcomeWaitlisted, book(t, svc, " yoga ", "u2"))
	assert.Equal(t, model.OutcomeConfirmed, book(t, svc, "yoga", "u1"))

	out, err := svc.CancelBooking(ctx, model.CancelBookingRequest{ClassID: " yoga ", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomePromoted, out)

	state := requireConsistent(t, store, " yoga ")
	assert.Equal(t, []string{"u2"}, userIDs(state.Record.Bookings))
	state = requireConsistent(t, store, "yoga")
	assert.Equal(t, []string{"u1"}, userIDs(state.Record.Bookings))
}

func TestRegisterClassDuplicateLeavesStateUnchanged(t *testing.T) {
	svc, store := newBookingService(t)
	registerClass(t, svc, "c1", 2)
	book(t, svc, "c1", "u1")
	before, _ := store.State("c1")

	err := svc.RegisterClass(context.Background(), model.CreateClassRequest{
		ClassID: "c1", ClassName: "Other", TotalSlots: seats(10),
	})
	require.ErrorIs(t, err, repository.ErrDuplicateKey)

	after, _ := store.State("c1")
	if diff := cmp.Diff(before, after, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("state changed after duplicate registration (-before +after):\n%s", diff)
	}
}

func TestRegisterClassValidation(t *testing.T) {
	svc, _ := newBookingService(t)
	cases := []model.CreateClassRequest{
		{ClassName: "x", TotalSlots: seats(1)},
		{ClassID: "  ", ClassName: "x", TotalSlots: seats(1)},
		{ClassID: "c", TotalSlots: seats(1)},
		{ClassID: "c", ClassName: "x"},
		{ClassID: "c", ClassName: "x", TotalSlots: seats(-1)},
	}
	for i, req := range cases {
		err := svc.RegisterClass(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidInput, "case %d", i)
	}
}

func TestBookSlotPromotionScenario(t *testing.T) {
	svc, store := newBookingService(t)
	registerClass(t, svc, "c1", 1)

	assert.Equal(t, model.OutcomeConfirmed, book(t, svc, "c1", "u1"))
	state := requireConsistent(t, store, "c1")
	assert.Equal(t, 1, state.Class.Bookings)

	assert.Equal(t, model.OutcomeWaitlisted, book(t, svc, "c1", "u2"))
	state = requireConsistent(t, store, "c1")
	assert.Equal(t, 1, state.Class.Waitlist)

	out, err := svc.CancelBooking(context.Background(), model.CancelBookingRequest{ClassID: "c1", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomePromoted, out)

	state = requireConsistent(t, store, "c1")
	assert.Equal(t, 1, state.Class.Bookings)
	assert.Equal(t, 0, state.Class.Waitlist)
	assert.Equal(t, []string{"u2"}, userIDs(state.Record.Bookings))
}

func TestBookSlotNeverExceedsCapacity(t *testing.T) {
	svc, store := newBookingService(t)
	registerClass(t, svc, "c1", 2)

	var outcomes []model.Outcome
	for i := 0; i < 5; i++ {
		outcomes = append(outcomes, book(t, svc, "c1", fmt.Sprintf("u%d", i)))
	}

	want := []model.Outcome{
		model.OutcomeConfirmed, model.OutcomeConfirmed,
		model.OutcomeWaitlisted, model.OutcomeWaitlisted, model.OutcomeWaitlisted,
	}
	assert.Equal(t, want, outcomes)

	state := requireConsistent(t, store, "c1")
	assert.Equal(t, 2, state.Class.Bookings)
	assert.Equal(t, 3, state.Class.Waitlist)
	assert.Equal(t, []string{"u2", "u3", "u4"}, userIDs(state.Record.Waitlist))
}

func TestBookSlotZeroCapacityWaitlistsEveryone(t *testing.T) {
	svc, store := newBookingService(t)
	registerClass(t, svc, "c0", 0)

	assert.Equal(t, model.OutcomeWaitlisted, book(t, svc, "c0", "u1"))
	state := requireConsistent(t, store, "c0")
	assert.Equal(t, 0, state.Class.Bookings)
	assert.Equal(t, 1, state.Class.Waitlist)
}

func TestBookSlotUnknownClass(t *testing.T) {
	svc, _ := newBookingService(t)

	_, err := svc.BookSlot(context.Background(), model.BookSlotRequest{ClassID: "missing", UserID: "u1"})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestBookSlotCopiesStoredClassName(t *testing.T) {
	svc, store := newBookingService(t)
	registerClass(t, svc, "c1", 1)

	_, err := svc.BookSlot(context.Background(), model.BookSlotRequest{
		ClassID:   "c1",
		ClassName: "spoofed",
		UserID:    "u1",
	})
	require.NoError(t, err)

	state, _ := store.State("c1")
	require.Len(t, state.Record.Bookings, 1)
	assert.Equal(t, "Class c1", state.Record.Bookings[0].ClassName)
	assert.Equal(t, "c1", state.Record.Bookings[0].ClassID)
}

func TestCancelPromotesOldestWaitlistEntry(t *testing.T) {
	svc, store := newBookingService(t)
	registerClass(t, svc, "c1", 1)
	book(t, svc, "c1", "u1")
	book(t, svc, "c1", "u2")
	book(t, svc, "c1", "u3")

	out, err := svc.CancelBooking(context.Background(), model.CancelBookingRequest{ClassID: "c1", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomePromoted, out)

	state := requireConsistent(t, store, "c1")
	assert.Equal(t, []string{"u2"}, userIDs(state.Record.Bookings))
	assert.Equal(t, []string{"u3"}, userIDs(state.Record.Waitlist))
}

func TestCancelWithoutBookingRecord(t *testing.T) {
	svc, _ := newBookingService(t)
	registerClass(t, svc, "c1", 1)

	_, err := svc.CancelBooking(context.Background(), model.CancelBookingRequest{ClassID: "c1", UserID: "u1"})
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.CancelBooking(context.Background(), model.CancelBookingRequest{ClassID: "nope", UserID: "u1"})
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCancelUnknownUserLeavesStateUnchanged(t *testing.T) {
	svc, store := newBookingService(t)
	registerClass(t, svc, "c1", 1)
	book(t, svc, "c1", "u1")
	book(t, svc, "c1", "u2")
	before, _ := store.State("c1")

	_, err := svc.CancelBooking(context.Background(), model.CancelBookingRequest{ClassID: "c1", UserID: "ghost"})
	require.ErrorIs(t, err, repository.ErrBookingNotFound)

	after, _ := store.State("c1")
	if diff := cmp.Diff(before, after, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("state changed after failed cancel (-before +after):\n%s", diff)
	}
}

func TestCancelRemovesEveryEntryForUser(t *testing.T) {
	svc, store := newBookingService(t)
	registerClass(t, svc, "c1", 3)
	book(t, svc, "c1", "u1")
	book(t, svc, "c1", "u2")
	book(t, svc, "c1", "u1")

	out, err := svc.CancelBooking(context.Background(), model.CancelBookingRequest{ClassID: "c1", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeCanceled, out)

	state := requireConsistent(t, store, "c1")
	assert.Equal(t, []string{"u2"}, userIDs(state.Record.Bookings))
	assert.Equal(t, 1, state.Class.Bookings)
}

func TestCancelWaitlistedOnlyUser(t *testing.T) {
	svc, store := newBookingService(t)
	registerClass(t, svc, "c1", 1)
	book(t, svc, "c1", "u1")
	book(t, svc, "c1", "u2")
	book(t, svc, "c1", "u3")

	before := requireConsistent(t, store, "c1")

	_, err := svc.CancelBooking(context.Background(), model.CancelBookingRequest{ClassID: "c1", UserID: "u2"})
	require.ErrorIs(t, err, repository.ErrBookingNotFound)

	after := requireConsistent(t, store, "c1")
	if diff := cmp.Diff(before, after, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("waitlisted-only cancel changed state (-before +after):\n%s", diff)
	}
	assert.Equal(t, []string{"u1"}, userIDs(after.Record.Bookings))
	assert.Equal(t, []string{"u2", "u3"}, userIDs(after.Record.Waitlist))
}

func TestCancelRecordEmptiedThenCanceledAgain(t *testing.T) {
	svc, store := newBookingService(t)
	registerClass(t, svc, "c1", 1)
	book(t, svc, "c1", "u1")

	out, err := svc.CancelBooking(context.Background(), model.CancelBookingRequest{ClassID: "c1", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeCanceled, out)
	requireConsistent(t, store, "c1")

	_, err = svc.CancelBooking(context.Background(), model.CancelBookingRequest{ClassID: "c1", UserID: "u1"})
	require.ErrorIs(t, err, repository.ErrBookingNotFound)
}

func TestListUserBookings(t *testing.T) {
	svc, _ := newBookingService(t)
	registerClass(t, svc, "a", 1)
	registerClass(t, svc, "b", 1)
	book(t, svc, "a", "u1")
	book(t, svc, "b", "u2")
	book(t, svc, "b", "u1") // waitlisted, not listed

	got, err := svc.ListUserBookings(context.Background(), "u1")
	require.NoError(t, err)
	want := []model.UserBooking{{ClassID: "a", ClassName: "Class a", BookingDate: "2026-10-18"}}
	assert.Equal(t, want, got)
}

func TestListUserBookingsEmptyIsNotFound(t *testing.T) {
	svc, _ := newBookingService(t)
	registerClass(t, svc, "a", 0)
	book(t, svc, "a", "u1")

	_, err := svc.ListUserBookings(context.Background(), "u1")
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = svc.ListUserBookings(context.Background(), "nobody")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListClassesSnapshot(t *testing.T) {
	svc, _ := newBookingService(t)

	classes, err := svc.ListClasses(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, classes)
	assert.Empty(t, classes)

	registerClass(t, svc, "a", 1)
	registerClass(t, svc, "b", 2)
	book(t, svc, "b", "u1")

	classes, err = svc.ListClasses(context.Background())
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Equal(t, "a", classes[0].ClassID)
	assert.Equal(t, "b", classes[1].ClassID)
	assert.Equal(t, 1, classes[1].Bookings)
}

func TestConcurrentBookSlotRespectsCapacity(t *testing.T) {
	svc, store := newBookingService(t)
	const capacity, callers = 10, 60
	registerClass(t, svc, "hot", capacity)

	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		confirmed  int
		waitlisted int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := svc.BookSlot(context.Background(), model.BookSlotRequest{ClassID: "hot", UserID: fmt.Sprintf("u%d", i)})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch out {
			case model.OutcomeConfirmed:
				confirmed++
			case model.OutcomeWaitlisted:
				waitlisted++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, capacity, confirmed)
	assert.Equal(t, callers-capacity, waitlisted)
	state := requireConsistent(t, store, "hot")
	assert.Equal(t, capacity, state.Class.Bookings)
}

func TestConcurrentBookAndCancelKeepsCountersInSync(t *testing.T) {
	svc, store := newBookingService(t)
	registerClass(t, svc, "c1", 5)
	for i := 0; i < 10; i++ {
		book(t, svc, "c1", fmt.Sprintf("u%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, _ = svc.CancelBooking(context.Background(), model.CancelBookingRequest{ClassID: "c1", UserID: fmt.Sprintf("u%d", i)})
		}(i)
		go func(i int) {
			defer wg.Done()
			_, _ = svc.BookSlot(context.Background(), model.BookSlotRequest{ClassID: "c1", UserID: fmt.Sprintf("n%d", i)})
		}(i)
	}
	wg.Wait()

	state := requireConsistent(t, store, "c1")
	assert.LessOrEqual(t, state.Class.Bookings, state.Class.TotalSlots)
}

func TestDriftedCountersAreReconciled(t *testing.T) {
	svc, store := newBookingService(t)
	registerClass(t, svc, "c1", 2)
	book(t, svc, "c1", "u1")

	err := store.MutateClass(context.Background(), "c1", func(s *model.ClassState) error {
		s.Class.Bookings = 2
		s.Class.Waitlist = 4
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeConfirmed, book(t, svc, "c1", "u2"))
	state := requireConsistent(t, store, "c1")
	assert.Equal(t, 2, state.Class.Bookings)
	assert.Equal(t, 0, state.Class.Waitlist)
}

type failingClassStore struct {
	repository.ClassStore
	err error
}

func (f failingClassStore) MutateClass(context.Context, string, repository.MutateFunc) error {
	return f.err
}

func (f failingClassStore) ListUserBookings(context.Context, string) ([]model.UserBooking, error) {
	return nil, f.err
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewBookingService(failingClassStore{err: boom})

	_, err := svc.BookSlot(context.Background(), model.BookSlotRequest{ClassID: "c1", UserID: "u1"})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "book slot")

	_, err = svc.ListUserBookings(context.Background(), "u1")
	require.ErrorIs(t, err, boom)

	svc = NewBookingService(failingClassStore{err: repository.ErrUpdateFailed})
	_, err = svc.CancelBooking(context.Background(), model.CancelBookingRequest{ClassID: "c1", UserID: "u1"})
	require.Equal(t, repository.ErrUpdateFailed, err)
}
