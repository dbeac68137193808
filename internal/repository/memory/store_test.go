package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/model"
	"github.com/Shivanand-hulikatti/roadmap-class-booking/internal/repository"
)

func TestCreateClassAssignsDocumentID(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateClass(ctx, model.Class{ClassID: "c1", ClassName: "Yoga"}))
	require.ErrorIs(t, s.CreateClass(ctx, model.Class{ClassID: "c1"}), repository.ErrDuplicateKey)

	state, ok := s.State("c1")
	require.True(t, ok)
	assert.NotEmpty(t, state.Class.ID)
	assert.Equal(t, "Yoga", state.Class.ClassName)
}

func TestMutateClassDiscardsChangesOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateClass(ctx, model.Class{ClassID: "c1", TotalSlots: 2}))

	boom := errors.New("boom")
	err := s.MutateClass(ctx, "c1", func(st *model.ClassState) error {
		st.Record = &model.BookingRecord{ClassID: "c1", Bookings: []model.Reservation{{UserID: "u1"}}}
		st.Class.Bookings = 1
		return boom
	})
	require.ErrorIs(t, err, boom)

	state, _ := s.State("c1")
	assert.Nil(t, state.Record)
	assert.Equal(t, 0, state.Class.Bookings)
}

func TestMutateClassKeepsIdentity(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateClass(ctx, model.Class{ClassID: "c1"}))
	before, _ := s.State("c1")

	require.NoError(t, s.MutateClass(ctx, "c1", func(st *model.ClassState) error {
		st.Class.ClassID = "other"
		st.Class.ID = "other"
		return nil
	}))

	after, ok := s.State("c1")
	require.True(t, ok)
	assert.Equal(t, before.Class.ID, after.Class.ID)
	assert.Equal(t, "c1", after.Class.ClassID)
}

func TestMutateClassUnknown(t *testing.T) {
	err := New().MutateClass(context.Background(), "missing", func(*model.ClassState) error { return nil })
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestStateIsACopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateClass(ctx, model.Class{ClassID: "c1", TotalSlots: 1}))
	require.NoError(t, s.MutateClass(ctx, "c1", func(st *model.ClassState) error {
		st.Record = &model.BookingRecord{ClassID: "c1", Bookings: []model.Reservation{{UserID: "u1"}}}
		st.Class.Bookings = 1
		return nil
	}))

	state, _ := s.State("c1")
	state.Record.Bookings[0].UserID = "mutated"

	again, _ := s.State("c1")
	assert.Equal(t, "u1", again.Record.Bookings[0].UserID)
}

func TestCanceledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, s.CreateClass(ctx, model.Class{ClassID: "c1"}), context.Canceled)
	_, err := s.ListClasses(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRoadmapIsolatedFromCallers(t *testing.T) {
	s := New()
	ctx := context.Background()

	nodes := []map[string]any{{"id": "n1", "data": map[string]any{"label": "Start"}}}
	edges := []map[string]any{{"source": "n1", "target": "n1"}}
	require.NoError(t, s.SaveRoadmap(ctx, "ada@example.com", model.Roadmap{Title: "Go", Nodes: nodes, Edges: edges}))

	nodes[0]["id"] = "changed"
	nodes[0]["data"].(map[string]any)["label"] = "changed"
	edges[0] = map[string]any{}

	rm, err := s.FetchRoadmap(ctx, "ada@example.com", "Go")
	require.NoError(t, err)
	assert.Equal(t, "n1", rm.Nodes[0]["id"])
	assert.Equal(t, "Start", rm.Nodes[0]["data"].(map[string]any)["label"])
	assert.Equal(t, "n1", rm.Edges[0]["source"])

	rm.Nodes[0]["id"] = "mutated"
	rm.Nodes[0]["data"].(map[string]any)["label"] = "mutated"
	rm.Edges = append(rm.Edges, map[string]any{"source": "x"})

	again, err := s.FetchRoadmap(ctx, "ada@example.com", "Go")
	require.NoError(t, err)
	assert.Equal(t, "n1", again.Nodes[0]["id"])
	assert.Equal(t, "Start", again.Nodes[0]["data"].(map[string]any)["label"])
	assert.Len(t, again.Edges, 1)
}
