package session

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/marginalia/internal/content"
	"github.com/dgallion1/marginalia/internal/reading"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testEssay() *content.Essay {
	return &content.Essay{
		Slug:     "methods-paper",
		Metadata: content.Metadata{Title: "Methods"},
		Sections: []content.Section{
			{ID: "intro", Title: "Intro", Markers: []string{"1"}},
			{ID: "methods", Title: "Methods", Markers: []string{"2", "1"}},
			{ID: "conclusion", Title: "Conclusion"},
		},
		Annotations: []content.Annotation{
			{ID: "a1", SectionID: "intro", Text: "first"},
			{ID: "a2", SectionID: "methods", Text: "second"},
			{ID: "a3", SectionID: "methods", Text: "third"},
		},
		Footnotes: []content.Footnote{{ID: "1", Text: "one"}, {ID: "2", Text: "two"}},
	}
}

func newTestStore(cfg StoreConfig) *Store {
	return NewStore(cfg, zap.NewNop())
}

func mounted() LayoutReport {
	return LayoutReport{
		Cause:     CauseResize,
		Viewport:  &ScrollReport{ViewportTop: 0, ViewportHeight: 800},
		Container: &reading.Box{Top: 0, Height: 2000},
		Sections: map[string]reading.Box{
			"intro":      {Top: 0, Height: 600},
			"methods":    {Top: 600, Height: 800},
			"conclusion": {Top: 1400, Height: 600},
		},
		Markers: []MarkerReport{
			{FootnoteID: "1", Top: 340},
			{FootnoteID: "2", Top: 900},
			{FootnoteID: "1", Top: 1200},
		},
	}
}

func TestSession_UnmountedDefaults(t *testing.T) {
	sess, err := newTestStore(StoreConfig{}).Create(testEssay())
	require.NoError(t, err)

	v := sess.Snapshot()
	assert.Equal(t, "methods-paper", v.Slug)
	assert.Zero(t, v.Progress)
	assert.False(t, v.HasActive)
	assert.Empty(t, v.ActiveAnnotations)
	assert.Empty(t, v.FootnoteOffsets)

	v, err = sess.Scroll(ScrollReport{ViewportTop: 500, ViewportHeight: 800})
	require.NoError(t, err)
	assert.Zero(t, v.Progress)
	assert.False(t, v.HasActive)
}

func TestSession_LayoutAndScroll(t *testing.T) {
	sess, err := newTestStore(StoreConfig{}).Create(testEssay())
	require.NoError(t, err)

	v, err := sess.Layout(mounted())
	require.NoError(t, err)
	assert.InDelta(t, 0.4, v.Progress, 1e-9)
	assert.True(t, v.HasActive)
	// intro (1.0) and methods (200/800 = 0.25) are sampled in document order.
	assert.Equal(t, "intro", v.ActiveSection)
	assert.Equal(t, []content.Annotation{{ID: "a1", SectionID: "intro", Text: "first"}}, v.ActiveAnnotations)
	assert.Equal(t, map[string]float64{"1": 1200, "2": 900}, v.FootnoteOffsets)

	v, err = sess.Scroll(ScrollReport{ViewportTop: 700, ViewportHeight: 800})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, v.Progress, 1e-9)
	assert.Equal(t, "methods", v.ActiveSection)
	assert.Len(t, v.ActiveAnnotations, 2)

	// At the bottom methods drops under the threshold and conclusion takes over.
	v, err = sess.Scroll(ScrollReport{ViewportTop: 1200, ViewportHeight: 800})
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Progress)
	assert.Equal(t, "conclusion", v.ActiveSection)
	assert.Empty(t, v.ActiveAnnotations)
}

func TestSession_IntersectLastVisibleWins(t *testing.T) {
	sess, err := newTestStore(StoreConfig{}).Create(testEssay())
	require.NoError(t, err)
	_, err = sess.Layout(LayoutReport{Cause: CauseResize, Container: &reading.Box{Top: 0, Height: 1000}})
	require.NoError(t, err)

	v, err := sess.Intersect([]IntersectionReport{
		{SectionID: "intro", Ratio: 0.9},
		{SectionID: "methods", Ratio: 0.5},
		{SectionID: "conclusion", Ratio: 0.4},
		{SectionID: "methods", Ratio: 0.1},
		{SectionID: "unknown", Ratio: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "conclusion", v.ActiveSection)

	v, err = sess.Intersect([]IntersectionReport{{SectionID: "conclusion", Ratio: 0}})
	require.NoError(t, err)
	assert.Equal(t, "conclusion", v.ActiveSection, "hiding never clears the active section")
}

func TestSession_MutationMovesOffsets(t *testing.T) {
	sess, err := newTestStore(StoreConfig{}).Create(testEssay())
	require.NoError(t, err)
	_, err = sess.Layout(mounted())
	require.NoError(t, err)

	report := mounted()
	report.Cause = CauseMutation
	report.Container = &reading.Box{Top: 100, Height: 2000}
	report.Markers = []MarkerReport{{FootnoteID: "1", Top: 340}, {FootnoteID: "2", Top: 1000}}
	v, err := sess.Layout(report)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"1": 240, "2": 900}, v.FootnoteOffsets)

	off, ok := sess.FootnoteOffset("1")
	assert.True(t, ok)
	assert.Equal(t, 240.0, off)
	_, ok = sess.FootnoteOffset("99")
	assert.False(t, ok)
}

func TestSession_UnmountAfterMount(t *testing.T) {
	sess, err := newTestStore(StoreConfig{}).Create(testEssay())
	require.NoError(t, err)
	_, err = sess.Layout(mounted())
	require.NoError(t, err)

	v, err := sess.Layout(LayoutReport{Cause: CauseResize})
	require.NoError(t, err)
	assert.Zero(t, v.Progress)
	assert.False(t, v.HasActive)
	assert.Empty(t, v.FootnoteOffsets)
}

func TestSession_InvalidCause(t *testing.T) {
	sess, err := newTestStore(StoreConfig{}).Create(testEssay())
	require.NoError(t, err)
	_, err = sess.Layout(LayoutReport{Cause: "zoom"})
	assert.ErrorIs(t, err, ErrInvalidCause)
}

func TestSession_RejectsOutOfRangeReports(t *testing.T) {
	sess, err := newTestStore(StoreConfig{}).Create(testEssay())
	require.NoError(t, err)
	_, err = sess.Layout(mounted())
	require.NoError(t, err)
	before := sess.Snapshot()

	huge := mounted()
	huge.Container = &reading.Box{Top: -1e308, Height: 2000}
	huge.Markers = []MarkerReport{{FootnoteID: "1", Top: 1e308}}
	_, err = sess.Layout(huge)
	assert.ErrorIs(t, err, ErrInvalidReport)

	nan := mounted()
	nan.Sections = map[string]reading.Box{"intro": {Top: math.NaN(), Height: 600}}
	_, err = sess.Layout(nan)
	assert.ErrorIs(t, err, ErrInvalidReport)

	_, err = sess.Scroll(ScrollReport{ViewportTop: math.Inf(1), ViewportHeight: 800})
	assert.ErrorIs(t, err, ErrInvalidReport)

	_, err = sess.Intersect([]IntersectionReport{{SectionID: "conclusion", Ratio: math.NaN()}})
	assert.ErrorIs(t, err, ErrInvalidReport)
	_, err = sess.Intersect([]IntersectionReport{{SectionID: "conclusion", Ratio: 1.5}})
	assert.ErrorIs(t, err, ErrInvalidReport)

	after := sess.Snapshot()
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, before.FootnoteOffsets, after.FootnoteOffsets)
	assert.Equal(t, before.ActiveSection, after.ActiveSection)
}

func TestSession_VersionCountsChanges(t *testing.T) {
	sess, err := newTestStore(StoreConfig{}).Create(testEssay())
	require.NoError(t, err)
	assert.Zero(t, sess.Snapshot().Version)

	v, err := sess.Layout(mounted())
	require.NoError(t, err)
	after := v.Version
	assert.Positive(t, after)

	v, err = sess.Scroll(ScrollReport{ViewportTop: 0, ViewportHeight: 800})
	require.NoError(t, err)
	assert.Equal(t, after, v.Version, "an unchanged scroll does not bump the version")
}

func TestSession_DuplicateSectionIDs(t *testing.T) {
	e := testEssay()
	e.Sections = append(e.Sections, content.Section{ID: "intro"})
	_, err := newTestStore(StoreConfig{}).Create(e)
	assert.ErrorIs(t, err, reading.ErrDuplicateSection)
}

func TestSession_ConcurrentUse(t *testing.T) {
	sess, err := newTestStore(StoreConfig{}).Create(testEssay())
	require.NoError(t, err)
	_, err = sess.Layout(mounted())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				v, err := sess.Scroll(ScrollReport{ViewportTop: float64((i*50 + j) % 1200), ViewportHeight: 800})
				assert.NoError(t, err)
				assert.GreaterOrEqual(t, v.Progress, 0.0)
				assert.LessOrEqual(t, v.Progress, 1.0)
			}
		}()
	}
	wg.Wait()
}

func TestBoard_PlaceMarkers(t *testing.T) {
	b := newBoard([]string{"1", "2", "1"})
	b.placeMarkers([]MarkerReport{{FootnoteID: "1", Top: 10}, {FootnoteID: "1", Top: 30}, {FootnoteID: "9", Top: 5}})
	assert.Equal(t, []markerSlot{
		{footnoteID: "1", top: 10, placed: true},
		{footnoteID: "2"},
		{footnoteID: "1", top: 30, placed: true},
	}, b.markers)

	b.placeMarkers(nil)
	for _, m := range b.markers {
		assert.False(t, m.placed)
	}
}

func TestStore_GetDelete(t *testing.T) {
	s := newTestStore(StoreConfig{})
	sess, err := s.Create(testEssay())
	require.NoError(t, err)

	got, err := s.Get(sess.ID())
	require.NoError(t, err)
	assert.Same(t, sess, got)

	assert.True(t, s.Delete(sess.ID()))
	assert.False(t, s.Delete(sess.ID()))
	_, err = s.Get(sess.ID())
	assert.ErrorIs(t, err, content.ErrNotFound)
}

func TestStore_CleanupExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStore(StoreConfig{TTL: time.Minute})
	s.now = func() time.Time { return now }

	stale, err := s.Create(testEssay())
	require.NoError(t, err)
	now = now.Add(45 * time.Second)
	fresh, err := s.Create(testEssay())
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, s.Cleanup())
	_, err = s.Get(stale.ID())
	assert.Error(t, err)
	_, err = s.Get(fresh.ID())
	assert.NoError(t, err)

	_, err = fresh.Scroll(ScrollReport{ViewportHeight: 800})
	require.NoError(t, err)
	now = now.Add(50 * time.Second)
	assert.Zero(t, s.Cleanup(), "activity refreshes the session")
}

func TestStore_EvictsLeastRecentlyUsed(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newTestStore(StoreConfig{MaxSessions: 2})
	s.now = func() time.Time { return now }

	first, _ := s.Create(testEssay())
	now = now.Add(time.Second)
	second, _ := s.Create(testEssay())
	now = now.Add(time.Second)
	first.Snapshot()
	first.Scroll(ScrollReport{})
	now = now.Add(time.Second)
	third, _ := s.Create(testEssay())

	assert.Equal(t, 2, s.Len())
	_, err := s.Get(second.ID())
	assert.Error(t, err)
	_, err = s.Get(first.ID())
	assert.NoError(t, err)
	_, err = s.Get(third.ID())
	assert.NoError(t, err)
}

func TestStore_StartStop(t *testing.T) {
	s := newTestStore(StoreConfig{TTL: time.Millisecond, CleanupInterval: 5 * time.Millisecond})
	_, err := s.Create(testEssay())
	require.NoError(t, err)

	s.Start(context.Background())
	defer s.Stop()
	require.Eventually(t, func() bool { return s.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}
