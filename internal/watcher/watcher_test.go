package watcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/copas/internal/blob"
	"go.klb.dev/copas/internal/clip"
	"go.klb.dev/copas/internal/clock"
	"go.klb.dev/copas/internal/history"
	"go.klb.dev/copas/internal/hub"
	"go.klb.dev/copas/internal/model"
	"go.klb.dev/copas/internal/persist"
)

type fixture struct {
	w     *Watcher
	cb    *clip.Memory
	store *history.Store
	db    *persist.Memory
	sub   *hub.Chan
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := persist.NewMemory()
	store, err := history.Open(context.Background(), db)
	require.NoError(t, err)

	h := hub.New()
	sub := hub.NewChan("test", "test", 16)
	h.Register(sub)

	cb := clip.NewMemory()
	w := New(Config{
		Backend:  cb,
		Store:    store,
		Blobs:    blob.New(t.TempDir()),
		Hub:      h,
		Clock:    clock.Fixed(),
		IDs:      clock.NewSequence("clip"),
		Interval: 10 * time.Millisecond,
	})
	return &fixture{w: w, cb: cb, store: store, db: db, sub: sub}
}

func (f *fixture) items() []model.ClipItem { return f.store.Snapshot().Items }

func TestTick_CapturesExternalChangeOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.cb.Set("hello world")
	f.w.Tick(ctx)
	f.w.Tick(ctx)

	items := f.items()
	require.Len(t, items, 1)
	assert.Equal(t, "clip-1", items[0].ID)
	assert.Equal(t, "hello world", items[0].ContentText)
	assert.Equal(t, model.CategoryText, items[0].Category)
	assert.Nil(t, items[0].TabID)
	assert.Equal(t, clock.Fixed().Now(), items[0].Timestamp)

	require.Len(t, f.sub.C(), 1)
	ev := <-f.sub.C()
	assert.Equal(t, hub.EventClipboardUpdated, ev.Type)
	assert.Equal(t, "clip-1", ev.Item.ID)
}

func TestTick_LinkGoesToLinksTab(t *testing.T) {
	f := newFixture(t)
	f.cb.Set("https://example.com")
	f.w.Tick(context.Background())

	items := f.items()
	require.Len(t, items, 1)
	assert.Equal(t, model.CategoryLink, items[0].Category)
	assert.True(t, items[0].InTab(model.TabLinks))
}

func TestTick_IgnoresEmpty(t *testing.T) {
	f := newFixture(t)
	f.w.Tick(context.Background())
	assert.Empty(t, f.items())
}

func TestTick_ReadFailureSkips(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.cb.Set("later")
	f.cb.FailReads(errors.New("clipboard locked"))
	f.w.Tick(ctx)
	assert.Empty(t, f.items())

	f.cb.FailReads(nil)
	f.w.Tick(ctx)
	assert.Len(t, f.items(), 1)
}

func TestSelfWriteIsNotRecaptured(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.w.WriteText("pasted by copas"))
	f.w.Tick(ctx)
	assert.Empty(t, f.items())

	f.cb.Set("typed elsewhere")
	f.w.Tick(ctx)
	assert.Len(t, f.items(), 1)
}

func TestSelfWriteFailureIsNotRecorded(t *testing.T) {
	f := newFixture(t)
	f.cb.FailWrites(errors.New("denied"))
	assert.Error(t, f.w.WriteText("x"))

	f.cb.FailWrites(nil)
	f.cb.Set("x")
	f.w.Tick(context.Background())
	assert.Len(t, f.items(), 1)
}

func TestTick_CapturesImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	png := []byte("\x89PNG fake")

	f.cb.SetImage(png)
	f.w.Tick(ctx)
	f.w.Tick(ctx)

	items := f.items()
	require.Len(t, items, 1)
	assert.Equal(t, model.KindImage, items[0].Kind)
	assert.Equal(t, model.CategoryImage, items[0].Category)
	assert.FileExists(t, items[0].ImagePath)
}

func TestSelfWriteImageIsNotRecaptured(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.w.WriteImage([]byte("img")))
	f.w.Tick(context.Background())
	assert.Empty(t, f.items())
}

func TestStart_SeedsExistingContent(t *testing.T) {
	f := newFixture(t)
	f.cb.Set("already there")

	f.w.Start()
	defer f.w.Stop()

	f.cb.Set("new")
	require.Eventually(t, func() bool { return len(f.items()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "new", f.items()[0].ContentText)
}

func TestStartStopIdempotent(t *testing.T) {
	f := newFixture(t)
	f.w.Stop()
	f.w.Start()
	f.w.Start()
	assert.True(t, f.w.Running())
	f.w.Stop()
	f.w.Stop()
	assert.False(t, f.w.Running())

	f.cb.Set("after stop")
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, f.items())
}

func TestSetInterval(t *testing.T) {
	f := newFixture(t)
	f.w.SetInterval(20 * time.Millisecond)
	assert.False(t, f.w.Running())
	assert.Equal(t, 20*time.Millisecond, f.w.Interval())

	f.w.Start()
	defer f.w.Stop()
	f.w.SetInterval(5 * time.Millisecond)
	assert.True(t, f.w.Running())
	assert.Equal(t, 5*time.Millisecond, f.w.Interval())

	f.cb.Set("tick")
	require.Eventually(t, func() bool { return len(f.items()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestPersistFailureStillAnnounces(t *testing.T) {
	f := newFixture(t)
	f.db.SetFailure(errors.New("disk full"))
	f.cb.Set("kept in memory")
	f.w.Tick(context.Background())

	assert.Len(t, f.items(), 1)
	assert.Len(t, f.sub.C(), 1)
}

type panicky struct{ *clip.Memory }

func (panicky) ReadText() (string, error) { panic("driver bug") }

func TestTick_RecoversPanic(t *testing.T) {
	f := newFixture(t)
	w := New(Config{Backend: panicky{clip.NewMemory()}, Store: f.store})
	assert.NotPanics(t, func() { w.Tick(context.Background()) })
}
