package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/showcall/showcall-core/internal/show"
	"github.com/showcall/showcall-core/internal/showlog"
)

// memRepo is an in-memory show.Repository for session tests.
type memRepo struct {
	mu      sync.Mutex
	shows   map[string]*show.Show
	cues    map[string]*show.Cue
	entries []showlog.Entry

	// appendHook, when set, runs at the top of AppendLog. Tests use it to
	// stall the session worker mid-command.
	appendHook func()
}

func newMemRepo() *memRepo {
	return &memRepo{
		shows: make(map[string]*show.Show),
		cues:  make(map[string]*show.Cue),
	}
}

func (r *memRepo) CreateShow(_ context.Context, s *show.Show) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shows[s.ID]; ok {
		return show.ErrShowExists
	}
	r.shows[s.ID] = s.DeepCopy()
	return nil
}

func (r *memRepo) GetShow(_ context.Context, id string) (*show.Show, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.shows[id]
	if !ok {
		return nil, show.ErrShowNotFound
	}
	return s.DeepCopy(), nil
}

func (r *memRepo) ListShows(_ context.Context) ([]show.Show, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]show.Show, 0, len(r.shows))
	for _, s := range r.shows {
		out = append(out, *s.DeepCopy())
	}
	return out, nil
}

func (r *memRepo) CreateCue(_ context.Context, c *show.Cue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues[c.ID] = c.DeepCopy()
	return nil
}

func (r *memRepo) GetCue(_ context.Context, id string) (*show.Cue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.cues[id]
	if !ok {
		return nil, show.ErrCueNotFound
	}
	return c.DeepCopy(), nil
}

func (r *memRepo) ListCues(_ context.Context, showID string) ([]show.Cue, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []show.Cue{}
	for _, c := range r.cues {
		if c.ShowID == showID {
			out = append(out, *c.DeepCopy())
		}
	}
	return out, nil
}

func (r *memRepo) UpdateCue(_ context.Context, c *show.Cue) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cues[c.ID]; !ok {
		return show.ErrCueNotFound
	}
	r.cues[c.ID] = c.DeepCopy()
	return nil
}

func (r *memRepo) DeleteCue(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cues[id]; !ok {
		return show.ErrCueNotFound
	}
	delete(r.cues, id)
	return nil
}

func (r *memRepo) ApplyShowChange(_ context.Context, s *show.Show, entry *showlog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shows[s.ID] = s.DeepCopy()
	r.appendLocked(entry)
	return nil
}

func (r *memRepo) ApplyCueChange(_ context.Context, c *show.Cue, s *show.Show, entry *showlog.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues[c.ID] = c.DeepCopy()
	if s != nil {
		r.shows[s.ID] = s.DeepCopy()
	}
	r.appendLocked(entry)
	return nil
}

func (r *memRepo) ReorderCues(_ context.Context, showID string, orderedIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, id := range orderedIDs {
		c, ok := r.cues[id]
		if !ok || c.ShowID != showID {
			return show.ErrInvalidReorder
		}
		c.SortOrder = i + 1
	}
	return nil
}

func (r *memRepo) AppendLog(_ context.Context, entry *showlog.Entry) error {
	if r.appendHook != nil {
		r.appendHook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendLocked(entry)
	return nil
}

func (r *memRepo) appendLocked(entry *showlog.Entry) {
	var seq int64
	for _, e := range r.entries {
		if e.ShowID == entry.ShowID && e.Seq > seq {
			seq = e.Seq
		}
	}
	entry.Seq = seq + 1
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	r.entries = append(r.entries, *entry)
}

func (r *memRepo) countEvents(showID string, event showlog.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.ShowID == showID && e.EventType == event {
			n++
		}
	}
	return n
}

func seedShow(t *testing.T, repo *memRepo, status show.Status) *show.Show {
	t.Helper()
	now := time.Now().UTC()
	s := &show.Show{
		ID:        "show-test01",
		Name:      "Opening Night",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status != show.StatusNotStarted {
		s.StartedAt = &now
	}
	if err := repo.CreateShow(context.Background(), s); err != nil {
		t.Fatalf("seeding show: %v", err)
	}
	return s
}

func seedCue(t *testing.T, repo *memRepo, showID, id string, sortOrder int, deps []string) *show.Cue {
	t.Helper()
	now := time.Now().UTC()
	c := &show.Cue{
		ID:           id,
		ShowID:       showID,
		Number:       "LX" + id,
		SortOrder:    sortOrder,
		Type:         show.CueLighting,
		Description:  "test cue",
		TriggerType:  show.TriggerManual,
		Department:   "Lighting",
		Dependencies: deps,
		Status:       show.CuePending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := repo.CreateCue(context.Background(), c); err != nil {
		t.Fatalf("seeding cue: %v", err)
	}
	return c
}

func newTestSession(t *testing.T, repo *memRepo, showID string) *Session {
	t.Helper()
	seq, err := show.Load(context.Background(), repo, showID, nil)
	if err != nil {
		t.Fatalf("loading sequencer: %v", err)
	}
	s := newSession(seq, 16, nil, nil)
	t.Cleanup(s.close)
	return s
}

func TestSession_CommandLifecycle(t *testing.T) {
	repo := newMemRepo()
	sh := seedShow(t, repo, show.StatusNotStarted)
	seedCue(t, repo, sh.ID, "c1", 1, nil)
	seedCue(t, repo, sh.ID, "c2", 2, nil)
	sess := newTestSession(t, repo, sh.ID)
	ctx := context.Background()

	res, err := sess.Submit(ctx, StartShow{Actor: "sm"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if st, ok := res.(*show.Show); !ok || st.Status != show.StatusRunning {
		t.Fatalf("start result = %+v, want running show", res)
	}

	res, err = sess.Submit(ctx, Go{CueID: "c1", Actor: "sm"})
	if err != nil {
		t.Fatalf("go c1: %v", err)
	}
	gr, ok := res.(*show.GoResult)
	if !ok {
		t.Fatalf("go result type = %T", res)
	}
	if gr.ExecutedCue.ID != "c1" || gr.ExecutedCue.Status != show.CueExecuted {
		t.Errorf("executed cue = %+v", gr.ExecutedCue)
	}
	if gr.NextCue == nil || gr.NextCue.ID != "c2" {
		t.Errorf("next cue = %+v, want c2", gr.NextCue)
	}

	if _, err := sess.Submit(ctx, EndShow{Actor: "sm"}); err != nil {
		t.Fatalf("end: %v", err)
	}
	if got := sess.evictableSince(); got.IsZero() {
		t.Error("session not marked completed after end")
	}

	// Persisted state matches what the commands reported.
	persisted, err := repo.GetShow(ctx, sh.ID)
	if err != nil {
		t.Fatalf("get show: %v", err)
	}
	if persisted.Status != show.StatusCompleted {
		t.Errorf("persisted status = %s, want completed", persisted.Status)
	}
}

func TestSession_ConcurrentGoExecutesOnce(t *testing.T) {
	repo := newMemRepo()
	sh := seedShow(t, repo, show.StatusNotStarted)
	seedCue(t, repo, sh.ID, "c1", 1, nil)
	sess := newTestSession(t, repo, sh.ID)
	ctx := context.Background()

	if _, err := sess.Submit(ctx, StartShow{Actor: "sm"}); err != nil {
		t.Fatalf("start: %v", err)
	}

	const callers = 8
	results := make([]*show.GoResult, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := sess.Submit(ctx, Go{CueID: "c1", Actor: "sm"})
			errs[i] = err
			if err == nil {
				results[i] = res.(*show.GoResult)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i].ExecutedCue.ID != "c1" || results[i].ExecutedCue.Status != show.CueExecuted {
			t.Errorf("caller %d executed cue = %+v", i, results[i].ExecutedCue)
		}
	}

	// Idempotence: one command applied, one log entry, no matter how many
	// operators pressed the button.
	if n := repo.countEvents(sh.ID, showlog.EventCueGo); n != 1 {
		t.Errorf("cue_go log entries = %d, want 1", n)
	}
}

func TestSession_ConcurrentSubmitsAllLogged(t *testing.T) {
	repo := newMemRepo()
	sh := seedShow(t, repo, show.StatusRunning)
	sess := newTestSession(t, repo, sh.ID)
	ctx := context.Background()

	const notes = 20
	var wg sync.WaitGroup
	for i := 0; i < notes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text := "called fly cue early"
			if _, err := sess.Submit(ctx, AddNote{Text: text, Actor: "asm"}); err != nil {
				t.Errorf("add note: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := repo.countEvents(sh.ID, showlog.EventNote); n != notes {
		t.Errorf("note entries = %d, want %d", n, notes)
	}

	// Serialised application assigns contiguous sequence numbers.
	repo.mu.Lock()
	seen := make(map[int64]bool)
	for _, e := range repo.entries {
		if seen[e.Seq] {
			t.Errorf("duplicate log seq %d", e.Seq)
		}
		seen[e.Seq] = true
	}
	repo.mu.Unlock()
	for i := int64(1); i <= notes; i++ {
		if !seen[i] {
			t.Errorf("missing log seq %d", i)
		}
	}
}

func TestSession_CancelledBeforeApplyIsDropped(t *testing.T) {
	repo := newMemRepo()
	sh := seedShow(t, repo, show.StatusNotStarted)
	sess := newTestSession(t, repo, sh.ID)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := sess.Submit(cancelled, StartShow{Actor: "sm"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("submit with cancelled ctx: err = %v, want context.Canceled", err)
	}

	// The cancelled start must not have applied: a fresh start succeeds.
	if _, err := sess.Submit(context.Background(), StartShow{Actor: "sm"}); err != nil {
		t.Fatalf("start after cancelled submit: %v", err)
	}
}

func TestSession_SubmitAfterClose(t *testing.T) {
	repo := newMemRepo()
	sh := seedShow(t, repo, show.StatusNotStarted)
	sess := newTestSession(t, repo, sh.ID)

	sess.close()

	// Give the worker a moment to observe done.
	time.Sleep(10 * time.Millisecond)

	if _, err := sess.Submit(context.Background(), StartShow{Actor: "sm"}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("submit after close: err = %v, want ErrSessionClosed", err)
	}
}

func TestSession_CloseUnblocksQueuedSubmitters(t *testing.T) {
	repo := newMemRepo()
	sh := seedShow(t, repo, show.StatusRunning)

	// Stall the worker inside the first note's persistence so later submits
	// pile up behind it.
	applying := make(chan struct{})
	release := make(chan struct{})
	var stall sync.Once
	repo.appendHook = func() {
		stall.Do(func() { close(applying) })
		<-release
	}

	sess := newTestSession(t, repo, sh.ID)
	events, cancelSub := sess.Subscribe()
	defer cancelSub()

	go func() {
		_, _ = sess.Submit(context.Background(), AddNote{Text: "places please", Actor: "SM Dana"})
	}()
	<-applying

	const queued = 5
	results := make(chan error, queued)
	for i := 0; i < queued; i++ {
		go func() {
			_, err := sess.Submit(context.Background(), AddNote{Text: "standby LX", Actor: "ASM Kit"})
			results <- err
		}()
	}
	deadline := time.Now().Add(2 * time.Second)
	for len(sess.queue) < queued {
		if time.Now().After(deadline) {
			t.Fatalf("only %d of %d submits queued", len(sess.queue), queued)
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Closing with the worker still busy must not strand the queued callers,
	// even though none of them carries a deadline.
	sess.close()
	for i := 0; i < queued; i++ {
		select {
		case err := <-results:
			if !errors.Is(err, ErrSessionClosed) {
				t.Errorf("queued Submit error = %v, want ErrSessionClosed", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("queued Submit still blocked after close")
		}
	}

	// Release the worker; it finishes the in-flight note, then exits and
	// closes subscriber channels without touching the drained commands.
	close(release)
	for {
		select {
		case _, open := <-events:
			if !open {
				if n := repo.countEvents(sh.ID, showlog.EventNote); n != 1 {
					t.Errorf("notes logged = %d, want 1", n)
				}
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("worker did not exit after close")
		}
	}
}

func TestSession_SubscribeDeliversEvents(t *testing.T) {
	repo := newMemRepo()
	sh := seedShow(t, repo, show.StatusNotStarted)
	sess := newTestSession(t, repo, sh.ID)
	ctx := context.Background()

	events, cancel := sess.Subscribe()
	defer cancel()

	if _, err := sess.Submit(ctx, StartShow{Actor: "sm"}); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case ev := <-events:
		if ev.Type != EventShowStarted {
			t.Errorf("event type = %s, want %s", ev.Type, EventShowStarted)
		}
		if ev.ShowID != sh.ID {
			t.Errorf("event show_id = %s, want %s", ev.ShowID, sh.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for show.started event")
	}
}

func TestSession_FailedCommandEmitsNoEvent(t *testing.T) {
	repo := newMemRepo()
	sh := seedShow(t, repo, show.StatusNotStarted)
	seedCue(t, repo, sh.ID, "c1", 1, nil)
	sess := newTestSession(t, repo, sh.ID)
	ctx := context.Background()

	events, cancel := sess.Subscribe()
	defer cancel()

	// Go before start is invalid.
	if _, err := sess.Submit(ctx, Go{CueID: "c1", Actor: "sm"}); !errors.Is(err, show.ErrInvalidShowState) {
		t.Fatalf("go before start: err = %v, want ErrInvalidShowState", err)
	}

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %s after failed command", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

type captureEmitter struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureEmitter) Emit(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureEmitter) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Type
	}
	return out
}

func TestSession_EmitterReceivesEveryEvent(t *testing.T) {
	repo := newMemRepo()
	sh := seedShow(t, repo, show.StatusNotStarted)
	seedCue(t, repo, sh.ID, "c1", 1, nil)

	seq, err := show.Load(context.Background(), repo, sh.ID, nil)
	if err != nil {
		t.Fatalf("loading sequencer: %v", err)
	}
	emitter := &captureEmitter{}
	sess := newSession(seq, 16, []Emitter{emitter}, nil)
	t.Cleanup(sess.close)
	ctx := context.Background()

	if _, err := sess.Submit(ctx, StartShow{Actor: "sm"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := sess.Submit(ctx, Go{CueID: "c1", Actor: "sm"}); err != nil {
		t.Fatalf("go: %v", err)
	}
	if _, err := sess.Submit(ctx, EndShow{Actor: "sm"}); err != nil {
		t.Fatalf("end: %v", err)
	}

	want := []string{EventShowStarted, EventCueExecuted, EventShowEnded}
	got := emitter.types()
	if len(got) != len(want) {
		t.Fatalf("emitted %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}
