package navigator

import (
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leafread/leafread/internal/pagination"
)

// fakeHistory records every Replace call and serves a mutable location.
type fakeHistory struct {
	mu       sync.Mutex
	location *url.URL
	writes   []Position
	fail     error
}

func newFakeHistory(rawURL string) *fakeHistory {
	u, _ := url.Parse(rawURL)
	return &fakeHistory{location: u}
}

func (h *fakeHistory) Location() *url.URL {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.location == nil {
		return nil
	}
	copied := *h.location
	return &copied
}

func (h *fakeHistory) Replace(u *url.URL, state Position) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail != nil {
		return h.fail
	}
	h.location = u
	h.writes = append(h.writes, state)
	return nil
}

func (h *fakeHistory) writeCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.writes)
}

func (h *fakeHistory) lastWrite() Position {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.writes[len(h.writes)-1]
}

func paginatedBook(t *testing.T, paragraphs int) *pagination.PagedBook {
	t.Helper()
	opts := pagination.Options{
		ParagraphsPerPage: pagination.ParagraphBounds{Min: 4, Max: 6, Preferred: 5},
		WordsPerPage:      300,
		PagesPerChapter:   5,
		WordsPerMinute:    200,
	}
	input := make([]pagination.Paragraph, paragraphs)
	for i := range input {
		input[i] = pagination.Paragraph{Text: "p", WordCount: 10}
	}
	book, err := pagination.NewService(nil, nil).Paginate(input, "nav-test", opts)
	require.NoError(t, err)
	return book
}

func TestParsePosition(t *testing.T) {
	u, err := url.Parse("/read?bookId=alice&chapter=2&page=3")
	require.NoError(t, err)

	assert.Equal(t, Position{BookID: "alice", Chapter: 2, Page: 3}, ParsePosition(u))
}

func TestParsePosition_NeverFails(t *testing.T) {
	cases := map[string]Position{
		"/read?bookId=alice&chapter=2&page=-1": {BookID: "alice", Chapter: 2, Page: 0},
		"/read?bookId=alice&chapter=x&page=y":  {BookID: "alice"},
		"/read?bookId=alice":                   {BookID: "alice"},
		"/read":                                {},
	}
	for rawURL, want := range cases {
		u, err := url.Parse(rawURL)
		require.NoError(t, err)
		assert.Equal(t, want, ParsePosition(u), rawURL)
	}
	assert.Equal(t, Position{}, ParsePosition(nil))
}

func TestPosition_ApplyRoundTrip(t *testing.T) {
	u, err := url.Parse("/read?theme=dark")
	require.NoError(t, err)
	p := Position{BookID: "alice", Chapter: 1, Page: 4}

	applied := p.Apply(u)

	assert.Equal(t, p, ParsePosition(applied))
	assert.Equal(t, "dark", applied.Query().Get("theme"), "unrelated parameters survive")
	assert.Equal(t, "dark", u.Query().Get("theme"), "input URL is not mutated")
}

func TestPosition_ApplyNilURL(t *testing.T) {
	p := Position{BookID: "alice", Chapter: 1, Page: 4}

	applied := p.Apply(nil)

	require.NotNil(t, applied)
	assert.Equal(t, p, ParsePosition(applied))
}

func TestNavigator_FlushSurvivesNilLocation(t *testing.T) {
	history := newFakeHistory("/read")
	history.location = nil
	nav := New(history, time.Hour, nil)
	defer nav.Close()

	nav.UpdatePosition(Position{BookID: "b", Page: 1}, true)

	require.Equal(t, 1, history.writeCount())
	assert.Equal(t, Position{BookID: "b", Page: 1}, history.lastWrite())
}

func TestValidateState_Clamps(t *testing.T) {
	// 115 paragraphs of 10 words pack 6 to a page: 20 pages, 4 chapters,
	// the last chapter holding 5 pages.
	book := paginatedBook(t, 115)
	require.Equal(t, 20, book.TotalPages)
	require.Equal(t, 4, book.TotalChapters)

	clamped := ValidateState(Position{BookID: "b", Chapter: 99, Page: 99}, book)
	assert.Equal(t, 3, clamped.Chapter)
	assert.Equal(t, 4, clamped.Page)

	clamped = ValidateState(Position{BookID: "b", Chapter: -1, Page: -1}, book)
	assert.Equal(t, 0, clamped.Chapter)
	assert.Equal(t, 0, clamped.Page)

	valid := Position{BookID: "b", Chapter: 2, Page: 3}
	assert.Equal(t, valid, ValidateState(valid, book))
}

func TestValidateState_EmptyBook(t *testing.T) {
	clamped := ValidateState(Position{BookID: "b", Chapter: 5, Page: 5}, nil)
	assert.Zero(t, clamped.Chapter)
	assert.Zero(t, clamped.Page)
}

func TestGlobalIndex(t *testing.T) {
	book := paginatedBook(t, 115)

	assert.Equal(t, 0, GlobalIndex(Position{Chapter: 0, Page: 0}, book))
	assert.Equal(t, 12, GlobalIndex(Position{Chapter: 2, Page: 2}, book))
	assert.Equal(t, 0, GlobalIndex(Position{Chapter: 9}, book))
}

func TestNavigator_NextPageRollsOverChapters(t *testing.T) {
	book := paginatedBook(t, 115)
	history := newFakeHistory("/read")
	nav := New(history, time.Millisecond, nil)
	defer nav.Close()

	p := Position{BookID: "nav-test", Chapter: 0, Page: 4}
	p = nav.NextPage(p, book)

	assert.Equal(t, 1, p.Chapter)
	assert.Equal(t, 0, p.Page)
}

func TestNavigator_NextPageStopsAtBookEnd(t *testing.T) {
	book := paginatedBook(t, 115)
	nav := New(newFakeHistory("/read"), time.Millisecond, nil)
	defer nav.Close()

	end := Position{BookID: "nav-test", Chapter: 3, Page: 4}
	assert.Equal(t, end, nav.NextPage(end, book))
}

func TestNavigator_PrevPageRollsOverChapters(t *testing.T) {
	book := paginatedBook(t, 115)
	nav := New(newFakeHistory("/read"), time.Millisecond, nil)
	defer nav.Close()

	p := nav.PrevPage(Position{BookID: "nav-test", Chapter: 2, Page: 0}, book)

	assert.Equal(t, 1, p.Chapter)
	assert.Equal(t, 4, p.Page)
}

func TestNavigator_PrevPageStopsAtBookStart(t *testing.T) {
	book := paginatedBook(t, 115)
	nav := New(newFakeHistory("/read"), time.Millisecond, nil)
	defer nav.Close()

	start := Position{BookID: "nav-test"}
	assert.Equal(t, start, nav.PrevPage(start, book))
}

func TestNavigator_ChapterJumpsLandOnFirstPage(t *testing.T) {
	book := paginatedBook(t, 115)
	nav := New(newFakeHistory("/read"), time.Millisecond, nil)
	defer nav.Close()

	p := nav.NextChapter(Position{BookID: "nav-test", Chapter: 1, Page: 3}, book)
	assert.Equal(t, Position{BookID: "nav-test", Chapter: 2, Page: 0}, p)

	p = nav.PrevChapter(p, book)
	assert.Equal(t, Position{BookID: "nav-test", Chapter: 1, Page: 0}, p)
}

func TestNavigator_JumpToGlobalPage(t *testing.T) {
	book := paginatedBook(t, 115)
	history := newFakeHistory("/read")
	nav := New(history, time.Hour, nil)
	defer nav.Close()

	p, err := nav.JumpToGlobalPage(Position{BookID: "nav-test"}, book, 12)

	require.NoError(t, err)
	assert.Equal(t, 2, p.Chapter)
	assert.Equal(t, 2, p.Page)
	// Jumps write immediately, even with an hour-long debounce.
	assert.Equal(t, 1, history.writeCount())
	assert.Equal(t, p, history.lastWrite())
}

func TestNavigator_JumpOutOfRangeIsReportedNotClamped(t *testing.T) {
	book := paginatedBook(t, 115)
	history := newFakeHistory("/read")
	nav := New(history, time.Hour, nil)
	defer nav.Close()

	before := Position{BookID: "nav-test", Chapter: 1, Page: 2}
	after, err := nav.JumpToGlobalPage(before, book, 20)

	assert.ErrorIs(t, err, pagination.ErrPageOutOfRange)
	assert.Equal(t, before, after)
	assert.Zero(t, history.writeCount())
}

func TestNavigator_DebounceCoalescesRapidFlips(t *testing.T) {
	history := newFakeHistory("/read")
	nav := New(history, 20*time.Millisecond, nil)
	defer nav.Close()

	for page := 0; page < 5; page++ {
		nav.UpdatePosition(Position{BookID: "b", Page: page}, false)
	}

	require.Eventually(t, func() bool { return history.writeCount() == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, Position{BookID: "b", Page: 4}, history.lastWrite())
}

func TestNavigator_ImmediateCancelsPendingDebounce(t *testing.T) {
	history := newFakeHistory("/read")
	nav := New(history, 20*time.Millisecond, nil)
	defer nav.Close()

	nav.UpdatePosition(Position{BookID: "b", Page: 1}, false)
	nav.UpdatePosition(Position{BookID: "b", Page: 7}, true)

	assert.Equal(t, 1, history.writeCount())
	assert.Equal(t, Position{BookID: "b", Page: 7}, history.lastWrite())

	// The cancelled debounced write never arrives.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, history.writeCount())
}

func TestNavigator_FlushForcesPendingWrite(t *testing.T) {
	history := newFakeHistory("/read")
	nav := New(history, time.Hour, nil)
	defer nav.Close()

	nav.UpdatePosition(Position{BookID: "b", Page: 3}, false)
	require.Zero(t, history.writeCount())

	nav.Flush()

	assert.Equal(t, 1, history.writeCount())
	assert.Equal(t, Position{BookID: "b", Page: 3}, history.lastWrite())
}

func TestNavigator_CloseCancelsPendingWrite(t *testing.T) {
	history := newFakeHistory("/read")
	nav := New(history, 20*time.Millisecond, nil)

	nav.UpdatePosition(Position{BookID: "b", Page: 3}, false)
	nav.Close()

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, history.writeCount())

	nav.UpdatePosition(Position{BookID: "b", Page: 4}, true)
	assert.Zero(t, history.writeCount(), "a closed navigator drops updates")
}

func TestNavigator_WriteFailureIsAbsorbed(t *testing.T) {
	history := newFakeHistory("/read")
	history.fail = errors.New("storage offline")
	nav := New(history, time.Millisecond, nil)
	defer nav.Close()

	nav.UpdatePosition(Position{BookID: "b", Page: 1}, true)

	assert.Zero(t, history.writeCount())
}

func TestNavigator_ObserverSuppressedDuringOwnWrite(t *testing.T) {
	history := newFakeHistory("/read?bookId=b&chapter=1&page=2")
	nav := New(history, time.Millisecond, nil)
	defer nav.Close()

	var observed, suppressed bool
	done := make(chan struct{})
	blocking := &blockingHistory{fakeHistory: history, entered: make(chan struct{}), release: done}
	navBlocked := New(blocking, time.Millisecond, nil)
	defer navBlocked.Close()

	go navBlocked.UpdatePosition(Position{BookID: "b", Chapter: 2, Page: 0}, true)

	<-blocking.entered
	_, observed = navBlocked.HandleLocationChange()
	suppressed = !observed
	close(done)

	assert.True(t, suppressed, "location changes during our own write are not echoed back")

	// Outside a write the observer reports the current location.
	p, ok := nav.HandleLocationChange()
	require.True(t, ok)
	assert.Equal(t, Position{BookID: "b", Chapter: 1, Page: 2}, p)
}

// blockingHistory parks Replace until released so the test can observe the
// navigator mid-write.
type blockingHistory struct {
	*fakeHistory
	entered chan struct{}
	release chan struct{}
}

func (h *blockingHistory) Replace(u *url.URL, state Position) error {
	close(h.entered)
	<-h.release
	return h.fakeHistory.Replace(u, state)
}
