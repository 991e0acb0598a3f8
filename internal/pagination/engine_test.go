package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func regulars(n, words int) []Paragraph {
	out := make([]Paragraph, n)
	for i := range out {
		out[i] = Paragraph{Type: ParagraphTypeRegular, Text: "p", WordCount: words}
	}
	return out
}

func flatten(pages []Page) []Paragraph {
	var out []Paragraph
	for _, page := range pages {
		out = append(out, page.Paragraphs...)
	}
	return out
}

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	engine, err := NewEngine(opts)
	require.NoError(t, err)
	return engine
}

func scenarioOptions() Options {
	return Options{
		ParagraphsPerPage: ParagraphBounds{Min: 4, Max: 6, Preferred: 5},
		WordsPerPage:      300,
		PagesPerChapter:   5,
		WordsPerMinute:    200,
	}
}

func TestEngine_EmptyInput(t *testing.T) {
	engine := newTestEngine(t, DefaultOptions())

	assert.Empty(t, engine.Paginate(nil))
}

func TestEngine_InputSmallerThanMin(t *testing.T) {
	// Min is advisory: too little content still yields exactly one page.
	engine := newTestEngine(t, scenarioOptions())

	pages := engine.Paginate(regulars(2, 50))

	require.Len(t, pages, 1)
	assert.Len(t, pages[0].Paragraphs, 2)
	assert.Equal(t, 100, pages[0].WordCount)
}

func TestEngine_PreservesParagraphOrder(t *testing.T) {
	input := make([]Paragraph, 40)
	for i := range input {
		input[i] = Paragraph{Type: ParagraphTypeRegular, Text: "p", Title: string(rune('a' + i%26)), WordCount: 80}
	}
	engine := newTestEngine(t, scenarioOptions())

	out := flatten(engine.Paginate(input))

	require.Len(t, out, len(input))
	for i := range input {
		assert.Equal(t, input[i].Title, out[i].Title, "paragraph %d out of order", i)
	}
}

func TestEngine_HardCapAtMax(t *testing.T) {
	// 23 short paragraphs never reach the word thresholds, so only the
	// hard cap breaks pages: 6+6+6+5.
	engine := newTestEngine(t, scenarioOptions())

	pages := engine.Paginate(regulars(23, 10))

	require.Len(t, pages, 4)
	sum := 0
	for _, page := range pages {
		n := len(page.Paragraphs)
		sum += n
		assert.GreaterOrEqual(t, n, 4)
		assert.LessOrEqual(t, n, 6)
	}
	assert.Equal(t, 23, sum)
}

func TestEngine_WordTargetBreaksAtMin(t *testing.T) {
	// 75-word paragraphs hit the 300-word target exactly at min=4.
	engine := newTestEngine(t, scenarioOptions())

	pages := engine.Paginate(regulars(12, 75))

	require.Len(t, pages, 3)
	for _, page := range pages {
		assert.Len(t, page.Paragraphs, 4)
		assert.Equal(t, 300, page.WordCount)
	}
}

func TestEngine_SoftTargetBreaksAtPreferred(t *testing.T) {
	// 40-word paragraphs: at 5 paragraphs the page holds 200 words, which
	// is over half the 300-word target, so the preferred rule breaks.
	engine := newTestEngine(t, scenarioOptions())

	pages := engine.Paginate(regulars(10, 40))

	require.Len(t, pages, 2)
	assert.Len(t, pages[0].Paragraphs, 5)
	assert.Len(t, pages[1].Paragraphs, 5)
}

func TestEngine_TitleAlwaysOpensPage(t *testing.T) {
	input := regulars(3, 10)
	input = append(input, Paragraph{Type: ParagraphTypeTitle, Text: "Part Two", WordCount: 2})
	input = append(input, regulars(3, 10)...)
	engine := newTestEngine(t, scenarioOptions())

	pages := engine.Paginate(input)

	require.Len(t, pages, 2)
	assert.Len(t, pages[0].Paragraphs, 3)
	assert.Equal(t, ParagraphTypeTitle, pages[1].Paragraphs[0].Type)
}

func TestEngine_LeadingTitleDoesNotCreateEmptyPage(t *testing.T) {
	input := []Paragraph{{Type: ParagraphTypeTitle, Text: "Opening", WordCount: 1}}
	input = append(input, regulars(3, 10)...)
	engine := newTestEngine(t, scenarioOptions())

	pages := engine.Paginate(input)

	require.Len(t, pages, 1)
	assert.Equal(t, ParagraphTypeTitle, pages[0].Paragraphs[0].Type)
}

func TestEngine_ImageBreaksBusyPage(t *testing.T) {
	input := regulars(3, 10)
	input = append(input, Paragraph{Type: ParagraphTypeImage, Markup: "<img/>", WordCount: 0, Text: "x"})
	engine := newTestEngine(t, scenarioOptions())

	pages := engine.Paginate(input)

	require.Len(t, pages, 2)
	assert.Equal(t, ParagraphTypeImage, pages[1].Paragraphs[0].Type)
}

func TestEngine_ImageJoinsNearEmptyPage(t *testing.T) {
	// A page holding a single paragraph still accepts an image.
	input := regulars(1, 10)
	input = append(input, Paragraph{Type: ParagraphTypeImage, Text: "x", WordCount: 0})
	engine := newTestEngine(t, scenarioOptions())

	pages := engine.Paginate(input)

	require.Len(t, pages, 1)
	assert.Len(t, pages[0].Paragraphs, 2)
}

func TestEngine_EstimatedMinutes(t *testing.T) {
	engine := newTestEngine(t, scenarioOptions())

	pages := engine.Paginate(regulars(2, 30))

	require.Len(t, pages, 1)
	// 60 words at 200 wpm rounds to 0, floored to 1.
	assert.Equal(t, 1, pages[0].EstimatedMinutes)
}

func TestEngine_PageIsCopiedFromAccumulator(t *testing.T) {
	engine := newTestEngine(t, scenarioOptions())
	input := regulars(8, 75)

	pages := engine.Paginate(input)

	require.Len(t, pages, 2)
	pages[0].Paragraphs[0].Text = "mutated"
	assert.Equal(t, "p", input[0].Text)
}

func TestNewEngine_RejectsInvalidBounds(t *testing.T) {
	_, err := NewEngine(Options{
		ParagraphsPerPage: ParagraphBounds{Min: 5, Max: 3, Preferred: 4},
		WordsPerPage:      300,
		PagesPerChapter:   5,
		WordsPerMinute:    200,
	})

	assert.Error(t, err)
}

func TestComputeStats(t *testing.T) {
	engine := newTestEngine(t, scenarioOptions())
	pages := engine.Paginate(regulars(23, 10))

	stats := ComputeStats(pages)

	assert.Equal(t, 4, stats.PageCount)
	assert.InDelta(t, 5.75, stats.AvgParagraphsPerPage, 0.001)
	assert.Equal(t, 3, stats.SizeHistogram[6])
	assert.Equal(t, 1, stats.SizeHistogram[5])
}

func TestComputeStats_Empty(t *testing.T) {
	stats := ComputeStats(nil)

	assert.Equal(t, 0, stats.PageCount)
	assert.Zero(t, stats.AvgParagraphsPerPage)
	assert.Empty(t, stats.SizeHistogram)
}
