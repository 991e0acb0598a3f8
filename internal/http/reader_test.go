package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leafread/leafread/internal/database"
	"github.com/leafread/leafread/internal/navigator"
	"github.com/leafread/leafread/internal/pagination"
)

func testPaginationOptions() pagination.Options {
	return pagination.Options{
		ParagraphsPerPage: pagination.ParagraphBounds{Min: 4, Max: 6, Preferred: 5},
		WordsPerPage:      300,
		PagesPerChapter:   5,
		WordsPerMinute:    200,
	}
}

// setupReaderServer builds a full router over a fresh database holding one
// registered book: 115 short paragraphs pack into 20 pages and 4 chapters
// under the test options.
func setupReaderServer(t *testing.T) (*gin.Engine, *database.Database, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := "./test_reader_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	paragraphs := make([]pagination.Paragraph, 115)
	for i := range paragraphs {
		paragraphs[i] = pagination.Paragraph{
			Type:      pagination.ParagraphTypeRegular,
			Text:      fmt.Sprintf("paragraph %d", i),
			WordCount: 10,
		}
	}
	_, err = db.CreateBook("alice", "Alice", "Lewis Carroll", paragraphs)
	require.NoError(t, err)

	nav := navigator.New(NewPositionHistory(db), time.Millisecond, nil)

	router := NewRouter(RouterConfig{
		Database:          db,
		PaginationService: pagination.NewService(nil, nil),
		PaginationOptions: testPaginationOptions(),
		Navigator:         nav,
		Version:           "test",
	})

	cleanup := func() {
		nav.Close()
		db.Close()
		os.Remove(dbPath)
	}
	return router, db, cleanup
}

func doJSON(router *gin.Engine, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeRead(t *testing.T, w *httptest.ResponseRecorder) readResponse {
	t.Helper()
	var resp readResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRead_RequiresBookID(t *testing.T) {
	router, _, cleanup := setupReaderServer(t)
	defer cleanup()

	w := doJSON(router, "GET", "/read", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRead_UnknownBook(t *testing.T) {
	router, _, cleanup := setupReaderServer(t)
	defer cleanup()

	w := doJSON(router, "GET", "/read?bookId=missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRead_ServesRequestedPosition(t *testing.T) {
	router, _, cleanup := setupReaderServer(t)
	defer cleanup()

	w := doJSON(router, "GET", "/read?bookId=alice&chapter=2&page=3", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeRead(t, w)
	assert.Equal(t, navigator.Position{BookID: "alice", Chapter: 2, Page: 3}, resp.Position)
	assert.Equal(t, 13, resp.GlobalIndex)
	assert.Equal(t, 20, resp.TotalPages)
	require.NotNil(t, resp.Page)
	assert.Equal(t, 2, resp.Page.ChapterIndex)
	assert.Contains(t, resp.URL, "bookId=alice")
	assert.Contains(t, resp.NextURL, "page=4")
	assert.Contains(t, resp.PrevURL, "page=2")
}

func TestRead_LinksAbsentAtBookEdges(t *testing.T) {
	router, _, cleanup := setupReaderServer(t)
	defer cleanup()

	w := doJSON(router, "GET", "/read?bookId=alice&chapter=0&page=0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeRead(t, w)
	assert.Empty(t, resp.PrevURL)
	assert.NotEmpty(t, resp.NextURL)

	w = doJSON(router, "GET", "/read?bookId=alice&chapter=3&page=4", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeRead(t, w)
	assert.Empty(t, resp.NextURL)
	assert.NotEmpty(t, resp.PrevURL)
}

func TestRead_MalformedPositionIsClampedNotRejected(t *testing.T) {
	router, _, cleanup := setupReaderServer(t)
	defer cleanup()

	// A negative page parses to 0; the rest of the address stays usable.
	w := doJSON(router, "GET", "/read?bookId=alice&chapter=2&page=-1", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeRead(t, w)
	assert.Equal(t, navigator.Position{BookID: "alice", Chapter: 2, Page: 0}, resp.Position)
}

func TestRead_OutOfRangePositionIsClamped(t *testing.T) {
	router, _, cleanup := setupReaderServer(t)
	defer cleanup()

	w := doJSON(router, "GET", "/read?bookId=alice&chapter=99&page=99", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeRead(t, w)
	assert.Equal(t, navigator.Position{BookID: "alice", Chapter: 3, Page: 4}, resp.Position)
}

func TestRead_RestoresStoredPosition(t *testing.T) {
	router, db, cleanup := setupReaderServer(t)
	defer cleanup()

	require.NoError(t, db.SaveReadingPosition("alice", 1, 3))

	w := doJSON(router, "GET", "/read?bookId=alice", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeRead(t, w)
	assert.Equal(t, navigator.Position{BookID: "alice", Chapter: 1, Page: 3}, resp.Position)
}

func TestRead_ExplicitPositionBeatsStoredOne(t *testing.T) {
	router, db, cleanup := setupReaderServer(t)
	defer cleanup()

	require.NoError(t, db.SaveReadingPosition("alice", 1, 3))

	w := doJSON(router, "GET", "/read?bookId=alice&chapter=0&page=0", nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeRead(t, w)
	assert.Equal(t, navigator.Position{BookID: "alice", Chapter: 0, Page: 0}, resp.Position)
}

func TestUpdatePosition_Set(t *testing.T) {
	router, db, cleanup := setupReaderServer(t)
	defer cleanup()

	w := doJSON(router, "POST", "/api/position", gin.H{
		"book_id": "alice", "chapter": 2, "page": 1,
	})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeRead(t, w)
	assert.Equal(t, navigator.Position{BookID: "alice", Chapter: 2, Page: 1}, resp.Position)

	// Sets write through immediately.
	record, err := db.GetReadingPosition("alice")
	require.NoError(t, err)
	assert.Equal(t, 2, record.Chapter)
	assert.Equal(t, 1, record.Page)
}

func TestUpdatePosition_NextPageRollsOver(t *testing.T) {
	router, _, cleanup := setupReaderServer(t)
	defer cleanup()

	w := doJSON(router, "POST", "/api/position", gin.H{
		"book_id": "alice", "chapter": 0, "page": 4, "action": "next_page",
	})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeRead(t, w)
	assert.Equal(t, navigator.Position{BookID: "alice", Chapter: 1, Page: 0}, resp.Position)
}

func TestUpdatePosition_Jump(t *testing.T) {
	router, db, cleanup := setupReaderServer(t)
	defer cleanup()

	w := doJSON(router, "POST", "/api/position", gin.H{
		"book_id": "alice", "action": "jump", "global_page": 12,
	})

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeRead(t, w)
	assert.Equal(t, navigator.Position{BookID: "alice", Chapter: 2, Page: 2}, resp.Position)
	assert.Equal(t, 12, resp.GlobalIndex)

	record, err := db.GetReadingPosition("alice")
	require.NoError(t, err)
	assert.Equal(t, 2, record.Chapter)
}

func TestUpdatePosition_JumpOutOfRange(t *testing.T) {
	router, db, cleanup := setupReaderServer(t)
	defer cleanup()

	w := doJSON(router, "POST", "/api/position", gin.H{
		"book_id": "alice", "action": "jump", "global_page": 20,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	_, err := db.GetReadingPosition("alice")
	assert.Error(t, err, "a rejected jump must not move the stored position")
}

func TestUpdatePosition_UnknownAction(t *testing.T) {
	router, _, cleanup := setupReaderServer(t)
	defer cleanup()

	w := doJSON(router, "POST", "/api/position", gin.H{
		"book_id": "alice", "action": "teleport",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdatePosition_RequiresBookID(t *testing.T) {
	router, _, cleanup := setupReaderServer(t)
	defer cleanup()

	w := doJSON(router, "POST", "/api/position", gin.H{"chapter": 1})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
