package http

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"

	"github.com/leafread/leafread/internal/navigator"
)

const sessionPositionPrefix = "position_"

// SessionManager wraps scs.SessionManager with reader-specific helpers.
// The session carries the last confirmed position per book so that a bare
// /read?bookId=x request restores where the reader left off, the same way a
// replayed history entry would.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a session manager backed by the application's
// SQLite database.
func NewSessionManager(sqlDB *sql.DB, lifetime time.Duration) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)
	if lifetime > 0 {
		sm.Lifetime = lifetime
	}
	sm.Cookie.Name = "leafread_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// RememberPosition attaches a position to the session's history state.
func (sm *SessionManager) RememberPosition(c *gin.Context, p navigator.Position) {
	if p.BookID == "" {
		return
	}
	encoded, err := json.Marshal(p)
	if err != nil {
		return
	}
	sm.Put(c.Request.Context(), sessionPositionPrefix+p.BookID, string(encoded))
}

// RestorePosition retrieves the session-stored position for a book.
func (sm *SessionManager) RestorePosition(c *gin.Context, bookID string) (navigator.Position, bool) {
	raw := sm.GetString(c.Request.Context(), sessionPositionPrefix+bookID)
	if raw == "" {
		return navigator.Position{}, false
	}
	var p navigator.Position
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return navigator.Position{}, false
	}
	return p, true
}

// sessionResponseWriter intercepts the first header write so the session
// cookie goes out before any response bytes.
type sessionResponseWriter struct {
	gin.ResponseWriter
	sm            *SessionManager
	request       *http.Request
	wroteHeader   bool
	cookieWritten bool
}

func (w *sessionResponseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.writeSessionCookie()
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionResponseWriter) WriteHeaderNow() {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.writeSessionCookie()
	}
	w.ResponseWriter.WriteHeaderNow()
}

func (w *sessionResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.writeSessionCookie()
	}
	return w.ResponseWriter.Write(b)
}

func (w *sessionResponseWriter) writeSessionCookie() {
	if w.cookieWritten {
		return
	}
	w.cookieWritten = true

	ctx := w.request.Context()
	switch w.sm.Status(ctx) {
	case scs.Modified:
		token, expiry, err := w.sm.Commit(ctx)
		if err != nil {
			return
		}
		w.sm.WriteSessionCookie(ctx, w.ResponseWriter, token, expiry)
	case scs.Destroyed:
		w.sm.WriteSessionCookie(ctx, w.ResponseWriter, "", time.Time{})
	}
}

func (w *sessionResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.ResponseWriter.Hijack()
}

// SessionLoadSave is the gin middleware loading session data into the
// request context and committing it on the way out.
func (sm *SessionManager) SessionLoadSave() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if cookie, err := c.Request.Cookie(sm.Cookie.Name); err == nil {
			token = cookie.Value
		}

		ctx, err := sm.Load(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Request = c.Request.WithContext(ctx)

		srw := &sessionResponseWriter{
			ResponseWriter: c.Writer,
			sm:             sm,
			request:        c.Request,
		}
		c.Writer = srw

		c.Next()

		if !srw.wroteHeader {
			srw.writeSessionCookie()
		}
	}
}
