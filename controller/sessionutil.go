package controller

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

// SessionWriter is a thin wrapper around gorilla/sessions that ensures
// cookie options (MaxAge, SameSite) are applied consistently before saving.
// Without it, saving a flash message would silently overwrite a persistent
// "remember me" cookie with a temporary one.
type SessionWriter struct {
	sess *sessions.Session
	c    echo.Context
}

// LoadSession retrieves the session named "session" from the Echo context.
// It returns a SessionWriter that you should use to read/write values and Save().
func LoadSession(c echo.Context) (*SessionWriter, error) {
	sess, err := session.Get("session", c)
	if err != nil {
		if isRecoverableSessionError(err) {
			// Treat invalid cookie as "no session" and start fresh. The
			// session object is still usable and will overwrite the cookie
			// on Save().
			log.Printf("invalid session cookie, starting fresh: %v", err)
		} else {
			return nil, err
		}
	}
	return &SessionWriter{sess: sess, c: c}, nil
}

// Values gives access to the session data map. Use it to set or read keys:
//
//	sw.Values()["uid"] = user.ID
func (sw *SessionWriter) Values() map[any]any {
	return sw.sess.Values
}

// Save persists the session back to the client. The cookie MaxAge follows
// the "persist" flag stored in the session: one year for remember-me,
// session cookie otherwise.
func (sw *SessionWriter) Save() error {
	persist, _ := sw.sess.Values["persist"].(bool)
	maxAge := 0
	if persist {
		maxAge = 60 * 60 * 24 * 365
	}
	sw.sess.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return sw.sess.Save(sw.c.Request(), sw.c.Response())
}

// isRecoverableSessionError checks whether the given error from session.Get()
// indicates an invalid or old session cookie that can be treated as "no session".
func isRecoverableSessionError(err error) bool {
	if err == nil {
		return false
	}

	// Typical securecookie decode error
	if strings.Contains(err.Error(), "securecookie: the value is not valid") {
		return true
	}

	var scErr securecookie.Error
	if errors.As(err, &scErr) {
		return true
	}

	return false
}
