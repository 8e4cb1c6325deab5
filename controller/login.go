package controller

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/billingcat/timetrack/model"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

// authMiddleware ensures a user is authenticated before accessing protected
// routes. It reads the uid from the session, loads the user record and puts
// it into the context; on failure it redirects to /login.
func (ctrl *controller) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sw, err := LoadSession(c)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, fmt.Errorf("cannot load session: %w", err))
		}

		var ok bool
		var uid uint
		if v, exists := sw.Values()["uid"]; exists {
			uid, ok = v.(uint)
		}
		if !ok || uid == 0 {
			return c.Redirect(http.StatusSeeOther, "/login")
		}

		user, err := ctrl.model.GetUserByID(uid)
		if err != nil {
			return c.Redirect(http.StatusSeeOther, "/login")
		}
		c.Set("uid", user.ID)
		c.Set("ownerid", user.OwnerID)
		c.Set("user", user)
		return next(c)
	}
}

// requirePermission gates a route group on a named permission. The user is
// expected in the context, so authMiddleware must run first.
func (ctrl *controller) requirePermission(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := currentUser(c)
			if !user.Can(permission) {
				return echo.NewHTTPError(http.StatusForbidden, "Dafür fehlt die Berechtigung.")
			}
			return next(c)
		}
	}
}

// currentUser returns the authenticated user from the context, or nil.
func currentUser(c echo.Context) *model.User {
	if u, ok := c.Get("user").(*model.User); ok {
		return u
	}
	return nil
}

// login handles GET (render form) and POST (authenticate).
func (ctrl *controller) login(c echo.Context) error {
	if c.Request().Method == http.MethodGet {
		m := ctrl.defaultResponseMap(c, "Login")
		return c.Render(http.StatusOK, "login.html", m)
	}

	// POST
	email := strings.TrimSpace(strings.ToLower(c.FormValue("email")))
	password := c.FormValue("password")
	remember := c.FormValue("rememberMe") != ""

	// Authenticate (do not leak whether the user exists).
	user, err := ctrl.model.AuthenticateUser(email, password)
	if err != nil || user == nil {
		if err := AddFlash(c, "error", "Anmeldung fehlgeschlagen. Bitte Eingaben prüfen."); err != nil {
			return ErrInvalid(err, "Fehler beim Speichern der Session")
		}
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	sw, err := LoadSession(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	sw.Values()["uid"] = user.ID
	sw.Values()["persist"] = remember

	if err := sw.Save(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	_ = ctrl.model.TouchLastLogin(user) // best-effort
	return c.Redirect(http.StatusSeeOther, "/")
}

// logout clears the session and deletes the cookie.
func (ctrl *controller) logout(c echo.Context) error {
	sess, err := session.Get("session", c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}
	delete(sess.Values, "uid")
	delete(sess.Values, "persist")

	// Force-delete the cookie for all browsers (including Safari).
	if sess.Options == nil {
		sess.Options = &sessions.Options{Path: "/"}
	}
	sess.Options.MaxAge = -1

	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}
	_ = AddFlash(c, "success", "Du wurdest abgemeldet.")
	return c.Redirect(http.StatusFound, "/login")
}
