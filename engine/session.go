package engine

import (
	"errors"
	"net/http"
	"time"

	"github.com/drummonds/goStorefront/database"
	"github.com/drummonds/goStorefront/navigation"
	"github.com/labstack/echo/v4"
)

// SessionCookie carries the session token
const SessionCookie = "sf_session"

const sessionKey = "session"

// LoadSession resolves the session cookie and stores the session in the echo context.
// Requests without a valid session continue as anonymous
func (serverHandler *ServerHandler) LoadSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(SessionCookie)
		if err != nil || cookie.Value == "" {
			return next(c)
		}
		session, err := serverHandler.DB.GetSession(cookie.Value, time.Now())
		switch {
		case errors.Is(err, database.ErrNotFound):
			Logger.Debug("Session cookie does not match a live session")
		case err != nil:
			Logger.Error("Unable to load session", "error", err)
		default:
			c.Set(sessionKey, session)
		}
		return next(c)
	}
}

func sessionFrom(c echo.Context) *database.Session {
	session, _ := c.Get(sessionKey).(*database.Session)
	return session
}

// toNavSession converts a stored session into the view the navigation bar renders
func toNavSession(session *database.Session) navigation.Session {
	if session == nil {
		return navigation.Session{}
	}
	nav := navigation.Session{IsGuest: session.IsGuest}
	if session.User != nil {
		nav.User = &navigation.User{ID: session.User.ID, Email: session.User.Email}
		nav.IsAdmin = session.User.IsAdmin
	}
	return nav
}

// RequireOwner only lets a user (or an admin) reach their own cart and favorites
func (serverHandler *ServerHandler) RequireOwner(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session := sessionFrom(c)
		if session == nil || session.User == nil {
			return jsonError(c, http.StatusUnauthorized, "sign in required")
		}
		if session.User.ID != c.Param("id") && !session.User.IsAdmin {
			return jsonError(c, http.StatusForbidden, "not your account")
		}
		return next(c)
	}
}

// RequireAdmin guards catalog changes
func (serverHandler *ServerHandler) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session := sessionFrom(c)
		if session == nil || session.User == nil {
			return jsonError(c, http.StatusUnauthorized, "sign in required")
		}
		if !session.User.IsAdmin {
			return jsonError(c, http.StatusForbidden, "admin only")
		}
		return next(c)
	}
}

// GetSession returns the session context of the caller, anonymous when there is none
func (serverHandler *ServerHandler) GetSession(c echo.Context) error {
	return c.JSON(http.StatusOK, toNavSession(sessionFrom(c)))
}

// StartGuestSession lets a visitor browse as a guest
func (serverHandler *ServerHandler) StartGuestSession(c echo.Context) error {
	if session := sessionFrom(c); session != nil {
		return c.JSON(http.StatusOK, toNavSession(session))
	}
	session, err := serverHandler.DB.CreateSession("", true, serverHandler.sessionTTL())
	if err != nil {
		Logger.Error("Unable to create guest session", "error", err)
		return jsonError(c, http.StatusInternalServerError, "unable to start session")
	}
	serverHandler.setSessionCookie(c, session)
	Logger.Info("Guest session started")
	return c.JSON(http.StatusOK, toNavSession(session))
}

// Logout deletes the session and clears the cookie
func (serverHandler *ServerHandler) Logout(c echo.Context) error {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		if err := serverHandler.DB.DeleteSession(cookie.Value); err != nil {
			Logger.Error("Unable to delete session", "error", err)
			return jsonError(c, http.StatusInternalServerError, "unable to sign out")
		}
	}
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, map[string]string{"status": "signed out"})
}

func (serverHandler *ServerHandler) sessionTTL() time.Duration {
	hours := serverHandler.ServerConfig.SessionTTLHours
	if hours <= 0 {
		hours = 72
	}
	return time.Duration(hours) * time.Hour
}

func (serverHandler *ServerHandler) setSessionCookie(c echo.Context, session *database.Session) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
