package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"image-library/internal/config"
	"image-library/internal/domain/gallery"
	"image-library/internal/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ownerKey struct{}

// SessionResponse is returned when an anonymous session is issued
type SessionResponse struct {
	OwnerID   string `json:"ownerId"`
	Anonymous bool   `json:"anonymous"`
}

func withSessionDefaults(s config.SessionConfig) config.SessionConfig {
	if s.CookieName == "" {
		s.CookieName = "gallery_session"
	}
	if s.UserHeader == "" {
		s.UserHeader = "X-User-ID"
	}
	if s.SessionHeader == "" {
		s.SessionHeader = "X-Session-ID"
	}
	if s.CookieMaxAge <= 0 {
		s.CookieMaxAge = 365 * 24 * time.Hour
	}
	return s
}

// newSessionID issues an anonymous owner id
func newSessionID() string {
	return gallery.AnonymousPrefix + uuid.NewString()
}

// isSessionID reports whether id looks like an id issued by newSessionID
func isSessionID(id string) bool {
	rest, ok := strings.CutPrefix(id, gallery.AnonymousPrefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}

// resolveOwner prefers the authenticated user set by the auth proxy, then the
// anonymous session cookie, then the session header. The user header is
// ignored unless the deployment trusts it.
func (h *Handler) resolveOwner(r *http.Request) (string, bool) {
	if h.session.TrustUserHeader {
		if user := strings.TrimSpace(r.Header.Get(h.session.UserHeader)); user != "" {
			return user, true
		}
	}
	if c, err := r.Cookie(h.session.CookieName); err == nil && isSessionID(c.Value) {
		return c.Value, true
	}
	if id := strings.TrimSpace(r.Header.Get(h.session.SessionHeader)); isSessionID(id) {
		return id, true
	}
	return "", false
}

func withOwner(ctx context.Context, ownerID string) context.Context {
	ctx = context.WithValue(ctx, ownerKey{}, ownerID)
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("library.owner_id", ownerID))
	return observability.ContextWithOwner(ctx, ownerID)
}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey{}).(string)
	return owner
}

func (h *Handler) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, ok := h.resolveOwner(r)
		if !ok {
			h.writeError(w, r, errMissingOwner)
			return
		}
		next.ServeHTTP(w, r.WithContext(withOwner(r.Context(), owner)))
	})
}

// optionalOwner attaches the owner when one is present
func (h *Handler) optionalOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if owner, ok := h.resolveOwner(r); ok {
			r = r.WithContext(withOwner(r.Context(), owner))
		}
		next.ServeHTTP(w, r)
	})
}

// createSessionHandler hands out an anonymous owner id, reusing the one the
// caller already holds.
func (h *Handler) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	if owner, ok := h.resolveOwner(r); ok {
		writeJSON(w, http.StatusOK, SessionResponse{
			OwnerID:   owner,
			Anonymous: gallery.IsAnonymousOwner(owner),
		})
		return
	}

	id := newSessionID()
	http.SetCookie(w, &http.Cookie{
		Name:     h.session.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.session.CookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.session.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info(withOwner(r.Context(), id)).Msg("anonymous session issued")
	writeJSON(w, http.StatusCreated, SessionResponse{OwnerID: id, Anonymous: true})
}
