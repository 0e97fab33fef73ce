package auth

import (
	"net/http"

	"github.com/gorilla/sessions"

	"inventory-sales-service/internal/config"
)

// SessionName is the cookie name of the operator session.
const SessionName = "inventario_session"

const (
	keyName  = "name"
	keyEmail = "email"
	keyRole  = "role"
)

// FlashKind distinguishes success notices from failures.
type FlashKind string

const (
	FlashOK    FlashKind = "ok"
	FlashError FlashKind = "error"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Kind    FlashKind
	Message string
}

// NewCookieStore builds the signed cookie store backing sessions.
func NewCookieStore(cfg config.SessionConfig) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cfg.MaxAge,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// SessionManager issues, reads and destroys operator sessions.
type SessionManager struct {
	store sessions.Store
}

func NewSessionManager(store sessions.Store) *SessionManager {
	return &SessionManager{store: store}
}

// session returns the request's session. A cookie that fails to decode
// yields a fresh, empty session.
func (m *SessionManager) session(r *http.Request) *sessions.Session {
	sess, err := m.store.Get(r, SessionName)
	if err != nil || sess == nil {
		sess = sessions.NewSession(m.store, SessionName)
		sess.IsNew = true
	}
	return sess
}

// SignIn stores id in the session cookie.
func (m *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, id Identity) error {
	sess := m.session(r)
	sess.Values[keyName] = id.Name
	sess.Values[keyEmail] = id.Email
	sess.Values[keyRole] = id.Role
	return sess.Save(r, w)
}

// SignOut expires the session cookie unconditionally.
func (m *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess := m.session(r)
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	opts := sessions.Options{Path: "/", MaxAge: -1, HttpOnly: true}
	if sess.Options != nil {
		opts = *sess.Options
		opts.MaxAge = -1
	}
	sess.Options = &opts
	return sess.Save(r, w)
}

// Current returns the signed-in identity, if any.
func (m *SessionManager) Current(r *http.Request) (Identity, bool) {
	sess := m.session(r)
	email, _ := sess.Values[keyEmail].(string)
	if email == "" {
		return Identity{}, false
	}
	name, _ := sess.Values[keyName].(string)
	role, _ := sess.Values[keyRole].(string)
	return Identity{Name: name, Email: email, Role: role}, true
}

// AddFlash queues a message for the next page render.
func (m *SessionManager) AddFlash(w http.ResponseWriter, r *http.Request, kind FlashKind, message string) error {
	sess := m.session(r)
	sess.AddFlash(message, flashKey(kind))
	return sess.Save(r, w)
}

// Flashes drains queued messages, successes first.
func (m *SessionManager) Flashes(w http.ResponseWriter, r *http.Request) ([]Flash, error) {
	sess := m.session(r)
	var out []Flash
	for _, kind := range []FlashKind{FlashOK, FlashError} {
		for _, v := range sess.Flashes(flashKey(kind)) {
			if msg, ok := v.(string); ok {
				out = append(out, Flash{Kind: kind, Message: msg})
			}
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, sess.Save(r, w)
}

func flashKey(kind FlashKind) string {
	return "_flash_" + string(kind)
}
