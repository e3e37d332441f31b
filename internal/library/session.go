package library

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-library/internal/storage"
)

const (
	// LoginKey is the session key set once the admin has logged in.
	LoginKey   = "isLogin"
	loginValue = "1"
)

// sessionValues loads the values of the request's session; a missing cookie
// or an unknown session yields nil.
func (s *Server) sessionValues(r *http.Request) (id string, values map[string]string) {
	ck, err := r.Cookie(s.cookie)
	if err != nil || ck.Value == "" {
		return "", nil
	}
	values, err = s.store.LoadSession(r.Context(), ck.Value)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("Failed to load session", zap.Error(err))
		}
		return "", nil
	}
	return ck.Value, values
}

func (s *Server) loggedIn(r *http.Request) bool {
	_, values := s.sessionValues(r)
	return values[LoginKey] == loginValue
}

// startSession stores values under a fresh id and sends its cookie. Any
// previous session of the request is dropped.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, values map[string]string) error {
	if old, _ := s.sessionValues(r); old != "" {
		if err := s.store.DeleteSession(r.Context(), old); err != nil {
			return err
		}
	}

	id := uuid.NewString()
	if err := s.store.SaveSession(r.Context(), id, values); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) error {
	if id, _ := s.sessionValues(r); id != "" {
		if err := s.store.DeleteSession(r.Context(), id); err != nil {
			return err
		}
	}
	http.SetCookie(w, &http.Cookie{Name: s.cookie, Value: "", Path: "/", MaxAge: -1})
	return nil
}
