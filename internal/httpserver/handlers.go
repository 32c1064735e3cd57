package httpserver

import (
	"context"
	"io"
	"net/http"
	"time"

	"pulsewatch/backend/internal/apperror"
	domain "pulsewatch/backend/internal/domain/auth"
	authusecase "pulsewatch/backend/internal/usecase/auth"
	userusecase "pulsewatch/backend/internal/usecase/user"
	"pulsewatch/backend/internal/validation"
)

type registerBody struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Name     *string `json:"name" validate:"omitempty,min=1"`
}

type loginBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type listUsersQuery struct {
	Role string `json:"role" validate:"omitempty,oneof=user admin"`
}

type userIDParams struct {
	ID string `json:"id" validate:"required,uuid"`
}

type none = validation.None

const healthTimeout = 2 * time.Second

func (s *Server) registerRoutes() {
	s.router.HandleFunc("GET /{$}", s.handleRoot)
	s.router.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		s.router.Handle("GET /metrics", s.metrics.Handler())
	}

	s.router.Handle("POST /auth/register", s.route(s.handleRegister,
		validate[registerBody, none, none](s.validator)))
	s.router.Handle("POST /auth/login", s.route(s.handleLogin,
		validate[loginBody, none, none](s.validator)))
	s.router.Handle("GET /auth/me", s.route(s.handleMe, s.requireAuth))

	s.router.Handle("GET /users", s.route(s.handleListUsers,
		validate[none, listUsersQuery, none](s.validator), s.requireAuth))
	s.router.Handle("GET /users/{id}", s.route(s.handleGetUser,
		validate[none, none, userIDParams](s.validator, "id"), s.requireAuth))

	s.router.Handle("/", s.route(s.handleNotFound))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "PulseWatch API")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.health(ctx); err != nil {
			s.logger.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) error {
	return apperror.NotFound("Not Found - " + r.URL.Path)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) error {
	body := envelope[registerBody, none, none](r).Body

	user, err := s.authService.Register(r.Context(), authusecase.RegisterInput{
		Email:    body.Email,
		Password: body.Password,
		Name:     body.Name,
	})
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
	return nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) error {
	body := envelope[loginBody, none, none](r).Body

	result, err := s.authService.Login(r.Context(), domain.Credentials{
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, result)
	return nil
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) error {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		return apperror.Unauthorized(msgUnauthorized)
	}

	user, err := s.authService.GetByID(r.Context(), claims.Subject)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, user)
	return nil
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) error {
	query := envelope[none, listUsersQuery, none](r).Query

	users, err := s.userService.List(r.Context(), userusecase.Filter{Role: query.Role})
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, users)
	return nil
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) error {
	params := envelope[none, none, userIDParams](r).Params

	user, err := s.userService.Get(r.Context(), params.ID)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, user)
	return nil
}
