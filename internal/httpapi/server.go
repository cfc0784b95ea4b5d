// Package httpapi — JSON API только для чтения: рейтинги, влияние,
// дневной ряд, балансы и отчёты для дашборда. Плюс /health и /metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/features/balance"
	"serotonyl.ru/recognition-bot/internal/features/golden"
	"serotonyl.ru/recognition-bot/internal/features/influence"
	"serotonyl.ru/recognition-bot/internal/features/leaderboard"
	"serotonyl.ru/recognition-bot/internal/features/report"
	"serotonyl.ru/recognition-bot/internal/metrics"
)

// DefaultDays — окно, если параметр days не передан.
const DefaultDays = 30

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services — то, что API отдаёт наружу.
type Services struct {
	Leaderboard *leaderboard.Service
	Influence   *influence.Service
	Report      *report.Service
	Balance     *balance.Service
	Golden      *golden.Service
	Store       Pinger
}

// Server — HTTP API.
type Server struct {
	svc    Services
	router *mux.Router
}

// NewServer создаёт API и регистрирует маршруты.
func NewServer(svc Services) *Server {
	s := &Server{svc: svc, router: mux.NewRouter()}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/leaderboard", s.handleLeaderboard).Methods(http.MethodGet)
	api.HandleFunc("/influencers", s.handleInfluencers).Methods(http.MethodGet)
	api.HandleFunc("/metrics/daily", s.handleDaily).Methods(http.MethodGet)
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}/balance", s.handleBalance).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}/report", s.handleUserReport).Methods(http.MethodGet)
	api.HandleFunc("/golden", s.handleGolden).Methods(http.MethodGet)
	return s
}

// ServeHTTP позволяет использовать Server как http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe поднимает сервер на addr и гасит его при отмене ctx.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Ошибка остановки HTTP-сервера")
		}
	}()

	log.WithField("addr", addr).Info("HTTP API запущен")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.svc.Store != nil {
		if err := s.svc.Store.Ping(r.Context()); err != nil {
			respondError(w, "хранилище недоступно", http.StatusServiceUnavailable)
			return
		}
	}
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	tz, days, ok := window(w, r, 0)
	if !ok {
		return
	}
	board, err := s.svc.Leaderboard.Leaderboard(r.Context(), tz, days)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, board)
}

func (s *Server) handleInfluencers(w http.ResponseWriter, r *http.Request) {
	tz, days, ok := window(w, r, 0)
	if !ok {
		return
	}
	rep, err := s.svc.Influence.Influential(r.Context(), tz, days)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, rep)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	tz, days, ok := window(w, r, 1)
	if !ok {
		return
	}
	series, err := s.svc.Report.DailySeries(r.Context(), tz, days)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, map[string]any{"days": days, "series": series})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	tz, days, ok := window(w, r, 1)
	if !ok {
		return
	}
	sum, err := s.svc.Report.ChannelSummary(r.Context(), tz, days)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, sum)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	sum, err := s.svc.Balance.Summary(r.Context(), user)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, sum)
}

func (s *Server) handleUserReport(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	tz, days, ok := window(w, r, 1)
	if !ok {
		return
	}
	rep, err := s.svc.Report.UserReport(r.Context(), user, tz, days)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, rep)
}

func (s *Server) handleGolden(w http.ResponseWriter, r *http.Request) {
	_, days, ok := window(w, r, 0)
	if !ok {
		return
	}
	holder, err := s.svc.Golden.Holder(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	history, err := s.svc.Golden.History(r.Context(), days)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, map[string]any{
		"holder":  holder.Receiver,
		"since":   holder.CreatedAt,
		"history": history,
	})
}

// window читает ?tz= и ?days=. days меньше minDays — 400.
func window(w http.ResponseWriter, r *http.Request, minDays int) (string, int, bool) {
	q := r.URL.Query()
	days := DefaultDays
	if raw := q.Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < minDays {
			respondError(w, "некорректный параметр days", http.StatusBadRequest)
			return "", 0, false
		}
		days = n
	}
	return q.Get("tz"), days, true
}

func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		respondError(w, "некорректный id пользователя", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		respondError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, common.ErrNotFound):
		respondError(w, err.Error(), http.StatusNotFound)
	default:
		log.WithError(err).Error("Ошибка обработки запроса API")
		respondError(w, "внутренняя ошибка", http.StatusInternalServerError)
	}
}

func respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("Ошибка записи ответа")
	}
}

func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": message,
	})
}
