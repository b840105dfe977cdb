package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/guybartal/momentloop-sub000/internal/domain"
	"github.com/guybartal/momentloop-sub000/internal/infra"
	"github.com/guybartal/momentloop-sub000/internal/ws"
)

type App struct {
	Jobs   domain.JobRepository
	Hub    *ws.Hub
	Logger infra.Logger
}

func NewApp(jobs domain.JobRepository, hub *ws.Hub, logger infra.Logger) *App {
	return &App{Jobs: jobs, Hub: hub, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"error":   errCode,
		"message": message,
	})
}
