// Package admin exposes the synchronization engine to operators over HTTP.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/kilianp07/evsync/core/ack"
	"github.com/kilianp07/evsync/core/syncengine"
	"github.com/kilianp07/evsync/infra/logger"
)

// Engine is the part of the synchronization engine exposed by the API.
type Engine interface {
	Stats() syncengine.Stats
	ServiceCheck(ctx context.Context) syncengine.ServiceReport
	FlushStatus(ctx context.Context) ack.Acknowledgement
	RefreshStatus(ctx context.Context) ack.Acknowledgement
	Authorize(ctx context.Context, token string) (ack.AuthResult, error)
}

// Acknowledgement is the JSON form of ack.Acknowledgement.
type Acknowledgement struct {
	Kind         string   `json:"kind"`
	Description  string   `json:"description,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
	RuntimeMS    int64    `json:"runtime_ms"`
	NotForwarded []string `json:"not_forwarded,omitempty"`
}

func newAcknowledgement(a ack.Acknowledgement) Acknowledgement {
	out := Acknowledgement{
		Kind:        a.Kind.String(),
		Description: a.Description,
		Warnings:    a.Warnings,
		RuntimeMS:   a.Runtime.Milliseconds(),
	}
	for _, nf := range a.NotForwarded {
		out.NotForwarded = append(out.NotForwarded, nf.Record.SessionID)
	}
	return out
}

// PathStats summarises the runs of one dispatch path.
type PathStats struct {
	Runs     uint64  `json:"runs"`
	Samples  int     `json:"samples"`
	MeanMS   float64 `json:"mean_ms"`
	StdDevMS float64 `json:"stddev_ms"`
	P95MS    float64 `json:"p95_ms"`
	MaxMS    float64 `json:"max_ms"`
}

// Stats is the JSON form of syncengine.Stats.
type Stats struct {
	FullSetDone bool                 `json:"full_set_done"`
	DataRuns    uint64               `json:"data_runs"`
	Paths       map[string]PathStats `json:"paths"`
	Queues      map[string]int       `json:"queues"`
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

func newStats(s syncengine.Stats) Stats {
	out := Stats{
		FullSetDone: s.FullSetDone,
		DataRuns:    s.DataRuns,
		Paths:       make(map[string]PathStats),
		Queues: map[string]int{
			"add":            s.Queues.Add,
			"update":         s.Queues.Update,
			"remove":         s.Queues.Remove,
			"status_fast":    s.Queues.StatusFast,
			"status_delayed": s.Queues.StatusDelayed,
			"cdr":            s.Queues.CDRs,
		},
	}
	for p, n := range s.Runs {
		ps := out.Paths[string(p)]
		ps.Runs = n
		out.Paths[string(p)] = ps
	}
	for p, sum := range s.Runtimes {
		ps := out.Paths[string(p)]
		ps.Samples = sum.Count
		ps.MeanMS = ms(sum.Mean)
		ps.StdDevMS = ms(sum.StdDev)
		ps.P95MS = ms(sum.P95)
		ps.MaxMS = ms(sum.Max)
		out.Paths[string(p)] = ps
	}
	return out
}

type authorizeRequest struct {
	Token string `json:"token"`
}

type authorizeResponse struct {
	Token       string `json:"token"`
	Kind        string `json:"kind"`
	ProviderID  string `json:"provider_id,omitempty"`
	Description string `json:"description,omitempty"`
	RuntimeMS   int64  `json:"runtime_ms"`
}

// NewHandler returns the admin API:
//
//	GET  /api/sync/stats
//	POST /api/sync/service-check
//	POST /api/sync/status/flush
//	POST /api/sync/status/refresh
//	POST /api/sync/authorize
//	GET  /api/sync/journal (with WithJournal)
//
// Requests must include an Authorization header with "Bearer <token>" when
// token is non-empty.
func NewHandler(engine Engine, token string, opts ...Option) http.Handler {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	mux := http.NewServeMux()
	if o.journal != nil {
		mux.Handle("GET /api/sync/journal", journalHandler(o.journal))
	}
	mux.HandleFunc("GET /api/sync/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, newStats(engine.Stats()))
	})
	mux.HandleFunc("POST /api/sync/service-check", func(w http.ResponseWriter, r *http.Request) {
		rep := engine.ServiceCheck(r.Context())
		writeJSON(w, http.StatusOK, map[string]Acknowledgement{
			"data": newAcknowledgement(rep.Data),
			"cdrs": newAcknowledgement(rep.CDRs),
		})
	})
	mux.HandleFunc("POST /api/sync/status/flush", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, newAcknowledgement(engine.FlushStatus(r.Context())))
	})
	mux.HandleFunc("POST /api/sync/status/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, newAcknowledgement(engine.RefreshStatus(r.Context())))
	})
	mux.HandleFunc("POST /api/sync/authorize", func(w http.ResponseWriter, r *http.Request) {
		var req authorizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		res, err := engine.Authorize(r.Context(), req.Token)
		if errors.Is(err, syncengine.ErrInvalidArgument) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, authorizeResponse{
			Token:       res.Token,
			Kind:        res.Kind.String(),
			ProviderID:  res.ProviderID,
			Description: res.Description,
			RuntimeMS:   res.Runtime.Milliseconds(),
		})
	})
	return requireBearer(token, mux)
}

func requireBearer(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.New("admin-api").Errorf("encode response: %v", err)
	}
}
