package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/evsync/core/journal"
)

// Option configures the admin handler.
type Option func(*options)

type options struct {
	journal journal.Store
}

// WithJournal exposes the outcome journal under GET /api/sync/journal.
func WithJournal(store journal.Store) Option {
	return func(o *options) { o.journal = store }
}

// journalHandler serves journal entries filtered by the start, end (RFC3339),
// path, kind and limit query parameters.
func journalHandler(store journal.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params := r.URL.Query()
		q := journal.Query{
			Path: params.Get("path"),
			Kind: params.Get("kind"),
		}
		if s := params.Get("start"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid start", http.StatusBadRequest)
				return
			}
			q.Start = t
		}
		if s := params.Get("end"); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid end", http.StatusBadRequest)
				return
			}
			q.End = t
		}
		if s := params.Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			q.Limit = n
		}
		entries, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []journal.Entry{}
		}
		writeJSON(w, http.StatusOK, entries)
	})
}
