// Copyright (c) 2021 Zededa, Inc.
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lf-edge/eve/pkg/ras/pubsub"
	"github.com/lf-edge/eve/pkg/ras/types"
)

// makeStatusHandler serves the published MemoryErrorStatus
func makeStatusHandler(pub *pubsub.Publication) http.Handler {
	r := chi.NewRouter()
	r.Route("/ras/v1", func(r chi.Router) {
		r.Get("/memory.json", handleMemoryStatusList(pub))
		r.Get("/memory/{controller}", handleMemoryStatus(pub))
	})
	return r
}

func sendJSON(w http.ResponseWriter, v interface{}) {
	resp, err := json.Marshal(v)
	if err != nil {
		log.Errorf("Failed to marshal %T: %v", v, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError),
			http.StatusInternalServerError)
		return
	}
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(resp)
}

func handleMemoryStatusList(pub *pubsub.Publication) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Functionf("memoryStatusListHandler.ServeHTTP")
		items := pub.GetAll()
		list := make([]types.MemoryErrorStatus, 0, len(items))
		for _, item := range items {
			list = append(list, item.(types.MemoryErrorStatus))
		}
		sort.Slice(list, func(i, j int) bool {
			return list[i].Instance < list[j].Instance
		})
		sendJSON(w, list)
	}
}

func handleMemoryStatus(pub *pubsub.Publication) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "controller")
		log.Functionf("memoryStatusHandler.ServeHTTP %s", key)
		item, err := pub.Get(key)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
			return
		}
		sendJSON(w, item.(types.MemoryErrorStatus))
	}
}

// serveStatus runs the status server on addr until ctx is done
func serveStatus(ctx context.Context, addr string, pub *pubsub.Publication) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           makeStatusHandler(pub),
		ReadHeaderTimeout: 10 * time.Second,
	}
	done := make(chan error, 1)
	go func() {
		done <- server.ListenAndServe()
	}()
	log.Noticef("serveStatus: listening on %s", addr)
	select {
	case err := <-done:
		return fmt.Errorf("serveStatus(%s): %w", addr, err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil &&
		!errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serveStatus(%s): %w", addr, err)
	}
	return nil
}
