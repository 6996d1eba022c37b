package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	var model, host string
	var port, ctxSize, batch, threads, parallel int
	// Accept the llama-server flags the launcher passes
	flag.StringVar(&model, "m", "", "model path")
	flag.IntVar(&ctxSize, "c", 0, "context size")
	flag.IntVar(&batch, "b", 0, "batch size")
	flag.IntVar(&threads, "t", 0, "threads")
	flag.IntVar(&parallel, "parallel", 1, "parallel slots")
	flag.StringVar(&host, "host", "127.0.0.1", "host")
	flag.IntVar(&port, "port", 0, "port")
	flag.Parse()

	// FAKE_EXIT_CODE makes the server die right away, like a corrupt model.
	if code := os.Getenv("FAKE_EXIT_CODE"); code != "" {
		var n int
		_, _ = fmt.Sscanf(code, "%d", &n)
		os.Exit(n)
	}
	// FAKE_LISTEN_DELAY postpones binding the port, like a slow model load.
	if d, err := time.ParseDuration(os.Getenv("FAKE_LISTEN_DELAY")); err == nil {
		time.Sleep(d)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "chat.completion",
			"model":  model,
			"choices": []map[string]any{{
				"index":   0,
				"message": map[string]any{"role": "assistant", "content": "hello"},
			}},
		})
	})

	srv := &http.Server{Addr: fmt.Sprintf("%s:%d", host, port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Wait for SIGTERM then shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	<-sigCh
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
