// Package dummy is a built-in HTTP server with known latency profiles, useful
// as a target when trying out the engine.
package dummy

import (
	"fmt"
	"math/rand"
	"net/http"
	"time"
)

type ServerConfig struct {
	Port int
}

func jitter(baseMs, spreadMs int) {
	time.Sleep(time.Duration(rand.Intn(spreadMs)+baseMs) * time.Millisecond)
}

func Start(cfg ServerConfig) {
	mux := http.NewServeMux()

	// Fast endpoint (10-50ms)
	mux.HandleFunc("/fast", func(w http.ResponseWriter, r *http.Request) {
		jitter(10, 40)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Fast response"))
	})

	// Medium endpoint (100-300ms)
	mux.HandleFunc("/medium", func(w http.ResponseWriter, r *http.Request) {
		jitter(100, 200)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Medium response"))
	})

	// Slow endpoint (1s-2s), good for testing timeouts and queuing
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		jitter(1000, 1000)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Slow response"))
	})

	// Spike endpoint: usually fast, randomly very slow. P99 will be terrible,
	// P50 will be fine.
	mux.HandleFunc("/spike", func(w http.ResponseWriter, r *http.Request) {
		if rand.Float32() < 0.05 {
			time.Sleep(2 * time.Second)
		} else {
			time.Sleep(20 * time.Millisecond)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Spikey response"))
	})

	// Error endpoint (random failures)
	mux.HandleFunc("/error", func(w http.ResponseWriter, r *http.Request) {
		rnd := rand.Float32()
		switch {
		case rnd < 0.2:
			http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		case rnd < 0.4:
			http.Error(w, "429 Too Many Requests", http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		}
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	fmt.Printf("👻 Dummy server running on http://localhost%s\n", addr)
	fmt.Println("   Endpoints: /fast, /medium, /slow, /spike, /error")

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Server failed: %v\n", err)
		}
	}()
}
