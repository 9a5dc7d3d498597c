package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/store"
)

// discardWriter is the cheapest ResponseWriter that still records the status.
type discardWriter struct {
	header http.Header
	status int
}

func (d *discardWriter) Header() http.Header {
	if d.header == nil {
		d.header = http.Header{}
	}
	return d.header
}

func (d *discardWriter) Write(p []byte) (int, error) {
	if d.status == 0 {
		d.status = http.StatusOK
	}
	return len(p), nil
}

func (d *discardWriter) WriteHeader(code int) {
	if d.status == 0 {
		d.status = code
	}
}

// seed writes n sessions with uuid tokens and returns the tokens.
func seed(ctx context.Context, st store.Store, n int) ([]string, error) {
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = uuid.NewString()
		if err := st.Set(ctx, tokens[i], store.Payload{"count": 0, "user": fmt.Sprintf("u%d", i)}); err != nil {
			return nil, fmt.Errorf("seed session %d: %w", i, err)
		}
	}
	return tokens, nil
}

// counterHandler increments "count" in the attached session, or generates a session
// when the request has none.
func counterHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := goSession.FromRequest(r)
		if !ok {
			var err error
			if s, err = goSession.Generate(r, ""); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		v, _ := s.Get("count")
		s.Set("count", toFloat(v)+1)
		w.WriteHeader(http.StatusNoContent)
	})
}

// runPhase sends ops requests through h from concurrency workers. target picks the
// URL for one request.
func runPhase(h http.Handler, ops, concurrency int, target func(r *rand.Rand) string) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			local := make([]time.Duration, 0, ops/concurrency+1)
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					break
				}
				req, err := http.NewRequest(http.MethodGet, target(r), nil)
				if err != nil {
					atomic.AddInt64(&failures, 1)
					continue
				}
				rw := &discardWriter{}
				t0 := time.Now()
				h.ServeHTTP(rw, req)
				local = append(local, time.Since(t0))
				if rw.status >= http.StatusBadRequest {
					atomic.AddInt64(&failures, 1)
				}
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

// toFloat normalizes counters decoded by either codec. JSON yields float64, CBOR
// yields unsigned integers for whole numbers.
func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case uint64:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}
