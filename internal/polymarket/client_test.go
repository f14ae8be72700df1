package polymarket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler, cfg Config) (*Client, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg.GammaURL = srv.URL
	cfg.BookURL = srv.URL + "/book"
	c := NewClient(cfg)
	var waits []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return c, &waits
}

func TestListActiveMarketsPaginates(t *testing.T) {
	var queries []string
	mux := http.NewServeMux()
	mux.HandleFunc("/markets", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		queries = append(queries, q.Encode())
		if q.Get("active") != "true" || q.Get("closed") != "false" {
			t.Errorf("missing active/closed filters: %s", q.Encode())
		}
		offset, _ := strconv.Atoi(q.Get("offset"))
		switch offset {
		case 0:
			fmt.Fprint(w, `[
				{"conditionId":"0xa","question":"A?","tokens":[{"token_id":"ya","outcome":"Yes"},{"token_id":"na","outcome":"No"}]},
				{"id":"12","question":"B?","clobTokenIds":"[\"yb\",\"nb\"]"}
			]`)
		case 2:
			fmt.Fprint(w, `{"data":[{"condition_id":"0xc","title":"C","tokens":[{"token_id":"yc"}]}]}`)
		default:
			fmt.Fprint(w, `[]`)
		}
	})
	c, _ := newTestClient(t, mux, Config{PageSize: 2})

	markets, err := c.ListActiveMarkets(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(markets) != 3 {
		t.Fatalf("got %d markets, want 3", len(markets))
	}
	if len(queries) != 3 {
		t.Fatalf("made %d page requests, want 3", len(queries))
	}

	a, b, cm := markets[0], markets[1], markets[2]
	if a.ID != "0xa" || a.Title != "A?" || a.YesToken() != "ya" || a.NoToken() != "na" {
		t.Fatalf("tokens[] market = %+v", a)
	}
	if b.ID != "12" || len(b.TokenIDs) != 2 || b.TokenIDs[1] != "nb" {
		t.Fatalf("clobTokenIds market = %+v", b)
	}
	if cm.ID != "0xc" || cm.Title != "C" || len(cm.TokenIDs) != 1 {
		t.Fatalf("wrapped market = %+v", cm)
	}
	if err := cm.Validate(); err == nil {
		t.Fatal("single-token market should fail validation")
	}
}

func TestListActiveMarketsCap(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/markets", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, `[{"id":"1","tokens":[{"token_id":"y"},{"token_id":"n"}]},{"id":"2","tokens":[{"token_id":"y"},{"token_id":"n"}]}]`)
	})
	c, _ := newTestClient(t, mux, Config{PageSize: 2, MaxMarkets: 3})

	markets, err := c.ListActiveMarkets(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(markets) != 3 {
		t.Fatalf("got %d markets, want cap of 3", len(markets))
	}
	if calls != 2 {
		t.Fatalf("made %d requests, want 2", calls)
	}
}

func TestFetchAsksSortsAndFilters(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/book", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token_id") != "tok" {
			t.Errorf("token_id = %q", r.URL.Query().Get("token_id"))
		}
		fmt.Fprint(w, `{"bids":[{"price":"0.3","size":"10"}],"asks":[
			{"price":"0.55","size":"20"},
			{"price":"0","size":"5"},
			{"price":"0.41","size":"-1"},
			{"price":"abc","size":"1"},
			{"price":"0.40","size":"100"},
			{"price":"0.42","size":"3"}
		]}`)
	})
	c, _ := newTestClient(t, mux, Config{})

	asks, err := c.FetchAsks(context.Background(), "tok")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"0.4", "0.42", "0.55"}
	if len(asks) != len(want) {
		t.Fatalf("got %d levels, want %d: %+v", len(asks), len(want), asks)
	}
	for i, p := range want {
		if asks[i].Price.String() != p {
			t.Fatalf("level %d price = %s, want %s", i, asks[i].Price, p)
		}
	}
}

func TestRetryOnServerErrors(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/book", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		switch n {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			fmt.Fprint(w, `{"asks":[{"price":"0.5","size":"1"}]}`)
		}
	})
	c, waits := newTestClient(t, mux, Config{MaxRetries: 3, RetryBackoff: 2})

	asks, err := c.FetchAsks(context.Background(), "tok")
	if err != nil {
		t.Fatal(err)
	}
	if len(asks) != 1 || calls != 3 {
		t.Fatalf("asks=%d calls=%d", len(asks), calls)
	}
	if len(*waits) != 2 || (*waits)[0] != time.Second || (*waits)[1] != 2*time.Second {
		t.Fatalf("backoff waits = %v, want [1s 2s]", *waits)
	}
}

func TestRetryGivesUp(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/book", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c, _ := newTestClient(t, mux, Config{MaxRetries: 3})
	if _, err := c.FetchAsks(context.Background(), "tok"); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/book", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "no such token", http.StatusNotFound)
	})
	c, waits := newTestClient(t, mux, Config{})
	if _, err := c.FetchAsks(context.Background(), "tok"); err == nil {
		t.Fatal("expected 404 error")
	}
	if calls != 1 || len(*waits) != 0 {
		t.Fatalf("calls=%d waits=%v, want a single attempt", calls, *waits)
	}
}

type failingDoer struct{ calls int }

func (f *failingDoer) Do(*http.Request) (*http.Response, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func TestRetryOnTransportErrorAndCancel(t *testing.T) {
	doer := &failingDoer{}
	c := NewClient(Config{HTTPClient: doer, MaxRetries: 3})
	c.sleep = func(context.Context, time.Duration) error { return nil }
	if _, err := c.ListActiveMarkets(context.Background()); err == nil {
		t.Fatal("expected transport error")
	}
	if doer.calls != 3 {
		t.Fatalf("calls = %d, want 3", doer.calls)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.sleep = sleepCtx
	if err := c.sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("sleep on cancelled ctx = %v", err)
	}
}
