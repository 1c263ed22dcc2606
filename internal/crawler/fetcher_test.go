package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/wsspider/internal/protocol"
)

func TestFetchError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *FetchError
		msg      string
		sentinel error
	}{
		{"http", &FetchError{Kind: KindHTTP, Status: 503}, "HTTP 503", ErrHTTPStatus},
		{"auth", &FetchError{Kind: KindAuthRequired}, "Login required", ErrAuthRequired},
		{"empty", &FetchError{Kind: KindEmptyOrMalformed, BodySize: 12}, "No items found (page size: 12)", ErrEmptyOrMalformed},
		{"too large", &FetchError{Kind: KindEmptyOrMalformed, BodySize: 64, Err: ErrBodyTooLarge}, "Page larger than 64 bytes", ErrBodyTooLarge},
		{"timeout", &FetchError{Kind: KindTimeout}, "Timeout", ErrTimeout},
		{"network", &FetchError{Kind: KindNetwork}, "Network error", ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.err.Error() != tt.msg {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.msg)
			}
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.sentinel)
			}
		})
	}
}

func newTestFetcher(srv *httptest.Server, sink Reporter) *Fetcher {
	return NewFetcher(srv.Client(), FOFAExtractor{},
		WithRetry(3, time.Second),
		WithFetchSleep(noSleep),
		WithReporter(sink),
	)
}

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "result page", status: http.StatusOK, body: resultHTML("q", []string{"a:1"}, nil)},
		{name: "server error", status: http.StatusInternalServerError, wantErr: ErrHTTPStatus},
		{name: "login page", status: http.StatusOK, body: "<html><body>Please login</body></html>", wantErr: ErrAuthRequired},
		{name: "empty page", status: http.StatusOK, body: "<html><body>maintenance</body></html>", wantErr: ErrEmptyOrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Accept-Language") == "" {
					t.Error("missing Accept-Language header")
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			page, err := newTestFetcher(srv, &fakeSink{}).Fetch(context.Background(), srv.URL)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Fetch() error = %v", err)
				}
				if page.Size != len(tt.body) {
					t.Errorf("Size = %d, want %d", page.Size, len(tt.body))
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Fetch() error = %v, want %v", err, tt.wantErr)
			}
			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("error is not a *FetchError: %T", err)
			}
			if tt.wantErr == ErrEmptyOrMalformed && fe.BodySize != len(tt.body) {
				t.Errorf("BodySize = %d, want %d", fe.BodySize, len(tt.body))
			}
		})
	}
}

func TestFetcher_BodySizeLimit(t *testing.T) {
	t.Parallel()

	body := resultHTML("q", []string{"a:1"}, nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	t.Run("body over the limit is rejected", func(t *testing.T) {
		t.Parallel()

		limit := int64(len(body) - 1)
		f := NewFetcher(srv.Client(), FOFAExtractor{}, WithMaxBodySize(limit))
		_, err := f.Fetch(context.Background(), srv.URL)
		if !errors.Is(err, ErrEmptyOrMalformed) || !errors.Is(err, ErrBodyTooLarge) {
			t.Fatalf("Fetch() error = %v, want ErrEmptyOrMalformed and ErrBodyTooLarge", err)
		}
		var fe *FetchError
		if errors.As(err, &fe) && int64(fe.BodySize) != limit {
			t.Errorf("BodySize = %d, want %d", fe.BodySize, limit)
		}
	})

	t.Run("body exactly at the limit is accepted", func(t *testing.T) {
		t.Parallel()

		f := NewFetcher(srv.Client(), FOFAExtractor{}, WithMaxBodySize(int64(len(body))))
		page, err := f.Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if page.Size != len(body) {
			t.Errorf("Size = %d, want %d", page.Size, len(body))
		}
	})
}

func TestFetcher_NetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	f := NewFetcher(http.DefaultClient, FOFAExtractor{})
	_, err := f.Fetch(context.Background(), addr)
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("Fetch() error = %v, want ErrNetwork", err)
	}
}

func TestFetcher_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := srv.Client()
	client.Timeout = 50 * time.Millisecond

	_, err := NewFetcher(client, FOFAExtractor{}).Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Fetch() error = %v, want ErrTimeout", err)
	}
}

func TestFetcher_FetchWithRetry(t *testing.T) {
	t.Parallel()

	t.Run("exactly three attempts then failure", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			attempts.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		sink := &fakeSink{}
		var slept []time.Duration
		f := NewFetcher(srv.Client(), FOFAExtractor{},
			WithRetry(3, 5*time.Second),
			WithFetchSleep(func(_ context.Context, d time.Duration) error {
				slept = append(slept, d)
				return nil
			}),
			WithReporter(sink),
		)

		_, err := f.FetchWithRetry(context.Background(), srv.URL)
		if !errors.Is(err, ErrHTTPStatus) {
			t.Fatalf("FetchWithRetry() error = %v", err)
		}
		if got := attempts.Load(); got != 3 {
			t.Errorf("attempts = %d, want 3", got)
		}
		if len(slept) != 2 || slept[0] != 5*time.Second || slept[1] != 5*time.Second {
			t.Errorf("slept = %v, want two fixed 5s delays", slept)
		}

		reports := sink.find(protocol.CmdError)
		wantMsgs := []string{"Retry 1/2: HTTP 502", "Retry 2/2: HTTP 502", "Failed: HTTP 502"}
		if len(reports) != len(wantMsgs) {
			t.Fatalf("reports = %+v", reports)
		}
		for i, msg := range wantMsgs {
			r, ok := reports[i].(protocol.ErrorReport)
			if !ok {
				t.Fatalf("report %d has type %T", i, reports[i])
			}
			if r.Msg != msg || r.URL != srv.URL {
				t.Errorf("report %d = %+v, want msg %q", i, r, msg)
			}
		}
	})

	t.Run("recovers on second attempt", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if attempts.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(resultHTML("q", []string{"a:1"}, nil)))
		}))
		defer srv.Close()

		sink := &fakeSink{}
		page, err := newTestFetcher(srv, sink).FetchWithRetry(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("FetchWithRetry() error = %v", err)
		}
		if page == nil {
			t.Fatal("nil page")
		}
		if got := sink.commands(); len(got) != 1 || got[0] != protocol.CmdError {
			t.Errorf("controls = %v, want one retry notice", got)
		}
	})

	t.Run("cancelled context is not retried", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		sink := &fakeSink{}
		_, err := newTestFetcher(srv, sink).FetchWithRetry(ctx, srv.URL)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
		if len(sink.commands()) != 0 {
			t.Errorf("controls = %v, want none", sink.commands())
		}
	})
}
