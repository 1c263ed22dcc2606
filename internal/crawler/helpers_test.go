package crawler

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/wsspider/internal/model"
	"github.com/nao1215/wsspider/internal/protocol"
)

// resultHTML renders a minimal FOFA result page with one item per addr
// and one refine-link section.
func resultHTML(query string, addrs []string, links []model.Link) string {
	var b strings.Builder
	b.WriteString(`<html><body>`)
	fmt.Fprintf(&b, `<textarea class="custom-textarea">%s</textarea>`, html.EscapeString(query))
	b.WriteString(`<div class="hsxa-meta-data-list-nav-left">`)
	b.WriteString(`<span class="hsxa-highlight-color">1,234</span>`)
	b.WriteString(`<span class="hsxa-highlight-color">567</span>`)
	b.WriteString(`<span class="hsxa-highlight-color">89 ms</span>`)
	b.WriteString(`<span class="hsxa-highlight-color">Normal</span>`)
	b.WriteString(`<span class="fraud-text"><span class="highlight-text">3</span></span>`)
	b.WriteString(`</div>`)

	if len(links) > 0 {
		b.WriteString(`<div class="hsxa-list-main"><div class="hsxa-list-title">Port</div>`)
		for _, l := range links {
			fmt.Fprintf(&b, `<div class="hsxa-list-main-content"><a class="hsxa-meta-data-stat-list-hover" href="%s">%s</a><span>%s</span></div>`,
				html.EscapeString(l.Href), html.EscapeString(l.Name), html.EscapeString(l.Count))
		}
		b.WriteString(`</div>`)
	}

	for _, addr := range addrs {
		fmt.Fprintf(&b, `<div class="hsxa-meta-data-item"><span data-clipboard-text="%s">copy</span></div>`, html.EscapeString(addr))
	}

	b.WriteString(`<ul class="el-pager"><li>1</li></ul></body></html>`)
	return b.String()
}

// refine returns the link a result page carries for the sub-query name.
func refine(name string) model.Link {
	return model.Link{Href: JobURL("", name), Name: name, Category: "Port", Count: "1"}
}

// fofaServer serves result pages keyed by the decoded qbase64 value.
// Every page has one record whose addr is "<query>#<page>".
type fofaServer struct {
	*httptest.Server

	mu      sync.Mutex
	links   map[string]map[int][]model.Link
	failing map[string]int
	fetched []string
}

func newFOFAServer(t *testing.T) *fofaServer {
	t.Helper()

	fs := &fofaServer{
		links:   make(map[string]map[int][]model.Link),
		failing: make(map[string]int),
	}
	fs.Server = httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fofaServer) handle(w http.ResponseWriter, r *http.Request) {
	raw, err := base64.StdEncoding.DecodeString(r.URL.Query().Get("qbase64"))
	if err != nil {
		http.Error(w, "bad qbase64", http.StatusBadRequest)
		return
	}
	query := string(raw)
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		page, _ = strconv.Atoi(p)
	}

	fs.mu.Lock()
	fs.fetched = append(fs.fetched, fmt.Sprintf("%s#%d", query, page))
	status := fs.failing[query]
	links := fs.links[query][page]
	fs.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	_, _ = w.Write([]byte(resultHTML(query, []string{fmt.Sprintf("%s#%d", query, page)}, links)))
}

func (fs *fofaServer) setLinks(query string, page int, links ...model.Link) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.links[query] == nil {
		fs.links[query] = make(map[int][]model.Link)
	}
	fs.links[query][page] = links
}

func (fs *fofaServer) fail(query string, status int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.failing[query] = status
}

func (fs *fofaServer) requests() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return slices.Clone(fs.fetched)
}

// fakeSink records everything sent to it.
type fakeSink struct {
	mu           sync.Mutex
	disconnected bool
	records      []model.Record
	controls     []protocol.Control
}

func (s *fakeSink) SendRecord(r model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
}

func (s *fakeSink) SendControl(msg protocol.Control) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controls = append(s.controls, msg)
}

func (s *fakeSink) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.disconnected
}

func (s *fakeSink) addrs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.records))
	for i, r := range s.records {
		out[i] = r.Addr()
	}
	return out
}

func (s *fakeSink) commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.controls))
	for i, c := range s.controls {
		out[i] = c.Command()
	}
	return out
}

func (s *fakeSink) find(cmd string) []protocol.Control {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []protocol.Control
	for _, c := range s.controls {
		if c.Command() == cmd {
			out = append(out, c)
		}
	}
	return out
}

// memStore is an in-memory Store.
type memStore struct {
	mu      sync.Mutex
	visited map[string]int64
	jobs    []string
	prefs   map[string]bool
	saves   int
}

func newMemStore() *memStore {
	return &memStore{visited: make(map[string]int64), prefs: make(map[string]bool)}
}

func (m *memStore) LoadVisited(context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.visited))
	for k, v := range m.visited {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) MarkVisited(_ context.Context, href string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.visited[href]; !ok {
		m.visited[href] = at.UnixMilli()
	}
	return nil
}

func (m *memStore) LoadJobs(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.jobs), nil
}

func (m *memStore) SaveJobs(_ context.Context, jobs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = slices.Clone(jobs)
	m.saves++
	return nil
}

func (m *memStore) LoadPreference(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs[key], nil
}

func (m *memStore) SavePreference(_ context.Context, key string, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[key] = value
	return nil
}

func (m *memStore) storedJobs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.jobs)
}

func (m *memStore) isVisited(href string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.visited[href]
	return ok
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// harness wires a Spider to a fofaServer with instant delays.
type harness struct {
	server *fofaServer
	sink   *fakeSink
	store  *memStore
	state  *State
	spider *Spider
}

func newHarness(t *testing.T, pages int, sleep SleepFunc, opts ...Option) *harness {
	t.Helper()

	if sleep == nil {
		sleep = noSleep
	}

	h := &harness{
		server: newFOFAServer(t),
		sink:   &fakeSink{},
		store:  newMemStore(),
	}

	state, err := LoadState(context.Background(), h.store)
	if err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	h.state = state

	fetcher := NewFetcher(h.server.Client(), FOFAExtractor{},
		WithRetry(3, 0),
		WithFetchSleep(noSleep),
		WithReporter(h.sink),
	)

	base := []Option{
		WithBaseURL(h.server.URL),
		WithPages(pages),
		WithDelay(time.Millisecond),
		WithSleep(sleep),
	}
	h.spider = NewSpider(fetcher, FOFAExtractor{}, state, h.sink, append(base, opts...)...)
	return h
}
