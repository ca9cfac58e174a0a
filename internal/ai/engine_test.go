package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

const validPayload = `{"summary":"A routine services agreement.","riskScore":20,"verdict":"favorable","keywords":{"positive":["clear scope"],"negative":[]},"strategicAdvice":"Proceed."}`

type fakeProvider struct {
	name    string
	payload string
	err     error
	calls   int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Invoke(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.payload, nil
}

type hangingProvider struct{ calls int }

func (h *hangingProvider) Name() string { return "hanging" }

func (h *hangingProvider) Invoke(ctx context.Context, prompt string) (string, error) {
	h.calls++
	<-ctx.Done()
	return "", ctx.Err()
}

func TestAnalyzeFirstProviderWins(t *testing.T) {
	first := &fakeProvider{name: "p1", payload: validPayload}
	second := &fakeProvider{name: "p2", payload: validPayload}
	engine := &Engine{Providers: []Provider{first, second}}

	res, err := engine.Analyze(context.Background(), "some text", "a.txt")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.RiskScore != 20 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if first.calls != 1 || second.calls != 0 {
		t.Fatalf("expected only the first provider to run, calls=%d/%d", first.calls, second.calls)
	}
}

func TestAnalyzeFallsBackInOrder(t *testing.T) {
	first := &fakeProvider{name: "p1", err: errors.New("boom")}
	second := &fakeProvider{name: "p2", err: errors.New("boom too")}
	third := &fakeProvider{name: "p3", payload: validPayload}
	engine := &Engine{Providers: []Provider{first, second, third}}

	res, err := engine.Analyze(context.Background(), "some text", "a.txt")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Verdict != VerdictFavorable {
		t.Fatalf("unexpected result: %+v", res)
	}
	if first.calls != 1 || second.calls != 1 || third.calls != 1 {
		t.Fatalf("expected each provider tried once, calls=%d/%d/%d", first.calls, second.calls, third.calls)
	}
}

func TestAnalyzeExhaustion(t *testing.T) {
	lastErr := errors.New("gemini http status 503")
	engine := &Engine{Providers: []Provider{
		&fakeProvider{name: "p1", err: errors.New("boom")},
		&fakeProvider{name: "p2", err: lastErr},
	}}

	_, err := engine.Analyze(context.Background(), "some text", "a.txt")
	if !errors.Is(err, ErrAllProvidersExhausted) {
		t.Fatalf("expected ErrAllProvidersExhausted, got %v", err)
	}
	if !errors.Is(err, lastErr) {
		t.Fatalf("expected last provider error wrapped, got %v", err)
	}
}

func TestAnalyzeNoProviders(t *testing.T) {
	engine := &Engine{}
	_, err := engine.Analyze(context.Background(), "text", "a.txt")
	if !errors.Is(err, ErrAllProvidersExhausted) {
		t.Fatalf("expected ErrAllProvidersExhausted, got %v", err)
	}
}

func TestAnalyzeDegradedOutputStillSucceeds(t *testing.T) {
	engine := &Engine{Providers: []Provider{
		&fakeProvider{name: "p1", payload: "sorry, I cannot produce JSON"},
	}}
	res, err := engine.Analyze(context.Background(), "text", "a.txt")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.RiskScore != 50 || res.Verdict != VerdictNeutral {
		t.Fatalf("expected degraded defaults, got %+v", res)
	}
}

func TestAnalyzeTimeoutAdvancesChain(t *testing.T) {
	hanging := &hangingProvider{}
	fallback := &fakeProvider{name: "p2", payload: validPayload}
	engine := &Engine{
		Providers: []Provider{hanging, fallback},
		Timeout:   20 * time.Millisecond,
	}

	res, err := engine.Analyze(context.Background(), "text", "a.txt")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.RiskScore != 20 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if hanging.calls != 1 || fallback.calls != 1 {
		t.Fatalf("expected timeout then fallback, calls=%d/%d", hanging.calls, fallback.calls)
	}
}

func TestTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.DeadlineExceeded, true},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), true},
		{errors.New("gemini http status 503"), true},
		{errors.New("openai request timeout"), true},
		{errors.New("connection reset by peer"), true},
		{errors.New("unexpected EOF"), true},
		{errors.New("gemini error: invalid api key"), false},
		{errors.New("openai response missing choices"), false},
	}
	for _, tc := range cases {
		if got := Transient(tc.err); got != tc.want {
			t.Fatalf("Transient(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
