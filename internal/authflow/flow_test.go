package authflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type fakeClient struct {
	authenticated bool
	qrErrs        []error // consumed per QR attempt; empty slice means success
	qrCalls       int
	linkErr       error
	linkCalls     int
}

func (f *fakeClient) Authenticated(_ context.Context) bool { return f.authenticated }

func (f *fakeClient) AuthenticateQR(_ context.Context) error {
	f.qrCalls++
	if len(f.qrErrs) == 0 {
		return nil
	}
	err := f.qrErrs[0]
	f.qrErrs = f.qrErrs[1:]
	return err
}

func (f *fakeClient) AuthenticateLink(_ context.Context) error {
	f.linkCalls++
	return f.linkErr
}

type fakePrompter struct {
	choices []Choice
	err     error
	calls   int
}

func (f *fakePrompter) AuthChoice() (Choice, error) {
	f.calls++
	if f.err != nil {
		return ChoiceQuit, f.err
	}
	if len(f.choices) == 0 {
		return ChoiceQuit, nil
	}
	c := f.choices[0]
	f.choices = f.choices[1:]
	return c, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_AlreadyAuthenticatedShortCircuits(t *testing.T) {
	client := &fakeClient{authenticated: true}
	prompter := &fakePrompter{}
	f := NewFlow(client, prompter, testLogger())

	state, err := f.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if state != StateAuthenticated {
		t.Errorf("Run() = %v, want StateAuthenticated", state)
	}
	if client.qrCalls != 0 || client.linkCalls != 0 || prompter.calls != 0 {
		t.Error("authentication flows or prompts were invoked despite existing login")
	}
}

func TestRun_QRSucceedsFirstTry(t *testing.T) {
	client := &fakeClient{}
	f := NewFlow(client, &fakePrompter{}, testLogger())

	state, err := f.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if state != StateAuthenticated {
		t.Errorf("Run() = %v, want StateAuthenticated", state)
	}
	if client.qrCalls != 1 {
		t.Errorf("qr calls = %d, want 1", client.qrCalls)
	}
}

func TestRun_QRRetryLoop(t *testing.T) {
	client := &fakeClient{qrErrs: []error{errors.New("timeout"), errors.New("timeout")}}
	prompter := &fakePrompter{choices: []Choice{ChoiceRetryQR, ChoiceRetryQR}}
	f := NewFlow(client, prompter, testLogger())

	state, err := f.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if state != StateAuthenticated {
		t.Errorf("Run() = %v, want StateAuthenticated", state)
	}
	if client.qrCalls != 3 {
		t.Errorf("qr calls = %d, want 3 (two failures, one success)", client.qrCalls)
	}
}

func TestRun_QRFailureThenLinkSuccess(t *testing.T) {
	client := &fakeClient{qrErrs: []error{errors.New("scan failed")}}
	prompter := &fakePrompter{choices: []Choice{ChoiceLink}}
	f := NewFlow(client, prompter, testLogger())

	state, err := f.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if state != StateAuthenticated {
		t.Errorf("Run() = %v, want StateAuthenticated", state)
	}
	if client.linkCalls != 1 {
		t.Errorf("link calls = %d, want 1", client.linkCalls)
	}
}

func TestRun_LinkFailureIsFatal(t *testing.T) {
	client := &fakeClient{
		qrErrs:  []error{errors.New("scan failed")},
		linkErr: errors.New("login rejected"),
	}
	prompter := &fakePrompter{choices: []Choice{ChoiceLink}}
	f := NewFlow(client, prompter, testLogger())

	state, err := f.Run(context.Background())
	if err == nil {
		t.Fatal("Run() = nil error, want fatal error after link failure")
	}
	if state == StateAuthenticated || state == StateAborted {
		t.Errorf("Run() state = %v, want non-terminal state with error", state)
	}
}

func TestRun_QuitAbortsWithoutError(t *testing.T) {
	client := &fakeClient{qrErrs: []error{errors.New("scan failed")}}
	prompter := &fakePrompter{choices: []Choice{ChoiceQuit}}
	f := NewFlow(client, prompter, testLogger())

	state, err := f.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, want nil on explicit quit", err)
	}
	if state != StateAborted {
		t.Errorf("Run() = %v, want StateAborted", state)
	}
	if client.linkCalls != 0 {
		t.Error("link flow invoked after quit")
	}
}

func TestRun_PromptErrorIsFatal(t *testing.T) {
	client := &fakeClient{qrErrs: []error{errors.New("scan failed")}}
	prompter := &fakePrompter{err: errors.New("stdin closed")}
	f := NewFlow(client, prompter, testLogger())

	if _, err := f.Run(context.Background()); err == nil {
		t.Fatal("Run() = nil error, want error when the prompt fails")
	}
}

func TestRun_CancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &fakeClient{}
	f := NewFlow(client, &fakePrompter{}, testLogger())

	_, err := f.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if client.qrCalls != 0 {
		t.Error("qr flow invoked after cancellation")
	}
}

func TestState_String(t *testing.T) {
	states := map[State]string{
		StateNotAuthenticated: "not-authenticated",
		StateAwaitingQR:       "awaiting-qr",
		StateAwaitingLink:     "awaiting-link",
		StateAuthenticated:    "authenticated",
		StateAborted:          "aborted",
	}
	for s, want := range states {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}
