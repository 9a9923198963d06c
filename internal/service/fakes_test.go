package service

import (
	"context"

	"soloplay-server/internal/domain"
	"soloplay-server/internal/narrator"
)

// fakeNarrator replays scripted responses and records every invocation.
type fakeNarrator struct {
	responses []*narrator.Response
	errs      []error
	calls     []string
	requests  []narrator.Request
}

func (f *fakeNarrator) next(mode string, req narrator.Request) (*narrator.Response, error) {
	i := len(f.calls)
	f.calls = append(f.calls, mode)
	f.requests = append(f.requests, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) && f.responses[i] != nil {
		return f.responses[i], nil
	}
	return &narrator.Response{Narration: "The story continues."}, nil
}

func (f *fakeNarrator) SceneStart(_ context.Context, req narrator.Request) (*narrator.Response, error) {
	return f.next("scene_start", req)
}

func (f *fakeNarrator) Recap(_ context.Context, req narrator.Request) (*narrator.Response, error) {
	return f.next("recap", req)
}

func (f *fakeNarrator) Turn(_ context.Context, req narrator.Request) (*narrator.Response, error) {
	return f.next("turn", req)
}

func (f *fakeNarrator) ResolveRoll(_ context.Context, req narrator.Request) (*narrator.Response, error) {
	return f.next("resolve_roll", req)
}

// fakeCreator replays scripted character-creation responses.
type fakeCreator struct {
	responses []*narrator.CreationResponse
	errs      []error
	calls     []string
	inputs    []string
}

func (f *fakeCreator) next(mode, input string) (*narrator.CreationResponse, error) {
	i := len(f.calls)
	f.calls = append(f.calls, mode)
	f.inputs = append(f.inputs, input)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) && f.responses[i] != nil {
		return f.responses[i], nil
	}
	return &narrator.CreationResponse{MessageMarkdown: "Tell me more."}, nil
}

func (f *fakeCreator) Start(_ context.Context, _, _ string) (*narrator.CreationResponse, error) {
	return f.next("start", "")
}

func (f *fakeCreator) Refine(_ context.Context, _, _ string, _ *domain.PlayerActorDraft, input string) (*narrator.CreationResponse, error) {
	return f.next("refine", input)
}

// captureEmitter records progress notices.
type captureEmitter struct {
	notices []string
}

func (c *captureEmitter) Status(text string) {
	c.notices = append(c.notices, text)
}
