// Package enrich derives descriptive metadata for a project from a bounded
// sample of its files and a single model call.
//
// Enrichment is strictly best effort: every failure mode, from an absent
// credential to an unparseable response, is reported as *Error and the
// caller proceeds without enrichment. The pipeline never blocks or breaks
// registration.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pl018/project-manager-cli/internal/tags"
)

// maxTags caps how many tags a model response may contribute.
const maxTags = 3

// minConfidentTags is the threshold below which a result is marked low
// confidence and merged with existing tags instead of replacing them.
const minConfidentTags = 2

// Error reports a failed enrichment attempt. Callers treat it as "no
// enrichment", never as a registration failure.
type Error struct {
	Stage string // sample, request, parse
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("enrichment failed during %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is the model's view of a project.
type Result struct {
	Name        string
	Description string
	Tags        []string

	// LowConfidence is set when the model produced fewer than two usable
	// tags. Low-confidence tags are merged with the caller's existing tags
	// rather than replacing them.
	LowConfidence bool
}

// Completer performs one model call and returns the raw text reply.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Enricher samples a project and asks the model to describe it.
type Enricher struct {
	sampler  *Sampler
	complete Completer
}

// New builds an enricher from a sampler and a model client.
func New(sampler *Sampler, complete Completer) *Enricher {
	return &Enricher{sampler: sampler, complete: complete}
}

const systemPrompt = `You are an assistant that summarizes software projects.
Given file samples from a project directory, respond with a single JSON object:
{"name": "short human-readable project name", "description": "one or two sentence summary", "tags": ["up", "to", "three"]}
Tags must be short single-word topics. Respond with JSON only, no prose.`

// Enrich samples root and performs exactly one model call. The returned
// result has normalized tags capped at three; when fewer than two tags came
// back, the result carries the union of model and existing tags and is
// flagged low confidence.
func (e *Enricher) Enrich(ctx context.Context, projectName, root string, existingTags []string) (*Result, error) {
	samples, err := e.sampler.Sample(root)
	if err != nil {
		return nil, &Error{Stage: "sample", Err: err}
	}
	if len(samples) == 0 {
		return nil, &Error{Stage: "sample", Err: fmt.Errorf("no sampleable files under %s", root)}
	}

	raw, err := e.complete.Complete(ctx, systemPrompt, buildPrompt(projectName, samples))
	if err != nil {
		return nil, &Error{Stage: "request", Err: err}
	}

	result, err := parseResponse(raw)
	if err != nil {
		return nil, &Error{Stage: "parse", Err: err}
	}

	if len(result.Tags) < minConfidentTags {
		result.LowConfidence = true
		result.Tags = unionTags(result.Tags, existingTags)
	}
	return result, nil
}

// buildPrompt renders the sampled files into one prompt document.
func buildPrompt(projectName string, samples []Sample) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project directory name: %s\n\nFile samples:\n", projectName)
	for _, s := range samples {
		fmt.Fprintf(&b, "\n--- %s ---\n%s\n", s.Path, s.Content)
	}
	return b.String()
}

// modelReply is the JSON shape the system prompt requests.
type modelReply struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// parseResponse decodes the model reply, tolerating a markdown code fence
// around the JSON. Tags are normalized and capped.
func parseResponse(raw string) (*Result, error) {
	body := stripFence(strings.TrimSpace(raw))

	var reply modelReply
	if err := json.Unmarshal([]byte(body), &reply); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}
	if reply.Name == "" && reply.Description == "" && len(reply.Tags) == 0 {
		return nil, fmt.Errorf("response carried no fields")
	}

	normalized := tags.NormalizeAll(reply.Tags)
	if len(normalized) > maxTags {
		normalized = normalized[:maxTags]
	}
	return &Result{
		Name:        strings.TrimSpace(reply.Name),
		Description: strings.TrimSpace(reply.Description),
		Tags:        normalized,
	}, nil
}

// stripFence unwraps ```json ... ``` or ``` ... ``` blocks.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// Drop the language hint on the fence line.
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// unionTags merges model and existing tags, model tags first, capped.
func unionTags(model, existing []string) []string {
	merged := tags.NormalizeAll(append(append([]string{}, model...), existing...))
	if len(merged) > maxTags {
		merged = merged[:maxTags]
	}
	return merged
}
