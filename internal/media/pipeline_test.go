package media

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/vietddude/genflow/internal/core/domain"
)

type scriptedDescriber struct {
	mu    sync.Mutex
	calls map[string]int

	// fail lists locators that fail on every call. failOnce lists locators
	// that fail only on their first call.
	fail     map[string]bool
	failOnce map[string]bool
}

func newScriptedDescriber() *scriptedDescriber {
	return &scriptedDescriber{
		calls:    make(map[string]int),
		fail:     make(map[string]bool),
		failOnce: make(map[string]bool),
	}
}

func (d *scriptedDescriber) Describe(_ context.Context, att domain.AttachmentDescriptor) (string, error) {
	d.mu.Lock()
	d.calls[att.Locator]++
	n := d.calls[att.Locator]
	d.mu.Unlock()

	if d.fail[att.Locator] {
		return "", errors.New("describer unavailable")
	}
	if d.failOnce[att.Locator] && n == 1 {
		return "", errors.New("transient describer error")
	}
	return "a description of " + att.Locator, nil
}

func (d *scriptedDescriber) callsFor(locator string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[locator]
}

func attachments(locators ...string) []domain.AttachmentDescriptor {
	atts := make([]domain.AttachmentDescriptor, 0, len(locators))
	for _, l := range locators {
		atts = append(atts, domain.AttachmentDescriptor{Locator: l, Kind: domain.MediaImage})
	}
	return atts
}

func TestDescribeAll_PlaceholderForPermanentFailures(t *testing.T) {
	d := newScriptedDescriber()
	d.fail["img-b"] = true
	d.fail["img-d"] = true

	atts := attachments("img-a", "img-b", "img-c", "img-d", "img-e")
	out := NewPipeline(d).DescribeAll(context.Background(), atts)

	if len(out) != len(atts) {
		t.Fatalf("got %d descriptions, want %d", len(out), len(atts))
	}

	byLocator := make(map[string]domain.DescribedAttachment)
	for _, desc := range out {
		byLocator[desc.SourceLocator] = desc
	}

	for _, loc := range []string{"img-b", "img-d"} {
		desc, ok := byLocator[loc]
		if !ok {
			t.Fatalf("no output for %s", loc)
		}
		if desc.Description != "Image description failed after 3 attempts" {
			t.Errorf("%s description = %q", loc, desc.Description)
		}
		if got := d.callsFor(loc); got != 3 {
			t.Errorf("%s described %d times, want 3", loc, got)
		}
	}

	for _, loc := range []string{"img-a", "img-c", "img-e"} {
		desc := byLocator[loc]
		if !strings.Contains(desc.Description, loc) {
			t.Errorf("%s description = %q", loc, desc.Description)
		}
		if got := d.callsFor(loc); got != 1 {
			t.Errorf("%s described %d times, want 1", loc, got)
		}
	}
}

func TestDescribeAll_TransientFailureRecovers(t *testing.T) {
	d := newScriptedDescriber()
	d.failOnce["img-a"] = true

	out := NewPipeline(d).DescribeAll(context.Background(), attachments("img-a"))

	if len(out) != 1 {
		t.Fatalf("got %d descriptions, want 1", len(out))
	}
	if out[0].Description != "a description of img-a" {
		t.Errorf("description = %q", out[0].Description)
	}
	if got := d.callsFor("img-a"); got != 2 {
		t.Errorf("described %d times, want 2", got)
	}
}

func TestDescribeAll_EmptyInput(t *testing.T) {
	d := newScriptedDescriber()
	out := NewPipeline(d).DescribeAll(context.Background(), nil)
	if len(out) != 0 {
		t.Errorf("got %d descriptions, want 0", len(out))
	}
}

func TestPlaceholder(t *testing.T) {
	tests := []struct {
		kind     domain.MediaKind
		attempts int
		want     string
	}{
		{domain.MediaImage, 3, "Image description failed after 3 attempts"},
		{domain.MediaAudio, 3, "Audio description failed after 3 attempts"},
	}
	for _, tt := range tests {
		if got := Placeholder(tt.kind, tt.attempts); got != tt.want {
			t.Errorf("Placeholder(%s, %d) = %q, want %q", tt.kind, tt.attempts, got, tt.want)
		}
	}
}
