package typeconfig

import (
	"errors"
	"testing"

	"github.com/goliatone/go-cms-scheduler/internal/domain"
)

func TestRegistryDefaultsAndLookup(t *testing.T) {
	reg, err := NewRegistry(
		Settings{Name: "page", PublishEnable: true},
		Settings{Name: " article ", PublishEnable: true, UnpublishEnable: true, UnpublishRevision: true, PublishPastDate: "Publish", DefaultRepeat: " Daily "},
	)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	if got := reg.Types(); len(got) != 2 || got[0] != "article" || got[1] != "page" {
		t.Fatalf("expected sorted types, got %v", got)
	}
	if !reg.Enabled("article", domain.ActionUnpublish) {
		t.Fatalf("expected article unpublish enabled")
	}
	if reg.Enabled("page", domain.ActionUnpublish) {
		t.Fatalf("expected page unpublish disabled")
	}
	if reg.Enabled("event", domain.ActionPublish) {
		t.Fatalf("expected unknown type to be disabled")
	}
	if reg.Revision("article", domain.ActionPublish) || !reg.Revision("article", domain.ActionUnpublish) {
		t.Fatalf("unexpected revision flags")
	}
	if got := reg.PastDatePolicy("article"); got != domain.PastDatePublish {
		t.Fatalf("expected publish policy, got %q", got)
	}
	if got := reg.PastDatePolicy("page"); got != domain.PastDateError {
		t.Fatalf("expected default error policy, got %q", got)
	}
	if got := reg.DefaultRepeat("article"); got != "daily" {
		t.Fatalf("expected normalized default repeat, got %q", got)
	}
}

func TestRegistryRequiresName(t *testing.T) {
	if _, err := NewRegistry(Settings{}); !errors.Is(err, ErrTypeNameRequired) {
		t.Fatalf("expected ErrTypeNameRequired, got %v", err)
	}
}
