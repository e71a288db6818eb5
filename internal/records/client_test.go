package records

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T) (*Client, *memRepo) {
	t.Helper()
	repo := &memRepo{}
	ts := httptest.NewServer(NewServer(8000, repo, nil, slog.Default()).Handler())
	t.Cleanup(ts.Close)
	return NewClient(ts.URL + "/"), repo
}

func TestClient_AddDefaultsData(t *testing.T) {
	c, _ := newTestClient(t)

	rec, err := c.Add(context.Background(), " Acme ", "https://acme.test", "")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if rec.Data != DefaultData {
		t.Errorf("expected default data, got %q", rec.Data)
	}
	if rec.Company != "Acme" {
		t.Errorf("expected trimmed company, got %q", rec.Company)
	}
}

func TestClient_AddValidatesLocally(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")

	if _, err := c.Add(context.Background(), "", "https://x.test", ""); err == nil {
		t.Error("expected error for missing company")
	}
	if _, err := c.Add(context.Background(), "Acme", "  ", ""); err == nil {
		t.Error("expected error for missing url")
	}
}

func TestClient_Lifecycle(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	rec, err := c.Add(ctx, "Acme", "https://acme.test", "one")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	data := "two"
	if err := c.Update(ctx, rec.ID, Patch{Data: &data}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := c.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Data != "two" {
		t.Errorf("expected updated data, got %q", got.Data)
	}

	all, err := c.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 record, got %d", len(all))
	}

	if err := c.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, err = c.Get(ctx, rec.ID)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Detail != "Entry not found" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestClient_UpdateNeedsAField(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	if err := c.Update(context.Background(), "x", Patch{}); err == nil {
		t.Error("expected error for empty patch")
	}
}
