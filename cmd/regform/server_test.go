package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/regform/regform/internal/config"
	"github.com/regform/regform/internal/schema"
)

func TestSchemaSource_Remote(t *testing.T) {
	var hits int
	mux := http.NewServeMux()
	mux.Handle("/data/", http.StripPrefix("/data/", http.FileServerFS(schema.Embedded())))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		mux.ServeHTTP(w, r)
	}))
	defer srv.Close()

	loader, fsys := schemaSource(config.SchemaConfig{URL: srv.URL, Dir: "/ignored"})
	if fsys != nil {
		t.Error("remote schemas should not be re-served locally")
	}
	s, err := loader.Load(context.Background(), schema.Screener)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := s.Field("dateOfBirth"); !ok {
		t.Error("screener schema missing dateOfBirth")
	}
	if hits != 1 {
		t.Errorf("remote hits = %d, want 1", hits)
	}
}

func TestSchemaSource_Embedded(t *testing.T) {
	loader, fsys := schemaSource(config.SchemaConfig{})
	if fsys == nil {
		t.Fatal("embedded schemas should be served under /data/")
	}
	if _, err := loader.Load(context.Background(), schema.Consent); err != nil {
		t.Fatalf("Load: %v", err)
	}
}
