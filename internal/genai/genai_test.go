// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package genai provides the client for the generative backend.
package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGenerateText_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/generate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Stream {
			t.Error("turn generation must not request streaming")
		}
		json.NewEncoder(w).Encode(generateResponse{Text: "a complete reply"})
	}))
	defer srv.Close()

	client := NewClient(&ClientConfig{BaseURL: srv.URL, Model: "test-model"})
	reply, err := client.GenerateText(context.Background(), "hello")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if reply != "a complete reply" {
		t.Errorf("reply = %q", reply)
	}
}

func TestGenerateText_StripsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Text: "<b>bold</b> and <i>italic</i> "})
	}))
	defer srv.Close()

	client := NewClient(&ClientConfig{BaseURL: srv.URL})
	reply, err := client.GenerateText(context.Background(), "hello")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if reply != "bold and italic" {
		t.Errorf("sanitized reply = %q", reply)
	}
}

func TestGenerateText_Unavailable(t *testing.T) {
	srv := httptest.NewServer(nil)
	srv.Close()

	client := NewClient(&ClientConfig{BaseURL: srv.URL})
	_, err := client.GenerateText(context.Background(), "hello")
	if !IsUnavailable(err) {
		t.Errorf("expected unavailable error, got %v", err)
	}
}

func TestGenerateText_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewClient(&ClientConfig{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := client.GenerateText(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !IsTimeout(err) {
		t.Errorf("expected timeout classification, got %v", err)
	}
}

func TestGenerateImage_ReturnsURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(generateResponse{URL: "https://img.example/1.png"})
	}))
	defer srv.Close()

	client := NewClient(&ClientConfig{BaseURL: srv.URL})
	url, err := client.GenerateImage(context.Background(), "a sunset")
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if url != "https://img.example/1.png" {
		t.Errorf("url = %q", url)
	}
}

func TestStripHTML(t *testing.T) {
	cases := map[string]string{
		"plain text":           "plain text",
		"<p>wrapped</p>":       "wrapped",
		"a < b and b > a":      "a  a", // tag-like spans are removed, not escaped
		"trailing <unclosed":   "trailing",
	}
	for in, want := range cases {
		if got := StripHTML(in); got != want {
			t.Errorf("StripHTML(%q) = %q, want %q", in, got, want)
		}
	}
}
