package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/felixgeelhaar/atelier/internal/request"
)

func TestNewStudioProvider_Validation(t *testing.T) {
	if _, err := NewStudioProvider("key", ""); err == nil {
		t.Error("expected error for missing base URL")
	}
	if _, err := NewStudioProvider("", "https://studio.example.com"); err != nil {
		t.Errorf("API key should be optional: %v", err)
	}
}

func TestNewOpenAIProvider_Validation(t *testing.T) {
	if _, err := NewOpenAIProvider("", "", ""); err == nil {
		t.Error("expected error for missing API key")
	}
	if _, err := NewOpenAIProvider("sk-test", "", ""); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewGeminiProvider_Validation(t *testing.T) {
	if _, err := NewGeminiProvider("", ""); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestStudioProvider_Generate(t *testing.T) {
	var gotPrompt, gotFileName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("expected multipart request: %v", err)
		}
		gotPrompt = r.FormValue(request.FieldPrompt)
		if files := r.MultipartForm.File[request.FileFieldImage]; len(files) > 0 {
			gotFileName = files[0].Filename
		}

		json.NewEncoder(w).Encode(studioResponse{
			Results: []studioResult{
				{
					ID:       "gen-1",
					Kind:     "post",
					Caption:  "hello",
					ImageURL: "https://img.example.com/1.png",
					Tags:     []string{"summer"},
				},
				{
					ID:   "gen-2",
					Kind: "carousel",
					Slides: []studioSlide{
						{Caption: "s1", ImageURL: "https://img.example.com/s1.png"},
						{Caption: "s2", ImageURL: "https://img.example.com/s2.png"},
					},
				},
			},
		})
	}))
	defer srv.Close()

	p, err := NewStudioProvider("key", srv.URL)
	if err != nil {
		t.Fatalf("NewStudioProvider failed: %v", err)
	}

	payload := request.Payload{
		Fields: map[string]string{request.FieldPrompt: "summer sale", request.FieldTemplate: "post"},
		Files: []request.FilePart{
			{Field: request.FileFieldImage, Name: "logo.png", Data: []byte("bytes")},
		},
	}

	results, err := p.Generate(context.Background(), payload)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if gotPrompt != "summer sale" {
		t.Errorf("server did not receive prompt field, got %q", gotPrompt)
	}
	if gotFileName != "logo.png" {
		t.Errorf("server did not receive file part, got %q", gotFileName)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Caption != "hello" || len(results[0].ImageURLs) != 1 {
		t.Errorf("unexpected post mapping: %+v", results[0])
	}
	if len(results[1].Slides) != 2 {
		t.Errorf("unexpected carousel mapping: %+v", results[1])
	}
}

func TestStudioProvider_ErrorResponses(t *testing.T) {
	t.Run("Non2xx", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		p, _ := NewStudioProvider("", srv.URL)
		if _, err := p.Generate(context.Background(), request.Payload{Fields: map[string]string{}}); err == nil {
			t.Error("expected error for 500 response")
		}
	})

	t.Run("ErrorBody", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(studioResponse{Error: &studioError{Code: "quota", Message: "quota exceeded"}})
		}))
		defer srv.Close()

		p, _ := NewStudioProvider("", srv.URL)
		if _, err := p.Generate(context.Background(), request.Payload{Fields: map[string]string{}}); err == nil {
			t.Error("expected error for error body")
		}
	})

	t.Run("MalformedBody", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{not json"))
		}))
		defer srv.Close()

		p, _ := NewStudioProvider("", srv.URL)
		if _, err := p.Generate(context.Background(), request.Payload{Fields: map[string]string{}}); err == nil {
			t.Error("expected error for malformed body")
		}
	})
}

func TestStubProvider(t *testing.T) {
	stub := NewStubProvider()

	post := request.Payload{Fields: map[string]string{request.FieldTemplate: "post"}}
	results, err := stub.Generate(context.Background(), post)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 post results, got %d", len(results))
	}

	carousel := request.Payload{Fields: map[string]string{request.FieldTemplate: "carousel"}}
	results, err = stub.Generate(context.Background(), carousel)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(results) != 1 || len(results[0].Slides) != 3 {
		t.Errorf("expected a 3-slide carousel, got %+v", results)
	}

	if len(stub.Calls) != 2 {
		t.Errorf("expected 2 recorded calls, got %d", len(stub.Calls))
	}

	stub.Err = errors.New("backend down")
	if _, err := stub.Generate(context.Background(), post); err == nil {
		t.Error("expected configured error")
	}
}

func TestSplitHashtags(t *testing.T) {
	caption, tags := splitHashtags("Enjoy the summer #sale #coffee")
	if caption != "Enjoy the summer" {
		t.Errorf("unexpected caption: %q", caption)
	}
	if len(tags) != 2 || tags[0] != "sale" || tags[1] != "coffee" {
		t.Errorf("unexpected tags: %v", tags)
	}

	caption, tags = splitHashtags("no tags here")
	if caption != "no tags here" || len(tags) != 0 {
		t.Errorf("unexpected split: %q %v", caption, tags)
	}
}

func TestSizeForAspect(t *testing.T) {
	if sizeForAspect("9:16") == sizeForAspect("16:9") {
		t.Error("expected distinct sizes for portrait and landscape")
	}
	if sizeForAspect("unknown") != sizeForAspect("1:1") {
		t.Error("expected square fallback for unknown aspect")
	}
}
