package main

import (
	"encoding/json"
	"errors"
	"testing"

	"metaview/internal/classify"
	"metaview/internal/services"
	"metaview/internal/testsupport"
)

type viewJSON struct {
	Source   string `json:"source"`
	Error    string `json:"error"`
	Sections []struct {
		Title  string         `json:"title"`
		Fields map[string]any `json:"fields"`
	} `json:"sections"`
}

func TestShowRendersSections(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.image(t, "harbour.jpg", testsupport.JPEG(t, testsupport.SampleEXIF()))

	out, _, err := runCLI(t, []string{"show", "--no-color", path}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "harbour.jpg")
	requireContains(t, out, "== "+classify.BucketFileInfo)
	requireContains(t, out, "== "+classify.BucketEXIF)
	requireContains(t, out, "== "+classify.BucketGPS)
	requireContains(t, out, "Canon EOS R5")
}

func TestShowJSONKeepsSectionOrder(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.image(t, "harbour.jpg", testsupport.JPEG(t, testsupport.SampleEXIF()))

	out, _, err := runCLI(t, []string{"show", "--json", path}, env.configPath)
	if err != nil {
		t.Fatalf("show --json: %v", err)
	}
	var view viewJSON
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if view.Source != "harbour.jpg" || view.Error != "" {
		t.Fatalf("unexpected view header %+v", view)
	}
	order := map[string]int{}
	for i, section := range view.Sections {
		order[section.Title] = i
		if len(section.Fields) == 0 {
			t.Fatalf("empty section %q should be omitted", section.Title)
		}
	}
	if order[classify.BucketFileInfo] != 0 || order[classify.BucketEXIF] != 1 {
		t.Fatalf("unexpected section order %v", order)
	}
	if _, ok := order[classify.BucketCameraSettings]; !ok {
		t.Fatalf("expected camera settings section, got %v", order)
	}
}

func TestShowFailureReportsMessageAndExitCode(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.image(t, "broken.jpg", []byte("not really a jpeg"))

	out, _, err := runCLI(t, []string{"show", "--no-color", path}, env.configPath)
	if !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if code := services.ExitCode(err); code != services.ExitDecode {
		t.Fatalf("exit code = %d, want %d", code, services.ExitDecode)
	}
	requireContains(t, out, "Failed to extract metadata")
}

func TestShowMixedBatchSucceeds(t *testing.T) {
	env := setupCLITestEnv(t)
	good := env.image(t, "good.png", testsupport.PNG(t, testsupport.SampleEXIF(), nil))
	bad := env.image(t, "bad.jpg", []byte("garbage"))

	out, _, err := runCLI(t, []string{"show", "--json", good, bad}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	var views []viewJSON
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	if views[0].Error != "" || len(views[0].Sections) == 0 {
		t.Fatalf("expected metadata for good.png, got %+v", views[0])
	}
	if views[1].Error != "Failed to extract metadata" || len(views[1].Sections) != 0 {
		t.Fatalf("expected failure view for bad.jpg, got %+v", views[1])
	}
}

func TestShowSkipsEmptyFiles(t *testing.T) {
	env := setupCLITestEnv(t)
	path := env.image(t, "empty.jpg", nil)

	out, _, err := runCLI(t, []string{"show", path}, env.configPath)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if out != "" {
		t.Fatalf("expected no output for an empty file, got %q", out)
	}
}

func TestShowMissingFileIsReported(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"show", "--no-color", env.imageDir + "/missing.jpg"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	requireContains(t, out, "missing.jpg")
}

func TestShowHonoursSizeLimit(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithMaxFileMiB(1))
	path := testsupport.WriteSized(t, env.imageDir+"/huge.jpg", 2<<20)

	out, _, err := runCLI(t, []string{"show", "--no-color", path}, env.configPath)
	if err == nil {
		t.Fatal("expected error for oversized file")
	}
	requireContains(t, out, "exceeds")
}
