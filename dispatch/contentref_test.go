package dispatch

import (
	"errors"
	"testing"
)

func TestParseContentReference(t *testing.T) {
	tt := []struct {
		input       string
		wantAppID   string
		wantContent string
		wantParams  map[string]string
		name        string
	}{
		{
			"837,6VB4bgiB0yA",
			"837",
			"6VB4bgiB0yA",
			nil,
			`Check plain deep link`,
		},
		{
			"837, 6VB4bgiB0yA ",
			"837",
			"6VB4bgiB0yA",
			nil,
			`Check whitespace trimming`,
		},
		{
			"12,8e06a8b7-d667-4e31-939d-f40a6dd78a88,mediaType=movie",
			"12",
			"8e06a8b7-d667-4e31-939d-f40a6dd78a88",
			map[string]string{"mediaType": "movie"},
			`Check extra parameter`,
		},
		{
			"12,abc,mediaType=episode,track=2",
			"12",
			"abc",
			map[string]string{"mediaType": "episode", "track": "2"},
			`Check multiple parameters`,
		},
		{
			"12,abc,notakeyvalue",
			"12",
			"abc",
			nil,
			`Check stray token without "=" is ignored`,
		},
	}

	for _, tc := range tt {
		ref, err := ParseContentReference(tc.input)
		if err != nil {
			t.Errorf("%s: unexpected error %s", tc.name, err.Error())
			continue
		}

		if ref.AppID != tc.wantAppID {
			t.Errorf("%s: got appID %q, want %q", tc.name, ref.AppID, tc.wantAppID)
		}

		if ref.ContentID != tc.wantContent {
			t.Errorf("%s: got contentID %q, want %q", tc.name, ref.ContentID, tc.wantContent)
		}

		values := ref.Values()
		if values.Get("contentId") != tc.wantContent {
			t.Errorf("%s: round trip lost contentId, got %q", tc.name, values.Get("contentId"))
		}

		for key, want := range tc.wantParams {
			if got := values.Get(key); got != want {
				t.Errorf("%s: got param %s=%q, want %q", tc.name, key, got, want)
			}
		}
	}
}

func TestParseContentReferenceInvalid(t *testing.T) {
	tt := []struct {
		input string
		name  string
	}{
		{"", `Check empty input`},
		{"837", `Check missing content id`},
		{",6VB4bgiB0yA", `Check missing app id`},
		{"837,", `Check empty content id`},
		{" , ", `Check whitespace only`},
	}

	for _, tc := range tt {
		if _, err := ParseContentReference(tc.input); !errors.Is(err, ErrInvalidContentReference) {
			t.Errorf("%s: expected ErrInvalidContentReference, got %v", tc.name, err)
		}
	}
}

func TestContentReferenceOptions(t *testing.T) {
	ref, err := ParseContentReference("12,abc,mediaType=live,extra=1")
	if err != nil {
		t.Fatalf("Failed to parse reference due to %s", err.Error())
	}

	opts, err := ref.Options()
	if err != nil {
		t.Fatalf("Failed to decode options due to %s", err.Error())
	}

	if opts.MediaType != "live" {
		t.Errorf("got media type %q", opts.MediaType)
	}

	// Unknown parameters still travel as query values.
	if ref.Values().Get("extra") != "1" {
		t.Errorf("got extra %q", ref.Values().Get("extra"))
	}
}
