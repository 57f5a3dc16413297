package payload

import (
	"errors"
	"testing"
)

func TestParseObject(t *testing.T) {
	tree, err := Parse([]byte(`{"job_type":"retail","customData":{"stories":2}}`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if tree["job_type"] != "retail" {
		t.Fatalf("expected job_type=retail, got %v", tree["job_type"])
	}
}

func TestParseDoubleEncoded(t *testing.T) {
	// Some upstream workflows send the payload as a JSON string containing JSON.
	tree, err := Parse([]byte(`"{\"squares\": 12}"`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if tree["squares"] != float64(12) {
		t.Fatalf("expected squares=12, got %v", tree["squares"])
	}
}

func TestParseMalformed(t *testing.T) {
	cases := []string{
		`not json`,
		`[1,2,3]`,
		`"just a string"`,
		`42`,
		``,
	}
	for _, body := range cases {
		if _, err := Parse([]byte(body)); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Parse(%q): expected ErrMalformed, got %v", body, err)
		}
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Job Type":  "jobtype",
		"job_type":  "jobtype",
		"job-type":  "jobtype",
		"JOBTYPE":   "jobtype",
		"Roof Type": "rooftype",
	}
	for input, want := range cases {
		if got := Normalize(input); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestResolveExactTopLevelWinsOverNested(t *testing.T) {
	tree, err := Parse([]byte(`{"customData":{"squares":12},"squares":99}`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	value, ok := NewResolver(tree).Resolve("squares", "square_count")
	if !ok {
		t.Fatal("expected squares to resolve")
	}
	if value != float64(99) {
		t.Fatalf("expected top-level 99 to win, got %v", value)
	}
}

func TestResolveFuzzyVariants(t *testing.T) {
	tree := Tree{
		"Job Type": "Insurance",
		"customData": map[string]interface{}{
			"roof-type": "Metal",
		},
	}
	r := NewResolver(tree)

	if value, ok := r.Resolve("job_type"); !ok || value != "Insurance" {
		t.Fatalf("job_type: got %v, %v", value, ok)
	}
	if value, ok := r.Resolve("roof_type"); !ok || value != "Metal" {
		t.Fatalf("roof_type: got %v, %v", value, ok)
	}
}

func TestResolveSuffixMatch(t *testing.T) {
	tree := Tree{
		"lead": map[string]interface{}{
			"property": map[string]interface{}{
				"full_address": "1 Main St, Springfield, IL",
			},
		},
	}

	value, ok := NewResolver(tree).Resolve("full_address")
	if !ok || value != "1 Main St, Springfield, IL" {
		t.Fatalf("expected nested suffix match, got %v, %v", value, ok)
	}
}

func TestResolveAliasPriority(t *testing.T) {
	tree := Tree{
		"stories": float64(2),
		"levels":  float64(3),
	}

	value, ok := NewResolver(tree).Resolve("stories", "levels")
	if !ok || value != float64(2) {
		t.Fatalf("expected first alias to win, got %v, %v", value, ok)
	}
}

func TestResolveSkipsUnusableValues(t *testing.T) {
	tree := Tree{
		"job_type": "  ",
		"customData": map[string]interface{}{
			"job_type": "retail",
		},
	}

	value, ok := NewResolver(tree).Resolve("job_type")
	if !ok || value != "retail" {
		t.Fatalf("expected blank top-level value to be skipped, got %v, %v", value, ok)
	}
}

func TestResolveMissing(t *testing.T) {
	tree := Tree{"name": "Ada"}
	if _, ok := NewResolver(tree).Resolve("squares", "square_count"); ok {
		t.Fatal("expected no match")
	}
}
