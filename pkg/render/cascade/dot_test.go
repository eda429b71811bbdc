package cascade

import (
	"context"
	"strings"
	"testing"

	"github.com/Cloudhabil/phi-engine/pkg/adapter"
	"github.com/Cloudhabil/phi-engine/pkg/adapter/photosynthesis"
	"github.com/Cloudhabil/phi-engine/pkg/errors"
)

func naturalCascade(t *testing.T) *adapter.Result {
	t.Helper()
	req, err := adapter.NewRequest(photosynthesis.ModeCascade, photosynthesis.CascadeParams{Natural: true})
	if err != nil {
		t.Fatal(err)
	}
	res, err := photosynthesis.Default().Analyze(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestToDOT(t *testing.T) {
	res := naturalCascade(t)
	dot, err := ToDOT(res, Options{})
	if err != nil {
		t.Fatalf("ToDOT: %v", err)
	}

	for _, want := range []string{
		`digraph "photosynthesis" {`,
		"rankdir=TB;",
		`"n5" [label="carbon_fixation", fillcolor="#f4a6a6"];`,
		`"n0" [label="photon_capture", fillcolor="white"];`,
		`"_input" -> "n0";`,
		`"n4" -> "n5" [penwidth=3`,
		`"n6" -> "_output";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q\n%s", want, dot)
		}
	}
	if got := strings.Count(dot, "->"); got != len(res.Labels)+1 {
		t.Errorf("edge count = %d, want %d", got, len(res.Labels)+1)
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot, err := ToDOT(naturalCascade(t), Options{Detailed: true, Horizontal: true})
	if err != nil {
		t.Fatalf("ToDOT: %v", err)
	}
	for _, want := range []string{"rankdir=LR;", `D = 1.6594`, `η = 0.4500`, `40.1% of loss`} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q", want)
		}
	}
}

func TestToDOTRejectsEmpty(t *testing.T) {
	if _, err := ToDOT(&adapter.Result{}, Options{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("ToDOT(empty) error = %v, want INVALID_INPUT", err)
	}
	if _, err := ToDOT(nil, Options{}); err == nil {
		t.Error("ToDOT(nil) succeeded")
	}
	bad := &adapter.Result{Labels: []string{"a"}, DValues: []float64{1, 2}}
	if _, err := ToDOT(bad, Options{}); err == nil {
		t.Error("ToDOT(mismatched) succeeded")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 100.50 200.00" xmlns="x"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.50 200.00" width="100" height="200"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox = %s, want %s", got, want)
	}

	plain := []byte(`<svg><g/></svg>`)
	if got := normalizeViewBox(plain); string(got) != string(plain) {
		t.Errorf("normalizeViewBox without viewBox changed input: %s", got)
	}
}

func TestRenderSVG(t *testing.T) {
	dot, err := ToDOT(naturalCascade(t), Options{})
	if err != nil {
		t.Fatal(err)
	}
	svg, err := RenderSVG(context.Background(), dot)
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") || !strings.Contains(string(svg), "carbon_fixation") {
		t.Errorf("SVG output unexpected: %.200s", svg)
	}
}
