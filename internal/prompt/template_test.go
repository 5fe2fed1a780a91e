package prompt

import (
	"strings"
	"testing"
)

type testInput struct {
	Subject   string
	Grade     string
	Documents []string
}

const testUser = `Subject: {{.Subject}}
{{- if .Grade}}
Grade: {{.Grade}}
{{- end}}
{{range $i, $d := .Documents}}
Document {{inc $i}}: {{media $d}}
{{- end}}
Answer now.`

func TestRenderDeterministic(t *testing.T) {
	tpl := MustCompile("test", "You are a tutor for {{.Subject}}.", testUser)
	in := testInput{
		Subject:   "Physics",
		Grade:     "12th Grade",
		Documents: []string{"data:application/pdf;base64,AAAA", "data:image/png;base64,iVBORw=="},
	}

	p1, err := tpl.Render(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p2, err := tpl.Render(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p1.Text != p2.Text || p1.System != p2.System {
		t.Error("rendering the same input twice produced different prompts")
	}
	if len(p1.Attachments) != 2 || len(p2.Attachments) != 2 {
		t.Fatalf("attachments leaked between renders: %d, %d", len(p1.Attachments), len(p2.Attachments))
	}
	if p1.System != "You are a tutor for Physics." {
		t.Errorf("system = %q", p1.System)
	}
}

func TestRenderOptionalBlock(t *testing.T) {
	tpl := MustCompile("test", "", testUser)

	p, err := tpl.Render(testInput{Subject: "Maths", Documents: []string{"data:application/pdf;base64,AAAA"}})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(p.Text, "Grade") {
		t.Errorf("absent optional field should suppress its block:\n%s", p.Text)
	}

	p, err = tpl.Render(testInput{Subject: "Maths", Grade: "10th"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p.Text, "Grade: 10th") {
		t.Errorf("expected grade block:\n%s", p.Text)
	}
	if len(p.Attachments) != 0 {
		t.Errorf("expected no attachments, got %d", len(p.Attachments))
	}
}

func TestParts(t *testing.T) {
	tpl := MustCompile("test", "", testUser)
	p, err := tpl.Render(testInput{
		Subject:   "Physics",
		Documents: []string{"data:application/pdf;base64,AAAA", "data:image/png;base64,iVBORw=="},
	})
	if err != nil {
		t.Fatal(err)
	}

	parts := p.Parts()
	var kinds []string
	for _, part := range parts {
		if part.Media != nil {
			kinds = append(kinds, part.Media.MIMEType)
		} else {
			kinds = append(kinds, "text")
		}
	}
	want := []string{"text", "application/pdf", "text", "image/png", "text"}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Errorf("parts = %v, want %v", kinds, want)
	}
	if !strings.HasPrefix(parts[0].Text, "Subject: Physics") {
		t.Errorf("first part = %q", parts[0].Text)
	}
	if parts[len(parts)-1].Text != "Answer now." {
		t.Errorf("last part = %q", parts[len(parts)-1].Text)
	}
}

func TestPartsIgnoresForgedMarker(t *testing.T) {
	p := &Prompt{Text: "hello " + markerOpen + "3" + markerClose + " world"}
	parts := p.Parts()
	if len(parts) != 1 || parts[0].Media != nil {
		t.Errorf("out-of-range marker should stay text: %+v", parts)
	}
}

func TestRenderStripsMarkersFromData(t *testing.T) {
	forged := markerOpen + "0" + markerClose
	tpl := MustCompile("test", "Tutor for {{.Subject}}.", testUser)
	p, err := tpl.Render(testInput{
		Subject:   "see " + forged + " here",
		Grade:     forged,
		Documents: []string{"data:application/pdf;base64,AAAA"},
	})
	if err != nil {
		t.Fatal(err)
	}

	var media int
	for _, part := range p.Parts() {
		if part.Media != nil {
			media++
		}
	}
	if media != 1 {
		t.Errorf("expected one attachment part, got %d:\n%s", media, p.Readable())
	}
	if strings.Count(p.Text, markerOpen) != 1 {
		t.Errorf("text = %q", p.Text)
	}
	if !strings.Contains(p.Text, "Subject: see media:0 here") {
		t.Errorf("text = %q", p.Text)
	}
	if strings.ContainsAny(p.System, "\uE000\uE001") {
		t.Errorf("system = %q", p.System)
	}
}

func TestRenderInvalidAttachment(t *testing.T) {
	tpl := MustCompile("test", "", testUser)
	_, err := tpl.Render(testInput{Subject: "Physics", Documents: []string{"https://example.com/a.pdf"}})
	if err == nil {
		t.Fatal("expected error for non data URI attachment")
	}
}

func TestReadable(t *testing.T) {
	tpl := MustCompile("test", "", "see {{media .}}")
	p, err := tpl.Render("data:application/pdf;base64,AAAA")
	if err != nil {
		t.Fatal(err)
	}
	if p.Readable() != "see [attachment 0]" {
		t.Errorf("readable = %q", p.Readable())
	}
}

func TestCompileErrors(t *testing.T) {
	if _, err := Compile("", "", ""); err == nil {
		t.Error("expected error for empty name")
	}
	if _, err := Compile("bad", "{{.X", ""); err == nil {
		t.Error("expected parse error")
	}
}
