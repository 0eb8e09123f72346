package extract

import (
	"strings"
	"testing"
)

func TestFromHTML_VisibleTextJoinedWithSpaces(t *testing.T) {
	html := `<!doctype html>
    <html>
      <head><title>Resultado Final</title><style>.x{color:red}</style></head>
      <body>
        <nav>Início</nav>
        <main>
          <h1>Resultado</h1>
          <p>Fagner do
             Espírito Santo Sá</p>
          <table><tr><td>1</td><td>87,50</td></tr></table>
        </main>
        <script>var hidden = "Fagner";</script>
        <footer>Rodapé</footer>
      </body>
    </html>`

	doc, err := FromHTML([]byte(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Resultado Final" {
		t.Fatalf("expected title, got %q", doc.Title)
	}
	want := "Início Resultado Fagner do Espírito Santo Sá 1 87,50 Rodapé"
	if doc.Text != want {
		t.Fatalf("unexpected text:\n got %q\nwant %q", doc.Text, want)
	}
	if strings.Contains(doc.Text, "hidden") || strings.Contains(doc.Text, "color") {
		t.Fatalf("script/style content leaked: %q", doc.Text)
	}
}

func TestFromHTML_Empty(t *testing.T) {
	doc, err := FromHTML(nil)
	if err != nil || doc.Text != "" {
		t.Fatalf("expected empty document, got %+v err=%v", doc, err)
	}
}

func TestFromHTML_Fragment(t *testing.T) {
	doc, err := FromHTML([]byte("just <b>some</b> text"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Text != "just some text" {
		t.Fatalf("unexpected text %q", doc.Text)
	}
}

func TestReadabilityExtractor_FallsBackToVisibleText(t *testing.T) {
	doc, err := ReadabilityExtractor{}.Extract([]byte("<html><body><span>Sá</span></body></html>"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(doc.Text, "Sá") {
		t.Fatalf("expected text to survive, got %q", doc.Text)
	}
}

func TestNewExtractor(t *testing.T) {
	if _, ok := NewExtractor("text"); !ok {
		t.Fatalf("text extractor missing")
	}
	if e, ok := NewExtractor("Readability"); !ok {
		t.Fatalf("readability extractor missing")
	} else if _, isR := e.(ReadabilityExtractor); !isR {
		t.Fatalf("unexpected extractor %T", e)
	}
	if _, ok := NewExtractor("ocr"); ok {
		t.Fatalf("unexpected extractor for unknown name")
	}
}

func TestFromText_LossyUTF8(t *testing.T) {
	in := []byte("\xef\xbb\xbfSá \xff\xfe ok")
	got := FromText(in)
	if got != "Sá � ok" {
		t.Fatalf("unexpected decode %q", got)
	}
}

func TestKindFromURL(t *testing.T) {
	cases := map[string]Kind{
		"https://h/dir/file.PDF":          KindPDF,
		"https://h/dir/file.pdf?x=1#p2":   KindPDF,
		"https://h/dir/notes.txt":         KindText,
		"https://h/dir/data.csv":          KindText,
		"https://h/dir/":                  KindHTML,
		"https://h/pages/2025/index.html": KindHTML,
		"https://h/view.php?id=3":         KindHTML,
	}
	for in, want := range cases {
		if got := KindFromURL(in); got != want {
			t.Errorf("KindFromURL(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestRefine(t *testing.T) {
	if refine(KindHTML, "application/pdf", nil) != KindPDF {
		t.Fatalf("expected content type to refine html to pdf")
	}
	if refine(KindHTML, "", []byte("%PDF-1.7")) != KindPDF {
		t.Fatalf("expected magic bytes to refine html to pdf")
	}
	if refine(KindHTML, "text/plain; charset=utf-8", nil) != KindText {
		t.Fatalf("expected text/plain to refine html to text")
	}
	if refine(KindText, "text/html", nil) != KindText {
		t.Fatalf("explicit extensions must not be overridden")
	}
}
