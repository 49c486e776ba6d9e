package chunker

import (
	"strings"
	"testing"
)

const samplePage = `
<html>
<head><title>Help</title><style>.x{color:red}</style></head>
<body>
<nav><li>Home</li><li>Products</li></nav>
<h1>Payment Gateway</h1>
<p>Accept payments online with a single integration.</p>
<h2>Settlement</h2>
<p>Settlements are processed on the next working day.</p>
<p>Weekend transactions settle on Monday.</p>
<h3>Fees</h3>
<ul><li>No setup fee.</li><li>Standard MDR applies.</li></ul>
<h2>Refunds</h2>
<p>Refunds reach the customer within 5-7 days.</p>
<footer><p>Copyright</p></footer>
<script>console.log("spa")</script>
</body>
</html>`

func TestFromHTML_HeadingPaths(t *testing.T) {
	chunks, err := FromHTML(samplePage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 4 {
		t.Fatalf("got %d chunks, want 4: %+v", len(chunks), chunks)
	}

	expected := []string{
		"Payment Gateway\nAccept payments online with a single integration.",
		"Payment Gateway > Settlement\nSettlements are processed on the next working day. Weekend transactions settle on Monday.",
		"Payment Gateway > Settlement > Fees\nNo setup fee. Standard MDR applies.",
		"Payment Gateway > Refunds\nRefunds reach the customer within 5-7 days.",
	}
	for i, want := range expected {
		if chunks[i].Text != want {
			t.Errorf("chunk %d:\n got %q\nwant %q", i, chunks[i].Text, want)
		}
		if chunks[i].Method != MethodStructural {
			t.Errorf("chunk %d method = %q", i, chunks[i].Method)
		}
		if chunks[i].TokenCount <= 0 {
			t.Errorf("chunk %d has no token count", i)
		}
	}
}

// A deeper heading resets the levels below it; "Refunds" under h2 must
// clear the stale h3 "Fees".
func TestFromHTML_HeadingReset(t *testing.T) {
	chunks, err := FromHTML(samplePage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := chunks[len(chunks)-1].Text
	if strings.Contains(last, "Fees") {
		t.Errorf("stale h3 leaked into later chunk: %q", last)
	}
}

func TestFromHTML_StripsChrome(t *testing.T) {
	chunks, err := FromHTML(samplePage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range chunks {
		for _, banned := range []string{"console.log", "color:red", "Copyright", "Home Products"} {
			if strings.Contains(c.Text, banned) {
				t.Errorf("chunk contains page chrome %q: %q", banned, c.Text)
			}
		}
	}
}

func TestFromHTML_Empty(t *testing.T) {
	chunks, err := FromHTML("<html><body><script>x()</script></body></html>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %+v", chunks)
	}
}

func TestFromHTML_BodyWithoutHeadings(t *testing.T) {
	chunks, err := FromHTML("<html><body><p>Standalone paragraph.</p></body></html>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Text != "Standalone paragraph." {
		t.Errorf("chunk = %q", chunks[0].Text)
	}
}

func TestFromFAQ(t *testing.T) {
	c := FromFAQ("  How do I reset my PIN?  ", "Open the app\nand choose Reset PIN.")
	if c.Method != MethodFAQ {
		t.Errorf("method = %q", c.Method)
	}
	want := "Q: How do I reset my PIN?\nA: Open the app and choose Reset PIN."
	if c.Text != want {
		t.Errorf("text = %q, want %q", c.Text, want)
	}
}

func TestFromText_Windows(t *testing.T) {
	words := make([]string, 100)
	for i := range words {
		words[i] = "word"
	}
	text := strings.Join(words, " ")

	chunks := FromText(text, 40) // 30-word windows
	if len(chunks) != 4 {
		t.Fatalf("got %d chunks, want 4", len(chunks))
	}
	for i, c := range chunks {
		if c.Method != MethodFixed {
			t.Errorf("chunk %d method = %q", i, c.Method)
		}
	}
	total := 0
	for _, c := range chunks {
		total += len(strings.Fields(c.Text))
	}
	if total != 100 {
		t.Errorf("windowing lost words: %d != 100", total)
	}
}

func TestFromText_Empty(t *testing.T) {
	if chunks := FromText("   \n  ", 64); chunks != nil {
		t.Errorf("expected nil, got %+v", chunks)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"one", 1},
		{"one two three", 4},
		{"a b c d e f", 8},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.in); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func BenchmarkFromHTML(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = FromHTML(samplePage)
	}
}
