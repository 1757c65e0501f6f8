package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"text", FormatText},
		{"", FormatText},
		{"bogus", FormatText},
	}
	for _, tt := range tests {
		if got := ParseFormat(tt.in); got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewFormatterStdout(t *testing.T) {
	f, err := NewFormatter(FormatText, "", true)
	if err != nil {
		t.Fatalf("NewFormatter() error = %v", err)
	}
	defer f.Close()

	if f.Format() != FormatText {
		t.Errorf("Format() = %v, want %v", f.Format(), FormatText)
	}
	if !f.Colored() {
		t.Error("Colored() = false, want true")
	}
	if f.Writer() != os.Stdout {
		t.Error("Writer() should be stdout when no output file is given")
	}
}

func TestNewFormatterWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	f, err := NewFormatter(FormatJSON, path, true)
	if err != nil {
		t.Fatalf("NewFormatter() error = %v", err)
	}

	// Color is forced off for file output.
	if f.Colored() {
		t.Error("Colored() = true, want false for file output")
	}

	if err := f.Output(map[string]int{"n": 3}); err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var got map[string]int
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got["n"] != 3 {
		t.Errorf("n = %d, want 3", got["n"])
	}
}

func TestNewFormatterInvalidPath(t *testing.T) {
	_, err := NewFormatter(FormatText, "/nonexistent/dir/out.txt", false)
	if err == nil {
		t.Error("NewFormatter() with invalid path should fail")
	}
}

func testTable() *Table {
	return NewTable(
		"Functions",
		[]string{"File", "Name"},
		[][]string{
			{"a.py", "foo"},
			{"b.py", "bar"},
		},
		[]string{"Total", "2"},
		nil,
	)
}

func TestTableRenderText(t *testing.T) {
	var buf bytes.Buffer
	if err := testTable().RenderText(&buf, false); err != nil {
		t.Fatalf("RenderText() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Functions", "FILE", "NAME", "a.py", "foo", "bar", "Total"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderText() output missing %q:\n%s", want, out)
		}
	}
}

func TestTableRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := testTable().RenderMarkdown(&buf); err != nil {
		t.Fatalf("RenderMarkdown() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"## Functions",
		"| File | Name |",
		"| --- | --- |",
		"| a.py | foo |",
		"| Total | 2 |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderMarkdown() output missing %q:\n%s", want, out)
		}
	}
}

func TestTableRenderData(t *testing.T) {
	t.Run("wrapped data wins", func(t *testing.T) {
		data := []string{"x", "y"}
		tbl := NewTable("T", nil, nil, nil, data)
		got, ok := tbl.RenderData().([]string)
		if !ok || len(got) != 2 {
			t.Errorf("RenderData() = %v, want wrapped data", tbl.RenderData())
		}
	})

	t.Run("rows fall back to header maps", func(t *testing.T) {
		tbl := testTable()
		tbl.Data = nil
		rows, ok := tbl.RenderData().([]map[string]string)
		if !ok {
			t.Fatalf("RenderData() = %T, want []map[string]string", tbl.RenderData())
		}
		if len(rows) != 2 || rows[0]["File"] != "a.py" || rows[1]["Name"] != "bar" {
			t.Errorf("RenderData() rows = %v", rows)
		}
	})
}

func TestFormatterOutputFormats(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		want   []string
	}{
		{"text", FormatText, []string{"FILE", "a.py"}},
		{"markdown", FormatMarkdown, []string{"| File | Name |", "| a.py | foo |"}},
		{"json", FormatJSON, []string{`"File": "a.py"`, `"Name": "bar"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			f := &Formatter{format: tt.format, writer: &buf}
			tbl := testTable()
			tbl.Data = nil
			if err := f.Output(tbl); err != nil {
				t.Fatalf("Output() error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("Output() missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestFormatterOutputRawMarkdown(t *testing.T) {
	var buf bytes.Buffer
	f := &Formatter{format: FormatMarkdown, writer: &buf}
	if err := f.Output(map[string]string{"k": "v"}); err != nil {
		t.Fatalf("Output() error = %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "```json") {
		t.Errorf("raw markdown output should be fenced:\n%s", out)
	}
	if !strings.Contains(out, `"k": "v"`) {
		t.Errorf("Output() missing payload:\n%s", out)
	}
}

func TestMessageHelpersUncolored(t *testing.T) {
	var buf bytes.Buffer
	f := &Formatter{format: FormatText, writer: &buf}

	f.Success("done %d", 1)
	f.Warning("careful")
	f.Error("broken")
	f.Info("note")

	out := buf.String()
	for _, want := range []string{"done 1", "WARNING: careful", "ERROR: broken", "note"} {
		if !strings.Contains(out, want) {
			t.Errorf("message output missing %q:\n%s", want, out)
		}
	}
}
