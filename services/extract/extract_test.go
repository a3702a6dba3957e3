package extract

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeDocx(t *testing.T, dir, name, documentXML string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating docx: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("adding document.xml: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("writing document.xml: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return path
}

func TestTextFromDocx(t *testing.T) {
	dir := t.TempDir()
	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Домашнее задание</w:t></w:r></w:p>
    <w:p><w:r><w:t>Упражнение 5, </w:t></w:r><w:r><w:t>стр. 12</w:t></w:r></w:p>
  </w:body>
</w:document>`
	path := writeDocx(t, dir, "дз.docx", doc)

	got := Text(path, "дз.docx")
	want := "Домашнее задание\nУпражнение 5, стр. 12"
	if got != want {
		t.Errorf("Text = %q, want %q", got, want)
	}
	if IsFailure(got) {
		t.Error("successful extraction must not look like a failure")
	}
}

func TestTextFromXlsx(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "расписание.xlsx")

	wb := excelize.NewFile()
	if err := wb.SetCellValue("Sheet1", "A1", "Понедельник"); err != nil {
		t.Fatalf("setting cell: %v", err)
	}
	if err := wb.SetCellValue("Sheet1", "B1", "Математика"); err != nil {
		t.Fatalf("setting cell: %v", err)
	}
	if err := wb.SaveAs(path); err != nil {
		t.Fatalf("saving workbook: %v", err)
	}

	got := Text(path, "расписание.xlsx")
	if !strings.HasPrefix(got, "Лист: Sheet1") {
		t.Errorf("missing sheet header: %q", got)
	}
	if !strings.Contains(got, "Понедельник\tМатематика") {
		t.Errorf("missing tab-joined row: %q", got)
	}
}

func TestTextFailuresYieldPlaceholders(t *testing.T) {
	dir := t.TempDir()
	bogus := filepath.Join(dir, "x.bin")
	if err := os.WriteFile(bogus, []byte("not a real document"), 0o644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name     string
		path     string
		fileName string
		fragment string
	}{
		{"missing pdf", filepath.Join(dir, "nope.pdf"), "nope.pdf", "PDF файл (текст не извлечен"},
		{"corrupt docx", bogus, "letter.docx", "Word документ (текст не извлечен"},
		{"legacy doc", bogus, "letter.doc", "Word документ (текст не извлечен"},
		{"corrupt xlsx", bogus, "table.xlsx", "Excel документ (текст не извлечен"},
		{"image without ocr", bogus, "photo.jpg", "текст не распознан"},
		{"unknown format", bogus, "archive.rar", "Файл формата rar (содержимое не извлечено)"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := Text(tc.path, tc.fileName)
			if !strings.Contains(got, tc.fragment) {
				t.Errorf("Text = %q, want fragment %q", got, tc.fragment)
			}
		})
	}
}

func TestIsFailure(t *testing.T) {
	cases := []struct {
		content string
		want    bool
	}{
		{"PDF файл (текст не извлечен: oops)", true},
		{"Ошибка обработки файла: boom", true},
		{"Файл формата rar (содержимое не извлечено)", true},
		{"Обычный текст задания", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsFailure(tc.content); got != tc.want {
			t.Errorf("IsFailure(%q) = %v, want %v", tc.content, got, tc.want)
		}
	}
}
