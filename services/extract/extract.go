package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

var imageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "bmp": true, "webp": true,
}

// Text extracts plain text from a downloaded document. It never
// returns an error: on any failure it returns a Russian diagnostic
// placeholder, which IsFailure recognizes downstream.
func Text(localPath, fileName string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{"file": fileName, "panic": r}).
				Error("document extraction panicked")
			out = fmt.Sprintf("Ошибка обработки файла: %v", r)
		}
	}()

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	switch {
	case ext == "pdf":
		return fromPDF(localPath)
	case ext == "doc" || ext == "docx":
		return fromWord(localPath)
	case ext == "xls" || ext == "xlsx":
		return fromExcel(localPath)
	case imageExtensions[ext]:
		// TODO: wire an OCR backend for image attachments
		return "Изображение (текст не распознан - требуется настройка OCR)"
	default:
		return fmt.Sprintf("Файл формата %s (содержимое не извлечено)", ext)
	}
}

// IsFailure reports whether extracted content is a diagnostic
// placeholder rather than real document text.
func IsFailure(content string) bool {
	return strings.Contains(content, "не извлечен") || strings.Contains(content, "Ошибка обработки")
}

func fromPDF(path string) string {
	f, r, err := pdf.Open(path)
	if err != nil {
		logrus.WithField("error", err.Error()).Error("extracting text from PDF")
		return fmt.Sprintf("PDF файл (текст не извлечен: %v)", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		logrus.WithField("error", err.Error()).Error("extracting text from PDF")
		return fmt.Sprintf("PDF файл (текст не извлечен: %v)", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return fmt.Sprintf("PDF файл (текст не извлечен: %v)", err)
	}
	return strings.TrimSpace(buf.String())
}

// fromWord reads the main document part of a docx archive. Legacy
// binary .doc files fail the zip open and yield the placeholder.
func fromWord(path string) string {
	zr, err := zip.OpenReader(path)
	if err != nil {
		logrus.WithField("error", err.Error()).Error("extracting text from Word document")
		return fmt.Sprintf("Word документ (текст не извлечен: %v)", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Sprintf("Word документ (текст не извлечен: %v)", err)
		}
		defer rc.Close()
		return strings.TrimSpace(wordXMLText(rc))
	}
	err = errors.New("word/document.xml not found")
	return fmt.Sprintf("Word документ (текст не извлечен: %v)", err)
}

// wordXMLText collects the character data of w:t runs, one line per
// w:p paragraph.
func wordXMLText(r io.Reader) string {
	dec := xml.NewDecoder(r)
	var sb strings.Builder
	inRun := false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inRun = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inRun = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inRun {
				sb.Write(t)
			}
		}
	}
	return sb.String()
}

func fromExcel(path string) string {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		logrus.WithField("error", err.Error()).Error("extracting text from Excel document")
		return fmt.Sprintf("Excel документ (текст не извлечен: %v)", err)
	}
	defer wb.Close()

	var sb strings.Builder
	for _, sheet := range wb.GetSheetList() {
		sb.WriteString("Лист: " + sheet + "\n")
		rows, err := wb.GetRows(sheet)
		if err != nil {
			continue
		}
		for _, row := range rows {
			sb.WriteString(strings.TrimSpace(strings.Join(row, "\t")))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}
