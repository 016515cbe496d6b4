package ocr

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

func readPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "ocr: read %s", path)
	}
	return string(data), nil
}

// readDocxText pulls the text runs out of the word/document.xml entry of a
// docx archive. Formatting is discarded; paragraphs become newlines.
func readDocxText(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", eris.Wrapf(err, "ocr: open docx %s", path)
	}
	defer archive.Close() //nolint:errcheck

	var docEntry *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			docEntry = f
			break
		}
	}
	if docEntry == nil {
		return "", eris.Errorf("ocr: docx %s has no word/document.xml", path)
	}

	rc, err := docEntry.Open()
	if err != nil {
		return "", eris.Wrapf(err, "ocr: open document.xml in %s", path)
	}
	defer rc.Close() //nolint:errcheck

	var sb strings.Builder
	decoder := xml.NewDecoder(rc)
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", eris.Wrapf(err, "ocr: parse document.xml in %s", path)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		}
	}

	return sb.String(), nil
}
