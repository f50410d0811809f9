package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"AirlineETL/pkg/csvparse"
)

const documentPart = "word/document.xml"

var (
	ErrNotDocx = errors.New("not a docx archive")
	ErrNoData  = errors.New("docx has no tables and no readable paragraphs")
)

// Document is the text content of a .docx: its top level tables and the
// paragraphs that sit outside any table.
type Document struct {
	Tables     [][][]string
	Paragraphs []string
}

// IsDocx reports whether content starts with the ZIP local file header.
func IsDocx(content []byte) bool {
	return bytes.HasPrefix(content, []byte("PK\x03\x04"))
}

func Read(content []byte) (*Document, error) {
	if !IsDocx(content) {
		return nil, ErrNotDocx
	}

	archive, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocx, err)
	}

	part, err := archive.Open(documentPart)
	if err != nil {
		return nil, fmt.Errorf("%w: missing %s", ErrNotDocx, documentPart)
	}
	defer part.Close()

	return parseDocument(part)
}

func parseDocument(r io.Reader) (*Document, error) {
	decoder := xml.NewDecoder(r)
	doc := &Document{}

	var (
		tableDepth int
		table      [][]string
		row        []string
		cell       strings.Builder
		paragraph  strings.Builder
		inRun      bool
		inText     bool
	)

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", documentPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
				if tableDepth == 1 {
					table = nil
				}
			case "tr":
				if tableDepth == 1 {
					row = nil
				}
			case "tc":
				if tableDepth == 1 {
					cell.Reset()
				}
			case "p":
				paragraph.Reset()
			case "r":
				inRun = true
			case "t":
				inText = inRun
			case "tab":
				if inRun {
					paragraph.WriteByte('\t')
				}
			}
		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "r":
				inRun = false
			case "p":
				text := paragraph.String()
				if tableDepth > 0 {
					if cell.Len() > 0 {
						cell.WriteByte('\n')
					}
					cell.WriteString(text)
				} else if strings.TrimSpace(text) != "" {
					doc.Paragraphs = append(doc.Paragraphs, strings.TrimSpace(text))
				}
			case "tc":
				if tableDepth == 1 {
					row = append(row, strings.TrimSpace(cell.String()))
				}
			case "tr":
				if tableDepth == 1 {
					table = append(table, row)
				}
			case "tbl":
				if tableDepth == 1 {
					doc.Tables = append(doc.Tables, table)
				}
				tableDepth--
			}
		}
	}

	return doc, nil
}

// Rows returns the first table when there is one, otherwise every paragraph
// parsed as a comma separated line.
func (d *Document) Rows() ([][]string, error) {
	if len(d.Tables) > 0 {
		return d.Tables[0], nil
	}
	if len(d.Paragraphs) == 0 {
		return nil, ErrNoData
	}

	table, err := csvparse.Parse([]byte(strings.Join(d.Paragraphs, "\n")))
	if err != nil {
		return nil, err
	}
	return append([][]string{table.Header}, table.Rows...), nil
}

// CSV renders the document as CSV text. With all set, every table is
// emitted with a blank line between tables. Without tables, paragraphs that
// already carry delimiters are passed through; others are split on whitespace.
func (d *Document) CSV(all bool) (string, error) {
	if len(d.Tables) > 0 {
		tables := d.Tables[:1]
		if all {
			tables = d.Tables
		}

		parts := make([]string, 0, len(tables))
		for _, t := range tables {
			parts = append(parts, csvparse.Join(t))
		}
		sep := "\n"
		if all {
			sep = "\n\n"
		}
		return strings.Join(parts, sep), nil
	}

	if len(d.Paragraphs) == 0 {
		return "", ErrNoData
	}

	blob := strings.Join(d.Paragraphs, "\n")
	if strings.ContainsAny(blob, ",;\t") {
		return blob, nil
	}

	rows := make([][]string, 0, len(d.Paragraphs))
	for _, p := range d.Paragraphs {
		rows = append(rows, strings.Fields(p))
	}
	return csvparse.Join(rows), nil
}
