package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
)

const (
	wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	relsNS = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

	documentPart = "word/document.xml"
	relsPart     = "word/_rels/document.xml.rels"
)

// docxContent is the text of word/document.xml and the relationship ids
// of the images it references, in document order.
type docxContent struct {
	text   string
	images []string
}

func readDOCX(p string) (*docxContent, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	data, err := readZipFile(&zr.Reader, documentPart)
	if err != nil {
		return nil, err
	}
	return parseDocumentXML(data)
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s: %w", name, os.ErrNotExist)
}

// parseDocumentXML walks the body in order. Paragraphs and table rows end
// with a newline, table cells with a tab.
func parseDocumentXML(data []byte) (*docxContent, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var b strings.Builder
	var images []string
	inText := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", documentPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Space == wordNS && t.Name.Local == "t":
				inText = true
			case t.Name.Space == wordNS && t.Name.Local == "tab":
				b.WriteByte('\t')
			case t.Name.Space == wordNS && (t.Name.Local == "br" || t.Name.Local == "cr"):
				b.WriteByte('\n')
			case t.Name.Local == "blip":
				if id := attr(t, relsNS, "embed"); id != "" {
					images = append(images, id)
				}
			case t.Name.Local == "imagedata":
				// legacy VML pictures
				if id := attr(t, relsNS, "id"); id != "" {
					images = append(images, id)
				}
			}
		case xml.EndElement:
			if t.Name.Space != wordNS {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p", "tr":
				b.WriteByte('\n')
			case "tc":
				b.WriteByte('\t')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}

	return &docxContent{text: strings.TrimSpace(b.String()), images: images}, nil
}

func attr(el xml.StartElement, space, local string) string {
	for _, a := range el.Attr {
		if a.Name.Space == space && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

type relationships struct {
	Items []struct {
		ID         string `xml:"Id,attr"`
		Target     string `xml:"Target,attr"`
		TargetMode string `xml:"TargetMode,attr"`
	} `xml:"Relationship"`
}

// imageTargets maps relationship ids to zip entry names for internal parts.
func imageTargets(zr *zip.Reader) (map[string]string, error) {
	data, err := readZipFile(zr, relsPart)
	if err != nil {
		return nil, err
	}
	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("parse %s: %w", relsPart, err)
	}

	targets := make(map[string]string, len(rels.Items))
	for _, r := range rels.Items {
		if strings.EqualFold(r.TargetMode, "External") {
			continue
		}
		if strings.HasPrefix(r.Target, "/") {
			targets[r.ID] = strings.TrimPrefix(r.Target, "/")
		} else {
			targets[r.ID] = path.Join("word", r.Target)
		}
	}
	return targets, nil
}

func extractDOCXImages(p, dir string, max int) ([]driven.ExtractedImage, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()

	data, err := readZipFile(&zr.Reader, documentPart)
	if err != nil {
		return nil, err
	}
	doc, err := parseDocumentXML(data)
	if err != nil {
		return nil, err
	}
	if len(doc.images) == 0 {
		return nil, nil
	}

	targets, err := imageTargets(&zr.Reader)
	if err != nil {
		return nil, err
	}

	var out []driven.ExtractedImage
	for _, id := range doc.images {
		if len(out) == max {
			break
		}
		target, ok := targets[id]
		if !ok {
			continue
		}
		content, err := readZipFile(&zr.Reader, target)
		if err != nil {
			return nil, err
		}

		ext := strings.ToLower(path.Ext(target))
		name := fmt.Sprintf("image_%d%s", len(out)+1, ext)
		local := filepath.Join(dir, name)
		if err := os.WriteFile(local, content, 0o600); err != nil {
			return nil, fmt.Errorf("write image: %w", err)
		}

		out = append(out, driven.ExtractedImage{
			Name:        name,
			Path:        local,
			ContentType: contentType(ext),
		})
	}
	return out, nil
}

func contentType(ext string) string {
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
