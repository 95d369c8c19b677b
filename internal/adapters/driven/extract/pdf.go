package extract

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/driveindex/internal/core/ports/driven"
)

// ErrPDFToolNotFound is returned when the poppler tools are not installed.
var ErrPDFToolNotFound = errors.New("pdf: pdftotext/pdfimages not found in PATH")

// InstallInstructions returns how to install the poppler tools.
func InstallInstructions() string {
	return `PDF extraction requires pdftotext and pdfimages (poppler).

Install:
  macOS:         brew install poppler
  Ubuntu/Debian: apt install poppler-utils
  Fedora:        dnf install poppler-utils`
}

// CheckAvailable reports whether both poppler tools are on PATH.
func CheckAvailable() error {
	for _, tool := range []string{"pdftotext", "pdfimages"} {
		if _, err := exec.LookPath(tool); err != nil {
			return ErrPDFToolNotFound
		}
	}
	return nil
}

// CommandRunner abstracts command execution for testing.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, ErrPDFToolNotFound
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

type pdfTools struct {
	runner CommandRunner
}

func (p *pdfTools) text(ctx context.Context, path string) (string, error) {
	out, err := p.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", path, "-")
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// hasImages reads the pdfimages table without extracting anything:
//
//	page   num  type   width height ...
//	--------------------------------...
//	   1     0 image    1024   768  ...
func (p *pdfTools) hasImages(ctx context.Context, path string) (bool, error) {
	out, err := p.runner.Run(ctx, "pdfimages", "-list", path)
	if err != nil {
		return false, fmt.Errorf("list pdf images: %w", err)
	}

	sc := bufio.NewScanner(bytes.NewReader(out))
	body := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "---") {
			body = true
			continue
		}
		if !body {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 3 && fields[2] == "image" {
			return true, nil
		}
	}
	return false, sc.Err()
}

// pdfimages -p names its output <root>-<page>-<num>.<ext>.
var pdfImageName = regexp.MustCompile(`^img-(\d+)-(\d+)\.(\w+)$`)

type pageImage struct {
	file string
	page int
	num  int
	ext  string
}

func (p *pdfTools) images(ctx context.Context, path, dir string, max int) ([]driven.ExtractedImage, error) {
	if _, err := p.runner.Run(ctx, "pdfimages", "-png", "-p", path, filepath.Join(dir, "img")); err != nil {
		return nil, fmt.Errorf("extract pdf images: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image dir: %w", err)
	}

	var found []pageImage
	for _, e := range entries {
		m := pdfImageName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		page, _ := strconv.Atoi(m[1])
		num, _ := strconv.Atoi(m[2])
		found = append(found, pageImage{file: e.Name(), page: page, num: num, ext: strings.ToLower(m[3])})
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].page != found[j].page {
			return found[i].page < found[j].page
		}
		return found[i].num < found[j].num
	})

	var out []driven.ExtractedImage
	perPage := map[int]int{}
	for _, img := range found {
		if len(out) == max {
			break
		}
		perPage[img.page]++
		name := fmt.Sprintf("page_%d_image_%d.%s", img.page, perPage[img.page], img.ext)
		local := filepath.Join(dir, name)
		if err := os.Rename(filepath.Join(dir, img.file), local); err != nil {
			return nil, fmt.Errorf("rename image: %w", err)
		}
		out = append(out, driven.ExtractedImage{
			Name:        name,
			Path:        local,
			ContentType: contentType("." + img.ext),
		})
	}
	return out, nil
}
