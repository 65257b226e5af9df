package service

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/nguyenthenguyen/docx"
	log "github.com/sirupsen/logrus"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	pdfmodel "github.com/unidoc/unipdf/v3/model"

	"jobdroid/utils"
)

var (
	pdfLicenseOnce sync.Once
	xmlTagPattern  = regexp.MustCompile(`<[^>]+>`)
)

// ResumeService reads the user's resume once per session. The text
// feeds apply-goal context and, when an LLM is available, a distilled
// skill list that extends the matcher keywords.
type ResumeService struct {
	ai     *AiService
	path   string
	text   string
	skills []string
}

func NewResumeService(path string, ai *AiService) *ResumeService {
	return &ResumeService{ai: ai, path: path}
}

// Load extracts the resume text and, best effort, a skill list.
// A missing resume_path is not an error; the session just runs on the
// configured keywords alone.
func (s *ResumeService) Load(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	text, err := ExtractTextFromResume(s.path)
	if err != nil {
		return fmt.Errorf("extract resume text: %w", err)
	}
	s.text = text
	log.Infof("Loaded resume %s (%d characters)", s.path, len(text))

	if s.ai == nil || text == "" {
		return nil
	}
	skills, err := s.extractSkills(ctx)
	if err != nil {
		// The resume text is still usable without the skill pass.
		log.Warnf("Resume skill extraction failed: %v", err)
		return nil
	}
	s.skills = skills
	log.Infof("Extracted %d skill(s) from resume", len(skills))
	return nil
}

// Text returns the full extracted resume text.
func (s *ResumeService) Text() string {
	return s.text
}

// Skills returns the LLM-distilled skill list, possibly empty.
func (s *ResumeService) Skills() []string {
	return s.skills
}

// PromptContext returns up to maxChars of resume text for embedding
// into agent goals.
func (s *ResumeService) PromptContext(maxChars int) string {
	return utils.Truncate(s.text, maxChars)
}

func (s *ResumeService) extractSkills(ctx context.Context) ([]string, error) {
	prompt := fmt.Sprintf(`Extract the technical skills, tools and languages from this resume.

Resume:
%s

Return JSON with the structure: {"skills": ["skill1", "skill2"]}
List at most 20 skills, each as a short lowercase phrase.`, utils.Truncate(s.text, 6000))

	var out struct {
		Skills []string `json:"skills"`
	}
	if err := s.ai.GenerateJSON(ctx, prompt, &out); err != nil {
		return nil, err
	}
	return utils.UniqueStrings(out.Skills), nil
}

// ExtractTextFromResume pulls plain text out of a .pdf, .docx or .txt
// resume.
func ExtractTextFromResume(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read resume: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	case ".pdf":
		return extractTextFromPDF(path)
	case ".docx":
		return extractTextFromDocx(path)
	default:
		return "", fmt.Errorf("unsupported resume format %q (use .pdf, .docx or .txt)", filepath.Ext(path))
	}
}

func extractTextFromPDF(path string) (string, error) {
	initPDFLicense()

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open resume: %w", err)
	}
	defer f.Close()

	pdfReader, err := pdfmodel.NewPdfReader(f)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("count pdf pages: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			log.Debugf("skip pdf page %d: %v", i, err)
			continue
		}
		ex, err := extractor.New(page)
		if err != nil {
			log.Debugf("skip pdf page %d: %v", i, err)
			continue
		}
		pageText, err := ex.ExtractText()
		if err != nil {
			log.Debugf("skip pdf page %d: %v", i, err)
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("no text could be extracted from %s", path)
	}
	return text, nil
}

func extractTextFromDocx(path string) (string, error) {
	r, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}
	defer r.Close()

	// GetContent returns word/document.xml; flatten it to plain text.
	content := r.Editable().GetContent()
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	content = xmlTagPattern.ReplaceAllString(content, "")
	return strings.TrimSpace(html.UnescapeString(content)), nil
}

func initPDFLicense() {
	pdfLicenseOnce.Do(func() {
		key := os.Getenv("UNIDOC_LICENSE_API_KEY")
		if key == "" {
			return
		}
		if err := license.SetMeteredKey(key); err != nil {
			log.Warnf("unipdf license activation failed: %v", err)
		}
	})
}
