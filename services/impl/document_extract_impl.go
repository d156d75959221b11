package impl

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	textracttypes "github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/gomutex/godocx"

	"github.com/Shubhojeet-Ghosh/elysium-agents/config"
	"github.com/Shubhojeet-Ghosh/elysium-agents/logging"
	"github.com/Shubhojeet-Ghosh/elysium-agents/models"
	"github.com/Shubhojeet-Ghosh/elysium-agents/services"
)

const (
	textractPollInterval = 3 * time.Second
	textractMaxWait      = 5 * time.Minute
	sofficeTimeout       = 30 * time.Second
)

// documentExtractorImpl turns uploaded documents into plain text. PDFs run
// through an asynchronous Textract OCR job against the object in S3; Word
// and text formats download and parse locally.
type documentExtractorImpl struct {
	textract *textract.Client
	storage  services.ObjectStorage
	bucket   string
}

func NewDocumentExtractor(ctx context.Context, cfg *config.AWSConfig, storage services.ObjectStorage) (services.DocumentExtractor, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return &documentExtractorImpl{
		textract: textract.NewFromConfig(awsCfg),
		storage:  storage,
		bucket:   cfg.S3Bucket,
	}, nil
}

// ExtractText dispatches on the file extension. Unsupported types return
// empty text, not an error, so one odd upload never fails a batch.
func (e *documentExtractorImpl) ExtractText(ctx context.Context, file models.FileDescriptor) (string, error) {
	switch strings.ToLower(filepath.Ext(file.FileName)) {
	case ".pdf":
		return e.extractPDF(ctx, file.FileKey)
	case ".docx":
		return e.extractDocx(ctx, file.FileKey)
	case ".doc":
		return e.extractDoc(ctx, file.FileKey)
	case ".txt":
		return e.extractTxt(ctx, file.FileKey)
	default:
		logging.L().Warnw("unsupported document type", "file_name", file.FileName)
		return "", nil
	}
}

// extractPDF starts a Textract text-detection job and polls it, paging
// through the result blocks and concatenating LINE text.
func (e *documentExtractorImpl) extractPDF(ctx context.Context, fileKey string) (string, error) {
	start, err := e.textract.StartDocumentTextDetection(ctx, &textract.StartDocumentTextDetectionInput{
		DocumentLocation: &textracttypes.DocumentLocation{
			S3Object: &textracttypes.S3Object{
				Bucket: aws.String(e.bucket),
				Name:   aws.String(fileKey),
			},
		},
	})
	if err != nil {
		return "", models.NewUpstreamError("failed to start text detection for "+fileKey, err)
	}
	jobID := aws.ToString(start.JobId)

	deadline := time.Now().Add(textractMaxWait)
	for {
		out, err := e.textract.GetDocumentTextDetection(ctx, &textract.GetDocumentTextDetectionInput{
			JobId: aws.String(jobID),
		})
		if err != nil {
			return "", models.NewUpstreamError("failed to poll text detection job", err)
		}
		switch out.JobStatus {
		case textracttypes.JobStatusSucceeded:
			return e.collectTextractLines(ctx, jobID, out)
		case textracttypes.JobStatusFailed:
			return "", models.NewUpstreamError("text detection job failed: "+aws.ToString(out.StatusMessage), nil)
		}
		if time.Now().After(deadline) {
			return "", models.NewUpstreamError("text detection job timed out", nil)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(textractPollInterval):
		}
	}
}

func (e *documentExtractorImpl) collectTextractLines(ctx context.Context, jobID string, first *textract.GetDocumentTextDetectionOutput) (string, error) {
	var lines []string
	out := first
	for {
		for _, block := range out.Blocks {
			if block.BlockType == textracttypes.BlockTypeLine && block.Text != nil {
				lines = append(lines, *block.Text)
			}
		}
		if out.NextToken == nil {
			break
		}
		var err error
		out, err = e.textract.GetDocumentTextDetection(ctx, &textract.GetDocumentTextDetectionInput{
			JobId:     aws.String(jobID),
			NextToken: out.NextToken,
		})
		if err != nil {
			return "", models.NewUpstreamError("failed to page text detection results", err)
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

func (e *documentExtractorImpl) extractDocx(ctx context.Context, fileKey string) (string, error) {
	path, err := e.storage.DownloadToTemp(ctx, fileKey)
	if err != nil {
		return "", err
	}
	defer os.Remove(path)

	doc, err := godocx.OpenDocument(path)
	if err != nil {
		return "", models.NewInternalError("failed to open docx "+fileKey, err)
	}

	var parts []string
	for _, child := range doc.Document.Body.Children {
		if child.Para == nil {
			continue
		}
		var text strings.Builder
		for _, pc := range child.Para.GetCT().Children {
			if pc.Run == nil {
				continue
			}
			for _, rc := range pc.Run.Children {
				if rc.Text != nil {
					text.WriteString(rc.Text.Text)
				}
			}
		}
		if line := strings.TrimSpace(text.String()); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// extractDoc converts the legacy format through headless LibreOffice then
// reads the produced .txt next to the input file.
func (e *documentExtractorImpl) extractDoc(ctx context.Context, fileKey string) (string, error) {
	path, err := e.storage.DownloadToTemp(ctx, fileKey)
	if err != nil {
		return "", err
	}
	defer os.Remove(path)

	outDir := filepath.Dir(path)
	runCtx, cancel := context.WithTimeout(ctx, sofficeTimeout)
	defer cancel()
	cmd := exec.CommandContext(runCtx, "soffice",
		"--headless", "--nologo", "--nodefault", "--nolockcheck", "--norestore",
		"--convert-to", "txt:Text", "--outdir", outDir, path)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", models.NewInternalError("libreoffice conversion failed: "+strings.TrimSpace(string(out)), err)
	}

	txtPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".txt"
	defer os.Remove(txtPath)
	data, err := os.ReadFile(txtPath)
	if err != nil {
		return "", models.NewInternalError("libreoffice conversion produced no output", err)
	}
	return strings.TrimSpace(sanitizeUTF8(string(data))), nil
}

func (e *documentExtractorImpl) extractTxt(ctx context.Context, fileKey string) (string, error) {
	path, err := e.storage.DownloadToTemp(ctx, fileKey)
	if err != nil {
		return "", err
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return "", models.NewInternalError("failed to read "+fileKey, err)
	}
	return strings.TrimSpace(sanitizeUTF8(string(data))), nil
}

// sanitizeUTF8 replaces invalid byte sequences so downstream JSON encoding
// never chokes on a malformed upload.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}
