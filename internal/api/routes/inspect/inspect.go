// Package inspect serves the PDF upload endpoint.
package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ahrav/pdfguard/internal/api/errs"
	domain "github.com/ahrav/pdfguard/internal/domain/inspection"
	"github.com/ahrav/pdfguard/pkg/common/logger"
	"github.com/ahrav/pdfguard/pkg/web"
)

// formField names the multipart part carrying the document.
const formField = "file"

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// Inspector runs the inspection pipeline for one upload.
type Inspector interface {
	Inspect(ctx context.Context, up domain.Upload) (*domain.Verdict, error)
}

// Metrics counts uploads rejected before reaching the pipeline.
type Metrics interface {
	IncUploadRejected(ctx context.Context, reason string)
}

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log            *logger.Logger
	Inspector      Inspector
	MaxUploadBytes int64
	Metrics        Metrics
}

// Routes binds the inspection endpoint.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	app.HandlerFunc(http.MethodPost, version, "/inspect", inspect(cfg))
}

// uploadForm holds the optional form fields sent alongside the file.
type uploadForm struct {
	DeclaredSize *int64 `validate:"omitempty,min=0"`
	MimeType     string `validate:"omitempty,max=255"`
}

// verdictResponse adapts a Verdict to web.Encoder.
type verdictResponse struct {
	*domain.Verdict
}

// Encode implements the web.Encoder interface.
func (vr verdictResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(vr.Verdict)
	return data, "application/json", err
}

func inspect(cfg Config) web.HandlerFunc {
	return func(ctx context.Context, r *http.Request) web.Encoder {
		if w := web.GetWriter(ctx); w != nil && cfg.MaxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadBytes)
		}

		up, err := readUpload(r)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				cfg.Metrics.IncUploadRejected(ctx, "too_large")
				return errs.Newf(errs.InvalidArgument, "upload exceeds %d bytes", tooLarge.Limit)
			}
			cfg.Metrics.IncUploadRejected(ctx, "malformed")
			return errs.New(errs.InvalidArgument, err)
		}

		verdict, err := cfg.Inspector.Inspect(ctx, up)
		if err != nil {
			return errs.New(errs.Internal, fmt.Errorf("inspect: %w", err))
		}

		return verdictResponse{verdict}
	}
}

// readUpload parses the multipart request. A request without a file part
// yields an empty Upload so the pipeline can reject it with no_file.
func readUpload(r *http.Request) (domain.Upload, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return domain.Upload{}, nil
		}
		return domain.Upload{}, err
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	form, err := parseForm(r)
	if err != nil {
		return domain.Upload{}, err
	}

	file, header, err := r.FormFile(formField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return domain.Upload{}, nil
		}
		return domain.Upload{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return domain.Upload{}, fmt.Errorf("read upload: %w", err)
	}

	up := domain.Upload{
		Data:         data,
		Filename:     header.Filename,
		DeclaredSize: header.Size,
		MimeType:     header.Header.Get("Content-Type"),
	}
	if form.DeclaredSize != nil {
		up.DeclaredSize = *form.DeclaredSize
	}
	if form.MimeType != "" {
		up.MimeType = form.MimeType
	}
	return up, nil
}

func parseForm(r *http.Request) (uploadForm, error) {
	var form uploadForm
	if raw := r.FormValue("declared_size"); raw != "" {
		size, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return form, fmt.Errorf("declared_size: %w", err)
		}
		form.DeclaredSize = &size
	}
	form.MimeType = r.FormValue("mime_type")

	if err := errs.Check(form); err != nil {
		return form, err
	}
	return form, nil
}
