package domain

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"ContractGuard/internal/apperr"
)

// PayloadKind tags the active variant of an UploadPayload.
type PayloadKind string

const (
	PayloadText   PayloadKind = "text"
	PayloadFile   PayloadKind = "file"
	PayloadImages PayloadKind = "images"
)

// FileRef points at a local file to upload.
type FileRef struct {
	Path     string `json:"path"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
}

// UploadPayload is what the user submits. Exactly one variant is active,
// selected by Kind.
type UploadPayload struct {
	Kind    PayloadKind `json:"kind"`
	Content string      `json:"content,omitempty"`
	File    FileRef     `json:"file,omitempty"`
	Images  []FileRef   `json:"images,omitempty"`
}

// TextPayload wraps pasted contract text.
func TextPayload(content string) UploadPayload {
	return UploadPayload{Kind: PayloadText, Content: strings.TrimSpace(content)}
}

// FilePayload wraps a single document; blank name and mime type are derived
// from the path.
func FilePayload(path, mimeType, fileName string) UploadPayload {
	return UploadPayload{Kind: PayloadFile, File: FileRef{Path: path, FileName: fileName, MimeType: mimeType}.normalized()}
}

// ImagesPayload wraps an ordered set of page photos.
func ImagesPayload(files []FileRef) UploadPayload {
	out := make([]FileRef, len(files))
	for i, f := range files {
		out[i] = f.normalized()
	}
	return UploadPayload{Kind: PayloadImages, Images: out}
}

// PagesFromPaths names photos page_1.jpg, page_2.jpg, ... in order.
func PagesFromPaths(paths []string) []FileRef {
	files := make([]FileRef, 0, len(paths))
	for i, p := range paths {
		files = append(files, FileRef{
			Path:     p,
			FileName: fmt.Sprintf("page_%d.jpg", i+1),
			MimeType: "image/jpeg",
		})
	}
	return files
}

// Validate checks that the active variant is complete. maxImages <= 0
// disables the page limit.
func (p UploadPayload) Validate(maxImages int) error {
	const op = "validate payload"
	switch p.Kind {
	case PayloadText:
		if strings.TrimSpace(p.Content) == "" {
			return apperr.New(apperr.KindInvalidInput, op, "empty text")
		}
	case PayloadFile:
		if strings.TrimSpace(p.File.Path) == "" {
			return apperr.New(apperr.KindInvalidInput, op, "missing file path")
		}
	case PayloadImages:
		if len(p.Images) == 0 {
			return apperr.New(apperr.KindInvalidInput, op, "no images")
		}
		if maxImages > 0 && len(p.Images) > maxImages {
			return apperr.New(apperr.KindInvalidInput, op, fmt.Sprintf("at most %d images", maxImages))
		}
		for i, f := range p.Images {
			if strings.TrimSpace(f.Path) == "" {
				return apperr.New(apperr.KindInvalidInput, op, fmt.Sprintf("image %d has no path", i+1))
			}
		}
	default:
		return apperr.New(apperr.KindInvalidInput, op, fmt.Sprintf("unknown payload kind %q", p.Kind))
	}
	return nil
}

// RequiresAuth reports whether submitting the payload needs a signed-in
// account with credits. Every analysis endpoint is metered.
func (p UploadPayload) RequiresAuth() bool {
	switch p.Kind {
	case PayloadText, PayloadFile, PayloadImages:
		return true
	}
	return false
}

// Label is a short human description of the payload.
func (p UploadPayload) Label() string {
	switch p.Kind {
	case PayloadText:
		return fmt.Sprintf("text (%d chars)", len([]rune(p.Content)))
	case PayloadFile:
		return p.File.FileName
	case PayloadImages:
		return fmt.Sprintf("photos (%d pages)", len(p.Images))
	}
	return string(p.Kind)
}

func (f FileRef) normalized() FileRef {
	if f.FileName == "" && f.Path != "" {
		f.FileName = filepath.Base(f.Path)
	}
	if f.MimeType == "" {
		f.MimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(f.FileName)))
		if f.MimeType == "" {
			f.MimeType = "application/octet-stream"
		}
	}
	return f
}

// ContractType is the analysis template the backend applies.
type ContractType string

const (
	ContractGeneral     ContractType = "general"
	ContractMarriage    ContractType = "marriage"
	ContractHouseSale   ContractType = "house_sale"
	ContractVehicleSale ContractType = "vehicle_sale"
	ContractLease       ContractType = "lease"
	ContractEmployment  ContractType = "employment"
	ContractNDA         ContractType = "nda"
	ContractService     ContractType = "service"
)

var knownContractTypes = map[ContractType]struct{}{
	ContractGeneral: {}, ContractMarriage: {}, ContractHouseSale: {}, ContractVehicleSale: {},
	ContractLease: {}, ContractEmployment: {}, ContractNDA: {}, ContractService: {},
}

// ParseContractType falls back to general for unknown values.
func ParseContractType(v string) ContractType {
	t := ContractType(strings.ToLower(strings.TrimSpace(v)))
	if _, ok := knownContractTypes[t]; ok {
		return t
	}
	return ContractGeneral
}

// Identity is the signing party the user represents.
type Identity string

const (
	PartyA Identity = "A"
	PartyB Identity = "B"
)

// ParseIdentity accepts a/b in any case and defaults to A.
func ParseIdentity(v string) Identity {
	if strings.EqualFold(strings.TrimSpace(v), "b") {
		return PartyB
	}
	return PartyA
}

// AnalysisOptions travel with every submission.
type AnalysisOptions struct {
	ContractType ContractType
	Identity     Identity
}

// Normalized fills defaults.
func (o AnalysisOptions) Normalized() AnalysisOptions {
	o.ContractType = ParseContractType(string(o.ContractType))
	o.Identity = ParseIdentity(string(o.Identity))
	return o
}
