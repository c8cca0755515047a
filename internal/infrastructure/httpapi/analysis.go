package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"ContractGuard/internal/domain"
	"ContractGuard/internal/ports"
)

const (
	pathAnalyzeText   = "/v1/contracts/analyze/text"
	pathAnalyzeUpload = "/v1/contracts/analyze/upload"
	pathUploadBatch   = "/v1/contracts/analyze/upload/batch"
	pathFinalizeBatch = "/v1/contracts/analyze/upload/batch/finalize"
)

// AnalyzeText submits pasted text; the response is the final report.
func (c *Client) AnalyzeText(ctx context.Context, content string, opts domain.AnalysisOptions) (domain.AnalysisResult, error) {
	opts = opts.Normalized()
	var result domain.AnalysisResult
	err := c.Send(ctx, Request{
		Method: http.MethodPost,
		Path:   pathAnalyzeText,
		Body: map[string]any{
			"type":     opts.ContractType,
			"identity": opts.Identity,
			"content":  content,
		},
	}, &result)
	return result, err
}

// AnalyzeFile uploads one document with the long upload timeout.
func (c *Client) AnalyzeFile(ctx context.Context, file domain.FileRef, opts domain.AnalysisOptions) (domain.AnalysisResult, error) {
	opts = opts.Normalized()
	var result domain.AnalysisResult
	err := c.SendUpload(ctx, Upload{
		Path: pathAnalyzeUpload,
		File: file,
		Fields: []Field{
			{Name: "type", Value: string(opts.ContractType)},
			{Name: "identity", Value: string(opts.Identity)},
		},
		Timeout: c.uploadTimeout,
	}, &result)
	return result, err
}

// UploadBatchPart uploads page part.Index of part.Total under part.BatchID.
func (c *Client) UploadBatchPart(ctx context.Context, part ports.BatchPart) (domain.AnalysisResult, error) {
	opts := part.Options.Normalized()
	var ack domain.AnalysisResult
	err := c.SendUpload(ctx, Upload{
		Path: pathUploadBatch,
		File: part.File,
		Fields: []Field{
			{Name: "batch_id", Value: part.BatchID},
			{Name: "idx", Value: strconv.Itoa(part.Index)},
			{Name: "total", Value: strconv.Itoa(part.Total)},
			{Name: "type", Value: string(opts.ContractType)},
			{Name: "identity", Value: string(opts.Identity)},
		},
		Timeout: c.uploadTimeout,
	}, &ack)
	return ack, err
}

// FinalizeBatch asks the server to assemble and analyze the batch. This is
// the slowest leg and runs under the finalize timeout.
func (c *Client) FinalizeBatch(ctx context.Context, batchID string) (domain.AnalysisResult, error) {
	var result domain.AnalysisResult
	err := c.Send(ctx, Request{
		Method:  http.MethodPost,
		Path:    pathFinalizeBatch,
		Body:    map[string]string{"batch_id": batchID},
		Timeout: c.finalizeTimeout,
	}, &result)
	return result, err
}
