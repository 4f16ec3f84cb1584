package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"

	"dem-terrain-render/internal/assembly"
	"dem-terrain-render/internal/export"
	"dem-terrain-render/internal/gradient"
	"dem-terrain-render/internal/progress"
	"dem-terrain-render/internal/render"
	"dem-terrain-render/internal/rendererr"
)

var renderRequests uint64

// corsOptionsHandler handles CORS preflight (OPTIONS) requests, ported
// verbatim in shape from the teacher's cors.go.
func corsOptionsHandler(writer http.ResponseWriter, _ *http.Request) {
	writer.Header().Set("Access-Control-Allow-Origin", "*")
	writer.Header().Set("Access-Control-Allow-Methods", "POST")
	writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	writer.Header().Set("Access-Control-Max-Age", "86400")
	writer.WriteHeader(http.StatusOK)
}

// unsupportedRequest handles unexpected routes/methods, ported from the
// teacher's unsupported.go.
func unsupportedRequest(writer http.ResponseWriter, _ *http.Request) {
	writer.Header().Set("Content-Type", textPlainMediaType)
	writer.WriteHeader(http.StatusBadRequest)
	errorMessage := "unsupported http request (e.g. route or method)"
	slog.Warn(errorMessage)
	fmt.Fprint(writer, errorMessage)
}

// renderRequestHandler handles POST /v1/render: runs one controller pass
// and streams progress as newline-delimited JSON, ending with a final
// RenderResponse line (SPEC_FULL.md §12).
func renderRequestHandler(writer http.ResponseWriter, request *http.Request) {
	atomic.AddUint64(&renderRequests, 1)

	var resp RenderResponse
	resp.Type = typeRenderResponse
	resp.ID = "unknown"
	resp.Attributes.IsError = true

	request.Body = http.MaxBytesReader(writer, request.Body, maxRenderRequestBodySize)
	bodyData, err := io.ReadAll(request.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeJSONError(writer, http.StatusRequestEntityTooLarge, &resp, "9000", "request body too large",
				fmt.Sprintf("request body exceeds limit of %d bytes", maxBytesErr.Limit))
		} else {
			writeJSONError(writer, http.StatusBadRequest, &resp, "9020", "error reading request body", err.Error())
		}
		return
	}

	var req RenderRequest
	if err := json.Unmarshal(bodyData, &req); err != nil {
		writeJSONError(writer, http.StatusBadRequest, &resp, "9040", "error unmarshaling request body", err.Error())
		return
	}
	resp.ID = req.ID
	if req.Type != typeRenderRequest {
		writeJSONError(writer, http.StatusBadRequest, &resp, "9060", "unexpected request type", req.Type)
		return
	}

	g, err := gradient.Load([]byte(req.Attributes.Gradient))
	if err != nil {
		writeJSONError(writer, http.StatusBadRequest, &resp, "9080", "invalid gradient document", err.Error())
		return
	}

	scale := req.Attributes.Scale
	if scale == 0 {
		scale = 1.0
	}
	renderReq := render.Request{
		Source: render.Source{
			SinglePath:    req.Attributes.SourceFile,
			CatalogFolder: req.Attributes.CatalogFolder,
		},
		West: req.Attributes.West, North: req.Attributes.North,
		East: req.Attributes.East, South: req.Attributes.South,
		Gradient:    g,
		ExportScale: scale,
		Budget:      assembly.DefaultBudget(),
		OutputKind:  export.Kind(req.Attributes.Format),
		OutputPath:  req.Attributes.SourceFile + ".out",
	}

	writer.Header().Set("Content-Type", jsonAPIMediaType)
	writer.WriteHeader(http.StatusOK)
	flusher, _ := writer.(http.Flusher)
	streamWriter := bufio.NewWriter(writer)

	reporter := progress.NewReporter(8)
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for u := range reporter.Updates() {
			line, _ := json.Marshal(ProgressLine{Phase: u.Phase, Percent: u.Percent})
			streamWriter.Write(line)
			streamWriter.WriteString("\n")
			streamWriter.Flush()
			if flusher != nil {
				flusher.Flush()
			}
		}
	}()

	outcome, renderErr := render.Run(context.Background(), renderReq, reporter)
	reporter.Close()
	<-progressDone

	if renderErr != nil {
		var re *rendererr.Error
		if errors.As(renderErr, &re) {
			resp.Attributes.Error = ErrorObject{Code: string(re.Kind), Title: string(re.Kind), Detail: re.Detail}
		} else {
			resp.Attributes.Error = ErrorObject{Code: "9999", Title: "render failed", Detail: renderErr.Error()}
		}
	} else {
		resp.Attributes.IsError = false
		resp.Attributes.OutputPath = outcome.OutputPath
		resp.Attributes.Width = outcome.Width
		resp.Attributes.Height = outcome.Height
	}

	final, _ := json.Marshal(resp)
	streamWriter.Write(final)
	streamWriter.WriteString("\n")
	streamWriter.Flush()
	if flusher != nil {
		flusher.Flush()
	}
}

func writeJSONError(writer http.ResponseWriter, status int, resp *RenderResponse, code, title, detail string) {
	slog.Warn("render request rejected", "code", code, "title", title, "detail", detail)
	resp.Attributes.Error = ErrorObject{Code: code, Title: title, Detail: detail}
	writer.Header().Set("Content-Type", jsonAPIMediaType)
	writer.WriteHeader(status)
	body, _ := json.MarshalIndent(resp, "", "  ")
	writer.Write(body)
}
