package main

// JSON:API media types and envelope shapes, ported from the teacher's
// common.go (ErrorObject, JSONAPIMediaType) and generalized from one
// fixed-shape request per API call to the single /v1/render endpoint.
const (
	jsonAPIMediaType = "application/json; charset=utf-8"
	textPlainMediaType = "text/plain; charset=utf-8"
)

const (
	typeRenderRequest  = "RenderRequest"
	typeRenderResponse = "RenderResponse"
)

// maxRenderRequestBodySize bounds the request body the way the teacher's
// MaxPointRequestBodySize/MaxGpxRequestBodySize constants do (security:
// cap allocation driven by an untrusted client).
const maxRenderRequestBodySize = 16 * 1024

// ErrorObject mirrors the teacher's ErrorObject.
type ErrorObject struct {
	Code   string `json:"code"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// RenderRequest is the JSON body of POST /v1/render.
type RenderRequest struct {
	Type string `json:"type"`
	ID   string `json:"id"`

	Attributes struct {
		West  string `json:"west"`
		North string `json:"north"`
		East  string `json:"east"`
		South string `json:"south"`

		SourceFile    string `json:"source_file"`
		CatalogFolder string `json:"catalog_folder"`
		Gradient      string `json:"gradient"` // raw JSON gradient document
		Scale         float64 `json:"scale"`
		Format        string `json:"format"`
	} `json:"attributes"`
}

// RenderResponse is the JSON body of the final NDJSON line.
type RenderResponse struct {
	Type string `json:"type"`
	ID   string `json:"id"`

	Attributes struct {
		IsError    bool        `json:"is_error"`
		Error      ErrorObject `json:"error,omitempty"`
		OutputPath string      `json:"output_path,omitempty"`
		Width      int         `json:"width,omitempty"`
		Height     int         `json:"height,omitempty"`
	} `json:"attributes"`
}

// ProgressLine is one newline-delimited JSON progress update (SPEC_FULL.md
// §12: "Progress in service mode streams as newline-delimited JSON").
type ProgressLine struct {
	Phase   string `json:"phase"`
	Percent int    `json:"percent"`
}
