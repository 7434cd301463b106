// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Outcome of an upload as reported by the archive
type UploadStatus int

const (
	UploadSuccess UploadStatus = iota
	UploadTargetMissing
	UploadRejected
)

func (s UploadStatus) String() string {
	switch s {
	case UploadSuccess:
		return "Success"
	case UploadTargetMissing:
		return "TargetMissing"
	}
	return "Rejected"
}

type UploadResult struct {
	Status UploadStatus
	Reason string // Message from the archive for TargetMissing and Rejected
	Code   int    // HTTP status code
}

// Unauthorized tells whether the archive refused the token
func (r UploadResult) Unauthorized() bool {
	return r.Code == http.StatusUnauthorized
}

func (r UploadResult) String() string {
	if r.Reason == "" {
		return r.Status.String()
	}
	return fmt.Sprintf("%s: %s", r.Status, r.Reason)
}

// Upload a calibrated FITS file for the given target. The returned error covers transport
// and file problems only; answers of the archive are reported in the result.
// The body is sent with a Content-Length, never chunked.
func (c *Client) Upload(ctx context.Context, fileName, target string) (UploadResult, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return UploadResult{}, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return UploadResult{}, err
	}

	fields := map[string]string{
		"target":            target,
		"filter":            c.Config.Filter,
		"data_product_type": "fits_file",
		"dry_run":           pythonBool(c.Config.DryRun),
		"observatory":       c.Config.Observatory,
	}
	head, tail, contentType, err := multipartFrame(fields, filepath.Base(fileName))
	if err != nil {
		return UploadResult{}, err
	}

	// stream the file between the buffered multipart head and tail instead of holding it in memory
	body := io.MultiReader(bytes.NewReader(head), f, bytes.NewReader(tail))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Config.UploadURL, body)
	if err != nil {
		return UploadResult{}, err
	}
	req.ContentLength = int64(len(head)) + fi.Size() + int64(len(tail))
	req.Header.Set("Content-Type", contentType)
	code, respBody, err := c.do(req)
	if err != nil {
		return UploadResult{}, err
	}
	res := parseUploadResponse(code, respBody)
	res.Code = code
	return res, nil
}

// Multipart encoding of the form fields and the header of the file part (head),
// and the closing boundary (tail). The file content goes in between.
func multipartFrame(fields map[string]string, fileName string) (head, tail []byte, contentType string, err error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, k := range []string{"target", "filter", "data_product_type", "dry_run", "observatory"} {
		if err := mw.WriteField(k, fields[k]); err != nil {
			return nil, nil, "", err
		}
	}
	if _, err := mw.CreateFormFile("files", fileName); err != nil {
		return nil, nil, "", err
	}
	headLen := buf.Len()
	if err := mw.Close(); err != nil {
		return nil, nil, "", err
	}
	all := buf.Bytes()
	return all[:headLen], all[headLen:], mw.FormDataContentType(), nil
}

func pythonBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// Interpret the archive's answer to an upload. Field errors come as lists of messages
// keyed by form field; an unknown target is reported under "target".
func parseUploadResponse(code int, body []byte) UploadResult {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		if code >= 400 {
			return UploadResult{Status: UploadRejected, Reason: statusError(code, body).Error()}
		}
		return UploadResult{Status: UploadSuccess}
	}

	if msgs := messages(fields["target"]); len(msgs) > 0 {
		for _, m := range msgs {
			if strings.Contains(m, "does not exist") {
				return UploadResult{Status: UploadTargetMissing, Reason: m}
			}
		}
		return UploadResult{Status: UploadRejected, Reason: "target: " + strings.Join(msgs, "; ")}
	}
	if msgs := messages(fields["non_field_errors"]); len(msgs) > 0 {
		return UploadResult{Status: UploadRejected, Reason: strings.Join(msgs, "; ")}
	}
	if code >= 400 {
		return UploadResult{Status: UploadRejected, Reason: statusError(code, body).Error()}
	}
	return UploadResult{Status: UploadSuccess}
}

// Decode a message list, accepting a single string as well
func messages(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return []string{s}
	}
	return nil
}
