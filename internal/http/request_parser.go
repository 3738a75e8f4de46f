package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"fanrevenue/internal/bucket"
	"fanrevenue/internal/core"
)

// maxUploadBytes bounds an upload body.
const maxUploadBytes = 16 << 20

// parseCreator reads the {creator} path value.
func parseCreator(r *http.Request) (string, error) {
	creator := sanitizeInput(r.PathValue("creator"))
	if creator == "" {
		return "", fmt.Errorf("%w: empty creator id", bucket.ErrInvalidKey)
	}
	return creator, nil
}

// parseKey reads {creator}/{year}/{month} and validates the period.
func parseKey(r *http.Request) (bucket.Key, error) {
	creator, err := parseCreator(r)
	if err != nil {
		return bucket.Key{}, err
	}
	year, err := strconv.Atoi(strings.TrimSpace(r.PathValue("year")))
	if err != nil {
		return bucket.Key{}, fmt.Errorf("%w: year %q is not a number", errBadRequest, r.PathValue("year"))
	}
	month, err := strconv.Atoi(strings.TrimSpace(r.PathValue("month")))
	if err != nil {
		return bucket.Key{}, fmt.Errorf("%w: month %q is not a number", errBadRequest, r.PathValue("month"))
	}
	return bucket.NewKey(creator, year, month)
}

// uploadRequest is the PUT body. Rows is an alternative to Records for
// spreadsheet exports keyed by their original headers.
type uploadRequest struct {
	DisplayName string          `json:"displayName"`
	Records     json.RawMessage `json:"records"`
	Rows        json.RawMessage `json:"rows"`
}

// parseUpload decodes the body into raw records. A records value that is not
// a JSON array fails with core.ErrNotAList.
func parseUpload(r *http.Request) (string, []core.RawRecord, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
	if err != nil {
		return "", nil, fmt.Errorf("%w: read body: %v", errBadRequest, err)
	}
	if len(body) > maxUploadBytes {
		return "", nil, fmt.Errorf("%w: body larger than %d bytes", errBadRequest, maxUploadBytes)
	}

	var req uploadRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", nil, fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}

	displayName := sanitizeInput(req.DisplayName)
	if len(req.Rows) > 0 && len(req.Records) == 0 {
		raws, err := core.DecodeHeaderRows(req.Rows)
		return displayName, raws, err
	}
	raws, err := core.DecodeRawRecords(req.Records)
	return displayName, raws, err
}
