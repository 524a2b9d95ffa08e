package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

const (
	contentTypeJSON = "application/json"
	contentTypeCBOR = "application/cbor"
)

var errUnsupportedMedia = errors.New("unsupported content type")

var cborDecMode = func() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		panic("server: CBOR decoder initialization failed: " + err.Error())
	}
	return dm
}()

var cborEncMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("server: CBOR encoder initialization failed: " + err.Error())
	}
	return em
}()

// decodeBody reads a JSON or CBOR request body into v. Unknown JSON fields are
// rejected.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	defer body.Close()

	mediaType := contentTypeJSON
	if ct := r.Header.Get("Content-Type"); ct != "" {
		parsed, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return fmt.Errorf("%w: %v", errUnsupportedMedia, err)
		}
		mediaType = parsed
	}

	switch mediaType {
	case contentTypeJSON:
		dec := json.NewDecoder(body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return err
		}
		if dec.More() {
			return errors.New("trailing data after JSON body")
		}
		return nil
	case contentTypeCBOR:
		data, err := io.ReadAll(body)
		if err != nil {
			return err
		}
		return cborDecMode.Unmarshal(data, v)
	default:
		return fmt.Errorf("%w: %s", errUnsupportedMedia, mediaType)
	}
}

func wantsCBOR(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mediaType == contentTypeCBOR {
			return true
		}
	}
	return false
}

// writeBody renders v as CBOR when the client asked for it, JSON otherwise.
func writeBody(w http.ResponseWriter, r *http.Request, status int, v any) {
	if wantsCBOR(r) {
		data, err := cborEncMode.Marshal(v)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeRaw(w, status, contentTypeCBOR, data)
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, contentTypeJSON, append(data, '\n'))
}

func writeRaw(w http.ResponseWriter, status int, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
