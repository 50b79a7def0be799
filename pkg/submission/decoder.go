package submission

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/formrelay/platform/pkg/common/models"
)

var ErrUnsupportedContentType = errors.New("unsupported content type")

// Decode turns a request body into a flat payload. JSON is tried whenever the
// content type is missing or not a form encoding.
func Decode(contentType string, body io.Reader) (models.Payload, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return models.Payload{}, fmt.Errorf("reading body: %w", err)
		}
		return models.Payload{}, fmt.Errorf("%w: reading body: %v", ErrUnsupportedContentType, err)
	}

	mediaType, params, _ := mime.ParseMediaType(contentType)
	mediaType = strings.ToLower(mediaType)

	var payload models.Payload
	switch {
	case mediaType == "application/x-www-form-urlencoded":
		payload, err = decodeURLEncoded(raw)
	case mediaType == "multipart/form-data":
		payload, err = decodeMultipart(raw, params["boundary"])
	default:
		// application/json, +json suffixes, and anything unrecognised.
		payload, err = decodeJSON(raw)
	}
	if err != nil {
		return models.Payload{}, fmt.Errorf("%w: %v", ErrUnsupportedContentType, err)
	}
	return payload, nil
}

func decodeJSON(raw []byte) (models.Payload, error) {
	var p models.Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return models.Payload{}, err
	}
	return p, nil
}

// decodeURLEncoded keeps fields in wire order.
func decodeURLEncoded(raw []byte) (models.Payload, error) {
	p := models.NewPayload()
	for _, pair := range strings.Split(string(raw), "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return models.Payload{}, fmt.Errorf("field name %q: %w", k, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return models.Payload{}, fmt.Errorf("field %q: %w", key, err)
		}
		addField(&p, key, value)
	}
	return p, nil
}

// decodeMultipart records text fields verbatim and file fields by file name;
// file contents are not kept.
func decodeMultipart(raw []byte, boundary string) (models.Payload, error) {
	if boundary == "" {
		return models.Payload{}, errors.New("multipart boundary missing")
	}

	p := models.NewPayload()
	reader := multipart.NewReader(bytes.NewReader(raw), boundary)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.Payload{}, err
		}

		name := part.FormName()
		if name == "" {
			part.Close()
			continue
		}
		if filename := part.FileName(); filename != "" {
			_, _ = io.Copy(io.Discard, part)
			part.Close()
			addField(&p, name, filename)
			continue
		}

		value, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return models.Payload{}, fmt.Errorf("field %q: %w", name, err)
		}
		addField(&p, name, string(value))
	}
	return p, nil
}

// addField collects repeated form fields (checkbox groups) into a list.
func addField(p *models.Payload, key string, value interface{}) {
	existing, ok := p.Get(key)
	if !ok {
		p.Set(key, value)
		return
	}
	if list, ok := existing.([]interface{}); ok {
		p.Set(key, append(list, value))
		return
	}
	p.Set(key, []interface{}{existing, value})
}
