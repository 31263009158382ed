package api

import (
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/erazemk/trznica/internal/apperr"
	"github.com/erazemk/trznica/internal/images"
	"github.com/erazemk/trznica/internal/model"
)

// Upload limits.
const (
	maxUploadSize  = 10 << 20 // per file
	maxRequestSize = 110 << 20
	maxFormMemory  = 32 << 20
)

const msgUploadTooLarge = "Uploaded images are too large."

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// parseMultipart parses a multipart body and returns the files under field.
func parseMultipart(w http.ResponseWriter, r *http.Request, field string) ([]images.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return nil, apperr.Validation(msgInvalidBody)
	}

	var out []images.Upload
	for _, fh := range r.MultipartForm.File[field] {
		u, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func readUpload(fh *multipart.FileHeader) (images.Upload, error) {
	if fh.Size > maxUploadSize {
		return images.Upload{}, apperr.Validation(msgUploadTooLarge)
	}
	f, err := fh.Open()
	if err != nil {
		return images.Upload{}, apperr.Internal("opening upload", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadSize+1))
	if err != nil {
		return images.Upload{}, apperr.Internal("reading upload", err)
	}
	if len(data) > maxUploadSize {
		return images.Upload{}, apperr.Validation(msgUploadTooLarge)
	}
	return images.Upload{Filename: fh.Filename, Data: data}, nil
}

// formValues returns every value of key, also accepting the key[] spelling.
func formValues(v url.Values, key string) []string {
	return append(append([]string(nil), v[key]...), v[key+"[]"]...)
}

// formString returns a pointer to the value of key, or nil if absent.
func formString(v url.Values, key string) *string {
	if !v.Has(key) {
		return nil
	}
	s := v.Get(key)
	return &s
}

// formInt parses key as an integer. A value that does not parse is kept as
// zero so that range validation rejects it.
func formInt(v url.Values, key string) *int {
	s := formString(v, key)
	if s == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(*s))
	if err != nil {
		n = 0
	}
	return &n
}

func itemInputFromForm(v url.Values) model.ItemInput {
	in := model.ItemInput{
		Name:        v.Get("name"),
		Group:       v.Get("group"),
		Category:    v.Get("category"),
		Subcategory: v.Get("subcategory"),
		Description: v.Get("description"),
		Color:       v.Get("color"),
	}
	if p := formInt(v, "price"); p != nil {
		in.Price = *p
	}
	if tags := formValues(v, "tags"); len(tags) > 0 {
		in.Tags = tags
	}
	return in
}

func itemUpdateFromForm(v url.Values) model.ItemUpdate {
	u := model.ItemUpdate{
		Name:        formString(v, "name"),
		Group:       formString(v, "group"),
		Category:    formString(v, "category"),
		Subcategory: formString(v, "subcategory"),
		Price:       formInt(v, "price"),
		Description: formString(v, "description"),
		Color:       formString(v, "color"),
	}
	if v.Has("tags") || v.Has("tags[]") {
		tags := formValues(v, "tags")
		u.Tags = &tags
	}
	return u
}

// itemQuery reads a catalog search from the URL. Price operators use the
// price[op]=v form; a bare price=v is passed on under the empty operator.
func itemQuery(v url.Values) model.ItemQuery {
	q := model.ItemQuery{
		Q:           v.Get("q"),
		Group:       v.Get("group"),
		Category:    v.Get("category"),
		Subcategory: v.Get("subcategory"),
		Colors:      formValues(v, "colors"),
		SortBy:      v.Get("sortBy"),
		Direction:   v.Get("direction"),
		Page:        v.Get("page"),
		Limit:       v.Get("limit"),
	}

	for key, vals := range v {
		var op string
		switch {
		case key == "price":
		case strings.HasPrefix(key, "price[") && strings.HasSuffix(key, "]"):
			op = key[len("price[") : len(key)-1]
		default:
			continue
		}
		if q.Price == nil {
			q.Price = map[string]string{}
		}
		// Repeated operators count as several operators.
		for i, val := range vals {
			k := op
			if i > 0 {
				k = fmt.Sprintf("%s#%d", op, i)
			}
			q.Price[k] = val
		}
	}
	return q
}
